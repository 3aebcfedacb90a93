package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meikuraledutech/ruleeditor"
	"github.com/meikuraledutech/ruleeditor/postgres"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	// Wire up the postgres implementation behind the Store interface.
	var store ruleeditor.Store = postgres.New(pool)

	if err := store.CreateSchema(ctx); err != nil {
		log.Fatalf("schema: %v", err)
	}
	fmt.Println("schema created")

	zl, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	compiler := ruleeditor.NewCompiler(zl)

	// ── Catalog from handler specs ────────────────────────────────────
	cat := ruleeditor.BuildCatalog([]ruleeditor.HandlerSpec{{
		Name: "submit",
		Rules: map[string]ruleeditor.RuleSpec{
			"is equal to {{x|NonnegativeInt}}":   {Classifier: "Equals"},
			"contains at least one of {{x|Set}}": {Classifier: "HasElementsIn"},
			"is isomorphic to {{g|Graph}}":       {Classifier: "IsIsomorphicTo"},
		},
	}})
	fmt.Println("\nrule types:")
	printJSON(cat.SelectorChoices(true))

	// ── Select a rule type ────────────────────────────────────────────
	def, frags, err := compiler.SelectRuleType("is equal to {{x|NonnegativeInt}}", cat, nil)
	if err != nil {
		log.Fatalf("select: %v", err)
	}
	fmt.Println("\nselected rule type:")
	printJSON(map[string]any{"definition": def, "fragments": frags})

	// ── Edit and save the rule ────────────────────────────────────────
	rule := &ruleeditor.Rule{
		Description: "is equal to {{x|NonnegativeInt}}",
		Definition:  def,
		Dest:        "Intro",
	}
	editor := ruleeditor.NewEditor(rule, true)
	editor.Open()
	rule.Definition.Inputs["x"] = ruleeditor.IntValue(42)
	rule.Feedback[0] = "That's the answer!"
	rule.Dest = ruleeditor.EndDest
	rule = editor.Save()

	saved, err := store.ReplaceRules(ctx, "demo-exploration", "Intro", []ruleeditor.Rule{
		*rule,
		{Description: ruleeditor.DefaultDescription, Dest: "Intro", Feedback: []string{"Try again."}},
	})
	if err != nil {
		log.Fatalf("replace rules: %v", err)
	}
	fmt.Println("\nrules saved:")
	printJSON(saved)

	// ── Retrieve ──────────────────────────────────────────────────────
	rules, err := store.ListRules(ctx, "demo-exploration", "Intro")
	if err != nil {
		log.Fatalf("list rules: %v", err)
	}
	fmt.Printf("\nrules (%d):\n", len(rules))
	printJSON(rules)

	// ── Cleanup ───────────────────────────────────────────────────────
	if err := store.DeleteRules(ctx, "demo-exploration", "Intro"); err != nil {
		log.Fatalf("delete: %v", err)
	}
	fmt.Println("\nrules deleted")
}

func printJSON(v any) {
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(out))
}
