package main

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/meikuraledutech/ruleeditor"
	"github.com/meikuraledutech/ruleeditor/interactions"
	"github.com/meikuraledutech/ruleeditor/internal/logger"
)

type selectRequest struct {
	Description   string               `json:"description"`
	AnswerChoices *[]ruleeditor.Choice `json:"answer_choices"`
}

type fragmentsRequest struct {
	Description   string                     `json:"description"`
	Inputs        map[string]json.RawMessage `json:"inputs"`
	AnswerChoices *[]ruleeditor.Choice       `json:"answer_choices"`
}

type api struct {
	store    ruleeditor.Store
	registry *interactions.Registry
	compiler *ruleeditor.Compiler
	log      *logger.Logger
}

func newApp(store ruleeditor.Store, registry *interactions.Registry, log *logger.Logger) *fiber.App {
	a := &api{
		store:    store,
		registry: registry,
		compiler: ruleeditor.NewCompiler(log.Zap()),
		log:      log,
	}

	app := fiber.New()
	app.Use(recover.New())
	app.Use(a.logRequests)

	// ── Schema ────────────────────────────────────────────────────────
	app.Post("/schema", func(c fiber.Ctx) error {
		if err := store.CreateSchema(c.Context()); err != nil {
			return a.fail(c, err)
		}
		return c.JSON(fiber.Map{"message": "schema created"})
	})

	app.Delete("/schema", func(c fiber.Ctx) error {
		if err := store.DropSchema(c.Context()); err != nil {
			return a.fail(c, err)
		}
		return c.JSON(fiber.Map{"message": "schema dropped"})
	})

	// ── Rule types ────────────────────────────────────────────────────
	app.Get("/interactions", func(c fiber.Ctx) error {
		return c.JSON(registry.IDs())
	})

	app.Get("/interactions/:id/rule-types", a.requireInteraction, a.listRuleTypes)
	app.Post("/interactions/:id/rule-types/select", a.requireInteraction, a.selectRuleType)
	app.Post("/interactions/:id/fragments", a.requireInteraction, a.computeFragments)

	// ── Rules of a state ──────────────────────────────────────────────
	app.Get("/explorations/:eid/states/:state/rules", func(c fiber.Ctx) error {
		rules, err := store.ListRules(c.Context(), c.Params("eid"), c.Params("state"))
		if err != nil {
			return a.fail(c, err)
		}
		return c.JSON(rules)
	})

	app.Put("/explorations/:eid/states/:state/rules", func(c fiber.Ctx) error {
		var rules []ruleeditor.Rule
		if err := c.Bind().JSON(&rules); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		saved, err := store.ReplaceRules(c.Context(), c.Params("eid"), c.Params("state"), rules)
		if err != nil {
			return a.fail(c, err)
		}
		return c.JSON(saved)
	})

	app.Delete("/explorations/:eid/states/:state/rules", func(c fiber.Ctx) error {
		if err := store.DeleteRules(c.Context(), c.Params("eid"), c.Params("state")); err != nil {
			return a.fail(c, err)
		}
		return c.SendStatus(204)
	})

	app.Post("/explorations/:eid/states/:state/rules", func(c fiber.Ctx) error {
		var rule ruleeditor.Rule
		if err := c.Bind().JSON(&rule); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		rule.ExplorationID = c.Params("eid")
		rule.StateName = c.Params("state")
		id, err := store.AddRule(c.Context(), &rule)
		if err != nil {
			return a.fail(c, err)
		}
		return c.Status(201).JSON(fiber.Map{"id": id})
	})

	app.Get("/explorations/:eid/states/:state/dest-choices", func(c fiber.Ctx) error {
		var states []string
		if q := c.Query("states"); q != "" {
			states = strings.Split(q, ",")
		}
		return c.JSON(ruleeditor.DestChoices(c.Params("state"), states))
	})

	// ── Single rules ──────────────────────────────────────────────────
	app.Get("/rules/:id", func(c fiber.Ctx) error {
		r, err := store.GetRule(c.Context(), c.Params("id"))
		if err != nil {
			return a.fail(c, err)
		}
		if r == nil {
			return c.Status(404).JSON(fiber.Map{"error": "rule not found"})
		}
		return c.JSON(r)
	})

	app.Put("/rules/:id", func(c fiber.Ctx) error {
		var rule ruleeditor.Rule
		if err := c.Bind().JSON(&rule); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		rule.ID = c.Params("id")
		if err := store.UpdateRule(c.Context(), &rule); err != nil {
			return a.fail(c, err)
		}
		return c.SendStatus(204)
	})

	app.Delete("/rules/:id", func(c fiber.Ctx) error {
		if err := store.DeleteRule(c.Context(), c.Params("id")); err != nil {
			return a.fail(c, err)
		}
		return c.SendStatus(204)
	})

	return app
}

func (a *api) requireInteraction(c fiber.Ctx) error {
	if !a.registry.Has(c.Params("id")) {
		return c.Status(404).JSON(fiber.Map{"error": "interaction not found"})
	}
	return c.Next()
}

func (a *api) listRuleTypes(c fiber.Ctx) error {
	cat := a.registry.Catalog(c.Params("id"))
	choices := cat.SelectorChoices(c.Query("default") == "true")
	type entry struct {
		ruleeditor.SelectorChoice
		Label string `json:"label"`
	}
	out := make([]entry, len(choices))
	for i, ch := range choices {
		out[i] = entry{SelectorChoice: ch, Label: ruleeditor.FormatSelection(ch.ID)}
	}
	return c.JSON(out)
}

func (a *api) selectRuleType(c fiber.Ctx) error {
	var req selectRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	id := c.Params("id")
	cat := a.registry.Catalog(id)

	description := req.Description
	if description == "" {
		description = cat.FirstTemplate()
	}
	if description == ruleeditor.DefaultDescription {
		return c.JSON(fiber.Map{
			"description": description,
			"definition":  ruleeditor.Definition{Name: ruleeditor.DefaultDescription, Inputs: ruleeditor.Inputs{}},
			"fragments":   []ruleeditor.Fragment{},
		})
	}

	def, frags, err := a.compiler.SelectRuleType(description, cat, a.choices(id, req.AnswerChoices))
	if err != nil {
		return a.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"description": description,
		"definition":  def,
		"fragments":   frags,
	})
}

func (a *api) computeFragments(c fiber.Ctx) error {
	var req fragmentsRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	inputs, err := ruleeditor.DecodeInputs(req.Description, req.Inputs)
	if err != nil {
		return a.fail(c, err)
	}
	frags := a.compiler.ComputeFragments(req.Description, inputs, a.choices(c.Params("id"), req.AnswerChoices))
	return c.JSON(fiber.Map{"fragments": frags, "inputs": inputs})
}

// choices returns nil for free-form interactions and a non-nil slice for
// choice-based ones, so a missing list renders as "no choices available".
func (a *api) choices(interactionID string, supplied *[]ruleeditor.Choice) []ruleeditor.Choice {
	if !a.registry.IsChoiceBased(interactionID) {
		return nil
	}
	if supplied == nil || *supplied == nil {
		return []ruleeditor.Choice{}
	}
	return *supplied
}

func (a *api) fail(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ruleeditor.ErrUnknownTemplate):
		a.requestLog(c).Warn("rule type not in catalog", "error", err)
		return c.Status(422).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ruleeditor.ErrInvalidInputs), errors.Is(err, ruleeditor.ErrMisplacedDefault):
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ruleeditor.ErrRuleNotFound):
		return c.Status(404).JSON(fiber.Map{"error": "rule not found"})
	default:
		a.requestLog(c).Error("request failed", "error", err)
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
}

type requestLogKey struct{}

func (a *api) logRequests(c fiber.Ctx) error {
	start := time.Now()
	log := a.log.With("method", c.Method(), "path", c.Path())
	c.Locals(requestLogKey{}, log)
	err := c.Next()
	log.Debug("request",
		"status", c.Response().StatusCode(),
		"duration", time.Since(start),
	)
	return err
}

// requestLog returns the logger tagged with the current request's method
// and path.
func (a *api) requestLog(c fiber.Ctx) *logger.Logger {
	if log, ok := c.Locals(requestLogKey{}).(*logger.Logger); ok {
		return log
	}
	return a.log
}
