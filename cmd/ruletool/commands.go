package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/meikuraledutech/ruleeditor"
	"github.com/meikuraledutech/ruleeditor/interactions"
	"github.com/meikuraledutech/ruleeditor/internal/logger"
	"github.com/spf13/cobra"
)

type options struct {
	interactionsFile string
	interaction      string
	choices          []string
	verbose          bool
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "ruletool",
		Short:         "Inspect rule types and rule-description templates",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&opts.interactionsFile, "interactions", "f", "interactions.yaml", "Interactions YAML file")
	rootCmd.PersistentFlags().StringVarP(&opts.interaction, "interaction", "i", "", "Interaction id")
	rootCmd.PersistentFlags().StringArrayVar(&opts.choices, "choice", nil, "Answer choice as label=val (repeatable)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log template diagnostics")

	var withDefault bool
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "List the rule types of an interaction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := interactions.Load(opts.interactionsFile)
			if err != nil {
				return err
			}
			for _, ch := range reg.Catalog(opts.interaction).SelectorChoices(withDefault) {
				fmt.Fprintf(out, "%s\t%s\n", ch.Text, ch.ID)
			}
			return nil
		},
	}
	catalogCmd.Flags().BoolVar(&withDefault, "default", false, "Include the catch-all rule")

	selectCmd := &cobra.Command{
		Use:   "select [description]",
		Short: "Select a rule type and print its default definition and fragments",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := interactions.Load(opts.interactionsFile)
			if err != nil {
				return err
			}
			cat := reg.Catalog(opts.interaction)
			description := cat.FirstTemplate()
			if len(args) == 1 {
				description = args[0]
			}
			choices, err := opts.answerChoices(reg)
			if err != nil {
				return err
			}
			def, frags, err := opts.compiler().SelectRuleType(description, cat, choices)
			if err != nil {
				return err
			}
			return writeJSON(out, map[string]any{
				"description": description,
				"definition":  def,
				"fragments":   frags,
			})
		},
	}

	var rawInputs string
	fragmentsCmd := &cobra.Command{
		Use:   "fragments <description>",
		Short: "Render a rule description into fragments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var raw map[string]json.RawMessage
			if rawInputs != "" {
				if err := json.Unmarshal([]byte(rawInputs), &raw); err != nil {
					return fmt.Errorf("parse --inputs: %w", err)
				}
			}
			inputs, err := ruleeditor.DecodeInputs(args[0], raw)
			if err != nil {
				return err
			}
			var choices []ruleeditor.Choice
			if opts.interaction != "" {
				reg, err := interactions.Load(opts.interactionsFile)
				if err != nil {
					return err
				}
				if choices, err = opts.answerChoices(reg); err != nil {
					return err
				}
			} else if choices, err = parseChoices(opts.choices); err != nil {
				return err
			}
			frags := opts.compiler().ComputeFragments(args[0], inputs, choices)
			return writeJSON(out, map[string]any{"fragments": frags, "inputs": inputs})
		},
	}
	fragmentsCmd.Flags().StringVar(&rawInputs, "inputs", "", "Current inputs as a JSON object")

	rootCmd.AddCommand(catalogCmd, selectCmd, fragmentsCmd)
	return rootCmd
}

func (o *options) compiler() *ruleeditor.Compiler {
	if !o.verbose {
		return ruleeditor.NewCompiler(nil)
	}
	log, err := logger.New("dev")
	if err != nil {
		return ruleeditor.NewCompiler(nil)
	}
	return ruleeditor.NewCompiler(log.Zap())
}

// answerChoices returns the --choice flags for choice-based interactions,
// or nil when the interaction takes free-form inputs.
func (o *options) answerChoices(reg *interactions.Registry) ([]ruleeditor.Choice, error) {
	if !reg.IsChoiceBased(o.interaction) {
		return nil, nil
	}
	choices, err := parseChoices(o.choices)
	if err != nil {
		return nil, err
	}
	if choices == nil {
		choices = []ruleeditor.Choice{}
	}
	return choices, nil
}

func parseChoices(flags []string) ([]ruleeditor.Choice, error) {
	if len(flags) == 0 {
		return nil, nil
	}
	choices := make([]ruleeditor.Choice, 0, len(flags))
	for _, f := range flags {
		label, val, ok := strings.Cut(f, "=")
		if !ok {
			return nil, fmt.Errorf("choice %q: want label=val", f)
		}
		choices = append(choices, ruleeditor.Choice{Label: label, Val: val})
	}
	return choices, nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
