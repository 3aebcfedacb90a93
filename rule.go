package ruleeditor

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DefaultDescription is the description of the catch-all rule that fires
// when no other rule of a state matches.
const DefaultDescription = "Default"

// HandlerSpec describes one interaction handler and the rule types it
// accepts, keyed by rule-description template.
type HandlerSpec struct {
	Name  string              `json:"name" yaml:"name"`
	Rules map[string]RuleSpec `json:"rules" yaml:"rules"`
}

// RuleSpec names the classifier that evaluates a rule type.
type RuleSpec struct {
	Classifier string `json:"classifier" yaml:"classifier"`
}

// Choice is one answer option of a choice-based interaction.
// Val is accepted from JSON as either a string or a number.
type Choice struct {
	Label string `json:"label" yaml:"label"`
	Val   string `json:"val" yaml:"val"`
}

// UnmarshalJSON decodes a choice whose val may be a number.
func (c *Choice) UnmarshalJSON(b []byte) error {
	var raw struct {
		Label string          `json:"label"`
		Val   json.RawMessage `json:"val"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	c.Label = raw.Label
	c.Val = ""
	val := bytes.TrimSpace(raw.Val)
	if len(val) == 0 || bytes.Equal(val, []byte("null")) {
		return nil
	}
	if val[0] == '"' {
		return json.Unmarshal(val, &c.Val)
	}
	var n json.Number
	if err := json.Unmarshal(val, &n); err != nil {
		return fmt.Errorf("choice val: %w", err)
	}
	c.Val = n.String()
	return nil
}

// FragmentKind tells the rendering layer how to draw a Fragment.
type FragmentKind string

const (
	FragmentLiteral FragmentKind = "noneditable"
	FragmentInput   FragmentKind = "input"
	FragmentChoice  FragmentKind = "select"
)

// Fragment is one piece of a rendered rule description: literal text, a
// typed input slot or a choice selector.
type Fragment struct {
	Kind    FragmentKind `json:"type"`
	Text    string       `json:"text,omitempty"`
	VarName string       `json:"varName,omitempty"`
	Type    VarType      `json:"varType,omitempty"`
	Choices []Choice     `json:"choices,omitempty"`
}

// Literal returns a non-editable fragment.
func Literal(text string) Fragment {
	return Fragment{Kind: FragmentLiteral, Text: text}
}

// Input returns an editable fragment bound to inputs[varName].
func Input(varName string, t VarType) Fragment {
	return Fragment{Kind: FragmentInput, VarName: varName, Type: t}
}

// ChoiceInput returns a selector fragment bound to inputs[varName].
func ChoiceInput(varName string, choices []Choice) Fragment {
	return Fragment{Kind: FragmentChoice, VarName: varName, Choices: choices}
}

// Definition is the classifier name and inputs a rule is evaluated with.
type Definition struct {
	Name   string `json:"name"`
	Inputs Inputs `json:"inputs"`
}

// Rule is one answer-group rule of an exploration state.
// Description holds the rule-description template the rule was built from.
type Rule struct {
	ID            string     `json:"id,omitempty"`
	ExplorationID string     `json:"exploration_id,omitempty"`
	StateName     string     `json:"state_name,omitempty"`
	Position      int        `json:"position"`
	Description   string     `json:"description"`
	Definition    Definition `json:"definition"`
	Feedback      []string   `json:"feedback"`
	Dest          string     `json:"dest"`
}

// IsDefault reports whether r is the state's catch-all rule.
func (r *Rule) IsDefault() bool {
	return r.Description == DefaultDescription
}

// InsertRule returns a copy of rules with rule added at the end, or just
// ahead of a trailing default rule when rule is not itself the default.
// Positions of the result are renumbered from 0.
func InsertRule(rules []Rule, rule Rule) []Rule {
	out := make([]Rule, 0, len(rules)+1)
	out = append(out, rules...)
	out = append(out, rule)
	if n := len(rules); n > 0 && out[n-1].IsDefault() && !rule.IsDefault() {
		out[n-1], out[n] = out[n], out[n-1]
	}
	for i := range out {
		out[i].Position = i
	}
	return out
}

// UnmarshalJSON decodes a rule, typing its inputs from the description.
func (r *Rule) UnmarshalJSON(b []byte) error {
	type plain Rule
	var raw struct {
		plain
		Definition struct {
			Name   string                     `json:"name"`
			Inputs map[string]json.RawMessage `json:"inputs"`
		} `json:"definition"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	inputs, err := DecodeInputs(raw.Description, raw.Definition.Inputs)
	if err != nil {
		return err
	}
	*r = Rule(raw.plain)
	r.Definition = Definition{Name: raw.Definition.Name, Inputs: inputs}
	return nil
}
