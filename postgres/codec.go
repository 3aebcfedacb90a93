package postgres

import (
	"encoding/json"
	"fmt"

	"github.com/meikuraledutech/ruleeditor"
)

const ruleColumns = `id, exploration_id, state_name, position, description, rule_name, inputs, feedback, dest`

// row is the scanned form of a state_rules row.
type row struct {
	rule     ruleeditor.Rule
	inputs   json.RawMessage
	feedback json.RawMessage
}

func (r *row) dest() []any {
	return []any{
		&r.rule.ID, &r.rule.ExplorationID, &r.rule.StateName, &r.rule.Position,
		&r.rule.Description, &r.rule.Definition.Name, &r.inputs, &r.feedback, &r.rule.Dest,
	}
}

// decode types the stored inputs with the rule's own description.
func (r *row) decode() (ruleeditor.Rule, error) {
	var raw map[string]json.RawMessage
	if len(r.inputs) > 0 {
		if err := json.Unmarshal(r.inputs, &raw); err != nil {
			return ruleeditor.Rule{}, fmt.Errorf("ruleeditor: decode inputs of rule %s: %w", r.rule.ID, err)
		}
	}
	inputs, err := ruleeditor.DecodeInputs(r.rule.Description, raw)
	if err != nil {
		return ruleeditor.Rule{}, fmt.Errorf("ruleeditor: decode inputs of rule %s: %w", r.rule.ID, err)
	}
	r.rule.Definition.Inputs = inputs

	r.rule.Feedback = []string{}
	if len(r.feedback) > 0 {
		if err := json.Unmarshal(r.feedback, &r.rule.Feedback); err != nil {
			return ruleeditor.Rule{}, fmt.Errorf("ruleeditor: decode feedback of rule %s: %w", r.rule.ID, err)
		}
	}
	return r.rule, nil
}

// encode returns the JSONB columns of rule.
func encode(rule *ruleeditor.Rule) (inputs, feedback json.RawMessage, err error) {
	in := rule.Definition.Inputs
	if in == nil {
		in = ruleeditor.Inputs{}
	}
	if inputs, err = json.Marshal(in); err != nil {
		return nil, nil, fmt.Errorf("ruleeditor: encode inputs: %w", err)
	}
	fb := rule.Feedback
	if fb == nil {
		fb = []string{}
	}
	if feedback, err = json.Marshal(fb); err != nil {
		return nil, nil, fmt.Errorf("ruleeditor: encode feedback: %w", err)
	}
	return inputs, feedback, nil
}
