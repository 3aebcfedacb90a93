package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/meikuraledutech/ruleeditor"
)

// AddRule appends a rule to its state, ahead of the state's default rule
// if it has one. If rule.ID is empty, a UUID is auto-generated.
// Returns the rule ID (generated or provided).
func (s *PGStore) AddRule(ctx context.Context, rule *ruleeditor.Rule) (string, error) {
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("ruleeditor: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	existing, err := listRules(ctx, tx, rule.ExplorationID, rule.StateName)
	if err != nil {
		return "", err
	}

	rules := ruleeditor.InsertRule(existing, *rule)
	if err := ruleeditor.ValidateRules(rules); err != nil {
		return "", err
	}

	for _, r := range rules {
		if r.ID == rule.ID {
			rule.Position = r.Position
			if err := insertRule(ctx, tx, &r); err != nil {
				return "", err
			}
			continue
		}
		if _, err := tx.Exec(ctx,
			`UPDATE state_rules SET position = $1 WHERE id = $2`, r.Position, r.ID,
		); err != nil {
			return "", fmt.Errorf("ruleeditor: reorder rule %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("ruleeditor: commit: %w", err)
	}
	return rule.ID, nil
}

// GetRule fetches a single rule by its ID.
// Returns nil, nil if not found.
func (s *PGStore) GetRule(ctx context.Context, ruleID string) (*ruleeditor.Rule, error) {
	var r row
	err := s.db.QueryRow(ctx,
		`SELECT `+ruleColumns+` FROM state_rules WHERE id = $1`, ruleID,
	).Scan(r.dest()...)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("ruleeditor: get rule: %w", err)
	}

	rule, err := r.decode()
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

// UpdateRule updates an existing rule's description, definition, feedback
// and destination. Its state and position are left alone.
// Returns ErrRuleNotFound if the rule doesn't exist.
func (s *PGStore) UpdateRule(ctx context.Context, rule *ruleeditor.Rule) error {
	if err := ruleeditor.Validate(rule.Description, rule.Definition.Inputs); err != nil {
		return err
	}
	inputs, feedback, err := encode(rule)
	if err != nil {
		return err
	}

	ct, err := s.db.Exec(ctx,
		`UPDATE state_rules
		 SET description = $1, rule_name = $2, inputs = $3, feedback = $4, dest = $5
		 WHERE id = $6`,
		rule.Description, rule.Definition.Name, inputs, feedback, rule.Dest, rule.ID,
	)
	if err != nil {
		return fmt.Errorf("ruleeditor: update rule: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ruleeditor.ErrRuleNotFound
	}
	return nil
}

// DeleteRule deletes a rule by its ID.
// No error if the rule doesn't exist.
func (s *PGStore) DeleteRule(ctx context.Context, ruleID string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM state_rules WHERE id = $1`, ruleID)
	if err != nil {
		return fmt.Errorf("ruleeditor: delete rule: %w", err)
	}
	return nil
}
