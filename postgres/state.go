package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/meikuraledutech/ruleeditor"
)

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// ReplaceRules saves the full rule list of one state in one transaction.
// Rules without IDs get auto-generated UUIDs and positions follow slice order.
// Returns the rules with IDs and positions filled in.
func (s *PGStore) ReplaceRules(ctx context.Context, explorationID, stateName string, rules []ruleeditor.Rule) ([]ruleeditor.Rule, error) {
	for i := range rules {
		r := &rules[i]
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		r.ExplorationID = explorationID
		r.StateName = stateName
		r.Position = i
	}

	if err := ruleeditor.ValidateRules(rules); err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ruleeditor: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Replace semantics: the state's previous rules are dropped.
	if _, err := tx.Exec(ctx,
		`DELETE FROM state_rules WHERE exploration_id = $1 AND state_name = $2`,
		explorationID, stateName,
	); err != nil {
		return nil, fmt.Errorf("ruleeditor: delete rules: %w", err)
	}

	for i := range rules {
		if err := insertRule(ctx, tx, &rules[i]); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("ruleeditor: commit: %w", err)
	}
	return rules, nil
}

// ListRules returns the rules of one state ordered by position.
// Returns an empty slice (not nil) if none found.
func (s *PGStore) ListRules(ctx context.Context, explorationID, stateName string) ([]ruleeditor.Rule, error) {
	return listRules(ctx, s.db, explorationID, stateName)
}

// DeleteRules removes every rule of one state.
// No error if the state has no rules.
func (s *PGStore) DeleteRules(ctx context.Context, explorationID, stateName string) error {
	_, err := s.db.Exec(ctx,
		`DELETE FROM state_rules WHERE exploration_id = $1 AND state_name = $2`,
		explorationID, stateName,
	)
	if err != nil {
		return fmt.Errorf("ruleeditor: delete rules: %w", err)
	}
	return nil
}

func listRules(ctx context.Context, q querier, explorationID, stateName string) ([]ruleeditor.Rule, error) {
	rows, err := q.Query(ctx,
		`SELECT `+ruleColumns+` FROM state_rules
		 WHERE exploration_id = $1 AND state_name = $2 ORDER BY position`,
		explorationID, stateName)
	if err != nil {
		return nil, fmt.Errorf("ruleeditor: list rules: %w", err)
	}
	defer rows.Close()

	rules := []ruleeditor.Rule{}
	for rows.Next() {
		var r row
		if err := rows.Scan(r.dest()...); err != nil {
			return nil, fmt.Errorf("ruleeditor: scan rule: %w", err)
		}
		rule, err := r.decode()
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ruleeditor: rows rules: %w", err)
	}
	return rules, nil
}

func insertRule(ctx context.Context, tx pgx.Tx, rule *ruleeditor.Rule) error {
	inputs, feedback, err := encode(rule)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO state_rules (`+ruleColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rule.ID, rule.ExplorationID, rule.StateName, rule.Position,
		rule.Description, rule.Definition.Name, inputs, feedback, rule.Dest,
	); err != nil {
		return fmt.Errorf("ruleeditor: insert rule %s: %w", rule.ID, err)
	}
	return nil
}
