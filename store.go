package ruleeditor

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrUnknownTemplate  = errors.New("ruleeditor: rule description is not in the catalog")
	ErrRuleNotFound     = errors.New("ruleeditor: rule not found")
	ErrInvalidInputs    = errors.New("ruleeditor: invalid rule inputs")
	ErrMisplacedDefault = errors.New("ruleeditor: default rule must be the last rule of a state")
)

// ConfigurationError reports a rule type selected from outside the catalog.
type ConfigurationError struct {
	Template string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("ruleeditor: unknown rule description %q", e.Template)
}

func (e *ConfigurationError) Unwrap() error { return ErrUnknownTemplate }

// Store defines the contract for persisting and retrieving rules.
type Store interface {
	// Schema
	CreateSchema(ctx context.Context) error
	DropSchema(ctx context.Context) error

	// State (bulk operations)
	ReplaceRules(ctx context.Context, explorationID, stateName string, rules []Rule) ([]Rule, error)
	ListRules(ctx context.Context, explorationID, stateName string) ([]Rule, error)
	DeleteRules(ctx context.Context, explorationID, stateName string) error

	// Rules
	AddRule(ctx context.Context, rule *Rule) (string, error)
	GetRule(ctx context.Context, ruleID string) (*Rule, error)
	UpdateRule(ctx context.Context, rule *Rule) error
	DeleteRule(ctx context.Context, ruleID string) error
}
