package ruleeditor

import (
	"errors"
	"fmt"
)

// Validate checks that inputs holds a value of the right shape for every
// placeholder of template. The catch-all rule takes no inputs.
func Validate(template string, inputs Inputs) error {
	if template == DefaultDescription {
		return nil
	}
	var errs []error
	for name, t := range PlaceholderTypes(template) {
		v, ok := inputs[name]
		if !ok || v == nil {
			errs = append(errs, fmt.Errorf("input %q is missing", name))
			continue
		}
		if err := checkValue(t, v); err != nil {
			errs = append(errs, fmt.Errorf("input %q: %w", name, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidInputs, errors.Join(errs...))
	}
	return nil
}

func checkValue(t VarType, v Value) error {
	switch t {
	case TypeNonnegativeInt:
		n, ok := v.(IntValue)
		if !ok {
			return fmt.Errorf("want %s, got %T", t, v)
		}
		if n < 0 {
			return fmt.Errorf("%d is negative", n)
		}
	case TypeSet:
		if _, ok := v.(SetValue); !ok {
			return fmt.Errorf("want %s, got %T", t, v)
		}
	case TypeGraph:
		g, ok := v.(GraphValue)
		if !ok {
			return fmt.Errorf("want %s, got %T", t, v)
		}
		for _, e := range g.Edges {
			if e.Src < 0 || e.Src >= len(g.Vertices) || e.Dst < 0 || e.Dst >= len(g.Vertices) {
				return fmt.Errorf("edge %d-%d references a missing vertex", e.Src, e.Dst)
			}
		}
	default:
		switch v.(type) {
		case StringValue, RawValue:
		default:
			return fmt.Errorf("want string or JSON value, got %T", v)
		}
	}
	return nil
}

// ValidateRules checks the rules of one state in order: every rule's inputs
// must fit its description, and the catch-all rule may appear only once, as
// the last rule.
func ValidateRules(rules []Rule) error {
	for i := range rules {
		r := &rules[i]
		if r.IsDefault() && i != len(rules)-1 {
			return ErrMisplacedDefault
		}
		if err := Validate(r.Description, r.Definition.Inputs); err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}
	}
	return nil
}
