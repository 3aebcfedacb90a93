package ruleeditor

import (
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// NoChoicesText is shown in place of a choice selector when the interaction
// is choice-based but has no choices yet.
const NoChoicesText = " [Error: No choices available] "

// typedPlaceholder matches {{name|Type}}. Untyped placeholders are left as
// literal text when rendering fragments.
var typedPlaceholder = regexp.MustCompile(`\{\{\s*(\w+)\s*\|\s*(\w+)\s*\}\}`)

// Compiler turns rule-description templates into fragments and default
// inputs. The zero value is not usable; call NewCompiler.
type Compiler struct {
	log *zap.Logger
}

// NewCompiler returns a Compiler that reports malformed templates to log.
// A nil log discards diagnostics.
func NewCompiler(log *zap.Logger) *Compiler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Compiler{log: log}
}

// SelectRuleType adopts template as the new rule type. The returned
// definition carries the template's classifier and freshly defaulted inputs;
// any earlier inputs are discarded.
//
// choices is nil for free-form interactions. For choice-based interactions
// it holds the answer choices, possibly empty.
func (c *Compiler) SelectRuleType(template string, cat Catalog, choices []Choice) (Definition, []Fragment, error) {
	name, ok := cat.Classifier(template)
	if !ok {
		return Definition{}, nil, &ConfigurationError{Template: template}
	}
	def := Definition{Name: name, Inputs: Inputs{}}
	for k, v := range ExtractDefaults(template) {
		def.Inputs[k] = v
	}
	frags := c.ComputeFragments(template, def.Inputs, choices)
	return def, frags, nil
}

// ComputeFragments splits template into literal and editable fragments.
//
// The text before the first placeholder is emitted as an empty literal. When
// choices is non-nil every placeholder becomes a choice selector and an
// unset or zero input is defaulted to the first choice; an empty choices
// slice yields an inline error literal instead. ComputeFragments never fails:
// a malformed template is logged and rendered best-effort.
func (c *Compiler) ComputeFragments(template string, inputs Inputs, choices []Choice) []Fragment {
	if template == "" {
		return []Fragment{}
	}

	segments := splitWithCaptures(typedPlaceholder, template)
	if len(segments)%3 != 1 || hasStrayBraces(segments) {
		c.log.Warn("could not process rule description",
			zap.String("template", template),
			zap.Int("segments", len(segments)))
	}

	result := make([]Fragment, 0, len(segments))
	for i := 0; i < len(segments); i += 3 {
		text := segments[i]
		if i == 0 {
			text = ""
		}
		result = append(result, Literal(text))
		if i+2 >= len(segments) {
			break
		}

		varName, varType := segments[i+1], VarType(segments[i+2])
		switch {
		case choices == nil:
			result = append(result, Input(varName, varType))
		case len(choices) > 0:
			result = append(result, ChoiceInput(varName, choices))
			if inputs != nil {
				if v, ok := inputs[varName]; !ok || v == nil || v.IsZero() {
					inputs[varName] = choiceValue(varType, choices[0])
				}
			}
		default:
			result = append(result, Literal(NoChoicesText))
		}
	}
	return result
}

// choiceValue converts a choice id into a value of the placeholder's type.
// A Set slot holds the chosen id as its only element. A choice cannot
// describe a graph, so a Graph slot keeps an empty graph.
func choiceValue(t VarType, ch Choice) Value {
	switch t {
	case TypeNonnegativeInt:
		if n, err := strconv.Atoi(ch.Val); err == nil {
			return IntValue(n)
		}
	case TypeSet:
		return SetValue{ch.Val}
	case TypeGraph:
		return DefaultValue(TypeGraph)
	}
	return StringValue(ch.Val)
}

// splitWithCaptures splits s around matches of re and interleaves the
// captured groups between the surrounding text, so a pattern with k groups
// and m matches yields m*(k+1)+1 segments.
func splitWithCaptures(re *regexp.Regexp, s string) []string {
	matches := re.FindAllStringSubmatchIndex(s, -1)
	out := make([]string, 0, len(matches)*(re.NumSubexp()+1)+1)
	last := 0
	for _, m := range matches {
		out = append(out, s[last:m[0]])
		for g := 1; g <= re.NumSubexp(); g++ {
			if m[2*g] < 0 {
				out = append(out, "")
				continue
			}
			out = append(out, s[m[2*g]:m[2*g+1]])
		}
		last = m[1]
	}
	return append(out, s[last:])
}

func hasStrayBraces(segments []string) bool {
	for i := 0; i < len(segments); i += 3 {
		if strings.Contains(segments[i], "{{") || strings.Contains(segments[i], "}}") {
			return true
		}
	}
	return false
}

type placeholder struct {
	name string
	typ  VarType
}

// scanPlaceholders finds every placeholder of template, typed or not, in
// order. Each match is replaced by a single space in a working copy before
// the next search, so the copy shrinks on every pass.
func scanPlaceholders(template string) []placeholder {
	var found []placeholder
	work := template
	for {
		m := anyPlaceholder.FindStringSubmatchIndex(work)
		if m == nil {
			return found
		}
		p := placeholder{name: work[m[2]:m[3]]}
		if m[4] >= 0 {
			p.typ = VarType(strings.TrimSpace(work[m[4]+1 : m[5]]))
		}
		found = append(found, p)
		work = work[:m[0]] + " " + work[m[1]:]
	}
}

// ExtractDefaults returns the default input of every placeholder in
// template. A name used twice keeps the default of its last occurrence.
func ExtractDefaults(template string) Inputs {
	inputs := Inputs{}
	for _, p := range scanPlaceholders(template) {
		inputs[p.name] = DefaultValue(p.typ)
	}
	return inputs
}

// PlaceholderTypes maps each placeholder name in template to its type.
func PlaceholderTypes(template string) map[string]VarType {
	types := map[string]VarType{}
	for _, p := range scanPlaceholders(template) {
		types[p.name] = p.typ
	}
	return types
}
