package ruleeditor

import (
	"regexp"
	"sort"
	"strings"
)

// SubmitHandler is the name of the handler whose rules populate a Catalog.
const SubmitHandler = "submit"

// Catalog maps a rule-description template to the classifier that evaluates
// it. A Catalog is built once per editing session and not mutated after.
type Catalog map[string]string

// BuildCatalog collects the rule types of the "submit" handler in specs.
// Without a submit handler the catalog is empty.
func BuildCatalog(specs []HandlerSpec) Catalog {
	cat := Catalog{}
	for _, s := range specs {
		if s.Name != SubmitHandler {
			continue
		}
		for description, rule := range s.Rules {
			cat[description] = rule.Classifier
		}
		return cat
	}
	return cat
}

// Classifier returns the classifier of template and whether it is known.
func (c Catalog) Classifier(template string) (string, bool) {
	name, ok := c[template]
	return name, ok
}

// FirstTemplate returns the lexicographically smallest template, the rule
// type a new rule starts with. It returns "" for an empty catalog.
func (c Catalog) FirstTemplate() string {
	first := ""
	for t := range c {
		if first == "" || t < first {
			first = t
		}
	}
	return first
}

// ExtractDefaultsAndType returns the classifier of template together with the
// default inputs of its placeholders. The classifier is "" when template is
// not in the catalog.
func (c Catalog) ExtractDefaultsAndType(template string) (string, Inputs) {
	return c[template], ExtractDefaults(template)
}

// SelectorChoice is one entry of the rule-type dropdown.
type SelectorChoice struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// SelectorChoices lists the catalog as dropdown entries sorted by their
// display text. canAddDefault prepends the catch-all rule.
func (c Catalog) SelectorChoices(canAddDefault bool) []SelectorChoice {
	choices := make([]SelectorChoice, 0, len(c)+1)
	for t := range c {
		choices = append(choices, SelectorChoice{
			ID:   t,
			Text: "Answer " + ReplaceInputsWithEllipses(t),
		})
	}
	sort.SliceStable(choices, func(i, j int) bool {
		if choices[i].Text != choices[j].Text {
			return choices[i].Text < choices[j].Text
		}
		return choices[i].ID < choices[j].ID
	})
	if canAddDefault {
		choices = append([]SelectorChoice{{
			ID:   DefaultDescription,
			Text: "When no other rule applies...",
		}}, choices...)
	}
	return choices
}

// FormatSelection renders the label shown for a selected rule type.
func FormatSelection(id string) string {
	if id == DefaultDescription {
		return "When no other rule applies"
	}
	return "Answer " + TruncateAtFirstInput(id)
}

var anyPlaceholder = regexp.MustCompile(`\{\{\s*(\w+)\s*(\|\s*\w+\s*)?\}\}`)

// ReplaceInputsWithEllipses replaces every placeholder of template with "...".
func ReplaceInputsWithEllipses(template string) string {
	return anyPlaceholder.ReplaceAllLiteralString(template, "...")
}

// TruncateAtFirstInput cuts template at its first placeholder and appends
// "..." when one was found.
func TruncateAtFirstInput(template string) string {
	loc := anyPlaceholder.FindStringIndex(template)
	if loc == nil {
		return template
	}
	return strings.TrimRight(template[:loc[0]], " ") + "..."
}
