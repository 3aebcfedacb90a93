package ruleeditor

import "sort"

const (
	// EndDest is the terminal destination every exploration offers.
	EndDest = "END"
	// NewStateDest is the destination placeholder that asks for a new state.
	// A slash cannot appear in a state name.
	NewStateDest = "/"
)

// Editor holds one rule while it is being edited. Open snapshots the rule
// so Cancel can restore it.
type Editor struct {
	Rule     *Rule
	Editable bool

	open    bool
	memento *Rule
}

// NewEditor wraps rule for editing.
func NewEditor(rule *Rule, editable bool) *Editor {
	return &Editor{Rule: rule, Editable: editable}
}

// IsOpen reports whether the editor is open.
func (e *Editor) IsOpen() bool { return e.open }

// Open starts an edit. A rule without feedback gets one empty entry to type
// into.
func (e *Editor) Open() {
	if !e.Editable || e.open {
		return
	}
	e.memento = copyRule(e.Rule)
	e.open = true
	if len(e.Rule.Feedback) == 0 {
		e.Rule.Feedback = append(e.Rule.Feedback, "")
	}
}

// Save closes the editor, dropping empty feedback, and returns the rule to
// persist. It returns nil when the editor was not open.
func (e *Editor) Save() *Rule {
	if !e.open {
		return nil
	}
	feedback := make([]string, 0, len(e.Rule.Feedback))
	for _, f := range e.Rule.Feedback {
		if f != "" {
			feedback = append(feedback, f)
		}
	}
	e.Rule.Feedback = feedback
	e.open = false
	e.memento = nil
	return e.Rule
}

// Cancel closes the editor and restores the rule as it was when opened.
func (e *Editor) Cancel() {
	if !e.open {
		return
	}
	e.Rule.Description = e.memento.Description
	e.Rule.Definition = e.memento.Definition
	e.Rule.Feedback = e.memento.Feedback
	e.Rule.Dest = e.memento.Dest
	e.open = false
	e.memento = nil
}

// IsEmpty reports whether the rule loops back to activeState without
// saying anything.
func (e *Editor) IsEmpty(activeState string) bool {
	for _, f := range e.Rule.Feedback {
		if f != "" {
			return false
		}
	}
	return e.Rule.Dest == activeState
}

// IsConfusing reports whether the rule returns the learner to activeState
// with no feedback at all.
func (e *Editor) IsConfusing(activeState string) bool {
	return len(e.Rule.Feedback) == 0 && e.Rule.Dest == activeState
}

func copyRule(r *Rule) *Rule {
	c := *r
	c.Definition.Inputs = r.Definition.Inputs.Clone()
	if r.Feedback != nil {
		c.Feedback = append([]string{}, r.Feedback...)
	}
	return &c
}

// DestChoice is one entry of the destination dropdown.
type DestChoice struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// DestChoices lists the destinations a rule of activeState may point to:
// the state itself, a new state, every other state sorted by name and END.
func DestChoices(activeState string, states []string) []DestChoice {
	names := append([]string{}, states...)
	sort.Strings(names)
	names = append(names, EndDest)

	choices := []DestChoice{
		{ID: activeState, Text: activeState + " ⟳"},
		{ID: NewStateDest, Text: "Create New State..."},
	}
	for _, n := range names {
		if n != activeState {
			choices = append(choices, DestChoice{ID: n, Text: n})
		}
	}
	return choices
}
