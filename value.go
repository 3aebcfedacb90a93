package ruleeditor

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// VarType is the type annotation of a placeholder, the part after the pipe in
// {{name|Type}}. The empty VarType marks an untyped placeholder.
type VarType string

const (
	TypeUntyped        VarType = ""
	TypeSet            VarType = "Set"
	TypeNonnegativeInt VarType = "NonnegativeInt"
	TypeGraph          VarType = "Graph"
)

// Value is the value bound to one rule input. The concrete type is chosen from
// the placeholder's VarType when a rule type is selected.
type Value interface {
	// IsZero reports whether the value still holds its type's default.
	IsZero() bool
	isValue()
}

// StringValue backs untyped placeholders and any type name without a
// dedicated representation.
type StringValue string

// RawValue holds a non-string JSON value of a placeholder whose type has no
// dedicated representation, such as a Real or a ListOfUnicodeString.
type RawValue json.RawMessage

// IntValue backs NonnegativeInt placeholders.
type IntValue int

// SetValue backs Set placeholders.
type SetValue []string

// GraphValue backs Graph placeholders.
type GraphValue struct {
	Vertices   []Vertex    `json:"vertices"`
	Edges      []GraphEdge `json:"edges"`
	IsDirected bool        `json:"isDirected"`
	IsWeighted bool        `json:"isWeighted"`
	IsLabeled  bool        `json:"isLabeled"`
}

// Vertex is a labelled point of a GraphValue.
type Vertex struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Label string  `json:"label"`
}

// GraphEdge joins two vertices of a GraphValue by index.
type GraphEdge struct {
	Src    int     `json:"src"`
	Dst    int     `json:"dst"`
	Weight float64 `json:"weight"`
}

func (v StringValue) IsZero() bool { return v == "" }
func (v RawValue) IsZero() bool    { return len(v) == 0 || string(v) == "null" }
func (v IntValue) IsZero() bool    { return v == 0 }
func (v SetValue) IsZero() bool    { return len(v) == 0 }
func (v GraphValue) IsZero() bool {
	return len(v.Vertices) == 0 && len(v.Edges) == 0 &&
		!v.IsDirected && !v.IsWeighted && !v.IsLabeled
}

func (StringValue) isValue() {}
func (RawValue) isValue()    {}
func (IntValue) isValue()    {}
func (SetValue) isValue()    {}
func (GraphValue) isValue()  {}

// MarshalJSON writes the held JSON unchanged.
func (v RawValue) MarshalJSON() ([]byte, error) {
	if len(v) == 0 {
		return []byte("null"), nil
	}
	return v, nil
}

// MarshalJSON keeps an empty set as [] rather than null.
func (v SetValue) MarshalJSON() ([]byte, error) {
	if v == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(v))
}

// MarshalJSON keeps empty vertex and edge lists as [] rather than null.
func (v GraphValue) MarshalJSON() ([]byte, error) {
	type plain GraphValue
	if v.Vertices == nil {
		v.Vertices = []Vertex{}
	}
	if v.Edges == nil {
		v.Edges = []GraphEdge{}
	}
	return json.Marshal(plain(v))
}

// DefaultValue returns the initial value for a placeholder of type t.
func DefaultValue(t VarType) Value {
	switch t {
	case TypeSet:
		return SetValue{}
	case TypeNonnegativeInt:
		return IntValue(0)
	case TypeGraph:
		return GraphValue{Vertices: []Vertex{}, Edges: []GraphEdge{}}
	default:
		return StringValue("")
	}
}

// Inputs maps a placeholder name to its bound value.
type Inputs map[string]Value

// Clone returns a copy of in that shares no slices with it.
func (in Inputs) Clone() Inputs {
	if in == nil {
		return nil
	}
	out := make(Inputs, len(in))
	for k, v := range in {
		switch tv := v.(type) {
		case SetValue:
			out[k] = append(SetValue{}, tv...)
		case RawValue:
			out[k] = append(RawValue{}, tv...)
		case GraphValue:
			tv.Vertices = append([]Vertex{}, tv.Vertices...)
			tv.Edges = append([]GraphEdge{}, tv.Edges...)
			out[k] = tv
		default:
			out[k] = v
		}
	}
	return out
}

// DecodeInputs decodes raw JSON inputs using the placeholder types declared
// in template. Untyped placeholders, types without a dedicated
// representation and names the template does not declare decode as a
// StringValue when they hold a JSON string and as a RawValue otherwise.
func DecodeInputs(template string, raw map[string]json.RawMessage) (Inputs, error) {
	types := PlaceholderTypes(template)
	in := make(Inputs, len(raw))
	for name, msg := range raw {
		v, err := decodeValue(types[name], msg)
		if err != nil {
			return nil, fmt.Errorf("%w: input %q: %v", ErrInvalidInputs, name, err)
		}
		in[name] = v
	}
	return in, nil
}

func decodeValue(t VarType, msg json.RawMessage) (Value, error) {
	switch t {
	case TypeSet:
		var s []string
		if err := json.Unmarshal(msg, &s); err != nil {
			return nil, err
		}
		if s == nil {
			s = []string{}
		}
		return SetValue(s), nil
	case TypeNonnegativeInt:
		var n int
		if err := json.Unmarshal(msg, &n); err != nil {
			return nil, err
		}
		return IntValue(n), nil
	case TypeGraph:
		var g GraphValue
		if err := json.Unmarshal(msg, &g); err != nil {
			return nil, err
		}
		return g, nil
	default:
		trimmed := bytes.TrimSpace(msg)
		if len(trimmed) == 0 {
			return nil, fmt.Errorf("empty value")
		}
		if trimmed[0] != '"' {
			if !json.Valid(trimmed) {
				return nil, fmt.Errorf("malformed JSON value")
			}
			return append(RawValue{}, trimmed...), nil
		}
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, err
		}
		return StringValue(s), nil
	}
}
