package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/meikuraledutech/ruleeditor"
	"github.com/meikuraledutech/ruleeditor/interactions"
	"github.com/meikuraledutech/ruleeditor/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// memStore is an in-memory ruleeditor.Store.
type memStore struct {
	rules map[string]ruleeditor.Rule
}

func newMemStore() *memStore {
	return &memStore{rules: map[string]ruleeditor.Rule{}}
}

func (m *memStore) CreateSchema(context.Context) error { return nil }
func (m *memStore) DropSchema(context.Context) error   { return nil }

func (m *memStore) ReplaceRules(ctx context.Context, eid, state string, rules []ruleeditor.Rule) ([]ruleeditor.Rule, error) {
	for i := range rules {
		if rules[i].ID == "" {
			rules[i].ID = uuid.NewString()
		}
		rules[i].ExplorationID, rules[i].StateName, rules[i].Position = eid, state, i
	}
	if err := ruleeditor.ValidateRules(rules); err != nil {
		return nil, err
	}
	_ = m.DeleteRules(ctx, eid, state)
	for _, r := range rules {
		m.rules[r.ID] = r
	}
	return rules, nil
}

func (m *memStore) ListRules(_ context.Context, eid, state string) ([]ruleeditor.Rule, error) {
	out := []ruleeditor.Rule{}
	for _, r := range m.rules {
		if r.ExplorationID == eid && r.StateName == state {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (m *memStore) DeleteRules(_ context.Context, eid, state string) error {
	for id, r := range m.rules {
		if r.ExplorationID == eid && r.StateName == state {
			delete(m.rules, id)
		}
	}
	return nil
}

func (m *memStore) AddRule(ctx context.Context, rule *ruleeditor.Rule) (string, error) {
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	existing, _ := m.ListRules(ctx, rule.ExplorationID, rule.StateName)
	rules := ruleeditor.InsertRule(existing, *rule)
	if err := ruleeditor.ValidateRules(rules); err != nil {
		return "", err
	}
	for _, r := range rules {
		if r.ID == rule.ID {
			rule.Position = r.Position
		}
		m.rules[r.ID] = r
	}
	return rule.ID, nil
}

func (m *memStore) GetRule(_ context.Context, id string) (*ruleeditor.Rule, error) {
	r, ok := m.rules[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *memStore) UpdateRule(_ context.Context, rule *ruleeditor.Rule) error {
	if err := ruleeditor.Validate(rule.Description, rule.Definition.Inputs); err != nil {
		return err
	}
	old, ok := m.rules[rule.ID]
	if !ok {
		return ruleeditor.ErrRuleNotFound
	}
	rule.ExplorationID, rule.StateName, rule.Position = old.ExplorationID, old.StateName, old.Position
	m.rules[rule.ID] = *rule
	return nil
}

func (m *memStore) DeleteRule(_ context.Context, id string) error {
	delete(m.rules, id)
	return nil
}

const testInteractions = `
interactions:
  NumericInput:
    handlers:
      - name: submit
        rules:
          "is equal to {{x|NonnegativeInt}}":
            classifier: Equals
          "contains {{s|Set}}":
            classifier: Contains
  MultipleChoiceInput:
    choice_based: true
    handlers:
      - name: submit
        rules:
          "is equal to {{x|NonnegativeInt}}":
            classifier: Equals
`

func newTestServer(t *testing.T) (*memStore, func(method, path, body string) (int, string)) {
	t.Helper()
	return newLoggedTestServer(t, logger.Nop())
}

func newLoggedTestServer(t *testing.T, log *logger.Logger) (*memStore, func(method, path, body string) (int, string)) {
	t.Helper()
	reg, err := interactions.Parse([]byte(testInteractions))
	require.NoError(t, err)
	store := newMemStore()
	app := newApp(store, reg, log)

	do := func(method, path, body string) (int, string) {
		var r io.Reader
		if body != "" {
			r = strings.NewReader(body)
		}
		req := httptest.NewRequest(method, path, r)
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		b, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, string(b)
	}
	return store, do
}

func TestListRuleTypes(t *testing.T) {
	_, do := newTestServer(t)

	code, body := do(http.MethodGet, "/interactions/NumericInput/rule-types?default=true", "")
	require.Equal(t, 200, code)
	assert.JSONEq(t, `[
		{"id": "Default", "text": "When no other rule applies...", "label": "When no other rule applies"},
		{"id": "contains {{s|Set}}", "text": "Answer contains ...", "label": "Answer contains..."},
		{"id": "is equal to {{x|NonnegativeInt}}", "text": "Answer is equal to ...", "label": "Answer is equal to..."}
	]`, body)

	code, body = do(http.MethodGet, "/interactions", "")
	require.Equal(t, 200, code)
	assert.JSONEq(t, `["MultipleChoiceInput", "NumericInput"]`, body)
}

func TestSelectRuleType(t *testing.T) {
	_, do := newTestServer(t)

	t.Run("free-form", func(t *testing.T) {
		code, body := do(http.MethodPost, "/interactions/NumericInput/rule-types/select",
			`{"description": "is equal to {{x|NonnegativeInt}}"}`)
		require.Equal(t, 200, code)
		assert.JSONEq(t, `{
			"description": "is equal to {{x|NonnegativeInt}}",
			"definition": {"name": "Equals", "inputs": {"x": 0}},
			"fragments": [
				{"type": "noneditable"},
				{"type": "input", "varName": "x", "varType": "NonnegativeInt"},
				{"type": "noneditable"}
			]
		}`, body)
	})

	t.Run("first template when none given", func(t *testing.T) {
		code, body := do(http.MethodPost, "/interactions/NumericInput/rule-types/select", `{}`)
		require.Equal(t, 200, code)
		assert.Contains(t, body, `"description":"contains {{s|Set}}"`)
		assert.Contains(t, body, `"inputs":{"s":[]}`)
	})

	t.Run("choice-based without choices", func(t *testing.T) {
		code, body := do(http.MethodPost, "/interactions/MultipleChoiceInput/rule-types/select",
			`{"description": "is equal to {{x|NonnegativeInt}}"}`)
		require.Equal(t, 200, code)
		assert.Contains(t, body, ruleeditor.NoChoicesText)
	})

	t.Run("choice-based with choices", func(t *testing.T) {
		code, body := do(http.MethodPost, "/interactions/MultipleChoiceInput/rule-types/select",
			`{"description": "is equal to {{x|NonnegativeInt}}", "answer_choices": [{"label": "Red", "val": 2}]}`)
		require.Equal(t, 200, code)
		var resp struct {
			Definition struct {
				Inputs map[string]int `json:"inputs"`
			} `json:"definition"`
			Fragments []ruleeditor.Fragment `json:"fragments"`
		}
		require.NoError(t, json.Unmarshal([]byte(body), &resp))
		assert.Equal(t, 2, resp.Definition.Inputs["x"])
		require.Len(t, resp.Fragments, 3)
		assert.Equal(t, ruleeditor.FragmentChoice, resp.Fragments[1].Kind)
	})

	t.Run("unknown template", func(t *testing.T) {
		code, _ := do(http.MethodPost, "/interactions/NumericInput/rule-types/select",
			`{"description": "is prime"}`)
		assert.Equal(t, 422, code)
	})

	t.Run("default rule", func(t *testing.T) {
		code, body := do(http.MethodPost, "/interactions/NumericInput/rule-types/select",
			`{"description": "Default"}`)
		require.Equal(t, 200, code)
		assert.Contains(t, body, `"fragments":[]`)
	})
}

func TestComputeFragments(t *testing.T) {
	_, do := newTestServer(t)

	code, body := do(http.MethodPost, "/interactions/NumericInput/fragments",
		`{"description": "contains {{s|Set}} only", "inputs": {"s": ["a"]}}`)
	require.Equal(t, 200, code)
	assert.JSONEq(t, `{
		"fragments": [
			{"type": "noneditable"},
			{"type": "input", "varName": "s", "varType": "Set"},
			{"type": "noneditable", "text": " only"}
		],
		"inputs": {"s": ["a"]}
	}`, body)

	code, _ = do(http.MethodPost, "/interactions/NumericInput/fragments",
		`{"description": "contains {{s|Set}}", "inputs": {"s": 5}}`)
	assert.Equal(t, 400, code)
}

func TestRuleCRUD(t *testing.T) {
	store, do := newTestServer(t)
	base := "/explorations/e1/states/Intro/rules"

	code, body := do(http.MethodPut, base, `[
		{"description": "is equal to {{x|NonnegativeInt}}", "definition": {"name": "Equals", "inputs": {"x": 3}}, "feedback": ["Yes"], "dest": "END"},
		{"description": "Default", "definition": {"name": "Default", "inputs": {}}, "feedback": [], "dest": "Intro"}
	]`)
	require.Equal(t, 200, code, body)
	require.Len(t, store.rules, 2)

	code, _ = do(http.MethodPut, base, `[
		{"description": "Default", "definition": {"name": "Default", "inputs": {}}, "dest": "Intro"},
		{"description": "is equal to {{x|NonnegativeInt}}", "definition": {"name": "Equals", "inputs": {"x": 3}}, "dest": "END"}
	]`)
	assert.Equal(t, 400, code)

	code, body = do(http.MethodGet, base, "")
	require.Equal(t, 200, code)
	var rules []ruleeditor.Rule
	require.NoError(t, json.Unmarshal([]byte(body), &rules))
	require.Len(t, rules, 2)
	assert.Equal(t, ruleeditor.IntValue(3), rules[0].Definition.Inputs["x"])
	id := rules[0].ID

	code, _ = do(http.MethodPut, "/rules/"+id,
		`{"description": "is equal to {{x|NonnegativeInt}}", "definition": {"name": "Equals", "inputs": {"x": -1}}, "dest": "END"}`)
	assert.Equal(t, 400, code)

	code, _ = do(http.MethodPut, "/rules/"+id,
		`{"description": "is equal to {{x|NonnegativeInt}}", "definition": {"name": "Equals", "inputs": {"x": 4}}, "dest": "END"}`)
	assert.Equal(t, 204, code)

	code, body = do(http.MethodGet, "/rules/"+id, "")
	require.Equal(t, 200, code)
	assert.Contains(t, body, `"inputs":{"x":4}`)

	code, _ = do(http.MethodPut, "/rules/missing",
		`{"description": "Default", "definition": {"name": "Default", "inputs": {}}, "dest": "END"}`)
	assert.Equal(t, 404, code)

	code, body = do(http.MethodPost, base,
		`{"description": "contains {{s|Set}}", "definition": {"name": "Contains", "inputs": {"s": ["a"]}}, "dest": "END"}`)
	require.Equal(t, 201, code, body)

	code, _ = do(http.MethodDelete, "/rules/"+id, "")
	assert.Equal(t, 204, code)
	code, _ = do(http.MethodGet, "/rules/"+id, "")
	assert.Equal(t, 404, code)

	code, _ = do(http.MethodDelete, base, "")
	assert.Equal(t, 204, code)
	assert.Empty(t, store.rules)
}

func TestDestChoices(t *testing.T) {
	_, do := newTestServer(t)
	code, body := do(http.MethodGet, "/explorations/e1/states/Intro/dest-choices?states=Outro,Intro", "")
	require.Equal(t, 200, code)
	assert.JSONEq(t, `[
		{"id": "Intro", "text": "Intro ⟳"},
		{"id": "/", "text": "Create New State..."},
		{"id": "Outro", "text": "Outro"},
		{"id": "END", "text": "END"}
	]`, body)
}

func TestUnknownInteraction(t *testing.T) {
	_, do := newTestServer(t)

	code, body := do(http.MethodGet, "/interactions/Chess/rule-types", "")
	assert.Equal(t, 404, code)
	assert.JSONEq(t, `{"error": "interaction not found"}`, body)

	code, _ = do(http.MethodPost, "/interactions/Chess/rule-types/select", `{}`)
	assert.Equal(t, 404, code)

	code, _ = do(http.MethodPost, "/interactions/Chess/fragments", `{"description": "is {{x|Real}}"}`)
	assert.Equal(t, 404, code)
}

func TestAddRule_KeepsDefaultLast(t *testing.T) {
	_, do := newTestServer(t)
	base := "/explorations/e1/states/Intro/rules"

	code, body := do(http.MethodPut, base, `[
		{"description": "is equal to {{x|NonnegativeInt}}", "definition": {"name": "Equals", "inputs": {"x": 3}}, "dest": "END"},
		{"description": "Default", "definition": {"name": "Default", "inputs": {}}, "dest": "Intro"}
	]`)
	require.Equal(t, 200, code, body)

	code, body = do(http.MethodPost, base,
		`{"description": "contains {{s|Set}}", "definition": {"name": "Contains", "inputs": {"s": ["a"]}}, "dest": "END"}`)
	require.Equal(t, 201, code, body)

	code, body = do(http.MethodGet, base, "")
	require.Equal(t, 200, code)
	var rules []ruleeditor.Rule
	require.NoError(t, json.Unmarshal([]byte(body), &rules))
	require.Len(t, rules, 3)
	assert.Equal(t, "is equal to {{x|NonnegativeInt}}", rules[0].Description)
	assert.Equal(t, "contains {{s|Set}}", rules[1].Description)
	assert.Equal(t, ruleeditor.DefaultDescription, rules[2].Description)
	for i, r := range rules {
		assert.Equal(t, i, r.Position)
	}

	code, _ = do(http.MethodPost, base,
		`{"description": "Default", "definition": {"name": "Default", "inputs": {}}, "dest": "Intro"}`)
	assert.Equal(t, 400, code)
}

func TestReplaceRules_RealInputs(t *testing.T) {
	_, do := newTestServer(t)

	code, body := do(http.MethodPut, "/explorations/e1/states/Intro/rules", `[
		{"description": "is within {{tol|Real}} of {{x|Real}}", "definition": {"name": "IsWithinTolerance", "inputs": {"tol": 0.1, "x": 3.5}}, "dest": "END"}
	]`)
	require.Equal(t, 200, code, body)
	assert.Contains(t, body, `"inputs":{`)
	assert.Contains(t, body, `"tol":0.1`)
	assert.Contains(t, body, `"x":3.5`)
}

func TestRequestLogging(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	_, do := newLoggedTestServer(t, &logger.Logger{SugaredLogger: zap.New(core).Sugar()})

	code, _ := do(http.MethodPost, "/interactions/NumericInput/rule-types/select",
		`{"description": "is prime"}`)
	require.Equal(t, 422, code)

	warns := logs.FilterMessage("rule type not in catalog").All()
	require.Len(t, warns, 1)
	assert.Equal(t, zapcore.WarnLevel, warns[0].Level)
	assert.Equal(t, "POST", warns[0].ContextMap()["method"])
	assert.Equal(t, "/interactions/NumericInput/rule-types/select", warns[0].ContextMap()["path"])

	reqs := logs.FilterMessage("request").All()
	require.Len(t, reqs, 1)
	assert.Equal(t, "POST", reqs[0].ContextMap()["method"])
	assert.EqualValues(t, 422, reqs[0].ContextMap()["status"])
}
