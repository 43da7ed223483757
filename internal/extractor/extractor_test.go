package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/torosent/callcheck/internal/config"
	"github.com/torosent/callcheck/internal/logging"
	"github.com/torosent/callcheck/internal/variables"
)

func TestExtractJSONPath(t *testing.T) {
	body := []byte(`{"id": 123, "user": {"profile": {"name": "Alice"}}, "items": [{"id": 1}, {"id": 2}]}`)

	tests := []struct {
		path string
		want string
	}{
		{"id", "123"},
		{"$.id", "123"},
		{"user.profile.name", "Alice"},
		{"items.0.id", "1"},
		{"items.#", "2"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := Extract(body, []Rule{{Variable: "v", JSONPath: tt.path}}, nil)
			assert.Equal(t, tt.want, got["v"])
		})
	}
}

func TestExtractBareDollarReturnsWholeDocument(t *testing.T) {
	body := []byte(`{"a":1}`)
	got := Extract(body, []Rule{{Variable: "doc", JSONPath: "$"}}, nil)
	assert.JSONEq(t, `{"a":1}`, got["doc"])
}

func TestExtractRegex(t *testing.T) {
	body := []byte(`Location: /orders/789 created`)

	got := Extract(body, []Rule{
		{Variable: "group", Regex: `/orders/(\d+)`},
		{Variable: "full", Regex: `\d+`},
	}, nil)

	assert.Equal(t, map[string]string{"group": "789", "full": "789"}, got)
}

func TestExtractMissesAreWarnedAndSkipped(t *testing.T) {
	logger := &logging.CapturingLogger{}
	got := Extract([]byte(`{"id":1}`), []Rule{
		{Variable: "missing", JSONPath: "$.nope"},
		{Variable: "bad", Regex: `([`},
		{Variable: "nomatch", Regex: `token=(\w+)`},
		{Variable: "id", JSONPath: "id"},
	}, logger)

	assert.Equal(t, map[string]string{"id": "1"}, got)
	warnings := logger.Output().AtLevel(logging.LevelWarning)
	require.Len(t, warnings, 3)
	assert.Contains(t, warnings[0], "JSON path not found: $.nope")
	assert.Contains(t, warnings[1], "invalid regex pattern")
	assert.Contains(t, warnings[2], "regex pattern not found")
}

func TestExtractEmptyInputs(t *testing.T) {
	assert.Empty(t, Extract(nil, []Rule{{Variable: "id", JSONPath: "id"}}, nil))
	assert.Empty(t, Extract([]byte(`{"id":1}`), nil, nil))
}

func TestApplyStoresFoundValuesOnly(t *testing.T) {
	store := variables.NewStore(map[string]string{"token": "old"})

	found := Apply([]byte(`{"id":"o-1"}`), []Rule{
		{Variable: "order_id", JSONPath: "$.id"},
		{Variable: "token", JSONPath: "$.token"},
	}, store, nil)

	assert.Equal(t, map[string]string{"order_id": "o-1"}, found)
	id, _ := store.Get("order_id")
	assert.Equal(t, "o-1", id)
	token, _ := store.Get("token")
	assert.Equal(t, "old", token)
}

func TestRulesFromConfig(t *testing.T) {
	rules, err := RulesFromConfig([]config.Extraction{
		{Variable: "id", JSONPath: "$.id"},
		{Variable: "token", Regex: `t=(\w+)`},
	})
	require.NoError(t, err)
	assert.Equal(t, []Rule{{Variable: "id", JSONPath: "$.id"}, {Variable: "token", Regex: `t=(\w+)`}}, rules)

	_, err = RulesFromConfig([]config.Extraction{{Variable: "id", JSONPath: "a", Regex: "b"}})
	assert.Error(t, err)
	_, err = RulesFromConfig([]config.Extraction{{JSONPath: "a"}})
	assert.Error(t, err)
}

func TestNormalizePath(t *testing.T) {
	assert.Equal(t, "a.b", NormalizePath("$.a.b"))
	assert.Equal(t, "@this", NormalizePath("$"))
	assert.Equal(t, "a.b", NormalizePath("a.b"))
}
