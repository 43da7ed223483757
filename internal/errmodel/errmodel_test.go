package errmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type quotaError struct {
	Limit     int `json:"limit"`
	Remaining int `json:"remaining"`
}

type legacyError struct {
	Error string `json:"error"`
}

func TestChainFirstMatchWins(t *testing.T) {
	a := JSON[quotaError]("quota", Require("limit"))
	b := JSON[MessageError]("message", Require("message"))
	body := []byte(`{"code":"OUT_OF_STOCK","message":"sku A-1 unavailable"}`)

	match, ok := NewChain(a, b).Decode(body)

	require.True(t, ok)
	assert.Equal(t, "message", match.Model)
	assert.Equal(t, &MessageError{Code: "OUT_OF_STOCK", Message: "sku A-1 unavailable"}, match.Value)
}

func TestChainOrderNotBestMatch(t *testing.T) {
	// both candidates accept the body; the first listed is used
	loose := JSON[legacyError]("loose", AllowUnknownFields())
	exact := JSON[MessageError]("message")
	body := []byte(`{"message":"boom"}`)

	match, ok := NewChain(loose, exact).Decode(body)
	require.True(t, ok)
	assert.Equal(t, "loose", match.Model)

	match, ok = NewChain(exact, loose).Decode(body)
	require.True(t, ok)
	assert.Equal(t, "message", match.Model)
}

func TestChainNoMatch(t *testing.T) {
	chain := NewChain(JSON[quotaError]("quota"), JSON[MessageError]("message", Require("message")))

	for name, body := range map[string]string{
		"empty":       "",
		"not json":    "<html>bad gateway</html>",
		"null":        "null",
		"array":       `[1,2]`,
		"wrong shape": `{"unexpected":true}`,
		"trailing":    `{"limit":1} {"limit":2}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, ok := chain.Decode([]byte(body))
			assert.False(t, ok)
		})
	}
}

func TestEmptyChainNeverMatches(t *testing.T) {
	_, ok := NewChain().Decode([]byte(`{"message":"x"}`))
	assert.False(t, ok)
}

func TestJSONRejectsUnknownFieldsByDefault(t *testing.T) {
	strict := JSON[quotaError]("quota")
	_, ok := strict.Decode([]byte(`{"limit":10,"remaining":0,"resetAt":"soon"}`))
	assert.False(t, ok)

	lenient := JSON[quotaError]("quota", AllowUnknownFields())
	value, ok := lenient.Decode([]byte(`{"limit":10,"remaining":0,"resetAt":"soon"}`))
	require.True(t, ok)
	assert.Equal(t, &quotaError{Limit: 10}, value)
}

func TestRequireChecksPaths(t *testing.T) {
	c := JSON[ErrorList]("errors", Require("errors.0.message"))

	_, ok := c.Decode([]byte(`{"errors":[]}`))
	assert.False(t, ok)

	value, ok := c.Decode([]byte(`{"errors":[{"field":"qty","message":"must be positive"}]}`))
	require.True(t, ok)
	assert.Equal(t, "qty: must be positive", value.(*ErrorList).Error())
}

func TestFuncCandidate(t *testing.T) {
	calls := 0
	text := Func("text", func(raw []byte) (any, bool) {
		calls++
		return string(raw), true
	})
	match, ok := NewChain(JSON[MessageError]("message"), text).Decode([]byte("plain failure"))

	require.True(t, ok)
	assert.Equal(t, Match{Model: "text", Value: "plain failure"}, match)
	assert.Equal(t, 1, calls)

	_, ok = Func("nil", nil).Decode([]byte("x"))
	assert.False(t, ok)
}

func TestFuncCandidateMatchesEmptyBody(t *testing.T) {
	notFound := Func("not_found", func(raw []byte) (any, bool) {
		return "nf", len(raw) == 0
	})
	chain := NewChain(JSON[MessageError]("message"), notFound)

	for _, body := range [][]byte{nil, {}} {
		match, ok := chain.Decode(body)
		require.True(t, ok)
		assert.Equal(t, Match{Model: "not_found", Value: "nf"}, match)
	}

	_, ok := chain.Decode([]byte(`{"message":"gone"}`))
	assert.True(t, ok)
}

func TestBuiltinShapes(t *testing.T) {
	chain, err := Lookup(ModelProblem, ModelMessage, ModelErrors)
	require.NoError(t, err)
	assert.Equal(t, []string{"problem", "message", "errors"}, chain.Names())

	match, ok := chain.Decode([]byte(`{"type":"about:blank","title":"Conflict","status":409,"detail":"version mismatch","traceId":"t1"}`))
	require.True(t, ok)
	assert.Equal(t, ModelProblem, match.Model)
	assert.Equal(t, "Conflict: version mismatch", match.Value.(*Problem).Error())

	match, ok = chain.Decode([]byte(`{"code":"E42","message":"nope"}`))
	require.True(t, ok)
	assert.Equal(t, ModelMessage, match.Model)

	match, ok = chain.Decode([]byte(`{"errors":[{"code":"required","message":"is required","field":"name"}]}`))
	require.True(t, ok)
	assert.Equal(t, ModelErrors, match.Model)
}

func TestLookup(t *testing.T) {
	chain, err := Lookup(" Message ", "problem")
	require.NoError(t, err)
	assert.Equal(t, []string{"message", "problem"}, chain.Names())

	_, err = Lookup("problem", "soap")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown error model "soap"`)
	assert.Contains(t, err.Error(), "errors, message, problem")
}

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(JSON[quotaError]("Quota")))
	assert.Error(t, r.Register(nil))

	assert.Equal(t, []string{"errors", "message", "problem", "quota"}, r.Names())
	chain, err := r.Lookup("quota")
	require.NoError(t, err)
	_, ok := chain.Decode([]byte(`{"limit":5,"remaining":1}`))
	assert.True(t, ok)

	// a fresh registry is unaffected
	_, err = NewRegistry().Lookup("quota")
	assert.Error(t, err)
}
