package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_SortsKeys(t *testing.T) {
	got, err := MarshalCanonical(map[string]any{"b": 1, "a": "x", "c": true})
	require.NoError(t, err)
	assert.Equal(t, `{"a":"x","b":1,"c":true}`, string(got))
}

func TestMarshalCanonical_StructTagsApply(t *testing.T) {
	got, err := MarshalCanonical(ContractCode{ID: 7, CodeHash: "h0"})
	require.NoError(t, err)
	assert.Equal(t, `{"code_hash":"h0","id":7}`, string(got))
}

func TestMarshalCanonical_NoHTMLEscaping(t *testing.T) {
	got, err := MarshalCanonical("<a&b>")
	require.NoError(t, err)
	assert.Equal(t, `"<a&b>"`, string(got))
}

func TestMarshalCanonical_NFCNormalization(t *testing.T) {
	// "e" + combining acute accent normalizes to precomposed U+00E9
	got, err := MarshalCanonical("e\u0301")
	require.NoError(t, err)
	assert.Equal(t, "\"\u00e9\"", string(got))
}

func TestMarshalCanonical_RejectsFloats(t *testing.T) {
	_, err := MarshalCanonical(map[string]any{"x": 1.5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "floats are forbidden")
}

func TestMarshalCanonical_LargeIntegersKeepPrecision(t *testing.T) {
	got, err := MarshalCanonical(map[string]any{"n": uint64(18446744073709551615)})
	require.NoError(t, err)
	assert.Equal(t, `{"n":18446744073709551615}`, string(got))
}

func TestMarshalCanonical_NullAndNesting(t *testing.T) {
	got, err := MarshalCanonical(map[string]any{
		"list":  []any{"z", nil, map[string]any{"y": 1, "x": 2}},
		"extra": nil,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"extra":null,"list":["z",null,{"x":2,"y":1}]}`, string(got))
}

func TestMarshalCanonical_LineSeparatorsStayLiteral(t *testing.T) {
	got, err := MarshalCanonical("a\u2028b")
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\"", string(got))
}

func TestMarshalCanonical_EscapedBackslashBeforeU2028Text(t *testing.T) {
	// literal backslash followed by the text "u2028" must stay escaped
	got, err := MarshalCanonical(`\u2028`)
	require.NoError(t, err)
	assert.Equal(t, `"\\u2028"`, string(got))
}

func TestCanonicalizeJSON_Idempotent(t *testing.T) {
	first, err := CanonicalizeJSON([]byte(`{ "b" : [1, 2], "a" : {"d": "x", "c": null} }`))
	require.NoError(t, err)
	second, err := CanonicalizeJSON(first)
	require.NoError(t, err)

	assert.Equal(t, `{"a":{"c":null,"d":"x"},"b":[1,2]}`, string(first))
	assert.Equal(t, first, second)
	assert.True(t, json.Valid(first))
}

func TestCanonicalizeJSON_RejectsTrailingData(t *testing.T) {
	_, err := CanonicalizeJSON([]byte(`{"a":1} {"b":2}`))
	require.Error(t, err)
}

func TestCompareKeysRFC8785_UTF16Order(t *testing.T) {
	// U+1F600 encodes as surrogate 0xD83D which sorts before U+FF61 in UTF-16,
	// the opposite of their UTF-8 byte order.
	assert.Equal(t, -1, compareKeysRFC8785("\U0001F600", "\uFF61"))
	assert.Equal(t, 0, compareKeysRFC8785("same", "same"))
	assert.Equal(t, -1, compareKeysRFC8785("ab", "abc"))
}
