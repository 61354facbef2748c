package crypto

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalizeOrdersAndStripsNulls(t *testing.T) {
	input := map[string]any{
		"b": "value",
		"a": 1,
		"c": nil,
		"d": map[string]any{
			"z": nil,
			"y": true,
		},
	}

	got, err := Canonicalize(input)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1,"b":"value","d":{"y":true}}`, string(got))
}

func TestCanonicalizeFloats(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{name: "fraction", input: 1.25, want: "1.25"},
		{name: "integral", input: 50.0, want: "50"},
		{name: "negative zero", input: math.Copysign(0, -1), want: "0"},
		{name: "float32", input: float32(0.5), want: "0.5"},
		{name: "rounded score", input: 33.33, want: "33.33"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Canonicalize(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestCanonicalizeRejectsNonFiniteFloat(t *testing.T) {
	_, err := Canonicalize(math.NaN())
	assert.ErrorIs(t, err, ErrNonFiniteFloat)

	_, err = Canonicalize(map[string]any{"x": math.Inf(1)})
	assert.ErrorIs(t, err, ErrNonFiniteFloat)
}

func TestCanonicalizeJSONNumber(t *testing.T) {
	got, err := Canonicalize(json.Number("42"))
	require.NoError(t, err)
	assert.Equal(t, "42", string(got))

	got, err = Canonicalize(json.Number("1.50"))
	require.NoError(t, err)
	assert.Equal(t, "1.5", string(got))

	_, err = Canonicalize(json.Number("abc"))
	assert.ErrorIs(t, err, ErrInvalidNumber)
}

func TestCanonicalizeNormalizesNFC(t *testing.T) {
	got, err := Canonicalize(map[string]any{"text": "e\u0301"})
	require.NoError(t, err)
	assert.Equal(t, "{\"text\":\"\u00e9\"}", string(got))
}

func TestCanonicalizeMapKeyCollision(t *testing.T) {
	input := map[string]any{
		"e\u0301": 1,
		"\u00e9":  2,
	}

	_, err := Canonicalize(input)
	assert.ErrorIs(t, err, ErrKeyCollision)
}

func TestCanonicalizeNonStringMapKey(t *testing.T) {
	_, err := Canonicalize(map[int]any{1: "a"})
	assert.ErrorIs(t, err, ErrNonStringMapKey)
}

func TestCanonicalizeUnsupportedType(t *testing.T) {
	type payload struct{ A int }

	_, err := Canonicalize(payload{A: 1})
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestCanonicalizeJSONAcceptsStructs(t *testing.T) {
	type payload struct {
		B     string  `json:"b"`
		A     float64 `json:"a"`
		Empty *string `json:"empty"`
	}

	got, err := CanonicalizeJSON(map[string]any{"p": payload{B: "x", A: 0.1}})
	require.NoError(t, err)
	assert.Equal(t, `{"p":{"a":0.1,"b":"x"}}`, string(got))
}

func TestCanonicalizeSlices(t *testing.T) {
	got, err := Canonicalize([]any{1, nil, "a"})
	require.NoError(t, err)
	assert.Equal(t, `[1,null,"a"]`, string(got))

	var nilSlice []any
	got, err = Canonicalize(nilSlice)
	require.NoError(t, err)
	assert.Equal(t, "null", string(got))
}

func TestHashCanonicalIsOrderIndependent(t *testing.T) {
	a, err := HashCanonical(map[string]any{"x": 1, "y": 2.5})
	require.NoError(t, err)
	b, err := HashCanonical(map[string]any{"y": 2.5, "x": 1})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.True(t, EqualDigests(a, b))
	assert.Len(t, a, len(DigestPrefix)+64)
}

func TestEqualDigestsRejectsUnprefixed(t *testing.T) {
	assert.False(t, EqualDigests("abc", "abc"))
	assert.False(t, EqualDigests(DigestWithPrefix([]byte("a")), DigestWithPrefix([]byte("b"))))
}
