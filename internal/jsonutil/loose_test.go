package jsonutil

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cleanObject = `{"mode":"ALLOW","answer":"Ok","sources":[1]}`

func wantObject() map[string]any {
	return map[string]any{
		"mode":    "ALLOW",
		"answer":  "Ok",
		"sources": []any{json.Number("1")},
	}
}

func TestParseLooseRecoversSameValue(t *testing.T) {
	doubleEncoded, err := json.Marshal(cleanObject)
	require.NoError(t, err)

	tests := []struct {
		name string
		in   string
	}{
		{"clean", cleanObject},
		{"surrounding whitespace", "\n\t " + cleanObject + "  \n"},
		{"json fence", "```json\n" + cleanObject + "\n```"},
		{"upper-case fence tag", "```JSON\n" + cleanObject + "\n```"},
		{"bare fence", "```\n" + cleanObject + "\n```"},
		{"double encoded", string(doubleEncoded)},
		{"trailing prose", cleanObject + "\nHope this helps!"},
		{"leading prose", "Here is the JSON you asked for: " + cleanObject},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseLoose(tt.in)
			require.True(t, ok, "expected value from %q", tt.in)
			if diff := cmp.Diff(wantObject(), got); diff != "" {
				t.Errorf("value mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseLooseIdempotentOnCleanJSON(t *testing.T) {
	first, ok := ParseLoose(cleanObject)
	require.True(t, ok)

	reencoded, err := json.Marshal(first)
	require.NoError(t, err)

	second, ok := ParseLoose(string(reencoded))
	require.True(t, ok)
	assert.Empty(t, cmp.Diff(first, second))
}

func TestParseLooseFailures(t *testing.T) {
	for _, in := range []string{
		"",
		"   ",
		"hello",
		`{"mode":"ALLOW","answer":"Ok"`,
		"```json\n```",
		`"just a string"`,
		`{not json at all}`,
	} {
		v, ok := ParseLoose(in)
		assert.False(t, ok, "input %q", in)
		assert.Nil(t, v, "input %q", in)
	}
}

func TestParseLooseFencedDoubleEncoded(t *testing.T) {
	inner, err := json.Marshal("```json\n" + cleanObject + "\n```")
	require.NoError(t, err)

	got, ok := ParseLoose(string(inner))

	require.True(t, ok)
	assert.Empty(t, cmp.Diff(wantObject(), got))
}

func TestParseLooseNonObjectValues(t *testing.T) {
	got, ok := ParseLoose("[1, 2]")
	require.True(t, ok)
	assert.Equal(t, []any{json.Number("1"), json.Number("2")}, got)

	got, ok = ParseLoose("true")
	require.True(t, ok)
	assert.Equal(t, true, got)
}

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, "{}", StripCodeFences("```json\n{}\n```"))
	assert.Equal(t, "{}", StripCodeFences("  {}  "))
	assert.Equal(t, "plain", StripCodeFences("plain"))
}
