package jsonutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractObject(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{"bare object", `{"a":1}`, `{"a":1}`, true},
		{"fenced with tag", "Here you go:\n```json\n{\"a\": 1}\n```", `{"a": 1}`, true},
		{"fenced no tag", "```\n{\"a\":1}\n```", `{"a":1}`, true},
		{"prose around", `I think {"signal":"hold"} works`, `{"signal":"hold"}`, true},
		{"nested braces", `{"a":{"b":2}} trailing`, `{"a":{"b":2}}`, true},
		{"brace in string", `{"msg":"use } carefully"}`, `{"msg":"use } carefully"}`, true},
		{"no object", "nothing here", "", false},
		{"unbalanced", `{"a":1`, "", false},
		{"empty", "   ", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ExtractObject(tc.raw)
			require.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}
