package pcregen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	for _, tt := range []struct {
		name  string
		input string
		want  string
	}{
		{name: "whitespace class", input: `a\sb`, want: "a b"},
		{name: "lazy plus", input: `a+?b`, want: "a+b"},
		{name: "lazy star", input: `a*?b`, want: "a*b"},
		{name: "dot plus", input: `a.+b`, want: "a[a-z]b"},
		{name: "dot star", input: `a.*b`, want: "a[a-z]b"},
		{name: "negated ampersand class", input: `[^&]+`, want: "[a-z]+"},
		{name: "anchored crlf kept", input: `^\r\n`, want: `^\r\n`},
		{name: "unanchored crlf stripped", input: `a\r\nb`, want: "ab"},
	} {
		got, _ := Sanitize(tt.input)
		assert.Equalf(t, tt.want, got, "%s: Sanitize(%q)", tt.name, tt.input)
	}
}

func TestSanitizeWarnsOnSuspectConstruct(t *testing.T) {
	_, warnings := Sanitize(`\w+`)
	assert.NotEmpty(t, warnings, "expected a warning for remaining \\w")
	assert.Contains(t, warnings[0], `\w`)
}

func TestSanitizeNoWarningsOnCleanPattern(t *testing.T) {
	_, warnings := Sanitize(`^[a-z]+$`)
	assert.Empty(t, warnings)
}
