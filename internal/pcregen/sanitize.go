// Package pcregen sanitizes a parsed PCRE pattern into a form the external
// regex sampler can generate a matching string for, and invokes that
// sampler.
package pcregen

import (
	"regexp"
	"strings"
)

// rewriteRules are applied in order, each rewriting one unsupported
// regex construct into a generator-friendly equivalent.
var rewriteRules = []struct {
	pattern *regexp.Regexp
	replace string
}{
	{regexp.MustCompile(`\\s`), " "},
	{regexp.MustCompile(`\+\?`), "+"},
	{regexp.MustCompile(`\*\?`), "*"},
	{regexp.MustCompile(`\.\+`), "[a-z]"},
	{regexp.MustCompile(`\.\*`), "[a-z]"},
	{regexp.MustCompile(`\.\?`), "[a-z]"},
	{regexp.MustCompile(`\[\^&\]`), "[a-z]"},
	{regexp.MustCompile(`\[\^\\\]`), "[a-z]"},
	{regexp.MustCompile(`\[\^\\n\]`), "[a-z]"},
	{regexp.MustCompile(`\[\^\\r\\n\]`), "[a-z]"},
	{regexp.MustCompile(`\[\^\\x2f\]`), "[a-z]"},
}

// crlfUnlessAnchored strips \r\n unless immediately preceded by ^.
var crlfUnlessAnchored = regexp.MustCompile(`([^^]|^)\\r\\n`)

// suspectConstructs warns (does not reject) if any of these remain after
// sanitisation.
var suspectConstructs = []string{
	`\C`, `\D`, `\h`, `\H`, `\N`, `\p`, `\R`, `\S`, `\v`, `\V`, `\w`, `\W`,
	"?+", "??", "*+", "++",
}

// Sanitize rewrites unsupported regex constructs into generator-friendly
// equivalents. It returns the sanitized pattern and any warnings about
// constructs that remain unsanitized.
func Sanitize(pattern string) (string, []string) {
	out := pattern
	for _, rule := range rewriteRules {
		out = rule.pattern.ReplaceAllString(out, rule.replace)
	}
	out = crlfUnlessAnchored.ReplaceAllString(out, "$1")

	var warnings []string
	for _, c := range suspectConstructs {
		if strings.Contains(out, c) {
			warnings = append(warnings, "sanitized regex still contains unsupported construct "+c)
		}
	}
	return out, warnings
}
