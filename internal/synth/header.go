package synth

import "strings"

// dummyValue is appended to header text so an empty-valued header is
// never mistaken by the HTTP client for a delete-header directive.
const dummyValue = "DummyValue"

// sanitizeHeader sanitizes trimmed header text and returns it split into
// name and value, ready for resty's SetHeader.
func sanitizeHeader(text string) (name, value string) {
	text = strings.Trim(text, "\r\n")

	switch {
	case strings.HasSuffix(text, ": "):
		text += dummyValue
	case strings.HasSuffix(text, ":"):
		text += " " + dummyValue
	case !strings.Contains(text, ":"):
		text = "DummyHeader: " + text
	}

	name, value, found := strings.Cut(text, ":")
	if !found {
		return "DummyHeader", strings.TrimSpace(text)
	}
	return strings.TrimSpace(name), strings.TrimSpace(value)
}
