package rules

import "strings"

// unsupportedKeywords are the byte-range and non-HTTP keywords that get a
// rule rejected outright, grounded on idsEventGenerator.cpp's main()
// pre-parse screen (lines 1067-1071).
var unsupportedKeywords = []string{
	"flowbits:", "distance:", "within:", "offset:", "depth:",
	"dce_", "threshold:", "urilen:", "detectionfilter",
}

// IsComment reports whether line is a comment line (first non-space
// character is '#'). Blank lines are not comments.
func IsComment(line string) bool {
	t := strings.TrimLeft(line, " \t")
	return strings.HasPrefix(t, "#")
}

// FilterRule screens a raw rule line before any attempt to parse it. It
// returns skip=true and a human-readable reason if the line should be
// dropped.
func FilterRule(line string) (skip bool, reason string) {
	head := line
	if len(head) > 6 {
		head = head[:6]
	}
	if !strings.Contains(head, "alert") {
		return true, "does not contain alert keyword"
	}
	hasContent := strings.Contains(line, "content:")
	hasPcre := strings.Contains(line, "pcre:")
	if !hasContent && !hasPcre {
		return true, "does not contain content or pcre keyword"
	}
	for _, kw := range unsupportedKeywords {
		if strings.Contains(line, kw) {
			return true, "contains unsupported keyword: " + kw
		}
	}
	if strings.Contains(line, "from_server") || strings.Contains(line, "to_client") {
		return true, "contains from_server or to_client"
	}
	if strings.Contains(line, "content: ") {
		return true, "malformed content quoting (space after colon)"
	}
	return false, ""
}

// MissingHTTPModifier reports the softer, earlier diagnostic
// idsEventGenerator.cpp emits (lines 1080-1085): a rule has a content:
// keyword, is not a uricontent alias, and the line contains no http_
// token anywhere. The rule still proceeds to parse; this is informational.
func MissingHTTPModifier(line string) bool {
	contentIdx := strings.Index(line, "content:")
	if contentIdx < 0 {
		return false
	}
	if contentIdx >= 3 && line[contentIdx-3:contentIdx] == "uri" {
		return false
	}
	return !strings.Contains(line, "http_")
}
