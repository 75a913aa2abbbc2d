package rules

import "fmt"

// CheckPlausibility cross-validates a parsed rule's vectors. The
// single-tagged-record data model makes index drift structurally
// impossible, but the check is kept as a defensive assertion and as a
// directly testable property: every content must carry a resolved
// HttpLocation, every pcre match must carry exactly one, and the rule
// must carry at least one content or pcre.
func CheckPlausibility(r *ParsedRule) error {
	if len(r.Contents) == 0 && len(r.Pcres) == 0 {
		return fmt.Errorf("rule sid %s has no content and no pcre to check for", r.SID)
	}
	for i, c := range r.Contents {
		if c.Location == LocationNone {
			return fmt.Errorf("content %d has no resolved HttpLocation", i)
		}
	}
	for i, p := range r.Pcres {
		if p.Location == LocationNone {
			return fmt.Errorf("pcre %d has no resolved HttpLocation", i)
		}
	}
	if r.SID == "" || !isDigits(r.SID) {
		return fmt.Errorf("sid %q is not a non-empty numeric string", r.SID)
	}
	if r.Rev == "" || !isDigits(r.Rev) {
		return fmt.Errorf("rev %q is not a non-empty numeric string", r.Rev)
	}
	return nil
}
