package synth

// methodState tracks which HTTP method a rule's content/pcre matches have
// asserted so far. Only the last assignment wins. All content matches are
// walked first, in textual order, and then all pcre matches, in textual
// order, so a pcre method overrides any content method regardless of
// where each appears in the rule. A single local variable threaded through
// the dispatch loop is sufficient. There is no package-level state to
// reset between rules.
type methodState struct {
	method string // "GET", "POST", or a custom verb
	custom bool
}

// newMethodState starts a rule at the default method.
func newMethodState() methodState {
	return methodState{method: "GET"}
}

// apply records a method assertion, overwriting any earlier one.
func (m *methodState) apply(value string) {
	switch value {
	case "GET", "POST":
		m.method = value
		m.custom = false
	default:
		m.method = value
		m.custom = true
	}
}
