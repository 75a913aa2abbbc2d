// Package mask implements the two length-preserving textual transforms
// rule readers use to keep keyword searches from matching inside a
// user-supplied quoted pattern.
package mask

// UnescapeMask replaces every occurrence of the three escape sequences the
// Snort rule language recognises inside a quoted content (\\, \", \;) with
// two 'X' characters. The result has the same length as s, so offsets
// computed against it can be used to slice the original string.
func UnescapeMask(s string) string {
	b := []byte(s)
	for i := 0; i < len(b)-1; i++ {
		if b[i] != '\\' {
			continue
		}
		switch b[i+1] {
		case '\\', '"', ';':
			b[i] = 'X'
			b[i+1] = 'X'
			i++
		}
	}
	return string(b)
}

// QuoteMask unescape-masks s and then replaces every span between matched
// double quotes (inclusive of the quotes) with the same number of 'X'
// characters, so subsequent substring searches for keywords never match
// inside a quoted pattern. The result has the same length as s.
func QuoteMask(s string) string {
	b := []byte(UnescapeMask(s))
	open := -1
	for i := 0; i < len(b); i++ {
		if b[i] != '"' {
			continue
		}
		if open < 0 {
			open = i
			continue
		}
		for j := open; j <= i; j++ {
			b[j] = 'X'
		}
		open = -1
	}
	return string(b)
}
