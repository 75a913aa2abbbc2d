package rules

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/felixe/snortreq/internal/mask"
)

// ErrHTTPPortsSource is returned (wrapped in a ParseError) when a rule's
// source port is the literal token $HTTP_PORTS. The synthesizer cannot
// craft server-to-client traffic, so the rule is rejected.
var ErrHTTPPortsSource = errors.New("source port is $HTTP_PORTS, cannot synthesize server-to-client traffic")

// Parse reads one non-comment, non-filtered rule line into a ParsedRule.
// lineNum is used only for diagnostics. Callers are expected to have
// already run FilterRule; Parse does not repeat that screen.
func Parse(line string, lineNum int) (*ParsedRule, []Diagnostic, error) {
	var diags []Diagnostic

	bodyIdx := strings.Index(line, "(")
	if bodyIdx < 0 {
		return nil, diags, &ParseError{Kind: ErrParseStructure, Line: lineNum, Part: "header (missing '(')"}
	}
	masked := mask.QuoteMask(line)

	// sid/rev are read first so later errors in this rule can cite its sid,
	// mirroring idsEventGenerator.cpp's parse ordering.
	sid, rev, err := readSidRev(line, masked, bodyIdx)
	if err != nil {
		pe := err.(*ParseError)
		pe.Line = lineNum
		return nil, diags, pe
	}

	header, err := readHeader(line, bodyIdx)
	if err != nil {
		pe := err.(*ParseError)
		pe.Line, pe.SID = lineNum, sid
		return nil, diags, pe
	}
	if header.SrcPort == "$HTTP_PORTS" {
		return nil, diags, &ParseError{Kind: ErrRuleFilter, Line: lineNum, SID: sid, Part: "header", Err: ErrHTTPPortsSource}
	}

	msg, err := readMsg(line)
	if err != nil {
		pe := err.(*ParseError)
		pe.Line, pe.SID = lineNum, sid
		return nil, diags, pe
	}

	contents, contentDiags, err := readContents(line, masked, bodyIdx)
	diags = append(diags, contentDiags...)
	if err != nil {
		pe := err.(*ParseError)
		pe.Line, pe.SID = lineNum, sid
		return nil, diags, pe
	}

	pcres, err := readPcres(line, masked, bodyIdx)
	if err != nil {
		pe := err.(*ParseError)
		pe.Line, pe.SID = lineNum, sid
		return nil, diags, pe
	}

	if len(contents) == 0 && len(pcres) == 0 {
		return nil, diags, &ParseError{Kind: ErrParseStructure, Line: lineNum, SID: sid, Part: "rule has neither content nor pcre"}
	}

	for _, c := range contents {
		if c.Location == LocationNone {
			diags = append(diags, Diagnostic{Level: "WARNING", Line: lineNum, SID: sid, Message: "content with no HTTP location, rule dropped"})
			return nil, diags, &ParseError{Kind: ErrLocationMissing, Line: lineNum, SID: sid, Part: "content location"}
		}
	}

	rule := &ParsedRule{Header: header, Msg: msg, SID: sid, Rev: rev, Contents: contents, Pcres: pcres}
	if err := CheckPlausibility(rule); err != nil {
		return nil, diags, &ParseError{Kind: ErrPlausibility, Line: lineNum, SID: sid, Part: "plausibility", Err: err}
	}
	return rule, diags, nil
}

// readHeader splits the rule line at the first '(' and tokenises the
// prefix into the seven header fields.
func readHeader(line string, bodyIdx int) (RuleHeader, error) {
	prefix := strings.TrimRight(line[:bodyIdx], " \t")
	tokens := strings.Fields(prefix)
	if len(tokens) != 7 {
		return RuleHeader{}, &ParseError{Kind: ErrParseStructure, Part: "header", Err: fmt.Errorf("expected 7 fields, got %d", len(tokens))}
	}
	dir := tokens[4]
	if dir != "<>" && dir != "->" {
		return RuleHeader{}, &ParseError{Kind: ErrParseStructure, Part: "header direction", Err: fmt.Errorf("expected <> or ->, got %q", dir)}
	}
	return RuleHeader{
		Action:        tokens[0],
		Protocol:      tokens[1],
		SrcAddr:       tokens[2],
		SrcPort:       tokens[3],
		Bidirectional: dir == "<>",
		DstAddr:       tokens[5],
		DstPort:       tokens[6],
	}, nil
}

// readMsg extracts the msg: field. Unlike sid/rev, msg is read from the
// raw, unmasked line.
func readMsg(line string) (string, error) {
	idx := strings.Index(line, "msg:")
	if idx < 0 {
		return "", &ParseError{Kind: ErrParseStructure, Part: "msg"}
	}
	rest := line[idx+4:]
	q := strings.IndexByte(rest, '"')
	if q < 0 {
		return "", &ParseError{Kind: ErrParseStructure, Part: "msg (missing quote)"}
	}
	rest = rest[q+1:]
	semi := strings.IndexByte(rest, ';')
	if semi < 0 {
		return "", &ParseError{Kind: ErrParseStructure, Part: "msg (missing ';')"}
	}
	val := rest[:semi]
	val = strings.TrimSuffix(val, "\"")
	return val, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// readSidRev extracts sid: and rev: from the quote-masked copy of line, so
// a literal ';' inside a preceding msg cannot break extraction.
func readSidRev(line, masked string, bodyIdx int) (sid, rev string, err error) {
	idx := strings.Index(masked[bodyIdx:], "sid:")
	if idx < 0 {
		return "", "", &ParseError{Kind: ErrParseStructure, Part: "sid"}
	}
	start := bodyIdx + idx + 4
	semiRel := strings.IndexByte(masked[start:], ';')
	if semiRel < 0 {
		return "", "", &ParseError{Kind: ErrParseStructure, Part: "sid (missing ';')"}
	}
	semi := start + semiRel
	sid = strings.TrimSpace(line[start:semi])
	if !isDigits(sid) {
		return "", "", &ParseError{Kind: ErrParseStructure, Part: "sid (non-numeric)", Err: fmt.Errorf("%q", sid)}
	}

	revIdx := strings.Index(masked[semi:], "rev:")
	if revIdx < 0 {
		return "", "", &ParseError{Kind: ErrParseStructure, SID: sid, Part: "rev"}
	}
	revStart := semi + revIdx + 4
	revSemiRel := strings.IndexByte(masked[revStart:], ';')
	if revSemiRel < 0 {
		return "", "", &ParseError{Kind: ErrParseStructure, SID: sid, Part: "rev (missing ';')"}
	}
	revSemi := revStart + revSemiRel
	rev = strings.TrimSpace(line[revStart:revSemi])
	if !isDigits(rev) {
		return "", "", &ParseError{Kind: ErrParseStructure, SID: sid, Part: "rev (non-numeric)", Err: fmt.Errorf("%q", rev)}
	}
	return sid, rev, nil
}

// decodeHex implements hex-interleave decoding of a quoted content value.
// It returns the decoded string, whether the value contained any hex run,
// and a slice of warning messages for dropped non-printable bytes.
func decodeHex(original string) (decoded string, containedHex bool, warnings []string, err error) {
	if !strings.Contains(original, "|") {
		return original, false, nil, nil
	}
	containedHex = true
	var out strings.Builder
	i := 0
	for i < len(original) {
		if original[i] != '|' {
			out.WriteByte(original[i])
			i++
			continue
		}
		end := strings.IndexByte(original[i+1:], '|')
		if end < 0 {
			return "", true, warnings, fmt.Errorf("unterminated hex run starting at byte %d", i)
		}
		end += i + 1
		hexRun := strings.ReplaceAll(original[i+1:end], " ", "")
		for j := 0; j < len(hexRun); j += 2 {
			stop := j + 2
			if stop > len(hexRun) {
				stop = len(hexRun)
			}
			v, perr := strconv.ParseUint(hexRun[j:stop], 16, 8)
			if perr != nil {
				return "", true, warnings, fmt.Errorf("invalid hex byte %q: %w", hexRun[j:stop], perr)
			}
			b := byte(v)
			switch {
			case b == 0x0D:
				out.WriteString(`\r`)
			case b == 0x0A:
				out.WriteString(`\n`)
			case b >= 0x20 && b <= 0x7E:
				out.WriteByte(b)
			default:
				warnings = append(warnings, fmt.Sprintf("non-printable hex byte 0x%02X dropped", b))
			}
		}
		i = end + 1
	}
	return out.String(), true, warnings, nil
}

// readContents runs the combined content reader and modifier reader in a
// single pass over the "content:" occurrences: for each occurrence we
// already know its value span, so the per-content modifier span (to the
// next "content:" or the rule's closing ";)") is computed right there
// instead of rescanning the whole line a second time.
func readContents(line, masked string, bodyIdx int) ([]ContentMatch, []Diagnostic, error) {
	var contents []ContentMatch
	var diags []Diagnostic
	cursor := bodyIdx
	for {
		rel := strings.Index(masked[cursor:], "content:")
		if rel < 0 {
			break
		}
		idx := cursor + rel
		valueStart := idx + len("content:")
		semiRel := strings.IndexByte(masked[valueStart:], ';')
		if semiRel < 0 {
			return nil, diags, &ParseError{Kind: ErrParseStructure, Part: "content (missing ';')"}
		}
		valueEnd := valueStart + semiRel

		raw := line[valueStart:valueEnd]
		negated := false
		if strings.HasPrefix(raw, "!") {
			negated = true
			raw = raw[1:]
		}
		if len(raw) < 2 || raw[0] != '"' || raw[len(raw)-1] != '"' {
			return nil, diags, &ParseError{Kind: ErrParseStructure, Part: "content value not quoted"}
		}
		original := raw[1 : len(raw)-1]

		decoded, hadHex, hexWarnings, err := decodeHex(original)
		if err != nil {
			return nil, diags, &ParseError{Kind: ErrParseStructure, Part: "hex content (no termination sign)", Err: err}
		}
		for _, w := range hexWarnings {
			diags = append(diags, Diagnostic{Level: "WARNING", Message: w})
		}

		modifierStart := valueEnd + 1
		modifierEnd := len(masked)
		if nextRel := strings.Index(masked[modifierStart:], "content:"); nextRel >= 0 {
			modifierEnd = modifierStart + nextRel
		} else if closeRel := strings.Index(masked[modifierStart:], ";)"); closeRel >= 0 {
			modifierEnd = modifierStart + closeRel + 1
		}
		if modifierEnd < modifierStart {
			modifierEnd = modifierStart
		}
		modifierSpan := line[modifierStart:modifierEnd]
		modifierSpanMasked := masked[modifierStart:modifierEnd]

		loc := LocationNone
		if idx >= 3 && line[idx-3:idx] == "uri" {
			loc = LocationURI
		}
		nocase := strings.Contains(modifierSpanMasked, "nocase")
		if loc == LocationNone {
			if hIdx := strings.Index(modifierSpanMasked, "http_"); hIdx >= 0 {
				tokEnd := len(modifierSpanMasked)
				if semiRel := strings.IndexByte(modifierSpanMasked[hIdx:], ';'); semiRel >= 0 {
					tokEnd = hIdx + semiRel
				}
				token := strings.TrimSpace(modifierSpan[hIdx:tokEnd])
				if l, ok := ParseHttpLocation(token); ok {
					loc = l
				} else {
					diags = append(diags, Diagnostic{Level: "WARNING", Message: fmt.Sprintf("unrecognized content modifier %q", token)})
				}
			}
		}
		if loc == LocationURI {
			decoded = strings.ReplaceAll(decoded, " ", "+")
		}

		contents = append(contents, ContentMatch{
			Payload:      decoded,
			Original:     original,
			Negated:      negated,
			ContainedHex: hadHex,
			Nocase:       nocase,
			Location:     loc,
		})
		cursor = valueEnd + 1
	}
	return contents, diags, nil
}

// readPcres implements the pcre: field reader.
func readPcres(line, masked string, bodyIdx int) ([]PcreMatch, error) {
	var pcres []PcreMatch
	cursor := bodyIdx
	for {
		rel := strings.Index(masked[cursor:], "pcre:")
		if rel < 0 {
			break
		}
		idx := cursor + rel
		valueStart := idx + len("pcre:")
		semiRel := strings.IndexByte(masked[valueStart:], ';')
		if semiRel < 0 {
			return nil, &ParseError{Kind: ErrParseStructure, Part: "pcre (missing ';')"}
		}
		valueEnd := valueStart + semiRel

		raw := line[valueStart:valueEnd]
		negated := false
		if strings.HasPrefix(raw, "!") {
			negated = true
			raw = raw[1:]
		}
		if len(raw) < 2 || raw[0] != '"' || raw[len(raw)-1] != '"' {
			return nil, &ParseError{Kind: ErrParseStructure, Part: "pcre value not quoted"}
		}
		inner := raw[1 : len(raw)-1]
		lastSlash := strings.LastIndex(inner, "/")
		if lastSlash <= 0 {
			return nil, &ParseError{Kind: ErrParseStructure, Part: "pcre missing closing '/'"}
		}
		pattern := inner[1:lastSlash]
		flags := inner[lastSlash+1:]

		nocase := strings.Contains(flags, "i")
		flags = strings.ReplaceAll(flags, "i", "")

		for _, c := range flags {
			if strings.ContainsRune(nonHTTPPcreFlags, c) {
				return nil, &ParseError{Kind: ErrParseSemantic, Part: fmt.Sprintf("unsupported non-HTTP pcre flag %q", c)}
			}
		}

		var locs []HttpLocation
		for i := 0; i < len(flags); i++ {
			loc, ok := pcreFlagLocations[flags[i]]
			if !ok {
				return nil, &ParseError{Kind: ErrParseSemantic, Part: fmt.Sprintf("unrecognized pcre modifier %q", string(flags[i]))}
			}
			locs = append(locs, loc)
		}
		if len(locs) == 0 {
			return nil, &ParseError{Kind: ErrParseSemantic, Part: "pcre with no http modifier"}
		}
		for _, loc := range locs {
			pcres = append(pcres, PcreMatch{Pattern: pattern, Negated: negated, Nocase: nocase, Location: loc})
		}
		cursor = valueEnd + 1
	}
	return pcres, nil
}
