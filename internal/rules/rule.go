/* Copyright 2016 Google Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package rules implements the reader for the HTTP-relevant subset of the
// Snort rule language: headers, msg/sid/rev, content matches and PCRE
// matches, plus the pre-parse filter and post-parse plausibility check.
package rules

import (
	"fmt"
	"strings"
)

// HttpLocation is the HTTP request component a content or regex match is
// assigned to.
type HttpLocation int

const (
	// LocationNone means no HTTP location has been assigned yet. A
	// ContentMatch must never carry this after a rule is accepted.
	LocationNone HttpLocation = iota
	LocationMethod
	LocationURI
	LocationRawURI
	LocationStatMsg
	LocationStatCode
	LocationHeader
	LocationRawHeader
	LocationClientBody
	LocationCookie
	LocationRawCookie
)

var locationNames = map[HttpLocation]string{
	LocationNone:       "none",
	LocationMethod:     "http_method",
	LocationURI:        "http_uri",
	LocationRawURI:     "http_raw_uri",
	LocationStatMsg:    "http_stat_msg",
	LocationStatCode:   "http_stat_code",
	LocationHeader:     "http_header",
	LocationRawHeader:  "http_raw_header",
	LocationClientBody: "http_client_body",
	LocationCookie:     "http_cookie",
	LocationRawCookie:  "http_raw_cookie",
}

// String returns the Snort modifier keyword for a HttpLocation.
func (l HttpLocation) String() string {
	if s, ok := locationNames[l]; ok {
		return s
	}
	return "none"
}

// ParseHttpLocation maps a Snort http_* modifier keyword to a HttpLocation.
// It returns false if the keyword is not recognised.
func ParseHttpLocation(s string) (HttpLocation, bool) {
	for k, v := range locationNames {
		if v == s && k != LocationNone {
			return k, true
		}
	}
	return LocationNone, false
}

// pcreFlagLocations maps the Snort-proprietary PCRE HTTP flag letters to
// the HttpLocation they assert. A pcre modifier string is walked left to
// right, appending one HttpLocation per recognised letter.
var pcreFlagLocations = map[byte]HttpLocation{
	'P': LocationClientBody,
	'H': LocationHeader,
	'D': LocationRawHeader,
	'C': LocationCookie,
	'K': LocationRawCookie,
	'U': LocationURI,
	'I': LocationRawURI,
	'M': LocationMethod,
	'S': LocationStatCode,
	'Y': LocationStatMsg,
}

// nonHTTPPcreFlags are Snort-specific PCRE modifiers with no HTTP meaning;
// their presence is a fatal ParseSemantic error.
const nonHTTPPcreFlags = "smxAEGRBO"

// RuleHeader holds the pre-'(' fields of a rule line.
type RuleHeader struct {
	Action        string
	Protocol      string
	SrcAddr       string
	SrcPort       string
	DstAddr       string
	DstPort       string
	Bidirectional bool
}

// String renders the header the way the source line expressed it, mostly
// for diagnostics and -print output.
func (h RuleHeader) String() string {
	dir := "->"
	if h.Bidirectional {
		dir = "<>"
	}
	return fmt.Sprintf("%s %s %s %s %s %s %s", h.Action, h.Protocol, h.SrcAddr, h.SrcPort, dir, h.DstAddr, h.DstPort)
}

// ContentMatch describes a single content: match, after hex decoding and
// modifier assignment.
type ContentMatch struct {
	// Payload is the decoded message-payload string.
	Payload string
	// Original is the verbatim quoted value, for diagnostics.
	Original string
	Negated  bool
	// ContainedHex is true iff the original value had at least one '|' run.
	ContainedHex bool
	Nocase       bool
	Location     HttpLocation
}

// String renders a ContentMatch for -print output.
func (c ContentMatch) String() string {
	var s strings.Builder
	if c.Negated {
		s.WriteString("!")
	}
	fmt.Fprintf(&s, "%q %s", c.Payload, c.Location)
	if c.Nocase {
		s.WriteString(" nocase")
	}
	return s.String()
}

// PcreMatch describes a single pcre: match with one assigned HttpLocation.
// A regex asserting k HTTP flags expands into k PcreMatch values sharing
// the same Pattern/Negated/Nocase, one per asserted Location.
type PcreMatch struct {
	Pattern  string
	Negated  bool
	Nocase   bool
	Location HttpLocation
}

// String renders a PcreMatch for -print output.
func (p PcreMatch) String() string {
	var s strings.Builder
	if p.Negated {
		s.WriteString("!")
	}
	fmt.Fprintf(&s, "/%s/ %s", p.Pattern, p.Location)
	if p.Nocase {
		s.WriteString(" nocase")
	}
	return s.String()
}

// ParsedRule is the fully parsed, immutable result of reading one rule line.
type ParsedRule struct {
	Header   RuleHeader
	Msg      string
	SID      string
	Rev      string
	Contents []ContentMatch
	Pcres    []PcreMatch
}

// String renders a ParsedRule for -print output.
func (r ParsedRule) String() string {
	var s strings.Builder
	fmt.Fprintf(&s, "sid:%s rev:%s msg:%q\n", r.SID, r.Rev, r.Msg)
	fmt.Fprintf(&s, "  header: %s\n", r.Header)
	for _, c := range r.Contents {
		fmt.Fprintf(&s, "  content: %s\n", c)
	}
	for _, p := range r.Pcres {
		fmt.Fprintf(&s, "  pcre: %s\n", p)
	}
	return s.String()
}
