// Package synth assembles and sends the HTTP request implied by a parsed
// rule's content and pcre matches.
package synth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/felixe/snortreq/internal/pcregen"
	"github.com/felixe/snortreq/internal/rules"
)

// sentinelBody seeds every request body. Snort content matching requires
// at least 6 bytes of body; the 5-byte sentinel guarantees any appended
// fragment produces a matchable body, and is never sent standalone.
const sentinelBody = "12345"

const requestTimeout = 3 * time.Second

// disallowedURIChars and unwiseURIChars are the RFC-2396 character
// categories worth warning the operator about in a synthesized URI.
const (
	disallowedURIChars = `#><%"`
	unwiseURIChars     = "{}|\\^[]`"
)

// Result is what a single rule's request assembly produced: the
// synthesized pieces, any non-fatal warnings, and (if a request was
// actually sent) the response status.
type Result struct {
	SID        string
	Method     string
	URI        string
	Body       string
	Warnings   []string
	StatusCode int
	Sent       bool
}

// errServerResponseLocation is returned when a rule asserts a
// server-response-only location (stat_msg/stat_code); the synthesizer
// has no way to control a server's own response, so this is fatal for
// the rule.
var errServerResponseLocation = fmt.Errorf("rule asserts a server-response location: cannot control server responses")

// accumulator carries the in-progress request state while dispatching a
// rule's content and pcre matches, mirroring the original's per-request
// curl handle plus local string buffers.
type accumulator struct {
	method   methodState
	uri      strings.Builder
	body     strings.Builder
	hasBody  bool
	cookie   strings.Builder
	headers  map[string]string
	warnings []string
}

func newAccumulator() *accumulator {
	a := &accumulator{headers: make(map[string]string)}
	a.method = newMethodState()
	a.body.WriteString(sentinelBody)
	return a
}

func (a *accumulator) warnf(format string, args ...interface{}) {
	a.warnings = append(a.warnings, fmt.Sprintf(format, args...))
}

// dispatch routes one payload to the request component named by loc.
func (a *accumulator) dispatch(loc rules.HttpLocation, payload string) error {
	switch loc {
	case rules.LocationMethod:
		a.method.apply(payload)
	case rules.LocationURI, rules.LocationRawURI:
		if strings.Contains(payload, "//") {
			a.warnf("uri fragment %q contains '//'", payload)
		}
		a.uri.WriteString(payload)
	case rules.LocationHeader, rules.LocationRawHeader:
		name, value := sanitizeHeader(payload)
		a.headers[name] = value
	case rules.LocationClientBody:
		a.body.WriteString(strings.Trim(payload, "\r\n"))
		a.hasBody = true
	case rules.LocationCookie, rules.LocationRawCookie:
		a.cookie.WriteString(payload)
	case rules.LocationStatMsg, rules.LocationStatCode:
		return errServerResponseLocation
	}
	return nil
}

// finalizeURI ensures exactly one leading '/' and prepends host, then
// warns on any disallowed or unwise RFC-2396 character.
func (a *accumulator) finalizeURI(host string) string {
	path := a.uri.String()
	path = "/" + strings.TrimLeft(path, "/")

	if strings.ContainsAny(path, disallowedURIChars) {
		a.warnf("uri %q contains a disallowed RFC-2396 character", path)
	}
	if strings.ContainsAny(path, unwiseURIChars) {
		a.warnf("uri %q contains an unwise RFC-2396 character", path)
	}
	return strings.TrimRight(host, "/") + path
}

// build walks a parsed rule's content matches in textual order, then its
// pcre matches in textual order, and assembles the request they imply.
// Negated matches never contribute a payload.
func build(ctx context.Context, rule *rules.ParsedRule) (*accumulator, error) {
	acc := newAccumulator()

	for _, c := range rule.Contents {
		if c.Negated {
			continue
		}
		if err := acc.dispatch(c.Location, c.Payload); err != nil {
			return nil, fmt.Errorf("sid %s: content: %w", rule.SID, err)
		}
	}

	for _, p := range rule.Pcres {
		if p.Negated {
			continue
		}
		pattern, sanitizeWarnings := pcregen.Sanitize(p.Pattern)
		acc.warnings = append(acc.warnings, sanitizeWarnings...)

		payload, err := pcregen.Generate(ctx, pattern)
		if err != nil {
			return nil, fmt.Errorf("sid %s: pcre %q: %w", rule.SID, p.Pattern, err)
		}
		if payload == "" {
			acc.warnf("pcre %q produced an empty sample", p.Pattern)
		}

		dispatchPayload := payload
		if p.Location == rules.LocationURI || p.Location == rules.LocationRawURI {
			dispatchPayload = strings.ReplaceAll(payload, " ", "+")
		}
		if err := acc.dispatch(p.Location, dispatchPayload); err != nil {
			return nil, fmt.Errorf("sid %s: pcre: %w", rule.SID, err)
		}
	}

	return acc, nil
}

// Send builds the request implied by rule and sends it to host. A new
// resty client is constructed and discarded per call: reusing one
// across rules would leak cookies between unrelated requests.
func Send(ctx context.Context, host string, rule *rules.ParsedRule) (*Result, error) {
	acc, err := build(ctx, rule)
	if err != nil {
		return nil, err
	}

	uri := acc.finalizeURI(host)
	result := &Result{
		SID:      rule.SID,
		Method:   acc.method.method,
		URI:      uri,
		Warnings: acc.warnings,
	}
	// The sentinel is only ever a prefix for an appended client_body
	// fragment; it is never dispatched standalone.
	if acc.hasBody {
		result.Body = acc.body.String()
	}

	client := resty.New().SetTimeout(requestTimeout)
	req := client.R().SetContext(ctx)
	for name, value := range acc.headers {
		req.SetHeader(name, value)
	}
	if acc.cookie.Len() > 0 {
		req.SetHeader("Cookie", acc.cookie.String())
	}
	req.SetHeader("Rulesid", rule.SID)
	if acc.hasBody {
		req.SetBody(result.Body)
	}

	var resp *resty.Response
	switch {
	case acc.method.custom:
		resp, err = req.Execute(acc.method.method, uri)
	case acc.method.method == "POST":
		resp, err = req.Post(uri)
	default:
		resp, err = req.Get(uri)
	}
	if err != nil {
		return result, fmt.Errorf("sid %s: sending request to %s: %w", rule.SID, uri, err)
	}

	result.Sent = true
	result.StatusCode = resp.StatusCode()
	return result, nil
}
