package rules

import (
	"reflect"
	"testing"

	"github.com/davecgh/go-spew/spew"
)

func TestParseHexContent(t *testing.T) {
	line := `alert tcp any any -> any 80 (msg:"hex test"; content:"GET |0D 0A| HTTP"; http_uri; sid:100; rev:1;)`
	got, _, err := Parse(line, 1)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	want := `GET+\r\n+HTTP`
	if got.Contents[0].Payload != want {
		t.Errorf("decoded payload = %q, want %q; full rule: %s", got.Contents[0].Payload, want, spew.Sdump(got))
	}
	if !got.Contents[0].ContainedHex {
		t.Errorf("ContainedHex = false, want true")
	}
}

func TestParseNegatedContent(t *testing.T) {
	line := `alert tcp any any -> any 80 (msg:"negated"; content:!"admin"; http_uri; sid:101; rev:1;)`
	got, _, err := Parse(line, 1)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !got.Contents[0].Negated {
		t.Errorf("Negated = false, want true")
	}
	if got.Contents[0].Payload != "admin" {
		t.Errorf("Payload = %q, want %q", got.Contents[0].Payload, "admin")
	}
}

func TestParsePcreTwoFlags(t *testing.T) {
	line := `alert tcp any any -> any 80 (msg:"two flags"; pcre:"/^[a-z]+$/UI"; sid:102; rev:1;)`
	got, _, err := Parse(line, 1)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(got.Pcres) != 2 {
		t.Fatalf("len(Pcres) = %d, want 2; rule: %s", len(got.Pcres), spew.Sdump(got))
	}
	wantLocs := map[HttpLocation]bool{LocationURI: true, LocationRawURI: true}
	for _, p := range got.Pcres {
		if !wantLocs[p.Location] {
			t.Errorf("unexpected pcre location %v", p.Location)
		}
		if p.Pattern != "^[a-z]+$" {
			t.Errorf("Pattern = %q, want %q", p.Pattern, "^[a-z]+$")
		}
	}
}

func TestParsePcreNonHTTPFlagRejected(t *testing.T) {
	line := `alert tcp any any -> any 80 (msg:"bad flag"; pcre:"/foo/s"; sid:103; rev:1;)`
	_, _, err := Parse(line, 1)
	if err == nil {
		t.Fatalf("Parse() error = nil, want non-nil for non-HTTP pcre flag")
	}
	pe, ok := err.(*ParseError)
	if !ok || pe.Kind != ErrParseSemantic {
		t.Errorf("err = %v, want *ParseError{Kind: ErrParseSemantic}", err)
	}
}

func TestParseHTTPPortsRejected(t *testing.T) {
	line := `alert tcp any $HTTP_PORTS -> any any (msg:"reverse"; content:"x"; http_uri; sid:104; rev:1;)`
	_, _, err := Parse(line, 1)
	if err == nil {
		t.Fatalf("Parse() error = nil, want non-nil for $HTTP_PORTS source")
	}
}

func TestParseMissingLocationDropsRule(t *testing.T) {
	line := `alert tcp any any -> any 80 (msg:"no loc"; content:"x"; sid:105; rev:1;)`
	_, diags, err := Parse(line, 1)
	if err == nil {
		t.Fatalf("Parse() error = nil, want ErrLocationMissing")
	}
	pe, ok := err.(*ParseError)
	if !ok || pe.Kind != ErrLocationMissing {
		t.Errorf("err = %v, want *ParseError{Kind: ErrLocationMissing}", err)
	}
	if len(diags) == 0 {
		t.Errorf("diags empty, want a warning for the missing location")
	}
}

func TestParseEndToEnd(t *testing.T) {
	line := `alert tcp any any -> any 80 (msg:"full rule"; content:"GET"; http_method; content:"/admin"; http_uri; pcre:"/id=\d+/U"; sid:106; rev:2;)`
	got, _, err := Parse(line, 1)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	want := &RuleHeader{Action: "alert", Protocol: "tcp", SrcAddr: "any", SrcPort: "any", Bidirectional: false, DstAddr: "any", DstPort: "80"}
	if !reflect.DeepEqual(&got.Header, want) {
		t.Errorf("Header = %s, want %s", spew.Sdump(got.Header), spew.Sdump(want))
	}
	if got.SID != "106" || got.Rev != "2" {
		t.Errorf("SID/Rev = %s/%s, want 106/2", got.SID, got.Rev)
	}
	if len(got.Contents) != 2 || len(got.Pcres) != 1 {
		t.Fatalf("unexpected shape: %s", spew.Sdump(got))
	}
	if got.Contents[0].Location != LocationMethod {
		t.Errorf("Contents[0].Location = %v, want LocationMethod", got.Contents[0].Location)
	}
	if got.Contents[1].Location != LocationURI {
		t.Errorf("Contents[1].Location = %v, want LocationURI", got.Contents[1].Location)
	}
	if got.Pcres[0].Location != LocationURI {
		t.Errorf("Pcres[0].Location = %v, want LocationURI", got.Pcres[0].Location)
	}
}

func TestDecodeHexUnterminatedRun(t *testing.T) {
	_, _, _, err := decodeHex("GET |0D 0A HTTP")
	if err == nil {
		t.Fatalf("decodeHex() error = nil, want non-nil for unterminated hex run")
	}
}

func TestDecodeHexNoOpWithoutPipe(t *testing.T) {
	decoded, hadHex, warnings, err := decodeHex("plain value")
	if err != nil {
		t.Fatalf("decodeHex() error = %v", err)
	}
	if hadHex {
		t.Errorf("hadHex = true, want false")
	}
	if decoded != "plain value" {
		t.Errorf("decoded = %q, want unchanged", decoded)
	}
	if len(warnings) != 0 {
		t.Errorf("warnings = %v, want none", warnings)
	}
}
