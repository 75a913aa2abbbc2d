package rules

import "testing"

func TestFilterRule(t *testing.T) {
	for _, tt := range []struct {
		name     string
		input    string
		wantSkip bool
	}{
		{
			name:     "accepted rule",
			input:    `alert tcp any any -> any 80 (msg:"test"; content:"GET"; http_uri; sid:1; rev:1;)`,
			wantSkip: false,
		},
		{
			name:     "missing alert keyword",
			input:    `log tcp any any -> any 80 (msg:"test"; content:"GET"; http_uri; sid:1; rev:1;)`,
			wantSkip: true,
		},
		{
			name:     "no content or pcre",
			input:    `alert tcp any any -> any 80 (msg:"test"; sid:1; rev:1;)`,
			wantSkip: true,
		},
		{
			name:     "unsupported keyword flowbits",
			input:    `alert tcp any any -> any 80 (msg:"t"; content:"GET"; flowbits:isset,foo; sid:1; rev:1;)`,
			wantSkip: true,
		},
		{
			name:     "unsupported keyword distance",
			input:    `alert tcp any any -> any 80 (msg:"t"; content:"GET"; distance:0; sid:1; rev:1;)`,
			wantSkip: true,
		},
		{
			name:     "from_server direction",
			input:    `alert tcp any any -> any 80 (msg:"t"; content:"GET"; from_server; sid:1; rev:1;)`,
			wantSkip: true,
		},
		{
			name:     "malformed content quoting",
			input:    `alert tcp any any -> any 80 (msg:"t"; content: "GET"; sid:1; rev:1;)`,
			wantSkip: true,
		},
	} {
		skip, reason := FilterRule(tt.input)
		if skip != tt.wantSkip {
			t.Errorf("%s: FilterRule() skip = %v (reason %q), want %v", tt.name, skip, reason, tt.wantSkip)
		}
		if skip && reason == "" {
			t.Errorf("%s: skip=true but no reason given", tt.name)
		}
	}
}

func TestIsComment(t *testing.T) {
	for _, tt := range []struct {
		input string
		want  bool
	}{
		{"# a comment", true},
		{"  # indented comment", true},
		{"alert tcp any any -> any any (msg:\"x\";)", false},
		{"", false},
	} {
		if got := IsComment(tt.input); got != tt.want {
			t.Errorf("IsComment(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestMissingHTTPModifier(t *testing.T) {
	for _, tt := range []struct {
		name  string
		input string
		want  bool
	}{
		{
			name:  "has http_ modifier",
			input: `alert tcp any any -> any 80 (content:"GET"; http_uri; sid:1; rev:1;)`,
			want:  false,
		},
		{
			name:  "no http_ modifier anywhere",
			input: `alert tcp any any -> any 80 (content:"GET"; sid:1; rev:1;)`,
			want:  true,
		},
		{
			name:  "uricontent alias is exempt",
			input: `alert tcp any any -> any 80 (uricontent:"GET"; sid:1; rev:1;)`,
			want:  false,
		},
		{
			name:  "no content keyword at all",
			input: `alert tcp any any -> any 80 (pcre:"/x/U"; sid:1; rev:1;)`,
			want:  false,
		},
	} {
		if got := MissingHTTPModifier(tt.input); got != tt.want {
			t.Errorf("%s: MissingHTTPModifier() = %v, want %v", tt.name, got, tt.want)
		}
	}
}
