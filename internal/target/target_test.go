package target

import (
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Target
		wantErr bool
	}{
		{"plain", "sharkdp/fd", Target{Ref: Ref{Owner: "sharkdp", Repo: "fd"}}, false},
		{"with alias", "idursun/jjui:jjui", Target{Ref: Ref{Owner: "idursun", Repo: "jjui"}, Alias: "jjui"}, false},
		{"alias differs from repo", "cli/cli:gh", Target{Ref: Ref{Owner: "cli", Repo: "cli"}, Alias: "gh"}, false},
		{"missing slash", "sharkdp", Target{}, true},
		{"empty owner", "/fd", Target{}, true},
		{"empty repo", "sharkdp/", Target{}, true},
		{"nested path", "a/b/c", Target{}, true},
		{"empty alias", "sharkdp/fd:", Target{}, true},
		{"alias with slash", "sharkdp/fd:bin/fd", Target{}, true},
		{"alias dotdot", "sharkdp/fd:..", Target{}, true},
		{"empty", "", Target{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseRef(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Ref
		wantErr bool
	}{
		{"plain", "sharkdp/fd", Ref{Owner: "sharkdp", Repo: "fd"}, false},
		{"colon not allowed", "sharkdp/fd:fd", Ref{}, true},
		{"missing slash", "fd", Ref{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRef(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRef(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseRef(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestString(t *testing.T) {
	tgt := Target{Ref: Ref{Owner: "sharkdp", Repo: "fd"}, Alias: "fdfind"}
	if got := tgt.String(); got != "sharkdp/fd:fdfind" {
		t.Errorf("Target.String() = %q, want %q", got, "sharkdp/fd:fdfind")
	}
	if got := tgt.Ref.String(); got != "sharkdp/fd" {
		t.Errorf("Ref.String() = %q, want %q", got, "sharkdp/fd")
	}
}
