package attendance

import (
	"testing"
)

func TestParseTPDate(t *testing.T) {
	tests := []struct {
		name     string
		tp       string
		expected string // "" means no parse
	}{
		{"iso datetime", "2026-08-14T05:10:00", "2026-08-14"},
		{"space datetime", "2026-08-14 05:10:00", "2026-08-14"},
		{"rfc3339", "2026-08-14T05:10:00Z", "2026-08-14"},
		{"bare date", "2026-08-14", "2026-08-14"},
		{"empty", "", ""},
		{"garbage", "yesterday", ""},
		{"slashed date", "14/08/2026", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseTPDate(tt.tp)
			if tt.expected == "" {
				if got != nil {
					t.Errorf("parseTPDate(%q) = %v, want nil", tt.tp, got)
				}
				return
			}
			if got == nil {
				t.Fatalf("parseTPDate(%q) = nil, want %s", tt.tp, tt.expected)
			}
			if got.Format("2006-01-02") != tt.expected {
				t.Errorf("parseTPDate(%q) = %s, want %s", tt.tp, got.Format("2006-01-02"), tt.expected)
			}
			if h, m, s := got.Clock(); h != 0 || m != 0 || s != 0 {
				t.Errorf("parseTPDate(%q) kept a time-of-day component", tt.tp)
			}
		})
	}
}
