package util

import "testing"

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"```json\n[{\"name\":\"Fries\"}]\n```", `[{"name":"Fries"}]`},
		{"```\n[]\n```", "[]"},
		{"  [1]  ", "[1]"},
		{"Here:\n```json\n[1]\n```\nThanks", "Here:\n\n[1]\n\nThanks"},
	}
	for _, tt := range tests {
		got := StripCodeFences(tt.in)
		if got != tt.want {
			t.Errorf("StripCodeFences(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if again := StripCodeFences(got); again != got {
			t.Errorf("expected idempotence, second pass gave %q", again)
		}
	}
}
