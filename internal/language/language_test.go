package language

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"ko", "ko"},
		{"KO", "ko"},
		{"ko-KR", "ko"},
		{"kor", "ko"},
		{" en ", "en"},
		{"eng", "en"},
	}
	for _, tt := range tests {
		got, err := Normalize(tt.input)
		if err != nil {
			t.Fatalf("Normalize(%q) returned error: %v", tt.input, err)
		}
		if got != tt.expected {
			t.Fatalf("Normalize(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestNormalizeRejectsGarbage(t *testing.T) {
	for _, input := range []string{"", "   ", "not a language", "12"} {
		if _, err := Normalize(input); err == nil {
			t.Fatalf("expected error for %q", input)
		}
	}
}

func TestDisplayName(t *testing.T) {
	if got := DisplayName("ko"); got != "Korean" {
		t.Fatalf("DisplayName(ko) = %q", got)
	}
	if got := DisplayName("en-US"); got != "English" {
		t.Fatalf("DisplayName(en-US) = %q", got)
	}
	if got := DisplayName("??"); got != "??" {
		t.Fatalf("DisplayName fallback = %q", got)
	}
}
