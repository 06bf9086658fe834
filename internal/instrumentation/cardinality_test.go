package instrumentation

import "testing"

func TestExtractUserDomain(t *testing.T) {
	tests := []struct {
		email    string
		expected string
	}{
		{"owner@example.com", "example.com"},
		{"Owner@Example.COM", "example.com"},
		{"invalid", "unknown"},
		{"user@", "unknown"},
		{"", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			if got := ExtractUserDomain(tt.email); got != tt.expected {
				t.Errorf("ExtractUserDomain(%q) = %q, want %q", tt.email, got, tt.expected)
			}
		})
	}
}
