package provider

import "testing"

func TestModelFromEndpoint(t *testing.T) {
	testCases := []struct {
		endpoint string
		expected string
	}{
		{"https://generativelanguage.googleapis.com/v1beta/models/gemini-2.0-flash-exp:generateContent", "gemini-2.0-flash-exp"},
		{"https://generativelanguage.googleapis.com/v1beta/models/gemini-2.5-flash-image:generateContent?alt=json", "gemini-2.5-flash-image"},
		{"http://localhost:9999/generate", ""},
	}

	for _, tc := range testCases {
		if got := ModelFromEndpoint(tc.endpoint); got != tc.expected {
			t.Errorf("ModelFromEndpoint(%q) = %q, want %q", tc.endpoint, got, tc.expected)
		}
	}
}
