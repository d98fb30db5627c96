package textnorm

import "testing"

func TestCleanDescription(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  STARBUCKS   #123  ", "STARBUCKS #123"},
		{"a\tb\n c", "a b c"},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		if got := CleanDescription(tt.in); got != tt.want {
			t.Errorf("CleanDescription(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMerchantKey(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"STARBUCKS #123", "starbucks 123"},
		{"  Whole Foods Market -- Store 42 ", "whole foods market store 42"},
		{"Café Crème", "cafe creme"},
		{"***", ""},
		{"", ""},
		{"Uber*Trip", "uber trip"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := MerchantKey(tt.in); got != tt.want {
				t.Errorf("MerchantKey(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestMerchantKeyIdempotent(t *testing.T) {
	k := MerchantKey("Trader Joe's #552")
	if again := MerchantKey(k); again != k {
		t.Errorf("MerchantKey not idempotent: %q then %q", k, again)
	}
}
