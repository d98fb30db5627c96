package azure

import "testing"

func TestIsLocal(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"http://127.0.0.1:10000/devstoreaccount1", true},
		{"https://acct.blob.core.windows.net", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsLocal(tt.url); got != tt.want {
			t.Errorf("IsLocal(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}
