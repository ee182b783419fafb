package textutil

import "testing"

func TestFileToken(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"lecture-01", "lecture-01"},
		{"My Talk (final)", "My_Talk__final"},
		{"  spaced  ", "spaced"},
		{"über", "ber"},
		{"***", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := FileToken(tt.in); got != tt.want {
			t.Errorf("FileToken(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
