package upload

import "testing"

func TestDetectMediaType(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		data     []byte
		want     string
	}{
		{"by extension", "photo.png", nil, "image/png"},
		{"extension wins over content", "scan.png", []byte("%PDF-1.7"), "image/png"},
		{"by content", "noext", []byte("%PDF-1.7"), "application/pdf"},
		{"empty unknown", "noext", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectMediaType(tt.filename, tt.data); got != tt.want {
				t.Errorf("DetectMediaType(%q) = %q, want %q", tt.filename, got, tt.want)
			}
		})
	}
}
