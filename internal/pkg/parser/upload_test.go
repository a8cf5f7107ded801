package parser

import (
	"strings"
	"testing"
	"time"
)

func TestObjectName(t *testing.T) {
	now := time.UnixMilli(1700000000123)

	got := ObjectName(now, "sub-1", "My Report (final).pdf")
	want := "1700000000123-sub-1-My-Report--final-.pdf"
	if got != want {
		t.Errorf("ObjectName() = %q, want %q", got, want)
	}

	if ObjectName(now, "sub-1", "a.pdf") == ObjectName(now, "sub-2", "a.pdf") {
		t.Error("ObjectName() must differ for distinct submissions")
	}
}

func TestSafeFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"photo.jpg", "photo.jpg"},
		{"../../etc/passwd", "passwd"},
		{"C:\\Users\\ada\\notes.txt", "notes.txt"},
		{"", "file"},
		{"/", "file"},
		{"résumé.doc", "r-sum-.doc"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := SafeFileName(tt.in); got != tt.want {
				t.Errorf("SafeFileName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestContentType(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

	tests := []struct {
		name     string
		declared string
		head     []byte
		want     string
	}{
		{"declared wins", "application/pdf", png, "application/pdf"},
		{"sniffed png", "", png, "image/png"},
		{"generic declared is sniffed", "application/octet-stream", png, "image/png"},
		{"empty body", "", nil, "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ContentType(tt.declared, tt.head)
			if !strings.HasPrefix(got, tt.want) {
				t.Errorf("ContentType() = %q, want prefix %q", got, tt.want)
			}
		})
	}
}
