package textextract

import (
	"archive/zip"
	"bytes"
	"errors"
	"testing"
)

func TestExtract_PlainText(t *testing.T) {
	tests := []struct {
		name string
		mime string
		in   string
		want string
	}{
		{"plain", "text/plain", "  hello \n\n world\t ", "hello world"},
		{"with charset", "text/plain; charset=utf-8", "a\r\nb", "a b"},
		{"markdown", "text/markdown", "# Title\n\nBody", "# Title Body"},
		{"control chars", "text/plain", "a\x00b\x07c", "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := bytes.NewReader([]byte(tt.in))
			got, err := Extract(r, int64(r.Len()), tt.mime)
			if err != nil {
				t.Fatalf("Extract: %v", err)
			}
			if got.Content != tt.want {
				t.Fatalf("content = %q, want %q", got.Content, tt.want)
			}
		})
	}
}

func TestExtract_Unsupported(t *testing.T) {
	r := bytes.NewReader([]byte("x"))
	_, err := Extract(r, 1, "image/png")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	if Supported("image/png") {
		t.Fatal("image/png reported as supported")
	}
}

func TestExtract_DOCX(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	w.Write([]byte(`<w:document><w:body><w:p><w:r><w:t>Photosynthesis</w:t></w:r></w:p><w:p><w:r><w:t>converts light</w:t></w:r></w:p></w:body></w:document>`))
	zw.Close()

	r := bytes.NewReader(buf.Bytes())
	got, err := Extract(r, int64(r.Len()), MimeDOCX)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got.Content != "Photosynthesis converts light" {
		t.Fatalf("content = %q", got.Content)
	}
}
