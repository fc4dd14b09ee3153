package extractdoc

import (
	"archive/zip"
	"bytes"
	"testing"
)

func buildMinimalDocx(t *testing.T, paragraphXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	doc := `<?xml version="1.0"?><w:document xmlns:w="ns"><w:body>` + paragraphXML + `</w:body></w:document>`
	if _, err := w.Write([]byte(doc)); err != nil {
		t.Fatalf("write zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestExtract_DOCX_ParagraphText(t *testing.T) {
	data := buildMinimalDocx(t, `<w:p><w:r><w:t>Chief complaint: headache</w:t></w:r></w:p>`)
	doc, err := Extract("application/vnd.openxmlformats-officedocument.wordprocessingml.document", data)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if doc.Text != "Chief complaint: headache" {
		t.Fatalf("expected paragraph text, got %q", doc.Text)
	}
}

func TestExtract_HTML_ParagraphText(t *testing.T) {
	html := []byte(`<html><body><p>Patient reports improvement.</p><p>No new symptoms.</p></body></html>`)
	doc, err := Extract("text/html; charset=utf-8", html)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if doc.Text != "Patient reports improvement.\nNo new symptoms." {
		t.Fatalf("unexpected HTML extraction: %q", doc.Text)
	}
}

func TestExtract_PlainText(t *testing.T) {
	doc, err := Extract("text/plain", []byte("  raw note text  "))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if doc.Text != "raw note text" {
		t.Fatalf("expected trimmed text, got %q", doc.Text)
	}
}

func TestExtract_UnsupportedContentType(t *testing.T) {
	if _, err := Extract("application/octet-stream", []byte{0x00}); err == nil {
		t.Fatal("expected error for unsupported content type")
	}
}
