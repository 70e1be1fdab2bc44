package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const wordNS = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"`

// docxPackage builds a .docx zip holding body at docPath, plus contentTypes when non-empty.
func docxPackage(t *testing.T, docPath, body, contentTypes string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	if contentTypes != "" {
		f, err := w.Create("[Content_Types].xml")
		if err != nil {
			t.Fatal(err)
		}
		_, _ = f.Write([]byte(contentTypes))
	}
	f, err := w.Create(docPath)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = f.Write([]byte(`<w:document ` + wordNS + `><w:body>` + body + `</w:body></w:document>`))
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestExtractBytes_Plain(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"simple", "Jane Doe\nBackend engineer", "Jane Doe\nBackend engineer"},
		{"utf8", "caf\xc3\xa9", "café"},
		{"invalid utf8 replaced", "hello\x80world", "hello\ufffdworld"},
		{"bom dropped", "\ufeffresume", "resume"},
		{"blank runs collapsed", "a\r\n\r\n\r\n  \nb  ", "a\n\nb"},
	}
	e := NewExtractor(0)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.ExtractBytes([]byte(tt.content), ".txt")
			if err != nil {
				t.Fatalf("ExtractBytes: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractBytes_EmptyText(t *testing.T) {
	e := NewExtractor(0)
	for _, content := range []string{"", "   \n\t\n"} {
		if _, err := e.ExtractBytes([]byte(content), ".txt"); !errors.Is(err, ErrNoText) {
			t.Errorf("content %q: err = %v, want ErrNoText", content, err)
		}
	}
	doc := docxPackage(t, "word/document.xml", `<w:p></w:p>`, "")
	if _, err := e.ExtractBytes(doc, ".docx"); !errors.Is(err, ErrNoText) {
		t.Errorf("empty docx: err = %v, want ErrNoText", err)
	}
}

func TestExtractBytes_Unsupported(t *testing.T) {
	e := NewExtractor(0)
	for _, ext := range []string{".xlsx", ".md", ""} {
		if _, err := e.ExtractBytes([]byte("x"), ext); !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("ext %q: err = %v, want ErrUnsupportedFormat", ext, err)
		}
	}
}

func TestExtractBytes_DOCXParagraphs(t *testing.T) {
	body := `<w:p w:rsidR="00A1"><w:r><w:t>Jane Doe</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t xml:space="preserve">Go </w:t></w:r><w:r><w:t>Engineer</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>Skills</w:t><w:tab/><w:t>SQL</w:t></w:r></w:p>`
	got, err := NewExtractor(0).ExtractBytes(docxPackage(t, "word/document.xml", body, ""), ".docx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	want := "Jane Doe\nGo Engineer\nSkills\tSQL"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExtractBytes_DOCXContentTypes(t *testing.T) {
	tests := []struct {
		name     string
		override string
	}{
		{"part name first", `<Override PartName="/word/document2.xml" ContentType="` + mainContentType + `"/>`},
		{"content type first", `<Override ContentType="` + mainContentType + `" PartName="/word/document2.xml"/>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			types := `<?xml version="1.0"?><Types>` +
				`<Override PartName="/docProps/core.xml" ContentType="application/xml"/>` +
				tt.override + `</Types>`
			doc := docxPackage(t, "word/document2.xml", `<w:p><w:r><w:t>custom part</w:t></w:r></w:p>`, types)
			got, err := NewExtractor(0).ExtractBytes(doc, ".DOCX")
			if err != nil {
				t.Fatalf("ExtractBytes: %v", err)
			}
			if got != "custom part" {
				t.Errorf("got %q", got)
			}
		})
	}
}

func TestExtractBytes_DOCXNotZip(t *testing.T) {
	if _, err := NewExtractor(0).ExtractBytes([]byte("plain bytes"), ".docx"); err == nil {
		t.Error("expected error for non-zip docx")
	}
}

func TestExtractBytes_MalformedPDF(t *testing.T) {
	_, err := NewExtractor(0).ExtractBytes([]byte("%PDF-1.4 truncated"), ".pdf")
	if err == nil {
		t.Fatal("expected error for malformed pdf")
	}
	if errors.Is(err, ErrNoText) {
		t.Error("malformed pdf should not be reported as empty text")
	}
}

func TestExtractReader_SizeLimit(t *testing.T) {
	e := NewExtractor(8)
	if _, err := e.ExtractReader(strings.NewReader("0123456789"), "cv.txt"); !errors.Is(err, ErrTooLarge) {
		t.Errorf("err = %v, want ErrTooLarge", err)
	}
	got, err := e.ExtractReader(strings.NewReader("01234567"), "cv.txt")
	if err != nil || got != "01234567" {
		t.Errorf("at limit: got %q, %v", got, err)
	}
}

func TestExtract_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "resume.txt")
	if err := os.WriteFile(path, []byte("File content\n"), 0600); err != nil {
		t.Fatal(err)
	}
	got, err := NewExtractor(0).Extract(path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "File content" {
		t.Errorf("got %q", got)
	}

	if _, err := NewExtractor(0).Extract(filepath.Join(dir, "missing.pdf")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSupported(t *testing.T) {
	tests := map[string]bool{
		"cv.pdf":     true,
		"CV.DOCX":    true,
		"notes.txt":  true,
		"sheet.xlsx": false,
		"noext":      false,
	}
	for name, want := range tests {
		if got := Supported(name); got != want {
			t.Errorf("Supported(%q) = %v, want %v", name, got, want)
		}
	}
}
