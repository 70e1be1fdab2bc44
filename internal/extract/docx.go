package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

const (
	defaultDocumentPath = "word/document.xml"
	contentTypesPath    = "[Content_Types].xml"
	mainContentType     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
)

var overrideRe = regexp.MustCompile(`<Override\s[^>]*>`)
var attrRe = regexp.MustCompile(`(PartName|ContentType)="([^"]+)"`)

// extractDOCX walks the main document part of a .docx package. Text runs (w:t) are
// concatenated, tabs and breaks become whitespace, and each paragraph ends a line.
func extractDOCX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract DOCX: not a zip: %w", err)
	}

	docPath := mainDocumentPath(zr)
	f := findFile(zr, docPath)
	if f == nil {
		return "", fmt.Errorf("extract DOCX: %s not found", docPath)
	}
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("extract DOCX: open %s: %w", f.Name, err)
	}
	defer rc.Close()

	var b strings.Builder
	dec := xml.NewDecoder(rc)
	inText := false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("extract DOCX: parse %s: %w", f.Name, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				b.WriteByte('\t')
			case "br", "cr":
				b.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				b.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}
	return b.String(), nil
}

// mainDocumentPath reads [Content_Types].xml for the main document part, falling back to
// word/document.xml.
func mainDocumentPath(zr *zip.Reader) string {
	f := findFile(zr, contentTypesPath)
	if f == nil {
		return defaultDocumentPath
	}
	rc, err := f.Open()
	if err != nil {
		return defaultDocumentPath
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return defaultDocumentPath
	}
	for _, override := range overrideRe.FindAllString(string(data), -1) {
		var part, ctype string
		for _, m := range attrRe.FindAllStringSubmatch(override, -1) {
			if m[1] == "PartName" {
				part = m[2]
			} else {
				ctype = m[2]
			}
		}
		if ctype == mainContentType && part != "" {
			return strings.TrimPrefix(part, "/")
		}
	}
	return defaultDocumentPath
}

func findFile(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}
