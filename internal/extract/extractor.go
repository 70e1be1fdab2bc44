// Package extract turns uploaded resume documents into plain text.
package extract

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DefaultMaxBytes caps the size of a document accepted by ExtractReader.
const DefaultMaxBytes = 10 << 20

var (
	// ErrUnsupportedFormat is returned for extensions other than .pdf, .docx and .txt.
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrNoText is returned when a document yields no text after extraction.
	ErrNoText = errors.New("could not extract text")
	// ErrTooLarge is returned when a document exceeds the size limit.
	ErrTooLarge = errors.New("document too large")
)

var supported = map[string]func([]byte) (string, error){
	".pdf":  extractPDF,
	".docx": extractDOCX,
	".txt":  extractPlain,
}

// Extractor extracts plain text from resume documents.
type Extractor struct {
	maxBytes int64
}

// NewExtractor returns an Extractor accepting documents up to maxBytes; non-positive means
// DefaultMaxBytes.
func NewExtractor(maxBytes int64) *Extractor {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Extractor{maxBytes: maxBytes}
}

// Supported reports whether filename has an extension the extractor handles.
func Supported(filename string) bool {
	_, ok := supported[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// Extract reads the file at path and returns its text.
func (e *Extractor) Extract(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open document: %w", err)
	}
	defer f.Close()
	return e.ExtractReader(f, filepath.Base(path))
}

// ExtractReader reads a document from r, using filename only for its extension.
func (e *Extractor) ExtractReader(r io.Reader, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := supported[ext]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	content, err := io.ReadAll(io.LimitReader(r, e.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}
	if int64(len(content)) > e.maxBytes {
		return "", fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, e.maxBytes)
	}
	return e.ExtractBytes(content, ext)
}

// ExtractBytes extracts text from content. ext includes the leading dot (".pdf").
// The result has runs of blank lines collapsed and surrounding space trimmed.
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	fn, ok := supported[strings.ToLower(ext)]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	text, err := fn(content)
	if err != nil {
		return "", err
	}
	text = normalize(text)
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}

func normalize(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if strings.TrimSpace(line) == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
