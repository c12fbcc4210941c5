// Package extract turns uploaded event material into bounded plain text for question generation.
package extract

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"event-feedback-service/internal/domain"
)

// MaxContentLength caps the extracted text, in characters.
const MaxContentLength = 5000

const (
	extText = ".txt"
	extPDF  = ".pdf"
)

// highByteThreshold keeps Latin-1 range bytes in the PDF scan.
const highByteThreshold = 160

// Supported reports whether the file name carries an accepted extension.
func Supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case extText, extPDF:
		return true
	}
	return false
}

// Extract returns the trimmed text content of the named file, truncated to MaxContentLength.
func Extract(name string, data []byte) (string, error) {
	return ExtractReader(name, bytes.NewReader(data))
}

// ExtractReader is Extract over a stream; read failures surface as ErrExtractionFailed.
func ExtractReader(name string, r io.Reader) (string, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case extText:
		data, err := io.ReadAll(r)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %v", domain.ErrExtractionFailed, name, err)
		}
		return truncate(string(bytes.ToValidUTF8(data, []byte("�")))), nil
	case extPDF:
		return scanPDF(name, r)
	default:
		return "", fmt.Errorf("%w: %s, please upload a .txt or .pdf file", domain.ErrUnsupportedFormat, name)
	}
}

// scanPDF is a lossy byte-level fallback, not a PDF parser: printable ASCII and
// high bytes become characters, CR and LF become newlines, everything else is dropped.
func scanPDF(name string, r io.Reader) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			text = ""
			err = fmt.Errorf("%w: %s: %v", domain.ErrExtractionFailed, name, rec)
		}
	}()

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", domain.ErrExtractionFailed, name, err)
	}

	var b strings.Builder
	b.Grow(len(data))
	for _, c := range data {
		switch {
		case (c >= 32 && c <= 126) || c >= highByteThreshold:
			b.WriteRune(rune(c))
		case c == '\n' || c == '\r':
			b.WriteByte('\n')
		}
	}
	return truncate(b.String()), nil
}

// truncate cuts to MaxContentLength characters before trimming.
func truncate(s string) string {
	runes := []rune(s)
	if len(runes) > MaxContentLength {
		runes = runes[:MaxContentLength]
	}
	return strings.TrimSpace(string(runes))
}
