package statement

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// MinTextLength is the extracted text length below which a PDF is treated
// as a scanned, image-only document.
const MinTextLength = 50

// TextExtractor turns a PDF document into plain text.
type TextExtractor interface {
	ExtractText(ctx context.Context, pdf []byte) (string, error)
}

// PDFToText extracts text with the poppler pdftotext binary in layout mode.
type PDFToText struct {
	// Binary defaults to "pdftotext" on PATH.
	Binary string
}

// ExtractText writes the document to a temporary file and runs pdftotext on it.
func (p PDFToText) ExtractText(ctx context.Context, pdf []byte) (string, error) {
	bin := p.Binary
	if bin == "" {
		bin = "pdftotext"
	}

	f, err := os.CreateTemp("", "statement-*.pdf")
	if err != nil {
		return "", fmt.Errorf("PDFToText: creating temp file: %w", err)
	}
	defer os.Remove(f.Name())

	if _, err := f.Write(pdf); err != nil {
		f.Close()
		return "", fmt.Errorf("PDFToText: writing temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("PDFToText: closing temp file: %w", err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, "-layout", f.Name(), "-")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("PDFToText: pdftotext failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// CheckScanned returns a ScannedDocumentError when the text extracted from
// a PDF is too short to hold a statement.
func CheckScanned(text string) error {
	n := len(strings.TrimSpace(text))
	if n < MinTextLength {
		return &ScannedDocumentError{TextLength: n}
	}
	return nil
}
