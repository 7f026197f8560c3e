package ocr

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// PdfToText extracts text from PDFs using the pdftotext CLI tool.
type PdfToText struct {
	binPath string
}

// NewPdfToText creates a PdfToText extractor. If binPath is empty, "pdftotext" is used.
func NewPdfToText(binPath string) *PdfToText {
	if binPath == "" {
		binPath = "pdftotext"
	}
	return &PdfToText{binPath: binPath}
}

// ExtractText writes the document to a temp file, runs pdftotext -layout on
// it, and returns stdout. pdftotext needs a seekable input, so stdin piping
// is not an option.
func (p *PdfToText) ExtractText(ctx context.Context, data []byte) (string, error) {
	dir, err := os.MkdirTemp("", "dropaudit-pdf-*")
	if err != nil {
		return "", eris.Wrap(err, "ocr: create temp dir")
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "input.pdf")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", eris.Wrap(err, "ocr: write temp PDF")
	}

	cmd := exec.CommandContext(ctx, p.binPath, "-layout", path, "-")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", eris.Wrapf(err, "ocr: pdftotext failed: %s", stderr.String())
	}

	return stdout.String(), nil
}
