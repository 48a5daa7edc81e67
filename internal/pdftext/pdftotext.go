package pdftext

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/pdfqa/internal/model"
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

// ExtractPages runs pdftotext -layout and splits its output on the form feed
// it writes after every page.
func (p *PdfToText) ExtractPages(ctx context.Context, pdfPath string) ([]model.Page, error) {
	cmd := exec.CommandContext(ctx, p.binPath, "-layout", pdfPath, "-")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		wrapped := eris.Wrapf(err, "pdftotext failed for %s: %s", pdfPath, strings.TrimSpace(stderr.String()))
		var exitErr *exec.ExitError
		// 1: error opening the PDF, 3: permission (encryption) error.
		if errors.As(err, &exitErr) && (exitErr.ExitCode() == 1 || exitErr.ExitCode() == 3) {
			return nil, &model.InputError{Kind: model.InputCorrupt, Path: pdfPath, Err: wrapped}
		}
		return nil, wrapped
	}

	return splitPages(stdout.String()), nil
}

func splitPages(out string) []model.Page {
	parts := strings.Split(out, "\f")
	if n := len(parts); n > 0 && strings.TrimSpace(parts[n-1]) == "" {
		parts = parts[:n-1]
	}
	pages := make([]model.Page, len(parts))
	for i, text := range parts {
		pages[i] = model.Page{Number: i + 1, Text: text}
	}
	return pages
}
