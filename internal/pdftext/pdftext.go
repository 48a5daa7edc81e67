// Package pdftext extracts per-page text from PDF files.
package pdftext

import (
	"context"
	"errors"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/pdfqa/internal/config"
	"github.com/sells-group/pdfqa/internal/model"
)

// Extractor extracts the text of every page of a PDF, in page order.
type Extractor interface {
	ExtractPages(ctx context.Context, pdfPath string) ([]model.Page, error)
}

// NewExtractor creates an Extractor based on config. Every extractor it
// returns reports bad input as *model.InputError.
func NewExtractor(cfg config.PDFConfig, mistralKey string) (Extractor, error) {
	var inner Extractor
	switch cfg.Provider {
	case "native", "":
		inner = NewNative()
	case "pdftotext":
		inner = NewPdfToText(cfg.PdfToTextPath)
	case "mistral":
		if mistralKey == "" {
			return nil, &model.ConfigError{Key: "pdf.mistral_api_key", Err: eris.New("mistral provider requires mistral_api_key")}
		}
		m := NewMistralOCR(mistralKey, cfg.MistralModel)
		if cfg.MistralEndpoint != "" {
			m.endpoint = cfg.MistralEndpoint
		}
		inner = m
	default:
		return nil, &model.ConfigError{Key: "pdf.provider", Err: eris.Errorf("unknown provider %q", cfg.Provider)}
	}
	return &checked{inner: inner}, nil
}

// checked validates the path before extraction and classifies failures.
type checked struct {
	inner Extractor
}

func (c *checked) ExtractPages(ctx context.Context, pdfPath string) ([]model.Page, error) {
	if err := checkPath(pdfPath); err != nil {
		return nil, err
	}

	pages, err := c.inner.ExtractPages(ctx, pdfPath)
	if err != nil {
		var ie *model.InputError
		if errors.As(err, &ie) {
			return nil, err
		}
		return nil, &model.InputError{Kind: model.InputUnknown, Path: pdfPath, Err: err}
	}
	if len(pages) == 0 {
		return nil, &model.InputError{Kind: model.InputCorrupt, Path: pdfPath, Err: eris.New("document has no pages")}
	}

	blank := 0
	for _, p := range pages {
		if p.IsBlank() {
			blank++
		}
	}
	zap.L().Info("pdf extracted",
		zap.String("path", pdfPath),
		zap.Int("pages", len(pages)),
		zap.Int("blank_pages", blank),
	)
	return pages, nil
}

func checkPath(pdfPath string) error {
	info, err := os.Stat(pdfPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return &model.InputError{Kind: model.InputNotFound, Path: pdfPath, Err: err}
	case err != nil:
		return &model.InputError{Kind: model.InputUnknown, Path: pdfPath, Err: eris.Wrap(err, "stat")}
	case info.IsDir():
		return &model.InputError{Kind: model.InputNotFound, Path: pdfPath, Err: eris.New("path is a directory")}
	}
	return nil
}
