package pdftext

import (
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"
	"github.com/rotisserie/eris"

	"github.com/sells-group/pdfqa/internal/model"
)

// Native extracts text in-process. The document is validated with pdfcpu
// first so encrypted or malformed files are rejected before text extraction.
type Native struct{}

// NewNative creates a Native extractor.
func NewNative() *Native { return &Native{} }

// ExtractPages returns the plain text of every page. Pages without content
// come back blank rather than being dropped.
func (n *Native) ExtractPages(ctx context.Context, pdfPath string) (pages []model.Page, err error) {
	info, err := Inspect(pdfPath)
	if err != nil {
		return nil, err
	}
	if info.Encrypted {
		return nil, &model.InputError{Kind: model.InputCorrupt, Path: pdfPath, Err: eris.New("document is encrypted")}
	}

	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = &model.InputError{Kind: model.InputCorrupt, Path: pdfPath, Err: eris.New(fmt.Sprint("parse: ", r))}
		}
	}()

	f, r, err := pdf.Open(pdfPath)
	if err != nil {
		return nil, &model.InputError{Kind: model.InputCorrupt, Path: pdfPath, Err: eris.Wrap(err, "open")}
	}
	defer f.Close() //nolint:errcheck

	total := r.NumPage()
	pages = make([]model.Page, 0, total)
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, model.Page{Number: i})
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, &model.InputError{Kind: model.InputCorrupt, Path: pdfPath, Err: eris.Wrapf(err, "page %d", i)}
		}
		pages = append(pages, model.Page{Number: i, Text: text})
	}
	return pages, nil
}
