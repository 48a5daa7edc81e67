package pdftext

import (
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rotisserie/eris"

	"github.com/sells-group/pdfqa/internal/model"
)

// Info is document-level metadata.
type Info struct {
	PageCount int
	Encrypted bool
}

// Inspect reads the document structure without extracting text. Files pdfcpu
// cannot parse, including password-protected ones, are InputCorrupt.
func Inspect(pdfPath string) (*Info, error) {
	if err := checkPath(pdfPath); err != nil {
		return nil, err
	}

	f, err := os.Open(pdfPath)
	if err != nil {
		return nil, &model.InputError{Kind: model.InputUnknown, Path: pdfPath, Err: eris.Wrap(err, "open")}
	}
	defer f.Close() //nolint:errcheck

	conf := pdfmodel.NewDefaultConfiguration()
	conf.ValidationMode = pdfmodel.ValidationRelaxed

	ctx, err := api.ReadContext(f, conf)
	if err != nil {
		return nil, &model.InputError{Kind: model.InputCorrupt, Path: pdfPath, Err: eris.Wrap(err, "read context")}
	}
	if err := api.ValidateContext(ctx); err != nil {
		return nil, &model.InputError{Kind: model.InputCorrupt, Path: pdfPath, Err: eris.Wrap(err, "validate")}
	}

	return &Info{
		PageCount: ctx.PageCount,
		Encrypted: ctx.Encrypt != nil,
	}, nil
}
