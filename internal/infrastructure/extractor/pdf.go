package extractor

import (
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"

	"github.com/kirillkom/document-qa-bot/internal/core/domain"
)

// loadPDF returns one raw document per page.
func loadPDF(ctx context.Context, path string) (docs []domain.RawDocument, err error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "open pdf", err)
	}
	defer f.Close()

	// The pdf reader panics on some malformed content streams.
	defer func() {
		if r := recover(); r != nil {
			docs = nil
			err = domain.WrapError(domain.ErrInvalidInput, "read pdf", fmt.Errorf("malformed pdf: %v", r))
		}
	}()

	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("read pdf page %d: %w", i, err)
		}
		docs = append(docs, domain.RawDocument{Page: i, Text: text})
	}
	return docs, nil
}
