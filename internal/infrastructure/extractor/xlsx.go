package extractor

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/document-qa-bot/internal/core/domain"
)

// loadXLSX returns one raw document per non-empty sheet; Page is the sheet's
// 1-based position. Cells are tab separated, rows newline separated.
func loadXLSX(_ context.Context, path string) ([]domain.RawDocument, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "open xlsx", err)
	}
	defer f.Close()

	var docs []domain.RawDocument
	for i, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
		}

		var b strings.Builder
		b.WriteString(sheet)
		b.WriteString("\n")
		hasData := false
		for _, row := range rows {
			line := strings.TrimRight(strings.Join(row, "\t"), "\t")
			if strings.TrimSpace(line) == "" {
				continue
			}
			hasData = true
			b.WriteString(line)
			b.WriteString("\n")
		}
		if !hasData {
			continue
		}
		docs = append(docs, domain.RawDocument{Page: i + 1, Text: b.String()})
	}
	return docs, nil
}
