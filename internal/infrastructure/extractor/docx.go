package extractor

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nguyenthenguyen/docx"

	"github.com/kirillkom/document-qa-bot/internal/core/domain"
)

func loadDOCX(_ context.Context, path string) ([]domain.RawDocument, error) {
	r, err := docx.ReadDocxFile(path)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "open docx", err)
	}
	defer r.Close()

	text, err := wordprocessingText(r.Editable().GetContent())
	if err != nil {
		return nil, err
	}
	return []domain.RawDocument{{Text: text}}, nil
}

// wordprocessingText pulls run text out of document.xml, one line per
// paragraph.
func wordprocessingText(content string) (string, error) {
	dec := xml.NewDecoder(strings.NewReader(content))

	var b strings.Builder
	inText := false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse docx xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				b.WriteByte('\t')
			case "br", "cr":
				b.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				b.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}
	return strings.TrimSpace(b.String()), nil
}
