package extractor

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"

	"github.com/kirillkom/document-qa-bot/internal/core/domain"
)

func loadPlainText(_ context.Context, path string) ([]domain.RawDocument, error) {
	raw, err := readUTF8(path)
	if err != nil {
		return nil, err
	}
	return []domain.RawDocument{{Text: string(raw)}}, nil
}

func loadMarkdown(_ context.Context, path string) ([]domain.RawDocument, error) {
	raw, err := readUTF8(path)
	if err != nil {
		return nil, err
	}
	return []domain.RawDocument{{Text: markdownText(raw)}}, nil
}

func readUTF8(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read source document: %w", err)
	}
	if !utf8.Valid(raw) {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read text", fmt.Errorf("not valid UTF-8 text"))
	}
	return raw, nil
}

// markdownText drops markdown syntax and keeps the readable text, one blank
// line between blocks.
func markdownText(src []byte) string {
	root := goldmark.New().Parser().Parse(gmtext.NewReader(src))

	var b strings.Builder
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Text:
			if entering {
				b.Write(node.Segment.Value(src))
				if node.SoftLineBreak() || node.HardLineBreak() {
					b.WriteByte('\n')
				}
			}
		case *ast.String:
			if entering {
				b.Write(node.Value)
			}
		case *ast.AutoLink:
			if entering {
				b.Write(node.Label(src))
			}
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			if entering {
				lines := n.Lines()
				for i := 0; i < lines.Len(); i++ {
					segment := lines.At(i)
					b.Write(segment.Value(src))
				}
			}
		}
		if !entering && n.Type() == ast.TypeBlock && n.Kind() != ast.KindDocument {
			endBlock(&b)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}

func endBlock(b *strings.Builder) {
	s := b.String()
	switch {
	case s == "", strings.HasSuffix(s, "\n\n"):
	case strings.HasSuffix(s, "\n"):
		b.WriteByte('\n')
	default:
		b.WriteString("\n\n")
	}
}
