package extractor

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kirillkom/document-qa-bot/internal/core/domain"
)

type loadFunc func(ctx context.Context, path string) ([]domain.RawDocument, error)

// Loader picks a format parser by file extension.
type Loader struct {
	byExt map[string]loadFunc
}

func NewLoader() *Loader {
	return &Loader{
		byExt: map[string]loadFunc{
			".pdf":      loadPDF,
			".docx":     loadDOCX,
			".eml":      loadEML,
			".msg":      loadMSG,
			".xlsx":     loadXLSX,
			".txt":      loadPlainText,
			".md":       loadMarkdown,
			".markdown": loadMarkdown,
			".html":     loadHTML,
			".htm":      loadHTML,
		},
	}
}

// Supports reports whether path has a known extension.
func (l *Loader) Supports(path string) bool {
	_, ok := l.byExt[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Extensions lists the supported extensions in sorted order.
func (l *Loader) Extensions() []string {
	out := make([]string, 0, len(l.byExt))
	for ext := range l.byExt {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

func (l *Loader) Load(ctx context.Context, path string) ([]domain.RawDocument, error) {
	ext := strings.ToLower(filepath.Ext(path))
	load, ok := l.byExt[ext]
	if !ok {
		return nil, domain.WrapError(domain.ErrInvalidInput, "load document", fmt.Errorf("unsupported file type: %q", ext))
	}

	docs, err := load(ctx, path)
	if err != nil {
		return nil, err
	}

	source := filepath.Base(path)
	out := docs[:0]
	for _, doc := range docs {
		if strings.TrimSpace(doc.Text) == "" {
			continue
		}
		if doc.Source == "" {
			doc.Source = source
		}
		out = append(out, doc)
	}
	return out, nil
}
