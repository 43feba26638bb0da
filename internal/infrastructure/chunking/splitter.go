package chunking

import (
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/document-qa-bot/internal/core/domain"
)

var DefaultSeparators = []string{"\n\n", "\n", ".", " ", ""}

// Splitter is a recursive character splitter. It cuts on the coarsest
// separator that keeps pieces under ChunkSize, then merges pieces back into
// chunks that share up to Overlap characters with their predecessor. Sizes
// are counted in runes.
type Splitter struct {
	ChunkSize  int
	Overlap    int
	Separators []string
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 5
	}
	return &Splitter{
		ChunkSize:  chunkSize,
		Overlap:    overlap,
		Separators: DefaultSeparators,
	}
}

// Split chunks a raw document and records each chunk's byte offset in it.
func (s *Splitter) Split(doc domain.RawDocument) []domain.DocumentChunk {
	texts := s.SplitText(doc.Text)
	out := make([]domain.DocumentChunk, 0, len(texts))

	searchFrom := 0
	for i, text := range texts {
		offset := searchFrom
		if idx := strings.Index(doc.Text[searchFrom:], text); idx >= 0 {
			offset = searchFrom + idx
			searchFrom = offset + 1
		}
		out = append(out, domain.DocumentChunk{
			Text:       text,
			Source:     doc.Source,
			Page:       doc.Page,
			Offset:     offset,
			ChunkIndex: i,
		})
	}
	return out
}

func (s *Splitter) SplitText(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return s.split(text, s.Separators)
}

func (s *Splitter) split(text string, separators []string) []string {
	separator := ""
	var rest []string
	for i, sep := range separators {
		if sep == "" || strings.Contains(text, sep) {
			separator = sep
			rest = separators[i+1:]
			break
		}
	}

	var out []string
	var good []string
	for _, piece := range splitKeepingSeparator(text, separator) {
		if runeLen(piece) < s.ChunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			out = append(out, s.merge(good)...)
			good = nil
		}
		if len(rest) == 0 {
			if trimmed := strings.TrimSpace(piece); trimmed != "" {
				out = append(out, trimmed)
			}
			continue
		}
		out = append(out, s.split(piece, rest)...)
	}
	if len(good) > 0 {
		out = append(out, s.merge(good)...)
	}
	return out
}

// merge packs consecutive pieces into chunks, carrying a tail of at most
// Overlap runes into the next chunk.
func (s *Splitter) merge(pieces []string) []string {
	var out []string
	var current []string
	total := 0

	for _, piece := range pieces {
		n := runeLen(piece)
		if total+n > s.ChunkSize && len(current) > 0 {
			if chunk := strings.TrimSpace(strings.Join(current, "")); chunk != "" {
				out = append(out, chunk)
			}
			for total > s.Overlap || (total+n > s.ChunkSize && total > 0) {
				total -= runeLen(current[0])
				current = current[1:]
			}
		}
		current = append(current, piece)
		total += n
	}
	if chunk := strings.TrimSpace(strings.Join(current, "")); chunk != "" {
		out = append(out, chunk)
	}
	return out
}

// splitKeepingSeparator splits text so that every separator stays at the
// start of the piece that follows it; joining the pieces restores text.
func splitKeepingSeparator(text, separator string) []string {
	if separator == "" {
		out := make([]string, 0, utf8.RuneCountInString(text))
		for _, r := range text {
			out = append(out, string(r))
		}
		return out
	}

	parts := strings.Split(text, separator)
	out := make([]string, 0, len(parts))
	for i, part := range parts {
		if i > 0 {
			part = separator + part
		}
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
