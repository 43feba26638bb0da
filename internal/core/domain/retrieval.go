package domain

const (
	UnknownSource = "Unknown"

	PreviewLimit  = 200
	previewSuffix = "..."
)

type SourceRef struct {
	Source         string `json:"source"`
	ContentPreview string `json:"content_preview"`
}

type QueryResponse struct {
	Answer  string      `json:"answer"`
	Sources []SourceRef `json:"sources"`
}

// PreviewText returns the first PreviewLimit code points of text, followed by
// "..." when text is longer than that.
func PreviewText(text string) string {
	count := 0
	for i := range text {
		if count == PreviewLimit {
			return text[:i] + previewSuffix
		}
		count++
	}
	return text
}

// SourceRefFor shapes a retrieved chunk into its response form.
func SourceRefFor(chunk RetrievedChunk) SourceRef {
	source := chunk.Source
	if source == "" {
		source = UnknownSource
	}
	return SourceRef{
		Source:         source,
		ContentPreview: PreviewText(chunk.Text),
	}
}
