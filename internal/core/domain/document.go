package domain

// RawDocument is one loaded unit of a source file: a PDF page, a spreadsheet
// sheet, or a whole text file.
type RawDocument struct {
	Source string
	Page   int
	Text   string
}

// DocumentChunk is a contiguous span of a raw document. Offset is the byte
// offset of Text inside the raw document; (Source, Page, Offset) is unique.
type DocumentChunk struct {
	Text       string `json:"text"`
	Source     string `json:"source"`
	Page       int    `json:"page,omitempty"`
	Offset     int    `json:"offset"`
	ChunkIndex int    `json:"chunk_index"`
}

type RetrievedChunk struct {
	Source     string  `json:"source"`
	Page       int     `json:"page,omitempty"`
	ChunkIndex int     `json:"chunk_index"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

// IngestReport summarizes a batch ingestion run.
type IngestReport struct {
	Files  int `json:"files"`
	Chunks int `json:"chunks"`
	Failed int `json:"failed"`
}

// IngestRequest hands a stored file to the ingestion worker. Source is the
// original file base name, so queued and direct ingestion attribute chunks
// to the same source.
type IngestRequest struct {
	StorageKey string
	Source     string
}
