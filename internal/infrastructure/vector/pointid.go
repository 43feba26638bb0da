// Package vector holds helpers shared by the vector index backends.
package vector

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/kirillkom/document-qa-bot/internal/core/domain"
)

// PointID is stable for a chunk position, so re-ingesting a file overwrites
// its earlier vectors instead of duplicating them.
func PointID(chunk domain.DocumentChunk) string {
	key := fmt.Sprintf("%s|%d|%d", chunk.Source, chunk.Page, chunk.Offset)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
}
