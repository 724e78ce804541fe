package core

import (
	"context"
)

// DocumentExtractor defines the interface for extracting text from uploaded documents.
type DocumentExtractor interface {
	// ExtractText takes the raw bytes and content type, and returns a channel
	// of extracted text fragments. The channel is closed when extraction ends.
	ExtractText(ctx context.Context, data []byte, contentType string) (<-chan string, error)
}
