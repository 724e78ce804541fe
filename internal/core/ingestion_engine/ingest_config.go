package ingestion_engine

import (
	"go.uber.org/zap"

	"github.com/markdave123-py/researchhub/internal/core"
)

// IngestConfig tunes the streaming pipeline.
//
// TargetTokens:   approximate tokens per chunk (e.g., 500).
// OverlapTokens:  token overlap between consecutive chunks for context bleed (e.g., 50).
// BatchSize:      how many chunks to embed/write in one batch (e.g., 32).
// QueueSize:      capacity of the pending paper queue.
type IngestConfig struct {
	TargetTokens  int
	OverlapTokens int
	BatchSize     int
	QueueSize     int
}

// DefaultIngestConfig returns the settings used by the API service.
func DefaultIngestConfig() *IngestConfig {
	return &IngestConfig{TargetTokens: 300, OverlapTokens: 30, BatchSize: 16, QueueSize: 64}
}

// chunk is the internal representation passed through the pipeline.
//
// Pos:      stable, zero-based position of the chunk inside the paper.
// Text:     chunk content (built from one or more fragments).
// TokenCnt: approximate token count (used for batching and overlap math).
type chunk struct {
	Pos      int
	Text     string
	TokenCnt int
}

// PaperIngestor turns uploaded PDFs into embedded chunks the chat assistant
// can retrieve:
//
// db:        persistence for papers and chunks.
// obj:       object storage holding the uploaded files.
// embedder:  embedding provider.
// extractor: text extraction for the stored bytes.
// jobs:      in-memory queue of paper IDs to process.
type PaperIngestor struct {
	db        core.DbClient
	obj       core.ObjectClient
	embedder  core.EmbeddingProvider
	extractor core.DocumentExtractor
	cfg       *IngestConfig
	log       *zap.Logger
	jobs      chan string
}

// DocconvExtractor implements core.DocumentExtractor using sajari/docconv.
type DocconvExtractor struct {
	useReadability bool
}
