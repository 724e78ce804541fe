package ingestion_engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/researchhub/internal/core"
	objectclient "github.com/markdave123-py/researchhub/internal/core/object-client"
	"github.com/markdave123-py/researchhub/internal/models"
)

var _ Ingestor = (*PaperIngestor)(nil)

// NewPaperIngestor constructs the ingestor with a bounded job queue.
func NewPaperIngestor(db core.DbClient, obj core.ObjectClient, emb core.EmbeddingProvider, extractor core.DocumentExtractor, cfg *IngestConfig, log *zap.Logger) *PaperIngestor {
	if cfg == nil {
		cfg = DefaultIngestConfig()
	}
	return &PaperIngestor{
		db: db, obj: obj, embedder: emb, extractor: extractor, cfg: cfg,
		log:  log.Named("ingestor"),
		jobs: make(chan string, cfg.QueueSize),
	}
}

// Start runs numWorkers goroutines reading from the jobs channel until ctx ends.
func (i *PaperIngestor) Start(ctx context.Context, numWorkers int) {
	for w := 1; w <= numWorkers; w++ {
		go func(w int) {
			for {
				select {
				case <-ctx.Done():
					i.log.Debug("worker shutting down", zap.Int("worker", w))
					return
				case paperID := <-i.jobs:
					i.log.Info("processing paper", zap.String("paper_id", paperID), zap.Int("worker", w))
					if err := i.ProcessOne(ctx, paperID); err != nil {
						i.log.Warn("ingestion failed", zap.String("paper_id", paperID), zap.Error(err))
					}
				}
			}
		}(w)
	}
}

// Enqueue schedules a paper for ingestion, blocking until the queue has room
// or ctx ends.
func (i *PaperIngestor) Enqueue(ctx context.Context, paperID string) error {
	select {
	case i.jobs <- paperID:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ProcessOne fetches, extracts, chunks, embeds and persists a single uploaded paper.
// The paper row itself is never modified.
func (i *PaperIngestor) ProcessOne(ctx context.Context, paperID string) error {
	proctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	paper, err := i.db.GetPaperByID(proctx, paperID)
	if err != nil {
		return fmt.Errorf("load paper: %w", err)
	}
	if paper == nil {
		return fmt.Errorf("paper %s not found", paperID)
	}
	if paper.FileRef == nil {
		return nil
	}

	bucket, key := objectclient.ParseObjectURL(*paper.FileRef)
	data, err := i.obj.GetFile(proctx, bucket, key)
	if err != nil {
		return fmt.Errorf("get object: %w", err)
	}

	g, gctx := errgroup.WithContext(proctx)

	fragCh, err := i.extractor.ExtractText(gctx, data, paper.ContentType)
	if err != nil {
		return err
	}

	chunkCh := i.streamChunk(gctx, g, fragCh, i.cfg.TargetTokens, i.cfg.OverlapTokens)

	g.Go(func() error {
		return i.embedAndPersist(gctx, paper, chunkCh, i.cfg.BatchSize)
	})

	return g.Wait()
}

// embedAndPersist consumes chunks, embeds them in batches, and writes them.
func (i *PaperIngestor) embedAndPersist(ctx context.Context, paper *models.Paper, in <-chan chunk, batchSize int) error {
	if batchSize <= 0 {
		batchSize = 16
	}
	batch := make([]chunk, 0, batchSize)
	stored := 0

	flush := func(items []chunk) error {
		if len(items) == 0 {
			return nil
		}
		texts := make([]string, len(items))
		for idx := range items {
			texts[idx] = items[idx].Text
		}

		vecs, err := i.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed: %w", err)
		}
		if len(vecs) != len(items) {
			return fmt.Errorf("embed size mismatch: got %d want %d", len(vecs), len(items))
		}

		now := time.Now().UTC()
		rows := make([]models.PaperChunk, len(items))
		for k := range items {
			rows[k] = models.PaperChunk{
				ID:          uuid.NewString(),
				PaperID:     paper.ID,
				WorkspaceID: paper.WorkspaceID,
				Text:        items[k].Text,
				Embedding:   vecs[k],
				Position:    items[k].Pos,
				TokenCount:  items[k].TokenCnt,
				CreatedAt:   now,
			}
		}
		if err := i.db.InsertPaperChunks(ctx, rows); err != nil {
			return fmt.Errorf("insert chunks: %w", err)
		}
		stored += len(rows)
		return nil
	}

	for c := range in {
		batch = append(batch, c)
		if len(batch) == batchSize {
			if err := flush(batch); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := flush(batch); err != nil {
		return err
	}
	i.log.Info("paper ingested", zap.String("paper_id", paper.ID), zap.Int("chunks", stored))
	return nil
}
