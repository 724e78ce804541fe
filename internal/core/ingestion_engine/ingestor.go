package ingestion_engine

import "context"

type Ingestor interface {
	Start(ctx context.Context, numWorkers int)
	Enqueue(ctx context.Context, paperID string) error
	ProcessOne(ctx context.Context, paperID string) error
}
