package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/markdave123-py/researchhub/internal/core"
	"github.com/markdave123-py/researchhub/internal/models"
)

const (
	pdfMIME        = "application/pdf"
	enqueueTimeout = 2 * time.Second
)

// IngestQueue receives ids of uploaded papers for background text ingestion.
type IngestQueue interface {
	Enqueue(ctx context.Context, paperID string) error
}

// PaperService is the per-workspace paper catalog.
type PaperService struct {
	db         core.DbClient
	obj        core.ObjectClient
	bucket     string
	workspaces *WorkspaceService
	resolver   *ImportResolver
	ingest     IngestQueue
	log        *zap.Logger
	now        func() time.Time
}

func NewPaperService(
	db core.DbClient,
	obj core.ObjectClient,
	bucket string,
	workspaces *WorkspaceService,
	resolver *ImportResolver,
	ingest IngestQueue,
	log *zap.Logger,
) *PaperService {
	return &PaperService{
		db:         db,
		obj:        obj,
		bucket:     bucket,
		workspaces: workspaces,
		resolver:   resolver,
		ingest:     ingest,
		log:        log.Named("papers"),
		now:        time.Now,
	}
}

func (s *PaperService) ListByWorkspace(ctx context.Context, userID, workspaceID string) ([]models.Paper, error) {
	if _, err := s.workspaces.Get(ctx, userID, workspaceID); err != nil {
		return nil, err
	}
	papers, err := s.db.ListPapersByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list papers: %w", err)
	}
	if papers == nil {
		papers = []models.Paper{}
	}
	return papers, nil
}

// AddFromImport persists a search candidate into the resolved workspace.
// Importing a candidate whose source URL is already present returns the
// existing paper and created=false.
func (s *PaperService) AddFromImport(ctx context.Context, userID string, c models.CandidatePaper, workspaceID string) (p *models.Paper, created bool, err error) {
	ctx, span := tracer.Start(ctx, "papers.import")
	defer func() { endSpan(span, err) }()

	c.Title = strings.TrimSpace(c.Title)
	c.SourceURL = strings.TrimSpace(c.SourceURL)
	if c.Title == "" {
		return nil, false, core.Validation("ImportPaper", "candidate paper has no title")
	}

	ws, err := s.resolver.ResolveTarget(ctx, userID, workspaceID)
	if err != nil {
		return nil, false, err
	}
	span.SetAttributes(attribute.String("workspace.id", ws.ID))

	existing, err := s.resolver.FindDuplicate(ctx, ws.ID, c)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	p = &models.Paper{
		ID:            uuid.NewString(),
		WorkspaceID:   ws.ID,
		Title:         c.Title,
		Authors:       c.Authors,
		Abstract:      c.Abstract,
		PublishedDate: c.PublishedDate,
		Origin:        models.OriginSearchImport,
		CreatedAt:     s.now().UTC(),
	}
	if c.SourceURL != "" {
		url := c.SourceURL
		p.SourceURL = &url
	}

	// The store re-checks the key so two concurrent imports still yield one row.
	stored, created, err := s.db.CreatePaperIfAbsent(ctx, p)
	if err != nil {
		return nil, false, fmt.Errorf("import paper: %w", err)
	}
	if created {
		s.log.Info("paper imported", zap.String("paper_id", stored.ID), zap.String("workspace_id", ws.ID))
	}
	return stored, created, nil
}

// AddFromUpload stores a PDF and records it as an upload-origin paper titled
// after its filename. Identical content in the same workspace is returned
// as the existing paper.
func (s *PaperService) AddFromUpload(ctx context.Context, userID, workspaceID, filename string, data []byte) (p *models.Paper, created bool, err error) {
	ctx, span := tracer.Start(ctx, "papers.upload")
	defer func() { endSpan(span, err) }()

	filename = filepath.Base(strings.TrimSpace(filename))
	if filename == "" || filename == "." || filename == string(filepath.Separator) {
		return nil, false, core.Validation("UploadPaper", "a filename is required")
	}
	if len(data) == 0 || !mimetype.Detect(data).Is(pdfMIME) {
		return nil, false, core.UnsupportedFormat("UploadPaper", "%s is not a PDF document", filename)
	}

	ws, err := s.workspaces.Get(ctx, userID, workspaceID)
	if err != nil {
		return nil, false, err
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])
	if existing, err := s.db.FindPaperByContentHash(ctx, ws.ID, hash); err != nil {
		return nil, false, fmt.Errorf("upload dedup lookup: %w", err)
	} else if existing != nil {
		return existing, false, nil
	}

	id := uuid.NewString()
	key := fmt.Sprintf("%s/%s/%s/%s", userID, ws.ID, id, filename)
	url, err := s.obj.UploadFile(ctx, s.bucket, key, bytes.NewReader(data), pdfMIME)
	if err != nil {
		return nil, false, core.Upstream("UploadPaper", err)
	}

	p = &models.Paper{
		ID:          id,
		WorkspaceID: ws.ID,
		Title:       filename,
		Origin:      models.OriginUpload,
		FileRef:     &url,
		ContentHash: &hash,
		ContentType: pdfMIME,
		CreatedAt:   s.now().UTC(),
	}
	stored, created, err := s.db.CreatePaperIfAbsent(ctx, p)
	if err != nil || !created {
		if delErr := s.obj.DeleteFile(ctx, s.bucket, key); delErr != nil {
			s.log.Warn("orphaned upload object", zap.String("key", key), zap.Error(delErr))
		}
		if err != nil {
			return nil, false, fmt.Errorf("record upload: %w", err)
		}
		return stored, false, nil
	}

	s.log.Info("paper uploaded", zap.String("paper_id", stored.ID), zap.String("workspace_id", ws.ID), zap.Int("bytes", len(data)))
	if s.ingest != nil {
		qctx, cancel := context.WithTimeout(ctx, enqueueTimeout)
		defer cancel()
		if err := s.ingest.Enqueue(qctx, stored.ID); err != nil {
			s.log.Warn("ingestion not queued", zap.String("paper_id", stored.ID), zap.Error(err))
		}
	}
	return stored, true, nil
}
