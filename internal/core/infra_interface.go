package core

import (
	"context"
	"io"
	"time"

	"github.com/markdave123-py/researchhub/internal/models"
)

// DbClient defines all persistence operations the services need.
// It abstracts Postgres/pgvector so higher layers never depend on a specific DB.
// Lookups that find nothing return (nil, nil).
type DbClient interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	CreateWorkspace(ctx context.Context, ws *models.Workspace) error
	GetWorkspace(ctx context.Context, id string) (*models.Workspace, error)
	ListWorkspacesByOwner(ctx context.Context, ownerID string) ([]models.Workspace, error)

	// CreatePaperIfAbsent inserts p unless a paper with the same non-null
	// source URL (or content hash) already exists in p's workspace, in which
	// case the existing row is returned with created=false.
	CreatePaperIfAbsent(ctx context.Context, p *models.Paper) (paper *models.Paper, created bool, err error)
	GetPaperByID(ctx context.Context, id string) (*models.Paper, error)
	FindPaperBySourceURL(ctx context.Context, workspaceID, sourceURL string) (*models.Paper, error)
	FindPaperByContentHash(ctx context.Context, workspaceID, contentHash string) (*models.Paper, error)
	ListPapersByWorkspace(ctx context.Context, workspaceID string) ([]models.Paper, error)
	ListPapersByWorkspaceLimit(ctx context.Context, workspaceID string, limit int) ([]models.Paper, error)
	CountPapersByWorkspace(ctx context.Context, workspaceID string) (int, error)

	InsertPaperChunks(ctx context.Context, chunks []models.PaperChunk) error
	SearchWorkspaceChunks(ctx context.Context, workspaceID string, queryVec []float32, limit int) ([]models.PaperChunk, error)

	// AppendChatMessage assigns msg.Sequence = max(sequence)+1 for the
	// workspace atomically and persists the message.
	AppendChatMessage(ctx context.Context, msg *models.ChatMessage) error
	ListChatMessages(ctx context.Context, workspaceID string) ([]models.ChatMessage, error)
	CountChatMessages(ctx context.Context, workspaceID string) (int, error)
	DeleteChatMessages(ctx context.Context, workspaceID string) error

	Close() error
}

// ObjectClient defines interactions with S3 or any object storage.
type ObjectClient interface {
	UploadFile(ctx context.Context, bucket, key string, data io.Reader, contentType string) (url string, err error)
	DeleteFile(ctx context.Context, bucket, key string) error
	GetFile(ctx context.Context, bucket, key string) ([]byte, error)
}

// PaperIndex is the external paper index queried by search ingestion.
type PaperIndex interface {
	Search(ctx context.Context, query string, maxResults int) ([]models.CandidatePaper, error)
}

// TokenDenylist records revoked bearer tokens until they expire.
type TokenDenylist interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}
