package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/markdave123-py/researchhub/internal/core"
	"github.com/markdave123-py/researchhub/internal/models"
)

// WorkspaceService is the workspace registry of an account.
type WorkspaceService struct {
	db  core.DbClient
	log *zap.Logger
	now func() time.Time
}

func NewWorkspaceService(db core.DbClient, log *zap.Logger) *WorkspaceService {
	return &WorkspaceService{db: db, log: log.Named("workspaces"), now: time.Now}
}

// Create registers a new workspace owned by userID. Names need not be unique.
func (s *WorkspaceService) Create(ctx context.Context, userID, name string) (ws *models.Workspace, err error) {
	ctx, span := tracer.Start(ctx, "workspaces.create")
	defer func() { endSpan(span, err) }()

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, core.Validation("CreateWorkspace", "workspace name must not be empty")
	}

	ws = &models.Workspace{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedBy: userID,
		CreatedAt: s.now().UTC(),
	}
	if err := s.db.CreateWorkspace(ctx, ws); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	span.SetAttributes(attribute.String("workspace.id", ws.ID))
	s.log.Info("workspace created", zap.String("workspace_id", ws.ID), zap.String("user_id", userID))
	return ws, nil
}

// ListAll returns the account's workspaces ordered by creation time. An empty
// slice means "no workspaces yet" and is not an error.
func (s *WorkspaceService) ListAll(ctx context.Context, userID string) ([]models.Workspace, error) {
	out, err := s.db.ListWorkspacesByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list workspaces: %w", err)
	}
	if out == nil {
		out = []models.Workspace{}
	}
	return out, nil
}

// Get returns the workspace when it exists and belongs to userID.
func (s *WorkspaceService) Get(ctx context.Context, userID, workspaceID string) (*models.Workspace, error) {
	if strings.TrimSpace(workspaceID) == "" {
		return nil, core.NotFound("GetWorkspace", "workspace id is required")
	}
	ws, err := s.db.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("get workspace: %w", err)
	}
	if ws == nil || ws.CreatedBy != userID {
		return nil, core.NotFound("GetWorkspace", "workspace %s not found", workspaceID)
	}
	return ws, nil
}
