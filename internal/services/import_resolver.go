package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/markdave123-py/researchhub/internal/core"
	"github.com/markdave123-py/researchhub/internal/models"
)

// ImportResolver decides which workspace receives an imported candidate and
// whether the candidate duplicates an existing paper. It holds no state.
type ImportResolver struct {
	workspaces *WorkspaceService
	db         core.DbClient
}

func NewImportResolver(workspaces *WorkspaceService, db core.DbClient) *ImportResolver {
	return &ImportResolver{workspaces: workspaces, db: db}
}

// ResolveTarget applies the selection policy: an explicit target must exist;
// with no target, a single workspace is the default and several require a choice.
func (r *ImportResolver) ResolveTarget(ctx context.Context, userID, explicitID string) (*models.Workspace, error) {
	if id := strings.TrimSpace(explicitID); id != "" {
		return r.workspaces.Get(ctx, userID, id)
	}

	all, err := r.workspaces.ListAll(ctx, userID)
	if err != nil {
		return nil, err
	}
	switch len(all) {
	case 0:
		return nil, core.NotFound("ResolveTarget", "no workspace exists; create one before importing")
	case 1:
		return &all[0], nil
	default:
		return nil, core.AmbiguousTarget("ResolveTarget", len(all))
	}
}

// FindDuplicate returns the paper in workspaceID sharing the candidate's
// source URL, or nil. Candidates without a URL are never duplicates.
func (r *ImportResolver) FindDuplicate(ctx context.Context, workspaceID string, c models.CandidatePaper) (*models.Paper, error) {
	url := strings.TrimSpace(c.SourceURL)
	if url == "" {
		return nil, nil
	}
	p, err := r.db.FindPaperBySourceURL(ctx, workspaceID, url)
	if err != nil {
		return nil, fmt.Errorf("dedup lookup: %w", err)
	}
	return p, nil
}
