package services

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/researchhub/internal/core"
	"github.com/markdave123-py/researchhub/internal/models"
)

const (
	recentPerWorkspace = 3
	recentTotal        = 5
)

type RecentPaper struct {
	Workspace string `json:"workspace"`
	Title     string `json:"title"`
	Date      string `json:"date"`
}

type DashboardSummary struct {
	Workspaces int                     `json:"workspaces"`
	Papers     int                     `json:"papers"`
	Chats      int                     `json:"chats"`
	Recent     []RecentPaper           `json:"recent"`
	PerSpace   []models.WorkspaceStats `json:"perWorkspace"`
}

// DashboardService aggregates counts across an account's workspaces in one
// bounded fan-out instead of a paper and chat fetch per workspace.
type DashboardService struct {
	db          core.DbClient
	workspaces  *WorkspaceService
	concurrency int
	log         *zap.Logger
}

func NewDashboardService(db core.DbClient, workspaces *WorkspaceService, concurrency int, log *zap.Logger) *DashboardService {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &DashboardService{db: db, workspaces: workspaces, concurrency: concurrency, log: log.Named("dashboard")}
}

func (s *DashboardService) Summary(ctx context.Context, userID string) (out *DashboardSummary, err error) {
	ctx, span := tracer.Start(ctx, "dashboard.summary")
	defer func() { endSpan(span, err) }()

	all, err := s.workspaces.ListAll(ctx, userID)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("dashboard.workspaces", len(all)))

	stats := make([]models.WorkspaceStats, len(all))
	recent := make([][]RecentPaper, len(all))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, ws := range all {
		g.Go(func() error {
			count, err := s.db.CountPapersByWorkspace(gctx, ws.ID)
			if err != nil {
				return fmt.Errorf("papers of %s: %w", ws.ID, err)
			}
			papers, err := s.db.ListPapersByWorkspaceLimit(gctx, ws.ID, recentPerWorkspace)
			if err != nil {
				return fmt.Errorf("recent papers of %s: %w", ws.ID, err)
			}
			chats, err := s.db.CountChatMessages(gctx, ws.ID)
			if err != nil {
				return fmt.Errorf("chats of %s: %w", ws.ID, err)
			}
			stats[i] = models.WorkspaceStats{WorkspaceID: ws.ID, Papers: count, Chats: chats}
			for _, p := range papers {
				recent[i] = append(recent[i], RecentPaper{Workspace: ws.Name, Title: p.Title, Date: p.PublishedDate})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out = &DashboardSummary{Workspaces: len(all), Recent: []RecentPaper{}, PerSpace: stats}
	for i := range all {
		out.Papers += stats[i].Papers
		out.Chats += stats[i].Chats
		for _, r := range recent[i] {
			if len(out.Recent) < recentTotal {
				out.Recent = append(out.Recent, r)
			}
		}
	}
	return out, nil
}
