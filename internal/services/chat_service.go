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

const (
	chatTopK          = 5
	chatRecentHistory = 4
	chatSystemPrompt  = "You are a research assistant. Answer only from the papers and excerpts provided. " +
		"If the papers do not contain the answer, say so. Use **bold** for key terms."
)

// ChatService owns the per-workspace question/answer transcript.
type ChatService struct {
	db         core.DbClient
	workspaces *WorkspaceService
	llm        core.LLMProvider
	embedder   core.EmbeddingProvider
	log        *zap.Logger
	now        func() time.Time
}

// NewChatService wires the assistant. embedder may be nil, in which case only
// paper metadata is used as context.
func NewChatService(db core.DbClient, workspaces *WorkspaceService, llm core.LLMProvider, embedder core.EmbeddingProvider, log *zap.Logger) *ChatService {
	return &ChatService{
		db:         db,
		workspaces: workspaces,
		llm:        llm,
		embedder:   embedder,
		log:        log.Named("chat"),
		now:        time.Now,
	}
}

// Send asks the assistant about the workspace's papers and appends the
// exchange. Nothing is stored when validation or the assistant fails.
func (s *ChatService) Send(ctx context.Context, userID, workspaceID, question string) (msg *models.ChatMessage, err error) {
	ctx, span := tracer.Start(ctx, "chat.send")
	defer func() { endSpan(span, err) }()

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, core.Validation("SendChat", "message must not be empty")
	}
	ws, err := s.workspaces.Get(ctx, userID, workspaceID)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("workspace.id", ws.ID))

	papers, err := s.db.ListPapersByWorkspace(ctx, ws.ID)
	if err != nil {
		return nil, fmt.Errorf("load chat context: %w", err)
	}
	if len(papers) == 0 {
		return nil, core.EmptyContext("SendChat", ws.ID)
	}

	history, err := s.db.ListChatMessages(ctx, ws.ID)
	if err != nil {
		return nil, fmt.Errorf("load chat history: %w", err)
	}

	prompt := buildPrompt(papers, s.excerpts(ctx, ws.ID, question), history, question)
	answer, err := s.llm.Generate(ctx, chatSystemPrompt, prompt)
	if err != nil {
		s.log.Warn("assistant failed", zap.String("workspace_id", ws.ID), zap.Error(err))
		return nil, core.Upstream("SendChat", err)
	}

	msg = &models.ChatMessage{
		ID:          uuid.NewString(),
		WorkspaceID: ws.ID,
		Question:    question,
		Answer:      strings.TrimSpace(answer),
		AskedAt:     s.now().UTC(),
	}
	if err := s.db.AppendChatMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("append chat message: %w", err)
	}
	span.SetAttributes(attribute.Int64("chat.sequence", msg.Sequence))
	return msg, nil
}

// excerpts returns the chunks closest to the question. Retrieval failures
// degrade to metadata-only context.
func (s *ChatService) excerpts(ctx context.Context, workspaceID, question string) []models.PaperChunk {
	if s.embedder == nil {
		return nil
	}
	vecs, err := s.embedder.EmbedTexts(ctx, []string{question})
	if err != nil || len(vecs) == 0 {
		s.log.Warn("question embedding failed", zap.String("workspace_id", workspaceID), zap.Error(err))
		return nil
	}
	chunks, err := s.db.SearchWorkspaceChunks(ctx, workspaceID, vecs[0], chatTopK)
	if err != nil {
		s.log.Warn("chunk retrieval failed", zap.String("workspace_id", workspaceID), zap.Error(err))
		return nil
	}
	return chunks
}

func buildPrompt(papers []models.Paper, chunks []models.PaperChunk, history []models.ChatMessage, question string) string {
	var b strings.Builder
	b.WriteString("Papers in this workspace:\n")
	for i, p := range papers {
		fmt.Fprintf(&b, "[%d] %s", i+1, p.Title)
		if p.Authors != "" {
			fmt.Fprintf(&b, " by %s", p.Authors)
		}
		if p.PublishedDate != "" {
			fmt.Fprintf(&b, " (%s)", p.PublishedDate)
		}
		b.WriteString("\n")
		if p.Abstract != "" {
			fmt.Fprintf(&b, "    %s\n", p.Abstract)
		}
	}

	if len(chunks) > 0 {
		b.WriteString("\nRelevant excerpts:\n")
		for _, ch := range chunks {
			fmt.Fprintf(&b, "- %s\n", ch.Text)
		}
	}

	if start := len(history) - chatRecentHistory; len(history) > 0 {
		if start < 0 {
			start = 0
		}
		b.WriteString("\nEarlier in this conversation:\n")
		for _, m := range history[start:] {
			fmt.Fprintf(&b, "Q: %s\nA: %s\n", m.Question, m.Answer)
		}
	}

	fmt.Fprintf(&b, "\nQuestion: %s", question)
	return b.String()
}

func (s *ChatService) GetHistory(ctx context.Context, userID, workspaceID string) ([]models.ChatMessage, error) {
	ws, err := s.workspaces.Get(ctx, userID, workspaceID)
	if err != nil {
		return nil, err
	}
	out, err := s.db.ListChatMessages(ctx, ws.ID)
	if err != nil {
		return nil, fmt.Errorf("list chat history: %w", err)
	}
	if out == nil {
		out = []models.ChatMessage{}
	}
	return out, nil
}

// Clear irreversibly deletes the transcript. Clearing an empty history succeeds.
func (s *ChatService) Clear(ctx context.Context, userID, workspaceID string) error {
	ws, err := s.workspaces.Get(ctx, userID, workspaceID)
	if err != nil {
		return err
	}
	if err := s.db.DeleteChatMessages(ctx, ws.ID); err != nil {
		return fmt.Errorf("clear chat history: %w", err)
	}
	s.log.Info("chat cleared", zap.String("workspace_id", ws.ID))
	return nil
}
