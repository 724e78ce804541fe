package db

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"

	"github.com/markdave123-py/researchhub/internal/core"
	"github.com/markdave123-py/researchhub/internal/models"
)

// MemoryClient is an in-process DbClient used for local runs and tests.
// It enforces the same uniqueness and sequencing rules as the Postgres schema.
type MemoryClient struct {
	mu         sync.RWMutex
	users      map[string]*models.User
	workspaces []*models.Workspace
	papers     []*models.Paper
	chunks     []models.PaperChunk
	chats      map[string][]models.ChatMessage
}

var _ core.DbClient = (*MemoryClient)(nil)

func NewMemoryClient() *MemoryClient {
	return &MemoryClient{
		users: make(map[string]*models.User),
		chats: make(map[string][]models.ChatMessage),
	}
}

func (m *MemoryClient) Close() error { return nil }

func (m *MemoryClient) CreateUser(_ context.Context, user *models.User) error {
	if user == nil {
		return errors.New("nil user")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == user.Username {
			return core.Conflict("CreateUser", "username %q is taken", user.Username)
		}
	}
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *MemoryClient) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MemoryClient) GetUserByID(_ context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (m *MemoryClient) CreateWorkspace(_ context.Context, ws *models.Workspace) error {
	if ws == nil {
		return errors.New("nil workspace")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *ws
	m.workspaces = append(m.workspaces, &cp)
	return nil
}

func (m *MemoryClient) workspaceLocked(id string) *models.Workspace {
	for _, ws := range m.workspaces {
		if ws.ID == id {
			return ws
		}
	}
	return nil
}

func (m *MemoryClient) GetWorkspace(_ context.Context, id string) (*models.Workspace, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if ws := m.workspaceLocked(id); ws != nil {
		cp := *ws
		return &cp, nil
	}
	return nil, nil
}

// ListWorkspacesByOwner returns workspaces in insertion (creation) order.
func (m *MemoryClient) ListWorkspacesByOwner(_ context.Context, ownerID string) ([]models.Workspace, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []models.Workspace{}
	for _, ws := range m.workspaces {
		if ws.CreatedBy == ownerID {
			out = append(out, *ws)
		}
	}
	return out, nil
}

func (m *MemoryClient) CreatePaperIfAbsent(_ context.Context, p *models.Paper) (*models.Paper, bool, error) {
	if p == nil {
		return nil, false, errors.New("nil paper")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.workspaceLocked(p.WorkspaceID) == nil {
		return nil, false, core.NotFound("CreatePaperIfAbsent", "workspace %s not found", p.WorkspaceID)
	}
	for _, existing := range m.papers {
		if existing.WorkspaceID != p.WorkspaceID {
			continue
		}
		if sameKey(existing.SourceURL, p.SourceURL) || sameKey(existing.ContentHash, p.ContentHash) {
			cp := *existing
			return &cp, false, nil
		}
	}
	cp := *p
	m.papers = append(m.papers, &cp)
	out := cp
	return &out, true, nil
}

func sameKey(a, b *string) bool {
	return a != nil && b != nil && *a == *b
}

func (m *MemoryClient) GetPaperByID(_ context.Context, id string) (*models.Paper, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.papers {
		if p.ID == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MemoryClient) FindPaperBySourceURL(_ context.Context, workspaceID, sourceURL string) (*models.Paper, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.papers {
		if p.WorkspaceID == workspaceID && p.SourceURL != nil && *p.SourceURL == sourceURL {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MemoryClient) FindPaperByContentHash(_ context.Context, workspaceID, contentHash string) (*models.Paper, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.papers {
		if p.WorkspaceID == workspaceID && p.ContentHash != nil && *p.ContentHash == contentHash {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MemoryClient) ListPapersByWorkspace(ctx context.Context, workspaceID string) ([]models.Paper, error) {
	return m.ListPapersByWorkspaceLimit(ctx, workspaceID, -1)
}

// ListPapersByWorkspaceLimit returns at most limit papers; a negative limit
// returns all of them.
func (m *MemoryClient) ListPapersByWorkspaceLimit(_ context.Context, workspaceID string, limit int) ([]models.Paper, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []models.Paper{}
	for _, p := range m.papers {
		if limit >= 0 && len(out) >= limit {
			break
		}
		if p.WorkspaceID == workspaceID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *MemoryClient) CountPapersByWorkspace(_ context.Context, workspaceID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, p := range m.papers {
		if p.WorkspaceID == workspaceID {
			n++
		}
	}
	return n, nil
}

func (m *MemoryClient) InsertPaperChunks(_ context.Context, chunks []models.PaperChunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks = append(m.chunks, chunks...)
	return nil
}

// SearchWorkspaceChunks ranks by euclidean distance, matching pgvector's <-> operator.
func (m *MemoryClient) SearchWorkspaceChunks(_ context.Context, workspaceID string, queryVec []float32, limit int) ([]models.PaperChunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	type scored struct {
		chunk models.PaperChunk
		dist  float64
	}
	var candidates []scored
	for _, ch := range m.chunks {
		if ch.WorkspaceID == workspaceID {
			candidates = append(candidates, scored{chunk: ch, dist: l2(ch.Embedding, queryVec)})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].dist < candidates[j].dist })
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]models.PaperChunk, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.chunk)
	}
	return out, nil
}

func l2(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		d := float64(a[i] - b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

func (m *MemoryClient) AppendChatMessage(_ context.Context, msg *models.ChatMessage) error {
	if msg == nil {
		return errors.New("nil chat message")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.workspaceLocked(msg.WorkspaceID) == nil {
		return core.NotFound("AppendChatMessage", "workspace %s not found", msg.WorkspaceID)
	}
	history := m.chats[msg.WorkspaceID]
	var next int64 = 1
	if len(history) > 0 {
		next = history[len(history)-1].Sequence + 1
	}
	msg.Sequence = next
	m.chats[msg.WorkspaceID] = append(history, *msg)
	return nil
}

func (m *MemoryClient) ListChatMessages(_ context.Context, workspaceID string) ([]models.ChatMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.ChatMessage, len(m.chats[workspaceID]))
	copy(out, m.chats[workspaceID])
	return out, nil
}

func (m *MemoryClient) CountChatMessages(_ context.Context, workspaceID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chats[workspaceID]), nil
}

func (m *MemoryClient) DeleteChatMessages(_ context.Context, workspaceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.chats, workspaceID)
	return nil
}
