package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/markdave123-py/researchhub/internal/core"
	db "github.com/markdave123-py/researchhub/internal/core/database"
	"github.com/markdave123-py/researchhub/internal/core/llm"
	objectclient "github.com/markdave123-py/researchhub/internal/core/object-client"
	sessionstore "github.com/markdave123-py/researchhub/internal/core/session-store"
	"github.com/markdave123-py/researchhub/internal/models"
)

const user = "user-1"

type fakeIndex struct {
	results []models.CandidatePaper
	err     error
}

func (f fakeIndex) Search(context.Context, string, int) ([]models.CandidatePaper, error) {
	return f.results, f.err
}

type failingLLM struct{}

func (failingLLM) Generate(context.Context, string, string) (string, error) {
	return "", errors.New("model unavailable")
}

type recordingQueue struct {
	mu  sync.Mutex
	ids []string
}

func (q *recordingQueue) Enqueue(_ context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ids = append(q.ids, id)
	return nil
}

type fixture struct {
	store      *db.MemoryClient
	objects    *objectclient.MemoryClient
	queue      *recordingQueue
	workspaces *WorkspaceService
	papers     *PaperService
	chat       *ChatService
	dashboard  *DashboardService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := zap.NewNop()
	store := db.NewMemoryClient()
	objects := objectclient.NewMemoryClient()
	queue := &recordingQueue{}
	ws := NewWorkspaceService(store, log)
	return &fixture{
		store:      store,
		objects:    objects,
		queue:      queue,
		workspaces: ws,
		papers:     NewPaperService(store, objects, "papers", ws, NewImportResolver(ws, store), queue, log),
		chat:       NewChatService(store, ws, llm.NewMockLLM(), llm.MockEmbedder{Dim: 8}, log),
		dashboard:  NewDashboardService(store, ws, 2, log),
	}
}

func candidate(n int) models.CandidatePaper {
	return models.CandidatePaper{
		Title:         fmt.Sprintf("Paper %d", n),
		Authors:       "A. Author",
		Abstract:      "About transformers.",
		PublishedDate: "2017-06-12",
		SourceURL:     fmt.Sprintf("http://arxiv.org/abs/%d", n),
	}
}

func TestCreateWorkspace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.workspaces.Create(ctx, user, "   ")
	assert.True(t, errors.Is(err, core.ErrValidation))

	a, err := f.workspaces.Create(ctx, user, "ML Papers")
	require.NoError(t, err)
	b, err := f.workspaces.Create(ctx, user, "ML Papers")
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)

	all, err := f.workspaces.ListAll(ctx, user)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, a.ID, all[0].ID)

	other, err := f.workspaces.ListAll(ctx, "someone-else")
	require.NoError(t, err)
	assert.NotNil(t, other)
	assert.Empty(t, other)

	_, err = f.workspaces.Get(ctx, "someone-else", a.ID)
	assert.True(t, errors.Is(err, core.ErrNotFound))
}

func TestResolveTarget(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := NewImportResolver(f.workspaces, f.store)

	_, err := r.ResolveTarget(ctx, user, "")
	assert.Equal(t, core.KindNotFound, core.KindOf(err))

	a, _ := f.workspaces.Create(ctx, user, "A")
	got, err := r.ResolveTarget(ctx, user, "")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	b, _ := f.workspaces.Create(ctx, user, "B")
	_, err = r.ResolveTarget(ctx, user, "")
	assert.True(t, errors.Is(err, core.ErrAmbiguousTarget))

	got, err = r.ResolveTarget(ctx, user, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)

	_, err = r.ResolveTarget(ctx, user, "missing")
	assert.True(t, errors.Is(err, core.ErrNotFound))
}

func TestImportIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ws, _ := f.workspaces.Create(ctx, user, "ML Papers")

	first, created, err := f.papers.AddFromImport(ctx, user, candidate(1), "")
	require.NoError(t, err)
	assert.True(t, created)
	second, created, err := f.papers.AddFromImport(ctx, user, candidate(1), ws.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first, second)

	papers, err := f.papers.ListByWorkspace(ctx, user, ws.ID)
	require.NoError(t, err)
	assert.Len(t, papers, 1)
}

func TestImportWithoutURLSkipsDedup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ws, _ := f.workspaces.Create(ctx, user, "Notes")

	c := candidate(1)
	c.SourceURL = ""
	for i := 0; i < 2; i++ {
		p, created, err := f.papers.AddFromImport(ctx, user, c, ws.ID)
		require.NoError(t, err)
		assert.True(t, created)
		assert.Nil(t, p.SourceURL)
	}
	papers, _ := f.papers.ListByWorkspace(ctx, user, ws.ID)
	assert.Len(t, papers, 2)
}

func TestImportAmbiguousLeavesCatalogUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, _ := f.workspaces.Create(ctx, user, "A")
	b, _ := f.workspaces.Create(ctx, user, "B")

	_, _, err := f.papers.AddFromImport(ctx, user, candidate(1), "")
	assert.True(t, errors.Is(err, core.ErrAmbiguousTarget))

	for _, id := range []string{a.ID, b.ID} {
		papers, err := f.papers.ListByWorkspace(ctx, user, id)
		require.NoError(t, err)
		assert.Empty(t, papers)
	}
}

func TestImportRejectsUntitledCandidate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, _ = f.workspaces.Create(ctx, user, "A")

	c := candidate(1)
	c.Title = " "
	_, _, err := f.papers.AddFromImport(ctx, user, c, "")
	assert.True(t, errors.Is(err, core.ErrValidation))
}

func TestConcurrentImportsKeepOneCopy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ws, _ := f.workspaces.Create(ctx, user, "A")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := f.papers.AddFromImport(ctx, user, candidate(7), ws.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	papers, _ := f.papers.ListByWorkspace(ctx, user, ws.ID)
	assert.Len(t, papers, 1)
}

func TestUpload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ws, _ := f.workspaces.Create(ctx, user, "Uploads")
	pdf := []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n%%EOF\n")

	_, _, err := f.papers.AddFromUpload(ctx, user, ws.ID, "notes.txt", []byte("just text"))
	assert.True(t, errors.Is(err, core.ErrUnsupportedFormat))

	_, _, err = f.papers.AddFromUpload(ctx, user, "missing", "paper.pdf", pdf)
	assert.True(t, errors.Is(err, core.ErrNotFound))

	p, created, err := f.papers.AddFromUpload(ctx, user, ws.ID, "paper.pdf", pdf)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "paper.pdf", p.Title)
	assert.Equal(t, models.OriginUpload, p.Origin)
	assert.Empty(t, p.Authors)
	assert.Nil(t, p.SourceURL)
	require.NotNil(t, p.FileRef)

	bucket, key := objectclient.ParseObjectURL(*p.FileRef)
	stored, err := f.objects.GetFile(ctx, bucket, key)
	require.NoError(t, err)
	assert.Equal(t, pdf, stored)
	assert.Equal(t, []string{p.ID}, f.queue.ids)

	again, created, err := f.papers.AddFromUpload(ctx, user, ws.ID, "copy.pdf", pdf)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, p.ID, again.ID)

	other, _ := f.workspaces.Create(ctx, user, "Other")
	_, created, err = f.papers.AddFromUpload(ctx, user, other.ID, "paper.pdf", pdf)
	require.NoError(t, err)
	assert.True(t, created)
}

func TestSearch(t *testing.T) {
	log := zap.NewNop()

	_, err := NewSearchService(fakeIndex{}, 5, log).Search(context.Background(), "  ")
	assert.True(t, errors.Is(err, core.ErrValidation))

	got, err := NewSearchService(fakeIndex{}, 5, log).Search(context.Background(), "nothing")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	_, err = NewSearchService(fakeIndex{err: errors.New("dial tcp: refused")}, 5, log).Search(context.Background(), "x")
	assert.True(t, errors.Is(err, core.ErrUpstream))

	got, err = NewSearchService(fakeIndex{results: []models.CandidatePaper{candidate(1), candidate(2), candidate(3)}}, 5, log).
		Search(context.Background(), "transformer")
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestChatRequiresPapers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ws, _ := f.workspaces.Create(ctx, user, "Empty")

	_, err := f.chat.Send(ctx, user, ws.ID, "summarize this")
	assert.True(t, errors.Is(err, core.ErrEmptyContext))
	n, _ := f.store.CountChatMessages(ctx, ws.ID)
	assert.Zero(t, n)

	_, err = f.chat.Send(ctx, user, "missing", "hi")
	assert.True(t, errors.Is(err, core.ErrNotFound))

	_, err = f.chat.Send(ctx, user, ws.ID, "  ")
	assert.True(t, errors.Is(err, core.ErrValidation))
}

func TestChatSequenceAndClear(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ws, _ := f.workspaces.Create(ctx, user, "ML Papers")
	_, _, err := f.papers.AddFromImport(ctx, user, candidate(1), "")
	require.NoError(t, err)

	require.NoError(t, f.chat.Clear(ctx, user, ws.ID))

	for i := 1; i <= 3; i++ {
		msg, err := f.chat.Send(ctx, user, ws.ID, fmt.Sprintf("question %d", i))
		require.NoError(t, err)
		assert.Equal(t, int64(i), msg.Sequence)
		assert.Contains(t, msg.Answer, fmt.Sprintf("question %d", i))
	}

	history, err := f.chat.GetHistory(ctx, user, ws.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	for i := 1; i < len(history); i++ {
		assert.Greater(t, history[i].Sequence, history[i-1].Sequence)
	}

	require.NoError(t, f.chat.Clear(ctx, user, ws.ID))
	history, err = f.chat.GetHistory(ctx, user, ws.ID)
	require.NoError(t, err)
	assert.Empty(t, history)

	assert.True(t, errors.Is(f.chat.Clear(ctx, user, "missing"), core.ErrNotFound))
}

func TestChatUpstreamFailureAppendsNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ws, _ := f.workspaces.Create(ctx, user, "A")
	_, _, _ = f.papers.AddFromImport(ctx, user, candidate(1), "")

	chat := NewChatService(f.store, f.workspaces, failingLLM{}, nil, zap.NewNop())
	_, err := chat.Send(ctx, user, ws.ID, "hello")
	assert.True(t, errors.Is(err, core.ErrUpstream))

	history, _ := chat.GetHistory(ctx, user, ws.ID)
	assert.Empty(t, history)
}

func TestEndToEndScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ws, err := f.workspaces.Create(ctx, user, "ML Papers")
	require.NoError(t, err)

	search := NewSearchService(fakeIndex{results: []models.CandidatePaper{candidate(1), candidate(2), candidate(3)}}, 10, zap.NewNop())
	found, err := search.Search(ctx, "transformer")
	require.NoError(t, err)
	require.Len(t, found, 3)

	_, _, err = f.papers.AddFromImport(ctx, user, found[0], "")
	require.NoError(t, err)

	papers, err := f.papers.ListByWorkspace(ctx, user, ws.ID)
	require.NoError(t, err)
	require.Len(t, papers, 1)
	require.NotNil(t, papers[0].SourceURL)
	assert.Equal(t, found[0].SourceURL, *papers[0].SourceURL)

	msg, err := f.chat.Send(ctx, user, ws.ID, "summarize this")
	require.NoError(t, err)
	assert.Equal(t, int64(1), msg.Sequence)
}

func TestDashboardSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	empty, err := f.dashboard.Summary(ctx, user)
	require.NoError(t, err)
	assert.Zero(t, empty.Workspaces)
	assert.NotNil(t, empty.Recent)

	a, _ := f.workspaces.Create(ctx, user, "A")
	b, _ := f.workspaces.Create(ctx, user, "B")
	for i := 0; i < 4; i++ {
		_, _, err := f.papers.AddFromImport(ctx, user, candidate(i), a.ID)
		require.NoError(t, err)
	}
	for i := 10; i < 13; i++ {
		_, _, err := f.papers.AddFromImport(ctx, user, candidate(i), b.ID)
		require.NoError(t, err)
	}
	_, err = f.chat.Send(ctx, user, b.ID, "what is new?")
	require.NoError(t, err)

	sum, err := f.dashboard.Summary(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Workspaces)
	assert.Equal(t, 7, sum.Papers)
	assert.Equal(t, 1, sum.Chats)
	require.Len(t, sum.Recent, 5)
	assert.Equal(t, "A", sum.Recent[0].Workspace)
	assert.Equal(t, "B", sum.Recent[3].Workspace)
}

func newAuth(now func() time.Time) *AuthService {
	s := NewAuthService(db.NewMemoryClient(), sessionstore.NewMemoryDenylist(), "secret", time.Hour, zap.NewNop())
	if now != nil {
		s.now = now
	}
	return s
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	s := newAuth(nil)

	_, err := s.Register(ctx, RegisterInput{Username: "ab", Password: "secret1"})
	assert.True(t, errors.Is(err, core.ErrValidation))
	_, err = s.Register(ctx, RegisterInput{Username: "alice", Password: "123"})
	assert.True(t, errors.Is(err, core.ErrValidation))

	token, err := s.Register(ctx, RegisterInput{Username: "alice", Password: "secret1", FullName: "Alice A"})
	require.NoError(t, err)
	_, err = s.Register(ctx, RegisterInput{Username: "alice", Password: "secret1"})
	assert.True(t, errors.Is(err, core.ErrConflict))

	claims, err := s.ParseToken(ctx, token)
	require.NoError(t, err)
	me, err := s.Me(ctx, claims.UserID)
	require.NoError(t, err)
	assert.Equal(t, "Alice A", me.FullName)

	_, err = s.Login(ctx, "alice", "wrong-password")
	assert.True(t, errors.Is(err, core.ErrAuthentication))
	_, err = s.Login(ctx, "nobody", "secret1")
	assert.True(t, errors.Is(err, core.ErrAuthentication))

	token, err = s.Login(ctx, "alice", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestLogoutRevokesToken(t *testing.T) {
	ctx := context.Background()
	s := newAuth(nil)
	token, err := s.Register(ctx, RegisterInput{Username: "bob", Password: "secret1"})
	require.NoError(t, err)

	claims, err := s.ParseToken(ctx, token)
	require.NoError(t, err)
	require.NoError(t, s.Logout(ctx, claims))

	_, err = s.ParseToken(ctx, token)
	assert.True(t, errors.Is(err, core.ErrAuthentication))
}

func TestExpiredAndForeignTokens(t *testing.T) {
	ctx := context.Background()
	issuedAt := time.Now().Add(-2 * time.Hour)
	s := newAuth(func() time.Time { return issuedAt })
	token, err := s.Register(ctx, RegisterInput{Username: "carol", Password: "secret1"})
	require.NoError(t, err)

	s.now = time.Now
	_, err = s.ParseToken(ctx, token)
	assert.True(t, errors.Is(err, core.ErrAuthentication))

	other := NewAuthService(db.NewMemoryClient(), nil, "another-secret", time.Hour, zap.NewNop())
	fresh, err := other.Register(ctx, RegisterInput{Username: "dave", Password: "secret1"})
	require.NoError(t, err)
	_, err = s.ParseToken(ctx, fresh)
	assert.True(t, errors.Is(err, core.ErrAuthentication))
}
