package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/researchhub/internal/core"
	"github.com/markdave123-py/researchhub/internal/models"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newServer(t *testing.T, mux *http.ServeMux) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestErrorMapping(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /papers/import", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, map[string]string{"detail": "2 workspaces exist", "code": "ambiguous_target"})
	})
	mux.HandleFunc("GET /workspaces", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "token expired", "code": "authentication"})
	})
	mux.HandleFunc("GET /papers/search", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{not json`))
	})
	mux.HandleFunc("GET /dashboard", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	srv := newServer(t, mux)

	session := NewSession("tok")
	var changes []string
	session.OnChange(func(tok string) { changes = append(changes, tok) })
	c := New(srv.URL, session)
	ctx := context.Background()

	_, err := c.ImportPaper(ctx, models.CandidatePaper{Title: "x"}, "")
	assert.True(t, errors.Is(err, core.ErrAmbiguousTarget))
	assert.Equal(t, "2 workspaces exist", core.MessageOf(err))
	assert.True(t, session.Authenticated(), "non-auth errors leave the session alone")

	_, err = c.SearchPapers(ctx, "q")
	assert.True(t, errors.Is(err, core.ErrUpstream))

	_, err = c.Dashboard(ctx)
	assert.True(t, errors.Is(err, core.ErrNotFound))
	assert.True(t, session.Authenticated())

	_, err = c.ListWorkspaces(ctx)
	assert.True(t, errors.Is(err, core.ErrAuthentication))
	assert.False(t, session.Authenticated())
	assert.Equal(t, []string{""}, changes)
}

func TestUndecodableSuccessIsUpstream(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /papers/search", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><body>gateway login</body></html>`))
	})
	mux.HandleFunc("GET /papers", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	})
	mux.HandleFunc("GET /chat/history", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []models.ChatMessage{})
	})
	srv := newServer(t, mux)
	c := New(srv.URL, NewSession("tok"))
	ctx := context.Background()

	out, err := c.SearchPapers(ctx, "transformer")
	assert.True(t, errors.Is(err, core.ErrUpstream), "got %v", err)
	assert.Nil(t, out)

	papers, err := c.ListPapers(ctx, "ws")
	assert.True(t, errors.Is(err, core.ErrUpstream), "got %v", err)
	assert.Nil(t, papers)

	history, err := c.ChatHistory(ctx, "ws")
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.True(t, c.Session().Authenticated())
}

func TestUnreachableServerIsUpstream(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url, NewSession("tok")).ListWorkspaces(context.Background())
	assert.True(t, errors.Is(err, core.ErrUpstream))
}

func TestLoginStoresToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"access_token": "fresh"})
	})
	mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer fresh", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	})
	srv := newServer(t, mux)

	c := New(srv.URL, nil)
	require.NoError(t, c.Login(context.Background(), "alice", "secret1"))
	assert.Equal(t, "fresh", c.Session().Token())

	require.NoError(t, c.Logout(context.Background()))
	assert.False(t, c.Session().Authenticated())
}

func TestPaperListDiscardsStaleLoad(t *testing.T) {
	started := make(chan struct{}, 1)
	done := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("GET /papers", func(w http.ResponseWriter, r *http.Request) {
		ws := r.URL.Query().Get("workspaceId")
		if ws == "A" {
			started <- struct{}{}
			select {
			case <-r.Context().Done():
				return
			case <-done:
			}
		}
		writeJSON(w, http.StatusOK, []models.Paper{{ID: ws + "-1", WorkspaceID: ws, Title: "paper of " + ws}})
	})
	srv := newServer(t, mux)
	t.Cleanup(func() { close(done) })

	sel := NewSelector("A")
	list := NewPaperList(New(srv.URL, NewSession("tok")), sel)

	errCh := make(chan error, 1)
	go func() { errCh <- list.Load(context.Background()) }()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("load for A never reached the server")
	}
	sel.Select("B")
	require.NoError(t, list.Load(context.Background()))

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrStale)
	case <-time.After(5 * time.Second):
		t.Fatal("stale load did not return")
	}

	ws, papers := list.Papers()
	assert.Equal(t, "B", ws)
	require.Len(t, papers, 1)
	assert.Equal(t, "paper of B", papers[0].Title)
}

func TestPaperListRequiresSelection(t *testing.T) {
	list := NewPaperList(New("http://127.0.0.1:1", nil), NewSelector(""))
	assert.ErrorIs(t, list.Load(context.Background()), ErrNoActiveWorkspace)
	assert.True(t, errors.Is(ErrNoActiveWorkspace, core.ErrValidation))
}

func TestSelectorTickets(t *testing.T) {
	sel := NewSelector("A")
	ctx, ticket, cancel := sel.Begin(context.Background())
	defer cancel()
	assert.Equal(t, "A", ticket.WorkspaceID)
	assert.True(t, sel.Current(ticket))

	sel.Select("A")
	assert.True(t, sel.Current(ticket))
	assert.NoError(t, ctx.Err())

	sel.Select("B")
	assert.False(t, sel.Current(ticket))
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context of previous selection not cancelled")
	}
	assert.Equal(t, "B", sel.Active())
}

func chatServer(t *testing.T, papers int, release <-chan struct{}, started chan<- struct{}) (*httptest.Server, *atomic.Int32) {
	var sends atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /papers", func(w http.ResponseWriter, r *http.Request) {
		out := []models.Paper{}
		for i := 0; i < papers; i++ {
			out = append(out, models.Paper{ID: "p", Title: "t"})
		}
		writeJSON(w, http.StatusOK, out)
	})
	mux.HandleFunc("GET /chat/history", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []models.ChatMessage{})
	})
	mux.HandleFunc("POST /chat/send", func(w http.ResponseWriter, r *http.Request) {
		n := sends.Add(1)
		if started != nil {
			started <- struct{}{}
		}
		if release != nil {
			<-release
		}
		writeJSON(w, http.StatusOK, models.ChatMessage{ID: "m", Sequence: int64(n), Question: "q", Answer: "a"})
	})
	mux.HandleFunc("DELETE /chat/history", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return newServer(t, mux), &sends
}

func TestChatViewSendInFlight(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	srv, sends := chatServer(t, 1, release, started)

	c := New(srv.URL, NewSession("tok"))
	sel := NewSelector("ws")
	view := NewChatView(c, sel, nil)
	require.NoError(t, view.Load(context.Background()))

	type result struct {
		msg *models.ChatMessage
		err error
	}
	first := make(chan result, 1)
	go func() {
		msg, err := view.Send(context.Background(), "q")
		first <- result{msg, err}
	}()
	<-started
	assert.True(t, view.Sending())

	_, err := view.Send(context.Background(), "again")
	assert.ErrorIs(t, err, ErrSendInFlight)

	close(release)
	res := <-first
	require.NoError(t, res.err)
	assert.Equal(t, int64(1), res.msg.Sequence)
	assert.Equal(t, int32(1), sends.Load())

	_, msgs := view.Messages()
	assert.Len(t, msgs, 1)
}

func TestChatViewPreemptsEmptyWorkspace(t *testing.T) {
	srv, sends := chatServer(t, 0, nil, nil)
	c := New(srv.URL, NewSession("tok"))
	sel := NewSelector("ws")
	papers := NewPaperList(c, sel)
	require.NoError(t, papers.Load(context.Background()))

	_, err := NewChatView(c, sel, papers).Send(context.Background(), "hello")
	assert.True(t, errors.Is(err, core.ErrEmptyContext))
	assert.Zero(t, sends.Load())
}

func TestChatViewClearNeedsConfirmation(t *testing.T) {
	srv, _ := chatServer(t, 1, nil, nil)
	c := New(srv.URL, NewSession("tok"))
	view := NewChatView(c, NewSelector("ws"), nil)
	require.NoError(t, view.Load(context.Background()))

	assert.ErrorIs(t, view.Clear(context.Background(), false), ErrNotConfirmed)
	assert.NoError(t, view.Clear(context.Background(), true))
}

func TestImporterTarget(t *testing.T) {
	var imported atomic.Value
	mux := http.NewServeMux()
	var workspaces atomic.Value
	workspaces.Store([]models.Workspace{})
	mux.HandleFunc("GET /workspaces", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, workspaces.Load())
	})
	mux.HandleFunc("POST /papers/import", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			WorkspaceID string `json:"workspaceId"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		imported.Store(body.WorkspaceID)
		writeJSON(w, http.StatusCreated, models.Paper{ID: "p1", WorkspaceID: body.WorkspaceID})
	})
	srv := newServer(t, mux)

	c := New(srv.URL, NewSession("tok"))
	list := NewWorkspaceList(c)
	imp := NewImporter(c, list, nil)
	ctx := context.Background()

	require.NoError(t, list.Load(ctx))
	assert.True(t, list.Empty())
	_, err := imp.Import(ctx, models.CandidatePaper{Title: "x"}, "")
	assert.True(t, errors.Is(err, core.ErrNotFound))

	workspaces.Store([]models.Workspace{{ID: "only"}})
	require.NoError(t, list.Load(ctx))
	_, err = imp.Import(ctx, models.CandidatePaper{Title: "x"}, "")
	require.NoError(t, err)
	assert.Equal(t, "only", imported.Load())

	workspaces.Store([]models.Workspace{{ID: "a"}, {ID: "b"}})
	require.NoError(t, list.Load(ctx))
	_, err = imp.Import(ctx, models.CandidatePaper{Title: "x"}, "")
	assert.True(t, errors.Is(err, core.ErrAmbiguousTarget))

	_, err = imp.Import(ctx, models.CandidatePaper{Title: "x"}, "b")
	require.NoError(t, err)
	assert.Equal(t, "b", imported.Load())
}

func TestChatViewDiscardsStaleLoad(t *testing.T) {
	started := make(chan struct{}, 1)
	done := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("GET /chat/history", func(w http.ResponseWriter, r *http.Request) {
		ws := r.URL.Query().Get("workspaceId")
		if ws == "A" {
			started <- struct{}{}
			select {
			case <-r.Context().Done():
				return
			case <-done:
			}
		}
		writeJSON(w, http.StatusOK, []models.ChatMessage{{ID: ws + "-1", WorkspaceID: ws, Sequence: 1, Question: "asked in " + ws, Answer: "a"}})
	})
	srv := newServer(t, mux)
	t.Cleanup(func() { close(done) })

	sel := NewSelector("A")
	view := NewChatView(New(srv.URL, NewSession("tok")), sel, nil)

	errCh := make(chan error, 1)
	go func() { errCh <- view.Load(context.Background()) }()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("history load for A never reached the server")
	}
	sel.Select("B")
	require.NoError(t, view.Load(context.Background()))

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrStale)
	case <-time.After(5 * time.Second):
		t.Fatal("stale history load did not return")
	}

	ws, msgs := view.Messages()
	assert.Equal(t, "B", ws)
	require.Len(t, msgs, 1)
	assert.Equal(t, "asked in B", msgs[0].Question)
}

func TestChatViewLoadKeepsConcurrentSend(t *testing.T) {
	var (
		mu       sync.Mutex
		stored   []models.ChatMessage
		calls    atomic.Int32
		started  = make(chan struct{}, 1)
		released = make(chan struct{})
	)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /chat/history", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		snapshot := append([]models.ChatMessage{}, stored...)
		mu.Unlock()
		if calls.Add(1) == 2 {
			started <- struct{}{}
			<-released
		}
		writeJSON(w, http.StatusOK, snapshot)
	})
	mux.HandleFunc("POST /chat/send", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		msg := models.ChatMessage{ID: "m", WorkspaceID: "ws", Sequence: int64(len(stored) + 1), Question: "q", Answer: "a"}
		stored = append(stored, msg)
		mu.Unlock()
		writeJSON(w, http.StatusOK, msg)
	})
	srv := newServer(t, mux)

	view := NewChatView(New(srv.URL, NewSession("tok")), NewSelector("ws"), nil)
	require.NoError(t, view.Load(context.Background()))

	errCh := make(chan error, 1)
	go func() { errCh <- view.Load(context.Background()) }()
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("reload never reached the server")
	}

	_, err := view.Send(context.Background(), "q")
	require.NoError(t, err)
	close(released)
	require.NoError(t, <-errCh)

	_, msgs := view.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, int64(1), msgs[0].Sequence)
	assert.Equal(t, int32(3), calls.Load())
}

func TestChatViewSendSkipsMessageAlreadyLoaded(t *testing.T) {
	msg := models.ChatMessage{ID: "m", WorkspaceID: "ws", Sequence: 1, Question: "q", Answer: "a"}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /chat/history", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []models.ChatMessage{msg})
	})
	mux.HandleFunc("POST /chat/send", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, msg)
	})
	srv := newServer(t, mux)

	view := NewChatView(New(srv.URL, NewSession("tok")), NewSelector("ws"), nil)
	require.NoError(t, view.Load(context.Background()))
	_, err := view.Send(context.Background(), "q")
	require.NoError(t, err)

	_, msgs := view.Messages()
	assert.Len(t, msgs, 1)
}
