package cli

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/markdave123-py/researchhub/internal/app"
	db "github.com/markdave123-py/researchhub/internal/core/database"
	"github.com/markdave123-py/researchhub/internal/core/llm"
	objectclient "github.com/markdave123-py/researchhub/internal/core/object-client"
	sessionstore "github.com/markdave123-py/researchhub/internal/core/session-store"
	"github.com/markdave123-py/researchhub/internal/models"
	"github.com/markdave123-py/researchhub/internal/services"
)

type stubIndex struct{}

func (stubIndex) Search(context.Context, string, int) ([]models.CandidatePaper, error) {
	return []models.CandidatePaper{
		{Title: "Attention Is All You Need", Authors: "Vaswani", PublishedDate: "2017-06-12", SourceURL: "http://arxiv.org/abs/1706.03762"},
		{Title: "BERT", Authors: "Devlin", PublishedDate: "2018-10-11", SourceURL: "http://arxiv.org/abs/1810.04805"},
	}, nil
}

func newBackend(t *testing.T) string {
	t.Helper()
	log := zap.NewNop()
	store := db.NewMemoryClient()
	workspaces := services.NewWorkspaceService(store, log)
	svc := app.Services{
		Auth:       services.NewAuthService(store, sessionstore.NewMemoryDenylist(), "cli-secret", time.Hour, log),
		Workspaces: workspaces,
		Papers: services.NewPaperService(store, objectclient.NewMemoryClient(), "papers", workspaces,
			services.NewImportResolver(workspaces, store), nil, log),
		Search:    services.NewSearchService(stubIndex{}, 10, log),
		Chat:      services.NewChatService(store, workspaces, llm.NewMockLLM(), nil, log),
		Dashboard: services.NewDashboardService(store, workspaces, 2, log),
	}
	srv := httptest.NewServer(app.NewRouter(svc, []string{"*"}, log))
	t.Cleanup(srv.Close)
	return srv.URL
}

func run(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, defaultBaseURL, cfg.BaseURL)

	cfg.AccessToken = "tok"
	cfg.ActiveWorkspace = "ws-1"
	require.NoError(t, cfg.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "tok", again.AccessToken)
	assert.Equal(t, "ws-1", again.ActiveWorkspace)
}

func TestCommandsRequireLogin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	_, err := run(t, path, "workspace", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not signed in")
}

func TestUnsavableSessionWarns(t *testing.T) {
	url := newBackend(t)
	path := filepath.Join(t.TempDir(), "missing", "cfg.yaml")

	out, err := run(t, path, "--server", url, "register", "--username", "ada", "--password", "secret1")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as")
	assert.Contains(t, out, "Warning: session not saved")
}

func TestPlainStripsTerminalControl(t *testing.T) {
	got := plain("safe \x1b[31mred\x1b[0m \x1b]8;;http://evil\x07link\x1b]8;;\x07 bell\x07\nnext\tcol")
	assert.NotContains(t, got, "\x1b")
	assert.NotContains(t, got, "\x07")
	assert.Contains(t, got, "red")
	assert.Contains(t, got, "link")
	assert.Contains(t, got, "\nnext\tcol")
}

func TestPrintMessageIsPlainText(t *testing.T) {
	var out bytes.Buffer
	printMessage(&out, models.ChatMessage{Question: "q\x1b[2J", Answer: "\x1b]0;pwned\x07**bold** <b>x</b>"}, false)
	assert.NotContains(t, out.String(), "\x1b[2J")
	assert.NotContains(t, out.String(), "pwned\x07")
	assert.Contains(t, out.String(), "**bold** <b>x</b>")

	out.Reset()
	printMessage(&out, models.ChatMessage{Question: "q", Answer: "**bold** <b>x</b>"}, true)
	assert.Contains(t, out.String(), "<strong>bold</strong>")
	assert.Contains(t, out.String(), "&lt;b&gt;x&lt;/b&gt;")
}

func TestFullSession(t *testing.T) {
	url := newBackend(t)
	path := filepath.Join(t.TempDir(), "cfg.yaml")

	_, err := run(t, path, "--server", url, "register", "--username", "ada", "--password", "secret1")
	require.NoError(t, err)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.AccessToken)

	assert.Equal(t, url, cfg.BaseURL, "--server is remembered once a session is saved")

	out, err := run(t, path, "workspace", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No workspaces yet")

	out, err = run(t, path, "workspace", "create", "ML Papers")
	require.NoError(t, err)
	assert.Contains(t, out, "ML Papers")

	_, err = run(t, path, "chat", "send", "hello")
	require.Error(t, err, "chat is refused while the workspace has no papers")

	out, err = run(t, path, "search", "transformer")
	require.NoError(t, err)
	assert.Contains(t, out, "Attention Is All You Need")

	_, err = run(t, path, "import", "3")
	require.Error(t, err)

	out, err = run(t, path, "import", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Imported")

	out, err = run(t, path, "papers")
	require.NoError(t, err)
	assert.Contains(t, out, "Attention Is All You Need")

	out, err = run(t, path, "chat", "send", "summarize", "this")
	require.NoError(t, err)
	assert.Contains(t, out, "summarize this")

	out, err = run(t, path, "chat", "history")
	require.NoError(t, err)
	assert.Contains(t, out, "summarize this")

	_, err = run(t, path, "chat", "clear")
	require.Error(t, err)
	_, err = run(t, path, "chat", "clear", "--yes")
	require.NoError(t, err)
	out, err = run(t, path, "chat", "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No messages yet")

	_, err = run(t, path, "workspace", "create", "Second")
	require.NoError(t, err)
	_, err = run(t, path, "import", "2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--workspace")

	out, err = run(t, path, "dashboard")
	require.NoError(t, err)
	assert.Contains(t, out, "Dashboard")

	_, err = run(t, path, "logout")
	require.NoError(t, err)
	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.AccessToken)
}

func TestFindWorkspace(t *testing.T) {
	items := []models.Workspace{{ID: "1", Name: "A"}, {ID: "2", Name: "B"}, {ID: "3", Name: "B"}}

	ws, err := findWorkspace(items, "A")
	require.NoError(t, err)
	assert.Equal(t, "1", ws.ID)

	ws, err = findWorkspace(items, "3")
	require.NoError(t, err)
	assert.Equal(t, "3", ws.ID)

	_, err = findWorkspace(items, "B")
	assert.Error(t, err)
	_, err = findWorkspace(items, "missing")
	assert.Error(t, err)
}
