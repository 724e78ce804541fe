package client

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/markdave123-py/researchhub/internal/core"
	"github.com/markdave123-py/researchhub/internal/models"
)

var (
	// ErrStale is returned by a load whose workspace stopped being active
	// before it completed. The view keeps showing the newer selection.
	ErrStale = errors.New("result discarded: active workspace changed")

	ErrSendInFlight = errors.New("a message is already being sent")
	ErrNotConfirmed = errors.New("clearing chat history requires confirmation")

	ErrNoActiveWorkspace = &core.Error{Kind: core.KindValidation, Op: "ActiveWorkspace", Msg: "no workspace is selected"}
)

// WorkspaceList caches the account's workspaces and is refreshed by a full
// reload after every change.
type WorkspaceList struct {
	c     *Client
	mu    sync.RWMutex
	items []models.Workspace
}

func NewWorkspaceList(c *Client) *WorkspaceList {
	return &WorkspaceList{c: c}
}

func (l *WorkspaceList) Load(ctx context.Context) error {
	items, err := l.c.ListWorkspaces(ctx)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.items = items
	l.mu.Unlock()
	return nil
}

func (l *WorkspaceList) Create(ctx context.Context, name string) (*models.Workspace, error) {
	ws, err := l.c.CreateWorkspace(ctx, name)
	if err != nil {
		return nil, err
	}
	return ws, l.Load(ctx)
}

func (l *WorkspaceList) Items() []models.Workspace {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.Workspace, len(l.items))
	copy(out, l.items)
	return out
}

// Empty reports the "no workspaces yet" state in which import and chat are
// disabled.
func (l *WorkspaceList) Empty() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items) == 0
}

// PaperList shows the papers of the active workspace. Imports and uploads
// are followed by a full reload.
type PaperList struct {
	c   *Client
	sel *Selector

	mu          sync.RWMutex
	workspaceID string
	papers      []models.Paper
	loaded      bool
}

func NewPaperList(c *Client, sel *Selector) *PaperList {
	return &PaperList{c: c, sel: sel}
}

// Load fetches the papers of the active workspace. A result that arrives
// after the selection changed is dropped and ErrStale returned.
func (l *PaperList) Load(ctx context.Context) error {
	ctx, t, cancel := l.sel.Begin(ctx)
	defer cancel()
	if t.WorkspaceID == "" {
		return ErrNoActiveWorkspace
	}

	papers, err := l.c.ListPapers(ctx, t.WorkspaceID)
	if !l.sel.Current(t) {
		return ErrStale
	}
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.sel.Current(t) {
		return ErrStale
	}
	l.workspaceID, l.papers, l.loaded = t.WorkspaceID, papers, true
	return nil
}

// Papers returns the workspace the list was loaded for and its papers.
func (l *PaperList) Papers() (string, []models.Paper) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.Paper, len(l.papers))
	copy(out, l.papers)
	return l.workspaceID, out
}

// EmptyFor reports whether the list is loaded for workspaceID and holds no
// papers. An unloaded list is not considered empty.
func (l *PaperList) EmptyFor(workspaceID string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loaded && l.workspaceID == workspaceID && len(l.papers) == 0
}

func (l *PaperList) Upload(ctx context.Context, filename string, content io.Reader) (*models.Paper, error) {
	ws := l.sel.Active()
	if ws == "" {
		return nil, ErrNoActiveWorkspace
	}
	p, err := l.c.UploadPaper(ctx, ws, filename, content)
	if err != nil {
		return nil, err
	}
	return p, l.reloadIfActive(ctx, ws)
}

func (l *PaperList) reloadIfActive(ctx context.Context, workspaceID string) error {
	if l.sel.Active() != workspaceID {
		return nil
	}
	if err := l.Load(ctx); err != nil && !errors.Is(err, ErrStale) {
		return err
	}
	return nil
}

// Importer applies the import target policy before calling the server: an
// explicit target wins, a single workspace is the default, and several
// workspaces require the caller to choose.
type Importer struct {
	c          *Client
	workspaces *WorkspaceList
	papers     *PaperList
}

func NewImporter(c *Client, workspaces *WorkspaceList, papers *PaperList) *Importer {
	return &Importer{c: c, workspaces: workspaces, papers: papers}
}

// Target resolves the workspace an import without explicit choice would use.
func (i *Importer) Target(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	items := i.workspaces.Items()
	switch len(items) {
	case 0:
		return "", core.NotFound("Import", "create a workspace before importing papers")
	case 1:
		return items[0].ID, nil
	default:
		return "", core.AmbiguousTarget("Import", len(items))
	}
}

func (i *Importer) Import(ctx context.Context, candidate models.CandidatePaper, explicit string) (*models.Paper, error) {
	target, err := i.Target(explicit)
	if err != nil {
		return nil, err
	}
	p, err := i.c.ImportPaper(ctx, candidate, target)
	if err != nil {
		return nil, err
	}
	if i.papers != nil {
		return p, i.papers.reloadIfActive(ctx, target)
	}
	return p, nil
}

// ChatView is the transcript of the active workspace. Sent messages are
// appended locally; Load replaces the transcript from the server.
type ChatView struct {
	c      *Client
	sel    *Selector
	papers *PaperList

	sending atomic.Bool

	mu          sync.RWMutex
	workspaceID string
	messages    []models.ChatMessage
	edits       uint64
}

func NewChatView(c *Client, sel *Selector, papers *PaperList) *ChatView {
	return &ChatView{c: c, sel: sel, papers: papers}
}

// Load replaces the transcript from the server. A send or clear that
// finishes while the fetch is in flight triggers another fetch, so the
// transcript never loses a message that was appended locally.
func (v *ChatView) Load(ctx context.Context) error {
	ctx, t, cancel := v.sel.Begin(ctx)
	defer cancel()
	if t.WorkspaceID == "" {
		return ErrNoActiveWorkspace
	}

	for {
		v.mu.RLock()
		edits := v.edits
		v.mu.RUnlock()

		history, err := v.c.ChatHistory(ctx, t.WorkspaceID)
		if !v.sel.Current(t) {
			return ErrStale
		}
		if err != nil {
			return err
		}

		v.mu.Lock()
		if !v.sel.Current(t) {
			v.mu.Unlock()
			return ErrStale
		}
		if v.edits != edits {
			v.mu.Unlock()
			continue
		}
		v.workspaceID, v.messages = t.WorkspaceID, history
		v.mu.Unlock()
		return nil
	}
}

// Send refuses while another send is in flight and when the active
// workspace is known to have no papers.
func (v *ChatView) Send(ctx context.Context, question string) (*models.ChatMessage, error) {
	if !v.sending.CompareAndSwap(false, true) {
		return nil, ErrSendInFlight
	}
	defer v.sending.Store(false)

	ws := v.sel.Active()
	if ws == "" {
		return nil, ErrNoActiveWorkspace
	}
	if v.papers != nil && v.papers.EmptyFor(ws) {
		return nil, core.EmptyContext("Send", ws)
	}

	msg, err := v.c.SendChat(ctx, ws, question)
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	if v.workspaceID == ws && !v.has(msg.Sequence) {
		v.messages = append(v.messages, *msg)
	}
	v.edits++
	v.mu.Unlock()
	return msg, nil
}

// has reports whether the transcript already holds the message with seq.
// Callers hold v.mu.
func (v *ChatView) has(seq int64) bool {
	n := len(v.messages)
	return n > 0 && v.messages[n-1].Sequence >= seq
}

// Sending reports whether a send is in flight.
func (v *ChatView) Sending() bool { return v.sending.Load() }

// Clear irreversibly deletes the active workspace's transcript. confirmed
// must carry the user's explicit consent.
func (v *ChatView) Clear(ctx context.Context, confirmed bool) error {
	if !confirmed {
		return ErrNotConfirmed
	}
	ws := v.sel.Active()
	if ws == "" {
		return ErrNoActiveWorkspace
	}
	if err := v.c.ClearChat(ctx, ws); err != nil {
		return err
	}
	v.mu.Lock()
	if v.workspaceID == ws {
		v.messages = nil
	}
	v.edits++
	v.mu.Unlock()
	return nil
}

func (v *ChatView) Messages() (string, []models.ChatMessage) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]models.ChatMessage, len(v.messages))
	copy(out, v.messages)
	return v.workspaceID, out
}
