package client

import (
	"context"
	"sync"
)

// Ticket records which selection a load was issued under.
type Ticket struct {
	gen         uint64
	WorkspaceID string
}

// Selector is the session's active-workspace pointer. Every change of
// selection cancels the contexts handed out for the previous one, so loads
// issued for an old workspace stop early and can be recognised as stale.
type Selector struct {
	mu     sync.Mutex
	active string
	gen    uint64
	ctx    context.Context
	cancel context.CancelFunc
}

func NewSelector(initial string) *Selector {
	ctx, cancel := context.WithCancel(context.Background())
	return &Selector{active: initial, ctx: ctx, cancel: cancel}
}

func (s *Selector) Active() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Select makes id the active workspace. Re-selecting the current one is a no-op.
func (s *Selector) Select(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == s.active {
		return
	}
	s.cancel()
	s.active = id
	s.gen++
	s.ctx, s.cancel = context.WithCancel(context.Background())
}

// Begin captures the active workspace for a load. The returned context is
// cancelled when ctx ends, when the selection changes, or when the returned
// cancel func is called.
func (s *Selector) Begin(ctx context.Context) (context.Context, Ticket, context.CancelFunc) {
	s.mu.Lock()
	t := Ticket{gen: s.gen, WorkspaceID: s.active}
	selCtx := s.ctx
	s.mu.Unlock()

	loadCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(selCtx, cancel)
	return loadCtx, t, func() {
		stop()
		cancel()
	}
}

// Current reports whether t still describes the active selection.
func (s *Selector) Current(t Ticket) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return t.gen == s.gen
}
