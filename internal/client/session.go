package client

import "sync"

// Session holds the bearer credential of one signed-in account. It is the
// only client state an authentication failure is allowed to touch.
type Session struct {
	mu       sync.RWMutex
	token    string
	onChange func(token string)
}

func NewSession(token string) *Session {
	return &Session{token: token}
}

// OnChange registers fn to be called whenever the credential is set or cleared.
func (s *Session) OnChange(fn func(token string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

func (s *Session) set(token string) {
	s.mu.Lock()
	changed := s.token != token
	s.token = token
	fn := s.onChange
	s.mu.Unlock()
	if changed && fn != nil {
		fn(token)
	}
}

// Clear drops the credential; the next call must re-authenticate.
func (s *Session) Clear() { s.set("") }
