// Package auth resolves bearer tokens into teacher identities and tracks the
// lifetime of a signed-in session.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/joseph-ayodele/snapcheck/internal/common"
)

type Role string

const (
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// Identity is the authenticated caller.
type Identity struct {
	UserID string
	Name   string
	Role   Role
}

func (i Identity) IsTeacher() bool { return i.Role == RoleTeacher }

// Provider authenticates tokens and notifies subscribers when an identity is revoked.
type Provider interface {
	Authenticate(ctx context.Context, token string) (Identity, error)
	// Subscribe registers fn to run when userID's credentials are revoked.
	// The returned func removes the subscription.
	Subscribe(userID string, fn func()) (unsubscribe func())
}

// StaticProvider is a token table loaded from configuration.
type StaticProvider struct {
	mu     sync.RWMutex
	tokens map[string]Identity
	subs   map[string]map[int]func()
	nextID int
	logger *slog.Logger
}

var _ Provider = (*StaticProvider)(nil)

func NewStaticProvider(tokens []common.TokenConfig, logger *slog.Logger) *StaticProvider {
	if logger == nil {
		logger = slog.Default()
	}
	p := &StaticProvider{
		tokens: make(map[string]Identity, len(tokens)),
		subs:   map[string]map[int]func(){},
		logger: logger,
	}
	for _, t := range tokens {
		if t.Token == "" || t.UserID == "" {
			continue
		}
		role := Role(strings.ToLower(t.Role))
		if role == "" {
			role = RoleTeacher
		}
		p.tokens[t.Token] = Identity{UserID: t.UserID, Name: t.Name, Role: role}
	}
	return p
}

func (p *StaticProvider) Authenticate(_ context.Context, token string) (Identity, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return Identity{}, common.NewAppError("UNAUTHENTICATED", "missing bearer token", common.ErrUnauthorized)
	}
	p.mu.RLock()
	id, ok := p.tokens[token]
	p.mu.RUnlock()
	if !ok {
		return Identity{}, common.NewAppError("UNAUTHENTICATED", "unknown token", common.ErrUnauthorized)
	}
	return id, nil
}

func (p *StaticProvider) Subscribe(userID string, fn func()) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	id := p.nextID
	if p.subs[userID] == nil {
		p.subs[userID] = map[int]func(){}
	}
	p.subs[userID][id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.subs[userID], id)
		if len(p.subs[userID]) == 0 {
			delete(p.subs, userID)
		}
	}
}

// Revoke drops every token of userID and fires its subscribers.
func (p *StaticProvider) Revoke(userID string) int {
	p.mu.Lock()
	n := 0
	for tok, id := range p.tokens {
		if id.UserID == userID {
			delete(p.tokens, tok)
			n++
		}
	}
	var fns []func()
	for _, fn := range p.subs[userID] {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
	p.logger.Info("auth.revoke", "user_id", userID, "tokens", n, "sessions", len(fns))
	return n
}

// Session is one signed-in teacher's lease on the service. It is opened
// explicitly, stays active until closed or revoked, and must be closed by
// whoever opened it.
type Session struct {
	identity Identity

	mu     sync.Mutex
	active bool
	unsub  func()
	onEnd  []func()
}

// OpenSession authenticates token and subscribes to revocation for the identity.
func OpenSession(ctx context.Context, p Provider, token string) (*Session, error) {
	id, err := p.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	return NewSession(p, id), nil
}

// NewSession opens a session for an already authenticated identity.
func NewSession(p Provider, id Identity) *Session {
	s := &Session{identity: id, active: true}
	if p != nil {
		s.unsub = p.Subscribe(id.UserID, s.end)
	}
	return s
}

func (s *Session) Identity() Identity { return s.identity }

func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// RequireTeacher returns an error unless the session is active and held by a teacher.
func (s *Session) RequireTeacher() error {
	if !s.Active() {
		return common.NewAppError("SESSION_CLOSED", "session is closed", common.ErrUnauthorized)
	}
	if !s.identity.IsTeacher() {
		return common.NewAppError("FORBIDDEN", fmt.Sprintf("role %q cannot grade", s.identity.Role), common.ErrForbidden)
	}
	return nil
}

// OnEnd registers fn to run once when the session closes or is revoked.
func (s *Session) OnEnd(fn func()) {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		fn()
		return
	}
	s.onEnd = append(s.onEnd, fn)
	s.mu.Unlock()
}

// Close unsubscribes from the provider and ends the session. Safe to call
// more than once.
func (s *Session) Close() {
	s.end()
}

func (s *Session) end() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	unsub := s.unsub
	s.unsub = nil
	fns := s.onEnd
	s.onEnd = nil
	s.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	for _, fn := range fns {
		fn()
	}
}
