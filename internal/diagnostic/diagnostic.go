// Package diagnostic persists the marketing diagnostic wizard sessions behind
// an injected Store.
package diagnostic

import (
	"context"
	"crypto/rand"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"contentplanner/internal/domain"
)

type Session struct {
	ID        string            `json:"id"`
	OwnerID   string            `json:"owner_id"`
	Step      int               `json:"step"`
	Answers   map[string]string `json:"answers"`
	Completed bool              `json:"completed"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Store is the persistence port. Load and Delete return domain.ErrNotFound
// for unknown ids.
type Store interface {
	Load(ctx context.Context, id string) (Session, error)
	Save(ctx context.Context, s Session) error
	Delete(ctx context.Context, id string) error
}

// Update carries the answers of one wizard step.
type Update struct {
	Step      *int              `json:"step,omitempty"`
	Answers   map[string]string `json:"answers,omitempty"`
	Completed *bool             `json:"completed,omitempty"`
}

type Service struct {
	Store Store
	Now   func() time.Time

	mu      sync.Mutex
	entropy io.Reader
}

func NewService(store Store) *Service {
	return &Service{
		Store:   store,
		Now:     time.Now,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

func (s *Service) newID(now time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(now), s.entropy).String()
}

// Start opens a fresh session at step 0.
func (s *Service) Start(ctx context.Context, ownerID string) (Session, error) {
	if strings.TrimSpace(ownerID) == "" {
		return Session{}, domain.Invalid("owner_id", "required")
	}
	now := s.Now().UTC()
	sess := Session{
		ID:        s.newID(now),
		OwnerID:   ownerID,
		Answers:   map[string]string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Store.Save(ctx, sess); err != nil {
		return Session{}, domain.WrapStore("save session", err)
	}
	return sess, nil
}

func (s *Service) Get(ctx context.Context, id string) (Session, error) {
	sess, err := s.Store.Load(ctx, id)
	if err != nil {
		return Session{}, domain.WrapStore("load session", err)
	}
	return sess, nil
}

// Advance merges answers into the session. Completed sessions are read-only.
func (s *Service) Advance(ctx context.Context, id string, u Update) (Session, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if sess.Completed {
		return Session{}, domain.Invalid("completed", "session already completed")
	}
	if u.Step != nil {
		if *u.Step < 0 {
			return Session{}, domain.Invalid("step", "must be >= 0")
		}
		sess.Step = *u.Step
	}
	if sess.Answers == nil {
		sess.Answers = map[string]string{}
	}
	for k, v := range u.Answers {
		if v == "" {
			delete(sess.Answers, k)
			continue
		}
		sess.Answers[k] = v
	}
	if u.Completed != nil {
		sess.Completed = *u.Completed
	}
	now := s.Now().UTC()
	if now.Before(sess.CreatedAt) {
		now = sess.CreatedAt
	}
	sess.UpdatedAt = now
	if err := s.Store.Save(ctx, sess); err != nil {
		return Session{}, domain.WrapStore("save session", err)
	}
	return sess, nil
}

func (s *Service) Discard(ctx context.Context, id string) error {
	return domain.WrapStore("delete session", s.Store.Delete(ctx, id))
}

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: map[string]Session{}}
}

func (m *MemoryStore) Load(_ context.Context, id string) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	if !ok {
		return Session{}, domain.ErrNotFound
	}
	return clone(sess), nil
}

func (m *MemoryStore) Save(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = clone(s)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}

func clone(s Session) Session {
	answers := make(map[string]string, len(s.Answers))
	for k, v := range s.Answers {
		answers[k] = v
	}
	s.Answers = answers
	return s
}
