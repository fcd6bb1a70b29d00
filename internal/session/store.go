package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/aiox-platform/alchemist/internal/conversation"
	"github.com/aiox-platform/alchemist/internal/metrics"
	"github.com/aiox-platform/alchemist/internal/personalization"
)

var ErrInvalidUserID = errors.New("user id must not be empty")

// Store maps user ids to sessions.
type Store interface {
	GetOrCreate(ctx context.Context, userID string) (*Session, error)
	Get(userID string) (*Session, bool)
	Len() int
}

// FacetSource supplies affinity facets for a new session.
type FacetSource interface {
	GetAffinityFacets(ctx context.Context, userID string) personalization.Affinity
}

// Templates are the system instructions every new session starts from.
type Templates struct {
	Dialogue    string
	AutoSuggest string
}

// MemoryStore keeps sessions for the lifetime of the process.
type MemoryStore struct {
	facets    FacetSource
	templates Templates
	now       func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
	group    singleflight.Group
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(facets FacetSource, templates Templates) *MemoryStore {
	return &MemoryStore{
		facets:    facets,
		templates: templates,
		now:       time.Now,
		sessions:  make(map[string]*Session),
	}
}

// GetOrCreate returns the user's session, creating it on first contact.
// Concurrent first calls for the same user share one facet fetch and
// receive the same session.
func (s *MemoryStore) GetOrCreate(ctx context.Context, userID string) (*Session, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}
	if sess, ok := s.Get(userID); ok {
		return sess, nil
	}

	ch := s.group.DoChan(userID, func() (any, error) {
		if sess, ok := s.Get(userID); ok {
			return sess, nil
		}
		// Creation outlives the caller; the session is stored even when
		// the request that triggered it has already given up.
		sess := s.create(context.WithoutCancel(ctx), userID)

		s.mu.Lock()
		s.sessions[userID] = sess
		n := len(s.sessions)
		s.mu.Unlock()

		metrics.SessionsActive.Set(float64(n))
		slog.Info("session created", "user_id", userID, "personalization", sess.Personalization)
		return sess, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Session), nil
	case <-ctx.Done():
		return nil, context.Cause(ctx)
	}
}

func (s *MemoryStore) create(ctx context.Context, userID string) *Session {
	aff := s.facets.GetAffinityFacets(ctx, userID)
	dialogue := conversation.NewTranscript(s.templates.Dialogue + personalization.PromptClause(aff))
	autosuggest := conversation.NewTranscript(s.templates.AutoSuggest)
	return newSession(userID, s.now(), aff.Source, dialogue, autosuggest)
}

// Get returns an existing session without creating one.
func (s *MemoryStore) Get(userID string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[userID]
	return sess, ok
}

// Len returns the number of sessions held.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
