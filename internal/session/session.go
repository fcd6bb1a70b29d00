package session

import (
	"context"
	"sync"
	"time"

	"github.com/aiox-platform/alchemist/internal/conversation"
	"github.com/aiox-platform/alchemist/internal/personalization"
)

// Session holds one user's dialogue and auto-suggestion transcripts.
type Session struct {
	UserID          string
	CreatedAt       time.Time
	Personalization personalization.Source

	turn chan struct{}

	mu          sync.RWMutex
	dialogue    *conversation.Transcript
	autosuggest *conversation.Transcript
}

// Snapshot is a point-in-time copy of a session.
type Snapshot struct {
	UserID          string                 `json:"user_id"`
	CreatedAt       time.Time              `json:"created_at"`
	Personalization personalization.Source `json:"personalization"`
	Dialogue        []conversation.Message `json:"dialogue"`
	AutoSuggest     []conversation.Message `json:"autosuggest"`
}

func newSession(userID string, createdAt time.Time, src personalization.Source, dialogue, autosuggest *conversation.Transcript) *Session {
	return &Session{
		UserID:          userID,
		CreatedAt:       createdAt,
		Personalization: src,
		turn:            make(chan struct{}, 1),
		dialogue:        dialogue,
		autosuggest:     autosuggest,
	}
}

// Acquire takes the session's turn lock. Only one turn per user runs at a
// time; waiting gives up when ctx is done.
func (s *Session) Acquire(ctx context.Context) error {
	select {
	case s.turn <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees the turn lock taken by Acquire.
func (s *Session) Release() {
	<-s.turn
}

// Dialogue returns the dialogue followed by the probe messages. The stored
// dialogue is not modified.
func (s *Session) Dialogue(probe ...conversation.Message) []conversation.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dialogue.With(probe...)
}

// AppendDialogue commits messages to the dialogue.
func (s *Session) AppendDialogue(msgs ...conversation.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dialogue.Append(msgs...)
}

// DialogueLen returns the number of committed dialogue messages.
func (s *Session) DialogueLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dialogue.Len()
}

// AutoSuggest returns the auto-suggestion transcript followed by extra.
func (s *Session) AutoSuggest(extra ...conversation.Message) []conversation.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.autosuggest.With(extra...)
}

// AppendAutoSuggest commits messages to the auto-suggestion transcript.
func (s *Session) AppendAutoSuggest(msgs ...conversation.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autosuggest.Append(msgs...)
}

func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		UserID:          s.UserID,
		CreatedAt:       s.CreatedAt,
		Personalization: s.Personalization,
		Dialogue:        s.dialogue.Messages(),
		AutoSuggest:     s.autosuggest.Messages(),
	}
}
