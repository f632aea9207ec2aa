package session

import (
	"time"

	"mailpilot/internal/model"
)

// maxHistory bounds the per-session turn history.
const maxHistory = 50

// Turn is one utterance in the dialogue history.
type Turn struct {
	Role    string    `json:"role"` // user, assistant
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// PendingAction is a staged destructive operation awaiting an explicit
// yes/no. At most one exists per session, and only while the confirmation
// gate is awaiting confirmation.
type PendingAction struct {
	Kind      model.PendingKind `json:"kind"`
	EmailID   string            `json:"email_id"`
	Email     model.EmailRef    `json:"email"`
	Draft     *model.DraftReply `json:"draft,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// Session is the per-user dialogue context. It is only ever mutated while
// held via Store.Acquire, which serializes turns per user.
type Session struct {
	UserID   string           `json:"user_id"`
	History  []Turn           `json:"history"`
	Cache    []model.EmailRef `json:"cache"`
	CacheGen int              `json:"cache_gen"`
	Pending  *PendingAction   `json:"pending,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	LastSeen  time.Time `json:"last_seen"`
}

func New(userID string) *Session {
	now := time.Now()
	return &Session{
		UserID:    userID,
		CreatedAt: now,
		LastSeen:  now,
	}
}

// AddTurn appends to the dialogue history, trimming the oldest entries.
func (s *Session) AddTurn(role, content string) {
	s.History = append(s.History, Turn{Role: role, Content: content, At: time.Now()})
	if len(s.History) > maxHistory {
		s.History = s.History[len(s.History)-maxHistory:]
	}
}

// ReplaceCache installs a new cache generation. Indices are rewritten to be
// contiguous from 1; references into the previous generation stop resolving.
func (s *Session) ReplaceCache(refs []model.EmailRef) {
	for i := range refs {
		refs[i].Index = i + 1
	}
	s.Cache = refs
	s.CacheGen++
}

// RemoveFromCache drops the entry with the given email id, keeping the
// remaining indices untouched so the user's view stays consistent.
func (s *Session) RemoveFromCache(emailID string) {
	kept := s.Cache[:0]
	for _, ref := range s.Cache {
		if ref.ID != emailID {
			kept = append(kept, ref)
		}
	}
	s.Cache = kept
}

// PendingKind returns the staged action kind, or "" when idle.
func (s *Session) PendingKind() model.PendingKind {
	if s.Pending == nil {
		return ""
	}
	return s.Pending.Kind
}

// ExpirePending clears a pending action older than timeout. Returns true if
// something was cleared.
func (s *Session) ExpirePending(timeout time.Duration) bool {
	if s.Pending == nil {
		return false
	}
	if time.Since(s.Pending.CreatedAt) < timeout {
		return false
	}
	s.Pending = nil
	return true
}
