package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Snapshotter persists session snapshots across restarts. Implementations
// must treat a missing session as (nil, nil), not an error.
type Snapshotter interface {
	Load(ctx context.Context, userID string) (*Session, error)
	Save(ctx context.Context, sess *Session) error
	Delete(ctx context.Context, userID string) error
}

type entry struct {
	mu   sync.Mutex
	sess *Session
}

// Store owns all sessions, keyed by authenticated user id. Acquire hands out
// the session under a per-key lock so concurrent requests for the same user
// serialize; different users never contend.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry

	ttl    time.Duration
	snap   Snapshotter // optional
	logger *zap.Logger
}

func NewStore(ttl time.Duration, snap Snapshotter, logger *zap.Logger) *Store {
	return &Store{
		entries: make(map[string]*entry),
		ttl:     ttl,
		snap:    snap,
		logger:  logger,
	}
}

// Acquire locks and returns the user's session, creating it on first use or
// restoring it from the snapshotter. The returned release func must be
// called exactly once; it persists the session and releases the lock.
func (st *Store) Acquire(ctx context.Context, userID string) (*Session, func()) {
	st.mu.Lock()
	e, ok := st.entries[userID]
	if !ok {
		e = &entry{}
		st.entries[userID] = e
	}
	st.mu.Unlock()

	e.mu.Lock()

	if e.sess != nil && time.Since(e.sess.LastSeen) > st.ttl {
		// Expired; tear down rather than resume stale state.
		e.sess = nil
		if st.snap != nil {
			if err := st.snap.Delete(ctx, userID); err != nil {
				st.logger.Warn("session snapshot delete failed", zap.Error(err))
			}
		}
	}

	if e.sess == nil && st.snap != nil {
		sess, err := st.snap.Load(ctx, userID)
		if err != nil {
			st.logger.Warn("session snapshot load failed", zap.Error(err))
		} else if sess != nil && time.Since(sess.LastSeen) <= st.ttl {
			e.sess = sess
		}
	}
	if e.sess == nil {
		e.sess = New(userID)
	}

	sess := e.sess
	release := func() {
		sess.LastSeen = time.Now()
		if st.snap != nil {
			if err := st.snap.Save(ctx, sess); err != nil {
				st.logger.Warn("session snapshot save failed", zap.Error(err))
			}
		}
		e.mu.Unlock()
	}
	return sess, release
}

// Clear removes the user's session entirely (logout).
func (st *Store) Clear(ctx context.Context, userID string) {
	st.mu.Lock()
	e, ok := st.entries[userID]
	if ok {
		delete(st.entries, userID)
	}
	st.mu.Unlock()

	if ok {
		e.mu.Lock()
		e.sess = nil
		e.mu.Unlock()
	}
	if st.snap != nil {
		if err := st.snap.Delete(ctx, userID); err != nil {
			st.logger.Warn("session snapshot delete failed", zap.Error(err))
		}
	}
}
