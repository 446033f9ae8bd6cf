package application

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	bookingDomain "github.com/sakay-ph/service-booking/internal/domain/booking"
	"go.uber.org/zap"
)

type sessionEntry struct {
	session  *bookingDomain.Session
	lastSeen time.Time

	// finalized holds a booking whose persistence failed, so Book can be retried
	// without finalizing again.
	finalized *bookingDomain.Booking
	booking   bool
}

// SessionStore keeps quote sessions in memory and expires idle ones.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*sessionEntry
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionStore creates a SessionStore. A non-positive ttl disables expiry.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[uuid.UUID]*sessionEntry),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Add registers s under a new ID.
func (st *SessionStore) Add(s *bookingDomain.Session) uuid.UUID {
	st.mu.Lock()
	defer st.mu.Unlock()

	id := uuid.New()
	st.sessions[id] = &sessionEntry{session: s, lastSeen: st.now()}
	return id
}

// Get returns the session for id and refreshes its idle timer.
func (st *SessionStore) Get(id uuid.UUID) (*bookingDomain.Session, error) {
	e, err := st.entry(id)
	if err != nil {
		return nil, err
	}
	return e.session, nil
}

// Remove discards the session.
func (st *SessionStore) Remove(id uuid.UUID) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}

// Len returns the number of live sessions.
func (st *SessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Sweep removes sessions idle for longer than the TTL and returns how many were removed.
func (st *SessionStore) Sweep() int {
	if st.ttl <= 0 {
		return 0
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	cutoff := st.now().Add(-st.ttl)
	removed := 0
	for id, e := range st.sessions {
		if e.lastSeen.Before(cutoff) {
			delete(st.sessions, id)
			removed++
		}
	}
	return removed
}

// RunJanitor sweeps every interval until ctx is done.
func (st *SessionStore) RunJanitor(ctx context.Context, interval time.Duration, logger *zap.Logger) {
	if interval <= 0 || st.ttl <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := st.Sweep(); n > 0 {
				logger.Debug("expired idle quote sessions", zap.Int("count", n))
			}
		}
	}
}

func (st *SessionStore) entry(id uuid.UUID) (*sessionEntry, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	e, ok := st.sessions[id]
	if !ok {
		return nil, bookingDomain.NewNotFoundError("Quote session", id.String())
	}
	e.lastSeen = st.now()
	return e, nil
}

func (st *SessionStore) setFinalized(id uuid.UUID, bk *bookingDomain.Booking) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if e, ok := st.sessions[id]; ok {
		e.finalized = bk
	}
}

func (st *SessionStore) finalizedBooking(id uuid.UUID) *bookingDomain.Booking {
	st.mu.Lock()
	defer st.mu.Unlock()
	if e, ok := st.sessions[id]; ok {
		return e.finalized
	}
	return nil
}

// beginBooking marks the session as being booked. It returns false if the session is
// unknown or another booking attempt holds it.
func (st *SessionStore) beginBooking(id uuid.UUID) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	e, ok := st.sessions[id]
	if !ok || e.booking {
		return false
	}
	e.booking = true
	return true
}

func (st *SessionStore) endBooking(id uuid.UUID) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if e, ok := st.sessions[id]; ok {
		e.booking = false
	}
}
