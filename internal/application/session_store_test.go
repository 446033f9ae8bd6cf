package application

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	bookingDomain "github.com/sakay-ph/service-booking/internal/domain/booking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSessionStore_AddGetRemove(t *testing.T) {
	st := NewSessionStore(time.Minute)
	s := bookingDomain.NewSession(bookingDomain.SessionDeps{})

	id := st.Add(s)
	got, err := st.Get(id)
	require.NoError(t, err)
	assert.Same(t, s, got)

	st.Remove(id)
	_, err = st.Get(id)
	assert.Equal(t, bookingDomain.CodeNotFound, bookingDomain.CodeOf(err))

	_, err = st.Get(uuid.New())
	assert.Error(t, err)
}

func TestSessionStore_Sweep(t *testing.T) {
	st := NewSessionStore(30 * time.Minute)
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return now }

	idle := st.Add(bookingDomain.NewSession(bookingDomain.SessionDeps{}))
	active := st.Add(bookingDomain.NewSession(bookingDomain.SessionDeps{}))

	now = now.Add(20 * time.Minute)
	_, err := st.Get(active)
	require.NoError(t, err)

	now = now.Add(15 * time.Minute)
	assert.Equal(t, 1, st.Sweep())
	assert.Equal(t, 1, st.Len())

	_, err = st.Get(idle)
	assert.Error(t, err)
	_, err = st.Get(active)
	assert.NoError(t, err)
}

func TestSessionStore_NoExpiry(t *testing.T) {
	st := NewSessionStore(0)
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return now }

	st.Add(bookingDomain.NewSession(bookingDomain.SessionDeps{}))
	now = now.Add(24 * time.Hour)
	assert.Zero(t, st.Sweep())
	assert.Equal(t, 1, st.Len())
}

func TestSessionStore_RunJanitorStopsOnCancel(t *testing.T) {
	st := NewSessionStore(time.Millisecond)
	st.Add(bookingDomain.NewSession(bookingDomain.SessionDeps{}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		st.RunJanitor(ctx, time.Millisecond, zap.NewNop())
		close(done)
	}()

	assert.Eventually(t, func() bool { return st.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}
