package server

import (
	"context"
	"testing"
	"time"

	"github.com/machbase/neo-polarmap/mods/polarmap"
	"github.com/machbase/neo-polarmap/mods/projection"
	"github.com/machbase/neo-polarmap/mods/util/loop"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, ttl time.Duration, capacity int) *SessionStore {
	t.Helper()
	ss, err := NewSessionStore(projection.DefaultRegistry(), polarmap.DefaultOptions(), ttl, capacity)
	require.NoError(t, err)
	ss.Start()
	t.Cleanup(ss.Stop)
	return ss
}

func isDone(s *Session) bool {
	select {
	case <-s.Done():
		return true
	default:
		return false
	}
}

func TestSessionStore(t *testing.T) {
	ss := newTestStore(t, time.Minute, 0)
	ctx := context.Background()

	s1, err := ss.Create(ctx, nil)
	require.NoError(t, err)
	s2, err := ss.Create(ctx, func(o *polarmap.Options) { o.DefaultProjection = "ac_3571" })
	require.NoError(t, err)
	require.NotEqual(t, s1.ID, s2.ID)
	require.Equal(t, 2, ss.Len())

	got, err := ss.Get(s1.ID)
	require.NoError(t, err)
	require.Same(t, s1, got)

	st, err := s2.State(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, "ac_3571", st.Projection)

	st, err = s1.State(ctx, func(pm *polarmap.PolarMap) error {
		return pm.SetBaseLayer("ac_3576")
	})
	require.NoError(t, err)
	require.Equal(t, "ac_3576", st.Projection)

	_, err = s1.State(ctx, func(pm *polarmap.PolarMap) error {
		return pm.SetBaseLayer("nowhere")
	})
	require.ErrorIs(t, err, projection.ErrNotFound)

	_, err = ss.Create(ctx, func(o *polarmap.Options) { o.DefaultProjection = "nowhere" })
	require.ErrorIs(t, err, projection.ErrNotFound)
	require.Equal(t, 2, ss.Len())

	require.NoError(t, ss.Delete(s1.ID))
	require.ErrorIs(t, ss.Delete(s1.ID), ErrSessionNotFound)
	_, err = ss.Get(s1.ID)
	require.ErrorIs(t, err, ErrSessionNotFound)
	require.Eventually(t, func() bool { return isDone(s1) }, time.Second, 10*time.Millisecond)

	err = s1.Do(ctx, func(pm *polarmap.PolarMap) error { return nil })
	require.ErrorIs(t, err, loop.ErrClosed)
}

func TestSessionStoreCapacity(t *testing.T) {
	ss := newTestStore(t, time.Minute, 2)
	ctx := context.Background()

	s1, err := ss.Create(ctx, nil)
	require.NoError(t, err)
	s2, err := ss.Create(ctx, nil)
	require.NoError(t, err)
	// s1 becomes the most recently used
	_, err = ss.Get(s1.ID)
	require.NoError(t, err)

	s3, err := ss.Create(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, 2, ss.Len())

	_, err = ss.Get(s2.ID)
	require.ErrorIs(t, err, ErrSessionNotFound)
	require.Eventually(t, func() bool { return isDone(s2) }, time.Second, 10*time.Millisecond)
	require.False(t, isDone(s1))
	require.False(t, isDone(s3))
}

func TestSessionStoreExpiry(t *testing.T) {
	ss := newTestStore(t, 50*time.Millisecond, 0)
	s, err := ss.Create(context.Background(), nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return isDone(s) }, 2*time.Second, 10*time.Millisecond)
	_, err = ss.Get(s.ID)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionStoreStop(t *testing.T) {
	ss, err := NewSessionStore(projection.DefaultRegistry(), polarmap.DefaultOptions(), time.Minute, 0)
	require.NoError(t, err)
	ss.Start()
	s, err := ss.Create(context.Background(), nil)
	require.NoError(t, err)
	ss.Stop()
	require.True(t, isDone(s))
	require.Equal(t, 0, ss.Len())
}

func TestSessionWatchChannel(t *testing.T) {
	ss := newTestStore(t, time.Minute, 0)
	ctx := context.Background()
	s, err := ss.Create(ctx, nil)
	require.NoError(t, err)

	ch, unsubscribe, err := s.Watch(ctx)
	require.NoError(t, err)
	st := <-ch
	require.Equal(t, "ac_3573", st.Projection)

	require.NoError(t, s.Do(ctx, func(pm *polarmap.PolarMap) error {
		pm.RotateCW()
		pm.RotateCW()
		return nil
	}))
	// a slow reader sees the latest state
	require.Eventually(t, func() bool {
		select {
		case st = <-ch:
		default:
		}
		return st.Projection == "ac_3575"
	}, time.Second, 10*time.Millisecond)
	unsubscribe()
}
