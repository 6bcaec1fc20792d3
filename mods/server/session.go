package server

import (
	"context"
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/machbase/neo-polarmap/mods/logging"
	"github.com/machbase/neo-polarmap/mods/polarmap"
	"github.com/machbase/neo-polarmap/mods/projection"
	"github.com/machbase/neo-polarmap/mods/util/loop"
	"github.com/sony/sonyflake"
)

var ErrSessionNotFound = errors.New("session not found")

// Session is a polar map owned by a single event loop.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`

	loop *loop.Loop
	pm   *polarmap.PolarMap
}

func newSession(ctx context.Context, id string, registry *projection.Registry, opts polarmap.Options) (*Session, error) {
	s := &Session{
		ID:        id,
		CreatedAt: time.Now(),
		loop:      loop.New("session-" + id),
	}
	err := s.loop.Call(ctx, func() error {
		pm, err := polarmap.New(id, registry, s.loop, opts)
		if err != nil {
			return err
		}
		s.pm = pm
		return nil
	})
	if err != nil {
		s.loop.Close()
		return nil, err
	}
	return s, nil
}

// Do runs fn on the loop of the session and waits for it.
func (s *Session) Do(ctx context.Context, fn func(pm *polarmap.PolarMap) error) error {
	return s.loop.Call(ctx, func() error {
		if s.pm.Closed() {
			return loop.ErrClosed
		}
		return fn(s.pm)
	})
}

// State returns the state of the map after fn, fn may be nil.
func (s *Session) State(ctx context.Context, fn func(pm *polarmap.PolarMap) error) (polarmap.State, error) {
	var st polarmap.State
	err := s.Do(ctx, func(pm *polarmap.PolarMap) error {
		if fn != nil {
			if err := fn(pm); err != nil {
				return err
			}
		}
		st = pm.State()
		return nil
	})
	return st, err
}

// Watch returns a channel that receives the current state and then the
// state after every change. A slow reader only misses intermediate states.
func (s *Session) Watch(ctx context.Context) (<-chan polarmap.State, func(), error) {
	ch := make(chan polarmap.State, 1)
	var cancel func()
	err := s.Do(ctx, func(pm *polarmap.PolarMap) error {
		ch <- pm.State()
		cancel = pm.Subscribe(func(st polarmap.State) {
			select {
			case ch <- st:
			default:
				select {
				case <-ch:
				default:
				}
				ch <- st
			}
		})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	unsubscribe := func() {
		s.loop.Post(cancel)
	}
	return ch, unsubscribe, nil
}

// Done is closed when the session is closed.
func (s *Session) Done() <-chan struct{} {
	return s.loop.Done()
}

func (s *Session) Close() {
	s.loop.Call(context.Background(), func() error {
		s.pm.Close()
		return nil
	})
	s.loop.Close()
}

// SessionStore keeps the sessions while they are used, a session that
// is idle for the ttl or pushed out by newer sessions is closed.
type SessionStore struct {
	log      logging.Log
	cache    *ttlcache.Cache[string, *Session]
	idGen    *sonyflake.Sonyflake
	registry *projection.Registry
	mapOpts  polarmap.Options
	ttl      time.Duration

	stopEviction func()
	done         chan struct{}
}

func NewSessionStore(registry *projection.Registry, mapOpts polarmap.Options, ttl time.Duration, capacity int) (*SessionStore, error) {
	idGen, err := sonyflake.New(sonyflake.Settings{})
	if err != nil {
		// no private address, containers and the like
		idGen, err = sonyflake.New(sonyflake.Settings{
			MachineID: func() (uint16, error) { return uint16(os.Getpid()), nil },
		})
		if err != nil {
			return nil, err
		}
	}
	opts := []ttlcache.Option[string, *Session]{
		ttlcache.WithTTL[string, *Session](ttl),
	}
	if capacity > 0 {
		opts = append(opts, ttlcache.WithCapacity[string, *Session](uint64(capacity)))
	}
	ss := &SessionStore{
		log:      logging.GetLog("sessions"),
		cache:    ttlcache.New(opts...),
		idGen:    idGen,
		registry: registry,
		mapOpts:  mapOpts,
		ttl:      ttl,
	}
	ss.stopEviction = ss.cache.OnEviction(func(ctx context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, *Session]) {
		item.Value().Close()
		metricSessionClosed.Inc(1)
		ss.log.Debugf("session %s closed, %s", item.Key(), evictionReason(reason))
	})
	return ss, nil
}

func evictionReason(r ttlcache.EvictionReason) string {
	switch r {
	case ttlcache.EvictionReasonDeleted:
		return "deleted"
	case ttlcache.EvictionReasonCapacityReached:
		return "capacity reached"
	case ttlcache.EvictionReasonExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Start runs the expiration of idle sessions until Stop.
func (ss *SessionStore) Start() {
	ss.done = make(chan struct{})
	go func() {
		defer close(ss.done)
		ss.cache.Start()
	}()
}

// Stop closes every session.
func (ss *SessionStore) Stop() {
	if ss.done != nil {
		ss.cache.Stop()
		<-ss.done
		ss.done = nil
	}
	ss.cache.DeleteAll()
	ss.stopEviction()
}

// Create opens a new session, opts overrides the default map options.
func (ss *SessionStore) Create(ctx context.Context, mod func(*polarmap.Options)) (*Session, error) {
	n, err := ss.idGen.NextID()
	if err != nil {
		return nil, err
	}
	id := strconv.FormatUint(n, 36)
	opts := ss.mapOpts
	if mod != nil {
		mod(&opts)
	}
	s, err := newSession(ctx, id, ss.registry, opts)
	if err != nil {
		return nil, err
	}
	ss.cache.Set(id, s, ttlcache.DefaultTTL)
	metricSessionCreated.Inc(1)
	return s, nil
}

// Get returns the session and extends its lifetime.
func (ss *SessionStore) Get(id string) (*Session, error) {
	item := ss.cache.Get(id)
	if item == nil {
		return nil, ErrSessionNotFound
	}
	return item.Value(), nil
}

func (ss *SessionStore) Delete(id string) error {
	if !ss.cache.Has(id) {
		return ErrSessionNotFound
	}
	ss.cache.Delete(id)
	return nil
}

func (ss *SessionStore) Len() int {
	return ss.cache.Len()
}
