package permalink

import (
	"time"

	"github.com/machbase/neo-polarmap/mods/logging"
	"github.com/machbase/neo-polarmap/mods/mapview"
	"github.com/machbase/neo-polarmap/mods/nums"
	"github.com/machbase/neo-polarmap/mods/util/loop"
	gometrics "github.com/rcrowley/go-metrics"
)

const (
	DefaultChangeDefer  = 100 * time.Millisecond
	DefaultPollInterval = 50 * time.Millisecond
)

// Target is the map whose view is kept in the hash.
type Target interface {
	View() mapview.View
	SetView(center nums.LatLng, zoom int)
	// ProjectionID returns the active projection, empty leaves it out of the hash.
	ProjectionID() string
	SetProjection(id string)
	OnViewChanged(fn func()) mapview.HandlerID
	OffViewChanged(id mapview.HandlerID)
}

// Location holds the hash, like the location of a browser window.
type Location interface {
	Hash() string
	// Replace sets the hash without adding a history entry.
	Replace(hash string)
}

// Watcher is implemented by locations that notify hash changes,
// other locations are polled.
type Watcher interface {
	OnHashChange(fn func()) int
	OffHashChange(id int)
}

type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) loop.Stopper
	Every(d time.Duration, fn func()) loop.Stopper
}

type State int

const (
	Idle State = iota
	ApplyingExternalView
	WritingHash
)

func (s State) String() string {
	switch s {
	case ApplyingExternalView:
		return "applying"
	case WritingHash:
		return "writing"
	default:
		return "idle"
	}
}

type Option func(*Hash)

// WithChangeDefer sets the delay that coalesces bursts of changes.
func WithChangeDefer(d time.Duration) Option {
	return func(h *Hash) {
		if d > 0 {
			h.changeDefer = d
		}
	}
}

// WithPollInterval sets how often a location without Watcher is checked.
func WithPollInterval(d time.Duration) Option {
	return func(h *Hash) {
		if d > 0 {
			h.pollInterval = d
		}
	}
}

func WithLogger(l logging.Log) Option {
	return func(h *Hash) { h.log = l }
}

func WithMetrics(r gometrics.Registry) Option {
	return func(h *Hash) { h.metrics = newMetrics(r) }
}

// Hash keeps the view of a target and the hash of a location in sync.
// All methods and callbacks must run on the same goroutine as the scheduler jobs.
type Hash struct {
	target Target
	loc    Location
	sched  Scheduler
	log    logging.Log

	changeDefer  time.Duration
	pollInterval time.Duration

	state    State
	lastHash string
	synced   bool
	removed  bool

	changeTimer loop.Stopper
	writeTimer  loop.Stopper
	poll        loop.Stopper
	viewHandler mapview.HandlerID
	hashHandler int
	watching    bool

	metrics *metrics
}

// New starts syncing. The current hash of loc is applied to target after
// the change defer, an invalid or empty hash is replaced by the current view.
func New(target Target, loc Location, sched Scheduler, opts ...Option) *Hash {
	h := &Hash{
		target:       target,
		loc:          loc,
		sched:        sched,
		changeDefer:  DefaultChangeDefer,
		pollInterval: DefaultPollInterval,
	}
	for _, o := range opts {
		o(h)
	}
	if h.log == nil {
		h.log = logging.GetLog("permalink")
	}
	if h.metrics == nil {
		h.metrics = newMetrics(gometrics.DefaultRegistry)
	}
	h.onHashChange()
	h.startListening()
	return h
}

func (h *Hash) State() State { return h.state }

func (h *Hash) LastHash() string { return h.lastHash }

func (h *Hash) startListening() {
	h.viewHandler = h.target.OnViewChanged(h.onViewChanged)
	if w, ok := h.loc.(Watcher); ok {
		h.hashHandler = w.OnHashChange(h.onHashChange)
		h.watching = true
	} else {
		h.poll = h.sched.Every(h.pollInterval, h.onHashChange)
	}
}

// Remove stops syncing, pending updates are dropped.
func (h *Hash) Remove() {
	if h.removed {
		return
	}
	h.removed = true
	if h.changeTimer != nil {
		h.changeTimer.Stop()
		h.changeTimer = nil
	}
	if h.writeTimer != nil {
		h.writeTimer.Stop()
		h.writeTimer = nil
	}
	if h.poll != nil {
		h.poll.Stop()
		h.poll = nil
	}
	h.target.OffViewChanged(h.viewHandler)
	if h.watching {
		h.loc.(Watcher).OffHashChange(h.hashHandler)
		h.watching = false
	}
}

// Format returns the hash of the current view of the target.
func (h *Hash) Format() string {
	v := h.target.View()
	return FormatHash(View{
		ProjectionID: h.target.ProjectionID(),
		Zoom:         v.Zoom,
		Center:       v.Center,
	})
}

func (h *Hash) onViewChanged() {
	if h.removed || h.state != Idle {
		return
	}
	if h.writeTimer == nil {
		h.writeTimer = h.sched.AfterFunc(h.changeDefer, h.flushWrite)
	}
}

func (h *Hash) flushWrite() {
	h.writeTimer = nil
	if h.removed || h.state != Idle {
		return
	}
	h.write()
}

func (h *Hash) write() {
	h.state = WritingHash
	defer func() { h.state = Idle }()

	hash := h.Format()
	if h.synced && hash == h.lastHash {
		return
	}
	h.lastHash, h.synced = hash, true
	h.loc.Replace(hash)
	h.metrics.writes.Inc(1)
}

func (h *Hash) onHashChange() {
	if h.removed {
		return
	}
	if h.changeTimer == nil {
		h.changeTimer = h.sched.AfterFunc(h.changeDefer, h.update)
	}
}

func (h *Hash) update() {
	h.changeTimer = nil
	if h.removed {
		return
	}
	hash := h.loc.Hash()
	if h.synced && hash == h.lastHash {
		return
	}
	parsed, ok := ParseHash(hash)
	if !ok {
		if hash != "" {
			h.metrics.invalid.Inc(1)
			h.log.Debugf("ignore invalid hash %q", hash)
		}
		h.write()
		return
	}
	h.apply(hash, parsed)
}

func (h *Hash) apply(hash string, parsed Parsed) {
	h.state = ApplyingExternalView
	defer func() { h.state = Idle }()

	if parsed.ProjectionID != "" {
		h.target.SetProjection(parsed.ProjectionID)
	}
	h.target.SetView(parsed.Center, parsed.Zoom)
	h.lastHash, h.synced = hash, true
	h.metrics.applied.Inc(1)
}

type metrics struct {
	writes  gometrics.Counter
	applied gometrics.Counter
	invalid gometrics.Counter
}

func newMetrics(r gometrics.Registry) *metrics {
	return &metrics{
		writes:  gometrics.GetOrRegisterCounter("polarmap.hash.writes", r),
		applied: gometrics.GetOrRegisterCounter("polarmap.hash.applied", r),
		invalid: gometrics.GetOrRegisterCounter("polarmap.hash.invalid", r),
	}
}
