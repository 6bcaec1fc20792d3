package permalink

// MemoryLocation is a Location with change notification for maps that
// have no browser window, a remote client reports its hash edits with Navigate.
type MemoryLocation struct {
	hash      string
	handlers  []locationHandler
	seq       int
	onReplace func(hash string)
}

type locationHandler struct {
	id int
	fn func()
}

var (
	_ Location = (*MemoryLocation)(nil)
	_ Watcher  = (*MemoryLocation)(nil)
)

// NewMemoryLocation returns a location holding hash, onReplace is called
// with every hash the permalink writes and may be nil.
func NewMemoryLocation(hash string, onReplace func(hash string)) *MemoryLocation {
	return &MemoryLocation{hash: hash, onReplace: onReplace}
}

func (l *MemoryLocation) Hash() string { return l.hash }

func (l *MemoryLocation) Replace(hash string) {
	if l.hash == hash {
		return
	}
	l.hash = hash
	if l.onReplace != nil {
		l.onReplace(hash)
	}
	l.fire()
}

// Navigate sets the hash from outside, like a back button press.
func (l *MemoryLocation) Navigate(hash string) {
	if l.hash == hash {
		return
	}
	l.hash = hash
	l.fire()
}

func (l *MemoryLocation) fire() {
	for _, h := range append([]locationHandler(nil), l.handlers...) {
		h.fn()
	}
}

func (l *MemoryLocation) OnHashChange(fn func()) int {
	l.seq++
	l.handlers = append(l.handlers, locationHandler{id: l.seq, fn: fn})
	return l.seq
}

func (l *MemoryLocation) OffHashChange(id int) {
	for i, h := range l.handlers {
		if h.id == id {
			l.handlers = append(l.handlers[:i], l.handlers[i+1:]...)
			return
		}
	}
}
