package resource

import (
	"errors"
	"sync"
)

var ErrClosed = errors.New("resource table closed")

// Table maps opaque handles to values of type T.
// Freed slots are reused; their generation is bumped so stale handles miss.
type Table[T any] struct {
	entries   []entry[T]
	freeList  []uint32
	observers []Observer[T]
	live      int
	mu        sync.RWMutex
	obsMu     sync.RWMutex
	closed    bool
}

type entry[T any] struct {
	value T
	gen   uint32
	valid bool
}

// NewTable creates an empty table.
func NewTable[T any]() *Table[T] {
	return &Table[T]{
		entries:  make([]entry[T], 0, 16),
		freeList: make([]uint32, 0, 4),
	}
}

// Insert stores a value and returns its handle.
func (t *Table[T]) Insert(value T) (Handle, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return 0, ErrClosed
	}

	var h Handle
	if n := len(t.freeList); n > 0 {
		idx := t.freeList[n-1]
		t.freeList = t.freeList[:n-1]
		e := &t.entries[idx]
		e.value = value
		e.valid = true
		h = makeHandle(idx, e.gen)
	} else {
		t.entries = append(t.entries, entry[T]{value: value, valid: true})
		h = makeHandle(uint32(len(t.entries)-1), 0)
	}
	t.live++
	t.mu.Unlock()

	t.notify(Event[T]{Type: EventCreated, Handle: h, Value: value})
	return h, nil
}

// Get retrieves a value by handle.
func (t *Table[T]) Get(h Handle) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, ok := t.lookup(h)
	if !ok {
		var zero T
		return zero, false
	}
	return e.value, true
}

// Remove invalidates a handle and returns its value.
// Returns false if the handle is zero, stale or unknown.
func (t *Table[T]) Remove(h Handle) (T, bool) {
	var zero T

	t.mu.Lock()
	e, ok := t.lookup(h)
	if !ok {
		t.mu.Unlock()
		return zero, false
	}
	value := e.value
	e.value = zero
	e.valid = false
	e.gen++
	idx, _ := h.slot()
	t.freeList = append(t.freeList, idx)
	t.live--
	t.mu.Unlock()

	t.notify(Event[T]{Type: EventDropped, Handle: h, Value: value})
	return value, true
}

// lookup must be called with mu held.
func (t *Table[T]) lookup(h Handle) (*entry[T], bool) {
	idx, ok := h.slot()
	if !ok || int(idx) >= len(t.entries) {
		return nil, false
	}
	e := &t.entries[idx]
	if !e.valid || e.gen != h.generation() {
		return nil, false
	}
	return e, true
}

// Len returns the number of live handles.
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.live
}

// Each iterates over all live handles.
func (t *Table[T]) Each(fn func(Handle, T) bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for i, e := range t.entries {
		if e.valid {
			if !fn(makeHandle(uint32(i), e.gen), e.value) {
				return
			}
		}
	}
}

// Subscribe adds an observer for lifecycle events.
func (t *Table[T]) Subscribe(o Observer[T]) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Close drops every live entry and stops accepting inserts.
// Observers receive an EventDropped for each entry still live.
func (t *Table[T]) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	entries := t.entries
	t.entries = nil
	t.freeList = nil
	t.live = 0
	t.mu.Unlock()

	for i, e := range entries {
		if e.valid {
			t.notify(Event[T]{Type: EventDropped, Handle: makeHandle(uint32(i), e.gen), Value: e.value})
		}
	}
	return nil
}

func (t *Table[T]) notify(e Event[T]) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnResourceEvent(e)
	}
}
