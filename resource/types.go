package resource

// Handle is an opaque token for a value held in a Table.
// Handle 0 is reserved and always invalid.
//
// The low 32 bits select a slot; the high 32 bits carry the slot's
// generation, so a token stays invalid after its slot is reused.
type Handle uint64

func makeHandle(slot, gen uint32) Handle {
	return Handle(uint64(gen)<<32 | uint64(slot+1))
}

func (h Handle) slot() (uint32, bool) {
	idx := uint32(h)
	if idx == 0 {
		return 0, false
	}
	return idx - 1, true
}

func (h Handle) generation() uint32 {
	return uint32(h >> 32)
}

// Event types for handle lifecycle notifications.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDropped
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// Event represents a handle lifecycle event.
type Event[T any] struct {
	Value  T
	Handle Handle
	Type   EventType
}

// Observer receives notifications about handle lifecycle events.
type Observer[T any] interface {
	OnResourceEvent(Event[T])
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc[T any] func(Event[T])

func (f ObserverFunc[T]) OnResourceEvent(e Event[T]) { f(e) }
