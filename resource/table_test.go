package resource

import (
	"errors"
	"sync"
	"testing"
)

type testObserver struct {
	events []Event[string]
}

func (o *testObserver) OnResourceEvent(e Event[string]) {
	o.events = append(o.events, e)
}

func TestTable_Basic(t *testing.T) {
	table := NewTable[string]()

	h, err := table.Insert("test")
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if h == 0 {
		t.Fatal("Expected non-zero handle")
	}

	val, ok := table.Get(h)
	if !ok {
		t.Fatal("Get failed")
	}
	if val != "test" {
		t.Fatalf("Expected 'test', got %v", val)
	}

	val, ok = table.Remove(h)
	if !ok {
		t.Fatal("Remove failed")
	}
	if val != "test" {
		t.Fatalf("Expected 'test', got %v", val)
	}

	if table.Len() != 0 {
		t.Fatal("Expected Len() == 0 after Remove")
	}
	if _, ok := table.Get(h); ok {
		t.Fatal("Expected Get to fail after Remove")
	}
}

func TestTable_ZeroHandle(t *testing.T) {
	table := NewTable[int]()
	if _, ok := table.Get(0); ok {
		t.Fatal("Get(0) should fail")
	}
	if _, ok := table.Remove(0); ok {
		t.Fatal("Remove(0) should fail")
	}
	if _, ok := table.Get(Handle(999)); ok {
		t.Fatal("Get(unknown) should fail")
	}
}

func TestTable_DoubleRemove(t *testing.T) {
	table := NewTable[int]()
	h, _ := table.Insert(7)

	if _, ok := table.Remove(h); !ok {
		t.Fatal("first Remove should succeed")
	}
	if _, ok := table.Remove(h); ok {
		t.Fatal("second Remove should fail")
	}
}

func TestTable_StaleHandleAfterReuse(t *testing.T) {
	table := NewTable[int]()

	h1, _ := table.Insert(1)
	table.Remove(h1)

	h2, _ := table.Insert(2)
	if h1 == h2 {
		t.Fatal("reused slot must produce a distinct handle")
	}
	if uint32(h1) != uint32(h2) {
		t.Fatalf("expected slot reuse, got %x and %x", h1, h2)
	}

	if _, ok := table.Get(h1); ok {
		t.Fatal("stale handle must not resolve")
	}
	if _, ok := table.Remove(h1); ok {
		t.Fatal("stale handle must not remove the new entry")
	}
	if v, ok := table.Get(h2); !ok || v != 2 {
		t.Fatalf("Get(h2) = %v, %v", v, ok)
	}
}

func TestTable_Observer(t *testing.T) {
	table := NewTable[string]()
	obs := &testObserver{}
	table.Subscribe(obs)

	h, _ := table.Insert("test")
	if len(obs.events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(obs.events))
	}
	if obs.events[0].Type != EventCreated {
		t.Fatal("Expected EventCreated")
	}
	if obs.events[0].Handle != h {
		t.Fatal("Wrong handle in event")
	}

	table.Remove(h)
	if len(obs.events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(obs.events))
	}
	if obs.events[1].Type != EventDropped {
		t.Fatal("Expected EventDropped")
	}
	if obs.events[1].Value != "test" {
		t.Fatalf("Expected dropped value 'test', got %q", obs.events[1].Value)
	}
}

func TestTable_ObserverFunc(t *testing.T) {
	table := NewTable[int]()
	var created, dropped int
	table.Subscribe(ObserverFunc[int](func(e Event[int]) {
		switch e.Type {
		case EventCreated:
			created++
		case EventDropped:
			dropped++
		}
	}))

	h, _ := table.Insert(1)
	table.Insert(2)
	table.Remove(h)

	if created != 2 || dropped != 1 {
		t.Fatalf("created=%d dropped=%d", created, dropped)
	}
}

func TestTable_Each(t *testing.T) {
	table := NewTable[int]()
	for i := range 5 {
		table.Insert(i)
	}

	sum := 0
	table.Each(func(h Handle, v int) bool {
		if got, ok := table.Get(h); !ok || got != v {
			t.Errorf("Each handle %x does not resolve to %d", h, v)
		}
		sum += v
		return true
	})
	if sum != 10 {
		t.Fatalf("sum = %d, want 10", sum)
	}

	visited := 0
	table.Each(func(Handle, int) bool {
		visited++
		return false
	})
	if visited != 1 {
		t.Fatalf("Each should stop early, visited %d", visited)
	}
}

func TestTable_Close(t *testing.T) {
	table := NewTable[string]()
	ha, _ := table.Insert("a")
	hb, _ := table.Insert("b")
	table.Remove(hb)

	obs := &testObserver{}
	table.Subscribe(obs)
	if err := table.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if len(obs.events) != 1 {
		t.Fatalf("Close should drop only live entries, got %d events", len(obs.events))
	}
	if e := obs.events[0]; e.Type != EventDropped || e.Handle != ha || e.Value != "a" {
		t.Fatalf("event = %+v", e)
	}
	if table.Len() != 0 {
		t.Fatalf("Len after Close = %d", table.Len())
	}

	if _, err := table.Insert("c"); !errors.Is(err, ErrClosed) {
		t.Fatalf("Insert after Close: err = %v, want ErrClosed", err)
	}
	if err := table.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	if len(obs.events) != 1 {
		t.Fatal("second Close should not notify")
	}
}

func TestTable_Concurrent(t *testing.T) {
	table := NewTable[int]()
	var wg sync.WaitGroup

	for i := range 16 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := range 100 {
				h, err := table.Insert(n*1000 + j)
				if err != nil {
					t.Errorf("Insert: %v", err)
					return
				}
				if v, ok := table.Remove(h); !ok || v != n*1000+j {
					t.Errorf("Remove(%x) = %d, %v", h, v, ok)
					return
				}
			}
		}(i)
	}
	wg.Wait()

	if table.Len() != 0 {
		t.Fatalf("Len = %d after concurrent churn", table.Len())
	}
}
