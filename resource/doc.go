// Package resource maps opaque handle tokens to host-side values.
//
// The VAD cores never hand a raw native pointer or guest address to their
// callers. Each core stores the real instance reference in a Table and
// returns the table's Handle instead:
//
//	table := resource.NewTable[uint32]()
//	h, err := table.Insert(guestPtr)
//	ptr, ok := table.Get(h)
//	ptr, ok = table.Remove(h) // h is now permanently invalid
//
// Handles carry a generation, so a handle removed once never resolves
// again even after its slot is reused. Handle 0 is always invalid.
//
// # Observers
//
// Observers see every Insert and Remove, plus one EventDropped per entry
// still live when the table is closed:
//
//	table.Subscribe(resource.ObserverFunc[uint32](func(e resource.Event[uint32]) {
//	    log.Printf("handle %d %s", e.Handle, e.Type)
//	}))
package resource
