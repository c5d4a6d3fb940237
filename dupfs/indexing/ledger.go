package indexing

import (
	"fmt"
	"sync"

	roaring "github.com/RoaringBitmap/roaring"
)

// UnitLedger records which scan units were started and finished, by unit id.
// The scheduler uses it to prove every enumerated unit ran exactly once.
type UnitLedger struct {
	mu       sync.Mutex
	total    uint32
	started  *roaring.Bitmap
	finished *roaring.Bitmap
	repeats  *roaring.Bitmap
}

// NewUnitLedger creates a ledger for unit ids [0, total).
func NewUnitLedger(total int) *UnitLedger {
	return &UnitLedger{
		total:    uint32(total),
		started:  roaring.New(),
		finished: roaring.New(),
		repeats:  roaring.New(),
	}
}

// Start marks id as started. A second start of the same id is remembered as a repeat.
func (l *UnitLedger) Start(id int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.started.CheckedAdd(uint32(id)) {
		l.repeats.Add(uint32(id))
	}
}

// Finish marks id as finished.
func (l *UnitLedger) Finish(id int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.finished.Add(uint32(id))
}

// Started returns how many distinct units were started.
func (l *UnitLedger) Started() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.started.GetCardinality()
}

// Pending returns the ids that were never finished.
func (l *UnitLedger) Pending() []uint32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	all := roaring.New()
	all.AddRange(0, uint64(l.total))
	all.AndNot(l.finished)
	return all.ToArray()
}

// Verify returns an error unless every unit started exactly once and finished.
func (l *UnitLedger) Verify() error {
	l.mu.Lock()
	repeats := l.repeats.ToArray()
	started := l.started.GetCardinality()
	l.mu.Unlock()

	if len(repeats) > 0 {
		return fmt.Errorf("units started more than once: %v", repeats)
	}
	if started != uint64(l.total) {
		return fmt.Errorf("started %d of %d units", started, l.total)
	}
	if pending := l.Pending(); len(pending) > 0 {
		return fmt.Errorf("units never finished: %v", pending)
	}
	return nil
}
