package plan

import (
	"sync"
	"time"

	"github.com/kilianp07/rosterd/core/model"
)

// FreezeWindow tracks published days and rejects mutation for the configured
// duration after each publish.
type FreezeWindow struct {
	Duration time.Duration

	mu        sync.RWMutex
	published map[model.Day]time.Time
}

// NewFreezeWindow returns a freeze gate with the given window duration.
func NewFreezeWindow(d time.Duration) *FreezeWindow {
	return &FreezeWindow{Duration: d, published: make(map[model.Day]time.Time)}
}

// MarkPublished records the publish instant for the given days.
func (f *FreezeWindow) MarkPublished(at time.Time, days ...model.Day) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range days {
		f.published[d] = at
	}
}

// Frozen implements FreezeGate.
func (f *FreezeWindow) Frozen(day model.Day, now time.Time) bool {
	if f == nil || f.Duration <= 0 {
		return false
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	at, ok := f.published[day]
	return ok && now.Before(at.Add(f.Duration))
}
