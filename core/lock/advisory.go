// Package lock provides the process-wide advisory lock guarding solve and
// repair-apply operations. The lock is purely in-memory: it never blocks the
// caller and never survives a process restart.
package lock

import (
	"sync"

	"github.com/kilianp07/rosterd/core/model"
)

// Key is the composite lock key: (tenant_id << 32) | scheduling_unit_id.
type Key uint64

// Compose builds the composite key.
func Compose(tenantID, schedulingUnitID uint32) Key {
	return Key(uint64(tenantID)<<32 | uint64(schedulingUnitID))
}

// TenantID extracts the tenant half of the key.
func (k Key) TenantID() uint32 { return uint32(k >> 32) }

// SchedulingUnitID extracts the scheduling-unit half of the key.
func (k Key) SchedulingUnitID() uint32 { return uint32(k) }

// Advisory is a non-blocking mutual-exclusion primitive keyed by Key. At most
// one solve or repair-apply may be in flight per scheduling unit.
type Advisory struct {
	mu   sync.Mutex
	held map[Key]string
}

// NewAdvisory returns an empty advisory lock table.
func NewAdvisory() *Advisory {
	return &Advisory{held: make(map[Key]string)}
}

// TryAcquire attempts to take the lock for owner. It fails fast with
// LOCK_HELD when the key is already taken; the returned release function is
// idempotent and must be called on every exit path.
func (a *Advisory) TryAcquire(k Key, owner string) (release func(), err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if holder, ok := a.held[k]; ok {
		return nil, model.E(model.CodeLockHeld, "scheduling unit %d is locked by %s", k.SchedulingUnitID(), holder).
			WithDetail("tenant_id", k.TenantID()).
			WithDetail("scheduling_unit_id", k.SchedulingUnitID())
	}
	a.held[k] = owner

	var once sync.Once
	return func() {
		once.Do(func() {
			a.mu.Lock()
			delete(a.held, k)
			a.mu.Unlock()
		})
	}, nil
}

// Holder returns the current owner of the key, if any.
func (a *Advisory) Holder(k Key) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	owner, ok := a.held[k]
	return owner, ok
}
