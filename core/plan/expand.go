package plan

import (
	"sort"

	"github.com/kilianp07/rosterd/core/model"
)

// ExpandSlots materializes one slot per assignment block, funneled through
// the machine so the per-state invariants hold from creation. The slot
// inherits the block ID; release_at is the block's span end and the depot is
// taken from the block's first resolvable tour. Assignments whose tours are
// all unknown to the set produce no slot.
//
// authority marks the caller as the locking authority; repair passes it to
// rebuild slots for days inside a freeze window.
func ExpandSlots(m *SlotMachine, assignments []model.Assignment, tours model.TourSet, authority bool) ([]model.DailySlot, error) {
	slots := make([]model.DailySlot, 0, len(assignments))
	for _, a := range assignments {
		_, end, ok := a.Span(tours)
		if !ok {
			continue
		}
		s := model.DailySlot{
			ID:     a.BlockID,
			Day:    a.Day,
			Depot:  blockDepot(a, tours),
			Status: model.SlotPlanned,
		}
		s, err := m.Transition(s, SlotRequest{
			To:        model.SlotAssigned,
			DriverID:  a.DriverID,
			ReleaseAt: &end,
			Authority: authority,
		})
		if err != nil {
			return nil, err
		}
		slots = append(slots, s)
	}
	SortSlots(slots)
	return slots, nil
}

func blockDepot(a model.Assignment, tours model.TourSet) string {
	for _, id := range a.TourIDs {
		if t, ok := tours[id]; ok {
			return t.Depot
		}
	}
	return ""
}

// SortSlots orders slots deterministically by (day, id).
func SortSlots(slots []model.DailySlot) {
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].Day != slots[j].Day {
			return slots[i].Day < slots[j].Day
		}
		return slots[i].ID < slots[j].ID
	})
}
