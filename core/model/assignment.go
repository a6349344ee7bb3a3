package model

import (
	"sort"
	"time"
)

// BlockType classifies the shape of a driver's daily block.
type BlockType string

const (
	Block1er      BlockType = "1er"
	Block2erReg   BlockType = "2er-reg"
	Block2erSplit BlockType = "2er-split"
	Block3er      BlockType = "3er"
)

// Split reports whether the block type carries an extended split-shift span.
func (b BlockType) Split() bool {
	return b == Block2erSplit || b == Block3er
}

// Assignment binds a driver to the tours of one block on one day. Assignments
// are owned by the plan version that created them and are superseded, never
// mutated, by repair proposals.
type Assignment struct {
	DriverID  string    `json:"driver_id"`
	Day       Day       `json:"day"`
	BlockID   string    `json:"block_id"`
	BlockType BlockType `json:"block_type"`
	TourIDs   []string  `json:"tour_ids"`
}

// Clone returns a deep copy of the assignment.
func (a Assignment) Clone() Assignment {
	cp := a
	cp.TourIDs = append([]string(nil), a.TourIDs...)
	return cp
}

// Span returns the earliest start and latest end over the block's tours.
// Tours unknown to the set are skipped.
func (a Assignment) Span(tours TourSet) (start, end time.Time, ok bool) {
	for _, id := range a.TourIDs {
		t, found := tours[id]
		if !found {
			continue
		}
		if !ok || t.Start.Before(start) {
			start = t.Start
		}
		if !ok || t.End.After(end) {
			end = t.End
		}
		ok = true
	}
	return start, end, ok
}

// WorkDuration sums the tour durations of the block.
func (a Assignment) WorkDuration(tours TourSet) time.Duration {
	var d time.Duration
	for _, id := range a.TourIDs {
		if t, found := tours[id]; found {
			d += t.Duration()
		}
	}
	return d
}

// SortAssignments orders assignments deterministically by (driver, day, block).
func SortAssignments(asn []Assignment) {
	sort.Slice(asn, func(i, j int) bool {
		if asn[i].DriverID != asn[j].DriverID {
			return asn[i].DriverID < asn[j].DriverID
		}
		if asn[i].Day != asn[j].Day {
			return asn[i].Day < asn[j].Day
		}
		return asn[i].BlockID < asn[j].BlockID
	})
}

// CloneAssignments deep-copies an assignment slice.
func CloneAssignments(asn []Assignment) []Assignment {
	out := make([]Assignment, len(asn))
	for i, a := range asn {
		out[i] = a.Clone()
	}
	return out
}
