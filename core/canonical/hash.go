package canonical

import (
	"sort"
	"time"

	"github.com/kilianp07/rosterd/core/model"
)

// InputHash digests a tour set independent of input ordering and struct
// field layout. Tours are keyed by ID and timestamps are reduced to RFC3339
// UTC so that equal inputs always serialize identically.
func InputHash(tours []model.TourInstance) (string, error) {
	sorted := make([]model.TourInstance, len(tours))
	copy(sorted, tours)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	entries := make([]map[string]any, len(sorted))
	for i, t := range sorted {
		quals := append([]string(nil), t.Qualifications...)
		sort.Strings(quals)
		entries[i] = map[string]any{
			"id":             t.ID,
			"day":            string(t.Day),
			"start":          t.Start.UTC().Format(time.RFC3339),
			"end":            t.End.UTC().Format(time.RFC3339),
			"depot":          t.Depot,
			"qualifications": quals,
		}
	}
	return Hash(entries)
}

// OutputHash digests an assignment set keyed by (driver_id, tour_instance_id).
// Wall-clock fields never enter the payload.
func OutputHash(assignments []model.Assignment) (string, error) {
	type pair struct {
		DriverID  string `json:"driver_id"`
		TourID    string `json:"tour_instance_id"`
		Day       string `json:"day"`
		BlockID   string `json:"block_id"`
		BlockType string `json:"block_type"`
	}
	var pairs []pair
	for _, a := range assignments {
		for _, tid := range a.TourIDs {
			pairs = append(pairs, pair{
				DriverID:  a.DriverID,
				TourID:    tid,
				Day:       string(a.Day),
				BlockID:   a.BlockID,
				BlockType: string(a.BlockType),
			})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].DriverID != pairs[j].DriverID {
			return pairs[i].DriverID < pairs[j].DriverID
		}
		return pairs[i].TourID < pairs[j].TourID
	})
	return Hash(pairs)
}
