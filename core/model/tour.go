package model

import "time"

// Day identifies one calendar day in ISO format (2006-01-02). All scheduling
// is done per day; cross-midnight tours belong to the day they start on.
type Day string

// ParseDay validates and returns a Day.
func ParseDay(s string) (Day, error) {
	if _, err := time.Parse("2006-01-02", s); err != nil {
		return "", err
	}
	return Day(s), nil
}

// DayOf returns the Day containing t, evaluated in UTC.
func DayOf(t time.Time) Day {
	return Day(t.UTC().Format("2006-01-02"))
}

// Time returns midnight UTC of the day.
func (d Day) Time() time.Time {
	t, _ := time.Parse("2006-01-02", string(d))
	return t
}

// Next returns the following calendar day.
func (d Day) Next() Day {
	return DayOf(d.Time().Add(24 * time.Hour))
}

// Before reports whether d is chronologically before other.
func (d Day) Before(other Day) bool { return string(d) < string(other) }

// TourInstance is a single required shift occurrence. It is owned by the
// ingestion pipeline and read-only to this engine.
type TourInstance struct {
	ID             string    `json:"id"`
	Day            Day       `json:"day"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	Depot          string    `json:"depot"`
	Qualifications []string  `json:"qualifications,omitempty"`
}

// Duration returns the working time of the tour.
func (t TourInstance) Duration() time.Duration { return t.End.Sub(t.Start) }

// TourSet indexes tours by ID for evaluator lookups.
type TourSet map[string]TourInstance

// NewTourSet builds a TourSet from a slice.
func NewTourSet(tours []TourInstance) TourSet {
	set := make(TourSet, len(tours))
	for _, t := range tours {
		set[t.ID] = t
	}
	return set
}
