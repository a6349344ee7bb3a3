// Package violation defines the closed set of compliance violation variants
// and the pure evaluator functions that produce them. Each variant carries
// only the fields its kind requires; there are no free-form detail blobs.
package violation

import (
	"fmt"
	"time"

	"github.com/kilianp07/rosterd/core/model"
)

// Severity classifies how a violation gates plan lifecycle transitions.
// BLOCK halts lock and publish; WARN is surfaced but non-blocking.
type Severity string

const (
	SeverityBlock Severity = "BLOCK"
	SeverityWarn  Severity = "WARN"
)

// Kind tags the violation variant.
type Kind string

const (
	KindUnassignedTour Kind = "UNASSIGNED_TOUR"
	KindDuplicateTour  Kind = "DUPLICATE_TOUR"
	KindOverlap        Kind = "OVERLAP"
	KindRest           Kind = "INSUFFICIENT_REST"
	KindSpanRegular    Kind = "SPAN_REGULAR_EXCEEDED"
	KindSpanSplit      Kind = "SPAN_SPLIT_EXCEEDED"
	KindSplitBreak     Kind = "SPLIT_BREAK_OUT_OF_BAND"
	KindFatigue        Kind = "CONSECUTIVE_HEAVY_DAYS"
	KindWeeklyMax      Kind = "WEEKLY_HOURS_EXCEEDED"
)

// Violation is the sealed variant interface.
type Violation interface {
	Kind() Kind
	Severity() Severity
	Describe() string
	sealed()
}

// UnassignedTour flags a tour instance no assignment covers.
type UnassignedTour struct {
	TourID string `json:"tour_id"`
}

func (UnassignedTour) Kind() Kind         { return KindUnassignedTour }
func (UnassignedTour) Severity() Severity { return SeverityBlock }
func (v UnassignedTour) Describe() string {
	return fmt.Sprintf("tour %s is not covered by any assignment", v.TourID)
}
func (UnassignedTour) sealed() {}

// DuplicateTour flags a tour instance covered by more than one assignment.
type DuplicateTour struct {
	TourID    string   `json:"tour_id"`
	DriverIDs []string `json:"driver_ids"`
}

func (DuplicateTour) Kind() Kind         { return KindDuplicateTour }
func (DuplicateTour) Severity() Severity { return SeverityBlock }
func (v DuplicateTour) Describe() string {
	return fmt.Sprintf("tour %s is covered by %d assignments", v.TourID, len(v.DriverIDs))
}
func (DuplicateTour) sealed() {}

// Overlap flags two intersecting blocks of the same driver.
type Overlap struct {
	DriverID string    `json:"driver_id"`
	BlockA   string    `json:"block_a"`
	BlockB   string    `json:"block_b"`
	Day      model.Day `json:"day"`
}

func (Overlap) Kind() Kind         { return KindOverlap }
func (Overlap) Severity() Severity { return SeverityBlock }
func (v Overlap) Describe() string {
	return fmt.Sprintf("driver %s has overlapping blocks %s and %s", v.DriverID, v.BlockA, v.BlockB)
}
func (Overlap) sealed() {}

// InsufficientRest flags a too-short gap between two daily blocks.
type InsufficientRest struct {
	DriverID string        `json:"driver_id"`
	DayA     model.Day     `json:"day_a"`
	DayB     model.Day     `json:"day_b"`
	Rest     time.Duration `json:"rest"`
	Min      time.Duration `json:"min"`
}

func (InsufficientRest) Kind() Kind         { return KindRest }
func (InsufficientRest) Severity() Severity { return SeverityBlock }
func (v InsufficientRest) Describe() string {
	return fmt.Sprintf("driver %s rests %.1fh between %s and %s, minimum is %.1fh",
		v.DriverID, v.Rest.Hours(), v.DayA, v.DayB, v.Min.Hours())
}
func (InsufficientRest) sealed() {}

// SpanExceeded flags a block whose total span exceeds the configured maximum.
type SpanExceeded struct {
	DriverID  string          `json:"driver_id"`
	Day       model.Day       `json:"day"`
	BlockID   string          `json:"block_id"`
	BlockType model.BlockType `json:"block_type"`
	Span      time.Duration   `json:"span"`
	Max       time.Duration   `json:"max"`
}

func (v SpanExceeded) Kind() Kind {
	if v.BlockType.Split() {
		return KindSpanSplit
	}
	return KindSpanRegular
}
func (SpanExceeded) Severity() Severity { return SeverityBlock }
func (v SpanExceeded) Describe() string {
	return fmt.Sprintf("driver %s block %s spans %.1fh, maximum for %s is %.1fh",
		v.DriverID, v.BlockID, v.Span.Hours(), v.BlockType, v.Max.Hours())
}
func (SpanExceeded) sealed() {}

// SplitBreakOutOfBand flags a 2er-split block whose mid-day break falls
// outside the configured band.
type SplitBreakOutOfBand struct {
	DriverID string        `json:"driver_id"`
	Day      model.Day     `json:"day"`
	BlockID  string        `json:"block_id"`
	Break    time.Duration `json:"break"`
	Min      time.Duration `json:"min"`
	Max      time.Duration `json:"max"`
}

func (SplitBreakOutOfBand) Kind() Kind         { return KindSplitBreak }
func (SplitBreakOutOfBand) Severity() Severity { return SeverityWarn }
func (v SplitBreakOutOfBand) Describe() string {
	return fmt.Sprintf("driver %s block %s break is %.0fmin, band is %.0f-%.0fmin",
		v.DriverID, v.BlockID, v.Break.Minutes(), v.Min.Minutes(), v.Max.Minutes())
}
func (SplitBreakOutOfBand) sealed() {}

// ConsecutiveHeavyDays flags 3er blocks on two consecutive calendar days.
type ConsecutiveHeavyDays struct {
	DriverID  string    `json:"driver_id"`
	FirstDay  model.Day `json:"first_day"`
	SecondDay model.Day `json:"second_day"`
}

func (ConsecutiveHeavyDays) Kind() Kind         { return KindFatigue }
func (ConsecutiveHeavyDays) Severity() Severity { return SeverityWarn }
func (v ConsecutiveHeavyDays) Describe() string {
	return fmt.Sprintf("driver %s has 3er blocks on consecutive days %s and %s",
		v.DriverID, v.FirstDay, v.SecondDay)
}
func (ConsecutiveHeavyDays) sealed() {}

// WeeklyHoursExceeded flags a driver over the weekly cap.
type WeeklyHoursExceeded struct {
	DriverID string  `json:"driver_id"`
	Hours    float64 `json:"hours"`
	Max      float64 `json:"max"`
}

func (WeeklyHoursExceeded) Kind() Kind         { return KindWeeklyMax }
func (WeeklyHoursExceeded) Severity() Severity { return SeverityBlock }
func (v WeeklyHoursExceeded) Describe() string {
	return fmt.Sprintf("driver %s works %.1fh this week, cap is %.1fh", v.DriverID, v.Hours, v.Max)
}
func (WeeklyHoursExceeded) sealed() {}

// CountBlocking returns the number of BLOCK-severity violations in vs.
func CountBlocking(vs []Violation) int {
	n := 0
	for _, v := range vs {
		if v.Severity() == SeverityBlock {
			n++
		}
	}
	return n
}
