package violation

import (
	"sort"
	"time"

	"github.com/kilianp07/rosterd/core/model"
	"github.com/kilianp07/rosterd/core/policy"
)

// blockSpan is one assignment with its resolved time range.
type blockSpan struct {
	asn   model.Assignment
	start time.Time
	end   time.Time
}

// normalizeRange fixes cross-midnight ranges where the recorded end precedes
// the start.
func normalizeRange(start, end time.Time) (time.Time, time.Time) {
	if end.Before(start) {
		end = end.Add(24 * time.Hour)
	}
	return start, end
}

func resolveSpans(assignments []model.Assignment, tours model.TourSet) []blockSpan {
	spans := make([]blockSpan, 0, len(assignments))
	for _, a := range assignments {
		start, end, ok := a.Span(tours)
		if !ok {
			continue
		}
		start, end = normalizeRange(start, end)
		spans = append(spans, blockSpan{asn: a, start: start, end: end})
	}
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].asn.DriverID != spans[j].asn.DriverID {
			return spans[i].asn.DriverID < spans[j].asn.DriverID
		}
		if !spans[i].start.Equal(spans[j].start) {
			return spans[i].start.Before(spans[j].start)
		}
		return spans[i].asn.BlockID < spans[j].asn.BlockID
	})
	return spans
}

// EvalCoverage flags tours with no covering assignment and tours covered more
// than once. Results are ordered by tour ID.
func EvalCoverage(assignments []model.Assignment, tours model.TourSet) []Violation {
	covering := make(map[string][]string, len(tours))
	for _, a := range assignments {
		for _, tid := range a.TourIDs {
			covering[tid] = append(covering[tid], a.DriverID)
		}
	}
	ids := make([]string, 0, len(tours))
	for id := range tours {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []Violation
	for _, id := range ids {
		drivers := covering[id]
		switch {
		case len(drivers) == 0:
			out = append(out, UnassignedTour{TourID: id})
		case len(drivers) > 1:
			sorted := append([]string(nil), drivers...)
			sort.Strings(sorted)
			out = append(out, DuplicateTour{TourID: id, DriverIDs: sorted})
		}
	}
	return out
}

// EvalOverlap flags pairs of intersecting blocks per driver.
func EvalOverlap(assignments []model.Assignment, tours model.TourSet) []Violation {
	spans := resolveSpans(assignments, tours)
	var out []Violation
	for i := 0; i < len(spans); i++ {
		for j := i + 1; j < len(spans); j++ {
			a, b := spans[i], spans[j]
			if a.asn.DriverID != b.asn.DriverID {
				break
			}
			if a.start.Before(b.end) && b.start.Before(a.end) {
				out = append(out, Overlap{
					DriverID: a.asn.DriverID,
					BlockA:   a.asn.BlockID,
					BlockB:   b.asn.BlockID,
					Day:      a.asn.Day,
				})
			}
		}
	}
	return out
}

// EvalRest flags gaps below the minimum rest between a driver's consecutive
// daily blocks.
func EvalRest(assignments []model.Assignment, tours model.TourSet, limits policy.Limits) []Violation {
	spans := resolveSpans(assignments, tours)
	min := time.Duration(limits.MinRestHours * float64(time.Hour))
	var out []Violation
	for i := 1; i < len(spans); i++ {
		prev, cur := spans[i-1], spans[i]
		if prev.asn.DriverID != cur.asn.DriverID || prev.asn.Day == cur.asn.Day {
			continue
		}
		rest := cur.start.Sub(prev.end)
		if rest < min {
			out = append(out, InsufficientRest{
				DriverID: cur.asn.DriverID,
				DayA:     prev.asn.Day,
				DayB:     cur.asn.Day,
				Rest:     rest,
				Min:      min,
			})
		}
	}
	return out
}

// EvalSpanRegular checks 1er and 2er-reg blocks against the regular span cap.
func EvalSpanRegular(assignments []model.Assignment, tours model.TourSet, limits policy.Limits) []Violation {
	max := time.Duration(limits.MaxSpanRegularHours * float64(time.Hour))
	var out []Violation
	for _, s := range resolveSpans(assignments, tours) {
		if s.asn.BlockType.Split() {
			continue
		}
		if span := s.end.Sub(s.start); span > max {
			out = append(out, SpanExceeded{
				DriverID:  s.asn.DriverID,
				Day:       s.asn.Day,
				BlockID:   s.asn.BlockID,
				BlockType: s.asn.BlockType,
				Span:      span,
				Max:       max,
			})
		}
	}
	return out
}

// EvalSpanSplit checks 3er and 2er-split blocks against the split span cap
// and, for 2er-split, the break band.
func EvalSpanSplit(assignments []model.Assignment, tours model.TourSet, limits policy.Limits) []Violation {
	max := time.Duration(limits.MaxSpanSplitHours * float64(time.Hour))
	minBreak := time.Duration(limits.MinSplitBreakMinutes) * time.Minute
	maxBreak := time.Duration(limits.MaxSplitBreakMinutes) * time.Minute
	var out []Violation
	for _, s := range resolveSpans(assignments, tours) {
		if !s.asn.BlockType.Split() {
			continue
		}
		if span := s.end.Sub(s.start); span > max {
			out = append(out, SpanExceeded{
				DriverID:  s.asn.DriverID,
				Day:       s.asn.Day,
				BlockID:   s.asn.BlockID,
				BlockType: s.asn.BlockType,
				Span:      span,
				Max:       max,
			})
		}
		if s.asn.BlockType != model.Block2erSplit {
			continue
		}
		if br, ok := splitBreak(s.asn, tours); ok && (br < minBreak || br > maxBreak) {
			out = append(out, SplitBreakOutOfBand{
				DriverID: s.asn.DriverID,
				Day:      s.asn.Day,
				BlockID:  s.asn.BlockID,
				Break:    br,
				Min:      minBreak,
				Max:      maxBreak,
			})
		}
	}
	return out
}

// splitBreak returns the gap between the two tours of a 2er-split block.
func splitBreak(a model.Assignment, tours model.TourSet) (time.Duration, bool) {
	var parts []model.TourInstance
	for _, id := range a.TourIDs {
		if t, ok := tours[id]; ok {
			parts = append(parts, t)
		}
	}
	if len(parts) != 2 {
		return 0, false
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].Start.Before(parts[j].Start) })
	return parts[1].Start.Sub(parts[0].End), true
}

// EvalFatigue flags drivers with 3er blocks on two consecutive calendar days.
func EvalFatigue(assignments []model.Assignment) []Violation {
	heavy := make(map[string]map[model.Day]bool)
	for _, a := range assignments {
		if a.BlockType != model.Block3er {
			continue
		}
		if heavy[a.DriverID] == nil {
			heavy[a.DriverID] = make(map[model.Day]bool)
		}
		heavy[a.DriverID][a.Day] = true
	}
	drivers := make([]string, 0, len(heavy))
	for d := range heavy {
		drivers = append(drivers, d)
	}
	sort.Strings(drivers)

	var out []Violation
	for _, d := range drivers {
		days := make([]model.Day, 0, len(heavy[d]))
		for day := range heavy[d] {
			days = append(days, day)
		}
		sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
		for i := 1; i < len(days); i++ {
			if days[i-1].Next() == days[i] {
				out = append(out, ConsecutiveHeavyDays{DriverID: d, FirstDay: days[i-1], SecondDay: days[i]})
			}
		}
	}
	return out
}

// EvalWeeklyMax flags drivers whose summed tour durations exceed the weekly
// cap.
func EvalWeeklyMax(assignments []model.Assignment, tours model.TourSet, limits policy.Limits) []Violation {
	hours := make(map[string]float64)
	for _, a := range assignments {
		hours[a.DriverID] += a.WorkDuration(tours).Hours()
	}
	drivers := make([]string, 0, len(hours))
	for d := range hours {
		drivers = append(drivers, d)
	}
	sort.Strings(drivers)

	var out []Violation
	for _, d := range drivers {
		if hours[d] > limits.MaxWeeklyHours {
			out = append(out, WeeklyHoursExceeded{DriverID: d, Hours: hours[d], Max: limits.MaxWeeklyHours})
		}
	}
	return out
}

// EvalAll runs every evaluator and returns the concatenated violations. The
// per-evaluator order is preserved; evaluators never depend on each other.
func EvalAll(assignments []model.Assignment, tours model.TourSet, limits policy.Limits) []Violation {
	var out []Violation
	out = append(out, EvalCoverage(assignments, tours)...)
	out = append(out, EvalOverlap(assignments, tours)...)
	out = append(out, EvalRest(assignments, tours, limits)...)
	out = append(out, EvalSpanRegular(assignments, tours, limits)...)
	out = append(out, EvalSpanSplit(assignments, tours, limits)...)
	out = append(out, EvalFatigue(assignments)...)
	out = append(out, EvalWeeklyMax(assignments, tours, limits)...)
	return out
}
