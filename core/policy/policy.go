// Package policy holds the tenant-scoped labor rule configuration threaded
// through every compliance check. There is no ambient default in the engine
// itself; callers always pass an explicit Limits value.
package policy

import (
	"fmt"

	"github.com/kilianp07/rosterd/core/canonical"
)

// Limits are the tunable labor rule values for one (tenant, pack).
type Limits struct {
	MaxWeeklyHours       float64 `json:"max_weekly_hours"`
	MinRestHours         float64 `json:"min_rest_hours"`
	MaxSpanRegularHours  float64 `json:"max_span_regular_hours"`
	MaxSpanSplitHours    float64 `json:"max_span_split_hours"`
	MinSplitBreakMinutes int     `json:"min_split_break_minutes"`
	MaxSplitBreakMinutes int     `json:"max_split_break_minutes"`
	CoverageTolerance    float64 `json:"coverage_tolerance"`
}

// Bounds are jurisdiction-mandated floors and ceilings that tunables cannot
// override.
type Bounds struct {
	MaxWeeklyHoursCeiling  float64 `json:"max_weekly_hours_ceiling"`
	MinRestHoursFloor      float64 `json:"min_rest_hours_floor"`
	MaxSpanRegularCeiling  float64 `json:"max_span_regular_ceiling"`
	MaxSpanSplitCeiling    float64 `json:"max_span_split_ceiling"`
	MinSplitBreakFloorMins int     `json:"min_split_break_floor_minutes"`
}

// Profile is a versioned policy document scoped to (tenant, pack). Its hash
// is snapshotted into every plan version at solve time so later edits never
// change the meaning of a historical plan.
type Profile struct {
	ID       string `json:"id"`
	TenantID uint32 `json:"tenant_id"`
	Pack     string `json:"pack"`
	Version  int    `json:"version"`
	Limits   Limits `json:"limits"`
	Bounds   Bounds `json:"bounds"`
}

// DefaultLimits returns the stock tunables.
func DefaultLimits() Limits {
	return Limits{
		MaxWeeklyHours:       55,
		MinRestHours:         11,
		MaxSpanRegularHours:  14,
		MaxSpanSplitHours:    16,
		MinSplitBreakMinutes: 240,
		MaxSplitBreakMinutes: 360,
		CoverageTolerance:    0,
	}
}

// DefaultBounds returns the stock jurisdiction bounds.
func DefaultBounds() Bounds {
	return Bounds{
		MaxWeeklyHoursCeiling:  60,
		MinRestHoursFloor:      9,
		MaxSpanRegularCeiling:  15,
		MaxSpanSplitCeiling:    18,
		MinSplitBreakFloorMins: 180,
	}
}

// Validate checks internal consistency and that every tunable stays inside
// the jurisdiction bounds.
func (p Profile) Validate() error {
	l, b := p.Limits, p.Bounds
	if l.MinSplitBreakMinutes > l.MaxSplitBreakMinutes {
		return fmt.Errorf("policy %s: split break band inverted (%d > %d)", p.ID, l.MinSplitBreakMinutes, l.MaxSplitBreakMinutes)
	}
	if l.CoverageTolerance < 0 || l.CoverageTolerance > 1 {
		return fmt.Errorf("policy %s: coverage tolerance %.2f outside [0,1]", p.ID, l.CoverageTolerance)
	}
	if b.MaxWeeklyHoursCeiling > 0 && l.MaxWeeklyHours > b.MaxWeeklyHoursCeiling {
		return fmt.Errorf("policy %s: max_weekly_hours %.1f exceeds jurisdiction ceiling %.1f", p.ID, l.MaxWeeklyHours, b.MaxWeeklyHoursCeiling)
	}
	if l.MinRestHours < b.MinRestHoursFloor {
		return fmt.Errorf("policy %s: min_rest_hours %.1f below jurisdiction floor %.1f", p.ID, l.MinRestHours, b.MinRestHoursFloor)
	}
	if b.MaxSpanRegularCeiling > 0 && l.MaxSpanRegularHours > b.MaxSpanRegularCeiling {
		return fmt.Errorf("policy %s: max_span_regular_hours %.1f exceeds ceiling %.1f", p.ID, l.MaxSpanRegularHours, b.MaxSpanRegularCeiling)
	}
	if b.MaxSpanSplitCeiling > 0 && l.MaxSpanSplitHours > b.MaxSpanSplitCeiling {
		return fmt.Errorf("policy %s: max_span_split_hours %.1f exceeds ceiling %.1f", p.ID, l.MaxSpanSplitHours, b.MaxSpanSplitCeiling)
	}
	if l.MinSplitBreakMinutes < b.MinSplitBreakFloorMins {
		return fmt.Errorf("policy %s: min_split_break_minutes %d below floor %d", p.ID, l.MinSplitBreakMinutes, b.MinSplitBreakFloorMins)
	}
	return nil
}

// Hash returns the canonical digest of the profile.
func (p Profile) Hash() (string, error) {
	return canonical.Hash(p)
}
