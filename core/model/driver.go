package model

// Driver describes a driver eligible for roster assignments.
type Driver struct {
	ID                string   `json:"id"`
	Name              string   `json:"name,omitempty"`
	Depot             string   `json:"depot"`
	Qualifications    []string `json:"qualifications,omitempty"`
	TargetWeeklyHours float64  `json:"target_weekly_hours"`
	Reserve           bool     `json:"reserve"`
	PriorityTier      int      `json:"priority_tier"`
}

// Qualified reports whether the driver holds every required qualification.
func (d Driver) Qualified(required []string) bool {
	for _, q := range required {
		found := false
		for _, have := range d.Qualifications {
			if have == q {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
