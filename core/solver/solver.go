// Package solver defines the external bulk-assignment solver collaborator
// and ships a deterministic greedy reference implementation used by the
// pipeline and the test suite.
package solver

import (
	"context"

	"github.com/kilianp07/rosterd/core/canonical"
	"github.com/kilianp07/rosterd/core/model"
	"github.com/kilianp07/rosterd/core/policy"
)

// Config carries the solver parameters hashed into solver_config_hash.
// Randomized search steps must derive all randomness from Seed.
type Config struct {
	Seed             int64         `json:"seed"`
	TimeLimitSeconds int           `json:"time_limit"`
	SolutionLimit    int           `json:"solution_limit"`
	Metaheuristic    string        `json:"metaheuristic"`
	Policy           policy.Limits `json:"policy_config"`
}

// Hash returns the canonical digest of the configuration.
func (c Config) Hash() (string, error) {
	return canonical.Hash(c)
}

// Input is the material a solve consumes.
type Input struct {
	WeekStart model.Day
	Tours     []model.TourInstance
	Drivers   []model.Driver
	Pins      []model.Pin
}

// Solver produces a candidate assignment set for the input tour set. The
// implementation is treated as opaque and potentially long-running; callers
// bound it with a context deadline. A cancelled or timed-out solve returns an
// error and never a partial result.
type Solver interface {
	Solve(ctx context.Context, in Input, cfg Config) ([]model.Assignment, error)
}
