package config

import (
	"fmt"

	"github.com/kilianp07/rosterd/core/policy"
	"github.com/kilianp07/rosterd/core/repair"
)

// PolicyConfig selects the default policy profile used when the policy
// service provides none.
type PolicyConfig struct {
	ProfileID string        `json:"profile_id"`
	TenantID  uint32        `json:"tenant_id"`
	Pack      string        `json:"pack"`
	Limits    policy.Limits `json:"limits"`
	Bounds    policy.Bounds `json:"bounds"`
}

// SetDefaults applies the stock limits and bounds where unset.
func (c *PolicyConfig) SetDefaults() {
	if c.ProfileID == "" {
		c.ProfileID = "default"
	}
	if c.Pack == "" {
		c.Pack = "standard"
	}
	zero := policy.Limits{}
	if c.Limits == zero {
		c.Limits = policy.DefaultLimits()
	}
	if (c.Bounds == policy.Bounds{}) {
		c.Bounds = policy.DefaultBounds()
	}
}

// Validate checks tunables against jurisdiction bounds.
func (c PolicyConfig) Validate() error {
	return c.Profile().Validate()
}

// Profile materializes the configured policy profile.
func (c PolicyConfig) Profile() policy.Profile {
	return policy.Profile{
		ID:       c.ProfileID,
		TenantID: c.TenantID,
		Pack:     c.Pack,
		Version:  1,
		Limits:   c.Limits,
		Bounds:   c.Bounds,
	}
}

// RepairConfig tunes the repair orchestrator.
type RepairConfig struct {
	Strategies        []string       `json:"strategies"`
	TopK              int            `json:"top_k"`
	SessionTTLMinutes int            `json:"session_ttl_minutes"`
	Weights           repair.Weights `json:"weights"`
}

// SetDefaults applies stock strategies, top-K and weights.
func (c *RepairConfig) SetDefaults() {
	if len(c.Strategies) == 0 {
		for _, s := range repair.DefaultStrategies {
			c.Strategies = append(c.Strategies, string(s))
		}
	}
	if c.TopK <= 0 {
		c.TopK = repair.DefaultTopK
	}
	if c.SessionTTLMinutes <= 0 {
		c.SessionTTLMinutes = 30
	}
	if (c.Weights == repair.Weights{}) {
		c.Weights = repair.DefaultWeights()
	}
}

// Validate rejects unknown strategies.
func (c RepairConfig) Validate() error {
	for _, s := range c.Strategies {
		switch repair.Strategy(s) {
		case repair.StrategyMinimalChurn, repair.StrategyReserveFirst, repair.StrategyBestFit:
		default:
			return fmt.Errorf("unknown repair strategy %q", s)
		}
	}
	return nil
}

// StrategyList converts the configured names.
func (c RepairConfig) StrategyList() []repair.Strategy {
	out := make([]repair.Strategy, len(c.Strategies))
	for i, s := range c.Strategies {
		out[i] = repair.Strategy(s)
	}
	return out
}

// PlanConfig tunes plan lifecycle behavior.
type PlanConfig struct {
	FreezeWindowHours int `json:"freeze_window_hours"`
}

// SetDefaults applies the stock freeze window.
func (c *PlanConfig) SetDefaults() {
	if c.FreezeWindowHours < 0 {
		c.FreezeWindowHours = 0
	}
	if c.FreezeWindowHours == 0 {
		c.FreezeWindowHours = 12
	}
}

// Validate is a placeholder for future plan settings.
func (c PlanConfig) Validate() error { return nil }

// IdempotencyConfig tunes the idempotency key store.
type IdempotencyConfig struct {
	TTLHours int `json:"ttl_hours"`
}

// SetDefaults applies the stock 24h TTL.
func (c *IdempotencyConfig) SetDefaults() {
	if c.TTLHours <= 0 {
		c.TTLHours = 24
	}
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	// Backend selects the store type: "sqlite" or "memory".
	Backend string `json:"backend"`
	// Path is the SQLite database location.
	Path string `json:"path"`
}

// SetDefaults applies sane defaults.
func (c *StoreConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "sqlite"
	}
	if c.Path == "" {
		c.Path = "rosterd.db"
	}
}

// Validate checks mandatory fields.
func (c StoreConfig) Validate() error {
	if c.Backend != "sqlite" && c.Backend != "memory" {
		return fmt.Errorf("unknown store backend %s", c.Backend)
	}
	if c.Backend == "sqlite" && c.Path == "" {
		return fmt.Errorf("store path is required")
	}
	return nil
}
