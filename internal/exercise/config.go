package exercise

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/terminal-bench/casgen/internal/refdata"
)

// distTolerance is the floating slack allowed when a percentage
// distribution is checked against 100.
const distTolerance = 0.01

// Front is a named battle area with its own casualty weight and
// nationality mix.
type Front struct {
	Name           string                          `json:"name"`
	CasualtyWeight float64                         `json:"casualty_weight"`
	Nationalities  map[string]float64              `json:"nationalities"` // percentages, sum 100
	InjuryMix      map[refdata.InjuryType]float64  `json:"injury_mix"`    // percentages, sum 100
}

// SpecialEvent is an additive time-bounded intensity spike layered on the
// base schedule. While active it suppresses the base pattern's contribution.
type SpecialEvent struct {
	Type          string  `json:"type"` // major_offensive, ambush, mass_casualty
	StartHour     int     `json:"start_hour"`
	DurationHours int     `json:"duration_hours"`
	Intensity     float64 `json:"intensity"` // casualties per hour while active
}

// Config is the immutable input of one generation run.
type Config struct {
	TotalPatients  int            `json:"total_patients"`
	Fronts         []Front        `json:"fronts"`
	WarfareTypes   []string       `json:"warfare_types"`
	Intensity      string         `json:"intensity"` // low, medium, high, extreme
	Tempo          string         `json:"tempo"`
	Environments   []string       `json:"environments,omitempty"`
	SpecialEvents  []SpecialEvent `json:"special_events,omitempty"`
	StartDate      time.Time      `json:"start_date"`
	DurationDays   int            `json:"duration_days"`
	OutputFormats  []string       `json:"output_formats"`
	Seed           int64          `json:"seed"`
	PolytraumaProb float64        `json:"polytrauma_prob,omitempty"`
}

// ConfigurationError reports malformed or degenerate input. It is always
// raised before generation starts; generation never proceeds on one.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

func configErr(field, format string, args ...interface{}) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Validate checks every invariant the engine relies on. A nil return means
// generation may begin.
func (c *Config) Validate(ref *refdata.Store) error {
	if c.TotalPatients <= 0 {
		return configErr("total_patients", "must be positive, got %d", c.TotalPatients)
	}
	if c.DurationDays <= 0 {
		return configErr("duration_days", "must be positive, got %d", c.DurationDays)
	}
	if len(c.Fronts) == 0 {
		return configErr("fronts", "at least one front is required")
	}
	if len(c.WarfareTypes) == 0 {
		return configErr("warfare_types", "at least one warfare type is required")
	}
	for _, wt := range c.WarfareTypes {
		if _, err := ref.Pattern(wt); err != nil {
			return configErr("warfare_types", "%v", err)
		}
	}
	if _, ok := map[string]bool{"low": true, "medium": true, "high": true, "extreme": true}[c.Intensity]; !ok {
		return configErr("intensity", "unknown level %q", c.Intensity)
	}
	tempoOK := false
	for _, t := range refdata.TempoPatterns() {
		if t == c.Tempo {
			tempoOK = true
		}
	}
	if !tempoOK {
		return configErr("tempo", "unknown tempo pattern %q", c.Tempo)
	}
	for _, env := range c.Environments {
		if _, ok := ref.Environments[env]; !ok {
			return configErr("environments", "unknown environmental modifier %q", env)
		}
	}
	for i, f := range c.Fronts {
		if f.Name == "" {
			return configErr("fronts", "front %d has no name", i)
		}
		if f.CasualtyWeight <= 0 {
			return configErr("fronts", "front %q casualty weight must be positive", f.Name)
		}
		if err := checkDistribution(f.Nationalities, fmt.Sprintf("front %q nationality distribution", f.Name)); err != nil {
			return err
		}
		for nat := range f.Nationalities {
			if _, ok := ref.Nationalities[nat]; !ok {
				return configErr("fronts", "front %q references unknown nationality %q", f.Name, nat)
			}
		}
		mix := make(map[string]float64, len(f.InjuryMix))
		for k, v := range f.InjuryMix {
			switch k {
			case refdata.InjuryBattle, refdata.InjuryNonBattle, refdata.InjuryDisease:
			default:
				return configErr("fronts", "front %q references unknown injury type %q", f.Name, k)
			}
			mix[string(k)] = v
		}
		if err := checkDistribution(mix, fmt.Sprintf("front %q injury mix", f.Name)); err != nil {
			return err
		}
	}
	for _, ev := range c.SpecialEvents {
		if ev.DurationHours <= 0 {
			return configErr("special_events", "event %q duration must be positive", ev.Type)
		}
		if ev.StartHour < 0 || ev.StartHour >= c.DurationDays*24 {
			return configErr("special_events", "event %q start hour %d outside exercise window", ev.Type, ev.StartHour)
		}
	}
	if c.PolytraumaProb < 0 || c.PolytraumaProb > 1 {
		return configErr("polytrauma_prob", "must be in [0,1], got %g", c.PolytraumaProb)
	}
	return nil
}

func checkDistribution(dist map[string]float64, what string) error {
	if len(dist) == 0 {
		return configErr(what, "is empty")
	}
	sum := 0.0
	for k, v := range dist {
		if v < 0 {
			return configErr(what, "entry %q is negative", k)
		}
		sum += v
	}
	if sum == 0 {
		return configErr(what, "all entries are zero")
	}
	if math.Abs(sum-100.0) > distTolerance {
		return configErr(what, "sums to %.4f, want 100", sum)
	}
	return nil
}

// Hash returns a stable digest of the configuration, used in job reporting
// so failures can be reproduced without echoing the full input back.
func (c *Config) Hash() string {
	raw, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:8])
}
