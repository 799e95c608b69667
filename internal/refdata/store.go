package refdata

import (
	"fmt"
	"sort"
	"sync"
)

// Store is the process-wide immutable reference data set. It is loaded once
// at startup and shared by every job; concurrent readers need no locking.
type Store struct {
	Nationalities  map[string]Nationality
	Injuries       map[string]Injury
	injuriesByType map[InjuryType][]string
	Regions        map[BodyRegion]RegionInfo
	Patterns       map[string]WarfarePattern
	Environments   map[string]Environment
}

var (
	instance *Store
	once     sync.Once
)

// Load builds the reference data store. Safe to call from multiple
// goroutines; the tables are constructed exactly once.
func Load() *Store {
	once.Do(func() {
		s := &Store{
			Nationalities:  make(map[string]Nationality),
			Injuries:       make(map[string]Injury),
			injuriesByType: make(map[InjuryType][]string),
			Regions:        regionTable(),
			Patterns:       warfarePatternTable(),
			Environments:   environmentTable(),
		}
		for _, n := range nationalityTable() {
			s.Nationalities[n.Code] = n
		}
		for _, inj := range injuryTable() {
			s.Injuries[inj.Code] = inj
			s.injuriesByType[inj.Class] = append(s.injuriesByType[inj.Class], inj.Code)
		}
		// Stable order so seeded draws are reproducible across runs.
		for t := range s.injuriesByType {
			sort.Strings(s.injuriesByType[t])
		}
		instance = s
	})
	return instance
}

// InjuryCodes returns the taxonomy codes for one injury class, in stable order.
func (s *Store) InjuryCodes(t InjuryType) []string {
	return s.injuriesByType[t]
}

// Pattern looks up the warfare pattern definition for a warfare type.
func (s *Store) Pattern(warfareType string) (WarfarePattern, error) {
	p, ok := s.Patterns[warfareType]
	if !ok {
		return WarfarePattern{}, fmt.Errorf("unknown warfare type %q", warfareType)
	}
	return p, nil
}

// Region looks up the vascular profile of a body region.
func (s *Store) Region(r BodyRegion) (RegionInfo, error) {
	info, ok := s.Regions[r]
	if !ok {
		return RegionInfo{}, fmt.Errorf("unknown body region %q", r)
	}
	return info, nil
}

// TempoFactor returns the per-day intensity multiplier for a tempo pattern.
// day is zero-based, total is the exercise duration in days.
func TempoFactor(tempo string, day, total int) float64 {
	if total <= 0 {
		return 1.0
	}
	frac := float64(day) / float64(total)
	switch tempo {
	case "sustained":
		return 1.0
	case "escalating":
		return 0.5 + frac
	case "declining":
		return 1.5 - frac
	case "surge":
		// Single hump centred mid-exercise.
		if frac >= 0.35 && frac <= 0.65 {
			return 1.8
		}
		return 0.7
	case "intermittent":
		if day%2 == 0 {
			return 1.4
		}
		return 0.6
	default:
		return 1.0
	}
}

// TempoPatterns lists the supported tempo pattern names.
func TempoPatterns() []string {
	return []string{"sustained", "escalating", "declining", "surge", "intermittent"}
}
