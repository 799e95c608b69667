package refdata

import (
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadIsIdempotent(t *testing.T) {
	a := Load()
	b := Load()
	assert.Same(t, a, b, "reference data must be constructed exactly once")
}

func TestRegionControllability(t *testing.T) {
	s := Load()

	for _, region := range []BodyRegion{RegionArm, RegionLeg} {
		info, err := s.Region(region)
		require.NoError(t, err)
		assert.True(t, info.Tourniquetable, "%s must accept a tourniquet", region)
	}
	// Junctional and cavity bleeds cannot be controlled with a tourniquet.
	for _, region := range []BodyRegion{RegionHead, RegionNeck, RegionChest, RegionAbdomen, RegionPelvis, RegionShoulder} {
		info, err := s.Region(region)
		require.NoError(t, err)
		assert.False(t, info.Tourniquetable, "%s must never accept a tourniquet", region)
	}
}

func TestInjuryTaxonomy(t *testing.T) {
	s := Load()
	require.NotEmpty(t, s.Injuries)

	seen := map[InjuryType]bool{}
	for code, inj := range s.Injuries {
		assert.Equal(t, code, inj.Code)
		assert.NotEmpty(t, inj.Description)
		_, err := s.Region(inj.Region)
		require.NoError(t, err, "injury %s references an unknown region", code)
		seen[inj.Class] = true
	}
	assert.True(t, seen[InjuryBattle])
	assert.True(t, seen[InjuryNonBattle])
	assert.True(t, seen[InjuryDisease])
}

func TestInjuryCodesStableOrder(t *testing.T) {
	s := Load()
	for _, class := range []InjuryType{InjuryBattle, InjuryNonBattle, InjuryDisease} {
		codes := s.InjuryCodes(class)
		require.NotEmpty(t, codes)
		assert.True(t, sort.StringsAreSorted(codes), "codes for %s must be in stable sorted order", class)
	}
}

func TestWarfarePatternTables(t *testing.T) {
	s := Load()
	require.Len(t, s.Patterns, 9)

	for name, p := range s.Patterns {
		assert.Equal(t, name, p.Type)
		assert.Positive(t, p.BaseIntensity, "%s needs a base intensity", name)

		for _, level := range []string{"low", "medium", "high", "extreme"} {
			assert.Contains(t, p.IntensityMultipliers, level, "%s missing %s multiplier", name, level)
		}

		// Triage weights are drawn from directly; each row must be a
		// proper distribution.
		for class, weights := range p.TriageWeights {
			sum := 0.0
			for _, w := range weights {
				assert.GreaterOrEqual(t, w, 0.0)
				sum += w
			}
			assert.InDeltaf(t, 1.0, sum, 1e-9, "%s/%s triage weights must sum to 1", name, class)
		}
	}
}

func TestNationalityTables(t *testing.T) {
	s := Load()
	require.NotEmpty(t, s.Nationalities)

	for code, n := range s.Nationalities {
		assert.Equal(t, code, n.Code)
		assert.NotEmpty(t, n.FirstNames)
		assert.NotEmpty(t, n.LastNames)
		assert.Less(t, n.MinAge, n.MaxAge)
		assert.GreaterOrEqual(t, n.FemaleRatio, 0.0)
		assert.LessOrEqual(t, n.FemaleRatio, 1.0)

		sum := 0.0
		for _, share := range n.BloodTypes {
			sum += share
		}
		assert.InDeltaf(t, 1.0, sum, 1e-9, "%s blood type distribution must sum to 1", code)
	}
}

func TestUnknownLookups(t *testing.T) {
	s := Load()
	_, err := s.Pattern("siege")
	assert.Error(t, err)
	_, err = s.Region(BodyRegion("tail"))
	assert.Error(t, err)
}

func TestTempoFactor(t *testing.T) {
	assert.Equal(t, 1.0, TempoFactor("sustained", 3, 10))

	assert.Less(t, TempoFactor("escalating", 0, 10), TempoFactor("escalating", 9, 10))
	assert.Greater(t, TempoFactor("declining", 0, 10), TempoFactor("declining", 9, 10))

	assert.Greater(t, TempoFactor("surge", 5, 10), TempoFactor("surge", 0, 10))

	assert.Greater(t, TempoFactor("intermittent", 0, 10), TempoFactor("intermittent", 1, 10))

	assert.Equal(t, 1.0, TempoFactor("sustained", 0, 0), "zero duration must not divide by zero")
	assert.False(t, math.IsNaN(TempoFactor("escalating", 0, 0)))
}
