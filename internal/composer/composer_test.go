package composer

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terminal-bench/casgen/internal/cache"
	"github.com/terminal-bench/casgen/internal/exercise"
	"github.com/terminal-bench/casgen/internal/refdata"
)

func testFront() exercise.Front {
	return exercise.Front{
		Name:           "north",
		CasualtyWeight: 1,
		Nationalities:  map[string]float64{"USA": 60, "GBR": 40},
		InjuryMix: map[refdata.InjuryType]float64{
			refdata.InjuryBattle:    60,
			refdata.InjuryNonBattle: 25,
			refdata.InjuryDisease:   15,
		},
	}
}

func composeMany(t *testing.T, warfare string, n int, seed int64) []*Patient {
	t.Helper()
	comp := New(refdata.Load(), cache.New("", time.Minute, 64), 0.25)
	rng := rand.New(rand.NewSource(seed))
	in := Input{
		WarfareType: warfare,
		Front:       testFront(),
		InjuredAt:   time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC),
	}

	patients := make([]*Patient, 0, n)
	for i := 0; i < n; i++ {
		p, err := comp.Compose(context.Background(), in, rng)
		require.NoError(t, err)
		patients = append(patients, p)
	}
	return patients
}

func TestComposeNationalityConvergence(t *testing.T) {
	patients := composeMany(t, "artillery", 2000, 42)

	counts := map[string]int{}
	for _, p := range patients {
		counts[p.Nationality]++
	}
	usa := float64(counts["USA"]) / 2000
	gbr := float64(counts["GBR"]) / 2000
	assert.InDelta(t, 0.60, usa, 0.04, "realized nationality share must converge to the configured split")
	assert.InDelta(t, 0.40, gbr, 0.04)
}

func TestComposeArtilleryTriageSkew(t *testing.T) {
	patients := composeMany(t, "artillery", 3000, 42)

	battle, t1 := 0, 0
	for _, p := range patients {
		if p.InjuryType != refdata.InjuryBattle {
			continue
		}
		battle++
		if p.Triage == refdata.TriageImmediate {
			t1++
		}
	}
	require.Greater(t, battle, 1000)
	assert.GreaterOrEqual(t, float64(t1)/float64(battle), 0.45,
		"artillery battle injuries must skew toward T1")
}

func TestComposeCBRNDiseaseDominates(t *testing.T) {
	patients := composeMany(t, "cbrn", 500, 42)

	disease := 0
	for _, p := range patients {
		if p.InjuryType == refdata.InjuryDisease {
			disease++
		}
	}
	assert.Greater(t, float64(disease)/500, 0.70,
		"cbrn injury modifiers (5.0 disease vs 0.1 battle) must make disease dominate")
}

func TestComposeConditions(t *testing.T) {
	patients := composeMany(t, "artillery", 500, 7)

	for _, p := range patients {
		require.NotEmpty(t, p.Conditions)
		assert.LessOrEqual(t, len(p.Conditions), maxConditions)

		bleeding := 0
		for _, c := range p.Conditions {
			assert.NotEmpty(t, c.Code)
			assert.NotEmpty(t, c.Region)
			if p.InjuryType == refdata.InjuryBattle {
				require.NotNil(t, c.Hemorrhage, "battle trauma must carry a hemorrhage profile")
				bleeding++
			} else {
				assert.Nil(t, c.Hemorrhage)
				assert.Len(t, p.Conditions, 1)
			}
		}
		if bleeding > 1 {
			require.NotNil(t, p.Combined, "poly-trauma must carry a combined profile")
			assert.False(t, p.Combined.Controllable)
		}
	}
}

func TestComposeDemographics(t *testing.T) {
	patients := composeMany(t, "artillery", 300, 21)
	ref := refdata.Load()

	for _, p := range patients {
		nat := ref.Nationalities[p.Nationality]
		assert.NotEmpty(t, p.Demographics.FirstName)
		assert.NotEmpty(t, p.Demographics.LastName)
		assert.GreaterOrEqual(t, p.Demographics.Age, nat.MinAge)
		assert.LessOrEqual(t, p.Demographics.Age, nat.MaxAge)
		assert.Contains(t, []string{"male", "female"}, p.Demographics.Gender)
		assert.Contains(t, nat.BloodTypes, p.Demographics.BloodType)
	}
}

func TestComposeDeterministic(t *testing.T) {
	a := composeMany(t, "artillery", 100, 99)
	b := composeMany(t, "artillery", 100, 99)
	assert.Equal(t, a, b, "identical seed must produce identical patients, IDs included")
}

func TestComposeClusterJitter(t *testing.T) {
	comp := New(refdata.Load(), nil, 0.25)
	rng := rand.New(rand.NewSource(3))
	base := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	in := Input{
		WarfareType: "artillery",
		Front:       testFront(),
		InjuredAt:   base,
		ClusterSpan: 20 * time.Minute,
	}

	for i := 0; i < 50; i++ {
		p, err := comp.Compose(context.Background(), in, rng)
		require.NoError(t, err)
		assert.True(t, !p.InjuredAt.Before(base))
		assert.True(t, p.InjuredAt.Before(base.Add(20*time.Minute)))
	}
}

func TestComposeFailsFastOnDegenerateDistributions(t *testing.T) {
	comp := New(refdata.Load(), nil, 0.25)
	rng := rand.New(rand.NewSource(1))

	t.Run("empty nationality distribution", func(t *testing.T) {
		front := testFront()
		front.Nationalities = map[string]float64{}
		_, err := comp.Compose(context.Background(), Input{WarfareType: "artillery", Front: front}, rng)
		var genErr *GenerationError
		require.ErrorAs(t, err, &genErr)
	})

	t.Run("all-zero injury mix", func(t *testing.T) {
		front := testFront()
		front.InjuryMix = map[refdata.InjuryType]float64{refdata.InjuryBattle: 0}
		_, err := comp.Compose(context.Background(), Input{WarfareType: "artillery", Front: front}, rng)
		var genErr *GenerationError
		require.ErrorAs(t, err, &genErr)
	})

	t.Run("unknown warfare type", func(t *testing.T) {
		_, err := comp.Compose(context.Background(), Input{WarfareType: "siege", Front: testFront()}, rng)
		var genErr *GenerationError
		require.ErrorAs(t, err, &genErr)
	})
}

func TestDrawWeighted(t *testing.T) {
	rng := rand.New(rand.NewSource(13))

	t.Run("respects weights", func(t *testing.T) {
		counts := map[string]int{}
		for i := 0; i < 5000; i++ {
			k, err := drawWeighted(map[string]float64{"a": 75, "b": 25}, rng)
			require.NoError(t, err)
			counts[k]++
		}
		assert.InDelta(t, 3750, counts["a"], 250)
	})

	t.Run("rejects empty and degenerate maps", func(t *testing.T) {
		_, err := drawWeighted(nil, rng)
		assert.Error(t, err)
		_, err = drawWeighted(map[string]float64{"a": 0, "b": 0}, rng)
		assert.Error(t, err)
	})
}
