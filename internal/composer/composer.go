package composer

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/terminal-bench/casgen/internal/cache"
	"github.com/terminal-bench/casgen/internal/exercise"
	"github.com/terminal-bench/casgen/internal/hemorrhage"
	"github.com/terminal-bench/casgen/internal/refdata"
)

const maxConditions = 3

// Demographics is the synthesized identity of one casualty.
type Demographics struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Age       int    `json:"age"`
	Gender    string `json:"gender"`
	BloodType string `json:"blood_type"`
}

// Condition is one injury on a patient, with bleeding dynamics when the
// injury implies trauma.
type Condition struct {
	Code        string              `json:"code"`
	Description string              `json:"description"`
	Region      refdata.BodyRegion  `json:"region"`
	Severity    refdata.Severity    `json:"severity"`
	Hemorrhage  *hemorrhage.Profile `json:"hemorrhage,omitempty"`
}

// Patient is one fully composed casualty record. It is created here,
// enriched by the hemorrhage model and immutable once emitted.
type Patient struct {
	ID           uuid.UUID               `json:"id"`
	Nationality  string                  `json:"nationality"`
	Front        string                  `json:"front"`
	WarfareType  string                  `json:"warfare_type"`
	InjuryType   refdata.InjuryType      `json:"injury_type"`
	Triage       refdata.TriageCategory  `json:"triage"`
	InjuredAt    time.Time               `json:"injured_at"`
	EvacDelayMin int                     `json:"evac_delay_min,omitempty"`
	Demographics Demographics            `json:"demographics"`
	Conditions   []Condition             `json:"conditions"`
	Combined     *hemorrhage.Profile     `json:"combined_hemorrhage,omitempty"`
}

// GenerationError is an internal invariant violation during composition,
// carrying enough context to diagnose the offending draw.
type GenerationError struct {
	EventIndex int
	InjuryCode string
	Reason     string
}

func (e *GenerationError) Error() string {
	if e.InjuryCode != "" {
		return fmt.Sprintf("generation failed at event %d (injury %s): %s", e.EventIndex, e.InjuryCode, e.Reason)
	}
	return fmt.Sprintf("generation failed at event %d: %s", e.EventIndex, e.Reason)
}

// Composer produces patient skeletons for scheduled events. It is stateless
// across jobs; all randomness flows through the caller's seeded source.
type Composer struct {
	ref      *refdata.Store
	cache    *cache.Cache
	polyProb float64
}

// New creates a composer. polyProb is the per-extra-condition poly-trauma
// probability for battle injuries.
func New(ref *refdata.Store, c *cache.Cache, polyProb float64) *Composer {
	return &Composer{ref: ref, cache: c, polyProb: polyProb}
}

// Input carries the per-casualty composition context.
type Input struct {
	EventIndex   int
	WarfareType  string
	Front        exercise.Front
	InjuredAt    time.Time
	ClusterSpan  time.Duration
	EvacDelayMin int
}

// Compose builds one patient for an event's casualty unit. A degenerate
// nationality or injury distribution fails fast with a configuration-shaped
// error rather than defaulting to a garbage patient.
func (c *Composer) Compose(ctx context.Context, in Input, rng *rand.Rand) (*Patient, error) {
	pattern, err := c.ref.Pattern(in.WarfareType)
	if err != nil {
		return nil, &GenerationError{EventIndex: in.EventIndex, Reason: err.Error()}
	}

	nat, err := drawWeighted(in.Front.Nationalities, rng)
	if err != nil {
		return nil, &GenerationError{EventIndex: in.EventIndex,
			Reason: fmt.Sprintf("front %q nationality distribution: %v", in.Front.Name, err)}
	}

	injuryType, err := c.drawInjuryType(in.Front, pattern, rng)
	if err != nil {
		return nil, &GenerationError{EventIndex: in.EventIndex,
			Reason: fmt.Sprintf("front %q injury mix: %v", in.Front.Name, err)}
	}

	triage, err := drawTriage(pattern, injuryType, rng)
	if err != nil {
		return nil, &GenerationError{EventIndex: in.EventIndex, Reason: err.Error()}
	}

	id, err := uuid.NewRandomFromReader(rng)
	if err != nil {
		return nil, &GenerationError{EventIndex: in.EventIndex, Reason: err.Error()}
	}

	injuredAt := in.InjuredAt
	if in.ClusterSpan > 0 {
		injuredAt = injuredAt.Add(time.Duration(rng.Int63n(int64(in.ClusterSpan))))
	}

	p := &Patient{
		ID:           id,
		Nationality:  nat,
		Front:        in.Front.Name,
		WarfareType:  in.WarfareType,
		InjuryType:   injuryType,
		Triage:       triage,
		InjuredAt:    injuredAt,
		EvacDelayMin: in.EvacDelayMin,
	}

	if p.Demographics, err = c.drawDemographics(ctx, nat, rng); err != nil {
		return nil, &GenerationError{EventIndex: in.EventIndex, Reason: err.Error()}
	}

	if err := c.attachConditions(p, in.EventIndex, rng); err != nil {
		return nil, err
	}
	return p, nil
}

// attachConditions generates the injury conditions and, for battle trauma,
// the hemorrhage profiles and their poly-trauma combination.
func (c *Composer) attachConditions(p *Patient, eventIndex int, rng *rand.Rand) error {
	codes := c.ref.InjuryCodes(p.InjuryType)
	if len(codes) == 0 {
		return &GenerationError{EventIndex: eventIndex,
			Reason: fmt.Sprintf("no taxonomy entries for injury type %s", p.InjuryType)}
	}

	n := 1
	if p.InjuryType == refdata.InjuryBattle {
		for n < maxConditions && rng.Float64() < c.polyProb {
			n++
		}
	}

	var bleeds []hemorrhage.Profile
	for i := 0; i < n; i++ {
		code := codes[rng.Intn(len(codes))]
		inj := c.ref.Injuries[code]
		severity := drawSeverity(inj.Baseline, rng)
		cond := Condition{
			Code:        code,
			Description: inj.Description,
			Region:      inj.Region,
			Severity:    severity,
		}
		if p.InjuryType == refdata.InjuryBattle {
			region, err := c.ref.Region(inj.Region)
			if err != nil {
				return &GenerationError{EventIndex: eventIndex, InjuryCode: code, Reason: err.Error()}
			}
			prof, err := hemorrhage.Compute(code, region, severity, rng)
			if err != nil {
				return &GenerationError{EventIndex: eventIndex, InjuryCode: code, Reason: err.Error()}
			}
			cond.Hemorrhage = &prof
			bleeds = append(bleeds, prof)
		}
		p.Conditions = append(p.Conditions, cond)
	}

	if len(bleeds) > 1 {
		combined, err := hemorrhage.Combine(bleeds)
		if err != nil {
			return &GenerationError{EventIndex: eventIndex, Reason: err.Error()}
		}
		p.Combined = &combined
	}
	return nil
}

// drawInjuryType applies the warfare type's injury modifiers as
// multiplicative weights on the front's base mix, renormalized.
func (c *Composer) drawInjuryType(front exercise.Front, pattern refdata.WarfarePattern, rng *rand.Rand) (refdata.InjuryType, error) {
	weights := make(map[string]float64, len(front.InjuryMix))
	for t, pct := range front.InjuryMix {
		mod, ok := pattern.InjuryModifiers[t]
		if !ok {
			mod = 1.0
		}
		weights[string(t)] = pct * mod
	}
	choice, err := drawWeighted(weights, rng)
	if err != nil {
		return "", err
	}
	return refdata.InjuryType(choice), nil
}

func drawTriage(pattern refdata.WarfarePattern, t refdata.InjuryType, rng *rand.Rand) (refdata.TriageCategory, error) {
	table, ok := pattern.TriageWeights[t]
	if !ok {
		return "", fmt.Errorf("warfare type %q has no triage weights for injury type %s", pattern.Type, t)
	}
	weights := make(map[string]float64, len(table))
	for cat, w := range table {
		weights[string(cat)] = w
	}
	choice, err := drawWeighted(weights, rng)
	if err != nil {
		return "", err
	}
	return refdata.TriageCategory(choice), nil
}

func drawSeverity(baseline refdata.Severity, rng *rand.Rand) refdata.Severity {
	order := []refdata.Severity{refdata.SeverityMinor, refdata.SeverityModerate, refdata.SeveritySevere}
	idx := 1
	for i, s := range order {
		if s == baseline {
			idx = i
		}
	}
	// Mostly the taxonomy baseline, with a one-step spread either way.
	switch r := rng.Float64(); {
	case r < 0.15 && idx > 0:
		idx--
	case r > 0.85 && idx < len(order)-1:
		idx++
	}
	return order[idx]
}

// bloodCDF is the derived cumulative blood-type distribution cached per
// nationality.
type bloodCDF struct {
	Types []string  `json:"types"`
	Cum   []float64 `json:"cum"`
}

// drawDemographics synthesizes the casualty identity from the nationality's
// reference pools. The cumulative blood-type table is a derived lookup and
// flows through the shared cache; a miss falls back to direct computation.
func (c *Composer) drawDemographics(ctx context.Context, natCode string, rng *rand.Rand) (Demographics, error) {
	nat, ok := c.ref.Nationalities[natCode]
	if !ok {
		return Demographics{}, fmt.Errorf("unknown nationality %q", natCode)
	}

	cdf, err := c.bloodTypeCDF(ctx, nat)
	if err != nil {
		return Demographics{}, err
	}
	bt := cdf.Types[len(cdf.Types)-1]
	r := rng.Float64()
	for i, cum := range cdf.Cum {
		if r <= cum {
			bt = cdf.Types[i]
			break
		}
	}

	gender := "male"
	if rng.Float64() < nat.FemaleRatio {
		gender = "female"
	}

	return Demographics{
		FirstName: nat.FirstNames[rng.Intn(len(nat.FirstNames))],
		LastName:  nat.LastNames[rng.Intn(len(nat.LastNames))],
		Age:       nat.MinAge + rng.Intn(nat.MaxAge-nat.MinAge+1),
		Gender:    gender,
		BloodType: bt,
	}, nil
}

func (c *Composer) bloodTypeCDF(ctx context.Context, nat refdata.Nationality) (bloodCDF, error) {
	compute := func() ([]byte, error) {
		types := make([]string, 0, len(nat.BloodTypes))
		for t := range nat.BloodTypes {
			types = append(types, t)
		}
		sort.Strings(types)
		total := 0.0
		for _, t := range types {
			total += nat.BloodTypes[t]
		}
		cdf := bloodCDF{Types: types, Cum: make([]float64, len(types))}
		cum := 0.0
		for i, t := range types {
			cum += nat.BloodTypes[t] / total
			cdf.Cum[i] = cum
		}
		return json.Marshal(cdf)
	}

	var raw []byte
	var err error
	if c.cache != nil {
		raw, err = c.cache.GetOrCompute(ctx, "demographics:bloodcdf:"+nat.Code, compute)
	} else {
		raw, err = compute()
	}
	if err != nil {
		return bloodCDF{}, err
	}
	var cdf bloodCDF
	if err := json.Unmarshal(raw, &cdf); err != nil {
		return bloodCDF{}, err
	}
	return cdf, nil
}

// drawWeighted draws a key from a weighted map. The iteration order is made
// deterministic by sorting keys; an empty or all-zero map is an error, never
// a silent default.
func drawWeighted(weights map[string]float64, rng *rand.Rand) (string, error) {
	if len(weights) == 0 {
		return "", fmt.Errorf("empty distribution")
	}
	keys := make([]string, 0, len(weights))
	total := 0.0
	for k, w := range weights {
		if w > 0 {
			keys = append(keys, k)
			total += w
		}
	}
	if total <= 0 {
		return "", fmt.Errorf("degenerate distribution: all weights zero")
	}
	sort.Strings(keys)
	r := rng.Float64() * total
	for _, k := range keys {
		r -= weights[k]
		if r <= 0 {
			return k, nil
		}
	}
	return keys[len(keys)-1], nil
}
