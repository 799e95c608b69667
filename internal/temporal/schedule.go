package temporal

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/terminal-bench/casgen/internal/exercise"
	"github.com/terminal-bench/casgen/internal/refdata"
)

// Event is one scheduled casualty-producing moment. Events are ephemeral:
// produced once per run, consumed by the composer, never persisted.
type Event struct {
	Offset       time.Duration // from exercise start
	WarfareType  string
	Front        string
	Casualties   int
	Intensity    float64       // density weight at the event's moment
	ClusterSpan  time.Duration // >0 for mass-casualty events; casualties jitter inside it
	EvacDelayMin int           // minutes of evacuation delay injected by environment
}

// Scheduler turns a warfare configuration into a deterministic-given-seed
// event schedule covering the full exercise timeline.
type Scheduler struct {
	ref *refdata.Store
}

// NewScheduler creates a scheduler over the shared reference data.
func NewScheduler(ref *refdata.Store) *Scheduler {
	return &Scheduler{ref: ref}
}

// Schedule produces the event timeline for cfg. The total casualty count
// across all events equals cfg.TotalPatients exactly. The same cfg and rng
// seed yield an identical schedule.
func (s *Scheduler) Schedule(cfg *exercise.Config, rng *rand.Rand) ([]Event, error) {
	totalHours := cfg.DurationDays * 24
	envMod, evacLo, evacHi := s.environmentEffects(cfg)

	var events []Event
	for _, wt := range cfg.WarfareTypes {
		p, err := s.ref.Pattern(wt)
		if err != nil {
			return nil, fmt.Errorf("schedule: %w", err)
		}
		raw := s.emitPattern(p, cfg, totalHours, envMod, rng)
		events = append(events, raw...)
	}

	// Special events suppress the base pattern during their window rather
	// than stacking with it.
	events = suppressOverlapping(events, cfg.SpecialEvents)
	primaryType := cfg.WarfareTypes[0]
	for _, sp := range cfg.SpecialEvents {
		events = append(events, s.emitOverlay(sp, primaryType, envMod, rng)...)
	}

	sort.SliceStable(events, func(i, j int) bool { return events[i].Offset < events[j].Offset })
	events = normalize(events, cfg.TotalPatients, primaryType)

	for i := range events {
		events[i].Front = s.pickFront(cfg.Fronts, rng)
		if evacHi > 0 {
			events[i].EvacDelayMin = evacLo + rng.Intn(evacHi-evacLo+1)
		}
	}
	return events, nil
}

// environmentEffects combines the configured environmental modifiers into a
// single casualty multiplier and an evacuation-delay range. Modifiers
// multiply; delay ranges widen to cover every active environment.
func (s *Scheduler) environmentEffects(cfg *exercise.Config) (float64, int, int) {
	mod := 1.0
	evacLo, evacHi := 0, 0
	for _, name := range cfg.Environments {
		env, ok := s.ref.Environments[name]
		if !ok {
			continue
		}
		mod *= env.CasualtyModifier
		if evacHi == 0 || env.EvacDelayMinMin < evacLo {
			evacLo = env.EvacDelayMinMin
		}
		if env.EvacDelayMaxMin > evacHi {
			evacHi = env.EvacDelayMaxMin
		}
	}
	return mod, evacLo, evacHi
}

// emitPattern walks the exercise timeline for one warfare pattern and emits
// raw (pre-normalization) events.
func (s *Scheduler) emitPattern(p refdata.WarfarePattern, cfg *exercise.Config, totalHours int, envMod float64, rng *rand.Rand) []Event {
	mult := p.IntensityMultipliers[cfg.Intensity]
	if mult == 0 {
		mult = 1.0
	}

	switch p.Shape {
	case refdata.ShapeSporadic, refdata.ShapePrecision:
		return s.emitArrivals(p, cfg, mult, envMod, rng)
	case refdata.ShapeContamination:
		return s.emitContamination(p, cfg, totalHours, mult, envMod, rng)
	default:
		return s.emitHourly(p, cfg, totalHours, mult, envMod, rng)
	}
}

// emitHourly covers the density-curve shapes: sustained_combat, surge,
// phased_assault, wave and low_intensity.
func (s *Scheduler) emitHourly(p refdata.WarfarePattern, cfg *exercise.Config, totalHours int, mult, envMod float64, rng *rand.Rand) []Event {
	var events []Event
	for h := 0; h < totalHours; h++ {
		day := h / 24
		hourOfDay := h % 24
		tempo := refdata.TempoFactor(cfg.Tempo, day, cfg.DurationDays)
		density := p.BaseIntensity * s.shapeFactor(p, hourOfDay) * mult * tempo * envMod
		count := drawCount(density, rng)
		if count == 0 {
			continue
		}
		ev := Event{
			Offset:      time.Duration(h)*time.Hour + time.Duration(rng.Intn(60))*time.Minute,
			WarfareType: p.Type,
			Casualties:  count,
			Intensity:   density,
		}
		events = append(events, applyClustering(ev, p, rng))
	}
	return events
}

// shapeFactor is the per-shape hour-of-day envelope.
func (s *Scheduler) shapeFactor(p refdata.WarfarePattern, hourOfDay int) float64 {
	switch p.Shape {
	case refdata.ShapeSustained:
		for _, ph := range p.PeakHours {
			if ph == hourOfDay {
				return p.PeakMultiplier
			}
		}
		return 1.0
	case refdata.ShapeSurge:
		if p.SurgesPerDay > 0 && p.SurgeHours > 0 {
			spacing := 24 / p.SurgesPerDay
			if hourOfDay%spacing < p.SurgeHours {
				return p.SurgeIntensity
			}
		}
		return p.QuietFloor
	case refdata.ShapePhasedAssault:
		for _, phase := range p.Phases {
			if hourOfDay >= phase.StartHour && hourOfDay < phase.StartHour+phase.DurationHours {
				return phase.Intensity
			}
		}
		return 0.25 // baseline between phases
	case refdata.ShapeWave:
		if p.WavePeriodHours > 0 {
			// Crest at the start of each period, trough at the midpoint.
			phase := float64(hourOfDay%p.WavePeriodHours) / float64(p.WavePeriodHours)
			return 0.3 + 1.4*(0.5+0.5*math.Cos(2*math.Pi*phase))
		}
		return 1.0
	case refdata.ShapeLowIntensity:
		return 1.0
	default:
		return 1.0
	}
}

// emitArrivals covers sporadic and precision_strike: a bounded number of
// discrete events per day, placed uniformly with a configurable night bias.
func (s *Scheduler) emitArrivals(p refdata.WarfarePattern, cfg *exercise.Config, mult, envMod float64, rng *rand.Rand) []Event {
	var events []Event
	for day := 0; day < cfg.DurationDays; day++ {
		tempo := refdata.TempoFactor(cfg.Tempo, day, cfg.DurationDays)
		n := p.DailyEventMin
		if p.DailyEventMax > p.DailyEventMin {
			n += rng.Intn(p.DailyEventMax - p.DailyEventMin + 1)
		}
		n = int(math.Round(float64(n) * mult * tempo))
		for i := 0; i < n; i++ {
			hourOfDay := rng.Intn(24)
			if rng.Float64() < p.NightBias {
				// 20:00-05:00 window
				hourOfDay = (20 + rng.Intn(10)) % 24
			}
			base := math.Max(p.BaseIntensity*envMod, 0.1)
			count := 1 + drawCount(base-1, rng)
			ev := Event{
				Offset:      time.Duration(day*24+hourOfDay)*time.Hour + time.Duration(rng.Intn(60))*time.Minute,
				WarfareType: p.Type,
				Casualties:  count,
				Intensity:   base * mult * tempo,
			}
			events = append(events, applyClustering(ev, p, rng))
		}
	}
	return events
}

// emitContamination models a two-wave release: an initial-exposure wave in
// hours 0-2 and a delayed-symptom wave 6-48 hours later scaled by the
// spread rate.
func (s *Scheduler) emitContamination(p refdata.WarfarePattern, cfg *exercise.Config, totalHours int, mult, envMod float64, rng *rand.Rand) []Event {
	var events []Event
	initialDensity := p.BaseIntensity * mult * envMod * 3.0
	for h := 0; h < 2; h++ {
		count := drawCount(initialDensity, rng)
		if count == 0 {
			count = 1
		}
		ev := Event{
			Offset:      time.Duration(h)*time.Hour + time.Duration(rng.Intn(60))*time.Minute,
			WarfareType: p.Type,
			Casualties:  count,
			Intensity:   initialDensity,
		}
		events = append(events, applyClustering(ev, p, rng))

		// Delayed-symptom companion wave.
		delay := 6 + rng.Intn(43) // 6-48h
		if h+delay < totalHours {
			delayed := ev
			delayed.Offset = time.Duration(h+delay)*time.Hour + time.Duration(rng.Intn(60))*time.Minute
			delayed.Casualties = int(math.Max(1, math.Round(float64(count)*p.SpreadRate)))
			delayed.Intensity = initialDensity * p.SpreadRate
			delayed.ClusterSpan = 0
			events = append(events, applyClustering(delayed, p, rng))
		}
	}
	return events
}

// emitOverlay generates the events contributed by one special event.
func (s *Scheduler) emitOverlay(sp exercise.SpecialEvent, warfareType string, envMod float64, rng *rand.Rand) []Event {
	var events []Event
	for h := sp.StartHour; h < sp.StartHour+sp.DurationHours; h++ {
		count := drawCount(sp.Intensity*envMod, rng)
		if count == 0 {
			continue
		}
		events = append(events, Event{
			Offset:      time.Duration(h)*time.Hour + time.Duration(rng.Intn(60))*time.Minute,
			WarfareType: warfareType,
			Casualties:  count,
			Intensity:   sp.Intensity * envMod,
		})
	}
	return events
}

// suppressOverlapping removes base-pattern events that fall inside any
// special-event window so overlays replace rather than stack.
func suppressOverlapping(events []Event, specials []exercise.SpecialEvent) []Event {
	if len(specials) == 0 {
		return events
	}
	kept := events[:0]
	for _, ev := range events {
		hour := int(ev.Offset / time.Hour)
		inWindow := false
		for _, sp := range specials {
			if hour >= sp.StartHour && hour < sp.StartHour+sp.DurationHours {
				inWindow = true
				break
			}
		}
		if !inWindow {
			kept = append(kept, ev)
		}
	}
	return kept
}

// applyClustering turns an event into a mass-casualty cluster with the
// pattern's configured probability.
func applyClustering(ev Event, p refdata.WarfarePattern, rng *rand.Rand) Event {
	if p.MassCasualtyProb <= 0 || rng.Float64() >= p.MassCasualtyProb {
		return ev
	}
	size := p.ClusterSizeMin
	if p.ClusterSizeMax > p.ClusterSizeMin {
		size += rng.Intn(p.ClusterSizeMax - p.ClusterSizeMin + 1)
	}
	ev.Casualties = size
	ev.ClusterSpan = time.Duration(p.ClusterDurationMinutes) * time.Minute
	return ev
}

// drawCount converts an expected hourly density into an integer count:
// the integer part is kept and the fractional part becomes a Bernoulli draw.
func drawCount(expected float64, rng *rand.Rand) int {
	if expected <= 0 {
		return 0
	}
	n := int(expected)
	if rng.Float64() < expected-float64(n) {
		n++
	}
	return n
}

// pickFront draws a front weighted by casualty weight.
func (s *Scheduler) pickFront(fronts []exercise.Front, rng *rand.Rand) string {
	total := 0.0
	for _, f := range fronts {
		total += f.CasualtyWeight
	}
	r := rng.Float64() * total
	for _, f := range fronts {
		r -= f.CasualtyWeight
		if r <= 0 {
			return f.Name
		}
	}
	return fronts[len(fronts)-1].Name
}

// normalize rescales event casualty counts so their sum matches total
// exactly. The remainder is settled on the final event, never dropped.
// Fallback events carry warfareType so downstream composition always has a
// known pattern to draw against.
func normalize(events []Event, total int, warfareType string) []Event {
	if len(events) == 0 {
		// Degenerate timeline (e.g. zero-density configuration): emit the
		// whole allocation as a single opening event.
		return []Event{{Offset: 0, WarfareType: warfareType, Casualties: total, Intensity: 1.0}}
	}
	raw := 0
	for _, ev := range events {
		raw += ev.Casualties
	}
	scale := float64(total) / float64(raw)

	assigned := 0
	acc := 0.0
	out := events[:0]
	for _, ev := range events {
		acc += float64(ev.Casualties) * scale
		n := int(math.Round(acc)) - assigned
		if n <= 0 {
			continue
		}
		assigned += n
		ev.Casualties = n
		out = append(out, ev)
	}

	// Settle rounding drift on the last event.
	diff := total - assigned
	for diff != 0 && len(out) > 0 {
		last := &out[len(out)-1]
		last.Casualties += diff
		if last.Casualties > 0 {
			break
		}
		diff = last.Casualties
		out = out[:len(out)-1]
	}
	if len(out) == 0 {
		return []Event{{Offset: 0, WarfareType: warfareType, Casualties: total, Intensity: 1.0}}
	}
	return out
}
