package hemorrhage

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/terminal-bench/casgen/internal/refdata"
)

// Blood-volume trajectory: BV(t) = BV0 * exp(-(alpha0 + k*t) * t), with t in
// hours. The progression factor k models the lethal triad: the bleeding rate
// worsens monotonically as coagulopathy, hypothermia and acidosis compound.
const (
	totalBloodVolumeML  = 5000.0
	deathFraction       = 0.40 // death once BV falls below 40% (loss > 60%)
	tourniquetReduction = 0.95
)

// Category is the hemorrhage class assigned from vessel type and severity.
type Category string

const (
	CategorySmallLimb           Category = "small_limb"
	CategoryMajorArtery         Category = "major_artery"
	CategoryTorso               Category = "torso"
	CategoryMultiplePenetrating Category = "multiple_penetrating"
	CategoryMassive             Category = "massive"
)

// TourniquetResult reports the outcome of a tourniquet application attempt.
type TourniquetResult string

const (
	TourniquetApplied       TourniquetResult = "applied"
	TourniquetNotApplicable TourniquetResult = "not_applicable"
)

// Profile is the bleeding dynamics of one injury, or of a combined
// poly-trauma casualty.
type Profile struct {
	Category          Category           `json:"category"`
	Alpha0            float64            `json:"alpha0"`  // baseline decay rate, per hour
	K                 float64            `json:"k"`       // progression factor, per hour^2
	RateMLPerMin      float64            `json:"rate_ml_per_min"`
	Controllable      bool               `json:"controllable"`
	Region            refdata.BodyRegion `json:"region"`
	TimeToExsangMin   float64            `json:"time_to_exsanguination_min"`
	TourniquetApplied bool               `json:"tourniquet_applied"`
}

type paramRange struct {
	alphaLo, alphaHi float64
	kLo, kHi         float64
	rateLo, rateHi   float64
}

var categoryParams = map[Category]paramRange{
	CategorySmallLimb:           {alphaLo: 0.05, alphaHi: 0.30, kLo: 0.01, kHi: 0.05, rateLo: 5, rateHi: 30},
	CategoryMajorArtery:         {alphaLo: 1.5, alphaHi: 5.0, kLo: 0.5, kHi: 2.0, rateLo: 100, rateHi: 400},
	CategoryTorso:               {alphaLo: 0.8, alphaHi: 3.0, kLo: 0.3, kHi: 1.5, rateLo: 60, rateHi: 250},
	CategoryMultiplePenetrating: {alphaLo: 2.0, alphaHi: 6.0, kLo: 1.0, kHi: 3.0, rateLo: 150, rateHi: 500},
	CategoryMassive:             {alphaLo: 10.0, alphaHi: 18.0, kLo: 3.0, kHi: 8.0, rateLo: 500, rateHi: 1500},
}

// Classify assigns the hemorrhage category for a vessel type refined by
// severity. The multiple_penetrating category is only produced by Combine.
func Classify(vessel refdata.VesselType, severity refdata.Severity) Category {
	switch vessel {
	case refdata.VesselMajorArtery:
		if severity == refdata.SeveritySevere {
			return CategoryMassive
		}
		return CategoryMajorArtery
	case refdata.VesselLimbArtery:
		if severity == refdata.SeveritySevere {
			return CategoryMajorArtery
		}
		return CategorySmallLimb
	case refdata.VesselOrgan:
		return CategoryTorso
	default:
		return CategorySmallLimb
	}
}

// Compute builds the hemorrhage profile for one injury. Severity biases the
// parameter draw toward the high end of the category range for severe and
// the low end for minor injuries.
func Compute(code string, region refdata.RegionInfo, severity refdata.Severity, rng *rand.Rand) (Profile, error) {
	cat := Classify(region.Vessel, severity)
	params, ok := categoryParams[cat]
	if !ok {
		return Profile{}, fmt.Errorf("no hemorrhage parameters for category %q (injury %s)", cat, code)
	}

	u := rng.Float64()
	switch severity {
	case refdata.SeveritySevere:
		u = 0.5 + 0.5*u
	case refdata.SeverityMinor:
		u = 0.5 * u
	}

	p := Profile{
		Category:     cat,
		Alpha0:       params.alphaLo + u*(params.alphaHi-params.alphaLo),
		K:            params.kLo + u*(params.kHi-params.kLo),
		RateMLPerMin: params.rateLo + u*(params.rateHi-params.rateLo),
		Controllable: region.Tourniquetable,
		Region:       region.Region,
	}
	p.TimeToExsangMin = timeToExsanguination(p.Alpha0, p.K)
	return p, nil
}

// BloodVolumeAt evaluates BV(t) in millilitres, t in minutes since injury.
func (p Profile) BloodVolumeAt(minutes float64) float64 {
	t := minutes / 60.0
	return totalBloodVolumeML * math.Exp(-(p.Alpha0+p.K*t)*t)
}

// ApplyTourniquet reduces the bleeding rate by 95% for controllable regions.
// For non-controllable regions the profile is returned unchanged with an
// explicit not-applicable result; the call never silently succeeds.
func (p Profile) ApplyTourniquet() (Profile, TourniquetResult) {
	if !p.Controllable {
		return p, TourniquetNotApplicable
	}
	out := p
	out.Alpha0 *= 1 - tourniquetReduction
	out.K *= 1 - tourniquetReduction
	out.RateMLPerMin *= 1 - tourniquetReduction
	out.TimeToExsangMin = timeToExsanguination(out.Alpha0, out.K)
	out.TourniquetApplied = true
	return out, TourniquetApplied
}

// Combine merges the bleeding profiles of a poly-trauma casualty. Rates and
// decay parameters add, and time-to-critical is recomputed against the
// shared blood volume rather than taken as the minimum of the parts:
// additive injuries compound and deteriorate superlinearly.
func Combine(profiles []Profile) (Profile, error) {
	if len(profiles) == 0 {
		return Profile{}, fmt.Errorf("combine: no profiles")
	}
	if len(profiles) == 1 {
		return profiles[0], nil
	}
	out := Profile{
		Category: CategoryMultiplePenetrating,
		Region:   profiles[0].Region,
	}
	for _, p := range profiles {
		out.Alpha0 += p.Alpha0
		out.K += p.K
		out.RateMLPerMin += p.RateMLPerMin
	}
	// A combined casualty is never controllable as a unit; individual limb
	// wounds may still be tourniqueted via their own profiles.
	out.Controllable = false
	out.TimeToExsangMin = timeToExsanguination(out.Alpha0, out.K)
	return out, nil
}

// timeToExsanguination solves for the smallest t (minutes) where BV(t) drops
// below the death threshold: (alpha0 + k*t)*t = ln(1/deathFraction).
func timeToExsanguination(alpha0, k float64) float64 {
	target := math.Log(1.0 / deathFraction)
	if alpha0 <= 0 && k <= 0 {
		return math.Inf(1)
	}
	var tHours float64
	if k <= 1e-9 {
		tHours = target / alpha0
	} else {
		tHours = (-alpha0 + math.Sqrt(alpha0*alpha0+4*k*target)) / (2 * k)
	}
	return tHours * 60.0
}
