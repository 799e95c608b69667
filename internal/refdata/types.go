package refdata

// InjuryType classifies a casualty's primary injury pathway
type InjuryType string

const (
	InjuryDisease   InjuryType = "DISEASE"
	InjuryNonBattle InjuryType = "NON_BATTLE"
	InjuryBattle    InjuryType = "BATTLE"
)

// TriageCategory is the NATO T1/T2/T3 severity classification
type TriageCategory string

const (
	TriageImmediate TriageCategory = "T1"
	TriageDelayed   TriageCategory = "T2"
	TriageMinimal   TriageCategory = "T3"
)

// BodyRegion identifies the anatomical location of an injury
type BodyRegion string

const (
	RegionHead     BodyRegion = "head"
	RegionNeck     BodyRegion = "neck"
	RegionChest    BodyRegion = "chest"
	RegionAbdomen  BodyRegion = "abdomen"
	RegionPelvis   BodyRegion = "pelvis"
	RegionShoulder BodyRegion = "shoulder"
	RegionArm      BodyRegion = "arm"
	RegionLeg      BodyRegion = "leg"
)

// VesselType is the dominant vascular structure of a body region
type VesselType string

const (
	VesselMajorArtery VesselType = "major_artery"
	VesselLimbArtery  VesselType = "limb_artery"
	VesselSmallVessel VesselType = "small_vessel"
	VesselOrgan       VesselType = "organ"
	VesselCapillary   VesselType = "capillary"
)

// Severity grades an individual injury condition
type Severity string

const (
	SeverityMinor    Severity = "minor"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

// PatternShape is the temporal envelope a warfare type emits casualties under.
// Several warfare types share one shape.
type PatternShape string

const (
	ShapeSustained     PatternShape = "sustained_combat"
	ShapeSurge         PatternShape = "surge"
	ShapePhasedAssault PatternShape = "phased_assault"
	ShapeSporadic      PatternShape = "sporadic"
	ShapePrecision     PatternShape = "precision_strike"
	ShapeWave          PatternShape = "wave"
	ShapeContamination PatternShape = "contamination_spread"
	ShapeLowIntensity  PatternShape = "low_intensity"
)

// RegionInfo maps a body region to its vascular profile. Tourniquetable is
// true only for limb regions; junctional regions (neck, pelvis, shoulder)
// are never tourniquetable regardless of vessel type.
type RegionInfo struct {
	Region         BodyRegion
	Vessel         VesselType
	Tourniquetable bool
}

// Injury is one entry of the injury taxonomy, keyed by a SNOMED-style code.
type Injury struct {
	Code        string
	Description string
	Region      BodyRegion
	Class       InjuryType
	Baseline    Severity
}

// Nationality holds the demographic reference data for one troop nationality.
type Nationality struct {
	Code        string
	Name        string
	MinAge      int
	MaxAge      int
	FemaleRatio float64
	BloodTypes  map[string]float64
	FirstNames  []string
	LastNames   []string
}

// AssaultPhase is one explicit phase of a phased_assault pattern.
type AssaultPhase struct {
	StartHour     int
	DurationHours int
	Intensity     float64
}

// Environment scales casualty output and injects evacuation delay.
type Environment struct {
	Name             string
	CasualtyModifier float64
	EvacDelayMinMin  int
	EvacDelayMaxMin  int
}

// WarfarePattern is the full temporal and clustering definition for one
// warfare type. Loaded once, never mutated.
type WarfarePattern struct {
	Type  string
	Shape PatternShape

	BaseIntensity        float64            // expected casualties per hour at intensity "medium"
	IntensityMultipliers map[string]float64 // low / medium / high / extreme

	PeakHours      []int   // sustained: hours-of-day with elevated output
	PeakMultiplier float64 // sustained: multiplier inside peak hours

	SurgesPerDay   int     // surge: windows per day
	SurgeHours     int     // surge: window length
	SurgeIntensity float64 // surge: multiplier inside a window
	QuietFloor     float64 // surge: fraction of base outside windows

	Phases []AssaultPhase // phased_assault

	DailyEventMin int     // sporadic / precision: events per day range
	DailyEventMax int     //
	NightBias     float64 // sporadic / precision: probability mass shifted to night hours

	SpreadRate float64 // contamination: delayed-wave scaling

	WavePeriodHours int // wave: hours between crests

	MassCasualtyProb       float64
	ClusterSizeMin         int
	ClusterSizeMax         int
	ClusterDurationMinutes int

	InjuryModifiers map[InjuryType]float64
	TriageWeights   map[InjuryType]map[TriageCategory]float64
}
