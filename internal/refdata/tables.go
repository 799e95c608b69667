package refdata

// Reference tables. These are immutable after Load and shared by every job
// in the process.

func regionTable() map[BodyRegion]RegionInfo {
	return map[BodyRegion]RegionInfo{
		RegionHead:     {Region: RegionHead, Vessel: VesselSmallVessel, Tourniquetable: false},
		RegionNeck:     {Region: RegionNeck, Vessel: VesselMajorArtery, Tourniquetable: false},
		RegionChest:    {Region: RegionChest, Vessel: VesselOrgan, Tourniquetable: false},
		RegionAbdomen:  {Region: RegionAbdomen, Vessel: VesselOrgan, Tourniquetable: false},
		RegionPelvis:   {Region: RegionPelvis, Vessel: VesselMajorArtery, Tourniquetable: false},
		RegionShoulder: {Region: RegionShoulder, Vessel: VesselMajorArtery, Tourniquetable: false},
		RegionArm:      {Region: RegionArm, Vessel: VesselLimbArtery, Tourniquetable: true},
		RegionLeg:      {Region: RegionLeg, Vessel: VesselLimbArtery, Tourniquetable: true},
	}
}

func injuryTable() []Injury {
	return []Injury{
		// Battle injuries
		{Code: "262574004", Description: "Bullet wound", Region: RegionChest, Class: InjuryBattle, Baseline: SeveritySevere},
		{Code: "283545005", Description: "Gunshot wound of limb", Region: RegionLeg, Class: InjuryBattle, Baseline: SeverityModerate},
		{Code: "219533004", Description: "Fragment wound from shell", Region: RegionAbdomen, Class: InjuryBattle, Baseline: SeveritySevere},
		{Code: "219536007", Description: "Fragment wound from grenade", Region: RegionArm, Class: InjuryBattle, Baseline: SeverityModerate},
		{Code: "125666000", Description: "Blast injury", Region: RegionHead, Class: InjuryBattle, Baseline: SeveritySevere},
		{Code: "63409001", Description: "Traumatic amputation of leg", Region: RegionLeg, Class: InjuryBattle, Baseline: SeveritySevere},
		{Code: "45910007", Description: "Traumatic amputation of arm", Region: RegionArm, Class: InjuryBattle, Baseline: SeveritySevere},
		{Code: "210988004", Description: "Penetrating neck wound", Region: RegionNeck, Class: InjuryBattle, Baseline: SeveritySevere},
		{Code: "262599001", Description: "Shrapnel wound of pelvis", Region: RegionPelvis, Class: InjuryBattle, Baseline: SeveritySevere},
		{Code: "284554003", Description: "Shrapnel wound of shoulder", Region: RegionShoulder, Class: InjuryBattle, Baseline: SeverityModerate},
		// Non-battle injuries
		{Code: "125605004", Description: "Fracture of bone", Region: RegionLeg, Class: InjuryNonBattle, Baseline: SeverityModerate},
		{Code: "284003005", Description: "Crush injury", Region: RegionArm, Class: InjuryNonBattle, Baseline: SeverityModerate},
		{Code: "48333001", Description: "Burn injury", Region: RegionArm, Class: InjuryNonBattle, Baseline: SeverityModerate},
		{Code: "44465007", Description: "Sprain of ankle", Region: RegionLeg, Class: InjuryNonBattle, Baseline: SeverityMinor},
		{Code: "217082002", Description: "Fall from vehicle", Region: RegionChest, Class: InjuryNonBattle, Baseline: SeverityMinor},
		// Disease
		{Code: "25374005", Description: "Gastroenteritis", Region: RegionAbdomen, Class: InjuryDisease, Baseline: SeverityMinor},
		{Code: "54150009", Description: "Upper respiratory infection", Region: RegionChest, Class: InjuryDisease, Baseline: SeverityMinor},
		{Code: "52072009", Description: "Heat exhaustion", Region: RegionHead, Class: InjuryDisease, Baseline: SeverityModerate},
		{Code: "67864003", Description: "Chemical agent exposure", Region: RegionChest, Class: InjuryDisease, Baseline: SeveritySevere},
		{Code: "409587002", Description: "Nerve agent poisoning", Region: RegionHead, Class: InjuryDisease, Baseline: SeveritySevere},
	}
}

func nationalityTable() []Nationality {
	return []Nationality{
		{
			Code: "USA", Name: "United States", MinAge: 18, MaxAge: 52, FemaleRatio: 0.16,
			BloodTypes: map[string]float64{"O+": 0.38, "A+": 0.34, "B+": 0.09, "O-": 0.07, "A-": 0.06, "AB+": 0.03, "B-": 0.02, "AB-": 0.01},
			FirstNames: []string{"James", "Michael", "Robert", "David", "William", "Sarah", "Jennifer", "Emily"},
			LastNames:  []string{"Smith", "Johnson", "Williams", "Brown", "Jones", "Miller", "Davis", "Wilson"},
		},
		{
			Code: "GBR", Name: "United Kingdom", MinAge: 18, MaxAge: 50, FemaleRatio: 0.11,
			BloodTypes: map[string]float64{"O+": 0.37, "A+": 0.35, "B+": 0.08, "O-": 0.13, "A-": 0.03, "AB+": 0.02, "B-": 0.01, "AB-": 0.01},
			FirstNames: []string{"Oliver", "George", "Harry", "Jack", "Thomas", "Olivia", "Amelia", "Charlotte"},
			LastNames:  []string{"Taylor", "Davies", "Evans", "Thomas", "Roberts", "Walker", "Wright", "Edwards"},
		},
		{
			Code: "DEU", Name: "Germany", MinAge: 18, MaxAge: 55, FemaleRatio: 0.13,
			BloodTypes: map[string]float64{"O+": 0.35, "A+": 0.37, "B+": 0.09, "O-": 0.06, "A-": 0.06, "AB+": 0.04, "B-": 0.02, "AB-": 0.01},
			FirstNames: []string{"Lukas", "Maximilian", "Felix", "Paul", "Jonas", "Anna", "Lena", "Mia"},
			LastNames:  []string{"Mueller", "Schmidt", "Schneider", "Fischer", "Weber", "Wagner", "Becker", "Hoffmann"},
		},
		{
			Code: "FRA", Name: "France", MinAge: 18, MaxAge: 52, FemaleRatio: 0.15,
			BloodTypes: map[string]float64{"O+": 0.36, "A+": 0.37, "B+": 0.09, "O-": 0.06, "A-": 0.07, "AB+": 0.03, "B-": 0.01, "AB-": 0.01},
			FirstNames: []string{"Lucas", "Hugo", "Louis", "Gabriel", "Arthur", "Emma", "Lea", "Chloe"},
			LastNames:  []string{"Martin", "Bernard", "Dubois", "Moreau", "Laurent", "Simon", "Michel", "Lefebvre"},
		},
		{
			Code: "NLD", Name: "Netherlands", MinAge: 18, MaxAge: 50, FemaleRatio: 0.12,
			BloodTypes: map[string]float64{"O+": 0.40, "A+": 0.35, "B+": 0.07, "O-": 0.07, "A-": 0.07, "AB+": 0.02, "B-": 0.01, "AB-": 0.01},
			FirstNames: []string{"Daan", "Sem", "Lucas", "Finn", "Levi", "Emma", "Julia", "Sophie"},
			LastNames:  []string{"DeJong", "Jansen", "DeVries", "VanDenBerg", "Bakker", "Visser", "Smit", "Meijer"},
		},
		{
			Code: "POL", Name: "Poland", MinAge: 18, MaxAge: 55, FemaleRatio: 0.09,
			BloodTypes: map[string]float64{"O+": 0.31, "A+": 0.32, "B+": 0.15, "O-": 0.06, "A-": 0.06, "AB+": 0.07, "B-": 0.02, "AB-": 0.01},
			FirstNames: []string{"Jakub", "Szymon", "Jan", "Filip", "Antoni", "Zuzanna", "Julia", "Maja"},
			LastNames:  []string{"Nowak", "Kowalski", "Wisniewski", "Wojcik", "Kowalczyk", "Kaminski", "Lewandowski", "Zielinski"},
		},
		{
			Code: "UKR", Name: "Ukraine", MinAge: 18, MaxAge: 58, FemaleRatio: 0.08,
			BloodTypes: map[string]float64{"O+": 0.32, "A+": 0.34, "B+": 0.13, "O-": 0.05, "A-": 0.06, "AB+": 0.06, "B-": 0.03, "AB-": 0.01},
			FirstNames: []string{"Oleksandr", "Dmytro", "Andriy", "Serhiy", "Mykola", "Olena", "Kateryna", "Iryna"},
			LastNames:  []string{"Shevchenko", "Kovalenko", "Bondarenko", "Tkachenko", "Melnyk", "Kravchenko", "Boyko", "Marchenko"},
		},
		{
			Code: "CAN", Name: "Canada", MinAge: 18, MaxAge: 52, FemaleRatio: 0.16,
			BloodTypes: map[string]float64{"O+": 0.39, "A+": 0.36, "B+": 0.08, "O-": 0.07, "A-": 0.06, "AB+": 0.02, "B-": 0.01, "AB-": 0.01},
			FirstNames: []string{"Liam", "Noah", "William", "Benjamin", "Logan", "Emma", "Olivia", "Ava"},
			LastNames:  []string{"Tremblay", "Gagnon", "Roy", "Cote", "Bouchard", "Morin", "Lavoie", "Fortin"},
		},
	}
}

func environmentTable() map[string]Environment {
	return map[string]Environment{
		"rain":     {Name: "rain", CasualtyModifier: 0.90, EvacDelayMinMin: 10, EvacDelayMaxMin: 30},
		"fog":      {Name: "fog", CasualtyModifier: 0.85, EvacDelayMinMin: 15, EvacDelayMaxMin: 45},
		"storm":    {Name: "storm", CasualtyModifier: 0.70, EvacDelayMinMin: 30, EvacDelayMaxMin: 90},
		"heat":     {Name: "heat", CasualtyModifier: 1.15, EvacDelayMinMin: 5, EvacDelayMaxMin: 20},
		"cold":     {Name: "cold", CasualtyModifier: 1.10, EvacDelayMinMin: 10, EvacDelayMaxMin: 40},
		"dust":     {Name: "dust", CasualtyModifier: 0.95, EvacDelayMinMin: 10, EvacDelayMaxMin: 25},
		"mountain": {Name: "mountain", CasualtyModifier: 0.80, EvacDelayMinMin: 45, EvacDelayMaxMin: 120},
	}
}

func defaultIntensityMultipliers() map[string]float64 {
	return map[string]float64{"low": 0.6, "medium": 1.0, "high": 1.4, "extreme": 1.9}
}

func warfarePatternTable() map[string]WarfarePattern {
	battleHeavy := map[InjuryType]float64{InjuryBattle: 1.0, InjuryNonBattle: 0.6, InjuryDisease: 0.3}

	return map[string]WarfarePattern{
		"artillery": {
			Type: "artillery", Shape: ShapeSustained,
			BaseIntensity:        3.0,
			IntensityMultipliers: defaultIntensityMultipliers(),
			PeakHours:            []int{5, 6, 7, 17, 18, 19},
			PeakMultiplier:       2.2,
			MassCasualtyProb:     0.18,
			ClusterSizeMin:       4, ClusterSizeMax: 14, ClusterDurationMinutes: 20,
			InjuryModifiers: map[InjuryType]float64{InjuryBattle: 1.3, InjuryNonBattle: 0.5, InjuryDisease: 0.2},
			TriageWeights: map[InjuryType]map[TriageCategory]float64{
				InjuryBattle:    {TriageImmediate: 0.50, TriageDelayed: 0.32, TriageMinimal: 0.18},
				InjuryNonBattle: {TriageImmediate: 0.15, TriageDelayed: 0.40, TriageMinimal: 0.45},
				InjuryDisease:   {TriageImmediate: 0.05, TriageDelayed: 0.30, TriageMinimal: 0.65},
			},
		},
		"armoured_assault": {
			Type: "armoured_assault", Shape: ShapePhasedAssault,
			BaseIntensity:        1.5,
			IntensityMultipliers: defaultIntensityMultipliers(),
			Phases: []AssaultPhase{
				{StartHour: 4, DurationHours: 3, Intensity: 4.0},
				{StartHour: 10, DurationHours: 4, Intensity: 2.5},
				{StartHour: 16, DurationHours: 2, Intensity: 3.2},
			},
			MassCasualtyProb: 0.14,
			ClusterSizeMin:   3, ClusterSizeMax: 9, ClusterDurationMinutes: 15,
			InjuryModifiers: battleHeavy,
			TriageWeights: map[InjuryType]map[TriageCategory]float64{
				InjuryBattle:    {TriageImmediate: 0.42, TriageDelayed: 0.36, TriageMinimal: 0.22},
				InjuryNonBattle: {TriageImmediate: 0.12, TriageDelayed: 0.42, TriageMinimal: 0.46},
				InjuryDisease:   {TriageImmediate: 0.05, TriageDelayed: 0.30, TriageMinimal: 0.65},
			},
		},
		"urban_combat": {
			Type: "urban_combat", Shape: ShapeWave,
			BaseIntensity:        2.2,
			IntensityMultipliers: defaultIntensityMultipliers(),
			WavePeriodHours:      8,
			MassCasualtyProb:     0.10,
			ClusterSizeMin:       2, ClusterSizeMax: 7, ClusterDurationMinutes: 25,
			InjuryModifiers: battleHeavy,
			TriageWeights: map[InjuryType]map[TriageCategory]float64{
				InjuryBattle:    {TriageImmediate: 0.38, TriageDelayed: 0.37, TriageMinimal: 0.25},
				InjuryNonBattle: {TriageImmediate: 0.12, TriageDelayed: 0.40, TriageMinimal: 0.48},
				InjuryDisease:   {TriageImmediate: 0.05, TriageDelayed: 0.32, TriageMinimal: 0.63},
			},
		},
		"air_strike": {
			Type: "air_strike", Shape: ShapePrecision,
			BaseIntensity:        1.0,
			IntensityMultipliers: defaultIntensityMultipliers(),
			DailyEventMin:        2, DailyEventMax: 6,
			NightBias:        0.35,
			MassCasualtyProb: 0.45,
			ClusterSizeMin:   6, ClusterSizeMax: 20, ClusterDurationMinutes: 10,
			InjuryModifiers: map[InjuryType]float64{InjuryBattle: 1.4, InjuryNonBattle: 0.4, InjuryDisease: 0.1},
			TriageWeights: map[InjuryType]map[TriageCategory]float64{
				InjuryBattle:    {TriageImmediate: 0.48, TriageDelayed: 0.33, TriageMinimal: 0.19},
				InjuryNonBattle: {TriageImmediate: 0.18, TriageDelayed: 0.40, TriageMinimal: 0.42},
				InjuryDisease:   {TriageImmediate: 0.05, TriageDelayed: 0.30, TriageMinimal: 0.65},
			},
		},
		"drone_strike": {
			Type: "drone_strike", Shape: ShapePrecision,
			BaseIntensity:        0.8,
			IntensityMultipliers: defaultIntensityMultipliers(),
			DailyEventMin:        3, DailyEventMax: 10,
			NightBias:        0.20,
			MassCasualtyProb: 0.25,
			ClusterSizeMin:   2, ClusterSizeMax: 8, ClusterDurationMinutes: 5,
			InjuryModifiers: map[InjuryType]float64{InjuryBattle: 1.3, InjuryNonBattle: 0.4, InjuryDisease: 0.1},
			TriageWeights: map[InjuryType]map[TriageCategory]float64{
				InjuryBattle:    {TriageImmediate: 0.44, TriageDelayed: 0.34, TriageMinimal: 0.22},
				InjuryNonBattle: {TriageImmediate: 0.15, TriageDelayed: 0.40, TriageMinimal: 0.45},
				InjuryDisease:   {TriageImmediate: 0.05, TriageDelayed: 0.30, TriageMinimal: 0.65},
			},
		},
		"naval_strike": {
			Type: "naval_strike", Shape: ShapeSurge,
			BaseIntensity:        1.8,
			IntensityMultipliers: defaultIntensityMultipliers(),
			SurgesPerDay:         2, SurgeHours: 2, SurgeIntensity: 4.5, QuietFloor: 0.05,
			MassCasualtyProb: 0.30,
			ClusterSizeMin:   5, ClusterSizeMax: 16, ClusterDurationMinutes: 12,
			InjuryModifiers: map[InjuryType]float64{InjuryBattle: 1.2, InjuryNonBattle: 0.7, InjuryDisease: 0.3},
			TriageWeights: map[InjuryType]map[TriageCategory]float64{
				InjuryBattle:    {TriageImmediate: 0.40, TriageDelayed: 0.35, TriageMinimal: 0.25},
				InjuryNonBattle: {TriageImmediate: 0.14, TriageDelayed: 0.42, TriageMinimal: 0.44},
				InjuryDisease:   {TriageImmediate: 0.05, TriageDelayed: 0.30, TriageMinimal: 0.65},
			},
		},
		"insurgency": {
			Type: "insurgency", Shape: ShapeSporadic,
			BaseIntensity:        0.7,
			IntensityMultipliers: defaultIntensityMultipliers(),
			DailyEventMin:        1, DailyEventMax: 8,
			NightBias:        0.40,
			MassCasualtyProb: 0.12,
			ClusterSizeMin:   2, ClusterSizeMax: 6, ClusterDurationMinutes: 30,
			InjuryModifiers: map[InjuryType]float64{InjuryBattle: 1.0, InjuryNonBattle: 0.8, InjuryDisease: 0.6},
			TriageWeights: map[InjuryType]map[TriageCategory]float64{
				InjuryBattle:    {TriageImmediate: 0.35, TriageDelayed: 0.38, TriageMinimal: 0.27},
				InjuryNonBattle: {TriageImmediate: 0.10, TriageDelayed: 0.40, TriageMinimal: 0.50},
				InjuryDisease:   {TriageImmediate: 0.05, TriageDelayed: 0.30, TriageMinimal: 0.65},
			},
		},
		"cbrn": {
			Type: "cbrn", Shape: ShapeContamination,
			BaseIntensity:        2.5,
			IntensityMultipliers: defaultIntensityMultipliers(),
			SpreadRate:           1.6,
			MassCasualtyProb:     0.50,
			ClusterSizeMin:       8, ClusterSizeMax: 30, ClusterDurationMinutes: 45,
			InjuryModifiers: map[InjuryType]float64{InjuryDisease: 5.0, InjuryNonBattle: 0.5, InjuryBattle: 0.1},
			TriageWeights: map[InjuryType]map[TriageCategory]float64{
				InjuryBattle:    {TriageImmediate: 0.30, TriageDelayed: 0.40, TriageMinimal: 0.30},
				InjuryNonBattle: {TriageImmediate: 0.15, TriageDelayed: 0.45, TriageMinimal: 0.40},
				InjuryDisease:   {TriageImmediate: 0.35, TriageDelayed: 0.40, TriageMinimal: 0.25},
			},
		},
		"patrol_operations": {
			Type: "patrol_operations", Shape: ShapeLowIntensity,
			BaseIntensity:        0.3,
			IntensityMultipliers: defaultIntensityMultipliers(),
			MassCasualtyProb:     0.04,
			ClusterSizeMin:       2, ClusterSizeMax: 4, ClusterDurationMinutes: 15,
			InjuryModifiers: map[InjuryType]float64{InjuryBattle: 0.5, InjuryNonBattle: 1.2, InjuryDisease: 1.5},
			TriageWeights: map[InjuryType]map[TriageCategory]float64{
				InjuryBattle:    {TriageImmediate: 0.25, TriageDelayed: 0.40, TriageMinimal: 0.35},
				InjuryNonBattle: {TriageImmediate: 0.08, TriageDelayed: 0.37, TriageMinimal: 0.55},
				InjuryDisease:   {TriageImmediate: 0.04, TriageDelayed: 0.26, TriageMinimal: 0.70},
			},
		},
	}
}
