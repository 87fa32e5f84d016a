package refdata

// buildNationalities returns the embedded nationality pools. Name lists
// are intentionally small and illustrative — this is training data, not
// a demographic census (spec.md Non-goals: medical/statistical accuracy).
func buildNationalities() map[string]Nationality {
	nations := []Nationality{
		{
			Code:        "USA",
			LanguageTag: "en",
			GivenNames: []WeightedName{
				{Name: "james", Weight: 3}, {Name: "michael", Weight: 3},
				{Name: "robert", Weight: 2}, {Name: "maria", Weight: 2},
				{Name: "jennifer", Weight: 2}, {Name: "david", Weight: 2},
			},
			FamilyNames: []WeightedName{
				{Name: "smith", Weight: 3}, {Name: "johnson", Weight: 2},
				{Name: "williams", Weight: 2}, {Name: "brown", Weight: 2},
				{Name: "garcia", Weight: 2}, {Name: "martinez", Weight: 2},
			},
			MaleRatio:        0.85,
			Ranks:            []string{"Private", "Corporal", "Sergeant", "Lieutenant", "Captain"},
			NationalIDFormat: "USA-%04d-%05d",
		},
		{
			Code:        "UKR",
			LanguageTag: "uk",
			GivenNames: []WeightedName{
				{Name: "oleksandr", Weight: 3}, {Name: "andriy", Weight: 2},
				{Name: "olena", Weight: 2}, {Name: "iryna", Weight: 2},
				{Name: "dmytro", Weight: 2}, {Name: "taras", Weight: 2},
			},
			FamilyNames: []WeightedName{
				{Name: "shevchenko", Weight: 3}, {Name: "bondarenko", Weight: 2},
				{Name: "kovalenko", Weight: 2}, {Name: "tkachenko", Weight: 2},
				{Name: "kravchuk", Weight: 2},
			},
			MaleRatio:        0.88,
			Ranks:            []string{"Soldier", "Senior Soldier", "Junior Sergeant", "Sergeant", "Lieutenant"},
			NationalIDFormat: "UKR-%04d-%05d",
		},
		{
			Code:        "POL",
			LanguageTag: "pl",
			GivenNames: []WeightedName{
				{Name: "jakub", Weight: 3}, {Name: "szymon", Weight: 2},
				{Name: "anna", Weight: 2}, {Name: "katarzyna", Weight: 2},
				{Name: "piotr", Weight: 2},
			},
			FamilyNames: []WeightedName{
				{Name: "nowak", Weight: 3}, {Name: "kowalski", Weight: 2},
				{Name: "wisniewski", Weight: 2}, {Name: "wojcik", Weight: 2},
			},
			MaleRatio:        0.82,
			Ranks:            []string{"Szeregowy", "Starszy Szeregowy", "Kapral", "Plutonowy", "Sierzant"},
			NationalIDFormat: "POL-%04d-%05d",
		},
		{
			Code:        "GBR",
			LanguageTag: "en",
			GivenNames: []WeightedName{
				{Name: "oliver", Weight: 3}, {Name: "harry", Weight: 2},
				{Name: "amelia", Weight: 2}, {Name: "george", Weight: 2},
				{Name: "charlotte", Weight: 2},
			},
			FamilyNames: []WeightedName{
				{Name: "smith", Weight: 3}, {Name: "jones", Weight: 2},
				{Name: "taylor", Weight: 2}, {Name: "brown", Weight: 2},
			},
			MaleRatio:        0.83,
			Ranks:            []string{"Private", "Lance Corporal", "Corporal", "Sergeant", "Lieutenant"},
			NationalIDFormat: "GBR-%04d-%05d",
		},
	}

	out := make(map[string]Nationality, len(nations))
	for _, n := range nations {
		var gw, fw []float64
		for _, g := range n.GivenNames {
			gw = append(gw, g.Weight)
		}
		for _, f := range n.FamilyNames {
			fw = append(fw, f.Weight)
		}
		mustNormalize("nationality "+n.Code+" given names", gw)
		mustNormalize("nationality "+n.Code+" family names", fw)
		out[n.Code] = n
	}
	return out
}

// buildDwellTable returns per-(triage, facility) dwell-time distributions,
// stored under evacKey{Triage, From: facility, To: facility} as a
// same-facility sentinel key.
func buildDwellTable() map[evacKey]TriangularParams {
	table := map[evacKey]TriangularParams{}
	facilities := []string{POI, Role1, Role2, Role3}
	base := map[string]map[string]TriangularParams{
		POI:   {T1: {0.1, 0.3, 1.0}, T2: {0.2, 0.5, 1.5}, T3: {0.3, 0.75, 2.0}},
		Role1: {T1: {0.5, 1.5, 3.0}, T2: {1.0, 2.5, 5.0}, T3: {1.5, 3.5, 7.0}},
		Role2: {T1: {1.0, 4.0, 10.0}, T2: {2.0, 6.0, 14.0}, T3: {3.0, 8.0, 18.0}},
		Role3: {T1: {2.0, 8.0, 24.0}, T2: {4.0, 12.0, 36.0}, T3: {6.0, 16.0, 48.0}},
	}
	for _, facility := range facilities {
		for _, triage := range []string{T1, T2, T3} {
			table[evacKey{Triage: triage, From: facility, To: facility}] = base[facility][triage]
		}
	}
	return table
}

// buildTransitTable returns per-(triage, from, to) transit-time distributions.
func buildTransitTable() map[evacKey]TriangularParams {
	type leg struct{ from, to string }
	legs := []leg{
		{POI, Role1}, {Role1, Role2}, {Role2, Role3}, {Role3, Role4},
	}
	base := map[leg]map[string]TriangularParams{
		{POI, Role1}:   {T1: {0.2, 0.5, 1.5}, T2: {0.3, 0.75, 2.0}, T3: {0.5, 1.0, 3.0}},
		{Role1, Role2}: {T1: {0.5, 1.5, 4.0}, T2: {1.0, 2.5, 6.0}, T3: {1.5, 3.5, 8.0}},
		{Role2, Role3}: {T1: {1.0, 3.0, 8.0}, T2: {2.0, 5.0, 12.0}, T3: {3.0, 6.0, 14.0}},
		{Role3, Role4}: {T1: {2.0, 6.0, 16.0}, T2: {3.0, 8.0, 20.0}, T3: {4.0, 10.0, 24.0}},
	}
	table := map[evacKey]TriangularParams{}
	for _, l := range legs {
		for _, triage := range []string{T1, T2, T3} {
			table[evacKey{Triage: triage, From: l.from, To: l.to}] = base[l][triage]
		}
	}
	return table
}

// buildOutcomeTable returns per-(triage, facility) KIA/RTD probabilities
// and timing, for facilities Role1 through Role4 (the non-POI decision
// points in spec.md §4.5 step 5).
func buildOutcomeTable() map[outcomeKey]OutcomeProbabilities {
	table := map[outcomeKey]OutcomeProbabilities{}

	facilityOutcomes := map[string]map[string]OutcomeProbabilities{
		Role1: {
			T1: {KIAProbability: 0.12, RTDProbability: 0.03, KIATiming: TriangularParams{0.1, 0.8, 2.5}, RTDTiming: TriangularParams{0.2, 1.0, 2.5}},
			T2: {KIAProbability: 0.04, RTDProbability: 0.10, KIATiming: TriangularParams{0.2, 1.5, 4.0}, RTDTiming: TriangularParams{0.3, 1.5, 4.0}},
			T3: {KIAProbability: 0.01, RTDProbability: 0.25, KIATiming: TriangularParams{0.3, 2.0, 5.0}, RTDTiming: TriangularParams{0.3, 2.0, 6.0}},
		},
		Role2: {
			T1: {KIAProbability: 0.08, RTDProbability: 0.08, KIATiming: TriangularParams{0.5, 2.0, 6.0}, RTDTiming: TriangularParams{1.0, 3.0, 8.0}},
			T2: {KIAProbability: 0.02, RTDProbability: 0.22, KIATiming: TriangularParams{0.5, 3.0, 8.0}, RTDTiming: TriangularParams{1.0, 4.0, 10.0}},
			T3: {KIAProbability: 0.005, RTDProbability: 0.45, KIATiming: TriangularParams{1.0, 4.0, 10.0}, RTDTiming: TriangularParams{1.0, 4.0, 12.0}},
		},
		Role3: {
			T1: {KIAProbability: 0.05, RTDProbability: 0.18, KIATiming: TriangularParams{1.0, 5.0, 14.0}, RTDTiming: TriangularParams{2.0, 8.0, 20.0}},
			T2: {KIAProbability: 0.01, RTDProbability: 0.40, KIATiming: TriangularParams{1.0, 6.0, 16.0}, RTDTiming: TriangularParams{2.0, 10.0, 24.0}},
			T3: {KIAProbability: 0.002, RTDProbability: 0.60, KIATiming: TriangularParams{2.0, 8.0, 20.0}, RTDTiming: TriangularParams{2.0, 10.0, 26.0}},
		},
		Role4: {
			T1: {KIAProbability: 0.03, RTDProbability: 0.35, KIATiming: TriangularParams{2.0, 10.0, 30.0}, RTDTiming: TriangularParams{4.0, 20.0, 60.0}},
			T2: {KIAProbability: 0.005, RTDProbability: 0.55, KIATiming: TriangularParams{2.0, 12.0, 36.0}, RTDTiming: TriangularParams{4.0, 24.0, 72.0}},
			T3: {KIAProbability: 0.001, RTDProbability: 0.70, KIATiming: TriangularParams{3.0, 14.0, 40.0}, RTDTiming: TriangularParams{4.0, 24.0, 80.0}},
		},
	}

	for facility, byTriage := range facilityOutcomes {
		for triage, probs := range byTriage {
			table[outcomeKey{Triage: triage, Facility: facility}] = probs
		}
	}
	return table
}

// buildPreRole1KIATable returns the per-triage probability of dying at
// POI before reaching Role 1 (spec.md §4.5 step 2), higher for T1.
func buildPreRole1KIATable() map[string]OutcomeProbabilities {
	return map[string]OutcomeProbabilities{
		T1: {KIAProbability: 0.20, KIATiming: TriangularParams{0.05, 0.3, 1.0}},
		T2: {KIAProbability: 0.05, KIATiming: TriangularParams{0.1, 0.5, 1.5}},
		T3: {KIAProbability: 0.01, KIATiming: TriangularParams{0.1, 0.5, 2.0}},
	}
}

// buildInjuryCatalog returns the scenario-keyed weighted injury lists.
func buildInjuryCatalog() map[string][]WeightedInjury {
	// Approximate marginals from spec.md §4.4: T1≈36%, T2≈29%, T3≈31%, T4≈4%.
	defaultTriagePrior := map[string]float64{"T1": 0.36, "T2": 0.29, "T3": 0.31, "T4": 0.04}
	defaultBodyRegionPrior := map[string]float64{"extremity": 0.60, "junctional": 0.15, "central": 0.25}

	penetratingTriagePrior := map[string]float64{"T1": 0.45, "T2": 0.28, "T3": 0.22, "T4": 0.05}
	blastTriagePrior := map[string]float64{"T1": 0.50, "T2": 0.25, "T3": 0.20, "T4": 0.05}
	burnTriagePrior := map[string]float64{"T1": 0.40, "T2": 0.30, "T3": 0.25, "T4": 0.05}

	catalog := map[string][]WeightedInjury{
		"conventional": {
			{InjuryType: "gunshot-wound", Weight: 4, TriagePrior: penetratingTriagePrior, BodyRegionPrior: defaultBodyRegionPrior},
			{InjuryType: "shrapnel-wound", Weight: 3, TriagePrior: defaultTriagePrior, BodyRegionPrior: defaultBodyRegionPrior},
			{InjuryType: "blunt-trauma", Weight: 2, TriagePrior: defaultTriagePrior, BodyRegionPrior: defaultBodyRegionPrior},
			{InjuryType: "laceration", Weight: 1, TriagePrior: map[string]float64{"T1": 0.1, "T2": 0.3, "T3": 0.55, "T4": 0.05}, BodyRegionPrior: defaultBodyRegionPrior},
		},
		"artillery": {
			{InjuryType: "blast-injury", Weight: 5, TriagePrior: blastTriagePrior, BodyRegionPrior: map[string]float64{"extremity": 0.45, "junctional": 0.25, "central": 0.30}},
			{InjuryType: "shrapnel-wound", Weight: 4, TriagePrior: blastTriagePrior, BodyRegionPrior: defaultBodyRegionPrior},
			{InjuryType: "traumatic-amputation", Weight: 1, TriagePrior: map[string]float64{"T1": 0.70, "T2": 0.20, "T3": 0.05, "T4": 0.05}, BodyRegionPrior: map[string]float64{"extremity": 0.90, "junctional": 0.05, "central": 0.05}},
		},
		"drone": {
			{InjuryType: "shrapnel-wound", Weight: 4, TriagePrior: penetratingTriagePrior, BodyRegionPrior: defaultBodyRegionPrior},
			{InjuryType: "blast-injury", Weight: 3, TriagePrior: blastTriagePrior, BodyRegionPrior: defaultBodyRegionPrior},
			{InjuryType: "gunshot-wound", Weight: 1, TriagePrior: penetratingTriagePrior, BodyRegionPrior: defaultBodyRegionPrior},
		},
		"cbrn": {
			{InjuryType: "chemical-exposure", Weight: 3, TriagePrior: map[string]float64{"T1": 0.40, "T2": 0.35, "T3": 0.20, "T4": 0.05}, BodyRegionPrior: map[string]float64{"extremity": 0.20, "junctional": 0.10, "central": 0.70}},
			{InjuryType: "inhalation-injury", Weight: 2, TriagePrior: burnTriagePrior, BodyRegionPrior: map[string]float64{"extremity": 0.05, "junctional": 0.05, "central": 0.90}},
			{InjuryType: "radiological-exposure", Weight: 1, TriagePrior: map[string]float64{"T1": 0.30, "T2": 0.30, "T3": 0.35, "T4": 0.05}, BodyRegionPrior: defaultBodyRegionPrior},
		},
		"mixed": {
			{InjuryType: "gunshot-wound", Weight: 2, TriagePrior: penetratingTriagePrior, BodyRegionPrior: defaultBodyRegionPrior},
			{InjuryType: "blast-injury", Weight: 2, TriagePrior: blastTriagePrior, BodyRegionPrior: defaultBodyRegionPrior},
			{InjuryType: "burn-injury", Weight: 1, TriagePrior: burnTriagePrior, BodyRegionPrior: map[string]float64{"extremity": 0.30, "junctional": 0.10, "central": 0.60}},
			{InjuryType: "blunt-trauma", Weight: 1, TriagePrior: defaultTriagePrior, BodyRegionPrior: defaultBodyRegionPrior},
		},
	}

	for scenario, injuries := range catalog {
		var weights []float64
		for _, inj := range injuries {
			weights = append(weights, inj.Weight)
		}
		mustNormalize("injury catalog "+scenario, weights)
	}
	return catalog
}
