// Package injury assigns injury type, triage category, and body region
// to each scheduled casualty (C4).
package injury

import (
	"sort"

	"github.com/banton/medical-patients-sub005/api"
	"github.com/banton/medical-patients-sub005/internal/refdata"
	"github.com/banton/medical-patients-sub005/internal/schedule"
)

// T4 collapses to T1 for timeline purposes but keeps its "expectant"
// nature tag (spec.md §4.4).
const (
	triageT4        = "T4"
	natureExpectant = "expectant"
	natureMinor     = "minor"
	natureStandard  = "standard"

	cbrnScenario = "cbrn"

	// minorT3Probability is the chance a T3 assignment also carries the
	// "minor" nature tag, which the flow simulator uses to elevate
	// Role-2 RTD probability (spec.md §4.5 "Special handling").
	minorT3Probability = 0.4
)

// environmentalWeightModifiers maps a recognized environmental-condition
// flag to per-injury-type weight multipliers. Unrecognized flags are
// ignored rather than rejected, since the job-request schema treats them
// as free-form labels.
var environmentalWeightModifiers = map[string]map[string]float64{
	"winter": {
		"burn-injury":       0.6,
		"blunt-trauma":      1.3,
		"inhalation-injury": 1.2,
	},
	"urban": {
		"gunshot-wound":  1.4,
		"shrapnel-wound": 1.2,
	},
	"extreme-heat": {
		"burn-injury":       1.5,
		"inhalation-injury": 1.3,
	},
}

// Assignment is the result of one injury draw.
type Assignment struct {
	InjuryType       string
	TriageCategory   string
	TriageNature     string
	BodyRegion       string
	CBRNContaminated bool
}

// Assign samples an injury for one scheduled entry. conditions are the
// job's environmental-condition flags; override, if non-empty, replaces
// the triage-category prior entirely (spec.md "injury-mix overrides
// default injury prior").
func Assign(provider refdata.Provider, scenario string, conditions []string, override map[string]float64, rng *schedule.SeededRand) Assignment {
	catalog := provider.InjuriesFor(scenario)
	injury := drawInjury(catalog, conditions, rng)

	triagePrior := injury.TriagePrior
	if len(override) > 0 {
		triagePrior = override
	}
	triage := drawTriageCategory(triagePrior, rng)

	bodyRegion := drawWeightedKey(injury.BodyRegionPrior, rng)

	nature := ""
	finalTriage := triage
	if triage == triageT4 {
		finalTriage = refdata.T1
		nature = natureExpectant
	} else if triage == refdata.T3 {
		if rng.Float64() < minorT3Probability {
			nature = natureMinor
		} else {
			nature = natureStandard
		}
	}

	return Assignment{
		InjuryType:       injury.InjuryType,
		TriageCategory:   finalTriage,
		TriageNature:     nature,
		BodyRegion:       bodyRegion,
		CBRNContaminated: scenario == cbrnScenario,
	}
}

func drawInjury(catalog []refdata.WeightedInjury, conditions []string, rng *schedule.SeededRand) refdata.WeightedInjury {
	if len(catalog) == 0 {
		return refdata.WeightedInjury{InjuryType: "unspecified-trauma", TriagePrior: map[string]float64{refdata.T1: 1}, BodyRegionPrior: map[string]float64{"extremity": 1}}
	}

	weights := make([]float64, len(catalog))
	var total float64
	for i, inj := range catalog {
		w := inj.Weight * environmentalMultiplier(inj.InjuryType, conditions)
		weights[i] = w
		total += w
	}
	if total <= 0 {
		return catalog[0]
	}

	target := rng.Float64() * total
	var cumulative float64
	for i, w := range weights {
		cumulative += w
		if target < cumulative {
			return catalog[i]
		}
	}
	return catalog[len(catalog)-1]
}

func environmentalMultiplier(injuryType string, conditions []string) float64 {
	multiplier := 1.0
	for _, cond := range conditions {
		if byType, ok := environmentalWeightModifiers[cond]; ok {
			if m, ok := byType[injuryType]; ok {
				multiplier *= m
			}
		}
	}
	return multiplier
}

// drawTriageCategory draws over a prior keyed by T1/T2/T3/T4, sorting
// keys first so the draw is reproducible regardless of map order.
func drawTriageCategory(prior map[string]float64, rng *schedule.SeededRand) string {
	key := drawWeightedKey(prior, rng)
	if key == "" {
		return refdata.T1
	}
	return key
}

func drawWeightedKey(prior map[string]float64, rng *schedule.SeededRand) string {
	keys := make([]string, 0, len(prior))
	for k := range prior {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	weights := make([]float64, len(keys))
	var total float64
	for i, k := range keys {
		weights[i] = prior[k]
		total += prior[k]
	}
	if total <= 0 || len(keys) == 0 {
		return ""
	}

	target := rng.Float64() * total
	var cumulative float64
	for i, w := range weights {
		cumulative += w
		if target < cumulative {
			return keys[i]
		}
	}
	return keys[len(keys)-1]
}
