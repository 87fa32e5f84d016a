// Package refdata provides the static reference data the generation
// pipeline is built on: nationalities and name pools, evacuation timing
// tables, outcome probability tables, the injury catalog, and facility
// chains. Everything is loaded once from embedded Go literals at process
// start; there is no filesystem or network side channel (spec §9 "Global
// mutable state").
package refdata

import "fmt"

// Facility names, in their default evacuation order.
const (
	POI   = "POI"
	Role1 = "Role1"
	Role2 = "Role2"
	Role3 = "Role3"
	Role4 = "Role4"
)

// Triage categories.
const (
	T1 = "T1"
	T2 = "T2"
	T3 = "T3"
)

// WeightedName is a name with a relative sampling weight.
type WeightedName struct {
	Name   string
	Weight float64
}

// Nationality describes one nation's demographic pools.
type Nationality struct {
	Code             string
	LanguageTag      string
	GivenNames       []WeightedName
	FamilyNames      []WeightedName
	MaleRatio        float64
	Ranks            []string
	NationalIDFormat string
}

// TriangularParams are the min/mode/max hours of a triangular distribution.
type TriangularParams struct {
	Min  float64
	Mode float64
	Max  float64
}

// evacKey keys the dwell/transit timing table.
type evacKey struct {
	Triage string
	From   string
	To     string
}

// outcomeKey keys the per-facility outcome probability table.
type outcomeKey struct {
	Triage   string
	Facility string
}

// OutcomeProbabilities holds a facility's KIA/RTD chances and timing for one triage category.
type OutcomeProbabilities struct {
	KIAProbability float64
	RTDProbability float64
	KIATiming      TriangularParams
	RTDTiming      TriangularParams
}

// WeightedInjury is one entry in a scenario's injury catalog.
type WeightedInjury struct {
	InjuryType      string
	Weight          float64
	TriagePrior     map[string]float64
	BodyRegionPrior map[string]float64
}

// Provider is the read-only interface every pipeline stage consumes.
type Provider interface {
	Nationalities() []Nationality
	NationalityByCode(code string) (Nationality, bool)
	DwellParams(triage, facility string) (TriangularParams, bool)
	TransitParams(triage, from, to string) (TriangularParams, bool)
	Outcome(triage, facility string) (OutcomeProbabilities, bool)
	PreRole1KIA(triage string) (OutcomeProbabilities, bool)
	InjuriesFor(scenario string) []WeightedInjury
	ChainFor(frontID string) []string
}

// StaticProvider implements Provider from literals built at construction.
type StaticProvider struct {
	nationalities map[string]Nationality
	nationalOrder []string

	dwell        map[evacKey]TriangularParams
	transit      map[evacKey]TriangularParams
	outcomes     map[outcomeKey]OutcomeProbabilities
	preRole1KIA  map[string]OutcomeProbabilities
	injuries     map[string][]WeightedInjury
	defaultChain []string
}

// New builds the static provider. It panics if the embedded literals fail
// their own consistency checks — a load-time failure here is fatal to the
// process, per spec.md §4.1.
func New() *StaticProvider {
	p := &StaticProvider{
		nationalities: buildNationalities(),
		dwell:         buildDwellTable(),
		transit:       buildTransitTable(),
		outcomes:      buildOutcomeTable(),
		preRole1KIA:   buildPreRole1KIATable(),
		injuries:      buildInjuryCatalog(),
		defaultChain:  []string{POI, Role1, Role2, Role3, Role4},
	}
	for code := range p.nationalities {
		p.nationalOrder = append(p.nationalOrder, code)
	}
	return p
}

func (p *StaticProvider) Nationalities() []Nationality {
	out := make([]Nationality, 0, len(p.nationalities))
	for _, code := range p.nationalOrder {
		out = append(out, p.nationalities[code])
	}
	return out
}

func (p *StaticProvider) NationalityByCode(code string) (Nationality, bool) {
	n, ok := p.nationalities[code]
	return n, ok
}

func (p *StaticProvider) DwellParams(triage, facility string) (TriangularParams, bool) {
	v, ok := p.dwell[evacKey{Triage: triage, From: facility, To: facility}]
	return v, ok
}

func (p *StaticProvider) TransitParams(triage, from, to string) (TriangularParams, bool) {
	v, ok := p.transit[evacKey{Triage: triage, From: from, To: to}]
	return v, ok
}

func (p *StaticProvider) Outcome(triage, facility string) (OutcomeProbabilities, bool) {
	v, ok := p.outcomes[outcomeKey{Triage: triage, Facility: facility}]
	return v, ok
}

func (p *StaticProvider) PreRole1KIA(triage string) (OutcomeProbabilities, bool) {
	v, ok := p.preRole1KIA[triage]
	return v, ok
}

func (p *StaticProvider) InjuriesFor(scenario string) []WeightedInjury {
	if list, ok := p.injuries[scenario]; ok {
		return list
	}
	return p.injuries["conventional"]
}

// ChainFor returns the default facility chain; frontID is accepted for
// interface symmetry with per-front overrides, which callers resolve
// themselves from the job's FrontConfig before falling back here.
func (p *StaticProvider) ChainFor(frontID string) []string {
	return p.defaultChain
}

func mustNormalize(name string, weights []float64) {
	var total float64
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		panic(fmt.Sprintf("refdata: %s has non-positive total weight", name))
	}
}
