// Package flow simulates a patient's movement through the tiered
// evacuation network, from point-of-injury arrival to a terminal
// outcome: killed-in-action, returned-to-duty, or remains-at-Role-4
// (C5, the hardest subsystem in the pipeline).
package flow

import (
	"math"
	"time"

	"github.com/banton/medical-patients-sub005/api"
	"github.com/banton/medical-patients-sub005/internal/injury"
	"github.com/banton/medical-patients-sub005/internal/refdata"
	"github.com/banton/medical-patients-sub005/internal/schedule"
	"github.com/banton/medical-patients-sub005/pkg/errors"
)

// decontaminationDwellHours is the fixed delay inserted between arrival
// and evacuation-start at POI and Role 1 for CBRN-contaminated patients
// (spec.md §4.5 "Special handling").
const decontaminationDwellHours = 0.5

// minorT3Role2RTDBoost is added to the Role-2 RTD probability when the
// patient's triage nature is "minor" (spec.md §4.5 "Special handling").
const minorT3Role2RTDBoost = 0.15

// Simulate builds the full movement timeline and terminal status for one
// patient, per spec.md §4.5 steps 1-6.
func Simulate(provider refdata.Provider, injuryTimestamp time.Time, triage string, nature string, cbrn bool, chain []string, rng *schedule.SeededRand) ([]api.TimelineEvent, string, string, error) {
	if len(chain) < 2 {
		return nil, "", "", errors.New(errors.CodeConfiguration, "facility chain must have at least POI and Role 1")
	}
	poi, role1 := chain[0], chain[1]

	var events []api.TimelineEvent
	h := 0.0

	events = append(events, arrivalEvent(poi, injuryTimestamp, h))

	preKIA, ok := provider.PreRole1KIA(triage)
	if !ok {
		return nil, "", "", errors.New(errors.CodeConfiguration, "missing pre-Role-1 KIA data for triage "+triage)
	}
	if rng.Float64() < preKIA.KIAProbability {
		timing := rng.Triangular(preKIA.KIATiming.Min, preKIA.KIATiming.Mode, preKIA.KIATiming.Max)
		h += clampNonNegative(timing)
		events = append(events, kiaEvent(poi, injuryTimestamp, h))
		return events, api.StatusKIA, poi, nil
	}

	if cbrn {
		h += decontaminationDwellHours
	}

	events = append(events, evacStartEvent(poi, injuryTimestamp, h))
	dwell, ok := provider.DwellParams(triage, poi)
	if !ok {
		return nil, "", "", errors.New(errors.CodeConfiguration, "missing POI dwell data for triage "+triage)
	}
	dwellDuration := clampNonNegative(rng.Triangular(dwell.Min, dwell.Mode, dwell.Max))
	h += dwellDuration
	events[len(events)-1].EvacuationDurationHrs = ptr(roundToTenth(dwellDuration))

	events = append(events, transitStartEvent(poi, role1, injuryTimestamp, h))
	transit, ok := provider.TransitParams(triage, poi, role1)
	if !ok {
		return nil, "", "", errors.New(errors.CodeConfiguration, "missing transit data for "+poi+"->"+role1)
	}
	transitDuration := clampNonNegative(rng.Triangular(transit.Min, transit.Mode, transit.Max))
	h += transitDuration
	events[len(events)-1].TransitDurationHrs = ptr(roundToTenth(transitDuration))

	current := role1
	for i := 1; i < len(chain); i++ {
		facility := chain[i]
		events = append(events, arrivalEvent(facility, injuryTimestamp, h))
		current = facility

		if cbrn && facility == refdata.Role1 {
			h += decontaminationDwellHours
		}

		outcome, ok := provider.Outcome(triage, facility)
		if !ok {
			return nil, "", "", errors.New(errors.CodeConfiguration, "missing outcome data for "+triage+" at "+facility)
		}

		rtdProbability := outcome.RTDProbability
		if triage == refdata.T3 && nature == "minor" && facility == refdata.Role2 {
			rtdProbability += minorT3Role2RTDBoost
		}

		roll := rng.Float64()
		if roll < rtdProbability {
			timing := rng.Triangular(outcome.RTDTiming.Min, outcome.RTDTiming.Mode, outcome.RTDTiming.Max)
			h += clampNonNegative(timing)
			events = append(events, rtdEvent(facility, injuryTimestamp, h))
			return events, api.StatusRTD, facility, nil
		}

		if roll < rtdProbability+outcome.KIAProbability {
			timing := rng.Triangular(outcome.KIATiming.Min, outcome.KIATiming.Mode, outcome.KIATiming.Max)
			h += clampNonNegative(timing)
			events = append(events, kiaEvent(facility, injuryTimestamp, h))
			return events, api.StatusKIA, facility, nil
		}

		if i == len(chain)-1 {
			events = append(events, remainsEvent(facility, injuryTimestamp, h))
			return events, api.StatusRemainsRole4, facility, nil
		}

		next := chain[i+1]
		events = append(events, evacStartEvent(facility, injuryTimestamp, h))
		dwell, ok := provider.DwellParams(triage, facility)
		if !ok {
			return nil, "", "", errors.New(errors.CodeConfiguration, "missing dwell data for "+triage+" at "+facility)
		}
		dwellDuration := clampNonNegative(rng.Triangular(dwell.Min, dwell.Mode, dwell.Max))
		h += dwellDuration
		events[len(events)-1].EvacuationDurationHrs = ptr(roundToTenth(dwellDuration))

		events = append(events, transitStartEvent(facility, next, injuryTimestamp, h))
		transit, ok := provider.TransitParams(triage, facility, next)
		if !ok {
			return nil, "", "", errors.New(errors.CodeConfiguration, "missing transit data for "+facility+"->"+next)
		}
		transitDuration := clampNonNegative(rng.Triangular(transit.Min, transit.Mode, transit.Max))
		h += transitDuration
		events[len(events)-1].TransitDurationHrs = ptr(roundToTenth(transitDuration))
	}

	// Unreachable when chain has at least POI+Role1 and the loop above
	// always returns at the final facility (i == len(chain)-1).
	return events, current, current, nil
}

func arrivalEvent(facility string, injuryTimestamp time.Time, h float64) api.TimelineEvent {
	return api.TimelineEvent{
		EventType:        api.EventArrival,
		FacilityName:     facility,
		Timestamp:        timestampAt(injuryTimestamp, h),
		HoursSinceInjury: roundToTenth(h),
	}
}

func evacStartEvent(facility string, injuryTimestamp time.Time, h float64) api.TimelineEvent {
	return api.TimelineEvent{
		EventType:        api.EventEvacuationStart,
		FacilityName:     facility,
		Timestamp:        timestampAt(injuryTimestamp, h),
		HoursSinceInjury: roundToTenth(h),
	}
}

func transitStartEvent(from, to string, injuryTimestamp time.Time, h float64) api.TimelineEvent {
	return api.TimelineEvent{
		EventType:        api.EventTransitStart,
		FromFacility:     from,
		ToFacility:       to,
		Timestamp:        timestampAt(injuryTimestamp, h),
		HoursSinceInjury: roundToTenth(h),
	}
}

func kiaEvent(facility string, injuryTimestamp time.Time, h float64) api.TimelineEvent {
	return api.TimelineEvent{
		EventType:        api.EventKIA,
		FacilityName:     facility,
		Timestamp:        timestampAt(injuryTimestamp, h),
		HoursSinceInjury: roundToTenth(h),
	}
}

func rtdEvent(facility string, injuryTimestamp time.Time, h float64) api.TimelineEvent {
	return api.TimelineEvent{
		EventType:        api.EventRTD,
		FacilityName:     facility,
		Timestamp:        timestampAt(injuryTimestamp, h),
		HoursSinceInjury: roundToTenth(h),
	}
}

func remainsEvent(facility string, injuryTimestamp time.Time, h float64) api.TimelineEvent {
	return api.TimelineEvent{
		EventType:        api.EventRemains,
		FacilityName:     facility,
		Timestamp:        timestampAt(injuryTimestamp, h),
		HoursSinceInjury: roundToTenth(h),
	}
}

// timestampAt computes a timeline event's wall-clock time from integer
// nanoseconds to avoid float drift across a long movement chain (spec.md
// §4.5 "Numeric semantics").
func timestampAt(injuryTimestamp time.Time, hoursSinceInjury float64) time.Time {
	nanos := int64(hoursSinceInjury * float64(time.Hour))
	return injuryTimestamp.Add(time.Duration(nanos)).Truncate(time.Second)
}

func roundToTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

func clampNonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

func ptr(v float64) *float64 {
	return &v
}

// Injury re-exported for callers that need the C4 Assignment type
// alongside the flow result without importing both packages directly.
type Injury = injury.Assignment
