package flow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/banton/medical-patients-sub005/api"
	"github.com/banton/medical-patients-sub005/internal/refdata"
	"github.com/banton/medical-patients-sub005/internal/schedule"
)

func defaultChain() []string {
	return []string{refdata.POI, refdata.Role1, refdata.Role2, refdata.Role3, refdata.Role4}
}

func TestSimulateTimelineIsMonotonicInHoursSinceInjury(t *testing.T) {
	provider := refdata.New()
	injuryTime := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)

	for seed := int64(1); seed < 40; seed++ {
		events, status, _, err := Simulate(provider, injuryTime, refdata.T2, "standard", false, defaultChain(), schedule.NewSeededRand(seed))
		require.NoError(t, err)
		require.NotEmpty(t, status)

		for i := 1; i < len(events); i++ {
			require.GreaterOrEqual(t, events[i].HoursSinceInjury, events[i-1].HoursSinceInjury)
		}
	}
}

func TestSimulateAlwaysEndsInTerminalStatus(t *testing.T) {
	provider := refdata.New()
	injuryTime := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)

	valid := map[string]bool{api.StatusKIA: true, api.StatusRTD: true, api.StatusRemainsRole4: true}
	for seed := int64(1); seed < 60; seed++ {
		_, status, facility, err := Simulate(provider, injuryTime, refdata.T1, "standard", false, defaultChain(), schedule.NewSeededRand(seed))
		require.NoError(t, err)
		require.True(t, valid[status])
		require.NotEmpty(t, facility)
	}
}

func TestSimulateLastEventMatchesTerminalStatus(t *testing.T) {
	provider := refdata.New()
	injuryTime := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)

	for seed := int64(1); seed < 60; seed++ {
		events, status, _, err := Simulate(provider, injuryTime, refdata.T3, "standard", false, defaultChain(), schedule.NewSeededRand(seed))
		require.NoError(t, err)
		last := events[len(events)-1]

		switch status {
		case api.StatusKIA:
			require.Equal(t, api.EventKIA, last.EventType)
		case api.StatusRTD:
			require.Equal(t, api.EventRTD, last.EventType)
		case api.StatusRemainsRole4:
			require.Equal(t, api.EventRemains, last.EventType)
		}
	}
}

func TestSimulateFirstEventIsArrivalAtPOI(t *testing.T) {
	provider := refdata.New()
	injuryTime := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)

	events, _, _, err := Simulate(provider, injuryTime, refdata.T2, "standard", false, defaultChain(), schedule.NewSeededRand(5))
	require.NoError(t, err)
	require.Equal(t, api.EventArrival, events[0].EventType)
	require.Equal(t, refdata.POI, events[0].FacilityName)
	require.Equal(t, 0.0, events[0].HoursSinceInjury)
}

func TestSimulateCBRNInsertsDecontaminationDwell(t *testing.T) {
	provider := refdata.New()
	injuryTime := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)

	withCBRN, _, _, err := Simulate(provider, injuryTime, refdata.T2, "standard", true, defaultChain(), schedule.NewSeededRand(21))
	require.NoError(t, err)
	without, _, _, err := Simulate(provider, injuryTime, refdata.T2, "standard", false, defaultChain(), schedule.NewSeededRand(21))
	require.NoError(t, err)

	// The CBRN-contaminated patient's POI evacuation-start happens no
	// earlier than the non-contaminated patient's, since the same draw
	// sequence has an added fixed dwell inserted before it.
	require.GreaterOrEqual(t, withCBRN[1].HoursSinceInjury, without[1].HoursSinceInjury)
}

func TestSimulateRejectsChainShorterThanTwoFacilities(t *testing.T) {
	provider := refdata.New()
	injuryTime := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)

	_, _, _, err := Simulate(provider, injuryTime, refdata.T1, "standard", false, []string{refdata.POI}, schedule.NewSeededRand(1))
	require.Error(t, err)
}

func TestSimulateTimestampsNeverPrecedeInjuryTimestamp(t *testing.T) {
	provider := refdata.New()
	injuryTime := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)

	for seed := int64(1); seed < 30; seed++ {
		events, _, _, err := Simulate(provider, injuryTime, refdata.T2, "standard", false, defaultChain(), schedule.NewSeededRand(seed))
		require.NoError(t, err)
		for _, e := range events {
			require.False(t, e.Timestamp.Before(injuryTime))
		}
	}
}
