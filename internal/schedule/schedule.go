// Package schedule implements the temporal casualty-arrival model (C2):
// it distributes a job's total patient count across an N-day campaign
// horizon using a warfare/intensity-shaped hourly curve, with
// mass-casualty clustering.
package schedule

import (
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/banton/medical-patients-sub005/api"
	"github.com/banton/medical-patients-sub005/pkg/errors"
)

const (
	hoursPerDay = 24

	// massCasualtyWindow bounds how tightly clustered a mass-casualty
	// event's instants are around its center.
	massCasualtyWindow = 5 * time.Minute
)

// baseHourCurve is a smooth, low-overnight/peak-afternoon relative-weight
// shape applied before intensity/tempo scaling (spec.md §4.2 step 1).
var baseHourCurve = [24]float64{
	0.20, 0.15, 0.15, 0.20, 0.30, 0.40, // 00-05
	0.60, 0.80, 0.90, 1.00, 1.00, 0.95, // 06-11
	1.00, 1.00, 0.95, 0.90, 0.85, 0.80, // 12-17
	0.70, 0.60, 0.50, 0.40, 0.30, 0.25, // 18-23
}

// massCasualtyBaseProbability is the per-hour chance of a mass-casualty
// event at medium intensity; it scales up with intensity level.
var massCasualtyBaseProbability = map[api.Intensity]float64{
	api.IntensityLow:     0.01,
	api.IntensityMedium:  0.03,
	api.IntensityHigh:    0.07,
	api.IntensityExtreme: 0.12,
}

// Build materializes a full Schedule for req. The scheduler is invoked
// exactly once per job (spec.md §9 "Chunking vs. temporal generation");
// callers must not call Build per-chunk.
func Build(req api.JobRequest, rng *SeededRand) (*api.Schedule, error) {
	if req.TotalPatients <= 0 {
		return nil, errors.New(errors.CodeScheduleBuild, "total-patients must be positive")
	}
	if req.DaysOfFighting <= 0 {
		return nil, errors.New(errors.CodeScheduleBuild, "days-of-fighting must be positive")
	}

	warfareKeys, warfareWeights, err := normalizedWeights(req.WarfareTypes)
	if err != nil {
		return nil, errors.Wrap(errors.CodeScheduleBuild, "warfare-type weights do not normalize", err)
	}

	frontKeys, frontWeights, err := frontWeights(req.Fronts)
	if err != nil {
		return nil, errors.Wrap(errors.CodeScheduleBuild, "front casualty-share weights do not normalize", err)
	}

	totalHours := req.DaysOfFighting * hoursPerDay
	hourWeights := buildHourWeights(req, totalHours)

	hourCounts, err := distributeCounts(hourWeights, req.TotalPatients)
	if err != nil {
		return nil, err
	}

	entries := make([]api.ScheduleEntry, 0, req.TotalPatients)
	for hour := 0; hour < totalHours; hour++ {
		count := hourCounts[hour]
		if count == 0 {
			continue
		}

		hourStart := req.BaseDate.Add(time.Duration(hour) * time.Hour)
		scenario := warfareKeyOrDefault(rng, warfareKeys, warfareWeights)

		isMassCasualty := count > 1 && rng.Float64() < massCasualtyProbability(req.Intensity)
		var clusterID string
		var clusterCenter time.Time
		if isMassCasualty {
			clusterID = clusterIDFor(hour)
			clusterCenter = hourStart.Add(time.Duration(rng.Float64() * float64(time.Hour)))
		}

		for i := 0; i < count; i++ {
			var instant time.Time
			if isMassCasualty {
				offset := time.Duration((rng.Float64()*2 - 1) * float64(massCasualtyWindow))
				instant = clusterCenter.Add(offset)
			} else {
				instant = hourStart.Add(time.Duration(rng.Float64() * float64(time.Hour)))
			}

			front := warfareKeyOrDefault(rng, frontKeys, frontWeights)
			entries = append(entries, api.ScheduleEntry{
				InjuryInstant:   instant,
				FrontID:         front,
				WarfareScenario: scenario,
				IsMassCasualty:  isMassCasualty,
				ClusterID:       clusterID,
			})
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].InjuryInstant.Before(entries[j].InjuryInstant)
	})

	if len(entries) != req.TotalPatients {
		return nil, errors.New(errors.CodeScheduleBuild, "materialized schedule length does not match requested total")
	}

	return &api.Schedule{Entries: entries}, nil
}

func clusterIDFor(hour int) string {
	return "mc-" + strconv.Itoa(hour)
}

func massCasualtyProbability(intensity api.Intensity) float64 {
	if p, ok := massCasualtyBaseProbability[intensity]; ok {
		return p
	}
	return massCasualtyBaseProbability[api.IntensityMedium]
}

// warfareKeyOrDefault draws a weighted key, falling back to the first
// (lexically smallest) key if the draw returns empty.
func warfareKeyOrDefault(rng *SeededRand, keys []string, weights []float64) string {
	if len(keys) == 0 {
		return ""
	}
	if k := rng.WeightedKey(keys, weights); k != "" {
		return k
	}
	return keys[0]
}

func normalizedWeights(m map[string]float64) ([]string, []float64, error) {
	if len(m) == 0 {
		return nil, nil, errors.New(errors.CodeScheduleBuild, "no weights supplied")
	}
	keys := make([]string, 0, len(m))
	var total float64
	for k, w := range m {
		if w < 0 {
			return nil, nil, errors.New(errors.CodeScheduleBuild, "negative weight for key "+k)
		}
		keys = append(keys, k)
		total += w
	}
	if total <= 0 {
		return nil, nil, errors.New(errors.CodeScheduleBuild, "weights sum to zero")
	}
	sort.Strings(keys)
	weights := make([]float64, len(keys))
	for i, k := range keys {
		weights[i] = m[k]
	}
	return keys, weights, nil
}

func frontWeights(fronts []api.FrontConfig) ([]string, []float64, error) {
	if len(fronts) == 0 {
		return nil, nil, errors.New(errors.CodeScheduleBuild, "no fronts configured")
	}
	m := make(map[string]float64, len(fronts))
	for _, f := range fronts {
		m[f.FrontID] = f.CasualtyShare
	}
	return normalizedWeights(m)
}

// buildHourWeights computes the full per-hour weight curve: baseline shape
// scaled by tempo-over-days, then the hour-00-05 and hour-00 reductions
// (spec.md §4.2 steps 1-2).
func buildHourWeights(req api.JobRequest, totalHours int) []float64 {
	weights := make([]float64, totalHours)
	for hour := 0; hour < totalHours; hour++ {
		day := hour / hoursPerDay
		hourOfDay := hour % hoursPerDay

		w := baseHourCurve[hourOfDay] * tempoFactor(req.Tempo, day, req.DaysOfFighting)

		if hourOfDay >= 0 && hourOfDay <= 5 {
			w *= 0.7 // hour 00-05 band reduced by >= 30%
		}
		if hourOfDay == 0 {
			w *= 0.5 // hour 0 receives an additional reduction
		}

		weights[hour] = w
	}
	return weights
}

func tempoFactor(tempo api.Tempo, day, totalDays int) float64 {
	switch tempo {
	case api.TempoSurge:
		mid := float64(totalDays-1) / 2
		sigma := float64(totalDays) / 4
		if sigma <= 0 {
			sigma = 1
		}
		delta := float64(day) - mid
		return 0.4 + 1.2*math.Exp(-(delta*delta)/(2*sigma*sigma))
	case api.TempoDecisive:
		if day < totalDays/2 {
			return 0.6
		}
		return 1.4
	default: // sustained
		return 1.0
	}
}

// distributeCounts rounds proportional hour weights to integer patient
// counts summing exactly to total, applying the hour-0 over-concentration
// correction and a bounded redistribution loop with a termination guard
// (spec.md §4.2 steps 4 and "Termination guard").
func distributeCounts(weights []float64, total int) ([]int, error) {
	var sum float64
	for _, w := range weights {
		sum += w
	}
	if sum <= 0 {
		return nil, errors.New(errors.CodeScheduleBuild, "hour weights sum to zero")
	}

	counts := make([]int, len(weights))
	var assigned int
	for i, w := range weights {
		c := int(w / sum * float64(total))
		counts[i] = c
		assigned += c
	}

	delta := total - assigned
	redistributeByWeight(counts, weights, delta)

	enforceHourZeroCap(counts, total)

	// final reconciliation pass: any remaining rounding drift is spread one
	// unit at a time over the hours in descending weight order.
	fixupTotal(counts, weights, total)

	return counts, nil
}

// redistributeByWeight adds (or removes) delta units, one at a time, to
// the hours with the largest weight, tracking progress so a degenerate
// all-zero-weight input cannot spin forever.
func redistributeByWeight(counts []int, weights []float64, delta int) {
	if delta == 0 {
		return
	}
	step := 1
	if delta < 0 {
		step = -1
		delta = -delta
	}

	order := sortedIndicesByWeightDesc(weights)
	progressed := true
	for delta > 0 && progressed {
		progressed = false
		for _, idx := range order {
			if delta == 0 {
				break
			}
			if step < 0 && counts[idx] == 0 {
				continue
			}
			counts[idx] += step
			delta--
			progressed = true
		}
	}
}

func enforceHourZeroCap(counts []int, total int) {
	if len(counts) == 0 || total <= 0 {
		return
	}
	cap5pct := int(0.05 * float64(total))
	if counts[0] <= cap5pct {
		return
	}

	excess := counts[0] - cap5pct
	counts[0] = cap5pct

	// move excess to daytime hours 06-18 across all days, one unit per
	// hour round-robin in index order (deterministic, no extra randomness
	// needed here).
	daytimeIdx := daytimeIndices(counts)
	if len(daytimeIdx) == 0 {
		counts[0] += excess // nowhere to put it; restore
		return
	}
	i := 0
	for excess > 0 {
		idx := daytimeIdx[i%len(daytimeIdx)]
		counts[idx]++
		excess--
		i++
	}
}

func daytimeIndices(counts []int) []int {
	var idx []int
	for i := range counts {
		hourOfDay := i % hoursPerDay
		if hourOfDay >= 6 && hourOfDay <= 18 {
			idx = append(idx, i)
		}
	}
	return idx
}

func fixupTotal(counts []int, weights []float64, total int) {
	var sum int
	for _, c := range counts {
		sum += c
	}
	if sum == total {
		return
	}
	redistributeByWeight(counts, weights, total-sum)
}

func sortedIndicesByWeightDesc(weights []float64) []int {
	idx := make([]int, len(weights))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return weights[idx[a]] > weights[idx[b]]
	})
	return idx
}
