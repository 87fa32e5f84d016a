// Package demographics generates a patient's identity: name, gender,
// rank, and national ID (C3 in the generation pipeline).
package demographics

import (
	"fmt"
	"sort"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/banton/medical-patients-sub005/api"
	"github.com/banton/medical-patients-sub005/internal/refdata"
	"github.com/banton/medical-patients-sub005/internal/schedule"
)

// Generate builds one patient's Demographics for the given nationality.
// patientID seeds the national-ID sequence number; it is the schedule
// index, not a random draw, so IDs stay free of collisions within a job.
func Generate(nat refdata.Nationality, patientID int, rng *schedule.SeededRand) api.Demographics {
	isMale := rng.Float64() < nat.MaleRatio
	given := drawWeightedName(rng, nat.GivenNames)
	family := drawWeightedName(rng, nat.FamilyNames)

	gender := "female"
	if isMale {
		gender = "male"
	}

	rank := nat.Ranks[rng.IntN(len(nat.Ranks))]

	tag, err := language.Parse(nat.LanguageTag)
	if err != nil {
		tag = language.English
	}
	titleCaser := cases.Title(tag)
	given = titleCaser.String(given)
	family = titleCaser.String(family)

	nationalID := formatNationalID(nat.NationalIDFormat, patientID, rng)

	return api.Demographics{
		GivenName:  given,
		FamilyName: family,
		Gender:     gender,
		Rank:       rank,
		NationalID: nationalID,
	}
}

// drawWeightedName performs a weighted draw over a pre-ordered name pool.
// The pool order is fixed at literal-construction time (not a map), so no
// additional sort is needed to keep the draw reproducible under a seed.
func drawWeightedName(rng *schedule.SeededRand, pool []refdata.WeightedName) string {
	if len(pool) == 0 {
		return "Unknown"
	}

	var total float64
	for _, n := range pool {
		total += n.Weight
	}
	target := rng.Float64() * total
	var cumulative float64
	for _, n := range pool {
		cumulative += n.Weight
		if target < cumulative {
			return n.Name
		}
	}
	return pool[len(pool)-1].Name
}

// formatNationalID renders format (a printf-style template with two
// integer verbs: a cohort block derived from patientID, and a per-patient
// sequence number) into a deterministic, seed-reproducible identifier.
func formatNationalID(format string, patientID int, rng *schedule.SeededRand) string {
	block := patientID/1000 + 1
	sequence := rng.IntN(100)*1000 + patientID%1000
	return fmt.Sprintf(format, block, sequence)
}

// SortedNationalityCodes returns a job's configured nationality codes in a
// fixed lexical order, so per-front weighted draws are reproducible
// regardless of map iteration order.
func SortedNationalityCodes(dist map[string]float64) []string {
	codes := make([]string, 0, len(dist))
	for code := range dist {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
