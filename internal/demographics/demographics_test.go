package demographics

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/banton/medical-patients-sub005/internal/refdata"
	"github.com/banton/medical-patients-sub005/internal/schedule"
)

func usaNationality(t *testing.T) refdata.Nationality {
	t.Helper()
	provider := refdata.New()
	n, ok := provider.NationalityByCode("USA")
	require.True(t, ok)
	return n
}

func TestGeneratePopulatesAllFields(t *testing.T) {
	nat := usaNationality(t)
	rng := schedule.NewSeededRand(7)

	d := Generate(nat, 0, rng)
	require.NotEmpty(t, d.GivenName)
	require.NotEmpty(t, d.FamilyName)
	require.Contains(t, []string{"male", "female"}, d.Gender)
	require.NotEmpty(t, d.Rank)
	require.NotEmpty(t, d.NationalID)
}

func TestGenerateIsDeterministicForSameSeed(t *testing.T) {
	nat := usaNationality(t)

	a := Generate(nat, 3, schedule.NewSeededRand(99))
	b := Generate(nat, 3, schedule.NewSeededRand(99))

	require.Equal(t, a, b)
}

func TestGenerateProducesBothGendersOverManyDraws(t *testing.T) {
	nat := usaNationality(t)
	rng := schedule.NewSeededRand(1234)

	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		d := Generate(nat, i, rng)
		seen[d.Gender] = true
	}
	require.True(t, seen["male"])
	require.True(t, seen["female"])
}

func TestGenerateRankComesFromNationalityList(t *testing.T) {
	nat := usaNationality(t)
	rng := schedule.NewSeededRand(5)

	valid := map[string]bool{}
	for _, r := range nat.Ranks {
		valid[r] = true
	}

	for i := 0; i < 50; i++ {
		d := Generate(nat, i, rng)
		require.True(t, valid[d.Rank])
	}
}

func TestSortedNationalityCodesIsLexical(t *testing.T) {
	codes := SortedNationalityCodes(map[string]float64{"UKR": 0.5, "USA": 0.3, "GBR": 0.2})
	require.Equal(t, []string{"GBR", "UKR", "USA"}, codes)
}
