package enrichment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"property-pipeline/internal/models"
)

func needsFixture() []models.Listing {
	return []models.Listing{
		{
			ID: 1, Address: "complete",
			WalkScore: models.Num(80), TransitScore: models.Num(60), BikeScore: models.Num(70),
			MLSNumber: models.Str("M1"), MLSType: models.Str("Detached"),
			TaxInformation: models.Str("2024: $5,100"), EstimatedMonthlyCashflow: models.Num(-120),
		},
		{
			ID: 2, Address: "no mls number",
			WalkScore: models.Num(55), TransitScore: models.Num(40), BikeScore: models.Num(35),
			MLSType: models.Str("Condo"), TaxInformation: models.Str("n/a"),
		},
		{
			ID: 3, Address: "nothing",
		},
		{
			ID: 4, Address: "scores only walk",
			WalkScore: models.Num(10), MLSNumber: models.Str("M4"), MLSType: models.Str("Attached"),
			EstimatedMonthlyCashflow: models.Num(0),
		},
	}
}

func TestAnalyze(t *testing.T) {
	needs := Analyze(needsFixture(), AnalyzeOptions{CashflowTracked: true})

	assert.Equal(t, []int64{3}, IDs(needs.WalkScoreMissing))
	assert.Equal(t, []int64{3, 4}, IDs(needs.TransitMissing))
	assert.Equal(t, []int64{3, 4}, IDs(needs.BikeMissing))
	assert.Equal(t, []int64{2, 3}, IDs(needs.MLSMissing))
	assert.Equal(t, []int64{3, 4}, IDs(needs.TaxMissing))
	assert.Equal(t, []int64{2, 3}, IDs(needs.CashflowMissing))
	assert.False(t, needs.CashflowUnavailable)
	assert.True(t, needs.AnyScoreMissing())
}

func TestAnalyzeMLSUnionCountsListingOnce(t *testing.T) {
	needs := Analyze([]models.Listing{
		{ID: 7, MLSType: models.Str("Condo")},
		{ID: 8},
	}, AnalyzeOptions{CashflowTracked: true})

	require.Len(t, needs.MLSMissing, 2)
	assert.Equal(t, []int64{7, 8}, IDs(needs.MLSMissing))
}

func TestAnalyzeWithoutCashflowColumn(t *testing.T) {
	listings := needsFixture()
	needs := Analyze(listings, AnalyzeOptions{CashflowTracked: false})

	assert.True(t, needs.CashflowUnavailable)
	assert.Empty(t, needs.CashflowMissing, "an absent column is neither all nor none missing")

	counts := needs.Counts(len(listings))
	assert.Equal(t, 4, counts.Total)
	assert.Equal(t, 0, counts.CashflowMissing)
	assert.True(t, counts.CashflowUnavailable)
	assert.Equal(t, 2, counts.MLSMissing)
}

func TestAnalyzeEmpty(t *testing.T) {
	needs := Analyze(nil, AnalyzeOptions{CashflowTracked: true})
	assert.False(t, needs.AnyScoreMissing())
	assert.Equal(t, NeedsCounts{}, needs.Counts(0))
}

func TestAnalyzeDoesNotDependOnEnrichment(t *testing.T) {
	raw := needsFixture()
	assert.Equal(t, Analyze(raw, AnalyzeOptions{CashflowTracked: true}).Counts(4),
		Analyze(Enrich(raw), AnalyzeOptions{CashflowTracked: true}).Counts(4))
}
