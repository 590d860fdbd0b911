package enrichment

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"property-pipeline/internal/models"
)

func sampleListings() []models.Listing {
	return []models.Listing{
		{ID: 1, Address: "1 Main St", Price: models.Num(500000), Sqft: models.Num(1000)},
		{ID: 2, Address: "2 Oak Ave", Price: models.Num(320000), Sqft: models.Num(1600), EstimatedRent: models.Num(2900)},
		{ID: 3, Address: "3 Pine Rd", Sqft: models.Num(1200)},
		{ID: 4, Address: "4 Elm Ct", Price: models.Num(0), Sqft: models.Num(900)},
		{ID: 5, Address: "5 Birch Ln", Price: models.Num(2750000), WalkScore: models.Num(93)},
	}
}

func TestEnrichConcreteScenario(t *testing.T) {
	out := Enrich([]models.Listing{{Price: models.Num(500000), Sqft: models.Num(1000)}})
	require.Len(t, out, 1)
	l := out[0]

	assert.Equal(t, models.Num(500.0), l.PricePerSqft)
	assert.Equal(t, models.Num(4000.0), l.EstimatedRent)
	assert.InDelta(t, 0.096, l.RentYield.Float64, 1e-12)
	assert.Equal(t, YieldGood, l.YieldCategory)
	assert.Equal(t, "$250K-$500K", l.PriceCategory)
	assert.Equal(t, CategoryUnknown, l.WalkScoreCategory)
}

func TestEnrichMissingPriceLeavesListingAlone(t *testing.T) {
	in := []models.Listing{{ID: 9, Address: "9 Cedar", Sqft: models.Num(1200)}}
	out := Enrich(in)
	require.Len(t, out, 1)

	assert.False(t, out[0].PricePerSqft.Valid)
	assert.False(t, out[0].EstimatedRent.Valid)
	assert.False(t, out[0].RentYield.Valid)
	assert.Equal(t, int64(9), out[0].ID)
	assert.Equal(t, models.Num(1200), out[0].Sqft)
	assert.Equal(t, CategoryUnknown, out[0].PriceCategory)
}

func TestEnrichDoesNotMutateInput(t *testing.T) {
	in := sampleListings()
	before := sampleListings()
	_ = Enrich(in)
	assert.Equal(t, before, in)
}

func TestEnrichIsIdempotent(t *testing.T) {
	once := Enrich(sampleListings())
	twice := Enrich(once)
	assert.Equal(t, once, twice)
}

func TestPricePerSqft(t *testing.T) {
	out := PricePerSqft(sampleListings())

	for _, l := range out {
		if l.Price.Positive() && l.Sqft.Positive() {
			assert.Equal(t, l.Price.Float64/l.Sqft.Float64, l.PricePerSqft.Float64, "listing %d", l.ID)
		} else {
			assert.False(t, l.PricePerSqft.Valid, "listing %d should have no price per sqft", l.ID)
		}
	}
}

func TestPricePerSqftKeepsStoredValueWhenInputsMissing(t *testing.T) {
	out := PricePerSqft([]models.Listing{{PricePerSqft: models.Num(410), Sqft: models.Num(0)}})
	assert.Equal(t, models.Num(410), out[0].PricePerSqft)
}

func TestEstimateRentNeverOverwrites(t *testing.T) {
	out := EstimateRent(sampleListings())

	assert.Equal(t, models.Num(4000), out[0].EstimatedRent)
	assert.Equal(t, models.Num(2900), out[1].EstimatedRent, "scraped rent must survive")
	assert.False(t, out[2].EstimatedRent.Valid, "no price, no estimate")
	assert.False(t, out[3].EstimatedRent.Valid, "zero price, no estimate")
}

func TestEstimateRentKeepsZeroRent(t *testing.T) {
	out := EstimateRent([]models.Listing{{Price: models.Num(300000), EstimatedRent: models.Num(0)}})
	assert.Equal(t, models.Num(0), out[0].EstimatedRent)
}

func TestRentYield(t *testing.T) {
	out := RentYield(EstimateRent(sampleListings()))

	for _, l := range out {
		if l.Price.Positive() && l.EstimatedRent.Valid {
			assert.InDelta(t, l.EstimatedRent.Float64*12/l.Price.Float64, l.RentYield.Float64, 1e-12, "listing %d", l.ID)
		} else {
			assert.False(t, l.RentYield.Valid, "listing %d", l.ID)
		}
	}
	assert.InDelta(t, 2900.0*12/320000, out[1].RentYield.Float64, 1e-12)
}

func TestNonFiniteInputsAreTreatedAsAbsent(t *testing.T) {
	out := Enrich([]models.Listing{{Price: models.Num(math.NaN()), Sqft: models.Num(math.Inf(1))}})

	assert.False(t, out[0].PricePerSqft.Valid)
	assert.False(t, out[0].EstimatedRent.Valid)
	assert.False(t, out[0].RentYield.Valid)
}

func TestEnrichNilAndEmpty(t *testing.T) {
	assert.Nil(t, Enrich(nil))
	assert.Empty(t, Enrich([]models.Listing{}))
}
