package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"property-pipeline/internal/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestRentTrendQuarterly(t *testing.T) {
	points := []models.RentalHistoryPoint{
		{Date: day(2024, 4, 2), Rent: 3000},
		{Date: day(2024, 1, 15), Rent: 2000},
		{Date: day(2024, 3, 31), Rent: 2200},
		{Date: day(2023, 12, 31), Rent: 1900},
		{Date: day(2024, 6, 30), Rent: 3200},
	}

	trend := RentTrend(points, Quarterly)
	require.Len(t, trend, 3)

	assert.Equal(t, "2023-Q4", trend[0].Period)
	assert.Equal(t, 1, trend[0].Count)

	assert.Equal(t, "2024-Q1", trend[1].Period)
	assert.Equal(t, day(2024, 1, 1), trend[1].Start)
	assert.InDelta(t, 2100, trend[1].AverageRent, 1e-9)
	assert.Equal(t, 2, trend[1].Count)

	assert.Equal(t, "2024-Q2", trend[2].Period)
	assert.InDelta(t, 3100, trend[2].AverageRent, 1e-9)
}

func TestRentTrendMonthly(t *testing.T) {
	points := []models.RentalHistoryPoint{
		{Date: day(2024, 3, 31), Rent: 2200},
		{Date: day(2024, 1, 15), Rent: 2000},
		{Date: day(2024, 1, 20), Rent: 2100},
	}

	trend := RentTrend(points, Monthly)
	require.Len(t, trend, 2)
	assert.Equal(t, "2024-01", trend[0].Period)
	assert.InDelta(t, 2050, trend[0].AverageRent, 1e-9)
	assert.Equal(t, "2024-03", trend[1].Period)

	assert.Empty(t, RentTrend(nil, Monthly))
}

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod("")
	require.NoError(t, err)
	assert.Equal(t, Quarterly, p)

	p, err = ParsePeriod("monthly")
	require.NoError(t, err)
	assert.Equal(t, Monthly, p)

	_, err = ParsePeriod("weekly")
	assert.Error(t, err)
}

func TestTopByYield(t *testing.T) {
	listings := []models.Listing{
		{ID: 1, RentYield: models.Num(0.05)},
		{ID: 2},
		{ID: 3, RentYield: models.Num(0.09)},
		{ID: 4, RentYield: models.Num(0.05)},
		{ID: 5, RentYield: models.Num(0.11)},
	}

	top := TopByYield(listings, 3)
	require.Len(t, top, 3)
	assert.Equal(t, []int64{5, 3, 1}, []int64{top[0].ID, top[1].ID, top[2].ID})

	assert.Len(t, TopByYield(listings, 10), 4)
	assert.Empty(t, TopByYield(listings, 0))
}

func TestGroupAverage(t *testing.T) {
	listings := []models.Listing{
		{City: models.Str("Oakland"), MLSType: models.Str("Condo"), RentYield: models.Num(0.04)},
		{City: models.Str("Oakland"), MLSType: models.Str("Condo"), RentYield: models.Num(0.06)},
		{City: models.Str("Oakland"), MLSType: models.Str("Condo")},
		{City: models.Str("Berkeley"), MLSType: models.Str("Detached"), RentYield: models.Num(0.08)},
		{MLSType: models.Str("Detached"), RentYield: models.Num(0.02)},
	}

	byCity := GroupAverage(listings, ByCity, RentYieldMetric, 1)
	require.Len(t, byCity, 2)
	assert.Equal(t, GroupStat{Key: "Berkeley", Mean: 0.08, Count: 1}, byCity[0])
	assert.Equal(t, "Oakland", byCity[1].Key)
	assert.InDelta(t, 0.05, byCity[1].Mean, 1e-12)
	assert.Equal(t, 2, byCity[1].Count)

	byType := GroupAverage(listings, ByMLSType, RentYieldMetric, 2)
	require.Len(t, byType, 2)

	assert.Len(t, GroupAverage(listings, ByCity, RentYieldMetric, 3), 0)
}

func TestGroupAverageByBeds(t *testing.T) {
	listings := []models.Listing{
		{Beds: models.Num(2), Price: models.Num(400000)},
		{Beds: models.Num(2), Price: models.Num(600000)},
		{Beds: models.Num(3.5), Price: models.Num(900000)},
		{Price: models.Num(1)},
	}

	stats := GroupAverage(listings, ByBeds, PriceMetric, 1)
	require.Len(t, stats, 2)
	assert.Equal(t, "3.5", stats[0].Key)
	assert.Equal(t, GroupStat{Key: "2", Mean: 500000, Count: 2}, stats[1])
}

func TestMapPoints(t *testing.T) {
	listings := []models.Listing{
		{ID: 1, Latitude: models.Num(37.8), Longitude: models.Num(-122.27)},
		{ID: 2, Latitude: models.Num(0), Longitude: models.Num(-122.27)},
		{ID: 3, Latitude: models.Num(37.8)},
		{ID: 4},
	}

	points := MapPoints(listings)
	require.Len(t, points, 1)
	assert.Equal(t, int64(1), points[0].ID)
	assert.NotNil(t, MapPoints(nil))
}
