package database

import (
	"context"

	"property-pipeline/internal/models"
)

// Stats summarises the non-blacklisted listings for the dashboard.
type Stats struct {
	TotalCount      int64         `json:"total_count"`
	AvgPrice        models.Number `json:"avg_price"`
	AvgSqft         models.Number `json:"avg_sqft"`
	AvgPricePerSqft models.Number `json:"avg_price_per_sqft"`
	AvgWalkScore    models.Number `json:"avg_walk_score"`
	AvgTransitScore models.Number `json:"avg_transit_score"`
	AvgBikeScore    models.Number `json:"avg_bike_score"`

	CityCounts []CityCount    `json:"city_counts"`
	CityPrices []CityPrice    `json:"city_prices"`
	MLSTypes   []MLSTypeCount `json:"mls_types"`
}

type CityCount struct {
	City  string `json:"city"`
	Count int64  `json:"count"`
}

type CityPrice struct {
	City     string  `json:"city"`
	AvgPrice float64 `json:"avg_price"`
}

type MLSTypeCount struct {
	MLSType string `gorm:"column:mls_type" json:"mls_type"`
	Count   int64  `json:"count"`
}

// topCities bounds both city breakdowns
const topCities = 10

// SummaryStats computes counts and averages. AVG skips NULLs, so each average
// covers only the listings that have the value.
func (s *Store) SummaryStats(ctx context.Context) (*Stats, error) {
	var totals struct {
		TotalCount      int64
		AvgPrice        models.Number
		AvgSqft         models.Number
		AvgPricePerSqft models.Number
		AvgWalkScore    models.Number
		AvgTransitScore models.Number
		AvgBikeScore    models.Number
	}
	err := s.listings(ctx).Select(`COUNT(*) AS total_count,
		AVG(price) AS avg_price,
		AVG(sqft) AS avg_sqft,
		AVG(price_per_sqft) AS avg_price_per_sqft,
		AVG(walk_score) AS avg_walk_score,
		AVG(transit_score) AS avg_transit_score,
		AVG(bike_score) AS avg_bike_score`).
		Scan(&totals).Error
	if err != nil {
		return nil, storeErr("summary_stats", err)
	}

	stats := &Stats{
		TotalCount:      totals.TotalCount,
		AvgPrice:        totals.AvgPrice,
		AvgSqft:         totals.AvgSqft,
		AvgPricePerSqft: totals.AvgPricePerSqft,
		AvgWalkScore:    totals.AvgWalkScore,
		AvgTransitScore: totals.AvgTransitScore,
		AvgBikeScore:    totals.AvgBikeScore,
		CityCounts:      []CityCount{},
		CityPrices:      []CityPrice{},
		MLSTypes:        []MLSTypeCount{},
	}

	err = s.listings(ctx).
		Select("city, COUNT(*) AS count").
		Where("city IS NOT NULL").
		Group("city").
		Order("count DESC, city ASC").
		Limit(topCities).
		Scan(&stats.CityCounts).Error
	if err != nil {
		return nil, storeErr("summary_stats", err)
	}

	err = s.listings(ctx).
		Select("city, AVG(price) AS avg_price").
		Where("city IS NOT NULL AND price IS NOT NULL").
		Group("city").
		Order("avg_price DESC, city ASC").
		Limit(topCities).
		Scan(&stats.CityPrices).Error
	if err != nil {
		return nil, storeErr("summary_stats", err)
	}

	err = s.listings(ctx).
		Select("mls_type, COUNT(*) AS count").
		Where("mls_type IS NOT NULL").
		Group("mls_type").
		Order("count DESC, mls_type ASC").
		Scan(&stats.MLSTypes).Error
	if err != nil {
		return nil, storeErr("summary_stats", err)
	}

	return stats, nil
}
