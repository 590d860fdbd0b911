// Package analytics aggregates enriched listings and rental history for the
// dashboard charts.
package analytics

import (
	"fmt"
	"sort"
	"time"

	"property-pipeline/internal/models"
)

// Period is a rent trend bucket size.
type Period string

const (
	Monthly   Period = "monthly"
	Quarterly Period = "quarterly"
)

// ParsePeriod accepts "monthly", "quarterly" or empty (quarterly).
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case "", Quarterly:
		return Quarterly, nil
	case Monthly:
		return Monthly, nil
	}
	return "", fmt.Errorf("unknown period %q", s)
}

// TrendPoint is the average rent of one period.
type TrendPoint struct {
	Period      string    `json:"period"`
	Start       time.Time `json:"start"`
	AverageRent float64   `json:"average_rent"`
	Count       int       `json:"count"`
}

// RentTrend averages rental history per month or quarter, oldest first.
func RentTrend(points []models.RentalHistoryPoint, period Period) []TrendPoint {
	type acc struct {
		start time.Time
		sum   float64
		n     int
	}
	buckets := map[time.Time]*acc{}

	for _, p := range points {
		d := p.Date.UTC()
		month := d.Month()
		if period == Quarterly {
			month = time.Month((int(month)-1)/3*3 + 1)
		}
		start := time.Date(d.Year(), month, 1, 0, 0, 0, 0, time.UTC)

		b := buckets[start]
		if b == nil {
			b = &acc{start: start}
			buckets[start] = b
		}
		b.sum += p.Rent
		b.n++
	}

	trend := make([]TrendPoint, 0, len(buckets))
	for _, b := range buckets {
		trend = append(trend, TrendPoint{
			Period:      periodLabel(b.start, period),
			Start:       b.start,
			AverageRent: b.sum / float64(b.n),
			Count:       b.n,
		})
	}
	sort.Slice(trend, func(i, j int) bool { return trend[i].Start.Before(trend[j].Start) })
	return trend
}

func periodLabel(start time.Time, period Period) string {
	if period == Quarterly {
		return fmt.Sprintf("%d-Q%d", start.Year(), (int(start.Month())-1)/3+1)
	}
	return start.Format("2006-01")
}

// TopByYield returns up to n listings with the highest rent yield. Listings
// without a yield are left out. Ties keep input order.
func TopByYield(listings []models.Listing, n int) []models.Listing {
	top := make([]models.Listing, 0, len(listings))
	for _, l := range listings {
		if l.RentYield.Present() {
			top = append(top, l)
		}
	}
	sort.SliceStable(top, func(i, j int) bool {
		return top[i].RentYield.Float64 > top[j].RentYield.Float64
	})
	if n >= 0 && len(top) > n {
		top = top[:n]
	}
	return top
}

// GroupKey picks the grouping attribute of a listing. ok is false when the
// listing has no value for it.
type GroupKey func(l *models.Listing) (key string, ok bool)

// Metric picks the value to average.
type Metric func(l *models.Listing) models.Number

// Group keys
var (
	ByCity GroupKey = func(l *models.Listing) (string, bool) {
		return deref(l.City)
	}
	ByMLSType GroupKey = func(l *models.Listing) (string, bool) {
		return deref(l.MLSType)
	}
	ByBeds GroupKey = func(l *models.Listing) (string, bool) {
		if !l.Beds.Present() {
			return "", false
		}
		return l.Beds.String(), true
	}
)

// Metrics
var (
	RentYieldMetric    Metric = func(l *models.Listing) models.Number { return l.RentYield }
	PriceMetric        Metric = func(l *models.Listing) models.Number { return l.Price }
	PricePerSqftMetric Metric = func(l *models.Listing) models.Number { return l.PricePerSqft }
)

// GroupStat is the mean of a metric over one group.
type GroupStat struct {
	Key   string  `json:"key"`
	Mean  float64 `json:"mean"`
	Count int     `json:"count"`
}

// GroupAverage averages metric per group, counting only listings that have
// both a key and a metric value. Groups with fewer than minCount members are
// dropped. The result is sorted by mean, highest first.
func GroupAverage(listings []models.Listing, key GroupKey, metric Metric, minCount int) []GroupStat {
	type acc struct {
		sum float64
		n   int
	}
	groups := map[string]*acc{}

	for i := range listings {
		l := &listings[i]
		k, ok := key(l)
		if !ok {
			continue
		}
		v := metric(l)
		if !v.Present() {
			continue
		}
		g := groups[k]
		if g == nil {
			g = &acc{}
			groups[k] = g
		}
		g.sum += v.Float64
		g.n++
	}

	stats := make([]GroupStat, 0, len(groups))
	for k, g := range groups {
		if g.n < minCount {
			continue
		}
		stats = append(stats, GroupStat{Key: k, Mean: g.sum / float64(g.n), Count: g.n})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Mean != stats[j].Mean {
			return stats[i].Mean > stats[j].Mean
		}
		return stats[i].Key < stats[j].Key
	})
	return stats
}

// MapPoint is a listing that can be placed on a map.
type MapPoint struct {
	ID        int64         `json:"id"`
	Address   string        `json:"address"`
	Latitude  float64       `json:"latitude"`
	Longitude float64       `json:"longitude"`
	Price     models.Number `json:"price"`
}

// MapPoints keeps the listings with both coordinates present and non-zero.
func MapPoints(listings []models.Listing) []MapPoint {
	points := []MapPoint{}
	for i := range listings {
		l := &listings[i]
		if !l.HasCoordinates() {
			continue
		}
		points = append(points, MapPoint{
			ID:        l.ID,
			Address:   l.Address,
			Latitude:  l.Latitude.Float64,
			Longitude: l.Longitude.Float64,
			Price:     l.Price,
		})
	}
	return points
}

func deref(s *string) (string, bool) {
	if s == nil || *s == "" {
		return "", false
	}
	return *s, true
}
