package enrichment

import "property-pipeline/internal/models"

// CategoryUnknown labels a listing whose input value is missing.
const CategoryUnknown = "Unknown"

// Walkability labels. The two lowest bins share a label.
const (
	WalkCarDependent     = "Car-Dependent"
	WalkSomewhatWalkable = "Somewhat Walkable"
	WalkVeryWalkable     = "Very Walkable"
	WalkWalkersParadise  = "Walker's Paradise"
)

// Yield labels
const (
	YieldVeryLow   = "Very Low"
	YieldLow       = "Low"
	YieldAverage   = "Average"
	YieldGood      = "Good"
	YieldExcellent = "Excellent"
)

// Price labels, cheapest first
var PriceCategories = []string{
	"<$250K",
	"$250K-$500K",
	"$500K-$750K",
	"$750K-$1M",
	"$1M-$1.5M",
	"$1.5M-$2M",
	"$2M+",
}

// priceBounds are the upper edges of the first six price buckets. A bucket
// covers (previous edge, edge], so 500000 is still "$250K-$500K": a price on
// an edge lands in the lower bucket, not the upper one.
var priceBounds = []float64{250000, 500000, 750000, 1000000, 1500000, 2000000}

// CategorizeWalkability sets walk_score_category from walk_score.
func CategorizeWalkability(listings []models.Listing) []models.Listing {
	out := clone(listings)
	applyWalkabilityCategory(out)
	return out
}

// CategorizeYield sets yield_category from rent_yield.
func CategorizeYield(listings []models.Listing) []models.Listing {
	out := clone(listings)
	applyYieldCategory(out)
	return out
}

// CategorizePrice sets price_category from price. Missing and non-positive
// prices get CategoryUnknown like the other two categorizers.
func CategorizePrice(listings []models.Listing) []models.Listing {
	out := clone(listings)
	applyPriceCategory(out)
	return out
}

// WalkabilityLabel maps a walk score to its label.
func WalkabilityLabel(score models.Number) string {
	if !score.Present() {
		return CategoryUnknown
	}
	switch s := score.Float64; {
	case s < 25:
		return WalkCarDependent
	case s < 50:
		// same label as the bin below; kept as the pipeline defines it
		return WalkCarDependent
	case s < 70:
		return WalkSomewhatWalkable
	case s < 90:
		return WalkVeryWalkable
	default:
		return WalkWalkersParadise
	}
}

// YieldLabel maps a rent yield fraction to its label.
func YieldLabel(yield models.Number) string {
	if !yield.Present() {
		return CategoryUnknown
	}
	switch y := yield.Float64; {
	case y < 0.03:
		return YieldVeryLow
	case y < 0.05:
		return YieldLow
	case y < 0.07:
		return YieldAverage
	case y < 0.10:
		return YieldGood
	default:
		return YieldExcellent
	}
}

// PriceLabel maps a price to its bucket label.
func PriceLabel(price models.Number) string {
	if !price.Positive() {
		return CategoryUnknown
	}
	for i, bound := range priceBounds {
		if price.Float64 <= bound {
			return PriceCategories[i]
		}
	}
	return PriceCategories[len(PriceCategories)-1]
}

func applyWalkabilityCategory(listings []models.Listing) {
	for i := range listings {
		listings[i].WalkScoreCategory = WalkabilityLabel(listings[i].WalkScore)
	}
}

func applyYieldCategory(listings []models.Listing) {
	for i := range listings {
		listings[i].YieldCategory = YieldLabel(listings[i].RentYield)
	}
}

func applyPriceCategory(listings []models.Listing) {
	for i := range listings {
		listings[i].PriceCategory = PriceLabel(listings[i].Price)
	}
}
