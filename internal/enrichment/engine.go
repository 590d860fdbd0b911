// Package enrichment computes derived listing metrics and finds listings
// that still need data from the external enrichment jobs.
package enrichment

import "property-pipeline/internal/models"

// RentToPriceRatio is the monthly rent heuristic (the "0.8% rule") used when
// no scraped rent estimate exists.
const RentToPriceRatio = 0.008

// Enrich fills every derived field the inputs allow. The order is fixed:
// price per sqft, estimated rent, rent yield, then the categories. The input
// slice is not modified, and Enrich(Enrich(l)) equals Enrich(l).
func Enrich(listings []models.Listing) []models.Listing {
	out := clone(listings)
	applyPricePerSqft(out)
	applyEstimatedRent(out)
	applyRentYield(out)
	applyWalkabilityCategory(out)
	applyYieldCategory(out)
	applyPriceCategory(out)
	return out
}

// PricePerSqft sets price_per_sqft = price / sqft where both are positive.
// Other listings keep whatever value they had.
func PricePerSqft(listings []models.Listing) []models.Listing {
	out := clone(listings)
	applyPricePerSqft(out)
	return out
}

// EstimateRent fills estimated_rent from the price only where it is null.
// An existing estimate, for example one scraped from Compass, is never
// replaced.
func EstimateRent(listings []models.Listing) []models.Listing {
	out := clone(listings)
	applyEstimatedRent(out)
	return out
}

// RentYield sets the annualized gross yield (rent * 12 / price) as a
// fraction. Call it after EstimateRent.
func RentYield(listings []models.Listing) []models.Listing {
	out := clone(listings)
	applyRentYield(out)
	return out
}

func applyPricePerSqft(listings []models.Listing) {
	for i := range listings {
		l := &listings[i]
		if !l.Price.Positive() || !l.Sqft.Positive() {
			continue
		}
		l.PricePerSqft = models.Num(l.Price.Float64 / l.Sqft.Float64)
	}
}

func applyEstimatedRent(listings []models.Listing) {
	for i := range listings {
		l := &listings[i]
		if l.EstimatedRent.Valid || !l.Price.Positive() {
			continue
		}
		l.EstimatedRent = models.Num(l.Price.Float64 * RentToPriceRatio)
	}
}

func applyRentYield(listings []models.Listing) {
	for i := range listings {
		l := &listings[i]
		if !l.Price.Positive() || !l.EstimatedRent.Present() {
			continue
		}
		l.RentYield = models.Num(l.EstimatedRent.Float64 * 12 / l.Price.Float64)
	}
}

func clone(listings []models.Listing) []models.Listing {
	if listings == nil {
		return nil
	}
	out := make([]models.Listing, len(listings))
	copy(out, listings)
	return out
}
