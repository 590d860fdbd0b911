// Package changes computes the listing_changes audit rows produced by an
// enrichment job or a dashboard edit.
package changes

import (
	"fmt"
	"log"
	"sort"

	"property-pipeline/internal/models"
)

type trackedField struct {
	name  string
	value func(l *models.Listing) *string
}

func numberField(name string, get func(l *models.Listing) models.Number) trackedField {
	return trackedField{name: name, value: func(l *models.Listing) *string {
		n := get(l)
		if !n.Valid {
			return nil
		}
		s := n.String()
		return &s
	}}
}

func textField(name string, get func(l *models.Listing) *string) trackedField {
	return trackedField{name: name, value: get}
}

// tracked lists the columns jobs and the dashboard are expected to touch
var tracked = []trackedField{
	numberField("price", func(l *models.Listing) models.Number { return l.Price }),
	textField("status", func(l *models.Listing) *string { return l.Status }),
	numberField("estimated_rent", func(l *models.Listing) models.Number { return l.EstimatedRent }),
	numberField("rent_yield", func(l *models.Listing) models.Number { return l.RentYield }),
	numberField("walk_score", func(l *models.Listing) models.Number { return l.WalkScore }),
	numberField("transit_score", func(l *models.Listing) models.Number { return l.TransitScore }),
	numberField("bike_score", func(l *models.Listing) models.Number { return l.BikeScore }),
	textField("mls_number", func(l *models.Listing) *string { return l.MLSNumber }),
	textField("mls_type", func(l *models.Listing) *string { return l.MLSType }),
	textField("tax_information", func(l *models.Listing) *string { return l.TaxInformation }),
	numberField("estimated_monthly_cashflow", func(l *models.Listing) models.Number { return l.EstimatedMonthlyCashflow }),
	{name: "favorite", value: func(l *models.Listing) *string {
		s := fmt.Sprint(l.Favorite)
		return &s
	}},
}

// TrackedFields returns the column names Diff compares.
func TrackedFields() []string {
	names := make([]string, len(tracked))
	for i, f := range tracked {
		names[i] = f.name
	}
	return names
}

// Diff returns one change per tracked field whose rendered value differs
// between before and after.
func Diff(before, after *models.Listing, source string) []models.ListingChange {
	if before == nil || after == nil {
		return nil
	}

	var changes []models.ListingChange
	for _, f := range tracked {
		oldVal, newVal := f.value(before), f.value(after)
		if strPtrEqual(oldVal, newVal) {
			continue
		}
		changes = append(changes, models.ListingChange{
			ListingID: after.ID,
			FieldName: f.name,
			OldValue:  oldVal,
			NewValue:  newVal,
			Source:    source,
		})
	}
	return changes
}

// DiffAll matches listings by id and diffs every pair. Listings present on
// only one side produce no rows. The result is ordered by listing id.
func DiffAll(before, after []models.Listing, source string) []models.ListingChange {
	prev := make(map[int64]*models.Listing, len(before))
	for i := range before {
		prev[before[i].ID] = &before[i]
	}

	ordered := make([]*models.Listing, 0, len(after))
	for i := range after {
		ordered = append(ordered, &after[i])
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	var all []models.ListingChange
	for _, cur := range ordered {
		old, ok := prev[cur.ID]
		if !ok {
			continue
		}
		all = append(all, Diff(old, cur, source)...)
	}

	if len(all) > 0 {
		log.Printf("[Changes] source=%s listings=%d changes=%d", source, len(after), len(all))
	}
	return all
}

func strPtrEqual(a, b *string) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}
