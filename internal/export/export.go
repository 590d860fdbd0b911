// Package export serializes enriched listings for download.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"property-pipeline/internal/models"
)

// SheetName is the worksheet holding the listings in Excel exports.
const SheetName = "Listings"

type column struct {
	header string
	value  func(l *models.Listing) any
}

func num(get func(l *models.Listing) models.Number) func(l *models.Listing) any {
	return func(l *models.Listing) any {
		n := get(l)
		if !n.Present() {
			return nil
		}
		return n.Float64
	}
}

func text(get func(l *models.Listing) *string) func(l *models.Listing) any {
	return func(l *models.Listing) any {
		if s := get(l); s != nil {
			return *s
		}
		return nil
	}
}

func stamp(get func(l *models.Listing) *time.Time) func(l *models.Listing) any {
	return func(l *models.Listing) any {
		if t := get(l); t != nil {
			return t.Format(time.RFC3339)
		}
		return nil
	}
}

var columns = []column{
	{"id", func(l *models.Listing) any { return l.ID }},
	{"address", func(l *models.Listing) any { return l.Address }},
	{"city", text(func(l *models.Listing) *string { return l.City })},
	{"state", text(func(l *models.Listing) *string { return l.State })},
	{"zip", text(func(l *models.Listing) *string { return l.Zip })},
	{"price", num(func(l *models.Listing) models.Number { return l.Price })},
	{"beds", num(func(l *models.Listing) models.Number { return l.Beds })},
	{"baths", num(func(l *models.Listing) models.Number { return l.Baths })},
	{"sqft", num(func(l *models.Listing) models.Number { return l.Sqft })},
	{"year_built", num(func(l *models.Listing) models.Number { return l.YearBuilt })},
	{"status", text(func(l *models.Listing) *string { return l.Status })},
	{"mls_number", text(func(l *models.Listing) *string { return l.MLSNumber })},
	{"mls_type", text(func(l *models.Listing) *string { return l.MLSType })},
	{"price_per_sqft", num(func(l *models.Listing) models.Number { return l.PricePerSqft })},
	{"estimated_rent", num(func(l *models.Listing) models.Number { return l.EstimatedRent })},
	{"rent_yield", num(func(l *models.Listing) models.Number { return l.RentYield })},
	{"estimated_monthly_cashflow", num(func(l *models.Listing) models.Number { return l.EstimatedMonthlyCashflow })},
	{"walk_score", num(func(l *models.Listing) models.Number { return l.WalkScore })},
	{"transit_score", num(func(l *models.Listing) models.Number { return l.TransitScore })},
	{"bike_score", num(func(l *models.Listing) models.Number { return l.BikeScore })},
	{"price_category", func(l *models.Listing) any { return l.PriceCategory }},
	{"walk_score_category", func(l *models.Listing) any { return l.WalkScoreCategory }},
	{"yield_category", func(l *models.Listing) any { return l.YieldCategory }},
	{"favorite", func(l *models.Listing) any { return l.Favorite }},
	{"url", text(func(l *models.Listing) *string { return l.URL })},
	{"last_updated", stamp(func(l *models.Listing) *time.Time { return l.LastUpdated })},
}

// Headers returns the exported column names in order.
func Headers() []string {
	h := make([]string, len(columns))
	for i, c := range columns {
		h[i] = c.header
	}
	return h
}

// WriteCSV writes a header row and one row per listing. Missing values are
// empty cells.
func WriteCSV(w io.Writer, listings []models.Listing) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(Headers()); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	record := make([]string, len(columns))
	for i := range listings {
		for j, c := range columns {
			record[j] = formatCell(c.value(&listings[i]))
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		return models.Num(x).String()
	default:
		return fmt.Sprint(x)
	}
}

// WriteExcel writes a single-sheet workbook. Numbers stay numeric cells.
func WriteExcel(w io.Writer, listings []models.Listing) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("failed to create stream writer: %w", err)
	}

	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c.header
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	row := make([]any, len(columns))
	for i := range listings {
		for j, c := range columns {
			row[j] = c.value(&listings[i])
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
