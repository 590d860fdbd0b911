package enrichment

import "property-pipeline/internal/models"

// AnalyzeOptions describes the store the listings came from.
type AnalyzeOptions struct {
	// CashflowTracked is false when the listings table has no
	// estimated_monthly_cashflow column.
	CashflowTracked bool
}

// Needs partitions a collection into the listings each enrichment job still
// has to process. A listing may appear in several subsets but at most once
// in each.
type Needs struct {
	WalkScoreMissing []models.Listing `json:"walkscore_missing"`
	TransitMissing   []models.Listing `json:"transit_missing"`
	BikeMissing      []models.Listing `json:"bike_missing"`
	MLSMissing       []models.Listing `json:"mls_missing"`
	TaxMissing       []models.Listing `json:"tax_missing"`
	CashflowMissing  []models.Listing `json:"cashflow_missing"`

	// CashflowUnavailable is set when the store cannot hold cashflow
	// estimates at all. CashflowMissing is empty in that case.
	CashflowUnavailable bool `json:"cashflow_unavailable"`
}

// NeedsCounts is the dashboard summary of Needs.
type NeedsCounts struct {
	Total               int  `json:"total"`
	WalkScoreMissing    int  `json:"walkscore_missing"`
	TransitMissing      int  `json:"transit_missing"`
	BikeMissing         int  `json:"bike_missing"`
	MLSMissing          int  `json:"mls_missing"`
	TaxMissing          int  `json:"tax_missing"`
	CashflowMissing     int  `json:"cashflow_missing"`
	CashflowUnavailable bool `json:"cashflow_unavailable"`
}

// Analyze scans listings for missing enrichable attributes.
func Analyze(listings []models.Listing, opts AnalyzeOptions) Needs {
	needs := Needs{CashflowUnavailable: !opts.CashflowTracked}

	for _, l := range listings {
		if !l.WalkScore.Valid {
			needs.WalkScoreMissing = append(needs.WalkScoreMissing, l)
		}
		if !l.TransitScore.Valid {
			needs.TransitMissing = append(needs.TransitMissing, l)
		}
		if !l.BikeScore.Valid {
			needs.BikeMissing = append(needs.BikeMissing, l)
		}
		if l.MLSNumber == nil || l.MLSType == nil {
			needs.MLSMissing = append(needs.MLSMissing, l)
		}
		if l.TaxInformation == nil {
			needs.TaxMissing = append(needs.TaxMissing, l)
		}
		if opts.CashflowTracked && !l.EstimatedMonthlyCashflow.Valid {
			needs.CashflowMissing = append(needs.CashflowMissing, l)
		}
	}

	return needs
}

// Counts returns the size of every subset.
func (n Needs) Counts(total int) NeedsCounts {
	return NeedsCounts{
		Total:               total,
		WalkScoreMissing:    len(n.WalkScoreMissing),
		TransitMissing:      len(n.TransitMissing),
		BikeMissing:         len(n.BikeMissing),
		MLSMissing:          len(n.MLSMissing),
		TaxMissing:          len(n.TaxMissing),
		CashflowMissing:     len(n.CashflowMissing),
		CashflowUnavailable: n.CashflowUnavailable,
	}
}

// AnyScoreMissing reports whether the WalkScore job has work to do. It fills
// walk, transit and bike scores in one pass.
func (n Needs) AnyScoreMissing() bool {
	return len(n.WalkScoreMissing) > 0 || len(n.TransitMissing) > 0 || len(n.BikeMissing) > 0
}

// IDs returns the listing ids of a subset, in input order.
func IDs(listings []models.Listing) []int64 {
	ids := make([]int64, 0, len(listings))
	for _, l := range listings {
		ids = append(ids, l.ID)
	}
	return ids
}
