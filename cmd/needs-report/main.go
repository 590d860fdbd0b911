// needs-report prints which listings each enrichment job still has to
// process, without running any job.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"property-pipeline/internal/config"
	"property-pipeline/internal/database"
	"property-pipeline/internal/enrichment"
)

type report struct {
	GeneratedAt time.Time              `json:"generated_at"`
	Database    string                 `json:"database"`
	Counts      enrichment.NeedsCounts `json:"counts"`
	IDs         map[string][]int64     `json:"ids,omitempty"`
}

func main() {
	configPath := flag.String("config", "config/pipeline.yaml", "path to the YAML config")
	asJSON := flag.Bool("json", false, "print the report as JSON")
	withIDs := flag.Bool("ids", false, "include listing ids per job")
	flag.Parse()

	config.LoadDotEnv()
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	cfg.Database.LogLevel = "silent"
	store, err := database.OpenConfigured(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to open listing store: %v", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	r, err := build(ctx, store, cfg.Database.Type, *withIDs)
	if err != nil {
		log.Fatalf("Failed to analyze listings: %v", err)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			log.Fatalf("Failed to encode report: %v", err)
		}
		return
	}
	printTable(r)
}

func build(ctx context.Context, store *database.Store, dbType string, withIDs bool) (*report, error) {
	listings, err := store.GetAll(ctx, 0)
	if err != nil {
		return nil, err
	}
	tracked, err := store.HasColumn(ctx, "estimated_monthly_cashflow")
	if err != nil {
		return nil, err
	}

	needs := enrichment.Analyze(enrichment.Enrich(listings), enrichment.AnalyzeOptions{CashflowTracked: tracked})
	r := &report{
		GeneratedAt: time.Now(),
		Database:    dbType,
		Counts:      needs.Counts(len(listings)),
	}
	if withIDs {
		r.IDs = map[string][]int64{
			"walkscore_missing": enrichment.IDs(needs.WalkScoreMissing),
			"transit_missing":   enrichment.IDs(needs.TransitMissing),
			"bike_missing":      enrichment.IDs(needs.BikeMissing),
			"mls_missing":       enrichment.IDs(needs.MLSMissing),
			"tax_missing":       enrichment.IDs(needs.TaxMissing),
			"cashflow_missing":  enrichment.IDs(needs.CashflowMissing),
		}
	}
	return r, nil
}

func printTable(r *report) {
	c := r.Counts
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "listings\t%d\n", c.Total)
	fmt.Fprintf(w, "walk score missing\t%d\n", c.WalkScoreMissing)
	fmt.Fprintf(w, "transit score missing\t%d\n", c.TransitMissing)
	fmt.Fprintf(w, "bike score missing\t%d\n", c.BikeMissing)
	fmt.Fprintf(w, "MLS missing\t%d\n", c.MLSMissing)
	fmt.Fprintf(w, "tax info missing\t%d\n", c.TaxMissing)
	if c.CashflowUnavailable {
		fmt.Fprintf(w, "cashflow missing\tn/a (column not tracked)\n")
	} else {
		fmt.Fprintf(w, "cashflow missing\t%d\n", c.CashflowMissing)
	}
	w.Flush()

	jobs := make([]string, 0, len(r.IDs))
	for job := range r.IDs {
		jobs = append(jobs, job)
	}
	sort.Strings(jobs)
	for _, job := range jobs {
		if ids := r.IDs[job]; len(ids) > 0 {
			fmt.Printf("%s: %v\n", job, ids)
		}
	}
}
