// Package jobs runs the external enrichment scripts (Gmail import, Compass,
// WalkScore, cashflow) as black-box processes and reports their outcome.
package jobs

import (
	"context"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// Kind names a job.
type Kind string

const (
	KindGmail            Kind = "gmail"
	KindCompass          Kind = "compass"
	KindWalkScore        Kind = "walkscore"
	KindCashflow         Kind = "cashflow"
	KindCashflowAnalyzer Kind = "cashflow-analyzer"
	KindInitDB           Kind = "init-db"
)

// Kinds lists every job kind.
var Kinds = []Kind{KindGmail, KindCompass, KindWalkScore, KindCashflow, KindCashflowAnalyzer, KindInitDB}

// Runner invokes one job per method. Implementations must not share mutable
// state between invocations: a failed run never affects the next one.
type Runner interface {
	GmailImport(ctx context.Context, opts GmailOptions) (*Result, error)
	CompassEnrich(ctx context.Context, opts CompassOptions) (*Result, error)
	WalkScoreEnrich(ctx context.Context, opts WalkScoreOptions) (*Result, error)
	CashflowEnrich(ctx context.Context, opts CashflowOptions) (*Result, error)
	CashflowAnalyze(ctx context.Context, opts AnalyzerOptions) (*Result, error)
	InitDB(ctx context.Context, opts InitDBOptions) (*Result, error)
}

// Result is the outcome of a finished process. Failed and timed out runs
// also carry one through their error.
type Result struct {
	Job      Kind          `json:"job"`
	RunID    string        `json:"run_id"`
	ExitCode int           `json:"exit_code"`
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	Duration time.Duration `json:"duration_ns"`
	Progress *Progress     `json:"progress,omitempty"`
}

// GmailOptions configures the Gmail listing import.
type GmailOptions struct {
	MaxEmails  int    `json:"max_emails" validate:"gte=0"`
	DryRun     bool   `json:"dry_run"`
	ConfigPath string `json:"config"`
}

func (o GmailOptions) args() []string {
	var args []string
	if o.MaxEmails > 0 {
		args = append(args, "--max-emails", strconv.Itoa(o.MaxEmails))
	}
	if o.DryRun {
		args = append(args, "--dry-run")
	}
	if o.ConfigPath != "" {
		args = append(args, "--config", o.ConfigPath)
	}
	return args
}

// CompassOptions configures the Compass scrape.
type CompassOptions struct {
	Output   string `json:"output"`
	Limit    int    `json:"limit" validate:"gte=0"`
	Headless bool   `json:"headless"`
	UpdateDB bool   `json:"update_db"`
	Address  string `json:"address"`
}

func (o CompassOptions) args() []string {
	var args []string
	if o.Output != "" {
		args = append(args, "--output", o.Output)
	}
	if o.Limit > 0 {
		args = append(args, "--limit", strconv.Itoa(o.Limit))
	}
	if o.Headless {
		args = append(args, "--headless")
	}
	if o.UpdateDB {
		args = append(args, "--update-db")
	}
	if o.Address != "" {
		args = append(args, "--address", o.Address)
	}
	return args
}

// WalkScoreOptions is empty: the script fills every missing score.
type WalkScoreOptions struct{}

// CashflowOptions configures the batch cashflow calculator.
type CashflowOptions struct {
	ConfigPath  string `json:"config_path"`
	DBPath      string `json:"db_path"`
	Limit       int    `json:"limit" validate:"gte=0"`
	DryRun      bool   `json:"dry_run"`
	ForceUpdate bool   `json:"force_update"`
	Address     string `json:"address"`
}

func (o CashflowOptions) args() []string {
	var args []string
	if o.ConfigPath != "" {
		args = append(args, "--config-path", o.ConfigPath)
	}
	if o.DBPath != "" {
		args = append(args, "--db-path", o.DBPath)
	}
	if o.Limit > 0 {
		args = append(args, "--limit", strconv.Itoa(o.Limit))
	}
	if o.DryRun {
		args = append(args, "--dry-run")
	}
	if o.ForceUpdate {
		args = append(args, "--force-update")
	}
	if o.Address != "" {
		args = append(args, "--address", o.Address)
	}
	return args
}

// AnalyzerOptions are the financing inputs of a single-address cashflow
// analysis. Rate is a percentage, e.g. 6.5.
type AnalyzerOptions struct {
	Address     string  `json:"address" validate:"required"`
	DownPayment float64 `json:"down_payment" validate:"gte=0"`
	Rate        float64 `json:"rate" validate:"gte=0,lte=100"`
	Insurance   float64 `json:"insurance" validate:"gte=0"`
	MiscMonthly float64 `json:"misc_monthly" validate:"gte=0"`
	LoanTerm    int     `json:"loan_term" validate:"gte=0,lte=50"`
	DBPath      string  `json:"db_path"`
}

// DefaultAnalyzerOptions returns the dashboard's default financing inputs.
func DefaultAnalyzerOptions(address string) AnalyzerOptions {
	return AnalyzerOptions{
		Address:     address,
		DownPayment: 325000,
		Rate:        6.5,
		Insurance:   4000,
		MiscMonthly: 100,
		LoanTerm:    30,
	}
}

func (o AnalyzerOptions) args() []string {
	args := []string{
		"--address", o.Address,
		"--down-payment", formatFloat(o.DownPayment),
		"--rate", formatFloat(o.Rate),
		"--insurance", formatFloat(o.Insurance),
		"--misc-monthly", formatFloat(o.MiscMonthly),
	}
	if o.LoanTerm > 0 {
		args = append(args, "--loan-term", strconv.Itoa(o.LoanTerm))
	}
	if o.DBPath != "" {
		args = append(args, "--db-path", o.DBPath)
	}
	return args
}

// InitDBOptions is empty: the script creates the schema next to itself.
type InitDBOptions struct{}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

var validate = validator.New()

// Validate checks option structs before a process is spawned.
func Validate(opts any) error {
	if err := validate.Struct(opts); err != nil {
		return &InvalidOptionsError{Err: err}
	}
	return nil
}
