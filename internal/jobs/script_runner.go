package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// DefaultTimeout bounds a job when the config sets none.
const DefaultTimeout = 60 * time.Second

// DefaultScripts maps each job to its script file name.
var DefaultScripts = map[Kind]string{
	KindGmail:            "multi_label_gmail_parser.py",
	KindCompass:          "enrich_with_compass.py",
	KindWalkScore:        "enrich_with_walkscore.py",
	KindCashflow:         "enrich_with_cashflow.py",
	KindCashflowAnalyzer: "cashflow_analyzer.py",
	KindInitDB:           "init_db.py",
}

// ScriptConfig locates the interpreter and scripts.
type ScriptConfig struct {
	Python     string
	ScriptsDir string
	// WorkDir is the working directory of every process. Empty inherits ours.
	WorkDir string
	// Timeout applies to every job without an entry in Timeouts.
	Timeout  time.Duration
	Timeouts map[Kind]time.Duration
	// Scripts overrides DefaultScripts per job.
	Scripts map[Kind]string
}

// ScriptRunner implements Runner by spawning "<python> <script> args...".
// It holds only read-only configuration, so concurrent invocations are
// independent.
type ScriptRunner struct {
	cfg  ScriptConfig
	exec Executor
}

// NewScriptRunner creates a runner. A nil executor uses CommandExecutor.
func NewScriptRunner(cfg ScriptConfig, executor Executor) *ScriptRunner {
	if cfg.Python == "" {
		cfg.Python = "python3"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if executor == nil {
		executor = CommandExecutor{}
	}
	return &ScriptRunner{cfg: cfg, exec: executor}
}

func (r *ScriptRunner) GmailImport(ctx context.Context, opts GmailOptions) (*Result, error) {
	if err := Validate(opts); err != nil {
		return nil, err
	}
	return r.run(ctx, KindGmail, opts.args())
}

func (r *ScriptRunner) CompassEnrich(ctx context.Context, opts CompassOptions) (*Result, error) {
	if err := Validate(opts); err != nil {
		return nil, err
	}
	return r.run(ctx, KindCompass, opts.args())
}

func (r *ScriptRunner) WalkScoreEnrich(ctx context.Context, _ WalkScoreOptions) (*Result, error) {
	return r.run(ctx, KindWalkScore, nil)
}

func (r *ScriptRunner) CashflowEnrich(ctx context.Context, opts CashflowOptions) (*Result, error) {
	if err := Validate(opts); err != nil {
		return nil, err
	}
	return r.run(ctx, KindCashflow, opts.args())
}

func (r *ScriptRunner) CashflowAnalyze(ctx context.Context, opts AnalyzerOptions) (*Result, error) {
	if err := Validate(opts); err != nil {
		return nil, err
	}
	return r.run(ctx, KindCashflowAnalyzer, opts.args())
}

func (r *ScriptRunner) InitDB(ctx context.Context, _ InitDBOptions) (*Result, error) {
	return r.run(ctx, KindInitDB, nil)
}

// ScriptPath returns the file a job runs.
func (r *ScriptRunner) ScriptPath(kind Kind) string {
	name, ok := r.cfg.Scripts[kind]
	if !ok {
		name = DefaultScripts[kind]
	}
	return filepath.Join(r.cfg.ScriptsDir, name)
}

// TimeoutFor returns the time budget of a job.
func (r *ScriptRunner) TimeoutFor(kind Kind) time.Duration {
	if d, ok := r.cfg.Timeouts[kind]; ok && d > 0 {
		return d
	}
	return r.cfg.Timeout
}

func (r *ScriptRunner) run(ctx context.Context, kind Kind, args []string) (*Result, error) {
	result := &Result{Job: kind, RunID: uuid.NewString()}
	script := r.ScriptPath(kind)

	if _, err := os.Stat(script); err != nil {
		result.ExitCode = -1
		result.Stderr = fmt.Sprintf("script not found: %s", script)
		log.Printf("[Jobs] job=%s run_id=%s script missing path=%s", kind, result.RunID, script)
		return result, &FailedError{Job: kind, Result: result, Err: err}
	}

	timeout := r.TimeoutFor(kind)
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	log.Printf("[Jobs] job=%s run_id=%s starting script=%s args=%q timeout=%v", kind, result.RunID, script, args, timeout)

	start := time.Now()
	out, err := r.exec.Execute(runCtx, r.cfg.WorkDir, r.cfg.Python, append([]string{script}, args...)...)
	result.Duration = time.Since(start)
	result.ExitCode = out.ExitCode
	result.Stdout = out.Stdout
	result.Stderr = out.Stderr
	result.Progress = ParseProgress(out.Stdout)

	switch {
	case err != nil && ctx.Err() != nil:
		// the caller gave up before the job's own budget ran out
		log.Printf("[Jobs] job=%s run_id=%s cancelled by caller after %v: %v", kind, result.RunID, result.Duration, ctx.Err())
		return result, &FailedError{Job: kind, Result: result, Err: ctx.Err()}

	case errors.Is(err, context.DeadlineExceeded):
		log.Printf("[Jobs] job=%s run_id=%s timed out after %v", kind, result.RunID, timeout)
		return result, &TimeoutError{Job: kind, Timeout: timeout, Result: result}

	case err != nil:
		log.Printf("[Jobs] job=%s run_id=%s error=%v", kind, result.RunID, err)
		return result, &FailedError{Job: kind, Result: result, Err: err}

	case out.ExitCode != 0:
		log.Printf("[Jobs] job=%s run_id=%s exit=%d duration=%v", kind, result.RunID, out.ExitCode, result.Duration)
		return result, &FailedError{Job: kind, Result: result}
	}

	log.Printf("[Jobs] job=%s run_id=%s completed duration=%v", kind, result.RunID, result.Duration)
	return result, nil
}
