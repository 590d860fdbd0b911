package jobs

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScriptRunnerBuildsArguments(t *testing.T) {
	dir := scriptsDir(t)
	fake := &fakeExecutor{}
	r := NewScriptRunner(ScriptConfig{Python: "py", ScriptsDir: dir, WorkDir: "/work"}, fake)
	ctx := context.Background()

	tests := []struct {
		name   string
		run    func() (*Result, error)
		script string
		args   string
	}{
		{
			name: "gmail",
			run: func() (*Result, error) {
				return r.GmailImport(ctx, GmailOptions{MaxEmails: 25, DryRun: true, ConfigPath: "gmail.yaml"})
			},
			script: DefaultScripts[KindGmail],
			args:   "--max-emails 25 --dry-run --config gmail.yaml",
		},
		{
			name: "compass",
			run: func() (*Result, error) {
				return r.CompassEnrich(ctx, CompassOptions{Limit: 10, Headless: true, UpdateDB: true, Address: "1 Main St"})
			},
			script: DefaultScripts[KindCompass],
			args:   "--limit 10 --headless --update-db --address 1 Main St",
		},
		{
			name:   "walkscore",
			run:    func() (*Result, error) { return r.WalkScoreEnrich(ctx, WalkScoreOptions{}) },
			script: DefaultScripts[KindWalkScore],
			args:   "",
		},
		{
			name: "cashflow",
			run: func() (*Result, error) {
				return r.CashflowEnrich(ctx, CashflowOptions{DBPath: "listings.db", Limit: 5, ForceUpdate: true})
			},
			script: DefaultScripts[KindCashflow],
			args:   "--db-path listings.db --limit 5 --force-update",
		},
		{
			name:   "analyzer",
			run:    func() (*Result, error) { return r.CashflowAnalyze(ctx, DefaultAnalyzerOptions("9 Elm")) },
			script: DefaultScripts[KindCashflowAnalyzer],
			args:   "--address 9 Elm --down-payment 325000 --rate 6.5 --insurance 4000 --misc-monthly 100 --loan-term 30",
		},
		{
			name:   "init-db",
			run:    func() (*Result, error) { return r.InitDB(ctx, InitDBOptions{}) },
			script: DefaultScripts[KindInitDB],
			args:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := tt.run()
			require.NoError(t, err)
			assert.NotEmpty(t, res.RunID)

			call := fake.lastCall(t)
			assert.Equal(t, "py", call.Name)
			assert.Equal(t, "/work", call.Dir)
			assert.Equal(t, filepath.Join(dir, tt.script), call.Args[0])
			assert.Equal(t, tt.args, joined(call.Args[1:]))
		})
	}
}

func TestScriptRunnerSuccessParsesProgress(t *testing.T) {
	fake := &fakeExecutor{outputs: map[string]Output{
		DefaultScripts[KindWalkScore]: {Stdout: "Found 3 listings\nProcessing [1/3]\n✅ done\nProcessing [2/3]\n"},
	}}
	r := NewScriptRunner(ScriptConfig{ScriptsDir: scriptsDir(t)}, fake)

	res, err := r.WalkScoreEnrich(context.Background(), WalkScoreOptions{})
	require.NoError(t, err)

	assert.Equal(t, KindWalkScore, res.Job)
	assert.Equal(t, 0, res.ExitCode)
	require.NotNil(t, res.Progress)
	assert.Equal(t, 3, res.Progress.Total)
	assert.Equal(t, 2, res.Progress.Processed)
	assert.Equal(t, 1, res.Progress.Success)
	assert.Equal(t, "python3", fake.lastCall(t).Name)
}

func TestScriptRunnerNonZeroExitIsFailure(t *testing.T) {
	fake := &fakeExecutor{outputs: map[string]Output{
		DefaultScripts[KindCompass]: {Stdout: "partial", Stderr: "Traceback: boom", ExitCode: 2},
	}}
	r := NewScriptRunner(ScriptConfig{ScriptsDir: scriptsDir(t)}, fake)

	res, err := r.CompassEnrich(context.Background(), CompassOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrJobFailed)
	assert.False(t, errors.Is(err, ErrJobTimeout))

	var fe *FailedError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, 2, fe.Result.ExitCode)
	assert.Equal(t, "Traceback: boom", fe.Result.Stderr)
	assert.Equal(t, "partial", fe.Result.Stdout)
	assert.Same(t, res, ResultOf(err))
}

func TestScriptRunnerTimeoutIsDistinct(t *testing.T) {
	fake := &fakeExecutor{block: true}
	r := NewScriptRunner(ScriptConfig{ScriptsDir: scriptsDir(t), Timeout: 20 * time.Millisecond}, fake)

	_, err := r.GmailImport(context.Background(), GmailOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrJobTimeout)
	assert.False(t, errors.Is(err, ErrJobFailed))

	var te *TimeoutError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 20*time.Millisecond, te.Timeout)
	assert.Equal(t, "Processing [1/9]\n", te.Result.Stdout)
}

func TestScriptRunnerCallerDeadlineIsNotJobTimeout(t *testing.T) {
	fake := &fakeExecutor{block: true}
	r := NewScriptRunner(ScriptConfig{ScriptsDir: scriptsDir(t), Timeouts: map[Kind]time.Duration{KindGmail: 10 * time.Minute}}, fake)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := r.GmailImport(ctx, GmailOptions{})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrJobTimeout))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	var fe *FailedError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "Processing [1/9]\n", fe.Result.Stdout)
}

func TestScriptRunnerPerJobTimeout(t *testing.T) {
	r := NewScriptRunner(ScriptConfig{Timeouts: map[Kind]time.Duration{KindGmail: 10 * time.Minute}}, &fakeExecutor{})
	assert.Equal(t, 10*time.Minute, r.TimeoutFor(KindGmail))
	assert.Equal(t, DefaultTimeout, r.TimeoutFor(KindCompass))
}

func TestScriptRunnerMissingScript(t *testing.T) {
	fake := &fakeExecutor{}
	r := NewScriptRunner(ScriptConfig{ScriptsDir: t.TempDir()}, fake)

	res, err := r.InitDB(context.Background(), InitDBOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrJobFailed)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, -1, res.ExitCode)
	assert.Contains(t, res.Stderr, "init_db.py")
	assert.Empty(t, fake.calls, "nothing is spawned")
}

func TestScriptRunnerRejectsInvalidOptions(t *testing.T) {
	fake := &fakeExecutor{}
	r := NewScriptRunner(ScriptConfig{ScriptsDir: scriptsDir(t)}, fake)

	_, err := r.CashflowAnalyze(context.Background(), AnalyzerOptions{Rate: 5})
	assert.ErrorIs(t, err, ErrInvalidOptions)

	_, err = r.CompassEnrich(context.Background(), CompassOptions{Limit: -1})
	assert.ErrorIs(t, err, ErrInvalidOptions)
	assert.Empty(t, fake.calls)
}

func TestScriptRunnerScriptOverride(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "walk.py"), nil, 0o644))
	fake := &fakeExecutor{}
	r := NewScriptRunner(ScriptConfig{ScriptsDir: dir, Scripts: map[Kind]string{KindWalkScore: "walk.py"}}, fake)

	_, err := r.WalkScoreEnrich(context.Background(), WalkScoreOptions{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "walk.py"), fake.lastCall(t).Args[0])
}

func TestCommandExecutorWithShell(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	dir := t.TempDir()
	ctx := context.Background()
	e := CommandExecutor{}

	out, err := e.Execute(ctx, dir, sh, "-c", "echo 'Found 2 listings'; echo oops >&2; exit 3")
	require.NoError(t, err)
	assert.Equal(t, 3, out.ExitCode)
	assert.Equal(t, "Found 2 listings\n", out.Stdout)
	assert.Equal(t, "oops\n", out.Stderr)

	tctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err = e.Execute(tctx, dir, sh, "-c", "sleep 5")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestScriptRunnerEndToEndWithShell(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	dir := t.TempDir()
	script := "printf 'Found 1 listings\\nProcessing [1/1]\\nSuccessfully updated %s\\n' \"$2\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultScripts[KindCompass]), []byte(script), 0o644))

	r := NewScriptRunner(ScriptConfig{Python: sh, ScriptsDir: dir, Timeout: 5 * time.Second}, nil)
	res, err := r.CompassEnrich(context.Background(), CompassOptions{Address: "12 Bay St"})
	require.NoError(t, err)

	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "Successfully updated 12 Bay St", res.Progress.LastMessage)
	assert.Equal(t, 1, res.Progress.Success)
}
