package jobs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeExecutor records invocations and returns canned output per script name.
type fakeExecutor struct {
	mu      sync.Mutex
	calls   []fakeCall
	outputs map[string]Output
	errs    map[string]error
	block   bool
}

type fakeCall struct {
	Dir  string
	Name string
	Args []string
}

func (f *fakeExecutor) Execute(ctx context.Context, dir, name string, args ...string) (Output, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fakeCall{Dir: dir, Name: name, Args: args})
	f.mu.Unlock()

	script := ""
	if len(args) > 0 {
		script = filepath.Base(args[0])
	}

	if f.block {
		<-ctx.Done()
		return Output{Stdout: "Processing [1/9]\n", ExitCode: -1}, ctx.Err()
	}
	if err := f.errs[script]; err != nil {
		return Output{ExitCode: -1}, err
	}
	return f.outputs[script], nil
}

func (f *fakeExecutor) lastCall(t *testing.T) fakeCall {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.calls)
	return f.calls[len(f.calls)-1]
}

// scriptsDir creates empty script files for every job.
func scriptsDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range DefaultScripts {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("# stub\n"), 0o644))
	}
	return dir
}

func joined(args []string) string {
	return strings.Join(args, " ")
}
