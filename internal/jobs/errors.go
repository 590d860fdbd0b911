package jobs

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrJobTimeout is matched by every *TimeoutError.
	ErrJobTimeout = errors.New("job timed out")
	// ErrJobFailed is matched by every *FailedError.
	ErrJobFailed = errors.New("job failed")
	// ErrRateLimited is returned by the Dispatcher when a job kind has used
	// up its launch budget.
	ErrRateLimited = errors.New("job rate limited")
	// ErrInvalidOptions is matched by every *InvalidOptionsError.
	ErrInvalidOptions = errors.New("invalid job options")
)

// TimeoutError is returned when a job exceeds its time budget. Result holds
// whatever output was captured before the process was killed.
type TimeoutError struct {
	Job     Kind
	Timeout time.Duration
	Result  *Result
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s job timed out after %v", e.Job, e.Timeout)
}

func (e *TimeoutError) Unwrap() error {
	return ErrJobTimeout
}

// FailedError is returned for a non-zero exit or a script that could not be
// started, in which case the exit code is -1.
type FailedError struct {
	Job    Kind
	Result *Result
	Err    error
}

func (e *FailedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s job failed: %v", e.Job, e.Err)
	}
	return fmt.Sprintf("%s job failed with exit code %d", e.Job, e.Result.ExitCode)
}

func (e *FailedError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrJobFailed, e.Err}
	}
	return []error{ErrJobFailed}
}

// InvalidOptionsError wraps the validation failure of an options struct.
type InvalidOptionsError struct {
	Err error
}

func (e *InvalidOptionsError) Error() string {
	return fmt.Sprintf("invalid job options: %v", e.Err)
}

func (e *InvalidOptionsError) Unwrap() []error {
	return []error{ErrInvalidOptions, e.Err}
}

// ResultOf extracts the captured output from a job error, if any.
func ResultOf(err error) *Result {
	var te *TimeoutError
	if errors.As(err, &te) {
		return te.Result
	}
	var fe *FailedError
	if errors.As(err, &fe) {
		return fe.Result
	}
	return nil
}
