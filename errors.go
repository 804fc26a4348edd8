package rxgo

import (
	"errors"
	"fmt"

	"github.com/hupe1980/rxgo/engine"
	"github.com/hupe1980/rxgo/resource"
)

var (
	// ErrInvalidFlags is returned when flags carry bits outside the
	// recognized option set.
	ErrInvalidFlags = errors.New("invalid flags")

	// ErrAllocation matches every *AllocationError.
	ErrAllocation = errors.New("allocation failed")

	// ErrVMInit matches every *InitError.
	ErrVMInit = errors.New("failed to initialize vm")

	// ErrThread matches every *ThreadError.
	ErrThread = errors.New("dataset worker failed")

	// ErrOutputTooSmall matches every *SizeError.
	ErrOutputTooSmall = errors.New("output buffer smaller than digest")

	// ErrSnapshotSize matches every *SnapshotSizeError.
	ErrSnapshotSize = errors.New("snapshot size mismatch")

	// ErrDatasetIncomplete is returned when dataset workers finished but the
	// item range was not covered exactly once.
	ErrDatasetIncomplete = errors.New("dataset not fully initialized")

	// ErrClosed is returned by any operation on a closed Cache, Dataset or
	// Machine.
	ErrClosed = errors.New("use of closed handle")

	// ErrInUse is returned when closing a Cache or Dataset that still has
	// bound machines.
	ErrInUse = errors.New("handle still bound to a machine")

	// ErrConcurrentUse is returned when a Machine is entered from two
	// goroutines at once.
	ErrConcurrentUse = errors.New("concurrent use of machine")

	// ErrEngineMismatch is returned when a Cache or Dataset is combined with
	// a handle from a different engine.
	ErrEngineMismatch = errors.New("engine mismatch")

	// ErrUnsupportedEngine is returned when an engine's digest size differs
	// from DigestSize.
	ErrUnsupportedEngine = errors.New("unsupported engine")

	// ErrMemoryLimitExceeded is wrapped by *AllocationError when the
	// resource controller's memory budget is exhausted.
	ErrMemoryLimitExceeded = resource.ErrMemoryLimitExceeded
)

// AllocationError indicates that a cache or dataset region could not be
// allocated. It is never retried internally.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type AllocationError struct {
	What  string // "cache" or "dataset"
	Bytes int64
	cause error
}

func (e *AllocationError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s allocation of %d bytes failed: %v", e.What, e.Bytes, e.cause)
	}
	return fmt.Sprintf("%s allocation of %d bytes failed", e.What, e.Bytes)
}

func (e *AllocationError) Unwrap() error { return e.cause }

func (e *AllocationError) Is(target error) bool { return target == ErrAllocation }

// InitError indicates that the engine refused to create a VM, e.g. for an
// incompatible flag combination.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type InitError struct {
	Mode  Mode
	Flags Flags
	cause error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("failed to initialize %s vm (flags %s): %v", e.Mode, e.Flags, e.cause)
}

func (e *InitError) Unwrap() error { return e.cause }

func (e *InitError) Is(target error) bool { return target == ErrVMInit }

// ThreadError indicates that a dataset worker did not complete cleanly.
// The dataset under construction is discarded.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ThreadError struct {
	Worker    int
	Partition Partition
	cause     error
}

func (e *ThreadError) Error() string {
	return fmt.Sprintf("dataset worker %d (items %s) failed: %v", e.Worker, e.Partition, e.cause)
}

func (e *ThreadError) Unwrap() error { return e.cause }

func (e *ThreadError) Is(target error) bool { return target == ErrThread }

// SizeError indicates that a caller-provided output buffer is shorter than
// DigestSize. No hashing was performed and the buffer is untouched.
type SizeError struct {
	Required int
	Actual   int
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("output buffer too small: need %d bytes, got %d", e.Required, e.Actual)
}

func (e *SizeError) Is(target error) bool { return target == ErrOutputTooSmall }

// SnapshotSizeError indicates that a dataset snapshot does not have exactly
// item_count*item_size bytes. Nothing was copied.
type SnapshotSizeError struct {
	Expected int64
	Actual   int64
}

func (e *SnapshotSizeError) Error() string {
	return fmt.Sprintf("snapshot size mismatch: expected %d bytes, got %d", e.Expected, e.Actual)
}

func (e *SnapshotSizeError) Is(target error) bool { return target == ErrSnapshotSize }

func allocError(what string, size int64, err error) error {
	return &AllocationError{What: what, Bytes: size, cause: err}
}

// vmError maps an engine VM-creation failure onto *InitError.
func vmError(mode Mode, flags Flags, err error) error {
	if !errors.Is(err, engine.ErrVMCreate) {
		err = fmt.Errorf("%w: %w", engine.ErrVMCreate, err)
	}
	return &InitError{Mode: mode, Flags: flags, cause: err}
}
