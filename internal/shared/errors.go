package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates a missing user, role or project.
	ErrNotFound = errors.New("not found")
	// ErrPermissionDenied indicates an operation the policy forbids,
	// such as editing the admin template.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrValidation indicates malformed input (unknown catalog key,
	// unknown domain, empty role key).
	ErrValidation = errors.New("validation failed")
	// ErrDuplicate indicates a unique key collision, such as creating a
	// role that already exists.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrTransientStore indicates the backing store was unavailable.
	// All engine writes are upserts, so the whole operation is safe
	// to retry.
	ErrTransientStore = errors.New("store unavailable")
)

// BatchItemResult records the outcome of a single item in a batch
// operation. ID is the user or project the item applied to.
type BatchItemResult struct {
	ID  int64  `json:"id"`
	Err string `json:"error,omitempty"`
}

// BatchResult enumerates per-item outcomes of a batch operation.
// Batch operations never swallow item failures; callers decide
// whether to surface, retry or ignore them.
type BatchResult struct {
	Succeeded []int64           `json:"succeeded"`
	Failed    []BatchItemResult `json:"failed,omitempty"`
}

// Ok reports whether every item succeeded.
func (r BatchResult) Ok() bool {
	return len(r.Failed) == 0
}

// PartialBatchError signals that some items of a batch succeeded and
// others did not. The embedded result is detailed enough for a
// surgical retry of just the failed items.
type PartialBatchError struct {
	Op     string
	Result BatchResult
}

// Error implements the error interface.
func (e *PartialBatchError) Error() string {
	total := len(e.Result.Failed) + len(e.Result.Succeeded)
	return fmt.Sprintf("%s: %d of %d items failed", e.Op, len(e.Result.Failed), total)
}

// NewPartialBatchError returns nil when the result has no failures.
func NewPartialBatchError(op string, result BatchResult) error {
	if result.Ok() {
		return nil
	}
	return &PartialBatchError{Op: op, Result: result}
}
