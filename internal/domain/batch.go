package domain

import "fmt"

// BatchResult aggregates the outcome of a best-effort batch operation.
// Batch operations never abort on the first per-item failure; they record it
// here and continue.
type BatchResult struct {
	Succeeded int
	Failed    int
	Errors    map[string]error
}

func NewBatchResult() *BatchResult {
	return &BatchResult{Errors: make(map[string]error)}
}

// Ok records one successful item.
func (r *BatchResult) Ok() {
	r.Succeeded++
}

// Fail records one failed item under its identity.
func (r *BatchResult) Fail(id string, err error) {
	r.Failed++
	r.Errors[id] = err
}

func (r *BatchResult) Summary() string {
	return fmt.Sprintf("%d succeeded, %d failed", r.Succeeded, r.Failed)
}
