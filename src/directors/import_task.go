package directors

import (
	"errors"
	"fmt"
	"sync/atomic"

	"tabledit/src/models"
)

// ErrImportCancelled is returned when an import completes after its dialog
// was closed. The loaded rows are discarded.
var ErrImportCancelled = errors.New("import was cancelled")

// RowLoader produces the parsed rows for an import. It runs off the UI
// context; the engine applies its result back on the single-threaded side.
type RowLoader func() ([]*models.Row, error)

// LoadOutcome is what a loader eventually delivers.
type LoadOutcome struct {
	Rows []*models.Row
	Err  error
}

// ImportTask is one in-flight import. Cancellation is cooperative: closing
// the import dialog calls Cancel, and a late outcome is simply dropped when
// the host tries to complete it.
type ImportTask struct {
	policy    models.MergePolicy
	outcome   chan LoadOutcome
	cancelled atomic.Bool
}

// BeginImport starts loading rows in the background. The UI stays responsive
// while the loader runs; the host receives the outcome from Outcome() on its
// own execution context and hands it to CompleteImport.
func (s *TablePartService) BeginImport(load RowLoader, policy models.MergePolicy) *ImportTask {
	task := &ImportTask{
		policy:  policy,
		outcome: make(chan LoadOutcome, 1),
	}
	go func() {
		rows, err := load()
		task.outcome <- LoadOutcome{Rows: rows, Err: err}
	}()
	return task
}

// Cancel marks the task so its eventual outcome is discarded.
func (t *ImportTask) Cancel() {
	t.cancelled.Store(true)
}

// Cancelled reports whether the task was cancelled.
func (t *ImportTask) Cancelled() bool {
	return t.cancelled.Load()
}

// Outcome delivers the loader's result exactly once.
func (t *ImportTask) Outcome() <-chan LoadOutcome {
	return t.outcome
}

// CompleteImport applies a loader outcome on the UI's execution context. A
// cancelled task mutates nothing.
func (s *TablePartService) CompleteImport(task *ImportTask, out LoadOutcome) (models.ImportResult, error) {
	if task.Cancelled() {
		return models.ImportResult{}, ErrImportCancelled
	}
	if out.Err != nil {
		return models.ImportResult{}, fmt.Errorf("import load failed: %w", out.Err)
	}
	return s.ImportRows(out.Rows, task.policy), nil
}
