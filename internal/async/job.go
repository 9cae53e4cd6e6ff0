package async

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/Aman-CERP/librarian/internal/index"
	"github.com/Aman-CERP/librarian/internal/store"
)

// indexingJob is the production job: open the store (the worker, not the
// supervisor, is the lock holder), walk the target, and emit a terminal
// event with the counters. The deferred store close guarantees the lock is
// released on every exit path, including a panic mid-walk.
func indexingJob(path, storeDir string) Job {
	return func(ctx context.Context, emit func(StatusEvent)) {
		emit(StatusEvent{Phase: PhaseStarting, Message: "Initializing indexer..."})

		st, err := store.Open(ctx, storeDir, store.Options{
			OnLockWait: func() {
				emit(StatusEvent{
					Phase:   PhaseRunning,
					Message: "Waiting for store lock (another process is using the store)...",
				})
			},
		})
		if err != nil {
			// Stop cancels the worker context; a lock wait aborted that way
			// is a shutdown, not a failure.
			if errors.Is(err, context.Canceled) {
				emit(StatusEvent{
					Phase:   PhaseInterrupted,
					Message: "Indexing interrupted; progress saved",
				})
				return
			}
			emit(StatusEvent{
				Phase:   PhaseError,
				Message: fmt.Sprintf("Indexing failed: %v", err),
				Err:     err.Error(),
			})
			return
		}
		defer st.Close()

		info, err := os.Stat(path)
		if err != nil {
			emit(StatusEvent{
				Phase:   PhaseError,
				Message: fmt.Sprintf("Indexing failed: %v", err),
				Err:     err.Error(),
			})
			return
		}

		runner := index.NewRunner(st)
		runner.OnProgress = func(file string, done, total int) {
			emit(StatusEvent{
				Phase:   PhaseRunning,
				Message: fmt.Sprintf("Processed %d/%d: %s", done, total, file),
			})
		}

		var stats index.Stats
		var runErr error
		if info.IsDir() {
			emit(StatusEvent{Phase: PhaseRunning, Message: "Indexing directory: " + path})
			stats, runErr = runner.Directory(ctx, path)
		} else {
			emit(StatusEvent{Phase: PhaseRunning, Message: "Indexing file: " + path})
			if err := runner.File(ctx, path); err != nil {
				runErr = err
				if !errors.Is(err, context.Canceled) {
					stats.Failed = 1
					runErr = nil
				}
			} else {
				stats.Success = 1
			}
		}

		switch {
		case errors.Is(runErr, context.Canceled):
			emit(StatusEvent{
				Phase:   PhaseInterrupted,
				Message: "Indexing interrupted; progress saved",
				Stats:   stats,
			})
		case runErr != nil:
			emit(StatusEvent{
				Phase:   PhaseError,
				Message: fmt.Sprintf("Indexing failed: %v", runErr),
				Stats:   stats,
				Err:     runErr.Error(),
			})
		default:
			emit(StatusEvent{
				Phase:   PhaseCompleted,
				Message: "Indexing completed successfully",
				Stats:   stats,
			})
		}
	}
}
