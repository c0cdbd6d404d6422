package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shiftnews/shift/internal/models"
	"github.com/shiftnews/shift/internal/story"
)

// RunRecorder persists run summaries.
type RunRecorder interface {
	Create(ctx context.Context, run *models.Run) error
}

// SnapshotStore persists a run's story list and returns its key prefix.
type SnapshotStore interface {
	StoreSnapshot(ctx context.Context, runID uuid.UUID, startedAt time.Time, data string, stories []story.Story) (string, error)
}

// Archiver records finished runs. Either store may be nil.
type Archiver struct {
	Runs      RunRecorder
	Snapshots SnapshotStore
}

// Archive stores the snapshot first so the run row can reference it. A
// snapshot failure is logged and the run is still recorded.
func (a *Archiver) Archive(ctx context.Context, res Result) (*models.Run, error) {
	run := RunRecord(res)

	if a.Snapshots != nil {
		key, err := a.Snapshots.StoreSnapshot(ctx, res.RunID, res.StartedAt, res.Data, res.Stories)
		if err != nil {
			slog.Warn("archive: snapshot upload failed", "run", res.RunID, "err", err)
		}
		run.SnapshotKey = key
	}

	if a.Runs != nil {
		if err := a.Runs.Create(ctx, run); err != nil {
			return run, fmt.Errorf("archive: record run: %w", err)
		}
	}
	return run, nil
}

// RunRecord converts a run result into its archive row.
func RunRecord(res Result) *models.Run {
	return &models.Run{
		ID:            res.RunID,
		StartedAt:     res.StartedAt,
		DurationMS:    res.Duration.Milliseconds(),
		Data:          res.Data,
		Translation:   res.Translation,
		RawItems:      res.Raw,
		Items:         res.Items,
		Clusters:      res.Clusters,
		Stories:       len(res.Stories),
		Translated:    res.Translated,
		FailedSources: res.FailedSources,
	}
}
