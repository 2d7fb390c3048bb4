package jobs

import (
	"context"
	"time"

	"github.com/storedir/store-directory/internal/domain"
	"github.com/storedir/store-directory/internal/metrics"
	"go.uber.org/zap"
)

// ExportJobName is the name of the directory export job
const ExportJobName = "store_export"

// ExportService writes directory snapshots to storage.
type ExportService interface {
	ExportToStorage(ctx context.Context) (*domain.StoreExportResult, error)
	// PruneExports deletes all but the newest retain snapshots
	PruneExports(ctx context.Context, retain int) (int, error)
}

// ExportJob snapshots the store directory and prunes old snapshots.
type ExportJob struct {
	service ExportService
	logger  *zap.Logger
	timeout time.Duration
	retain  int
}

// NewExportJob creates an export job. retain <= 0 keeps every snapshot.
func NewExportJob(service ExportService, logger *zap.Logger, timeout time.Duration, retain int) *ExportJob {
	return &ExportJob{
		service: service,
		logger:  logger,
		timeout: timeout,
		retain:  retain,
	}
}

// Run executes one export. A failed prune does not fail the export.
func (j *ExportJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()

	result, err := j.service.ExportToStorage(ctx)
	if err != nil {
		metrics.RecordExport(false, time.Since(start))
		j.logger.Error("store export failed",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return
	}

	pruned, err := j.service.PruneExports(ctx, j.retain)
	if err != nil {
		j.logger.Warn("failed to prune old exports", zap.Error(err))
	}

	duration := time.Since(start)
	metrics.RecordExport(true, duration)

	j.logger.Info("store export job completed",
		zap.String("storage_path", result.StoragePath),
		zap.Int("stores", result.Count),
		zap.Int64("size", result.Size),
		zap.Int("pruned", pruned),
		zap.Duration("duration", duration))
}

// RegisterExportJob registers the export job with the scheduler. When
// runOnStartup is set, one export also runs in the background right away;
// Scheduler.Stop waits for it.
func RegisterExportJob(scheduler *Scheduler, service ExportService, logger *zap.Logger, cronExpr string, timeout time.Duration, retain int, runOnStartup bool) error {
	job := NewExportJob(service, logger, timeout, retain)

	if err := scheduler.AddJob(ExportJobName, cronExpr, job.Run); err != nil {
		return err
	}

	if runOnStartup {
		scheduler.RunNow(ExportJobName, job.Run)
	}
	return nil
}
