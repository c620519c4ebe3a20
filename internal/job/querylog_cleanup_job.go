package job

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/knowd-io/knowd/internal/logutil"
	"github.com/knowd-io/knowd/internal/repo"
)

// QueryLogCleanupJob trims audit rows older than the retention window.
type QueryLogCleanupJob struct {
	logs          *repo.QueryLogRepo
	retentionDays int
}

func NewQueryLogCleanupJob(logs *repo.QueryLogRepo, retentionDays int) *QueryLogCleanupJob {
	return &QueryLogCleanupJob{logs: logs, retentionDays: retentionDays}
}

func (j *QueryLogCleanupJob) Name() string {
	return "querylog_cleanup"
}

func (j *QueryLogCleanupJob) Run(ctx context.Context) error {
	if j.logs == nil || j.retentionDays <= 0 {
		return nil
	}
	cutoff := time.Now().AddDate(0, 0, -j.retentionDays).Unix()
	deleted, err := j.logs.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}
	if deleted > 0 {
		logutil.GetLogger(ctx).Info("expired query logs removed", zap.Int64("deleted", deleted))
	}
	return nil
}
