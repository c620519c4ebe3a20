package job

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/knowd-io/knowd/internal/logutil"
	"github.com/knowd-io/knowd/internal/service"
)

// ReprocessJob retries documents stranded in pending or processing, e.g.
// after a crash mid-ingestion or a transient provider outage.
type ReprocessJob struct {
	documents *service.DocumentService
	minAge    time.Duration
}

func NewReprocessJob(documents *service.DocumentService, minAge time.Duration) *ReprocessJob {
	if minAge <= 0 {
		minAge = 10 * time.Minute
	}
	return &ReprocessJob{documents: documents, minAge: minAge}
}

func (j *ReprocessJob) Name() string {
	return "document_reprocess"
}

func (j *ReprocessJob) Run(ctx context.Context) error {
	if j.documents == nil {
		return nil
	}
	processed, err := j.documents.ProcessStuck(ctx, time.Now().Add(-j.minAge))
	if err != nil {
		return err
	}
	if processed > 0 {
		logutil.GetLogger(ctx).Info("stuck documents reprocessed", zap.Int("count", processed))
	}
	return nil
}
