package schedule

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/knowd-io/knowd/internal/logutil"
)

type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type Scheduler interface {
	AddJob(job Job, spec string) error
	Start(ctx context.Context)
	Stop()
}

// scheduledJob carries the per-job state: its logger (job + spec fields
// attached once), the overlap guard and a run counter for log correlation.
type scheduledJob struct {
	job     Job
	logger  *zap.Logger
	running atomic.Bool
	runs    atomic.Int64
}

type CronScheduler struct {
	cron *cron.Cron
	jobs map[string]*scheduledJob
	ctx  context.Context
}

func NewCronScheduler() *CronScheduler {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return &CronScheduler{
		cron: cron.New(cron.WithParser(parser)),
		jobs: make(map[string]*scheduledJob),
	}
}

func (c *CronScheduler) AddJob(job Job, spec string) error {
	sj := &scheduledJob{
		job: job,
		logger: logutil.GetLogger(context.Background()).With(
			zap.String("job", job.Name()),
			zap.String("spec", spec),
		),
	}
	if _, err := c.cron.AddFunc(spec, func() { c.runJob(sj) }); err != nil {
		sj.logger.Error("schedule job failed", zap.Error(err))
		return err
	}
	c.jobs[job.Name()] = sj
	sj.logger.Info("job scheduled")
	return nil
}

func (c *CronScheduler) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	c.ctx = ctx
	c.cron.Start()
}

func (c *CronScheduler) Stop() {
	ctx := c.cron.Stop()
	<-ctx.Done()
}

// runJob executes one scheduled firing. Overlapping firings are skipped, and
// the run context carries a job-scoped logger so every line the job writes
// names the job and the run it belongs to.
func (c *CronScheduler) runJob(sj *scheduledJob) {
	if !sj.running.CompareAndSwap(false, true) {
		sj.logger.Info("job skipped: previous run still in progress")
		return
	}
	defer sj.running.Store(false)

	ctx := c.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	logger := sj.logger.With(zap.Int64("run", sj.runs.Add(1)))
	ctx = logutil.WithLogger(ctx, logger)

	start := time.Now()
	logger.Info("job started")
	err := sj.job.Run(ctx)
	elapsed := time.Since(start)
	if err != nil {
		logger.Error("job finished", zap.Error(err), zap.Duration("duration", elapsed))
		return
	}
	logger.Info("job finished", zap.Duration("duration", elapsed))
}
