package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// jobTimeout bounds one run of any background job.
const jobTimeout = 5 * time.Minute

// Job is one unit of recurring background work.
type Job func(ctx context.Context) error

// Scheduler runs the background jobs the API server owns: the activity-timer
// sweep, the location-history purge and shared-location expiry. Jobs are
// wrapped with a timeout and panic recovery so one bad run never takes the
// loop down.
type Scheduler struct {
	cron *cron.Cron
	log  *zap.Logger
}

func New(log *zap.Logger) *Scheduler {
	c := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))
	return &Scheduler{cron: c, log: log}
}

// Add schedules a named job on a cron spec ("@every 1m", "30 3 * * *", ...).
func (s *Scheduler) Add(spec, name string, job Job) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		start := time.Now()
		if err := job(ctx); err != nil {
			s.log.Error("background job failed",
				zap.String("job", name),
				zap.Duration("took", time.Since(start)),
				zap.Error(err))
			return
		}
		s.log.Debug("background job done",
			zap.String("job", name),
			zap.Duration("took", time.Since(start)))
	})
	return err
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
