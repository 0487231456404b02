package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is one piece of periodic maintenance.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

type Scheduler struct {
	c      *cron.Cron
	spec   string
	logger *slog.Logger
}

// New registers every job on the same standard 5-field cron spec. Jobs run
// one after another on each tick; a failing job does not stop the others.
func New(spec string, logger *slog.Logger, jobs ...Job) (*Scheduler, error) {
	s := &Scheduler{
		c:      cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		spec:   spec,
		logger: logger,
	}
	_, err := s.c.AddFunc(spec, func() { s.RunOnce(context.Background(), jobs...) })
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) RunOnce(ctx context.Context, jobs ...Job) {
	for _, job := range jobs {
		start := time.Now()
		if err := job.Run(ctx); err != nil {
			s.logger.ErrorContext(ctx, "Scheduled job failed", slog.String("job", job.Name), slog.Any("error", err))
			continue
		}
		s.logger.DebugContext(ctx, "Scheduled job done", slog.String("job", job.Name), slog.Duration("took", time.Since(start)))
	}
}

func (s *Scheduler) Start() {
	s.logger.Info("Starting scheduler", slog.String("cron", s.spec))
	s.c.Start()
}

// Stop waits for a running tick to finish.
func (s *Scheduler) Stop() {
	<-s.c.Stop().Done()
}
