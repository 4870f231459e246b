package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Reconciler converges open orders with the provider's view.
type Reconciler interface {
	Reconcile(ctx context.Context, staleAfter, expireAfter time.Duration) (int, error)
}

// Options controls the reconcile job.
type Options struct {
	// Schedule is a six-field cron spec (seconds first).
	Schedule    string
	StaleAfter  time.Duration
	ExpireAfter time.Duration
	// Timeout bounds one run.
	Timeout time.Duration
}

// Scheduler runs the payment reconcile job.
type Scheduler struct {
	cron       *cron.Cron
	reconciler Reconciler
	opts       Options
	logger     *zap.Logger
}

// New creates a new cron scheduler. Runs never overlap.
func New(reconciler Reconciler, opts Options, logger *zap.Logger) *Scheduler {
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Minute
	}
	logger = logger.Named("cron")
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(
				cron.Recover(zapCronLogger{logger}),
				cron.SkipIfStillRunning(zapCronLogger{logger}),
			),
		),
		reconciler: reconciler,
		opts:       opts,
		logger:     logger,
	}
}

// Start registers and starts the jobs.
func (s *Scheduler) Start() error {
	s.logger.Info("Starting cron scheduler...", zap.String("schedule", s.opts.Schedule))

	if _, err := s.cron.AddFunc(s.opts.Schedule, func() {
		s.logger.Debug("Running: payment reconcile")
		s.RunOnce(context.Background())
	}); err != nil {
		return fmt.Errorf("invalid reconcile schedule %q: %w", s.opts.Schedule, err)
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler. The returned context is done once running jobs
// have finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// RunOnce runs one reconcile pass.
func (s *Scheduler) RunOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	start := time.Now()
	n, err := s.reconciler.Reconcile(ctx, s.opts.StaleAfter, s.opts.ExpireAfter)
	if err != nil {
		s.logger.Error("payment reconcile failed", zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Info("payment reconcile finished",
			zap.Int("orders", n),
			zap.Duration("took", time.Since(start)))
	}
}

// zapCronLogger adapts zap to cron.Logger.
type zapCronLogger struct {
	logger *zap.Logger
}

func (l zapCronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l zapCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
