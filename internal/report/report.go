// Package report sends the realized profit summary on a cron schedule.
package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Reporter queues one summary report.
type Reporter interface {
	SendSummaryReport()
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Scheduler runs the summary report on a standard five-field cron spec or a
// descriptor such as "@daily".
type Scheduler struct {
	cron     *cron.Cron
	schedule cron.Schedule
	reporter Reporter
	logger   *zap.Logger
}

// New parses spec. An empty spec returns a nil Scheduler, which is safe to
// Start and Stop.
func New(spec string, reporter Reporter, loc *time.Location, logger *zap.Logger) (*Scheduler, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}
	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid report schedule %q: %w", spec, err)
	}

	s := &Scheduler{
		cron:     cron.New(cron.WithParser(parser), cron.WithLocation(loc)),
		schedule: schedule,
		reporter: reporter,
		logger:   logger,
	}
	s.cron.Schedule(schedule, cron.FuncJob(s.run))
	return s, nil
}

func (s *Scheduler) run() {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("summary report panicked", zap.Any("panic", r))
		}
	}()
	s.reporter.SendSummaryReport()
	s.logger.Info("summary report queued")
}

// Next returns the first run after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.schedule.Next(t)
}

func (s *Scheduler) Start() {
	if s == nil {
		return
	}
	s.cron.Start()
	s.logger.Info("report scheduler started", zap.Time("next_run", s.Next(time.Now())))
}

// Stop halts the scheduler and waits for a running report until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	if s == nil {
		return
	}
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}
