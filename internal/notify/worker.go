package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultMinCooldown     = time.Second
	DefaultDefaultCooldown = 5 * time.Second
)

// Sender delivers messages to one sink.
type Sender interface {
	Name() string
	// Ready reports whether the sink is enabled and configured. Messages
	// dequeued while a sink is not ready are dropped.
	Ready() bool
	Send(ctx context.Context, m Message) error
}

// ThrottledError is returned by a Sender when the sink asked us to back off.
type ThrottledError struct {
	RetryAfter time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// WorkerConfig bounds the cooldown applied after throttling.
type WorkerConfig struct {
	MinCooldown     time.Duration
	DefaultCooldown time.Duration
}

func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		MinCooldown:     DefaultMinCooldown,
		DefaultCooldown: DefaultDefaultCooldown,
	}
}

// Worker drains a Queue into a Sender, one message at a time.
type Worker struct {
	queue  *Queue
	sender Sender
	config WorkerConfig
	logger *zap.Logger
	now    func() time.Time

	cooldownUntil time.Time
}

func NewWorker(queue *Queue, sender Sender, config WorkerConfig, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.MinCooldown <= 0 {
		config.MinCooldown = DefaultMinCooldown
	}
	if config.DefaultCooldown <= 0 {
		config.DefaultCooldown = DefaultDefaultCooldown
	}
	return &Worker{
		queue:  queue,
		sender: sender,
		config: config,
		logger: logger.With(zap.String("sink", sender.Name())),
		now:    time.Now,
	}
}

// Run processes messages until ctx is done.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("notification worker started")
	for {
		m, err := w.queue.Next(ctx)
		if err != nil {
			w.logger.Info("notification worker stopped", zap.Int("pending", w.queue.Len()))
			return
		}
		if err := w.waitCooldown(ctx); err != nil {
			w.queue.Enqueue(m)
			w.logger.Info("notification worker stopped", zap.Int("pending", w.queue.Len()))
			return
		}
		w.process(ctx, m)
	}
}

func (w *Worker) waitCooldown(ctx context.Context) error {
	d := w.cooldownUntil.Sub(w.now())
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (w *Worker) process(ctx context.Context, m Message) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("notification send panicked", zap.Any("panic", r), zap.String("kind", string(m.Kind)))
		}
	}()

	if !w.sender.Ready() {
		w.logger.Debug("sink not ready, dropping notification",
			zap.String("kind", string(m.Kind)), zap.String("item", m.ItemName))
		return
	}

	err := w.sender.Send(ctx, m)
	if err == nil {
		w.logger.Debug("notification sent", zap.String("kind", string(m.Kind)), zap.String("item", m.ItemName))
		return
	}

	var throttled *ThrottledError
	if errors.As(err, &throttled) {
		delay := throttled.RetryAfter
		if delay <= 0 {
			delay = w.config.DefaultCooldown
		}
		if delay < w.config.MinCooldown {
			delay = w.config.MinCooldown
		}
		w.cooldownUntil = w.now().Add(delay)
		m.Attempts++
		w.logger.Warn("sink rate limit hit, requeueing",
			zap.Duration("cooldown", delay),
			zap.Int("attempts", m.Attempts),
			zap.String("item", m.ItemName))
		if ctx.Err() == nil {
			w.queue.Enqueue(m)
		}
		return
	}

	w.logger.Warn("failed to send notification",
		zap.Error(err), zap.String("kind", string(m.Kind)), zap.String("item", m.ItemName))
}
