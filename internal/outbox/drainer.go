package outbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"watchlearn/pkg/logger"
	"watchlearn/pkg/monitoring"
	"watchlearn/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Handler applies one job. It must be idempotent: a job whose ack was lost
// is delivered again.
type Handler func(ctx context.Context, job Job) error

type Policy struct {
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	MaxAttempts int
}

// Backoff is the wait after the given failed attempt: BaseBackoff doubled
// per attempt, capped at MaxBackoff.
func (p Policy) Backoff(attempt int) time.Duration {
	d := p.BaseBackoff
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	if d > p.MaxBackoff {
		return p.MaxBackoff
	}
	return d
}

// Drainer applies journaled jobs strictly in order. A failing head job is
// retried in place, holding back everything behind it, until it succeeds
// or is dead-lettered.
type Drainer struct {
	journal Journal

	mu       sync.RWMutex
	handlers map[Kind]Handler
	policy   Policy

	poll  time.Duration
	sleep func(ctx context.Context, d time.Duration) error
	wake  chan struct{}
}

type Option func(*Drainer)

// WithSleep replaces the backoff wait, mainly for tests.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(d *Drainer) { d.sleep = fn }
}

func WithPollInterval(interval time.Duration) Option {
	return func(d *Drainer) { d.poll = interval }
}

func NewDrainer(journal Journal, policy Policy, opts ...Option) *Drainer {
	d := &Drainer{
		journal:  journal,
		handlers: make(map[Kind]Handler),
		policy:   policy,
		poll:     time.Second,
		sleep:    sleepCtx,
		wake:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Drainer) Register(kind Kind, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[kind] = h
}

// SetPolicy swaps the retry policy; jobs already waiting keep their backoff.
func (d *Drainer) SetPolicy(p Policy) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.policy = p
}

func (d *Drainer) Policy() Policy {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.policy
}

func (d *Drainer) Journal() Journal {
	return d.journal
}

// Enqueue journals jobs in order and wakes the drain loop.
func (d *Drainer) Enqueue(ctx context.Context, jobs ...Job) error {
	if err := d.journal.Append(ctx, jobs...); err != nil {
		return err
	}
	select {
	case d.wake <- struct{}{}:
	default:
	}
	return nil
}

// DrainOnce applies jobs until the journal is empty and returns how many
// left the pending list.
func (d *Drainer) DrainOnce(ctx context.Context) (int, error) {
	done := 0
	for {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		job, err := d.journal.Peek(ctx)
		if err != nil {
			return done, err
		}
		if job == nil {
			return done, nil
		}
		if err := d.process(ctx, *job); err != nil {
			return done, err
		}
		done++
	}
}

func (d *Drainer) process(ctx context.Context, job Job) error {
	for {
		err := d.apply(ctx, job)
		if err == nil {
			monitoring.OutboxJobs.WithLabelValues(string(job.Kind), "ok").Inc()
			return d.journal.Ack(ctx, job)
		}

		job.Attempts++
		job.LastError = err.Error()
		policy := d.Policy()

		if IsPermanent(err) || job.Attempts >= policy.MaxAttempts {
			monitoring.OutboxJobs.WithLabelValues(string(job.Kind), "dead").Inc()
			logger.Log.Error("outbox job dead-lettered",
				zap.String("job_id", job.ID),
				zap.String("kind", string(job.Kind)),
				zap.Int("attempts", job.Attempts),
				zap.Error(err),
			)
			return d.journal.Bury(ctx, job)
		}

		wait := policy.Backoff(job.Attempts)
		monitoring.OutboxJobs.WithLabelValues(string(job.Kind), "retry").Inc()
		logger.Log.Warn("outbox job failed, retrying",
			zap.String("job_id", job.ID),
			zap.String("kind", string(job.Kind)),
			zap.Int("attempts", job.Attempts),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
		if err := d.journal.Retry(ctx, job); err != nil {
			return err
		}
		if err := d.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func (d *Drainer) apply(ctx context.Context, job Job) (err error) {
	d.mu.RLock()
	h, ok := d.handlers[job.Kind]
	d.mu.RUnlock()
	if !ok {
		return Permanent(fmt.Errorf("no handler for job kind %q", job.Kind))
	}

	ctx, span := tracing.Tracer.Start(ctx, "outbox."+string(job.Kind), trace.WithAttributes(
		attribute.String("outbox.job_id", job.ID),
		attribute.Int("outbox.attempt", job.Attempts+1),
	))
	defer span.End()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	return h(ctx, job)
}

// Run drains on every poll tick and whenever Enqueue signals, until ctx ends.
func (d *Drainer) Run(ctx context.Context) {
	ticker := time.NewTicker(d.poll)
	defer ticker.Stop()
	for {
		if _, err := d.DrainOnce(ctx); err != nil && ctx.Err() == nil {
			logger.Log.Error("outbox drain failed", zap.Error(err))
		}
		d.ReportDepth(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-d.wake:
		}
	}
}

// ReportDepth publishes the pending count as a gauge.
func (d *Drainer) ReportDepth(ctx context.Context) {
	n, err := d.journal.Len(ctx)
	if err != nil {
		logger.Log.Warn("outbox depth unavailable", zap.Error(err))
		return
	}
	monitoring.OutboxPending.Set(float64(n))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
