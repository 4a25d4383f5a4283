package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/BradenHooton/ticketdesk/internal/metrics"
	"github.com/BradenHooton/ticketdesk/pkg/logger"
	"github.com/oklog/ulid/v2"
	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"
)

var (
	ErrQueueFull        = errors.New("notification queue is full")
	ErrDispatcherClosed = errors.New("notification dispatcher is closed")
)

// Job is one queued reset notification
type Job struct {
	ID         string
	To         string
	Token      string
	Name       string
	EnqueuedAt time.Time
}

type DispatcherConfig struct {
	QueueSize     int
	MaxRetries    int
	RatePerSecond float64
	BaseBackoff   time.Duration
	SendTimeout   time.Duration
}

func (c *DispatcherConfig) setDefaults() {
	if c.QueueSize < 1 {
		c.QueueSize = 100
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = 500 * time.Millisecond
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = 10 * time.Second
	}
}

// Dispatcher sends notifications from a bounded queue on a single worker so the
// request that produced them never waits on the mail provider. Sends are throttled
// and retried with exponential backoff; a job that exhausts its retries is logged and dropped.
type Dispatcher struct {
	notifier Notifier
	cfg      DispatcherConfig
	queue    chan Job
	limiter  *rate.Limiter
	logger   *slog.Logger
	metrics  *metrics.Metrics

	mu     sync.RWMutex
	closed bool
	cancel context.CancelFunc
	done   chan struct{}
}

func NewDispatcher(notifier Notifier, cfg DispatcherConfig, logger *slog.Logger, m *metrics.Metrics) *Dispatcher {
	cfg.setDefaults()

	limit := rate.Inf
	burst := 1
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
		burst = max(1, int(cfg.RatePerSecond))
	}

	return &Dispatcher{
		notifier: notifier,
		cfg:      cfg,
		queue:    make(chan Job, cfg.QueueSize),
		limiter:  rate.NewLimiter(limit, burst),
		logger:   logger,
		metrics:  m,
		done:     make(chan struct{}),
	}
}

// Dispatch queues a reset notification and returns its job id without waiting for delivery
func (d *Dispatcher) Dispatch(ctx context.Context, to, token, name string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return "", ErrDispatcherClosed
	}

	job := Job{
		ID:         ulid.Make().String(),
		To:         to,
		Token:      token,
		Name:       name,
		EnqueuedAt: time.Now(),
	}

	select {
	case d.queue <- job:
		d.metrics.NotifyQueueDepth(len(d.queue))
		d.logger.DebugContext(ctx, "notification queued",
			slog.String("job_id", job.ID),
			slog.String("email", logger.SanitizedEmail(to)))
		return job.ID, nil
	default:
		d.metrics.Notification("dropped")
		return "", ErrQueueFull
	}
}

// Start runs the worker until Stop is called or ctx is cancelled
func (d *Dispatcher) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	d.mu.Lock()
	d.cancel = cancel
	d.mu.Unlock()

	go func() {
		defer close(d.done)
		for {
			select {
			case job, ok := <-d.queue:
				if !ok {
					return
				}
				d.metrics.NotifyQueueDepth(len(d.queue))
				d.deliver(ctx, job)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop refuses new jobs and waits for queued ones to be sent until ctx expires
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	cancel := d.cancel
	d.mu.Unlock()

	if cancel == nil {
		return nil
	}

	select {
	case <-d.done:
		cancel()
		return nil
	case <-ctx.Done():
		cancel()
		<-d.done
		return fmt.Errorf("notification queue not drained: %w", ctx.Err())
	}
}

func (d *Dispatcher) deliver(ctx context.Context, job Job) {
	attempts := 0
	backoff := retry.WithMaxRetries(uint64(d.cfg.MaxRetries), retry.NewExponential(d.cfg.BaseBackoff))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := d.limiter.Wait(ctx); err != nil {
			return err
		}

		attempts++
		sendCtx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
		defer cancel()

		if err := d.notifier.SendPasswordReset(sendCtx, job.To, job.Token, job.Name); err != nil {
			d.logger.Warn("notification attempt failed",
				slog.String("job_id", job.ID),
				slog.Int("attempt", attempts),
				slog.Any("error", err))
			return retry.RetryableError(err)
		}
		return nil
	})

	if err != nil {
		d.metrics.Notification("failed")
		d.logger.Error("notification dropped after retries",
			slog.String("job_id", job.ID),
			slog.String("email", logger.SanitizedEmail(job.To)),
			slog.Int("attempts", attempts),
			slog.Any("error", err))
		return
	}

	d.metrics.Notification("sent")
	d.logger.Info("notification sent",
		slog.String("job_id", job.ID),
		slog.Int("attempts", attempts),
		slog.Duration("latency", time.Since(job.EnqueuedAt)))
}
