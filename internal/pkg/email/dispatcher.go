package email

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Queue accepts notifications for asynchronous delivery.
type Queue interface {
	Enqueue(to Recipient, n Notification) bool
}

// DispatcherConfig sizes the background dispatcher
type DispatcherConfig struct {
	QueueSize     int
	Workers       int
	RatePerSecond float64
	SendTimeout   time.Duration
}

type job struct {
	to Recipient
	n  Notification
}

// Dispatcher is a bounded, rate-limited background sender. Delivery is best
// effort: a full queue drops the notification and failures are only logged.
type Dispatcher struct {
	notifier Notifier
	queue    chan job
	limiter  *rate.Limiter
	workers  int
	timeout  time.Duration
	logger   zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewDispatcher creates a dispatcher; call Start to launch its workers.
func NewDispatcher(notifier Notifier, cfg DispatcherConfig, logger zerolog.Logger) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 30 * time.Second
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		notifier: notifier,
		queue:    make(chan job, cfg.QueueSize),
		limiter:  rate.NewLimiter(limit, cfg.Workers),
		workers:  cfg.Workers,
		timeout:  cfg.SendTimeout,
		logger:   logger.With().Str("component", "notifications").Logger(),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the worker goroutines.
func (d *Dispatcher) Start() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.run()
	}
	d.logger.Info().Int("workers", d.workers).Int("queueSize", cap(d.queue)).Msg("notification dispatcher started")
}

// Stop signals the workers to stop and waits for them to finish. Queued
// notifications that were not yet picked up are dropped.
func (d *Dispatcher) Stop() {
	d.once.Do(func() {
		d.cancel()
		d.wg.Wait()
		if n := len(d.queue); n > 0 {
			d.logger.Warn().Int("dropped", n).Msg("notification dispatcher stopped with pending notifications")
			return
		}
		d.logger.Info().Msg("notification dispatcher stopped")
	})
}

// Enqueue schedules a notification without blocking. It reports false when
// the dispatcher is stopped or the queue is full.
func (d *Dispatcher) Enqueue(to Recipient, n Notification) bool {
	if d.ctx.Err() != nil {
		return false
	}
	select {
	case d.queue <- job{to: to, n: n}:
		return true
	default:
		d.logger.Warn().
			Str("toEmail", to.Email).
			Str("template", string(n.Template)).
			Msg("notification queue full, dropping notification")
		return false
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return
		case j := <-d.queue:
			d.deliver(j)
		}
	}
}

func (d *Dispatcher) deliver(j job) {
	if err := d.limiter.Wait(d.ctx); err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(d.ctx, d.timeout)
	defer cancel()

	if err := d.notifier.SendNotification(ctx, j.to, j.n); err != nil {
		d.logger.Error().
			Err(err).
			Str("toEmail", j.to.Email).
			Str("template", string(j.n.Template)).
			Msg("failed to send notification")
		return
	}
	d.logger.Debug().Str("toEmail", j.to.Email).Str("template", string(j.n.Template)).Msg("notification sent")
}
