package mailer

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/time/rate"
)

// Dispatcher queues messages and sends them in the background. Enqueue never
// blocks: a full queue drops the message and logs a warning.
type Dispatcher struct {
	sender  Sender
	limiter *rate.Limiter
	logger  *slog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan Message

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewDispatcher starts the delivery goroutine. ratePerSec limits outbound
// messages per second with a burst of one.
func NewDispatcher(sender Sender, ratePerSec float64, queueLen int, logger *slog.Logger) *Dispatcher {
	if queueLen < 1 {
		queueLen = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		sender:  sender,
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), 1),
		logger:  logger,
		queue:   make(chan Message, queueLen),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	go d.run()
	return d
}

// Enqueue reports whether the message was accepted
func (d *Dispatcher) Enqueue(msg Message) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.logger.Warn("mail dropped, dispatcher closed", "to", msg.To, "subject", msg.Subject)
		return false
	}

	select {
	case d.queue <- msg:
		return true
	default:
		d.logger.Warn("mail dropped, queue full", "to", msg.To, "subject", msg.Subject)
		return false
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)

	for msg := range d.queue {
		if err := d.limiter.Wait(d.ctx); err != nil {
			d.logger.Warn("mail dropped during shutdown", "to", msg.To, "subject", msg.Subject)
			continue
		}
		if err := d.sender.Send(d.ctx, msg); err != nil {
			d.logger.Error("failed to send mail", "to", msg.To, "subject", msg.Subject, "error", err)
		}
	}
}

// Close stops accepting messages and waits for the queue to drain. When ctx
// ends first, in-flight and queued messages are abandoned.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-d.done
		return ctx.Err()
	}
}
