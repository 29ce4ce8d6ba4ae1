package mailer

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// backlogPerWorker bounds how many emails may wait for each send slot.
const backlogPerWorker = 64

// Dispatcher sends emails in the background so callers never wait on SMTP.
// Delivery errors are logged and dropped, as are emails arriving while the backlog is full.
type Dispatcher struct {
	sender  Sender
	logger  *zerolog.Logger
	pending *semaphore.Weighted
	sending *semaphore.Weighted

	mu     sync.Mutex
	closed bool
	group  errgroup.Group
}

// NewDispatcher creates a Dispatcher allowing at most concurrency parallel sends
// and concurrency*64 queued or in-flight emails.
func NewDispatcher(sender Sender, logger *zerolog.Logger, concurrency int) *Dispatcher {
	if concurrency <= 0 {
		concurrency = 4
	}

	return &Dispatcher{
		sender:  sender,
		logger:  logger,
		pending: semaphore.NewWeighted(int64(concurrency * backlogPerWorker)),
		sending: semaphore.NewWeighted(int64(concurrency)),
	}
}

// Dispatch queues email for delivery. It returns false once the dispatcher is
// closed or its backlog is full.
func (d *Dispatcher) Dispatch(email Email) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		d.logger.Warn().Str("subject", email.Subject).Msg("mail dispatcher closed, email dropped")
		return false
	}
	if !d.pending.TryAcquire(1) {
		d.logger.Warn().Str("subject", email.Subject).Msg("mail backlog full, email dropped")
		return false
	}

	d.group.Go(func() error {
		defer d.pending.Release(1)

		// Never cancelled, so Acquire cannot fail.
		_ = d.sending.Acquire(context.Background(), 1)
		defer d.sending.Release(1)

		if err := d.sender.Send(email); err != nil {
			d.logger.Error().Err(err).Str("subject", email.Subject).Msg("failed to send email")
		}
		return nil
	})

	return true
}

// Close stops accepting emails and waits for queued sends or ctx expiry.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		_ = d.group.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
