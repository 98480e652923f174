package publish

import (
	"context"
	"os"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vkozyrev/chanrelay/internal/infra"
	"github.com/vkozyrev/chanrelay/internal/observability"
)

// A panicking delivery must not take the worker loop down with it.
const maxPanics = 5

// Sender performs the outbound send of one delivery to the broadcast
// destination.
type Sender interface {
	SendMedia(ctx context.Context, d Delivery) error
}

// Outcome is the worker's typed result for one delivery attempt. Failed
// deliveries are dropped after this single attempt, never retried.
type Outcome struct {
	Delivery Delivery
	Err      error
	Elapsed  time.Duration
}

func (o Outcome) Delivered() bool {
	return o.Err == nil
}

// Worker drains the queue one item at a time, so at most one outbound media
// send is in flight at any moment. It implements lifecycle.Component.
type Worker struct {
	queue   *Queue
	sender  Sender
	timeout time.Duration
	logger  *log.Entry

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewWorker(queue *Queue, sender Sender, timeout time.Duration) *Worker {
	return &Worker{
		queue:   queue,
		sender:  sender,
		timeout: timeout,
		logger:  log.WithField("context", "publish_worker"),
	}
}

func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		infra.GoRecoverable(maxPanics, "publish_worker", func() { w.run(runCtx) })
	}()
	w.started = true
	return nil
}

// Stop cancels the loop and waits for the in-flight attempt to finish.
// Queued but undelivered items are not flushed.
func (w *Worker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return nil
	}
	w.started = false
	cancel := w.cancel
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		w.wg.Wait()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (w *Worker) run(ctx context.Context) {
	w.logger.Debug("publish worker started")
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("shutting down publish worker by cancelled context")
			return
		case d := <-w.queue.ch:
			outcome := w.deliver(ctx, d)
			observability.RecordDelivery(string(d.Kind), outcome.Delivered())
			observability.LogDelivery(string(d.Kind), outcome.Delivered(), outcome.Elapsed)
			observability.SetQueueDepth(w.queue.Len())
			if !outcome.Delivered() {
				w.logger.WithFields(log.Fields{
					"kind":    d.Kind,
					"path":    d.LocalPath,
					"elapsed": outcome.Elapsed,
				}).WithError(outcome.Err).Error("delivery failed, dropping")
			}
		}
	}
}

// deliver makes the single send attempt and releases the staged file
// unconditionally, success or failure.
func (w *Worker) deliver(ctx context.Context, d Delivery) Outcome {
	sendCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	start := time.Now()
	err := w.sender.SendMedia(sendCtx, d)
	elapsed := time.Since(start)

	if removeErr := os.Remove(d.LocalPath); removeErr != nil && !os.IsNotExist(removeErr) {
		w.logger.WithField("path", d.LocalPath).WithError(removeErr).Warn("cant remove staged media")
	}

	return Outcome{Delivery: d, Err: err, Elapsed: elapsed}
}
