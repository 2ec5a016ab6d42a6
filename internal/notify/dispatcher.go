package notify

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const sendTimeout = 30 * time.Second

// Dispatcher hands messages to a fixed pool of workers so that mail delivery never
// runs on the request path. Delivery failures are logged and dropped.
type Dispatcher struct {
	mailer Mailer
	queue  chan Message
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewDispatcher starts workers goroutines draining a queue of size capacity
func NewDispatcher(mailer Mailer, workers, size int) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if size < 0 {
		size = 0
	}
	d := &Dispatcher{
		mailer: mailer,
		queue:  make(chan Message, size),
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
	return d
}

// Notify enqueues msg without blocking. A full or closed queue drops the message.
func (d *Dispatcher) Notify(msg Message) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		logrus.WithField("subject", msg.Subject).Warn("Notification dropped, dispatcher closed")
		return
	}
	select {
	case d.queue <- msg:
	default:
		logrus.WithFields(logrus.Fields{
			"to":      msg.To,
			"subject": msg.Subject,
		}).Error("Notification dropped, queue full")
	}
}

// Close stops accepting messages and waits for queued ones to be sent
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for msg := range d.queue {
		d.deliver(msg)
	}
}

func (d *Dispatcher) deliver(msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	if err := d.mailer.Send(ctx, msg); err != nil {
		logrus.WithFields(logrus.Fields{
			"to":      msg.To,
			"subject": msg.Subject,
			"error":   err.Error(),
		}).Error("Email error")
	}
}
