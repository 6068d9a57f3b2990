package application

import (
	"sync/atomic"

	"github.com/bnema/online-session-kit/internal/event"
)

// Completion is a caller-owned flag set once the asynchronous call it was
// passed to has finished. Poll Done between Tick calls. A nil Completion is
// valid and ignored.
type Completion struct {
	done atomic.Bool
	err  error
}

func (c *Completion) Done() bool {
	return c != nil && c.done.Load()
}

// Err is the call's outcome. It is only meaningful once Done reports true.
func (c *Completion) Err() error {
	if !c.Done() {
		return nil
	}
	return c.err
}

// finish records the first outcome; later calls are ignored.
func (c *Completion) finish(err error) {
	if c == nil || c.done.Load() {
		return
	}
	c.err = err
	c.done.Store(true)
}

// Publisher receives upward events. *event.Bus satisfies it.
type Publisher interface {
	Publish(ev event.Event)
}

type PublisherFunc func(ev event.Event)

func (f PublisherFunc) Publish(ev event.Event) {
	if f != nil {
		f(ev)
	}
}

type nopPublisher struct{}

func (nopPublisher) Publish(event.Event) {}
