package session

import (
	"sync"

	"github.com/nao1215/fedsearch/internal/model"
)

// dispatcher delivers signals to a listener from a single goroutine.
// push never blocks, so producers cannot stall behind a slow listener, and
// the listener may push (for example by calling Stop) without deadlocking.
type dispatcher struct {
	listener model.Listener

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []model.Signal
	closed bool

	delivered chan struct{}
}

func newDispatcher(listener model.Listener) *dispatcher {
	d := &dispatcher{
		listener:  listener,
		delivered: make(chan struct{}),
	}
	d.cond = sync.NewCond(&d.mu)
	go d.loop()
	return d
}

// push queues sig. Signals pushed after an End are dropped. It reports
// whether sig was queued.
func (d *dispatcher) push(sig model.Signal) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false
	}
	d.queue = append(d.queue, sig)
	if sig.Kind == model.SignalEnd {
		d.closed = true
	}
	d.cond.Signal()
	return true
}

func (d *dispatcher) loop() {
	defer close(d.delivered)
	for {
		d.mu.Lock()
		for len(d.queue) == 0 {
			d.cond.Wait()
		}
		sig := d.queue[0]
		d.queue[0] = model.Signal{}
		d.queue = d.queue[1:]
		d.mu.Unlock()

		d.listener(sig)
		if sig.Kind == model.SignalEnd {
			return
		}
	}
}
