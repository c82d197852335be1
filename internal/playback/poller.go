// SPDX-License-Identifier: MIT
package playback

import (
	"sync"
	"time"
)

// poller calls fn on every tick until cancelled. fn receives the poller so
// the controller can ignore ticks from a poller it already replaced.
type poller struct {
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func startPoller(interval time.Duration, fn func(*poller, time.Time)) *poller {
	p := &poller{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go p.run(interval, fn)
	return p
}

func (p *poller) run(interval time.Duration, fn func(*poller, time.Time)) {
	defer close(p.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case now := <-ticker.C:
			fn(p, now)
		}
	}
}

// cancel is safe on a nil poller and may be called more than once.
func (p *poller) cancel() {
	if p == nil {
		return
	}
	p.stopOnce.Do(func() {
		close(p.stop)
	})
}

// wait blocks until the goroutine exits. It must not be called with the
// controller lock held.
func (p *poller) wait() {
	if p == nil {
		return
	}
	p.cancel()
	<-p.done
}
