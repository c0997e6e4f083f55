package feed

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// cycleTimeout bounds one whole update cycle so a hung transfer cannot hold
// the single-writer lock across poll intervals.
const cycleTimeout = 10 * time.Minute

// Poller triggers a feed update on a fixed cadence. It reschedules itself
// regardless of the outcome of each cycle.
type Poller struct {
	fetcher  *Fetcher
	interval time.Duration

	mu       sync.Mutex
	cancel   context.CancelFunc
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewPoller creates a background poller running Update every interval.
func NewPoller(fetcher *Fetcher, interval time.Duration) *Poller {
	return &Poller{
		fetcher:  fetcher,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start begins the polling loop.
func (p *Poller) Start() {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			ctx, cancel := context.WithTimeout(context.Background(), cycleTimeout)
			p.mu.Lock()
			p.cancel = cancel
			p.mu.Unlock()

			if err := p.fetcher.Update(ctx); err != nil {
				logrus.WithError(err).Warn("scheduled feed update failed")
			}
			cancel()

			select {
			case <-p.stopChan:
				return
			case <-time.After(p.interval):
			}
		}
	}()
}

// Stop cancels any in-flight cycle and waits for the loop to exit.
func (p *Poller) Stop() {
	close(p.stopChan)
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	p.mu.Unlock()
	p.wg.Wait()
}
