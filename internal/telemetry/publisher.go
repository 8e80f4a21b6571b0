// SPDX-License-Identifier: MIT
package telemetry

import (
	"errors"
	"sync"
	"time"

	"enginesound/internal/log"
	"enginesound/internal/transport"
)

var logger = log.New("telemetry")

// Source yields Snapshots. It is satisfied by *Collector.
type Source interface {
	Snapshot() Snapshot
}

// Publisher periodically takes a Snapshot and sends it over a transport.
type Publisher struct {
	source    Source
	transport transport.Transport
	interval  time.Duration

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex

	sent   uint64
	failed uint64
}

// NewPublisher returns a stopped Publisher. Intervals <= 0 default to 33ms.
func NewPublisher(interval time.Duration, source Source, t transport.Transport) (*Publisher, error) {
	if source == nil {
		return nil, errors.New("publisher: source cannot be nil")
	}
	if t == nil {
		return nil, errors.New("publisher: transport cannot be nil")
	}
	if interval <= 0 {
		interval = 33 * time.Millisecond
		logger.Warnf("Invalid interval provided, defaulting to %s", interval)
	}
	return &Publisher{source: source, transport: t, interval: interval}, nil
}

// Start launches the publishing goroutine. Calling Start on a running
// Publisher is a no-op.
func (p *Publisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		logger.Warnf("Start called but already running.")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}
	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		logger.Infof("Publisher started (Interval: %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.publish()
			case <-doneChan:
				return
			}
		}
	}()
}

func (p *Publisher) publish() {
	snap := p.source.Snapshot()
	if err := p.transport.Send(snap); err != nil {
		p.failed++
		// Only the first failure and every hundredth after it reach the log.
		if p.failed%100 == 1 {
			logger.Warnf("Send failed (%d so far): %v", p.failed, err)
		}
		return
	}
	p.sent++
}

// Stop terminates the goroutine and waits for it. Safe to call repeatedly.
func (p *Publisher) Stop() {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return
	}
	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	logger.Infof("Publisher stopped after %d snapshots", p.sent)
}

// Close stops the publisher and closes its transport.
func (p *Publisher) Close() error {
	p.Stop()
	return p.transport.Close()
}
