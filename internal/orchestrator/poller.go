package orchestrator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/depthview/depthview-client/internal/stages"
)

// ErrPollerStarted is returned when Start is invoked on a running poller.
var ErrPollerStarted = errors.New("poller already started")

// Poller periodically fetches progress snapshots until stopped. Each
// successful fetch is handed to the configured callback; a failed or
// malformed fetch is dropped and the next tick proceeds as usual. Ticks are
// independent, there is no retry or backoff state.
type Poller struct {
	interval time.Duration
	fetch    func(ctx context.Context) (stages.Snapshot, error)
	handle   func(stages.Snapshot)

	started  atomic.Bool
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewPoller builds a poller. fetch retrieves one snapshot; handle consumes
// every snapshot successfully fetched before Stop.
func NewPoller(interval time.Duration, fetch func(ctx context.Context) (stages.Snapshot, error), handle func(stages.Snapshot)) *Poller {
	return &Poller{
		interval: interval,
		fetch:    fetch,
		handle:   handle,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the polling loop. A second Start on the same poller is
// rejected; one Poller never drives two loops.
func (p *Poller) Start(ctx context.Context) error {
	if p.started.Swap(true) {
		return ErrPollerStarted
	}
	go p.loop(ctx)
	return nil
}

// Stop prevents any further tick from firing. It is safe to call multiple
// times and before Start; an in-flight fetch is not aborted, but its result
// is discarded once Stop has been observed.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
}

// Done is closed when the polling loop has fully exited.
func (p *Poller) Done() <-chan struct{} {
	return p.done
}

func (p *Poller) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap, err := p.fetch(ctx)
			if err != nil {
				continue
			}
			select {
			case <-p.stop:
				return
			default:
				p.handle(snap)
			}
		}
	}
}
