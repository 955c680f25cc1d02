package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"portfolio-dashboard/src/logger"
)

// TickerFunc creates the interval source of a loop. stop releases it.
type TickerFunc func(d time.Duration) (ticks <-chan time.Time, stop func())

// RealTicker is the TickerFunc backed by time.NewTicker.
func RealTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// -----------------------------------------------------------------------------

// PollingLoop runs a refresh once on Start and then on every interval tick
// until Stop. Ticks never wait for each other: a refresh still in flight when
// the next tick fires keeps running alongside the new one.
type PollingLoop struct {
	Interval time.Duration
	Refresh  func(ctx context.Context)
	Logger   *logger.Logger
	Ticker   TickerFunc

	mu         sync.Mutex
	cancelFunc context.CancelFunc
	loopDone   chan struct{}
	inFlight   sync.WaitGroup
	isRunning  atomic.Bool
	ticks      atomic.Int64
}

// -----------------------------------------------------------------------------

func NewPollingLoop(interval time.Duration, refresh func(ctx context.Context), log *logger.Logger) *PollingLoop {
	return &PollingLoop{
		Interval: interval,
		Refresh:  refresh,
		Logger:   log,
		Ticker:   RealTicker,
	}
}

// -----------------------------------------------------------------------------

// Start fires the first refresh immediately and schedules the rest.
func (p *PollingLoop) Start(parentCtx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	// A loop whose parent context was cancelled has exited and may be restarted
	if p.cancelFunc != nil && !p.exited() {
		return fmt.Errorf("polling loop is already running")
	}
	if p.Interval <= 0 {
		return fmt.Errorf("polling interval must be greater than 0, got %v", p.Interval)
	}

	ctx, cancel := context.WithCancel(parentCtx)
	p.cancelFunc = cancel
	p.loopDone = make(chan struct{})
	p.isRunning.Store(true)

	ticks, stopTicker := p.Ticker(p.Interval)

	// Refreshes outlive Stop: in-flight requests are never cancelled
	refreshCtx := context.WithoutCancel(parentCtx)

	p.fire(refreshCtx)
	go p.runLoop(ctx, refreshCtx, ticks, stopTicker, p.loopDone)

	p.Logger.Info("Polling loop started (every %v)", p.Interval)
	return nil
}

// -----------------------------------------------------------------------------

// Stop ends scheduling and returns once the loop goroutine has exited.
// Refreshes already started keep running; use Wait to drain them.
func (p *PollingLoop) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancelFunc == nil {
		return fmt.Errorf("polling loop is not running")
	}

	p.cancelFunc()
	<-p.loopDone
	p.cancelFunc = nil
	p.isRunning.Store(false)
	p.Logger.Info("Polling loop stopped after %d ticks", p.ticks.Load())
	return nil
}

// -----------------------------------------------------------------------------

// Wait blocks until every refresh started so far has returned.
func (p *PollingLoop) Wait() {
	p.inFlight.Wait()
}

// -----------------------------------------------------------------------------

// IsRunning reports whether ticks are being scheduled. It turns false as soon
// as the loop exits, whether through Stop or a cancelled parent context.
func (p *PollingLoop) IsRunning() bool {
	return p.isRunning.Load()
}

// -----------------------------------------------------------------------------

// Ticks counts refreshes fired, the immediate one included.
func (p *PollingLoop) Ticks() int64 {
	return p.ticks.Load()
}

// -----------------------------------------------------------------------------

func (p *PollingLoop) runLoop(ctx, refreshCtx context.Context, ticks <-chan time.Time, stopTicker func(), done chan<- struct{}) {
	defer close(done)
	defer p.isRunning.Store(false)
	defer stopTicker()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticks:
			// Stop may race a pending tick; a cancelled loop fires nothing more
			if ctx.Err() != nil {
				return
			}
			p.fire(refreshCtx)
		}
	}
}

// -----------------------------------------------------------------------------

func (p *PollingLoop) exited() bool {
	select {
	case <-p.loopDone:
		return true
	default:
		return false
	}
}

// -----------------------------------------------------------------------------

func (p *PollingLoop) fire(ctx context.Context) {
	n := p.ticks.Add(1)
	p.Logger.Debug("Tick %d", n)

	p.inFlight.Add(1)
	go func() {
		defer p.inFlight.Done()
		p.Refresh(ctx)
	}()
}
