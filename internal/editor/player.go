package editor

import (
	"context"
	"sync"
	"time"
)

// Player drives the store clock from wall time at the session frame rate.
// It only calls Tick; the store decides what a tick means, so a player can
// be started and cancelled freely without touching playback semantics.
type Player struct {
	store  *Store
	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewPlayer(s *Store) *Player {
	return &Player{store: s}
}

// Start launches the tick loop. It is a no-op while a loop is already
// running. The loop ends when ctx is cancelled, Stop is called, or the
// store reports playback finished.
func (p *Player) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		select {
		case <-p.done:
			// previous loop finished on its own
			p.cancel()
			p.cancel = nil
		default:
			return
		}
	}
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	interval := time.Second / time.Duration(p.store.FPS())
	go p.run(ctx, interval, p.done)
}

func (p *Player) run(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if !p.store.Tick(now) {
				return
			}
		}
	}
}

// Stop cancels the loop and waits for it to exit.
func (p *Player) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	done := p.done
	p.cancel = nil
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the tick loop is live.
func (p *Player) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel == nil {
		return false
	}
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}
