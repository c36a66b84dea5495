package sandbox

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

var ErrPoolClosed = errors.New("sandbox pool is closed")

// Pool keeps prewarmed runtimes so a rebuild does not pay VM construction.
// Runtimes leave the pool once and are never returned.
type Pool struct {
	config Config
	log    *zap.Logger
	ready  chan *Runtime
	refill chan struct{}
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

// PoolStats is a point-in-time view of the pool
type PoolStats struct {
	Size      int  `json:"size"`
	Available int  `json:"available"`
	Closed    bool `json:"closed"`
}

// NewPool creates a runtime pool and prewarms it
func NewPool(config Config, size int, log *zap.Logger) (*Pool, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if size < 0 {
		size = 0
	}

	pool := &Pool{
		config: config,
		log:    log,
		ready:  make(chan *Runtime, size),
		refill: make(chan struct{}, 1),
		stop:   make(chan struct{}),
	}

	for i := 0; i < size; i++ {
		rt, err := New(config)
		if err != nil {
			pool.Close()
			return nil, err
		}
		pool.ready <- rt
	}

	if size > 0 {
		pool.wg.Add(1)
		go pool.refillLoop()
	}

	return pool, nil
}

// Acquire takes a fresh runtime, building one inline when the pool is empty
func (p *Pool) Acquire(ctx context.Context) (*Runtime, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, ErrPoolClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	select {
	case rt := <-p.ready:
		p.signalRefill()
		return rt, nil
	default:
	}

	p.signalRefill()
	return New(p.config)
}

func (p *Pool) signalRefill() {
	select {
	case p.refill <- struct{}{}:
	default:
	}
}

func (p *Pool) refillLoop() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stop:
			return
		case <-p.refill:
		}

		for len(p.ready) < cap(p.ready) {
			rt, err := New(p.config)
			if err != nil {
				p.log.Warn("Failed to prewarm sandbox runtime", zap.Error(err))
				break
			}
			select {
			case p.ready <- rt:
			case <-p.stop:
				rt.Close()
				return
			default:
				rt.Close()
			}
		}
	}
}

// Close stops refilling and releases idle runtimes
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.stop)
	p.mu.Unlock()

	p.wg.Wait()

	for {
		select {
		case rt := <-p.ready:
			rt.Close()
		default:
			return nil
		}
	}
}

// Stats returns pool statistics
func (p *Pool) Stats() PoolStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return PoolStats{
		Size:      cap(p.ready),
		Available: len(p.ready),
		Closed:    p.closed,
	}
}
