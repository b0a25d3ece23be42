package worker

import (
	"context"
	"errors"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// ErrPoolClosed is returned when submitting to a released pool.
var ErrPoolClosed = errors.New("worker pool is closed")

// Task is a unit of background work. It receives the pool's service context.
type Task func(ctx context.Context)

// Pool runs best-effort background tasks off the request path.
type Pool struct {
	pool   *ants.Pool
	logger *zap.Logger

	serviceCtx    context.Context
	serviceCancel context.CancelFunc
}

// NewPool creates a bounded pool with panic recovery.
func NewPool(ctx context.Context, size int, logger *zap.Logger) (*Pool, error) {
	serviceCtx, serviceCancel := context.WithCancel(ctx)

	panicHandler := func(p interface{}) {
		logger.Error("worker panic recovered", zap.Any("panic", p), zap.Stack("stack"))
	}

	antsPool, err := ants.NewPool(size,
		ants.WithPanicHandler(panicHandler),
		ants.WithNonblocking(false),
		ants.WithExpiryDuration(10*time.Second),
	)
	if err != nil {
		serviceCancel()
		return nil, err
	}

	return &Pool{
		pool:          antsPool,
		logger:        logger,
		serviceCtx:    serviceCtx,
		serviceCancel: serviceCancel,
	}, nil
}

// Submit queues a detached task. The task outlives the request that queued it
// but is skipped once the pool shuts down.
func (p *Pool) Submit(name string, task Task) error {
	if p.pool.IsClosed() {
		return ErrPoolClosed
	}
	err := p.pool.Submit(func() {
		select {
		case <-p.serviceCtx.Done():
			p.logger.Debug("task skipped: pool shutting down", zap.String("task", name))
			return
		default:
		}
		task(p.serviceCtx)
	})
	if errors.Is(err, ants.ErrPoolClosed) {
		return ErrPoolClosed
	}
	return err
}

// Shutdown cancels queued work and waits for running tasks up to timeout.
func (p *Pool) Shutdown(timeout time.Duration) {
	p.serviceCancel()
	if err := p.pool.ReleaseTimeout(timeout); err != nil {
		p.logger.Warn("worker pool shutdown timeout", zap.Error(err))
	}
}

// Stats reports pool occupancy for the metrics endpoint.
func (p *Pool) Stats() map[string]int {
	return map[string]int{
		"running": p.pool.Running(),
		"free":    p.pool.Free(),
		"cap":     p.pool.Cap(),
	}
}
