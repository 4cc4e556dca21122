// Package resource tracks memory and IO budgets shared across graph readers.
package resource

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds resource limits for graph shard access.
type Config struct {
	// MemoryLimitBytes caps memory tracked by the controller (decoded shard
	// cache). If 0, usage is tracked but not limited.
	MemoryLimitBytes int64

	// MaxConcurrentLoads bounds concurrent shard loads from the blob store.
	// If 0, defaults to 4.
	MaxConcurrentLoads int64

	// IOLimitBytesPerSec throttles shard-load throughput. If 0, unlimited.
	IOLimitBytesPerSec int64
}

// Controller enforces the configured limits. A nil Controller is valid and
// enforces nothing.
type Controller struct {
	memLimit int64
	memUsed  atomic.Int64

	loadSem   *semaphore.Weighted
	ioLimiter *rate.Limiter
}

// NewController creates a controller for the given limits.
func NewController(cfg Config) *Controller {
	maxLoads := cfg.MaxConcurrentLoads
	if maxLoads <= 0 {
		maxLoads = 4
	}

	c := &Controller{
		memLimit: cfg.MemoryLimitBytes,
		loadSem:  semaphore.NewWeighted(maxLoads),
	}
	if cfg.IOLimitBytesPerSec > 0 {
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}
	return c
}

// TryAcquireMemory reserves bytes if the limit allows it.
func (c *Controller) TryAcquireMemory(bytes int64) bool {
	if c == nil || bytes <= 0 {
		return true
	}
	for {
		used := c.memUsed.Load()
		if c.memLimit > 0 && used+bytes > c.memLimit {
			return false
		}
		if c.memUsed.CompareAndSwap(used, used+bytes) {
			return true
		}
	}
}

// ReleaseMemory returns previously acquired bytes.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}
	c.memUsed.Add(-bytes)
}

// MemoryUsage reports currently tracked bytes.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}

// AcquireLoadSlot blocks until a shard-load slot is available.
func (c *Controller) AcquireLoadSlot(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.loadSem.Acquire(ctx, 1)
}

// ReleaseLoadSlot releases a slot acquired with AcquireLoadSlot.
func (c *Controller) ReleaseLoadSlot() {
	if c == nil {
		return
	}
	c.loadSem.Release(1)
}

// WaitIO blocks until the IO budget admits a read of the given size.
func (c *Controller) WaitIO(ctx context.Context, bytes int) error {
	if c == nil || c.ioLimiter == nil || bytes <= 0 {
		return nil
	}
	burst := c.ioLimiter.Burst()
	// Large reads are admitted in burst-sized slices.
	for bytes > 0 {
		n := bytes
		if n > burst {
			n = burst
		}
		if err := c.ioLimiter.WaitN(ctx, n); err != nil {
			return err
		}
		bytes -= n
	}
	return nil
}
