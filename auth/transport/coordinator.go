package transport

import (
	"context"
	"sync"
)

// coordinator lets exactly one refresh run at a time. The first call to
// await starts it; later calls queue behind it and are released in the order
// they joined, all with the same outcome.
type coordinator struct {
	mu       sync.Mutex
	inFlight bool
	waiters  []chan error
	run      func(ctx context.Context, refreshToken string) error
	released func(position int)
}

func newCoordinator(run func(ctx context.Context, refreshToken string) error) *coordinator {
	return &coordinator{run: run}
}

// await blocks until the current refresh settles or ctx is done. The refresh
// itself runs on a context detached from every caller: a waiter giving up
// never cancels it for the others.
func (c *coordinator) await(ctx context.Context, refreshToken string) error {
	done := make(chan error, 1)
	c.mu.Lock()
	c.waiters = append(c.waiters, done)
	leader := !c.inFlight
	c.inFlight = true
	c.mu.Unlock()

	if leader {
		go c.settle(context.WithoutCancel(ctx), refreshToken)
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *coordinator) settle(ctx context.Context, refreshToken string) {
	err := c.run(ctx, refreshToken)

	c.mu.Lock()
	waiters := c.waiters
	c.waiters = nil
	c.inFlight = false
	c.mu.Unlock()

	for i, done := range waiters {
		done <- err
		if c.released != nil {
			c.released(i)
		}
	}
}

func (c *coordinator) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}
