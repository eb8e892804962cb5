package simulator

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const (
	startupAttempts = 20
	startupInterval = 250 * time.Millisecond
)

// Starter brings the simulator up on demand. An already-running simulator on
// the same address (for example one launched by hand) is reused as-is.
type Starter struct {
	addr   string
	client *Client

	mu      sync.Mutex
	started bool
	app     *App
}

// NewStarter creates a starter for the simulator at the given bind address
// and base URL.
func NewStarter(addr string, client *Client) *Starter {
	return &Starter{addr: addr, client: client}
}

// EnsureStarted makes sure a healthy simulator is reachable, launching the
// embedded one when nothing answers the health probe.
func (s *Starter) EnsureStarted(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.client.Healthy(ctx) {
		s.started = true
		return nil
	}

	s.app = NewApp(s.addr)
	s.app.Start()

	for i := 0; i < startupAttempts; i++ {
		if s.client.Healthy(ctx) {
			s.started = true
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(startupInterval):
		}
	}
	return fmt.Errorf("action simulator did not become healthy on %s", s.addr)
}

// Shutdown stops the embedded simulator if this process launched it.
func (s *Starter) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.app == nil {
		return nil
	}
	return s.app.Shutdown(ctx)
}
