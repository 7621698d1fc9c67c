package credential

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/kbukum/restkit/logger"
)

// RefreshFunc obtains a fresh credential, typically by exchanging a refresh
// token with the auth server. Supplied by the host application.
type RefreshFunc func(ctx context.Context) (string, error)

// ErrNoRefreshFunc is returned when a refresh is requested but no
// RefreshFunc was configured.
var ErrNoRefreshFunc = errors.New("credential: no refresh function configured")

const defaultRefreshTimeout = 30 * time.Second

// CoordinatorConfig configures a refresh Coordinator.
type CoordinatorConfig struct {
	// Store persists the refreshed credential. Required.
	Store Store
	// Refresh obtains a new credential. Required.
	Refresh RefreshFunc
	// RefreshTimeout bounds a single refresh episode. Defaults to 30s.
	RefreshTimeout time.Duration
	// OnFailure is invoked exactly once per failed refresh episode, letting
	// the host react (force sign-out, surface a login prompt).
	OnFailure func(error)
	// Logger is optional; defaults to a no-op logger.
	Logger *logger.Logger
}

// Coordinator serializes credential refreshes. The first caller that needs
// a refresh starts one; callers arriving while it is in flight wait on the
// same episode and share its outcome. A waiter's cancellation abandons the
// wait only — the episode itself runs detached and keeps going for the
// remaining waiters.
type Coordinator struct {
	store          Store
	refresh        RefreshFunc
	refreshTimeout time.Duration
	onFailure      func(error)
	log            *logger.Logger

	mu       sync.Mutex
	inflight *episode
}

// episode is one refresh cycle shared by every caller that observed the
// expired credential while it was in flight.
type episode struct {
	done chan struct{}
	err  error
}

// NewCoordinator creates a refresh coordinator.
func NewCoordinator(cfg CoordinatorConfig) *Coordinator {
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}
	timeout := cfg.RefreshTimeout
	if timeout <= 0 {
		timeout = defaultRefreshTimeout
	}
	return &Coordinator{
		store:          cfg.Store,
		refresh:        cfg.Refresh,
		refreshTimeout: timeout,
		onFailure:      cfg.OnFailure,
		log:            log.WithComponent("credential"),
	}
}

// Refresh ensures a refresh episode runs and waits for its outcome. If an
// episode is already in flight the caller joins it; otherwise a new one is
// started. On success the new credential has been written to the store
// before Refresh returns to any waiter.
func (c *Coordinator) Refresh(ctx context.Context) error {
	if c.refresh == nil {
		return ErrNoRefreshFunc
	}

	c.mu.Lock()
	ep := c.inflight
	if ep == nil {
		ep = &episode{done: make(chan struct{})}
		c.inflight = ep
		// Detached: the episode must not die with the caller that started it.
		go c.run(ep)
		c.log.Debug("refresh episode started")
	} else {
		c.log.Debug("joining in-flight refresh episode")
	}
	c.mu.Unlock()

	select {
	case <-ep.done:
		return ep.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Refreshing reports whether a refresh episode is currently in flight.
func (c *Coordinator) Refreshing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight != nil
}

func (c *Coordinator) run(ep *episode) {
	ctx, cancel := context.WithTimeout(context.Background(), c.refreshTimeout)
	defer cancel()

	token, err := c.refresh(ctx)
	if err == nil {
		// Persist before releasing waiters so the next request any of them
		// builds observes the fresh credential.
		err = c.store.Write(ctx, token)
	}

	if err != nil {
		c.log.Warn("refresh episode failed", map[string]any{"error": err.Error()})
		if c.onFailure != nil {
			c.onFailure(err)
		}
	} else {
		c.log.Debug("refresh episode succeeded")
	}

	ep.err = err
	c.mu.Lock()
	c.inflight = nil
	c.mu.Unlock()
	close(ep.done)
}
