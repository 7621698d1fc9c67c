package credential

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestCoordinator_SingleFlight(t *testing.T) {
	store := NewMemoryStore()
	var refreshes atomic.Int32
	release := make(chan struct{})

	c := NewCoordinator(CoordinatorConfig{
		Store: store,
		Refresh: func(ctx context.Context) (string, error) {
			refreshes.Add(1)
			<-release
			return "fresh-token", nil
		},
	})

	const callers = 50
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = c.Refresh(context.Background())
		}(i)
	}

	// Let every caller reach the coordinator before the refresh completes.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := refreshes.Load(); got != 1 {
		t.Errorf("expected exactly 1 refresh invocation, got %d", got)
	}
	for i, err := range errs {
		if err != nil {
			t.Errorf("caller %d: unexpected error %v", i, err)
		}
	}
	tok, err := store.Read(context.Background())
	if err != nil || tok != "fresh-token" {
		t.Errorf("expected persisted fresh-token, got %q (%v)", tok, err)
	}
}

func TestCoordinator_PersistsBeforeRelease(t *testing.T) {
	store := NewMemoryStore()
	c := NewCoordinator(CoordinatorConfig{
		Store: store,
		Refresh: func(ctx context.Context) (string, error) {
			return "persisted-first", nil
		},
	})

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	tok, err := store.Read(context.Background())
	if err != nil || tok != "persisted-first" {
		t.Errorf("credential not visible after Refresh returned: %q (%v)", tok, err)
	}
}

func TestCoordinator_FailureCallbackOnce(t *testing.T) {
	refreshErr := errors.New("auth server down")
	var callbacks atomic.Int32
	release := make(chan struct{})

	c := NewCoordinator(CoordinatorConfig{
		Store: NewMemoryStore(),
		Refresh: func(ctx context.Context) (string, error) {
			<-release
			return "", refreshErr
		},
		OnFailure: func(err error) {
			callbacks.Add(1)
			if !errors.Is(err, refreshErr) {
				t.Errorf("callback got %v, want %v", err, refreshErr)
			}
		},
	})

	const callers = 20
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = c.Refresh(context.Background())
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := callbacks.Load(); got != 1 {
		t.Errorf("expected failure callback exactly once, got %d", got)
	}
	for i, err := range errs {
		if !errors.Is(err, refreshErr) {
			t.Errorf("caller %d: expected shared failure, got %v", i, err)
		}
	}
}

func TestCoordinator_IdleAfterEpisode(t *testing.T) {
	var refreshes atomic.Int32
	c := NewCoordinator(CoordinatorConfig{
		Store: NewMemoryStore(),
		Refresh: func(ctx context.Context) (string, error) {
			refreshes.Add(1)
			return "t", nil
		},
	})

	for i := 0; i < 3; i++ {
		if err := c.Refresh(context.Background()); err != nil {
			t.Fatalf("episode %d: %v", i, err)
		}
	}
	if c.Refreshing() {
		t.Error("expected idle coordinator after episodes completed")
	}
	if got := refreshes.Load(); got != 3 {
		t.Errorf("expected one refresh per sequential episode, got %d", got)
	}
}

func TestCoordinator_WaiterCancelDoesNotCancelEpisode(t *testing.T) {
	store := NewMemoryStore()
	release := make(chan struct{})
	c := NewCoordinator(CoordinatorConfig{
		Store: store,
		Refresh: func(ctx context.Context) (string, error) {
			<-release
			return "survived", nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancelled := make(chan error, 1)
	go func() { cancelled <- c.Refresh(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	if err := <-cancelled; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled for the abandoning waiter, got %v", err)
	}

	// A second waiter joins the still-running episode and sees its result.
	done := make(chan error, 1)
	go func() { done <- c.Refresh(context.Background()) }()
	time.Sleep(20 * time.Millisecond)
	close(release)

	if err := <-done; err != nil {
		t.Fatalf("surviving waiter: %v", err)
	}
	tok, _ := store.Read(context.Background())
	if tok != "survived" {
		t.Errorf("expected refresh to complete despite waiter cancel, got %q", tok)
	}
}

func TestCoordinator_NoRefreshFunc(t *testing.T) {
	c := NewCoordinator(CoordinatorConfig{Store: NewMemoryStore()})
	if err := c.Refresh(context.Background()); !errors.Is(err, ErrNoRefreshFunc) {
		t.Errorf("expected ErrNoRefreshFunc, got %v", err)
	}
}

func TestCoordinator_RefreshTimeout(t *testing.T) {
	c := NewCoordinator(CoordinatorConfig{
		Store:          NewMemoryStore(),
		RefreshTimeout: 20 * time.Millisecond,
		Refresh: func(ctx context.Context) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
	})

	err := c.Refresh(context.Background())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline error from bounded episode, got %v", err)
	}
}
