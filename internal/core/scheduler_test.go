package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartRefresher_InitialLoadOnly(t *testing.T) {
	src := &stubSource{name: "primary", ds: singleVehicle("기아", "EV6", 655)}
	svc := NewService([]Source{src})

	svc.StartRefresher(context.Background(), 0)

	assert.EqualValues(t, 1, src.calls.Load())
	assert.Equal(t, "primary", svc.Status(context.Background()).Source)
}

func TestStartRefresher_ReloadsUntilCancelled(t *testing.T) {
	src := &stubSource{name: "primary", ds: singleVehicle("기아", "EV6", 655)}
	cache := newMapCache()
	svc := NewService([]Source{src}, WithCache(cache, ""))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.StartRefresher(ctx, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return src.calls.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("refresher did not stop after cancel")
	}

	// Reloads bypass the cache but keep it current.
	_, ok := cache.Get(context.Background(), DefaultCacheKey)
	assert.True(t, ok)
}

func TestStartRefresher_FailedReloadKeepsDataset(t *testing.T) {
	good := singleVehicle("기아", "EV6", 655)
	src := &stubSource{name: "primary", ds: good}
	svc := NewService([]Source{src})

	svc.StartRefresher(context.Background(), 0)
	before := svc.Status(context.Background()).LoadID

	src.ds, src.err = nil, errors.New("primary unavailable")
	svc.runRefresh(context.Background())

	assert.Equal(t, before, svc.Status(context.Background()).LoadID)
	assert.Len(t, svc.Vehicles(context.Background()), 1)
}
