package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/storefront-web/internal/events"
	"github.com/spec-kit/storefront-web/internal/service"
	"github.com/spec-kit/storefront-web/internal/tokenstore"
)

func TestJanitorRunOnceSweepsEveryStore(t *testing.T) {
	ks := tokenstore.NewMemoryKeyspace()
	require.NoError(t, ks.Set(context.Background(), "k", map[string]string{"a": "b"}, time.Nanosecond))
	time.Sleep(time.Millisecond)

	j := NewJanitor(time.Minute, zap.NewNop())
	j.Add("temporary", ks)
	j.Add("sessions", SweeperFunc(func() int { return 2 }))
	j.Add("nil", nil)

	assert.Equal(t, map[string]int{"temporary": 1, "sessions": 2}, j.RunOnce())
	assert.Zero(t, ks.Len())
}

func TestJanitorStartStopsWithContext(t *testing.T) {
	var calls atomic.Int32
	j := NewJanitor(5*time.Millisecond, nil)
	j.Add("count", SweeperFunc(func() int {
		calls.Add(1)
		return 0
	}))

	ctx, cancel := context.WithCancel(context.Background())
	j.Start(ctx)
	require.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
}

func TestStartAuditWorkerSubscribesAllTypes(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	StartAuditWorker(service.NewAuditService(dispatcher, zap.NewNop(), nil))
	StartAuditWorker(nil)

	for _, typ := range events.AllTypes {
		assert.NoError(t, dispatcher.Publish(context.Background(), events.New(typ)))
	}
}
