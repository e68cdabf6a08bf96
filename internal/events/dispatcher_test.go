package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherDeliversToSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher()
	var got []Event
	d.Subscribe(EventSessionLogin, func(_ context.Context, e Event) error {
		got = append(got, e)
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), New(EventSessionLogin)))
	require.NoError(t, d.Publish(context.Background(), New(EventSessionLogout)))

	require.Len(t, got, 1)
	assert.Equal(t, EventSessionLogin, got[0].Type)
	assert.NotEmpty(t, got[0].ID)
}

func TestDispatcherRunsAllHandlersAndJoinsErrors(t *testing.T) {
	d := NewInMemoryDispatcher()
	boom := errors.New("boom")
	calls := 0
	d.Subscribe(EventAccessDenied, func(context.Context, Event) error { calls++; return boom })
	d.Subscribe(EventAccessDenied, func(context.Context, Event) error { calls++; return nil })

	err := d.Publish(context.Background(), New(EventAccessDenied))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}

func TestIDsAreTimeOrdered(t *testing.T) {
	base := time.Now()
	first := NewID(base)
	second := NewID(base.Add(time.Millisecond))
	third := NewID(base.Add(time.Millisecond))

	assert.Less(t, first, second)
	assert.Less(t, second, third)
	assert.Len(t, first, 26)
}
