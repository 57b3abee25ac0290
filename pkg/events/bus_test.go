package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipforge/clipforge/pkg/models"
)

func TestBus_DispatchOrder(t *testing.T) {
	bus := NewBus()
	var order []string

	bus.Subscribe(ListenerFunc(func(_ context.Context, e PipelineEvent) error {
		order = append(order, "first:"+e.Name)
		return nil
	}))
	bus.Subscribe(ListenerFunc(func(_ context.Context, e PipelineEvent) error {
		order = append(order, "second:"+e.Name)
		return nil
	}))

	bus.Publish(context.Background(), New(EventRunStarted, "run-1", "", nil))
	bus.Publish(context.Background(), New(EventRunCompleted, "run-1", "", nil))

	require.Len(t, order, 4)
	assert.Equal(t, []string{
		"first:" + EventRunStarted,
		"second:" + EventRunStarted,
		"first:" + EventRunCompleted,
		"second:" + EventRunCompleted,
	}, order)
}

func TestBus_FailingListenerDoesNotStarveOthers(t *testing.T) {
	bus := NewBus()
	var delivered int

	bus.Subscribe(ListenerFunc(func(_ context.Context, _ PipelineEvent) error {
		return errors.New("listener broke")
	}))
	bus.Subscribe(ListenerFunc(func(_ context.Context, _ PipelineEvent) error {
		delivered++
		return nil
	}))

	// Must not panic or propagate the listener error.
	bus.Publish(context.Background(), New(EventStageEntered, "run-1", models.StageRouter, nil))
	assert.Equal(t, 1, delivered)
}

func TestBus_PanickingListenerIsSwallowed(t *testing.T) {
	bus := NewBus()
	var delivered int

	bus.Subscribe(ListenerFunc(func(_ context.Context, _ PipelineEvent) error {
		panic("boom")
	}))
	bus.Subscribe(ListenerFunc(func(_ context.Context, _ PipelineEvent) error {
		delivered++
		return nil
	}))

	bus.Publish(context.Background(), New(EventStageEntered, "run-1", models.StageRouter, nil))
	assert.Equal(t, 1, delivered)
}

func TestBus_PublishWithoutListeners(t *testing.T) {
	bus := NewBus()
	// No listeners registered: publish is a no-op.
	bus.Publish(context.Background(), New(EventRunStarted, "run-1", "", nil))
}
