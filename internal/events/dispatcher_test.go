package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublishRunsAllHandlersAndJoinsErrors(t *testing.T) {
	d := NewInMemoryDispatcher()
	var calls []string
	d.Subscribe(EventReportClaimed, func(context.Context, Event) error {
		calls = append(calls, "first")
		return errors.New("boom")
	})
	d.Subscribe(EventReportClaimed, func(context.Context, Event) error {
		calls = append(calls, "second")
		return nil
	})
	d.Subscribe(EventReportResolved, func(context.Context, Event) error {
		calls = append(calls, "other")
		return nil
	})

	err := d.Publish(context.Background(), NewEvent(EventReportClaimed, "r1", ActorFrom(nil), nil))
	assert.EqualError(t, err, "boom")
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestActorFromGuest(t *testing.T) {
	actor := ActorFrom(nil)
	assert.Nil(t, actor.UserID)
	assert.Equal(t, "Guest", actor.Name)
}
