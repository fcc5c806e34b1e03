package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/events"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/internal/eventbus"
)

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) Notify(ctx context.Context, msg Message) error {
	return m.Called(ctx, msg).Error(0)
}

func TestDeliverCountsFailuresAndContinues(t *testing.T) {
	n := &mockNotifier{}
	ok := Message{Kind: KindReminder, To: "a@example.com"}
	bad := Message{Kind: KindManifest, To: "op@example.com", JourneyID: "j1"}
	n.On("Notify", mock.Anything, bad).Return(errors.New("smtp down"))
	n.On("Notify", mock.Anything, ok).Return(nil)

	bus := eventbus.New()
	sub := bus.Subscribe()
	failed := Deliver(context.Background(), n, nil, bus, []Message{bad, ok})
	assert.Equal(t, 1, failed)
	n.AssertNumberOfCalls(t, "Notify", 2)

	first := (<-sub).(events.NotifyEvent)
	assert.Error(t, first.Err)
	second := (<-sub).(events.NotifyEvent)
	assert.NoError(t, second.Err)
}
