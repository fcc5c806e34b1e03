package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/factory"
	corenotify "github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/notify"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/infra/logger"
)

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) Notify(ctx context.Context, msg corenotify.Message) error {
	return m.Called(ctx, msg).Error(0)
}

func TestNew_Defaults(t *testing.T) {
	n, err := New(nil, logger.NopLogger{})
	require.NoError(t, err)
	assert.IsType(t, &LogNotifier{}, n)
	assert.NoError(t, n.Notify(context.Background(), corenotify.Message{Kind: corenotify.KindReminder}))
}

func TestNew_Multi(t *testing.T) {
	n, err := New([]factory.ModuleConfig{
		{Type: "nop"},
		{Type: "webhook", Conf: map[string]any{"url": "http://localhost:1/hook", "timeout_ms": "250"}},
	}, nil)
	require.NoError(t, err)
	multi, ok := n.(*MultiNotifier)
	require.True(t, ok)
	assert.Len(t, multi.Notifiers, 2)

	_, err = New([]factory.ModuleConfig{{Type: "pager"}}, nil)
	assert.Error(t, err)
}

func TestMultiNotifier_TriesAll(t *testing.T) {
	a, b := &mockNotifier{}, &mockNotifier{}
	msg := corenotify.Message{Kind: corenotify.KindManifest}
	a.On("Notify", mock.Anything, msg).Return(errors.New("down"))
	b.On("Notify", mock.Anything, msg).Return(nil)

	err := NewMultiNotifier(a, b).Notify(context.Background(), msg)
	assert.ErrorContains(t, err, "down")
	a.AssertExpectations(t)
	b.AssertExpectations(t)
}
