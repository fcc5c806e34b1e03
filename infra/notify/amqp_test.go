package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	corenotify "github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/notify"
)

type fakeChannel struct {
	keys   []string
	msgs   []amqp.Publishing
	err    error
	closed bool
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.keys = append(f.keys, exchange+"/"+key)
	f.msgs = append(f.msgs, msg)
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestAMQPNotifier_Publish(t *testing.T) {
	n := NewAMQPNotifier(AMQPConfig{})
	ch := &fakeChannel{}
	n.ch = ch

	err := n.Notify(context.Background(), corenotify.Message{Kind: corenotify.KindManifest, To: "op1", JourneyID: "j1"})
	require.NoError(t, err)
	require.Len(t, ch.msgs, 1)
	assert.Equal(t, "pace.notify/notify.manifest", ch.keys[0])
	assert.Equal(t, amqp.Persistent, ch.msgs[0].DeliveryMode)
	assert.Equal(t, "application/json", ch.msgs[0].ContentType)

	var got corenotify.Message
	require.NoError(t, json.Unmarshal(ch.msgs[0].Body, &got))
	assert.Equal(t, "op1", got.To)
}

func TestAMQPNotifier_FailedPublishResetsChannel(t *testing.T) {
	n := NewAMQPNotifier(AMQPConfig{})
	ch := &fakeChannel{err: errors.New("channel closed")}
	n.ch = ch

	err := n.Notify(context.Background(), corenotify.Message{Kind: corenotify.KindReminder})
	require.Error(t, err)
	assert.True(t, ch.closed)
	assert.Nil(t, n.ch)

	n.dial = func(string) (*amqp.Connection, error) { return nil, errors.New("refused") }
	err = n.Notify(context.Background(), corenotify.Message{Kind: corenotify.KindReminder})
	assert.ErrorContains(t, err, "amqp dial")
}
