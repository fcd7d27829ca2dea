package local

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photolangage/photolangage/internal/domain/session"
	"github.com/photolangage/photolangage/internal/replication"
)

func envelope(version int64) replication.Envelope {
	return replication.Envelope{Version: version, State: session.New("XJ9-2B", nil)}
}

func TestBroker_PublishFansOutToCodeSubscribers(t *testing.T) {
	broker := NewBroker()
	ctx := context.Background()

	var a, b, other []replication.Message
	_, err := broker.Subscribe("XJ9-2B", func(m replication.Message) { a = append(a, m) })
	require.NoError(t, err)
	_, err = broker.Subscribe("XJ9-2B", func(m replication.Message) { b = append(b, m) })
	require.NoError(t, err)
	_, err = broker.Subscribe("ZZ0-0Z", func(m replication.Message) { other = append(other, m) })
	require.NoError(t, err)

	require.NoError(t, broker.Publish(ctx, "XJ9-2B", envelope(1)))

	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.EqualValues(t, 1, a[0].Envelope.Version)
	assert.Empty(t, other, "subscriber of another code received the snapshot")
}

func TestBroker_RequestSyncReachesSubscribers(t *testing.T) {
	broker := NewBroker()

	var got []replication.Message
	_, err := broker.Subscribe("XJ9-2B", func(m replication.Message) { got = append(got, m) })
	require.NoError(t, err)

	require.NoError(t, broker.RequestSync(context.Background(), "XJ9-2B"))

	require.Len(t, got, 1)
	assert.True(t, got[0].SyncRequest)
}

func TestBroker_Unsubscribe(t *testing.T) {
	broker := NewBroker()
	ctx := context.Background()

	var got int
	unsub, err := broker.Subscribe("XJ9-2B", func(replication.Message) { got++ })
	require.NoError(t, err)

	require.NoError(t, broker.Publish(ctx, "XJ9-2B", envelope(1)))
	unsub()
	require.NoError(t, broker.Publish(ctx, "XJ9-2B", envelope(2)))

	assert.Equal(t, 1, got)
}

func TestBroker_PublishWithoutSubscribersIsFine(t *testing.T) {
	broker := NewBroker()
	assert.NoError(t, broker.Publish(context.Background(), "XJ9-2B", envelope(1)))
	assert.NoError(t, broker.RequestSync(context.Background(), "XJ9-2B"))
}
