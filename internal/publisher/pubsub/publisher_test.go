package pubsub

import (
	"context"
	"encoding/json"
	"testing"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func TestPublishDeliversJSON(t *testing.T) {
	ctx := context.Background()
	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	client, err := pubsub.NewClient(ctx, "test-project", option.WithGRPCConn(conn))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	topic, err := client.CreateTopic(ctx, "crawl-events")
	require.NoError(t, err)

	pub := NewWithTopic(topic)
	id, err := pub.Publish(ctx, "crawl.completed", map[string]any{"run_id": "r1", "new_channels": 3})
	require.NoError(t, err)
	require.NotEmpty(t, id)
	topic.Stop()

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "crawl.completed", msgs[0].Attributes["event"])

	var body map[string]any
	require.NoError(t, json.Unmarshal(msgs[0].Data, &body))
	require.Equal(t, "r1", body["run_id"])
	require.EqualValues(t, 3, body["new_channels"])
}

func TestPublishWithoutTopic(t *testing.T) {
	t.Parallel()

	var p *Publisher
	_, err := p.Publish(context.Background(), "crawl.completed", nil)
	require.Error(t, err)
	require.NoError(t, p.Close())
}

func TestNewRequiresProjectAndTopic(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), "", "topic")
	require.Error(t, err)
	_, err = New(context.Background(), "project", "")
	require.Error(t, err)
}
