package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/spawn-mcp/researcher/pkg/schemas"
)

func TestNopPublisher(t *testing.T) {
	err := NopPublisher{}.Publish(context.Background(), schemas.ProgressEvent{Type: schemas.EventSessionComplete})
	assert.NoError(t, err)
}

func TestPubSubPublisher(t *testing.T) {
	ctx := context.Background()

	srv := pstest.NewServer()
	defer srv.Close()

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	client, err := pubsub.NewClient(ctx, "test-project", option.WithGRPCConn(conn))
	require.NoError(t, err)
	defer client.Close()

	topic, err := client.CreateTopic(ctx, "research-events")
	require.NoError(t, err)
	defer topic.Stop()

	event := schemas.ProgressEvent{
		SessionID: "session-1",
		Type:      schemas.EventSourceFetched,
		Iteration: 2,
		Detail:    "https://example.com/page",
		Timestamp: time.Now().UTC(),
	}
	require.NoError(t, NewPubSubPublisher(topic).Publish(ctx, event))

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "session-1", msgs[0].Attributes["session_id"])
	assert.Equal(t, schemas.EventSourceFetched, msgs[0].Attributes["type"])

	var got schemas.ProgressEvent
	require.NoError(t, json.Unmarshal(msgs[0].Data, &got))
	assert.Equal(t, event.SessionID, got.SessionID)
	assert.Equal(t, event.Iteration, got.Iteration)
	assert.Equal(t, event.Detail, got.Detail)
}
