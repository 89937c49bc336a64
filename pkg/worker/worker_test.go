package worker

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/spawn-mcp/researcher/pkg/blocklist"
	"github.com/spawn-mcp/researcher/pkg/capability"
	"github.com/spawn-mcp/researcher/pkg/research"
	"github.com/spawn-mcp/researcher/pkg/schemas"
)

type unreachableClient struct{}

func (unreachableClient) Search(ctx context.Context, req capability.SearchRequest) (*capability.SearchResponse, error) {
	return nil, errors.New("unreachable")
}

func (unreachableClient) Fetch(ctx context.Context, url string) (*capability.FetchResponse, error) {
	return nil, errors.New("unreachable")
}

func (unreachableClient) Plan(ctx context.Context, req capability.PlanRequest) (*capability.PlanResponse, error) {
	return nil, errors.New("unreachable")
}

func TestWorkerPublishesResult(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	srv := pstest.NewServer()
	defer srv.Close()

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	client, err := pubsub.NewClient(ctx, "test-project", option.WithGRPCConn(conn))
	require.NoError(t, err)
	defer client.Close()

	requests, err := client.CreateTopic(ctx, "session-requests")
	require.NoError(t, err)
	results, err := client.CreateTopic(ctx, "session-results")
	require.NoError(t, err)
	sub, err := client.CreateSubscription(ctx, "worker", pubsub.SubscriptionConfig{Topic: requests})
	require.NoError(t, err)

	store := blocklist.NewFileStore(filepath.Join(t.TempDir(), "blocked.json"))
	registry := blocklist.NewRegistry(ctx, store, zap.NewNop())
	controller := research.NewController(unreachableClient{}, registry, zap.NewNop())
	w := New(controller, sub, results, zap.NewNop())

	// A zero-budget request finishes without touching the capability.
	reqBytes, err := json.Marshal(schemas.SessionRequest{
		Objectives:    []string{"what is the question"},
		StartingQuery: "query",
		MaxCalls:      0,
	})
	require.NoError(t, err)
	_, err = requests.Publish(ctx, &pubsub.Message{Data: reqBytes}).Get(ctx)
	require.NoError(t, err)

	// A malformed request is dropped without producing a result.
	_, err = requests.Publish(ctx, &pubsub.Message{Data: []byte("not json")}).Get(ctx)
	require.NoError(t, err)

	runCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- w.Run(runCtx) }()

	var published *pstest.Message
	require.Eventually(t, func() bool {
		for _, m := range srv.Messages() {
			if m.Attributes["session_id"] != "" {
				published = m
				return true
			}
		}
		return false
	}, 10*time.Second, 50*time.Millisecond)

	stop()
	require.NoError(t, <-done)

	var result schemas.ResearchAgentResult
	require.NoError(t, json.Unmarshal(published.Data, &result))
	assert.Equal(t, schemas.TerminationMaxCallsReached, result.TerminationReason)
	assert.Equal(t, 0, result.IterationCount)
	assert.Equal(t, result.TerminationReason, published.Attributes["termination_reason"])

	// Only the valid request produced a result message.
	count := 0
	for _, m := range srv.Messages() {
		if m.Attributes["session_id"] != "" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}
