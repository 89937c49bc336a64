package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/spawn-mcp/researcher/pkg/blocklist"
	"github.com/spawn-mcp/researcher/pkg/capability"
	"github.com/spawn-mcp/researcher/pkg/research"
	"github.com/spawn-mcp/researcher/pkg/worker"
)

// research-worker drains a Pub/Sub queue of session requests and publishes
// each finished result. It shares the persisted blocklist with every other
// orchestrator process in the project.
func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	projectID := os.Getenv("GOOGLE_CLOUD_PROJECT")
	if projectID == "" {
		logger.Fatal("GOOGLE_CLOUD_PROJECT environment variable is required")
	}
	subID := os.Getenv("SESSION_REQUEST_SUBSCRIPTION")
	if subID == "" {
		logger.Fatal("SESSION_REQUEST_SUBSCRIPTION environment variable is required")
	}
	resultsTopicID := os.Getenv("SESSION_RESULTS_TOPIC")
	if resultsTopicID == "" {
		logger.Fatal("SESSION_RESULTS_TOPIC environment variable is required")
	}

	pubsubClient, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		logger.Fatal("failed to create Pub/Sub client", zap.Error(err))
	}
	defer pubsubClient.Close()

	firestoreClient, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		logger.Fatal("failed to create Firestore client", zap.Error(err))
	}
	defer firestoreClient.Close()

	registry := blocklist.NewRegistry(ctx, blocklist.NewFirestoreStore(firestoreClient), logger)

	client := capability.NewWebClient(capability.WebClientConfig{
		LLMAPIKey:  os.Getenv("OPENAI_API_KEY"),
		LLMBaseURL: os.Getenv("LLM_BASE_URL"),
		Model:      os.Getenv("LLM_MODEL"),
	}, logger)

	controller := research.NewController(client, registry, logger)
	results := pubsubClient.Topic(resultsTopicID)
	defer results.Stop()

	w := worker.New(controller, pubsubClient.Subscription(subID), results, logger)

	logger.Info("research worker started",
		zap.String("subscription", subID),
		zap.String("results_topic", resultsTopicID))

	if err := w.Run(ctx); err != nil {
		logger.Fatal("worker stopped", zap.Error(err))
	}
	logger.Info("research worker stopped")
}
