package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/spawn-mcp/researcher/pkg/blocklist"
	"github.com/spawn-mcp/researcher/pkg/capability"
	"github.com/spawn-mcp/researcher/pkg/events"
	mcpserver "github.com/spawn-mcp/researcher/pkg/mcp"
	"github.com/spawn-mcp/researcher/pkg/research"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	store, cleanup, err := buildStore(ctx, logger)
	if err != nil {
		logger.Fatal("failed to initialize blocklist store", zap.Error(err))
	}
	defer cleanup()

	registry := blocklist.NewRegistry(ctx, store, logger)

	client := capability.NewWebClient(capability.WebClientConfig{
		LLMAPIKey:  getEnvOrDefault("OPENAI_API_KEY", ""),
		LLMBaseURL: getEnvOrDefault("LLM_BASE_URL", ""),
		Model:      getEnvOrDefault("LLM_MODEL", ""),
	}, logger)

	opts := []research.Option{}
	if publisher, perr := buildPublisher(ctx); perr != nil {
		logger.Warn("failed to initialize progress publisher, using nop", zap.Error(perr))
	} else if publisher != nil {
		opts = append(opts, research.WithProgressPublisher(publisher))
	}
	if n := getEnvInt("STAGNATION_LIMIT", 0); n > 0 {
		opts = append(opts, research.WithStagnationLimit(n))
	}

	controller := research.NewController(client, registry, logger, opts...)
	srv := mcpserver.NewServer(controller, registry, logger)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Start(ctx); err != nil {
			errChan <- err
		}
	}()

	select {
	case sig := <-sigChan:
		logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-errChan:
		logger.Fatal("server error", zap.Error(err))
	}
}

// buildStore selects the blocklist backend: Firestore when a GCP project is
// configured, otherwise a local JSON file.
func buildStore(ctx context.Context, logger *zap.Logger) (blocklist.Store, func(), error) {
	projectID := getEnvOrDefault("GOOGLE_CLOUD_PROJECT", "")
	if projectID == "" {
		path := getEnvOrDefault("BLOCKLIST_PATH", "blocked_domains.json")
		logger.Info("using file-backed blocklist", zap.String("path", path))
		return blocklist.NewFileStore(path), func() {}, nil
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}
	logger.Info("using Firestore-backed blocklist", zap.String("project", projectID))
	return blocklist.NewFirestoreStore(client), func() { client.Close() }, nil
}

// buildPublisher creates a Pub/Sub progress publisher when both a project
// and a topic are configured; returns nil otherwise.
func buildPublisher(ctx context.Context) (events.Publisher, error) {
	projectID := getEnvOrDefault("GOOGLE_CLOUD_PROJECT", "")
	topicID := getEnvOrDefault("RESEARCH_EVENTS_TOPIC", "")
	if projectID == "" || topicID == "" {
		return nil, nil
	}

	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Pub/Sub client: %w", err)
	}
	return events.NewPubSubPublisher(client.Topic(topicID)), nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
