// Package worker runs research sessions from a Pub/Sub request queue. It
// adapts the orchestrator for deployments where callers enqueue work instead
// of holding an MCP connection open for the whole session.
package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/spawn-mcp/researcher/pkg/research"
	"github.com/spawn-mcp/researcher/pkg/schemas"
)

// Worker consumes session requests from a subscription and publishes each
// finished result to the results topic.
type Worker struct {
	controller *research.Controller
	sub        *pubsub.Subscription
	results    *pubsub.Topic
	logger     *zap.Logger
}

// New creates a worker over an existing subscription and results topic.
func New(controller *research.Controller, sub *pubsub.Subscription, results *pubsub.Topic, logger *zap.Logger) *Worker {
	return &Worker{
		controller: controller,
		sub:        sub,
		results:    results,
		logger:     logger,
	}
}

// Run receives session requests until the context is canceled. Each message
// runs one full session; malformed and invalid requests are acked and
// dropped so they cannot poison the queue.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker receiving session requests",
		zap.String("subscription", w.sub.ID()))
	return w.sub.Receive(ctx, w.handle)
}

func (w *Worker) handle(ctx context.Context, msg *pubsub.Message) {
	var req schemas.SessionRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		w.logger.Error("dropping malformed session request", zap.Error(err))
		msg.Ack()
		return
	}

	result, err := w.controller.Run(ctx, req)
	if err != nil {
		// Run only fails on invalid input, which redelivery cannot fix.
		w.logger.Error("dropping invalid session request", zap.Error(err))
		msg.Ack()
		return
	}

	if err := w.publishResult(ctx, result); err != nil {
		w.logger.Error("failed to publish session result, requesting redelivery",
			zap.String("session_id", result.SessionID), zap.Error(err))
		msg.Nack()
		return
	}

	w.logger.Info("session result published",
		zap.String("session_id", result.SessionID),
		zap.String("termination_reason", result.TerminationReason))
	msg.Ack()
}

func (w *Worker) publishResult(ctx context.Context, result *schemas.ResearchAgentResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal session result: %w", err)
	}

	res := w.results.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"session_id":         result.SessionID,
			"termination_reason": result.TerminationReason,
		},
	})
	if _, err := res.Get(ctx); err != nil {
		return fmt.Errorf("failed to publish session result: %w", err)
	}
	return nil
}
