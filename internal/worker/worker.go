// Package worker consumes URL submissions from the event bus and runs them
// through the verification pipeline. It lets upstream systems queue links for
// analysis without holding an HTTP connection open.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/verilayer/lavs/internal/domain"
	"github.com/verilayer/lavs/internal/pipeline"
)

// SubmissionMessage is the bus payload for queued verification requests.
// Only URL submissions travel over the bus; byte payloads go through HTTP.
type SubmissionMessage struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Worker subscribes to the submission topic and evaluates each message. The
// pipeline publishes the resulting verdict itself.
type Worker struct {
	bus      domain.EventBus
	pipeline *pipeline.Pipeline

	subscriptions []domain.Subscription
	cancel        context.CancelFunc
	ctx           context.Context
}

// New creates a submission worker.
func New(bus domain.EventBus, p *pipeline.Pipeline) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:      bus,
		pipeline: p,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start subscribes to the submission topic.
func (w *Worker) Start() error {
	sub, err := w.bus.Subscribe(w.ctx, domain.TopicSubmission, w.handleMessage)
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("submission worker started", "topic", domain.TopicSubmission)
	return nil
}

func (w *Worker) handleMessage(ctx context.Context, msg *domain.Message) error {
	var sub SubmissionMessage
	if err := json.Unmarshal(msg.Payload, &sub); err != nil {
		slog.Error("failed to parse submission message",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	if sub.ID == "" {
		sub.ID = msg.ID
	}
	if sub.URL == "" {
		slog.Warn("submission without url, skipping", "message_id", msg.ID)
		return nil
	}

	art := &domain.Artifact{
		ID:         sub.ID,
		URL:        sub.URL,
		ReceivedAt: time.Now().UTC(),
	}

	result, err := w.pipeline.Evaluate(ctx, art)
	if err != nil {
		slog.Error("submission evaluation failed",
			"artifact_id", sub.ID,
			"error", err,
		)
		return err
	}

	slog.Debug("submission processed",
		"artifact_id", sub.ID,
		"verdict", result.Verdict,
	)
	return nil
}

// Stop unsubscribes and stops processing.
func (w *Worker) Stop() error {
	w.cancel()

	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	slog.Info("submission worker stopped")
	return nil
}
