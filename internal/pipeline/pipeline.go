// Package pipeline orchestrates a verification request: classify the
// artifact, fan evidence producers out concurrently, join for behavioral
// analysis, aggregate, and publish the verdict.
package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/verilayer/lavs/internal/aggregate"
	"github.com/verilayer/lavs/internal/classify"
	"github.com/verilayer/lavs/internal/domain"
	"github.com/verilayer/lavs/internal/forensics"
)

// Pipeline evaluates artifacts. It holds no per-request state: Evaluate may
// be called concurrently and repeated calls with the same artifact produce
// the same verdict.
type Pipeline struct {
	producers  *forensics.Set
	aggregator *aggregate.Aggregator
	bus        domain.EventBus
	metrics    *Metrics
	tracer     trace.Tracer

	producerTimeout time.Duration
}

// New creates the evaluation pipeline. The bus and metrics may be nil; the
// pipeline then skips publication and instrumentation.
func New(producers *forensics.Set, aggregator *aggregate.Aggregator, bus domain.EventBus, metrics *Metrics, producerTimeout time.Duration) *Pipeline {
	if producerTimeout <= 0 {
		producerTimeout = 20 * time.Second
	}
	return &Pipeline{
		producers:       producers,
		aggregator:      aggregator,
		bus:             bus,
		metrics:         metrics,
		tracer:          otel.Tracer("lavs/pipeline"),
		producerTimeout: producerTimeout,
	}
}

// Evaluate runs the full layered analysis for one artifact. The only error it
// can return is ErrEmptyArtifact: every producer failure is absorbed into
// unavailable layer evidence and reflected in the breakdown.
func (p *Pipeline) Evaluate(ctx context.Context, art *domain.Artifact) (*domain.AggregateResult, error) {
	if art.Empty() {
		return nil, domain.ErrEmptyArtifact
	}

	start := time.Now()

	ctx, span := p.tracer.Start(ctx, "pipeline.evaluate")
	defer span.End()

	art.Type, art.ClassifierHint = classify.Classify(art)
	span.SetAttributes(
		attribute.String("artifact.id", art.ID),
		attribute.String("artifact.content_type", string(art.Type)),
	)

	slog.Debug("artifact classified",
		"artifact_id", art.ID,
		"content_type", art.Type,
		"hint", art.ClassifierHint,
	)

	independent := p.runIndependent(ctx, art)

	behavioral := p.runBehavioral(ctx, art, independent)
	layers := append(independent, behavioral)

	result := p.aggregator.Aggregate(art.Type, layers)

	p.observe(art, result, time.Since(start))
	p.publish(ctx, art, result)

	slog.Info("evaluation complete",
		"artifact_id", art.ID,
		"content_type", art.Type,
		"final_score", result.FinalScore,
		"risk_level", result.RiskLevel,
		"verdict", result.Verdict,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return result, nil
}

// runIndependent executes the order-independent producers concurrently and
// returns their evidence in the dispatch order, regardless of completion
// order.
func (p *Pipeline) runIndependent(ctx context.Context, art *domain.Artifact) []domain.LayerEvidence {
	producers := p.producers.Independent(art.Type)
	results := make([]domain.LayerEvidence, len(producers))

	g, gctx := errgroup.WithContext(ctx)

	for i, prod := range producers {
		i, prod := i, prod
		g.Go(func() error {
			_, span := p.tracer.Start(gctx, "producer.analyze",
				trace.WithAttributes(attribute.String("layer", prod.Layer())))
			results[i] = forensics.Run(gctx, prod, art, p.producerTimeout)
			span.End()
			return nil
		})
	}
	_ = g.Wait() // producers never return errors

	return results
}

// runBehavioral is the join point: it runs after every independent producer
// has reported, since its input includes their evidence.
func (p *Pipeline) runBehavioral(ctx context.Context, art *domain.Artifact, prior []domain.LayerEvidence) domain.LayerEvidence {
	_, span := p.tracer.Start(ctx, "producer.analyze",
		trace.WithAttributes(attribute.String("layer", domain.LayerBehavioral)))
	defer span.End()

	done := make(chan domain.LayerEvidence, 1)
	bctx, cancel := context.WithTimeout(ctx, p.producerTimeout)
	defer cancel()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- domain.Unavailable(domain.LayerBehavioral, "analysis panic")
			}
		}()
		done <- p.producers.Behavioral.Analyze(bctx, art, prior)
	}()

	select {
	case ev := <-done:
		return ev
	case <-bctx.Done():
		return domain.Unavailable(domain.LayerBehavioral, "analysis exceeded time budget")
	}
}

func (p *Pipeline) observe(art *domain.Artifact, result *domain.AggregateResult, elapsed time.Duration) {
	if p.metrics == nil {
		return
	}

	p.metrics.Evaluations.WithLabelValues(string(art.Type), string(result.RiskLevel)).Inc()
	p.metrics.Duration.Observe(elapsed.Seconds())
	p.metrics.FinalScore.Observe(result.FinalScore)

	for _, l := range result.LayerBreakdown {
		if !l.Available {
			p.metrics.LayerUnavailable.WithLabelValues(l.Layer).Inc()
		}
	}
}

// verdictEvent is the bus payload for completed evaluations.
type verdictEvent struct {
	ArtifactID  string    `json:"artifactId"`
	ContentType string    `json:"contentType"`
	FinalScore  float64   `json:"finalScore"`
	RiskLevel   string    `json:"riskLevel"`
	Verdict     string    `json:"verdict"`
	Timestamp   time.Time `json:"timestamp"`
}

func (p *Pipeline) publish(ctx context.Context, art *domain.Artifact, result *domain.AggregateResult) {
	if p.bus == nil {
		return
	}

	payload, err := json.Marshal(verdictEvent{
		ArtifactID:  art.ID,
		ContentType: string(art.Type),
		FinalScore:  result.FinalScore,
		RiskLevel:   string(result.RiskLevel),
		Verdict:     result.Verdict,
		Timestamp:   time.Now().UTC(),
	})
	if err != nil {
		return
	}

	if err := p.bus.Publish(ctx, domain.TopicVerdict, payload); err != nil {
		slog.Error("failed to publish verdict",
			"artifact_id", art.ID,
			"error", err,
		)
	}

	if result.RiskLevel == domain.RiskHigh {
		if err := p.bus.Publish(ctx, domain.TopicAlert, payload); err != nil {
			slog.Error("failed to publish alert",
				"artifact_id", art.ID,
				"error", err,
			)
		}
	}
}
