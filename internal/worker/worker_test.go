package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/verilayer/lavs/internal/aggregate"
	"github.com/verilayer/lavs/internal/bus"
	"github.com/verilayer/lavs/internal/domain"
	"github.com/verilayer/lavs/internal/forensics"
	"github.com/verilayer/lavs/internal/pipeline"
	"github.com/verilayer/lavs/internal/rules"
)

func newTestPipeline(t *testing.T, b domain.EventBus) *pipeline.Pipeline {
	t.Helper()

	engine, err := rules.NewEngine()
	if err != nil {
		t.Fatalf("creating engine: %v", err)
	}
	if err := engine.LoadRules(rules.BuiltinRules()); err != nil {
		t.Fatalf("loading rules: %v", err)
	}

	set := &forensics.Set{
		Metadata:   forensics.NewMetadataProducer(engine, nil),
		Image:      forensics.NewImageProducer(),
		Video:      forensics.NewVideoProducer(),
		Audio:      forensics.NewAudioProducer(),
		Web:        forensics.NewWebProducer(nil),
		Behavioral: forensics.NewBehavioralProducer(),
	}

	agg := aggregate.New(domain.DefaultWeightProfiles(), domain.DefaultBands())
	metrics := pipeline.NewMetrics(prometheus.NewRegistry())
	return pipeline.New(set, agg, b, metrics, 5*time.Second)
}

func TestWorkerProcessesSubmission(t *testing.T) {
	b := bus.NewChannelBus(10)
	defer b.Close()

	verdicts := make(chan *domain.Message, 1)
	_, err := b.Subscribe(context.Background(), domain.TopicVerdict, func(ctx context.Context, msg *domain.Message) error {
		verdicts <- msg
		return nil
	})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	w := New(b, newTestPipeline(t, b))
	if err := w.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer w.Stop()

	payload, _ := json.Marshal(SubmissionMessage{ID: "sub-1", URL: "https://example.com/page"})
	if err := b.Publish(context.Background(), domain.TopicSubmission, payload); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	select {
	case msg := <-verdicts:
		var ev struct {
			ArtifactID string `json:"artifactId"`
			Verdict    string `json:"verdict"`
		}
		if err := json.Unmarshal(msg.Payload, &ev); err != nil {
			t.Fatalf("bad verdict payload: %v", err)
		}
		if ev.ArtifactID != "sub-1" {
			t.Errorf("expected artifact sub-1, got %q", ev.ArtifactID)
		}
		if ev.Verdict == "" {
			t.Error("verdict missing")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no verdict published for submission")
	}
}

func TestWorkerSkipsEmptySubmission(t *testing.T) {
	b := bus.NewChannelBus(10)
	defer b.Close()

	w := New(b, newTestPipeline(t, b))
	if err := w.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer w.Stop()

	payload, _ := json.Marshal(SubmissionMessage{ID: "sub-2"})
	if err := b.Publish(context.Background(), domain.TopicSubmission, payload); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	// Malformed payload must not take the worker down either.
	if err := b.Publish(context.Background(), domain.TopicSubmission, []byte("not json")); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	if err := w.Stop(); err != nil {
		t.Errorf("stop failed: %v", err)
	}
}
