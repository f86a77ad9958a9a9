package forensics

import (
	"context"
	"math/rand"
	"testing"

	"github.com/verilayer/lavs/internal/domain"
)

func highEntropyPayload(n int) []byte {
	rng := rand.New(rand.NewSource(9))
	data := make([]byte, n)
	rng.Read(data)
	return data
}

func TestBehavioralNoDeviation(t *testing.T) {
	p := NewBehavioralProducer()

	prior := []domain.LayerEvidence{
		{Layer: domain.LayerMetadata, Score: 10, Available: true,
			Details: []string{"Declared MIME: image/png"}},
		{Layer: domain.LayerPatternImage, Score: 55, Available: true,
			Details: []string{"Noise level (sigma): 18.20"}},
	}

	ev := p.Analyze(context.Background(), &domain.Artifact{Bytes: highEntropyPayload(8192)}, prior)

	if !ev.Available {
		t.Fatal("behavioral layer must always be available")
	}
	if ev.Score != 0 {
		t.Errorf("expected score 0, got %v\ndetails: %v", ev.Score, ev.Details)
	}
	if len(ev.Details) != 1 || ev.Details[0] != noDeviationDetail {
		t.Errorf("expected the no-deviation detail, got %v", ev.Details)
	}
}

func TestBehavioralOverConsistency(t *testing.T) {
	p := NewBehavioralProducer()

	prior := []domain.LayerEvidence{
		{Layer: domain.LayerPatternImage, Score: 60, Available: true, Details: []string{
			"Unnaturally smooth texture (possible AI over-smoothing).",
			"Micro-regions too uniform (cross-region coherence overly smooth).",
		}},
		{Layer: domain.LayerMetadata, Score: 10, Available: true,
			Details: []string{"Declared MIME: image/png"}},
	}

	ev := p.Analyze(context.Background(), &domain.Artifact{Bytes: highEntropyPayload(8192)}, prior)

	// Two consistency mentions (20) plus one uniformity flag is below the
	// two-layer homogeneity threshold; layer scores 60 and 10 disagree enough
	// to skip the agreement bonus.
	if ev.Score != 20 {
		t.Errorf("expected score 20, got %v\ndetails: %v", ev.Score, ev.Details)
	}
}

func TestBehavioralLayerAgreement(t *testing.T) {
	p := NewBehavioralProducer()

	prior := []domain.LayerEvidence{
		{Layer: domain.LayerMetadata, Score: 48, Available: true,
			Details: []string{"Declared MIME: image/png"}},
		{Layer: domain.LayerPatternImage, Score: 52, Available: true,
			Details: []string{"Noise level (sigma): 6.10"}},
	}

	ev := p.Analyze(context.Background(), &domain.Artifact{Bytes: highEntropyPayload(8192)}, prior)

	// Variance of {48,52} is 4, well under the agreement threshold.
	if ev.Score != 10 {
		t.Errorf("expected score 10, got %v\ndetails: %v", ev.Score, ev.Details)
	}
	if !containsDetail(ev.Details, "agree") {
		t.Errorf("expected agreement finding, got %v", ev.Details)
	}
}

func TestBehavioralHomogeneityAcrossLayers(t *testing.T) {
	p := NewBehavioralProducer()

	prior := []domain.LayerEvidence{
		{Layer: domain.LayerMetadata, Score: 10, Available: true,
			Details: []string{"Low entropy in pixel distribution (possible synthetic texture)."}},
		{Layer: domain.LayerPatternImage, Score: 70, Available: true,
			Details: []string{"Micro-regions too uniform (cross-region coherence overly smooth)."}},
	}

	ev := p.Analyze(context.Background(), &domain.Artifact{Bytes: highEntropyPayload(8192)}, prior)

	// One uniformity mention (10) plus two layers with homogeneity flags (10).
	if ev.Score != 20 {
		t.Errorf("expected score 20, got %v\ndetails: %v", ev.Score, ev.Details)
	}
}

func TestBehavioralLowEntropyPayload(t *testing.T) {
	p := NewBehavioralProducer()

	flat := make([]byte, 8192)
	ev := p.Analyze(context.Background(), &domain.Artifact{Bytes: flat}, nil)

	if ev.Score != 15 {
		t.Errorf("expected score 15 for flat payload, got %v\ndetails: %v", ev.Score, ev.Details)
	}
	if !containsDetail(ev.Details, "entropy") {
		t.Errorf("expected entropy finding, got %v", ev.Details)
	}
}

func TestBehavioralIgnoresUnavailableLayers(t *testing.T) {
	p := NewBehavioralProducer()

	prior := []domain.LayerEvidence{
		domain.Unavailable(domain.LayerPatternImage, "analysis exceeded 20s budget"),
		{Layer: domain.LayerMetadata, Score: 10, Available: true,
			Details: []string{"Declared MIME: image/png"}},
	}

	ev := p.Analyze(context.Background(), &domain.Artifact{Bytes: highEntropyPayload(8192)}, prior)

	if ev.Score != 0 {
		t.Errorf("unavailable layers must not contribute, got %v\ndetails: %v", ev.Score, ev.Details)
	}
}
