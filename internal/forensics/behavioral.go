package forensics

import (
	"context"
	"fmt"
	"strings"

	"github.com/verilayer/lavs/internal/domain"
)

// BehavioralProducer fills the behavioral deviation layer. Unlike the other
// producers it consumes the evidence already gathered: it looks for
// cross-layer patterns no single layer sees, chiefly the "too perfect"
// signature where every measurement lands suspiciously in line.
type BehavioralProducer struct{}

func NewBehavioralProducer() *BehavioralProducer { return &BehavioralProducer{} }

func (p *BehavioralProducer) Layer() string { return domain.LayerBehavioral }

// Phrases in prior findings that indicate over-consistent measurements.
var consistencyPhrases = []string{"smooth", "uniform", "stable", "regular", "consistent"}

const noDeviationDetail = "No significant behavioral deviations detected."

// Analyze scores behavioral deviation from the artifact and the evidence the
// independent layers produced. It always reports as available: absence of
// deviation is itself a finding.
func (p *BehavioralProducer) Analyze(ctx context.Context, art *domain.Artifact, prior []domain.LayerEvidence) domain.LayerEvidence {
	var score float64
	var details []string

	if n := consistencyMentions(prior); n > 0 {
		score += float64(n) * 10
		details = append(details, fmt.Sprintf(
			"Cross-layer over-consistency: %d measurement(s) flagged as unusually uniform.", n))
	}

	if available := availableScores(prior); len(available) >= 2 {
		if v := variance(available); v < 50 {
			score += 10
			details = append(details, fmt.Sprintf(
				"Analysis layers agree too closely (score variance %.1f).", v))
		}
	}

	if n := homogeneityFlags(prior); n >= 2 {
		score += 10
		details = append(details, fmt.Sprintf(
			"%d layers independently report homogeneity or entropy anomalies.", n))
	}

	if len(art.Bytes) > 0 {
		if h := byteEntropy(art.Bytes); h < 3.0 {
			score += 15
			details = append(details, fmt.Sprintf(
				"Payload entropy %.2f bits/byte is far below real media content.", h))
		}
	}

	if len(details) == 0 {
		details = append(details, noDeviationDetail)
	}

	return domain.LayerEvidence{
		Layer:     domain.LayerBehavioral,
		Score:     clamp(score, 0, 100),
		Details:   details,
		Available: true,
	}
}

// consistencyMentions counts prior detail lines containing an
// over-consistency phrase.
func consistencyMentions(prior []domain.LayerEvidence) int {
	n := 0
	for _, ev := range prior {
		if !ev.Available {
			continue
		}
		for _, d := range ev.Details {
			lower := strings.ToLower(d)
			for _, phrase := range consistencyPhrases {
				if strings.Contains(lower, phrase) {
					n++
					break
				}
			}
		}
	}
	return n
}

func availableScores(prior []domain.LayerEvidence) []float64 {
	var scores []float64
	for _, ev := range prior {
		if ev.Available {
			scores = append(scores, ev.Score)
		}
	}
	return scores
}

// homogeneityFlags counts layers with at least one homogeneity or
// low-entropy finding. Only anomaly wording counts; the plain measured-value
// lines do not.
func homogeneityFlags(prior []domain.LayerEvidence) int {
	n := 0
	for _, ev := range prior {
		if !ev.Available {
			continue
		}
		for _, d := range ev.Details {
			lower := strings.ToLower(d)
			if strings.Contains(lower, "low entropy") || strings.Contains(lower, "entropy outside") ||
				strings.Contains(lower, "uniform") || strings.Contains(lower, "homogene") {
				n++
				break
			}
		}
	}
	return n
}
