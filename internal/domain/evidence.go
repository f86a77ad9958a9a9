package domain

// Evidence layer names. These identify the independent evidence families and
// key into the weight profiles, so they must stay stable across releases.
const (
	LayerMetadata     = "Origin & Metadata Consistency"
	LayerPatternImage = "Content-Specific AI Pattern Integrity (Image)"
	LayerPatternVideo = "Content-Specific AI Pattern Integrity (Video)"
	LayerPatternAudio = "Content-Specific AI Pattern Integrity (Audio)"
	LayerPatternURL   = "Content-Specific AI Pattern Integrity (URL)"
	LayerBehavioral   = "Behavioral Deviation Analysis"
)

// LayerEvidence is the result of one evidence producer for one request.
// Score is risk in [0,100], higher meaning more likely synthetic. A producer
// that could not complete reports Available=false with Score 0 and the
// failure reason as its only detail; it still appears in the breakdown so
// callers can see what was skipped.
type LayerEvidence struct {
	Layer     string   `json:"layer"`
	Score     float64  `json:"score"`
	Details   []string `json:"details"`
	Available bool     `json:"available"`
}

// Unavailable builds the evidence record for a producer that failed or timed
// out. The pipeline absorbs the failure; it never propagates.
func Unavailable(layer, reason string) LayerEvidence {
	return LayerEvidence{
		Layer:     layer,
		Score:     0,
		Details:   []string{reason},
		Available: false,
	}
}

// RiskLevel is the three-way banding of the final score.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// Verdict strings paired with each risk level.
const (
	VerdictReal       = "Real"
	VerdictSuspicious = "Suspicious"
	VerdictLikelyFake = "Likely Fake"
)

// VerdictBands holds the score thresholds separating the bands. Static,
// versionable configuration: [0,Medium] is Low, (Medium,High] is Medium,
// (High,100] is High. The boundary score belongs to the lower band.
type VerdictBands struct {
	Medium float64 `json:"medium" yaml:"medium"`
	High   float64 `json:"high" yaml:"high"`
}

// DefaultBands returns the standard 30/60 thresholds.
func DefaultBands() VerdictBands {
	return VerdictBands{Medium: 30, High: 60}
}

// Level maps a final score to its risk level.
func (b VerdictBands) Level(score float64) RiskLevel {
	switch {
	case score <= b.Medium:
		return RiskLow
	case score <= b.High:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// Verdict maps a final score to its verdict string.
func (b VerdictBands) Verdict(score float64) string {
	switch b.Level(score) {
	case RiskLow:
		return VerdictReal
	case RiskMedium:
		return VerdictSuspicious
	default:
		return VerdictLikelyFake
	}
}

// AggregateResult is the aggregator's output for one request. Constructed
// once, returned to the caller, never persisted.
type AggregateResult struct {
	FinalScore     float64         `json:"finalScore"`
	RiskLevel      RiskLevel       `json:"riskLevel"`
	Verdict        string          `json:"verdict"`
	TopSignals     []string        `json:"topSignals"`
	Explanation    string          `json:"explanation"`
	LayerBreakdown []LayerEvidence `json:"layerBreakdown"`
}

// VerdictResponse is the outbound contract serialized by the HTTP layer.
type VerdictResponse struct {
	Verdict     string           `json:"verdict"`
	Confidence  float64          `json:"confidence"`
	Explanation string           `json:"explanation"`
	Breakdown   VerdictBreakdown `json:"breakdown"`
}

// VerdictBreakdown carries the full layer-by-layer detail of a verdict.
type VerdictBreakdown struct {
	FinalScore     float64         `json:"final_score"`
	RiskLevel      string          `json:"risk_level"`
	TopSignals     []string        `json:"top_signals"`
	LayerBreakdown []LayerEvidence `json:"layer_breakdown"`
}

// ToResponse converts an AggregateResult to the API response shape.
func (r *AggregateResult) ToResponse() *VerdictResponse {
	return &VerdictResponse{
		Verdict:     r.Verdict,
		Confidence:  r.FinalScore,
		Explanation: r.Explanation,
		Breakdown: VerdictBreakdown{
			FinalScore:     r.FinalScore,
			RiskLevel:      string(r.RiskLevel),
			TopSignals:     r.TopSignals,
			LayerBreakdown: r.LayerBreakdown,
		},
	}
}
