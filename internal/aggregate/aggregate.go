// Package aggregate implements the adaptive evidence aggregator. It combines
// heterogeneous, partially-available layer evidence into one explainable
// score and verdict: weights adapt to the detected content type and are
// renormalized over the layers that actually completed, so a missing layer
// never shifts risk beyond its own evidence.
package aggregate

import (
	"fmt"
	"math"
	"sort"

	"github.com/verilayer/lavs/internal/domain"
)

// InsufficientEvidence is the signal reported when every producer failed.
const InsufficientEvidence = "insufficient evidence"

// MaxTopSignals bounds the ranked signal list.
const MaxTopSignals = 5

// Aggregator combines layer evidence using content-type-adaptive weights.
// Configuration is fixed at construction; Aggregate is a pure function of
// its arguments.
type Aggregator struct {
	profiles *domain.WeightProfiles
	bands    domain.VerdictBands
}

// New creates an aggregator. Nil profiles fall back to the built-in set.
func New(profiles *domain.WeightProfiles, bands domain.VerdictBands) *Aggregator {
	if profiles == nil {
		profiles = domain.DefaultWeightProfiles()
	}
	return &Aggregator{profiles: profiles, bands: bands}
}

// layerStat pairs a layer with its effective weight and contribution.
type layerStat struct {
	index        int
	effective    float64
	contribution float64
}

// Aggregate combines the attempted layers into a final result. All layers
// appear in the breakdown, including unavailable ones, so the caller can see
// what was skipped. The aggregator itself never fails: producer failures
// were already absorbed into available=false records upstream.
func (a *Aggregator) Aggregate(ct domain.ContentType, layers []domain.LayerEvidence) *domain.AggregateResult {
	profile := a.profiles.For(ct)

	var available []int
	for i, l := range layers {
		if l.Available {
			available = append(available, i)
		}
	}

	// Total evidence loss: fail open toward "insufficient data" rather than
	// toward a false-positive verdict.
	if len(available) == 0 {
		return &domain.AggregateResult{
			FinalScore:     0,
			RiskLevel:      domain.RiskLow,
			Verdict:        a.bands.Verdict(0),
			TopSignals:     []string{InsufficientEvidence},
			Explanation:    "insufficient evidence: no analysis layers completed",
			LayerBreakdown: layers,
		}
	}

	// Renormalize base weights over the available subset so effective
	// weights always sum to 1 regardless of how many producers failed.
	var weightSum float64
	for _, i := range available {
		weightSum += profile.Weight(layers[i].Layer)
	}

	stats := make([]layerStat, 0, len(available))
	var finalScore float64
	for _, i := range available {
		eff := 1.0 / float64(len(available))
		if weightSum > 0 {
			eff = profile.Weight(layers[i].Layer) / weightSum
		}
		contribution := eff * layers[i].Score
		finalScore += contribution
		stats = append(stats, layerStat{index: i, effective: eff, contribution: contribution})
	}

	finalScore = math.Round(finalScore*10) / 10

	return &domain.AggregateResult{
		FinalScore:     finalScore,
		RiskLevel:      a.bands.Level(finalScore),
		Verdict:        a.bands.Verdict(finalScore),
		TopSignals:     topSignals(layers, stats),
		Explanation:    explanation(layers, stats),
		LayerBreakdown: layers,
	}
}

// topSignals ranks detail strings by the contribution of their source layer,
// descending, preferring higher-scoring layers' earliest-listed details on
// ties, and takes the first MaxTopSignals.
func topSignals(layers []domain.LayerEvidence, stats []layerStat) []string {
	ranked := rankStats(layers, stats)

	signals := make([]string, 0, MaxTopSignals)
	for _, s := range ranked {
		for _, d := range layers[s.index].Details {
			if len(signals) == MaxTopSignals {
				return signals
			}
			signals = append(signals, d)
		}
	}
	return signals
}

// explanation is generated from the single highest-contributing layer's
// leading detail, prefixed by the layer name. Deterministic, no randomness.
func explanation(layers []domain.LayerEvidence, stats []layerStat) string {
	for _, s := range rankStats(layers, stats) {
		l := layers[s.index]
		if len(l.Details) > 0 {
			return fmt.Sprintf("%s: %s", l.Layer, l.Details[0])
		}
	}
	return "risk assessment generated from metadata, pattern, and behavioral cues"
}

// rankStats orders layer stats by contribution descending; ties go to the
// higher raw score, then to the original layer order (stable sort).
func rankStats(layers []domain.LayerEvidence, stats []layerStat) []layerStat {
	ranked := make([]layerStat, len(stats))
	copy(ranked, stats)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].contribution != ranked[j].contribution {
			return ranked[i].contribution > ranked[j].contribution
		}
		return layers[ranked[i].index].Score > layers[ranked[j].index].Score
	})
	return ranked
}
