package forensics

import (
	"context"
	"fmt"
	"math"

	"github.com/verilayer/lavs/internal/domain"
)

// VideoProducer fills the video pattern integrity layer. Without a codec
// stack it works on the compressed bitstream itself: generated footage tends
// to encode with unusually even complexity over time, which shows up as flat
// windowed entropy.
type VideoProducer struct{}

func NewVideoProducer() *VideoProducer { return &VideoProducer{} }

func (p *VideoProducer) Layer() string { return domain.LayerPatternVideo }

const (
	vidWeightTemporal = 0.4
	vidWeightFlux     = 0.3
	vidWeightLevel    = 0.3

	// vidWindows is the number of temporal slices the payload is cut into.
	vidWindows = 40

	// vidMinBytes is the smallest payload worth profiling.
	vidMinBytes = 4096
)

func (p *VideoProducer) Analyze(ctx context.Context, art *domain.Artifact) domain.LayerEvidence {
	if len(art.Bytes) < vidMinBytes {
		return domain.Unavailable(p.Layer(), "video payload too small for stream analysis")
	}

	entropies := windowEntropies(art.Bytes, vidWindows)
	if len(entropies) == 0 {
		return domain.Unavailable(p.Layer(), "video payload too small for stream analysis")
	}

	var ws weightedSum

	temporalStd := stddev(entropies)
	ws.add(vidWeightTemporal, temporalRisk(temporalStd),
		fmt.Sprintf("Temporal entropy stddev: %.4f", temporalStd),
		"Unnaturally even bitstream complexity over time (possible synthesis).")

	flux := entropyFlux(entropies)
	ws.add(vidWeightFlux, fluxRisk(flux),
		fmt.Sprintf("Frame-to-frame entropy flux: %.4f", flux),
		"Near-zero complexity changes between segments (missing scene dynamics).")

	level := mean(entropies)
	ws.add(vidWeightLevel, streamLevelRisk(level),
		fmt.Sprintf("Mean stream entropy: %.2f bits/byte", level),
		"Bitstream entropy outside the range of standard encoders.")

	return domain.LayerEvidence{
		Layer:     p.Layer(),
		Score:     ws.total(),
		Details:   ws.details,
		Available: true,
	}
}

// entropyFlux is the mean absolute change between consecutive windows.
func entropyFlux(entropies []float64) float64 {
	if len(entropies) < 2 {
		return 0
	}
	var sum float64
	for i := 1; i < len(entropies); i++ {
		sum += math.Abs(entropies[i] - entropies[i-1])
	}
	return sum / float64(len(entropies)-1)
}

func temporalRisk(std float64) float64 {
	switch {
	case std < 0.01:
		return 80
	case std < 0.05:
		return 40
	default:
		return 0
	}
}

func fluxRisk(flux float64) float64 {
	switch {
	case flux < 0.005:
		return 70
	case flux < 0.02:
		return 30
	default:
		return 0
	}
}

// streamLevelRisk flags payloads outside the entropy band of real compressed
// video. Well-encoded streams sit near 8 bits/byte; very low levels mean the
// payload is not genuine compressed media.
func streamLevelRisk(level float64) float64 {
	switch {
	case level < 6:
		return 75
	case level < 7.2:
		return 35
	default:
		return 0
	}
}
