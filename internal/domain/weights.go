package domain

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// FallbackLayerWeight is used for a layer name that has no entry in the
// profile for its content type.
const FallbackLayerWeight = 0.1

// WeightProfile maps layer names to base weights for one content type.
// Weights sum to 1.0 by construction.
type WeightProfile map[string]float64

// WeightProfiles holds one profile per content type plus the default profile
// used for Unknown. Loaded once at process start, read-only afterwards.
type WeightProfiles struct {
	Profiles map[ContentType]WeightProfile `yaml:"profiles"`
	Default  WeightProfile                 `yaml:"default"`
}

// DefaultWeightProfiles returns the built-in adaptive profiles. Pattern
// integrity dominates for every media type; the default profile splits
// evenly between the two layers that apply to any content.
func DefaultWeightProfiles() *WeightProfiles {
	return &WeightProfiles{
		Profiles: map[ContentType]WeightProfile{
			ContentImage: {
				LayerMetadata:     0.25,
				LayerPatternImage: 0.45,
				LayerBehavioral:   0.30,
			},
			ContentVideo: {
				LayerMetadata:     0.20,
				LayerPatternVideo: 0.50,
				LayerBehavioral:   0.30,
			},
			ContentAudio: {
				LayerMetadata:     0.20,
				LayerPatternAudio: 0.50,
				LayerBehavioral:   0.30,
			},
			ContentURL: {
				LayerMetadata:     0.25,
				LayerPatternURL:   0.45,
				LayerBehavioral:   0.30,
			},
		},
		Default: WeightProfile{
			LayerMetadata:   0.50,
			LayerBehavioral: 0.50,
		},
	}
}

// For returns the profile for a content type, falling back to the default
// profile for Unknown or unconfigured types.
func (w *WeightProfiles) For(ct ContentType) WeightProfile {
	if p, ok := w.Profiles[ct]; ok {
		return p
	}
	return w.Default
}

// Weight returns the base weight for a layer within a profile, applying the
// fallback weight for unprofiled layers.
func (p WeightProfile) Weight(layer string) float64 {
	if w, ok := p[layer]; ok {
		return w
	}
	return FallbackLayerWeight
}

// Validate checks every profile sums to 1.0 within floating tolerance and
// contains no negative weights.
func (w *WeightProfiles) Validate() error {
	check := func(name string, p WeightProfile) error {
		var sum float64
		for layer, weight := range p {
			if weight < 0 || weight > 1 {
				return fmt.Errorf("profile %s: layer %q weight %.3f out of [0,1]", name, layer, weight)
			}
			sum += weight
		}
		if math.Abs(sum-1.0) > 1e-6 {
			return fmt.Errorf("profile %s: weights sum to %.6f, want 1.0", name, sum)
		}
		return nil
	}

	for ct, p := range w.Profiles {
		if err := check(string(ct), p); err != nil {
			return err
		}
	}
	return check("default", w.Default)
}

// LoadWeightProfiles reads profiles from a YAML file. An empty path returns
// the built-in defaults.
func LoadWeightProfiles(path string) (*WeightProfiles, error) {
	if path == "" {
		return DefaultWeightProfiles(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read weight profiles: %w", err)
	}

	var w WeightProfiles
	if err := yaml.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("failed to parse weight profiles: %w", err)
	}
	if w.Default == nil {
		w.Default = DefaultWeightProfiles().Default
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &w, nil
}
