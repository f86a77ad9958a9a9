package forensics

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/verilayer/lavs/internal/classify"
	"github.com/verilayer/lavs/internal/domain"
	"github.com/verilayer/lavs/internal/lookup"
	"github.com/verilayer/lavs/internal/rules"
)

// MetadataProducer fills the origin & metadata consistency layer. It
// extracts a field map from the artifact (embedded markers, container
// fields, domain registration age) and lets the heuristic rule engine score
// the anomalies.
type MetadataProducer struct {
	engine *rules.Engine
	whois  *lookup.WhoisClient
	now    func() time.Time
}

// NewMetadataProducer creates the metadata forensics producer. The WHOIS
// client may be nil, in which case URL registration checks report as failed
// lookups rather than erroring.
func NewMetadataProducer(engine *rules.Engine, whois *lookup.WhoisClient) *MetadataProducer {
	return &MetadataProducer{
		engine: engine,
		whois:  whois,
		now:    time.Now,
	}
}

func (p *MetadataProducer) Layer() string { return domain.LayerMetadata }

// Analyze extracts metadata fields for the artifact's content type and runs
// the anomaly rules over them. Informational facts about what was extracted
// lead the details, followed by the findings of firing rules.
func (p *MetadataProducer) Analyze(ctx context.Context, art *domain.Artifact) domain.LayerEvidence {
	meta, facts := p.extract(ctx, art)

	score, findings := p.engine.Evaluate(art.Type, meta)

	return domain.LayerEvidence{
		Layer:     domain.LayerMetadata,
		Score:     score,
		Details:   append(facts, findings...),
		Available: true,
	}
}

// extract builds the rule activation map. Every field a builtin rule
// references for the given content type is guaranteed present so rules never
// hit missing-key errors.
func (p *MetadataProducer) extract(ctx context.Context, art *domain.Artifact) (map[string]any, []string) {
	meta := map[string]any{
		"declared_mime": art.DeclaredMIME,
		"detected_mime": classify.DetectedMIME(art.Bytes),
	}
	var facts []string

	if art.DeclaredMIME != "" {
		facts = append(facts, fmt.Sprintf("Declared MIME: %s", art.DeclaredMIME))
	}
	if detected := meta["detected_mime"].(string); detected != "" {
		facts = append(facts, fmt.Sprintf("Detected format: %s", detected))
	}

	switch art.Type {
	case domain.ContentImage:
		facts = append(facts, p.extractImage(art.Bytes, meta)...)
	case domain.ContentVideo:
		facts = append(facts, p.extractVideo(art.Bytes, meta)...)
	case domain.ContentAudio:
		facts = append(facts, p.extractAudio(art.Bytes, meta)...)
	case domain.ContentURL:
		facts = append(facts, p.extractURL(ctx, art.URL, meta)...)
	}

	return meta, facts
}

func (p *MetadataProducer) extractImage(data []byte, meta map[string]any) []string {
	var facts []string

	meta["has_exif"] = hasEXIF(data)
	meta["ai_software"] = findFingerprint(data, aiTools)
	meta["edit_software"] = findFingerprint(data, editTools)
	meta["camera_make"] = findFingerprint(data, cameraMakes)
	meta["bytes_per_pixel"] = -1.0

	if ai := meta["ai_software"].(string); ai != "" {
		facts = append(facts, fmt.Sprintf("Software fingerprint: %s", ai))
	} else if edit := meta["edit_software"].(string); edit != "" {
		facts = append(facts, fmt.Sprintf("Software fingerprint: %s", edit))
	}
	if camera := meta["camera_make"].(string); camera != "" {
		facts = append(facts, fmt.Sprintf("Camera: %s", camera))
	}

	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil && cfg.Width > 0 && cfg.Height > 0 {
		bpp := float64(len(data)) / float64(cfg.Width*cfg.Height)
		meta["bytes_per_pixel"] = bpp
		facts = append(facts,
			fmt.Sprintf("Resolution: %dx%d", cfg.Width, cfg.Height),
			fmt.Sprintf("Bytes per pixel: %.3f", bpp),
		)
	}

	return facts
}

func (p *MetadataProducer) extractVideo(data []byte, meta map[string]any) []string {
	info := parseMP4(data)

	meta["container_parsed"] = info.Parsed
	meta["major_brand"] = info.MajorBrand
	meta["duration_secs"] = info.DurationSecs

	var facts []string
	if info.Parsed {
		if info.MajorBrand != "" {
			facts = append(facts, fmt.Sprintf("Container brand: %s", info.MajorBrand))
		}
		if info.DurationSecs >= 0 {
			facts = append(facts, fmt.Sprintf("Duration: %.2fs", info.DurationSecs))
		}
	}
	return facts
}

func (p *MetadataProducer) extractAudio(data []byte, meta map[string]any) []string {
	info := parseWAV(data)

	meta["sample_rate"] = info.SampleRate
	meta["channels"] = info.Channels

	var facts []string
	if info.Parsed {
		facts = append(facts, fmt.Sprintf("Sample rate: %d Hz, %d channel(s), %d-bit",
			info.SampleRate, info.Channels, info.Bits))
	}
	return facts
}

func (p *MetadataProducer) extractURL(ctx context.Context, rawURL string, meta map[string]any) []string {
	meta["whois_ok"] = false
	meta["age_days"] = -1

	if p.whois == nil {
		return nil
	}

	rec, err := p.whois.Lookup(ctx, rawURL)
	if err != nil {
		return []string{fmt.Sprintf("WHOIS lookup failed: %v", err)}
	}

	meta["whois_ok"] = true
	facts := []string{fmt.Sprintf("Domain: %s", rec.Domain)}

	if age := rec.AgeDays(p.now()); age >= 0 {
		meta["age_days"] = age
		facts = append(facts, fmt.Sprintf("Domain age (days): %d", age))
	}
	return facts
}
