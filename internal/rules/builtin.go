package rules

import "github.com/verilayer/lavs/internal/domain"

// BuiltinRules returns the default metadata anomaly rule set, used when the
// repository holds no configured rules. Contributions mirror the weight each
// anomaly carries in the origin-consistency assessment; the metadata
// extractors guarantee every referenced field exists for the matching
// content type.
func BuiltinRules() []*domain.HeuristicRule {
	all := []domain.ContentType{"*"}

	return []*domain.HeuristicRule{
		{
			ID:           "meta-mime-mismatch",
			Name:         "Declared MIME mismatch",
			Description:  "The caller-declared MIME type disagrees with the binary signature.",
			Version:      "1.0",
			AppliesTo:    all,
			Expression:   `meta.declared_mime != "" && meta.detected_mime != "" && meta.declared_mime != meta.detected_mime`,
			Contribution: 15,
			Detail:       "Declared MIME type disagrees with the binary signature.",
			Enabled:      true,
		},
		{
			ID:           "meta-image-no-exif",
			Name:         "Missing EXIF block",
			Version:      "1.0",
			AppliesTo:    []domain.ContentType{domain.ContentImage},
			Expression:   `meta.has_exif == false`,
			Contribution: 25,
			Detail:       "No EXIF metadata found (common in AI-generated images).",
			Enabled:      true,
		},
		{
			ID:           "meta-image-ai-software",
			Name:         "AI tool fingerprint",
			Version:      "1.0",
			AppliesTo:    []domain.ContentType{domain.ContentImage},
			Expression:   `meta.ai_software != ""`,
			Contribution: 80,
			Detail:       "Metadata explicitly indicates AI generation.",
			Enabled:      true,
		},
		{
			ID:           "meta-image-edit-software",
			Name:         "Editing tool fingerprint",
			Version:      "1.0",
			AppliesTo:    []domain.ContentType{domain.ContentImage},
			Expression:   `meta.edit_software != ""`,
			Contribution: 10,
			Detail:       "Edited with image manipulation software.",
			Enabled:      true,
		},
		{
			ID:           "meta-image-no-camera",
			Name:         "Missing camera fingerprint",
			Version:      "1.0",
			AppliesTo:    []domain.ContentType{domain.ContentImage},
			Expression:   `meta.camera_make == ""`,
			Contribution: 10,
			Detail:       "Missing camera fingerprint (could be synthetic).",
			Enabled:      true,
		},
		{
			ID:           "meta-image-high-compression",
			Name:         "Compression lineage",
			Description:  "Bytes-per-pixel below the threshold typical of single-pass camera encodes.",
			Version:      "1.0",
			AppliesTo:    []domain.ContentType{domain.ContentImage},
			Expression:   `meta.bytes_per_pixel >= 0.0 && meta.bytes_per_pixel < 0.08`,
			Contribution: 10,
			Detail:       "High compression ratio detected (possible re-encoding).",
			Enabled:      true,
		},
		{
			ID:           "meta-video-unreadable",
			Name:         "Unreadable video container",
			Version:      "1.0",
			AppliesTo:    []domain.ContentType{domain.ContentVideo},
			Expression:   `meta.container_parsed == false`,
			Contribution: 10,
			Detail:       "Could not read video container metadata.",
			Enabled:      true,
		},
		{
			ID:           "meta-video-short-duration",
			Name:         "Implausibly short duration",
			Version:      "1.0",
			AppliesTo:    []domain.ContentType{domain.ContentVideo},
			Expression:   `meta.duration_secs >= 0.0 && meta.duration_secs < 1.0`,
			Contribution: 5,
			Detail:       "Implausibly short video duration for captured footage.",
			Enabled:      true,
		},
		{
			ID:           "meta-audio-nonstandard-rate",
			Name:         "Non-standard sample rate",
			Version:      "1.0",
			AppliesTo:    []domain.ContentType{domain.ContentAudio},
			Expression:   `meta.sample_rate > 0 && !(meta.sample_rate in [16000, 22050, 44100, 48000])`,
			Contribution: 10,
			Detail:       "Non-standard sample rate (possible resampling).",
			Enabled:      true,
		},
		{
			ID:           "meta-audio-unreadable",
			Name:         "Unreadable audio container",
			Version:      "1.0",
			AppliesTo:    []domain.ContentType{domain.ContentAudio},
			Expression:   `meta.sample_rate == 0`,
			Contribution: 5,
			Detail:       "Audio container metadata could not be read.",
			Enabled:      true,
		},
		{
			ID:           "meta-url-young-domain",
			Name:         "Young domain",
			Version:      "1.0",
			AppliesTo:    []domain.ContentType{domain.ContentURL},
			Expression:   `meta.age_days >= 0 && meta.age_days < 180`,
			Contribution: 20,
			Detail:       "Very young domain (higher risk).",
			Enabled:      true,
		},
		{
			ID:           "meta-url-whois-failed",
			Name:         "WHOIS lookup failure",
			Version:      "1.0",
			AppliesTo:    []domain.ContentType{domain.ContentURL},
			Expression:   `meta.whois_ok == false`,
			Contribution: 5,
			Detail:       "WHOIS registration data could not be retrieved.",
			Enabled:      true,
		},
	}
}
