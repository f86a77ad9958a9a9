package rules

import (
	"testing"

	"github.com/verilayer/lavs/internal/domain"
)

func TestEngineCreation(t *testing.T) {
	engine, err := NewEngine()
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	defer engine.Close()

	if engine.RulesCount() != 0 {
		t.Errorf("expected 0 rules, got %d", engine.RulesCount())
	}
}

func TestLoadRule(t *testing.T) {
	engine, _ := NewEngine()
	defer engine.Close()

	rule := &domain.HeuristicRule{
		ID:           "test-rule-001",
		Name:         "Test Rule",
		AppliesTo:    []domain.ContentType{"*"},
		Expression:   `meta.flag == true`,
		Contribution: 10,
		Detail:       "flag raised",
		Enabled:      true,
	}

	if err := engine.LoadRule(rule); err != nil {
		t.Fatalf("failed to load rule: %v", err)
	}
	if engine.RulesCount() != 1 {
		t.Errorf("expected 1 rule, got %d", engine.RulesCount())
	}
}

func TestLoadInvalidRule(t *testing.T) {
	engine, _ := NewEngine()
	defer engine.Close()

	cases := []*domain.HeuristicRule{
		{ID: "bad-cel", Expression: "this is not valid CEL !!!", Contribution: 10},
		{ID: "non-bool", Expression: "1 + 1", Contribution: 10},
		{ID: "bad-contribution", Expression: "true", Contribution: 150},
	}

	for _, cfg := range cases {
		if err := engine.LoadRule(cfg); err == nil {
			t.Errorf("rule %s: expected load error", cfg.ID)
		}
	}
}

func TestEvaluateAccumulatesContributions(t *testing.T) {
	engine, _ := NewEngine()
	defer engine.Close()

	err := engine.LoadRules([]*domain.HeuristicRule{
		{
			ID: "no-exif", AppliesTo: []domain.ContentType{domain.ContentImage},
			Expression: `meta.has_exif == false`, Contribution: 25,
			Detail: "no exif", Enabled: true,
		},
		{
			ID: "no-camera", AppliesTo: []domain.ContentType{domain.ContentImage},
			Expression: `meta.camera_make == ""`, Contribution: 10,
			Detail: "no camera", Enabled: true,
		},
		{
			ID: "audio-only", AppliesTo: []domain.ContentType{domain.ContentAudio},
			Expression: `true`, Contribution: 50,
			Detail: "should not fire for images", Enabled: true,
		},
	})
	if err != nil {
		t.Fatalf("failed to load rules: %v", err)
	}

	meta := map[string]any{
		"has_exif":    false,
		"camera_make": "",
	}

	score, details := engine.Evaluate(domain.ContentImage, meta)
	if score != 35 {
		t.Errorf("expected score 35, got %.1f", score)
	}
	if len(details) != 2 || details[0] != "no exif" || details[1] != "no camera" {
		t.Errorf("unexpected details: %v", details)
	}
}

func TestEvaluateClampsAt100(t *testing.T) {
	engine, _ := NewEngine()
	defer engine.Close()

	for _, id := range []string{"a", "b"} {
		err := engine.LoadRule(&domain.HeuristicRule{
			ID: id, AppliesTo: []domain.ContentType{"*"},
			Expression: "true", Contribution: 80, Detail: id, Enabled: true,
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	score, _ := engine.Evaluate(domain.ContentImage, map[string]any{})
	if score != 100 {
		t.Errorf("expected clamp at 100, got %.1f", score)
	}
}

func TestEvaluateSkipsBrokenRule(t *testing.T) {
	engine, _ := NewEngine()
	defer engine.Close()

	err := engine.LoadRules([]*domain.HeuristicRule{
		{
			ID: "references-missing-field", AppliesTo: []domain.ContentType{"*"},
			Expression: `meta.not_present == true`, Contribution: 40,
			Detail: "should be skipped", Enabled: true,
		},
		{
			ID: "fires", AppliesTo: []domain.ContentType{"*"},
			Expression: "true", Contribution: 10, Detail: "fired", Enabled: true,
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	score, details := engine.Evaluate(domain.ContentURL, map[string]any{"present": true})
	if score != 10 {
		t.Errorf("broken rule must not contribute, got score %.1f", score)
	}
	if len(details) != 1 || details[0] != "fired" {
		t.Errorf("unexpected details: %v", details)
	}
}

func TestEvaluateDeterministicOrder(t *testing.T) {
	engine, _ := NewEngine()
	defer engine.Close()

	ids := []string{"first", "second", "third"}
	for _, id := range ids {
		err := engine.LoadRule(&domain.HeuristicRule{
			ID: id, AppliesTo: []domain.ContentType{"*"},
			Expression: "true", Contribution: 1, Detail: id, Enabled: true,
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	_, first := engine.Evaluate(domain.ContentImage, map[string]any{})
	for i := 0; i < 10; i++ {
		_, again := engine.Evaluate(domain.ContentImage, map[string]any{})
		for j := range first {
			if first[j] != again[j] {
				t.Fatalf("detail order changed between runs: %v vs %v", first, again)
			}
		}
	}
}

func TestBuiltinRulesCompile(t *testing.T) {
	engine, _ := NewEngine()
	defer engine.Close()

	if err := engine.LoadRules(BuiltinRules()); err != nil {
		t.Fatalf("builtin rules failed to load: %v", err)
	}
	if engine.RulesCount() == 0 {
		t.Fatal("expected builtin rules to load")
	}

	// A clean camera image should only trip the no-camera rule when the
	// make is absent.
	meta := map[string]any{
		"declared_mime":   "image/jpeg",
		"detected_mime":   "image/jpeg",
		"has_exif":        true,
		"ai_software":     "",
		"edit_software":   "",
		"camera_make":     "Canon",
		"bytes_per_pixel": 0.25,
	}
	score, details := engine.Evaluate(domain.ContentImage, meta)
	if score != 0 {
		t.Errorf("clean image metadata should score 0, got %.1f (%v)", score, details)
	}

	// AI fingerprint (80) plus missing EXIF (25) clamps at 100.
	meta["ai_software"] = "Midjourney"
	meta["has_exif"] = false
	score, _ = engine.Evaluate(domain.ContentImage, meta)
	if score != 100 {
		t.Errorf("expected clamped score 100, got %.1f", score)
	}
}
