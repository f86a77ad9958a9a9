// Package rules provides the CEL-based metadata anomaly rule engine.
//
// Each rule is a boolean CEL expression over the extracted metadata field
// map. A firing rule adds its fixed contribution to the layer risk score and
// appends its detail string to the findings. Rules evaluate in load order so
// results are deterministic.
package rules

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/verilayer/lavs/internal/domain"
)

// Engine evaluates heuristic rules against extracted metadata.
type Engine struct {
	mu       sync.RWMutex
	env      *cel.Env
	compiled []*CompiledRule
	byID     map[string]int
}

// CompiledRule holds a pre-compiled CEL program.
type CompiledRule struct {
	Config  *domain.HeuristicRule
	Program cel.Program
}

// NewEngine creates a new rule evaluation engine.
func NewEngine() (*Engine, error) {
	env, err := cel.NewEnv(
		cel.Variable("meta", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("content_type", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Engine{
		env:  env,
		byID: make(map[string]int),
	}, nil
}

// ValidateRule compiles a rule without loading it.
func (e *Engine) ValidateRule(cfg *domain.HeuristicRule) error {
	if cfg == nil {
		return fmt.Errorf("rule config is required")
	}
	_, err := e.compileRule(cfg)
	return err
}

// LoadRule compiles and loads a rule. Reloading an existing ID replaces it
// in place, preserving evaluation order.
func (e *Engine) LoadRule(cfg *domain.HeuristicRule) error {
	compiled, err := e.compileRule(cfg)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if idx, ok := e.byID[cfg.ID]; ok {
		e.compiled[idx] = compiled
		return nil
	}
	e.byID[cfg.ID] = len(e.compiled)
	e.compiled = append(e.compiled, compiled)
	return nil
}

// LoadRules compiles and loads multiple rules, skipping disabled ones.
func (e *Engine) LoadRules(configs []*domain.HeuristicRule) error {
	for _, cfg := range configs {
		if cfg.Enabled {
			if err := e.LoadRule(cfg); err != nil {
				return err
			}
		}
	}
	return nil
}

// Evaluate runs every applicable rule against the metadata fields and
// returns the accumulated risk score (clamped to [0,100]) plus the detail
// strings of firing rules, in load order. A rule whose evaluation errors is
// skipped; a broken rule must not sink the layer.
func (e *Engine) Evaluate(ct domain.ContentType, meta map[string]any) (float64, []string) {
	e.mu.RLock()
	compiled := e.compiled
	e.mu.RUnlock()

	activation := map[string]any{
		"meta":         meta,
		"content_type": string(ct),
	}

	var score float64
	var details []string

	for _, rule := range compiled {
		if !rule.Config.Applies(ct) {
			continue
		}

		out, _, err := rule.Program.Eval(activation)
		if err != nil {
			slog.Debug("heuristic rule evaluation error",
				"rule_id", rule.Config.ID,
				"error", err,
			)
			continue
		}

		fired, ok := out.(types.Bool)
		if !ok || !bool(fired) {
			continue
		}

		score += rule.Config.Contribution
		details = append(details, rule.Config.Detail)
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score, details
}

// RulesCount returns the number of loaded rules.
func (e *Engine) RulesCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.compiled)
}

// LoadedRules returns the currently loaded rule configurations in load order.
func (e *Engine) LoadedRules() []*domain.HeuristicRule {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]*domain.HeuristicRule, 0, len(e.compiled))
	for _, c := range e.compiled {
		out = append(out, c.Config)
	}
	return out
}

// Close cleans up the engine.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.compiled = nil
	e.byID = make(map[string]int)
	return nil
}

func (e *Engine) compileRule(cfg *domain.HeuristicRule) (*CompiledRule, error) {
	ast, issues := e.env.Compile(cfg.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile rule %s: %w", cfg.ID, issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("rule %s: expression must return bool, got %s", cfg.ID, ast.OutputType())
	}

	if cfg.Contribution < 0 || cfg.Contribution > 100 {
		return nil, fmt.Errorf("rule %s: contribution %.1f out of [0,100]", cfg.ID, cfg.Contribution)
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for rule %s: %w", cfg.ID, err)
	}

	return &CompiledRule{
		Config:  cfg,
		Program: program,
	}, nil
}
