// Package forensics implements the evidence producers: metadata forensics,
// the content-specific pattern integrity variants, and behavioral deviation
// analysis. Every producer honors the same contract: it is idempotent, holds
// no shared mutable state, and converts any internal failure into an
// unavailable evidence record instead of an error.
package forensics

import (
	"context"
	"fmt"
	"time"

	"github.com/verilayer/lavs/internal/domain"
)

// Producer is the uniform evidence producer contract.
type Producer interface {
	// Layer returns the evidence layer name this producer fills.
	Layer() string

	// Analyze inspects the artifact and returns layer evidence. It never
	// returns an error: failures become available=false records.
	Analyze(ctx context.Context, art *domain.Artifact) domain.LayerEvidence
}

// Set is the closed, enumerated producer collection. The pattern variant is
// selected per content type through a static table; there is no runtime
// plugin loading.
type Set struct {
	Metadata   Producer
	Image      Producer
	Video      Producer
	Audio      Producer
	Web        Producer
	Behavioral *BehavioralProducer
}

// Independent returns the producers applicable to a content type that may
// run concurrently, in a fixed order. Behavioral is excluded: it has an
// ordering dependency on the others and runs as a join point afterwards.
func (s *Set) Independent(ct domain.ContentType) []Producer {
	producers := []Producer{s.Metadata}
	switch ct {
	case domain.ContentImage:
		producers = append(producers, s.Image)
	case domain.ContentVideo:
		producers = append(producers, s.Video)
	case domain.ContentAudio:
		producers = append(producers, s.Audio)
	case domain.ContentURL:
		producers = append(producers, s.Web)
	case domain.ContentUnknown:
		// Only the universally-applicable layers run.
	}
	return producers
}

// Run executes a producer under its time budget, absorbing panics and
// timeouts into unavailable evidence. A producer that misbehaves is a lost
// layer, never a lost request.
func Run(ctx context.Context, p Producer, art *domain.Artifact, timeout time.Duration) domain.LayerEvidence {
	if timeout <= 0 {
		return safeAnalyze(ctx, p, art)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan domain.LayerEvidence, 1)
	go func() {
		done <- safeAnalyze(ctx, p, art)
	}()

	select {
	case ev := <-done:
		return ev
	case <-ctx.Done():
		return domain.Unavailable(p.Layer(), fmt.Sprintf("analysis exceeded %s budget", timeout))
	}
}

func safeAnalyze(ctx context.Context, p Producer, art *domain.Artifact) (ev domain.LayerEvidence) {
	defer func() {
		if r := recover(); r != nil {
			ev = domain.Unavailable(p.Layer(), fmt.Sprintf("analysis panic: %v", r))
		}
	}()
	return p.Analyze(ctx, art)
}
