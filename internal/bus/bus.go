// Package bus provides the verdict event bus implementations.
package bus

import (
	"fmt"

	"github.com/verilayer/lavs/internal/domain"
)

// New creates an event bus based on configuration: Go channels for a single
// node, NATS for clusters.
func New(cfg domain.EventBusConfig) (domain.EventBus, error) {
	switch cfg.Type {
	case "channel":
		return NewChannelBus(cfg.ChannelBufferSize), nil

	case "nats":
		return NewNATSBus(cfg)

	default:
		return nil, fmt.Errorf("unsupported event bus type: %s", cfg.Type)
	}
}
