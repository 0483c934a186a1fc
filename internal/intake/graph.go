package intake

import (
	"fmt"

	"github.com/brightline-health/intake-voice-agent/internal/address"
	"github.com/brightline-health/intake-voice-agent/internal/schedule"
	"github.com/brightline-health/intake-voice-agent/pkg/logging"
)

// ValidationMetrics records the latency of external address validation
// calls. *metrics.FlowMetrics satisfies it.
type ValidationMetrics interface {
	ObserveValidationLatency(seconds float64)
}

// GraphConfig carries the dependencies of the intake dialogue graph.
type GraphConfig struct {
	// Slots is the appointment schedule offered during negotiation.
	Slots []schedule.Slot
	// Validator checks addresses for deliverability; nil or unconfigured
	// degrades to committing addresses as typed.
	Validator address.Validator
	// Notifier sends the booking confirmation; nil disables it.
	Notifier Notifier
	// Metrics observes validation latency; nil disables it.
	Metrics ValidationMetrics
	Logger  *logging.Logger
}

// NewIntakeGraph builds the full patient-intake registry: name, insurance,
// referral, complaint, address, contact, and appointment negotiation, ending
// in a single terminal node.
func NewIntakeGraph(cfg GraphConfig) (*Registry, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	if len(cfg.Slots) == 0 {
		cfg.Slots = schedule.Default()
	}

	r := NewRegistry(nodeInitial)
	if err := registerScript(r); err != nil {
		return nil, fmt.Errorf("intake: build graph: %w", err)
	}
	if err := (addressNodes{validator: cfg.Validator, metrics: cfg.Metrics, logger: logger}).register(r); err != nil {
		return nil, fmt.Errorf("intake: build graph: %w", err)
	}
	if err := (contactNodes{logger: logger}).register(r); err != nil {
		return nil, fmt.Errorf("intake: build graph: %w", err)
	}
	if err := (appointmentNodes{slots: cfg.Slots, notifier: cfg.Notifier, logger: logger}).register(r); err != nil {
		return nil, fmt.Errorf("intake: build graph: %w", err)
	}
	return r, nil
}
