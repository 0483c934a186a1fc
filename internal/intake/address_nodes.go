package intake

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/brightline-health/intake-voice-agent/internal/address"
	"github.com/brightline-health/intake-voice-agent/internal/spellout"
	"github.com/brightline-health/intake-voice-agent/pkg/logging"
)

const (
	nodeCollectFullAddress   = "collect_full_address"
	nodeConfirmFullAddress   = "confirm_full_address"
	nodeAddressInvalid       = "address_invalid"
	nodeAddressInvalidFormat = "address_invalid_format"
)

const (
	scratchAddressText   = "pending_address_text"
	scratchAddressReason = "address_reject_reason"
)

// addressNodes carries the validation dependency into the address section of
// the graph.
type addressNodes struct {
	validator address.Validator
	metrics   ValidationMetrics
	logger    *logging.Logger
}

func (a addressNodes) register(r *Registry) error {
	nodes := map[string]NodeTemplate{
		nodeCollectFullAddress:   a.collectNode(),
		nodeConfirmFullAddress:   a.confirmNode(),
		nodeAddressInvalid:       a.invalidNode(),
		nodeAddressInvalidFormat: a.invalidFormatNode(),
	}
	for _, id := range []string{nodeCollectFullAddress, nodeConfirmFullAddress, nodeAddressInvalid, nodeAddressInvalidFormat} {
		if err := r.Register(id, nodes[id]); err != nil {
			return err
		}
	}
	return nil
}

// collectNode takes the whole address in one utterance. Splitting it into
// per-component questions measurably loses callers, so the flow asks once
// and lets the parser do the work.
func (a addressNodes) collectNode() NodeTemplate {
	return func(_ *Session) Node {
		return Node{
			ID:     nodeCollectFullAddress,
			Prompt: "What is your home address? Please include the street, city, state, and ZIP code.",
			Functions: []FunctionSchema{{
				Name:        "collect_full_address",
				Description: "Record the patient's full mailing address as one utterance, verbatim.",
				Params: []Param{{
					Name:        "address_text",
					Type:        ParamString,
					Description: "The complete address exactly as the caller said it.",
					Required:    true,
				}},
				Handler: func(_ context.Context, args Args) (Result, error) {
					raw, ok := args.String("address_text")
					if !ok {
						return nil, ambiguousInput("address_text", "expected a text value")
					}
					trimmed := strings.TrimSpace(raw)
					if trimmed == "" {
						return nil, ambiguousInput("address_text", "empty value")
					}
					return AddressTextResult{Text: trimmed}, nil
				},
				Transition: func(_ context.Context, res Result, s *Session) (string, error) {
					ar, ok := res.(AddressTextResult)
					if !ok {
						return "", internalInconsistency("unexpected result for collect_full_address")
					}
					s.SetScratch(scratchAddressText, ar.Text)
					return nodeConfirmFullAddress, nil
				},
			}},
		}
	}
}

// confirmNode spells the pending address character by character. A confirmed
// address is parsed and validated inside the transition, so the session only
// advances once the outcome is known.
func (a addressNodes) confirmNode() NodeTemplate {
	return func(s *Session) Node {
		pending := s.ScratchValue(scratchAddressText)
		return Node{
			ID: nodeConfirmFullAddress,
			Prompt: "Let me read that back: " + spellout.Characters(pending) +
				". Is that correct? If anything is wrong, please say the full corrected address.",
			Functions: []FunctionSchema{{
				Name:        "confirm_address",
				Description: "Record whether the spelled address was correct, with an optional corrected full address.",
				Params: []Param{
					{Name: "confirmed", Type: ParamBoolean, Description: "True if the caller said the address is correct.", Required: true},
					{Name: "correction", Type: ParamString, Description: "The full corrected address, if the caller restated it."},
				},
				Handler:    confirmationHandler,
				Transition: a.confirmTransition,
			}},
		}
	}
}

func (a addressNodes) confirmTransition(ctx context.Context, res Result, s *Session) (string, error) {
	cr, ok := res.(ConfirmationResult)
	if !ok {
		return "", internalInconsistency("unexpected result for confirm_address")
	}

	if plausibleCorrection(cr.Correction) {
		s.SetScratch(scratchAddressText, strings.TrimSpace(cr.Correction))
		return nodeConfirmFullAddress, nil
	}
	if !cr.Confirmed {
		return nodeConfirmFullAddress, nil
	}

	pending := s.ScratchValue(scratchAddressText)
	if strings.TrimSpace(pending) == "" {
		return "", internalInconsistency("confirmed address with no pending value")
	}

	comps, err := address.Parse(pending)
	if err != nil || !comps.Complete() {
		a.logger.WithSession(s.ID).Warn("address failed structural parse", "error", err)
		s.ClearScratch(scratchAddressText)
		return nodeAddressInvalidFormat, nil
	}

	typed := Address{
		Street1: comps.StreetLine(),
		City:    comps.City,
		State:   comps.StateAbbr,
		Zip5:    comps.Zip5,
		Zip4:    comps.Zip4,
	}

	// No credentials means no verdict. Keep the caller's address and note
	// that validation was skipped rather than blocking the intake.
	if a.validator == nil || !a.validator.Configured() {
		a.logger.WithSession(s.ID).Warn("address validation unavailable, committing as typed")
		s.Patient.Address = &typed
		s.SetFlag(FlagAddressValidationSkipped)
		s.ClearScratch(scratchAddressText)
		return nodeCollectPhone, nil
	}

	s.Awaiting = &ExternalCall{CallID: uuid.New().String(), Kind: "usps_validation"}
	start := time.Now()
	outcome := a.validator.Validate(ctx, address.Request{
		Street1: typed.Street1,
		City:    typed.City,
		State:   typed.State,
		Zip5:    typed.Zip5,
		Zip4:    typed.Zip4,
	})
	s.Awaiting = nil
	if a.metrics != nil {
		a.metrics.ObserveValidationLatency(time.Since(start).Seconds())
	}

	switch {
	case outcome.Status.Deliverable():
		committed := typed
		if n := outcome.Normalized; n != nil {
			committed = Address{
				Street1: n.Street1,
				Street2: n.Street2,
				City:    n.City,
				State:   n.State,
				Zip5:    n.Zip5,
				Zip4:    n.Zip4,
			}
		}
		s.Patient.Address = &committed
		s.ClearScratch(scratchAddressText)
		return nodeCollectPhone, nil

	case outcome.Status == address.StatusAPIError || outcome.Status == address.StatusError:
		// Service trouble is never the caller's problem: commit as typed
		// and let staff re-verify offline.
		a.logger.WithSession(s.ID).Error("address validation service error", "reason", outcome.Reason)
		s.Patient.Address = &typed
		s.SetFlag(FlagAddressValidationSkipped)
		s.ClearScratch(scratchAddressText)
		return nodeCollectPhone, nil

	default:
		a.logger.WithSession(s.ID).Warn("address rejected by validation",
			"status", string(outcome.Status), "reason", outcome.Reason)
		s.SetScratch(scratchAddressReason, outcome.Reason)
		s.ClearScratch(scratchAddressText)
		return nodeAddressInvalid, nil
	}
}

// invalidNode recovers from a validation rejection by collecting afresh.
func (a addressNodes) invalidNode() NodeTemplate {
	return func(s *Session) Node {
		reason := s.ScratchValue(scratchAddressReason)
		prompt := "I wasn't able to verify that address with the postal service."
		if reason != "" {
			prompt += " " + reason
		}
		prompt += " Let's try again from the top."
		return Node{
			ID:        nodeAddressInvalid,
			Prompt:    prompt,
			Functions: []FunctionSchema{a.restartFunction()},
		}
	}
}

// invalidFormatNode recovers from an utterance the parser could not tag.
func (a addressNodes) invalidFormatNode() NodeTemplate {
	return func(_ *Session) Node {
		return Node{
			ID: nodeAddressInvalidFormat,
			Prompt: "I didn't catch a complete address there. I need the street address, city, state, and ZIP code. " +
				"Let's try again from the top.",
			Functions: []FunctionSchema{a.restartFunction()},
		}
	}
}

func (a addressNodes) restartFunction() FunctionSchema {
	return FunctionSchema{
		Name:        "restart_address_collection",
		Description: "Start the address over once the caller is ready.",
		Handler: func(_ context.Context, _ Args) (Result, error) {
			return SkipResult{}, nil
		},
		Transition: func(_ context.Context, _ Result, s *Session) (string, error) {
			s.ClearScratch(scratchAddressText, scratchAddressReason)
			return nodeCollectFullAddress, nil
		},
	}
}
