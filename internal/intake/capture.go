package intake

import (
	"context"
	"strings"
)

// bareNegations are words that sometimes leak into the correction argument
// when the caller only meant "no". They never count as a usable correction.
var bareNegations = map[string]bool{
	"no":        true,
	"nope":      true,
	"nah":       true,
	"wrong":     true,
	"incorrect": true,
	"not":       true,
}

// plausibleCorrection reports whether a correction argument carries an
// actual replacement value rather than a restated denial.
func plausibleCorrection(raw string) bool {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return false
	}
	return !bareNegations[strings.ToLower(trimmed)]
}

// captureField describes one collect-then-confirm field loop. The collect
// node stores the candidate in scratch, the confirm node reads it back with
// Spell, and only a positive confirmation commits it to the patient record.
type captureField struct {
	// ScratchKey holds the pending candidate between collect and confirm.
	ScratchKey string
	// CollectID and ConfirmID are the two node ids of the loop.
	CollectID string
	ConfirmID string
	// CollectPrompt asks for the value; ConfirmPrompt receives the spelled
	// candidate and asks yes or no.
	CollectPrompt string
	ConfirmPrompt func(spelled string) string
	// CollectFunc names the function on the collect node and ParamName its
	// single required string parameter.
	CollectFunc  string
	CollectDesc  string
	ParamName    string
	ParamDesc    string
	// Spell renders the candidate for readback.
	Spell func(value string) string
	// Normalize cleans a collected or corrected value before storage. nil
	// means store trimmed as-is.
	Normalize func(raw string) string
	// Commit writes the confirmed value to the record.
	Commit func(s *Session, value string)
	// NextID is where a confirmed value leads.
	NextID string
}

func (f captureField) normalize(raw string) string {
	if f.Normalize != nil {
		return f.Normalize(raw)
	}
	return strings.TrimSpace(raw)
}

// collectNode renders the collect side of the loop.
func (f captureField) collectNode() NodeTemplate {
	return func(_ *Session) Node {
		return Node{
			ID:     f.CollectID,
			Prompt: f.CollectPrompt,
			Functions: []FunctionSchema{{
				Name:        f.CollectFunc,
				Description: f.CollectDesc,
				Params: []Param{{
					Name:        f.ParamName,
					Type:        ParamString,
					Description: f.ParamDesc,
					Required:    true,
				}},
				Handler: func(_ context.Context, args Args) (Result, error) {
					raw, ok := args.String(f.ParamName)
					if !ok {
						return nil, ambiguousInput(f.ParamName, "expected a text value")
					}
					value := f.normalize(raw)
					if value == "" {
						return nil, ambiguousInput(f.ParamName, "empty value")
					}
					return NameResult{Name: value}, nil
				},
				Transition: func(_ context.Context, res Result, s *Session) (string, error) {
					nr, ok := res.(NameResult)
					if !ok {
						return "", internalInconsistency("unexpected result for " + f.CollectFunc)
					}
					s.SetScratch(f.ScratchKey, nr.Name)
					return f.ConfirmID, nil
				},
			}},
		}
	}
}

// confirmNode renders the confirm side. The prompt spells the pending
// candidate fresh on every activation, so a correction taken in a previous
// turn is what gets read back.
func (f captureField) confirmNode() NodeTemplate {
	return func(s *Session) Node {
		pending := s.ScratchValue(f.ScratchKey)
		return Node{
			ID:     f.ConfirmID,
			Prompt: f.ConfirmPrompt(f.Spell(pending)),
			Functions: []FunctionSchema{{
				Name:        "confirm_" + f.ParamName,
				Description: "Record whether the spelled value was correct, with an optional corrected value.",
				Params: []Param{
					{Name: "confirmed", Type: ParamBoolean, Description: "True if the caller said the value is correct.", Required: true},
					{Name: "correction", Type: ParamString, Description: "The corrected value, if the caller provided one."},
				},
				Handler:    confirmationHandler,
				Transition: f.confirmTransition,
			}},
		}
	}
}

// confirmationHandler is shared by every confirm node: it only shapes the
// arguments, precedence rules live in the transitions.
func confirmationHandler(_ context.Context, args Args) (Result, error) {
	confirmed, ok := args.Bool("confirmed")
	if !ok {
		return nil, ambiguousInput("confirmed", "expected true or false")
	}
	correction, _ := args.String("correction")
	return ConfirmationResult{Confirmed: confirmed, Correction: correction}, nil
}

func (f captureField) confirmTransition(_ context.Context, res Result, s *Session) (string, error) {
	cr, ok := res.(ConfirmationResult)
	if !ok {
		return "", internalInconsistency("unexpected result for confirm_" + f.ParamName)
	}

	// A usable correction wins even when confirmed is true: callers often
	// say "yes but it's spelled..." in a single breath.
	if plausibleCorrection(cr.Correction) {
		corrected := f.normalize(cr.Correction)
		if corrected != "" {
			s.SetScratch(f.ScratchKey, corrected)
			return f.ConfirmID, nil
		}
	}

	if !cr.Confirmed {
		// Denied with no usable replacement: keep the pending value and read
		// it back again until the caller either confirms or corrects it.
		return f.ConfirmID, nil
	}

	pending := s.ScratchValue(f.ScratchKey)
	if strings.TrimSpace(pending) == "" {
		return "", internalInconsistency("confirmed " + f.ParamName + " with no pending value")
	}
	f.Commit(s, pending)
	s.ClearScratch(f.ScratchKey)
	return f.NextID, nil
}

// register adds both halves of the loop to a registry.
func (f captureField) register(r *Registry) error {
	if err := r.Register(f.CollectID, f.collectNode()); err != nil {
		return err
	}
	return r.Register(f.ConfirmID, f.confirmNode())
}
