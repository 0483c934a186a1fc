package intake

import (
	"context"
	"strings"

	"github.com/brightline-health/intake-voice-agent/internal/contact"
	"github.com/brightline-health/intake-voice-agent/internal/spellout"
	"github.com/brightline-health/intake-voice-agent/pkg/logging"
)

const (
	nodeCollectPhone = "collect_phone"
	nodeCollectEmail = "collect_email"
	nodeConfirmEmail = "confirm_email"
)

const scratchEmail = "pending_email"

type contactNodes struct {
	logger *logging.Logger
}

func (c contactNodes) register(r *Registry) error {
	if err := r.Register(nodeCollectPhone, c.phoneNode()); err != nil {
		return err
	}
	if err := r.Register(nodeCollectEmail, c.collectEmailNode()); err != nil {
		return err
	}
	return r.Register(nodeConfirmEmail, c.confirmEmailNode())
}

// phoneNode commits directly: the digits are echoed by the model in its own
// acknowledgment, so a dedicated confirm loop buys nothing here.
func (c contactNodes) phoneNode() NodeTemplate {
	return func(_ *Session) Node {
		return Node{
			ID:     nodeCollectPhone,
			Prompt: "What is the best phone number to reach you at?",
			Functions: []FunctionSchema{{
				Name:        "collect_phone",
				Description: "Record the patient's phone number.",
				Params: []Param{{
					Name:        "phone",
					Type:        ParamString,
					Description: "The phone number, in any spoken format.",
					Required:    true,
				}},
				Handler: func(_ context.Context, args Args) (Result, error) {
					raw, ok := args.String("phone")
					if !ok {
						return nil, ambiguousInput("phone", "expected a text value")
					}
					digits := contact.NormalizePhoneDigits(raw)
					if len(digits) != 11 {
						return nil, ambiguousInput("phone", "expected a ten-digit US number")
					}
					return ContactResult{Value: digits}, nil
				},
				Transition: func(_ context.Context, res Result, s *Session) (string, error) {
					pr, ok := res.(ContactResult)
					if !ok {
						return "", internalInconsistency("unexpected result for collect_phone")
					}
					s.Patient.Phone = pr.Value
					return nodeCollectEmail, nil
				},
			}},
		}
	}
}

// collectEmailNode extracts an address from the utterance, or lets the
// caller decline outright. Email is the one optional field in the intake.
func (c contactNodes) collectEmailNode() NodeTemplate {
	return func(_ *Session) Node {
		return Node{
			ID:     nodeCollectEmail,
			Prompt: "What email address should we send your confirmation to? You can also say you'd rather not give one.",
			Functions: []FunctionSchema{
				{
					Name:        "collect_email",
					Description: "Record the patient's email address.",
					Params: []Param{{
						Name:        "email",
						Type:        ParamString,
						Description: "The email address as the caller said it.",
						Required:    true,
					}},
					Handler: func(_ context.Context, args Args) (Result, error) {
						raw, ok := args.String("email")
						if !ok {
							return nil, ambiguousInput("email", "expected a text value")
						}
						// When no pattern matches, the trimmed raw text rides
						// along as a best-effort candidate: the confirm
						// readback gives the caller the chance to correct it.
						candidate, found := contact.ExtractEmail(raw, c.logger)
						if !found {
							c.logger.Warn("no email pattern in utterance, confirming raw text",
								"candidate", candidate)
						}
						if candidate == "" {
							return nil, ambiguousInput("email", "empty value")
						}
						return ContactResult{Value: candidate}, nil
					},
					Transition: func(_ context.Context, res Result, s *Session) (string, error) {
						er, ok := res.(ContactResult)
						if !ok {
							return "", internalInconsistency("unexpected result for collect_email")
						}
						s.SetScratch(scratchEmail, er.Value)
						return nodeConfirmEmail, nil
					},
				},
				{
					Name:        "skip_email",
					Description: "Record that the patient declined to give an email address.",
					Handler: func(_ context.Context, _ Args) (Result, error) {
						return SkipResult{}, nil
					},
					Transition: func(_ context.Context, _ Result, s *Session) (string, error) {
						s.Patient.Email = ""
						s.Patient.EmailStatus = EmailSkipped
						enterOffer(s)
						return nodeOfferAppointment, nil
					},
				},
			},
		}
	}
}

// confirmEmailNode reads the candidate back phonetically. Corrections are
// re-scanned; a correction with no recognizable address in it keeps the
// current candidate and re-prompts.
func (c contactNodes) confirmEmailNode() NodeTemplate {
	return func(s *Session) Node {
		pending := s.ScratchValue(scratchEmail)
		return Node{
			ID:     nodeConfirmEmail,
			Prompt: "I have your email as " + contact.SpellEmail(pending) + ". Is that correct?",
			Functions: []FunctionSchema{{
				Name:        "confirm_email_address",
				Description: "Record whether the spelled email was correct, with an optional corrected address.",
				Params: []Param{
					{Name: "confirmed", Type: ParamBoolean, Description: "True if the caller said the email is correct.", Required: true},
					{Name: "correction", Type: ParamString, Description: "The corrected email address, if the caller provided one."},
				},
				Handler: confirmationHandler,
				Transition: func(_ context.Context, res Result, s *Session) (string, error) {
					cr, ok := res.(ConfirmationResult)
					if !ok {
						return "", internalInconsistency("unexpected result for confirm_email_address")
					}

					if plausibleCorrection(cr.Correction) {
						candidate, found := contact.ExtractEmail(cr.Correction, c.logger)
						if !found {
							// Spelled corrections arrive spaced out; joining
							// them recovers "j a n e @ ..." style input.
							candidate, found = contact.ExtractEmail(spellout.StripSpaces(cr.Correction), c.logger)
						}
						if !found {
							return "", ambiguousInput("correction", "no email address recognized in correction")
						}
						s.SetScratch(scratchEmail, candidate)
						return nodeConfirmEmail, nil
					}

					if !cr.Confirmed {
						return nodeConfirmEmail, nil
					}

					pending := s.ScratchValue(scratchEmail)
					if strings.TrimSpace(pending) == "" {
						return "", internalInconsistency("confirmed email with no pending value")
					}
					s.Patient.Email = pending
					s.Patient.EmailStatus = EmailProvided
					s.ClearScratch(scratchEmail)
					enterOffer(s)
					return nodeOfferAppointment, nil
				},
			}},
		}
	}
}
