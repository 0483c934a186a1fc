package intake

import (
	"context"
	"strings"

	"github.com/brightline-health/intake-voice-agent/internal/spellout"
)

// Node ids for the scripted portion of the intake graph. Kept as constants
// because transitions across files reference them.
const (
	nodeInitial = "initial"

	nodeConfirmFirstName = "confirm_first_name"
	nodeCollectLastName  = "collect_last_name"
	nodeConfirmLastName  = "confirm_last_name"

	nodeCollectPayerName = "collect_payer_name"
	nodeConfirmPayerName = "confirm_payer_name"
	nodeCollectPayerID   = "collect_payer_id"
	nodeConfirmPayerID   = "confirm_payer_id"

	nodeCheckReferral             = "check_referral"
	nodeCollectPhysicianFirstName = "collect_physician_first_name"
	nodeConfirmPhysicianFirstName = "confirm_physician_first_name"
	nodeCollectPhysicianLastName  = "collect_physician_last_name"
	nodeConfirmPhysicianLastName  = "confirm_physician_last_name"

	nodeCollectComplaint = "collect_complaint"
)

// Scratch keys for pending (unconfirmed) field values.
const (
	scratchFirstName          = "pending_first_name"
	scratchLastName           = "pending_last_name"
	scratchPayerName          = "pending_payer_name"
	scratchPayerID            = "pending_payer_id"
	scratchPhysicianFirstName = "pending_physician_first_name"
	scratchPhysicianLastName  = "pending_physician_last_name"
)

// normalizeName collapses a spelled-out correction ("A S A T") back into a
// word while leaving normal utterances ("Smith") untouched.
func normalizeName(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	fields := strings.Fields(trimmed)
	if len(fields) > 1 {
		spelled := true
		for _, f := range fields {
			if len([]rune(f)) != 1 {
				spelled = false
				break
			}
		}
		if spelled {
			return spellout.Collapse(trimmed)
		}
	}
	return trimmed
}

// normalizePayerID keeps digits only: "ID 12-34" becomes "1234".
func normalizePayerID(raw string) string {
	return spellout.DigitsOnly(raw)
}

func spellConfirmPrompt(what string) func(string) string {
	return func(spelled string) string {
		return "I heard your " + what + " spelled " + spelled + ". Is that correct? If not, please spell it for me."
	}
}

// scriptFields returns the collect/confirm loops of the scripted section, in
// conversation order. The first loop's collect node doubles as the graph
// entry, so its prompt carries the greeting.
func scriptFields() []captureField {
	return []captureField{
		{
			ScratchKey:    scratchFirstName,
			CollectID:     nodeInitial,
			ConfirmID:     nodeConfirmFirstName,
			CollectPrompt: "Hello, thank you for calling. I can help you get registered for an appointment. To start, what is your first name?",
			ConfirmPrompt: spellConfirmPrompt("first name"),
			CollectFunc:   "collect_first_name",
			CollectDesc:   "Record the patient's first name exactly as spoken or spelled.",
			ParamName:     "first_name",
			ParamDesc:     "The patient's first name.",
			Spell:         spellout.Letters,
			Normalize:     normalizeName,
			Commit:        func(s *Session, v string) { s.Patient.FirstName = v },
			NextID:        nodeCollectLastName,
		},
		{
			ScratchKey:    scratchLastName,
			CollectID:     nodeCollectLastName,
			ConfirmID:     nodeConfirmLastName,
			CollectPrompt: "Thank you. And what is your last name?",
			ConfirmPrompt: spellConfirmPrompt("last name"),
			CollectFunc:   "collect_last_name",
			CollectDesc:   "Record the patient's last name exactly as spoken or spelled.",
			ParamName:     "last_name",
			ParamDesc:     "The patient's last name.",
			Spell:         spellout.Letters,
			Normalize:     normalizeName,
			Commit:        func(s *Session, v string) { s.Patient.LastName = v },
			NextID:        nodeCollectPayerName,
		},
		{
			ScratchKey:    scratchPayerName,
			CollectID:     nodeCollectPayerName,
			ConfirmID:     nodeConfirmPayerName,
			CollectPrompt: "What is the name of your insurance provider?",
			ConfirmPrompt: spellConfirmPrompt("insurance provider"),
			CollectFunc:   "collect_payer_name",
			CollectDesc:   "Record the name of the patient's insurance payer.",
			ParamName:     "payer_name",
			ParamDesc:     "The insurance company's name.",
			Spell:         spellout.Letters,
			Normalize:     normalizeName,
			Commit:        func(s *Session, v string) { s.Patient.PayerName = v },
			NextID:        nodeCollectPayerID,
		},
		{
			ScratchKey:    scratchPayerID,
			CollectID:     nodeCollectPayerID,
			ConfirmID:     nodeConfirmPayerID,
			CollectPrompt: "What is your insurance member ID number?",
			ConfirmPrompt: func(spelled string) string {
				return "I have your member ID as " + spelled + ". Is that correct?"
			},
			CollectFunc: "collect_payer_id",
			CollectDesc: "Record the patient's insurance member ID, digits only.",
			ParamName:   "payer_id",
			ParamDesc:   "The member ID number on the insurance card.",
			Spell:       spellout.Digits,
			Normalize:   normalizePayerID,
			Commit:      func(s *Session, v string) { s.Patient.PayerID = v },
			NextID:      nodeCheckReferral,
		},
		{
			ScratchKey:    scratchPhysicianFirstName,
			CollectID:     nodeCollectPhysicianFirstName,
			ConfirmID:     nodeConfirmPhysicianFirstName,
			CollectPrompt: "What is the first name of the physician who referred you?",
			ConfirmPrompt: spellConfirmPrompt("referring physician's first name"),
			CollectFunc:   "collect_physician_first_name",
			CollectDesc:   "Record the referring physician's first name.",
			ParamName:     "physician_first_name",
			ParamDesc:     "The referring physician's first name.",
			Spell:         spellout.Letters,
			Normalize:     normalizeName,
			Commit:        func(s *Session, v string) { s.Patient.PhysicianFirstName = v },
			NextID:        nodeCollectPhysicianLastName,
		},
		{
			ScratchKey:    scratchPhysicianLastName,
			CollectID:     nodeCollectPhysicianLastName,
			ConfirmID:     nodeConfirmPhysicianLastName,
			CollectPrompt: "And the physician's last name?",
			ConfirmPrompt: spellConfirmPrompt("referring physician's last name"),
			CollectFunc:   "collect_physician_last_name",
			CollectDesc:   "Record the referring physician's last name.",
			ParamName:     "physician_last_name",
			ParamDesc:     "The referring physician's last name.",
			Spell:         spellout.Letters,
			Normalize:     normalizeName,
			Commit:        func(s *Session, v string) { s.Patient.PhysicianLastName = v },
			NextID:        nodeCollectComplaint,
		},
	}
}

// checkReferralNode branches on whether a physician referred the patient.
func checkReferralNode() NodeTemplate {
	return func(_ *Session) Node {
		return Node{
			ID:     nodeCheckReferral,
			Prompt: "Were you referred to us by a physician?",
			Functions: []FunctionSchema{{
				Name:        "record_referral",
				Description: "Record whether a physician referred the patient.",
				Params: []Param{{
					Name:        "has_referral",
					Type:        ParamBoolean,
					Description: "True if the patient was referred by a physician.",
					Required:    true,
				}},
				Handler: func(_ context.Context, args Args) (Result, error) {
					has, ok := args.Bool("has_referral")
					if !ok {
						return nil, ambiguousInput("has_referral", "expected true or false")
					}
					return ReferralResult{HasReferral: has}, nil
				},
				Transition: func(_ context.Context, res Result, s *Session) (string, error) {
					rr, ok := res.(ReferralResult)
					if !ok {
						return "", internalInconsistency("unexpected result for record_referral")
					}
					has := rr.HasReferral
					s.Patient.HasReferral = &has
					if has {
						return nodeCollectPhysicianFirstName, nil
					}
					return nodeCollectComplaint, nil
				},
			}},
		}
	}
}

// collectComplaintNode takes the reason for the visit in one shot. Free
// narrative is stored verbatim, with no spell-back loop.
func collectComplaintNode() NodeTemplate {
	return func(_ *Session) Node {
		return Node{
			ID:     nodeCollectComplaint,
			Prompt: "What is the reason for your visit today?",
			Functions: []FunctionSchema{{
				Name:        "record_complaint",
				Description: "Record the patient's reason for the visit in their own words.",
				Params: []Param{{
					Name:        "complaint",
					Type:        ParamString,
					Description: "The chief complaint, verbatim.",
					Required:    true,
				}},
				Handler: func(_ context.Context, args Args) (Result, error) {
					raw, ok := args.String("complaint")
					if !ok {
						return nil, ambiguousInput("complaint", "expected a text value")
					}
					trimmed := strings.TrimSpace(raw)
					if trimmed == "" {
						return nil, ambiguousInput("complaint", "empty value")
					}
					return ComplaintResult{Complaint: trimmed}, nil
				},
				Transition: func(_ context.Context, res Result, s *Session) (string, error) {
					cr, ok := res.(ComplaintResult)
					if !ok {
						return "", internalInconsistency("unexpected result for record_complaint")
					}
					s.Patient.ChiefComplaint = cr.Complaint
					return nodeCollectFullAddress, nil
				},
			}},
		}
	}
}

// registerScript adds the scripted section to the registry.
func registerScript(r *Registry) error {
	for _, f := range scriptFields() {
		if err := f.register(r); err != nil {
			return err
		}
	}
	if err := r.Register(nodeCheckReferral, checkReferralNode()); err != nil {
		return err
	}
	return r.Register(nodeCollectComplaint, collectComplaintNode())
}
