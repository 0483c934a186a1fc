package intake

import (
	"context"
	"fmt"

	"github.com/brightline-health/intake-voice-agent/internal/schedule"
	"github.com/brightline-health/intake-voice-agent/pkg/logging"
)

const (
	nodeOfferAppointment   = "offer_appointment"
	nodeConfirmAppointment = "confirm_appointment"
	nodeEnd                = "end"
)

// Notifier dispatches the post-intake confirmation. Implementations report
// success as a bool rather than an error: a failed confirmation email never
// fails the intake.
type Notifier interface {
	SendConfirmation(ctx context.Context, email string, appt Appointment) bool
}

// enterOffer advances the negotiation to the next unoffered slot, or marks
// the negotiation exhausted when none remain. Every transition that lands on
// the offer node goes through here, so NextIndex only ever moves forward and
// a declined slot is never proposed twice.
func enterOffer(s *Session) {
	// Exhaustion bound is checked against the schedule at render time; here
	// only the cursor moves.
	s.Offer.CurrentIndex = s.Offer.NextIndex
	s.Offer.NextIndex++
}

type appointmentNodes struct {
	slots    []schedule.Slot
	notifier Notifier
	logger   *logging.Logger
}

func (a appointmentNodes) register(r *Registry) error {
	if err := r.Register(nodeOfferAppointment, a.offerNode()); err != nil {
		return err
	}
	if err := r.Register(nodeConfirmAppointment, a.confirmNode()); err != nil {
		return err
	}
	return r.Register(nodeEnd, a.endNode())
}

func (a appointmentNodes) exhausted(s *Session) bool {
	return s.Offer.CurrentIndex < 0 || s.Offer.CurrentIndex >= len(a.slots)
}

// offerNode proposes exactly one slot per activation. Once the schedule runs
// out it renders the no-availability closing instead.
func (a appointmentNodes) offerNode() NodeTemplate {
	return func(s *Session) Node {
		if a.exhausted(s) {
			return Node{
				ID: nodeOfferAppointment,
				Prompt: "I'm sorry, none of our available appointments worked for you. " +
					"Our scheduling team will call you back to find a time that fits.",
				Functions: []FunctionSchema{{
					Name:        "no_suitable_slot",
					Description: "Close the call after the schedule ran out of offers.",
					Handler: func(_ context.Context, _ Args) (Result, error) {
						return DoneResult{Status: "no_slot"}, nil
					},
					Transition: func(_ context.Context, _ Result, s *Session) (string, error) {
						s.SetFlag(FlagNoSlotFound)
						return nodeEnd, nil
					},
				}},
			}
		}

		slot := a.slots[s.Offer.CurrentIndex]
		return Node{
			ID:     nodeOfferAppointment,
			Prompt: "I have an opening on " + slot.Spoken() + ". Would that work for you?",
			Functions: []FunctionSchema{{
				Name:        "respond_to_offer",
				Description: "Record whether the patient accepted the offered appointment slot.",
				Params: []Param{
					{Name: "accepted", Type: ParamBoolean, Description: "True if the patient accepted this slot.", Required: true},
					{Name: "offer_index", Type: ParamInteger, Description: "The index of the slot being answered.", Required: true},
				},
				Handler: func(_ context.Context, args Args) (Result, error) {
					accepted, ok := args.Bool("accepted")
					if !ok {
						return nil, ambiguousInput("accepted", "expected true or false")
					}
					idx, ok := args.Int("offer_index")
					if !ok {
						return nil, ambiguousInput("offer_index", "expected an integer")
					}
					return OfferResponseResult{Accepted: accepted, OfferIndex: idx}, nil
				},
				Transition: a.offerTransition,
			}},
		}
	}
}

func (a appointmentNodes) offerTransition(_ context.Context, res Result, s *Session) (string, error) {
	or, ok := res.(OfferResponseResult)
	if !ok {
		return "", internalInconsistency("unexpected result for respond_to_offer")
	}

	// An answer to a slot that is not on the table means the model and the
	// session disagree about where the negotiation stands. Restart the
	// negotiation from the top rather than book the wrong slot.
	if or.OfferIndex != s.Offer.CurrentIndex {
		a.logger.WithSession(s.ID).Warn("stale offer answer, restarting negotiation",
			"answered", or.OfferIndex, "current", s.Offer.CurrentIndex)
		s.Offer = OfferState{CurrentIndex: -1, NextIndex: 0}
		enterOffer(s)
		return "", internalInconsistency(fmt.Sprintf("offer index %d is not the current offer", or.OfferIndex))
	}

	if !or.Accepted {
		enterOffer(s)
		return nodeOfferAppointment, nil
	}

	slot := a.slots[s.Offer.CurrentIndex]
	s.Patient.Appointment = &Appointment{
		Time:      slot.Time,
		Doctor:    slot.Doctor,
		Specialty: slot.Specialty,
	}
	return nodeConfirmAppointment, nil
}

// confirmNode recaps the booking and closes out. The confirmation email is
// strictly best effort and is dispatched before the terminal node renders.
func (a appointmentNodes) confirmNode() NodeTemplate {
	return func(s *Session) Node {
		recap := "You're all set"
		if appt := s.Patient.Appointment; appt != nil {
			recap = "You're booked for " + appt.Time + " with " + appt.Doctor
		}
		return Node{
			ID:     nodeConfirmAppointment,
			Prompt: recap + ". Is there anything else before we wrap up?",
			Functions: []FunctionSchema{{
				Name:        "end_intake",
				Description: "Finish the intake and close the call.",
				Handler: func(_ context.Context, _ Args) (Result, error) {
					return DoneResult{Status: "booked"}, nil
				},
				Transition: func(ctx context.Context, _ Result, s *Session) (string, error) {
					a.sendConfirmation(ctx, s)
					return nodeEnd, nil
				},
			}},
		}
	}
}

func (a appointmentNodes) sendConfirmation(ctx context.Context, s *Session) {
	if a.notifier == nil || s.Patient.EmailStatus != EmailProvided || s.Patient.Appointment == nil {
		return
	}
	log := a.logger.WithSession(s.ID)
	if !a.notifier.SendConfirmation(ctx, s.Patient.Email, *s.Patient.Appointment) {
		log.Warn("confirmation email dispatch failed", "email", s.Patient.Email)
		return
	}
	log.Info("confirmation email dispatched", "email", s.Patient.Email)
}

// endNode is the single terminal state.
func (a appointmentNodes) endNode() NodeTemplate {
	return func(s *Session) Node {
		prompt := "Thank you for calling. We look forward to seeing you. Goodbye."
		if s.Flag(FlagNoSlotFound) {
			prompt = "Thank you for calling. Our team will be in touch about scheduling. Goodbye."
		}
		return Node{
			ID:          nodeEnd,
			Prompt:      prompt,
			PostActions: []Action{{Type: ActionEndConversation}},
		}
	}
}
