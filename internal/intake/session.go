package intake

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// EmailStatus distinguishes "not yet asked" from an explicit skip.
type EmailStatus string

const (
	EmailUnset    EmailStatus = ""
	EmailProvided EmailStatus = "provided"
	EmailSkipped  EmailStatus = "skipped"
)

// Address is the committed, validated postal address.
type Address struct {
	Street1 string `json:"street1"`
	Street2 string `json:"street2,omitempty"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip5    string `json:"zip5"`
	Zip4    string `json:"zip4,omitempty"`
}

// Appointment is the booked slot.
type Appointment struct {
	Time      string `json:"time"`
	Doctor    string `json:"doctor"`
	Specialty string `json:"specialty"`
}

// PatientRecord holds committed intake fields. A committed field is never
// silently overwritten; only the correction flow, which re-enters the field's
// confirmation node, rewrites it.
type PatientRecord struct {
	FirstName          string       `json:"first_name,omitempty"`
	LastName           string       `json:"last_name,omitempty"`
	PayerName          string       `json:"payer_name,omitempty"`
	PayerID            string       `json:"payer_id,omitempty"`
	HasReferral        *bool        `json:"has_referral,omitempty"`
	PhysicianFirstName string       `json:"physician_first_name,omitempty"`
	PhysicianLastName  string       `json:"physician_last_name,omitempty"`
	ChiefComplaint     string       `json:"chief_complaint,omitempty"`
	Address            *Address     `json:"address,omitempty"`
	Phone              string       `json:"phone,omitempty"`
	Email              string       `json:"email,omitempty"`
	EmailStatus        EmailStatus  `json:"email_status,omitempty"`
	Appointment        *Appointment `json:"appointment,omitempty"`
}

// ReferringPhysician renders the referring physician's full name.
func (p PatientRecord) ReferringPhysician() string {
	return strings.TrimSpace(p.PhysicianFirstName + " " + p.PhysicianLastName)
}

// OfferState tracks the appointment negotiation. CurrentIndex is the most
// recently offered slot (-1 when nothing is on the table), NextIndex the next
// slot to propose. NextIndex only moves forward; a declined slot is never
// re-offered within a session.
type OfferState struct {
	CurrentIndex int `json:"current_index"`
	NextIndex    int `json:"next_index"`
}

// ExternalCall marks a session suspended on an external service call. The
// host cancels it via context on disconnect; the marker is cleared without
// mutating the patient record.
type ExternalCall struct {
	CallID string `json:"call_id"`
	Kind   string `json:"kind"`
}

// Session is one conversation's full mutable state. Domain data lives in the
// typed Patient record; loop-local raw values live in Scratch and internal
// bookkeeping in Flags, so domain fields and scratch keys cannot collide.
type Session struct {
	ID           string            `json:"id"`
	ActiveNodeID string            `json:"active_node_id"`
	Patient      PatientRecord     `json:"patient"`
	Scratch      map[string]string `json:"scratch,omitempty"`
	Flags        map[string]bool   `json:"flags,omitempty"`
	Offer        OfferState        `json:"offer"`
	Awaiting     *ExternalCall     `json:"awaiting,omitempty"`
	Completed    bool              `json:"completed"`
	StartedAt    time.Time         `json:"started_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// FlagAddressValidationSkipped records that the validation service was
// unavailable and the address was committed as typed.
const FlagAddressValidationSkipped = "address_validation_skipped"

// FlagNoSlotFound records that the negotiation exhausted the schedule.
const FlagNoSlotFound = "no_slot_found"

// NewSession creates a fresh session positioned before the initial node.
func NewSession() *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        uuid.New().String(),
		Scratch:   make(map[string]string),
		Flags:     make(map[string]bool),
		Offer:     OfferState{CurrentIndex: -1, NextIndex: 0},
		StartedAt: now,
		UpdatedAt: now,
	}
}

// SetScratch stores a loop-local value.
func (s *Session) SetScratch(key, value string) {
	if s.Scratch == nil {
		s.Scratch = make(map[string]string)
	}
	s.Scratch[key] = value
}

// ScratchValue reads a loop-local value.
func (s *Session) ScratchValue(key string) string {
	return s.Scratch[key]
}

// ClearScratch removes the given loop-local keys.
func (s *Session) ClearScratch(keys ...string) {
	for _, k := range keys {
		delete(s.Scratch, k)
	}
}

// SetFlag records a bookkeeping flag.
func (s *Session) SetFlag(name string) {
	if s.Flags == nil {
		s.Flags = make(map[string]bool)
	}
	s.Flags[name] = true
}

// Flag reads a bookkeeping flag.
func (s *Session) Flag(name string) bool {
	return s.Flags[name]
}
