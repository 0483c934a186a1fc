// Package schedule holds the provider appointment slots offered during intake.
package schedule

import (
	"encoding/json"
	"fmt"
	"os"
)

// Slot is one offerable appointment.
type Slot struct {
	Doctor    string `json:"doctor"`
	Time      string `json:"time"` // spoken form, e.g. "Monday at 10:00 AM"
	Specialty string `json:"specialty"`
}

// Spoken renders the slot the way the assistant offers it.
func (s Slot) Spoken() string {
	return fmt.Sprintf("%s with %s (%s)", s.Time, s.Doctor, s.Specialty)
}

// Default returns the built-in provider schedule used when no schedule file
// is configured.
func Default() []Slot {
	return []Slot{
		{Doctor: "Dr. Smith", Time: "Monday at 10:00 AM", Specialty: "Family Medicine"},
		{Doctor: "Dr. Jones", Time: "Tuesday at 2:30 PM", Specialty: "Internal Medicine"},
		{Doctor: "Dr. Lee", Time: "Wednesday at 9:15 AM", Specialty: "Family Medicine"},
		{Doctor: "Dr. Brown", Time: "Friday at 4:00 PM", Specialty: "Cardiology"},
	}
}

// LoadFile reads a slot list from a JSON file. The list order is the offer
// order; the negotiator never reorders or revisits slots.
func LoadFile(path string) ([]Slot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schedule: read %s: %w", path, err)
	}
	var slots []Slot
	if err := json.Unmarshal(data, &slots); err != nil {
		return nil, fmt.Errorf("schedule: parse %s: %w", path, err)
	}
	if len(slots) == 0 {
		return nil, fmt.Errorf("schedule: %s contains no slots", path)
	}
	return slots, nil
}
