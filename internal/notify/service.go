package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/brightline-health/intake-voice-agent/internal/intake"
	"github.com/brightline-health/intake-voice-agent/pkg/logging"
)

// sendTimeout bounds one confirmation dispatch; the call is already wrapping
// up when this runs, so a slow provider must not hold the line open.
const sendTimeout = 10 * time.Second

// Service sends the post-intake appointment confirmation. It implements
// intake.Notifier: delivery failures are logged and reported as false, never
// propagated, because a lost email must not fail a completed intake.
type Service struct {
	sender     EmailSender
	clinicName string
	logger     *logging.Logger
}

// NewService creates a confirmation service. A nil sender degrades to the
// logging stub.
func NewService(sender EmailSender, clinicName string, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if sender == nil {
		sender = NewStubEmailSender(logger)
	}
	if clinicName == "" {
		clinicName = "our clinic"
	}
	return &Service{sender: sender, clinicName: clinicName, logger: logger}
}

// SendConfirmation emails the booked appointment details.
func (s *Service) SendConfirmation(ctx context.Context, email string, appt intake.Appointment) bool {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	msg := EmailMessage{
		To:      email,
		Subject: fmt.Sprintf("Your appointment confirmation from %s", s.clinicName),
		Body:    confirmationBody(s.clinicName, appt),
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		s.logger.Error("confirmation email failed", "error", err, "to", email)
		return false
	}
	return true
}

func confirmationBody(clinicName string, appt intake.Appointment) string {
	return fmt.Sprintf(
		"Hello,\n\n"+
			"This confirms your upcoming appointment with %s.\n\n"+
			"    When:      %s\n"+
			"    Provider:  %s\n"+
			"    Specialty: %s\n\n"+
			"If you need to reschedule, please call our office.\n\n"+
			"Thank you,\n%s",
		clinicName, appt.Time, appt.Doctor, appt.Specialty, clinicName,
	)
}

var _ intake.Notifier = (*Service)(nil)
