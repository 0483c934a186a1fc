package intake_test

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightline-health/intake-voice-agent/internal/address"
	"github.com/brightline-health/intake-voice-agent/internal/intake"
	"github.com/brightline-health/intake-voice-agent/internal/schedule"
	"github.com/brightline-health/intake-voice-agent/pkg/logging"
)

// fakeValidator returns canned outcomes and records requests.
type fakeValidator struct {
	mu         sync.Mutex
	configured bool
	outcome    address.Outcome
	requests   []address.Request
}

func (f *fakeValidator) Validate(_ context.Context, req address.Request) address.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.outcome
}

func (f *fakeValidator) Configured() bool { return f.configured }

// fakeNotifier records confirmation dispatches.
type fakeNotifier struct {
	mu     sync.Mutex
	ok     bool
	emails []string
	appts  []intake.Appointment
}

func (f *fakeNotifier) SendConfirmation(_ context.Context, email string, appt intake.Appointment) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emails = append(f.emails, email)
	f.appts = append(f.appts, appt)
	return f.ok
}

// fakeLatency records validation latency observations.
type fakeLatency struct {
	mu       sync.Mutex
	observed []float64
}

func (f *fakeLatency) ObserveValidationLatency(seconds float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.observed = append(f.observed, seconds)
}

type harness struct {
	engine    *intake.Engine
	session   *intake.Session
	validator *fakeValidator
	notifier  *fakeNotifier
	latency   *fakeLatency
}

func newHarness(t *testing.T, slots []schedule.Slot) *harness {
	t.Helper()
	validator := &fakeValidator{
		configured: true,
		outcome:    address.Outcome{Status: address.StatusValid, Reason: "ok"},
	}
	notifier := &fakeNotifier{ok: true}
	latency := &fakeLatency{}
	logger := logging.NewWithWriter("error", io.Discard)

	reg, err := intake.NewIntakeGraph(intake.GraphConfig{
		Slots:     slots,
		Validator: validator,
		Notifier:  notifier,
		Metrics:   latency,
		Logger:    logger,
	})
	require.NoError(t, err)

	return &harness{
		engine:    intake.NewEngine(reg, logger, nil),
		session:   intake.NewSession(),
		validator: validator,
		notifier:  notifier,
		latency:   latency,
	}
}

func (h *harness) start(t *testing.T) intake.Node {
	t.Helper()
	node, err := h.engine.Start(context.Background(), h.session)
	require.NoError(t, err)
	return node
}

// apply routes one call and requires it to succeed.
func (h *harness) apply(t *testing.T, name string, args intake.Args) intake.Node {
	t.Helper()
	node, err := h.engine.Apply(context.Background(), h.session, intake.FunctionCall{Name: name, Arguments: args})
	require.NoError(t, err, "call %s", name)
	return node
}

// applyErr routes one call and returns the node and error unchecked.
func (h *harness) applyErr(t *testing.T, name string, args intake.Args) (intake.Node, error) {
	t.Helper()
	return h.engine.Apply(context.Background(), h.session, intake.FunctionCall{Name: name, Arguments: args})
}

// confirmField runs one collect+confirm round and asserts the node ids.
func (h *harness) confirmField(t *testing.T, collectFn, param, value, confirmFn string) {
	t.Helper()
	node := h.apply(t, collectFn, intake.Args{param: value})
	require.Equal(t, "confirm_"+param, node.ID)
	node = h.apply(t, confirmFn, intake.Args{"confirmed": true})
	require.NotEqual(t, "confirm_"+param, node.ID)
}

// advanceToAddress walks the scripted section up to the address question.
func (h *harness) advanceToAddress(t *testing.T) intake.Node {
	t.Helper()
	h.start(t)
	h.confirmField(t, "collect_first_name", "first_name", "John", "confirm_first_name")
	h.confirmField(t, "collect_last_name", "last_name", "Doe", "confirm_last_name")
	h.confirmField(t, "collect_payer_name", "payer_name", "Aetna", "confirm_payer_name")
	h.confirmField(t, "collect_payer_id", "payer_id", "12345678", "confirm_payer_id")
	h.apply(t, "record_referral", intake.Args{"has_referral": false})
	node := h.apply(t, "record_complaint", intake.Args{"complaint": "persistent cough"})
	require.Equal(t, "collect_full_address", node.ID)
	return node
}

// advanceToOffer continues from the address question up to the first offer.
func (h *harness) advanceToOffer(t *testing.T) intake.Node {
	t.Helper()
	h.advanceToAddress(t)
	h.apply(t, "collect_full_address", intake.Args{"address_text": "123 Main Street, New York, NY 10001"})
	node := h.apply(t, "confirm_address", intake.Args{"confirmed": true})
	require.Equal(t, "collect_phone", node.ID)
	h.apply(t, "collect_phone", intake.Args{"phone": "555-123-4567"})
	h.apply(t, "collect_email", intake.Args{"email": "john.doe@example.com"})
	node = h.apply(t, "confirm_email_address", intake.Args{"confirmed": true})
	require.Equal(t, "offer_appointment", node.ID)
	return node
}

func TestStartRendersGreeting(t *testing.T) {
	h := newHarness(t, nil)
	node := h.start(t)

	assert.Equal(t, "initial", node.ID)
	assert.Contains(t, node.Prompt, "first name")
	_, ok := node.Function("collect_first_name")
	assert.True(t, ok)
	assert.False(t, node.Terminal())
}

func TestUnknownFunctionRepromptsSameNode(t *testing.T) {
	h := newHarness(t, nil)
	h.start(t)

	node, err := h.applyErr(t, "collect_last_name", intake.Args{"last_name": "Doe"})
	require.Error(t, err)
	assert.Equal(t, intake.KindInternalInconsistency, intake.KindOf(err))
	assert.True(t, intake.Recoverable(err))
	assert.Equal(t, "initial", node.ID)
	assert.Equal(t, "initial", h.session.ActiveNodeID)
}

func TestMissingRequiredArgumentRepromptsSameNode(t *testing.T) {
	h := newHarness(t, nil)
	h.start(t)

	node, err := h.applyErr(t, "collect_first_name", intake.Args{})
	require.Error(t, err)
	assert.Equal(t, intake.KindMissingField, intake.KindOf(err))
	assert.Equal(t, "initial", node.ID)
	assert.Empty(t, h.session.Patient.FirstName)
}

func TestWrongArgumentTypeRepromptsSameNode(t *testing.T) {
	h := newHarness(t, nil)
	h.start(t)

	node, err := h.applyErr(t, "collect_first_name", intake.Args{"first_name": 42})
	require.Error(t, err)
	assert.Equal(t, intake.KindAmbiguousInput, intake.KindOf(err))
	assert.Equal(t, "initial", node.ID)
}

func TestCompletedSessionRejectsFurtherCalls(t *testing.T) {
	h := newHarness(t, nil)
	h.advanceToOffer(t)
	h.apply(t, "respond_to_offer", intake.Args{"accepted": true, "offer_index": 0})
	node := h.apply(t, "end_intake", intake.Args{})
	require.True(t, node.Terminal())
	require.True(t, h.session.Completed)

	_, err := h.applyErr(t, "end_intake", intake.Args{})
	require.Error(t, err)
	assert.Equal(t, intake.KindInternalInconsistency, intake.KindOf(err))
}

func TestDuplicateNodeRegistrationFails(t *testing.T) {
	r := intake.NewRegistry("a")
	tmpl := func(_ *intake.Session) intake.Node { return intake.Node{ID: "a"} }
	require.NoError(t, r.Register("a", tmpl))
	require.Error(t, r.Register("a", tmpl))
}

func TestConcurrentCallsSerializePerSession(t *testing.T) {
	h := newHarness(t, nil)
	h.start(t)

	// Fire the same collect call from several goroutines; serialization
	// means exactly one lands on the collect node and the rest fail as
	// unknown functions on the confirm node. No interleaving corrupts state.
	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.engine.Apply(context.Background(), h.session,
				intake.FunctionCall{Name: "collect_first_name", Arguments: intake.Args{"first_name": "John"}})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.Equal(t, intake.KindInternalInconsistency, intake.KindOf(err))
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, "confirm_first_name", h.session.ActiveNodeID)
}
