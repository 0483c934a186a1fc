package intake

import "context"

// ActionType identifies a node side effect consumed by the dialogue host.
type ActionType string

// ActionEndConversation tells the host to tear down the transport.
const ActionEndConversation ActionType = "end_conversation"

// Action is one pre- or post-action attached to a node.
type Action struct {
	Type ActionType `json:"type"`
}

// ParamType is the JSON-schema type of a function parameter.
type ParamType string

const (
	ParamString  ParamType = "string"
	ParamBoolean ParamType = "boolean"
	ParamInteger ParamType = "integer"
)

// Param describes one function parameter.
type Param struct {
	Name        string    `json:"name"`
	Type        ParamType `json:"type"`
	Description string    `json:"description,omitempty"`
	Enum        []string  `json:"enum,omitempty"`
	Required    bool      `json:"required"`
}

// Args carries the structured arguments of one function call. Values arrive
// as decoded JSON, so numbers may be float64.
type Args map[string]any

// String reads a string argument.
func (a Args) String(name string) (string, bool) {
	v, ok := a[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Bool reads a boolean argument.
func (a Args) Bool(name string) (bool, bool) {
	v, ok := a[name]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// Int reads an integer argument, accepting the float64 form JSON decoding
// produces.
func (a Args) Int(name string) (int, bool) {
	v, ok := a[name]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// Result is the typed output of a function handler. Variants are closed:
// each field type has its own result struct with a fixed contract.
type Result interface{ isResult() }

// NameResult carries a captured name-like value.
type NameResult struct{ Name string }

// ConfirmationResult is the confirm-step contract: Confirmed with an
// optional correction. A usable correction always takes precedence over the
// confirmed bit.
type ConfirmationResult struct {
	Confirmed  bool
	Correction string
}

// PayerIDResult carries a normalized numeric insurance ID.
type PayerIDResult struct{ PayerID string }

// ReferralResult carries the referral yes/no answer.
type ReferralResult struct{ HasReferral bool }

// ComplaintResult carries the chief complaint text.
type ComplaintResult struct{ Complaint string }

// AddressTextResult carries one raw full-address utterance.
type AddressTextResult struct{ Text string }

// ContactResult carries a phone number or email candidate.
type ContactResult struct{ Value string }

// SkipResult records an explicit decline to provide an optional field.
type SkipResult struct{}

// OfferResponseResult is the accept/decline answer to an appointment offer,
// echoing the index that was answered.
type OfferResponseResult struct {
	Accepted   bool
	OfferIndex int
}

// DoneResult signals a completion function (end of intake, no suitable slot).
type DoneResult struct{ Status string }

func (NameResult) isResult()          {}
func (ConfirmationResult) isResult()  {}
func (PayerIDResult) isResult()       {}
func (ReferralResult) isResult()      {}
func (ComplaintResult) isResult()     {}
func (AddressTextResult) isResult()   {}
func (ContactResult) isResult()       {}
func (SkipResult) isResult()          {}
func (OfferResponseResult) isResult() {}
func (DoneResult) isResult()          {}

// HandlerFunc validates and normalizes arguments into a typed Result. It must
// not mutate the session; mutation belongs to the transition.
type HandlerFunc func(ctx context.Context, args Args) (Result, error)

// TransitionFunc applies a result to the session and selects the next node.
type TransitionFunc func(ctx context.Context, res Result, s *Session) (nextNodeID string, err error)

// FunctionSchema declares one structured function the model may invoke from
// a node.
type FunctionSchema struct {
	Name        string
	Description string
	Params      []Param
	Handler     HandlerFunc
	Transition  TransitionFunc
}

// ValidateArgs enforces the required subset before the handler runs. A
// missing required field is a MissingField condition, not a crash.
func (f FunctionSchema) ValidateArgs(args Args) error {
	for _, p := range f.Params {
		if !p.Required {
			continue
		}
		if _, ok := args[p.Name]; !ok {
			return missingField(p.Name)
		}
	}
	return nil
}

// Node is one rendered conversational state: the prompt the host surfaces
// and the functions the model may call. Nodes are immutable once rendered;
// dynamic content comes from re-rendering the template on activation.
type Node struct {
	ID          string           `json:"id"`
	Prompt      string           `json:"prompt"`
	Functions   []FunctionSchema `json:"-"`
	PostActions []Action         `json:"post_actions,omitempty"`
}

// Function looks up a declared function by name.
func (n Node) Function(name string) (FunctionSchema, bool) {
	for _, f := range n.Functions {
		if f.Name == name {
			return f, true
		}
	}
	return FunctionSchema{}, false
}

// Terminal reports whether the node ends the conversation.
func (n Node) Terminal() bool {
	for _, a := range n.PostActions {
		if a.Type == ActionEndConversation {
			return true
		}
	}
	return false
}

// NodeTemplate renders a node from the current session state. The engine
// renders on every activation so prompts always reflect the latest scratch
// values; templates are never pre-instantiated with placeholder data.
type NodeTemplate func(s *Session) Node

// FunctionCall is one inbound model invocation.
type FunctionCall struct {
	Name      string `json:"function_name"`
	Arguments Args   `json:"arguments"`
}
