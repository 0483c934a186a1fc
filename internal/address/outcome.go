// Package address parses free-text postal addresses from call transcripts and
// reconciles them against the USPS address validation API.
package address

// Status classifies a validation attempt.
type Status string

const (
	StatusValid           Status = "VALID"
	StatusValidWithChanges Status = "VALID_WITH_CHANGES"
	StatusValidWithIssues  Status = "VALID_WITH_ISSUES"
	StatusInvalid          Status = "INVALID"
	StatusAmbiguous        Status = "AMBIGUOUS"
	StatusAPIError         Status = "API_ERROR"
	StatusError            Status = "ERROR"
)

// Deliverable reports whether the status allows committing the address.
func (s Status) Deliverable() bool {
	return s == StatusValid || s == StatusValidWithChanges
}

// Postal is a normalized postal address.
type Postal struct {
	Street1 string `json:"street1"`
	Street2 string `json:"street2,omitempty"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip5    string `json:"zip5"`
	Zip4    string `json:"zip4,omitempty"`
}

// Outcome is the result of one validation attempt. Normalized is set only
// when the service produced a standardized address.
type Outcome struct {
	Status     Status  `json:"status"`
	Reason     string  `json:"reason"`
	Normalized *Postal `json:"normalized_address,omitempty"`
}
