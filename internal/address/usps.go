package address

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/brightline-health/intake-voice-agent/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	uspsProductionBaseURL = "https://apis.usps.com"
	uspsTestBaseURL       = "https://apis-tem.usps.com"

	// tokenExpiryBuffer is subtracted from the reported lifetime so a token
	// is refreshed before USPS actually rejects it.
	tokenExpiryBuffer = time.Minute
)

// Validator is the contract the intake flow consumes. *USPSClient is the
// production implementation; tests substitute fakes.
type Validator interface {
	Validate(ctx context.Context, req Request) Outcome
	Configured() bool
}

// Request is one validation request.
type Request struct {
	Street1 string
	Street2 string
	City    string
	State   string // two-letter abbreviation
	Zip5    string
	Zip4    string
}

// USPSConfig holds credentials for the USPS API v3.
type USPSConfig struct {
	ClientID     string
	ClientSecret string
	UseTestEnv   bool
	Timeout      time.Duration

	// BaseURL overrides the USPS endpoint; tests point it at httptest servers.
	BaseURL string
}

// USPSClient validates addresses against the USPS API v3 using OAuth2 client
// credentials. The access token is cached until expiry; concurrent sessions
// racing on first use converge on a single refresh.
type USPSClient struct {
	clientID     string
	clientSecret string
	baseURL      string
	httpClient   *http.Client
	logger       *logging.Logger
	tracer       trace.Tracer

	tokenMu     sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewUSPSClient creates a USPS validator. A client without credentials is
// returned non-nil but reports Configured() == false so callers can degrade
// to accepting the address as typed.
func NewUSPSClient(cfg USPSConfig, logger *logging.Logger) *USPSClient {
	if logger == nil {
		logger = logging.Default()
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		if cfg.UseTestEnv {
			baseURL = uspsTestBaseURL
		} else {
			baseURL = uspsProductionBaseURL
		}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &USPSClient{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   &http.Client{Timeout: timeout},
		logger:       logger,
		tracer:       otel.Tracer("intake.internal.address.usps"),
	}
}

// Configured reports whether credentials are present.
func (c *USPSClient) Configured() bool {
	return c != nil && c.clientID != "" && c.clientSecret != ""
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	Error       string `json:"error"`
	ErrorDesc   string `json:"error_description"`
}

// getAccessToken returns a cached token or fetches a fresh one. The mutex
// covers the whole check-and-refresh so only one caller hits the OAuth
// endpoint when the token lapses.
func (c *USPSClient) getAccessToken(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	c.logger.Info("usps access token missing or expired, fetching new token")
	payload, err := json.Marshal(map[string]string{
		"client_id":     c.clientID,
		"client_secret": c.clientSecret,
		"grant_type":    "client_credentials",
	})
	if err != nil {
		return "", fmt.Errorf("address: marshal token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/oauth2/v3/token", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("address: build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.dropTokenLocked()
		return "", fmt.Errorf("address: token request failed: %w", err)
	}
	defer resp.Body.Close()

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		c.dropTokenLocked()
		return "", fmt.Errorf("address: decode token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || tok.AccessToken == "" {
		c.dropTokenLocked()
		detail := tok.ErrorDesc
		if detail == "" {
			detail = tok.Error
		}
		return "", fmt.Errorf("address: token request rejected (status %d): %s", resp.StatusCode, detail)
	}

	expiresIn := tok.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = 3599
	}
	c.accessToken = tok.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(expiresIn)*time.Second - tokenExpiryBuffer)
	c.logger.Info("obtained new usps access token", "expires_in_seconds", expiresIn)
	return c.accessToken, nil
}

// dropTokenLocked clears the cached token. Callers must hold tokenMu.
func (c *USPSClient) dropTokenLocked() {
	c.accessToken = ""
	c.tokenExpiry = time.Time{}
}

// dropToken forces re-authentication on the next attempt.
func (c *USPSClient) dropToken() {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()
	c.dropTokenLocked()
}

type uspsAddressResponse struct {
	Address struct {
		StreetAddress    string `json:"streetAddress"`
		SecondaryAddress string `json:"secondaryAddress"`
		City             string `json:"city"`
		State            string `json:"state"`
		ZIPCode          string `json:"ZIPCode"`
		ZIPPlus4         string `json:"ZIPPlus4"`
	} `json:"address"`
	AdditionalInfo struct {
		DPVConfirmation string `json:"DPVConfirmation"`
		DPVFootnotes    string `json:"DPVFootnotes"`
	} `json:"addressAdditionalInfo"`
	Corrections []struct {
		CorrectionText string `json:"correctionText"`
	} `json:"addressCorrections"`
}

type uspsErrorResponse struct {
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Validate reconciles one address against USPS, mapping the delivery-point
// confirmation code to an Outcome per the contract:
// Y unchanged -> VALID, Y with corrections -> VALID_WITH_CHANGES,
// S or D -> VALID_WITH_ISSUES, N -> INVALID, HTTP 400 -> INVALID,
// HTTP 401 -> API_ERROR (and the cached token is dropped).
func (c *USPSClient) Validate(ctx context.Context, r Request) Outcome {
	ctx, span := c.tracer.Start(ctx, "address.usps_validate")
	defer span.End()

	token, err := c.getAccessToken(ctx)
	if err != nil {
		span.RecordError(err)
		c.logger.Error("usps token fetch failed", "error", err)
		return Outcome{Status: StatusAPIError, Reason: "Failed to obtain USPS API access token."}
	}

	params := url.Values{}
	params.Set("streetAddress", r.Street1)
	params.Set("city", r.City)
	params.Set("state", r.State)
	params.Set("ZIPCode", r.Zip5)
	if r.Street2 != "" {
		params.Set("secondaryAddress", r.Street2)
	}
	if r.Zip4 != "" {
		params.Set("ZIPPlus4", r.Zip4)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/addresses/v3/address?"+params.Encode(), nil)
	if err != nil {
		return Outcome{Status: StatusError, Reason: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		c.logger.Error("usps validation request failed", "error", err)
		return Outcome{Status: StatusAPIError, Reason: fmt.Sprintf("Network error during address validation: %v", err)}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var data uspsAddressResponse
		if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
			span.RecordError(err)
			return Outcome{Status: StatusError, Reason: fmt.Sprintf("decode USPS response: %v", err)}
		}
		return c.mapResponse(r, data)

	case http.StatusBadRequest:
		var errData uspsErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errData)
		messages := make([]string, 0, len(errData.Errors))
		for _, e := range errData.Errors {
			messages = append(messages, e.Message)
		}
		reason := "The address could not be found or was badly formatted."
		if len(messages) > 0 {
			reason = "USPS reported an issue with the address provided: " + strings.Join(messages, "; ")
		}
		c.logger.Warn("usps rejected address as malformed", "messages", strings.Join(messages, "; "))
		return Outcome{Status: StatusInvalid, Reason: reason}

	case http.StatusUnauthorized:
		c.dropToken()
		c.logger.Error("usps returned 401, dropping cached token")
		return Outcome{Status: StatusAPIError, Reason: "USPS API authorization failed. Please check credentials or token."}

	default:
		c.logger.Error("usps validation request failed", "status", resp.StatusCode)
		return Outcome{Status: StatusAPIError, Reason: fmt.Sprintf("USPS API request failed with status %d.", resp.StatusCode)}
	}
}

func (c *USPSClient) mapResponse(r Request, data uspsAddressResponse) Outcome {
	normalized := &Postal{
		Street1: firstNonEmpty(data.Address.StreetAddress, r.Street1),
		Street2: firstNonEmpty(data.Address.SecondaryAddress, r.Street2),
		City:    firstNonEmpty(data.Address.City, r.City),
		State:   firstNonEmpty(data.Address.State, r.State),
		Zip5:    firstNonEmpty(data.Address.ZIPCode, r.Zip5),
		Zip4:    firstNonEmpty(data.Address.ZIPPlus4, r.Zip4),
	}
	correction := ""
	if len(data.Corrections) > 0 {
		correction = data.Corrections[0].CorrectionText
	}

	switch data.AdditionalInfo.DPVConfirmation {
	case "Y":
		if correction != "" || !sameAddress(r, normalized) {
			return Outcome{
				Status:     StatusValidWithChanges,
				Reason:     strings.TrimSpace("Address validated with corrections. " + correction),
				Normalized: normalized,
			}
		}
		return Outcome{Status: StatusValid, Reason: "Address validated successfully.", Normalized: normalized}

	case "S":
		reason := "Address confirmed, but requires attention to the secondary address unit. "
		if correction != "" {
			reason += correction
		} else {
			reason += "Please verify the apartment or suite number."
		}
		return Outcome{Status: StatusValidWithIssues, Reason: reason, Normalized: normalized}

	case "D":
		reason := "Address confirmed, but the primary street number is missing or invalid. "
		if correction != "" {
			reason += correction
		} else {
			reason += "Please verify the street number."
		}
		return Outcome{Status: StatusValidWithIssues, Reason: reason, Normalized: normalized}

	case "N", "":
		reasonParts := []string{"Address could not be validated as deliverable."}
		if data.AdditionalInfo.DPVFootnotes != "" {
			reasonParts = append(reasonParts, "Footnotes: "+data.AdditionalInfo.DPVFootnotes)
		}
		if correction != "" {
			reasonParts = append(reasonParts, "Corrections: "+correction)
		}
		return Outcome{Status: StatusInvalid, Reason: strings.Join(reasonParts, " ")}

	default:
		return Outcome{
			Status:     StatusAmbiguous,
			Reason:     fmt.Sprintf("Address validation returned an unhandled DPV status: %s.", data.AdditionalInfo.DPVConfirmation),
			Normalized: normalized,
		}
	}
}

func sameAddress(r Request, p *Postal) bool {
	in := strings.ToUpper(strings.Join(strings.Fields(r.Street1+" "+r.Street2+" "+r.City+" "+r.State+" "+r.Zip5), " "))
	out := strings.ToUpper(strings.Join(strings.Fields(p.Street1+" "+p.Street2+" "+p.City+" "+p.State+" "+p.Zip5), " "))
	return in == out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
