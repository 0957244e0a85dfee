package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vedants521/CancelFillMD/internal/shared/config"
)

// SMSSender sends one SMS. Bodies longer than a single segment are
// truncated before sending.
type SMSSender interface {
	Send(ctx context.Context, toNumber, body string) (providerID string, err error)
}

// TwilioSMSSender sends SMS through the Twilio Messages REST API
type TwilioSMSSender struct {
	config config.SMSConfig
	client *http.Client
}

func NewTwilioSMSSender(cfg config.SMSConfig) *TwilioSMSSender {
	return &TwilioSMSSender{
		config: cfg,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

type twilioMessageResponse struct {
	SID     string `json:"sid"`
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (t *TwilioSMSSender) Send(ctx context.Context, toNumber, body string) (string, error) {
	if !strings.HasPrefix(toNumber, "+") {
		return "", NewPermanentSendError(fmt.Errorf("phone number %q is not E.164", toNumber))
	}

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json",
		t.config.APIBaseURL, t.config.AccountSID)

	form := url.Values{}
	form.Set("To", toNumber)
	form.Set("From", t.config.FromNumber)
	form.Set("Body", TruncateSMS(body))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build SMS request: %w", err)
	}
	req.SetBasicAuth(t.config.AccountSID, t.config.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call SMS provider: %w", err)
	}
	defer resp.Body.Close()

	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	var parsed twilioMessageResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		parsed = twilioMessageResponse{}
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return parsed.SID, nil
	case resp.StatusCode == http.StatusBadRequest, resp.StatusCode == http.StatusNotFound:
		// Invalid number or account problem; retrying will not help
		return "", NewPermanentSendError(fmt.Errorf("SMS provider rejected message: %s (code %d)", parsed.Message, parsed.Code))
	default:
		return "", fmt.Errorf("SMS provider error: status %d: %s", resp.StatusCode, parsed.Message)
	}
}

// MockSMSSender logs instead of sending, for development and tests
type MockSMSSender struct{}

func NewMockSMSSender() *MockSMSSender {
	return &MockSMSSender{}
}

func (s *MockSMSSender) Send(ctx context.Context, toNumber, body string) (string, error) {
	log.Printf("📱 [MOCK] To: %s, Body: %s", toNumber, TruncateSMS(body))
	return "mock-sms", nil
}
