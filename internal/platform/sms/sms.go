// Package sms provides the outbound reminder gateway: a provider-agnostic
// Gateway interface, a Fast2SMS WhatsApp client, and a mock sender for tests
// and development.
package sms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// TemplateFields are the values substituted into the provider's reminder
// template, in declaration order.
type TemplateFields struct {
	ParentName  string
	ChildName   string
	VaccineName string
	DueDate     string
}

// Result is the provider's view of a delivery attempt. Status is an opaque
// provider token stored verbatim in the attempt log.
type Result struct {
	Status string
}

// Gateway sends one reminder message to one recipient.
type Gateway interface {
	Send(ctx context.Context, to string, fields TemplateFields) (Result, error)
}

// ---------------------------------------------------------------------------
// Fast2SMS client
// ---------------------------------------------------------------------------

const fast2smsEndpoint = "https://www.fast2sms.com/dev/whatsapp"

// Fast2SMSClient delivers reminders through the Fast2SMS WhatsApp template
// API. Template variables are sent pipe-separated in declaration order.
type Fast2SMSClient struct {
	apiKey        string
	messageID     string
	phoneNumberID string
	endpoint      string
	client        *http.Client
}

// NewFast2SMSClient creates a client with the given credentials.
func NewFast2SMSClient(apiKey, messageID, phoneNumberID string) *Fast2SMSClient {
	return &Fast2SMSClient{
		apiKey:        apiKey,
		messageID:     messageID,
		phoneNumberID: phoneNumberID,
		endpoint:      fast2smsEndpoint,
		client:        &http.Client{Timeout: 15 * time.Second},
	}
}

type fast2smsResponse struct {
	Return  bool     `json:"return"`
	Message []string `json:"message"`
}

// Send calls the Fast2SMS WhatsApp endpoint. The provider acknowledges
// acceptance, not delivery, so a successful call reports status "sent".
func (f *Fast2SMSClient) Send(ctx context.Context, to string, fields TemplateFields) (Result, error) {
	variables := fmt.Sprintf("%s|%s|%s|%s",
		fields.ParentName, fields.ChildName, fields.VaccineName, fields.DueDate)

	q := url.Values{}
	q.Set("authorization", f.apiKey)
	q.Set("message_id", f.messageID)
	q.Set("phone_number_id", f.phoneNumberID)
	q.Set("numbers", to)
	q.Set("variables_values", variables)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return Result{}, fmt.Errorf("build fast2sms request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("call fast2sms: %w", err)
	}
	defer resp.Body.Close()

	var body fast2smsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Result{}, fmt.Errorf("decode fast2sms response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || !body.Return {
		return Result{}, fmt.Errorf("fast2sms rejected message (status %d): %v", resp.StatusCode, body.Message)
	}

	return Result{Status: "sent"}, nil
}

// ---------------------------------------------------------------------------
// Mock gateway (test double)
// ---------------------------------------------------------------------------

// SendCall records a single call to Send.
type SendCall struct {
	To     string
	Fields TemplateFields
}

// MockGateway is a test double for Gateway.
type MockGateway struct {
	mu         sync.Mutex
	calls      []SendCall
	ShouldFail bool
	FailError  string
	// FailFor makes Send fail only for the listed recipients.
	FailFor map[string]bool
}

// Send records the call and optionally returns an error.
func (m *MockGateway) Send(_ context.Context, to string, fields TemplateFields) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, SendCall{To: to, Fields: fields})
	if m.ShouldFail || m.FailFor[to] {
		msg := m.FailError
		if msg == "" {
			msg = "gateway unavailable"
		}
		return Result{}, errors.New(msg)
	}
	return Result{Status: "sent"}, nil
}

// Calls returns a copy of recorded calls.
func (m *MockGateway) Calls() []SendCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SendCall, len(m.calls))
	copy(out, m.calls)
	return out
}
