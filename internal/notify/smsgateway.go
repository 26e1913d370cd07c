package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// SMSClient talks to the SMS gateway's HTTP API. Sends are rate limited
// and retried a bounded number of times; 4xx responses are not retried
// since resending the same payload cannot succeed.
type SMSClient struct {
	baseURL    string
	apiKey     string
	sender     string
	httpClient *http.Client
	limiter    *rate.Limiter

	retryDelays []time.Duration
}

type SMSClientConfig struct {
	BaseURL    string
	APIKey     string
	Sender     string
	RatePerSec float64
	Burst      int
}

func NewSMSClient(cfg SMSClientConfig) *SMSClient {
	ratePerSec := cfg.RatePerSec
	if ratePerSec <= 0 {
		ratePerSec = 10
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 5
	}
	return &SMSClient{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		sender:      cfg.Sender,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		limiter:     rate.NewLimiter(rate.Limit(ratePerSec), burst),
		retryDelays: []time.Duration{1 * time.Second, 5 * time.Second},
	}
}

type smsPayload struct {
	To   string `json:"to"`
	From string `json:"from,omitempty"`
	Body string `json:"body"`
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Send delivers one message. It blocks on the rate limiter first so bulk
// sends (reminders, reports) cannot flood the gateway.
func (c *SMSClient) Send(ctx context.Context, to, body string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("sms rate limit wait: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= len(c.retryDelays); attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryDelays[attempt-1]):
			}
		}
		lastErr = c.post(ctx, smsPayload{To: to, From: c.sender, Body: body})
		if lastErr == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(lastErr, &perm) {
			return fmt.Errorf("send sms to %s: %w", to, perm.err)
		}
	}
	return fmt.Errorf("send sms to %s: %w", to, lastErr)
}

func (c *SMSClient) post(ctx context.Context, payload smsPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return &permanentError{err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", strings.NewReader(string(data)))
	if err != nil {
		return &permanentError{err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests:
		return &permanentError{err: fmt.Errorf("http %d", resp.StatusCode)}
	default:
		return fmt.Errorf("http %d", resp.StatusCode)
	}
}
