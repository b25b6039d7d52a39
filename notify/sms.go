package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/safekid-nepal/safekid-api/apperrors"
)

// DefaultSMSGatewayURL is the Sparrow SMS send endpoint
const DefaultSMSGatewayURL = "https://api.sparrowsms.com/v2/sms/"

// SMSSender delivers a single text message
type SMSSender interface {
	Send(ctx context.Context, to, text string) error
}

type smsMessage struct {
	From string `json:"from"`
	To   string `json:"to"`
	Text string `json:"text"`
}

// SMSClient posts messages to a bearer-token authenticated SMS gateway
type SMSClient struct {
	url   string
	token string
	from  string
	http  *http.Client
}

// NewSMSClient returns an SMSClient for the gateway at url
func NewSMSClient(url, token, from string) *SMSClient {
	if url == "" {
		url = DefaultSMSGatewayURL
	}
	if from == "" {
		from = "SafeKid"
	}
	return &SMSClient{
		url:   url,
		token: token,
		from:  from,
		http:  &http.Client{Timeout: 15 * time.Second},
	}
}

// Send posts one message. Any non-2xx response is treated as a failure.
func (c *SMSClient) Send(ctx context.Context, to, text string) error {
	jsonData, err := json.Marshal(smsMessage{From: c.from, To: to, Text: text})
	if err != nil {
		return fmt.Errorf("failed to marshal sms message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.Network("sms", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apperrors.Network("sms", fmt.Errorf("gateway returned status %d", resp.StatusCode))
	}
	return nil
}
