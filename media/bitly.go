package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/safekid-nepal/safekid-api/apperrors"
)

// DefaultBitlyURL is the Bitly v4 shorten endpoint
const DefaultBitlyURL = "https://api-ssl.bitly.com/v4/shorten"

// Shortener turns a long URL into a short link
type Shortener interface {
	Shorten(ctx context.Context, longURL string) (string, error)
}

// BitlyShortener shortens links through the Bitly API
type BitlyShortener struct {
	url   string
	token string
	http  *http.Client
}

// NewBitlyShortener returns a shortener authenticated with token
func NewBitlyShortener(url, token string) *BitlyShortener {
	if url == "" {
		url = DefaultBitlyURL
	}
	return &BitlyShortener{url: url, token: token, http: &http.Client{Timeout: 15 * time.Second}}
}

// Shorten returns the Bitly link for longURL
func (b *BitlyShortener) Shorten(ctx context.Context, longURL string) (string, error) {
	jsonData, err := json.Marshal(map[string]string{"long_url": longURL})
	if err != nil {
		return "", fmt.Errorf("failed to marshal shorten request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create shorten request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.token)

	resp, err := b.http.Do(req)
	if err != nil {
		return "", apperrors.Network("bitly", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", apperrors.Network("bitly", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
	var body struct {
		Link string `json:"link"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", apperrors.Network("bitly", fmt.Errorf("failed to decode response: %w", err))
	}
	if body.Link == "" {
		return "", apperrors.Network("bitly", fmt.Errorf("response carried no link"))
	}
	return body.Link, nil
}
