package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/marketpi/wps/internal/domain"
	"github.com/marketpi/wps/internal/domain/interfaces"
	"github.com/marketpi/wps/pkg/config"
)

type settlementClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	maxRetries int
	retryDelay time.Duration
	logger     zerolog.Logger
}

func NewSettlementClient(cfg config.SettlementConfig, logger zerolog.Logger) interfaces.SettlementClient {
	return &settlementClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     logger,
	}
}

// Approve marks server-side approval of a payment so the wallet may
// broadcast it.
func (c *settlementClient) Approve(ctx context.Context, paymentID string) error {
	endpoint := fmt.Sprintf("/v1/payments/%s/approve", paymentID)

	if err := c.makeRequest(ctx, "POST", endpoint, nil, nil); err != nil {
		return fmt.Errorf("failed to approve payment %s: %w", paymentID, err)
	}

	return nil
}

// Complete confirms the on-chain transaction and finalizes business
// effects; the backend returns the settlement result.
func (c *settlementClient) Complete(ctx context.Context, paymentID, txid string) (*domain.SettlementResult, error) {
	endpoint := fmt.Sprintf("/v1/payments/%s/complete", paymentID)

	body := map[string]string{"txid": txid}
	var result domain.SettlementResult
	if err := c.makeRequest(ctx, "POST", endpoint, body, &result); err != nil {
		return nil, fmt.Errorf("failed to complete payment %s: %w", paymentID, err)
	}

	return &result, nil
}

// Cancel marks the payment abandoned. Callers treat it as best-effort.
func (c *settlementClient) Cancel(ctx context.Context, paymentID string) error {
	endpoint := fmt.Sprintf("/v1/payments/%s/cancel", paymentID)

	if err := c.makeRequest(ctx, "POST", endpoint, nil, nil); err != nil {
		return fmt.Errorf("failed to cancel payment %s: %w", paymentID, err)
	}

	return nil
}

// makeRequest makes an HTTP request with retries
func (c *settlementClient) makeRequest(ctx context.Context, method, endpoint string, body interface{}, response interface{}) error {
	fullURL := c.baseURL + endpoint

	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryDelay * time.Duration(1<<(attempt-1))): // Exponential backoff
			}
		}

		var reqBody []byte
		var err error

		if body != nil {
			reqBody, err = json.Marshal(body)
			if err != nil {
				return fmt.Errorf("failed to marshal request body: %w", err)
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, fullURL, bytes.NewReader(reqBody))
		if err != nil {
			lastErr = fmt.Errorf("failed to create request: %w", err)
			continue
		}

		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("X-API-Key", c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			log.Warn().Err(err).Int("attempt", attempt+1).Str("url", fullURL).Msg("Settlement request failed, retrying")
			continue
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("failed to read response body: %w", readErr)
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			if response != nil {
				if err := json.Unmarshal(respBody, response); err != nil {
					lastErr = fmt.Errorf("failed to unmarshal response: %w", err)
					continue
				}
			}

			return nil
		}

		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("server error (status %d): %s", resp.StatusCode, string(respBody))
			log.Warn().Int("status", resp.StatusCode).Int("attempt", attempt+1).Str("url", fullURL).Msg("Settlement server error, retrying")
			continue
		}

		// Client errors (4xx) - don't retry
		return fmt.Errorf("client error (status %d): %s", resp.StatusCode, string(respBody))
	}

	log.Error().Err(lastErr).Str("url", fullURL).Int("max_retries", c.maxRetries).Msg("Settlement request failed after all retries")
	return fmt.Errorf("request failed after %d retries: %w", c.maxRetries, lastErr)
}
