// Package scoring HTTP client.
//
// This file implements Service against a remote scoring endpoint speaking
// the /api/predict wire contract.
package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/voicecredit-ai/voicecredit/internal/models"
)

// DefaultClientTimeout bounds a single scoring HTTP call.
const DefaultClientTimeout = 30 * time.Second

// HTTPClient scores applications through a remote prediction endpoint.
type HTTPClient struct {
	endpoint string
	client   *http.Client
}

// NewHTTPClient creates a scoring client for the given endpoint URL.
func NewHTTPClient(endpoint string) *HTTPClient {
	slog.Debug("scoring.NewHTTPClient: creating remote scoring client", "endpoint", endpoint)
	return &HTTPClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: DefaultClientTimeout},
	}
}

// Predict posts the scoring request and decodes the prediction result. Any
// transport fault or non-200 response surfaces as a capability fault with no
// partial result.
func (c *HTTPClient) Predict(ctx context.Context, req models.ScoringRequest) (*models.PredictionResult, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode scoring request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build scoring request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		slog.Error("scoring.HTTPClient.Predict: request failed", "error", err, "endpoint", c.endpoint)
		return nil, fmt.Errorf("%w: %v", models.ErrScoringFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Error("scoring.HTTPClient.Predict: unexpected status", "status", resp.StatusCode, "endpoint", c.endpoint)
		return nil, fmt.Errorf("%w: unexpected status %d", models.ErrScoringFailed, resp.StatusCode)
	}

	var result models.PredictionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		slog.Error("scoring.HTTPClient.Predict: malformed response", "error", err, "endpoint", c.endpoint)
		return nil, fmt.Errorf("%w: malformed response: %v", models.ErrScoringFailed, err)
	}

	slog.Debug("scoring.HTTPClient.Predict: succeeded", "status", result.Status)
	return &result, nil
}
