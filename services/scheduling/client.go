package scheduling

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// EventCanceler is the outbound half of the adapter: it asks the provider
// to cancel a scheduled event.
type EventCanceler interface {
	CancelEvent(ctx context.Context, eventURI, reason string) error
}

// APIClient talks to the scheduling provider's REST API. Event URIs are
// fully qualified, so the client posts directly to them.
type APIClient struct {
	Token      string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// NewAPIClient constructs an APIClient with a bounded request timeout.
func NewAPIClient(token string, logger *zap.Logger) *APIClient {
	return &APIClient{
		Token:      token,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		Logger:     logger,
	}
}

// CancelEvent cancels the scheduled event behind eventURI. A 404 or an
// already-canceled conflict is treated as success — the desired end state
// holds either way.
func (c *APIClient) CancelEvent(ctx context.Context, eventURI, reason string) error {
	body, err := json.Marshal(map[string]string{"reason": reason})
	if err != nil {
		return fmt.Errorf("failed to encode cancellation: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, eventURI+"/cancellation", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build cancellation request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("cancellation request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusConflict:
		c.Logger.Info("scheduling event already gone",
			zap.String("eventUri", eventURI),
			zap.Int("status", resp.StatusCode))
		return nil
	default:
		return fmt.Errorf("provider rejected cancellation for %s: status %d", eventURI, resp.StatusCode)
	}
}

// CancelEvent on DefaultService delegates to the configured client.
func (s *DefaultService) CancelEvent(ctx context.Context, eventURI, reason string) error {
	if s.Client == nil {
		s.Logger.Warn("no scheduling API client configured, skipping cancel",
			zap.String("eventUri", eventURI))
		return nil
	}
	return s.Client.CancelEvent(ctx, eventURI, reason)
}
