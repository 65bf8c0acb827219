package docgen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/tmcgee/sparkinv/internal/domain"
	"github.com/tmcgee/sparkinv/internal/invoice"
)

const (
	// DefaultPollInterval and DefaultMaxPollAttempts bound the status poll:
	// 45 attempts at 2s is roughly 90 seconds before generation is treated
	// as failed and handed back for explicit user retry.
	DefaultPollInterval    = 2 * time.Second
	DefaultMaxPollAttempts = 45
)

var (
	ErrNotConfigured   = errors.New("document generation is not configured")
	ErrDocumentTimeout = errors.New("document was not ready in time")
)

// Client calls the external document-rendering service. Rendering either
// returns a download URL immediately or a document ID to poll.
type Client struct {
	baseURL         string
	apiKey          string
	httpClient      *http.Client
	pollInterval    time.Duration
	maxPollAttempts int
	logger          *slog.Logger
}

func NewClient(baseURL, apiKey string, logger *slog.Logger) *Client {
	return &Client{
		baseURL:         baseURL,
		apiKey:          apiKey,
		httpClient:      &http.Client{Timeout: 30 * time.Second},
		pollInterval:    DefaultPollInterval,
		maxPollAttempts: DefaultMaxPollAttempts,
		logger:          logger,
	}
}

// SetPolling overrides the status-poll cadence. Tests use this to avoid real
// delays.
func (c *Client) SetPolling(interval time.Duration, maxAttempts int) {
	c.pollInterval = interval
	c.maxPollAttempts = maxAttempts
}

type generateRequest struct {
	Invoice *domain.Invoice       `json:"invoice"`
	Profile domain.CompanyProfile `json:"profile"`
	Totals  invoice.Totals        `json:"totals"`
}

type generateResponse struct {
	DownloadURL string `json:"downloadUrl"`
	DocumentID  string `json:"documentId"`
}

type statusRequest struct {
	DocumentID string `json:"documentId"`
	Mode       string `json:"mode"`
}

// Generate submits the invoice for rendering and returns the download URL,
// polling the service until the document is ready or the attempt budget runs
// out. Totals are derived fresh from the invoice items at submission time.
func (c *Client) Generate(ctx context.Context, inv *domain.Invoice, profile domain.CompanyProfile) (string, error) {
	if c.baseURL == "" {
		return "", ErrNotConfigured
	}

	resp, err := c.post(ctx, generateRequest{
		Invoice: inv,
		Profile: profile,
		Totals:  invoice.Compute(inv),
	})
	if err != nil {
		return "", fmt.Errorf("failed to request document: %w", err)
	}

	if resp.DownloadURL != "" {
		return resp.DownloadURL, nil
	}
	if resp.DocumentID == "" {
		return "", fmt.Errorf("document service returned neither a download url nor a document id")
	}

	c.logger.Info("document queued, polling for completion", "document_id", resp.DocumentID)
	return c.waitForDocument(ctx, resp.DocumentID)
}

func (c *Client) waitForDocument(ctx context.Context, documentID string) (string, error) {
	timer := time.NewTimer(c.pollInterval)
	defer timer.Stop()

	for attempt := 1; attempt <= c.maxPollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}

		resp, err := c.post(ctx, statusRequest{DocumentID: documentID, Mode: "status"})
		if err != nil {
			return "", fmt.Errorf("failed to poll document status: %w", err)
		}
		if resp.DownloadURL != "" {
			return resp.DownloadURL, nil
		}

		c.logger.Debug("document not ready", "document_id", documentID, "attempt", attempt)
		timer.Reset(c.pollInterval)
	}
	return "", ErrDocumentTimeout
}

func (c *Client) post(ctx context.Context, body any) (*generateResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Error("failed to close document service response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("document service returned status %d: %s", resp.StatusCode, errBody)
	}

	var decoded generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &decoded, nil
}
