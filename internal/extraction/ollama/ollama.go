package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/tmcgee/sparkinv/internal/extraction"
)

type OllamaExtractor struct {
	host   string
	model  string
	client *http.Client
}

func NewOllamaExtractor(host, model string) *OllamaExtractor {
	return &OllamaExtractor{
		host:   host,
		model:  model,
		client: &http.Client{},
	}
}

func (e *OllamaExtractor) Extract(ctx context.Context, imageData []byte, _ string) (*extraction.Result, error) {
	reqBody := map[string]any{
		"model":  e.model,
		"prompt": extraction.Prompt,
		"images": []string{base64.StdEncoding.EncodeToString(imageData)},
		"stream": false,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.host+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call ollama: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("failed to close ollama response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	var respBody struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&respBody); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return extraction.ParseResponse(respBody.Response), nil
}
