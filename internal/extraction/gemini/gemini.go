package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/tmcgee/sparkinv/internal/extraction"
)

type GeminiExtractor struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func NewGeminiExtractor(ctx context.Context, apiKey, modelName string) (*GeminiExtractor, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &GeminiExtractor{
		client: client,
		model:  client.GenerativeModel(modelName),
	}, nil
}

func (e *GeminiExtractor) Extract(ctx context.Context, imageData []byte, mimeType string) (*extraction.Result, error) {
	parts := []genai.Part{
		genai.ImageData(formatSuffix(mimeType), imageData),
		genai.Text(extraction.Prompt),
	}

	resp, err := e.model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("failed to call gemini: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no response from gemini")
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			responseText.WriteString(string(text))
		}
	}

	return extraction.ParseResponse(responseText.String()), nil
}

func (e *GeminiExtractor) Close() error {
	return e.client.Close()
}

// formatSuffix converts a MIME type to the bare format suffix genai.ImageData
// expects ("image/png" -> "png").
func formatSuffix(mimeType string) string {
	if suffix, ok := strings.CutPrefix(mimeType, "image/"); ok && suffix != "" {
		return suffix
	}
	return "jpeg"
}
