package claude

import (
	"context"
	"fmt"

	"github.com/liushuangls/go-anthropic/v2"

	"github.com/tmcgee/sparkinv/internal/extraction"
)

type ClaudeExtractor struct {
	client *anthropic.Client
	model  anthropic.Model
}

func NewClaudeExtractor(apiKey, model string) *ClaudeExtractor {
	return &ClaudeExtractor{
		client: anthropic.NewClient(apiKey),
		model:  anthropic.Model(model),
	}
}

func (e *ClaudeExtractor) Extract(ctx context.Context, imageData []byte, mimeType string) (*extraction.Result, error) {
	resp, err := e.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model: e.model,
		// A dense trade-counter invoice runs to ~60 lines; 2048 tokens leaves
		// headroom for verbose models.
		MaxTokens: 2048,
		Messages: []anthropic.Message{{
			Role: anthropic.RoleUser,
			Content: []anthropic.MessageContent{
				anthropic.NewImageMessageContent(anthropic.NewMessageContentSource(
					anthropic.MessagesContentSourceTypeBase64,
					normaliseMIME(mimeType),
					imageData,
				)),
				anthropic.NewTextMessageContent(extraction.Prompt),
			},
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call claude: %w", err)
	}

	var responseText string
	for _, block := range resp.Content {
		if block.Type == anthropic.MessagesContentTypeText {
			responseText = block.GetText()
			break
		}
	}

	return extraction.ParseResponse(responseText), nil
}

// normaliseMIME maps browser MIME types to the values the Anthropic API
// accepts. Unknown types are coerced to jpeg as the most universally
// supported lossy fallback; callers validate MIME types before this layer.
func normaliseMIME(mimeType string) string {
	switch mimeType {
	case "image/png", "image/gif", "image/webp":
		return mimeType
	default:
		return "image/jpeg"
	}
}
