package claude

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/liushuangls/go-anthropic/v2"

	"github.com/vbonduro/plantpal/internal/vision"
)

// maxTokens is well above the single line the identify prompt asks for.
const maxTokens = 1024

type ClaudeIdentifier struct {
	client *anthropic.Client
	model  string
}

// NewClaudeIdentifier builds an identifier on the Anthropic Messages API.
// baseURL overrides the API endpoint when non-empty.
func NewClaudeIdentifier(apiKey, model, baseURL string) *ClaudeIdentifier {
	var opts []anthropic.ClientOption
	if baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(baseURL))
	}
	return &ClaudeIdentifier{
		client: anthropic.NewClient(apiKey, opts...),
		model:  model,
	}
}

func (c *ClaudeIdentifier) Identify(ctx context.Context, r io.Reader, mimeType string) (*vision.Identification, error) {
	imageData, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(c.model),
		MaxTokens: maxTokens,
		Messages: []anthropic.Message{{
			Role: anthropic.RoleUser,
			Content: []anthropic.MessageContent{
				anthropic.NewImageMessageContent(anthropic.NewMessageContentSource(
					anthropic.MessagesContentSourceTypeBase64,
					normaliseMIME(mimeType),
					base64.StdEncoding.EncodeToString(imageData),
				)),
				anthropic.NewTextMessageContent(vision.IdentifyPrompt),
			},
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call claude: %w", err)
	}

	var text string
	for _, blk := range resp.Content {
		if blk.Type == anthropic.MessagesContentTypeText {
			text = blk.GetText()
			break
		}
	}

	return vision.ParseResponse(text)
}

// normaliseMIME maps browser MIME types to the values the Anthropic API
// accepts. Unknown types are sent as jpeg.
func normaliseMIME(mimeType string) string {
	switch mimeType {
	case "image/png", "image/gif", "image/webp":
		return mimeType
	default:
		return "image/jpeg"
	}
}
