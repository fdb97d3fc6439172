package docqa

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
)

const answerSystemPrompt = `You are reading a scanned invoice page. Answer the question using only text visible on the page. Return a valid JSON object: {"answer": "<value or empty string>", "confidence": <0.0-1.0>}. The answer must be the exact characters from the document with no added punctuation.`

// anthropicClient answers page questions with a Claude vision model. It is
// the hosted alternative to the self-managed model server.
type anthropicClient struct {
	client sdk.Client
	model  string
}

// NewAnthropic creates a document-QA client backed by the Anthropic API.
func NewAnthropic(apiKey, model string) Client {
	return &anthropicClient{
		client: sdk.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

func (c *anthropicClient) Answer(ctx context.Context, imagePath, prompt string) (*Answer, error) {
	image, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, eris.Wrapf(err, "docqa: read image %s", imagePath)
	}

	msg, err := c.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: 256,
		System: []sdk.TextBlockParam{
			{Text: answerSystemPrompt},
		},
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(
				sdk.NewImageBlockBase64(mediaTypeFor(imagePath), base64.StdEncoding.EncodeToString(image)),
				sdk.NewTextBlock(prompt),
			),
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "docqa: anthropic message")
	}

	var text string
	for _, block := range msg.Content {
		if block.Text != "" {
			text = block.Text
			break
		}
	}
	return parseAnswer(text)
}

// parseAnswer decodes the model's JSON answer, tolerating surrounding prose
// and markdown fences.
func parseAnswer(text string) (*Answer, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, eris.Errorf("docqa: no JSON object in model reply: %q", text)
	}

	var parsed struct {
		Answer     string  `json:"answer"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &parsed); err != nil {
		return nil, eris.Wrap(err, "docqa: parse model reply")
	}
	return &Answer{Text: parsed.Answer, Confidence: parsed.Confidence}, nil
}

func mediaTypeFor(imagePath string) string {
	switch strings.ToLower(filepath.Ext(imagePath)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/png"
	}
}
