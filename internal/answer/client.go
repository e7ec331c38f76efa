package answer

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	apperrors "github.com/JiaLong0209/discord-ai-assistant-bot/pkg/errors"
	"github.com/JiaLong0209/discord-ai-assistant-bot/pkg/logger"
)

// MaxAnswerLen caps answer text relayed back to Discord.
const MaxAnswerLen = 1800

const grammarInstruction = "You are a helpful editor. Rewrite the user's text with correct grammar, " +
	"spelling, and natural phrasing. Preserve the original meaning and tone, and point out what was wrong. " +
	"The text may be Japanese, Chinese, English or a mix."

// Client wraps the OpenAI-compatible chat completions API used for answer
// generation, image description and grammar fixing. Failures are terminal:
// per the error policy there are no automatic retries.
type Client struct {
	client *openai.Client
	model  string
	mu     sync.RWMutex // protects model for concurrent access
	logger *zap.Logger
}

// NewClient creates an answer client against baseURL.
func NewClient(baseURL, apiKey, model string) *Client {
	// Proxies like LiteLLM accept any key; keep the SDK happy.
	if apiKey == "" {
		apiKey = "dummy-key"
	}

	config := openai.DefaultConfig(apiKey)
	config.BaseURL = strings.TrimRight(baseURL, "/") + "/v1"

	return &Client{
		client: openai.NewClientWithConfig(config),
		model:  model,
		logger: logger.Get(),
	}
}

// SetModel updates the model used by this client.
func (c *Client) SetModel(model string) {
	if model != "" {
		c.mu.Lock()
		c.model = model
		c.mu.Unlock()
		c.logger.Debug("Answer model updated", zap.String("model", model))
	}
}

// Model returns the current model.
func (c *Client) Model() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.model
}

// GenerateAnswer produces answer text for prompt under the given system
// prompt. Empty or malformed responses are reported as answer errors.
func (c *Client) GenerateAnswer(ctx context.Context, prompt, systemPrompt string) (string, error) {
	messages := []openai.ChatCompletionMessage{}
	if systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	return c.complete(ctx, messages)
}

// DescribeImage analyzes an image and returns a description. The caption, if
// any, is passed alongside the image.
func (c *Client) DescribeImage(ctx context.Context, image []byte, mimeType, caption string) (string, error) {
	if mimeType == "" {
		mimeType = "image/png"
	}
	text := "Describe this image in detail."
	if caption != "" {
		text += " " + caption
	}

	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(image))
	messages := []openai.ChatCompletionMessage{
		{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: text},
				{
					Type:     openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{URL: dataURL},
				},
			},
		},
	}

	return c.complete(ctx, messages)
}

// FixGrammar returns a grammar- and style-corrected version of text.
func (c *Client) FixGrammar(ctx context.Context, text string) (string, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: grammarInstruction},
		{Role: openai.ChatMessageRoleUser, Content: text},
	}

	return c.complete(ctx, messages)
}

func (c *Client) complete(ctx context.Context, messages []openai.ChatCompletionMessage) (string, error) {
	c.mu.RLock()
	model := c.model
	c.mu.RUnlock()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: 0.7,
	})
	if err != nil {
		c.logger.Error("LLM request failed",
			zap.String("model", model),
			zap.Error(err),
		)
		return "", apperrors.NewAnswerError("LLM request failed", err)
	}

	if len(resp.Choices) == 0 {
		return "", apperrors.NewAnswerError("no choices in LLM response", nil)
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", apperrors.NewAnswerError("empty LLM response", nil)
	}
	if runes := []rune(content); len(runes) > MaxAnswerLen {
		content = string(runes[:MaxAnswerLen])
	}

	c.logger.Debug("Answer generated",
		zap.String("model", model),
		zap.Int("answer_len", len(content)),
	)
	return content, nil
}
