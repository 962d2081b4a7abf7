package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// DefaultAnthropicModel is used when a request names no model.
const DefaultAnthropicModel = "claude-haiku-4-5-20251001"

// AnthropicClient adapts the Anthropic Messages API to Runtime.
type AnthropicClient struct {
	client *anthropic.Client
	apiKey string
}

// NewAnthropicClient builds a client. Retries are delegated to the SDK.
func NewAnthropicClient(apiKey, baseURL string, httpTimeout time.Duration, retryMax int) *AnthropicClient {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if httpTimeout > 0 {
		opts = append(opts, option.WithRequestTimeout(httpTimeout))
	}
	if retryMax > 0 {
		opts = append(opts, option.WithMaxRetries(retryMax-1))
	}
	client := anthropic.NewClient(opts...)
	return &AnthropicClient{client: &client, apiKey: apiKey}
}

func (c *AnthropicClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if c.apiKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY is missing")
	}
	if req.Model == "" {
		req.Model = DefaultAnthropicModel
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: int64(req.MaxTokens),
	}
	if params.MaxTokens <= 0 {
		params.MaxTokens = 1024
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			params.System = append(params.System, anthropic.TextBlockParam{Text: m.Content})
		case "assistant":
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	if len(params.Messages) == 0 {
		return nil, errors.New("messages cannot be empty")
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, classifyAnthropicError(err)
	}
	var text string
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			text += tb.Text
		}
	}
	in, out := int(msg.Usage.InputTokens), int(msg.Usage.OutputTokens)
	return &GenerateResponse{
		ID:        msg.ID,
		Choices:   []Choice{{Message: Message{Role: "assistant", Content: text}}},
		Usage:     Usage{PromptTokens: in, CompletionTokens: out, TotalTokens: in + out},
		RequestID: msg.ID,
	}, nil
}

// classifyAnthropicError maps SDK errors onto the package's typed errors.
func classifyAnthropicError(err error) error {
	var sdkErr *anthropic.Error
	if !errors.As(err, &sdkErr) {
		return fmt.Errorf("anthropic generate: %w", err)
	}
	apiErr := &APIError{StatusCode: sdkErr.StatusCode, Message: sdkErr.Error()}
	if sdkErr.Response != nil {
		apiErr.RequestID = sdkErr.Response.Header.Get("Request-Id")
	}
	resp := sdkErr.Response
	if resp == nil {
		resp = &http.Response{Header: http.Header{}}
	}
	return classifyAPIError(apiErr, resp)
}
