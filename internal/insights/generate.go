package insights

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/KaramelBytes/clusterloom-cli/internal/ai"
	"github.com/KaramelBytes/clusterloom-cli/internal/utils"
)

const systemPrompt = "You are a marketing analyst. You receive the summary of a customer " +
	"segmentation. Name each cluster, describe it in one or two sentences from its mean " +
	"values, and suggest one concrete marketing action per cluster. Mention noise points " +
	"and weak separation when present. Answer in Markdown."

// Options controls LLM commentary.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature float64
	// PromptTokenLimit caps the estimated size of the report sent.
	PromptTokenLimit int
	Logger           *slog.Logger
}

// ErrEmptyAnswer is returned when the runtime answers without text.
var ErrEmptyAnswer = errors.New("runtime returned an empty answer")

// Generate asks rt to comment on a Markdown report.
func Generate(ctx context.Context, rt ai.Runtime, report string, opt Options) (string, error) {
	if rt == nil {
		return "", errors.New("no runtime configured")
	}
	log := opt.Logger
	if log == nil {
		log = slog.Default()
	}
	body := report
	if opt.PromptTokenLimit > 0 && utils.CountTokens(body) > opt.PromptTokenLimit {
		body = utils.TruncateToTokenLimit(body, opt.PromptTokenLimit)
		log.Warn("report truncated for prompt", "limit", opt.PromptTokenLimit, "tokens", utils.CountTokens(report))
	}
	req := ai.GenerateRequest{
		Model: opt.Model,
		Messages: []ai.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: "Segmentation report:\n\n" + body},
		},
		MaxTokens:   opt.MaxTokens,
		Temperature: opt.Temperature,
	}
	log.Debug("requesting insights", "model", opt.Model, "prompt_tokens", utils.CountTokens(body))
	resp, err := rt.Generate(ctx, req)
	if err != nil {
		return "", fmt.Errorf("generate insights: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyAnswer
	}
	log.Debug("insights received", "request_id", resp.RequestID, "total_tokens", resp.Usage.TotalTokens)
	return text, nil
}
