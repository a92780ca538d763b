// Package ai wraps the external text-generation collaborator. Its output is
// never trusted directly: drafted questions pass through the same validation
// gate as human-authored batches before anything reaches the caller.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/sciencelab/sciencelab-lms/internal/apperr"
	"github.com/sciencelab/sciencelab-lms/internal/experiment"
	"github.com/sciencelab/sciencelab-lms/internal/quiz"
)

type Client struct {
	api     *openai.Client
	model   string
	timeout time.Duration
	httpc   *http.Client // transcript fetches
	log     *slog.Logger
}

// New builds a client for an OpenAI-compatible API. With an empty apiKey the
// client is unconfigured: Chat and DraftQuestions fail with a configuration
// error and explanation generation falls back to placeholder text.
func New(apiKey, baseURL, model string, timeout time.Duration, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Client{model: model, timeout: timeout, log: log,
		httpc: &http.Client{Timeout: timeout}}
	if apiKey != "" {
		cfg := openai.DefaultConfig(apiKey)
		if baseURL != "" {
			cfg.BaseURL = baseURL
		}
		c.api = openai.NewClientWithConfig(cfg)
	}
	return c
}

func (c *Client) Configured() bool { return c.api != nil }

func (c *Client) complete(ctx context.Context, system, user string, temperature float32, maxTokens int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("model returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Chat answers a student question in the context of one experiment.
func (c *Client) Chat(ctx context.Context, exp experiment.Experiment, message string) (string, error) {
	if !c.Configured() {
		return "", apperr.New(apperr.KindConfiguration, "AI service not configured")
	}
	out, err := c.complete(ctx, tutorSystemPrompt(exp), message, 0.7, 300)
	if err != nil {
		c.log.Error("tutor chat failed", "experiment_id", exp.ID, "err", err)
		return "", apperr.Wrap(apperr.KindUpstream, "Error processing chat message", err)
	}
	return out, nil
}

// DraftQuestions asks the collaborator for n four-option questions about the
// experiment, parses the reply as a JSON array and re-validates it with the
// batch rules. Nothing is persisted here.
func (c *Client) DraftQuestions(ctx context.Context, exp experiment.Experiment, n int) ([]quiz.QuestionDraft, error) {
	if n < 1 || n > 20 {
		return nil, apperr.New(apperr.KindValidation, "num_questions must be between 1 and 20")
	}
	if !c.Configured() {
		return nil, apperr.New(apperr.KindConfiguration, "AI service not configured")
	}

	raw, err := c.complete(ctx, draftSystemPrompt, draftUserPrompt(exp, n), 0.7, 2000)
	if err != nil {
		c.log.Error("question drafting failed", "experiment_id", exp.ID, "err", err)
		return nil, apperr.Wrap(apperr.KindUpstream, "Error generating questions", err)
	}

	drafts, err := parseDraftArray(raw)
	if err != nil {
		c.log.Error("unparseable question draft", "err", err, "preview", preview(raw, 200))
		return nil, apperr.Wrap(apperr.KindUpstream, "Failed to parse AI response", err)
	}
	if len(drafts) == 0 {
		return nil, apperr.New(apperr.KindUpstream, "Invalid AI response format: expected a non-empty JSON array")
	}

	if invalid := quiz.ValidateBatch(drafts, quiz.GeneratedOptions); len(invalid) > 0 {
		return nil, apperr.Batch("One or more generated questions are invalid", invalid)
	}
	return drafts, nil
}

// parseDraftArray extracts the first bracketed array substring before
// decoding, since models routinely wrap JSON in prose or code fences.
func parseDraftArray(raw string) ([]quiz.QuestionDraft, error) {
	text := strings.TrimSpace(raw)
	if start, end := strings.Index(text, "["), strings.LastIndex(text, "]"); start != -1 && end > start {
		text = text[start : end+1]
	}
	var drafts []quiz.QuestionDraft
	if err := json.Unmarshal([]byte(text), &drafts); err != nil {
		return nil, err
	}
	return drafts, nil
}

func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
