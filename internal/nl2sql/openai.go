package nl2sql

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const systemMessage = "You are an AI assistant."

type OpenAIConfig struct {
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// OpenAITranslator speaks the OpenAI chat-completions wire format. The
// completion is capped short (a SQL statement, not prose) and sampled
// at the configured temperature, zero by default.
type OpenAITranslator struct {
	baseURL     string
	model       string
	maxTokens   int
	temperature float64
	client      *http.Client
}

func NewOpenAITranslator(cfg OpenAIConfig) (*OpenAITranslator, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gpt-3.5-turbo"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 150
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OpenAITranslator{
		baseURL:     strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		model:       model,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
		client:      &http.Client{Timeout: timeout},
	}, nil
}

func (t *OpenAITranslator) Translate(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.APIKey) == "" {
		return Result{}, fmt.Errorf("api key is required")
	}

	payload := map[string]any{
		"model": t.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemMessage},
			{"role": "user", "content": BuildPrompt(req.Request, req.Schema)},
		},
		"max_tokens":  t.maxTokens,
		"temperature": t.temperature,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("marshal chat payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+strings.TrimSpace(req.APIKey))

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("request chat completion: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	rawRespBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("read chat response body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return Result{}, fmt.Errorf("chat completion failed status=%d body=%s", resp.StatusCode, string(rawRespBody))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(rawRespBody, &parsed); err != nil {
		return Result{}, fmt.Errorf("decode chat completion response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return Result{}, fmt.Errorf("empty chat completion choices")
	}

	sql := stripMarkdownSQL(parsed.Choices[0].Message.Content)
	if strings.TrimSpace(sql) == "" {
		return Result{}, fmt.Errorf("model returned empty SQL")
	}
	return Result{SQL: sql, Model: t.model}, nil
}

func stripMarkdownSQL(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```sql")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(trimmed, "```")
		return strings.TrimSpace(trimmed)
	}
	return trimmed
}
