package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"depradar/internal/config"
	"depradar/internal/ports"
)

const userPromptTemplate = `Assess the following article against the project context you were given.

Title: %s
Summary: %s

Full article text:
%s

Respond ONLY with a single JSON object containing exactly these fields:
"is_relevant" (boolean), "criticality_score" (integer from 1 to 5),
"justification" (string), "summary" (string).`

// ChatAnalyst implements the injected analysis capability against
// OpenAI-compatible chat-completion APIs. The system prompt is primed once
// with the project context; each item supplies the user message.
type ChatAnalyst struct {
	endpoint     string
	model        string
	apiKey       string
	systemPrompt string
	httpClient   *http.Client
}

var _ ports.Analyzer = (*ChatAnalyst)(nil)

// NewChatAnalyst builds a client from configuration and the serialized
// project context.
func NewChatAnalyst(cfg config.LLMConfig, projectContext string) *ChatAnalyst {
	return &ChatAnalyst{
		endpoint:     cfg.Endpoint,
		model:        cfg.Model,
		apiKey:       cfg.APIKey,
		systemPrompt: buildSystemPrompt(cfg.SystemPrompt, projectContext),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Analyze posts one item's fields and returns the raw assistant text. The
// caller owns parsing; this client stays format-agnostic.
func (c *ChatAnalyst) Analyze(ctx context.Context, fields ports.PromptFields) (string, error) {
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return "", fmt.Errorf("analyst client misconfigured")
	}

	userPrompt := fmt.Sprintf(userPromptTemplate, fields.Title, fields.Summary, fields.FullText)

	body, err := json.Marshal(map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": c.systemPrompt},
			{"role": "user", "content": userPrompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal analyst payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("analyst request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("analyst error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode analyst response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("analyst returned no choices")
	}

	return parsed.Choices[0].Message.Content, nil
}

func buildSystemPrompt(prompt, projectContext string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		prompt = "You are an expert assistant for a software tech lead. " +
			"Analyze technical articles and give a brutally honest, actionable assessment. " +
			"Respond ONLY with a single, valid JSON object as requested."
	}
	if projectContext == "" {
		return prompt
	}
	return prompt + "\n\nThis is the context for the project you are assisting:\n" + projectContext
}
