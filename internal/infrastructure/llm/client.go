// Package llm implements the model client backed by Ollama-compatible APIs:
// the raw generate endpoint for the cheap title triage and the chat
// completions endpoint for summarization and the final verdict.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/d1freeez14/neuro-tender/internal/config"
	"github.com/d1freeez14/neuro-tender/internal/domain"
	"github.com/d1freeez14/neuro-tender/internal/ports"
)

const titlePromptTemplate = `Ты - специалист по тендерам. Твоя задача - определить, может ли тендер быть связан с системами электронного документооборота (СЭД), электронными документами, цифровизацией документооборота или информационными системами для работы с документами.

Ответь строго одним словом: "возможно" или "нет".

Примеры:
Название: "Услуги по сопровождению системы электронного документооборота" - возможно
Название: "Поставка канцелярских товаров" - нет
Название: "Разработка информационной системы" - возможно
Название: "Ремонт кровли здания" - нет

Название тендера: "%s"
Ответ:`

const summaryPromptTemplate = `Ты - эксперт по аналитике текста. Составь краткое резюме технической спецификации тендера в 2-3 предложениях. Укажи, что именно закупается и какие ключевые требования предъявляются.

Текст:
%s`

const verdictPromptTemplate = `Ты - специалист по системам электронного документооборота (СЭД). На основе резюме технической спецификации определи, относится ли тендер к СЭД, электронным документам или цифровизации документооборота.

Ответь строго одним словом: "да" или "нет".

Резюме:
%s

Ответ:`

const translatePromptTemplate = `Переведи на русский язык данный текст, можешь сократить:
%s`

// Client implements ports.ModelClient against a local model server.
type Client struct {
	baseURL     string
	model       string
	temperature float64
	seed        int
	httpClient  *http.Client
}

var _ ports.ModelClient = (*Client)(nil)

// NewClient builds a client from configuration.
func NewClient(cfg config.ModelConfig) *Client {
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		model:       cfg.Name,
		temperature: cfg.Temperature,
		seed:        cfg.Seed,
		httpClient: &http.Client{
			Timeout: cfg.Timeout(),
		},
	}
}

// ClassifyTitle asks the model whether the announcement title can plausibly
// relate to document management. The deterministic seed keeps repeated runs
// stable. An unreachable model yields DecisionUnknown rather than an error
// so one outage does not discard the whole batch.
func (c *Client) ClassifyTitle(ctx context.Context, title string) (string, error) {
	prompt := fmt.Sprintf(titlePromptTemplate, title)

	body, err := json.Marshal(map[string]any{
		"model":       c.model,
		"prompt":      prompt,
		"temperature": c.temperature,
		"seed":        c.seed,
		"stream":      false,
	})
	if err != nil {
		return "", fmt.Errorf("marshal generate payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("generate request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("model error %s: %s", resp.Status, strings.TrimSpace(string(detail)))
	}

	var out struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode generate response: %w", err)
	}

	answer := strings.ToLower(strings.TrimSpace(out.Response))
	switch {
	case strings.Contains(answer, domain.DecisionPossible):
		return domain.DecisionPossible, nil
	case strings.Contains(answer, domain.DecisionNo):
		return domain.DecisionNo, nil
	default:
		return domain.DecisionUnknown, nil
	}
}

// Summarize produces a short summary of the technical specification text.
func (c *Client) Summarize(ctx context.Context, text string) (string, error) {
	return c.chat(ctx, fmt.Sprintf(summaryPromptTemplate, text), 0.7)
}

// ClassifyContent renders the final verdict from the accumulated summary.
// The answer is normalized to the да/нет vocabulary.
func (c *Client) ClassifyContent(ctx context.Context, summary string) (string, error) {
	answer, err := c.chat(ctx, fmt.Sprintf(verdictPromptTemplate, summary), c.temperature)
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(answer)), domain.DecisionYes) {
		return domain.DecisionYes, nil
	}
	return domain.DecisionNo, nil
}

// Translate renders the text into Russian, shortening it where possible.
func (c *Client) Translate(ctx context.Context, text string) (string, error) {
	return c.chat(ctx, fmt.Sprintf(translatePromptTemplate, text), 0.7)
}

func (c *Client) chat(ctx context.Context, prompt string, temperature float64) (string, error) {
	body, err := json.Marshal(map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"temperature": temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("model error %s: %s", resp.Status, strings.TrimSpace(string(detail)))
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("empty choices in chat response")
	}

	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}
