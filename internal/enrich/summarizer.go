package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrAccessDenied — сервис суммаризации отказал в доступе. Требует
	// действий оператора и не должен замалчиваться.
	ErrAccessDenied = errors.New("summarization access denied")

	// ErrMalformedSummary — в ответе суммаризатора нет ожидаемых секций.
	ErrMalformedSummary = errors.New("malformed summarizer response")
)

const (
	defaultBaseURL   = "https://api.anthropic.com/v1/messages"
	apiVersion       = "2023-06-01"
	defaultMaxTokens = 4096

	thinkingOpen  = "<thinking>"
	thinkingClose = "</thinking>"
	summaryOpen   = "<summary>"
	summaryClose  = "</summary>"
)

// Summary — результат суммаризации: короткое резюме и развёрнутый разбор
// в виде маркированных пунктов.
type Summary struct {
	Text   string
	Detail string
}

// Client вызывает LLM-сервис суммаризации по протоколу messages API и
// извлекает из ответа секции разбора и резюме по известным разделителям.
type Client struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// NewClient создаёт клиент суммаризации. Пустой baseURL заменяется
// адресом по умолчанию.
func NewClient(apiKey, baseURL, model string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

type apiRequest struct {
	Model     string       `json:"model"`
	MaxTokens int          `json:"max_tokens"`
	System    string       `json:"system,omitempty"`
	Messages  []apiMessage `json:"messages"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Summarize запрашивает разбор и резюме для content на языке language от
// лица persona. Резюме обязано содержать не менее трёх предложений с
// конкретными сценариями применения — это требование зашито в промпт.
func (c *Client) Summarize(ctx context.Context, content, language, persona string) (Summary, error) {
	if c.apiKey == "" {
		return Summary{}, fmt.Errorf("%w: api key is not set", ErrAccessDenied)
	}

	req := apiRequest{
		Model:     c.model,
		MaxTokens: defaultMaxTokens,
		System:    fmt.Sprintf("<persona> %s </persona>", persona),
		Messages: []apiMessage{
			{Role: "user", Content: buildPrompt(content, language)},
		},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return Summary{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return Summary{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return Summary{}, fmt.Errorf("summarizer request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Summary{}, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized:
		return Summary{}, fmt.Errorf("%w: status %d", ErrAccessDenied, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return Summary{}, fmt.Errorf("summarizer status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed apiResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return Summary{}, fmt.Errorf("decode response: %w", err)
	}

	var text strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	detail, ok := extractSection(text.String(), thinkingOpen, thinkingClose)
	if !ok {
		return Summary{}, fmt.Errorf("%w: missing %s section", ErrMalformedSummary, thinkingOpen)
	}
	summary, ok := extractSection(text.String(), summaryOpen, summaryClose)
	if !ok {
		return Summary{}, fmt.Errorf("%w: missing %s section", ErrMalformedSummary, summaryOpen)
	}

	return Summary{
		Text:   strings.TrimSpace(summary),
		Detail: strings.TrimSpace(detail),
	}, nil
}

func buildPrompt(content, language string) string {
	return fmt.Sprintf(`<input>%s</input>
<instruction>Describe the update in <input></input> tags in bullet points covering "What is described" and "Who is this update good for" so that a new engineer can follow.
The description shall be output in <thinking></thinking> tags and each sentence must start with the bullet point "- ".
Make the final summary as per <summaryRule></summaryRule> tags.
Try to shorten output for easy reading.
You are not allowed to use any information except in the input.
Output format shall be in accordance with <outputFormat></outputFormat> tags.</instruction>
<outputLanguage>%s</outputLanguage>
<summaryRule>The final summary must consist of at least three sentences, including specific use cases in which it is useful.</summaryRule>
<outputFormat><thinking>(bullet points of the input)</thinking><summary>(final summary)</summary></outputFormat>
Follow the instruction.`, content, language)
}

func extractSection(s, open, close string) (string, bool) {
	start := strings.Index(s, open)
	if start < 0 {
		return "", false
	}
	rest := s[start+len(open):]
	end := strings.Index(rest, close)
	if end < 0 {
		return "", false
	}
	return rest[:end], true
}
