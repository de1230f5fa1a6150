// Package llm generates first-person plant replies and translations through
// an OpenAI-compatible chat completion endpoint. Every entry point degrades
// gracefully: a missing key or failed call never blocks enrichment, the
// caller falls back to the deterministic local message instead.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"sync"

	"github.com/antonholmquist/jason"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/plantpal/plantpal-go/internal/errors"
	"github.com/plantpal/plantpal-go/internal/logging"
)

// Package-level logger specific to the llm service
var (
	logger          *slog.Logger
	serviceLevelVar = new(slog.LevelVar)
	closeLogger     func() error
)

func init() {
	var err error
	logFilePath := filepath.Join("logs", "llm.log")
	serviceLevelVar.Set(slog.LevelDebug)

	logger, closeLogger, err = logging.NewFileLogger(logFilePath, "llm", serviceLevelVar)
	if err != nil {
		log.Printf("FATAL: Failed to initialize llm file logger at %s: %v. Service logging disabled.", logFilePath, err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: serviceLevelVar})
		logger = slog.New(fbHandler).With("service", "llm")
		closeLogger = func() error { return nil }
	}
}

// ErrNotConfigured is returned when no API key is set. Callers treat it like
// any other generation failure and use the local fallback message.
var ErrNotConfigured = errors.Newf("llm: api key not configured").
	Component("llm").
	Category(errors.CategoryConfiguration).
	Build()

// Client talks to a chat completion endpoint.
type Client struct {
	config     Config
	httpClient *http.Client

	// Metrics
	metrics struct {
		completions  int64
		retries      int64
		failures     int64
		translations int64
		mu           sync.RWMutex
	}
}

// NewClient creates a completion client. A missing API key is tolerated;
// calls return ErrNotConfigured until one is supplied.
func NewClient(config Config) *Client {
	defaults := DefaultConfig()
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	if config.Model == "" {
		config.Model = defaults.Model
	}
	if config.Timeout == 0 {
		config.Timeout = defaults.Timeout
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = defaults.MaxTokens
	}
	if config.Temperature == 0 {
		config.Temperature = defaults.Temperature
	}
	if config.RetryTemperature == 0 {
		config.RetryTemperature = defaults.RetryTemperature
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

// chatRequest is the completion request body.
type chatRequest struct {
	Model            string    `json:"model"`
	Messages         []Message `json:"messages"`
	MaxTokens        int       `json:"max_tokens"`
	Temperature      float64   `json:"temperature"`
	TopP             float64   `json:"top_p"`
	FrequencyPenalty float64   `json:"frequency_penalty"`
	PresencePenalty  float64   `json:"presence_penalty"`
}

// Prompt generates a single reply for a prepared prompt, framing it with the
// per-language plant persona. A placeholder-like candidate is retried once at
// higher temperature; when the retry also fails the first candidate is kept.
func (c *Client) Prompt(ctx context.Context, prompt, lang string) (string, error) {
	messages := []Message{
		{Role: RoleSystem, Content: SystemPrompt(lang)},
		{Role: RoleUser, Content: prompt},
	}
	return c.generate(ctx, messages, []Message{{Role: RoleUser, Content: prompt}})
}

// Chat generates a reply for a full conversation transcript. The retry pass
// resends the same transcript.
func (c *Client) Chat(ctx context.Context, messages []Message) (string, error) {
	return c.generate(ctx, messages, messages)
}

func (c *Client) generate(ctx context.Context, messages, retryMessages []Message) (string, error) {
	if c.config.APIKey == "" {
		return "", ErrNotConfigured
	}

	candidate, err := c.complete(ctx, chatRequest{
		Model:            c.config.Model,
		Messages:         messages,
		MaxTokens:        c.config.MaxTokens,
		Temperature:      c.config.Temperature,
		TopP:             0.9,
		FrequencyPenalty: 0.2,
		PresencePenalty:  0.3,
	})
	if err != nil {
		c.incrementFailures()
		return "", err
	}
	c.incrementCompletions()

	if !needsRetry(candidate) {
		return candidate, nil
	}

	logger.Debug("placeholder-like reply, retrying at higher temperature",
		"candidate_prefix", truncate(candidate, 40))
	c.incrementRetries()

	retried, err := c.complete(ctx, chatRequest{
		Model:            c.config.Model,
		Messages:         retryMessages,
		MaxTokens:        c.config.MaxTokens + 10,
		Temperature:      c.config.RetryTemperature,
		TopP:             0.95,
		FrequencyPenalty: 0,
		PresencePenalty:  0.4,
	})
	if err != nil || retried == "" {
		// The first candidate is still usable.
		return candidate, nil
	}
	return retried, nil
}

// Translate renders text in the target language. Any failure, including an
// unparseable language tag, returns the input unchanged.
func (c *Client) Translate(ctx context.Context, text, targetLang string) string {
	if c.config.APIKey == "" || strings.TrimSpace(text) == "" {
		return text
	}

	tag, err := language.Parse(targetLang)
	if err != nil {
		logger.Warn("unknown translation target, returning original", "lang", targetLang)
		return text
	}

	systemPrompt := translateSystemPrompt
	userPrompt := fmt.Sprintf("Translate the following text to %s. Return ONLY the translated text, nothing else.\n\n%s",
		display.English.Languages().Name(tag), text)
	if tag.String() == "kn" {
		systemPrompt = translateKannadaSystemPrompt
		userPrompt = fmt.Sprintf("Translate to colloquial Kannada: %q", text)
	}

	translated, err := c.complete(ctx, chatRequest{
		Model: c.config.Model,
		Messages: []Message{
			{Role: RoleSystem, Content: systemPrompt},
			{Role: RoleUser, Content: userPrompt},
		},
		MaxTokens:   c.config.MaxTokens * 2,
		Temperature: 0.3,
		TopP:        0.9,
	})
	if err != nil || translated == "" {
		logger.Warn("translation failed, returning original", "lang", targetLang, "error", err)
		return text
	}

	c.metrics.mu.Lock()
	c.metrics.translations++
	c.metrics.mu.Unlock()
	return translated
}

// complete performs one chat completion round trip and extracts the first
// choice.
func (c *Client) complete(ctx context.Context, reqBody chatRequest) (string, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", errors.New(err).
			Component("llm").
			Category(errors.CategoryValidation).
			Build()
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	url := strings.TrimRight(c.config.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", errors.New(err).
			Component("llm").
			Category(errors.CategoryNetwork).
			Build()
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.New(err).
			Component("llm").
			Category(errors.CategoryNetwork).
			Context("operation", "chat_completion").
			Build()
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		logger.Error("completion endpoint returned non-OK status",
			"status_code", resp.StatusCode, "body", string(snippet))
		return "", errors.Newf("llm: completion request failed with status %d", resp.StatusCode).
			Component("llm").
			Category(errors.CategoryLLM).
			Context("status_code", resp.StatusCode).
			Build()
	}

	v, err := jason.NewObjectFromReader(resp.Body)
	if err != nil {
		return "", errors.New(err).
			Component("llm").
			Category(errors.CategoryFileParsing).
			Context("operation", "parse_completion").
			Build()
	}

	choices, err := v.GetObjectArray("choices")
	if err != nil || len(choices) == 0 {
		return "", errors.Newf("llm: completion response has no choices").
			Component("llm").
			Category(errors.CategoryLLM).
			Build()
	}

	content, err := choices[0].GetString("message", "content")
	if err != nil {
		return "", errors.New(err).
			Component("llm").
			Category(errors.CategoryFileParsing).
			Context("operation", "extract_content").
			Build()
	}

	return strings.TrimSpace(content), nil
}

// Metrics is a point-in-time counter snapshot.
type Metrics struct {
	Completions  int64
	Retries      int64
	Failures     int64
	Translations int64
}

// GetMetrics returns a snapshot of the client counters.
func (c *Client) GetMetrics() Metrics {
	c.metrics.mu.RLock()
	defer c.metrics.mu.RUnlock()
	return Metrics{
		Completions:  c.metrics.completions,
		Retries:      c.metrics.retries,
		Failures:     c.metrics.failures,
		Translations: c.metrics.translations,
	}
}

func (c *Client) incrementCompletions() {
	c.metrics.mu.Lock()
	c.metrics.completions++
	c.metrics.mu.Unlock()
}

func (c *Client) incrementRetries() {
	c.metrics.mu.Lock()
	c.metrics.retries++
	c.metrics.mu.Unlock()
}

func (c *Client) incrementFailures() {
	c.metrics.mu.Lock()
	c.metrics.failures++
	c.metrics.mu.Unlock()
}

// Close releases the client's file logger.
func (c *Client) Close() error {
	if closeLogger != nil {
		return closeLogger()
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
