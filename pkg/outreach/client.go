// Package outreach generates first-contact copy for a harvested place
// through an OpenAI-compatible chat completions endpoint.
package outreach

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"placeharvest/pkg/config"
	errs "placeharvest/pkg/errors"
	"placeharvest/pkg/logger"
	"placeharvest/pkg/models"
	"placeharvest/pkg/retry"
)

const systemPrompt = `You write short, friendly first-contact messages from a small agency to a local business.
Reply with a JSON object with exactly these string keys: "whatsapp", "email_subject", "email_body".
The WhatsApp message is at most 400 characters. The email body is at most 120 words. No placeholders.`

// Client calls the chat completions API
type Client struct {
	http     *resty.Client
	cfg      config.OutreachConfig
	retryCfg *retry.Config
	logger   logger.Logger
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type generatedCopy struct {
	WhatsApp     string `json:"whatsapp"`
	EmailSubject string `json:"email_subject"`
	EmailBody    string `json:"email_body"`
}

// statusError is a non-2xx answer from the API
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("chat completions returned status %d: %s", e.code, e.body)
}

// NewClient creates a client for the configured endpoint
func NewClient(cfg config.OutreachConfig, rc config.RetryConfig, log logger.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("outreach API key is not set")
	}
	if log == nil {
		log = logger.GetLogger()
	}
	log = log.WithField("component", "outreach")

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	retryCfg := retry.FromConfig(rc, log)
	retryCfg.RetryIf = retryable

	return &Client{http: httpClient, cfg: cfg, retryCfg: retryCfg, logger: log}, nil
}

// Generate asks the model for outreach copy for record. Every failure is
// reported as a generation error so the caller can fall back.
func (c *Client) Generate(ctx context.Context, record models.Record) (models.Message, error) {
	req := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt(record, c.cfg.Services, c.cfg.SenderName)},
		},
		Temperature:    c.cfg.Temperature,
		ResponseFormat: map[string]string{"type": "json_object"},
	}

	start := time.Now()
	msg, err := retry.DoWithResult(ctx, func(ctx context.Context) (models.Message, error) {
		return c.complete(ctx, req)
	}, c.retryCfg)
	if err != nil {
		return models.Message{}, errs.Wrap(errs.ErrorTypeGeneration, "outreach generation failed for "+record.Title, err)
	}

	c.logger.DebugWithFields("Outreach generated", map[string]interface{}{
		"title":    record.Title,
		"duration": time.Since(start),
	})
	return msg, nil
}

func (c *Client) complete(ctx context.Context, req chatRequest) (models.Message, error) {
	var out chatResponse
	res, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		Post("/chat/completions")
	if err != nil {
		return models.Message{}, err
	}
	if res.IsError() {
		return models.Message{}, &statusError{code: res.StatusCode(), body: truncate(res.String(), 200)}
	}

	if len(out.Choices) == 0 {
		return models.Message{}, errors.New("response has no choices")
	}
	return parseCopy(out.Choices[0].Message.Content)
}

// parseCopy reads the JSON object out of a completion, tolerating a markdown code fence
func parseCopy(content string) (models.Message, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var gc generatedCopy
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &gc); err != nil {
		return models.Message{}, fmt.Errorf("%w: completion is not a JSON object", errNotRetryable)
	}
	if strings.TrimSpace(gc.WhatsApp) == "" && strings.TrimSpace(gc.EmailBody) == "" {
		return models.Message{}, fmt.Errorf("%w: completion has no message text", errNotRetryable)
	}

	return models.Message{
		WhatsApp:     strings.TrimSpace(gc.WhatsApp),
		EmailSubject: strings.TrimSpace(gc.EmailSubject),
		EmailBody:    strings.TrimSpace(gc.EmailBody),
	}, nil
}

var errNotRetryable = errors.New("unusable completion")

func retryable(err error) bool {
	if err == nil || errors.Is(err, errNotRetryable) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return retry.IsRetryableStatus(se.code)
	}
	// transport failure
	return true
}

func userPrompt(r models.Record, services []string, sender string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Business: %s\n", r.Title)
	if r.Category != "" {
		fmt.Fprintf(&b, "Category: %s\n", r.Category)
	}
	fmt.Fprintf(&b, "Industry: %s\n", r.Industry)
	if r.Rating != "" {
		fmt.Fprintf(&b, "Rating: %s (%d reviews, %s)\n", r.Rating, r.ReviewCount, r.Sentiment)
	}
	fmt.Fprintf(&b, "Has website: %t\n", r.HasWebsite)
	fmt.Fprintf(&b, "Has phone: %t\n", r.HasPhone)
	if len(services) > 0 {
		fmt.Fprintf(&b, "We offer: %s\n", strings.Join(services, ", "))
	}
	if sender != "" {
		fmt.Fprintf(&b, "Sign as: %s\n", sender)
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
