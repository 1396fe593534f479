// Package openai classifies cloud photos with an OpenAI-compatible
// chat-completions endpoint.
package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/cloudtracker/internal/domain"
	"github.com/couchcryptid/cloudtracker/internal/observability"
)

const (
	DefaultBaseURL   = "https://api.openai.com/v1"
	DefaultModel     = "gpt-4o"
	DefaultMaxTokens = 300
)

// Client implements domain.Classifier.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	maxTokens  int
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another OpenAI-compatible endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithModel(m string) Option {
	return func(c *Client) { c.model = m }
}

func WithMaxTokens(n int) Option {
	return func(c *Client) { c.maxTokens = n }
}

// WithHTTPClient replaces the transport client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a classification client. Requests carry no timeout of
// their own; callers bound them through the context.
func NewClient(apiKey string, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		model:      DefaultModel,
		maxTokens:  DefaultMaxTokens,
		httpClient: &http.Client{},
		logger:     logger,
		metrics:    metrics,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Classify sends one chat-completions request with the photo attached and
// parses the model's answer. Transport, status and envelope failures are
// returned as *domain.ClassificationError; a malformed answer is not an error.
func (c *Client) Classify(ctx context.Context, image []byte) (domain.Classification, error) {
	if len(image) == 0 {
		return domain.Classification{}, fmt.Errorf("%w: empty image payload", domain.ErrImageProcessing)
	}

	payload, err := json.Marshal(c.buildRequest(image))
	if err != nil {
		return domain.Classification{}, fmt.Errorf("%w: marshal request: %w", domain.ErrImageProcessing, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return domain.Classification{}, c.fail(&domain.ClassificationError{Kind: domain.KindTransport, Err: err})
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.ClassifierDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return domain.Classification{}, c.fail(&domain.ClassificationError{Kind: domain.KindTransport, Err: err})
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.Classification{}, c.fail(&domain.ClassificationError{Kind: domain.KindTransport, Err: err})
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.Classification{}, c.fail(&domain.ClassificationError{
			Kind:       domain.KindAPI,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		})
	}

	var chat chatResponse
	if err := json.Unmarshal(body, &chat); err != nil {
		return domain.Classification{}, c.fail(&domain.ClassificationError{Kind: domain.KindNoContent, Err: err})
	}
	if len(chat.Choices) == 0 {
		return domain.Classification{}, c.fail(&domain.ClassificationError{Kind: domain.KindNoContent})
	}

	c.metrics.ClassifierRequests.WithLabelValues("success").Inc()
	result := domain.ParseClassification(chat.Choices[0].Message.Content)
	c.logger.Debug("photo classified", "cloud_type", result.CloudType, "model", c.model)
	return result, nil
}

func (c *Client) buildRequest(image []byte) chatRequest {
	return chatRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []chatMessage{
			{
				Role: "user",
				Content: []contentPart{
					{Type: "text", Text: domain.ClassificationPrompt},
					{
						Type:     "image_url",
						ImageURL: &imageURL{URL: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(image)},
					},
				},
			},
		},
	}
}

func (c *Client) fail(err *domain.ClassificationError) error {
	c.metrics.ClassifierRequests.WithLabelValues(string(err.Kind)).Inc()
	c.logger.Warn("classification request failed", "kind", string(err.Kind), "status", err.StatusCode, "error", err)
	return err
}
