// Package gemini is an llm.Transport backed by Google's Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/joseph-ayodele/snapcheck/internal/llm"
)

type Config struct {
	APIKey      string
	ModelName   string // default "gemini-2.0-flash"
	Temperature float32
	Timeout     time.Duration
}

// ErrEmptyResponse reports a reply with no usable text part.
var ErrEmptyResponse = errors.New("empty response from gemini")

type generateFunc func(ctx context.Context, model *genai.GenerativeModel, parts ...genai.Part) (*genai.GenerateContentResponse, error)

type Client struct {
	client   *genai.Client
	cfg      Config
	logger   *slog.Logger
	newModel func(name string) *genai.GenerativeModel
	generate generateFunc
}

var _ llm.Transport = (*Client)(nil)

func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if cfg.ModelName == "" {
		cfg.ModelName = "gemini-2.0-flash"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	logger.Info("gemini.client.init", "model", cfg.ModelName)
	return &Client{
		client:   client,
		cfg:      cfg,
		logger:   logger,
		newModel: client.GenerativeModel,
		generate: func(ctx context.Context, m *genai.GenerativeModel, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
			return m.GenerateContent(ctx, parts...)
		},
	}, nil
}

func (c *Client) Name() string { return "gemini:" + c.cfg.ModelName }

func (c *Client) Close() error {
	return c.client.Close()
}

// Complete implements llm.Transport. A model handle is built per call because
// the system instruction differs per operation.
func (c *Client) Complete(ctx context.Context, req llm.CompletionRequest) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	model := c.newModel(c.cfg.ModelName)
	sys := req.System
	if req.Schema != nil {
		sys += "\n\n" + llm.SchemaHint(req.Schema)
	}
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(sys)}}
	model.ResponseMIMEType = "application/json"
	model.GenerationConfig.Temperature = genai.Ptr(c.cfg.Temperature)

	start := time.Now()
	resp, err := c.generate(ctx, model, requestParts(req)...)
	if err != nil {
		return nil, fmt.Errorf("gemini API error: %w", err)
	}
	out, err := responseText(resp)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("gemini.complete.ok", "op", req.Op, "bytes", len(out), "elapsed_ms", time.Since(start).Milliseconds())
	return out, nil
}

func requestParts(req llm.CompletionRequest) []genai.Part {
	parts := []genai.Part{genai.Text(req.User)}
	if req.Image != nil {
		ct := req.Image.ContentType
		if ct == "" {
			ct = "image/jpeg"
		}
		parts = append(parts, genai.Blob{MIMEType: ct, Data: req.Image.Data})
	}
	return parts
}

// responseText joins the text parts of the first candidate and strips any
// markdown fence around them.
func responseText(resp *genai.GenerateContentResponse) ([]byte, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, ErrEmptyResponse
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return nil, fmt.Errorf("%w: no text parts", ErrEmptyResponse)
	}
	return llm.StripFences([]byte(b.String())), nil
}
