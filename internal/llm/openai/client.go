package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/joseph-ayodele/snapcheck/internal/llm"
)

var _ llm.Transport = (*Client)(nil)

func (c *Client) Name() string { return "openai:" + c.cfg.Model }

// Complete implements llm.Transport using chat/completions in JSON mode.
// Images are sent inline as base64 data URLs.
func (c *Client) Complete(ctx context.Context, req llm.CompletionRequest) ([]byte, error) {
	var userContent any = req.User
	if req.Image != nil {
		ct := req.Image.ContentType
		if ct == "" {
			ct = "image/jpeg"
		}
		userContent = []map[string]any{
			{"type": "text", "text": req.User},
			{"type": "image_url", "image_url": map[string]any{
				"url":    "data:" + ct + ";base64," + base64.StdEncoding.EncodeToString(req.Image.Data),
				"detail": "high",
			}},
		}
	}

	messages := []map[string]any{
		{"role": "system", "content": req.System},
		{"role": "user", "content": userContent},
	}
	if req.Schema != nil {
		messages = append(messages, map[string]any{"role": "system", "content": llm.SchemaHint(req.Schema)})
	}

	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages":        messages,
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	raw, err := llm.PostJSON(ctx, c.http, endpoint, body, map[string]string{
		"Authorization": "Bearer " + c.cfg.APIKey,
	}, c.logger)
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
				Refusal string `json:"refusal"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return nil, fmt.Errorf("decode openai response: %w", err)
	}
	if len(cc.Choices) == 0 {
		return nil, fmt.Errorf("no choices in openai response")
	}
	msg := cc.Choices[0].Message
	if msg.Refusal != "" {
		return nil, &llm.Error{Op: req.Op, Message: "model refused: " + msg.Refusal}
	}
	return []byte(strings.TrimSpace(msg.Content)), nil
}
