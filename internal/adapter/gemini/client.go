// Package gemini backs disease learning and trending-alert enrichment with
// Google's Gemini models.
package gemini

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Generator returns the model's JSON answer to a prompt.
type Generator interface {
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}

// Client is a Generator for the Gemini API. Responses are requested as
// application/json.
type Client struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewClient creates a Gemini API client for the named model.
func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	m := client.GenerativeModel(model)
	m.ResponseMIMEType = "application/json"
	return &Client{client: client, model: m}, nil
}

func (c *Client) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no content generated")
	}

	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return "", fmt.Errorf("generated content is not text")
	}
	return string(text), nil
}

// Close closes the underlying Gemini client.
func (c *Client) Close() error {
	return c.client.Close()
}
