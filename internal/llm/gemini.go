// Package llm adapts multimodal model backends to the chat service.
package llm

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/vistachat/vistachat/internal/model"
)

// ErrEmptyResponse is returned when the model produced no text.
var ErrEmptyResponse = errors.New("model returned empty text")

// GeminiConfig selects the backend and model.
type GeminiConfig struct {
	// APIKey selects the Gemini API backend.
	APIKey string
	// Project and Location select Vertex AI when APIKey is empty.
	Project     string
	Location    string
	Model       string
	Temperature float32
}

// GeminiClient calls Gemini through google.golang.org/genai.
type GeminiClient struct {
	client      *genai.Client
	model       string
	temperature float32
}

// NewGeminiClient creates a client for the Gemini API or Vertex AI.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.Model == "" {
		return nil, errors.New("model name is required")
	}

	cc := &genai.ClientConfig{}
	switch {
	case cfg.APIKey != "":
		cc.APIKey = cfg.APIKey
		cc.Backend = genai.BackendGeminiAPI
	case cfg.Project != "":
		cc.Project = cfg.Project
		cc.Location = cfg.Location
		cc.Backend = genai.BackendVertexAI
	default:
		return nil, errors.New("either an API key or a GCP project is required")
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	return &GeminiClient{
		client:      client,
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}, nil
}

// Name returns the model identifier.
func (g *GeminiClient) Name() string {
	return g.model
}

// Generate sends the prompt as a single user turn.
func (g *GeminiClient) Generate(ctx context.Context, prompt model.Prompt) (string, error) {
	temp := g.temperature
	cfg := &genai.GenerateContentConfig{Temperature: &temp}

	res, err := g.client.Models.GenerateContent(ctx, g.model, buildContents(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := res.Text()
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// buildContents puts the text part first and the inline image second.
func buildContents(prompt model.Prompt) []*genai.Content {
	parts := []*genai.Part{genai.NewPartFromText(prompt.Text)}
	if prompt.HasImage() {
		mimeType := prompt.MIMEType
		if mimeType == "" {
			mimeType = model.DefaultImageMIMEType
		}
		parts = append(parts, genai.NewPartFromBytes(prompt.Image, mimeType))
	}
	return []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
}
