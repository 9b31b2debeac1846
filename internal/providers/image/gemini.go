package image

import (
	"context"

	"server/internal/providers/genai"
)

// GenerateRequest describes a still-image generation call.
type GenerateRequest struct {
	Prompt    string
	RequestID string
}

// Asset is one generated image. Data holds the base64-encoded bytes as
// received from the provider; Format is the output MIME type.
type Asset struct {
	Data   string
	Format string
}

// Generator is the contract implemented by all image providers.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (*Asset, error)
}

type GeminiGenerator struct {
	client *genai.Client
}

func NewGeminiGenerator(client *genai.Client) *GeminiGenerator {
	return &GeminiGenerator{client: client}
}

func (g *GeminiGenerator) Generate(ctx context.Context, req GenerateRequest) (*Asset, error) {
	data, err := g.client.GenerateImage(ctx, genai.ImageRequest{
		Prompt:    req.Prompt,
		RequestID: req.RequestID,
	})
	if err != nil {
		return nil, err
	}
	return &Asset{Data: data, Format: "image/png"}, nil
}

var _ Generator = (*GeminiGenerator)(nil)
