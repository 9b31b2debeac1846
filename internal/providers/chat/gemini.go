package chat

import (
	"context"

	"server/internal/providers/genai"
)

// Attachment is an inline image accompanying a chat prompt. Data is base64.
type Attachment struct {
	MimeType string
	Data     string
}

// GenerateRequest is a single independent chat turn; no history is carried
// between calls.
type GenerateRequest struct {
	Prompt     string
	Attachment *Attachment
	RequestID  string
}

// Result is the assistant's reply for one turn.
type Result struct {
	Text string
}

// Generator is the contract implemented by all chat providers.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (*Result, error)
}

type GeminiGenerator struct {
	client *genai.Client
}

func NewGeminiGenerator(client *genai.Client) *GeminiGenerator {
	return &GeminiGenerator{client: client}
}

func (g *GeminiGenerator) Generate(ctx context.Context, req GenerateRequest) (*Result, error) {
	textReq := genai.TextRequest{
		Prompt:    req.Prompt,
		RequestID: req.RequestID,
	}
	if req.Attachment != nil {
		textReq.Inline = &genai.InlineData{
			MimeType: req.Attachment.MimeType,
			Data:     req.Attachment.Data,
		}
	}

	text, err := g.client.GenerateText(ctx, textReq)
	if err != nil {
		return nil, err
	}
	return &Result{Text: text}, nil
}

var _ Generator = (*GeminiGenerator)(nil)
