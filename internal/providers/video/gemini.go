package video

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"server/internal/providers/genai"
)

// ErrNoDownloadLink is returned when the provider reports a completed job
// whose payload carries no downloadable asset.
var ErrNoDownloadLink = errors.New("video generation completed, but no download link was found")

// GenerateRequest describes a video generation call. Exactly one video is
// requested per call.
type GenerateRequest struct {
	Prompt    string
	RequestID string
}

// Asset is a generated video ready to be relayed. Body streams the raw bytes
// from the provider download; the caller owns closing it.
type Asset struct {
	Body     io.ReadCloser
	Format   string
	Filename string
}

// Generator is the contract implemented by all video providers.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (*Asset, error)
}

// OperationsClient is the slice of the Gemini client the poll loop needs.
type OperationsClient interface {
	GenerateVideos(ctx context.Context, prompt string) (*genai.Operation, error)
	GetVideosOperation(ctx context.Context, name string) (*genai.Operation, error)
	DownloadVideo(ctx context.Context, uri string) (io.ReadCloser, error)
}

// Options tunes the poll loop. Interval is the fixed wait between status
// fetches; Timeout bounds the whole polling phase, with zero meaning no
// ceiling.
type Options struct {
	Interval time.Duration
	Timeout  time.Duration
	Logger   zerolog.Logger
}

// GeminiGenerator drives a long-running Veo job through an explicit state
// machine: submitted, polling, completed, fetching. Streaming the fetched
// body to the end caller is the handler's concern.
type GeminiGenerator struct {
	ops      OperationsClient
	interval time.Duration
	timeout  time.Duration
	logger   zerolog.Logger
}

type pollState int

const (
	stateSubmitted pollState = iota
	statePolling
	stateCompleted
	stateFetching
)

func NewGeminiGenerator(ops OperationsClient, opts Options) *GeminiGenerator {
	interval := opts.Interval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &GeminiGenerator{
		ops:      ops,
		interval: interval,
		timeout:  opts.Timeout,
		logger:   opts.Logger,
	}
}

func (g *GeminiGenerator) Generate(ctx context.Context, req GenerateRequest) (*Asset, error) {
	var (
		op       *genai.Operation
		uri      string
		deadline time.Time
	)
	if g.timeout > 0 {
		deadline = time.Now().Add(g.timeout)
	}

	state := stateSubmitted
	for {
		switch state {
		case stateSubmitted:
			submitted, err := g.ops.GenerateVideos(ctx, req.Prompt)
			if err != nil {
				return nil, err
			}
			op = submitted
			g.logger.Debug().
				Str("request_id", req.RequestID).
				Str("operation", op.Name).
				Msg("video: job submitted")
			state = statePolling

		case statePolling:
			if op.Done {
				state = stateCompleted
				continue
			}
			if !deadline.IsZero() && time.Now().After(deadline) {
				return nil, fmt.Errorf("video generation did not complete within %s", g.timeout)
			}
			select {
			case <-time.After(g.interval):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			refreshed, err := g.ops.GetVideosOperation(ctx, op.Name)
			if err != nil {
				return nil, err
			}
			op = refreshed

		case stateCompleted:
			if op.Error != nil && op.Error.Message != "" {
				return nil, fmt.Errorf("video generation failed: %s", op.Error.Message)
			}
			uri = op.DownloadURI()
			if uri == "" {
				return nil, ErrNoDownloadLink
			}
			state = stateFetching

		case stateFetching:
			body, err := g.ops.DownloadVideo(ctx, uri)
			if err != nil {
				return nil, err
			}
			g.logger.Debug().
				Str("request_id", req.RequestID).
				Str("operation", op.Name).
				Msg("video: streaming result")
			return &Asset{
				Body:     body,
				Format:   "video/mp4",
				Filename: "generated-video.mp4",
			}, nil
		}
	}
}

var _ Generator = (*GeminiGenerator)(nil)
