package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"server/internal/infra"
)

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	ChatModel  string
	ImageModel string
	VideoModel string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client is a thin facade over the Gemini REST API covering the three
// capabilities this service proxies: synchronous text/vision generation,
// synchronous image generation, and long-running video generation with a
// separately fetchable result asset.
type Client struct {
	apiKey     string
	baseURL    string
	chatModel  string
	imageModel string
	videoModel string
	httpClient *http.Client
	logger     *infra.Logger
}

// InlineData carries a base64-encoded attachment exactly as it appears on
// the wire in a generateContent part.
type InlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

// TextRequest describes a single independent chat turn.
type TextRequest struct {
	Prompt    string
	Inline    *InlineData
	RequestID string
}

// ImageRequest describes a still-image generation call. The generation
// configuration is fixed: one image, PNG, square aspect ratio.
type ImageRequest struct {
	Prompt    string
	RequestID string
}

// Operation is the provider-side handle for an in-progress video job.
type Operation struct {
	Name     string             `json:"name"`
	Done     bool               `json:"done"`
	Response *OperationResponse `json:"response,omitempty"`
	Error    *OperationError    `json:"error,omitempty"`
}

// OperationResponse is the completed operation's payload.
type OperationResponse struct {
	GeneratedVideos []GeneratedVideo `json:"generatedVideos,omitempty"`
}

// GeneratedVideo wraps a single result video reference.
type GeneratedVideo struct {
	Video *VideoFile `json:"video,omitempty"`
}

// VideoFile points at the downloadable asset.
type VideoFile struct {
	URI      string `json:"uri,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
}

// OperationError carries a provider-reported job failure.
type OperationError struct {
	Code    int    `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// DownloadURI returns the first generated video's download link, or "".
func (o *Operation) DownloadURI() string {
	if o == nil || o.Response == nil {
		return ""
	}
	for _, v := range o.Response.GeneratedVideos {
		if v.Video != nil && v.Video.URI != "" {
			return v.Video.URI
		}
	}
	return ""
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts,omitempty"`
}

type geminiPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inlineData,omitempty"`
}

type generateContentRequest struct {
	Contents []geminiContent `json:"contents"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

type predictInstance struct {
	Prompt string `json:"prompt"`
}

type imagenParameters struct {
	SampleCount    int    `json:"sampleCount"`
	AspectRatio    string `json:"aspectRatio"`
	OutputMimeType string `json:"outputMimeType"`
}

type imagenPredictRequest struct {
	Instances  []predictInstance `json:"instances"`
	Parameters imagenParameters  `json:"parameters"`
}

type imagenPredictResponse struct {
	Predictions []struct {
		BytesBase64Encoded string `json:"bytesBase64Encoded"`
		MimeType           string `json:"mimeType,omitempty"`
	} `json:"predictions"`
}

type veoParameters struct {
	SampleCount int `json:"sampleCount"`
}

type veoPredictRequest struct {
	Instances  []predictInstance `json:"instances"`
	Parameters veoParameters     `json:"parameters"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"error"`
}

// NewClient constructs a Gemini client with sane defaults. Callers may provide
// a nil HTTP client; a reusable one with a generous timeout will be created.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}

	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}

	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		chatModel:  defaultString(opts.ChatModel, "gemini-2.5-flash"),
		imageModel: defaultString(opts.ImageModel, "imagen-4.0-generate-001"),
		videoModel: defaultString(opts.VideoModel, "veo-2.0-generate-001"),
		httpClient: client,
		logger:     logger,
	}, nil
}

// GenerateText performs one text/vision turn. When an inline attachment is
// present the request combines the text prompt and the image in a single
// multi-part content payload; otherwise the prompt goes out as plain text.
func (c *Client) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	parts := []geminiPart{{Text: req.Prompt}}
	if req.Inline != nil {
		parts = append(parts, geminiPart{InlineData: req.Inline})
	}
	payload := generateContentRequest{
		Contents: []geminiContent{{Role: "user", Parts: parts}},
	}

	var response generateContentResponse
	path := fmt.Sprintf("/models/%s:generateContent", url.PathEscape(c.chatModel))
	if err := c.invoke(ctx, http.MethodPost, path, payload, &response); err != nil {
		return "", err
	}

	var b strings.Builder
	for _, candidate := range response.Candidates {
		for _, part := range candidate.Content.Parts {
			b.WriteString(part.Text)
		}
		break
	}

	c.logger.Debug().
		Str("request_id", req.RequestID).
		Str("model", c.chatModel).
		Int("chars", b.Len()).
		Msg("genai: generated text")

	return b.String(), nil
}

// GenerateImage generates exactly one square PNG and returns its
// base64-encoded bytes as received from the provider.
func (c *Client) GenerateImage(ctx context.Context, req ImageRequest) (string, error) {
	payload := imagenPredictRequest{
		Instances: []predictInstance{{Prompt: req.Prompt}},
		Parameters: imagenParameters{
			SampleCount:    1,
			AspectRatio:    "1:1",
			OutputMimeType: "image/png",
		},
	}

	var response imagenPredictResponse
	path := fmt.Sprintf("/models/%s:predict", url.PathEscape(c.imageModel))
	if err := c.invoke(ctx, http.MethodPost, path, payload, &response); err != nil {
		return "", err
	}
	if len(response.Predictions) == 0 || response.Predictions[0].BytesBase64Encoded == "" {
		return "", fmt.Errorf("no image was generated")
	}

	c.logger.Debug().
		Str("request_id", req.RequestID).
		Str("model", c.imageModel).
		Msg("genai: generated image")

	return response.Predictions[0].BytesBase64Encoded, nil
}

// GenerateVideos submits a video job and returns its operation handle. The
// handle may already report done=true for fast jobs.
func (c *Client) GenerateVideos(ctx context.Context, prompt string) (*Operation, error) {
	payload := veoPredictRequest{
		Instances:  []predictInstance{{Prompt: prompt}},
		Parameters: veoParameters{SampleCount: 1},
	}

	op := &Operation{}
	path := fmt.Sprintf("/models/%s:predictLongRunning", url.PathEscape(c.videoModel))
	if err := c.invoke(ctx, http.MethodPost, path, payload, op); err != nil {
		return nil, err
	}
	return op, nil
}

// GetVideosOperation re-fetches the state of a previously submitted video job.
func (c *Client) GetVideosOperation(ctx context.Context, name string) (*Operation, error) {
	op := &Operation{}
	if err := c.invoke(ctx, http.MethodGet, "/"+strings.TrimLeft(name, "/"), nil, op); err != nil {
		return nil, err
	}
	return op, nil
}

// DownloadVideo fetches the result asset with the server credential appended
// as a query parameter and hands the raw body back to the caller, who owns
// closing it. The body is never buffered here so arbitrarily large videos can
// be relayed with bounded memory.
func (c *Client) DownloadVideo(ctx context.Context, uri string) (io.ReadCloser, error) {
	target := uri
	if !strings.HasPrefix(uri, "http://") && !strings.HasPrefix(uri, "https://") {
		target = c.baseURL + "/" + strings.TrimLeft(uri, "/")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create download request: %w", err)
	}
	q := req.URL.Query()
	q.Set("key", c.apiKey)
	req.URL.RawQuery = q.Encode()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download video: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		resp.Body.Close()
		return nil, fmt.Errorf("failed to download video: %s", resp.Status)
	}
	return resp.Body, nil
}

func (c *Client) invoke(ctx context.Context, method, path string, payload, out any) error {
	endpoint := c.baseURL + path

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	q := req.URL.Query()
	q.Set("key", c.apiKey)
	req.URL.RawQuery = q.Encode()
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("invoke gemini: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr geminiErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("gemini status %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		data, _ := io.ReadAll(resp.Body)
		if len(data) > 0 {
			return fmt.Errorf("gemini status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
		}
		return fmt.Errorf("gemini status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gemini response: %w", err)
	}
	return nil
}

func defaultString(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
