package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"server/internal/middleware"
	"server/internal/providers/chat"
	"server/internal/providers/image"
	"server/internal/providers/video"
)

const internalErrorFallback = "An internal server error occurred."

// actionEnvelope is the JSON payload identifying which generation operation
// to perform.
type actionEnvelope struct {
	Action    string     `json:"action"`
	Prompt    string     `json:"prompt"`
	ImagePart *imagePart `json:"imagePart,omitempty"`
}

// imagePart mirrors the wire shape produced by the client for an inline
// image attachment.
type imagePart struct {
	InlineData struct {
		Data     string `json:"data"`
		MimeType string `json:"mimeType"`
	} `json:"inlineData"`
}

type chatResponse struct {
	Text string `json:"text"`
}

type imageResponse struct {
	ImageURL string `json:"imageUrl"`
}

// Generate is the single dispatch endpoint. It validates method and
// credential, decodes the action envelope and routes to the matching
// capability; each inbound request maps to exactly one provider call (or
// polling sequence for video). Any routed-operation failure is converted to
// a 500 carrying the failure's message.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.error(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if a.Config == nil || a.Config.GeminiAPIKey == "" {
		// LoadConfig already rejects a missing key at boot; this guard keeps
		// the contract observable for callers of a hand-built App.
		a.error(w, http.StatusInternalServerError, "API_KEY environment variable not set")
		return
	}

	var req actionEnvelope
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.fail(w, r, fmt.Errorf("invalid request body: %w", err))
		return
	}

	switch req.Action {
	case "chat":
		a.handleChat(w, r, req)
	case "image":
		a.handleImage(w, r, req)
	case "video":
		a.handleVideo(w, r, req)
	default:
		a.error(w, http.StatusBadRequest, "Invalid action")
	}
}

func (a *App) handleChat(w http.ResponseWriter, r *http.Request, req actionEnvelope) {
	chatReq := chat.GenerateRequest{
		Prompt:    req.Prompt,
		RequestID: middleware.RequestIDFromContext(r.Context()),
	}
	if req.ImagePart != nil {
		chatReq.Attachment = &chat.Attachment{
			MimeType: req.ImagePart.InlineData.MimeType,
			Data:     req.ImagePart.InlineData.Data,
		}
	}

	result, err := a.Chat.Generate(r.Context(), chatReq)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, chatResponse{Text: result.Text})
}

func (a *App) handleImage(w http.ResponseWriter, r *http.Request, req actionEnvelope) {
	asset, err := a.Image.Generate(r.Context(), image.GenerateRequest{
		Prompt:    req.Prompt,
		RequestID: middleware.RequestIDFromContext(r.Context()),
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, imageResponse{
		ImageURL: fmt.Sprintf("data:%s;base64,%s", asset.Format, asset.Data),
	})
}

func (a *App) handleVideo(w http.ResponseWriter, r *http.Request, req actionEnvelope) {
	asset, err := a.Video.Generate(r.Context(), video.GenerateRequest{
		Prompt:    req.Prompt,
		RequestID: middleware.RequestIDFromContext(r.Context()),
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	defer asset.Body.Close()

	w.Header().Set("Content-Type", asset.Format)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", asset.Filename))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, asset.Body); err != nil {
		// Headers are gone; the only recourse is the log.
		a.Logger.Warn().
			Err(err).
			Str("request_id", middleware.RequestIDFromContext(r.Context())).
			Msg("video stream relay interrupted")
	}
}

func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	msg := internalErrorFallback
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	a.Logger.Error().
		Err(err).
		Str("request_id", middleware.RequestIDFromContext(r.Context())).
		Msg("generation request failed")
	a.error(w, http.StatusInternalServerError, msg)
}
