package genai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(Options{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)
	return client
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient(Options{})
	require.Error(t, err)
}

func TestGenerateTextPlainPrompt(t *testing.T) {
	var captured generateContentRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/models/gemini-2.5-flash:generateContent", r.URL.Path)
		require.Equal(t, "test-key", r.URL.Query().Get("key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": "hi there"}}}},
			},
		})
	})

	text, err := client.GenerateText(context.Background(), TextRequest{Prompt: "hello"})
	require.NoError(t, err)
	require.Equal(t, "hi there", text)

	require.Len(t, captured.Contents, 1)
	require.Len(t, captured.Contents[0].Parts, 1)
	require.Equal(t, "hello", captured.Contents[0].Parts[0].Text)
	require.Nil(t, captured.Contents[0].Parts[0].InlineData)
}

func TestGenerateTextWithAttachment(t *testing.T) {
	var captured generateContentRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": "a cat"}}}},
			},
		})
	})

	text, err := client.GenerateText(context.Background(), TextRequest{
		Prompt: "what is this?",
		Inline: &InlineData{MimeType: "image/jpeg", Data: "aGk="},
	})
	require.NoError(t, err)
	require.Equal(t, "a cat", text)

	require.Len(t, captured.Contents, 1)
	parts := captured.Contents[0].Parts
	require.Len(t, parts, 2, "prompt and image must travel as one multi-part payload")
	require.Equal(t, "what is this?", parts[0].Text)
	require.NotNil(t, parts[1].InlineData)
	require.Equal(t, "image/jpeg", parts[1].InlineData.MimeType)
	require.Equal(t, "aGk=", parts[1].InlineData.Data)
}

func TestGenerateImageFixedConfig(t *testing.T) {
	var captured imagenPredictRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/models/imagen-4.0-generate-001:predict", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		json.NewEncoder(w).Encode(map[string]any{
			"predictions": []map[string]any{{"bytesBase64Encoded": "ABC=", "mimeType": "image/png"}},
		})
	})

	data, err := client.GenerateImage(context.Background(), ImageRequest{Prompt: "a red balloon"})
	require.NoError(t, err)
	require.Equal(t, "ABC=", data)

	require.Len(t, captured.Instances, 1)
	require.Equal(t, "a red balloon", captured.Instances[0].Prompt)
	require.Equal(t, 1, captured.Parameters.SampleCount)
	require.Equal(t, "1:1", captured.Parameters.AspectRatio)
	require.Equal(t, "image/png", captured.Parameters.OutputMimeType)
}

func TestGenerateImageNoPredictions(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"predictions": []any{}})
	})

	_, err := client.GenerateImage(context.Background(), ImageRequest{Prompt: "a red balloon"})
	require.ErrorContains(t, err, "no image was generated")
}

func TestVideoOperationLifecycle(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/models/veo-2.0-generate-001:predictLongRunning":
			var captured veoPredictRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
			require.Len(t, captured.Instances, 1)
			require.Equal(t, "a drone shot", captured.Instances[0].Prompt)
			require.Equal(t, 1, captured.Parameters.SampleCount)
			json.NewEncoder(w).Encode(map[string]any{"name": "operations/test-job", "done": false})
		case "/operations/test-job":
			require.Equal(t, http.MethodGet, r.Method)
			require.Equal(t, "test-key", r.URL.Query().Get("key"))
			json.NewEncoder(w).Encode(map[string]any{
				"name": "operations/test-job",
				"done": true,
				"response": map[string]any{
					"generatedVideos": []map[string]any{
						{"video": map[string]any{"uri": "https://example.com/files/abc"}},
					},
				},
			})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})

	op, err := client.GenerateVideos(context.Background(), "a drone shot")
	require.NoError(t, err)
	require.False(t, op.Done)
	require.Equal(t, "operations/test-job", op.Name)
	require.Empty(t, op.DownloadURI())

	op, err = client.GetVideosOperation(context.Background(), op.Name)
	require.NoError(t, err)
	require.True(t, op.Done)
	require.Equal(t, "https://example.com/files/abc", op.DownloadURI())
}

func TestDownloadVideoAppendsKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/files/abc", r.URL.Path)
		require.Equal(t, "test-key", r.URL.Query().Get("key"))
		w.Write([]byte("MP4BYTES"))
	}))
	defer srv.Close()

	client, err := NewClient(Options{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)

	body, err := client.DownloadVideo(context.Background(), srv.URL+"/files/abc")
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	require.Equal(t, "MP4BYTES", string(data))
}

func TestDownloadVideoFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusForbidden)
	}))
	defer srv.Close()

	client, err := NewClient(Options{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = client.DownloadVideo(context.Background(), srv.URL+"/files/abc")
	require.ErrorContains(t, err, "failed to download video")
	require.ErrorContains(t, err, "403")
}

func TestInvokeUnwrapsErrorEnvelope(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": 400, "message": "prompt was blocked"},
		})
	})

	_, err := client.GenerateText(context.Background(), TextRequest{Prompt: "hello"})
	require.ErrorContains(t, err, "gemini status 400")
	require.ErrorContains(t, err, "prompt was blocked")
}
