// Package vision proxies image description requests to a vision-capable
// chat completions endpoint (Hyperbolic by default).
//
// The HTTP contract is POST /api/extract_image with body {"content": url}.
// The reply is {"output": text} on success, {"error": msg} with the upstream
// status when the upstream call fails, or {"error": msg, "details": err}
// with status 500 for anything unexpected.
package vision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	DefaultBaseURL     = "https://api.hyperbolic.xyz/v1"
	DefaultModel       = "meta-llama/Llama-3.2-90B-Vision-Instruct"
	DefaultPrompt      = "What is this image?"
	DefaultMaxTokens   = 2048
	DefaultTemperature = 0.7
	DefaultTopP        = 0.9
)

// Config configures a Handler. Zero fields take the defaults above.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Prompt      string
	MaxTokens   int64
	Temperature float64
	TopP        float64
	HTTPClient  *http.Client
}

// Handler serves the extract_image endpoint.
type Handler struct {
	client openai.Client
	cfg    Config
}

// NewHandler creates a Handler. Upstream requests are not retried.
func NewHandler(cfg Config) *Handler {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Prompt == "" {
		cfg.Prompt = DefaultPrompt
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.TopP == 0 {
		cfg.TopP = DefaultTopP
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithMaxRetries(0),
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	return &Handler{
		client: openai.NewClient(opts...),
		cfg:    cfg,
	}
}

// Mux returns a ServeMux routing POST /api/extract_image to h.
func (h *Handler) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("POST /api/extract_image", h)
	return mux
}

// UpstreamError is returned by Extract when the upstream call fails with an
// HTTP status.
type UpstreamError struct {
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("vision: upstream status %d: %v", e.StatusCode, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Extract asks the model to describe the image at imageURL, which may be a
// data: URL.
func (h *Handler) Extract(ctx context.Context, imageURL string) (string, error) {
	resp, err := h.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: h.cfg.Model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(h.cfg.Prompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: imageURL,
				}),
			}),
		},
		MaxTokens:   openai.Int(h.cfg.MaxTokens),
		Temperature: openai.Float(h.cfg.Temperature),
		TopP:        openai.Float(h.cfg.TopP),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", &UpstreamError{StatusCode: apiErr.StatusCode, Err: err}
		}
		return "", fmt.Errorf("vision: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("vision: upstream returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

type extractRequest struct {
	Content string `json:"content"`
}

type extractResponse struct {
	Output  string `json:"output,omitzero"`
	Error   string `json:"error,omitzero"`
	Details string `json:"details,omitzero"`
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusInternalServerError, extractResponse{
			Error:   "Something went wrong",
			Details: err.Error(),
		})
		return
	}
	if req.Content == "" {
		writeJSON(w, http.StatusBadRequest, extractResponse{Error: "content is required"})
		return
	}

	output, err := h.Extract(r.Context(), req.Content)
	if err != nil {
		var upErr *UpstreamError
		if errors.As(err, &upErr) {
			slog.Warn("vision: upstream failed", "status", upErr.StatusCode, "error", upErr.Err)
			writeJSON(w, upErr.StatusCode, extractResponse{Error: "Failed to fetch response from upstream API"})
			return
		}
		slog.Error("vision: extract failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, extractResponse{
			Error:   "Something went wrong",
			Details: err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, extractResponse{Output: output})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
