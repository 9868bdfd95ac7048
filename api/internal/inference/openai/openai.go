package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "allergen-scan/api/internal/errors"
	"allergen-scan/api/internal/menu"
	"allergen-scan/api/internal/util"
)

const DefaultBaseURL = "https://api.openai.com/v1"

// Engine talks to the chat completions endpoint of OpenAI or any
// compatible gateway. It implements menu.Inferencer.
type Engine struct {
	apiKey      string
	model       string
	baseURL     string
	temperature float32
	httpc       *http.Client
}

type Option func(*Engine)

func WithBaseURL(u string) Option {
	return func(e *Engine) {
		if u = strings.TrimSpace(u); u != "" {
			e.baseURL = strings.TrimRight(u, "/")
		}
	}
}

func WithTemperature(t float32) Option {
	return func(e *Engine) { e.temperature = t }
}

func WithHTTPClient(c *http.Client) Option {
	return func(e *Engine) { e.httpc = c }
}

func New(apiKey, model string, opts ...Option) (*Engine, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, apperrors.NewStartupConfigurationError("OPENAI_API_KEY is empty", []string{"OPENAI_API_KEY"})
	}
	model = strings.TrimSpace(model)
	if model == "" {
		return nil, apperrors.NewStartupConfigurationError("OPENAI_MODEL is empty", []string{"OPENAI_MODEL"})
	}
	e := &Engine{
		apiKey:      apiKey,
		model:       model,
		baseURL:     DefaultBaseURL,
		temperature: 0.2,
		// the caller's context carries the real deadline
		httpc: &http.Client{Timeout: 120 * time.Second},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *Engine) Name() string     { return "openai" }
func (e *Engine) GetModel() string { return e.model }
func (e *Engine) Close() error     { return nil }

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Generate sends one user turn holding the instruction and the image as a
// data URL. One call, no retries.
func (e *Engine) Generate(ctx context.Context, req menu.InferenceRequest) (string, error) {
	body := map[string]any{
		"model": e.model,
		"messages": []any{
			map[string]any{
				"role": "user",
				"content": []any{
					map[string]any{"type": "text", "text": req.Instruction},
					map[string]any{"type": "image_url", "image_url": map[string]any{
						"url":    util.MakeDataURL(req.Image.MIMEType, req.Image.Data),
						"detail": "high",
					}},
				},
			},
		},
		"temperature": e.temperature,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", apperrors.NewInferenceFailure("openai: encode request", err)
	}

	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", apperrors.NewInferenceFailure("openai: build request", err)
	}
	hreq.Header.Set("Content-Type", "application/json")
	hreq.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.httpc.Do(hreq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", apperrors.NewInferenceFailure("openai: deadline exceeded", err)
		}
		return "", apperrors.NewInferenceFailure("openai: "+err.Error(), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", apperrors.NewInferenceFailure("openai: read response", err)
	}

	var out chatResponse
	decodeErr := json.Unmarshal(raw, &out)
	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(raw))
		if decodeErr == nil && out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		upstream := fmt.Sprintf("openai %d: %s", resp.StatusCode, msg)
		return "", apperrors.NewInferenceFailure(upstream, errors.New(upstream))
	}
	if decodeErr != nil {
		return "", apperrors.NewInferenceFailure("openai: bad response body", decodeErr)
	}
	if len(out.Choices) == 0 {
		err := errors.New("openai: no choices")
		return "", apperrors.NewInferenceFailure(err.Error(), err)
	}
	txt := out.Choices[0].Message.Content
	if strings.TrimSpace(txt) == "" {
		err := fmt.Errorf("openai: empty content (finish reason %s)", out.Choices[0].FinishReason)
		return "", apperrors.NewInferenceFailure(err.Error(), err)
	}
	return txt, nil
}
