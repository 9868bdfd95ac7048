package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	apperrors "allergen-scan/api/internal/errors"
	"allergen-scan/api/internal/menu"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Engine is the Gemini implementation of menu.Inferencer. The client is
// created once; a GenerativeModel is built per call.
type Engine struct {
	client      *genai.Client
	model       string
	temperature float32
	jsonMode    bool
}

type Option func(*Engine)

func WithTemperature(t float32) Option {
	return func(e *Engine) { e.temperature = t }
}

// WithJSONMode asks the service for application/json output.
func WithJSONMode(on bool) Option {
	return func(e *Engine) { e.jsonMode = on }
}

// New creates the credentialed client. An empty key is a startup error.
func New(ctx context.Context, apiKey, model string, opts ...Option) (*Engine, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, apperrors.NewStartupConfigurationError("GEMINI_API_KEY is empty", []string{"GEMINI_API_KEY"})
	}
	model = strings.TrimSpace(model)
	if model == "" {
		return nil, apperrors.NewStartupConfigurationError("GEMINI_MODEL is empty", []string{"GEMINI_MODEL"})
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: new client: %w", err)
	}
	e := &Engine{client: cl, model: model, temperature: 0.2}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *Engine) Name() string     { return "gemini" }
func (e *Engine) GetModel() string { return e.model }

func (e *Engine) Close() error {
	return e.client.Close()
}

// Generate sends the instruction and the image as two parts of a single user
// turn and returns the text of the first candidate. One call, no retries.
func (e *Engine) Generate(ctx context.Context, req menu.InferenceRequest) (string, error) {
	m := e.client.GenerativeModel(e.model)
	m.SetTemperature(e.temperature)
	if e.jsonMode {
		m.ResponseMIMEType = "application/json"
	}

	parts := []genai.Part{
		genai.Text(req.Instruction),
		genai.ImageData(req.Image.Format, req.Image.Data),
	}

	resp, err := m.GenerateContent(ctx, parts...)
	if err != nil {
		return "", apperrors.NewInferenceFailure(upstreamMessage(err), err)
	}
	txt, err := replyText(resp)
	if err != nil {
		return "", apperrors.NewInferenceFailure(err.Error(), err)
	}
	return txt, nil
}

// replyText joins every text part of the first candidate.
func replyText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", errors.New("gemini: nil response")
	}
	if len(resp.Candidates) == 0 {
		if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != genai.BlockReasonUnspecified {
			return "", fmt.Errorf("gemini: prompt blocked: %s", fb.BlockReason)
		}
		return "", errors.New("gemini: no candidates")
	}
	c := resp.Candidates[0]
	if c.Content == nil {
		return "", fmt.Errorf("gemini: empty candidate (finish reason %s)", c.FinishReason)
	}
	var b strings.Builder
	for _, p := range c.Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("gemini: candidate has no text (finish reason %s)", c.FinishReason)
	}
	return b.String(), nil
}

func upstreamMessage(err error) string {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		if gerr.Message != "" {
			return fmt.Sprintf("gemini %d: %s", gerr.Code, gerr.Message)
		}
		return fmt.Sprintf("gemini %d: %s", gerr.Code, gerr.Body)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "gemini: deadline exceeded"
	}
	return err.Error()
}
