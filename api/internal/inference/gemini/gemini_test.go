package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	apperrors "allergen-scan/api/internal/errors"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
)

func TestNew_EmptyKeyIsStartupError(t *testing.T) {
	_, err := New(context.Background(), "  ", "gemini-1.5-flash")
	if !apperrors.IsKind(err, apperrors.KindStartupConfiguration) {
		t.Fatalf("expected startup configuration error, got %v", err)
	}
}

func TestNew_EmptyModelIsStartupError(t *testing.T) {
	_, err := New(context.Background(), "key", "")
	if !apperrors.IsKind(err, apperrors.KindStartupConfiguration) {
		t.Fatalf("expected startup configuration error, got %v", err)
	}
}

func TestReplyText(t *testing.T) {
	tests := []struct {
		name    string
		resp    *genai.GenerateContentResponse
		want    string
		wantErr string
	}{
		{
			name: "joins text parts",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []genai.Part{genai.Text("[{\"name\":"), genai.Text("\"Fries\",\"allergens\":[]}]")}},
			}}},
			want: `[{"name":"Fries","allergens":[]}]`,
		},
		{
			name: "first candidate only",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
				{Content: &genai.Content{Parts: []genai.Part{genai.Text("one")}}},
				{Content: &genai.Content{Parts: []genai.Part{genai.Text("two")}}},
			}},
			want: "one",
		},
		{name: "nil", resp: nil, wantErr: "nil response"},
		{name: "no candidates", resp: &genai.GenerateContentResponse{}, wantErr: "no candidates"},
		{
			name: "blocked",
			resp: &genai.GenerateContentResponse{PromptFeedback: &genai.PromptFeedback{BlockReason: genai.BlockReasonSafety}},
			wantErr: "prompt blocked",
		},
		{
			name:    "nil content",
			resp:    &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}}},
			wantErr: "empty candidate",
		},
		{
			name: "no text parts",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []genai.Part{genai.Blob{MIMEType: "image/png"}}},
			}}},
			wantErr: "no text",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := replyText(tt.resp)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestUpstreamMessage(t *testing.T) {
	gerr := &googleapi.Error{Code: 503, Message: "The model is overloaded."}
	if got := upstreamMessage(fmt.Errorf("generate: %w", gerr)); got != "gemini 503: The model is overloaded." {
		t.Errorf("unexpected message %q", got)
	}
	if got := upstreamMessage(context.DeadlineExceeded); got != "gemini: deadline exceeded" {
		t.Errorf("unexpected message %q", got)
	}
	if got := upstreamMessage(errors.New("dial tcp: no such host")); got != "dial tcp: no such host" {
		t.Errorf("unexpected message %q", got)
	}
}
