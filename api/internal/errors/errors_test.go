package errors

import (
	"fmt"
	"net/http"
	"testing"
)

func TestKindOf_WrappedAppError(t *testing.T) {
	base := NewParseFailure("reply is not JSON", "Sorry, I cannot", nil)
	wrapped := fmt.Errorf("scan: %w", base)

	if got := KindOf(wrapped); got != KindParseFailure {
		t.Fatalf("expected %s, got %s", KindParseFailure, got)
	}
	if !IsKind(wrapped, KindParseFailure) {
		t.Error("expected IsKind to see through wrapping")
	}
	appErr, ok := As(wrapped)
	if !ok {
		t.Fatal("expected As to find the AppError")
	}
	if appErr.Detail != "Sorry, I cannot" {
		t.Errorf("expected raw reply in detail, got %q", appErr.Detail)
	}
}

func TestKindOf_ForeignError(t *testing.T) {
	err := fmt.Errorf("boom")
	if got := KindOf(err); got != KindInternal {
		t.Errorf("expected internal kind for foreign error, got %s", got)
	}
	if got := GetStatusCode(err); got != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", got)
	}
}

func TestGetStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", NewValidationError("missing", []string{"image"}, nil), http.StatusBadRequest},
		{"inference", NewInferenceFailure("503 unavailable", nil), http.StatusInternalServerError},
		{"parse", NewParseFailure("bad", "x", nil), http.StatusInternalServerError},
		{"startup", NewStartupConfigurationError("missing key", []string{"GEMINI_API_KEY"}), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetStatusCode(tt.err); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestAppError_ErrorIncludesCause(t *testing.T) {
	cause := fmt.Errorf("dial tcp: timeout")
	err := NewInferenceFailure("dial tcp: timeout", cause)

	want := "inference_failure: inference call failed (caused by: dial tcp: timeout)"
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
	if err.Unwrap() != cause {
		t.Error("expected Unwrap to return the cause")
	}
}
