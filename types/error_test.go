package types

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_ChainingAndHelpers(t *testing.T) {
	t.Parallel()

	root := errors.New("root")
	err := NewError(ErrUpstreamError, "upstream failed").
		WithCause(root).
		WithHTTPStatus(502).
		WithRetryable(true).
		WithProvider("dalle")

	if GetErrorCode(err) != ErrUpstreamError {
		t.Fatalf("expected code %s, got %s", ErrUpstreamError, GetErrorCode(err))
	}
	if !IsRetryable(err) {
		t.Fatalf("expected retryable")
	}
	if !errors.Is(err, root) {
		t.Fatalf("expected errors.Is unwrap to root")
	}
	if got := err.Error(); got == "" {
		t.Fatalf("expected non-empty error string")
	}
}

func TestGetErrorCode_Wrapped(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("generate: %w", NewValidationError("prompt is empty"))
	if GetErrorCode(err) != ErrValidation {
		t.Fatalf("expected %s, got %s", ErrValidation, GetErrorCode(err))
	}
	if GetErrorCode(NewStreamError("429", "slow down")) != ErrStream {
		t.Fatalf("stream errors should report %s", ErrStream)
	}
	if GetErrorCode(errors.New("plain")) != "" {
		t.Fatalf("plain errors carry no code")
	}
}

func TestStreamError_Display(t *testing.T) {
	t.Parallel()

	structured := NewStreamError("content_policy", "prompt rejected")
	if got := structured.Display(); got != "image generation failed: prompt rejected\nerror code: content_policy" {
		t.Fatalf("unexpected structured display: %q", got)
	}

	noCode := NewStreamError("", "")
	if got := noCode.Display(); got != "image generation failed: unknown error" {
		t.Fatalf("unexpected display without code: %q", got)
	}

	plain := NewPlainStreamError("connection reset")
	if got := plain.Display(); got != "connection reset" {
		t.Fatalf("plain errors render flat, got %q", got)
	}
}

func TestUserMessage(t *testing.T) {
	t.Parallel()

	if got := UserMessage(NewTransportError("quota exceeded", 429)); got != "quota exceeded" {
		t.Fatalf("transport message should be verbatim, got %q", got)
	}
	if got := UserMessage(NewPlainStreamError("boom")); got != "boom" {
		t.Fatalf("got %q", got)
	}
	if got := UserMessage(nil); got != "" {
		t.Fatalf("nil error should render empty, got %q", got)
	}
}
