package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"autosub/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "extract", "ffmpeg", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"extract", "ffmpeg", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{services.Wrap(services.ErrValidation, "validate", "", "bad", nil), services.KindValidation},
		{services.Wrap(services.ErrNotFound, "transcribe", "", "missing", nil), services.KindNotFound},
		{services.Wrap(services.ErrExternalTool, "extract", "", "ffmpeg", nil), services.KindExternalTool},
		{fmt.Errorf("outer: %w", context.Canceled), services.KindCanceled},
		{context.DeadlineExceeded, services.KindTimeout},
		{errors.New("io"), services.KindTransient},
	}
	for _, tt := range tests {
		if got := services.Classify(tt.err); got != tt.want {
			t.Fatalf("Classify(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestRetryable(t *testing.T) {
	if services.Retryable(services.Wrap(services.ErrValidation, "", "", "x", nil)) {
		t.Fatal("validation errors must not be retryable")
	}
	if services.Retryable(context.Canceled) {
		t.Fatal("canceled context must not be retryable")
	}
	if !services.Retryable(errors.New("connection reset")) {
		t.Fatal("unknown errors should be retryable")
	}
}
