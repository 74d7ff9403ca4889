package errs

import (
	"context"
	"errors"
	"fmt"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

func TestKindHelpers(t *testing.T) {
	cfg := Configf("missing %s", "LLM_PROVIDER")
	if !IsConfig(cfg) || IsTransient(cfg) || IsFatal(cfg) || IsInvalidInput(cfg) {
		t.Fatalf("config error misclassified: %v", cfg)
	}

	input := InvalidInputf("question cannot be empty")
	if !IsInvalidInput(input) || IsConfig(input) {
		t.Fatalf("invalid input error misclassified: %v", input)
	}

	base := errors.New("connection reset")
	transient := AsTransient(base)
	if !IsTransient(transient) || IsFatal(transient) {
		t.Fatalf("transient error misclassified: %v", transient)
	}
	if !errors.Is(transient, base) {
		t.Fatalf("wrapping lost the underlying error")
	}

	fatal := AsFatal(base)
	if !IsFatal(fatal) || IsTransient(fatal) {
		t.Fatalf("fatal error misclassified: %v", fatal)
	}
}

func TestMarkersPassNilThrough(t *testing.T) {
	if AsTransient(nil) != nil {
		t.Fatalf("AsTransient(nil) should be nil")
	}
	if AsFatal(nil) != nil {
		t.Fatalf("AsFatal(nil) should be nil")
	}
	if Classify(nil) != nil {
		t.Fatalf("Classify(nil) should be nil")
	}
}

func TestClassifyOpenAIStatusCodes(t *testing.T) {
	cases := []struct {
		code          int
		wantTransient bool
	}{
		{429, true},
		{500, true},
		{503, true},
		{401, false},
		{400, false},
		{404, false},
	}
	for _, tc := range cases {
		err := fmt.Errorf("call api: %w", &openai.APIError{HTTPStatusCode: tc.code, Message: "boom"})
		got := Classify(err)
		if IsTransient(got) != tc.wantTransient {
			t.Errorf("status %d: transient=%v, want %v (%v)", tc.code, IsTransient(got), tc.wantTransient, got)
		}
		if !tc.wantTransient && !IsFatal(got) {
			t.Errorf("status %d: expected fatal classification, got %v", tc.code, got)
		}
	}
}

func TestClassifyStatusError(t *testing.T) {
	if got := Classify(&StatusError{Code: 502, Body: "bad gateway"}); !IsTransient(got) {
		t.Fatalf("502 should be transient, got %v", got)
	}
	if got := Classify(&StatusError{Code: 403}); !IsFatal(got) {
		t.Fatalf("403 should be fatal, got %v", got)
	}
}

func TestClassifyContextErrors(t *testing.T) {
	if got := Classify(context.Canceled); got != context.Canceled {
		t.Fatalf("cancellation must pass through untouched, got %v", got)
	}
	wrapped := fmt.Errorf("call api: %w", context.Canceled)
	if got := Classify(wrapped); got != wrapped {
		t.Fatalf("wrapped cancellation must pass through untouched, got %v", got)
	}
	if got := Classify(context.DeadlineExceeded); !IsTransient(got) {
		t.Fatalf("deadline should be transient, got %v", got)
	}
}

func TestClassifyKeepsExistingKind(t *testing.T) {
	fatal := AsFatal(errors.New("already classified"))
	if got := Classify(fatal); got != fatal {
		t.Fatalf("already classified error should be returned as is, got %v", got)
	}
}

func TestClassifyUnknownErrorIsTransient(t *testing.T) {
	if got := Classify(errors.New("something odd")); !IsTransient(got) {
		t.Fatalf("unknown errors should default to transient, got %v", got)
	}
}

func TestStatusErrorMessage(t *testing.T) {
	withBody := &StatusError{Code: 500, Body: "internal"}
	if withBody.Error() != "api returned status 500: internal" {
		t.Fatalf("unexpected message: %q", withBody.Error())
	}
	bare := &StatusError{Code: 404}
	if bare.Error() != "api returned status 404" {
		t.Fatalf("unexpected message: %q", bare.Error())
	}
}
