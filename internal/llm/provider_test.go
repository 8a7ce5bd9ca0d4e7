package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"peerprep/interview/internal/models"
)

type testProvider struct{}

func (testProvider) GenerateContent(context.Context, string, string, string) (*models.GenerationResponse, error) {
	return &models.GenerationResponse{Content: "ok"}, nil
}
func (testProvider) GetProviderName() string { return "test" }

func TestProviderErrorError(t *testing.T) {
	err := &ProviderError{Provider: "gemini", Message: "failed"}
	if err.Error() != "gemini error: failed" {
		t.Fatalf("unexpected error message: %s", err.Error())
	}

	detail := errors.New("detail")
	wrapped := &ProviderError{Provider: "gemini", Message: "failed", Err: detail}
	if got := wrapped.Error(); got != "gemini error: failed (detail)" {
		t.Fatalf("unexpected wrapped error message: %s", got)
	}
	if !errors.Is(wrapped, detail) {
		t.Fatal("expected provider error to unwrap")
	}
}

func TestRegisterAndNewProvider(t *testing.T) {
	RegisterProvider("test_provider", func() (Provider, error) {
		return testProvider{}, nil
	})
	defer func() {
		mu.Lock()
		delete(providers, "test_provider")
		mu.Unlock()
	}()

	provider, err := NewProvider("test_provider")
	if err != nil {
		t.Fatalf("NewProvider returned error: %v", err)
	}
	if name := provider.GetProviderName(); name != "test" {
		t.Fatalf("expected provider name test, got %s", name)
	}
	found := false
	for _, name := range Registered() {
		found = found || name == "test_provider"
	}
	if !found {
		t.Fatal("expected registered provider to be listed")
	}

	if _, err := NewProvider("missing"); err == nil {
		t.Fatal("expected error for unsupported provider")
	}
}

func fastPolicy(attempts int) RetryPolicy {
	return RetryPolicy{Attempts: attempts, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestRetryStopsOnSuccess(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastPolicy(3), func(context.Context) error {
		calls++
		if calls < 2 {
			return &ProviderError{Provider: "p", Code: ErrCodeRateLimit, Message: "slow down"}
		}
		return nil
	})
	if err != nil || calls != 2 {
		t.Fatalf("expected success on second call, got err=%v calls=%d", err, calls)
	}
}

func TestRetryGivesUpOnPermanentError(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastPolicy(3), func(context.Context) error {
		calls++
		return &ProviderError{Provider: "p", Code: ErrCodeAPIKey, Message: "bad key"}
	})
	if err == nil || calls != 1 {
		t.Fatalf("expected one call, got err=%v calls=%d", err, calls)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastPolicy(3), func(context.Context) error {
		calls++
		return MarkRetryable(errors.New("bad json"))
	})
	if err == nil || calls != 3 {
		t.Fatalf("expected three calls, got err=%v calls=%d", err, calls)
	}
}

func TestRetryHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := RetryPolicy{Attempts: 5, BaseDelay: time.Second, MaxDelay: time.Second}
	calls := 0
	err := Retry(ctx, policy, func(context.Context) error {
		calls++
		cancel()
		return MarkRetryable(errors.New("flaky"))
	})
	if !errors.Is(err, context.Canceled) || calls != 1 {
		t.Fatalf("expected cancellation after first call, got err=%v calls=%d", err, calls)
	}
}

func TestIsRetryable(t *testing.T) {
	cases := map[string]struct {
		err  error
		want bool
	}{
		"nil":          {nil, false},
		"plain":        {errors.New("x"), false},
		"marked":       {MarkRetryable(errors.New("x")), true},
		"rate limit":   {&ProviderError{Code: ErrCodeRateLimit}, true},
		"service down": {&ProviderError{Code: ErrCodeServiceDown}, true},
		"bad input":    {&ProviderError{Code: ErrCodeInvalidInput}, false},
		"canceled":     {context.Canceled, false},
	}
	for name, tc := range cases {
		if got := IsRetryable(tc.err); got != tc.want {
			t.Fatalf("%s: IsRetryable = %v, want %v", name, got, tc.want)
		}
	}
	if MarkRetryable(nil) != nil {
		t.Fatal("MarkRetryable(nil) should stay nil")
	}
}
