package coderun

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPRunner delegates execution to the sandbox service.
type HTTPRunner struct {
	baseURL string
	client  *http.Client
	limits  Limits
}

func NewHTTPRunner(baseURL string, limits Limits) *HTTPRunner {
	return &HTTPRunner{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 60 * time.Second},
		limits:  limits,
	}
}

type runRequest struct {
	Language string        `json:"language"`
	Code     string        `json:"code"`
	Stdin    string        `json:"stdin,omitempty"`
	Limits   *limitsConfig `json:"limits,omitempty"`
}

type limitsConfig struct {
	WallTimeMs  int64 `json:"wallTimeMs"`
	MemoryBytes int64 `json:"memoryBytes"`
	NanoCPUs    int64 `json:"nanoCPUs"`
}

type runResponse struct {
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
	Exit   struct {
		Code     int  `json:"code"`
		TimedOut bool `json:"timedOut"`
	} `json:"exit"`
	Error string `json:"error,omitempty"`
}

func (r *HTTPRunner) Run(ctx context.Context, p Program) (Output, error) {
	if _, err := lookupLanguage(p.Language); err != nil {
		return Output{}, err
	}
	body := runRequest{Language: p.Language, Code: p.Code, Stdin: p.Stdin}
	if r.limits != (Limits{}) {
		body.Limits = &limitsConfig{
			WallTimeMs:  r.limits.WallTime.Milliseconds(),
			MemoryBytes: r.limits.MemoryB,
			NanoCPUs:    r.limits.NanoCPUs,
		}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return Output{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/run", bytes.NewReader(payload))
	if err != nil {
		return Output{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return Output{}, ctx.Err()
		}
		return Output{}, fmt.Errorf("%w: %v", ErrSandboxUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusServiceUnavailable {
		return Output{}, ErrSandboxUnavailable
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Output{}, fmt.Errorf("sandbox returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var result runResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Output{}, fmt.Errorf("decode sandbox response: %w", err)
	}
	switch result.Error {
	case "":
	case "sandbox_unavailable":
		return Output{}, ErrSandboxUnavailable
	case "unsupported_language":
		return Output{}, ErrUnsupportedLanguage
	default:
		return Output{}, fmt.Errorf("sandbox error: %s", result.Error)
	}
	return Output{
		Stdout:   result.Stdout,
		Stderr:   result.Stderr,
		ExitCode: result.Exit.Code,
		TimedOut: result.Exit.TimedOut,
	}, nil
}
