package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"peerprep/interview/internal/config"
	"peerprep/interview/internal/llm"
	"peerprep/interview/internal/prompts"
	"peerprep/interview/internal/utils"
)

const readinessTimeout = 2 * time.Second

type ReadinessCheck struct {
	Status  string `json:"status"` // "ok" | "failed"
	Message string `json:"message,omitempty"`
}

type ReadinessResponse struct {
	Status  string                    `json:"status"`  // "ready" | "not_ready"
	Service string                    `json:"service"` // Service name
	Checks  map[string]ReadinessCheck `json:"checks"`  // Individual check results
}

// Pinger is a backing store the service cannot work without.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	provider      llm.Provider
	promptManager prompts.PromptProvider
	config        *config.Config
	dependencies  map[string]Pinger
}

// NewHealthHandler takes named dependencies (database, redis, mongo) checked
// on every readiness probe. Nil entries are skipped.
func NewHealthHandler(provider llm.Provider, promptManager prompts.PromptProvider, cfg *config.Config, dependencies map[string]Pinger) *HealthHandler {
	return &HealthHandler{
		provider:      provider,
		promptManager: promptManager,
		config:        cfg,
		dependencies:  dependencies,
	}
}

func (handler *HealthHandler) HealthzHandler(writer http.ResponseWriter, request *http.Request) {
	utils.JSON(writer, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "interview",
		"version": "1.0.0",
	})
}

func (handler *HealthHandler) ReadyzHandler(writer http.ResponseWriter, request *http.Request) {
	checks := make(map[string]ReadinessCheck)
	allChecksPass := true
	fail := func(name, message string) {
		checks[name] = ReadinessCheck{Status: "failed", Message: message}
		allChecksPass = false
	}

	if handler.provider == nil {
		fail("provider", "AI provider not initialized")
	} else {
		checks["provider"] = ReadinessCheck{Status: "ok"}
	}

	// verify prompt manager has templates loaded
	switch {
	case handler.promptManager == nil:
		fail("prompt_manager", "Prompt manager not initialized")
	case len(handler.promptManager.GetTemplates()) == 0:
		fail("prompt_manager", "No prompt templates loaded")
	default:
		checks["prompt_manager"] = ReadinessCheck{Status: "ok"}
	}

	if handler.config == nil {
		fail("configuration", "Configuration not loaded")
	} else {
		checks["configuration"] = ReadinessCheck{Status: "ok"}
	}

	names := make([]string, 0, len(handler.dependencies))
	for name, p := range handler.dependencies {
		if p != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		ctx, cancel := context.WithTimeout(request.Context(), readinessTimeout)
		err := handler.dependencies[name].Ping(ctx)
		cancel()
		if err != nil {
			fail(name, err.Error())
			continue
		}
		checks[name] = ReadinessCheck{Status: "ok"}
	}

	response := ReadinessResponse{
		Service: "interview",
		Checks:  checks,
	}

	if allChecksPass {
		response.Status = "ready"
		utils.JSON(writer, http.StatusOK, response)
	} else {
		response.Status = "not_ready"
		utils.JSON(writer, http.StatusServiceUnavailable, response)
	}
}
