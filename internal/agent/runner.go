package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/opssage/opssage/internal/llm"
)

// AdapterError reports that a reasoning-agent invocation produced no usable
// final output at all.
type AdapterError struct {
	StageID string
	Err     error
}

func (e *AdapterError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("agent %s produced no final response: %v", e.StageID, e.Err)
	}
	return fmt.Sprintf("agent %s produced no final response", e.StageID)
}

func (e *AdapterError) Unwrap() error { return e.Err }

// Invoker runs one reasoning-agent turn and returns the raw final text.
type Invoker interface {
	Run(ctx context.Context, stageID, prompt string) (string, error)
}

// Runner is the agent invocation adapter over an llm.Provider. Each Run is an
// independent session: no conversational history crosses stage boundaries, so
// any stage can be replaced or re-run without touching the others.
type Runner struct {
	provider    llm.Provider
	maxTokens   int
	temperature float64
	log         *zap.SugaredLogger
}

func NewRunner(provider llm.Provider, log *zap.SugaredLogger) *Runner {
	return &Runner{
		provider:    provider,
		maxTokens:   4096,
		temperature: 0.2,
		log:         log,
	}
}

func (r *Runner) Run(ctx context.Context, stageID, prompt string) (string, error) {
	sessionID := uuid.NewString()
	r.log.Debugw("running agent turn",
		"stage", stageID, "session_id", sessionID, "provider", r.provider.Name())

	resp, err := r.provider.Complete(ctx, llm.CompletionRequest{
		Prompt:      prompt,
		MaxTokens:   r.maxTokens,
		Temperature: r.temperature,
	})
	if err != nil {
		return "", &AdapterError{StageID: stageID, Err: err}
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return "", &AdapterError{StageID: stageID}
	}
	return resp.Content, nil
}
