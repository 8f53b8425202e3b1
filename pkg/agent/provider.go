package agent

import (
	"context"
	"encoding/json"
	"fmt"
)

// Request is one call to the underlying LLM provider: a system prompt, a
// user prompt, and the optional streaming hook. The provider is expected to
// constrain its output to valid JSON — via tool-use/function-calling mode,
// JSON mode, or equivalent constrained decoding (spec.md §4.4, §9).
type Request struct {
	SystemPrompt string
	UserPrompt   string
	Handlers     *StreamHandlers
}

// Response is the raw provider output before structured-output validation.
type Response struct {
	JSON  string
	Usage UsageChunk
}

// Provider is the seam between the four-role AgentClient and a concrete LLM
// backend (hosted model HTTP client, local runner, or test double). It is
// intentionally the only interface this package depends on for model I/O,
// matching the shape of codeready-toolchain-tarsy/pkg/agent/llm_client.go's
// provider-agnostic LLMClient contract (see SPEC_FULL.md §11.1 for why this
// replaces that file's gRPC transport).
type Provider interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// callStructured sends req, with its Handlers, to provider and unmarshals the
// final JSON into out; it dispatches no chunks itself and only calls the
// handlers' OnCompleted once a response parses. A provider error or a JSON
// parse failure is retried up to maxRetries times before a non-retryable
// LLMError is returned
// — matching the teacher's own bounded-retry extraction pattern in
// pkg/agent/controller/scoring.go's extractScore.
// CallStructured is the exported form of callStructured, used directly by
// the quality package's judge calls (which share the same structured-output
// contract but live outside this package to avoid an import cycle with the
// AgentClient they validate).
func CallStructured[T any](ctx context.Context, provider Provider, req Request, maxRetries int, out *T) (UsageChunk, error) {
	return callStructured(ctx, provider, req, maxRetries, out)
}

func callStructured[T any](ctx context.Context, provider Provider, req Request, maxRetries int, out *T) (UsageChunk, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		resp, err := provider.Complete(ctx, req)
		if err != nil {
			lastErr = err
			continue
		}
		if jsonErr := json.Unmarshal([]byte(resp.JSON), out); jsonErr != nil {
			lastErr = fmt.Errorf("parse structured output: %w", jsonErr)
			continue
		}
		req.Handlers.complete()
		return resp.Usage, nil
	}
	return UsageChunk{}, newLLMError(false, lastErr, "structured output call failed after %d attempts", maxRetries+1)
}
