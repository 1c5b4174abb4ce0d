// Package ai routes prompts to interchangeable response backends.
package ai

import (
	"context"

	"go.uber.org/zap"
)

// Fallback replies returned to the user when a backend cannot produce a
// real answer. Backends never surface transport errors to their callers.
const (
	// FallbackNoReply covers a successful call whose response is missing the
	// expected reply field.
	FallbackNoReply = "Não consegui entender."
	// FallbackUnavailable covers non-2xx responses from the backend API.
	FallbackUnavailable = "Desculpe, estou tendo problemas para processar sua solicitação."
	// FallbackError covers transport-level failures.
	FallbackError = "Desculpe, ocorreu um erro ao processar sua mensagem."
)

// Backend is one interchangeable text-generation provider. Generate always
// returns a user-facing string; failures are normalized to the fallbacks
// above plus a log entry.
type Backend interface {
	Name() string
	Generate(ctx context.Context, prompt, model string) string
}

// Router dispatches prompts to a closed set of named backends with a single
// fallback-to-default rule.
type Router struct {
	backends       map[string]Backend
	defaultBackend string
	logger         *zap.Logger
}

// NewRouter wires the available backends. defaultBackend must name one of
// them; callers validate that at configuration time.
func NewRouter(defaultBackend string, logger *zap.Logger, backends ...Backend) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}

	byName := make(map[string]Backend, len(backends))
	for _, b := range backends {
		byName[b.Name()] = b
	}

	return &Router{
		backends:       byName,
		defaultBackend: defaultBackend,
		logger:         logger,
	}
}

// Respond generates a reply for prompt. An empty backend name selects the
// process-wide default; an unrecognized name logs a warning and falls back
// to the default instead of failing the request.
func (r *Router) Respond(ctx context.Context, prompt, backend, model string) string {
	name := backend
	if name == "" {
		name = r.defaultBackend
	}

	b, ok := r.backends[name]
	if !ok {
		r.logger.Warn("unknown ai backend, falling back to default",
			zap.String("requested", name),
			zap.String("default", r.defaultBackend))
		b = r.backends[r.defaultBackend]
		if b == nil {
			r.logger.Error("default ai backend not registered", zap.String("default", r.defaultBackend))
			return FallbackError
		}
	}

	return b.Generate(ctx, prompt, model)
}
