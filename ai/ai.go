// Package ai wraps the text-generation collaborators behind a single Ask
// call. The flow engine does not know which provider answered.
package ai

import (
	"context"
	"fmt"

	"github.com/clinicops/medflow/logger"
	"go.uber.org/zap"
)

// Provider is one LLM backend.
type Provider interface {
	// Generate produces text for the prompt. The context string carries
	// auxiliary data the model may use; model overrides the provider
	// default when non-empty.
	Generate(ctx context.Context, model string, prompt string, context string) (string, error)
	Name() string
}

type Answer struct {
	Text  string `json:"text"`
	Model string `json:"model"`
}

// Service tries the primary provider and falls back to the secondary on
// error. The fallback may be nil.
type Service struct {
	primary  Provider
	fallback Provider
}

func NewService(primary Provider, fallback Provider) *Service {
	return &Service{primary: primary, fallback: fallback}
}

func (s *Service) Ask(ctx context.Context, model string, prompt string, auxContext string) (*Answer, error) {
	if s.primary == nil {
		return nil, fmt.Errorf("no ai provider configured")
	}
	text, err := s.primary.Generate(ctx, model, prompt, auxContext)
	if err == nil {
		return &Answer{Text: text, Model: s.primary.Name()}, nil
	}
	if s.fallback == nil {
		return nil, fmt.Errorf("ai provider %s failed: %w", s.primary.Name(), err)
	}
	logger.Warn("ai provider failed, trying fallback",
		zap.String("provider", s.primary.Name()), zap.Error(err))
	// The model override names a primary-provider model; the fallback uses
	// its own default.
	text, ferr := s.fallback.Generate(ctx, "", prompt, auxContext)
	if ferr != nil {
		return nil, fmt.Errorf("ai providers failed: %s: %v, %s: %w",
			s.primary.Name(), err, s.fallback.Name(), ferr)
	}
	return &Answer{Text: text, Model: s.fallback.Name()}, nil
}
