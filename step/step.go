// Package step implements the six step kinds the flow interpreter
// dispatches on.
package step

import (
	"context"
	"fmt"

	"github.com/clinicops/medflow/ai"
	"github.com/clinicops/medflow/model"
)

// AiService is the text-generation collaborator.
type AiService interface {
	Ask(ctx context.Context, model string, prompt string, auxContext string) (*ai.Answer, error)
}

// Messenger is the outbound messaging collaborator.
type Messenger interface {
	SendText(ctx context.Context, to string, body string) (string, error)
}

// FlowRunner runs a workflow by id. The engine implements it; the
// trigger_workflow handler calls back into it.
type FlowRunner interface {
	Run(ctx context.Context, req model.ExecutionRequest) (*model.ExecutionResult, error)
}

// Handler executes one step kind. flowContext is the caller context merged
// with entity_type and entity_id; the returned map becomes the step's
// result entry.
type Handler interface {
	Type() model.StepType
	Execute(ctx context.Context, wf *model.Workflow, st model.Step, execution *model.FlowExecution, flowContext map[string]any) (map[string]any, error)
}

type Registry struct {
	handlers map[model.StepType]Handler
}

func NewRegistry(handlers ...Handler) *Registry {
	r := &Registry{handlers: make(map[model.StepType]Handler, len(handlers))}
	for _, h := range handlers {
		r.handlers[h.Type()] = h
	}
	return r
}

func (r *Registry) Register(h Handler) {
	r.handlers[h.Type()] = h
}

func (r *Registry) Get(t model.StepType) (Handler, bool) {
	h, ok := r.handlers[t]
	return h, ok
}

func configString(config map[string]any, key string) (string, error) {
	v, ok := config[key]
	if !ok {
		return "", fmt.Errorf("step config missing %q", key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("step config %q must be a non-empty string", key)
	}
	return s, nil
}

func optionalString(config map[string]any, key string) string {
	s, _ := config[key].(string)
	return s
}
