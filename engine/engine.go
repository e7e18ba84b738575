// Package engine runs workflow definitions step by step against an external
// entity, recording one execution row per run.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/clinicops/medflow/cache"
	"github.com/clinicops/medflow/expr"
	"github.com/clinicops/medflow/logger"
	"github.com/clinicops/medflow/model"
	"github.com/clinicops/medflow/persistence"
	"github.com/clinicops/medflow/step"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrWorkflowNotFound = errors.New("workflow not found")
var ErrWorkflowInactive = errors.New("workflow is not active")
var ErrWorkflowCycle = errors.New("workflow cycle detected")

const defaultMaxDepth = 10
const defaultCacheTTL = 30 * time.Second

type Config struct {
	// MaxDepth bounds the trigger_workflow chain length.
	MaxDepth int
	// CacheTTL controls the definition cache in front of the workflow store.
	CacheTTL time.Duration
}

type Engine struct {
	storage   persistence.Storage
	workflows *cache.WorkflowCache
	registry  *step.Registry
	maxDepth  int
}

var _ step.FlowRunner = new(Engine)

func New(storage persistence.Storage, aiSvc step.AiService, messenger step.Messenger, conf Config) *Engine {
	if conf.MaxDepth <= 0 {
		conf.MaxDepth = defaultMaxDepth
	}
	if conf.CacheTTL <= 0 {
		conf.CacheTTL = defaultCacheTTL
	}
	e := &Engine{
		storage:   storage,
		workflows: cache.NewWorkflowCache(storage.Workflows(), conf.CacheTTL),
		maxDepth:  conf.MaxDepth,
	}
	e.registry = step.NewRegistry(
		step.NewAiResponseHandler(aiSvc),
		step.NewSendNotificationHandler(storage.Notifications()),
		step.NewCreateRecordHandler(storage.Records()),
		step.NewUpdateStatusHandler(storage.Records()),
		step.NewSendWhatsappHandler(messenger),
		step.NewTriggerWorkflowHandler(e),
	)
	return e
}

// Run implements step.FlowRunner for trigger_workflow steps.
func (e *Engine) Run(ctx context.Context, req model.ExecutionRequest) (*model.ExecutionResult, error) {
	return e.ExecuteWorkflow(ctx, req)
}

type chainKey struct{}

func chainFrom(ctx context.Context) map[string]bool {
	chain, _ := ctx.Value(chainKey{}).(map[string]bool)
	return chain
}

// ExecuteWorkflow loads the definition, creates an execution row and runs
// every step in order. A false condition skips its step; any handler error
// fails the whole run. Side effects of completed steps are never rolled
// back.
func (e *Engine) ExecuteWorkflow(ctx context.Context, req model.ExecutionRequest) (*model.ExecutionResult, error) {
	chain := chainFrom(ctx)
	if chain[req.WorkflowId] {
		return nil, fmt.Errorf("%w: workflow %s re-entered", ErrWorkflowCycle, req.WorkflowId)
	}
	if len(chain) >= e.maxDepth {
		return nil, fmt.Errorf("%w: trigger chain exceeds depth %d", ErrWorkflowCycle, e.maxDepth)
	}

	wf, err := e.workflows.Get(ctx, req.WorkflowId)
	if errors.Is(err, persistence.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrWorkflowNotFound, req.WorkflowId)
	}
	if err != nil {
		return nil, err
	}
	if !wf.IsActive {
		return nil, fmt.Errorf("%w: %s", ErrWorkflowInactive, req.WorkflowId)
	}

	next := make(map[string]bool, len(chain)+1)
	for id := range chain {
		next[id] = true
	}
	next[req.WorkflowId] = true
	ctx = context.WithValue(ctx, chainKey{}, next)

	execution := &model.FlowExecution{
		Id:          uuid.New().String(),
		WorkflowId:  wf.Id,
		EntityType:  req.EntityType,
		EntityId:    req.EntityId,
		State:       model.EXECUTION_RUNNING,
		StepResults: []model.StepResult{},
		StartedAt:   time.Now().UTC(),
	}
	if err := e.storage.Executions().Save(ctx, execution); err != nil {
		return nil, err
	}
	logger.Info("starting workflow execution",
		zap.String("workflow", wf.Id), zap.String("execution", execution.Id),
		zap.String("entityType", req.EntityType), zap.String("entityId", req.EntityId))

	flowContext := stepContext(req)

	for i, st := range wf.Steps {
		if st.Condition != "" {
			met, err := expr.Eval(st.Condition, flowContext)
			if err != nil {
				return nil, e.fail(ctx, execution, i, err)
			}
			if !met {
				execution.StepResults = append(execution.StepResults, model.StepResult{
					Step: i, Skipped: true, Reason: "Condition not met",
				})
				execution.CurrentStep = i + 1
				if err := e.storage.Executions().Save(ctx, execution); err != nil {
					return nil, err
				}
				continue
			}
		}
		handler, ok := e.registry.Get(st.Type)
		if !ok {
			return nil, e.fail(ctx, execution, i, fmt.Errorf("unknown step type %q", st.Type))
		}
		result, err := handler.Execute(ctx, wf, st, execution, flowContext)
		if err != nil {
			return nil, e.fail(ctx, execution, i, err)
		}
		execution.StepResults = append(execution.StepResults, model.StepResult{Step: i, Result: result})
		execution.CurrentStep = i + 1
		if err := e.storage.Executions().Save(ctx, execution); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	execution.State = model.EXECUTION_COMPLETED
	execution.CompletedAt = &now
	if err := e.storage.Executions().Save(ctx, execution); err != nil {
		return nil, err
	}
	logger.Info("workflow execution completed",
		zap.String("workflow", wf.Id), zap.String("execution", execution.Id),
		zap.Int("steps", len(execution.StepResults)))
	return &model.ExecutionResult{
		Success:     true,
		ExecutionId: execution.Id,
		Results:     execution.StepResults,
	}, nil
}

// fail records the step error, finalizes the execution as failed and hands
// the original error back to the caller.
func (e *Engine) fail(ctx context.Context, execution *model.FlowExecution, stepIndex int, stepErr error) error {
	execution.StepResults = append(execution.StepResults, model.StepResult{
		Step: stepIndex, Error: stepErr.Error(),
	})
	now := time.Now().UTC()
	execution.State = model.EXECUTION_FAILED
	execution.Error = stepErr.Error()
	execution.CompletedAt = &now
	if err := e.storage.Executions().Save(ctx, execution); err != nil {
		logger.Error("error persisting failed execution",
			zap.String("execution", execution.Id), zap.Error(err))
	}
	logger.Error("workflow execution failed",
		zap.String("workflow", execution.WorkflowId), zap.String("execution", execution.Id),
		zap.Int("step", stepIndex), zap.Error(stepErr))
	return stepErr
}

// TriggerWorkflowByEvent runs every active event-triggered workflow whose
// trigger config matches the event. Matches run concurrently and settle
// individually; only a lookup failure fails the call itself.
func (e *Engine) TriggerWorkflowByEvent(ctx context.Context, eventType string, entityType string, entityId string, eventContext map[string]any) ([]model.TriggerOutcome, error) {
	matches, err := e.storage.Workflows().FindByEvent(ctx, eventType)
	if err != nil {
		return nil, err
	}
	outcomes := make([]model.TriggerOutcome, len(matches))
	var wg sync.WaitGroup
	for i, wf := range matches {
		wg.Add(1)
		go func(i int, wf model.Workflow) {
			defer wg.Done()
			outcome := model.TriggerOutcome{WorkflowId: wf.Id}
			result, err := e.ExecuteWorkflow(ctx, model.ExecutionRequest{
				WorkflowId: wf.Id,
				EntityType: entityType,
				EntityId:   entityId,
				Context:    eventContext,
			})
			if err != nil {
				outcome.Error = err.Error()
			} else {
				outcome.ExecutionId = result.ExecutionId
			}
			outcomes[i] = outcome
		}(i, wf)
	}
	wg.Wait()
	return outcomes, nil
}

// GetExecution fetches one persisted execution.
func (e *Engine) GetExecution(ctx context.Context, id string) (*model.FlowExecution, error) {
	return e.storage.Executions().Get(ctx, id)
}

// InvalidateWorkflow drops a definition from the cache after an edit.
func (e *Engine) InvalidateWorkflow(id string) {
	e.workflows.Invalidate(id)
}

// stepContext merges the caller context with the entity reference used by
// placeholder substitution. Step results are not fed back into it.
func stepContext(req model.ExecutionRequest) map[string]any {
	out := make(map[string]any, len(req.Context)+2)
	for k, v := range req.Context {
		out[k] = v
	}
	out["entity_type"] = req.EntityType
	out["entity_id"] = req.EntityId
	return out
}
