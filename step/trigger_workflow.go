package step

import (
	"context"

	"github.com/clinicops/medflow/model"
)

var _ Handler = new(triggerWorkflowHandler)

type triggerWorkflowHandler struct {
	runner FlowRunner
}

func NewTriggerWorkflowHandler(runner FlowRunner) *triggerWorkflowHandler {
	return &triggerWorkflowHandler{runner: runner}
}

func (h *triggerWorkflowHandler) Type() model.StepType {
	return model.STEP_TRIGGER_WORKFLOW
}

// Execute runs the target workflow against the same entity and context.
// Cycle detection lives in the runner, which tracks the chain of workflow
// ids through ctx.
func (h *triggerWorkflowHandler) Execute(ctx context.Context, wf *model.Workflow, st model.Step, execution *model.FlowExecution, flowContext map[string]any) (map[string]any, error) {
	workflowId, err := configString(st.Config, "workflow_id")
	if err != nil {
		return nil, err
	}
	result, err := h.runner.Run(ctx, model.ExecutionRequest{
		WorkflowId: workflowId,
		EntityType: execution.EntityType,
		EntityId:   execution.EntityId,
		Context:    flowContext,
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"execution_id": result.ExecutionId, "workflow_id": workflowId}, nil
}
