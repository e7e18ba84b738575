package step

import (
	"context"
	"encoding/json"

	"github.com/clinicops/medflow/logger"
	"github.com/clinicops/medflow/model"
	"github.com/clinicops/medflow/util"
	"go.uber.org/zap"
)

var _ Handler = new(aiResponseHandler)

type aiResponseHandler struct {
	svc AiService
}

func NewAiResponseHandler(svc AiService) *aiResponseHandler {
	return &aiResponseHandler{svc: svc}
}

func (h *aiResponseHandler) Type() model.StepType {
	return model.STEP_AI_RESPONSE
}

func (h *aiResponseHandler) Execute(ctx context.Context, wf *model.Workflow, st model.Step, execution *model.FlowExecution, flowContext map[string]any) (map[string]any, error) {
	promptTemplate, err := configString(st.Config, "prompt")
	if err != nil {
		return nil, err
	}
	prompt := util.Resolve(promptTemplate, flowContext)
	auxContext, err := json.Marshal(flowContext)
	if err != nil {
		return nil, err
	}
	logger.Debug("running ai step", zap.String("workflow", wf.Id), zap.String("execution", execution.Id))
	answer, err := h.svc.Ask(ctx, wf.AiModel, prompt, string(auxContext))
	if err != nil {
		return nil, err
	}
	return map[string]any{"response": answer.Text, "model": answer.Model}, nil
}
