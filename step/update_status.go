package step

import (
	"context"
	"fmt"

	"github.com/clinicops/medflow/model"
	"github.com/clinicops/medflow/persistence"
	"github.com/clinicops/medflow/util"
)

var _ Handler = new(updateStatusHandler)

type updateStatusHandler struct {
	storage persistence.RecordStorage
}

func NewUpdateStatusHandler(storage persistence.RecordStorage) *updateStatusHandler {
	return &updateStatusHandler{storage: storage}
}

func (h *updateStatusHandler) Type() model.StepType {
	return model.STEP_UPDATE_STATUS
}

func (h *updateStatusHandler) Execute(ctx context.Context, wf *model.Workflow, st model.Step, execution *model.FlowExecution, flowContext map[string]any) (map[string]any, error) {
	table, err := configString(st.Config, "table")
	if err != nil {
		return nil, err
	}
	field, err := configString(st.Config, "status_field")
	if err != nil {
		return nil, err
	}
	value, ok := st.Config["status_value"]
	if !ok {
		return nil, fmt.Errorf("step config missing %q", "status_value")
	}
	if s, ok := value.(string); ok {
		value = util.Resolve(s, flowContext)
	}
	if execution.EntityId == "" {
		return nil, fmt.Errorf("update_status step requires an entity id")
	}
	if err := h.storage.UpdateField(ctx, table, field, value, execution.EntityId); err != nil {
		return nil, err
	}
	return map[string]any{"updated": true, "table": table, "field": field}, nil
}
