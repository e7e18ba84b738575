package step

import (
	"context"
	"fmt"

	"github.com/clinicops/medflow/model"
	"github.com/clinicops/medflow/persistence"
	"github.com/clinicops/medflow/util"
)

var _ Handler = new(createRecordHandler)

type createRecordHandler struct {
	storage persistence.RecordStorage
}

func NewCreateRecordHandler(storage persistence.RecordStorage) *createRecordHandler {
	return &createRecordHandler{storage: storage}
}

func (h *createRecordHandler) Type() model.StepType {
	return model.STEP_CREATE_RECORD
}

func (h *createRecordHandler) Execute(ctx context.Context, wf *model.Workflow, st model.Step, execution *model.FlowExecution, flowContext map[string]any) (map[string]any, error) {
	table, err := configString(st.Config, "table")
	if err != nil {
		return nil, err
	}
	data, ok := st.Config["data"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("create_record step config %q must be a map", "data")
	}
	resolved := util.ResolveParams(data, flowContext)
	recordId, err := h.storage.Insert(ctx, table, resolved)
	if err != nil {
		return nil, err
	}
	return map[string]any{"record_id": recordId, "table": table}, nil
}
