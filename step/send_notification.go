package step

import (
	"context"
	"fmt"

	"github.com/clinicops/medflow/model"
	"github.com/clinicops/medflow/persistence"
	"github.com/clinicops/medflow/util"
	"github.com/google/uuid"
)

var _ Handler = new(sendNotificationHandler)

type sendNotificationHandler struct {
	storage persistence.NotificationStorage
}

func NewSendNotificationHandler(storage persistence.NotificationStorage) *sendNotificationHandler {
	return &sendNotificationHandler{storage: storage}
}

func (h *sendNotificationHandler) Type() model.StepType {
	return model.STEP_SEND_NOTIFICATION
}

func (h *sendNotificationHandler) Execute(ctx context.Context, wf *model.Workflow, st model.Step, execution *model.FlowExecution, flowContext map[string]any) (map[string]any, error) {
	userId := optionalString(st.Config, "userId")
	if userId == "" {
		userId, _ = flowContext["userId"].(string)
	}
	if userId == "" {
		return nil, fmt.Errorf("send_notification step has no userId in config or context")
	}
	title := optionalString(st.Config, "title")
	if title == "" {
		title = "Workflow notification"
	}
	message := optionalString(st.Config, "message")

	n := model.Notification{
		Id:         uuid.New().String(),
		UserId:     userId,
		Title:      util.Resolve(title, flowContext),
		Message:    util.Resolve(message, flowContext),
		EntityType: execution.EntityType,
		EntityId:   execution.EntityId,
	}
	if err := h.storage.Create(ctx, n); err != nil {
		return nil, err
	}
	return map[string]any{"notification_id": n.Id, "user_id": userId}, nil
}
