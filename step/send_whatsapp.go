package step

import (
	"context"

	"github.com/clinicops/medflow/model"
	"github.com/clinicops/medflow/util"
)

var _ Handler = new(sendWhatsappHandler)

type sendWhatsappHandler struct {
	messenger Messenger
}

func NewSendWhatsappHandler(messenger Messenger) *sendWhatsappHandler {
	return &sendWhatsappHandler{messenger: messenger}
}

func (h *sendWhatsappHandler) Type() model.StepType {
	return model.STEP_SEND_WHATSAPP
}

func (h *sendWhatsappHandler) Execute(ctx context.Context, wf *model.Workflow, st model.Step, execution *model.FlowExecution, flowContext map[string]any) (map[string]any, error) {
	phone, err := configString(st.Config, "phone")
	if err != nil {
		return nil, err
	}
	message, err := configString(st.Config, "message")
	if err != nil {
		return nil, err
	}
	phone = util.Resolve(phone, flowContext)
	body := util.Resolve(message, flowContext)
	messageId, err := h.messenger.SendText(ctx, phone, body)
	if err != nil {
		return nil, err
	}
	return map[string]any{"message_id": messageId, "to": phone}, nil
}
