package model

type TriggerType string

const TRIGGER_EVENT TriggerType = "event"
const TRIGGER_WEBHOOK TriggerType = "webhook"
const TRIGGER_CONDITION TriggerType = "condition"
const TRIGGER_API_CALL TriggerType = "api_call"
const TRIGGER_DATABASE_CHANGE TriggerType = "database_change"
const TRIGGER_USER_ACTION TriggerType = "user_action"
const TRIGGER_AI_DETECTION TriggerType = "ai_detection"
const TRIGGER_SCHEDULE TriggerType = "schedule"
const TRIGGER_MANUAL TriggerType = "manual"
const TRIGGER_KEYWORD TriggerType = "keyword"
const TRIGGER_INTENT TriggerType = "intent"
const TRIGGER_MESSAGE_PATTERN TriggerType = "message_pattern"

func (t TriggerType) Valid() bool {
	switch t {
	case TRIGGER_EVENT, TRIGGER_WEBHOOK, TRIGGER_CONDITION, TRIGGER_API_CALL,
		TRIGGER_DATABASE_CHANGE, TRIGGER_USER_ACTION, TRIGGER_AI_DETECTION,
		TRIGGER_SCHEDULE, TRIGGER_MANUAL, TRIGGER_KEYWORD, TRIGGER_INTENT,
		TRIGGER_MESSAGE_PATTERN:
		return true
	}
	return false
}

type StepType string

const STEP_AI_RESPONSE StepType = "ai_response"
const STEP_SEND_NOTIFICATION StepType = "send_notification"
const STEP_CREATE_RECORD StepType = "create_record"
const STEP_UPDATE_STATUS StepType = "update_status"
const STEP_SEND_WHATSAPP StepType = "send_whatsapp"
const STEP_TRIGGER_WORKFLOW StepType = "trigger_workflow"

func (t StepType) Valid() bool {
	switch t {
	case STEP_AI_RESPONSE, STEP_SEND_NOTIFICATION, STEP_CREATE_RECORD,
		STEP_UPDATE_STATUS, STEP_SEND_WHATSAPP, STEP_TRIGGER_WORKFLOW:
		return true
	}
	return false
}

// Step is one unit of work inside a workflow. Config is interpreted by the
// handler matching Type. Condition, when non-empty, gates the step: a false
// result skips the step without failing the run.
type Step struct {
	Type      StepType       `json:"type"`
	Config    map[string]any `json:"config"`
	Condition string         `json:"condition,omitempty"`
}

type Workflow struct {
	Id            string         `json:"id"`
	Name          string         `json:"name"`
	TriggerType   TriggerType    `json:"triggerType"`
	TriggerConfig map[string]any `json:"triggerConfig"`
	Steps         []Step         `json:"steps"`
	IsActive      bool           `json:"isActive"`
	AiModel       string         `json:"aiModel,omitempty"`
}

// EventType reads trigger_config.event_type for event-triggered workflows.
func (w *Workflow) EventType() string {
	if w.TriggerConfig == nil {
		return ""
	}
	if v, ok := w.TriggerConfig["event_type"].(string); ok {
		return v
	}
	return ""
}
