package model

import "time"

type ExecutionState string

const EXECUTION_RUNNING ExecutionState = "running"
const EXECUTION_COMPLETED ExecutionState = "completed"
const EXECUTION_FAILED ExecutionState = "failed"

// StepResult is one entry per attempted step. Exactly one of Result, Skipped
// or Error is meaningful for a given entry.
type StepResult struct {
	Step    int            `json:"step"`
	Result  map[string]any `json:"result,omitempty"`
	Skipped bool           `json:"skipped,omitempty"`
	Reason  string         `json:"reason,omitempty"`
	Error   string         `json:"error,omitempty"`
}

type FlowExecution struct {
	Id          string         `json:"id"`
	WorkflowId  string         `json:"workflowId"`
	EntityType  string         `json:"entityType"`
	EntityId    string         `json:"entityId"`
	State       ExecutionState `json:"state"`
	CurrentStep int            `json:"currentStep"`
	StepResults []StepResult   `json:"stepResults"`
	Error       string         `json:"error,omitempty"`
	StartedAt   time.Time      `json:"startedAt"`
	CompletedAt *time.Time     `json:"completedAt,omitempty"`
}

// ExecutionRequest is the caller contract for running one workflow against
// an external entity. Context keys feed placeholder substitution and
// condition evaluation; step results are not fed back into it.
type ExecutionRequest struct {
	WorkflowId string         `json:"workflowId"`
	EntityType string         `json:"entityType"`
	EntityId   string         `json:"entityId"`
	Context    map[string]any `json:"context,omitempty"`
}

type ExecutionResult struct {
	Success     bool         `json:"success"`
	ExecutionId string       `json:"executionId"`
	Results     []StepResult `json:"results"`
}

// TriggerOutcome is one settled per-definition outcome of an event trigger.
type TriggerOutcome struct {
	WorkflowId  string `json:"workflowId"`
	ExecutionId string `json:"executionId,omitempty"`
	Error       string `json:"error,omitempty"`
}

type WorkflowEvent struct {
	EventType  string         `json:"eventType"`
	EntityType string         `json:"entityType"`
	EntityId   string         `json:"entityId"`
	Context    map[string]any `json:"context,omitempty"`
}
