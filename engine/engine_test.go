package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clinicops/medflow/ai"
	"github.com/clinicops/medflow/model"
	"github.com/clinicops/medflow/persistence"
)

type memStorage struct {
	mu            sync.Mutex
	workflows     map[string]model.Workflow
	executions    map[string]model.FlowExecution
	records       map[string][]map[string]any
	notifications []model.Notification
}

func newMemStorage() *memStorage {
	return &memStorage{
		workflows:  make(map[string]model.Workflow),
		executions: make(map[string]model.FlowExecution),
		records:    make(map[string][]map[string]any),
	}
}

func (m *memStorage) Workflows() persistence.WorkflowStorage         { return (*memWorkflows)(m) }
func (m *memStorage) Executions() persistence.ExecutionStorage       { return (*memExecutions)(m) }
func (m *memStorage) Records() persistence.RecordStorage             { return (*memRecords)(m) }
func (m *memStorage) Notifications() persistence.NotificationStorage { return (*memNotifications)(m) }
func (m *memStorage) Close() error                                   { return nil }

type memWorkflows memStorage

func (m *memWorkflows) Save(ctx context.Context, wf model.Workflow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workflows[wf.Id] = wf
	return nil
}

func (m *memWorkflows) Get(ctx context.Context, id string) (*model.Workflow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wf, ok := m.workflows[id]
	if !ok {
		return nil, persistence.ErrNotFound
	}
	return &wf, nil
}

func (m *memWorkflows) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.workflows, id)
	return nil
}

func (m *memWorkflows) List(ctx context.Context) ([]model.Workflow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Workflow, 0, len(m.workflows))
	for _, wf := range m.workflows {
		out = append(out, wf)
	}
	return out, nil
}

func (m *memWorkflows) FindByEvent(ctx context.Context, eventType string) ([]model.Workflow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Workflow
	for _, wf := range m.workflows {
		if wf.IsActive && wf.TriggerType == model.TRIGGER_EVENT && wf.EventType() == eventType {
			out = append(out, wf)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Id < out[j].Id })
	return out, nil
}

func (m *memWorkflows) FindByTrigger(ctx context.Context, trigger model.TriggerType) ([]model.Workflow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Workflow
	for _, wf := range m.workflows {
		if wf.IsActive && wf.TriggerType == trigger {
			out = append(out, wf)
		}
	}
	return out, nil
}

type memExecutions memStorage

func (m *memExecutions) Save(ctx context.Context, execution *model.FlowExecution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *execution
	copied.StepResults = append([]model.StepResult(nil), execution.StepResults...)
	m.executions[execution.Id] = copied
	return nil
}

func (m *memExecutions) Get(ctx context.Context, id string) (*model.FlowExecution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ex, ok := m.executions[id]
	if !ok {
		return nil, persistence.ErrNotFound
	}
	return &ex, nil
}

func (m *memExecutions) ListByWorkflow(ctx context.Context, workflowId string) ([]model.FlowExecution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.FlowExecution
	for _, ex := range m.executions {
		if ex.WorkflowId == workflowId {
			out = append(out, ex)
		}
	}
	return out, nil
}

type memRecords memStorage

func (m *memRecords) Insert(ctx context.Context, table string, data map[string]any) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := fmt.Sprintf("rec-%d", len(m.records[table])+1)
	row := map[string]any{"id": id}
	for k, v := range data {
		row[k] = v
	}
	m.records[table] = append(m.records[table], row)
	return id, nil
}

func (m *memRecords) UpdateField(ctx context.Context, table string, field string, value any, recordId string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.records[table] {
		if row["id"] == recordId {
			row[field] = value
			return nil
		}
	}
	return persistence.ErrNotFound
}

func (m *memRecords) Get(ctx context.Context, table string, recordId string) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.records[table] {
		if row["id"] == recordId {
			return row, nil
		}
	}
	return nil, persistence.ErrNotFound
}

type memNotifications memStorage

func (m *memNotifications) Create(ctx context.Context, n model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, n)
	return nil
}

func (m *memNotifications) ListByUser(ctx context.Context, userId string) ([]model.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Notification
	for _, n := range m.notifications {
		if n.UserId == userId {
			out = append(out, n)
		}
	}
	return out, nil
}

type fakeAi struct{}

func (fakeAi) Ask(ctx context.Context, model string, prompt string, auxContext string) (*ai.Answer, error) {
	return &ai.Answer{Text: "answer to: " + prompt, Model: "fake"}, nil
}

type fakeMessenger struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeMessenger) SendText(ctx context.Context, to string, body string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, to+": "+body)
	return "wamid.1", nil
}

func newTestEngine(storage persistence.Storage) *Engine {
	return New(storage, fakeAi{}, &fakeMessenger{}, Config{})
}

func notifyWorkflow(id string, steps ...model.Step) model.Workflow {
	if len(steps) == 0 {
		steps = []model.Step{{
			Type:   model.STEP_SEND_NOTIFICATION,
			Config: map[string]any{"userId": "u-1", "message": "hi {{entity_id}}"},
		}}
	}
	return model.Workflow{
		Id:          id,
		Name:        "wf " + id,
		TriggerType: model.TRIGGER_MANUAL,
		Steps:       steps,
		IsActive:    true,
	}
}

func TestExecuteWorkflowNotFound(t *testing.T) {
	storage := newMemStorage()
	e := newTestEngine(storage)

	_, err := e.ExecuteWorkflow(context.Background(), model.ExecutionRequest{WorkflowId: "missing"})
	require.ErrorIs(t, err, ErrWorkflowNotFound)
	require.Empty(t, storage.executions)
}

func TestExecuteWorkflowInactive(t *testing.T) {
	storage := newMemStorage()
	wf := notifyWorkflow("wf-1")
	wf.IsActive = false
	require.NoError(t, storage.Workflows().Save(context.Background(), wf))
	e := newTestEngine(storage)

	_, err := e.ExecuteWorkflow(context.Background(), model.ExecutionRequest{WorkflowId: "wf-1"})
	require.ErrorIs(t, err, ErrWorkflowInactive)
	// No execution row is written for a rejected run.
	require.Empty(t, storage.executions)
}

func TestExecuteWorkflowSuccess(t *testing.T) {
	storage := newMemStorage()
	wf := notifyWorkflow("wf-1",
		model.Step{
			Type:   model.STEP_SEND_NOTIFICATION,
			Config: map[string]any{"userId": "u-1", "title": "Appointment", "message": "hello {{patient}}"},
		},
		model.Step{
			Type: model.STEP_CREATE_RECORD,
			Config: map[string]any{
				"table": "followups",
				"data":  map[string]any{"patient": "{{patient}}", "entity": "{{entity_id}}"},
			},
		},
	)
	require.NoError(t, storage.Workflows().Save(context.Background(), wf))
	e := newTestEngine(storage)

	result, err := e.ExecuteWorkflow(context.Background(), model.ExecutionRequest{
		WorkflowId: "wf-1",
		EntityType: "appointment",
		EntityId:   "a-9",
		Context:    map[string]any{"patient": "Lina"},
	})
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Len(t, result.Results, 2)

	execution, err := storage.Executions().Get(context.Background(), result.ExecutionId)
	require.NoError(t, err)
	require.Equal(t, model.EXECUTION_COMPLETED, execution.State)
	require.Equal(t, 2, execution.CurrentStep)
	require.NotNil(t, execution.CompletedAt)

	require.Len(t, storage.notifications, 1)
	require.Equal(t, "hello Lina", storage.notifications[0].Message)
	require.Equal(t, "appointment", storage.notifications[0].EntityType)

	rows := storage.records["followups"]
	require.Len(t, rows, 1)
	require.Equal(t, "Lina", rows[0]["patient"])
	require.Equal(t, "a-9", rows[0]["entity"])
}

func TestExecuteWorkflowFailureStopsRun(t *testing.T) {
	storage := newMemStorage()
	wf := notifyWorkflow("wf-1",
		model.Step{
			Type:   model.STEP_SEND_NOTIFICATION,
			Config: map[string]any{"userId": "u-1", "message": "first"},
		},
		model.Step{
			// Missing the data map, fails at execution time.
			Type:   model.STEP_CREATE_RECORD,
			Config: map[string]any{"table": "followups"},
		},
		model.Step{
			Type:   model.STEP_SEND_NOTIFICATION,
			Config: map[string]any{"userId": "u-1", "message": "never sent"},
		},
	)
	require.NoError(t, storage.Workflows().Save(context.Background(), wf))
	e := newTestEngine(storage)

	_, err := e.ExecuteWorkflow(context.Background(), model.ExecutionRequest{WorkflowId: "wf-1"})
	require.Error(t, err)

	executions, err := storage.Executions().ListByWorkflow(context.Background(), "wf-1")
	require.NoError(t, err)
	require.Len(t, executions, 1)
	execution := executions[0]
	require.Equal(t, model.EXECUTION_FAILED, execution.State)
	require.NotEmpty(t, execution.Error)
	require.NotNil(t, execution.CompletedAt)
	// One success entry plus the error entry; the third step never ran.
	require.Len(t, execution.StepResults, 2)
	require.Empty(t, execution.StepResults[0].Error)
	require.NotEmpty(t, execution.StepResults[1].Error)
	require.Len(t, storage.notifications, 1)
}

func TestExecuteWorkflowSkipsOnFalseCondition(t *testing.T) {
	storage := newMemStorage()
	wf := notifyWorkflow("wf-1",
		model.Step{
			Type:      model.STEP_SEND_NOTIFICATION,
			Config:    map[string]any{"userId": "u-1", "message": "urgent"},
			Condition: `{{priority}} === "high"`,
		},
		model.Step{
			Type:   model.STEP_SEND_NOTIFICATION,
			Config: map[string]any{"userId": "u-1", "message": "routine"},
		},
	)
	require.NoError(t, storage.Workflows().Save(context.Background(), wf))
	e := newTestEngine(storage)

	result, err := e.ExecuteWorkflow(context.Background(), model.ExecutionRequest{
		WorkflowId: "wf-1",
		Context:    map[string]any{"priority": "low"},
	})
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Len(t, result.Results, 2)
	require.True(t, result.Results[0].Skipped)
	require.Equal(t, "Condition not met", result.Results[0].Reason)
	require.False(t, result.Results[1].Skipped)

	require.Len(t, storage.notifications, 1)
	require.Equal(t, "routine", storage.notifications[0].Message)
}

func TestExecuteWorkflowConditionError(t *testing.T) {
	storage := newMemStorage()
	wf := notifyWorkflow("wf-1",
		model.Step{
			Type:      model.STEP_SEND_NOTIFICATION,
			Config:    map[string]any{"userId": "u-1", "message": "hi"},
			Condition: `{{priority}} ===`,
		},
	)
	require.NoError(t, storage.Workflows().Save(context.Background(), wf))
	e := newTestEngine(storage)

	_, err := e.ExecuteWorkflow(context.Background(), model.ExecutionRequest{WorkflowId: "wf-1"})
	require.Error(t, err)

	executions, _ := storage.Executions().ListByWorkflow(context.Background(), "wf-1")
	require.Len(t, executions, 1)
	require.Equal(t, model.EXECUTION_FAILED, executions[0].State)
}

func TestExecuteWorkflowUnknownStepType(t *testing.T) {
	storage := newMemStorage()
	wf := notifyWorkflow("wf-1", model.Step{Type: model.StepType("nope"), Config: map[string]any{}})
	require.NoError(t, storage.Workflows().Save(context.Background(), wf))
	e := newTestEngine(storage)

	_, err := e.ExecuteWorkflow(context.Background(), model.ExecutionRequest{WorkflowId: "wf-1"})
	require.Error(t, err)
	executions, _ := storage.Executions().ListByWorkflow(context.Background(), "wf-1")
	require.Len(t, executions, 1)
	require.Equal(t, model.EXECUTION_FAILED, executions[0].State)
}

func TestTriggerWorkflowChain(t *testing.T) {
	storage := newMemStorage()
	child := notifyWorkflow("wf-child")
	parent := notifyWorkflow("wf-parent", model.Step{
		Type:   model.STEP_TRIGGER_WORKFLOW,
		Config: map[string]any{"workflow_id": "wf-child"},
	})
	require.NoError(t, storage.Workflows().Save(context.Background(), child))
	require.NoError(t, storage.Workflows().Save(context.Background(), parent))
	e := newTestEngine(storage)

	result, err := e.ExecuteWorkflow(context.Background(), model.ExecutionRequest{
		WorkflowId: "wf-parent",
		EntityId:   "e-1",
	})
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Len(t, storage.notifications, 1)

	executions, _ := storage.Executions().ListByWorkflow(context.Background(), "wf-child")
	require.Len(t, executions, 1)
	require.Equal(t, model.EXECUTION_COMPLETED, executions[0].State)
}

func TestTriggerWorkflowCycleDetected(t *testing.T) {
	storage := newMemStorage()
	// wf-a triggers wf-b, wf-b triggers wf-a again.
	a := notifyWorkflow("wf-a", model.Step{
		Type:   model.STEP_TRIGGER_WORKFLOW,
		Config: map[string]any{"workflow_id": "wf-b"},
	})
	b := notifyWorkflow("wf-b", model.Step{
		Type:   model.STEP_TRIGGER_WORKFLOW,
		Config: map[string]any{"workflow_id": "wf-a"},
	})
	require.NoError(t, storage.Workflows().Save(context.Background(), a))
	require.NoError(t, storage.Workflows().Save(context.Background(), b))
	e := newTestEngine(storage)

	_, err := e.ExecuteWorkflow(context.Background(), model.ExecutionRequest{WorkflowId: "wf-a"})
	require.ErrorIs(t, err, ErrWorkflowCycle)

	// Both started executions settle as failed.
	for _, id := range []string{"wf-a", "wf-b"} {
		executions, _ := storage.Executions().ListByWorkflow(context.Background(), id)
		require.Len(t, executions, 1)
		require.Equal(t, model.EXECUTION_FAILED, executions[0].State)
	}
}

func TestTriggerChainDepthLimit(t *testing.T) {
	storage := newMemStorage()
	// wf-0 -> wf-1 -> wf-2 -> wf-3, depth capped at 3.
	for i := 0; i < 4; i++ {
		id := fmt.Sprintf("wf-%d", i)
		var steps []model.Step
		if i < 3 {
			steps = []model.Step{{
				Type:   model.STEP_TRIGGER_WORKFLOW,
				Config: map[string]any{"workflow_id": fmt.Sprintf("wf-%d", i+1)},
			}}
		}
		if i == 3 {
			steps = []model.Step{{
				Type:   model.STEP_SEND_NOTIFICATION,
				Config: map[string]any{"userId": "u-1", "message": "deep"},
			}}
		}
		require.NoError(t, storage.Workflows().Save(context.Background(), notifyWorkflow(id, steps...)))
	}
	e := New(storage, fakeAi{}, &fakeMessenger{}, Config{MaxDepth: 3})

	_, err := e.ExecuteWorkflow(context.Background(), model.ExecutionRequest{WorkflowId: "wf-0"})
	require.ErrorIs(t, err, ErrWorkflowCycle)
	require.Empty(t, storage.notifications)
}

func TestTriggerWorkflowByEvent(t *testing.T) {
	storage := newMemStorage()
	eventWf := func(id string, steps ...model.Step) model.Workflow {
		wf := notifyWorkflow(id, steps...)
		wf.TriggerType = model.TRIGGER_EVENT
		wf.TriggerConfig = map[string]any{"event_type": "appointment_created"}
		return wf
	}
	good := eventWf("wf-good")
	bad := eventWf("wf-bad", model.Step{
		Type:   model.STEP_CREATE_RECORD,
		Config: map[string]any{"table": "x"},
	})
	inactive := eventWf("wf-off")
	inactive.IsActive = false
	other := eventWf("wf-other")
	other.TriggerConfig = map[string]any{"event_type": "appointment_cancelled"}
	for _, wf := range []model.Workflow{good, bad, inactive, other} {
		require.NoError(t, storage.Workflows().Save(context.Background(), wf))
	}
	e := newTestEngine(storage)

	outcomes, err := e.TriggerWorkflowByEvent(context.Background(), "appointment_created",
		"appointment", "a-1", map[string]any{"patient": "Lina"})
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	byId := map[string]model.TriggerOutcome{}
	for _, o := range outcomes {
		byId[o.WorkflowId] = o
	}
	require.NotEmpty(t, byId["wf-good"].ExecutionId)
	require.Empty(t, byId["wf-good"].Error)
	require.NotEmpty(t, byId["wf-bad"].Error)
	require.NotContains(t, byId, "wf-off")
	require.NotContains(t, byId, "wf-other")
}

func TestTriggerWorkflowByEventNoMatch(t *testing.T) {
	storage := newMemStorage()
	e := newTestEngine(storage)
	outcomes, err := e.TriggerWorkflowByEvent(context.Background(), "nothing", "", "", nil)
	require.NoError(t, err)
	require.Empty(t, outcomes)
}

func TestGetExecutionNotFound(t *testing.T) {
	storage := newMemStorage()
	e := newTestEngine(storage)
	_, err := e.GetExecution(context.Background(), "missing")
	require.True(t, errors.Is(err, persistence.ErrNotFound))
}
