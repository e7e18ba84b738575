package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/clinicops/medflow/model"
	"github.com/clinicops/medflow/persistence"
)

var _ persistence.ExecutionStorage = new(executionDao)

type executionDao struct {
	db *DB
}

func newExecutionDao(db *DB) *executionDao {
	return &executionDao{db: db}
}

func (d *executionDao) Save(ctx context.Context, execution *model.FlowExecution) error {
	stepResults, err := json.Marshal(execution.StepResults)
	if err != nil {
		return err
	}
	var completedAt sql.NullTime
	if execution.CompletedAt != nil {
		completedAt = sql.NullTime{Time: *execution.CompletedAt, Valid: true}
	}
	_, err = d.db.ExecContext(ctx, `
		INSERT INTO flow_executions (id, workflow_id, entity_type, entity_id, state, current_step, step_results, error, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			state = excluded.state,
			current_step = excluded.current_step,
			step_results = excluded.step_results,
			error = excluded.error,
			completed_at = excluded.completed_at`,
		execution.Id, execution.WorkflowId, execution.EntityType, execution.EntityId,
		string(execution.State), execution.CurrentStep, string(stepResults),
		execution.Error, execution.StartedAt.UTC(), completedAt)
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (d *executionDao) Get(ctx context.Context, id string) (*model.FlowExecution, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT id, workflow_id, entity_type, entity_id, state, current_step, step_results, error, started_at, completed_at
		FROM flow_executions WHERE id = ?`, id)
	execution, err := scanExecution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrNotFound
	}
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return execution, nil
}

func (d *executionDao) ListByWorkflow(ctx context.Context, workflowId string) ([]model.FlowExecution, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, workflow_id, entity_type, entity_id, state, current_step, step_results, error, started_at, completed_at
		FROM flow_executions WHERE workflow_id = ? ORDER BY started_at`, workflowId)
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	defer rows.Close()
	var out []model.FlowExecution
	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, persistence.StorageLayerError{Message: err.Error()}
		}
		out = append(out, *execution)
	}
	return out, rows.Err()
}

func scanExecution(row rowScanner) (*model.FlowExecution, error) {
	var execution model.FlowExecution
	var state, stepResults string
	var startedAt time.Time
	var completedAt sql.NullTime
	if err := row.Scan(&execution.Id, &execution.WorkflowId, &execution.EntityType, &execution.EntityId,
		&state, &execution.CurrentStep, &stepResults, &execution.Error, &startedAt, &completedAt); err != nil {
		return nil, err
	}
	execution.State = model.ExecutionState(state)
	execution.StartedAt = startedAt
	if completedAt.Valid {
		t := completedAt.Time
		execution.CompletedAt = &t
	}
	if err := json.Unmarshal([]byte(stepResults), &execution.StepResults); err != nil {
		return nil, err
	}
	return &execution, nil
}
