package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/clinicops/medflow/model"
	"github.com/clinicops/medflow/persistence"
	"github.com/google/uuid"
)

var _ persistence.WorkflowStorage = new(workflowDao)

type workflowDao struct {
	db *DB
}

func newWorkflowDao(db *DB) *workflowDao {
	return &workflowDao{db: db}
}

func (d *workflowDao) Save(ctx context.Context, wf model.Workflow) error {
	if wf.Id == "" {
		wf.Id = uuid.New().String()
	}
	triggerConfig, err := json.Marshal(wf.TriggerConfig)
	if err != nil {
		return err
	}
	steps, err := json.Marshal(wf.Steps)
	if err != nil {
		return err
	}
	_, err = d.db.ExecContext(ctx, `
		INSERT INTO workflows (id, name, trigger_type, trigger_config, steps, is_active, ai_model)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			trigger_type = excluded.trigger_type,
			trigger_config = excluded.trigger_config,
			steps = excluded.steps,
			is_active = excluded.is_active,
			ai_model = excluded.ai_model,
			updated_at = datetime('now')`,
		wf.Id, wf.Name, string(wf.TriggerType), string(triggerConfig), string(steps), wf.IsActive, wf.AiModel)
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (d *workflowDao) Get(ctx context.Context, id string) (*model.Workflow, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT id, name, trigger_type, trigger_config, steps, is_active, ai_model
		FROM workflows WHERE id = ?`, id)
	wf, err := scanWorkflow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrNotFound
	}
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return wf, nil
}

func (d *workflowDao) Delete(ctx context.Context, id string) error {
	_, err := d.db.ExecContext(ctx, `DELETE FROM workflows WHERE id = ?`, id)
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (d *workflowDao) List(ctx context.Context) ([]model.Workflow, error) {
	return d.query(ctx, `
		SELECT id, name, trigger_type, trigger_config, steps, is_active, ai_model
		FROM workflows ORDER BY created_at`)
}

func (d *workflowDao) FindByEvent(ctx context.Context, eventType string) ([]model.Workflow, error) {
	return d.query(ctx, `
		SELECT id, name, trigger_type, trigger_config, steps, is_active, ai_model
		FROM workflows
		WHERE trigger_type = 'event' AND is_active = 1
		  AND json_extract(trigger_config, '$.event_type') = ?`, eventType)
}

func (d *workflowDao) FindByTrigger(ctx context.Context, trigger model.TriggerType) ([]model.Workflow, error) {
	return d.query(ctx, `
		SELECT id, name, trigger_type, trigger_config, steps, is_active, ai_model
		FROM workflows WHERE trigger_type = ? AND is_active = 1`, string(trigger))
}

func (d *workflowDao) query(ctx context.Context, q string, args ...any) ([]model.Workflow, error) {
	rows, err := d.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	defer rows.Close()
	var out []model.Workflow
	for rows.Next() {
		wf, err := scanWorkflow(rows)
		if err != nil {
			return nil, persistence.StorageLayerError{Message: err.Error()}
		}
		out = append(out, *wf)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row rowScanner) (*model.Workflow, error) {
	var wf model.Workflow
	var triggerType, triggerConfig, steps string
	if err := row.Scan(&wf.Id, &wf.Name, &triggerType, &triggerConfig, &steps, &wf.IsActive, &wf.AiModel); err != nil {
		return nil, err
	}
	wf.TriggerType = model.TriggerType(triggerType)
	if err := json.Unmarshal([]byte(triggerConfig), &wf.TriggerConfig); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(steps), &wf.Steps); err != nil {
		return nil, err
	}
	return &wf, nil
}
