package redis

import (
	"context"
	"errors"

	"github.com/clinicops/medflow/model"
	"github.com/clinicops/medflow/persistence"
	"github.com/clinicops/medflow/util"
	"github.com/google/uuid"
	rd "github.com/redis/go-redis/v9"
)

const WORKFLOW_DEF string = "WORKFLOW"

var _ persistence.WorkflowStorage = new(workflowDao)

type workflowDao struct {
	*baseDao
	encoderDecoder util.EncoderDecoder[model.Workflow]
}

func newWorkflowDao(base *baseDao) *workflowDao {
	return &workflowDao{
		baseDao:        base,
		encoderDecoder: util.NewJsonEncoderDecoder[model.Workflow](),
	}
}

func (d *workflowDao) Save(ctx context.Context, wf model.Workflow) error {
	if wf.Id == "" {
		wf.Id = uuid.New().String()
	}
	data, err := d.encoderDecoder.Encode(wf)
	if err != nil {
		return err
	}
	key := d.getNamespaceKey(WORKFLOW_DEF)
	if err := d.redisClient.HSet(ctx, key, wf.Id, string(data)).Err(); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (d *workflowDao) Get(ctx context.Context, id string) (*model.Workflow, error) {
	key := d.getNamespaceKey(WORKFLOW_DEF)
	wfStr, err := d.redisClient.HGet(ctx, key, id).Result()
	if errors.Is(err, rd.Nil) {
		return nil, persistence.ErrNotFound
	}
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return d.encoderDecoder.Decode([]byte(wfStr))
}

func (d *workflowDao) Delete(ctx context.Context, id string) error {
	key := d.getNamespaceKey(WORKFLOW_DEF)
	if err := d.redisClient.HDel(ctx, key, id).Err(); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (d *workflowDao) List(ctx context.Context) ([]model.Workflow, error) {
	return d.scan(ctx, func(wf *model.Workflow) bool { return true })
}

func (d *workflowDao) FindByEvent(ctx context.Context, eventType string) ([]model.Workflow, error) {
	return d.scan(ctx, func(wf *model.Workflow) bool {
		return wf.TriggerType == model.TRIGGER_EVENT && wf.IsActive && wf.EventType() == eventType
	})
}

func (d *workflowDao) FindByTrigger(ctx context.Context, trigger model.TriggerType) ([]model.Workflow, error) {
	return d.scan(ctx, func(wf *model.Workflow) bool {
		return wf.TriggerType == trigger && wf.IsActive
	})
}

func (d *workflowDao) scan(ctx context.Context, match func(*model.Workflow) bool) ([]model.Workflow, error) {
	key := d.getNamespaceKey(WORKFLOW_DEF)
	all, err := d.redisClient.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	var out []model.Workflow
	for _, wfStr := range all {
		wf, err := d.encoderDecoder.Decode([]byte(wfStr))
		if err != nil {
			return nil, err
		}
		if match(wf) {
			out = append(out, *wf)
		}
	}
	return out, nil
}
