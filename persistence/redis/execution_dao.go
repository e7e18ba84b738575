package redis

import (
	"context"
	"errors"

	"github.com/clinicops/medflow/model"
	"github.com/clinicops/medflow/persistence"
	"github.com/clinicops/medflow/util"
	rd "github.com/redis/go-redis/v9"
)

const EXECUTION_KEY string = "EXECUTION"
const EXECUTION_INDEX_KEY string = "EXECUTION_BY_WF"

var _ persistence.ExecutionStorage = new(executionDao)

type executionDao struct {
	*baseDao
	encoderDecoder util.EncoderDecoder[model.FlowExecution]
}

func newExecutionDao(base *baseDao) *executionDao {
	return &executionDao{
		baseDao:        base,
		encoderDecoder: util.NewJsonEncoderDecoder[model.FlowExecution](),
	}
}

func (d *executionDao) Save(ctx context.Context, execution *model.FlowExecution) error {
	data, err := d.encoderDecoder.Encode(*execution)
	if err != nil {
		return err
	}
	key := d.getNamespaceKey(EXECUTION_KEY)
	if err := d.redisClient.HSet(ctx, key, execution.Id, string(data)).Err(); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	indexKey := d.getNamespaceKey(EXECUTION_INDEX_KEY, execution.WorkflowId)
	if err := d.redisClient.SAdd(ctx, indexKey, execution.Id).Err(); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (d *executionDao) Get(ctx context.Context, id string) (*model.FlowExecution, error) {
	key := d.getNamespaceKey(EXECUTION_KEY)
	executionStr, err := d.redisClient.HGet(ctx, key, id).Result()
	if errors.Is(err, rd.Nil) {
		return nil, persistence.ErrNotFound
	}
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return d.encoderDecoder.Decode([]byte(executionStr))
}

func (d *executionDao) ListByWorkflow(ctx context.Context, workflowId string) ([]model.FlowExecution, error) {
	indexKey := d.getNamespaceKey(EXECUTION_INDEX_KEY, workflowId)
	ids, err := d.redisClient.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	out := make([]model.FlowExecution, 0, len(ids))
	for _, id := range ids {
		execution, err := d.Get(ctx, id)
		if errors.Is(err, persistence.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *execution)
	}
	return out, nil
}
