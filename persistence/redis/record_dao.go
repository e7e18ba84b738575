package redis

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/clinicops/medflow/persistence"
	"github.com/google/uuid"
	rd "github.com/redis/go-redis/v9"
)

const RECORD_KEY string = "RECORD"

var _ persistence.RecordStorage = new(recordDao)

// recordDao maps caller-named tables to one hash per table, field id,
// value JSON.
type recordDao struct {
	*baseDao
}

func newRecordDao(base *baseDao) *recordDao {
	return &recordDao{baseDao: base}
}

func (d *recordDao) Insert(ctx context.Context, table string, data map[string]any) (string, error) {
	if err := persistence.ValidIdentifier(table); err != nil {
		return "", err
	}
	id, _ := data["id"].(string)
	if id == "" {
		id = uuid.New().String()
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	key := d.getNamespaceKey(RECORD_KEY, table)
	if err := d.redisClient.HSet(ctx, key, id, string(payload)).Err(); err != nil {
		return "", persistence.StorageLayerError{Message: err.Error()}
	}
	return id, nil
}

func (d *recordDao) UpdateField(ctx context.Context, table string, field string, value any, recordId string) error {
	if err := persistence.ValidIdentifier(table); err != nil {
		return err
	}
	if err := persistence.ValidIdentifier(field); err != nil {
		return err
	}
	data, err := d.Get(ctx, table, recordId)
	if err != nil {
		return err
	}
	data[field] = value
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	key := d.getNamespaceKey(RECORD_KEY, table)
	if err := d.redisClient.HSet(ctx, key, recordId, string(payload)).Err(); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (d *recordDao) Get(ctx context.Context, table string, recordId string) (map[string]any, error) {
	if err := persistence.ValidIdentifier(table); err != nil {
		return nil, err
	}
	key := d.getNamespaceKey(RECORD_KEY, table)
	payload, err := d.redisClient.HGet(ctx, key, recordId).Result()
	if errors.Is(err, rd.Nil) {
		return nil, persistence.ErrNotFound
	}
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		return nil, err
	}
	return data, nil
}
