package redis

import (
	"context"

	"github.com/clinicops/medflow/model"
	"github.com/clinicops/medflow/persistence"
	"github.com/clinicops/medflow/util"
	"github.com/google/uuid"
)

const NOTIFICATION_KEY string = "NOTIFICATION"

var _ persistence.NotificationStorage = new(notificationDao)

type notificationDao struct {
	*baseDao
	encoderDecoder util.EncoderDecoder[model.Notification]
}

func newNotificationDao(base *baseDao) *notificationDao {
	return &notificationDao{
		baseDao:        base,
		encoderDecoder: util.NewJsonEncoderDecoder[model.Notification](),
	}
}

func (d *notificationDao) Create(ctx context.Context, n model.Notification) error {
	if n.Id == "" {
		n.Id = uuid.New().String()
	}
	data, err := d.encoderDecoder.Encode(n)
	if err != nil {
		return err
	}
	key := d.getNamespaceKey(NOTIFICATION_KEY, n.UserId)
	if err := d.redisClient.HSet(ctx, key, n.Id, string(data)).Err(); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (d *notificationDao) ListByUser(ctx context.Context, userId string) ([]model.Notification, error) {
	key := d.getNamespaceKey(NOTIFICATION_KEY, userId)
	all, err := d.redisClient.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	out := make([]model.Notification, 0, len(all))
	for _, nStr := range all {
		n, err := d.encoderDecoder.Decode([]byte(nStr))
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, nil
}
