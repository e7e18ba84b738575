package sqlite

import (
	"context"
	"time"

	"github.com/clinicops/medflow/model"
	"github.com/clinicops/medflow/persistence"
	"github.com/google/uuid"
)

var _ persistence.NotificationStorage = new(notificationDao)

type notificationDao struct {
	db *DB
}

func newNotificationDao(db *DB) *notificationDao {
	return &notificationDao{db: db}
}

func (d *notificationDao) Create(ctx context.Context, n model.Notification) error {
	if n.Id == "" {
		n.Id = uuid.New().String()
	}
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, title, message, entity_type, entity_id, read)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.Id, n.UserId, n.Title, n.Message, n.EntityType, n.EntityId, n.Read)
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (d *notificationDao) ListByUser(ctx context.Context, userId string) ([]model.Notification, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, user_id, title, message, entity_type, entity_id, read, created_at
		FROM notifications WHERE user_id = ? ORDER BY created_at DESC`, userId)
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	defer rows.Close()
	var out []model.Notification
	for rows.Next() {
		var n model.Notification
		var createdAt time.Time
		if err := rows.Scan(&n.Id, &n.UserId, &n.Title, &n.Message, &n.EntityType, &n.EntityId, &n.Read, &createdAt); err != nil {
			return nil, persistence.StorageLayerError{Message: err.Error()}
		}
		n.CreatedAt = createdAt
		out = append(out, n)
	}
	return out, rows.Err()
}
