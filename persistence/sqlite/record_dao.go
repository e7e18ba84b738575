package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/clinicops/medflow/persistence"
	"github.com/google/uuid"
)

var _ persistence.RecordStorage = new(recordDao)

// recordDao stores caller-named tables as (id, data) rows with a JSON data
// column, so workflow authors can target tables that were never migrated.
type recordDao struct {
	db *DB

	mu      sync.Mutex
	created map[string]bool
}

func newRecordDao(db *DB) *recordDao {
	return &recordDao{db: db, created: make(map[string]bool)}
}

func (d *recordDao) ensureTable(ctx context.Context, table string) error {
	if err := persistence.ValidIdentifier(table); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.created[table] {
		return nil
	}
	_, err := d.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			data TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME NOT NULL DEFAULT (datetime('now'))
		)`, table))
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	d.created[table] = true
	return nil
}

func (d *recordDao) Insert(ctx context.Context, table string, data map[string]any) (string, error) {
	if err := d.ensureTable(ctx, table); err != nil {
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
	_, err = d.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (id, data) VALUES (?, ?)`, table), id, string(payload))
	if err != nil {
		return "", persistence.StorageLayerError{Message: err.Error()}
	}
	return id, nil
}

func (d *recordDao) UpdateField(ctx context.Context, table string, field string, value any, recordId string) error {
	if err := d.ensureTable(ctx, table); err != nil {
		return err
	}
	if err := persistence.ValidIdentifier(field); err != nil {
		return err
	}
	res, err := d.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET data = json_set(data, '$.%s', ?) WHERE id = ?`, table, field),
		fmt.Sprintf("%v", value), recordId)
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func (d *recordDao) Get(ctx context.Context, table string, recordId string) (map[string]any, error) {
	if err := d.ensureTable(ctx, table); err != nil {
		return nil, err
	}
	var payload string
	err := d.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT data FROM %s WHERE id = ?`, table), recordId).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
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
