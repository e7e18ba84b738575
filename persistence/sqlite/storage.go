package sqlite

import (
	"github.com/clinicops/medflow/persistence"
)

var _ persistence.Storage = new(Storage)

type Storage struct {
	db            *DB
	workflows     *workflowDao
	executions    *executionDao
	records       *recordDao
	notifications *notificationDao
}

func NewStorage(db *DB) *Storage {
	return &Storage{
		db:            db,
		workflows:     newWorkflowDao(db),
		executions:    newExecutionDao(db),
		records:       newRecordDao(db),
		notifications: newNotificationDao(db),
	}
}

func (s *Storage) Workflows() persistence.WorkflowStorage {
	return s.workflows
}

func (s *Storage) Executions() persistence.ExecutionStorage {
	return s.executions
}

func (s *Storage) Records() persistence.RecordStorage {
	return s.records
}

func (s *Storage) Notifications() persistence.NotificationStorage {
	return s.notifications
}

func (s *Storage) Close() error {
	return s.db.Close()
}
