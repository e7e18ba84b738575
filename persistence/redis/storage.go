package redis

import (
	"github.com/clinicops/medflow/persistence"
)

var _ persistence.Storage = new(Storage)

type Storage struct {
	base          *baseDao
	workflows     *workflowDao
	executions    *executionDao
	records       *recordDao
	notifications *notificationDao
}

func NewStorage(conf Config) *Storage {
	base := newBaseDao(conf)
	return &Storage{
		base:          base,
		workflows:     newWorkflowDao(base),
		executions:    newExecutionDao(base),
		records:       newRecordDao(base),
		notifications: newNotificationDao(base),
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
	return s.base.redisClient.Close()
}
