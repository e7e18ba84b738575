package persistence

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/clinicops/medflow/model"
)

// ErrNotFound is returned by Get calls when no row exists for the id.
var ErrNotFound = errors.New("not found")

type StorageLayerError struct {
	Message string
}

func (e StorageLayerError) Error() string {
	return fmt.Sprintf("storage layer error %s", e.Message)
}

type WorkflowStorage interface {
	Save(ctx context.Context, wf model.Workflow) error
	Get(ctx context.Context, id string) (*model.Workflow, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]model.Workflow, error)
	// FindByEvent returns active event-triggered workflows whose
	// trigger_config.event_type matches.
	FindByEvent(ctx context.Context, eventType string) ([]model.Workflow, error)
	// FindByTrigger returns active workflows with the given trigger type.
	FindByTrigger(ctx context.Context, trigger model.TriggerType) ([]model.Workflow, error)
}

type ExecutionStorage interface {
	Save(ctx context.Context, execution *model.FlowExecution) error
	Get(ctx context.Context, id string) (*model.FlowExecution, error)
	ListByWorkflow(ctx context.Context, workflowId string) ([]model.FlowExecution, error)
}

// RecordStorage backs the create_record and update_status steps. Table and
// field names are caller supplied and must pass ValidIdentifier.
type RecordStorage interface {
	Insert(ctx context.Context, table string, data map[string]any) (string, error)
	UpdateField(ctx context.Context, table string, field string, value any, recordId string) error
	Get(ctx context.Context, table string, recordId string) (map[string]any, error)
}

type NotificationStorage interface {
	Create(ctx context.Context, n model.Notification) error
	ListByUser(ctx context.Context, userId string) ([]model.Notification, error)
}

type Storage interface {
	Workflows() WorkflowStorage
	Executions() ExecutionStorage
	Records() RecordStorage
	Notifications() NotificationStorage
	Close() error
}

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdentifier guards caller-supplied table and column names before they
// are spliced into a statement or key.
func ValidIdentifier(name string) error {
	if !identifierRe.MatchString(name) {
		return fmt.Errorf("invalid identifier %q", name)
	}
	return nil
}
