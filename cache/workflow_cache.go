package cache

import (
	"context"
	"time"

	"github.com/clinicops/medflow/model"
	"github.com/clinicops/medflow/persistence"
	c "github.com/patrickmn/go-cache"
)

// WorkflowCache fronts WorkflowStorage.Get on the interpreter hot path.
// Entries expire quickly so definition edits show up without explicit
// cross-process invalidation.
type WorkflowCache struct {
	storage persistence.WorkflowStorage
	cache   *c.Cache
}

func NewWorkflowCache(storage persistence.WorkflowStorage, ttl time.Duration) *WorkflowCache {
	return &WorkflowCache{
		storage: storage,
		cache:   c.New(ttl, 10*time.Minute),
	}
}

func (ch *WorkflowCache) Get(ctx context.Context, id string) (*model.Workflow, error) {
	if cached, found := ch.cache.Get(id); found {
		wf := cached.(model.Workflow)
		return &wf, nil
	}
	wf, err := ch.storage.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	ch.cache.Set(id, *wf, c.DefaultExpiration)
	return wf, nil
}

func (ch *WorkflowCache) Invalidate(id string) {
	ch.cache.Delete(id)
}
