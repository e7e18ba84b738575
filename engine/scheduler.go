package engine

import (
	"context"
	"sync"
	"time"

	"github.com/clinicops/medflow/logger"
	"github.com/clinicops/medflow/model"
	"github.com/clinicops/medflow/util"
	"go.uber.org/zap"
)

const defaultScheduleInterval = 60 * time.Second

// Scheduler scans active schedule-triggered workflows on a fixed tick and
// dispatches the due ones. Last-run bookkeeping is in memory only; a
// restart makes every scheduled workflow due again. Overlapping runs of the
// same workflow are not prevented, matching the engine's cross-execution
// concurrency model.
type Scheduler struct {
	engine   *Engine
	tick     *util.TickWorker
	dispatch *util.Worker
	stop     chan struct{}
	wg       *sync.WaitGroup

	mu      sync.Mutex
	lastRun map[string]time.Time
}

func NewScheduler(engine *Engine, tickInterval time.Duration, wg *sync.WaitGroup) *Scheduler {
	s := &Scheduler{
		engine:  engine,
		stop:    make(chan struct{}),
		wg:      wg,
		lastRun: make(map[string]time.Time),
	}
	s.tick = util.NewTickWorker("schedule-scan", tickInterval, s.stop, s.scan, wg)
	s.dispatch = util.NewWorker("schedule-dispatch", wg, s.run, 64)
	return s
}

func (s *Scheduler) Start() {
	s.dispatch.Start()
	s.tick.Start()
}

func (s *Scheduler) Stop() {
	s.tick.Stop()
	s.dispatch.Stop()
}

func (s *Scheduler) scan() {
	ctx := context.Background()
	workflows, err := s.engine.storage.Workflows().FindByTrigger(ctx, model.TRIGGER_SCHEDULE)
	if err != nil {
		logger.Error("error scanning scheduled workflows", zap.Error(err))
		return
	}
	now := time.Now()
	for _, wf := range workflows {
		if !s.due(wf, now) {
			continue
		}
		// Non-blocking: a full dispatch queue must not stall the scan.
		// The workflow stays due and goes out on a later tick.
		select {
		case s.dispatch.Sender() <- wf:
			s.markRun(wf.Id, now)
		default:
			logger.Warn("schedule dispatch queue full, deferring workflow",
				zap.String("workflow", wf.Id))
		}
	}
}

func (s *Scheduler) due(wf model.Workflow, now time.Time) bool {
	interval := defaultScheduleInterval
	if v, ok := wf.TriggerConfig["interval_seconds"].(float64); ok && v > 0 {
		interval = time.Duration(v) * time.Second
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	last, ok := s.lastRun[wf.Id]
	return !ok || now.Sub(last) >= interval
}

func (s *Scheduler) markRun(id string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRun[id] = now
}

func (s *Scheduler) run(task util.Task) error {
	wf := task.(model.Workflow)
	entityType, _ := wf.TriggerConfig["entity_type"].(string)
	entityId, _ := wf.TriggerConfig["entity_id"].(string)
	_, err := s.engine.ExecuteWorkflow(context.Background(), model.ExecutionRequest{
		WorkflowId: wf.Id,
		EntityType: entityType,
		EntityId:   entityId,
	})
	return err
}
