package rest

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/clinicops/medflow/logger"
	"github.com/clinicops/medflow/model"
)

func (s *Server) HandleEvent(w http.ResponseWriter, r *http.Request) {
	var ev model.WorkflowEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid event body")
		return
	}
	defer r.Body.Close()
	if ev.EventType == "" {
		respondWithError(w, http.StatusBadRequest, "eventType is required")
		return
	}
	outcomes, err := s.engine.TriggerWorkflowByEvent(r.Context(), ev.EventType, ev.EntityType, ev.EntityId, ev.Context)
	if err != nil {
		logger.Error("error triggering workflows for event", zap.String("eventType", ev.EventType), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "error triggering workflows")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"triggered": len(outcomes), "outcomes": outcomes})
}
