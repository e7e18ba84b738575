package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/clinicops/medflow/engine"
	"github.com/clinicops/medflow/logger"
	"github.com/clinicops/medflow/model"
	"github.com/clinicops/medflow/persistence"
)

func (s *Server) HandleRunWorkflow(w http.ResponseWriter, r *http.Request) {
	var req model.ExecutionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid execution request")
		return
	}
	defer r.Body.Close()
	result, err := s.engine.ExecuteWorkflow(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrWorkflowNotFound):
			respondWithError(w, http.StatusNotFound, "workflow does not exist")
		case errors.Is(err, engine.ErrWorkflowInactive):
			respondWithError(w, http.StatusConflict, "workflow is not active")
		default:
			logger.Error("error running workflow", zap.String("workflowId", req.WorkflowId), zap.Error(err))
			respondWithError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

func (s *Server) HandleListExecutions(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	executions, err := s.storage.Executions().ListByWorkflow(r.Context(), id)
	if err != nil {
		logger.Error("error listing executions", zap.String("workflowId", id), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "error listing executions")
		return
	}
	respondWithJSON(w, http.StatusOK, executions)
}

func (s *Server) HandleListNotifications(w http.ResponseWriter, r *http.Request) {
	userId := mux.Vars(r)["userId"]
	notifications, err := s.storage.Notifications().ListByUser(r.Context(), userId)
	if err != nil {
		logger.Error("error listing notifications", zap.String("userId", userId), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "error listing notifications")
		return
	}
	respondWithJSON(w, http.StatusOK, notifications)
}

func (s *Server) HandleGetExecution(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	execution, err := s.engine.GetExecution(r.Context(), id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "execution does not exist")
			return
		}
		logger.Error("error getting execution", zap.String("id", id), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "error getting execution")
		return
	}
	respondWithJSON(w, http.StatusOK, execution)
}
