package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/clinicops/medflow/logger"
	"github.com/clinicops/medflow/model"
	"github.com/clinicops/medflow/persistence"
)

func (s *Server) HandleCreateWorkflow(w http.ResponseWriter, r *http.Request) {
	var wf model.Workflow
	if err := json.NewDecoder(r.Body).Decode(&wf); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid workflow body")
		return
	}
	defer r.Body.Close()
	if err := validateWorkflow(wf); err != nil {
		logger.Error("error validating workflow", zap.Error(err))
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if wf.Id == "" {
		wf.Id = uuid.NewString()
	}
	if err := s.storage.Workflows().Save(r.Context(), wf); err != nil {
		logger.Error("error saving workflow", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "error saving workflow")
		return
	}
	s.engine.InvalidateWorkflow(wf.Id)
	respondOK(w, map[string]any{"id": wf.Id})
}

func (s *Server) HandleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	wf, err := s.storage.Workflows().Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "workflow does not exist")
			return
		}
		logger.Error("error getting workflow", zap.String("id", id), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "error getting workflow")
		return
	}
	respondWithJSON(w, http.StatusOK, wf)
}

func (s *Server) HandleListWorkflows(w http.ResponseWriter, r *http.Request) {
	workflows, err := s.storage.Workflows().List(r.Context())
	if err != nil {
		logger.Error("error listing workflows", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "error listing workflows")
		return
	}
	respondWithJSON(w, http.StatusOK, workflows)
}

func (s *Server) HandleDeleteWorkflow(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.storage.Workflows().Delete(r.Context(), id); err != nil {
		logger.Error("error deleting workflow", zap.String("id", id), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "error deleting workflow")
		return
	}
	s.engine.InvalidateWorkflow(id)
	respondOKWithoutBody(w)
}

func validateWorkflow(wf model.Workflow) error {
	if wf.Name == "" {
		return errors.New("workflow name is required")
	}
	if !wf.TriggerType.Valid() {
		return errors.New("unknown trigger type")
	}
	if len(wf.Steps) == 0 {
		return errors.New("workflow must have at least one step")
	}
	for i, st := range wf.Steps {
		if !st.Type.Valid() {
			return fmt.Errorf("unknown step type %q at step %d", st.Type, i)
		}
	}
	return nil
}
