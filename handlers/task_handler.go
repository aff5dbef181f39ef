package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"gritfulAPI/internal/entry"
	"gritfulAPI/internal/logger"
	"gritfulAPI/middleware"
	"gritfulAPI/services"
)

type TaskHandler struct {
	taskService *services.TaskService
	log         *logger.Logger
}

func NewTaskHandler(taskService *services.TaskService, log *logger.Logger) *TaskHandler {
	return &TaskHandler{taskService: taskService, log: log}
}

func (h *TaskHandler) GetTasks(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	tasks, err := h.taskService.GetTaskStatus(ctx, caller, id)
	if err != nil {
		respondWithServiceError(w, h.log, "GetTasks", err)
		return
	}

	respondWithJSON(w, http.StatusOK, tasks)
}

// CompleteTask accepts an optional body; boolean tasks need none.
func (h *TaskHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	taskID := mux.Vars(r)["taskId"]

	var req entry.CompleteTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	status, err := h.taskService.CompleteTask(ctx, caller, id, taskID, req.Value)
	if err != nil {
		respondWithServiceError(w, h.log, "CompleteTask", err)
		return
	}

	middleware.RecordTaskCompleted(string(status.Task.EffectiveFrequency()))
	respondWithJSON(w, http.StatusOK, status)
}

func (h *TaskHandler) UndoTask(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	status, err := h.taskService.UndoPeriodicTask(ctx, caller, id, mux.Vars(r)["taskId"])
	if err != nil {
		respondWithServiceError(w, h.log, "UndoTask", err)
		return
	}

	respondWithJSON(w, http.StatusOK, status)
}
