package handlers

import (
	"context"
	"net/http"
	"time"

	"gritfulAPI/internal/logger"
	"gritfulAPI/services"
)

type ParticipantHandler struct {
	participantService *services.ParticipantService
	log                *logger.Logger
}

func NewParticipantHandler(participantService *services.ParticipantService, log *logger.Logger) *ParticipantHandler {
	return &ParticipantHandler{participantService: participantService, log: log}
}

func (h *ParticipantHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
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

	board, err := h.participantService.GetLeaderboard(ctx, caller, id)
	if err != nil {
		respondWithServiceError(w, h.log, "GetLeaderboard", err)
		return
	}

	respondWithJSON(w, http.StatusOK, board)
}

func (h *ParticipantHandler) GetStats(w http.ResponseWriter, r *http.Request) {
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

	st, err := h.participantService.GetParticipantStats(ctx, caller, id)
	if err != nil {
		respondWithServiceError(w, h.log, "GetStats", err)
		return
	}

	respondWithJSON(w, http.StatusOK, st)
}
