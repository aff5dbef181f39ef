package handlers

import (
	"context"
	"net/http"
	"time"

	"gritfulAPI/internal/challenge"
	"gritfulAPI/internal/logger"
	"gritfulAPI/services"
)

type ChallengeHandler struct {
	challengeService *services.ChallengeService
	log              *logger.Logger
}

func NewChallengeHandler(challengeService *services.ChallengeService, log *logger.Logger) *ChallengeHandler {
	return &ChallengeHandler{challengeService: challengeService, log: log}
}

func (h *ChallengeHandler) CreateChallenge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	var req challenge.CreateChallengeRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	c, err := h.challengeService.CreateChallenge(ctx, caller, &req)
	if err != nil {
		respondWithServiceError(w, h.log, "CreateChallenge", err)
		return
	}

	h.log.Info("Challenge created", "challenge_id", c.ID, "clerk_id", caller.ClerkID)
	respondWithJSON(w, http.StatusCreated, c)
}

func (h *ChallengeHandler) ListChallenges(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	view, ok := challenge.ParseListView(r.URL.Query().Get("view"))
	if !ok {
		respondWithError(w, http.StatusBadRequest, "view must be one of active, history, upcoming")
		return
	}

	list, err := h.challengeService.ListChallenges(ctx, caller, view)
	if err != nil {
		respondWithServiceError(w, h.log, "ListChallenges", err)
		return
	}

	respondWithJSON(w, http.StatusOK, list)
}

func (h *ChallengeHandler) GetChallenge(w http.ResponseWriter, r *http.Request) {
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

	c, err := h.challengeService.GetChallenge(ctx, caller, id)
	if err != nil {
		respondWithServiceError(w, h.log, "GetChallenge", err)
		return
	}

	respondWithJSON(w, http.StatusOK, c)
}

func (h *ChallengeHandler) JoinChallenge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	var req challenge.JoinChallengeRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.InviteCode = challenge.NormalizeInviteCode(req.InviteCode)

	c, err := h.challengeService.JoinChallenge(ctx, caller, &req)
	if err != nil {
		respondWithServiceError(w, h.log, "JoinChallenge", err)
		return
	}

	respondWithJSON(w, http.StatusOK, c)
}

func (h *ChallengeHandler) LeaveChallenge(w http.ResponseWriter, r *http.Request) {
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

	if err := h.challengeService.LeaveChallenge(ctx, caller, id); err != nil {
		respondWithServiceError(w, h.log, "LeaveChallenge", err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *ChallengeHandler) EndChallenge(w http.ResponseWriter, r *http.Request) {
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

	c, err := h.challengeService.EndChallenge(ctx, caller, id)
	if err != nil {
		respondWithServiceError(w, h.log, "EndChallenge", err)
		return
	}

	respondWithJSON(w, http.StatusOK, c)
}
