package handlers

import (
	"context"
	"net/http"
	"time"

	"gritfulAPI/internal/logger"
	"gritfulAPI/internal/user"
	"gritfulAPI/services"
)

type UserHandler struct {
	userService *services.UserService
	log         *logger.Logger
}

func NewUserHandler(userService *services.UserService, log *logger.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		log:         log,
	}
}

func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	u, err := h.userService.GetUserByClerkID(ctx, caller.ClerkID)
	if err != nil {
		respondWithServiceError(w, h.log, "GetProfile", err)
		return
	}

	respondWithJSON(w, http.StatusOK, u)
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	var req user.UpdateProfileRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	u, err := h.userService.UpdateProfileByClerkID(ctx, caller.ClerkID, &req)
	if err != nil {
		respondWithServiceError(w, h.log, "UpdateProfile", err)
		return
	}

	respondWithJSON(w, http.StatusOK, u)
}
