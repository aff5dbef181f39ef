package handlers

import (
	"context"
	"net/http"
	"time"

	"gritfulAPI/internal/logger"
	"gritfulAPI/internal/workers"
)

type EmailDrainer interface {
	Drain(ctx context.Context) (workers.DrainResult, error)
}

type CronHandler struct {
	drainer EmailDrainer
	log     *logger.Logger
}

func NewCronHandler(drainer EmailDrainer, log *logger.Logger) *CronHandler {
	return &CronHandler{drainer: drainer, log: log}
}

// POST /api/v1/cron/send-emails
func (h *CronHandler) SendEmails(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 55*time.Second)
	defer cancel()

	result, err := h.drainer.Drain(ctx)
	if err != nil {
		h.log.Error("Email drain failed", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Email drain failed")
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}
