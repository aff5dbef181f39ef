package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/civil"

	"gritfulAPI/internal/entry"
	"gritfulAPI/internal/logger"
	"gritfulAPI/middleware"
	"gritfulAPI/services"
)

type EntryHandler struct {
	entryService *services.EntryService
	log          *logger.Logger
}

func NewEntryHandler(entryService *services.EntryService, log *logger.Logger) *EntryHandler {
	return &EntryHandler{entryService: entryService, log: log}
}

func (h *EntryHandler) SubmitDailyEntry(w http.ResponseWriter, r *http.Request) {
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

	var req entry.SubmitDailyEntryRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.entryService.SubmitDailyEntry(ctx, caller, id, &req)
	if err != nil {
		respondWithServiceError(w, h.log, "SubmitDailyEntry", err)
		return
	}

	middleware.RecordEntrySubmitted(resp.Entry.IsCompleted)
	respondWithJSON(w, http.StatusOK, resp)
}

// parseDateParam returns nil when the parameter is absent.
func parseDateParam(r *http.Request, name string) (*civil.Date, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	d, err := civil.ParseDate(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s, expected YYYY-MM-DD", name)
	}
	return &d, nil
}

func (h *EntryHandler) GetDailyEntries(w http.ResponseWriter, r *http.Request) {
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

	from, err := parseDateParam(r, "from")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	to, err := parseDateParam(r, "to")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := h.entryService.GetDailyEntries(ctx, caller, id, from, to)
	if err != nil {
		respondWithServiceError(w, h.log, "GetDailyEntries", err)
		return
	}

	respondWithJSON(w, http.StatusOK, entries)
}

func (h *EntryHandler) GetCalendar(w http.ResponseWriter, r *http.Request) {
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

	year, err := queryInt(r, "year", 0)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	month, err := queryInt(r, "month", 0)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	cal, err := h.entryService.GetCalendar(ctx, caller, id, year, month)
	if err != nil {
		respondWithServiceError(w, h.log, "GetCalendar", err)
		return
	}

	respondWithJSON(w, http.StatusOK, cal)
}
