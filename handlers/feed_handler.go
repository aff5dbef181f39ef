package handlers

import (
	"context"
	"net/http"
	"time"

	"gritfulAPI/internal/feed"
	"gritfulAPI/internal/logger"
	"gritfulAPI/services"
)

type FeedHandler struct {
	feedService *services.FeedService
	log         *logger.Logger
}

func NewFeedHandler(feedService *services.FeedService, log *logger.Logger) *FeedHandler {
	return &FeedHandler{feedService: feedService, log: log}
}

// pageParams reads ?limit= and ?before= (RFC 3339).
func pageParams(r *http.Request) (int, *time.Time, error) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		return 0, nil, err
	}
	raw := r.URL.Query().Get("before")
	if raw == "" {
		return limit, nil, nil
	}
	before, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return 0, nil, err
	}
	return limit, &before, nil
}

func (h *FeedHandler) GetFeed(w http.ResponseWriter, r *http.Request) {
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
	limit, before, err := pageParams(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid paging parameters")
		return
	}

	items, err := h.feedService.ListActivity(ctx, caller, id, limit, before)
	if err != nil {
		respondWithServiceError(w, h.log, "GetFeed", err)
		return
	}

	respondWithJSON(w, http.StatusOK, items)
}

func (h *FeedHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
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
	limit, before, err := pageParams(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid paging parameters")
		return
	}

	msgs, err := h.feedService.ListMessages(ctx, caller, id, limit, before)
	if err != nil {
		respondWithServiceError(w, h.log, "GetMessages", err)
		return
	}

	respondWithJSON(w, http.StatusOK, msgs)
}

func (h *FeedHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
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

	var req feed.PostMessageRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	msg, err := h.feedService.PostMessage(ctx, caller, id, &req)
	if err != nil {
		respondWithServiceError(w, h.log, "PostMessage", err)
		return
	}

	respondWithJSON(w, http.StatusCreated, msg)
}
