package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"gritfulAPI/internal/calendar"
	"gritfulAPI/internal/civildate"
	"gritfulAPI/internal/logger"
	"gritfulAPI/internal/scoring"
	"gritfulAPI/middleware"
	"gritfulAPI/services"
)

const TimezoneHeader = "X-Timezone"

var validate = validator.New()

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// statusFor maps domain errors onto HTTP codes. Unknown errors are 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, scoring.ErrUnknownTask):
		return http.StatusNotFound
	case errors.Is(err, services.ErrForbidden),
		errors.Is(err, services.ErrNotParticipant):
		return http.StatusForbidden
	case errors.Is(err, services.ErrAlreadyParticipant),
		errors.Is(err, scoring.ErrDuplicateCompletion),
		errors.Is(err, scoring.ErrAlreadyCompleted):
		return http.StatusConflict
	case errors.Is(err, scoring.ErrChallengeEnded),
		errors.Is(err, scoring.ErrEntriesClosed),
		errors.Is(err, scoring.ErrDeadlinePassed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrInvalidTimezone),
		errors.Is(err, civildate.ErrMissingTimezone),
		errors.Is(err, calendar.ErrInvalidMonth),
		errors.Is(err, scoring.ErrInvalidTask),
		errors.Is(err, scoring.ErrFutureDate),
		errors.Is(err, scoring.ErrBeforeStart),
		errors.Is(err, scoring.ErrWrongFrequency):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// respondWithServiceError hides internal failures behind a generic message and
// logs them.
func respondWithServiceError(w http.ResponseWriter, log *logger.Logger, op string, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		log.Error(op+": request failed", "error", err)
		respondWithError(w, code, "Internal server error")
		return
	}
	respondWithError(w, code, err.Error())
}

// callerFrom builds the service caller from the authenticated context and
// the optional timezone override header.
func callerFrom(w http.ResponseWriter, r *http.Request) (services.Caller, bool) {
	clerkID, ok := middleware.GetClerkID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return services.Caller{}, false
	}
	return services.Caller{
		ClerkID:  clerkID,
		Timezone: strings.TrimSpace(r.Header.Get(TimezoneHeader)),
	}, true
}

func decodeAndValidate(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

// queryInt returns fallback when the parameter is absent.
func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return v, nil
}
