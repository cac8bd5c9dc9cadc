package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"vocaflow/internal/service"
	"vocaflow/internal/validation"
)

type errorBody struct {
	Error string   `json:"error"`
	Words []string `json:"words,omitempty"`
}

func respondWithError(w http.ResponseWriter, log logrus.FieldLogger, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		log.WithError(err).WithField("status", status).Error(logMsg)
	}

	respondJSON(w, status, errorBody{Error: userMsg})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

// decodeJSON reads a bounded JSON body into dst and answers 400 on failure
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: ErrInvalidJSON})
		return false
	}
	return true
}

// respondWithServiceError maps service failures onto status codes. Only
// unexpected errors are logged.
func respondWithServiceError(w http.ResponseWriter, log logrus.FieldLogger, logMsg string, err error) {
	var verr validation.ValidationError
	var perr *service.ProhibitedWordsError

	switch {
	case errors.As(err, &verr):
		respondJSON(w, http.StatusBadRequest, errorBody{Error: verr.Error()})
	case errors.As(err, &perr):
		respondJSON(w, http.StatusBadRequest, errorBody{Error: perr.Error(), Words: perr.Words})
	case errors.Is(err, service.ErrInvalidJoinCode):
		respondJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case service.IsAuthError(err):
		respondJSON(w, http.StatusUnauthorized, errorBody{Error: err.Error()})
	case errors.Is(err, service.ErrForbidden):
		respondJSON(w, http.StatusForbidden, errorBody{Error: ErrForbiddenMsg})
	case errors.Is(err, service.ErrNotFound):
		respondJSON(w, http.StatusNotFound, errorBody{Error: ErrNotFoundMsg})
	case errors.Is(err, service.ErrEmailTaken):
		respondJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	default:
		respondWithError(w, log, http.StatusInternalServerError, ErrInternalServerError, logMsg, err)
	}
}
