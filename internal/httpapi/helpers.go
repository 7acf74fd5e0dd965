package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"monbudget/internal/core"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// writeDomainError maps sentinel errors from core onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, core.ErrSavingsAlreadyTransferred),
		errors.Is(err, core.ErrDepositLimitExceeded):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidMonthKey),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrEmptyDescription),
		errors.Is(err, core.ErrInvalidTransactionType),
		errors.Is(err, core.ErrInvalidInterest),
		errors.Is(err, core.ErrInvalidDistribution):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// decodeBody parses a JSON request body into dst, rejecting unknown
// fields so typos surface as 400s instead of silent zero values.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body: "+err.Error())
		return false
	}
	return true
}

// pathMonthKey parses the {key} path segment ("3-2025").
func pathMonthKey(w http.ResponseWriter, r *http.Request) (core.MonthKey, bool) {
	key, err := core.ParseMonthKey(r.PathValue("key"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid month key: "+r.PathValue("key"))
		return core.MonthKey{}, false
	}
	return key, true
}
