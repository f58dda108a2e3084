package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"jobpulse-engine/internal/domain"
	"jobpulse-engine/internal/logging"
	"jobpulse-engine/internal/search"
	"jobpulse-engine/internal/secrets"
	"jobpulse-engine/internal/store"
	"jobpulse-engine/internal/transport"
)

type APIError struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		Field     string `json:"field,omitempty"`
		RequestID string `json:"request_id,omitempty"`
	} `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeFieldError(w, r, status, code, "", message)
}

func writeFieldError(w http.ResponseWriter, r *http.Request, status int, code, field, message string) {
	var e APIError
	e.Error.Code = code
	e.Error.Message = message
	e.Error.Field = field
	e.Error.RequestID = RequestIDFrom(r.Context())
	WriteJSON(w, status, e)
}

// writeErr maps a domain error to its status and code.
func writeErr(w http.ResponseWriter, r *http.Request, log *logging.Logger, err error) {
	var (
		ve  *search.ValidationError
		se  *search.ResponseSchemaError
		pe  *search.ProviderError
		ise *domain.InvalidStatusError
		st  *transport.StatusError
	)
	switch {
	case errors.As(err, &ve):
		writeFieldError(w, r, http.StatusBadRequest, "invalid_filter", ve.Field, ve.Reason)
	case errors.As(err, &ise), errors.Is(err, store.ErrInvalidStatus):
		writeFieldError(w, r, http.StatusBadRequest, "invalid_status", "status", err.Error())
	case errors.Is(err, store.ErrInvalidListing):
		WriteError(w, r, http.StatusBadRequest, "invalid_listing", err.Error())
	case errors.Is(err, secrets.ErrEmptyToken):
		writeFieldError(w, r, http.StatusBadRequest, "invalid_token", "token", err.Error())
	case errors.Is(err, store.ErrNotFound):
		WriteError(w, r, http.StatusNotFound, "not_found", "tracked job not found")
	case errors.As(err, &se):
		WriteError(w, r, http.StatusBadGateway, "bad_provider_response", se.Error())
	case errors.As(err, &pe):
		WriteError(w, r, http.StatusBadGateway, "provider_error", pe.Error())
	case errors.As(err, &st):
		WriteError(w, r, http.StatusBadGateway, "provider_rejected", st.Error())
	case errors.Is(err, transport.ErrExhausted):
		WriteError(w, r, http.StatusServiceUnavailable, "provider_unavailable", err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		WriteError(w, r, http.StatusServiceUnavailable, "canceled", err.Error())
	default:
		log.Error("request failed", "request_id", RequestIDFrom(r.Context()), "path", r.URL.Path, "err", err)
		WriteError(w, r, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
