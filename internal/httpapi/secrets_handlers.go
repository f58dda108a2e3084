package httpapi

import (
	"net/http"

	"jobpulse-engine/internal/logging"
)

type SecretsHandler struct {
	SetToken    func(token string) error
	DeleteToken func() error
	Log         *logging.Logger
}

type setTokenReq struct {
	Token string `json:"token"`
}

// SetProviderToken stores the bearer token sent to the provider.
func (h SecretsHandler) SetProviderToken(w http.ResponseWriter, r *http.Request) {
	var req setTokenReq
	if err := decodeBody(w, r, &req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if err := h.SetToken(req.Token); err != nil {
		writeErr(w, r, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h SecretsHandler) DeleteProviderToken(w http.ResponseWriter, r *http.Request) {
	if err := h.DeleteToken(); err != nil {
		writeErr(w, r, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
