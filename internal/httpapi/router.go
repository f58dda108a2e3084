package httpapi

import (
	"net/http"
	"time"

	"jobpulse-engine/internal/logging"
	"jobpulse-engine/internal/secrets"
)

// NewMux returns the raw mux so main() can still attach /shutdown (needs srv+token).
func NewMux(d Deps) *http.ServeMux {
	if d.Log == nil {
		d.Log = logging.NewNop()
	}
	log := d.Log.Named("httpapi")
	if d.Publisher == nil && d.Hub != nil {
		d.Publisher = d.Hub
	}
	if d.SetToken == nil {
		d.SetToken = secrets.SetProviderToken
	}
	if d.DeleteToken == nil {
		d.DeleteToken = secrets.DeleteProviderToken
	}

	mux := http.NewServeMux()

	hh := HealthHandler{Started: time.Now()}
	mux.HandleFunc("/health", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: hh.Health,
	}))

	// Search
	sh := SearchHandler{Searcher: d.Searcher, Log: log}
	mux.HandleFunc("/search", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: sh.Search,
	}))

	// Tracked jobs
	th := TrackedHandler{Tracker: d.Tracker, Publisher: d.Publisher, Log: log}
	mux.HandleFunc("/tracked", methodMux(map[string]http.HandlerFunc{
		http.MethodGet:  th.List,
		http.MethodPost: th.Create,
	}))
	mux.HandleFunc("/tracked/{id}", methodMux(map[string]http.HandlerFunc{
		http.MethodGet:    th.Get,
		http.MethodDelete: th.Delete,
	}))
	mux.HandleFunc("/tracked/{id}/status", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: th.UpdateStatus,
	}))
	mux.HandleFunc("/tracked/{id}/notes", methodMux(map[string]http.HandlerFunc{
		http.MethodPut: th.SetNotes,
	}))
	mux.HandleFunc("/tracked/{id}/history", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: th.History,
	}))

	dh := DashboardHandler{Dashboard: d.Dashboard, Log: log}
	mux.HandleFunc("/dashboard", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: dh.Get,
	}))

	// Config
	ch := ConfigHandler{
		CfgVal:      d.CfgVal,
		UserCfgPath: d.UserCfgPath,
		LoadCfg:     d.LoadCfg,
		Publisher:   d.Publisher,
	}
	mux.HandleFunc("/config", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Get,
		http.MethodPut: ch.Put,
	}))
	mux.HandleFunc("/config/path", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Path,
	}))

	// Secrets
	sec := SecretsHandler{SetToken: d.SetToken, DeleteToken: d.DeleteToken, Log: log}
	mux.HandleFunc("/api/secrets/provider-token", methodMux(map[string]http.HandlerFunc{
		http.MethodPost:   sec.SetProviderToken,
		http.MethodDelete: sec.DeleteProviderToken,
	}))

	// SSE events
	eh := EventsHandler{Hub: d.Hub}
	mux.HandleFunc("/events", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: eh.ServeSSE,
	}))

	return mux
}
