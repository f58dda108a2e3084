package httpapi

import (
	"net/http"
	"strconv"

	"jobpulse-engine/internal/domain"
	"jobpulse-engine/internal/events"
	"jobpulse-engine/internal/logging"
	"jobpulse-engine/internal/store"
)

type TrackedHandler struct {
	Tracker   Tracker
	Publisher events.Publisher
	Log       *logging.Logger
}

func (h TrackedHandler) publish(r *http.Request, typ string, data any) {
	if h.Publisher != nil {
		h.Publisher.Publish(events.MakeEvent(RequestIDFrom(r.Context()), typ, 1, data))
	}
}

// List serves GET /tracked?status=applied&order=title&asc=true&limit=20.
func (h TrackedHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := store.ListOptions{OrderBy: q.Get("order")}

	switch opts.OrderBy {
	case "", "updated", "created", "title":
	default:
		writeFieldError(w, r, http.StatusBadRequest, "invalid_query", "order", "must be one of: updated, created, title")
		return
	}
	if raw := q.Get("status"); raw != "" {
		s, err := domain.ParseStatus(raw)
		if err != nil {
			writeErr(w, r, h.Log, err)
			return
		}
		opts.Status = s
	}
	if raw := q.Get("asc"); raw != "" {
		asc, err := strconv.ParseBool(raw)
		if err != nil {
			writeFieldError(w, r, http.StatusBadRequest, "invalid_query", "asc", "must be true or false")
			return
		}
		opts.Ascending = asc
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeFieldError(w, r, http.StatusBadRequest, "invalid_query", "limit", "must be a non-negative integer")
			return
		}
		opts.Limit = n
	}

	jobs, err := h.Tracker.List(r.Context(), opts)
	if err != nil {
		writeErr(w, r, h.Log, err)
		return
	}
	if jobs == nil {
		jobs = []domain.TrackedJob{}
	}
	writeJSON(w, jobs)
}

// Create saves the posted listing. 201 when newly tracked, 200 when it already was.
func (h TrackedHandler) Create(w http.ResponseWriter, r *http.Request) {
	var l domain.JobListing
	if err := decodeBody(w, r, &l); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	job, created, err := h.Tracker.Save(r.Context(), l)
	if err != nil {
		writeErr(w, r, h.Log, err)
		return
	}
	if !created {
		writeJSON(w, job)
		return
	}
	h.publish(r, events.TypeJobTracked, map[string]any{"id": job.ID, "external_id": job.Listing.ExternalID})
	WriteJSON(w, http.StatusCreated, job)
}

func (h TrackedHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		WriteError(w, r, http.StatusBadRequest, "invalid_id", "invalid id")
		return
	}
	job, err := h.Tracker.Get(r.Context(), id)
	if err != nil {
		writeErr(w, r, h.Log, err)
		return
	}
	writeJSON(w, job)
}

func (h TrackedHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		WriteError(w, r, http.StatusBadRequest, "invalid_id", "invalid id")
		return
	}
	if err := h.Tracker.Delete(r.Context(), id); err != nil {
		writeErr(w, r, h.Log, err)
		return
	}
	h.publish(r, events.TypeJobUntracked, map[string]any{"id": id})
	writeJSON(w, map[string]any{"ok": true, "id": id})
}

type statusReq struct {
	Status string `json:"status"`
}

func (h TrackedHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		WriteError(w, r, http.StatusBadRequest, "invalid_id", "invalid id")
		return
	}
	var req statusReq
	if err := decodeBody(w, r, &req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	job, err := h.Tracker.UpdateStatus(r.Context(), id, domain.Status(req.Status))
	if err != nil {
		writeErr(w, r, h.Log, err)
		return
	}
	h.publish(r, events.TypeStatusChanged, map[string]any{"id": id, "status": job.Status})
	writeJSON(w, job)
}

type notesReq struct {
	Notes string `json:"notes"`
}

func (h TrackedHandler) SetNotes(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		WriteError(w, r, http.StatusBadRequest, "invalid_id", "invalid id")
		return
	}
	var req notesReq
	if err := decodeBody(w, r, &req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	job, err := h.Tracker.SetNotes(r.Context(), id, req.Notes)
	if err != nil {
		writeErr(w, r, h.Log, err)
		return
	}
	h.publish(r, events.TypeNotesChanged, map[string]any{"id": id})
	writeJSON(w, job)
}

func (h TrackedHandler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		WriteError(w, r, http.StatusBadRequest, "invalid_id", "invalid id")
		return
	}
	changes, err := h.Tracker.History(r.Context(), id)
	if err != nil {
		writeErr(w, r, h.Log, err)
		return
	}
	if changes == nil {
		changes = []domain.StatusChange{}
	}
	writeJSON(w, changes)
}
