package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"painel/pkg/dataset"
	"painel/pkg/session"
)

type handler struct {
	registry *session.Registry
}

func getHealth(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) createSession(w http.ResponseWriter, r *http.Request) {
	s := h.registry.Create()
	sendJSON(w, http.StatusCreated, sessionResponse{ID: s.ID})
}

func (h *handler) closeSession(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Close(chi.URLParam(r, "id")); err != nil {
		sendError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// session resolves the {id} URL parameter, writing the error response when
// it is unknown.
func (h *handler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := h.registry.Lookup(chi.URLParam(r, "id"))
	if err != nil {
		sendError(w, err)
		return nil, false
	}
	return s, true
}

func (h *handler) refresh(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Refresh()
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) listDatasets(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	catalog := s.Catalog()
	out := make([]datasetInfo, 0, len(catalog))
	for _, k := range catalog.Keys() {
		d, _ := catalog.Lookup(k)
		out = append(out, describe(d))
	}
	sendJSON(w, http.StatusOK, out)
}

// getDataset serves a snapshot. Query parameters filter rows by column value.
func (h *handler) getDataset(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	where := map[string]string{}
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			where[k] = v[0]
		}
	}
	snap, err := s.Select(r.Context(), chi.URLParam(r, "key"), where)
	if err != nil {
		sendError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, snap)
}

func (h *handler) writeRows(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req writeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid body: " + err.Error()})
		return
	}
	mode, err := session.ParseMode(req.Mode)
	if err != nil {
		sendError(w, err)
		return
	}
	err = s.Write(r.Context(), session.WriteRequest{
		Dataset: chi.URLParam(r, "key"),
		Rows:    req.Rows,
		Mode:    mode,
	})
	if err != nil {
		sendError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) recordAccess(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req accessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Login == "" {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "login is required"})
		return
	}
	if err := s.RecordAccess(r.Context(), req.Login, req.Name); err != nil {
		sendError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) submitRequest(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var fields dataset.Row
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid body: " + err.Error()})
		return
	}
	if err := s.SubmitRequest(r.Context(), chi.URLParam(r, "key"), fields); err != nil {
		sendError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *handler) saveTargets(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var targets map[string]float64
	if err := json.NewDecoder(r.Body).Decode(&targets); err != nil {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid body: " + err.Error()})
		return
	}
	if err := s.SaveTargets(r.Context(), chi.URLParam(r, "key"), targets); err != nil {
		sendError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrUnknownDataset):
		return http.StatusNotFound
	case errors.Is(err, session.ErrInvalidMode), errors.Is(err, session.ErrNotRequestQueue),
		errors.Is(err, session.ErrNotTargetTable):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrNotWritable):
		return http.StatusMethodNotAllowed
	case errors.Is(err, session.ErrClosed):
		return http.StatusGone
	}
	return http.StatusBadGateway
}

func sendError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.WithError(err).Error("request failed")
	}
	sendJSON(w, status, errorResponse{Error: err.Error()})
}

func sendJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		log.WithError(err).Error("encoding response")
		sendResponse(w, http.StatusInternalServerError, []byte(`{"error":"internal error"}`))
		return
	}
	sendResponse(w, status, body)
}

func sendResponse(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
