package records

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/clinical-records/internal"
	"github.com/frahmantamala/clinical-records/internal/transport"
	"github.com/frahmantamala/clinical-records/pkg/logger"
)

type ServiceAPI interface {
	Write(sess *internal.SessionInfo, kind Kind, id string, fields map[string]string) (*Record, error)
	Read(sess *internal.SessionInfo, kind Kind, id string) (*Record, error)
	Search(sess *internal.SessionInfo, kind Kind, query string) ([]*Record, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(logger.LoggerWrapper()),
		Service:     svc,
	}
}

type writeRequest struct {
	ID     string            `json:"id,omitempty"`
	Fields map[string]string `json:"fields"`
}

func (h *Handler) Write(w http.ResponseWriter, r *http.Request) {
	sess, kind, ok := h.sessionAndKind(w, r)
	if !ok {
		return
	}

	var req writeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec, err := h.Service.Write(sess, kind, req.ID, req.Fields)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	status := http.StatusCreated
	if req.ID != "" {
		status = http.StatusOK
	}
	h.WriteJSON(w, status, rec)
}

func (h *Handler) Read(w http.ResponseWriter, r *http.Request) {
	sess, kind, ok := h.sessionAndKind(w, r)
	if !ok {
		return
	}

	rec, err := h.Service.Read(sess, kind, chi.URLParam(r, "id"))
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	sess, kind, ok := h.sessionAndKind(w, r)
	if !ok {
		return
	}

	matches, err := h.Service.Search(sess, kind, r.URL.Query().Get("q"))
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, matches)
}

func (h *Handler) sessionAndKind(w http.ResponseWriter, r *http.Request) (*internal.SessionInfo, Kind, bool) {
	sess, ok := internal.SessionFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "no session")
		return nil, "", false
	}

	kind, ok := ParseKind(chi.URLParam(r, "kind"))
	if !ok {
		h.WriteError(w, http.StatusBadRequest, "unknown record kind")
		return nil, "", false
	}
	return sess, kind, true
}
