package audit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/frahmantamala/clinical-records/internal"
	"github.com/frahmantamala/clinical-records/internal/transport"
	"github.com/frahmantamala/clinical-records/pkg/logger"
)

type Handler struct {
	*transport.BaseHandler
	Service *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(logger.LoggerWrapper()),
		Service:     svc,
	}
}

// Query serves GET /audit with optional user_id, action, from, to and
// limit query parameters. Timestamps are RFC 3339.
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	sess, ok := internal.SessionFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "no session")
		return
	}

	filter, err := parseFilter(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := h.Service.Query(sess, filter)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, entries)
}

func parseFilter(r *http.Request) (QueryFilter, error) {
	var filter QueryFilter
	q := r.URL.Query()

	if v := q.Get("user_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return filter, err
		}
		filter.UserID = &id
	}
	if v := q.Get("action"); v != "" {
		action := ActionKind(v)
		filter.Action = &action
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, err
		}
		filter.From = &t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, err
		}
		filter.To = &t
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			return filter, err
		}
		filter.Limit = limit
	}

	return filter, nil
}
