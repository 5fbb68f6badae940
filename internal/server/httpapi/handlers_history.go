package httpapi

import (
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/leftoverchef/internal/server/services"
	"github.com/go-chi/chi/v5"
)

// listHistory returns everything unless page or limit is given, in which case
// one page plus pagination metadata is returned.
func (h *Handler) listHistory(w http.ResponseWriter, r *http.Request) {
	ownerID := mustIdentity(r)
	q := r.URL.Query()

	if !q.Has("page") && !q.Has("limit") {
		records, err := h.history.List(r.Context(), ownerID)
		if err != nil {
			h.writeMappedError(r.Context(), w, "list_history", err)
			return
		}
		writeSuccess(w, http.StatusOK, envelope{"count": len(records), "data": records})
		return
	}

	page := parseIntDefault(q.Get("page"), 1)
	limit := parseIntDefault(q.Get("limit"), services.DefaultPageSize)
	res, err := h.history.ListPaged(r.Context(), ownerID, page, limit)
	if err != nil {
		h.writeMappedError(r.Context(), w, "list_history", err)
		return
	}

	writeSuccess(w, http.StatusOK, envelope{
		"count":      len(res.Records),
		"pagination": res.Pagination,
		"data":       res.Records,
	})
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.history.Stats(r.Context(), mustIdentity(r))
	if err != nil {
		h.writeMappedError(r.Context(), w, "history_stats", err)
		return
	}
	writeSuccess(w, http.StatusOK, envelope{"data": stats})
}

func (h *Handler) clearHistory(w http.ResponseWriter, r *http.Request) {
	n, err := h.history.DeleteAll(r.Context(), mustIdentity(r))
	if err != nil {
		h.writeMappedError(r.Context(), w, "clear_history", err)
		return
	}
	writeSuccess(w, http.StatusOK, envelope{
		"message":      fmt.Sprintf("Successfully deleted %d prediction(s)", n),
		"deletedCount": n,
	})
}

func (h *Handler) getPrediction(w http.ResponseWriter, r *http.Request) {
	rec, err := h.history.GetByID(r.Context(), mustIdentity(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeMappedError(r.Context(), w, "get_prediction", err)
		return
	}
	writeSuccess(w, http.StatusOK, envelope{"data": rec})
}

func (h *Handler) deletePrediction(w http.ResponseWriter, r *http.Request) {
	if err := h.history.DeleteByID(r.Context(), mustIdentity(r), chi.URLParam(r, "id")); err != nil {
		h.writeMappedError(r.Context(), w, "delete_prediction", err)
		return
	}
	writeSuccess(w, http.StatusOK, envelope{"message": "Prediction deleted successfully"})
}
