package handler

import (
	"net/http"
	"path"
	"strconv"

	"pai/internal/audit"
	"pai/internal/domain"
	"pai/internal/provider"
	"pai/internal/service"
)

// ListSecrets returns secret keys matching ?pattern, capped by ?limit.
// Values are never served over HTTP.
func (h *Handler) ListSecrets(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, "Invalid limit", err.Error(), http.StatusBadRequest)
		return
	}
	filter := service.SecretFilter{Pattern: r.URL.Query().Get("pattern"), Limit: limit}
	if _, err := path.Match(filter.Pattern, ""); err != nil {
		writeError(w, "Invalid pattern", err.Error(), http.StatusBadRequest)
		return
	}
	opts := provider.Options{Adapter: r.URL.Query().Get("adapter")}

	keys, err := h.svc.ListSecrets(r.Context(), filter, opts)
	if err != nil {
		writeDomainError(w, "Failed to list secrets", err)
		return
	}
	writeJSON(w, keys, http.StatusOK)
}

// ListAudit returns stored audit entries, newest first
func (h *Handler) ListAudit(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, "Invalid limit", err.Error(), http.StatusBadRequest)
		return
	}
	q := audit.Query{Limit: limit}

	if s := r.URL.Query().Get("domain"); s != "" {
		d, err := domain.ParseDomain(s)
		if err != nil {
			writeError(w, "Unknown domain", err.Error(), http.StatusBadRequest)
			return
		}
		q.Domain = d
	}
	if s := r.URL.Query().Get("failed"); s != "" {
		failed, err := strconv.ParseBool(s)
		if err != nil {
			writeError(w, "Invalid failed flag", err.Error(), http.StatusBadRequest)
			return
		}
		q.FailedOnly = failed
	}

	entries, err := h.svc.RecentAudit(r.Context(), q)
	if err != nil {
		writeDomainError(w, "Failed to read audit log", err)
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	writeJSON(w, entries, http.StatusOK)
}
