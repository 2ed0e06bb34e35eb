package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"pai/internal/domain"
	"pai/internal/provider"
)

type domainKey struct{}

// domainCtx parses {domain} and rejects unknown names
func domainCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d, err := domain.ParseDomain(chi.URLParam(r, "domain"))
		if err != nil {
			writeError(w, "Unknown domain", err.Error(), http.StatusNotFound)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), domainKey{}, d)))
	})
}

func domainFrom(r *http.Request) domain.Domain {
	d, _ := r.Context().Value(domainKey{}).(domain.Domain)
	return d
}

// DomainSummary is the configured chain of one domain
type DomainSummary struct {
	Domain   domain.Domain `json:"domain"`
	Primary  string        `json:"primary,omitempty"`
	Fallback string        `json:"fallback,omitempty"`
}

// ListDomains returns the configured chain of every domain
func (h *Handler) ListDomains(w http.ResponseWriter, r *http.Request) {
	resolver := h.svc.Factory().Resolver()
	out := make([]DomainSummary, 0, len(domain.Domains()))
	for _, d := range domain.Domains() {
		dc, err := resolver.DomainConfig(d)
		if err != nil {
			writeDomainError(w, "Failed to load configuration", err)
			return
		}
		s := DomainSummary{Domain: d}
		if dc != nil {
			s.Primary, s.Fallback = dc.Primary, dc.Fallback
		}
		out = append(out, s)
	}
	writeJSON(w, out, http.StatusOK)
}

// DomainHealth probes every candidate of the domain. The reply is 200
// when at least one candidate is healthy, 503 otherwise.
func (h *Handler) DomainHealth(w http.ResponseWriter, r *http.Request) {
	opts := provider.Options{Adapter: r.URL.Query().Get("adapter")}
	results, err := h.svc.Health(r.Context(), domainFrom(r), opts)
	if err != nil {
		writeDomainError(w, "Health check failed", err)
		return
	}

	status := http.StatusServiceUnavailable
	for _, c := range results {
		if c.Healthy {
			status = http.StatusOK
			break
		}
	}
	writeJSON(w, results, status)
}

// DomainAdapters lists the adapters discovered for the domain
func (h *Handler) DomainAdapters(w http.ResponseWriter, r *http.Request) {
	infos, err := h.svc.Adapters(domainFrom(r))
	if err != nil {
		writeDomainError(w, "Failed to list adapters", err)
		return
	}
	writeJSON(w, infos, http.StatusOK)
}
