package httpserver

import (
    "encoding/json"
    "errors"
    "net/http"
    "strconv"
    "time"

    "github.com/go-chi/chi/v5"

    appaudits "github.com/bryanwahyu/brandvisor/internal/application/audits"
    domain "github.com/bryanwahyu/brandvisor/internal/domain/audits"
    "github.com/bryanwahyu/brandvisor/internal/middleware"
)

type Router struct {
    auditsSvc *appaudits.Service
}

func NewRouter(auditsSvc *appaudits.Service) http.Handler {
    r := &Router{auditsSvc: auditsSvc}
    mux := chi.NewRouter()

    mux.Route("/v1/{tenant}", func(rt chi.Router) {
        rt.Post("/audits", r.wrap(r.handleRunAudit))
        rt.Get("/audits/latest", r.wrap(r.handleLatest))
        rt.Get("/audits/{id}", r.wrap(r.handleGet))
        rt.Get("/audits/{id}/citations", r.wrap(r.handleCitations))
        rt.Get("/audits", r.wrap(r.handleList))
        rt.Get("/summary", r.wrap(r.handleSummary))
    })

    return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
    return func(w http.ResponseWriter, req *http.Request) {
        if err := h(w, req); err != nil {
            if errors.Is(err, domain.ErrValidation) {
                writeJSON(w, http.StatusBadRequest, auditEnvelope{
                    Success:   false,
                    Error:     err.Error(),
                    Timestamp: time.Now().UTC().Format(time.RFC3339),
                })
                return
            }
            if errors.Is(err, domain.ErrNotFound) {
                http.Error(w, "not found", http.StatusNotFound)
                return
            }
            http.Error(w, middleware.SanitizeErrorMessage(err.Error()), http.StatusInternalServerError)
        }
    }
}

// auditEnvelope is the response shape of POST /audits. Internal failures keep
// HTTP 200 with success=false so callers can treat the envelope uniformly.
type auditEnvelope struct {
    Success        bool                      `json:"success"`
    AuditID        string                    `json:"audit_id,omitempty"`
    Summary        domain.AuditSummary       `json:"summary"`
    Results        []domain.ModelResult      `json:"model_results,omitempty"`
    TopCitations   []domain.MergedCitation   `json:"top_citations,omitempty"`
    TopCompetitors []domain.MergedCompetitor `json:"top_competitors,omitempty"`
    Winner         string                    `json:"winner,omitempty"`
    DurationMS     int64                     `json:"duration_ms,omitempty"`
    Error          string                    `json:"error,omitempty"`
    Timestamp      string                    `json:"timestamp"`
}

// POST /v1/{tenant}/audits
func (r *Router) handleRunAudit(w http.ResponseWriter, req *http.Request) error {
    tenant := chi.URLParam(req, "tenant")
    if err := middleware.ValidateTenantID(tenant); err != nil {
        http.Error(w, err.Error(), http.StatusBadRequest)
        return nil
    }

    var body struct {
        Query       string   `json:"query"`
        Brand       string   `json:"brand"`
        Aliases     []string `json:"aliases"`
        Competitors []string `json:"competitors"`
        Location    string   `json:"location"`
        Providers   []string `json:"providers"`
    }
    if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
        writeJSON(w, http.StatusBadRequest, auditEnvelope{
            Success:   false,
            Error:     "invalid JSON body",
            Timestamp: time.Now().UTC().Format(time.RFC3339),
        })
        return nil
    }

    middleware.IncrementAudits()
    middleware.IncrementAuditsRunning()
    defer middleware.DecrementAuditsRunning()

    cmd := appaudits.RunAuditCommand{
        TenantID:    tenant,
        Query:       middleware.SanitizeString(body.Query),
        Brand:       middleware.SanitizeString(body.Brand),
        Aliases:     body.Aliases,
        Competitors: body.Competitors,
        Location:    middleware.SanitizeString(body.Location),
        Providers:   body.Providers,
    }

    result, err := r.auditsSvc.RunAudit(req.Context(), cmd)
    if err != nil {
        if errors.Is(err, domain.ErrValidation) {
            return err
        }
        // Assembly failures never leak internals; summary stays zeroed.
        middleware.IncrementAuditsFailed()
        writeJSON(w, http.StatusOK, auditEnvelope{
            Success:   false,
            Error:     middleware.SanitizeErrorMessage(err.Error()),
            Timestamp: time.Now().UTC().Format(time.RFC3339),
        })
        return nil
    }

    for _, mr := range result.Results {
        middleware.IncrementProviderCalls()
        if !mr.Success {
            middleware.IncrementProviderFailures()
        }
    }

    writeJSON(w, http.StatusOK, auditEnvelope{
        Success:        true,
        AuditID:        result.ID,
        Summary:        result.Summary,
        Results:        result.Results,
        TopCitations:   result.TopCitations,
        TopCompetitors: result.TopCompetitors,
        Winner:         result.Winner,
        DurationMS:     result.DurationMS,
        Timestamp:      time.Now().UTC().Format(time.RFC3339),
    })
    return nil
}

// GET /v1/{tenant}/audits/latest?limit=20
func (r *Router) handleLatest(w http.ResponseWriter, req *http.Request) error {
    tenant := chi.URLParam(req, "tenant")
    limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
    limit = middleware.ValidateLimit(limit)

    list, err := r.auditsSvc.Latest(req.Context(), tenant, limit)
    if err != nil {
        return err
    }

    writeJSON(w, http.StatusOK, list)
    return nil
}

// GET /v1/{tenant}/audits/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
    tenant := chi.URLParam(req, "tenant")
    id := chi.URLParam(req, "id")
    if err := middleware.ValidateAuditID(id); err != nil {
        http.Error(w, err.Error(), http.StatusBadRequest)
        return nil
    }

    audit, err := r.auditsSvc.Get(req.Context(), tenant, domain.AuditID(id))
    if err != nil {
        return err
    }

    writeJSON(w, http.StatusOK, audit)
    return nil
}

// GET /v1/{tenant}/audits/{id}/citations
func (r *Router) handleCitations(w http.ResponseWriter, req *http.Request) error {
    tenant := chi.URLParam(req, "tenant")
    id := chi.URLParam(req, "id")
    if err := middleware.ValidateAuditID(id); err != nil {
        http.Error(w, err.Error(), http.StatusBadRequest)
        return nil
    }

    cites, err := r.auditsSvc.Citations(req.Context(), tenant, domain.AuditID(id))
    if err != nil {
        return err
    }

    writeJSON(w, http.StatusOK, cites)
    return nil
}

// GET /v1/{tenant}/audits?page=&page_size=&brand=&status=&query=
func (r *Router) handleList(w http.ResponseWriter, req *http.Request) error {
    tenant := chi.URLParam(req, "tenant")
    page, _ := strconv.Atoi(req.URL.Query().Get("page"))
    size, _ := strconv.Atoi(req.URL.Query().Get("page_size"))
    size = middleware.ValidateLimit(size)

    filters := make(map[string]interface{})
    for _, key := range []string{"brand", "status", "query"} {
        if v := req.URL.Query().Get(key); v != "" {
            filters[key] = middleware.SanitizeString(v)
        }
    }

    list, err := r.auditsSvc.Paginate(req.Context(), tenant, page, size, filters)
    if err != nil {
        return err
    }

    writeJSON(w, http.StatusOK, list)
    return nil
}

// GET /v1/{tenant}/summary?days=7
func (r *Router) handleSummary(w http.ResponseWriter, req *http.Request) error {
    tenant := chi.URLParam(req, "tenant")
    days, _ := strconv.Atoi(req.URL.Query().Get("days"))
    days = middleware.ValidateDays(days)

    summary, err := r.auditsSvc.Summary(req.Context(), tenant, days)
    if err != nil {
        return err
    }

    writeJSON(w, http.StatusOK, summary)
    return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(status)
    _ = json.NewEncoder(w).Encode(v)
}
