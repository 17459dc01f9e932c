// Copyright 2025 James Ross
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/marketintel/engine/internal/analyzer"
	"github.com/marketintel/engine/internal/catalog"
	"github.com/marketintel/engine/internal/insight"
	"github.com/marketintel/engine/internal/intake"
	"github.com/marketintel/engine/internal/marketplace"
	"github.com/marketintel/engine/internal/obs"
	"github.com/marketintel/engine/internal/queue"
	"github.com/marketintel/engine/internal/tenant"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Handler wires the HTTP surface to the core packages. It holds no state
// of its own beyond its collaborators.
type Handler struct {
	store    *queue.Store
	intake   *intake.Intake
	catalog  catalog.Store
	resolver tenant.Resolver
	rdb      *redis.Client
	log      *zap.Logger
}

func NewHandler(store *queue.Store, in *intake.Intake, cat catalog.Store, resolver tenant.Resolver, rdb *redis.Client, log *zap.Logger) *Handler {
	return &Handler{store: store, intake: in, catalog: cat, resolver: resolver, rdb: rdb, log: log}
}

// SubmitJob handles POST /api/v1/market-intelligence/jobs.
func (h *Handler) SubmitJob(w http.ResponseWriter, r *http.Request) {
	tenantID, err := h.resolver.Resolve(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errResponse(err.Error()))
		return
	}

	var req SubmitJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errResponse("malformed request body"))
		return
	}

	result, err := h.intake.Submit(r.Context(), intake.Request{
		TenantID:    tenantID,
		Marketplace: req.Marketplace,
		SearchQuery: req.SearchQuery,
		Category:    req.Category,
		MaxPages:    req.MaxPages,
		Priority:    req.Priority,
	})
	if err != nil {
		writeJSON(w, statusForKind(queue.KindOf(err)), errResponse(err.Error()))
		return
	}

	writeJSON(w, http.StatusAccepted, ok(SubmitJobResponse{
		JobID:  result.JobID,
		Status: string(result.Status),
	}))
}

// GetJob handles GET /api/v1/market-intelligence/jobs/{id}.
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request, id string) {
	job, err := h.store.GetJob(r.Context(), id)
	if err != nil {
		writeJSON(w, statusForKind(queue.KindOf(err)), errResponse(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, ok(job))
}

// GetJobStatus handles GET /api/v1/market-intelligence/jobs/{id}/status.
func (h *Handler) GetJobStatus(w http.ResponseWriter, r *http.Request, id string) {
	status, err := h.store.GetStatus(r.Context(), id)
	if err != nil {
		writeJSON(w, statusForKind(queue.KindOf(err)), errResponse(err.Error()))
		return
	}
	job, _ := h.store.GetJob(r.Context(), id)
	writeJSON(w, http.StatusOK, ok(JobStatusResponse{
		JobID:  id,
		Status: string(status),
		Error:  job.Error,
	}))
}

// CancelJob handles POST /api/v1/market-intelligence/jobs/{id}/cancel. It is
// a supplemental endpoint beyond §6's seven: it surfaces the Pending-or-
// Running→Cancelled transition the job state machine already defines, and
// bumps JobsCancelled so the metric reflects a real, reachable path instead
// of sitting registered but unused.
func (h *Handler) CancelJob(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Cancel(r.Context(), id); err != nil {
		writeJSON(w, statusForKind(queue.KindOf(err)), errResponse(err.Error()))
		return
	}
	obs.JobsCancelled.Inc()
	status, err := h.store.GetStatus(r.Context(), id)
	if err != nil {
		writeJSON(w, statusForKind(queue.KindOf(err)), errResponse(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, ok(JobStatusResponse{JobID: id, Status: string(status)}))
}

// GetTrends handles GET /api/v1/market-intelligence/trends?marketplace=&category=&job_id=.
func (h *Handler) GetTrends(w http.ResponseWriter, r *http.Request) {
	mp := marketplace.Marketplace(r.URL.Query().Get("marketplace"))
	if !mp.Valid() {
		writeJSON(w, http.StatusBadRequest, errResponse("unknown or missing marketplace"))
		return
	}
	category := r.URL.Query().Get("category")

	jobID := r.URL.Query().Get("job_id")
	if jobID == "" {
		writeJSON(w, http.StatusBadRequest, errResponse("job_id is required"))
		return
	}

	products, err := h.store.GetResults(r.Context(), jobID)
	if err != nil {
		writeJSON(w, statusForKind(queue.KindOf(err)), errResponse(err.Error()))
		return
	}

	trend := analyzer.Analyze(mp, category, products)
	writeJSON(w, http.StatusOK, ok(trend))
}

// Health handles GET /api/v1/market-intelligence/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	redisStatus := "up"
	if err := h.rdb.Ping(r.Context()).Err(); err != nil {
		status = "degraded"
		redisStatus = "down"
	}
	writeJSON(w, http.StatusOK, ok(HealthResponse{Status: status, Redis: redisStatus}))
}

// GetProductInsights handles GET /api/v1/crm/products/{id}/insights.
func (h *Handler) GetProductInsights(w http.ResponseWriter, r *http.Request, productID string) {
	tenantID, err := h.resolver.Resolve(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errResponse(err.Error()))
		return
	}

	product, err := h.catalog.GetProduct(r.Context(), tenantID, productID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errResponse(err.Error()))
		return
	}

	jobID := r.URL.Query().Get("job_id")
	var sample []queue.ScrapedProduct
	var trend *analyzer.TrendAnalysis
	if jobID != "" {
		sample, err = h.store.GetResults(r.Context(), jobID)
		if err != nil {
			writeJSON(w, statusForKind(queue.KindOf(err)), errResponse(err.Error()))
			return
		}
		t := analyzer.Analyze("", "", sample)
		trend = &t
	}

	insights := insight.Generate(product, sample, trend)
	writeJSON(w, http.StatusOK, ok(insights))
}

// GetSuggestedPrice handles GET /api/v1/crm/products/{id}/suggested-price.
func (h *Handler) GetSuggestedPrice(w http.ResponseWriter, r *http.Request, productID string) {
	tenantID, err := h.resolver.Resolve(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errResponse(err.Error()))
		return
	}

	product, err := h.catalog.GetProduct(r.Context(), tenantID, productID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errResponse(err.Error()))
		return
	}

	jobID := r.URL.Query().Get("job_id")
	var sample []queue.ScrapedProduct
	if jobID != "" {
		sample, err = h.store.GetResults(r.Context(), jobID)
		if err != nil {
			writeJSON(w, statusForKind(queue.KindOf(err)), errResponse(err.Error()))
			return
		}
	}

	margin := 0.30
	if m := r.URL.Query().Get("target_margin"); m != "" {
		if parsed, err := strconv.ParseFloat(m, 64); err == nil {
			margin = parsed
		}
	}

	price := insight.SuggestOptimalPrice(product, sample, margin)
	writeJSON(w, http.StatusOK, ok(map[string]float64{"suggested_price": price}))
}

func statusForKind(kind queue.Kind) int {
	switch kind {
	case queue.NotFound:
		return http.StatusNotFound
	case queue.ValidationError:
		return http.StatusBadRequest
	case queue.NetworkError, queue.DriverError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
