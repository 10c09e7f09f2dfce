package httpadapter

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/kirillkom/invoice-hub-agent/internal/config"
	"github.com/kirillkom/invoice-hub-agent/internal/core/ports"
	"github.com/kirillkom/invoice-hub-agent/internal/observability/metrics"
)

const maxJSONBody = 1 << 20

// FileSpooler copies an uploaded part to local disk so the upload workflow can re-read it.
type FileSpooler interface {
	Spool(ctx context.Context, name string, data io.Reader) (string, int64, error)
}

type Deps struct {
	Uploads    ports.UploadWorkflow
	Duplicates ports.DuplicateResolver
	Drafts     ports.DraftPurchaseOrders
	Status     ports.StatusReader
	Session    ports.SessionManager
	Review     ports.ReviewRecords
	UserConfig ports.UserConfigReader
	Spool      FileSpooler
	Metrics    *metrics.HTTPServerMetrics
}

type Router struct {
	deps Deps

	serviceName      string
	apiKey           string
	rateLimitRPS     float64
	rateLimitBurst   int
	maxInFlight      int
	backpressureWait time.Duration
	maxUploadBytes   int64
}

func NewRouter(cfg config.Config, deps Deps) *Router {
	wait := time.Duration(cfg.APIBackpressureWaitMS) * time.Millisecond
	if wait <= 0 {
		wait = 250 * time.Millisecond
	}
	maxUpload := cfg.APIMaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 64 << 20
	}
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "invoicehub-agent"
	}
	return &Router{
		deps:             deps,
		serviceName:      serviceName,
		apiKey:           cfg.APIKey,
		rateLimitRPS:     cfg.APIRateLimitRPS,
		rateLimitBurst:   cfg.APIRateLimitBurst,
		maxInFlight:      cfg.APIMaxInFlight,
		backpressureWait: wait,
		maxUploadBytes:   maxUpload,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	if rt.deps.Metrics != nil {
		mux.Handle("GET /metrics", rt.deps.Metrics.Handler())
	}

	mux.HandleFunc("GET /v1/status", rt.getStatus)

	mux.HandleFunc("GET /v1/uploads", rt.getUploadState)
	mux.HandleFunc("POST /v1/uploads/files", rt.addUploadFiles)
	mux.HandleFunc("DELETE /v1/uploads/files/{index}", rt.removeUploadFile)
	mux.HandleFunc("POST /v1/uploads/run", rt.runUpload)
	mux.HandleFunc("POST /v1/uploads/resume", rt.resumeUpload)

	mux.HandleFunc("GET /v1/duplicates/current", rt.currentDuplicate)
	mux.HandleFunc("POST /v1/duplicates/skip", rt.skipDuplicate)
	mux.HandleFunc("POST /v1/duplicates/upload-anyway", rt.uploadDuplicateAnyway)
	mux.HandleFunc("GET /v1/duplicates/view", rt.viewDuplicate)

	mux.HandleFunc("GET /v1/draft-po", rt.listDraft)
	mux.HandleFunc("DELETE /v1/draft-po", rt.clearDraft)
	mux.HandleFunc("POST /v1/draft-po/load", rt.loadDraft)
	mux.HandleFunc("GET /v1/draft-po/export", rt.exportDraft)
	mux.HandleFunc("POST /v1/draft-po/items", rt.addDraftItem)
	mux.HandleFunc("POST /v1/draft-po/quick-add/{part}", rt.quickAddDraftItem)
	mux.HandleFunc("PUT /v1/draft-po/items/{part}/quantity", rt.updateDraftQuantity)
	mux.HandleFunc("DELETE /v1/draft-po/items/{part}", rt.removeDraftItem)
	mux.HandleFunc("POST /v1/draft-po/proceed", rt.proceedDraft)

	mux.HandleFunc("GET /v1/purchase-orders", rt.listPurchaseOrders)
	mux.HandleFunc("POST /v1/purchase-orders/{po_id}/pdf", rt.downloadPurchaseOrderPDF)

	mux.HandleFunc("GET /v1/review/{kind}", rt.reviewRecords)
	mux.HandleFunc("GET /v1/config", rt.userConfig)

	mux.HandleFunc("POST /v1/session/login", rt.login)
	mux.HandleFunc("POST /v1/session/logout", rt.logout)
	mux.HandleFunc("GET /v1/session", rt.session)

	var onReject func(string)
	if rt.deps.Metrics != nil {
		onReject = func(reason string) { rt.deps.Metrics.RecordRejected(rt.serviceName, reason) }
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.maxInFlight, rt.backpressureWait, onReject)
	handler = rateLimitMiddleware(handler, rt.rateLimitRPS, rt.rateLimitBurst, onReject)
	handler = apiKeyMiddleware(handler, rt.apiKey)
	if rt.deps.Metrics != nil {
		handler = rt.deps.Metrics.Middleware(rt.serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return otelhttp.NewHandler(handler, rt.serviceName)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) getStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, rt.deps.Status.Snapshot())
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func decodeJSONBody(r *http.Request, out any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}
