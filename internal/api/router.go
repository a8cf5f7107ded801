package api

import (
	"context"
	"net/http"

	apiContext "filedrop/internal/api/context"
	"filedrop/internal/api/handlers"
	"filedrop/internal/api/middleware"
	"filedrop/internal/pkg/metrics"

	"github.com/julienschmidt/httprouter"
)

type Dependencies struct {
	InboxHandler      *handlers.InboxHandler
	SubmissionHandler *handlers.SubmissionHandler
	ProfileHandler    *handlers.ProfileHandler
	BillingHandler    *handlers.BillingHandler
	EventsHandler     *handlers.EventsHandler
	HealthHandler     *handlers.HealthHandler
	MetricsHandler    *handlers.MetricsHandler
	AuthMiddleware    *middleware.AuthMiddleware
	Metrics           *metrics.Metrics
	// FilesDir is served under /files/ when uploads are kept on local disk.
	FilesDir string
}

func NewRouter(deps *Dependencies) *httprouter.Router {
	router := httprouter.New()
	r := &routes{router: router, metrics: deps.Metrics}

	authMid := deps.AuthMiddleware

	// Health and metrics
	r.handle(http.MethodGet, "/health/live", deps.HealthHandler.Live)
	r.handle(http.MethodGet, "/health/ready", deps.HealthHandler.Ready)
	router.GET("/metrics", wrap(deps.MetricsHandler.Export))

	// Profile
	r.handle(http.MethodGet, "/api/v1/profile", deps.ProfileHandler.Get, authMid.Handle)
	r.handle(http.MethodPatch, "/api/v1/profile", deps.ProfileHandler.Update, authMid.Handle)
	r.handle(http.MethodGet, "/api/v1/profile/usage", deps.ProfileHandler.Usage, authMid.Handle)
	r.handle(http.MethodPost, "/api/v1/profile/reconcile", deps.ProfileHandler.Reconcile, authMid.Handle)
	r.handle(http.MethodGet, "/api/v1/events", deps.EventsHandler.Stream, authMid.Handle)

	// Inbox management
	r.handle(http.MethodPost, "/api/v1/inboxes", deps.InboxHandler.Create, authMid.Handle)
	r.handle(http.MethodGet, "/api/v1/inboxes", deps.InboxHandler.List, authMid.Handle)
	r.handle(http.MethodGet, "/api/v1/inboxes/:inbox_id", deps.InboxHandler.Get, authMid.Handle)
	r.handle(http.MethodPatch, "/api/v1/inboxes/:inbox_id", deps.InboxHandler.Update, authMid.Handle)
	r.handle(http.MethodDelete, "/api/v1/inboxes/:inbox_id", deps.InboxHandler.Delete, authMid.Handle)
	r.handle(http.MethodPost, "/api/v1/inboxes/:inbox_id/pause", deps.InboxHandler.TogglePause, authMid.Handle)
	r.handle(http.MethodGet, "/api/v1/inboxes/:inbox_id/qr", deps.InboxHandler.GetQRCode, authMid.Handle)
	r.handle(http.MethodGet, "/api/v1/inboxes/:inbox_id/submissions", deps.InboxHandler.ListSubmissions, authMid.Handle)
	r.handle(http.MethodDelete, "/api/v1/submissions/:submission_id", deps.SubmissionHandler.Delete, authMid.Handle)

	// Public intake
	r.handle(http.MethodGet, "/api/v1/public/inboxes/:slug", deps.SubmissionHandler.GetPublicInbox)
	r.handle(http.MethodPost, "/api/v1/public/inboxes/:slug/submissions", deps.SubmissionHandler.Submit, authMid.Optional)

	// Billing
	r.handle(http.MethodPost, "/api/v1/billing/checkout", deps.BillingHandler.Checkout, authMid.Handle)
	r.handle(http.MethodPost, "/api/v1/billing/portal", deps.BillingHandler.Portal, authMid.Handle)
	r.handle(http.MethodPost, "/api/v1/billing/webhook", deps.BillingHandler.Webhook)

	if deps.FilesDir != "" {
		router.ServeFiles("/files/*filepath", http.Dir(deps.FilesDir))
	}

	return router
}

type routes struct {
	router  *httprouter.Router
	metrics *metrics.Metrics
}

// handle registers a route with request logging keyed by its pattern.
func (r *routes) handle(method, path string, handler http.HandlerFunc, middlewares ...func(http.HandlerFunc) http.HandlerFunc) {
	middlewares = append([]func(http.HandlerFunc) http.HandlerFunc{middleware.Observe(path, r.metrics)}, middlewares...)
	r.router.Handle(method, path, chain(handler, middlewares...))
}

// Helper function to chain middlewares
func chain(handler http.HandlerFunc, middlewares ...func(http.HandlerFunc) http.HandlerFunc) httprouter.Handle {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return wrap(handler)
}

// Convert http.HandlerFunc to httprouter.Handle
func wrap(handler http.HandlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		// Inject params into context
		ctx := context.WithValue(r.Context(), apiContext.Params, ps)
		handler(w, r.WithContext(ctx))
	}
}
