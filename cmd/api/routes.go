package main

import (
	"crypto/subtle"
	"net/http"
	"net/http/pprof"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-invoice/internal/audit"
	"github.com/noah-isme/backend-invoice/internal/auth"
	"github.com/noah-isme/backend-invoice/internal/billing"
	"github.com/noah-isme/backend-invoice/internal/common"
	"github.com/noah-isme/backend-invoice/internal/config"
	"github.com/noah-isme/backend-invoice/internal/health"
	"github.com/noah-isme/backend-invoice/internal/notify"
	"github.com/noah-isme/backend-invoice/internal/obs"
	"github.com/noah-isme/backend-invoice/internal/queue"
	"github.com/noah-isme/backend-invoice/internal/ratelimit"
	"github.com/noah-isme/backend-invoice/internal/reports"
	"github.com/noah-isme/backend-invoice/internal/security"
	"github.com/noah-isme/backend-invoice/internal/settings"
	"github.com/noah-isme/backend-invoice/internal/tenant"
	"github.com/noah-isme/backend-invoice/internal/trip"
)

type routerDeps struct {
	cfg    *config.Config
	logger zerolog.Logger

	health   health.Handler
	auth     *auth.Handler
	authMW   auth.Middleware
	settings *settings.Handler
	trips    *trip.Handler
	invoices *billing.Handler
	webhooks *notify.Handler
	reports  *reports.Handler
	audit    audit.Handler
	recorder audit.HTTPRecorder
	jobs     *queue.AdminHandler

	idem       common.Idem
	apiLimit   ratelimit.Handler
	tokenLimit ratelimit.Handler
}

func newRouter(d routerDeps) http.Handler {
	cfg := d.cfg

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	r.Use(obs.TracingMiddleware)
	r.Use(obs.HTTPObs{Metrics: obs.NewHTTPMetrics("invoice", nil, nil)}.Middleware)
	r.Use(obs.RequestLogger{Logger: d.logger}.Middleware)
	r.Use(security.Headers{Enable: cfg.SecurityHeaders, EnableHSTS: cfg.EnableHSTS}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(cfg),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders: []string{"Location", "Content-Disposition", "X-Total-Count", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		MaxAge:         300,
	}))
	r.Use(security.BodyLimit{Max: cfg.BodyLimitBytes}.Middleware)

	r.Handle("/metrics", promhttp.Handler())
	r.Mount("/debug/pprof", protectPprof(newPprofMux(), cfg.PprofUser, cfg.PprofPass))
	r.Get("/health/live", d.health.Live)
	r.Get("/health/ready", d.health.Ready)

	invoiceAudit := func(action string) func(http.Handler) http.Handler {
		return d.recorder.Middleware(audit.HTTPConfig{Action: action, ResourceType: "invoice", ResourceIDParam: "id"})
	}

	r.Route("/api/v1", func(v chi.Router) {
		v.Route("/auth", func(a chi.Router) {
			a.With(d.tokenLimit.Middleware).Post("/token", d.auth.Token)
			a.With(d.authMW.RequireAuth).Get("/me", d.auth.Me)
		})

		v.Group(func(p chi.Router) {
			p.Use(d.authMW.RequireAuth)
			p.Use(tenant.RequireTenant)
			p.Use(d.apiLimit.Middleware)

			p.Get("/settings/invoice", d.settings.Get)
			p.With(
				auth.RequireRole(auth.RoleCompany, auth.RoleAdmin),
				d.recorder.Middleware(audit.HTTPConfig{Action: "settings.update", ResourceType: "settings"}),
			).Put("/settings/invoice", d.settings.Put)

			p.Get("/trips", d.trips.List)

			p.Route("/invoices", func(inv chi.Router) {
				inv.Post("/preview", d.invoices.Preview)
				inv.Post("/blank-item", d.invoices.BlankItem)
				inv.With(d.idem.Middleware, invoiceAudit("invoice.create")).Post("/", d.invoices.Create)
				inv.Get("/", d.invoices.List)
				inv.Get("/{id}", d.invoices.Get)
				inv.With(invoiceAudit("invoice.status")).Patch("/{id}/status", d.invoices.UpdateStatus)
				inv.Get("/{id}/pdf", d.invoices.PDF)
			})

			p.Get("/reports/invoices", d.reports.Invoices)

			p.Route("/webhooks", func(wh chi.Router) {
				wh.Use(auth.RequireRole(auth.RoleCompany, auth.RoleAdmin))
				wh.Get("/", d.webhooks.List)
				wh.With(d.recorder.Middleware(audit.HTTPConfig{Action: "webhook.create", ResourceType: "webhook"})).Post("/", d.webhooks.Create)
				wh.With(d.recorder.Middleware(audit.HTTPConfig{Action: "webhook.delete", ResourceType: "webhook", ResourceIDParam: "id"})).Delete("/{id}", d.webhooks.Delete)
			})

			p.Route("/admin", func(admin chi.Router) {
				admin.Use(auth.RequireRole(auth.RoleAdmin))
				admin.Get("/audit-logs", d.audit.List)
				admin.Get("/jobs/stats", d.jobs.Stats)
				admin.Get("/jobs/archived", d.jobs.ListArchived)
				admin.Post("/jobs/archived/{id}/run", d.jobs.RunArchived)
			})
		})
	})
	return r
}

// tenantScope namespaces idempotency keys by the authenticated company.
func tenantScope(r *http.Request) string {
	id, _ := tenant.From(r.Context())
	return id
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	for _, name := range []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"} {
		mux.Handle("/"+name, pprof.Handler(name))
	}
	return mux
}

// protectPprof guards the profiler with basic auth. Without a configured user it is not served.
func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	if user == "" {
		return http.NotFoundHandler()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
