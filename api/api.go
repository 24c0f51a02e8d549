// Package api exposes the RedSheet REST surface: authentication, CRUD and
// list queries for engagement records, the admin panel, and the audit sink
// that backs the client's honeypot pings.
package api

import (
	_ "embed"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-openapi/runtime/middleware"

	"github.com/clearmind/redsheet/access"
	"github.com/clearmind/redsheet/notify"
	"github.com/clearmind/redsheet/storage"
)

//go:embed openapi.yaml
var openapiSpec []byte

// API holds the dependencies needed by the REST handlers.
type API struct {
	repo        storage.Repository
	signer      tokenSigner
	audit       *auditLogger
	bus         *notify.Bus
	rateLimiter *loginRateLimiter
	webhook     access.Pinger
	now         func() time.Time
}

// Option configures the API instance.
type Option func(*API)

// WithLogger sets the structured logger for audit events. If not set, a
// default JSON logger writing to stderr is used.
func WithLogger(logger *slog.Logger) Option {
	return func(a *API) {
		a.audit = newAuditLogger(logger)
	}
}

// WithBus sets the process notification bus. If not set, a private bus is
// created.
func WithBus(bus *notify.Bus) Option {
	return func(a *API) {
		a.bus = bus
	}
}

// WithTokenTTL overrides the default session token lifetime.
func WithTokenTTL(ttl time.Duration) Option {
	return func(a *API) {
		a.signer.ttl = ttl
	}
}

// WithAuditWebhook forwards security-level activity to an out-of-process
// sink, fire and forget.
func WithAuditWebhook(p access.Pinger) Option {
	return func(a *API) {
		a.webhook = p
	}
}

// WithClock overrides the API clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(a *API) {
		a.now = now
	}
}

// New creates a new API instance. secret signs session tokens and must be
// stable across restarts for sessions to survive them.
func New(repo storage.Repository, secret []byte, opts ...Option) *API {
	a := &API{
		repo:        repo,
		signer:      tokenSigner{secret: secret, ttl: defaultTokenTTL},
		rateLimiter: newLoginRateLimiter(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.audit == nil {
		a.audit = newAuditLogger(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
	}
	if a.bus == nil {
		a.bus = notify.NewBus()
	}
	if a.webhook == nil {
		a.webhook = access.NopPinger{}
	}
	return a
}

// Router returns a chi.Router with all API routes mounted.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(openapiSpec)
	})

	r.Handle("/docs*", middleware.SwaggerUI(middleware.SwaggerUIOpts{
		SpecURL: "/api/v1/openapi.yaml",
		Path:    "api/v1/docs",
	}, nil))

	r.Handle("/redoc*", middleware.Redoc(middleware.RedocOpts{
		SpecURL: "/api/v1/openapi.yaml",
		Path:    "api/v1/redoc",
	}, nil))

	r.Post("/auth/login", a.Login)
	r.With(a.AuthMiddleware).Post("/auth/logout", a.Logout)
	r.With(a.AuthMiddleware, a.RequireValidSession).Get("/auth/me", a.WhoAmI)

	// Honeypot/audit sink: accepts denial pings from unauthenticated
	// callers too, so the middleware chain stops at token extraction.
	r.With(a.AuthMiddleware).Post("/audit", a.AuditSink)

	a.mountCollection(r, "/payloads", collectionRoutes{
		list: a.ListPayloads, create: a.CreatePayload,
		get: a.GetPayload, update: a.UpdatePayload, delete: a.DeletePayload,
	})
	a.mountCollection(r, "/targets", collectionRoutes{
		list: a.ListTargets, create: a.CreateTarget,
		get: a.GetTarget, update: a.UpdateTarget, delete: a.DeleteTarget,
	})
	a.mountCollection(r, "/boxes", collectionRoutes{
		list: a.ListBoxes, create: a.CreateBox,
		get: a.GetBox, update: a.UpdateBox, delete: a.DeleteBox,
	})
	a.mountCollection(r, "/tools", collectionRoutes{
		list: a.ListTools, create: a.CreateTool,
		get: a.GetTool, update: a.UpdateTool, delete: a.DeleteTool,
	})
	a.mountCollection(r, "/wiki", collectionRoutes{
		list: a.ListWikiPages, create: a.CreateWikiPage,
		get: a.GetWikiPage, update: a.UpdateWikiPage, delete: a.DeleteWikiPage,
	})

	r.Route("/news", func(r chi.Router) {
		r.Use(a.AuthMiddleware, a.RequireValidSession)
		r.Get("/", a.ListNews)
	})

	r.Route("/logs", func(r chi.Router) {
		r.Use(a.AuthMiddleware)
		r.With(a.RequireAdmin).Get("/", a.ListLogs)
		r.With(a.RequireValidSession).Post("/", a.CreateLog)
	})

	r.Route("/users", func(r chi.Router) {
		r.Use(a.AuthMiddleware, a.RequireAdmin)
		r.Get("/", a.ListUsers)
		r.Post("/", a.CreateUser)
		r.Put("/{username}/role", a.UpdateUserRole)
		r.Delete("/{username}", a.DeleteUser)
	})

	r.With(a.AuthMiddleware, a.RequireAdmin).Get("/activity", a.Activity)

	return r
}

// collectionRoutes bundles the five handlers of a CRUD collection.
type collectionRoutes struct {
	list, create, get, update, delete http.HandlerFunc
}

// mountCollection wires a collection with the standard role policy: valid
// session to read, pentester or admin to mutate.
func (a *API) mountCollection(r chi.Router, pattern string, routes collectionRoutes) {
	r.Route(pattern, func(r chi.Router) {
		r.Use(a.AuthMiddleware)
		r.With(a.RequireValidSession).Get("/", routes.list)
		r.With(a.RequireValidSession).Get("/{id}", routes.get)
		r.With(a.RequirePentester).Post("/", routes.create)
		r.With(a.RequirePentester).Put("/{id}", routes.update)
		r.With(a.RequirePentester).Delete("/{id}", routes.delete)
	})
}
