package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"deployboard/infrastructure/observability"
	"deployboard/interfaces/http/rest/api"
	"deployboard/interfaces/http/rest/handlers"
	"deployboard/interfaces/http/rest/middleware"
)

// Dependencies wires the router. Metrics, WebSocket and Ready are optional.
type Dependencies struct {
	Commands    handlers.CommandSender
	Workspace   handlers.WorkspaceReader
	Sessions    handlers.SessionReader
	Configs     handlers.ConfigLister
	Authorizer  middleware.Authorizer
	WebSocket   http.Handler
	Metrics     *observability.Collector
	Ready       func(ctx context.Context) error
	CORSOrigins []string
	ServiceName string
	Logger      *zap.Logger
}

// Router creates and configures the HTTP router
type Router struct {
	deps Dependencies
}

func NewRouter(deps Dependencies) *Router {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.ServiceName == "" {
		deps.ServiceName = "deployboard"
	}
	return &Router{deps: deps}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	d := rt.deps
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(d.Logger))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if d.Metrics != nil {
		router.Use(d.Metrics.HTTPMetrics)
	}
	router.Use(observability.TracingMiddleware(d.ServiceName))

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if d.Metrics != nil {
		router.Handle("/metrics", d.Metrics.Handler())
	}
	if d.WebSocket != nil {
		router.Handle("/ws", d.WebSocket)
	}

	authHandler := handlers.NewAuthHandler(d.Commands, d.Sessions, d.Logger)
	catalogHandler := handlers.NewCatalogHandler(d.Commands, d.Workspace, d.Logger)
	sectionHandler := handlers.NewSectionHandler(d.Commands, d.Workspace, d.Logger)
	graphHandler := handlers.NewGraphHandler(d.Commands, d.Workspace, d.Logger)
	panelHandler := handlers.NewPanelHandler(d.Commands, d.Workspace, d.Configs, d.Logger)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.CircuitBreaker("api", 5, 30*time.Second, d.Logger))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.Get("/session", authHandler.Session)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(d.Authorizer, d.Logger))

			r.Route("/catalog", func(r chi.Router) {
				r.Get("/", catalogHandler.List)
				r.Get("/search", catalogHandler.Search)
				r.Post("/{categoryID}/toggle", catalogHandler.Toggle)
				r.Get("/{categoryID}/items/{moduleID}/payload", catalogHandler.Payload)
				r.Post("/{categoryID}/items/{moduleID}/click", catalogHandler.Click)
			})

			r.Route("/sections", func(r chi.Router) {
				r.Get("/", sectionHandler.List)
				r.Get("/{sectionID}", sectionHandler.Get)
				r.Post("/{sectionID}/drop", sectionHandler.Drop)
				r.Delete("/{sectionID}/modules/{moduleID}", sectionHandler.Remove)
				r.Post("/{sectionID}/modules/{moduleID}/select", sectionHandler.Select)
			})

			r.Route("/graph", func(r chi.Router) {
				r.Get("/", graphHandler.Get)
				r.Post("/edges", graphHandler.Connect)
				r.Post("/nodes/{nodeID}/select", graphHandler.SelectNode)
			})

			r.Get("/selection", panelHandler.Selection)
			r.Delete("/selection", panelHandler.ClearSelection)
			r.Get("/notifications", panelHandler.Notifications)
			r.Post("/configs", panelHandler.CreateConfig)
			r.Get("/configs", panelHandler.ListConfigs)
			r.Post("/workspace/reset", panelHandler.Reset)
		})
	})

	return router
}

func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	api.RespondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// readinessCheck reports not ready until the workspace has mounted.
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	if rt.deps.Ready != nil {
		if err := rt.deps.Ready(req.Context()); err != nil {
			api.RespondJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"reason": err.Error(),
			})
			return
		}
	}
	api.RespondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
