package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/markdave123-py/researchhub/internal/api/handlers"
	appMiddleware "github.com/markdave123-py/researchhub/internal/api/middlewares"
	"github.com/markdave123-py/researchhub/internal/services"
)

// Services is the set of domain services the HTTP layer serves.
type Services struct {
	Auth       *services.AuthService
	Workspaces *services.WorkspaceService
	Papers     *services.PaperService
	Search     *services.SearchService
	Chat       *services.ChatService
	Dashboard  *services.DashboardService
}

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
	log        *zap.Logger
}

// NewRouter builds and wires all routes.
func NewRouter(svc Services, corsOrigins []string, log *zap.Logger) http.Handler {
	authHandler := handlers.NewAuthHandler(svc.Auth, log)
	workspaceHandler := handlers.NewWorkspaceHandler(svc.Workspaces, log)
	paperHandler := handlers.NewPaperHandler(svc.Papers, svc.Search, log)
	chatHandler := handlers.NewChatHandler(svc.Chat, log)
	dashboardHandler := handlers.NewDashboardHandler(svc.Dashboard, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(appMiddleware.RequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// public endpoints
	r.Get("/healthz", handlers.Health)
	r.Post("/auth/register", authHandler.Register)
	r.Post("/auth/login", authHandler.Login)

	// protected endpoints
	r.Group(func(protected chi.Router) {
		protected.Use(appMiddleware.JWTMiddleware(svc.Auth))

		protected.Post("/auth/logout", authHandler.Logout)
		protected.Get("/auth/me", authHandler.Me)

		protected.Get("/workspaces", workspaceHandler.List)
		protected.Post("/workspaces", workspaceHandler.Create)
		protected.Get("/workspaces/{id}", workspaceHandler.Get)

		protected.Get("/papers", paperHandler.List)
		protected.Get("/papers/search", paperHandler.Search)
		protected.Post("/papers/import", paperHandler.Import)
		protected.Post("/papers/upload", paperHandler.Upload)

		protected.Get("/chat/history", chatHandler.History)
		protected.Delete("/chat/history", chatHandler.Clear)
		protected.Post("/chat/send", chatHandler.Send)

		protected.Get("/dashboard", dashboardHandler.Summary)
	})

	return r
}

func NewServer(port string, handler http.Handler, log *zap.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              ":" + port,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: log,
	}
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	s.log.Info("HTTP server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
