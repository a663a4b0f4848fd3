package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/helpdesk-io/apiserver/config"
	"github.com/helpdesk-io/apiserver/internal/db"
	"github.com/helpdesk-io/apiserver/internal/handlers"
	"github.com/helpdesk-io/apiserver/internal/services"
	"github.com/helpdesk-io/apiserver/internal/store"
	"github.com/helpdesk-io/apiserver/internal/token"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
}

// New constructs a Server with basic middleware and defaults.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	jwtSecret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if jwtSecret == "" {
		_ = dbConn.Close()
		return nil, errors.New("JWT_SECRET is required")
	}
	issuer := token.NewIssuer(jwtSecret, token.DefaultTTL)

	userRepo := store.NewUserRepository(dbConn)
	ticketRepo := store.NewTicketRepository(dbConn)
	commentRepo := store.NewCommentRepository(dbConn)
	viewRepo := store.NewViewRepository(dbConn)

	authService := services.NewAuthService(userRepo, services.BcryptHasher{}, issuer)
	ticketService := services.NewTicketService(ticketRepo, commentRepo, viewRepo, userRepo)

	authMiddleware := handlers.RequireAuth(issuer)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/api/auth", func(r chi.Router) {
		handlers.AuthRouter(r, authService, issuer)
	})
	router.Route("/api/tickets", func(r chi.Router) {
		handlers.TicketRouter(r, ticketService, authMiddleware)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.db != nil {
		_ = s.db.Close()
	}
	return s.httpServer.Close()
}
