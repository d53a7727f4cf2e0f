package api

import (
	"log/slog"
	"net/http"
	"time"

	"messagely/internal/api/handler"
	"messagely/internal/api/middleware"
	"messagely/internal/app/service"
	"messagely/internal/common/security"
	"messagely/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
)

type Services struct {
	Auth     *service.AuthService
	Users    *service.UserService
	Messages *service.MessageService
}

func NewRouter(
	tokens *security.TokenIssuer,
	services Services,
	logger *slog.Logger,
	rec metrics.Recorder,
	metricsHandler http.Handler,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(logger, rec))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	// Looks for "Authorization: Bearer T" and puts the verified token in context.
	r.Use(jwtauth.Verifier(tokens.Auth()))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api/v1", func(v1 chi.Router) {
		authHandler := handler.NewAuthHandler(services.Auth)
		v1.Group(func(public chi.Router) {
			authHandler.RegisterRoutes(public)
		})

		v1.Group(func(protected chi.Router) {
			protected.Use(middleware.Authenticator)

			messageHandler := handler.NewMessageHandler(services.Messages)
			protected.Route("/messages", messageHandler.RegisterRoutes)

			userHandler := handler.NewUserHandler(services.Users, services.Messages)
			protected.Route("/users", userHandler.RegisterRoutes)
		})
	})

	return r
}
