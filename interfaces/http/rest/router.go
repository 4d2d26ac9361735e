// Package rest wires the HTTP routes to the application services.
package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"knkt-backend/application/services"
	"knkt-backend/infrastructure/config"
	"knkt-backend/interfaces/http/rest/handlers"
	"knkt-backend/interfaces/http/rest/middleware"
	"knkt-backend/pkg/auth"
	appErrors "knkt-backend/pkg/errors"
)

// Router creates and configures the HTTP router
type Router struct {
	cfg         *config.Config
	profiles    *services.ProfileService
	matches     *services.MatchService
	connections *services.ConnectionService
	chat        *services.ChatService
	validator   *auth.JWTValidator
	logger      *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	cfg *config.Config,
	profiles *services.ProfileService,
	matches *services.MatchService,
	connections *services.ConnectionService,
	chat *services.ChatService,
	validator *auth.JWTValidator,
	logger *zap.Logger,
) *Router {
	return &Router{
		cfg:         cfg,
		profiles:    profiles,
		matches:     matches,
		connections: connections,
		chat:        chat,
		validator:   validator,
		logger:      logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))

	if rt.cfg.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:3000", "https://*.knkt.app"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	router.Get("/health", rt.healthCheck)

	errorHandler := appErrors.NewErrorHandler(rt.logger, rt.cfg.IsDevelopment())
	profileHandler := handlers.NewProfileHandler(rt.profiles, errorHandler, rt.logger)
	matchHandler := handlers.NewMatchHandler(rt.matches, rt.cfg.DefaultMatchLimit, rt.cfg.DefaultMatchThreshold, errorHandler, rt.logger)
	connectionHandler := handlers.NewConnectionHandler(rt.connections, errorHandler, rt.logger)
	chatHandler := handlers.NewChatHandler(rt.chat, errorHandler, rt.logger)

	router.Route("/api/v1", func(r chi.Router) {
		// Onboarding creates the profile before a token exists.
		r.Post("/profiles", profileHandler.CreateProfile)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(rt.validator, rt.logger))

			r.Route("/profiles", func(r chi.Router) {
				r.Get("/me", profileHandler.GetMyProfile)
				r.Put("/me", profileHandler.UpdateMyProfile)
				r.Delete("/me", profileHandler.DeleteMyProfile)
				r.Put("/me/device-token", profileHandler.SetDeviceToken)
				r.Get("/{uid}", profileHandler.GetProfile)
			})

			r.Get("/matches", matchHandler.FindMatches)

			r.Route("/connections", func(r chi.Router) {
				r.Post("/", connectionHandler.ProposeConnection)
				r.Get("/", connectionHandler.ListConnections)
				r.Get("/accepted", connectionHandler.ListAcceptedConnections)
				r.Get("/{connectionID}", connectionHandler.GetConnection)
				r.Post("/{connectionID}/accept", connectionHandler.AcceptConnection)
				r.Post("/{connectionID}/nearby", connectionHandler.NotifyNearby)
			})

			r.Route("/rooms", func(r chi.Router) {
				r.Post("/", chatHandler.OpenRoom)
				r.Get("/", chatHandler.ListRooms)
				r.Get("/{roomID}", chatHandler.GetRoom)
				r.Get("/{roomID}/messages", chatHandler.ListMessages)
				r.Post("/{roomID}/messages", chatHandler.PostMessage)
			})
		})
	})

	return router
}

func (rt *Router) healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}
