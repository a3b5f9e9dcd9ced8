package httpserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	mongodb "go.mongodb.org/mongo-driver/mongo"

	"kairos_go/internal/config"
	"kairos_go/internal/security"
	"kairos_go/internal/service"
	"kairos_go/internal/store/mongo"
	"kairos_go/internal/ws"
)

// NewRouter constructs the main HTTP router and wires routes, services, and middleware.
func NewRouter(
	cfg *config.Config,
	db *mongodb.Database,
	hub *ws.Hub,
	tokenSvc *security.TokenService,
	passwordHasher *security.PasswordHasher,
	encryptor *security.Encryptor,
	responder service.Responder,
	escalator service.Escalator,
) http.Handler {
	r := chi.NewRouter()

	// Middlewares
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Repositories
	userRepo := mongo.NewUserRepo(db)
	msgRepo := mongo.NewMessageRepo(db)

	// Services
	authSvc := service.NewAuthService(userRepo, tokenSvc, passwordHasher)
	chatSvc := service.NewChatService(msgRepo, responder, encryptor, escalator)
	adminSvc := service.NewAdminService(userRepo, msgRepo, responder, encryptor)
	oauth := NewGoogleOAuth(cfg)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"message":"Kairos Wellness API","version":"1.0.0"}`))
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Auth routes (no auth required)
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", handleRegister(authSvc))
			r.Post("/token", handleToken(authSvc))
			r.Get("/google/login", handleGoogleLogin(oauth))
			r.Get("/google/auth", handleGoogleCallback(oauth, authSvc))
		})

		// WebSocket endpoint authenticates itself from the upgrade request.
		r.Get("/chat/ws", ws.MakeHandler(hub, tokenSvc, userRepo, chatSvc, cfg.CORSOrigins))

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(tokenSvc, userRepo))

			r.Route("/chat", func(r chi.Router) {
				r.Post("/message", handleChatMessage(chatSvc))
				r.Get("/history", handleChatHistory(chatSvc))
				r.Get("/wellness-suggestions", handleWellnessSuggestions(responder))
				r.Get("/emotion-analysis", handleEmotionAnalysis(responder))
			})

			r.Get("/users/me", handleMe())

			r.Route("/admin", func(r chi.Router) {
				r.Use(RequireModerator(cfg.AdminOpenAccess))

				r.Get("/dashboard", handleAdminDashboard(adminSvc))
				r.Get("/messages", handleAdminMessages(adminSvc))
				r.Get("/flagged", handleAdminFlagged(adminSvc))
				r.Post("/flag/{id}", handleAdminFlag(adminSvc))
				r.Post("/analyze-conversation/{user_id}", handleAdminAnalyzeConversation(adminSvc))
				r.Get("/emotions-report", handleAdminEmotionsReport(adminSvc))
				r.Post("/wellness-insights", handleAdminWellnessInsights(adminSvc))
				r.Get("/users", handleAdminUsers(adminSvc))
			})
		})
	})

	return r
}

// writeJSON is a small helper to send JSON responses.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}
