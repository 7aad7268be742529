package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/bfjia/VeryUsefulDownloadingTool/internal/auth"
	"github.com/bfjia/VeryUsefulDownloadingTool/internal/config"
	"github.com/bfjia/VeryUsefulDownloadingTool/internal/transport/http/middleware"
)

// NewRouter creates a chi router with all routes and middleware configured.
// Login and logout are always reachable; everything else sits behind the
// auth gate.
func NewRouter(cfg *config.Config, handlers *Handlers, gate *auth.Gate, loginLimiter *middleware.LoginLimiter) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(chimiddleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Auth endpoints, reachable without a session.
	r.Get(auth.LoginPath, handlers.LoginPage)
	r.Group(func(r chi.Router) {
		r.Use(loginLimiter.Middleware)
		r.Post(auth.LoginPath, handlers.Login)
	})
	r.Post("/logout", handlers.Logout)

	// Everything else requires an authenticated session.
	r.Group(func(r chi.Router) {
		r.Use(gate.Require)

		r.Get("/", handlers.Index)
		r.Post("/ddddd/vvvvv", handlers.DownloadVideo)
		r.Post("/ddddd/aaaaa", handlers.DownloadAudio)
		r.Get("/download/{token}", handlers.DownloadByToken)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found.")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed.")
	})

	return r
}

// NewServer creates the HTTP server. The write timeout must cover a full
// extraction plus streaming the result back.
func NewServer(addr string, handler http.Handler, downloadTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: downloadTimeout + 5*time.Minute,
		IdleTimeout:  120 * time.Second,
	}
}
