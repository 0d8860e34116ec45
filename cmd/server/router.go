package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"hercure/internal/assistant"
	"hercure/internal/auth"
	"hercure/internal/config"
	"hercure/internal/health"
	"hercure/internal/notification"
	"hercure/internal/report"
	"hercure/internal/user"
)

type handlers struct {
	users         *user.Handler
	health        *health.Handler
	reports       *report.Handler
	notifications *notification.Handler
	assistant     *assistant.Handler
}

func newRouter(cfg *config.Config, h handlers) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)
	r.Use(cors(cfg.CORSAllowOrigin))
	r.Use(httprate.LimitByIP(100, 15*time.Minute))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Middleware(cfg.JWTSecret))
		r.Use(h.users.Provision)

		r.Route("/auth", func(r chi.Router) {
			user.RegisterRoutes(r, h.users)
		})
		r.Route("/health", func(r chi.Router) {
			health.RegisterRoutes(r, h.health)
			report.RegisterRoutes(r, h.reports)
		})
		r.Route("/notifications", func(r chi.Router) {
			notification.RegisterRoutes(r, h.notifications)
		})
		r.Route("/ai", func(r chi.Router) {
			assistant.RegisterRoutes(r, h.assistant)
		})
	})
	return r
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Disclaimer", "This AI does not replace a doctor")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

// cors answers preflight requests before authentication runs.
func cors(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
