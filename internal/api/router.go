package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterConfig holds settings for the API router, passed from main so the
// router can configure CORS and auth from env vars.
type RouterConfig struct {
	// BackendAPIKey protects the /api routes when set. Empty skips auth
	// (development mode).
	BackendAPIKey string

	// CorsAllowedOrigins is a comma-separated list of allowed origins.
	// Empty defaults to "*" (development mode).
	CorsAllowedOrigins string

	// OutputDir is served read-only under /rendered_videos/.
	OutputDir string
}

func NewRouter(h *Handler, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	allowedOrigins := []string{"*"}
	if cfg.CorsAllowedOrigins != "" {
		origins := strings.Split(cfg.CorsAllowedOrigins, ",")
		trimmed := make([]string, 0, len(origins))
		for _, o := range origins {
			if s := strings.TrimSpace(o); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			allowedOrigins = trimmed
		}
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check and finished videos are public.
	r.Get("/health", h.Health)
	r.Handle("/rendered_videos/*", http.StripPrefix("/rendered_videos/",
		http.FileServer(http.Dir(cfg.OutputDir))))

	r.Route("/api", func(r chi.Router) {
		if cfg.BackendAPIKey != "" {
			r.Use(APIKeyAuth(cfg.BackendAPIKey))
		}

		r.Post("/qwen", h.QwenCompletion)
		r.Post("/manim_render", h.ManimRender)
		r.Post("/generate_video", h.GenerateVideo)
		r.Post("/merge_audio_video", h.MergeAudioVideo)

		// Async render jobs
		r.Post("/render_jobs", h.CreateRenderJob)
		r.Get("/render_jobs/{id}", h.GetRenderJob)
	})

	return r
}
