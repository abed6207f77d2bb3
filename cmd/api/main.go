package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mathtutor/videolab/internal/api"
	"github.com/mathtutor/videolab/internal/config"
	"github.com/mathtutor/videolab/internal/llm"
	"github.com/mathtutor/videolab/internal/media"
	"github.com/mathtutor/videolab/internal/queue"
	"github.com/mathtutor/videolab/internal/renderer"
	"github.com/mathtutor/videolab/internal/store"
	"github.com/mathtutor/videolab/internal/tts"
	"github.com/mathtutor/videolab/internal/worker"
)

func main() {
	log.Println("Starting VideoLab API...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Render manifest is optional: empty DATABASE_URL runs without one
	var st *store.Store
	if cfg.DatabaseURL != "" {
		st, err = store.New(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer st.Close()
	} else {
		log.Println("No DATABASE_URL set — running without a render manifest")
	}

	// Redis queue is optional too: without it only synchronous renders work
	var q *queue.Queue
	if cfg.RedisURL != "" {
		q, err = queue.New(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect to queue: %v", err)
		}
		defer q.Close()
		log.Println("Connected to Redis queue")
	} else {
		log.Println("No REDIS_URL set — async render jobs disabled")
	}

	// LLM strategy chain: SDK, mirrors, optionally Gemini, then fallback
	remotes := []llm.Strategy{
		llm.NewSDKStrategy(),
		llm.NewMirrorStrategy(),
	}
	if cfg.GeminiKey != "" {
		remotes = append(remotes, llm.NewGeminiStrategy(cfg.GeminiKey))
		log.Println("Gemini fallback strategy enabled")
	}
	llmSvc := llm.NewService(remotes)

	toolchain := media.NewToolchain(cfg.FFmpegBin, cfg.FFprobeBin, cfg.TempDir)
	runner := renderer.New(cfg.ManimBin, cfg.TempDir, cfg.MediaDir, cfg.OutputDir, cfg.RenderTimeout(), toolchain)

	// Shared by the sync render path and the worker
	ttsSvc := tts.FromConfig(cfg.ElevenLabsKey, cfg.ElevenLabsVoiceID, cfg.TTSCommand, cfg.TempDir)
	if ttsSvc == nil {
		log.Println("No TTS provider configured — narration requests will be rejected or silent")
	}

	handler := api.NewHandler(llmSvc, runner, toolchain, st, q, ttsSvc, cfg.QwenAPIKey, cfg.OutputDir)
	router := api.NewRouter(handler, api.RouterConfig{
		BackendAPIKey:      cfg.BackendAPIKey,
		CorsAllowedOrigins: cfg.CorsAllowedOrigins,
		OutputDir:          cfg.OutputDir,
	})

	if cfg.BackendAPIKey != "" {
		log.Println("API key authentication enabled")
	} else {
		log.Println("WARNING: No BACKEND_API_KEY set — API is unprotected (dev mode)")
	}

	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: router,
	}

	// Start worker if enabled and a queue is available
	var workerCancel context.CancelFunc
	if cfg.WorkerEnabled && q != nil {
		log.Println("Worker enabled, starting background processing...")

		w := worker.New(st, q, runner, toolchain, ttsSvc, cfg.TempDir)

		var workerCtx context.Context
		workerCtx, workerCancel = context.WithCancel(context.Background())
		go w.Start(workerCtx, cfg.MaxConcurrentJobs)
	}

	// Start server in goroutine
	go func() {
		log.Printf("API server listening on :%s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	if workerCancel != nil {
		workerCancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
