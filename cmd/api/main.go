package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/your-org/emomatch/internal/annotator"
	"github.com/your-org/emomatch/internal/api"
	"github.com/your-org/emomatch/internal/api/ws"
	"github.com/your-org/emomatch/internal/config"
	"github.com/your-org/emomatch/internal/emotion"
	"github.com/your-org/emomatch/internal/intake"
	"github.com/your-org/emomatch/internal/llm"
	"github.com/your-org/emomatch/internal/matcher"
	"github.com/your-org/emomatch/internal/observability"
	"github.com/your-org/emomatch/internal/queue"
	"github.com/your-org/emomatch/internal/registrar"
	"github.com/your-org/emomatch/internal/storage"
	"github.com/your-org/emomatch/internal/store"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("starting emomatch API service", "port", cfg.Server.Port)

	// Description store
	var st store.Store
	switch cfg.Store.Backend {
	case "postgres":
		pg, err := store.NewPostgresStore(cfg.Database)
		if err != nil {
			slog.Error("connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		st = pg
	default:
		js, err := store.NewJSONStore(cfg.Store.Path)
		if err != nil {
			slog.Error("open registry file", "error", err)
			os.Exit(1)
		}
		st = js
	}

	// Model clients
	client := llm.NewClient(llm.Config{
		BaseURL:        cfg.Model.BaseURL,
		APIKey:         cfg.Model.APIKey,
		MaxTokens:      cfg.Model.MaxTokens,
		TimeoutSeconds: cfg.Model.TimeoutSeconds,
	})
	ann := annotator.New(client, cfg.Model.VisionModel, cfg.Model.TextModel)

	embeddingModel := ""
	if cfg.Matching.Strategy == "embedding" {
		embeddingModel = cfg.Model.EmbeddingModel
		if embeddingModel == "" {
			slog.Error("matching.strategy is embedding but model.embedding_model is empty")
			os.Exit(1)
		}
	}
	extractor := emotion.New(client, cfg.Model.TextModel, embeddingModel)

	var scorer matcher.Scorer
	if cfg.Matching.Strategy == "embedding" {
		scorer = matcher.CosineScorer{}
	} else {
		scorer = matcher.TagScorer{SimilarityLimit: cfg.Matching.SimilarityLimit}
	}
	match := matcher.New(st, extractor, scorer)

	// Optional MinIO mirror for uploaded images
	var minioStore *storage.MinIOStore
	if cfg.MinIO.Endpoint != "" {
		minioStore, err = storage.NewMinIOStore(cfg.MinIO)
		if err != nil {
			slog.Error("connect to minio", "error", err)
			os.Exit(1)
		}
		if err := minioStore.EnsureBucket(context.Background()); err != nil {
			slog.Warn("ensure minio bucket", "error", err)
		}
	}

	intakeOpts := []intake.Option{}
	if minioStore != nil {
		intakeOpts = append(intakeOpts, intake.WithMirror(minioStore))
	}
	in := intake.New(cfg.Emoji, intakeOpts...)

	// Optional NATS event stream
	var producer *queue.Producer
	if cfg.NATS.URL != "" {
		producer, err = queue.NewProducer(cfg.NATS.URL)
		if err != nil {
			slog.Error("connect to nats", "error", err)
			os.Exit(1)
		}
		defer producer.Close()
		if err := producer.EnsureStream(context.Background()); err != nil {
			slog.Warn("ensure nats stream", "error", err)
		}
	}

	// WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Registrar
	reg := registrar.New(cfg.Emoji, st, ann)
	if embeddingModel != "" {
		reg.WithEmbedder(extractor)
	}
	if producer != nil {
		reg.WithEvents(producer)
	}
	reg.WithHub(hub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go reg.Run(ctx)

	// Setup router
	router := api.NewRouter(api.RouterConfig{
		Emoji:     cfg.Emoji,
		Intake:    in,
		Matcher:   match,
		Registrar: reg,
		Store:     st,
		Hub:       hub,
		MinIO:     minioStore,
		Events:    producer,
	})

	// Start HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("API server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down API server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("API server stopped")
}
