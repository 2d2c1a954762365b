package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"bananaart/internal/adapter/memrepo"
	"bananaart/internal/adapter/repo"
	"bananaart/internal/domain"
	"bananaart/internal/generation"
	"bananaart/internal/http/handlers"
	httpapi "bananaart/internal/http/httpapi"
	"bananaart/internal/infra"
	"bananaart/internal/infra/credentials"
	"bananaart/internal/library"
	"bananaart/internal/providers/genai"
	"bananaart/internal/storage"
)

type repositories struct {
	images      domain.ImageRepository
	templates   domain.TemplateRepository
	generations domain.GenerationRepository
}

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)
	ctx := context.Background()

	var repos repositories
	gemini := credentials.Credential{Token: cfg.GeminiAPIKey, Model: cfg.GeminiModel}
	if cfg.UsesMemoryStore() {
		mem := memrepo.New()
		repos = repositories{images: mem.Images(), templates: mem.Templates(), generations: mem.Generations()}
		logger.Warn().Msg("using in-memory repositories; data is lost on restart")
	} else {
		dbpool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect database")
		}
		defer dbpool.Close()
		if err := infra.EnsureSchema(ctx, dbpool); err != nil {
			logger.Fatal().Err(err).Msg("failed to prepare schema")
		}
		sqlRunner := infra.NewSQLRunner(dbpool, infra.Component(logger, "sql"))
		repos = repositories{
			images:      repo.NewImageRepository(sqlRunner),
			templates:   repo.NewTemplateRepository(sqlRunner),
			generations: repo.NewGenerationRepository(sqlRunner),
		}
		resolved, err := credentials.NewStore(sqlRunner).ResolveGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Error().Err(err).Msg("failed to load stored gemini api key")
		} else {
			gemini = resolved
		}
	}

	if cfg.RecoverPending {
		if err := generation.RecoverPending(ctx, repos.generations, logger); err != nil {
			logger.Error().Err(err).Msg("pending generation recovery failed")
		}
	}

	store, err := storage.NewFileStore(cfg.StoragePath, storage.Options{Prefix: cfg.StaticPrefix, CacheTTL: cfg.ArtifactCacheTTL})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare artifact storage")
	}

	genaiLogger := infra.Component(logger, "genai")
	model, err := genai.NewClient(ctx, genai.Options{
		APIKey:  gemini.Token,
		BaseURL: cfg.GeminiBaseURL,
		Model:   gemini.Model,
		Logger:  &genaiLogger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create gemini client")
	}

	genLogger := infra.Component(logger, "generation")
	orchestrator := generation.NewOrchestrator(repos.generations, store, model, generation.OrchestratorOptions{
		ModelTimeout:  cfg.ModelTimeout,
		RatePerMinute: cfg.ModelRatePerMin,
	}, genLogger)
	dispatcher := generation.NewDispatcher(orchestrator, repos.generations, generation.DispatcherOptions{
		Workers:   cfg.GenerationWorkers,
		QueueSize: cfg.GenerationQueue,
	}, genLogger)
	dispatcher.Start()

	libLogger := infra.Component(logger, "library")
	images := library.NewImages(repos.images, store, libLogger)
	templates := library.NewTemplates(repos.templates, images, libLogger)
	service := generation.NewService(repos.generations, images, templates, store, dispatcher,
		generation.ServiceOptions{DeleteTextOutputs: cfg.DeleteTextOutputs}, genLogger)

	app := &handlers.App{
		Images:         images,
		Templates:      templates,
		Generations:    service,
		Artifacts:      store,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Logger:         infra.Component(logger, "http"),
	}
	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:            infra.Component(logger, "access"),
		AllowedOrigins:    cfg.CORSAllowedOrigins,
		RateLimitPerMin:   cfg.RateLimitPerMin,
		StaticDir:         store.BasePath(),
		StaticPrefix:      store.Prefix(),
		TrustProxyHeaders: cfg.TrustProxyHeaders,
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().
			Str("addr", server.Addr()).
			Str("model", model.Model()).
			Bool("synthetic_model", model.Synthetic()).
			Int("workers", cfg.GenerationWorkers).
			Msg("API listening")
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}

	// Queued generations get the model timeout to finish before they are cancelled.
	drainCtx, cancelDrain := context.WithTimeout(context.Background(), cfg.ModelTimeout+10*time.Second)
	defer cancelDrain()
	if err := dispatcher.Shutdown(drainCtx); err != nil {
		logger.Error().Err(err).Msg("generation queue did not drain")
	}
	logger.Info().Msg("server stopped")
}
