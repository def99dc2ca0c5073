package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/essay-eval-api/internal/config"
	"github.com/noah-isme/essay-eval-api/internal/evaluation"
	"github.com/noah-isme/essay-eval-api/internal/handler"
	"github.com/noah-isme/essay-eval-api/internal/middleware"
	"github.com/noah-isme/essay-eval-api/internal/prompt"
	"github.com/noah-isme/essay-eval-api/internal/router"
	"github.com/noah-isme/essay-eval-api/internal/service"
	"github.com/noah-isme/essay-eval-api/internal/telemetry"
	"github.com/noah-isme/essay-eval-api/pkg/ai"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	promptLoader, err := prompt.NewLoader(cfg.PromptsDir, cfg.PromptVersion, logger)
	if err != nil {
		log.Fatalf("failed to load prompts: %v", err)
	}

	client, err := ai.NewOpenAIClient(ai.OpenAIConfig{
		APIKey:      cfg.OpenAIAPIKey,
		Model:       cfg.OpenAIModel,
		MaxTokens:   cfg.OpenAIMaxTokens,
		Temperature: cfg.OpenAITemperature,
		Logger:      logger,
	})
	if err != nil {
		log.Fatalf("failed to create openai client: %v", err)
	}

	priceTracker := telemetry.NewPriceTracker(cfg.InputCostPer1M, cfg.OutputCostPer1M)
	spanRecorder := telemetry.NewOTelRecorder(cfg.AppName, logger)

	caller := ai.NewObservedCaller(ai.ObservedCallerConfig{
		Client:    client,
		Recorder:  spanRecorder,
		Usage:     priceTracker,
		Service:   cfg.AppName,
		Timeout:   cfg.CallTimeout,
		Retries:   cfg.MaxRetries,
		BaseDelay: cfg.RetryBaseDelay,
		Logger:    logger,
	})

	validate := validator.New(validator.WithRequiredStructEnabled())

	grammarEvaluator := evaluation.NewGrammarEvaluator(caller, promptLoader, cfg.PromptVersion, logger)
	structureEvaluator := evaluation.NewStructureChainEvaluator(caller, promptLoader, cfg.PromptVersion, logger)
	evaluationService := service.NewEvaluationService(grammarEvaluator, structureEvaluator, validate, cfg.PartialPolicy, cfg.RequestTimeout, logger)

	essayEvalHandler := handler.NewEssayEvalHandler(evaluationService, logger)
	usageHandler := handler.NewUsageHandler(priceTracker, logger)
	promptHandler := handler.NewPromptHandler(promptLoader, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		EssayEvalHandler: essayEvalHandler,
		UsageHandler:     usageHandler,
		PromptHandler:    promptHandler,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
