package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/gsainfoteam/chatbot-be/engine/chat"
	"github.com/gsainfoteam/chatbot-be/engine/infra/postgres"
	"github.com/gsainfoteam/chatbot-be/engine/llm"
	"github.com/gsainfoteam/chatbot-be/engine/mcp"
	"github.com/gsainfoteam/chatbot-be/engine/server"
	"github.com/gsainfoteam/chatbot-be/engine/session"
	"github.com/gsainfoteam/chatbot-be/pkg/config"
	"github.com/gsainfoteam/chatbot-be/pkg/logger"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the chatbot backend server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.SetupLogger(cfg.Log.Level, cfg.Log.JSON, false)
	ctx = logger.ContextWithLogger(ctx, log)

	if cfg.Database.AutoMigrate {
		if err := postgres.ApplyMigrations(ctx, cfg.Database.ConnString); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}
	store, err := postgres.NewStore(ctx, cfg.Database.ConnString)
	if err != nil {
		return err
	}
	defer store.Close(ctx)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	verifier := session.NewVerifier(redisClient)

	retrieval, err := mcp.Connect(ctx, cfg.Retrieval.ServerURL)
	if err != nil {
		return err
	}
	defer retrieval.Close()

	model := llm.NewClient(llm.Config{
		BaseURL: cfg.Model.BaseURL,
		APIKey:  cfg.Model.APIKey,
		Model:   cfg.Model.ChatModel,
		Timeout: cfg.Model.Timeout,
	})
	defer model.Close()

	messages := postgres.NewMessageRepo(store.Pool())
	usage := postgres.NewUsageRepo(store.Pool())

	registry := chat.NewToolRegistry(retrieval, cfg.Retrieval.ToolCacheTTL)
	selector := chat.NewSelector(model, cfg.Chat.SelectionBackoff)
	filterer := chat.NewFilterer(retrieval, model, chat.FilterConfig{
		TopCandidates:   cfg.Chat.TopCandidates,
		MaxSelected:     cfg.Chat.MaxSelectedDocs,
		MaxSubDocuments: cfg.Chat.MaxSubDocuments,
		ResourceBaseURL: cfg.Retrieval.ResourceBaseURL,
		CacheSize:       cfg.Chat.ContentCacheSize,
		CacheTTL:        cfg.Chat.ContentCacheTTL,
	})
	executor := chat.NewExecutor(retrieval, filterer, cfg.Chat.ToolTimeout)
	streamer := chat.NewStreamer(model, messages, usage, cfg.Model.MaxTokens)
	service := chat.NewService(registry, selector, executor, streamer, messages, cfg.Chat.HistoryLimit)

	srv := server.New(cfg.Server, service, verifier, log)
	srv.RegisterHealthCheck("postgres", store.HealthCheck)
	srv.RegisterHealthCheck("redis", func(ctx context.Context) error {
		return verifier.Healthy(ctx)
	})
	return srv.Run(ctx)
}
