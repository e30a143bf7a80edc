package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"alfa-chat/internal/config"
	"alfa-chat/internal/crm"
	"alfa-chat/internal/db"
	"alfa-chat/internal/email"
	apihttp "alfa-chat/internal/http"
	"alfa-chat/internal/identity"
	"alfa-chat/internal/llm"
	"alfa-chat/internal/repository"
	"alfa-chat/internal/tools"
	"alfa-chat/internal/ws"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()
	if err := db.EnsureSchema(ctx, pool); err != nil {
		logger.Fatal("db schema", zap.Error(err))
	}

	userRepo := repository.NewPgUserRepository(pool)
	convRepo := repository.NewPgConversationRepository(pool)

	var tokenCache crm.TokenCache
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			tokenCache = crm.NewRedisTokenCache(redisClient)
		}
		cancel()
	}

	crmClient := crm.NewClient(
		cfg.ZohoAccountsURL,
		cfg.ZohoAPIURL,
		cfg.ZohoClientID,
		cfg.ZohoClientSecret,
		cfg.ZohoRefreshToken,
		tokenCache,
		logger,
	)
	if !crmClient.Enabled() {
		logger.Warn("crm credentials not configured")
	}

	clerkClient := identity.NewClerkClient(cfg.ClerkAPIURL, cfg.ClerkSecretKey, logger)
	verifiers := identity.Chain{}
	if clerkClient.Enabled() {
		verifiers = append(verifiers, identity.NewClerkVerifier(cfg.ClerkJWKSURL, clerkClient, logger))
	}
	verifiers = append(verifiers, identity.NewSelfIssuedVerifier(cfg.JWTSecret))

	emailSender := email.NewDisabledSender("email sender not configured")
	if cfg.SMTPHost != "" && cfg.SupportEmail != "" {
		sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.SMTPFromName, cfg.SupportEmail, cfg.SMTPUseTLS)
		if err != nil {
			logger.Warn("smtp sender init failed", zap.Error(err))
		} else {
			emailSender = sender
		}
	}

	registry := tools.NewRegistry(crmClient, emailSender, logger)
	engine := llm.NewHTTPEngine(cfg.LLMBaseURL, cfg.OpenAIAPIKey, cfg.LLMModel, registry, logger)

	sessions := ws.NewRegistry()
	deps := ws.Deps{
		Verifier:      verifiers,
		Directory:     crmClient,
		Users:         userRepo,
		Conversations: convRepo,
		Engine:        engine,
		Registry:      sessions,
		Logger:        logger,
	}

	healthHandler := apihttp.NewHealthHandler(sessions)
	candidateHandler := apihttp.NewCandidateHandler(logger, verifiers, crmClient)
	webhookHandler := apihttp.NewWebhookHandler(logger, clerkClient)
	chatHandler := apihttp.NewChatHandler(logger, deps)
	router := apihttp.NewRouter(logger, healthHandler, candidateHandler, webhookHandler, chatHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
