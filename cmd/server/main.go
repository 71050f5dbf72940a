// server runs the storefront registration API: HTTP routes, the Telegram bot (webhook or long
// polling), and the background event publisher.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"storefront/backend/internal/audit"
	auditrepo "storefront/backend/internal/audit/repository"
	"storefront/backend/internal/bot"
	"storefront/backend/internal/bot/conversation"
	"storefront/backend/internal/bot/telegram"
	"storefront/backend/internal/config"
	"storefront/backend/internal/db"
	"storefront/backend/internal/events"
	healthhandler "storefront/backend/internal/health/handler"
	"storefront/backend/internal/logger"
	"storefront/backend/internal/metrics"
	pendingrepo "storefront/backend/internal/pending/repository"
	registrationhandler "storefront/backend/internal/registration/handler"
	registrationservice "storefront/backend/internal/registration/service"
	"storefront/backend/internal/security"
	"storefront/backend/internal/server"
	"storefront/backend/internal/server/middleware"
	sessionhandler "storefront/backend/internal/session/handler"
	sessionrepo "storefront/backend/internal/session/repository"
	sessionservice "storefront/backend/internal/session/service"
	"storefront/backend/internal/tracing"
	userrepo "storefront/backend/internal/user/repository"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	zl, err := logger.New(logger.Options{Level: cfg.LogLevel, Environment: cfg.Env, ServiceName: cfg.ServiceName})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, zl *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := tracing.NewProvider(ctx, cfg.OTLPEndpoint, cfg.ServiceName, cfg.OTLPInsecure)
	if err != nil {
		return err
	}
	tp.SetGlobal()

	database, err := db.OpenContext(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close()

	rdb, err := db.OpenRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return err
	}
	defer rdb.Close()

	tokens, err := security.NewTokenProviderFromPEM(cfg.JWTPrivateKey, cfg.JWTPublicKey,
		cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL(), cfg.RefreshTTL())
	if err != nil {
		return err
	}

	var emitter events.Emitter
	if k := events.NewKafkaEmitter(cfg.KafkaBrokersList(), cfg.RegistrationEventsTopic); k != nil {
		emitter = k
	} else {
		zl.Info("KAFKA_BROKERS not set, registration events disabled")
	}
	publisher := events.NewPublisher(emitter, zl)

	m := metrics.New(cfg.ServiceName)
	pending := pendingrepo.NewPostgresRepository(database)
	users := userrepo.NewPostgresRepository(database)
	sessions := sessionrepo.NewPostgresRepository(database)
	auditLogger := audit.NewLogger(auditrepo.NewPostgresRepository(database), zl)

	// The bot comes first: the registration service notifies the confirmed chat once the account exists.
	var (
		bridge      *bot.Bridge
		webhook     gin.HandlerFunc
		polling     sync.WaitGroup
		botUsername = cfg.BotUsername
	)
	if cfg.BotEnabled() {
		api, err := tgbotapi.NewBotAPI(cfg.BotToken)
		if err != nil {
			return err
		}
		if botUsername == "" {
			botUsername = api.Self.UserName
		}
		bridge = bot.NewBridge(bot.Deps{
			Pending:       pending,
			Conversations: conversation.NewRedisStore(rdb, cfg.ConversationTTL()),
			Messenger:     telegram.NewMessenger(api),
			Audit:         auditLogger,
			Events:        publisher,
			Metrics:       m,
			Logger:        zl.Named("bot"),
		}, cfg.PendingTTL())
		dispatcher := telegram.NewDispatcher(bridge, zl.Named("bot"))
		if cfg.BotMode == config.BotModePolling {
			polling.Add(1)
			go func() {
				defer polling.Done()
				telegram.RunPolling(ctx, api, dispatcher, zl.Named("bot"))
			}()
		} else {
			webhook = telegram.WebhookHandler(dispatcher, cfg.BotWebhookSecret)
		}
		zl.Info("telegram bot enabled", zap.String("bot", api.Self.UserName), zap.String("mode", cfg.BotMode))
	} else {
		zl.Warn("BOT_TOKEN not set, phone verification bot disabled")
	}

	var notifier registrationservice.AccountNotifier
	if bridge != nil {
		notifier = bridge
	}
	svc := registrationservice.New(registrationservice.Deps{
		Pending:  pending,
		Users:    users,
		Sessions: sessionservice.NewIssuer(sessions, tokens, cfg.RefreshTTL()),
		Hasher:   security.NewHasher(cfg.BcryptCost),
		Audit:    auditLogger,
		Events:   publisher,
		Metrics:  m,
		Notifier: notifier,
		Logger:   zl,
	}, cfg.PendingTTL())

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router, err := server.NewRouter(server.Deps{
		Logger:          zl,
		Metrics:         m,
		CORSOrigins:     cfg.CORSOrigins(),
		TrustedProxies:  cfg.TrustedProxies(),
		Registration:    registrationhandler.NewHandler(svc, botUsername, cfg.PollIntervalSeconds),
		RegisterLimiter: middleware.NewRateLimiter(cfg.RegisterRatePerMin),
		Session:         sessionhandler.NewHandler(sessions, users),
		Tokens:          tokens,
		Health: healthhandler.NewHandler(map[string]healthhandler.Pinger{
			"postgres": database,
			"redis":    healthhandler.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() }),
		}),
		BotWebhook: webhook,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		zl.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}

	zl.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Warn("HTTP shutdown", zap.Error(err))
	}
	// ctx is done, so the poller stops fetching; wait for the update in flight before draining events.
	polling.Wait()
	if err := publisher.Drain(shutdownCtx); err != nil {
		zl.Warn("event publisher drain", zap.Error(err))
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		zl.Warn("tracer shutdown", zap.Error(err))
	}
	zl.Info("server stopped")
	return nil
}
