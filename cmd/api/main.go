package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/safar/go-storefront/internal/api"
	"github.com/safar/go-storefront/internal/cart"
	"github.com/safar/go-storefront/internal/catalog"
	"github.com/safar/go-storefront/internal/checkout"
	"github.com/safar/go-storefront/internal/config"
	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/notify"
	"github.com/safar/go-storefront/internal/store"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const breakerCooldown = time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	logger := newLogger(cfg.Log)
	log.Logger = logger
	decimal.MarshalJSONWithoutQuotes = true

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.NewConnection(ctx, &cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect to database")
	}
	defer db.Close()
	logger.Info().Msg("connected to database")

	st := store.New(db, logger)

	httpClient := &http.Client{
		Timeout:   cfg.Notify.Timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	notifiers, closeNotifiers := buildNotifiers(cfg.Notify, httpClient, logger)
	defer closeNotifiers()

	dispatcher := notify.NewDispatcher(logger, notifiers...)
	relay := notify.NewRelay(st, dispatcher, cfg.Payment.OutboxInterval, cfg.Payment.OutboxBatchSize, cfg.Notify.Timeout, logger)
	go relay.Run(ctx)

	var carts cart.Storage
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			logger.Fatal().Err(err).Msg("parse redis url")
		}
		client := redis.NewClient(opts)
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Fatal().Err(err).Msg("connect to redis")
		}
		carts = cart.NewRedisStorage(client, cfg.Redis.CartTTL)
		logger.Info().Dur("ttl", cfg.Redis.CartTTL).Msg("session carts enabled")
	}

	router := api.NewRouter(api.Deps{
		Catalog:  catalog.New(st),
		Content:  st,
		Orders:   st,
		Reviews:  st,
		Notifier: relay,
		Carts:    carts,
		Fees:     checkout.NewFeeSchedule(cfg.Payment),
		Payment: checkout.PaymentLink{
			PayeeID:   cfg.Payment.UPIID,
			PayeeName: cfg.Store.AppName,
			Note:      cfg.Payment.Note,
		},
		QRSize:         cfg.Payment.QRCodeSize,
		Store:          cfg.Store,
		Ping:           db.PingContext,
		Logger:         logger,
		RequestTimeout: cfg.Server.RequestTimeout,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      otelhttp.NewHandler(router, "storefront-api"),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Server.Port).Int("notifiers", dispatcher.Len()).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}
	cancel()

	logger.Info().Msg("server exited")
}

func newLogger(cfg config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.Pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stdout)
	}
	return logger.Level(level).With().Timestamp().Str("service", "storefront-api").Logger()
}

// buildNotifiers enables each channel whose credentials are configured, each
// behind its own circuit breaker.
func buildNotifiers(cfg config.NotifyConfig, client *http.Client, logger zerolog.Logger) ([]notify.Notifier, func()) {
	var notifiers []notify.Notifier
	closers := []func() error{}

	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		tg := notify.NewTelegramNotifier(cfg.TelegramAPIURL, cfg.TelegramBotToken, cfg.TelegramChatID, client)
		notifiers = append(notifiers, notify.WithBreaker(tg, breakerCooldown, logger))
	} else {
		logger.Warn().Msg("telegram credentials missing, telegram notifications disabled")
	}

	if cfg.ChatWebhookURL != "" {
		wh := notify.NewWebhookNotifier(cfg.ChatWebhookURL, client)
		notifiers = append(notifiers, notify.WithBreaker(wh, breakerCooldown, logger))
	}

	if len(cfg.KafkaBrokers) > 0 {
		writer := notify.NewKafkaWriter(cfg.KafkaOrderTopic, cfg.Timeout, cfg.KafkaBrokers...)
		kn := notify.NewKafkaNotifier(writer)
		notifiers = append(notifiers, notify.WithBreaker(kn, breakerCooldown, logger))
		closers = append(closers, kn.Close)
	}

	return notifiers, func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Warn().Err(err).Msg("close notifier")
			}
		}
	}
}
