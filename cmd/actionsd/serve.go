package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	actions "github.com/goliatone/go-auth-actions"
	"github.com/goliatone/go-auth-actions/events"
	"github.com/goliatone/go-auth-actions/internal/config"
	"github.com/goliatone/go-auth-actions/internal/logger"
	"github.com/goliatone/go-auth-actions/internal/metrics"
	"github.com/goliatone/go-auth-actions/mail"
	"github.com/goliatone/go-auth-actions/middleware/adminauth"
	"github.com/goliatone/go-auth-actions/repository"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		log, err := logger.New(cfg.Log.Level, cfg.Log.Encoding)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		defer func() { _ = log.Sync() }()

		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("config: %w", err)
		}
		if cfg.InsecureSigningKey() {
			log.Warn("token.signing_key is the placeholder, action tokens are forgeable; debug mode only")
		}

		db, err := openDB(cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		sessions, used, closeSessions, err := sessionStore(cfg.Redis)
		if err != nil {
			return err
		}
		defer closeSessions()

		sink, closeSink, err := activitySink(cfg.Kafka, log.Named("events"))
		if err != nil {
			return err
		}
		defer closeSink()

		transport, err := mail.NewSMTPTransport(mail.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			StartTLS: cfg.SMTP.StartTLS,
			Timeout:  cfg.SMTP.Timeout,
		})
		if err != nil {
			return fmt.Errorf("smtp transport: %w", err)
		}
		mailer := mail.NewMailer(cfg.SMTP.From, mail.NewRenderer(), transport, log.Named("mail"))

		repos := repository.NewManager(db)
		repos.MustValidate()
		subjects := repos.Subjects()
		clients := repos.Clients()
		redirects := actions.NewClientRedirectValidator(log.Named("redirect"))
		codec := actions.NewJWTTokenCodec([]byte(cfg.Token.SigningKey), cfg.Token.Issuer,
			actions.WithCodecLogger(log.Named("codec")),
		)

		issuer := actions.NewActionTokenIssuer(cfg, clients, redirects, codec,
			actions.WithIssuerLogger(log.Named("issuer")),
		)
		dispatcher := actions.NewActionDispatcher(cfg, subjects, issuer, mailer,
			actions.WithDispatcherActivitySink(sink),
			actions.WithDispatcherLogger(log.Named("dispatcher")),
		)

		handlerOpts := []actions.HandlerOption{
			actions.WithHandlerActivitySink(sink),
			actions.WithHandlerLogger(log.Named("handler")),
		}
		verifyEmail := actions.NewActionTokenHandler(actions.VerifyEmailHandlerConfig(), cfg, subjects, sessions, codec, redirects, handlerOpts...)
		executeActions := actions.NewActionTokenHandler(actions.ExecuteActionsHandlerConfig(), cfg, subjects, sessions, codec, redirects, handlerOpts...)

		processor := actions.NewActionTokenProcessor(codec, subjects, clients, sessions,
			actions.WithProcessorLogger(log.Named("processor")),
			actions.WithUsedTokenStore(used),
			actions.WithHandler(verifyEmail),
			actions.WithHandler(executeActions),
		)

		adminMW, err := adminMiddleware(cfg.Admin)
		if err != nil {
			return err
		}

		controller := actions.NewHTTPController(dispatcher, processor, subjects, cfg, actions.HTTPConfig{
			Debug:           cfg.HTTP.Debug,
			SessionCookie:   cfg.HTTP.SessionCookie,
			AdminMiddleware: adminMW,
		}, log.Named("http"))

		srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
			return router.DefaultFiberOptions(fiber.New(fiber.Config{
				UnescapePath:  true,
				StrictRouting: false,
			}))
		})
		controller.RegisterRoutes(srv.Router().Group(cfg.HTTP.Prefix))

		registry := prometheus.NewRegistry()
		metrics.MustRegister(registry)
		metricsSrv := &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}

		errCh := make(chan error, 2)
		go func() {
			log.Info("starting http on %s", cfg.HTTP.Addr)
			errCh <- srv.Serve(cfg.HTTP.Addr)
		}()
		go func() {
			log.Info("starting metrics on %s", cfg.Metrics.Addr)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			log.Info("signal received: %s, shutting down...", sig)
		case err := <-errCh:
			if err != nil {
				log.Error("server exited: %v", err)
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(ctx)
		_ = srv.Shutdown(ctx)

		return nil
	},
}

func adminMiddleware(cfg config.AdminAuthConfig) ([]router.MiddlewareFunc, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	mw, err := adminauth.New(adminauth.Config{
		SigningKey:    []byte(cfg.SigningKey),
		SigningMethod: cfg.SigningMethod,
		JWKSetURLs:    cfg.JWKSURLs,
		Issuer:        cfg.Issuer,
		RequiredRole:  cfg.RequiredRole,
		TokenLookup:   cfg.TokenLookup,
	})
	if err != nil {
		return nil, fmt.Errorf("admin auth: %w", err)
	}
	return []router.MiddlewareFunc{mw}, nil
}

func sessionStore(cfg config.RedisConfig) (actions.SessionStore, actions.UsedTokenStore, func(), error) {
	if cfg.URL == "" {
		return actions.NewMemorySessionStore(cfg.SessionTTL), actions.NewMemoryUsedTokenStore(), func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, nil, fmt.Errorf("redis connect: %w", err)
	}

	store := repository.NewRedisSessionStore(client, cfg.SessionPrefix, cfg.SessionTTL)
	used := repository.NewRedisUsedTokenStore(client, "")
	return store, used, func() { _ = client.Close() }, nil
}

func activitySink(cfg config.KafkaConfig, log logger.Sugared) (actions.ActivitySink, func(), error) {
	if !cfg.Enabled {
		return nil, func() {}, nil
	}

	fwd, err := events.NewForwarder(events.Config{
		DomainTopic:    cfg.DomainTopic,
		AdminTopic:     cfg.AdminTopic,
		IncludedEvents: cfg.IncludedEvents,
		Timeout:        cfg.Timeout,
		Properties:     cfg.Properties,
	}, events.NewKafkaProducerFactory(cfg.Brokers, cfg.ClientID, log), events.WithLogger(log))
	if err != nil {
		return nil, nil, fmt.Errorf("event forwarder: %w", err)
	}

	return events.ActivitySink(fwd), func() { _ = fwd.Close() }, nil
}
