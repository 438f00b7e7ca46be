package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"review_blocks/internal/adapters/htmlrender"
	server "review_blocks/internal/adapters/http_server"
	"review_blocks/internal/adapters/observability"
	redisad "review_blocks/internal/adapters/redis"
	"review_blocks/internal/adapters/rowsource"
	"review_blocks/internal/adapters/wpapi"
	"review_blocks/internal/app"
	"review_blocks/internal/domain"
	"review_blocks/internal/shared"
	mysqlrepo "review_blocks/internal/storage/mysql"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	// deps
	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	if err := cache.Ping(ctx); err != nil {
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable, serving uncached")
	}
	terms := redisad.NewCachedTermStore(repo, cache, cfg.CacheTTL)

	var opener domain.CursorOpener
	if cfg.FieldsAPIBase != "" {
		client, err := wpapi.New(cfg.FieldsAPIBase, cfg.FieldsAPIKey, cfg.FieldsAPIRPS)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize fields API client")
		}
		opener = client
	}

	render := app.NewRenderService(cfg.Blocks,
		rowsource.NewFactory(repo, opener, cfg.Blocks.OptionsObject),
		terms,
		htmlrender.MustNew(),
		app.WithRecorder(observability.Recorder{}),
	)
	pages := app.NewPageService(repo, cache, cfg.CacheTTL, render)

	// http
	srv := server.New()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{
		Render: render,
		Pages:  pages,
		Import: app.NewImportService(repo, cache),
	})

	log.Info().
		Str("addr", cfg.HTTPAddr).
		Str("faq_block", cfg.Blocks.FAQ.Name).
		Str("reviews_block", cfg.Blocks.Reviews.Name).
		Bool("cursor_source", opener != nil).
		Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("http shutdown failed")
		}
	}()

	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("http server failed")
	}
	_ = cache.Close()
	_ = db.Close()
	log.Info().Msg("API stopped")
}
