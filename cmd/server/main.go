package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	httpapi "github.com/photolangage/photolangage/internal/api/http"
	"github.com/photolangage/photolangage/internal/api/ws"
	appSession "github.com/photolangage/photolangage/internal/application/session"
	appTemplate "github.com/photolangage/photolangage/internal/application/template"
	"github.com/photolangage/photolangage/internal/config"
	"github.com/photolangage/photolangage/internal/domain/catalog"
	"github.com/photolangage/photolangage/internal/domain/session"
	"github.com/photolangage/photolangage/internal/infrastructure/sqlite"
	"github.com/photolangage/photolangage/internal/infrastructure/sse"
	"github.com/photolangage/photolangage/internal/replication"
	"github.com/photolangage/photolangage/internal/replication/local"
	pgreplication "github.com/photolangage/photolangage/internal/replication/postgres"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx := context.Background()

	// replication transport: hosted store when configured, in-process
	// broadcast otherwise
	var channel replication.Channel
	var pgChannel *pgreplication.Channel
	if cfg.DatabaseURL != "" {
		pool, err := pgreplication.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db error: %v", err)
		}
		defer pool.Close()
		pgChannel = pgreplication.NewChannel(pool, logger)
		if err := pgChannel.Start(ctx); err != nil {
			log.Fatalf("replication error: %v", err)
		}
		channel = pgChannel
		logger.Info().Msg("replicating through shared store")
	} else {
		channel = local.NewBroker()
		logger.Info().Msg("replicating through local broadcast")
	}

	// template store
	db, err := sqlite.Open(cfg.TemplateDBPath)
	if err != nil {
		log.Fatalf("template db error: %v", err)
	}
	defer db.Close()
	templateRepo := sqlite.NewTemplateRepository(db)

	// services
	templateSvc := appTemplate.NewService(templateRepo, logger)
	sessionSvc := appSession.NewService(cfg.SessionCode, catalog.DefaultPhotos(), channel, logger)
	sessionSvc.SetRole(session.RoleFacilitator)
	if err := sessionSvc.Start(ctx); err != nil {
		log.Fatalf("session start error: %v", err)
	}

	// snapshot fan-out to SSE clients
	sseHub := sse.NewHub()
	stopWatch := sessionSvc.Watch(func(env replication.Envelope) {
		sseHub.BroadcastSnapshot(env.Code, env)
	})

	wsHub := ws.NewHub(channel, logger)

	apiServer := httpapi.NewServer(sessionSvc, templateSvc, sseHub, wsHub, logger)

	httpServer := &http.Server{
		Addr:        cfg.ServerAddr,
		Handler:     apiServer.Router(),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.ServerAddr).Str("code", cfg.SessionCode).Msg("http server started")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctxShutdown)
	stopWatch()
	sessionSvc.Stop()
	wsHub.Stop()
	sseHub.Stop()
	if pgChannel != nil {
		pgChannel.Stop()
	}
}
