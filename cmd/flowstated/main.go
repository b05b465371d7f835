package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"flowstated/internal/auth"
	"flowstated/internal/bus"
	"flowstated/internal/config"
	"flowstated/internal/db"
	"flowstated/internal/handlers"
	"flowstated/internal/otel"
	"flowstated/internal/reminder"
	"flowstated/internal/store"
	"flowstated/internal/version"
	"flowstated/internal/ws"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	cleanup, traceMiddleware, err := otel.Init(ctx, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("init otel")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := cleanup(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown otel")
		}
	}()

	database, err := db.Connect(ctx, cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}
	defer func() {
		if err := db.Close(database); err != nil {
			log.Error().Err(err).Msg("close database")
		}
	}()

	if err := db.Migrate(ctx, database); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	st := store.New(database)

	var natsBus *bus.Bus
	if cfg.NATSURL != "" {
		natsBus, err = bus.Connect(cfg.NATSURL)
		if err != nil {
			log.Fatal().Err(err).Msg("connect nats")
		}
		defer natsBus.Close()
	}

	issuer := auth.NewTokenIssuer([]byte(cfg.JWTSigningKey), cfg.AccessTokenTTL)
	authn := auth.NewAuthenticator(issuer, st)
	resetFlow := auth.NewResetFlow(st, auth.LogNotifier{Logger: log.Logger}, cfg.ResetTokenTTL)

	hub := ws.NewHub(log.Logger)
	wsHandler := ws.NewHandler(hub, authn, cfg.WSPingInterval, cfg.WSPongTimeout, log.Logger)

	// Remote instances' updates land here and reach local sessions.
	if _, err := natsBus.Subscribe(ctx, bus.SubjectUpdates, func(data []byte) {
		var update bus.Update
		if err := json.Unmarshal(data, &update); err != nil {
			log.Warn().Err(err).Msg("decoding bus update")
			return
		}
		if update.Origin == bus.InstanceID {
			return
		}
		userID, err := uuid.Parse(update.UserID)
		if err != nil {
			return
		}
		hub.Broadcast(userID, ws.Message{Type: update.Type, Payload: update.Payload})
	}); err != nil {
		log.Fatal().Err(err).Msg("subscribe bus")
	}

	notifier := handlers.NewNotifier(hub, natsBus, log.Logger)

	ready := func(ctx context.Context) error {
		sqlDB, err := database.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}

	api, err := handlers.New(st, authn, issuer, resetFlow, notifier, wsHandler, ready, cfg, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("init api")
	}

	processor := reminder.NewProcessor(st, hub, natsBus, cfg.ReminderPollInterval, log.Logger)
	go processor.Run(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           traceMiddleware(api.Routes()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr).Str("version", version.Version).Msg("starting flowstated")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	hub.Shutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown server")
	}
}
