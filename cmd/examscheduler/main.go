package main

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/exam-scheduler/internal/application"
	"github.com/example/exam-scheduler/internal/config"
	"github.com/example/exam-scheduler/internal/federation"
	httptransport "github.com/example/exam-scheduler/internal/http"
	"github.com/example/exam-scheduler/internal/notify"
	"github.com/example/exam-scheduler/internal/persistence/sqlite"
	"github.com/example/exam-scheduler/internal/workinghours"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Error("failed to load campus timezone", "timezone", cfg.Timezone, "error", err)
		os.Exit(1)
	}

	pool, err := sqlite.NewConnectionPool(sqlite.DefaultConfig(cfg.SQLitePath))
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := sqlite.Migrate(context.Background(), pool.DB()); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	now := time.Now
	idGenerator := uuid.NewString
	// Session identifiers carry an HMAC tag under the deployment secret, so
	// tokens minted by one deployment are never valid strings in another.
	tokenGenerator := func() string { return signedToken(cfg.SessionSecret) }

	txManager := sqlite.NewTxManager(pool)
	userRepo := sqlite.NewUserRepository(pool)
	sessionRepo := sqlite.NewSessionRepository(pool)
	enrolmentRepo := sqlite.NewEnrolmentRepository(pool)
	reservationRepo := sqlite.NewReservationRepository(pool)
	machineRepo := sqlite.NewMachineRepository(pool)
	examRepo := sqlite.NewExamRepository(pool)
	eventConfigRepo := sqlite.NewEventConfigRepository(pool)

	hours := workinghours.NewResolver(workinghours.Config{
		DefaultLocation: location,
		Now:             now,
	})

	var httpClient *http.Client
	if cfg.FederationTimeout > 0 {
		httpClient = &http.Client{Timeout: cfg.FederationTimeout}
	}
	gateway := federation.NewGateway(federation.NewClient(cfg.FederationBaseURL, cfg.FederationAPIKey, httpClient))

	dispatcher := notify.NewDispatcher(notify.NewLogSender(logger), cfg.NotifyDelay, logger)
	defer dispatcher.Close()

	authService := application.NewAuthServiceWithLogger(userRepo, sessionRepo, nil, tokenGenerator, now, cfg.SessionTTL, logger)
	reservationService := application.NewReservationService(txManager, hours, gateway, dispatcher, nil, idGenerator, now, logger)
	sessionService := application.NewSessionService(enrolmentRepo, reservationRepo, machineRepo, examRepo, eventConfigRepo, location, now, logger)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:              httptransport.NewAuthHandler(authService, logger),
		Reservations:      httptransport.NewReservationHandler(reservationService, logger),
		Start:             httptransport.NewStartHandler(sessionService, logger),
		SessionMiddleware: httptransport.RequireSession(authService, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
		},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("exam scheduler API listening", "addr", server.Addr, "timezone", cfg.Timezone)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

func randomHex(bytes int) string {
	if bytes <= 0 {
		bytes = 16
	}
	buf := make([]byte, bytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}

func signedToken(secret string) string {
	raw := randomHex(32)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(raw))
	return raw + "." + hex.EncodeToString(mac.Sum(nil))
}
