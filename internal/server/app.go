// Package server initializes and runs the graphmaster server: config,
// database and migrations, tenant store restore, HTTP endpoint, snapshot
// uploader, and graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Erikmmkarlsson/graphmaster/internal/logging"
	"github.com/Erikmmkarlsson/graphmaster/internal/server/auth"
	"github.com/Erikmmkarlsson/graphmaster/internal/server/backup"
	"github.com/Erikmmkarlsson/graphmaster/internal/server/config"
	"github.com/Erikmmkarlsson/graphmaster/internal/server/httpapi"
	"github.com/Erikmmkarlsson/graphmaster/internal/server/mail"
	"github.com/Erikmmkarlsson/graphmaster/internal/server/repositories/repomanager"
	"github.com/Erikmmkarlsson/graphmaster/internal/server/services"
	"github.com/Erikmmkarlsson/graphmaster/internal/server/tsdb"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config      *config.Config
	logger      logging.Logger
	repos       repomanager.RepositoryManager
	store       *tsdb.MemStore
	users       *services.UserService
	reg         *services.RegistrationService
	snapshotter *backup.Snapshotter
	handler     *httpapi.Handler
}

func NewApp(cfg *config.Config) (*App, error) {
	logger := logging.NewDefault()

	repos, err := repomanager.NewPostgresRepositoryManager(cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init: %w", err)
	}

	store, err := restoreStore(cfg.DataDir, logger)
	if err != nil {
		return nil, fmt.Errorf("tenant store init: %w", err)
	}

	tokens := auth.NewTokenService([]byte(cfg.SecretKey),
		cfg.AccessTokenValidity, cfg.RegistrationTokenValidity, cfg.RefreshWindow)

	var mailer mail.Dispatcher = mail.Noop{}
	if cfg.SMTPHost != "" {
		mailer = mail.NewSMTPDispatcher(cfg.SMTPHost, cfg.SMTPPort,
			cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPSender)
	}

	userService := services.NewUserService(repos.Users(), repos, tokens, logger)
	regService := services.NewRegistrationService(repos.Users(), tokens, store, mailer,
		cfg.BcryptCost, cfg.ConfirmationURI, logger)

	return &App{
		config:      cfg,
		logger:      logger,
		repos:       repos,
		store:       store,
		users:       userService,
		reg:         regService,
		snapshotter: backup.NewSnapshotter(store, cfg, logger),
		handler:     httpapi.NewHandler(userService, regService, store, logger),
	}, nil
}

// restoreStore rebuilds the tenant store from the persistence directory. An
// empty dir keeps everything in memory only.
func restoreStore(dir string, logger logging.Logger) (*tsdb.MemStore, error) {
	if dir == "" {
		return tsdb.NewMemStore(nil, nil, tsdb.WithLogger(logger)), nil
	}

	persister, err := tsdb.NewPersistence(dir)
	if err != nil {
		return nil, err
	}
	data, err := persister.LoadAll()
	if err != nil {
		return nil, err
	}
	return tsdb.NewMemStore(data, persister, tsdb.WithLogger(logger)), nil
}

// Run starts the server and blocks until SIGINT/SIGTERM or a fatal startup
// error, then drains everything.
func (app *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	app.initSignalHandler(cancel)

	defer app.repos.Close()

	if err := app.reg.Bootstrap(ctx, app.config.BootstrapUsername, app.config.BootstrapPassword); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	var wg sync.WaitGroup
	if app.snapshotter.Enabled() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.snapshotter.Run(ctx)
		}()
	}

	srv := &http.Server{
		Addr:              app.config.EndpointAddr,
		Handler:           httpapi.NewRouter(app.handler),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info(ctx, "http server listening", "addr", app.config.EndpointAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case runErr = <-errCh:
		app.logger.Error(ctx, "http server failed", "error", runErr.Error())
		cancel()
	case <-ctx.Done():
		app.logger.Info(ctx, "shutdown signal received")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.logger.Error(shutdownCtx, "http shutdown", "error", err.Error())
	}

	// snapshotter uploads its final snapshot on ctx cancel; wait for it,
	// then drain pending persistence writes
	wg.Wait()
	app.store.Wait()

	app.logger.Info(context.Background(), "server stopped")
	return runErr
}

func (app *App) initSignalHandler(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancel()
	}()
}
