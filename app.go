package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type AppProvider interface {
	Run() error
	Serve() func() error
	Stop(context.Context, context.Context) func() error
}

type App struct {
	logger   *zap.Logger
	config   *Config
	server   *http.Server
	cleanups []func()
}

// NewApp wires the whole application: configuration, logging, the
// storage backend, the cover store, the services and the http server.
func NewApp() (AppProvider, error) {
	var app *App

	config, err := LoadAndInitConfigs(GitCommit, GitTag, BuildTime)
	if err != nil {
		return app, err
	}

	// Ensure the logs folder exists and Setup the logging module.
	err = os.MkdirAll(filepath.Dir(config.LogFile), 0o700)
	if err != nil {
		return nil, fmt.Errorf("failed to create logging folder: %s", err)
	}
	logFile, err := os.OpenFile(config.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create logging file: %s", err)
	}
	closer := func() {
		if cerr := logFile.Close(); cerr != nil {
			fmt.Println("error during closing of log file: ", cerr)
		}
	}
	logger, flusher := SetupLogging(config, logFile)
	cleanups := []func(){flusher, closer}

	// Setup the records storage backend.
	var bookStorage BookStorage
	var userStorage UserStorage
	switch config.Storage.Backend {
	case "redis":
		redisClient, err := GetRedisClient(config)
		if err != nil {
			return app, fmt.Errorf("failed to connect to redis server: %s", err)
		}
		cleanups = append(cleanups, func() {
			if cerr := redisClient.Close(); cerr != nil {
				logger.Error("failed to close redis client", zap.Error(cerr))
			}
		})
		bookStorage = NewRedisBookStorage(logger, redisClient)
		userStorage = NewRedisUserStorage(logger, redisClient)
	case "bolt":
		boltClient, err := GetBoltDBClient(config)
		if err != nil {
			return app, fmt.Errorf("failed to open bolt database: %s", err)
		}
		cleanups = append(cleanups, func() {
			if cerr := boltClient.Close(); cerr != nil {
				logger.Error("failed to close bolt database", zap.Error(cerr))
			}
		})
		bookStorage = NewBoltBookStorage(logger, &config.BoltDB, boltClient)
		userStorage = NewBoltUserStorage(logger, &config.BoltDB, boltClient)
	}

	// Setup the cover blobs store.
	var coverStore CoverStore
	switch config.Images.Backend {
	case "disk":
		coverStore, err = NewDiskCoverStore(logger, config.Images.Folder)
	case "s3":
		coverStore, err = NewMinioCoverStore(logger, &config.Minio)
	}
	if err != nil {
		return app, fmt.Errorf("failed to set up the cover store: %s", err)
	}

	// Setup the api services and routing.
	clock := NewClock()
	ids := NewObjectIDGenerator()
	bookService := NewBookService(logger, config, clock, ids, bookStorage, coverStore)
	authService := NewAuthService(logger, config, clock, ids, userStorage)
	apiService := NewAPIHandler(
		logger,
		config,
		&Statistics{version: config.GitTag, started: time.Now()},
		clock,
		ids,
		bookService,
		authService,
	)

	// Build the stacks of middlewares.
	common := Middlewares{
		apiService.PanicRecoveryMiddleware,
		apiService.RequestsCounterMiddleware,
		apiService.RequestIDMiddleware,
		CORSMiddleware,
		apiService.CoreMiddleware,
	}
	protected := append(append(Middlewares{}, common...), apiService.AuthRequiredMiddleware)
	m := &MiddlewareMap{
		public:    common.Chain,
		protected: protected.Chain,
		ops:       common.Chain,
	}

	// Configure the endpoints with their handlers and middlewares.
	router := apiService.SetupRoutes(httprouter.New(), m)

	// Start the api server.
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port),
		Handler:      router,
		ReadTimeout:  config.Server.ReadTimeout,
		WriteTimeout: config.Server.WriteTimeout,
	}

	return &App{
		logger:   logger,
		config:   config,
		server:   srv,
		cleanups: cleanups,
	}, nil
}

// Run starts the api web server and a goroutine which is responsible to stop it.
func (app *App) Run() error {
	defer app.Clean()
	nCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(nCtx)

	g.Go(app.Serve())
	g.Go(app.Stop(nCtx, gCtx))

	err := g.Wait()
	app.logger.Info("api server stopped",
		zap.String("host", app.config.Server.Host),
		zap.String("port", app.config.Server.Port),
		zap.Error(err),
	)
	return err
}

// Clean calls all registered cleanups functions.
func (app *App) Clean() {
	for _, f := range app.cleanups {
		f()
	}
}

// Serve starts the api web server. It returned error
// will be caught by the errorgroup.
func (app *App) Serve() func() error {
	return func() error {
		app.logger.Info("api server starting",
			zap.String("host", app.config.Server.Host),
			zap.String("port", app.config.Server.Port),
		)
		err := app.server.ListenAndServe()
		if err == http.ErrServerClosed {
			err = nil
		}
		return err
	}
}

// Stop listens for the group context and triggers the server graceful shutdown.
// It states the reason of its call. We proceed with a brutal shutdown if the
// the graceful did not complete successfully. We explicitly return `nil` to
// allow the errorgroup catches only the `Serve` method result.
func (app *App) Stop(nCtx, gCtx context.Context) func() error {
	return func() error {
		<-gCtx.Done()

		if nCtx.Err() != nil {
			app.logger.Info("api server stopping. reason: requested to stop")
		} else {
			app.logger.Info("api server stopping. reason: errored at running")
		}

		sCtx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout)
		defer cancel()
		err := app.server.Shutdown(sCtx)
		switch err {
		case nil, http.ErrServerClosed:
			app.logger.Info("api server graceful shutdown succeeded")
		case context.DeadlineExceeded:
			app.logger.Info("api server graceful shutdown timed out")
		default:
			app.logger.Info("api server graceful shutdown failed", zap.Error(err))
		}

		if err != nil && err != http.ErrServerClosed {
			app.logger.Info("api server going to force shutdown", zap.Error(app.server.Close()))
		}
		return nil
	}
}
