package app

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shandysiswandi/goservice/internal/pkg/pkgconfig"
	"github.com/shandysiswandi/goservice/internal/pkg/pkglog"
	"github.com/shandysiswandi/goservice/internal/pkg/pkgmetrics"
	"github.com/shandysiswandi/goservice/internal/pkg/pkgrouter"
	"github.com/shandysiswandi/goservice/internal/pkg/pkgroutine"
	"github.com/shandysiswandi/goservice/internal/pkg/pkguid"
)

type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	// configuration
	config   pkgconfig.Config
	settings settings

	// libraries
	requestID pkguid.StringID
	goroutine *pkgroutine.Manager
	registry  *prometheus.Registry
	metrics   *pkgmetrics.HTTP

	// server
	router     *pkgrouter.Router
	httpServer *http.Server

	// closed in order by Stop, after the HTTP server
	closers []closer
}

type closer struct {
	name string
	fn   func(context.Context) error
}

func New() *App {
	pkglog.InitLogging(pkglog.Options{})

	app, err := build(pkgconfig.NewEnv(defaultConfig()))
	if err != nil {
		slog.Error("failed to init application", "error", err)
		os.Exit(1)
	}

	return app
}

func build(cfg pkgconfig.Config) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		ctx:    ctx,
		cancel: cancel,
		config: cfg,
	}

	if err := app.initConfig(); err != nil {
		cancel()
		return nil, err
	}
	app.initLogging()
	app.initLibraries()
	app.initHTTPServer()
	app.initClosers()

	return app, nil
}
