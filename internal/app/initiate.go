package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/cors"
	"github.com/shandysiswandi/goservice/internal/pkg/pkgconfig"
	"github.com/shandysiswandi/goservice/internal/pkg/pkgctx"
	"github.com/shandysiswandi/goservice/internal/pkg/pkglog"
	"github.com/shandysiswandi/goservice/internal/pkg/pkgmetrics"
	"github.com/shandysiswandi/goservice/internal/pkg/pkgrouter"
	"github.com/shandysiswandi/goservice/internal/pkg/pkgroutine"
	"github.com/shandysiswandi/goservice/internal/pkg/pkguid"
)

// errorOnlyDisabled as LOG_ERROR_ONLY lets every logger log below error.
const errorOnlyDisabled = "none"

type settings struct {
	Host         string   `validate:"required"`
	Port         int64    `validate:"required,gt=0,lt=65536"`
	LogFile      string   `validate:"omitempty,filepath"`
	LogErrorOnly []string `validate:"dive,required"`
	CORSOrigins  []string `validate:"dive,url|eq=*"`

	// unknown names fall back to INFO in pkglog.ParseLevel
	LogLevel string
}

func defaultConfig() map[string]any {
	return map[string]any{
		"host":                 "0.0.0.0",
		"port":                 5000,
		"log_level":            "INFO",
		"cors_allowed_origins": "http://localhost:3000,http://localhost:5173,http://localhost:8080",
	}
}

func loadSettings(cfg pkgconfig.Config) (settings, error) {
	s := settings{
		Host:        cfg.GetString("host"),
		Port:        cfg.GetInt("port"),
		LogLevel:    strings.ToUpper(strings.TrimSpace(cfg.GetString("log_level"))),
		LogFile:     cfg.GetString("log_file"),
		CORSOrigins: cfg.GetArray("cors_allowed_origins"),
	}

	switch errorOnly := cfg.GetArray("log_error_only"); {
	case len(errorOnly) == 1 && strings.EqualFold(errorOnly[0], errorOnlyDisabled):
		s.LogErrorOnly = []string{}
	case len(errorOnly) > 0:
		s.LogErrorOnly = errorOnly
	}

	if err := validator.New().Struct(s); err != nil {
		return settings{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return s, nil
}

func (a *App) initConfig() error {
	s, err := loadSettings(a.config)
	if err != nil {
		return err
	}

	a.settings = s
	return nil
}

func (a *App) initLogging() {
	var out io.Writer = os.Stdout
	if a.settings.LogFile != "" {
		file := pkglog.NewFileWriter(a.settings.LogFile)
		out = io.MultiWriter(os.Stdout, file)
		a.closers = append(a.closers, closer{name: "Log File", fn: func(context.Context) error {
			return file.Close()
		}})
	}

	pkglog.InitLogging(pkglog.Options{
		Level:     pkglog.ParseLevel(a.settings.LogLevel),
		Output:    out,
		ErrorOnly: a.settings.LogErrorOnly,
	})
}

func (a *App) initLibraries() {
	a.goroutine = pkgroutine.NewManager(100)
	a.requestID = pkguid.NewPrefixed(pkgctx.RequestIDPrefix, pkguid.NewUUID())

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = pkgmetrics.NewHTTP(a.registry)
}

func (a *App) initHTTPServer() {
	a.router = pkgrouter.NewRouter(a.requestID, a.metrics)
	a.router.Handle(http.MethodGet, "/metrics", pkgmetrics.Handler(a.registry))

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: a.settings.CORSOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{pkgrouter.HeaderRequestID},
		AllowCredentials: true,
		Logger:           pkglog.NewPrintfLogger("github.com/rs/cors", slog.LevelDebug),
	})

	a.httpServer = &http.Server{
		Addr:              net.JoinHostPort(a.settings.Host, strconv.FormatInt(a.settings.Port, 10)),
		Handler:           corsHandler.Handler(a.router),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          pkglog.NewStdLogger("net/http", slog.LevelError),
	}
}

func (a *App) initClosers() {
	a.closers = append([]closer{{name: "Config", fn: func(context.Context) error {
		return a.config.Close()
	}}}, a.closers...)
}
