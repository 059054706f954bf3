package main

import (
	"context"
	"flag"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/golang/glog"

	httpapi "github.com/i474232898/wildfire-analysis/internal/api/http"
	"github.com/i474232898/wildfire-analysis/internal/climate"
	"github.com/i474232898/wildfire-analysis/internal/config"
	"github.com/i474232898/wildfire-analysis/internal/metrics"
	"github.com/i474232898/wildfire-analysis/internal/providers"
	"github.com/i474232898/wildfire-analysis/internal/scheduler"
	"github.com/i474232898/wildfire-analysis/internal/store"
	"github.com/i474232898/wildfire-analysis/internal/wildfire"
)

func main() {
	_ = flag.Set("logtostderr", "true")
	flag.Parse()
	defer glog.Flush()

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		glog.Exitf("failed to load config: %v", err)
	}
	_ = flag.Set("v", strconv.Itoa(cfg.Verbosity))

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	m := metrics.New(metrics.WithNamespace(cfg.MetricsNamespace), metrics.WithRuntimeCollectors())
	clientCfg := providers.HTTPClientConfig{
		Client:    httpClient,
		Backoff:   providers.DefaultBackoff,
		UserAgent: cfg.UserAgent,
		Observer:  m,
	}

	// In-memory store with configured retention.
	memStore := store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge)

	// Geocoders in fallback order. Google needs an API key.
	var geocoders []climate.Geocoder
	if cfg.GoogleAPIKey != "" {
		geocoders = append(geocoders, providers.NewGoogleGeocoder(cfg.GoogleAPIKey))
	}
	geocoders = append(geocoders, providers.NewNominatimGeocoder(clientCfg, cfg.NominatimURL))

	opts := []climate.Option{climate.WithRecorder(m)}
	if cfg.DBPath != "" {
		sqlStore, err := store.NewSQLiteStore(cfg.DBPath)
		if err != nil {
			glog.Exitf("failed to open reading store: %v", err)
		}
		defer sqlStore.Close()
		opts = append(opts, climate.WithReadingStore(sqlStore))
	}

	climateSvc := climate.NewService(
		memStore,
		geocoders,
		providers.NewOpenMeteoClimate(clientCfg, cfg.OpenMeteoURL, cfg.OpenMeteoModels),
		opts...,
	)

	services := httpapi.Services{Climate: climateSvc, DefaultDataset: cfg.ClimateDataset}
	var jobs []scheduler.Job
	if cfg.ClimateCSV != "" {
		src := providers.NewRecordSource(clientCfg, cfg.ClimateCSV)
		jobs = append(jobs, scheduler.DatasetJob(climateSvc, cfg.ClimateDataset, src, cfg.ClimateFields()))
	}
	if cfg.WildfireEnabled {
		services.Wildfire = wildfire.NewService(
			providers.NewUSDAFirePerimeters(clientCfg, cfg.WildfireURL, cfg.WildfireMaxPages),
			memStore,
			cfg.WildfireMinYear,
			cfg.WildfireFields(),
			m,
		)
		jobs = append(jobs, scheduler.WildfireJob(services.Wildfire))
	}

	// Scheduler that periodically refreshes datasets and perimeters.
	sched := scheduler.New(cfg.RefreshInterval, cfg.RefreshTimeout, jobs...)
	if err := sched.Start(); err != nil {
		glog.Exitf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "wildfire-analysis",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          cfg.HTTPTimeout + 10*time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "wildfire-analysis",
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))

	httpapi.RegisterRoutes(app, services)

	go func() {
		glog.Infof("listening on :%s", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			glog.Errorf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		glog.Errorf("error during shutdown: %v", err)
	}
}
