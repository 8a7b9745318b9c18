package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/xapp/pkg/api"
	"github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/xapp/pkg/config"
	"github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/xapp/pkg/history"
	"github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/xapp/pkg/metrics"
	"github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/xapp/pkg/rc"
	"github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/xapp/pkg/store"
)

// Version information
var (
	version = "v0.1.0"
	build   = "unknown"
)

func main() {
	configFile := flag.String("config", "/config/uav-xapp.yaml", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("UAV policy xApp %s (build: %s)\n", version, build)
		os.Exit(0)
	}

	cfg, fileRead, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	setupLogging(cfg.Logging.Level, cfg.Logging.Format)
	if !fileRead {
		log.Warnf("Config file not found, using defaults and environment variables")
	}

	log.WithFields(log.Fields{
		"version": version,
		"build":   build,
		"backend": cfg.FlightPlans.Backend,
	}).Info("Starting UAV policy xApp")

	plans, err := store.New(cfg.StoreOptions())
	if err != nil {
		log.Fatalf("Failed to open flight plan store: %v", err)
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	handler := api.NewHandler(api.Config{
		Store:   plans,
		History: history.New(cfg.History.MaxSize),
		Applier: newApplier(cfg, log.StandardLogger()),
		Metrics: m,
		Policy:  cfg.Policy,
		Logger:  log.StandardLogger(),
		Version: version,
		Build:   build,
	})

	router := api.NewRouter(handler, api.RouterConfig{
		RateLimitRPS:   cfg.RateLimit.RPS,
		RateLimitBurst: cfg.RateLimit.Burst,
		Debug:          cfg.Logging.Level == "debug",
	})

	if cfg.Metrics.Enabled {
		go startMetricsServer(cfg.Metrics.Port)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		log.Infof("Starting HTTP server on port %d", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down UAV policy xApp...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	handler.Hub().Close()
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}

	log.Info("UAV policy xApp stopped")
}

// newApplier returns the RC client when forwarding is enabled and a logging
// sink otherwise
func newApplier(cfg *config.Config, logger log.FieldLogger) rc.Applier {
	if !cfg.RC.Enabled {
		return rc.LogSink{Logger: logger}
	}
	opts := []rc.ClientOption{
		rc.WithTimeout(cfg.RC.Timeout),
		rc.WithRateLimit(cfg.RC.RPS, cfg.RC.Burst),
	}
	if cfg.RC.AuthToken != "" {
		opts = append(opts, rc.WithAuthToken(cfg.RC.AuthToken))
	}
	return rc.NewClient(cfg.RC.Endpoint, opts...)
}

func startMetricsServer(port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Infof("Starting metrics server on port %d", port)
	if err := server.ListenAndServe(); err != nil {
		log.Errorf("Failed to start metrics server: %v", err)
	}
}

func setupLogging(level, format string) {
	logLevel, err := log.ParseLevel(level)
	if err != nil {
		logLevel = log.InfoLevel
		log.Warnf("Invalid log level %s, using info", level)
	}
	log.SetLevel(logLevel)

	if format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{
			FullTimestamp: true,
		})
	}

	log.SetOutput(os.Stdout)
}
