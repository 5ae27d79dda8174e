package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "plant_monitor/docs"
	"plant_monitor/internal/advisor"
	"plant_monitor/internal/config"
	"plant_monitor/internal/dashboard"
	"plant_monitor/internal/handlers"
	"plant_monitor/internal/logger"
	"plant_monitor/internal/reporter"
	"plant_monitor/internal/repository"
	"plant_monitor/internal/repository/db"
	"plant_monitor/internal/sensor"
	"plant_monitor/internal/server"
	"plant_monitor/internal/service"

	"github.com/spf13/pflag"
)

const shutdownTimeout = 10 * time.Second

// @title                       Plant Monitor Status API
// @version                     1.0
// @description                 Read-only view of the plant monitor loop.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	if err != nil {
		logger.Get(logger.InfoLevel).Errorw("invalid configuration", "err", err)
		return 1
	}

	log, err := logger.Init(cfg.Log.Level, cfg.Log.Output)
	if err != nil {
		logger.Get(logger.InfoLevel).Errorw("failed to open log output", "err", err, "output", cfg.Log.Output)
		return 1
	}
	defer func() { _ = log.Sync() }()

	sqlDB, err := db.InitDB(cfg.DB.Path)
	if err != nil {
		log.Errorw("failed to init sqlite", "err", err, "path", cfg.DB.Path)
		return 1
	}
	defer closeDB(sqlDB, log)

	source, err := openSource(cfg)
	if err != nil {
		log.Errorw("failed to open sensors", "err", err, "real", cfg.Real)
		return 1
	}
	defer func() {
		if cerr := source.Close(); cerr != nil {
			log.Warnw("sensor_close_failed", "err", cerr)
		}
	}()

	adv := advisor.New(cfg.AI, log)
	if !adv.Enabled() {
		log.Infow("ai_disabled", "reason", "no API key; rule-based advice only")
	}

	rep := openReporter(cfg, log)
	defer func() { _ = rep.Close() }()

	repos := repository.NewRepository(sqlDB)
	services := service.NewService(repos, service.MonitorDeps{
		Source:        source,
		Advisor:       adv,
		Reporter:      rep,
		Interval:      cfg.Interval,
		AIInterval:    cfg.AIInterval,
		SensorTimeout: cfg.SensorTimeout,
		Log:           log,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pruneJournal(ctx, services.EventLog, cfg.DB, log)

	var (
		srv    *server.Server
		srvErr = make(chan error, 1)
	)
	if cfg.HTTP.Port != "" {
		srv = &server.Server{}
		apiHandler := handlers.NewHandler(services, log, cfg.HTTP.APIKey)
		runHTTPServer(srv, cfg.HTTP, apiHandler, log, srvErr, stop)
	}

	// the dashboard outlives ctx so it can draw the STOPPED snapshot
	dashCtx, stopDashboard := context.WithCancel(context.Background())
	dashDone := make(chan struct{})
	if cfg.Dashboard {
		go func() {
			defer close(dashDone)
			dashboard.NewTerminal(os.Stdout).Run(dashCtx, services.Snapshots)
		}()
	} else {
		close(dashDone)
	}

	log.Infow("starting", "real", cfg.Real, "interval", cfg.Interval.String(),
		"ai_interval", cfg.AIInterval.String(), "http_port", cfg.HTTP.Port)
	runErr := services.Monitor.Run(ctx)
	stopDashboard()
	<-dashDone
	if runErr != nil {
		log.Errorw("monitor stopped with error", "err", runErr)
		return 1
	}

	waitForShutdown(srv, log)

	select {
	case err := <-srvErr:
		log.Errorw("http server failed", "err", err)
		return 1
	default:
	}
	log.Infow("shutdown complete")
	return 0
}

// openSource picks the simulator or the Raspberry Pi sensors.
func openSource(cfg config.Config) (sensor.Source, error) {
	if !cfg.Real {
		return sensor.NewSimulated(cfg.Sim), nil
	}
	co2, err := sensor.OpenMHZ19(cfg.Hardware.SerialPort)
	if err != nil {
		return nil, fmt.Errorf("mh-z19: %w", err)
	}
	light, err := sensor.OpenBH1750(cfg.Hardware.I2CBus, cfg.Hardware.I2CAddress)
	if err != nil {
		_ = co2.Close()
		return nil, fmt.Errorf("bh1750: %w", err)
	}
	return sensor.NewHardware(sensor.IIOClimate{Dir: cfg.Hardware.IIODir}, co2, light), nil
}

// openReporter combines every configured sink.
func openReporter(cfg config.Config, log *logger.Logger) reporter.Reporter {
	var sinks []reporter.Reporter
	if cfg.Reporter.BaseURL != "" {
		sinks = append(sinks, reporter.NewHTTP(cfg.Reporter, log))
		log.Infow("reporter_enabled", "sink", "http", "url", cfg.Reporter.BaseURL)
	}
	if cfg.Influx.URL != "" {
		sinks = append(sinks, reporter.NewInflux(cfg.Influx, log))
		log.Infow("reporter_enabled", "sink", "influx", "url", cfg.Influx.URL, "bucket", cfg.Influx.Bucket)
	}
	return reporter.Combine(sinks...)
}

// runHTTPServer runs the status API in a separate goroutine. A failure
// stops the application.
func runHTTPServer(srv *server.Server, cfg config.HTTPConfig, handler *handlers.Handler, log *logger.Logger,
	errc chan<- error, stop context.CancelFunc) {
	go func() {
		if err := srv.Run(cfg.Port, server.WithCORS(handler.InitRoutes(), cfg.CORSOrigins)); err != nil {
			errc <- err
			stop()
		}
	}()
	log.Infow("http_listening", "port", cfg.Port)
}

// waitForShutdown lets in-flight requests complete.
func waitForShutdown(srv *server.Server, log *logger.Logger) {
	if srv == nil {
		return
	}
	log.Infow("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}

// pruneJournal applies the retention window to a file-backed journal. A
// failure is logged; the journal is not needed to monitor.
func pruneJournal(ctx context.Context, events service.EventLog, cfg config.DBConfig, log *logger.Logger) {
	if cfg.Path == ":memory:" || cfg.Retention <= 0 {
		return
	}
	pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	n, err := events.Prune(pctx, cfg.Retention)
	if err != nil {
		log.Warnw("journal_prune_failed", "err", err, "path", cfg.Path)
		return
	}
	log.Infow("journal_pruned", "deleted", n, "retention", cfg.Retention.String())
}

func closeDB(sqlDB *sql.DB, log *logger.Logger) {
	if err := sqlDB.Close(); err != nil {
		log.Errorw("failed to close sqlite", "err", err)
	}
}
