// Command schedrtd is the scheduler daemon: it loads config.toml, wires the
// registries, scheduler, report sinks, and the HTTP API (status endpoints
// plus POST /tasks and POST /apps), then blocks until it receives a
// shutdown signal.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fpgarun/schedrt/internal/httpapi"
	"github.com/fpgarun/schedrt/pkg/accel"
	"github.com/fpgarun/schedrt/pkg/completion"
	"github.com/fpgarun/schedrt/pkg/config"
	"github.com/fpgarun/schedrt/pkg/metrics"
	"github.com/fpgarun/schedrt/pkg/mqttpub"
	"github.com/fpgarun/schedrt/pkg/registry"
	"github.com/fpgarun/schedrt/pkg/report"
	"github.com/fpgarun/schedrt/pkg/scheduler"
	"github.com/fpgarun/schedrt/task"
)

var configPath string

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	flag.StringVar(&configPath, "config", "schedrt.toml", "Path to the daemon's TOML config file")
	flag.Parse()

	logger := configureLogger()
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig.String())
		cancel()
	}()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	apps := registry.NewAppRegistry()
	providers := registry.NewProviderRegistry()
	loadRegistries(cfg, apps, providers)

	sink, err := buildReportSink(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to build report sink: %w", err)
	}
	store := httpapi.NewReportStore()
	sched := scheduler.New(scheduler.Options{
		Apps:             apps,
		Completion:       completion.New(),
		Backend:          parseBackendMode(cfg.BackendMode),
		CpuWorkers:       cfg.CpuWorkers,
		PreloadThreshold: cfg.PreloadThreshold,
		Sink:             report.NewMulti(sink, store),
		Metrics:          metrics.NewPrometheusRecorder(),
		Logger:           logger,
	})

	accelerators := buildAccelerators(cfg, logger)
	for _, a := range accelerators {
		sched.AddAccelerator(a)
	}

	logger.Info("starting scheduler", "cpu_workers", cfg.CpuWorkers, "backend_mode", cfg.BackendMode)
	sched.Start()
	defer sched.Stop()

	var httpServer *http.Server
	if cfg.HTTPAddr != "" {
		srv := httpapi.NewServer(store, acceleratorSource{accelerators}, sched, apps)
		srv.MarkReady()
		httpServer = &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Router()}
		go func() {
			logger.Info("status API listening", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("status API stopped", "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")
	if httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}
	return nil
}

func configureLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

func loadRegistries(cfg config.Config, apps *registry.AppRegistry, providers *registry.ProviderRegistry) {
	for _, a := range cfg.Apps {
		apps.Register(task.AppDescriptor{
			App:           a.App,
			BitstreamPath: a.BitstreamPath,
			KernelName:    a.KernelName,
			Kind:          parseResourceKind(a.Kind),
		})
	}
	for _, p := range cfg.Providers {
		providers.Register(task.Provider{
			Op:         p.Op,
			Kind:       parseResourceKind(p.Kind),
			InstanceID: p.InstanceID,
			Priority:   p.Priority,
		})
	}
}

func buildAccelerators(cfg config.Config, logger *slog.Logger) []accel.Accelerator {
	accelerators := make([]accel.Accelerator, 0, cfg.CpuWorkers)
	for i := 0; i < cfg.CpuWorkers; i++ {
		accelerators = append(accelerators, accel.NewCpuWorker(uint(i)))
	}
	if cfg.FpgaMock {
		slotLogger := logger
		if cfg.DebugLogging {
			slotLogger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
		}
		loader := accel.NewMockLoader()
		slot := accel.NewFpgaSlot(0, accel.FpgaSlotOptions{MockMode: true, DebugLogging: cfg.DebugLogging}, loader, accel.NewMockDmaEngine(), slotLogger)
		accelerators = append(accelerators, slot)
	}
	return accelerators
}

func buildReportSink(cfg config.Config, logger *slog.Logger) (report.Sink, error) {
	var sinks []report.Sink
	if cfg.ReportSink == config.ReportStdout || cfg.ReportSink == config.ReportBoth {
		if cfg.CsvReport {
			sinks = append(sinks, report.NewCSVSink(os.Stdout))
		} else {
			sinks = append(sinks, report.NewPlainSink(os.Stdout))
		}
	}
	if cfg.ReportSink == config.ReportMQTT || cfg.ReportSink == config.ReportBoth {
		pub, err := mqttpub.New(mqttpub.Options{
			BrokerURL: cfg.MQTT.BrokerURL,
			ClientID:  cfg.MQTT.ClientID,
			CAPath:    cfg.MQTT.CAPath,
			CertPath:  cfg.MQTT.CertPath,
			KeyPath:   cfg.MQTT.KeyPath,
			Logger:    logger,
		})
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, report.NewMQTTSink(pub, cfg.MQTT.Topic, logger))
	}
	return report.NewMulti(sinks...), nil
}

func parseBackendMode(s string) scheduler.BackendMode {
	switch s {
	case "cpu":
		return scheduler.Cpu
	case "fpga":
		return scheduler.Fpga
	default:
		return scheduler.Auto
	}
}

func parseResourceKind(s string) task.ResourceKind {
	switch s {
	case "zip":
		return task.ZIP
	case "fft":
		return task.FFT
	case "fir":
		return task.FIR
	default:
		return task.CPU
	}
}

// acceleratorSource adapts a plain accelerator slice to httpapi.AcceleratorSource.
type acceleratorSource struct {
	accelerators []accel.Accelerator
}

func (a acceleratorSource) AcceleratorStatuses() []httpapi.AcceleratorStatus {
	out := make([]httpapi.AcceleratorStatus, 0, len(a.accelerators))
	for _, acc := range a.accelerators {
		status := httpapi.AcceleratorStatus{
			Name:           acc.Name(),
			Available:      acc.IsAvailable(),
			Reconfigurable: acc.IsReconfigurable(),
		}
		if ra, ok := acc.(accel.ReconfigurableAccelerator); ok {
			status.CurrentApp = ra.CurrentApp()
		}
		out = append(out, status)
	}
	return out
}
