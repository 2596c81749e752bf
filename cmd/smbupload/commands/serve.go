package commands

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/absfs/smbupload"
	"github.com/absfs/smbupload/httpapi"
	"github.com/absfs/smbupload/internal/config"
	"github.com/absfs/smbupload/internal/logger"
	"github.com/absfs/smbupload/internal/telemetry"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server exposing GET /smb/upload.

Every request writes the configured content to the configured file on the
share, replacing any previous content. With trigger.date_prefix enabled the
folder is <today>/<smb.folder_path>.

Examples:
  # Start with default config location
  smbupload serve

  # Start with custom config file and port
  smbupload serve --config /etc/smbupload/config.yaml --port 9090

  # Override settings from the environment
  SMBUPLOAD_SMB_PASSWORD=secret SMBUPLOAD_LOGGING_LEVEL=DEBUG smbupload serve`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "HTTP port (overrides server.port)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Server.Port = servePort
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	telemetryShutdown, err := telemetry.Init(ctx, cfg.TelemetryConfig(Version))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		// ctx is already cancelled here.
		if err := telemetryShutdown(context.Background()); err != nil {
			logger.Error("telemetry shutdown error", logger.KeyError, err)
		}
	}()

	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))
	logger.Info("SMB target", logger.KeyHost, cfg.SMB.Host, logger.KeyShare, cfg.SMB.Share,
		logger.KeyFolder, cfg.SMB.FolderPath, logger.KeyFilename, cfg.SMB.FileName)
	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	} else {
		logger.Info("Telemetry disabled")
	}

	handler, err := buildHandler(cfg)
	if err != nil {
		return err
	}

	srv := httpapi.NewServer(httpapi.ServerConfig{
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, handler)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(gctx)
	})
	g.Go(func() error {
		select {
		case <-srv.Ready():
			logger.Info("Server is running. Press Ctrl+C to stop.", "addr", srv.Addr().String())
		case <-gctx.Done():
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", logger.KeyError, err)
		return err
	}
	logger.Info("Server stopped")
	return nil
}

// buildHandler wires the writer, metrics and routes from cfg.
func buildHandler(cfg *config.Config) (http.Handler, error) {
	routerCfg := httpapi.RouterConfig{
		RequestTimeout: cfg.Server.RequestTimeout,
		MetricsPath:    cfg.Metrics.Path,
	}

	var metrics smbupload.Metrics
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics = smbupload.NewPrometheusMetrics(reg)
		routerCfg.Metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
		logger.Info("Metrics enabled", "path", cfg.Metrics.Path)
	} else {
		logger.Info("Metrics collection disabled")
	}

	writer, err := smbupload.New(cfg.SMBConfig(),
		smbupload.WithMetrics(metrics),
		smbupload.WithMaxConcurrent(cfg.SMB.MaxConcurrent),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create SMB writer: %w", err)
	}

	opts := httpapi.UploadOptions{Content: cfg.Trigger.Content}
	if cfg.Trigger.DatePrefix {
		opts.Folder = httpapi.DatedFolder(cfg.Trigger.DateLayout, cfg.SMB.FolderPath)
	} else {
		opts.Folder = httpapi.StaticFolder(cfg.SMB.FolderPath)
	}

	return httpapi.NewRouter(httpapi.NewUploadHandler(writer, opts), routerCfg), nil
}
