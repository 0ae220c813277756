package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/stats/aggregate"
	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/stats/catalogs"
	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/stats/config"
	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/stats/dashboard"
	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/stats/locale"
	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/telemetry"
	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/transport/observer"
	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/tui"
)

func main() {
	var (
		configPath = flag.String("config", "", "dashboard config yaml (empty: defaults)")
		lang       = flag.String("lang", "en", "display language")
		localeDir  = flag.String("locale_dir", "", "directory of extra <lang>.yaml label tables")

		fixture   = flag.String("fixture", "", "city capture yaml")
		snapPath  = flag.String("snapshot", "", "city snapshot (.citysnap.zst) or directory of snapshots")
		captureDB = flag.String("capture_db", "", "capture database path")
		cityName  = flag.String("city", "", "city name to load from the capture database (empty: any)")
		tick      = flag.Uint64("tick", 0, "load the latest capture at or before this tick (0: latest)")
		reload    = flag.Duration("reload", 0, "re-read the capture source at this interval (0: never)")

		headless     = flag.Bool("headless", false, "run without the terminal UI")
		frame        = flag.Duration("frame", dashboard.DefaultFrameInterval, "host frame interval")
		observerAddr = flag.String("observer", "", "observer http listen address, e.g. 127.0.0.1:8091 (empty to disable)")
		remote       = flag.Bool("observer_remote", false, "accept observer connections from non-loopback addresses")
		unitLimit    = flag.Int("unit_limit", 0, "citizen unit chain limit (0: default)")

		metricsExp = flag.String("metrics", "none", "metrics exporter: none|stdout")
		metricsInt = flag.Duration("metrics_interval", 30*time.Second, "metrics export interval")
		logMode    = flag.String("log", "dev", "log mode: dev|prod")
		logFile    = flag.String("log_file", "", "log output path (default: stderr when headless, discarded otherwise)")
	)
	flag.Parse()

	logger, err := newLogger(*logMode, *logFile, *headless)
	if err != nil {
		os.Stderr.WriteString("citydash: logger: " + err.Error() + "\n")
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signalContext()
	defer cancel()

	shutdownMetrics, err := telemetry.Setup(*metricsExp, "citydash", *metricsInt)
	if err != nil {
		logger.Fatal("metrics", zap.Error(err))
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		if err := shutdownMetrics(sctx); err != nil {
			logger.Warn("metrics shutdown", zap.Error(err))
		}
	}()
	tel, err := telemetry.Global()
	if err != nil {
		logger.Fatal("instruments", zap.Error(err))
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	store, err := config.NewStore(cfg)
	if err != nil {
		logger.Fatal("config store", zap.Error(err))
	}
	labels, err := locale.New(*lang)
	if err != nil {
		logger.Fatal("locale", zap.Error(err))
	}
	if dir := strings.TrimSpace(*localeDir); dir != "" {
		if err := labels.LoadDir(dir); err != nil {
			logger.Fatal("locale dir", zap.Error(err))
		}
	}

	src := source{
		fixture:   strings.TrimSpace(*fixture),
		snapshot:  strings.TrimSpace(*snapPath),
		captureDB: strings.TrimSpace(*captureDB),
		city:      strings.TrimSpace(*cityName),
		tick:      *tick,
	}
	world, err := src.open(ctx)
	if err != nil {
		logger.Fatal("open city", zap.Error(err))
	}
	logger.Info("city loaded",
		zap.String("source", src.String()),
		zap.String("city", world.Name()),
		zap.Uint64("tick", world.Tick()),
	)
	if *reload > 0 {
		go src.watch(ctx, world, *reload, logger)
	}

	opts := []dashboard.Option{
		dashboard.WithLogger(logger.Named("dashboard")),
		dashboard.WithInstruments(tel),
	}
	if *unitLimit > 0 {
		opts = append(opts, dashboard.WithAggregatorOptions(aggregate.WithUnitLimit(*unitLimit)))
	}

	if addr := strings.TrimSpace(*observerAddr); addr != "" {
		obsOpts := []observer.Option{
			observer.WithLogger(logger.Named("observer")),
			observer.WithCityName(world.Name()),
		}
		if *remote {
			obsOpts = append(obsOpts, observer.WithRemoteClients())
		}
		obs := observer.NewServer(catalogs.Default().Filter(world.HasFeature), store, labels, obsOpts...)
		opts = append(opts, dashboard.WithSink(obs))

		srv := &http.Server{Addr: addr, Handler: obs.Router(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logger.Info("observer listening", zap.String("addr", addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("observer stopped", zap.Error(err))
				cancel()
			}
		}()
		defer func() {
			sctx, scancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer scancel()
			_ = srv.Shutdown(sctx)
		}()
	}

	panel, err := dashboard.New(world, store, labels, opts...)
	if err != nil {
		logger.Fatal("dashboard", zap.Error(err))
	}
	defer panel.Close()

	if *headless {
		err := panel.Run(ctx, *frame, func() bool { return true })
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("panel stopped", zap.Error(err))
		}
		return
	}
	prog := tea.NewProgram(
		tui.NewModel(ctx, panel, store, labels, *frame),
		tea.WithAltScreen(),
		tea.WithReportFocus(),
		tea.WithContext(ctx),
	)
	if _, err := prog.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		logger.Error("terminal ui", zap.Error(err))
	}
}

func newLogger(mode, path string, headless bool) (*zap.Logger, error) {
	if path == "" && !headless {
		return zap.NewNop(), nil
	}
	var zc zap.Config
	switch mode {
	case "prod":
		zc = zap.NewProductionConfig()
	case "dev", "":
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return nil, errors.New("unknown log mode " + mode)
	}
	if path != "" {
		zc.OutputPaths = []string{path}
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	return zc.Build()
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
