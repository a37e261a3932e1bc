// Package main is the entry point for the station simulator harness.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/evstack/stationsim/internal/atg"
	"github.com/evstack/stationsim/internal/auth"
	"github.com/evstack/stationsim/internal/config"
	"github.com/evstack/stationsim/internal/configstore"
	"github.com/evstack/stationsim/internal/control"
	"github.com/evstack/stationsim/internal/httpapi"
	"github.com/evstack/stationsim/internal/idtag"
	"github.com/evstack/stationsim/internal/ocpp"
	"github.com/evstack/stationsim/internal/ocpp16"
	"github.com/evstack/stationsim/internal/ocpp201"
	"github.com/evstack/stationsim/internal/persist"
	"github.com/evstack/stationsim/internal/profile"
	"github.com/evstack/stationsim/internal/station"
	"github.com/evstack/stationsim/internal/stats"
	"github.com/evstack/stationsim/internal/transport"
	"github.com/evstack/stationsim/internal/worker"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "stationsim",
		Short: "Simulates a fleet of OCPP charging stations against a CSMS",
		RunE:  run,
	}
	root.Flags().StringVar(&configPath, "config", "", "path to config.json (default: ./config.json)")

	if err := root.Execute(); err != nil {
		log.Fatalf("stationsim: %v", err)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		logLevel = slog.LevelInfo
	}
	var logger *slog.Logger
	if cfg.Log.Format == "text" {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	} else {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	}
	slog.SetDefault(logger)

	backend, closeBackend, err := buildStatsBackend(cfg.PerformanceStorage)
	if err != nil {
		return fmt.Errorf("build stats backend: %w", err)
	}
	defer closeBackend()
	sink := stats.NewSink(backend, logger)
	defer sink.Close()

	idCache := idtag.Global(logger)
	plane := control.New(logger)
	plane.SetRecorder(sink)

	persistStore, err := persist.New(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("build persist store: %w", err)
	}

	registry := newStationRegistry()
	factory := stationFactory(cfg, idCache, plane, persistStore, registry, logger)

	mode := worker.Mode(cfg.Worker.ProcessType)
	pool := worker.NewPool(mode, cfg.Worker.PoolMinSize, cfg.Worker.PoolMaxSize, factory, logger)
	if cfg.Log.StatisticsInterval > 0 {
		pool.StartStatistics(cfg.Log.StatisticsInterval)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for i, templateFile := range cfg.StationTemplateURLs {
		pool.Add(ctx, worker.Task{Index: i + 1, TemplateFile: templateFile})
		if cfg.Worker.ElementAddDelay > 0 {
			time.Sleep(cfg.Worker.ElementAddDelay)
		}
	}

	var srv *http.Server
	if cfg.UIServer.Enabled {
		handler := httpapi.NewRouter(pool, plane, logger)
		srv = &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.UIServer.Options.Host, cfg.UIServer.Options.Port),
			Handler:      handler,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  time.Minute,
		}
		go func() {
			logger.Info("diagnostics server listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("diagnostics server error", "error", err)
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info("shutting down", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	pool.StopAll(shutdownCtx, "PowerLoss")
	registry.saveAll(persistStore, logger)

	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("diagnostics server shutdown error", "error", err)
		}
	}

	logger.Info("stopped gracefully")
	return nil
}

// buildStatsBackend selects the performanceStorage backend named in cfg,
// per SPEC_FULL.md's DOMAIN STACK pluggable-backend wiring.
func buildStatsBackend(cfg config.StorageConfig) (stats.Backend, func(), error) {
	noop := func() {}
	if !cfg.Enabled {
		return stats.NewMemoryBackend(1000), noop, nil
	}
	switch cfg.Type {
	case "redis":
		opts, err := redis.ParseURL(cfg.URI)
		if err != nil {
			return nil, noop, fmt.Errorf("parse redis uri: %w", err)
		}
		client := redis.NewClient(opts)
		return stats.NewRedisBackend(client, 1000, 30*24*time.Hour), func() { _ = client.Close() }, nil
	case "postgres":
		if err := stats.Migrate(cfg.URI); err != nil {
			return nil, noop, fmt.Errorf("migrate postgres stats schema: %w", err)
		}
		pool, err := pgxpool.New(context.Background(), cfg.URI)
		if err != nil {
			return nil, noop, fmt.Errorf("connect postgres: %w", err)
		}
		return stats.NewPostgresBackend(pool), pool.Close, nil
	default:
		return stats.NewMemoryBackend(1000), noop, nil
	}
}

// evaluateProfile wires component M (internal/profile) into station.Runtime's
// ProfileEvaluator seam — station cannot import internal/profile directly
// since that package depends on station's ChargingProfile type.
func evaluateProfile(connectorProfiles, connectorZeroProfiles []station.ChargingProfile, now time.Time) (station.ProfileLimit, bool) {
	result := profile.Evaluate(connectorProfiles, connectorZeroProfiles, now)
	if result == nil {
		return station.ProfileLimit{}, false
	}
	return station.ProfileLimit{Limit: result.Limit, Unit: result.Unit}, true
}

// stationRegistry tracks every constructed runtime so shutdown can persist
// each one's state; worker.StationHandle is deliberately too narrow for
// that (§9 seam), so the factory keeps its own side table.
type stationRegistry struct {
	mu    sync.Mutex
	byID  map[string]*station.Runtime
}

func newStationRegistry() *stationRegistry {
	return &stationRegistry{byID: make(map[string]*station.Runtime)}
}

func (r *stationRegistry) add(rt *station.Runtime) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[rt.HashID()] = rt
}

func (r *stationRegistry) saveAll(store *persist.Store, logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for hashID, rt := range r.byID {
		state := persist.Snapshot(rt.Info, rt.Config, rt.Template.AutomaticTransactionGenerator)
		if err := store.Save(hashID, state); err != nil {
			logger.Error("persist: save station state failed", "station", hashID, "error", err)
		}
	}
}

// stationFactory builds the worker.StationFactory closure: load the
// template, reload any persisted state, wire the version-appropriate
// Binding, configure the auth pipeline and ATG, and register the result
// with plane, matching the constructor-injected-seam wiring described by
// §9 and SPEC_FULL.md.
func stationFactory(cfg *config.Config, idCache *idtag.Cache, plane *control.Plane, persistStore *persist.Store, registry *stationRegistry, logger *slog.Logger) worker.StationFactory {
	return func(ctx context.Context, task worker.Task) (worker.StationHandle, error) {
		tmpl, err := station.LoadTemplate(task.TemplateFile)
		if err != nil {
			return nil, err
		}

		info := station.NewInfo(tmpl, task.Index, "Stationsim", "Simulated", "SN")
		cstore := configstore.New()

		prior, err := persistStore.Load(info.HashID)
		if err != nil {
			logger.Warn("persist: load station state failed", "station", info.HashID, "error", err)
		}
		prior.Apply(cstore)

		for _, seed := range tmpl.Configuration {
			cstore.Seed(configstore.Key{Key: seed.Key, Value: seed.Value, ReadOnly: seed.ReadOnly, Visible: seed.Visible, Reboot: seed.Reboot})
		}

		version := ocpp.Version16
		var binding station.Binding
		switch tmpl.OcppVersion {
		case station.Version201, station.Version20:
			version = ocpp.Version201
			binding = ocpp201.NewBinding(cstore)
		default:
			binding = ocpp16.New()
		}

		var idSource station.IDTagSource
		if tmpl.IDTagsFile != "" {
			idSource = idtag.NewSource(idCache, tmpl.IDTagsFile, idtag.Distribution(tmpl.IDTagDistribution), info.HashID, task.Index)
		}

		var checker station.AuthChecker
		if tmpl.RemoteAuthorization {
			pipeline := auth.NewPipeline(auth.Options{
				LocalList: func(identifier string) bool {
					if tmpl.IDTagsFile == "" {
						return false
					}
					return idCache.Contains(tmpl.IDTagsFile, identifier)
				},
				AllowOfflineForUnknown: false,
			})
			checker = auth.NewStationAdapter(pipeline, false)
		}

		supervisionURLs := tmpl.SupervisionURLList()
		if len(supervisionURLs) == 0 {
			supervisionURLs = cfg.SupervisionURLs
		}

		rt := station.New(station.Options{
			Template:    tmpl,
			Info:        info,
			Version:     version,
			Binding:     binding,
			Config:      cstore,
			Log:         logger,
			Auth:        checker,
			IDTagSource: idSource,
			ProfileEvaluator: evaluateProfile,
		}, transport.Config{
			SupervisionURLs:         supervisionURLs,
			DistributeEqually:       cfg.DistributeEqually,
			InstanceIndex:           cfg.InstanceIndex,
			AutoReconnectMaxRetries: cfg.AutoReconnectMaxRetries,
			BaseReconnectTimeout:    time.Duration(cfg.AutoReconnectTimeout) * time.Second,
		})

		if tmpl.AutomaticTransactionGenerator.Enable {
			rt.ATG = atg.New(rt, atg.PolicyFromTemplate(tmpl.AutomaticTransactionGenerator), logger)
		}

		plane.Register(rt)
		registry.add(rt)

		return rt, nil
	}
}
