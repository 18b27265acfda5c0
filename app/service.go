// Package app assembles the dispatch service from its configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kilianp07/cogen/api"
	"github.com/kilianp07/cogen/app/plugins"
	"github.com/kilianp07/cogen/config"
	"github.com/kilianp07/cogen/core/advisor"
	"github.com/kilianp07/cogen/core/dispatch"
	"github.com/kilianp07/cogen/core/dispatch/logging"
	"github.com/kilianp07/cogen/core/freesteam"
	coremetrics "github.com/kilianp07/cogen/core/metrics"
	"github.com/kilianp07/cogen/core/metrics/savings"
	"github.com/kilianp07/cogen/core/model"
	coremon "github.com/kilianp07/cogen/core/monitoring"
	"github.com/kilianp07/cogen/infra/kpi"
	"github.com/kilianp07/cogen/infra/logger"
	"github.com/kilianp07/cogen/infra/metrics"
	"github.com/kilianp07/cogen/infra/monitoring"
	"github.com/kilianp07/cogen/internal/eventbus"
	"github.com/kilianp07/cogen/qa/scenarios"
)

const busBuffer = 64

// Service owns the dispatch manager and the collaborators built around it.
type Service struct {
	Manager   *dispatch.Manager
	Scenarios []scenarios.Scenario

	cfg       *config.Config
	sink      coremetrics.MetricsSink
	savings   *metrics.SavingsSink
	freeSteam bool
	log       logger.Logger
	stop      context.CancelFunc
	closers   []func() error
}

// New creates a Service from the configuration. Nothing listens until Run.
func New(cfg *config.Config) (*Service, error) {
	cfg.Log.Apply()
	logg := logger.New("service")
	logg.Debugf("available modules: %v", plugins.Available())

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)

	sched, err := cfg.Tariff.Schedule()
	if err != nil {
		return nil, fmt.Errorf("tariff: %w", err)
	}
	src, err := freesteam.NewSource(cfg.FreeSteam.Source)
	if err != nil {
		return nil, fmt.Errorf("free steam source: %w", err)
	}
	cache, err := freesteam.NewCache(cfg.FreeSteam.Cache)
	if err != nil {
		return nil, fmt.Errorf("free steam cache: %w", err)
	}
	est := freesteam.NewEstimator(src, cfg.Plant.Limits.FreeSteamFallback, cfg.FreeSteam.SteamRatio, logger.New("free-steam"))
	steam := freesteam.NewMemo(est, cache, cfg.FreeSteam.Interval(), logger.New("free-steam"))

	opt, err := dispatch.NewOptimizer(cfg.Plant, sched, steam, cfg.Dispatch, logger.New("optimizer"))
	if err != nil {
		return nil, fmt.Errorf("optimizer: %w", err)
	}
	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	if types := cfg.Metrics.Types(); len(types) > 0 {
		logg.Infow("metrics sinks", map[string]any{"types": types})
	}
	bus := eventbus.NewTyped[model.Result](busBuffer)
	manager, err := dispatch.NewManager(opt, advisor.New(cfg.Plant, cfg.Advisor), sink, bus, logger.New("dispatch"))
	if err != nil {
		return nil, fmt.Errorf("dispatch manager: %w", err)
	}

	svc := &Service{Manager: manager, cfg: cfg, sink: sink, freeSteam: src != nil, log: logg}
	for _, v := range []any{src, cache} {
		switch c := v.(type) {
		case io.Closer:
			svc.closers = append(svc.closers, c.Close)
		case interface{ Close() }:
			svc.closers = append(svc.closers, func() error { c.Close(); return nil })
		}
	}
	if err := svc.setup(bus); err != nil {
		_ = svc.Close()
		return nil, err
	}
	return svc, nil
}

func (s *Service) setup(bus *eventbus.TypedBus[model.Result]) error {
	store, err := logging.Open(s.cfg.Journal.Options())
	if err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	if store != nil {
		s.Manager.SetLogStore(store)
	}
	pubs, err := dispatch.NewPublishers(s.cfg.Publishers.Sinks)
	if err != nil {
		return fmt.Errorf("publishers: %w", err)
	}
	s.Manager.SetPublishers(pubs, s.cfg.Publishers.Timeout())

	if s.cfg.ScenariosFile != "" {
		if s.Scenarios, err = scenarios.Load(s.cfg.ScenariosFile); err != nil {
			return fmt.Errorf("scenarios: %w", err)
		}
	}
	daily, err := s.openSavings()
	if err != nil {
		return fmt.Errorf("savings store: %w", err)
	}
	if s.savings, err = metrics.NewSavingsSink(daily, nil); err != nil {
		return fmt.Errorf("savings sink: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.stop = cancel
	metrics.StartResultCollector(ctx, bus, s.savings, logger.New("savings"))
	return nil
}

func (s *Service) openSavings() (savings.Store, error) {
	if s.cfg.Savings.Backend != "sqlite" {
		return savings.NewMemoryStore(), nil
	}
	store, err := kpi.NewSQLiteStore(s.cfg.Savings.Path)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, store.Close)
	return store, nil
}

// Savings returns the daily savings aggregated since start.
func (s *Service) Savings() savings.Store { return s.savings.Store() }

// Handler returns the HTTP API.
func (s *Service) Handler() http.Handler {
	return api.NewRouter(api.Deps{
		Manager:         s.Manager,
		Scenarios:       s.Scenarios,
		LogToken:        s.cfg.HTTP.LogToken,
		FreeSteamSource: s.freeSteam,
		Savings:         s.Savings(),
		Logger:          logger.New("api"),
	})
}

// Run serves the HTTP API until the context is canceled, then drains
// in-flight requests.
func (s *Service) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.cfg.HTTP.Addr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	if addr := s.cfg.HTTP.MetricsAddr; addr != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, addr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Infof("listening on %s", s.cfg.HTTP.Addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdown, cancel := context.WithTimeout(context.Background(), s.cfg.HTTP.ShutdownGrace())
	defer cancel()
	if err := srv.Shutdown(shutdown); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	if s.stop != nil {
		s.stop()
	}
	errs := []error{s.Manager.Close()}
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	coremetrics.Close(s.sink)
	coremon.Flush(2 * time.Second)
	return errors.Join(errs...)
}
