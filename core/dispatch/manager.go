package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/cogen/core/advisor"
	"github.com/kilianp07/cogen/core/dispatch/logging"
	"github.com/kilianp07/cogen/core/logger"
	"github.com/kilianp07/cogen/core/metrics"
	"github.com/kilianp07/cogen/core/model"
	coremon "github.com/kilianp07/cogen/core/monitoring"
	"github.com/kilianp07/cogen/internal/eventbus"
)

const defaultPublishTimeout = 5 * time.Second

// Manager runs the optimizer and the advisor for a request and fans the
// merged result out to the journal, metrics sinks, the event bus and the
// configured publishers.
type Manager struct {
	optimizer      *Optimizer
	advisor        *advisor.Engine
	metrics        metrics.MetricsSink
	bus            *eventbus.TypedBus[model.Result]
	logger         logger.Logger
	store          logging.LogStore
	publishers     []Publisher
	publishTimeout time.Duration
	newID          func() string
	now            func() time.Time
	mu             sync.RWMutex
}

// NewManager creates a new manager. A nil sink records nothing and a nil bus
// disables in-process fan-out.
func NewManager(opt *Optimizer, adv *advisor.Engine, sink metrics.MetricsSink, bus *eventbus.TypedBus[model.Result], log logger.Logger) (*Manager, error) {
	if opt == nil || adv == nil || log == nil {
		return nil, fmt.Errorf("dispatch: nil parameter provided to NewManager")
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Manager{
		optimizer:      opt,
		advisor:        adv,
		metrics:        sink,
		bus:            bus,
		logger:         log,
		publishTimeout: defaultPublishTimeout,
		newID:          uuid.NewString,
		now:            time.Now,
	}, nil
}

// SetLogStore configures the store used to journal results.
func (m *Manager) SetLogStore(store logging.LogStore) {
	m.mu.Lock()
	m.store = store
	m.mu.Unlock()
}

// LogStore returns the journal store, nil when none is configured.
func (m *Manager) LogStore() logging.LogStore {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.store
}

// SetPublishers configures the external publishers and the time budget of
// one publication.
func (m *Manager) SetPublishers(pubs []Publisher, timeout time.Duration) {
	m.mu.Lock()
	m.publishers = append([]Publisher(nil), pubs...)
	if timeout > 0 {
		m.publishTimeout = timeout
	}
	m.mu.Unlock()
}

// Optimizer returns the optimizer.
func (m *Manager) Optimizer() *Optimizer { return m.optimizer }

// Advisor returns the recommendation engine.
func (m *Manager) Advisor() *advisor.Engine { return m.advisor }

// Run optimizes the request and returns the merged result. Errors from the
// optimizer are returned unchanged; solver faults are also reported to the
// monitor. Journal, metrics and publishing failures are logged and never
// fail the run.
func (m *Manager) Run(ctx context.Context, req model.Request) (model.Result, error) {
	runID := m.newID()
	sol, err := m.optimizer.Optimize(ctx, req)
	if err != nil {
		if errors.Is(err, ErrSolverFault) {
			solvesTotal.WithLabelValues("fault").Inc()
			coremon.CaptureException(err, coremon.RunTags(runID, "optimize"))
			m.logger.Errorw("solver fault", map[string]any{"run_id": runID, "error": err.Error()})
		}
		return model.Result{}, err
	}

	res := model.Result{
		RunID:           runID,
		Timestamp:       m.now(),
		Request:         req,
		Solution:        sol,
		Recommendations: m.advisor.Advise(sol, req),
	}
	m.recordMetrics(res)
	m.journal(ctx, res)
	if m.bus != nil {
		m.bus.Publish(res)
	}
	m.publish(ctx, res)

	m.logger.Infow("dispatch run", map[string]any{
		"run_id":          runID,
		"status":          sol.Status.String(),
		"hour":            sol.Hour,
		"period":          string(sol.Period),
		"savings":         sol.Savings,
		"recommendations": len(res.Recommendations),
	})
	return res, nil
}

// recordMetrics updates the collectors and forwards the run to the sink.
func (m *Manager) recordMetrics(res model.Result) {
	sol := res.Solution
	solvesTotal.WithLabelValues(sol.Status.String()).Inc()
	solveDuration.Observe(sol.Elapsed.Seconds())
	if sol.FreeSteamFallback {
		freeSteamFallback.Inc()
	}

	if err := m.metrics.RecordDispatch(metrics.NewDispatchEvent(res)); err != nil {
		m.logger.Errorf("metrics error: %v", err)
	}
	if rr, ok := m.metrics.(metrics.RecommendationRecorder); ok {
		if err := rr.RecordRecommendations(metrics.NewRecommendationEvents(res)); err != nil {
			m.logger.Errorf("recommendation metrics error: %v", err)
		}
	}
	if fr, ok := m.metrics.(metrics.FreeSteamRecorder); ok {
		ev := metrics.FreeSteamEvent{Flow: sol.FreeSteamAvailable, Fallback: sol.FreeSteamFallback, Time: res.Timestamp}
		if sol.FreeSteamTime != nil {
			ev.RecordTime = *sol.FreeSteamTime
		}
		if err := fr.RecordFreeSteam(ev); err != nil {
			m.logger.Errorf("free steam metrics error: %v", err)
		}
	}
}

func (m *Manager) journal(ctx context.Context, res model.Result) {
	store := m.LogStore()
	if store == nil {
		return
	}
	if err := store.Append(context.WithoutCancel(ctx), logging.NewLogRecord(res)); err != nil {
		journalFailures.Inc()
		m.logger.Errorw("journal append failed", map[string]any{"run_id": res.RunID, "error": err.Error()})
	}
}

// publish delivers the result to every publisher concurrently and waits for
// all of them.
func (m *Manager) publish(ctx context.Context, res model.Result) {
	m.mu.RLock()
	pubs := m.publishers
	timeout := m.publishTimeout
	m.mu.RUnlock()
	if len(pubs) == 0 {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	pr, recordPublish := m.metrics.(metrics.PublishRecorder)
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, p := range pubs {
		wg.Add(1)
		go func(p Publisher) {
			defer wg.Done()
			start := time.Now()
			err := p.Publish(pctx, res)
			ev := metrics.PublishEvent{Publisher: p.Name(), RunID: res.RunID, Latency: time.Since(start), Time: res.Timestamp}
			outcome := "success"
			if err != nil {
				outcome = "failure"
				ev.Error = err.Error()
				m.logger.Warnw("publish failed", map[string]any{"publisher": p.Name(), "run_id": res.RunID, "error": err.Error()})
			}
			publishTotal.WithLabelValues(p.Name(), outcome).Inc()
			if recordPublish {
				mu.Lock()
				if rerr := pr.RecordPublish(ev); rerr != nil {
					m.logger.Errorf("publish metrics error: %v", rerr)
				}
				mu.Unlock()
			}
		}(p)
	}
	wg.Wait()
}

// Close releases resources held by the manager.
func (m *Manager) Close() error {
	m.mu.Lock()
	pubs, store := m.publishers, m.store
	m.publishers, m.store = nil, nil
	m.mu.Unlock()

	var errs []error
	for _, p := range pubs {
		if err := p.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close publisher %s: %w", p.Name(), err))
		}
	}
	if m.bus != nil {
		m.bus.Close()
	}
	if store != nil {
		if err := store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close journal: %w", err))
		}
	}
	return errors.Join(errs...)
}
