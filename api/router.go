// Package api assembles the HTTP surface of the dispatch service.
package api

import (
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apidispatch "github.com/kilianp07/cogen/api/dispatch"
	"github.com/kilianp07/cogen/api/optimize"
	"github.com/kilianp07/cogen/core/advisor"
	"github.com/kilianp07/cogen/core/dispatch"
	"github.com/kilianp07/cogen/core/logger"
	"github.com/kilianp07/cogen/core/metrics/savings"
	"github.com/kilianp07/cogen/core/plant"
	"github.com/kilianp07/cogen/core/tariff"
	"github.com/kilianp07/cogen/qa/scenarios"
)

// Deps are the collaborators served by the router.
type Deps struct {
	// Manager is required.
	Manager *dispatch.Manager
	// Scenarios listed by GET /api/scenarios. Nil serves the built-in catalogue.
	Scenarios []scenarios.Scenario
	// LogToken protects the journal endpoint when set.
	LogToken string
	// FreeSteamSource reports whether a free steam dataset is configured.
	FreeSteamSource bool
	// Savings enables GET /api/savings when set.
	Savings savings.Store
	Logger  logger.Logger
	now     func() time.Time
}

// NewRouter registers every route and wraps them with panic recovery.
func NewRouter(d Deps) http.Handler {
	if d.Scenarios == nil {
		d.Scenarios = scenarios.Builtin()
	}
	if d.now == nil {
		d.now = time.Now
	}
	r := mux.NewRouter()
	r.Handle("/api/optimize", optimize.NewHandler(d.Manager, d.Logger)).Methods(http.MethodPost)
	r.HandleFunc("/api/system-info", d.systemInfo).Methods(http.MethodGet)
	r.HandleFunc("/api/health", d.health).Methods(http.MethodGet)
	r.HandleFunc("/api/scenarios", d.scenarios).Methods(http.MethodGet)
	r.Handle("/api/dispatch/logs", apidispatch.NewLogHandler(d.Manager.LogStore(), d.LogToken)).Methods(http.MethodGet)
	if d.Savings != nil {
		r.HandleFunc("/api/savings", d.savings).Methods(http.MethodGet)
	}
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	return handlers.RecoveryHandler(handlers.PrintRecoveryStack(false))(r)
}

// GeneratorInfo describes one turbo-generator model.
type GeneratorInfo struct {
	plant.GeneratorSpec
	Formula string `json:"formula"`
}

// SystemInfo is the body of GET /api/system-info.
type SystemInfo struct {
	Generators []GeneratorInfo    `json:"gta_models"`
	Limits     plant.Limits       `json:"system_constraints"`
	Costs      plant.Costs        `json:"financial_constants"`
	Tariff     []tariff.Band      `json:"tariff"`
	Thresholds advisor.Thresholds `json:"thresholds"`
}

func (d Deps) systemInfo(w http.ResponseWriter, _ *http.Request) {
	opt := d.Manager.Optimizer()
	p := opt.Plant()
	info := SystemInfo{
		Limits:     p.Limits,
		Costs:      p.Costs,
		Tariff:     opt.Tariff().Bands(),
		Thresholds: d.Manager.Advisor().Thresholds(),
	}
	for _, g := range p.Generators {
		info.Generators = append(info.Generators, GeneratorInfo{GeneratorSpec: g, Formula: g.Formula()})
	}
	optimize.WriteJSON(w, http.StatusOK, info)
}

// Health is the body of GET /api/health.
type Health struct {
	Status          string    `json:"status"`
	Timestamp       time.Time `json:"timestamp"`
	OptimizerReady  bool      `json:"optimizer_ready"`
	FreeSteamSource bool      `json:"sulfur_data_loaded"`
	JournalEnabled  bool      `json:"journal_enabled"`
}

func (d Deps) health(w http.ResponseWriter, _ *http.Request) {
	optimize.WriteJSON(w, http.StatusOK, Health{
		Status:          "healthy",
		Timestamp:       d.now(),
		OptimizerReady:  d.Manager != nil,
		FreeSteamSource: d.FreeSteamSource,
		JournalEnabled:  d.Manager.LogStore() != nil,
	})
}

func (d Deps) scenarios(w http.ResponseWriter, _ *http.Request) {
	optimize.WriteJSON(w, http.StatusOK, map[string][]scenarios.Scenario{"scenarios": d.Scenarios})
}

func (d Deps) savings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	to, err := dateParam(q.Get("to"), d.now())
	if err != nil {
		optimize.WriteJSON(w, http.StatusBadRequest, optimize.ErrorResponse{Error: "invalid to: " + err.Error()})
		return
	}
	from, err := dateParam(q.Get("from"), to.AddDate(0, 0, -30))
	if err != nil {
		optimize.WriteJSON(w, http.StatusBadRequest, optimize.ErrorResponse{Error: "invalid from: " + err.Error()})
		return
	}
	recs, err := d.Savings.Query(from, to)
	if err != nil {
		optimize.WriteJSON(w, http.StatusInternalServerError, optimize.ErrorResponse{Error: err.Error()})
		return
	}
	type day struct {
		savings.Record
		OptimalRatio float64 `json:"optimal_ratio"`
		SavingsRate  float64 `json:"savings_rate"`
	}
	out := make([]day, len(recs))
	for i, rec := range recs {
		out[i] = day{Record: rec, OptimalRatio: rec.OptimalRatio(), SavingsRate: rec.SavingsRate()}
	}
	optimize.WriteJSON(w, http.StatusOK, out)
}

// dateParam parses a YYYY-MM-DD query value, def when empty.
func dateParam(v string, def time.Time) (time.Time, error) {
	if v == "" {
		return def, nil
	}
	return time.Parse(time.DateOnly, v)
}
