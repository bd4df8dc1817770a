package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/frostdev-ops/eventstats-backend-go/internal/config"
	"github.com/frostdev-ops/eventstats-backend-go/internal/core/cache"
	"github.com/frostdev-ops/eventstats-backend-go/internal/core/charts"
	"github.com/frostdev-ops/eventstats-backend-go/internal/core/formula"
	"github.com/frostdev-ops/eventstats-backend-go/internal/database"
	"github.com/frostdev-ops/eventstats-backend-go/internal/database/models"
	"github.com/frostdev-ops/eventstats-backend-go/internal/database/repositories"
	apperrors "github.com/frostdev-ops/eventstats-backend-go/pkg/errors"
)

// Recorder receives engine measurements
type Recorder interface {
	ObserveCalculation(chartType string, valid bool, duration time.Duration)
	ObserveAssembly(rows int, duration time.Duration)
	ObserveCacheLookup(cacheName string, hit bool)
	ObserveStatUpdate(affected int, layoutChanged bool)
}

type noopRecorder struct{}

func (noopRecorder) ObserveCalculation(string, bool, time.Duration) {}
func (noopRecorder) ObserveAssembly(int, time.Duration)             {}
func (noopRecorder) ObserveCacheLookup(string, bool)                {}
func (noopRecorder) ObserveStatUpdate(int, bool)                    {}

// ManagerOptions configure a Manager
type ManagerOptions struct {
	Assembler      AssemblerOptions
	DefaultWidthPx float64
	Breaker        config.BreakerConfig
	Retry          *apperrors.RetryPolicy
	Recorder       Recorder
}

// OptionsFromConfig builds manager options from the service configuration
func OptionsFromConfig(cfg *config.Config) ManagerOptions {
	return ManagerOptions{
		Assembler: AssemblerOptions{
			Solver:          cfg.Report.Solver,
			Breakpoints:     cfg.Report.Breakpoints,
			SanitizeContent: cfg.Report.SanitizeContent,
		},
		DefaultWidthPx: cfg.Report.DefaultWidthPx,
		Breaker:        cfg.Breaker,
	}
}

// Manager serves reports from stored configurations, layouts and
// statistics
type Manager struct {
	repos     *database.Repositories
	cache     cache.ResultCache
	assembler *Assembler
	breaker   *gobreaker.CircuitBreaker
	retry     *apperrors.RetryExecutor
	recorder  Recorder
	width     float64
	logger    *logrus.Logger
}

// NewManager creates a report manager. A nil cache disables memoization.
func NewManager(repos *database.Repositories, resultCache cache.ResultCache, opts ManagerOptions, logger *logrus.Logger) *Manager {
	if opts.Recorder == nil {
		opts.Recorder = noopRecorder{}
	}
	if opts.DefaultWidthPx <= 0 {
		opts.DefaultWidthPx = 1200
	}

	m := &Manager{
		repos:     repos,
		cache:     resultCache,
		assembler: NewAssembler(opts.Assembler, logger),
		retry:     apperrors.NewRetryExecutor(opts.Retry, logger),
		recorder:  opts.Recorder,
		width:     opts.DefaultWidthPx,
		logger:    logger,
	}

	maxFailures := opts.Breaker.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	m.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "report-storage",
		MaxRequests: opts.Breaker.MaxRequests,
		Interval:    opts.Breaker.Interval,
		Timeout:     opts.Breaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, repositories.ErrNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Storage circuit breaker changed state")
		},
	})

	return m
}

// Assembler returns the manager's assembler
func (m *Manager) Assembler() *Assembler {
	return m.assembler
}

// DefaultWidth is the row width used when a caller does not supply one
func (m *Manager) DefaultWidth() float64 {
	return m.width
}

// fetch runs a storage read behind the breaker, retrying transient
// failures. Not-found passes through unchanged.
func (m *Manager) fetch(ctx context.Context, operation string, fn func() error) error {
	_, err := m.breaker.Execute(func() (interface{}, error) {
		return nil, m.retry.Execute(ctx, operation, func() error {
			err := fn()
			if err == nil || errors.Is(err, repositories.ErrNotFound) {
				return err
			}
			return apperrors.Wrap(apperrors.ErrServiceUnavailable, err)
		})
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return apperrors.Wrap(apperrors.ErrServiceUnavailable, err)
	}
	return err
}

// Charts returns every chart configuration
func (m *Manager) Charts(ctx context.Context) ([]charts.ChartConfiguration, error) {
	var configs []charts.ChartConfiguration
	err := m.fetch(ctx, "list_charts", func() error {
		var err error
		configs, err = m.repos.Charts.ListCharts(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return configs, nil
}

// Chart returns one chart configuration
func (m *Manager) Chart(ctx context.Context, chartID string) (*charts.ChartConfiguration, error) {
	var cfg *charts.ChartConfiguration
	err := m.fetch(ctx, "get_chart", func() error {
		var err error
		cfg, err = m.repos.Charts.GetChart(ctx, chartID)
		return err
	})
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperrors.WithDetails(apperrors.ErrChartNotFound, chartID)
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveChart stores a configuration and drops its memoized results
func (m *Manager) SaveChart(ctx context.Context, cfg *charts.ChartConfiguration) error {
	normalized := charts.Normalize(*cfg)
	*cfg = normalized
	if err := m.repos.Charts.SaveChart(ctx, cfg); err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	m.invalidate(ctx, cfg.ChartID)

	m.logger.WithFields(logrus.Fields{
		"chart_id":   cfg.ChartID,
		"chart_type": cfg.Type,
	}).Info("Chart configuration saved")
	return nil
}

// DeleteChart removes a configuration
func (m *Manager) DeleteChart(ctx context.Context, chartID string) error {
	err := m.repos.Charts.DeleteChart(ctx, chartID)
	if errors.Is(err, repositories.ErrNotFound) {
		return apperrors.WithDetails(apperrors.ErrChartNotFound, chartID)
	}
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	m.invalidate(ctx, chartID)
	return nil
}

func (m *Manager) invalidate(ctx context.Context, chartID string) {
	if m.cache == nil {
		return
	}
	if err := m.cache.DeleteChart(ctx, chartID); err != nil {
		m.logger.WithError(err).WithField("chart_id", chartID).Warn("Failed to invalidate cached results")
	}
}

// Statistics returns a project's statistics. A project without any
// recorded statistics has an empty record.
func (m *Manager) Statistics(ctx context.Context, projectID string) (formula.Stats, error) {
	var record *models.ProjectStatistics
	err := m.fetch(ctx, "get_statistics", func() error {
		var err error
		record, err = m.repos.Statistics.GetStatistics(ctx, projectID)
		return err
	})
	if errors.Is(err, repositories.ErrNotFound) {
		return formula.Stats{}, nil
	}
	if err != nil {
		return nil, err
	}
	return record.Stats, nil
}

// MergeStatistics stores the given values without recalculating
func (m *Manager) MergeStatistics(ctx context.Context, projectID string, values formula.Stats) error {
	if err := m.repos.Statistics.MergeStatistics(ctx, projectID, values); err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// Layout returns a project's saved layout, or the default layout over all
// active charts when none was saved
func (m *Manager) Layout(ctx context.Context, projectID string) (models.ReportLayout, error) {
	var saved *models.ReportLayout
	err := m.fetch(ctx, "get_layout", func() error {
		var err error
		saved, err = m.repos.Layouts.GetLayout(ctx, projectID)
		return err
	})
	if err == nil {
		saved.GridSettings = saved.GridSettings.Normalize()
		return *saved, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return models.ReportLayout{}, err
	}

	configs, err := m.Charts(ctx)
	if err != nil {
		return models.ReportLayout{}, err
	}
	return models.DefaultLayout(projectID, configs), nil
}

// SaveLayout stores a project's layout
func (m *Manager) SaveLayout(ctx context.Context, rl *models.ReportLayout) error {
	rl.GridSettings = rl.GridSettings.Normalize()
	if err := m.repos.Layouts.SaveLayout(ctx, rl); err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// snapshot is everything one report render reads from storage
type snapshot struct {
	layout  models.ReportLayout
	configs []charts.ChartConfiguration
	stats   formula.Stats
}

func (m *Manager) load(ctx context.Context, projectID string) (*snapshot, error) {
	rl, err := m.Layout(ctx, projectID)
	if err != nil {
		return nil, err
	}
	configs, err := m.Charts(ctx)
	if err != nil {
		return nil, err
	}
	stats, err := m.Statistics(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return &snapshot{layout: rl, configs: configs, stats: stats}, nil
}

// Results calculates every chart the project's layout references
func (m *Manager) Results(ctx context.Context, projectID string) (map[string]charts.ChartResult, error) {
	snap, err := m.load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return m.calculate(ctx, snap), nil
}

// Report calculates and lays out a project's report. A non-positive width
// uses the default width.
func (m *Manager) Report(ctx context.Context, projectID string, widthPx float64) (*Report, error) {
	snap, err := m.load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return m.compose(snap, m.calculate(ctx, snap), widthPx), nil
}

func (m *Manager) compose(snap *snapshot, results map[string]charts.ChartResult, widthPx float64) *Report {
	if widthPx <= 0 {
		widthPx = m.width
	}

	start := time.Now()
	report := m.assembler.Compose(snap.layout, results, widthPx)

	rows := 0
	for _, b := range report.Blocks {
		rows += len(b.Rows)
	}
	m.recorder.ObserveAssembly(rows, time.Since(start))
	return report
}

// calculate computes the referenced charts, serving unchanged ones from
// the cache
func (m *Manager) calculate(ctx context.Context, snap *snapshot) map[string]charts.ChartResult {
	return m.assembler.CalculateWith(snap.layout, snap.configs, func(cfg charts.ChartConfiguration) charts.ChartResult {
		return m.calculateChart(ctx, cfg, snap.stats)
	})
}

func (m *Manager) calculateChart(ctx context.Context, cfg charts.ChartConfiguration, stats formula.Stats) charts.ChartResult {
	var key string
	if m.cache != nil {
		key = cache.Key(cfg.ChartID, cfg.Fingerprint(), stats.Subset(cfg.References()).Fingerprint())
		cached, hit, err := m.cache.Get(ctx, key)
		if err != nil {
			m.logger.WithError(err).WithField("cache", m.cache.Name()).Warn("Result cache lookup failed")
		}
		m.recorder.ObserveCacheLookup(m.cache.Name(), hit)
		if hit {
			return cached
		}
	}

	start := time.Now()
	result := m.assembler.CalculateChart(cfg, stats)
	m.recorder.ObserveCalculation(string(cfg.Type), charts.HasValidData(result), time.Since(start))

	if m.cache != nil {
		if err := m.cache.Set(ctx, key, result); err != nil {
			m.logger.WithError(err).WithField("cache", m.cache.Name()).Warn("Failed to cache chart result")
		}
	}
	return result
}

// AffectedCharts returns the ids of configurations that read statKey,
// directly or through a formula, sorted
func AffectedCharts(configs []charts.ChartConfiguration, statKey string) []string {
	var ids []string
	for _, cfg := range configs {
		if cfg.DependsOn(statKey) {
			ids = append(ids, cfg.ChartID)
		}
	}
	sort.Strings(ids)
	return ids
}

// StatUpdateResult describes the effect of one statistic change
type StatUpdateResult struct {
	ProjectID string                        `json:"projectId"`
	StatKey   string                        `json:"statKey"`
	Results   map[string]charts.ChartResult `json:"results"`
	// LayoutChanged is set when any affected chart gained or lost valid
	// data, which changes the rendered rows
	LayoutChanged bool    `json:"layoutChanged"`
	Report        *Report `json:"report,omitempty"`
}

// ApplyStatUpdate stores one statistic and recalculates every chart in the
// project's layout that reads it, in full, from the complete current
// record. The whole report is re-assembled only when some chart's validity
// flipped.
func (m *Manager) ApplyStatUpdate(ctx context.Context, projectID, statKey string, value interface{}) (*StatUpdateResult, error) {
	if statKey == "" {
		return nil, apperrors.WithDetails(apperrors.ErrBadRequest, "statKey is required")
	}

	before, err := m.Statistics(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := m.MergeStatistics(ctx, projectID, formula.Stats{statKey: value}); err != nil {
		return nil, err
	}

	snap, err := m.load(ctx, projectID)
	if err != nil {
		return nil, err
	}

	inLayout := make(map[string]bool)
	for _, id := range snap.layout.ChartIDs() {
		inLayout[id] = true
	}

	update := &StatUpdateResult{
		ProjectID: projectID,
		StatKey:   statKey,
		Results:   make(map[string]charts.ChartResult),
	}
	for _, cfg := range snap.configs {
		if !inLayout[cfg.ChartID] || !cfg.DependsOn(statKey) {
			continue
		}
		was := charts.HasValidData(m.assembler.CalculateChart(cfg, before))
		now := m.calculateChart(ctx, cfg, snap.stats)
		update.Results[cfg.ChartID] = now
		if charts.HasValidData(now) != was {
			update.LayoutChanged = true
		}
	}

	if update.LayoutChanged {
		update.Report = m.compose(snap, m.calculate(ctx, snap), m.width)
	}
	m.recorder.ObserveStatUpdate(len(update.Results), update.LayoutChanged)

	m.logger.WithFields(logrus.Fields{
		"project_id":     projectID,
		"stat_key":       statKey,
		"affected":       len(update.Results),
		"layout_changed": update.LayoutChanged,
	}).Debug("Statistic updated")

	return update, nil
}

// Relayout re-solves a report for a new width, recalculating only if the
// caller has no report yet
func (m *Manager) Relayout(ctx context.Context, projectID string, previous *Report, widthPx float64) (*Report, error) {
	if previous != nil && previous.ProjectID == projectID {
		return m.assembler.Relayout(previous, widthPx), nil
	}
	report, err := m.Report(ctx, projectID, widthPx)
	if err != nil {
		return nil, fmt.Errorf("failed to build report for relayout: %w", err)
	}
	return report, nil
}

// CacheStats reports result cache effectiveness, if a cache is configured
func (m *Manager) CacheStats() (cache.Stats, bool) {
	if m.cache == nil {
		return cache.Stats{}, false
	}
	return m.cache.Stats(), true
}
