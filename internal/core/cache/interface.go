// Package cache memoizes calculated chart results. Keys embed hashes of the
// configuration and of the statistics the chart reads, so a stale entry is
// never served; it simply stops being asked for and ages out.
package cache

import (
	"context"
	"strings"

	"github.com/frostdev-ops/eventstats-backend-go/internal/core/charts"
)

// ResultCache stores ChartResults by key
type ResultCache interface {
	Get(ctx context.Context, key string) (charts.ChartResult, bool, error)
	Set(ctx context.Context, key string, result charts.ChartResult) error
	// DeleteChart drops every entry for a chart id
	DeleteChart(ctx context.Context, chartID string) error
	Clear(ctx context.Context) error
	Stats() Stats
	Name() string
	Close() error
}

// Stats reports cache effectiveness
type Stats struct {
	Name   string `json:"name"`
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
	Sets   uint64 `json:"sets"`
	Size   int    `json:"size"`
}

// HitRate returns hits / lookups, or 0 before the first lookup
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

const keySep = "|"

// Key builds the cache key for a chart calculated from a configuration
// fingerprint and a statistics fingerprint
func Key(chartID, configHash, statsHash string) string {
	return chartID + keySep + short(configHash) + keySep + short(statsHash)
}

// chartPrefix is the key prefix shared by all entries of a chart
func chartPrefix(chartID string) string {
	return chartID + keySep
}

func short(hash string) string {
	if len(hash) > 16 {
		return hash[:16]
	}
	return hash
}

// chartIDFromKey recovers the chart id from a key built by Key
func chartIDFromKey(key string) string {
	if i := strings.Index(key, keySep); i >= 0 {
		return key[:i]
	}
	return key
}
