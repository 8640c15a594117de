package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cauldron-optimizer/internal/optimizer"
)

func gather(t *testing.T, r *Recorder) map[string]*dto.MetricFamily {
	t.Helper()
	families, err := r.Gatherer().Gather()
	require.NoError(t, err)
	out := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		out[f.GetName()] = f
	}
	return out
}

func labeled(f *dto.MetricFamily, value string) *dto.Metric {
	for _, m := range f.GetMetric() {
		for _, l := range m.GetLabel() {
			if l.GetValue() == value {
				return m
			}
		}
	}
	return nil
}

func TestRecord(t *testing.T) {
	r := NewRecorder()
	stats := optimizer.Stats{Starts: 4, Iterations: 30, Evaluations: 900}
	cache := optimizer.CacheStats{Hits: 2, Misses: 5}
	r.Record(stats, cache, 71.5, 120*time.Millisecond, nil)
	r.Record(stats, cache, 80, 80*time.Millisecond, nil)
	r.Record(optimizer.Stats{Starts: 99}, optimizer.CacheStats{}, 5, time.Millisecond, errors.New("boom"))

	m := gather(t, r)
	assert.Equal(t, 2.0, labeled(m["cauldron_runs_total"], "success").GetCounter().GetValue())
	assert.Equal(t, 1.0, labeled(m["cauldron_runs_total"], "error").GetCounter().GetValue())
	assert.Equal(t, 8.0, m["cauldron_starts_total"].GetMetric()[0].GetCounter().GetValue())
	assert.Equal(t, 60.0, m["cauldron_iterations_total"].GetMetric()[0].GetCounter().GetValue())
	assert.Equal(t, 1800.0, m["cauldron_evaluations_total"].GetMetric()[0].GetCounter().GetValue())
	assert.Equal(t, 4.0, labeled(m["cauldron_cache_lookups_total"], "hit").GetCounter().GetValue())
	assert.Equal(t, 10.0, labeled(m["cauldron_cache_lookups_total"], "miss").GetCounter().GetValue())
	assert.Equal(t, 80.0, m["cauldron_best_score"].GetMetric()[0].GetGauge().GetValue())
	assert.Equal(t, uint64(2), labeled(m["cauldron_run_duration_seconds"], "success").GetHistogram().GetSampleCount())
}

func TestRecordersAreIndependent(t *testing.T) {
	a, b := NewRecorder(), NewRecorder()
	a.Record(optimizer.Stats{Starts: 1}, optimizer.CacheStats{}, 1, time.Second, nil)

	m := gather(t, b)
	assert.Nil(t, labeled(m["cauldron_runs_total"], "success"))
}

func TestWriteTextfile(t *testing.T) {
	r := NewRecorder()
	r.Record(optimizer.Stats{Starts: 3}, optimizer.CacheStats{}, 42, time.Second, nil)

	path := filepath.Join(t.TempDir(), "cauldron.prom")
	require.NoError(t, r.WriteTextfile(path))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "cauldron_best_score 42")
	assert.Contains(t, string(raw), `cauldron_runs_total{status="success"} 1`)
}
