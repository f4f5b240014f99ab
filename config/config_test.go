package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/warp/variable-pay/generic"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Empty(t, cfg.Compensation.PerTaskRate)
	assert.Equal(t, 1, cfg.Compensation.ClaimLimit)
	assert.Equal(t, "America/Sao_Paulo", cfg.Compensation.Timezone)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.True(t, cfg.Server.AccessLog)
	assert.Equal(t, "variable-pay.db", cfg.DB.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	rate, err := cfg.Compensation.Rate()
	require.NoError(t, err)
	assert.True(t, rate.IsZero(), "the per-task rate is never defaulted")
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
compensation:
  per_task_rate: 2.5
  claim_limit: 2
  timezone: UTC
db:
  path: ./data/pay.db
log:
  level: debug
  format: console
server:
  port: 9090
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load("")
	require.NoError(t, err)

	rate, err := cfg.Compensation.Rate()
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.RequireFromString("2.5")))
	assert.Equal(t, 2, cfg.Compensation.ClaimLimit)
	assert.Equal(t, "./data/pay.db", cfg.DB.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 9090, cfg.Server.Port)

	loc, err := cfg.Compensation.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pay.yaml")
	require.NoError(t, os.WriteFile(path, []byte("compensation:\n  per_task_rate: \"2,50\"\n  timezone: UTC\n"), 0644))

	t.Setenv("VARPAY_COMPENSATION_PER_TASK_RATE", "0,093")

	cfg, err := Load(path)
	require.NoError(t, err)

	rate, err := cfg.Compensation.Rate()
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.RequireFromString("0.093")))
}

func TestLoadRejectsBadValues(t *testing.T) {
	dir := t.TempDir()

	tests := map[string]string{
		"negative rate": "compensation:\n  per_task_rate: -1\n  timezone: UTC\n",
		"text rate":     "compensation:\n  per_task_rate: abc\n  timezone: UTC\n",
		"bad timezone":  "compensation:\n  timezone: Mars/Olympus\n",
		"bad log level": "compensation:\n  timezone: UTC\nlog:\n  level: loud\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0644))

			_, err := Load(path)
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err, "an explicit path must exist")
}

func TestRate_ErrorIsInvalidInput(t *testing.T) {
	_, err := CompensationConfig{PerTaskRate: "-0,5"}.Rate()
	assert.True(t, generic.IsClientError(err))
}

func TestInitLogger(t *testing.T) {
	t.Cleanup(func() { zap.ReplaceGlobals(zap.NewNop()) })

	require.NoError(t, InitLogger(LogConfig{Level: "warn", Format: "console"}))
	assert.False(t, zap.L().Core().Enabled(zap.InfoLevel))
	assert.True(t, zap.L().Core().Enabled(zap.WarnLevel))

	assert.Error(t, InitLogger(LogConfig{Level: "loud", Format: "json"}))
}

// =============================================================================
// WATCH
// =============================================================================

type rateRecorder struct {
	mu    sync.Mutex
	rates []decimal.Decimal
}

func (r *rateRecorder) SetPerTaskRate(rate decimal.Decimal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rates = append(r.rates, rate)
}

func (r *rateRecorder) last() (decimal.Decimal, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.rates) == 0 {
		return decimal.Zero, false
	}
	return r.rates[len(r.rates)-1], true
}

func TestWatch_AppliesNewRate(t *testing.T) {
	// GIVEN: A config file watched with ApplyRate
	// WHEN: The rate in the file changes
	// THEN: The new rate reaches the setter

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("compensation:\n  per_task_rate: 2.5\n  timezone: UTC\n"), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	recorder := &rateRecorder{}
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, path, ApplyRate(recorder)) }()

	want := decimal.RequireFromString("0.093")
	require.Eventually(t, func() bool {
		// Rewrite until the watcher has been registered and picked it up.
		_ = os.WriteFile(path, []byte("compensation:\n  per_task_rate: 0.093\n  timezone: UTC\n"), 0644)
		rate, ok := recorder.last()
		return ok && rate.Equal(want)
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

// replaceFile writes body next to path and renames it over path, the way
// atomic-save editors do.
func replaceFile(path, body string) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(body), 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func TestWatch_SurvivesAtomicReplace(t *testing.T) {
	// GIVEN: A watched config file
	// WHEN: It is replaced by rename twice in a row
	// THEN: Both replacements are applied

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("compensation:\n  per_task_rate: 2.5\n  timezone: UTC\n"), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	recorder := &rateRecorder{}
	go func() { _ = Watch(ctx, path, ApplyRate(recorder)) }()

	for _, rate := range []string{"3", "4.25"} {
		want := decimal.RequireFromString(rate)
		body := "compensation:\n  per_task_rate: " + rate + "\n  timezone: UTC\n"
		require.Eventually(t, func() bool {
			if err := replaceFile(path, body); err != nil {
				return false
			}
			got, ok := recorder.last()
			return ok && got.Equal(want)
		}, 5*time.Second, 50*time.Millisecond, "rate %s not applied", rate)
	}
}

func TestWatch_IgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("compensation:\n  per_task_rate: 2.5\n  timezone: UTC\n"), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	recorder := &rateRecorder{}
	go func() { _ = Watch(ctx, path, ApplyRate(recorder)) }()

	sibling := filepath.Join(dir, "other.yaml")
	for i := 0; i < 10; i++ {
		require.NoError(t, os.WriteFile(sibling, []byte("compensation:\n  per_task_rate: 9\n  timezone: UTC\n"), 0644))
		time.Sleep(20 * time.Millisecond)
	}

	_, ok := recorder.last()
	assert.False(t, ok)
}

func TestApplyRate_IgnoresInvalidRate(t *testing.T) {
	recorder := &rateRecorder{}
	ApplyRate(recorder)(&Config{Compensation: CompensationConfig{PerTaskRate: "abc"}})

	_, ok := recorder.last()
	assert.False(t, ok)
}

func TestWatch_MissingFile(t *testing.T) {
	err := Watch(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"), func(*Config) {})
	assert.Error(t, err)
}
