package stress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fiberatomic "github.com/carterww/fiber-atomic"
	"github.com/carterww/fiber-atomic/internal/constants"
)

func TestDefaultConfigIsValid(t *testing.T) {
	for _, s := range Scenarios() {
		cfg := DefaultConfig(s)
		if s == ScenarioLanes {
			cfg.Width = constants.Width8
		}
		if s == ScenarioExchange {
			cfg.Iterations = 1000
		}
		assert.NoError(t, cfg.Validate(), s)
		assert.GreaterOrEqual(t, cfg.Workers, 2)
	}
}

func TestParseScenario(t *testing.T) {
	s, err := ParseScenario(" Fetch-Add ")
	require.NoError(t, err)
	assert.Equal(t, ScenarioFetchAdd, s)

	_, err = ParseScenario("ping-pong")
	assert.Error(t, err)
}

func TestScenariosReturnsCopy(t *testing.T) {
	all := Scenarios()
	all[0] = "mutated"
	assert.Equal(t, ScenarioFetchAdd, Scenarios()[0])
}

func TestConfigValidate(t *testing.T) {
	base := func(s Scenario) Config {
		return Config{Scenario: s, Workers: 4, Iterations: 100, Width: 4, Order: fiberatomic.OrderSeqCst}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
		isOrder bool
	}{
		{"valid", func(c *Config) {}, false, false},
		{"unknown scenario", func(c *Config) { c.Scenario = "nope" }, true, false},
		{"zero workers", func(c *Config) { c.Workers = 0 }, true, false},
		{"zero iterations", func(c *Config) { c.Iterations = 0 }, true, false},
		{"negative sampling", func(c *Config) { c.SampleEvery = -1 }, true, false},
		{"bad width", func(c *Config) { c.Width = 3 }, true, false},
		{"undefined order", func(c *Config) { c.Order = 9 }, true, true},
		{"acquire store", func(c *Config) { c.Scenario = ScenarioMessagePassing; c.Order = fiberatomic.OrderAcquire }, true, true},
		{"relaxed message passing", func(c *Config) { c.Scenario = ScenarioMessagePassing; c.Order = fiberatomic.OrderRelaxed }, true, true},
		{"release message passing", func(c *Config) { c.Scenario = ScenarioMessagePassing; c.Order = fiberatomic.OrderRelease }, false, false},
		{"release store buffering", func(c *Config) { c.Scenario = ScenarioStoreBuffering; c.Order = fiberatomic.OrderRelease }, true, true},
		{"acq_rel fetch", func(c *Config) { c.Order = fiberatomic.OrderAcqRel }, false, false},
		{"exchange overflows tokens", func(c *Config) { c.Scenario = ScenarioExchange; c.Width = 1 }, true, false},
		{"exchange fits tokens", func(c *Config) { c.Scenario = ScenarioExchange; c.Width = 2 }, false, false},
		{"bitmask too many workers", func(c *Config) { c.Scenario = ScenarioBitmask; c.Width = 1; c.Workers = 9 }, true, false},
		{"bitmask fits", func(c *Config) { c.Scenario = ScenarioBitmask; c.Width = 1; c.Workers = 8 }, false, false},
		{"lanes native width", func(c *Config) { c.Scenario = ScenarioLanes }, true, false},
		{"lanes halfword", func(c *Config) { c.Scenario = ScenarioLanes; c.Width = 2 }, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base(ScenarioFetchAdd)
			tt.mutate(&cfg)
			err := cfg.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			if tt.isOrder {
				assert.ErrorIs(t, err, fiberatomic.ErrInvalidOrder)
			}
		})
	}
}

func TestLitmusWorkersAndRounds(t *testing.T) {
	cfg := Config{Scenario: ScenarioStoreBuffering, Workers: 16, Iterations: constants.LitmusRounds * 2}
	assert.Equal(t, 2, cfg.workers())
	assert.Equal(t, constants.LitmusRounds, cfg.rounds())

	cfg.Iterations = 10
	assert.Equal(t, 10, cfg.rounds())

	cfg.Scenario = ScenarioFetchAdd
	assert.Equal(t, 16, cfg.workers())
}

func TestResultOK(t *testing.T) {
	r := &Result{Final: 10, Expected: 10}
	assert.True(t, r.OK())

	r.violation("lane %d", 1)
	assert.False(t, r.OK())
	assert.Equal(t, []string{"lane 1"}, r.Samples)

	r = &Result{Final: 9, Expected: 10}
	assert.False(t, r.OK())
}
