package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"

	"tachyon/risk"
	"tachyon/venue"
)

// MaxConfiguredExchanges bounds the venue table in the file.
const MaxConfiguredExchanges = 4

// Config is the full simulator configuration. Defaults cover every
// field, so a partial file overrides only what it names.
type Config struct {
	// core assignments, even-numbered to avoid SMT siblings
	MarketDataCore int `mapstructure:"market_data_core"`
	OrderBookCore  int `mapstructure:"order_book_core"`
	StrategyCore   int `mapstructure:"strategy_core"`
	ExecutionCore  int `mapstructure:"execution_core"`
	MonitoringCore int `mapstructure:"monitoring_core"`

	// queue sizes, power of two
	MarketDataQueueSize      uint64 `mapstructure:"market_data_queue_size"`
	OrderQueueSize           uint64 `mapstructure:"order_queue_size"`
	ExecutionReportQueueSize uint64 `mapstructure:"execution_report_queue_size"`

	NumExchanges int            `mapstructure:"num_exchanges"`
	Exchanges    []venue.Config `mapstructure:"exchanges"`

	RiskLimits risk.Limits `mapstructure:"risk_limits"`

	FeedRateMsgsPerSec float64 `mapstructure:"feed_rate_msgs_per_sec"`
	NumInstruments     uint32  `mapstructure:"num_instruments"`
	InitialPrice       float64 `mapstructure:"initial_price"`
	Volatility         float64 `mapstructure:"volatility"`

	MarketMakerSpreadBps    float64 `mapstructure:"market_maker_spread_bps"`
	MarketMakerMaxInventory int64   `mapstructure:"market_maker_max_inventory"`
	PairsLookbackWindow     int     `mapstructure:"pairs_lookback_window"`
	PairsEntryZ             float64 `mapstructure:"pairs_entry_z"`
	PairsExitZ              float64 `mapstructure:"pairs_exit_z"`
	MomentumFastWindow      int     `mapstructure:"momentum_fast_window"`
	MomentumSlowWindow      int     `mapstructure:"momentum_slow_window"`
	MomentumBreakoutBps     float64 `mapstructure:"momentum_breakout_bps"`

	SimulationDurationMs uint64 `mapstructure:"simulation_duration_ms"`
	EnableLogging        bool   `mapstructure:"enable_logging"`
}

// Default returns the stock configuration, including the four venue
// presets with two enabled.
func Default() Config {
	return Config{
		MarketDataCore: 2,
		OrderBookCore:  4,
		StrategyCore:   6,
		ExecutionCore:  8,
		MonitoringCore: 10,

		MarketDataQueueSize:      65536,
		OrderQueueSize:           65536,
		ExecutionReportQueueSize: 65536,

		NumExchanges: 2,
		Exchanges: []venue.Config{
			{ID: 0, Name: "SIM_NYSE", LatencyNs: 500, FillProbability: 0.95, Enabled: true},
			{ID: 1, Name: "SIM_NASDAQ", LatencyNs: 300, FillProbability: 0.98, Enabled: true},
			{ID: 2, Name: "SIM_BATS", LatencyNs: 200, FillProbability: 0.92, Enabled: false},
			{ID: 3, Name: "SIM_ARCA", LatencyNs: 400, FillProbability: 0.90, Enabled: false},
		},

		RiskLimits: risk.DefaultLimits(),

		FeedRateMsgsPerSec: 1_000_000,
		NumInstruments:     2,
		InitialPrice:       15000, // fixed-point: $150.00
		Volatility:         0.001,

		MarketMakerSpreadBps:    10.0,
		MarketMakerMaxInventory: 100,
		PairsLookbackWindow:     100,
		PairsEntryZ:             2.0,
		PairsExitZ:              0.5,
		MomentumFastWindow:      10,
		MomentumSlowWindow:      30,
		MomentumBreakoutBps:     5.0,

		SimulationDurationMs: 10000,
		EnableLogging:        true,
	}
}

// Load overlays the JSON file at path onto the defaults. A missing
// file is not an error; a malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("config: decode %s: %w", path, err)
	}

	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	for name, size := range map[string]uint64{
		"market_data_queue_size":      c.MarketDataQueueSize,
		"order_queue_size":            c.OrderQueueSize,
		"execution_report_queue_size": c.ExecutionReportQueueSize,
	} {
		if size == 0 || size&(size-1) != 0 {
			return fmt.Errorf("config: %s must be a power of two, got %d", name, size)
		}
	}
	if c.NumExchanges < 1 || c.NumExchanges > MaxConfiguredExchanges {
		return fmt.Errorf("config: num_exchanges must be 1..%d, got %d", MaxConfiguredExchanges, c.NumExchanges)
	}
	if c.NumExchanges > len(c.Exchanges) {
		return fmt.Errorf("config: num_exchanges %d exceeds configured exchanges %d", c.NumExchanges, len(c.Exchanges))
	}
	return nil
}

// ActiveExchanges returns the venues the pipeline should bring up.
func (c *Config) ActiveExchanges() []venue.Config {
	return c.Exchanges[:c.NumExchanges]
}
