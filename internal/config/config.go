package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"marlin/internal/engine"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for marlin.
type Config struct {
	Storage  Storage        `yaml:"storage"`
	Alpaca   Alpaca         `yaml:"alpaca"`
	Logging  Logging        `yaml:"logging"`
	Gather   GatherConfig   `yaml:"gather"`
	Backtest BacktestConfig `yaml:"backtest"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Alpaca holds credentials and endpoints for the Alpaca market-data API.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	BaseURL   string `yaml:"base_url"`
	DataURL   string `yaml:"data_url"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// GatherConfig holds parameters for the daily-bar gathering job.
type GatherConfig struct {
	Symbols         []string `yaml:"symbols"`
	StartDate       string   `yaml:"start_date"`
	MaxWorkers      int      `yaml:"max_workers"`
	RateLimitPerMin int      `yaml:"rate_limit_per_min"`
}

// BacktestConfig defines the simulation risk and execution parameters. It
// maps one-to-one onto engine.Config; unset fields fall back to the engine
// defaults.
type BacktestConfig struct {
	InitialCash         float64  `yaml:"initial_cash"`
	MaxPositions        int      `yaml:"max_positions"`
	SlippageRate        *float64 `yaml:"slippage_rate"`
	CommissionRate      *float64 `yaml:"commission_rate"`
	StopLossPct         *float64 `yaml:"stop_loss_pct"`
	TakeProfitPct       *float64 `yaml:"take_profit_pct"`
	SizeBaseFraction    *float64 `yaml:"size_base_fraction"`
	MaxPositionFraction *float64 `yaml:"max_position_fraction"`
	MaxCashFraction     *float64 `yaml:"max_cash_fraction"`
	VolAdjustThreshold  *float64 `yaml:"vol_adjust_threshold"`
	VolAdjustFactor     *float64 `yaml:"vol_adjust_factor"`
	VolWindow           *int     `yaml:"vol_window"`
}

// EngineConfig converts the YAML section into an immutable engine.Config,
// applying engine defaults for absent fields. The result is not validated
// here; engine.New does that before any run starts.
func (b BacktestConfig) EngineConfig() engine.Config {
	cfg := engine.DefaultConfig()
	cfg.InitialCash = b.InitialCash
	if b.MaxPositions > 0 {
		cfg.MaxPositions = b.MaxPositions
	}
	if b.SlippageRate != nil {
		cfg.SlippageRate = *b.SlippageRate
	}
	if b.CommissionRate != nil {
		cfg.CommissionRate = *b.CommissionRate
	}
	if b.StopLossPct != nil {
		cfg.StopLossPct = *b.StopLossPct
	}
	if b.TakeProfitPct != nil {
		cfg.TakeProfitPct = *b.TakeProfitPct
	}
	if b.SizeBaseFraction != nil {
		cfg.SizeBaseFraction = *b.SizeBaseFraction
	}
	if b.MaxPositionFraction != nil {
		cfg.MaxPositionFraction = *b.MaxPositionFraction
	}
	if b.MaxCashFraction != nil {
		cfg.MaxCashFraction = *b.MaxCashFraction
	}
	if b.VolAdjustThreshold != nil {
		cfg.VolAdjustThreshold = *b.VolAdjustThreshold
	}
	if b.VolAdjustFactor != nil {
		cfg.VolAdjustFactor = *b.VolAdjustFactor
	}
	if b.VolWindow != nil {
		cfg.VolWindow = *b.VolWindow
	}
	return cfg
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, and then applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}
	if v := os.Getenv("ALPACA_BASE_URL"); v != "" {
		cfg.Alpaca.BaseURL = v
	}
	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Canonical Alpaca SDK env vars take priority over the ALPACA_* names.
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}
