package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"yupan/internal/strategy"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for yupan.
type Config struct {
	Storage  Storage        `yaml:"storage"`
	Server   Server         `yaml:"server"`
	Alpaca   Alpaca         `yaml:"alpaca"`
	Logging  Logging        `yaml:"logging"`
	Gather   GatherConfig   `yaml:"gather"`
	Backtest BacktestConfig `yaml:"backtest"`
	Sweep    SweepConfig    `yaml:"sweep"`
	Strategy StrategyConfig `yaml:"strategy"`
	Cache    CacheConfig    `yaml:"cache"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
	Market     string `yaml:"market"`
}

// Server holds network listener configuration.
type Server struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	GRPCPort int    `yaml:"grpc_port"`
}

// Alpaca holds credentials and endpoints for the Alpaca market data API.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	BaseURL   string `yaml:"base_url"`
	DataURL   string `yaml:"data_url"`
	Feed      string `yaml:"feed"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// GatherConfig controls how bars are refreshed from upstream providers.
type GatherConfig struct {
	StartDate       string `yaml:"start_date"`
	BatchSize       int    `yaml:"batch_size"`
	MaxWorkers      int    `yaml:"max_workers"`
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`
	MaxAttempts     int    `yaml:"max_attempts"`
}

// BacktestConfig holds the simulator's cash and cost model.
type BacktestConfig struct {
	StartingCash   float64 `yaml:"starting_cash"`
	BurnIn         int     `yaml:"burn_in"`
	CommissionRate float64 `yaml:"commission_rate"`
	MinCommission  float64 `yaml:"min_commission"`
	LotSize        int64   `yaml:"lot_size"`
	// Execution and OpenPosition override the per-mode policy when set.
	Execution     string `yaml:"execution"`
	OpenPosition  string `yaml:"open_position"`
	PersistLedger bool   `yaml:"persist_ledger"`
}

// SweepConfig controls multi-symbol prediction and backtest passes.
type SweepConfig struct {
	Workers      int `yaml:"workers"`
	SellSessions int `yaml:"sell_sessions"`
}

// StrategyConfig holds strategy selection defaults.
type StrategyConfig struct {
	DefaultMode    string  `yaml:"default_mode"`
	MarketCapFloor float64 `yaml:"market_cap_floor"`
}

// CacheConfig selects the recommendation cache backend.
type CacheConfig struct {
	Backend       string `yaml:"backend"` // sqlite, redis, memory or none
	Path          string `yaml:"path"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	Prefix        string `yaml:"prefix"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Storage: Storage{
			DataDir:    "data",
			SQLitePath: "data/yupan.db",
			Market:     "cn",
		},
		Server: Server{
			Host:     "127.0.0.1",
			Port:     8080,
			GRPCPort: 9090,
		},
		Alpaca: Alpaca{
			BaseURL: "https://api.alpaca.markets",
			DataURL: "https://data.alpaca.markets",
			Feed:    "sip",
		},
		Logging: Logging{
			Level:  "info",
			Format: "json",
		},
		Gather: GatherConfig{
			StartDate:       "2020-01-01",
			BatchSize:       100,
			MaxWorkers:      4,
			RateLimitPerMin: 200,
			MaxAttempts:     3,
		},
		Backtest: BacktestConfig{
			StartingCash:   10000,
			BurnIn:         21,
			CommissionRate: 0.00026,
			MinCommission:  5,
			LotSize:        100,
		},
		Sweep: SweepConfig{
			Workers:      1,
			SellSessions: 1,
		},
		Strategy: StrategyConfig{
			DefaultMode: "fish_tub",
		},
		Cache: CacheConfig{
			Backend: "sqlite",
			Path:    "data/cache.db",
			Prefix:  "yupan:rec:",
		},
	}
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path on top of
// Default, and then applies environment variable overrides. An empty path
// skips the file. A .env file next to the working directory is loaded into
// the process environment first when present.
func Load(path string) (*Config, error) {
	if err := LoadEnvFile(".env"); err != nil {
		return nil, err
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects policy names the simulator does not know.
func (c *Config) Validate() error {
	if _, err := strategy.ParseExecution(c.Backtest.Execution); err != nil {
		return fmt.Errorf("backtest.execution: %w", err)
	}
	if _, err := strategy.ParseOpenPosition(c.Backtest.OpenPosition); err != nil {
		return fmt.Errorf("backtest.open_position: %w", err)
	}
	return nil
}

// LoadEnvFile loads key=value pairs from the given dotenv files. Missing
// files are ignored; variables already set in the environment win.
func LoadEnvFile(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("STOCK_WORK_DIR"); v != "" {
		cfg.Storage.DataDir = filepath.Join(v, "data")
		cfg.Storage.SQLitePath = filepath.Join(v, "data", "yupan.db")
		cfg.Cache.Path = filepath.Join(v, "data", "cache.db")
	}
	if v := os.Getenv("YUPAN_DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("YUPAN_SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := os.Getenv("YUPAN_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("YUPAN_REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v := os.Getenv("YUPAN_MARKET_CAP_FLOOR"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Strategy.MarketCapFloor = f
		}
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}

	// Canonical Alpaca SDK names take priority.
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}
