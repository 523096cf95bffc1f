package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config is the complete process configuration: CLI server/introspection
// settings layered over the factor, combiner, backtest, and market-data
// defaults the research commands fall back on when a flag is omitted.
type Config struct {
	Server     ServerConfig     `yaml:"server" envconfig:"SERVER"`
	Logging    LoggingConfig    `yaml:"logging" envconfig:"LOGGING"`
	Paths      PathsConfig      `yaml:"paths" envconfig:"PATHS"`
	WebSocket  WebSocketConfig  `yaml:"websocket" envconfig:"WEBSOCKET"`
	Factors    FactorsConfig    `yaml:"factors" envconfig:"FACTORS"`
	Combiner   CombinerConfig   `yaml:"combiner" envconfig:"COMBINER"`
	Backtest   BacktestConfig   `yaml:"backtest" envconfig:"BACKTEST"`
	MarketData MarketDataConfig `yaml:"marketdata" envconfig:"MARKETDATA"`
}

// ServerConfig controls the optional local introspection HTTP server
// (/healthz, /metrics, /progress) that the backtest command exposes with
// --stream.
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8089"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"5s"`
}

// LoggingConfig controls the slog JSON logger.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format      string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output      string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/tarifa.log"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT" default:"true"`
}

// PathsConfig is the base of the executable-relative path layout.
type PathsConfig struct {
	ExecutableDir string `yaml:"executable_dir" envconfig:"EXECUTABLE_DIR"`
	DataDir       string `yaml:"data_dir" envconfig:"DATA_DIR" default:"data"`
	LogsDir       string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
}

// WebSocketConfig controls the progress broadcast hub.
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE" default:"1024"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE" default:"1024"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD" default:"30s"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT" default:"60s"`
}

// FactorsConfig holds the default lookbacks and winsorization settings
// applied when a factor's own defaults aren't overridden on the CLI.
type FactorsConfig struct {
	MinObservations    int     `yaml:"min_observations" envconfig:"MIN_OBSERVATIONS" default:"5" validate:"min=1"`
	WinsorizePct       float64 `yaml:"winsorize_pct" envconfig:"WINSORIZE_PCT" default:"0.01" validate:"min=0,max=0.5"`
	WinsorizeDefault   bool    `yaml:"winsorize_default" envconfig:"WINSORIZE_DEFAULT" default:"true"`
	ShortTermLookback  int     `yaml:"short_term_lookback" envconfig:"SHORT_TERM_LOOKBACK" default:"21" validate:"min=1"`
	MediumTermLookback int     `yaml:"medium_term_lookback" envconfig:"MEDIUM_TERM_LOOKBACK" default:"126" validate:"min=1"`
	LongTermLookback   int     `yaml:"long_term_lookback" envconfig:"LONG_TERM_LOOKBACK" default:"252" validate:"min=1"`
	LongTermSkip       int     `yaml:"long_term_skip" envconfig:"LONG_TERM_SKIP" default:"21" validate:"min=0"`
}

// CombinerConfig holds defaults for the IC-weighted and vol-scaled combiners.
type CombinerConfig struct {
	ICHistoryWindow int     `yaml:"ic_history_window" envconfig:"IC_HISTORY_WINDOW" default:"12" validate:"min=1"`
	DecayFactor     float64 `yaml:"decay_factor" envconfig:"DECAY_FACTOR" default:"0.94" validate:"min=0,max=1"`
	TargetVol       float64 `yaml:"target_vol" envconfig:"TARGET_VOL" default:"1.0" validate:"min=0"`
	Restandardize   bool    `yaml:"restandardize" envconfig:"RESTANDARDIZE" default:"true"`
}

// BacktestConfig holds the long/short backtest engine's defaults.
type BacktestConfig struct {
	QuantileTop          float64 `yaml:"quantile_top" envconfig:"QUANTILE_TOP" default:"0.2" validate:"gt=0,lte=1"`
	QuantileBottom       float64 `yaml:"quantile_bottom" envconfig:"QUANTILE_BOTTOM" default:"0.2" validate:"gt=0,lte=1"`
	TransactionCostBps   float64 `yaml:"transaction_cost_bps" envconfig:"TRANSACTION_COST_BPS" default:"10" validate:"min=0"`
	RebalanceFrequency   int     `yaml:"rebalance_frequency" envconfig:"REBALANCE_FREQUENCY" default:"21" validate:"min=1"`
	AnnualizationFactor  float64 `yaml:"annualization_factor" envconfig:"ANNUALIZATION_FACTOR" default:"252" validate:"min=1"`
}

// MarketDataConfig holds the external data-provider collaborator's settings.
// The API key is read exclusively from the environment per spec: FMP_API_KEY.
type MarketDataConfig struct {
	Provider      string        `yaml:"provider" envconfig:"PROVIDER" default:"fmp"`
	BaseURL       string        `yaml:"base_url" envconfig:"BASE_URL" default:"https://financialmodelingprep.com/api/v3"`
	RateLimitRPS  float64       `yaml:"rate_limit_rps" envconfig:"RATE_LIMIT_RPS" default:"5"`
	RateLimitBurst int          `yaml:"rate_limit_burst" envconfig:"RATE_LIMIT_BURST" default:"5"`
	RequestTimeout time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" default:"30s"`
	APIKey        string        `yaml:"-" envconfig:"-"`
}

var validate = validator.New()

// Load loads configuration from environment variables (prefix TARIFA_),
// then overlays a config.yaml file if present, then resolves and validates.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("TARIFA", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if configFile := getConfigFilePath(); configFile != "" {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileConfig, cfg)
	}

	cfg.MarketData.APIKey = os.Getenv("FMP_API_KEY")

	if err := cfg.resolvePaths(); err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// mergeConfigs merges file config with env config; env values win when set.
func mergeConfigs(fileConfig, envConfig Config) Config {
	if envConfig.Server.Port == 0 {
		envConfig.Server.Port = fileConfig.Server.Port
	}
	if envConfig.Factors.MinObservations == 0 {
		envConfig.Factors.MinObservations = fileConfig.Factors.MinObservations
	}
	if envConfig.Backtest.RebalanceFrequency == 0 {
		envConfig.Backtest.RebalanceFrequency = fileConfig.Backtest.RebalanceFrequency
	}
	return envConfig
}

func (c *Config) resolvePaths() error {
	paths, err := GetPaths()
	if err != nil {
		return fmt.Errorf("failed to get paths: %w", err)
	}
	c.Paths.ExecutableDir = paths.ExecutableDir
	return nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if err := validate.Struct(c.Factors); err != nil {
		return fmt.Errorf("invalid factors config: %w", err)
	}
	if err := validate.Struct(c.Combiner); err != nil {
		return fmt.Errorf("invalid combiner config: %w", err)
	}
	if err := validate.Struct(c.Backtest); err != nil {
		return fmt.Errorf("invalid backtest config: %w", err)
	}

	if c.Logging.Format != "json" {
		c.Logging.Format = "json"
	}
	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/tarifa.log"
	}

	return nil
}

func getConfigFilePath() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// GetDataDir returns the resolved data directory path.
func (c *Config) GetDataDir() string {
	paths, err := GetPaths()
	if err != nil {
		if filepath.IsAbs(c.Paths.DataDir) {
			return c.Paths.DataDir
		}
		return filepath.Join(c.Paths.ExecutableDir, c.Paths.DataDir)
	}
	return paths.DataDir
}

// GetLogsDir returns the resolved logs directory path.
func (c *Config) GetLogsDir() string {
	paths, err := GetPaths()
	if err != nil {
		if filepath.IsAbs(c.Paths.LogsDir) {
			return c.Paths.LogsDir
		}
		return filepath.Join(c.Paths.ExecutableDir, c.Paths.LogsDir)
	}
	return paths.LogsDir
}

// Default returns a configuration populated with the same defaults Load
// would apply, for use in tests and as a startup fallback.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8089,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:       "info",
			Format:      "json",
			Output:      "console",
			FilePath:    "logs/tarifa.log",
			Development: true,
		},
		Paths: PathsConfig{
			DataDir: "data",
			LogsDir: "logs",
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      30 * time.Second,
			PongWait:        60 * time.Second,
		},
		Factors: FactorsConfig{
			MinObservations:    5,
			WinsorizePct:       0.01,
			WinsorizeDefault:   true,
			ShortTermLookback:  21,
			MediumTermLookback: 126,
			LongTermLookback:   252,
			LongTermSkip:       21,
		},
		Combiner: CombinerConfig{
			ICHistoryWindow: 12,
			DecayFactor:     0.94,
			TargetVol:       1.0,
			Restandardize:   true,
		},
		Backtest: BacktestConfig{
			QuantileTop:         0.2,
			QuantileBottom:      0.2,
			TransactionCostBps:  10,
			RebalanceFrequency:  21,
			AnnualizationFactor: 252,
		},
		MarketData: MarketDataConfig{
			Provider:       "fmp",
			BaseURL:        "https://financialmodelingprep.com/api/v3",
			RateLimitRPS:   5,
			RateLimitBurst: 5,
			RequestTimeout: 30 * time.Second,
		},
	}
}
