// Package config handles configuration management with validation
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete configuration structure
type Config struct {
	App      AppConfig      `yaml:"app"`
	Exchange ExchangeConfig `yaml:"exchange"`
	Database DatabaseConfig `yaml:"database"`
	Telegram TelegramConfig `yaml:"telegram"`
	Alerts   AlertsConfig   `yaml:"alerts"`
	Trading  TradingConfig  `yaml:"trading"`
	Timing   TimingConfig   `yaml:"timing"`
}

// AppConfig contains application-level settings
type AppConfig struct {
	LogLevel    string `yaml:"log_level"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// ExchangeConfig contains the BingX connection settings
type ExchangeConfig struct {
	BaseURL            string `yaml:"base_url"`
	WsURL              string `yaml:"ws_url"`
	APIKey             Secret `yaml:"api_key"`
	SecretKey          Secret `yaml:"secret_key"`
	RecvTimeoutSeconds int    `yaml:"recv_timeout_seconds"`
	MaxConnections     int    `yaml:"max_connections"`
}

// DatabaseConfig holds the ledger-mirror DSN
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// TelegramConfig holds the operator console credentials
type TelegramConfig struct {
	Token   Secret `yaml:"token"`
	AdminID int64  `yaml:"admin_id"`
}

// AlertsConfig holds optional notification channels beyond the console
// bot. An empty webhook disables the slack channel.
type AlertsConfig struct {
	SlackWebhook Secret `yaml:"slack_webhook"`
}

// TradingConfig contains trading policy constants
type TradingConfig struct {
	TakerFee           float64 `yaml:"taker_fee"`
	MakerFee           float64 `yaml:"maker_fee"`
	TargetProfit       float64 `yaml:"target_profit"`
	PartlyTargetProfit float64 `yaml:"partly_target_profit"`
	BaseGridStep       float64 `yaml:"base_grid_step"`
	FeeReserve         float64 `yaml:"fee_reserve"`
	MinQuoteBalance    float64 `yaml:"min_quote_balance"`
	FeeReserveMode     bool    `yaml:"fee_reserve_mode"`
	KlineSeedLimit     int     `yaml:"kline_seed_limit"`
}

// TimingConfig contains timing-related settings, all in seconds
type TimingConfig struct {
	TradeTickSeconds        int `yaml:"trade_tick_seconds"`
	IndicatorTickSeconds    int `yaml:"indicator_tick_seconds"`
	ReconnectDelaySeconds   int `yaml:"reconnect_delay_seconds"`
	PauseAfterSellSeconds   int `yaml:"pause_after_sell_seconds"`
	ListenKeyRefreshSeconds int `yaml:"listen_key_refresh_seconds"`
	StreamStaggerSeconds    int `yaml:"stream_stagger_seconds"`
}

// TradeTick returns the trading-loop period as a duration.
func (t TimingConfig) TradeTick() time.Duration {
	return time.Duration(t.TradeTickSeconds) * time.Second
}

// IndicatorTick returns the indicator-loop period as a duration.
func (t TimingConfig) IndicatorTick() time.Duration {
	return time.Duration(t.IndicatorTickSeconds) * time.Second
}

// ReconnectDelay returns the stream reconnect backoff as a duration.
func (t TimingConfig) ReconnectDelay() time.Duration {
	return time.Duration(t.ReconnectDelaySeconds) * time.Second
}

// PauseAfterSell returns the post-sell buy pause as a duration.
func (t TimingConfig) PauseAfterSell() time.Duration {
	return time.Duration(t.PauseAfterSellSeconds) * time.Second
}

// ListenKeyRefresh returns the listen-key keepalive period as a duration.
func (t TimingConfig) ListenKeyRefresh() time.Duration {
	return time.Duration(t.ListenKeyRefreshSeconds) * time.Second
}

// StreamStagger returns the per-symbol bootstrap delay as a duration.
func (t TimingConfig) StreamStagger() time.Duration {
	return time.Duration(t.StreamStaggerSeconds) * time.Second
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s' (value: %v): %s", e.Field, e.Value, e.Message)
}

// LoadConfig loads configuration from a YAML file with environment variable expansion
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expandedData := os.Expand(string(data), os.Getenv)

	config := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expandedData), config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	var errs []string

	if err := c.validateApp(); err != nil {
		errs = append(errs, err.Error())
	}
	if err := c.validateExchange(); err != nil {
		errs = append(errs, err.Error())
	}
	if err := c.validateDatabase(); err != nil {
		errs = append(errs, err.Error())
	}
	if err := c.validateTrading(); err != nil {
		errs = append(errs, err.Error())
	}
	if err := c.validateTiming(); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(errs, "\n"))
	}

	return nil
}

func (c *Config) validateApp() error {
	validLevels := []string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}
	if !contains(validLevels, strings.ToUpper(c.App.LogLevel)) {
		return ValidationError{
			Field:   "app.log_level",
			Value:   c.App.LogLevel,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(validLevels, ", ")),
		}
	}
	return nil
}

func (c *Config) validateExchange() error {
	if c.Exchange.BaseURL == "" {
		return ValidationError{
			Field:   "exchange.base_url",
			Message: "base URL is required (env BASE_URL)",
		}
	}
	if c.Exchange.WsURL == "" {
		return ValidationError{
			Field:   "exchange.ws_url",
			Message: "websocket URL is required (env URL_WS)",
		}
	}
	if c.Exchange.APIKey == "" {
		return ValidationError{
			Field:   "exchange.api_key",
			Message: "API key is required (env API_KEY)",
		}
	}
	if c.Exchange.SecretKey == "" {
		return ValidationError{
			Field:   "exchange.secret_key",
			Message: "secret key is required (env SECRET_KEY)",
		}
	}
	if c.Exchange.MaxConnections <= 0 {
		return ValidationError{
			Field:   "exchange.max_connections",
			Value:   c.Exchange.MaxConnections,
			Message: "must be positive",
		}
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.URL == "" {
		return ValidationError{
			Field:   "database.url",
			Message: "database DSN is required (env DB_URL)",
		}
	}
	return nil
}

func (c *Config) validateTrading() error {
	if c.Trading.TakerFee < 0 || c.Trading.TakerFee >= 1 {
		return ValidationError{
			Field:   "trading.taker_fee",
			Value:   c.Trading.TakerFee,
			Message: "must be in [0, 1)",
		}
	}
	if c.Trading.MakerFee < 0 || c.Trading.MakerFee >= 1 {
		return ValidationError{
			Field:   "trading.maker_fee",
			Value:   c.Trading.MakerFee,
			Message: "must be in [0, 1)",
		}
	}
	if c.Trading.TargetProfit <= 0 {
		return ValidationError{
			Field:   "trading.target_profit",
			Value:   c.Trading.TargetProfit,
			Message: "must be positive",
		}
	}
	if c.Trading.PartlyTargetProfit <= 0 {
		return ValidationError{
			Field:   "trading.partly_target_profit",
			Value:   c.Trading.PartlyTargetProfit,
			Message: "must be positive",
		}
	}
	if c.Trading.BaseGridStep <= 0 {
		return ValidationError{
			Field:   "trading.base_grid_step",
			Value:   c.Trading.BaseGridStep,
			Message: "must be positive",
		}
	}
	if c.Trading.KlineSeedLimit < 50 {
		return ValidationError{
			Field:   "trading.kline_seed_limit",
			Value:   c.Trading.KlineSeedLimit,
			Message: "must be at least 50 to seed the indicator windows",
		}
	}
	return nil
}

func (c *Config) validateTiming() error {
	fields := []struct {
		name  string
		value int
	}{
		{"timing.trade_tick_seconds", c.Timing.TradeTickSeconds},
		{"timing.indicator_tick_seconds", c.Timing.IndicatorTickSeconds},
		{"timing.reconnect_delay_seconds", c.Timing.ReconnectDelaySeconds},
		{"timing.pause_after_sell_seconds", c.Timing.PauseAfterSellSeconds},
		{"timing.listen_key_refresh_seconds", c.Timing.ListenKeyRefreshSeconds},
	}
	for _, f := range fields {
		if f.value <= 0 {
			return ValidationError{
				Field:   f.name,
				Value:   f.value,
				Message: "must be positive",
			}
		}
	}
	if c.Timing.StreamStaggerSeconds < 0 {
		return ValidationError{
			Field:   "timing.stream_stagger_seconds",
			Value:   c.Timing.StreamStaggerSeconds,
			Message: "must not be negative",
		}
	}
	return nil
}

// String returns a string representation of the configuration. Secret
// fields redact themselves when marshalled.
func (c *Config) String() string {
	data, _ := yaml.Marshal(c)
	return string(data)
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// DefaultConfig returns the configuration defaults. LoadConfig starts from
// these so a config file only has to override what differs.
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			LogLevel:    "INFO",
			MetricsAddr: ":9090",
		},
		Exchange: ExchangeConfig{
			RecvTimeoutSeconds: 30,
			MaxConnections:     200,
		},
		Trading: TradingConfig{
			TakerFee:           0.002,
			MakerFee:           0.002,
			TargetProfit:       0.01,
			PartlyTargetProfit: 0.006,
			BaseGridStep:       0.01,
			FeeReserve:         0.2,
			MinQuoteBalance:    2,
			FeeReserveMode:     false,
			KlineSeedLimit:     300,
		},
		Timing: TimingConfig{
			TradeTickSeconds:        1,
			IndicatorTickSeconds:    1,
			ReconnectDelaySeconds:   5,
			PauseAfterSellSeconds:   5,
			ListenKeyRefreshSeconds: 1200,
			StreamStaggerSeconds:    1,
		},
	}
}

// TestConfig returns a fully populated configuration for tests.
func TestConfig() *Config {
	cfg := DefaultConfig()
	cfg.Exchange.BaseURL = "https://open-api.bingx.com"
	cfg.Exchange.WsURL = "wss://open-api-ws.bingx.com/market"
	cfg.Exchange.APIKey = "test-api-key"
	cfg.Exchange.SecretKey = "test-secret-key"
	cfg.Database.URL = ":memory:"
	cfg.Telegram.Token = "test-token"
	cfg.Telegram.AdminID = 1
	return cfg
}
