package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/marketpi/wps/pkg/logger"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Settlement SettlementConfig `yaml:"settlement"`
	Payment    PaymentConfig    `yaml:"payment"`
	WebSocket  WebSocketConfig  `yaml:"websocket"`
	JWT        JWTConfig        `yaml:"jwt"`
	Log        logger.Config    `yaml:"log"`
}

type ServerConfig struct {
	Host        string `yaml:"host"`
	Port        string `yaml:"port"`
	Environment string `yaml:"environment"`
}

type DatabaseConfig struct {
	Host            string `yaml:"host"`
	Port            string `yaml:"port"`
	User            string `yaml:"user"`
	DBName          string `yaml:"name"`
	Password        string `yaml:"password"`
	SSLMode         string `yaml:"ssl_mode"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime string `yaml:"conn_max_lifetime"`
}

// SettlementConfig configures the REST client for the marketplace
// settlement backend (approve/complete/cancel).
type SettlementConfig struct {
	BaseURL    string        `yaml:"base_url"`
	APIKey     string        `yaml:"api_key"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
}

// PaymentConfig configures the payment coordinator.
type PaymentConfig struct {
	// Scopes requested from the wallet at authentication time.
	Scopes []string `yaml:"scopes"`
	// InactivityTimeout settles a pending payment with a timeout error
	// when no wallet callback arrives for this long.
	InactivityTimeout time.Duration `yaml:"inactivity_timeout"`
	// SettleTimeout bounds each detached settlement call to the backend.
	SettleTimeout time.Duration `yaml:"settle_timeout"`
	// AuthTimeout bounds wallet authentication (the user may have to
	// approve inside the wallet app).
	AuthTimeout time.Duration `yaml:"auth_timeout"`
}

type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size"`
	WriteBufferSize int           `yaml:"write_buffer_size"`
	CheckOrigin     bool          `yaml:"check_origin"`
	PingPeriod      time.Duration `yaml:"ping_period"`
}

type JWTConfig struct {
	Secret string        `yaml:"secret"`
	Issuer string        `yaml:"issuer"`
	TTL    time.Duration `yaml:"ttl"`
}

// yaml.v3 cannot decode "30s" style strings into time.Duration, so
// every config struct carrying durations decodes through a raw shadow
// struct and parses them explicitly.

func (c *SettlementConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		BaseURL    string `yaml:"base_url"`
		APIKey     string `yaml:"api_key"`
		Timeout    string `yaml:"timeout"`
		MaxRetries int    `yaml:"max_retries"`
		RetryDelay string `yaml:"retry_delay"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	c.BaseURL = raw.BaseURL
	c.APIKey = raw.APIKey
	c.MaxRetries = raw.MaxRetries

	var err error
	if c.Timeout, err = parseDuration(raw.Timeout); err != nil {
		return fmt.Errorf("settlement.timeout: %w", err)
	}
	if c.RetryDelay, err = parseDuration(raw.RetryDelay); err != nil {
		return fmt.Errorf("settlement.retry_delay: %w", err)
	}
	return nil
}

func (c *PaymentConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Scopes            []string `yaml:"scopes"`
		InactivityTimeout string   `yaml:"inactivity_timeout"`
		SettleTimeout     string   `yaml:"settle_timeout"`
		AuthTimeout       string   `yaml:"auth_timeout"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	c.Scopes = raw.Scopes

	var err error
	if c.InactivityTimeout, err = parseDuration(raw.InactivityTimeout); err != nil {
		return fmt.Errorf("payment.inactivity_timeout: %w", err)
	}
	if c.SettleTimeout, err = parseDuration(raw.SettleTimeout); err != nil {
		return fmt.Errorf("payment.settle_timeout: %w", err)
	}
	if c.AuthTimeout, err = parseDuration(raw.AuthTimeout); err != nil {
		return fmt.Errorf("payment.auth_timeout: %w", err)
	}
	return nil
}

func (c *WebSocketConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		ReadBufferSize  int    `yaml:"read_buffer_size"`
		WriteBufferSize int    `yaml:"write_buffer_size"`
		CheckOrigin     bool   `yaml:"check_origin"`
		PingPeriod      string `yaml:"ping_period"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	c.ReadBufferSize = raw.ReadBufferSize
	c.WriteBufferSize = raw.WriteBufferSize
	c.CheckOrigin = raw.CheckOrigin

	var err error
	if c.PingPeriod, err = parseDuration(raw.PingPeriod); err != nil {
		return fmt.Errorf("websocket.ping_period: %w", err)
	}
	return nil
}

func (c *JWTConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Secret string `yaml:"secret"`
		Issuer string `yaml:"issuer"`
		TTL    string `yaml:"ttl"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	c.Secret = raw.Secret
	c.Issuer = raw.Issuer

	var err error
	if c.TTL, err = parseDuration(raw.TTL); err != nil {
		return fmt.Errorf("jwt.ttl: %w", err)
	}
	return nil
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		return nil, err
	}

	var config Config
	configData, err := os.ReadFile("./config.yaml")
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(configData, &config); err != nil {
		return nil, err
	}

	if secret := os.Getenv("WPS_JWT_SECRET"); secret != "" {
		config.JWT.Secret = secret
	}
	if apiKey := os.Getenv("WPS_SETTLEMENT_API_KEY"); apiKey != "" {
		config.Settlement.APIKey = apiKey
	}
	if password := os.Getenv("WPS_DB_PASSWORD"); password != "" {
		config.Database.Password = password
	}

	config.applyDefaults()

	return &config, nil
}

func (c *Config) applyDefaults() {
	if len(c.Payment.Scopes) == 0 {
		c.Payment.Scopes = []string{"payments"}
	}
	if c.Payment.InactivityTimeout == 0 {
		c.Payment.InactivityTimeout = 5 * time.Minute
	}
	if c.Payment.SettleTimeout == 0 {
		c.Payment.SettleTimeout = 30 * time.Second
	}
	if c.Payment.AuthTimeout == 0 {
		c.Payment.AuthTimeout = 2 * time.Minute
	}
	if c.Settlement.Timeout == 0 {
		c.Settlement.Timeout = 15 * time.Second
	}
	if c.Settlement.RetryDelay == 0 {
		c.Settlement.RetryDelay = time.Second
	}
	if c.WebSocket.PingPeriod == 0 {
		c.WebSocket.PingPeriod = 54 * time.Second
	}
	if c.JWT.TTL == 0 {
		c.JWT.TTL = 24 * time.Hour
	}
	if c.JWT.Issuer == "" {
		c.JWT.Issuer = "marketpi"
	}
}
