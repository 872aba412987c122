package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"signal_bot/internal/indicator"
	"signal_bot/internal/modelstore/redisstore"
	"signal_bot/internal/retrain"
	"signal_bot/internal/rules"
	"signal_bot/pkg/tracing"
)

const (
	configFilePathENV = "CONFIG_FILE"
	configDir         = "configs"
)

// Типы хранилища модели.
const (
	StoreFile     = "file"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

type Config struct {
	LogLevel string `yaml:"log_level" default:"info" validate:"oneof=debug info warn error"`

	Service struct {
		Host      string `yaml:"host" default:"0.0.0.0"`
		AdminPort int    `yaml:"admin_port" default:"8081" validate:"gt=0,lt=65536"`
	} `yaml:"service"`

	Telegram struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Token   string `yaml:"token"`
		// только из этого чата принимаются команды, туда же уходят сигналы
		ChatID int64 `yaml:"chat_id"`
	} `yaml:"telegram"`

	DB string `yaml:"db_dsn"`

	Instruments []string      `yaml:"instruments" default:"[\"BTC-USDT\",\"ETH-USDT\"]" validate:"min=1,dive,required"`
	Timeframe   string        `yaml:"timeframe" default:"1m" validate:"required"`
	Tick        time.Duration `yaml:"tick_interval" default:"1m" validate:"gt=0"`
	Backoff     time.Duration `yaml:"backoff" default:"10s" validate:"gte=0"`
	BufferCap   int           `yaml:"buffer_capacity" default:"200" validate:"gte=50"`
	Stake       float64       `yaml:"stake" default:"1" validate:"gt=0"`

	Market struct {
		RESTBaseURL string        `yaml:"rest_base_url" default:"https://www.okx.com" validate:"url"`
		WSURL       string        `yaml:"ws_url" default:"wss://ws.okx.com:8443/ws/v5/business"`
		WSEnabled   bool          `yaml:"ws_enabled" default:"true"`
		Timeout     time.Duration `yaml:"timeout" default:"10s" validate:"gt=0"`
	} `yaml:"market"`

	Indicators indicator.Params `yaml:"indicators"`
	Rules      rules.Config     `yaml:"rules"`

	Filter struct {
		AIEnabled        bool    `yaml:"ai_enabled" default:"true"`
		ConfidenceNormal float64 `yaml:"confidence_normal" default:"0.58" validate:"gt=0,lt=1"`
		ConfidenceRisky  float64 `yaml:"confidence_risky" default:"0.65" validate:"gt=0,lt=1"`
		NeutralLow       float64 `yaml:"neutral_rsi_low" default:"45"`
		NeutralHigh      float64 `yaml:"neutral_rsi_high" default:"60"`
	} `yaml:"filter"`

	Retrain    retrain.Config `yaml:"retrain"`
	CheckEvery time.Duration  `yaml:"retrain_check_every" default:"1m" validate:"gt=0"`

	ModelStore struct {
		Kind  string            `yaml:"kind" default:"file" validate:"oneof=file postgres redis"`
		Path  string            `yaml:"path" default:"data/model.json"`
		Redis redisstore.Config `yaml:"redis"`
	} `yaml:"model_store"`

	Kafka struct {
		Enabled bool     `yaml:"enabled"`
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic" default:"signals"`
	} `yaml:"kafka"`

	Tracing tracing.Config `yaml:"tracing"`
}

// NewConfig читает configs/$CONFIG_FILE (по умолчанию values_local.yaml) и env.
func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	configFileName := os.Getenv(configFilePathENV)
	if configFileName == "" {
		configFileName = "values_local.yaml"
	}
	return Load(filepath.Join(configDir, configFileName))
}

// Load: дефолты, затем yaml, затем env, затем валидация.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", path, err)
	}
	defer func() {
		_ = file.Close()
	}()

	if err := yaml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv: секреты и частые переопределения из окружения.
func applyEnv(cfg *Config) {
	v := viper.New()
	v.AutomaticEnv()

	if s := v.GetString("TELEGRAM_TOKEN"); s != "" {
		cfg.Telegram.Token = s
	}
	if id := v.GetInt64("TELEGRAM_CHAT_ID"); id != 0 {
		cfg.Telegram.ChatID = id
	}
	if s := v.GetString("DATABASE_DSN"); s != "" {
		cfg.DB = s
	}
	if s := v.GetString("REDIS_ADDR"); s != "" {
		cfg.ModelStore.Redis.Addr = s
	}
	if s := v.GetString("REDIS_PASSWORD"); s != "" {
		cfg.ModelStore.Redis.Password = s
	}
	if s := v.GetString("MODEL_STORE"); s != "" {
		cfg.ModelStore.Kind = s
	}
	if s := v.GetString("KAFKA_BROKERS"); s != "" {
		cfg.Kafka.Brokers = splitList(s)
	}
	if s := v.GetString("INSTRUMENTS"); s != "" {
		cfg.Instruments = splitList(s)
	}
	if s := v.GetString("LOG_LEVEL"); s != "" {
		cfg.LogLevel = s
	}
}

var validate = validator.New()

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := c.Indicators.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := c.Rules.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Filter.NeutralLow >= c.Filter.NeutralHigh {
		return fmt.Errorf("config: neutral rsi band [%v,%v] is empty", c.Filter.NeutralLow, c.Filter.NeutralHigh)
	}

	// креды под выбранные адаптеры
	if c.Telegram.Enabled && (c.Telegram.Token == "" || c.Telegram.ChatID == 0) {
		return fmt.Errorf("config: telegram enabled but TELEGRAM_TOKEN/TELEGRAM_CHAT_ID not set")
	}
	switch c.ModelStore.Kind {
	case StorePostgres:
		if c.DB == "" {
			return fmt.Errorf("config: model_store=postgres requires DATABASE_DSN")
		}
	case StoreRedis:
		if c.ModelStore.Redis.Addr == "" {
			return fmt.Errorf("config: model_store=redis requires REDIS_ADDR")
		}
	case StoreFile:
		if c.ModelStore.Path == "" {
			return fmt.Errorf("config: model_store=file requires path")
		}
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("config: kafka enabled but no brokers")
	}
	return nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
