package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"PortfolioDash/pkg/logger"
	"PortfolioDash/pkg/util"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Server      struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8501" validate:"gte=1,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"200s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		SlowThreshold   time.Duration `yaml:"slow_threshold" default:"5s"`
		CORSOrigins     []string      `yaml:"cors_origins"`
		TrustedProxies  []string      `yaml:"trusted_proxies" validate:"dive,cidr"`
	} `yaml:"server"`
	Metrics struct {
		Path string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Logger  logger.Config `yaml:"logger"`
	Backend struct {
		BaseURL  string `yaml:"base_url" default:"https://sic-hackathon-backend-production.up.railway.app" validate:"required,url"`
		Timeouts struct {
			Lookup  time.Duration `yaml:"lookup" default:"10s"`
			Chat    time.Duration `yaml:"chat" default:"30s"`
			Analyze time.Duration `yaml:"analyze" default:"180s"`
		} `yaml:"timeouts"`
	} `yaml:"backend"`
	Auth struct {
		Provider     string `yaml:"provider" default:"static" validate:"oneof=static bcrypt"`
		Username     string `yaml:"username" default:"admin" validate:"required"`
		Password     string `yaml:"password" default:"admin"`
		PasswordHash string `yaml:"password_hash" validate:"required_if=Provider bcrypt"`
		LoginRate    struct {
			Capacity     float64 `yaml:"capacity" default:"5"`
			RefillPerSec float64 `yaml:"refill_per_sec" default:"0.2"`
		} `yaml:"login_rate"`
	} `yaml:"auth"`
	Session struct {
		Store         string        `yaml:"store" default:"memory" validate:"oneof=memory redis layered"`
		CookieName    string        `yaml:"cookie_name" default:"pd_session"`
		Secret        string        `yaml:"secret"`
		TTL           time.Duration `yaml:"ttl" default:"12h"`
		MemoryMaxSize int           `yaml:"memory_max_size" default:"10000"`
		MemoryCleanup time.Duration `yaml:"memory_cleanup" default:"1m"`
		SecureCookie  bool          `yaml:"secure_cookie"`
	} `yaml:"session"`
	Redis struct {
		Host     string        `yaml:"host" default:"localhost"`
		Port     int           `yaml:"port" default:"6379"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		PoolSize int           `yaml:"pool_size" default:"10"`
		Prefix   string        `yaml:"prefix" default:"portfoliodash"`
		L1TTL    time.Duration `yaml:"l1_ttl" default:"30s"`
	} `yaml:"redis"`
	Activity struct {
		Backend   string `yaml:"backend" default:"none" validate:"oneof=none kafka clickhouse"`
		Topic     string `yaml:"topic" default:"dashboard.activity"`
		LogsTopic string `yaml:"logs_topic"`
	} `yaml:"activity"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		RequiredAcks int      `yaml:"required_acks" default:"1"`
		Compression  string   `yaml:"compression" default:"snappy"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"500ms"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"5s"`
			Async        bool          `yaml:"async"`
			AutoCreate   bool          `yaml:"auto_create_topic"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host         string        `yaml:"host"`
		Port         int           `yaml:"port" default:"9000"`
		Database     string        `yaml:"database" default:"portfoliodash"`
		User         string        `yaml:"user" default:"default"`
		Password     string        `yaml:"password"`
		UseHTTP      bool          `yaml:"use_http"`
		AsyncInsert  bool          `yaml:"async_insert"`
		DialTimeout  time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	} `yaml:"clickhouse"`
}

var validate = validator.New()

// Load reads and parses a YAML configuration file. A missing file is not an
// error: the dashboard runs on defaults alone.
func Load(path string) (*Config, error) {
	c, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := c.finish(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := read(path)
	if err != nil {
		return nil, err
	}
	c.applyEnv()
	if err := c.finish(); err != nil {
		return nil, err
	}
	return c, nil
}

func read(path string) (*Config, error) {
	var c Config
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &c, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("APP_ENV"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("BACKEND_URL"); v != "" {
		c.Backend.BaseURL = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		c.Server.Port = util.ParseIntDefault(v, c.Server.Port)
	}
	if v := os.Getenv("AUTH_USERNAME"); v != "" {
		c.Auth.Username = v
	}
	if v := os.Getenv("AUTH_PASSWORD"); v != "" {
		c.Auth.Password = v
	}
	if v := os.Getenv("SESSION_STORE"); v != "" {
		c.Session.Store = v
	}
	if v := os.Getenv("SESSION_SECRET"); v != "" {
		c.Session.Secret = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
	}
	if v := os.Getenv("ACTIVITY_BACKEND"); v != "" {
		c.Activity.Backend = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = util.SplitNonEmpty(v, ",")
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
}

func (c *Config) finish() error {
	if err := defaults.Set(c); err != nil {
		return fmt.Errorf("config defaults: %w", err)
	}
	if c.Session.Secret == "" && c.Environment == "development" {
		c.Session.Secret = randomSecret()
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Session.Secret == "" {
		return fmt.Errorf("session.secret is required outside development")
	}
	if c.Backend.Timeouts.Analyze >= c.Server.WriteTimeout {
		return fmt.Errorf("server.write_timeout (%s) must exceed backend.timeouts.analyze (%s)",
			c.Server.WriteTimeout, c.Backend.Timeouts.Analyze)
	}
	switch c.Activity.Backend {
	case "kafka":
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers cannot be empty when activity.backend is kafka")
		}
	case "clickhouse":
		if c.ClickHouse.Host == "" {
			return fmt.Errorf("clickhouse.host is required when activity.backend is clickhouse")
		}
	}
	return nil
}

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("crypto/rand: %v", err))
	}
	return hex.EncodeToString(b)
}
