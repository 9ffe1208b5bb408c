// Package config loads process configuration from a TOML file with
// environment overrides so main stays lean.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"eppclient/pkg/errors"
)

// Duration wraps time.Duration so TOML can decode "30s"-style strings.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Server selects and configures the transport to the registry.
type Server struct {
	// Mode is "https" or "socket".
	Mode               string   `toml:"mode"`
	URL                string   `toml:"url"`
	Addr               string   `toml:"addr"`
	Timeout            Duration `toml:"timeout"`
	ClientCertFile     string   `toml:"client_cert_file"`
	ClientKeyFile      string   `toml:"client_key_file"`
	InsecureSkipVerify bool     `toml:"insecure_skip_verify"`
}

// Session carries the credentials and identity settings of one session.
type Session struct {
	ClientID            string   `toml:"client_id"`
	Password            string   `toml:"password"`
	ClTRIDPrefix        string   `toml:"cltrid_prefix"`
	HandlePrefix        string   `toml:"handle_prefix"`
	DNSSEC              bool     `toml:"dnssec"`
	LogoutOnFailedLogin *bool    `toml:"logout_on_failed_login"`
	PollInterval        Duration `toml:"poll_interval"`
}

// Postgres configures the audit store; empty DSN disables it.
type Postgres struct {
	DSN string `toml:"dsn"`
}

// Redis configures the shared poll-message dedupe; empty URL disables it.
type Redis struct {
	URL          string   `toml:"url"`
	PoolSize     int      `toml:"pool_size"`
	MinIdleConns int      `toml:"min_idle_conns"`
	DialTimeout  Duration `toml:"dial_timeout"`
	ReadTimeout  Duration `toml:"read_timeout"`
	WriteTimeout Duration `toml:"write_timeout"`
}

// Kafka configures the poll-message publisher; no brokers disables it.
type Kafka struct {
	Brokers []string `toml:"brokers"`
	Topic   string   `toml:"topic"`
}

type Config struct {
	Server      Server   `toml:"server"`
	Session     Session  `toml:"session"`
	Postgres    Postgres `toml:"postgres"`
	Redis       Redis    `toml:"redis"`
	Kafka       Kafka    `toml:"kafka"`
	MetricsAddr string   `toml:"metrics_addr"`
	LogLevel    string   `toml:"log_level"`
}

// Load reads the TOML file when path is non-empty, then applies
// environment overrides on top.
func Load(path string) (Config, error) {
	cfg := defaults()
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, errors.Wrap(err, errors.CodeConfiguration, "decode config file")
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

// FromEnv builds a config from environment variables alone.
func FromEnv() Config {
	cfg := defaults()
	cfg.applyEnv()
	return cfg
}

func defaults() Config {
	return Config{
		Server: Server{
			Mode:    "https",
			Timeout: Duration{30 * time.Second},
		},
		Session: Session{
			ClTRIDPrefix: "epp",
			PollInterval: Duration{time.Minute},
		},
		MetricsAddr: ":9108",
		LogLevel:    "info",
	}
}

func (c *Config) applyEnv() {
	setString(&c.Server.Mode, "EPP_SERVER_MODE")
	setString(&c.Server.URL, "EPP_SERVER_URL")
	setString(&c.Server.Addr, "EPP_SERVER_ADDR")
	setDuration(&c.Server.Timeout, "EPP_SERVER_TIMEOUT")
	setString(&c.Server.ClientCertFile, "EPP_CLIENT_CERT")
	setString(&c.Server.ClientKeyFile, "EPP_CLIENT_KEY")
	setBool(&c.Server.InsecureSkipVerify, "EPP_INSECURE_SKIP_VERIFY")

	setString(&c.Session.ClientID, "EPP_CLIENT_ID")
	setString(&c.Session.Password, "EPP_PASSWORD")
	setString(&c.Session.ClTRIDPrefix, "EPP_CLTRID_PREFIX")
	setString(&c.Session.HandlePrefix, "EPP_HANDLE_PREFIX")
	setBool(&c.Session.DNSSEC, "EPP_DNSSEC")
	setDuration(&c.Session.PollInterval, "EPP_POLL_INTERVAL")
	if v := os.Getenv("EPP_LOGOUT_ON_FAILED_LOGIN"); v != "" {
		b := v == "true"
		c.Session.LogoutOnFailedLogin = &b
	}

	setString(&c.Postgres.DSN, "EPP_POSTGRES_DSN")
	setString(&c.Redis.URL, "EPP_REDIS_URL")
	if v := os.Getenv("EPP_KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	setString(&c.Kafka.Topic, "EPP_KAFKA_TOPIC")
	setString(&c.MetricsAddr, "EPP_METRICS_ADDR")
	setString(&c.LogLevel, "EPP_LOG_LEVEL")
}

// Validate rejects configs that cannot produce a working client.
func (c *Config) Validate() error {
	switch c.Server.Mode {
	case "https":
		if c.Server.URL == "" {
			return errors.New(errors.CodeConfiguration, "https mode requires server.url")
		}
	case "socket":
		if c.Server.Addr == "" {
			return errors.New(errors.CodeConfiguration, "socket mode requires server.addr")
		}
	default:
		return errors.Newf(errors.CodeConfiguration, "unknown server mode %q", c.Server.Mode)
	}
	if c.Session.ClientID == "" || c.Session.Password == "" {
		return errors.New(errors.CodeConfiguration, "session requires client_id and password")
	}
	if c.Session.PollInterval.Duration <= 0 {
		return errors.New(errors.CodeConfiguration, "poll_interval must be positive")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v == "true" || v == "1"
	}
}

func setDuration(dst *Duration, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		dst.Duration = d
		return
	}
	if secs, err := strconv.Atoi(v); err == nil {
		dst.Duration = time.Duration(secs) * time.Second
	}
}
