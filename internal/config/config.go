package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

const (
	defaultServerPort = "3000"
	defaultMPDHost    = "localhost"
	defaultMPDPort    = 6600
	defaultKeepalive  = 30 * time.Second
)

// Config holds the application configuration.
type Config struct {
	ServerPort     string        `yaml:"server_port"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	LogLevel       string        `yaml:"log_level"`
	LogJSON        bool          `yaml:"log_json"`
	Keepalive      time.Duration `yaml:"keepalive"`
	MPD            struct {
		Host         string        `yaml:"host"`
		Port         int           `yaml:"port"`
		DoubleSetVol bool          `yaml:"double_setvol"`
		DialTimeout  time.Duration `yaml:"dial_timeout"`
	} `yaml:"mpd"`
}

// MPDAddr returns the daemon's host:port.
func (c *Config) MPDAddr() string {
	return net.JoinHostPort(c.MPD.Host, strconv.Itoa(c.MPD.Port))
}

// Level returns the configured logrus level, defaulting to info.
func (c *Config) Level() log.Level {
	lvl, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

func defaults() *Config {
	cfg := &Config{
		ServerPort: defaultServerPort,
		LogLevel:   "info",
		Keepalive:  defaultKeepalive,
	}
	cfg.MPD.Host = defaultMPDHost
	cfg.MPD.Port = defaultMPDPort
	cfg.MPD.DoubleSetVol = true
	cfg.MPD.DialTimeout = 10 * time.Second
	return cfg
}

// Load builds the configuration from defaults, an optional YAML file, the
// environment (including a .env file) and finally command-line args.
func Load(args []string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file found, using environment variables")
	}

	fs := pflag.NewFlagSet("mpd-ws", pflag.ContinueOnError)
	configPath := fs.String("config", os.Getenv("CONFIG_FILE"), "path to a YAML config file")
	port := fs.String("port", "", "websocket listen port")
	mpdHost := fs.String("mpd-host", "", "mpd host")
	mpdPort := fs.Int("mpd-port", 0, "mpd port")
	keepalive := fs.Duration("keepalive", 0, "interval between client liveness probes")
	doubleSetVol := fs.Bool("double-setvol", true, "send setvol twice per volume change")
	logLevel := fs.String("log-level", "", "log level (debug, info, warn, error)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := defaults()
	if *configPath != "" {
		if err := loadFile(cfg, *configPath); err != nil {
			return nil, err
		}
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if fs.Changed("port") {
		cfg.ServerPort = *port
	}
	if fs.Changed("mpd-host") {
		cfg.MPD.Host = *mpdHost
	}
	if fs.Changed("mpd-port") {
		cfg.MPD.Port = *mpdPort
	}
	if fs.Changed("keepalive") {
		cfg.Keepalive = *keepalive
	}
	if fs.Changed("double-setvol") {
		cfg.MPD.DoubleSetVol = *doubleSetVol
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = *logLevel
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("SERVER_PORT"); v != "" {
		cfg.ServerPort = v
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv("LOG_JSON"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("LOG_JSON: %w", err)
		}
		cfg.LogJSON = b
	}
	if v := os.Getenv("MPD_HOST"); v != "" {
		cfg.MPD.Host = v
	}
	if v := os.Getenv("MPD_PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MPD_PORT: %w", err)
		}
		cfg.MPD.Port = n
	}
	if v := os.Getenv("MPD_DOUBLE_SETVOL"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("MPD_DOUBLE_SETVOL: %w", err)
		}
		cfg.MPD.DoubleSetVol = b
	}
	if v := os.Getenv("KEEPALIVE_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("KEEPALIVE_INTERVAL: %w", err)
		}
		cfg.Keepalive = d
	}
	return nil
}

func (c *Config) validate() error {
	if c.MPD.Port < 1 || c.MPD.Port > 65535 {
		return fmt.Errorf("mpd port %d out of range", c.MPD.Port)
	}
	if c.Keepalive <= 0 {
		return errors.New("keepalive interval must be positive")
	}
	if c.ServerPort == "" {
		return errors.New("server port is not set")
	}
	return nil
}
