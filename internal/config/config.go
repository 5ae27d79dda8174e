// Package config assembles runtime settings from .env, configs/config.yml,
// environment variables and command-line flags, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"plant_monitor/internal/advisor"
	"plant_monitor/internal/logger"
	"plant_monitor/internal/reporter"
	"plant_monitor/internal/sensor"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "PLANTMON"

// ConfigError names the offending key.
type ConfigError struct {
	Key string
	Msg string
}

func (e *ConfigError) Error() string { return fmt.Sprintf("config %s: %s", e.Key, e.Msg) }

// Config is everything main needs to wire the application.
type Config struct {
	Real          bool
	Interval      time.Duration
	AIInterval    time.Duration
	SensorTimeout time.Duration
	Dashboard     bool

	Log      LogConfig
	AI       advisor.Config
	Reporter reporter.HTTPConfig
	Influx   reporter.InfluxConfig
	HTTP     HTTPConfig
	DB       DBConfig
	Hardware HardwareConfig
	Sim      sensor.SimOptions
}

type LogConfig struct {
	Level  string
	Output string
}

// HTTPConfig is the status API. Empty Port disables it.
type HTTPConfig struct {
	Port        string
	APIKey      string
	CORSOrigins []string
}

type DBConfig struct {
	Path      string
	Retention time.Duration // journal entries older than this are pruned at startup; 0 keeps all
}

type HardwareConfig struct {
	IIODir     string
	SerialPort string
	I2CBus     string
	I2CAddress uint16
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("monitor.real", false)
	v.SetDefault("monitor.interval", 10.0)
	v.SetDefault("monitor.ai_interval", 60.0)
	v.SetDefault("monitor.sensor_timeout", 5.0)

	v.SetDefault("ai.model", advisor.DefaultModel)
	v.SetDefault("ai.base_url", "")
	v.SetDefault("ai.max_tokens", advisor.DefaultMaxTokens)
	v.SetDefault("ai.timeout", advisor.DefaultTimeout.Seconds())
	v.SetDefault("ai.breaker.max_failures", advisor.DefaultBreakerMaxFailures)
	v.SetDefault("ai.breaker.cooldown", advisor.DefaultBreakerCooldown.Seconds())

	v.SetDefault("reporter.url", "")
	v.SetDefault("reporter.api_key", "")
	v.SetDefault("reporter.timeout", reporter.DefaultTimeout.Seconds())
	v.SetDefault("reporter.max_in_flight", reporter.DefaultMaxInFlight)

	v.SetDefault("influx.url", "")
	v.SetDefault("influx.token", "")
	v.SetDefault("influx.org", "")
	v.SetDefault("influx.bucket", "plants")

	v.SetDefault("http.port", "")
	v.SetDefault("http.api_key", "")
	v.SetDefault("http.cors_origins", []string{"*"})

	v.SetDefault("db.path", ":memory:")
	v.SetDefault("db.retention_hours", 168)

	v.SetDefault("log.level", logger.InfoLevel)
	v.SetDefault("log.output", logger.OutputStderr)

	v.SetDefault("hardware.iio_dir", sensor.DefaultIIODir)
	v.SetDefault("hardware.serial_port", sensor.DefaultSerialPort)
	v.SetDefault("hardware.i2c_bus", "")
	v.SetDefault("hardware.i2c_address", sensor.DefaultBH1750Addr)

	v.SetDefault("sim.seed", 0)
	v.SetDefault("sim.failure_rate", 0.0)

	v.SetDefault("dashboard.enabled", true)
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("plant_monitor", pflag.ContinueOnError)
	fs.Bool("real", false, "read hardware sensors instead of the simulator")
	fs.Float64("interval", 10, "seconds between sensor readings")
	fs.Float64("ai-interval", 60, "seconds between advisory requests")
	fs.String("config", "configs", "directory holding config.yml")
	fs.String("log-level", logger.InfoLevel, "debug, info, warn or error")
	fs.Bool("no-dashboard", false, "disable the terminal dashboard")
	fs.String("http-port", "", "serve the status API on this port")
	return fs
}

// Load reads the configuration; args are the command-line arguments
// without the program name.
func Load(args []string) (Config, error) {
	// a missing .env is normal
	_ = godotenv.Load()

	fs := newFlagSet()
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return Config{}, err
		}
		return Config{}, &ConfigError{Key: "flags", Msg: err.Error()}
	}

	v := viper.New()
	setDefaults(v)

	dir, _ := fs.GetString("config")
	v.AddConfigPath(dir)
	v.SetConfigName("config")
	v.SetConfigType("yml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, &ConfigError{Key: "config", Msg: err.Error()}
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// names understood by earlier releases
	_ = v.BindEnv("ai.api_key", envPrefix+"_AI_API_KEY", "ANTHROPIC_API_KEY")
	_ = v.BindEnv("reporter.url", envPrefix+"_REPORTER_URL", "AIVOCADO_API_URL")
	_ = v.BindEnv("reporter.api_key", envPrefix+"_REPORTER_API_KEY", "AIVOCADO_API_KEY")

	for key, flag := range map[string]string{
		"monitor.real":        "real",
		"monitor.interval":    "interval",
		"monitor.ai_interval": "ai-interval",
		"log.level":           "log-level",
		"http.port":           "http-port",
	} {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return Config{}, &ConfigError{Key: key, Msg: err.Error()}
		}
	}

	cfg := fromViper(v)
	if noDash, _ := fs.GetBool("no-dashboard"); noDash {
		cfg.Dashboard = false
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func seconds(v *viper.Viper, key string) time.Duration {
	return time.Duration(v.GetFloat64(key) * float64(time.Second))
}

func fromViper(v *viper.Viper) Config {
	return Config{
		Real:          v.GetBool("monitor.real"),
		Interval:      seconds(v, "monitor.interval"),
		AIInterval:    seconds(v, "monitor.ai_interval"),
		SensorTimeout: seconds(v, "monitor.sensor_timeout"),
		Dashboard:     v.GetBool("dashboard.enabled"),
		Log: LogConfig{
			Level:  strings.ToLower(v.GetString("log.level")),
			Output: v.GetString("log.output"),
		},
		AI: advisor.Config{
			APIKey:             v.GetString("ai.api_key"),
			Model:              v.GetString("ai.model"),
			BaseURL:            v.GetString("ai.base_url"),
			MaxTokens:          v.GetInt64("ai.max_tokens"),
			Timeout:            seconds(v, "ai.timeout"),
			BreakerMaxFailures: v.GetInt("ai.breaker.max_failures"),
			BreakerCooldown:    seconds(v, "ai.breaker.cooldown"),
		},
		Reporter: reporter.HTTPConfig{
			BaseURL:     v.GetString("reporter.url"),
			APIKey:      v.GetString("reporter.api_key"),
			Timeout:     seconds(v, "reporter.timeout"),
			MaxInFlight: v.GetInt("reporter.max_in_flight"),
		},
		Influx: reporter.InfluxConfig{
			URL:         v.GetString("influx.url"),
			Token:       v.GetString("influx.token"),
			Org:         v.GetString("influx.org"),
			Bucket:      v.GetString("influx.bucket"),
			Timeout:     seconds(v, "reporter.timeout"),
			MaxInFlight: v.GetInt("reporter.max_in_flight"),
		},
		HTTP: HTTPConfig{
			Port:        v.GetString("http.port"),
			APIKey:      v.GetString("http.api_key"),
			CORSOrigins: v.GetStringSlice("http.cors_origins"),
		},
		DB: DBConfig{
			Path:      v.GetString("db.path"),
			Retention: time.Duration(v.GetFloat64("db.retention_hours") * float64(time.Hour)),
		},
		Hardware: HardwareConfig{
			IIODir:     v.GetString("hardware.iio_dir"),
			SerialPort: v.GetString("hardware.serial_port"),
			I2CBus:     v.GetString("hardware.i2c_bus"),
			I2CAddress: v.GetUint16("hardware.i2c_address"),
		},
		Sim: sensor.SimOptions{
			Seed:        v.GetUint64("sim.seed"),
			FailureRate: v.GetFloat64("sim.failure_rate"),
		},
	}
}

// Validate checks the values that would otherwise fail at runtime.
func (c Config) Validate() error {
	switch {
	case c.Interval <= 0:
		return &ConfigError{Key: "monitor.interval", Msg: "must be positive"}
	case c.AIInterval <= 0:
		return &ConfigError{Key: "monitor.ai_interval", Msg: "must be positive"}
	case c.SensorTimeout <= 0:
		return &ConfigError{Key: "monitor.sensor_timeout", Msg: "must be positive"}
	case !logger.ValidLevel(c.Log.Level):
		return &ConfigError{Key: "log.level", Msg: fmt.Sprintf("unknown level %q", c.Log.Level)}
	case c.DB.Retention < 0:
		return &ConfigError{Key: "db.retention_hours", Msg: "must not be negative"}
	case c.Sim.FailureRate < 0 || c.Sim.FailureRate > 1:
		return &ConfigError{Key: "sim.failure_rate", Msg: "must be within 0..1"}
	}
	for key, raw := range map[string]string{"reporter.url": c.Reporter.BaseURL, "influx.url": c.Influx.URL} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return &ConfigError{Key: key, Msg: fmt.Sprintf("invalid URL %q", raw)}
		}
	}
	return nil
}
