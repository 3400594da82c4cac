package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"entsoe-agent/internal/entsoe"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every key when reading from the environment,
// e.g. ENTSOE_AGENT_SERVER_PORT.
const EnvPrefix = "ENTSOE_AGENT"

// Config is the runtime configuration, read from an optional YAML file and
// the environment.
type Config struct {
	Entsoe  EntsoeConfig  `mapstructure:"entsoe"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	CORS    CORSConfig    `mapstructure:"cors"`
	Watch   WatchConfig   `mapstructure:"watch"`
}

type EntsoeConfig struct {
	// Token is never written to logs. It may come from the file, from
	// ENTSOE_AGENT_ENTSOE_TOKEN, or from one of entsoe.TokenEnvVars.
	Token      string        `mapstructure:"token"`
	BaseURL    string        `mapstructure:"base_url" validate:"required,url"`
	Timeout    time.Duration `mapstructure:"timeout" validate:"gt=0"`
	Timezone   string        `mapstructure:"timezone" validate:"required"`
	DelaysFile string        `mapstructure:"delays_file"`
}

type ServerConfig struct {
	Port string `mapstructure:"port" validate:"required,numeric"`
	Mode string `mapstructure:"mode" validate:"oneof=debug release test"`
}

type LoggingConfig struct {
	Level    string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Encoding string `mapstructure:"encoding" validate:"oneof=json console"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins" validate:"min=1"`
}

// WatchConfig drives the scheduled collection in `cli watch`.
type WatchConfig struct {
	Schedule  string   `mapstructure:"schedule" validate:"required"`
	Countries []string `mapstructure:"countries" validate:"min=1,dive,len=2"`
	HoursBack int      `mapstructure:"hours_back" validate:"gt=0"`
	OutputDir string   `mapstructure:"output_dir"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("entsoe.token", "")
	v.SetDefault("entsoe.base_url", entsoe.DefaultBaseURL)
	v.SetDefault("entsoe.timeout", entsoe.DefaultTimeout)
	v.SetDefault("entsoe.timezone", entsoe.DefaultTimezone)
	v.SetDefault("entsoe.delays_file", "")

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.encoding", "json")

	v.SetDefault("cors.allowed_origins", []string{"*"})

	v.SetDefault("watch.schedule", "0 0 * * * *")
	v.SetDefault("watch.countries", []string{"DE", "FR", "IT", "ES", "NL"})
	v.SetDefault("watch.hours_back", 24)
	v.SetDefault("watch.output_dir", "")
}

// Load reads and validates the configuration. path may be empty, in which
// case only defaults and the environment are used.
func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked reads the configuration without validating it.
func LoadUnchecked(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// ENTSOE_AGENT_ENTSOE_TOKEN first, then entsoe.TokenEnvVars in order.
	if err := v.BindEnv(append([]string{"entsoe.token"}, entsoe.TokenEnvVars...)...); err != nil {
		return nil, err
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	for i, cc := range c.Watch.Countries {
		c.Watch.Countries[i] = entsoe.NormalizeCountry(cc)
	}
	return &c, nil
}

var validate = validator.New()

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config invalid: %w", err)
	}
	if _, err := time.LoadLocation(c.Entsoe.Timezone); err != nil {
		return fmt.Errorf("config invalid: entsoe.timezone: %w", err)
	}
	for _, cc := range c.Watch.Countries {
		if _, err := entsoe.LookupArea(cc); err != nil {
			return fmt.Errorf("config invalid: watch.countries: %w", err)
		}
	}
	return nil
}

// Location returns the configured civil timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Entsoe.Timezone)
}

// DelayTable returns the delay table from entsoe.delays_file, or the
// built-in table when none is configured.
func (c *Config) DelayTable() (*entsoe.DelayTable, error) {
	if c.Entsoe.DelaysFile == "" {
		return entsoe.DefaultDelayTable(), nil
	}
	return entsoe.LoadDelayTable(c.Entsoe.DelaysFile)
}

// Calculator builds a window calculator from the timezone and delay table.
func (c *Config) Calculator() (*entsoe.Calculator, error) {
	loc, err := c.Location()
	if err != nil {
		return nil, err
	}
	delays, err := c.DelayTable()
	if err != nil {
		return nil, err
	}
	return entsoe.NewCalculator(entsoe.WithLocation(loc), entsoe.WithDelays(delays)), nil
}
