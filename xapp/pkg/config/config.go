// Package config loads the UAV policy xApp configuration
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"

	apperrors "github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/pkg/errors"
	"github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/xapp/pkg/policy"
	"github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/xapp/pkg/store"
)

// EnvPrefix prefixes every environment override, e.g. UAV_XAPP_SERVER_PORT
const EnvPrefix = "UAV_XAPP"

// Config holds the application configuration
type Config struct {
	Server struct {
		Port         int           `mapstructure:"port"`
		ReadTimeout  time.Duration `mapstructure:"read_timeout"`
		WriteTimeout time.Duration `mapstructure:"write_timeout"`
	} `mapstructure:"server"`

	Logging struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"logging"`

	Metrics struct {
		Enabled bool `mapstructure:"enabled"`
		Port    int  `mapstructure:"port"`
	} `mapstructure:"metrics"`

	Policy policy.Options `mapstructure:"policy"`

	History struct {
		MaxSize int `mapstructure:"max_size"`
	} `mapstructure:"history"`

	RateLimit struct {
		RPS   float64 `mapstructure:"rps"`
		Burst int     `mapstructure:"burst"`
	} `mapstructure:"rate_limit"`

	FlightPlans struct {
		Backend    string `mapstructure:"backend"`
		Dir        string `mapstructure:"dir"`
		Namespace  string `mapstructure:"namespace"`
		Kubeconfig string `mapstructure:"kubeconfig"`
	} `mapstructure:"flightplans"`

	RC struct {
		Enabled   bool          `mapstructure:"enabled"`
		Endpoint  string        `mapstructure:"endpoint"`
		Timeout   time.Duration `mapstructure:"timeout"`
		AuthToken string        `mapstructure:"auth_token"`
		RPS       float64       `mapstructure:"rps"`
		Burst     int           `mapstructure:"burst"`
	} `mapstructure:"rc"`
}

func setDefaults(v *viper.Viper) {
	defaults := policy.DefaultOptions()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("policy.overloaded_threshold", defaults.OverloadedThreshold)
	v.SetDefault("policy.hysteresis_db", defaults.HysteresisDB)
	v.SetDefault("policy.min_prb_quota", defaults.MinPRBQuota)
	v.SetDefault("policy.max_prb_quota", defaults.MaxPRBQuota)
	v.SetDefault("policy.prb_bandwidth_hz", defaults.PRBBandwidthHz)
	v.SetDefault("history.max_size", 1000)
	v.SetDefault("rate_limit.rps", 100)
	v.SetDefault("rate_limit.burst", 200)
	v.SetDefault("flightplans.backend", string(store.BackendMemory))
	v.SetDefault("flightplans.dir", "/var/lib/uav-xapp/flightplans")
	v.SetDefault("flightplans.namespace", "default")
	v.SetDefault("flightplans.kubeconfig", "")
	v.SetDefault("rc.enabled", false)
	v.SetDefault("rc.endpoint", "")
	v.SetDefault("rc.timeout", "5s")
	v.SetDefault("rc.auth_token", "")
	v.SetDefault("rc.rps", 50)
	v.SetDefault("rc.burst", 100)
}

// Load reads defaults, an optional config file and UAV_XAPP_* environment
// overrides. A missing config file is not an error; the returned bool
// reports whether one was read.
func Load(configFile string) (*Config, bool, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	fileRead := false
	if configFile != "" {
		v.SetConfigFile(configFile)
		err := v.ReadInConfig()
		var notFound viper.ConfigFileNotFoundError
		switch {
		case err == nil:
			fileRead = true
		case errors.As(err, &notFound), errors.Is(err, fs.ErrNotExist):
		default:
			return nil, false, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, false, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, false, err
	}
	return config, fileRead, nil
}

// Validate checks the loaded configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return apperrors.NewInvalidInputError("server.port", "must be a valid TCP port").WithValue(c.Server.Port)
	}
	if c.Metrics.Enabled && (c.Metrics.Port <= 0 || c.Metrics.Port > 65535) {
		return apperrors.NewInvalidInputError("metrics.port", "must be a valid TCP port").WithValue(c.Metrics.Port)
	}
	if err := c.Policy.Validate(); err != nil {
		return apperrors.Wrap(err, "policy")
	}
	if c.History.MaxSize < 1 {
		return apperrors.NewInvalidInputError("history.max_size", "must be at least 1").WithValue(c.History.MaxSize)
	}

	switch store.Backend(c.FlightPlans.Backend) {
	case store.BackendMemory, store.BackendConfigMap:
	case store.BackendFile:
		if c.FlightPlans.Dir == "" {
			return apperrors.NewInvalidInputError("flightplans.dir", "required for the file backend")
		}
	default:
		return apperrors.NewInvalidInputError("flightplans.backend",
			"must be one of memory, file, configmap").WithValue(c.FlightPlans.Backend)
	}

	if c.RC.Enabled && c.RC.Endpoint == "" {
		return apperrors.NewInvalidInputError("rc.endpoint", "required when rc.enabled is set")
	}
	return nil
}

// StoreOptions maps the flight-plan section to store options
func (c *Config) StoreOptions() store.Options {
	return store.Options{
		Backend:    store.Backend(c.FlightPlans.Backend),
		Dir:        c.FlightPlans.Dir,
		Namespace:  c.FlightPlans.Namespace,
		Kubeconfig: c.FlightPlans.Kubeconfig,
	}
}
