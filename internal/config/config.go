// Package config loads the process-wide server configuration. The
// returned value is read-only after Load.
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	vipercast "github.com/spf13/cast"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/iliamunaev/simulated-disk-io-server/internal/codec"
)

// EnvPrefix prefixes environment overrides, e.g. LATSIM_PORT.
const EnvPrefix = "LATSIM"

// Keys.
const (
	KeyProtocol        = "protocol"
	KeyHost            = "host"
	KeyPort            = "port"
	KeyQueueTimeout    = "queue_timeout"
	KeyBacklog         = "backlog"
	KeyServerName      = "server_name"
	KeyReadTimeout     = "read_timeout"
	KeyShutdownTimeout = "shutdown_timeout"
	KeyLogLevel        = "log_level"
)

type Config struct {
	Protocol        string
	Host            string
	Port            int
	QueueTimeout    time.Duration // requests queued at least this long are rejected
	Backlog         int           // listen(2) backlog
	ServerName      string        // HTTP-lite Server header
	ReadTimeout     time.Duration // 0 disables
	ShutdownTimeout time.Duration
	LogLevel        string
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Protocol:        codec.ProtocolLine,
		Port:            7000,
		QueueTimeout:    4 * time.Second,
		Backlog:         500,
		ServerName:      codec.DefaultServerName,
		ShutdownTimeout: 10 * time.Second,
		LogLevel:        "info",
	}
}

// New returns a viper instance with defaults and environment overrides
// registered. Flags from fs are bound by their key name with '_'
// replaced by '-'.
func New(fs *pflag.FlagSet) (*viper.Viper, error) {
	d := Defaults()

	v := viper.New()
	v.SetDefault(KeyProtocol, d.Protocol)
	v.SetDefault(KeyHost, d.Host)
	v.SetDefault(KeyPort, d.Port)
	v.SetDefault(KeyQueueTimeout, d.QueueTimeout)
	v.SetDefault(KeyBacklog, d.Backlog)
	v.SetDefault(KeyServerName, d.ServerName)
	v.SetDefault(KeyReadTimeout, d.ReadTimeout)
	v.SetDefault(KeyShutdownTimeout, d.ShutdownTimeout)
	v.SetDefault(KeyLogLevel, d.LogLevel)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if fs == nil {
		return v, nil
	}
	for _, key := range []string{
		KeyProtocol, KeyHost, KeyPort, KeyQueueTimeout, KeyBacklog,
		KeyServerName, KeyReadTimeout, KeyShutdownTimeout, KeyLogLevel,
	} {
		f := fs.Lookup(strings.ReplaceAll(key, "_", "-"))
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return nil, fmt.Errorf("cannot bind flag %s: %w", f.Name, err)
		}
	}
	return v, nil
}

// Load reads the optional config file at path into v and decodes the
// result.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("cannot read config: %w", err)
		}
	}

	cfg := new(Config)

	var err error

	cfg.Protocol, err = vipercast.ToStringE(v.Get(KeyProtocol))
	if err != nil {
		return nil, fmt.Errorf("cannot parse protocol: %w", err)
	}

	cfg.Host, err = vipercast.ToStringE(v.Get(KeyHost))
	if err != nil {
		return nil, fmt.Errorf("cannot parse host: %w", err)
	}

	cfg.Port, err = vipercast.ToIntE(v.Get(KeyPort))
	if err != nil {
		return nil, fmt.Errorf("cannot parse port: %w", err)
	}

	cfg.QueueTimeout, err = toDuration(v.Get(KeyQueueTimeout))
	if err != nil {
		return nil, fmt.Errorf("cannot parse queue_timeout: %w", err)
	}

	cfg.Backlog, err = vipercast.ToIntE(v.Get(KeyBacklog))
	if err != nil {
		return nil, fmt.Errorf("cannot parse backlog: %w", err)
	}

	cfg.ServerName, err = vipercast.ToStringE(v.Get(KeyServerName))
	if err != nil {
		return nil, fmt.Errorf("cannot parse server_name: %w", err)
	}

	cfg.ReadTimeout, err = toDuration(v.Get(KeyReadTimeout))
	if err != nil {
		return nil, fmt.Errorf("cannot parse read_timeout: %w", err)
	}

	cfg.ShutdownTimeout, err = toDuration(v.Get(KeyShutdownTimeout))
	if err != nil {
		return nil, fmt.Errorf("cannot parse shutdown_timeout: %w", err)
	}

	cfg.LogLevel, err = vipercast.ToStringE(v.Get(KeyLogLevel))
	if err != nil {
		return nil, fmt.Errorf("cannot parse log_level: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if c.Protocol != codec.ProtocolLine && c.Protocol != codec.ProtocolHTTP {
		errs = append(errs, fmt.Errorf("protocol must be %q or %q, got %q", codec.ProtocolLine, codec.ProtocolHTTP, c.Protocol))
	}
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port out of range: %d", c.Port))
	}
	if c.QueueTimeout <= 0 {
		errs = append(errs, fmt.Errorf("queue_timeout must be positive, got %v", c.QueueTimeout))
	}
	if c.Backlog <= 0 {
		errs = append(errs, fmt.Errorf("backlog must be positive, got %d", c.Backlog))
	}
	if c.ReadTimeout < 0 {
		errs = append(errs, fmt.Errorf("read_timeout must not be negative, got %v", c.ReadTimeout))
	}
	if c.ShutdownTimeout < 0 {
		errs = append(errs, fmt.Errorf("shutdown_timeout must not be negative, got %v", c.ShutdownTimeout))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// toDuration accepts Go duration strings and durations. Bare numbers
// are seconds, so queue_timeout: 4 means four seconds.
func toDuration(raw interface{}) (time.Duration, error) {
	switch val := raw.(type) {
	case int, int32, int64, uint, uint32, uint64, float32, float64:
		secs, err := vipercast.ToFloat64E(val)
		if err != nil {
			return 0, err
		}
		return time.Duration(secs * float64(time.Second)), nil
	case string:
		if secs, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return time.Duration(secs * float64(time.Second)), nil
		}
	}
	return vipercast.ToDurationE(raw)
}
