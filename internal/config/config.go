package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// AppConfig holds application-specific configuration.
type AppConfig struct {
	HostFileLocation     string `mapstructure:"host_file_location"`
	EnvVarName           string `mapstructure:"env_var_name"`
	VhostIPAddr          string `mapstructure:"vhost_ip_addr"`
	DockerSocket         string `mapstructure:"docker_socket"`
	ConnectRetryInterval int    `mapstructure:"connect_retry_interval"`
	InspectConcurrency   int    `mapstructure:"inspect_concurrency"`
	AtomicWrite          bool   `mapstructure:"atomic_write"`
	WatchHostFile        bool   `mapstructure:"watch_host_file"`
	Hostname             string `mapstructure:"hostname"`
}

// LoggingConfig holds the logging-related configuration.
type LoggingConfig struct {
	Level string `mapstructure:"log_level"`
}

// EtcdConfig holds configuration of the optional etcd mirror.
type EtcdConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	Host              string  `mapstructure:"etcd_host"`
	Port              int     `mapstructure:"etcd_port"`
	PathPrefix        string  `mapstructure:"etcd_path_prefix"`
	LockTTL           float64 `mapstructure:"etcd_lock_ttl"`
	LockTimeout       float64 `mapstructure:"etcd_lock_timeout"`
	LockRetryInterval float64 `mapstructure:"etcd_lock_retry_interval"`
	PublishTimeout    float64 `mapstructure:"etcd_publish_timeout"`
}

// Config is the top-level configuration struct.
type Config struct {
	App     AppConfig     `mapstructure:"app"`
	Logging LoggingConfig `mapstructure:"log"`
	Etcd    EtcdConfig    `mapstructure:"etcd"`
}

// legacyEnv maps config keys to the bare environment variable names the
// daemon has always accepted.
var legacyEnv = map[string]string{
	"app.host_file_location": "HOST_FILE_LOCATION",
	"app.env_var_name":       "ENV_VAR_NAME",
	"app.vhost_ip_addr":      "VHOST_IP_ADDR",
	"log.log_level":          "LOG_LEVEL",
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown-host"
	}

	v.SetDefault("app.host_file_location", "/etc/hosts")
	v.SetDefault("app.env_var_name", "VIRTUAL_HOST,ETC_HOST")
	v.SetDefault("app.vhost_ip_addr", "127.0.0.1")
	v.SetDefault("app.docker_socket", "/var/run/docker.sock")
	v.SetDefault("app.connect_retry_interval", 60)
	v.SetDefault("app.inspect_concurrency", 8)
	v.SetDefault("app.atomic_write", false)
	v.SetDefault("app.watch_host_file", true)
	v.SetDefault("app.hostname", hostname)
	v.SetDefault("log.log_level", "INFO")
	v.SetDefault("etcd.enabled", false)
	v.SetDefault("etcd.etcd_host", "localhost")
	v.SetDefault("etcd.etcd_port", 2379)
	v.SetDefault("etcd.etcd_path_prefix", "/skydns")
	v.SetDefault("etcd.etcd_lock_ttl", 5.0)
	v.SetDefault("etcd.etcd_lock_timeout", 2.0)
	v.SetDefault("etcd.etcd_lock_retry_interval", 0.1)
	v.SetDefault("etcd.etcd_publish_timeout", 5.0)
}

// InitConfig performs the initial configuration: setting defaults, specifying the config file, and reading it.
func InitConfig(v *viper.Viper, configFile string) error {
	SetDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config") // Looks for config.yaml
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// If the file is not found, just continue with defaults and env vars.
	}

	// Enable automatic environment variable binding.
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for key, env := range legacyEnv {
		envKey := strings.ToUpper(strings.NewReplacer(".", "_").Replace(key))
		if err := v.BindEnv(key, envKey, env); err != nil {
			return fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	return nil
}

// Load unmarshals the configuration into the Config struct.
func Load(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	return &config, nil
}

// Validate reports the first configuration problem that would stop the daemon
// from doing useful work.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.App.HostFileLocation) == "" {
		return fmt.Errorf("host_file_location must not be empty")
	}
	if net.ParseIP(c.App.VhostIPAddr) == nil {
		return fmt.Errorf("vhost_ip_addr %q is not a valid IP address", c.App.VhostIPAddr)
	}
	if len(EnvVarNames(c.App.EnvVarName)) == 0 {
		return fmt.Errorf("env_var_name must name at least one environment variable")
	}
	if c.App.ConnectRetryInterval <= 0 {
		return fmt.Errorf("connect_retry_interval must be positive, got %d", c.App.ConnectRetryInterval)
	}
	if c.App.InspectConcurrency <= 0 {
		return fmt.Errorf("inspect_concurrency must be positive, got %d", c.App.InspectConcurrency)
	}
	if c.Etcd.Enabled && c.Etcd.PathPrefix == "" {
		return fmt.Errorf("etcd_path_prefix must not be empty when etcd is enabled")
	}
	if c.Etcd.Enabled && c.Etcd.PublishTimeout <= 0 {
		return fmt.Errorf("etcd_publish_timeout must be positive, got %v", c.Etcd.PublishTimeout)
	}
	return nil
}

// EnvVarNames splits the comma-separated list of recognized variable names.
func EnvVarNames(csv string) []string {
	var names []string
	for _, n := range strings.Split(csv, ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return names
}
