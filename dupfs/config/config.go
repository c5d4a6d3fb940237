package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	internal "github.com/ZanzyTHEbar/dupfs/dupfs"
	"github.com/ZanzyTHEbar/dupfs/dupfs/filesystem/options"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file, environment variables or bound flags.
type Config struct {
	Scan ScanConfig `mapstructure:"scan"`
	Log  LogConfig  `mapstructure:"log"`
}

// ScanConfig stores the duplicate scan settings.
type ScanConfig struct {
	Path        string   `mapstructure:"path"`
	Threads     int      `mapstructure:"threads"`
	Ignore      []string `mapstructure:"ignore"`
	Full        bool     `mapstructure:"full"`
	PrefixLimit int64    `mapstructure:"prefixLimit"`
	BufferSize  int      `mapstructure:"bufferSize"`
	Algorithm   string   `mapstructure:"algorithm"`
	ErrorPolicy string   `mapstructure:"errorPolicy"`
	IgnoreFile  string   `mapstructure:"ignoreFile"`
}

// LogConfig stores logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

var AppConfig Config

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("scan.path", ".")
	v.SetDefault("scan.threads", internal.DefaultThreads)
	v.SetDefault("scan.ignore", []string{})
	v.SetDefault("scan.full", false)
	v.SetDefault("scan.prefixLimit", internal.DefaultPrefixLimit)
	v.SetDefault("scan.bufferSize", internal.DefaultBufferSize)
	v.SetDefault("scan.algorithm", internal.DefaultAlgorithm)
	v.SetDefault("scan.errorPolicy", internal.DefaultErrorPolicy)
	v.SetDefault("scan.ignoreFile", internal.DefaultIgnoreFile)
	v.SetDefault("log.level", internal.DefaultLogLevel)
	v.SetDefault("log.pretty", true)
}

// LoadConfig reads configuration from file or environment variables using the global viper instance.
func LoadConfig(configPath string) (*Config, error) {
	return Load(viper.GetViper(), configPath)
}

// Load reads configuration into v. An explicit configPath must exist; when it is
// empty the usual locations are searched and a missing file is not an error.
func Load(v *viper.Viper, configPath string) (*Config, error) {
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("..")
		v.AddConfigPath(filepath.Join("etc", internal.DefaultAppName))
		v.AddConfigPath(internal.DefaultConfigPath)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	SetDefaults(v)

	v.SetEnvPrefix(strings.ToUpper(internal.DefaultAppName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // scan.prefixLimit -> DUPFS_SCAN_PREFIXLIMIT
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	// env values arrive as a single string
	cfg.Scan.Ignore = SplitExtensions(cfg.Scan.Ignore...)

	AppConfig = cfg
	return &cfg, nil
}

// ScanOptions converts the scan section into engine options.
func (c *Config) ScanOptions() options.ScanOptions {
	return options.ScanOptions{
		Path:             c.Scan.Path,
		MaxConcurrency:   c.Scan.Threads,
		IgnoreExtensions: c.Scan.Ignore,
		FullVerification: c.Scan.Full,
		PrefixLimit:      c.Scan.PrefixLimit,
		BufferSize:       c.Scan.BufferSize,
		Algorithm:        c.Scan.Algorithm,
		ErrorPolicy:      options.ErrorPolicy(strings.ToLower(c.Scan.ErrorPolicy)),
		IgnoreFile:       c.Scan.IgnoreFile,
	}
}

// SplitExtensions flattens extension lists written as ".exe;.class" or ".exe,.class".
func SplitExtensions(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		for _, part := range strings.FieldsFunc(value, func(r rune) bool {
			return r == ';' || r == ','
		}) {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
