// Package config loads acctview settings from a `.acctview` file and
// ACCTVIEW_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

const envPrefix = "ACCTVIEW"

// Config is the resolved application configuration.
type Config interface {
	BasePath() string
	Locale() string
	Block() Block
	LogLevel() string
	LogFile() string
	MetricsAddr() string
}

// Block configures the in-process block service.
type Block struct {
	Latency time.Duration
	// Rate is the sustained requests per second; zero means unlimited.
	Rate   float64
	Burst  int
	Refuse []string
}

// LoadConfig reads the config file if one is found and applies environment
// overrides. A missing config file is not an error.
func LoadConfig() (Config, error) {
	v := viper.New()
	v.SetDefault("path", "~/.acctview.db")
	v.SetDefault("locale", "en-US")
	v.SetDefault("block.latency", "300ms")
	v.SetDefault("block.rate", 0)
	v.SetDefault("block.burst", 1)
	v.SetDefault("block.refuse", []string{})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("metrics.addr", "")

	v.SetConfigName(".acctview") // .yaml is implicit
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if override := os.Getenv(envPrefix + "_CONFIG_PATH"); override != "" {
		v.AddConfigPath(override)
	}
	v.AddConfigPath("./")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read %s: %w", v.ConfigFileUsed(), err)
		}
	}

	path, err := homedir.Expand(v.GetString("path"))
	if err != nil {
		return nil, fmt.Errorf("config: expand path: %w", err)
	}

	return &fileConfig{
		Path:    path,
		Lang:    v.GetString("locale"),
		Service: Block{
			Latency: v.GetDuration("block.latency"),
			Rate:    v.GetFloat64("block.rate"),
			Burst:   v.GetInt("block.burst"),
			Refuse:  v.GetStringSlice("block.refuse"),
		},
		Level:   v.GetString("log.level"),
		File:    v.GetString("log.file"),
		Metrics: v.GetString("metrics.addr"),
	}, nil
}

type fileConfig struct {
	Path    string `json:"path"`
	Lang    string `json:"locale"`
	Service Block  `json:"block"`
	Level   string `json:"logLevel"`
	File    string `json:"logFile"`
	Metrics string `json:"metricsAddr"`
}

func (f *fileConfig) BasePath() string    { return f.Path }
func (f *fileConfig) Locale() string      { return f.Lang }
func (f *fileConfig) Block() Block        { return f.Service }
func (f *fileConfig) LogLevel() string    { return f.Level }
func (f *fileConfig) LogFile() string     { return f.File }
func (f *fileConfig) MetricsAddr() string { return f.Metrics }
