// Package config loads the settings shared by the extentfs commands: an
// optional YAML file overlaid with `EXTENTFS_*` environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

const (
	envVarPrefix = "EXTENTFS"
	appName      = "extentfs"
)

type DeviceKind string

const (
	DeviceFile     DeviceKind = "file"
	DeviceMemory   DeviceKind = "memory"
	DeviceS3       DeviceKind = "s3"
	DevicePostgres DeviceKind = "postgres"
)

// Decode satisfies envconfig.Decoder.
func (kind *DeviceKind) Decode(value string) error {
	switch k := DeviceKind(value); k {
	case DeviceFile, DeviceMemory, DeviceS3, DevicePostgres:
		*kind = k
		return nil
	default:
		return fmt.Errorf(
			"unsupported device kind `%s` (wanted one of `%s`, `%s`, `%s` or `%s`)",
			value,
			DeviceFile,
			DeviceMemory,
			DeviceS3,
			DevicePostgres,
		)
	}
}

func (kind *DeviceKind) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return fmt.Errorf("yaml-unmarshaling *DeviceKind: %w", err)
	}
	if err := kind.Decode(s); err != nil {
		return fmt.Errorf("yaml-unmarshaling *DeviceKind: %w", err)
	}
	return nil
}

type Config struct {
	Device DeviceKind `split_words:"true" yaml:"device"`

	// Image is the image file of a `file` device.
	Image string `split_words:"true" yaml:"image"`

	// Volume names the volume inside an `s3` bucket or `postgres` database.
	Volume string `split_words:"true" yaml:"volume"`
	Bucket string `split_words:"true" yaml:"bucket"`
	Region string `split_words:"true" yaml:"region"`
	Gzip   bool   `split_words:"true" yaml:"gzip"`

	// Blocks sizes new volumes.
	Blocks        uint32 `split_words:"true" yaml:"blocks"`
	CacheCapacity int    `split_words:"true" yaml:"cacheCapacity"`

	Addr      string `split_words:"true" yaml:"addr"`
	LogLevel  string `split_words:"true" yaml:"logLevel"`
	LogFormat string `split_words:"true" yaml:"logFormat"`
}

func Default() Config {
	return Config{
		Device:    DeviceFile,
		Image:     appName + ".img",
		Volume:    "default",
		Blocks:    1024,
		Addr:      "127.0.0.1:8080",
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// ConfigFile is `$EXTENTFS_CONFIG_FILE`, falling back to
// `$HOME/.config/extentfs.yaml`.
func ConfigFile() string {
	if configFile := os.Getenv(envVarPrefix + "_CONFIG_FILE"); configFile != "" {
		return configFile
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", appName+".yaml")
}

// Load applies the config file, if there is one, and then the environment
// over the defaults. It doesn't validate.
func Load() (*Config, error) { return LoadWithFile(ConfigFile()) }

// LoadWithFile is Load with an explicit config file path.
func LoadWithFile(configFile string) (*Config, error) {
	c := Default()
	if configFile != "" {
		if err := c.LoadFile(configFile); err != nil {
			return nil, err
		}
	}
	if err := envconfig.Process(envVarPrefix, &c); err != nil {
		return nil, fmt.Errorf("parsing environment variables: %w", err)
	}
	return &c, nil
}

// LoadFile overlays the YAML file at `path`. A missing file is ignored.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.UnmarshalStrict(data, c); err != nil {
		return fmt.Errorf("unmarshaling config file `%s`: %w", path, err)
	}
	return nil
}

func (c *Config) Validate() error {
	if y, e := func() (string, string) {
		switch c.Device {
		case DeviceFile:
			if c.Image == "" {
				return "image", "IMAGE"
			}
		case DeviceS3:
			if c.Bucket == "" {
				return "bucket", "BUCKET"
			}
			if c.Volume == "" {
				return "volume", "VOLUME"
			}
		case DevicePostgres:
			if c.Volume == "" {
				return "volume", "VOLUME"
			}
		case DeviceMemory:
		default:
			return "device", "DEVICE"
		}
		if c.Addr == "" {
			return "addr", "ADDR"
		}
		return "", ""
	}(); y != "" {
		return fmt.Errorf(
			"missing required configuration: %s / %s_%s",
			y,
			envVarPrefix,
			e,
		)
	}
	if c.Blocks < 1 {
		return fmt.Errorf(
			"invalid configuration: blocks / %s_BLOCKS must be positive",
			envVarPrefix,
		)
	}
	return nil
}
