package disk

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/deploymenttheory/go-blockfs/internal/types"
)

// Config holds container defaults and logging preferences.
type Config struct {
	ContainerPath string `mapstructure:"container_path" json:"container_path" yaml:"container_path"`
	BlockSize     int32  `mapstructure:"block_size" json:"block_size" yaml:"block_size"`
	TotalBlocks   int32  `mapstructure:"total_blocks" json:"total_blocks" yaml:"total_blocks"`
	LogLevel      string `mapstructure:"log_level" json:"log_level" yaml:"log_level"`
	LogFormat     string `mapstructure:"log_format" json:"log_format" yaml:"log_format"`
}

// SetDefaults registers the configuration defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("container_path", "container.bin")
	v.SetDefault("block_size", types.DefaultBlockSize)
	v.SetDefault("total_blocks", types.DefaultTotalBlocks)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
}

// LoadConfig loads configuration using v. An explicit configFile overrides the
// search paths; a missing default config file is not an error.
func LoadConfig(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("blockfs-config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.blockfs")
		v.AddConfigPath("/etc/blockfs")
	}

	SetDefaults(v)

	v.SetEnvPrefix("BLOCKFS")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configFile != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate rejects geometry that could never produce a container.
func (c *Config) Validate() error {
	if c.BlockSize <= 0 || c.TotalBlocks <= 0 {
		return fmt.Errorf("%w: block_size and total_blocks must be positive (got %d, %d)",
			types.ErrInvalidArgument, c.BlockSize, c.TotalBlocks)
	}
	return nil
}
