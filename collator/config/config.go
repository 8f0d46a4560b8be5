package config

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	internal "github.com/ZanzyTHEbar/glm-collator/collator"
	"github.com/ZanzyTHEbar/glm-collator/collator/common"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Collator  CollatorConfig  `mapstructure:"collator"`
	Tokenizer TokenizerConfig `mapstructure:"tokenizer"`
	Workers   WorkersConfig   `mapstructure:"workers"`
}

// CollatorConfig selects the mask/position scheme and truncation budget.
type CollatorConfig struct {
	Scheme             string `mapstructure:"scheme"`
	CutoffLen          int    `mapstructure:"cutoffLen"`
	PadTo              string `mapstructure:"padTo"`
	PositionEncoding2D bool   `mapstructure:"positionEncoding2D"`
}

// TokenizerConfig points at the tokenizer file and its special token ids.
type TokenizerConfig struct {
	Path     string         `mapstructure:"path"`
	Specials SpecialsConfig `mapstructure:"specials"`
	Suffix   []int          `mapstructure:"suffix"`
}

// SpecialsConfig stores special token ids; -1 marks an unset id.
type SpecialsConfig struct {
	Pad     int    `mapstructure:"pad"`
	BOS     int    `mapstructure:"bos"`
	EOS     int    `mapstructure:"eos"`
	Mask    int    `mapstructure:"mask"`
	GMask   int    `mapstructure:"gmask"`
	EOSText string `mapstructure:"eosText"`
}

// WorkersConfig bounds the goroutine pools.
type WorkersConfig struct {
	Labeling int `mapstructure:"labeling"`
	Eval     int `mapstructure:"eval"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
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

	v.SetDefault("collator.scheme", internal.DefaultScheme)
	v.SetDefault("collator.cutoffLen", internal.DefaultCutoffLen)
	v.SetDefault("collator.padTo", internal.DefaultPadTo)
	v.SetDefault("collator.positionEncoding2D", true)

	v.SetDefault("tokenizer.path", internal.DefaultTokenizerFile)
	v.SetDefault("tokenizer.specials.pad", -1)
	v.SetDefault("tokenizer.specials.bos", -1)
	v.SetDefault("tokenizer.specials.eos", -1)
	v.SetDefault("tokenizer.specials.mask", -1)
	v.SetDefault("tokenizer.specials.gmask", -1)
	v.SetDefault("tokenizer.specials.eosText", internal.DefaultEOSText)
	v.SetDefault("tokenizer.suffix", []int{})

	v.SetDefault("workers.labeling", internal.DefaultLabelWorker)
	v.SetDefault("workers.eval", internal.DefaultEvalWorker)

	v.AutomaticEnv()                                   // Read in environment variables that match
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // collator.cutoffLen becomes COLLATOR_CUTOFFLEN

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	return &cfg, nil
}

// Validate rejects settings the collator cannot run with.
func (c *Config) Validate() error {
	switch c.Collator.Scheme {
	case "v1", "v2":
	default:
		return common.NewConfigurationError("collator.scheme", fmt.Sprintf("unknown scheme %q", c.Collator.Scheme))
	}
	if c.Collator.PadTo != "longest" {
		return common.NewConfigurationError("collator.padTo", fmt.Sprintf("unsupported padding %q", c.Collator.PadTo))
	}
	if c.Collator.CutoffLen <= 0 {
		return common.NewConfigurationError("collator.cutoffLen", "must be positive")
	}
	if c.Tokenizer.Specials.Pad < 0 {
		return common.MissingSpecialToken("tokenizer.specials.pad")
	}
	if c.Collator.Scheme == "v1" {
		if c.Tokenizer.Specials.BOS < 0 {
			return common.MissingSpecialToken("tokenizer.specials.bos")
		}
		// v1 finds the context end at the first bos, which only the suffix provides
		if !slices.Contains(c.Tokenizer.Suffix, c.Tokenizer.Specials.BOS) {
			return common.NewConfigurationError("tokenizer.suffix", "scheme v1 needs the bos id in the suffix")
		}
	}
	if c.Tokenizer.Specials.EOSText == "" {
		return common.NewConfigurationError("tokenizer.specials.eosText", "must not be empty")
	}
	return nil
}
