/*
Package config manages TOML config for wordnext.

The file has one section per concern:

	[model]    where trained models live and which orders to train/load
	[predict]  default and maximum limits for prediction requests
	[dict]     custom dictionary location and autosave
	[server]   IPC server options
	[cli]      interactive REPL defaults

A malformed file is never fatal: LoadConfig falls back to reading the
sections that still parse and keeps built-in defaults for the rest.
*/
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/bastiangx/wordnext/internal/utils"
	"github.com/bastiangx/wordnext/pkg/persist"
	"github.com/charmbracelet/log"
)

// Config holds the entire config structure
type Config struct {
	Model   ModelConfig   `toml:"model"`
	Predict PredictConfig `toml:"predict"`
	Dict    DictConfig    `toml:"dict"`
	Server  ServerConfig  `toml:"server"`
	CLI     CliConfig     `toml:"cli"`
}

// ModelConfig has trained model options.
type ModelConfig struct {
	Dir          string `toml:"dir"`
	Orders       []int  `toml:"orders"`
	DefaultOrder int    `toml:"default_order"`
	Extension    string `toml:"extension"`
}

// PredictConfig holds request defaults and the maxima the server clamps to.
type PredictConfig struct {
	DefaultTopK      int `toml:"default_top_k"`
	MaxTopK          int `toml:"max_top_k"`
	DefaultMaxLength int `toml:"default_max_length"`
	MaxLengthLimit   int `toml:"max_length_limit"`
	SuggestPerModel  int `toml:"suggest_per_model"`
	SuggestLimit     int `toml:"suggest_limit"`
}

// DictConfig holds custom dictionary options.
type DictConfig struct {
	Path     string `toml:"path"`
	Autosave bool   `toml:"autosave"`
}

// ServerConfig has server related options.
type ServerConfig struct {
	ReloadConfig bool `toml:"reload_config"`
}

// CliConfig holds cli interface options.
type CliConfig struct {
	DefaultLimit     int `toml:"default_limit"`
	DefaultMaxLength int `toml:"default_max_length"`
}

// GetConfigDir returns the config directory with fallback priority:
// 1. ~/.config/
// 2. ~/Library/Application Support/ (macOS)
// 3. Current executable dir
// 4. builtin defaults
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Errorf("Failed to get home directory: %v", err)
		execDir, execErr := utils.GetExecutableDir()
		if execErr != nil {
			return "", execErr
		}
		return execDir, nil
	}
	primaryPath := filepath.Join(homeDir, ".config", "wordnext")
	if result := utils.CheckDirStatus(primaryPath); result.Writable {
		return primaryPath, nil
	}
	macOSPath := filepath.Join(homeDir, "Library", "Application Support", "wordnext")
	if result := utils.CheckDirStatus(macOSPath); result.Writable {
		return macOSPath, nil
	}
	execDir, err := utils.GetExecutableDir()
	if err != nil {
		log.Errorf("Failed to get executable directory: %v", err)
		return "", err
	}
	return execDir, nil
}

// GetDefaultConfigPath returns the default path for config.toml
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}

// LoadConfigWithPriority loads config with priority:
// 1. Custom path from -config flag
// 2. Default path: [UserConfigDir]/wordnext/config.toml
// 3. Builtin defaults
func LoadConfigWithPriority(customConfigPath string) (*Config, string, error) {
	if customConfigPath != "" {
		if _, statErr := os.Stat(customConfigPath); statErr == nil {
			config, err := LoadConfig(customConfigPath)
			if err != nil {
				log.Warnf("Failed to load custom config from %s: %v. Trying default path...", customConfigPath, err)
			} else {
				log.Debugf("Loaded config from custom path: %s", customConfigPath)
				return config, customConfigPath, nil
			}
		} else {
			log.Warnf("Custom config file not found at %s: %v. Trying default path...", customConfigPath, statErr)
		}
	}
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		log.Warnf("Failed to determine default config path: %v. Using built-in defaults...", err)
		return DefaultConfig(), "", nil
	}

	config, err := InitConfig(defaultPath)
	if err != nil {
		log.Warnf("Failed to load/create config at default path %s: %v. Using builtin defaults...", defaultPath, err)
		return DefaultConfig(), "", nil
	}
	log.Debugf("Loaded config from default path: %s", defaultPath)
	return config, defaultPath, nil
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Model: ModelConfig{
			Dir:          "models",
			Orders:       []int{2, 3},
			DefaultOrder: 2,
			Extension:    ".mpk",
		},
		Predict: PredictConfig{
			DefaultTopK:      5,
			MaxTopK:          64,
			DefaultMaxLength: 20,
			MaxLengthLimit:   200,
			SuggestPerModel:  3,
			SuggestLimit:     10,
		},
		Dict: DictConfig{
			Path:     "data/custom_dictionary.json",
			Autosave: true,
		},
		Server: ServerConfig{
			ReloadConfig: true,
		},
		CLI: CliConfig{
			DefaultLimit:     5,
			DefaultMaxLength: 20,
		},
	}
}

// InitConfig loads config from file or creates default if missing
func InitConfig(configPath string) (*Config, error) {
	configDir := filepath.Dir(configPath)

	if err := utils.EnsureDir(configDir); err != nil {
		log.Warnf("Failed to create config directory %s: %v. Using built-in defaults...", configDir, err)
		return DefaultConfig(), nil
	}

	if !utils.FileExists(configPath) {
		config := DefaultConfig()
		if err := SaveConfig(config, configPath); err != nil {
			log.Warnf("Failed to create default config file at %s: %v. Using built-in defaults...", configPath, err)
			return DefaultConfig(), nil
		}
		log.Debugf("Created default config file at: %s", configPath)
		return config, nil
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		log.Warnf("Failed to load config from %s: %v. Using built-in defaults...", configPath, err)
		return DefaultConfig(), nil
	}
	return config, nil
}

// LoadConfig loads from a TOML file. Out of range values are replaced
// with their defaults.
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if err := utils.LoadTOMLFile(configPath, config); err != nil {
		config, err = tryPartialParse(configPath)
		if err != nil {
			return nil, err
		}
	}
	config.Sanitize()
	return config, nil
}

// tryPartialParse attempts to parse a TOML file
func tryPartialParse(configPath string) (*Config, error) {
	config := DefaultConfig()

	tempConfig, err := utils.ParseTOMLWithRecovery(configPath)
	if err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v. Using all defaults.", configPath, err)
		return config, nil
	}

	if section, ok := utils.ExtractSection(tempConfig, "model"); ok {
		extractModelConfig(section, &config.Model)
	}
	if section, ok := utils.ExtractSection(tempConfig, "predict"); ok {
		extractPredictConfig(section, &config.Predict)
	}
	if section, ok := utils.ExtractSection(tempConfig, "dict"); ok {
		extractDictConfig(section, &config.Dict)
	}
	if section, ok := utils.ExtractSection(tempConfig, "server"); ok {
		extractServerConfig(section, &config.Server)
	}
	if section, ok := utils.ExtractSection(tempConfig, "cli"); ok {
		extractCliConfig(section, &config.CLI)
	}
	return config, nil
}

func extractModelConfig(data map[string]any, model *ModelConfig) {
	if val, ok := utils.ExtractString(data, "dir"); ok {
		model.Dir = val
	}
	if val, ok := utils.ExtractIntSlice(data, "orders"); ok {
		model.Orders = val
	}
	if val, ok := utils.ExtractInt64(data, "default_order"); ok {
		model.DefaultOrder = val
	}
	if val, ok := utils.ExtractString(data, "extension"); ok {
		model.Extension = val
	}
}

func extractPredictConfig(data map[string]any, predict *PredictConfig) {
	if val, ok := utils.ExtractInt64(data, "default_top_k"); ok {
		predict.DefaultTopK = val
	}
	if val, ok := utils.ExtractInt64(data, "max_top_k"); ok {
		predict.MaxTopK = val
	}
	if val, ok := utils.ExtractInt64(data, "default_max_length"); ok {
		predict.DefaultMaxLength = val
	}
	if val, ok := utils.ExtractInt64(data, "max_length_limit"); ok {
		predict.MaxLengthLimit = val
	}
	if val, ok := utils.ExtractInt64(data, "suggest_per_model"); ok {
		predict.SuggestPerModel = val
	}
	if val, ok := utils.ExtractInt64(data, "suggest_limit"); ok {
		predict.SuggestLimit = val
	}
}

func extractDictConfig(data map[string]any, dict *DictConfig) {
	if val, ok := utils.ExtractString(data, "path"); ok {
		dict.Path = val
	}
	if val, ok := utils.ExtractBool(data, "autosave"); ok {
		dict.Autosave = val
	}
}

func extractServerConfig(data map[string]any, server *ServerConfig) {
	if val, ok := utils.ExtractBool(data, "reload_config"); ok {
		server.ReloadConfig = val
	}
}

func extractCliConfig(data map[string]any, cli *CliConfig) {
	if val, ok := utils.ExtractInt64(data, "default_limit"); ok {
		cli.DefaultLimit = val
	}
	if val, ok := utils.ExtractInt64(data, "default_max_length"); ok {
		cli.DefaultMaxLength = val
	}
}

// Sanitize replaces out of range values with defaults and keeps every
// default within its maximum.
func (c *Config) Sanitize() {
	def := DefaultConfig()

	if c.Model.Dir == "" {
		c.Model.Dir = def.Model.Dir
	}
	orders := c.Model.Orders[:0:0]
	for _, n := range c.Model.Orders {
		if n < 2 {
			log.Warnf("Ignoring model order %d, orders start at 2", n)
			continue
		}
		orders = append(orders, n)
	}
	if len(orders) == 0 {
		orders = def.Model.Orders
	}
	c.Model.Orders = orders
	if !slices.Contains(orders, c.Model.DefaultOrder) {
		c.Model.DefaultOrder = orders[0]
	}
	if _, err := persist.DetectFormat(c.Model.Extension); err != nil {
		if c.Model.Extension != "" {
			log.Warnf("Invalid model extension: %v, using %s", err, def.Model.Extension)
		}
		c.Model.Extension = def.Model.Extension
	}

	p := &c.Predict
	positive(&p.MaxTopK, def.Predict.MaxTopK, "max_top_k")
	positive(&p.DefaultTopK, def.Predict.DefaultTopK, "default_top_k")
	positive(&p.MaxLengthLimit, def.Predict.MaxLengthLimit, "max_length_limit")
	positive(&p.DefaultMaxLength, def.Predict.DefaultMaxLength, "default_max_length")
	positive(&p.SuggestPerModel, def.Predict.SuggestPerModel, "suggest_per_model")
	positive(&p.SuggestLimit, def.Predict.SuggestLimit, "suggest_limit")
	p.DefaultTopK = min(p.DefaultTopK, p.MaxTopK)
	p.DefaultMaxLength = min(p.DefaultMaxLength, p.MaxLengthLimit)
	p.SuggestPerModel = min(p.SuggestPerModel, p.MaxTopK)
	p.SuggestLimit = min(p.SuggestLimit, p.MaxTopK)

	if c.Dict.Path == "" {
		c.Dict.Path = def.Dict.Path
	}

	positive(&c.CLI.DefaultLimit, def.CLI.DefaultLimit, "default_limit")
	positive(&c.CLI.DefaultMaxLength, def.CLI.DefaultMaxLength, "default_max_length")
}

func positive(val *int, fallback int, name string) {
	if *val < 1 {
		log.Warnf("Invalid %s %d, using %d", name, *val, fallback)
		*val = fallback
	}
}

// ModelPath returns where the model of order n is stored.
func (c *Config) ModelPath(n int) string {
	return filepath.Join(c.Model.Dir, ModelName(n)+"_model"+c.Model.Extension)
}

// ModelName names a model by its order: bigram, trigram, then "4gram" and up.
func ModelName(n int) string {
	switch n {
	case 2:
		return "bigram"
	case 3:
		return "trigram"
	}
	return fmt.Sprintf("%dgram", n)
}

// RebuildConfigFile force creates a new config.toml at default
func RebuildConfigFile() error {
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		return err
	}
	configDir := filepath.Dir(defaultPath)
	if err := utils.EnsureDir(configDir); err != nil {
		return err
	}
	return SaveConfig(DefaultConfig(), defaultPath)
}

// GetActiveConfigPath returns the absolute path of loaded config file
func GetActiveConfigPath(configPath string) string {
	if configPath == "" {
		if defaultPath, err := GetDefaultConfigPath(); err == nil {
			return defaultPath
		}
		return "unknown"
	}
	return utils.GetAbsolutePath(configPath)
}

// SaveConfig saves into a TOML file
func SaveConfig(config *Config, configPath string) error {
	return utils.SaveTOMLFile(config, configPath)
}
