package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentx-labs/blueprint/internal/branding"
	"github.com/spf13/viper"
)

const (
	fileName = "config"
	fileType = "yaml"
)

// Recognized configuration keys.
const (
	KeyTemplateDirs = "templates.dirs"
	KeyPolicy       = "generate.policy"
	KeyWorkers      = "generate.workers"
	KeyBaseDir      = "layout.base_dir"
	KeyCatalogRepo  = "catalog.repo"
	KeyLogLevel     = "log.level"
	KeyLogFormat    = "log.format"
)

// Default values applied before the config file and environment are read.
const (
	DefaultPolicy    = "skip"
	DefaultWorkers   = 4
	DefaultLogLevel  = "warn"
	DefaultLogFormat = "text"
)

// envKeyReplacer maps nested keys to env var names.
var envKeyReplacer = strings.NewReplacer(".", "_", "-", "_")

// Dir returns the path to the config directory (~/.blueprint/).
// BLUEPRINT_HOME overrides it.
func Dir() string {
	if v := os.Getenv(branding.EnvVar("HOME")); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", branding.HomeDir())
	}
	return filepath.Join(home, branding.HomeDir())
}

// FilePath returns the full path to the config file (~/.blueprint/config.yaml).
func FilePath() string {
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// CatalogDir returns where the remote template catalog is synced.
func CatalogDir() string {
	return filepath.Join(Dir(), "catalog")
}

// EnsureDir creates the config directory if it does not exist.
func EnsureDir() error {
	dir := Dir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	return nil
}

// Load initializes Viper to read from the config file and environment.
// Nested keys map to env vars with underscores, e.g. generate.policy →
// BLUEPRINT_GENERATE_POLICY.
func Load() {
	viper.SetDefault(KeyPolicy, DefaultPolicy)
	viper.SetDefault(KeyWorkers, DefaultWorkers)
	viper.SetDefault(KeyBaseDir, branding.ProjectDir())
	viper.SetDefault(KeyCatalogRepo, branding.CatalogRepoURL())
	viper.SetDefault(KeyLogLevel, DefaultLogLevel)
	viper.SetDefault(KeyLogFormat, DefaultLogFormat)

	viper.SetConfigFile(FilePath())
	viper.SetConfigType(fileType)
	viper.SetEnvPrefix(branding.EnvPrefix())
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()

	// Ignore error if config file doesn't exist yet.
	_ = viper.ReadInConfig()
}

// Get returns a config value by key. Returns empty string if not set.
func Get(key string) string {
	return viper.GetString(key)
}

// GetInt returns an integer config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetStringSlice returns a list config value. A comma-separated string
// (as set from the environment) is split.
func GetStringSlice(key string) []string {
	return viper.GetStringSlice(key)
}

// Set writes a config key-value pair and saves the config file.
func Set(key, value string) error {
	if err := EnsureDir(); err != nil {
		return err
	}

	viper.Set(key, value)

	configFile := FilePath()

	// Create the file if it doesn't exist.
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("creating config file %s: %w", configFile, err)
		}
		f.Close()
	}

	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
