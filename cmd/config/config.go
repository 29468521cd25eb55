package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	coreconfig "github.com/mattsolo1/grove-core/config"
	"github.com/mitchellh/mapstructure"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mattsolo1/grove-datatree/pkg/service"
)

var (
	cfgFile  string
	logLevel string
)

// Settings is the merged configuration: viper (file, DTREE_ env, flags) overlaid by
// the dtree block of grove.yml.
type Settings struct {
	DataDir    string        `mapstructure:"data_dir"`
	LogLevel   string        `mapstructure:"log_level"`
	Recursive  bool          `mapstructure:"recursive"`
	Debounce   time.Duration `mapstructure:"debounce"`
	Extensions []string      `mapstructure:"extensions"`
}

func InitConfig() {
	// A .env next to the working directory may carry DTREE_ variables.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		configDir := filepath.Join(home, ".config", "dtree")
		viper.AddConfigPath(configDir)
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("DTREE")
	viper.AutomaticEnv()

	viper.SetDefault("data_dir", filepath.Join(os.Getenv("HOME"), ".local", "share", "dtree"))
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("recursive", true)
	viper.SetDefault("debounce", "200ms")
	viper.SetDefault("extensions", []string{".yaml", ".yml"})

	_ = viper.ReadInConfig()
}

// Load reads the settings from viper and overlays the grove.yml extension block.
func Load() (*Settings, error) {
	s := &Settings{
		DataDir:    viper.GetString("data_dir"),
		LogLevel:   viper.GetString("log_level"),
		Recursive:  viper.GetBool("recursive"),
		Debounce:   viper.GetDuration("debounce"),
		Extensions: viper.GetStringSlice("extensions"),
	}
	if logLevel != "" {
		s.LogLevel = logLevel
	}

	cfg, err := coreconfig.LoadDefault()
	if err == nil && cfg != nil {
		if err := ApplyExtension(s, cfg.Extensions["dtree"]); err != nil {
			return nil, err
		}
	}
	s.Extensions = normalizeExtensions(s.Extensions)
	return s, nil
}

// ApplyExtension decodes a grove.yml dtree block over s. Keys absent from the block keep
// their current values.
func ApplyExtension(s *Settings, raw interface{}) error {
	if raw == nil {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		Result:           s,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("failed to decode dtree config: %w", err)
	}
	return nil
}

// normalizeExtensions lowercases extensions and adds the leading dot when missing.
func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		out = append(out, e)
	}
	return out
}

// NewLogger builds the process logger on stderr.
func NewLogger(level string) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.WarnLevel)
	if level != "" {
		lvl, err := logrus.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level: %w", err)
		}
		logger.SetLevel(lvl)
	}
	return logger, nil
}

// InitService builds the logger and service from the loaded settings.
func InitService() (*service.Service, error) {
	s, err := Load()
	if err != nil {
		return nil, err
	}
	logger, err := NewLogger(s.LogLevel)
	if err != nil {
		return nil, err
	}
	return service.New(&service.Config{
		DataDir:    s.DataDir,
		Extensions: s.Extensions,
		Recursive:  s.Recursive,
		Debounce:   s.Debounce,
	}, logger)
}

func AddGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/dtree/config.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
}
