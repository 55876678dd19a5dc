package conf

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/sensordash/alertd/internal/errors"
)

// EnvPrefix prefixes every environment override, e.g. ALERTD_MQTT_BROKER.
const EnvPrefix = "ALERTD"

// Load reads settings from configFile, or from config.yaml in the default
// search paths when configFile is empty. A missing file is not an error.
func Load(configFile string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "alertd"))
		}
		v.AddConfigPath("/etc/alertd")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.New(err).
				Component("conf").
				Category(errors.CategoryConfiguration).
				Context("config_file", configFile).
				Build()
		}
	}

	var s Settings
	if err := v.Unmarshal(&s, viper.DecodeHook(DurationDecodeHook())); err != nil {
		return nil, errors.Newf("failed to decode settings: %w", err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Save writes settings as YAML, replacing path atomically.
func Save(path string, s *Settings) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return errors.Newf("failed to encode settings: %w", err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".config-*.yaml")
	if err != nil {
		return errors.Newf("failed to create temp config: %w", err).
			Component("conf").
			Category(errors.CategorySystem).
			Context("dir", dir).
			Build()
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return errors.Newf("failed to write config: %w", err).Component("conf").Category(errors.CategorySystem).Build()
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return errors.Newf("failed to close config: %w", err).Component("conf").Category(errors.CategorySystem).Build()
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return errors.Newf("failed to replace config: %w", err).
			Component("conf").
			Category(errors.CategorySystem).
			Context("path", path).
			Build()
	}
	return nil
}
