package config

import (
	"fmt"
	"os"
	"time"

	yaml "go.yaml.in/yaml/v3"
)

// fileConfig is the YAML shape. Durations are plain numbers to match the
// environment variables; credentials are never read from the file.
type fileConfig struct {
	Config               `yaml:",inline"`
	CheckIntervalSeconds int `yaml:"check_interval_seconds"`
	ProbeTimeoutMS       int `yaml:"probe_timeout_ms"`
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	fc := fileConfig{Config: *cfg}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("yaml unmarshal %s: %w", path, err)
	}
	if fc.CheckIntervalSeconds > 0 {
		fc.Config.CheckInterval = time.Duration(fc.CheckIntervalSeconds) * time.Second
	}
	if fc.ProbeTimeoutMS > 0 {
		fc.Config.ProbeTimeout = time.Duration(fc.ProbeTimeoutMS) * time.Millisecond
	}
	fc.Config.Token = cfg.Token
	fc.Config.SMTP.Password = cfg.SMTP.Password
	*cfg = fc.Config
	return nil
}
