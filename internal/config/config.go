package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"

	"github.com/audiolibrelab/pulsepipe/internal/device"
)

type Config struct {
	Pulse        PulseConfig       `mapstructure:"pulse" yaml:"pulse"`
	Tools        ToolsConfig       `mapstructure:"tools" yaml:"tools"`
	Descriptions DescriptionConfig `mapstructure:"descriptions" yaml:"descriptions"`
}

type PulseConfig struct {
	// ConfigDirectory holds default.pa and the pulsepipe persistence
	// fragment.
	ConfigDirectory string `mapstructure:"config_directory" yaml:"config_directory"`
}

type ToolsConfig struct {
	Control  string `mapstructure:"control" yaml:"control"`   // pactl
	Playback string `mapstructure:"playback" yaml:"playback"` // paplay
	Capture  string `mapstructure:"capture" yaml:"capture"`   // parecord
}

type DescriptionConfig struct {
	PipeSuffix    string `mapstructure:"pipe_suffix" yaml:"pipe_suffix"`
	InputSuffix   string `mapstructure:"input_suffix" yaml:"input_suffix"`
	OutputSuffix  string `mapstructure:"output_suffix" yaml:"output_suffix"`
	MonitorSuffix string `mapstructure:"monitor_suffix" yaml:"monitor_suffix"`
}

// Default returns the compiled-in configuration.
func Default() *Config {
	return &Config{
		Pulse: PulseConfig{
			ConfigDirectory: filepath.Join(xdg.ConfigHome, "pulse"),
		},
		Tools: ToolsConfig{
			Control:  "pactl",
			Playback: "paplay",
			Capture:  "parecord",
		},
		Descriptions: DescriptionConfig{
			PipeSuffix:    "-Pipe",
			InputSuffix:   "-InputPipe",
			OutputSuffix:  "-OutputPipe",
			MonitorSuffix: "-MonitorPipe",
		},
	}
}

// DefaultPath is where Load looks when no config file is given.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, "pulsepipe.yaml")
}

// Load reads the configuration file over the defaults. A missing file is
// not an error: the defaults work out of the box and environment
// variables (prefix PULSEPIPE) still apply.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configFile)
	v.SetEnvPrefix("PULSEPIPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if fileExists(configFile) {
			return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
		slog.Debug("No config file found, using defaults", "path", configFile)
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.Pulse.ConfigDirectory = expandPath(cfg.Pulse.ConfigDirectory)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks the resolved configuration. Description suffixes must
// not contain whitespace: PulseAudio property values cannot carry spaces
// when passed on the command line.
func (c *Config) Validate() error {
	if c.Pulse.ConfigDirectory == "" {
		return fmt.Errorf("pulse.config_directory must not be empty")
	}
	if c.Tools.Control == "" {
		return fmt.Errorf("tools.control must not be empty")
	}
	if c.Tools.Playback == "" {
		return fmt.Errorf("tools.playback must not be empty")
	}
	if c.Tools.Capture == "" {
		return fmt.Errorf("tools.capture must not be empty")
	}

	suffixes := map[string]string{
		"descriptions.pipe_suffix":    c.Descriptions.PipeSuffix,
		"descriptions.input_suffix":   c.Descriptions.InputSuffix,
		"descriptions.output_suffix":  c.Descriptions.OutputSuffix,
		"descriptions.monitor_suffix": c.Descriptions.MonitorSuffix,
	}
	for field, suffix := range suffixes {
		if strings.ContainsAny(suffix, " \t") {
			return fmt.Errorf("%s must not contain whitespace, got: %q", field, suffix)
		}
	}
	if c.Descriptions.InputSuffix == "" || c.Descriptions.OutputSuffix == "" || c.Descriptions.MonitorSuffix == "" {
		return fmt.Errorf("descriptions role suffixes must not be empty")
	}
	return nil
}

// Suffixes returns the description suffixes in the device package's form.
func (c *Config) Suffixes() device.Suffixes {
	return device.Suffixes{
		Generic: c.Descriptions.PipeSuffix,
		Input:   c.Descriptions.InputSuffix,
		Output:  c.Descriptions.OutputSuffix,
		Monitor: c.Descriptions.MonitorSuffix,
	}
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[2:])
	}
	return path
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
