package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/audiolibrelab/pulsepipe/internal/config"
	"github.com/audiolibrelab/pulsepipe/internal/pulse"
)

var (
	cfg          *config.Config
	cfgFile      string
	verboseLevel int
)

var rootCmd = &cobra.Command{
	Use:   "pulsepipe",
	Short: "Virtual audio pipe management for PulseAudio",
	Long: `Pulsepipe creates and manages virtual audio routing endpoints on top
of PulseAudio. A pipe is a null sink, its monitor and a remapped source
linked by naming convention: an input pipe acts as a virtual microphone,
an output pipe as a virtual speaker.

Persistent pipes are recorded in a config fragment so the sound server
recreates them automatically on restart.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging(verboseLevel)

		if cfgFile == "" {
			cfgFile = config.DefaultPath()
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/pulsepipe.yaml)")
	rootCmd.PersistentFlags().IntVarP(&verboseLevel, "verbose", "v", 0, "verbose level: 0=info, 1=debug")

	rootCmd.AddCommand(inputsCmd)
	rootCmd.AddCommand(outputsCmd)
	rootCmd.AddCommand(pipesCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(configCmd)
}

// manager builds the pipe manager from the loaded configuration.
func manager() *pulse.Manager {
	return pulse.NewManager(cfg)
}

// setupLogging configures slog based on the verbose level
func setupLogging(level int) {
	slogLevel := slog.LevelInfo
	if level >= 1 {
		slogLevel = slog.LevelDebug
	}

	// Configure text handler for clean terminal output
	opts := &slog.HandlerOptions{
		Level: slogLevel,
	}
	handler := slog.NewTextHandler(os.Stderr, opts)
	slog.SetDefault(slog.New(handler))
}
