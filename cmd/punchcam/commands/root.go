package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bryanchriswhite/PunchCam/internal/config"
	"github.com/bryanchriswhite/PunchCam/internal/logger"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "punchcam",
		Short: "PunchCam - motion-triggered camera recorder",
		Long: `PunchCam records a camera continuously and keeps only what matters.

Every frame goes to a raw planar stream and an edge-difference stream whose
old data is reclaimed by punching holes in the files, so disk use stays
bounded however long it runs. Frames around detected motion are JPEG
encoded into framed streams.

Features:
  • V4L2 capture through GStreamer, or replay of a raw YUYV file
  • Edge-difference motion detection with pre-roll and post-roll
  • Bounded disk use with FALLOC_FL_PUNCH_HOLE
  • Optional scaled JPEG stream
  • Status API with live counters`,
		SilenceUsage: true,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/punchcam/config.yaml)")
	rootCmd.PersistentFlags().String("backend", "", "capture backend (gst, subprocess, file)")
	rootCmd.PersistentFlags().String("device", "", "V4L2 device (default is /dev/video0)")
	rootCmd.PersistentFlags().String("input", "", "raw YUYV file to replay with the file backend")
	rootCmd.PersistentFlags().String("prefix", "", "output file prefix")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Int("status-port", 0, "status API port (0 disables it)")

	// Bind flags to viper
	viper.BindPFlag("camera.backend", rootCmd.PersistentFlags().Lookup("backend"))
	viper.BindPFlag("camera.device", rootCmd.PersistentFlags().Lookup("device"))
	viper.BindPFlag("camera.file", rootCmd.PersistentFlags().Lookup("input"))
	viper.BindPFlag("output.prefix", rootCmd.PersistentFlags().Lookup("prefix"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("status_port", rootCmd.PersistentFlags().Lookup("status-port"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// loadConfig reads the config file and applies flag overrides on top of it
func loadConfig() (*config.Manager, *config.Config, error) {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize config manager: %w", err)
	}
	cfg := configMgr.Get()

	overrideString := func(key string, dst *string) {
		if viper.IsSet(key) {
			if v := viper.GetString(key); v != "" {
				*dst = v
			}
		}
	}
	overrideString("camera.backend", &cfg.Camera.Backend)
	overrideString("camera.device", &cfg.Camera.Device)
	overrideString("camera.file", &cfg.Camera.File)
	overrideString("output.prefix", &cfg.Output.Prefix)
	overrideString("log_level", &cfg.LogLevel)
	if viper.IsSet("status_port") {
		if port := viper.GetInt("status_port"); port > 0 {
			cfg.StatusPort = port
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger.Init(cfg.LogLevel, cfg.LogPretty)
	return configMgr, cfg, nil
}
