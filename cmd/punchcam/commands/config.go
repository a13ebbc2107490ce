package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/bryanchriswhite/PunchCam/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage PunchCam configuration",
	Long:  `View and manage PunchCam configuration settings.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the current PunchCam configuration, including flag overrides.`,
	Example: `  # Show configuration as YAML (default)
  punchcam config show

  # Show configuration as JSON
  punchcam config show --format json`,
	RunE: runConfigShow,
}

var configGetCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Get a configuration value",
	Long:  `Get a specific configuration value. Nested keys are separated by dots.`,
	Example: `  # Get the output prefix
  punchcam config get output.prefix

  # Get the detector settings
  punchcam config get detector`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Set a configuration value",
	Long:  `Set a specific configuration value and save the file.`,
	Example: `  # Record into /var/cam
  punchcam config set output.prefix /var/cam/front

  # Keep a 256 MiB dense tail
  punchcam config set output.keep_size_shl 28`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Long:  `Display the path to the configuration file.`,
	RunE:  runConfigPath,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long:  `Write the default configuration, replacing the existing file when --force is given.`,
	RunE:  runConfigInit,
}

var (
	formatFlag string
	forceFlag  bool
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configInitCmd)

	configShowCmd.Flags().StringVarP(&formatFlag, "format", "f", "yaml", "output format (yaml or json)")
	configInitCmd.Flags().BoolVar(&forceFlag, "force", false, "overwrite an existing config file")
}

func writeFormatted(w io.Writer, v interface{}, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(v)
	case "yaml":
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		return encoder.Encode(v)
	default:
		return fmt.Errorf("unsupported format: %s (use 'yaml' or 'json')", format)
	}
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	_, cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return writeFormatted(cmd.OutOrStdout(), cfg, formatFlag)
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	value, err := config.Lookup(configMgr.Get(), args[0])
	if err != nil {
		return err
	}
	if _, nested := value.(map[string]interface{}); nested {
		return writeFormatted(cmd.OutOrStdout(), value, "yaml")
	}
	fmt.Fprintln(cmd.OutOrStdout(), value)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	updated, err := config.Set(configMgr.Get(), key, value)
	if err != nil {
		return err
	}
	if err := configMgr.Update(updated); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✅ Set %s = %s\n", key, value)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	path := GetConfigFile()
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := GetConfigFile()
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}

	if _, err := os.Stat(path); err == nil {
		if !forceFlag {
			return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove existing config: %w", err)
		}
	}

	// A missing file is written with defaults
	if _, err := config.NewManager(path); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✅ Wrote default configuration to %s\n", path)
	return nil
}
