package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"igunfollow/pkg/config"
	"igunfollow/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage igunfollow configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables
  - Configuration file
  - Default values (lowest priority)`,
}

// configInitCmd represents the config init command
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create a configuration file with the default values.

The file is created as '.igunfollow.yaml' in the current directory
unless a different path is given with the --config flag.`,
	Run: runConfigInit,
}

// configShowCmd represents the config show command
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration after merging all sources: flags, environment
variables, the configuration file, and defaults.`,
	Run: runConfigShow,
}

// configValidateCmd represents the config validate command
var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Run:   runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) {
	configPath := configFile
	if configPath == "" {
		configPath = ".igunfollow.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		ui.PrintError("File already exists", configPath)
		os.Exit(1)
	}

	if err := config.DefaultConfig().Save(configPath); err != nil {
		ui.PrintError("Failed to write config file", err.Error())
		os.Exit(1)
	}

	abs, _ := filepath.Abs(configPath)
	ui.PrintSuccess("Wrote " + abs)
}

func runConfigShow(cmd *cobra.Command, args []string) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		ui.PrintError("Failed to encode configuration", err.Error())
		os.Exit(1)
	}
	fmt.Print(string(data))
}

func runConfigValidate(cmd *cobra.Command, args []string) {
	target := config.DefaultConfig()
	if err := target.LoadFromFile(configFile); err != nil {
		ui.PrintError("Cannot read config file", err.Error())
		os.Exit(1)
	}
	if err := target.Validate(); err != nil {
		ui.PrintError("Configuration is invalid", err.Error())
		os.Exit(1)
	}
	ui.PrintSuccess("Configuration is valid")
}
