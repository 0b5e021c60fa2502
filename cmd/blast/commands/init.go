package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blastkit/blast/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Initialize a sample blast configuration file.

By default, the configuration file is created at $XDG_CONFIG_HOME/blast/config.yaml.
Use --config to specify a custom path.

Examples:
  # Initialize with default location
  blast init

  # Initialize with custom path
  blast init --config /etc/blast/config.yaml

  # Force overwrite existing config
  blast init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	var configPath string
	var err error

	if configFile != "" {
		err = config.InitConfigToPath(configFile, initForce)
		configPath = configFile
	} else {
		configPath, err = config.InitConfig(initForce)
	}

	if err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	fmt.Printf("Configuration file created at: %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Edit the configuration file to customize your setup")
	fmt.Println("  2. Apply the database schema with: blast migrate")
	fmt.Println("  3. Start the worker with: blast worker")

	return nil
}
