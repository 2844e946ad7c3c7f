package cmd

import (
	"os"

	"github.com/bnema/vmshm/internal/config"
	"github.com/bnema/vmshm/internal/logger"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage vmshm configuration",
	Long:  `Manage vmshm configuration including bridge, transport and input settings.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()

		logger.Info("Current Configuration:")
		logger.Infof("Config file: %s\n", config.GetConfigPath())

		logger.Info("[Bridge]")
		logger.Infof("  Display Limit: %d", cfg.Bridge.DisplayLimit)
		logger.Infof("  Refresh Interval: %s", cfg.Bridge.RefreshInterval())
		logger.Infof("  Hidden Refresh Interval: %s", cfg.Bridge.HiddenRefreshInterval())
		logger.Infof("  Subsegment Timeout: %s", cfg.Bridge.SubsegmentTimeout())
		logger.Infof("  Instance Name: %s", cfg.Bridge.InstanceName)
		logger.Infof("  Accelerated: %v", cfg.Bridge.Accelerated)

		logger.Info("\n[Transport]")
		connPath := cfg.Transport.ConnPath
		if connPath == "" {
			connPath = "(unset)"
		}
		logger.Infof("  Connection Path: %s", connPath)
		logger.Infof("  Buffer Directory: %s", cfg.Transport.BufferDir)

		logger.Info("\n[Input]")
		logger.Infof("  Backend: %s", cfg.Input.Backend)
		logger.Infof("  Uinput Path: %s", cfg.Input.UinputPath)

		if cfg.Logging.Level != "" {
			logger.Info("\n[Logging]")
			logger.Infof("  Level: %s", cfg.Logging.Level)
		}

		return nil
	},
}

var configSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save current configuration to file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Save(); err != nil {
			return err
		}
		logger.Infof("Configuration saved to: %s", config.GetConfigPath())
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration file with defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Check if config already exists
		configPath := config.GetConfigPath()
		if _, err := os.Stat(configPath); err == nil {
			logger.Infof("Configuration file already exists at: %s", configPath)
			logger.Info("Use --force to overwrite")

			force, _ := cmd.Flags().GetBool("force")
			if !force {
				return nil
			}
		}

		// Save default configuration
		if err := config.Save(); err != nil {
			return err
		}

		logger.Infof("Configuration initialized at: %s", configPath)
		logger.Info("\nYou can now:")
		logger.Info("  - Set transport.connpath to your compositor socket")
		logger.Info("  - Use 'vmshm config show' to view current settings")
		logger.Info("  - Use 'vmshm run' to start bridging")

		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSaveCmd)
	configCmd.AddCommand(configInitCmd)

	configInitCmd.Flags().Bool("force", false, "Force overwrite existing configuration")
}
