package cmd

import (
	"fmt"

	"github.com/bnema/vmshm/internal/config"
	"github.com/bnema/vmshm/internal/logger"
	"github.com/spf13/cobra"
)

var (
	// Version is set during build
	Version = "0.1.0-dev"

	configPath string

	rootCmd = &cobra.Command{
		Use:   "vmshm",
		Short: "vmshm - shared memory display bridge for virtual machines",
		Long: `vmshm bridges the graphical consoles of a virtual machine to a display
compositor over shared memory segments. Guest frames are copied into the
segments, compositor input is injected into the guest through uinput.`,
		SilenceUsage:      true,
		PersistentPreRunE: initConfig,
	}
)

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s\n" .Version}}`)

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default searches /etc/vmshm, ~/.config/vmshm and .)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(keymapCmd)
	rootCmd.AddCommand(configCmd)
}

func initConfig(cmd *cobra.Command, args []string) error {
	if configPath != "" {
		config.SetConfigPath(configPath)
	}
	if err := config.Init(); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}
	if level := config.Get().Logging.Level; level != "" {
		logger.SetLevel(level)
	}
	return nil
}
