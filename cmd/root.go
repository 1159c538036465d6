package cmd

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"incident-dashboard/internal/config"
	"incident-dashboard/internal/logger"
)

var (
	configPath string

	cfg    *config.Config
	appLog zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "incident-dashboard",
	Short:         "Security incident API and operator dashboard",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = c
		appLog = logger.New(c.Log.Level, c.Log.Format)
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (yaml, toml or json)")
}
