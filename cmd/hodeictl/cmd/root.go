package cmd

import (
	"github.com/spf13/cobra"

	"github.com/rubentxu/hodei-pipelines/internal/cliconfig"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "hodeictl",
	Short: "Operator CLI for the hodei-pipelines orchestrator",
	Long:  `hodeictl drives the orchestrator's REST façade: log in, submit and watch jobs, and manage pools, templates, and workers.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the hodeictl context file (default: ~/.hodeictl/config.json)")
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(jobCmd)
	rootCmd.AddCommand(poolCmd)
	rootCmd.AddCommand(templateCmd)
	rootCmd.AddCommand(workerCmd)
}

func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return cliconfig.DefaultPath()
}

func loadContext() (*cliconfig.Context, error) {
	path, err := resolveConfigPath()
	if err != nil {
		return nil, err
	}
	return cliconfig.Load(path)
}
