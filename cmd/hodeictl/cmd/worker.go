package cmd

import "github.com/spf13/cobra"

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "List connected workers",
}

var workerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List currently connected workers",
	RunE: func(c *cobra.Command, args []string) error {
		ctx, err := loadContext()
		if err != nil {
			return err
		}
		client, err := newAPIClient(ctx)
		if err != nil {
			return err
		}
		var workers []map[string]interface{}
		if err := client.do("GET", "/api/v1/workers", nil, &workers); err != nil {
			return err
		}
		return printJSON(workers)
	},
}

func init() {
	workerCmd.AddCommand(workerListCmd)
}
