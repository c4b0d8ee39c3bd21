package cmd

import "github.com/spf13/cobra"

var poolCmd = &cobra.Command{
	Use:   "pool",
	Short: "Manage resource pools",
}

var poolListCmd = &cobra.Command{
	Use:   "list",
	Short: "List resource pools",
	RunE: func(c *cobra.Command, args []string) error {
		ctx, err := loadContext()
		if err != nil {
			return err
		}
		client, err := newAPIClient(ctx)
		if err != nil {
			return err
		}
		var pools []map[string]interface{}
		if err := client.do("GET", "/api/v1/pools", nil, &pools); err != nil {
			return err
		}
		return printJSON(pools)
	},
}

var (
	poolType string
	poolCPU  string
	poolMem  string
)

var poolCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a resource pool",
	Args:  cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		ctx, err := loadContext()
		if err != nil {
			return err
		}
		client, err := newAPIClient(ctx)
		if err != nil {
			return err
		}
		var pool map[string]interface{}
		if err := client.do("POST", "/api/v1/pools", map[string]interface{}{
			"name": args[0],
			"type": poolType,
			"capacity": map[string]string{
				"cpu":    poolCPU,
				"memory": poolMem,
			},
		}, &pool); err != nil {
			return err
		}
		return printJSON(pool)
	},
}

func init() {
	poolCreateCmd.Flags().StringVar(&poolType, "type", "docker", "Pool type")
	poolCreateCmd.Flags().StringVar(&poolCPU, "cpu", "4", "Total CPU capacity")
	poolCreateCmd.Flags().StringVar(&poolMem, "memory", "8Gi", "Total memory capacity")

	poolCmd.AddCommand(poolListCmd, poolCreateCmd)
}
