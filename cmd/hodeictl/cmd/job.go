package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

var jobCmd = &cobra.Command{
	Use:   "job",
	Short: "Submit and observe jobs",
}

var (
	jobTemplateID string
	jobPoolID     string
	jobStrategy   string
)

var jobSubmitCmd = &cobra.Command{
	Use:   "submit <name>",
	Short: "Submit a new job",
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

		var job map[string]interface{}
		if err := client.do("POST", "/api/v1/jobs", map[string]interface{}{
			"name":        args[0],
			"template_id": jobTemplateID,
			"pool_id":     jobPoolID,
			"strategy":    jobStrategy,
		}, &job); err != nil {
			return err
		}
		return printJSON(job)
	},
}

var jobGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a job's current status",
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
		var job map[string]interface{}
		if err := client.do("GET", "/api/v1/jobs/"+args[0], nil, &job); err != nil {
			return err
		}
		return printJSON(job)
	},
}

var jobListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all jobs",
	RunE: func(c *cobra.Command, args []string) error {
		ctx, err := loadContext()
		if err != nil {
			return err
		}
		client, err := newAPIClient(ctx)
		if err != nil {
			return err
		}
		var jobs []map[string]interface{}
		if err := client.do("GET", "/api/v1/jobs", nil, &jobs); err != nil {
			return err
		}
		return printJSON(jobs)
	},
}

var jobCancelCmd = &cobra.Command{
	Use:   "cancel <id>",
	Short: "Cancel a running job",
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
		return client.do("POST", "/api/v1/jobs/"+args[0]+"/cancel", nil, nil)
	},
}

var jobLogsCmd = &cobra.Command{
	Use:   "logs <id>",
	Short: "Stream a job's logs",
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
		return client.stream("GET", "/api/v1/jobs/"+args[0]+"/logs")
	},
}

func init() {
	jobSubmitCmd.Flags().StringVar(&jobTemplateID, "template", "", "Template id to run")
	jobSubmitCmd.Flags().StringVar(&jobPoolID, "pool", "", "Pool id to schedule onto (default: let the scheduler pick)")
	jobSubmitCmd.Flags().StringVar(&jobStrategy, "strategy", "", "Scheduling strategy (default: least-loaded)")

	jobCmd.AddCommand(jobSubmitCmd, jobGetCmd, jobListCmd, jobCancelCmd, jobLogsCmd)
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// stream issues a GET expecting a text/event-stream body and prints each
// frame as it arrives until the server closes the connection.
func (c *apiClient) stream(method, path string) error {
	req, err := http.NewRequest(method, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		fmt.Println(scanner.Text())
	}
	return scanner.Err()
}
