package cmd

import (
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rubentxu/hodei-pipelines/internal/cliconfig"
)

var loginServerURL string

var loginCmd = &cobra.Command{
	Use:   "login <username>",
	Short: "Authenticate against a hodei-pipelines server",
	Args:  cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		username := args[0]

		if !term.IsTerminal(int(syscall.Stdin)) {
			return fmt.Errorf("interactive password prompting requires a terminal")
		}
		fmt.Fprint(os.Stderr, "Password: ")
		passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}

		ctx := &cliconfig.Context{ServerURL: loginServerURL}
		client, err := newAPIClient(ctx)
		if err != nil {
			return err
		}

		var resp struct {
			Token    string `json:"token"`
			Username string `json:"username"`
		}
		if err := client.do("POST", "/auth/login", map[string]string{
			"username": username,
			"password": string(passwordBytes),
		}, &resp); err != nil {
			return err
		}

		ctx.Token = resp.Token
		ctx.Username = resp.Username
		path, err := resolveConfigPath()
		if err != nil {
			return err
		}
		if err := ctx.Save(path); err != nil {
			return err
		}

		fmt.Printf("Logged in as %s\n", resp.Username)
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginServerURL, "server", "http://localhost:8080", "Orchestrator server URL")
}
