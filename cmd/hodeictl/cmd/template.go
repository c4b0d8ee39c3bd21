package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/rubentxu/hodei-pipelines/internal/template"
)

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Manage pipeline templates",
}

var templateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List templates",
	RunE: func(c *cobra.Command, args []string) error {
		ctx, err := loadContext()
		if err != nil {
			return err
		}
		client, err := newAPIClient(ctx)
		if err != nil {
			return err
		}
		var templates []map[string]interface{}
		if err := client.do("GET", "/api/v1/templates", nil, &templates); err != nil {
			return err
		}
		return printJSON(templates)
	},
}

var (
	templateVersion string
	templateShell    []string
	templatePublish  bool
)

var templateCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a shell-based template",
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
		var tmpl map[string]interface{}
		if err := client.do("POST", "/api/v1/templates", map[string]interface{}{
			"name":    args[0],
			"version": templateVersion,
			"publish": templatePublish,
			"shell": map[string]interface{}{
				"commands": templateShell,
			},
		}, &tmpl); err != nil {
			return err
		}
		return printJSON(tmpl)
	},
}

var templateApplyFile string

var templateApplyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Create or update a template from a YAML manifest",
	RunE: func(c *cobra.Command, args []string) error {
		data, err := os.ReadFile(templateApplyFile)
		if err != nil {
			return err
		}
		manifest, err := template.ParseManifest(data)
		if err != nil {
			return err
		}

		ctx, err := loadContext()
		if err != nil {
			return err
		}
		client, err := newAPIClient(ctx)
		if err != nil {
			return err
		}

		body := map[string]interface{}{
			"name":    manifest.Name,
			"version": manifest.Version,
			"publish": manifest.Publish,
		}
		if manifest.Shell != nil {
			body["shell"] = map[string]interface{}{"commands": manifest.Shell.Commands, "env": manifest.Shell.Env}
		}
		if manifest.Script != nil {
			body["script"] = map[string]interface{}{"body": manifest.Script.Body, "env": manifest.Script.Env}
		}

		var tmpl map[string]interface{}
		if err := client.do("POST", "/api/v1/templates", body, &tmpl); err != nil {
			return err
		}
		return printJSON(tmpl)
	},
}

func init() {
	templateCreateCmd.Flags().StringVar(&templateVersion, "version", "1.0.0", "Template version")
	templateCreateCmd.Flags().StringSliceVar(&templateShell, "command", nil, "Shell command to run (repeatable)")
	templateCreateCmd.Flags().BoolVar(&templatePublish, "publish", false, "Publish immediately so jobs can reference it")
	templateApplyCmd.Flags().StringVarP(&templateApplyFile, "file", "f", "", "Path to a template manifest (YAML)")
	templateApplyCmd.MarkFlagRequired("file")

	templateCmd.AddCommand(templateListCmd, templateCreateCmd, templateApplyCmd)
}
