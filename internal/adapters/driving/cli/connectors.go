package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
)

var connectorsCmd = &cobra.Command{
	Use:   "connectors [name]",
	Short: "List the available connectors",
	Long: `List the connectors a sync configuration can use. Given a name, print
the parameters that connector understands.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConnectors,
}

func init() {
	rootCmd.AddCommand(connectorsCmd)
}

func runConnectors(cmd *cobra.Command, args []string) error {
	if configurationService == nil {
		return errConfigurationsMissing
	}

	if len(args) == 1 {
		def, ok := findDefinition(args[0])
		if !ok {
			return fmt.Errorf("connector %q: %w", args[0], domain.ErrUnsupportedType)
		}
		printDefinition(cmd, def)
		return nil
	}

	defs := configurationService.Connectors()
	rows := make([][]string, 0, len(defs))
	for _, def := range defs {
		keys := make([]string, 0, len(def.ConfigKeys))
		for _, k := range def.ConfigKeys {
			if k.Required {
				keys = append(keys, k.Key+"*")
			} else {
				keys = append(keys, k.Key)
			}
		}
		rows = append(rows, []string{
			def.Name,
			def.Title,
			string(def.AuthMethod),
			yesNo(def.HasFolders),
			strings.Join(keys, ", "),
		})
	}
	renderTable(cmd.OutOrStdout(), []string{"Name", "Title", "Auth", "Folders", "Parameters"}, rows)
	cmd.Println("* required")
	return nil
}

func printDefinition(cmd *cobra.Command, def domain.ConnectorDefinition) {
	cmd.Printf("%s (%s)\n", def.Title, def.Name)
	if def.Description != "" {
		cmd.Println(def.Description)
	}
	cmd.Println()
	cmd.Printf("Authentication: %s\n", def.AuthMethod)
	cmd.Printf("Folder selection: %s\n", yesNo(def.HasFolders))
	if def.External {
		cmd.Println("Content is fetched by the destination from its link.")
	}
	cmd.Println()

	rows := make([][]string, 0, len(def.ConfigKeys))
	for _, k := range def.ConfigKeys {
		dflt := k.Default
		if dflt == "" {
			dflt = "-"
		}
		rows = append(rows, []string{k.Key, k.Label, yesNo(k.Required), dflt, truncate(k.Description, 60)})
	}
	renderTable(cmd.OutOrStdout(), []string{"Key", "Label", "Required", "Default", "Description"}, rows)
}
