package commands

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/propscout/propscout/mcptools"
	"github.com/propscout/propscout/version"
)

func newMCPCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve search and enrichment as MCP tools on stdio",
		Long: `Run a Model Context Protocol server on stdin/stdout with the tools
search_properties, get_property, enrich_property and compare_properties.
Calls use the session of 'propscout login'. Logs go to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pterm.DisableStyling()
			u, err := a.user(cmd.Context())
			if err != nil {
				return err
			}
			return mcptools.New(u, nil, version.Version, a.log).Serve()
		},
	}
}
