package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/propscout/propscout/display"
	"github.com/propscout/propscout/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{noConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.Get()
			return display.Emit(cmd, cmd.OutOrStdout(), info, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "%s\n%s %s\n", info, info.GoVersion, info.Platform)
				return err
			})
		},
	}
}
