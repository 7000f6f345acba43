package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

const shellPrompt = "propscout> "

func newShellCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Run commands interactively",
		Long: `Read commands line by line and run each one as if it had been given on
the command line. Quoting follows the shell: search "round rock" --beds 3.
Type exit or quit (or send EOF) to leave.`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{noConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var base []string
			if a.configFile != "" {
				base = append(base, "--config", a.configFile)
			}
			return runShell(cmd.Context(), base, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
}

// runShell reads lines from in until EOF or exit and runs each with base
// prepended. Commands that prompt read their answers from the same reader.
func runShell(ctx context.Context, base []string, in io.Reader, out, errOut io.Writer) error {
	reader := bufio.NewReader(in)
	for {
		fmt.Fprint(out, shellPrompt)
		raw, err := reader.ReadString('\n')
		if err != nil && (err != io.EOF || raw == "") {
			fmt.Fprintln(out)
			if err == io.EOF {
				return nil
			}
			return err
		}
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		args, err := shellquote.Split(line)
		if err != nil {
			fmt.Fprintln(errOut, pterm.Error.Sprintf("cannot parse line: %v", err))
			continue
		}
		switch args[0] {
		case "exit", "quit":
			return nil
		case "shell":
			fmt.Fprintln(errOut, pterm.Warning.Sprint("already in the shell"))
			continue
		}

		root := NewRootCmd()
		root.SetArgs(append(append([]string(nil), base...), args...))
		root.SetIn(reader)
		root.SetOut(out)
		root.SetErr(errOut)
		if err := root.ExecuteContext(ctx); err != nil {
			PrintError(errOut, err)
		}
	}
}
