package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/propscout/propscout/config"
	"github.com/propscout/propscout/display"
	"github.com/propscout/propscout/errors"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and change configuration",
	}

	var (
		format  string
		sources bool
	)
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if sources {
				settings := a.cfg.Settings()
				return display.Emit(cmd, cmd.OutOrStdout(), settings, func(w io.Writer) error {
					return printSettings(w, settings)
				})
			}
			if f := display.OutputFormat(cmd); f != display.FormatText {
				format = f
			}
			data, err := a.cfg.Render(format)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	show.Flags().StringVar(&format, "format", config.FormatTOML, "Output format: toml, json or yaml")
	show.Flags().BoolVar(&sources, "sources", false, "Show where each value comes from")

	get := &cobra.Command{
		Use:   "get <key>",
		Short: "Print one setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := strings.ToLower(args[0])
			value, ok := a.cfg.Get(key)
			if !ok {
				return errors.WithHint(errors.Wrapf(errors.ErrNotFound, "unknown config key %q", key),
					"run 'propscout config show --sources' to list keys")
			}
			setting := config.SettingInfo{Key: key, Value: value}
			if src, ok := a.cfg.Sources[key]; ok {
				setting.Source, setting.SourcePath = src.Source, src.Path
			}
			return display.Emit(cmd, cmd.OutOrStdout(), setting, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "%v\n", value)
				return err
			})
		},
	}

	var project bool
	set := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Write one setting to the user or project config file",
		Example: `  propscout config set backend.url https://listings.example.com
  propscout config set --project server.page_size 50`,
		Args:        cobra.ExactArgs(2),
		Annotations: map[string]string{noConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.UserFile()
			if project {
				wd, err := os.Getwd()
				if err != nil {
					return errors.Wrap(err, "failed to get working directory")
				}
				if path = config.ProjectFile(wd); path == "" {
					path = config.ProjectFileName
				}
			}
			if path == "" {
				return errors.New("cannot locate the user config directory")
			}
			key := strings.ToLower(args[0])
			if err := config.Set(path, key, config.ParseValue(args[1])); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), pterm.Success.Sprintf("Set %s in %s", key, path))
			return nil
		},
	}
	set.Flags().BoolVar(&project, "project", false, "Write to propscout.toml instead of ~/.propscout/config.toml")

	validate := &cobra.Command{
		Use:         "validate",
		Short:       "Check that the configuration loads",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{noConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := config.Load(config.Options{ConfigFile: a.configFile})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), pterm.Success.Sprintf("Configuration is valid (%d files)", len(res.Files)))
			return nil
		},
	}

	where := &cobra.Command{
		Use:         "where",
		Short:       "List the config files that are searched, in precedence order",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{noConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			wd, _ := os.Getwd()
			files := []configFile{
				{Source: config.SourceUser, Path: config.UserFile()},
				{Source: config.SourceProject, Path: config.ProjectFile(wd)},
				{Source: config.SourceFile, Path: a.configFile},
			}
			for i := range files {
				if files[i].Path != "" {
					_, err := os.Stat(files[i].Path)
					files[i].Exists = err == nil
				}
			}
			return display.Emit(cmd, cmd.OutOrStdout(), files, func(w io.Writer) error {
				for _, f := range files {
					state := "not found"
					switch {
					case f.Path == "":
						f.Path, state = "-", "not set"
					case f.Exists:
						state = "loaded"
					}
					fmt.Fprintf(w, "%-8s %-10s %s\n", f.Source, state, f.Path)
				}
				fmt.Fprintf(w, "%-8s %-10s %s_*\n", config.SourceEnvironment, "", config.EnvPrefix)
				return nil
			})
		},
	}

	cmd.AddCommand(show, get, set, validate, where)
	return cmd
}

type configFile struct {
	Source config.Source `json:"source" yaml:"source"`
	Path   string        `json:"path" yaml:"path"`
	Exists bool          `json:"exists" yaml:"exists"`
}

func printSettings(w io.Writer, settings []config.SettingInfo) error {
	data := pterm.TableData{{"Key", "Value", "Source"}}
	for _, s := range settings {
		src := string(s.Source)
		if s.SourcePath != "" {
			src += " (" + s.SourcePath + ")"
		}
		data = append(data, []string{s.Key, fmt.Sprintf("%v", s.Value), src})
	}
	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, out)
	return err
}
