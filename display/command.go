package display

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/propscout/propscout/errors"
)

// Output formats selected by --json / --yaml.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// CallerEnv set to "agent" makes commands default to compact JSON.
const CallerEnv = "PROPSCOUT_CALLER"

// IsAgentCaller reports whether the CLI is driven by a program rather than a
// person.
func IsAgentCaller() bool {
	return os.Getenv(CallerEnv) == "agent"
}

// OutputFormat determines the output format from flags and caller detection.
func OutputFormat(cmd *cobra.Command) string {
	if cmd == nil {
		if IsAgentCaller() {
			return FormatJSON
		}
		return FormatText
	}

	flags := cmd.Flags()
	if yamlFlag, err := flags.GetBool("yaml"); err == nil && yamlFlag {
		return FormatYAML
	}
	if flags.Changed("json") {
		if jsonFlag, _ := flags.GetBool("json"); jsonFlag {
			return FormatJSON
		}
		return FormatText
	}
	if IsAgentCaller() {
		return FormatJSON
	}
	return FormatText
}

// ShouldOutputJSON is OutputFormat(cmd) == FormatJSON.
func ShouldOutputJSON(cmd *cobra.Command) bool {
	return OutputFormat(cmd) == FormatJSON
}

// Emit writes v as JSON or YAML according to the command's flags, or calls
// text for human output.
func Emit(cmd *cobra.Command, w io.Writer, v interface{}, text func(io.Writer) error) error {
	switch OutputFormat(cmd) {
	case FormatJSON:
		return OutputJSON(w, v)
	case FormatYAML:
		return OutputYAML(w, v)
	default:
		return text(w)
	}
}

// OutputJSON marshals and prints JSON using MarshalJSON.
func OutputJSON(w io.Writer, v interface{}) error {
	data, err := MarshalJSON(v)
	if err != nil {
		return errors.Wrap(err, "failed to marshal JSON")
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// OutputYAML prints v as YAML. Values are round-tripped through JSON so the
// json tags decide field names.
func OutputYAML(w io.Writer, v interface{}) error {
	generic, err := toGeneric(v)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return errors.Wrap(err, "failed to marshal YAML")
	}
	return enc.Close()
}
