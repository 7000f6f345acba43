package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/pterm/pterm"

	"github.com/propscout/propscout/enrichment"
	"github.com/propscout/propscout/enrichment/view"
)

// Views writes enrichment views as titled label/value blocks.
func Views(w io.Writer, views []view.View) error {
	if len(views) == 0 {
		_, err := fmt.Fprintln(w, pterm.Gray("No enrichment data available for this property."))
		return err
	}
	var b strings.Builder
	for i, v := range views {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(heading(v.Icon+" "+v.Title, v.Cached))
		if v.Empty() {
			b.WriteString("  " + pterm.Gray(view.NA) + "\n")
			continue
		}
		writeFields(&b, v.Fields, "  ")
		for _, p := range v.Parts {
			b.WriteString("  " + heading(p.Title, p.Cached))
			writeFields(&b, p.Fields, "    ")
		}
		for _, item := range v.Items {
			line := "  • " + pterm.Bold.Sprint(item.Title)
			if item.Subtitle != "" && item.Subtitle != view.NA {
				line += " " + pterm.Gray("("+item.Subtitle+")")
			}
			b.WriteString(line + "\n")
			writeFields(&b, item.Fields, "      ")
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// Failures writes one warning line per selection failure.
func Failures(w io.Writer, failures []enrichment.Failure) error {
	for _, f := range failures {
		if _, err := fmt.Fprintln(w, pterm.Warning.Sprintf("%s could not be shown: %v", f.Descriptor, f.Err)); err != nil {
			return err
		}
	}
	return nil
}

// EnrichmentSummary is a one-line run summary, e.g. "5/7 providers succeeded, 3 cached".
func EnrichmentSummary(m enrichment.Metadata) string {
	return fmt.Sprintf("%d/%d providers succeeded, %d cached", m.SuccessfulProviders, m.TotalProviders, m.CachedProviders)
}

func heading(title string, cached bool) string {
	s := pterm.Bold.Sprint(title)
	if cached {
		s += " " + pterm.Gray("(cached)")
	}
	return s + "\n"
}

func writeFields(b *strings.Builder, fields []view.Field, indent string) {
	width := 0
	for _, f := range fields {
		if n := len([]rune(f.Label)); n > width {
			width = n
		}
	}
	for _, f := range fields {
		pad := strings.Repeat(" ", width-len([]rune(f.Label)))
		value := f.Value
		if value == view.NA {
			value = pterm.Gray(value)
		}
		fmt.Fprintf(b, "%s%s%s  %s\n", indent, pterm.Cyan(f.Label), pad, value)
	}
}
