package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/propscout/propscout/api"
	"github.com/propscout/propscout/compare"
	"github.com/propscout/propscout/display"
	"github.com/propscout/propscout/enrichment"
	"github.com/propscout/propscout/enrichment/view"
	"github.com/propscout/propscout/errors"
)

func newSearchCmd(a *app) *cobra.Command {
	var params api.SearchParams
	cmd := &cobra.Command{
		Use:   "search [query...]",
		Short: "Search listings",
		Example: `  propscout search --city Austin --beds 3 --max-price 600000
  propscout search "craftsman bungalow" --sort price_asc --page 2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			params.Query = strings.Join(args, " ")
			u, err := a.user(cmd.Context())
			if err != nil {
				return err
			}
			res, err := u.Search(cmd.Context(), params)
			if err != nil {
				return err
			}
			return display.Emit(cmd, cmd.OutOrStdout(), res, func(w io.Writer) error {
				return display.SearchResults(w, res)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&params.City, "city", "", "City")
	f.StringVar(&params.State, "state", "", "Two-letter state code")
	f.StringVar(&params.ZipCode, "zip", "", "ZIP code")
	f.Float64Var(&params.MinPrice, "min-price", 0, "Minimum price")
	f.Float64Var(&params.MaxPrice, "max-price", 0, "Maximum price")
	f.Float64Var(&params.MinBedrooms, "beds", 0, "Minimum bedrooms")
	f.Float64Var(&params.MinBathrooms, "baths", 0, "Minimum bathrooms")
	f.StringVar(&params.PropertyType, "type", "", "Property type (house, condo, townhouse, ...)")
	f.StringVar(&params.Sort, "sort", "", "Sort order (price_asc, price_desc, newest, sqft_desc)")
	f.IntVar(&params.Page, "page", 1, "Result page")
	f.IntVar(&params.PageSize, "page-size", 0, "Results per page (default server.page_size)")
	return cmd
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <property-id>",
		Short: "Show one property",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			u, err := a.user(cmd.Context())
			if err != nil {
				return err
			}
			p, err := u.Property(cmd.Context(), id)
			if err != nil {
				return err
			}
			return display.Emit(cmd, cmd.OutOrStdout(), p, func(w io.Writer) error {
				return display.Property(w, p)
			})
		},
	}
}

func newEnrichCmd(a *app) *cobra.Command {
	var req api.EnrichRequest
	cmd := &cobra.Command{
		Use:   "enrich <property-id>",
		Short: "Show neighbourhood data for a property",
		Long: `Run the backend enrichment providers for a property and show each
section: walkability, air quality, climate, flood zone, transportation,
nearby places and distances to your own locations.

Sections marked (cached) were served from the backend cache; use --refresh
to bypass it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			u, err := a.user(cmd.Context())
			if err != nil {
				return err
			}

			stop := startSpinner(cmd, fmt.Sprintf("Enriching property %d", id))
			resp, err := u.Enrich(cmd.Context(), id, req)
			stop(err == nil)
			if err != nil {
				return err
			}

			report := view.NewReport(resp, enrichment.DefaultRegistry())
			return display.Emit(cmd, cmd.OutOrStdout(), report, func(w io.Writer) error {
				return printReport(w, report)
			})
		},
	}
	cmd.Flags().BoolVar(&req.ForceRefresh, "refresh", false, "Bypass the backend cache")
	cmd.Flags().StringSliceVar(&req.Providers, "providers", nil, "Only run these providers (comma separated)")
	return cmd
}

func printReport(w io.Writer, r *view.Report) error {
	if err := display.Views(w, r.Views); err != nil {
		return err
	}
	if err := display.Failures(w, r.Selection.Failures); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, pterm.Gray(display.EnrichmentSummary(r.Metadata)))
	return err
}

// startSpinner shows progress on an interactive stderr for human output and
// returns the function that stops it.
func startSpinner(cmd *cobra.Command, text string) func(ok bool) {
	f, isFile := cmd.ErrOrStderr().(*os.File)
	if !isFile || !term.IsTerminal(int(f.Fd())) || display.OutputFormat(cmd) != display.FormatText {
		return func(bool) {}
	}
	spinner, err := pterm.DefaultSpinner.WithWriter(f).WithRemoveWhenDone(true).Start(text)
	if err != nil {
		return func(bool) {}
	}
	return func(ok bool) {
		if ok {
			spinner.Success()
		} else {
			spinner.Fail()
		}
	}
}

func newCompareCmd(a *app) *cobra.Command {
	var code string
	cmd := &cobra.Command{
		Use:   "compare <id> <id> [id...]",
		Short: "Compare two to four properties side by side",
		Long: `Compare two to four properties. The best value of each ranked row is
starred. The printed share code opens the same comparison on the web
interface at /compare/<code>, or here with --code.`,
		Example: `  propscout compare 1842 1907 2011
  propscout compare 1842,1907
  propscout compare --code 3yQeR`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := compareIDs(args, code)
			if err != nil {
				return err
			}
			u, err := a.user(cmd.Context())
			if err != nil {
				return err
			}
			table, err := comparison(cmd.Context(), u, ids)
			if err != nil {
				return err
			}
			return display.Emit(cmd, cmd.OutOrStdout(), table, func(w io.Writer) error {
				if err := display.Comparison(w, table); err != nil {
					return err
				}
				_, err := fmt.Fprintf(w, "Share code: %s\n", table.Code)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&code, "code", "", "Share code of an earlier comparison")
	return cmd
}

func compareIDs(args []string, code string) ([]int64, error) {
	if code != "" {
		if len(args) > 0 {
			return nil, errors.Wrap(errors.ErrInvalidRequest, "pass property IDs or --code, not both")
		}
		return compare.Decode(code)
	}
	return compare.ParseIDs(args)
}

func comparison(ctx context.Context, u *api.UserClient, ids []int64) (*compare.Table, error) {
	props, err := u.Properties(ctx, ids)
	if err != nil {
		return nil, err
	}
	return compare.Build(props)
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.Wrapf(errors.ErrInvalidRequest, "invalid id %q", arg)
	}
	return id, nil
}
