package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/propscout/propscout/api"
	"github.com/propscout/propscout/display"
	"github.com/propscout/propscout/errors"
)

func newSavedCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "saved",
		Short: "Manage saved properties",
	}

	ls := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List saved properties",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := a.user(cmd.Context())
			if err != nil {
				return err
			}
			saved, err := u.SavedProperties(cmd.Context())
			if err != nil {
				return err
			}
			return display.Emit(cmd, cmd.OutOrStdout(), saved, func(w io.Writer) error {
				return display.SavedProperties(w, saved)
			})
		},
	}

	var notes string
	add := &cobra.Command{
		Use:   "add <property-id>",
		Short: "Save a property",
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
			saved, err := u.SaveProperty(cmd.Context(), id, notes)
			if err != nil {
				return err
			}
			return display.Emit(cmd, cmd.OutOrStdout(), saved, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, pterm.Success.Sprintf("Saved property %d (saved id %d)", saved.PropertyID, saved.ID))
				return err
			})
		},
	}
	add.Flags().StringVar(&notes, "notes", "", "Notes to keep with the property")

	note := &cobra.Command{
		Use:   "note <saved-id> <notes...>",
		Short: "Replace the notes of a saved property",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			u, err := a.user(cmd.Context())
			if err != nil {
				return err
			}
			saved, err := u.UpdateNotes(cmd.Context(), id, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			return display.Emit(cmd, cmd.OutOrStdout(), saved, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, pterm.Success.Sprint("Notes updated"))
				return err
			})
		},
	}

	rm := &cobra.Command{
		Use:     "rm <saved-id>",
		Aliases: []string{"remove"},
		Short:   "Remove a property from the saved list",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			u, err := a.user(cmd.Context())
			if err != nil {
				return err
			}
			if err := u.UnsaveProperty(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), pterm.Success.Sprint("Removed"))
			return nil
		},
	}

	cmd.AddCommand(ls, add, note, rm)
	return cmd
}

func newPrefsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show or change search preferences",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show search preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := a.user(cmd.Context())
			if err != nil {
				return err
			}
			prefs, err := u.Preferences(cmd.Context())
			if err != nil {
				return err
			}
			return display.Emit(cmd, cmd.OutOrStdout(), prefs, func(w io.Writer) error {
				return display.Preferences(w, prefs)
			})
		},
	}

	var (
		minPrice, maxPrice, beds, baths float64
		cities, types, providers        []string
		notify                          bool
	)
	set := &cobra.Command{
		Use:   "set",
		Short: "Change search preferences",
		Long: `Change search preferences. Only the flags given are changed; pass a
negative number to clear a bound and an empty list to clear a list.`,
		Example: `  propscout prefs set --max-price 650000 --cities Austin,Round\ Rock
  propscout prefs set --min-price -1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := a.user(cmd.Context())
			if err != nil {
				return err
			}
			prefs, err := u.Preferences(cmd.Context())
			if err != nil {
				return err
			}

			f := cmd.Flags()
			bound := func(name string, v float64, dst **float64) {
				if !f.Changed(name) {
					return
				}
				if v < 0 {
					*dst = nil
					return
				}
				*dst = &v
			}
			bound("min-price", minPrice, &prefs.MinPrice)
			bound("max-price", maxPrice, &prefs.MaxPrice)
			bound("beds", beds, &prefs.MinBedrooms)
			bound("baths", baths, &prefs.MinBathrooms)
			if f.Changed("cities") {
				prefs.PreferredCities = cities
			}
			if f.Changed("types") {
				prefs.PropertyTypes = types
			}
			if f.Changed("providers") {
				prefs.EnrichmentProviders = providers
			}
			if f.Changed("email-notifications") {
				prefs.EmailNotifications = notify
			}
			if prefs.MinPrice != nil && prefs.MaxPrice != nil && *prefs.MinPrice > *prefs.MaxPrice {
				return errors.Wrap(errors.ErrInvalidRequest, "minimum price must not exceed maximum price")
			}

			updated, err := u.UpdatePreferences(cmd.Context(), *prefs)
			if err != nil {
				return err
			}
			return display.Emit(cmd, cmd.OutOrStdout(), updated, func(w io.Writer) error {
				return display.Preferences(w, updated)
			})
		},
	}
	f := set.Flags()
	f.Float64Var(&minPrice, "min-price", 0, "Minimum price")
	f.Float64Var(&maxPrice, "max-price", 0, "Maximum price")
	f.Float64Var(&beds, "beds", 0, "Minimum bedrooms")
	f.Float64Var(&baths, "baths", 0, "Minimum bathrooms")
	f.StringSliceVar(&cities, "cities", nil, "Preferred cities")
	f.StringSliceVar(&types, "types", nil, "Property types")
	f.StringSliceVar(&providers, "providers", nil, "Enrichment providers to run")
	f.BoolVar(&notify, "email-notifications", false, "Email me about new matches")

	cmd.AddCommand(show, set)
	return cmd
}

func newLocationsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "locations",
		Short: "Manage the places distances are measured to",
	}

	ls := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List custom locations",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := a.user(cmd.Context())
			if err != nil {
				return err
			}
			locs, err := u.CustomLocations(cmd.Context())
			if err != nil {
				return err
			}
			return display.Emit(cmd, cmd.OutOrStdout(), locs, func(w io.Writer) error {
				return display.CustomLocations(w, locs)
			})
		},
	}

	var lat, lon float64
	add := &cobra.Command{
		Use:     "add <name> <address>",
		Short:   "Add a custom location",
		Example: `  propscout locations add Work "500 W 2nd St, Austin, TX"`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			loc := api.CustomLocation{Name: strings.TrimSpace(args[0]), Address: strings.TrimSpace(args[1])}
			if loc.Name == "" || loc.Address == "" {
				return errors.Wrap(errors.ErrInvalidRequest, "name and address are required")
			}
			f := cmd.Flags()
			if f.Changed("lat") != f.Changed("lon") {
				return errors.Wrap(errors.ErrInvalidRequest, "give both --lat and --lon, or neither")
			}
			if f.Changed("lat") {
				loc.Latitude, loc.Longitude = &lat, &lon
			}

			u, err := a.user(cmd.Context())
			if err != nil {
				return err
			}
			created, err := u.AddCustomLocation(cmd.Context(), loc)
			if err != nil {
				return err
			}
			return display.Emit(cmd, cmd.OutOrStdout(), created, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, pterm.Success.Sprintf("Added %s (id %d)", created.Name, created.ID))
				return err
			})
		},
	}
	add.Flags().Float64Var(&lat, "lat", 0, "Latitude")
	add.Flags().Float64Var(&lon, "lon", 0, "Longitude")

	rm := &cobra.Command{
		Use:     "rm <location-id>",
		Aliases: []string{"remove"},
		Short:   "Delete a custom location",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			u, err := a.user(cmd.Context())
			if err != nil {
				return err
			}
			if err := u.DeleteCustomLocation(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), pterm.Success.Sprint("Deleted"))
			return nil
		},
	}

	cmd.AddCommand(ls, add, rm)
	return cmd
}
