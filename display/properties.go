package display

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pterm/pterm"

	"github.com/propscout/propscout/api"
	"github.com/propscout/propscout/compare"
	"github.com/propscout/propscout/internal/util"
)

// Price formats a dollar amount, or N/A.
func Price(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return "$" + util.Thousands(*v)
}

// Number formats an optional count without trailing zeros.
func Number(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// Int formats an optional integer.
func Int(v *int) string {
	if v == nil {
		return "N/A"
	}
	return strconv.Itoa(*v)
}

// Sqft formats an optional area.
func Sqft(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return util.Thousands(*v) + " sqft"
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

func table(w io.Writer, data pterm.TableData, header bool) error {
	t := pterm.DefaultTable.WithData(data)
	if header {
		t = t.WithHasHeader()
	}
	out, err := t.Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, out)
	return err
}

// SearchResults writes one row per property and a paging footer.
func SearchResults(w io.Writer, res *api.SearchResult) error {
	if len(res.Properties) == 0 {
		_, err := fmt.Fprintln(w, "No properties match your search.")
		return err
	}
	data := pterm.TableData{{"ID", "Address", "Price", "Beds", "Baths", "Size", "Type"}}
	for _, p := range res.Properties {
		data = append(data, []string{
			strconv.FormatInt(p.ID, 10),
			util.Truncate(p.FullAddress(), 48),
			Price(p.Price),
			Number(p.Bedrooms),
			Number(p.Bathrooms),
			Sqft(p.SquareFeet),
			orNA(p.PropertyType),
		})
	}
	if err := table(w, data, true); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, pterm.Gray(fmt.Sprintf("Page %d of %d (%d results)", max(res.Page, 1), res.Pages(), res.Total)))
	return err
}

// Property writes a property's attributes.
func Property(w io.Writer, p *api.Property) error {
	if _, err := fmt.Fprintln(w, pterm.Bold.Sprint(p.FullAddress())); err != nil {
		return err
	}
	data := pterm.TableData{
		{"Price", Price(p.Price)},
		{"Price / sqft", Price(p.PricePerSqft())},
		{"Bedrooms", Number(p.Bedrooms)},
		{"Bathrooms", Number(p.Bathrooms)},
		{"Size", Sqft(p.SquareFeet)},
		{"Lot", Sqft(p.LotSize)},
		{"Year built", Int(p.YearBuilt)},
		{"Type", orNA(p.PropertyType)},
		{"Status", orNA(p.ListingStatus)},
		{"Days on market", Int(p.DaysOnMarket)},
	}
	if p.ListingURL != "" {
		data = append(data, []string{"Listing", p.ListingURL})
	}
	if err := table(w, data, false); err != nil {
		return err
	}
	if p.Description != "" {
		_, err := fmt.Fprintln(w, "\n"+p.Description)
		return err
	}
	return nil
}

// SavedProperties writes the saved list.
func SavedProperties(w io.Writer, saved []api.SavedProperty) error {
	if len(saved) == 0 {
		_, err := fmt.Fprintln(w, "You have no saved properties.")
		return err
	}
	data := pterm.TableData{{"Saved ID", "Property", "Address", "Price", "Notes"}}
	for _, s := range saved {
		address, price := "N/A", "N/A"
		if s.Property != nil {
			address = util.Truncate(s.Property.FullAddress(), 40)
			price = Price(s.Property.Price)
		}
		data = append(data, []string{
			strconv.FormatInt(s.ID, 10),
			strconv.FormatInt(s.PropertyID, 10),
			address,
			price,
			util.Truncate(s.Notes, 40),
		})
	}
	return table(w, data, true)
}

// CustomLocations writes the user's locations.
func CustomLocations(w io.Writer, locs []api.CustomLocation) error {
	if len(locs) == 0 {
		_, err := fmt.Fprintln(w, "You have no custom locations.")
		return err
	}
	data := pterm.TableData{{"ID", "Name", "Address", "Coordinates"}}
	for _, l := range locs {
		coords := "N/A"
		if l.Latitude != nil && l.Longitude != nil {
			coords = fmt.Sprintf("%.5f, %.5f", *l.Latitude, *l.Longitude)
		}
		data = append(data, []string{strconv.FormatInt(l.ID, 10), l.Name, l.Address, coords})
	}
	return table(w, data, true)
}

// Preferences writes the user's search defaults.
func Preferences(w io.Writer, p *api.Preferences) error {
	list := func(v []string) string {
		if len(v) == 0 {
			return "Any"
		}
		return strings.Join(v, ", ")
	}
	bound := func(v *float64, format func(*float64) string) string {
		if v == nil {
			return "Any"
		}
		return format(v)
	}
	notifications := "Off"
	if p.EmailNotifications {
		notifications = "On"
	}
	return table(w, pterm.TableData{
		{"Min price", bound(p.MinPrice, Price)},
		{"Max price", bound(p.MaxPrice, Price)},
		{"Min bedrooms", bound(p.MinBedrooms, Number)},
		{"Min bathrooms", bound(p.MinBathrooms, Number)},
		{"Cities", list(p.PreferredCities)},
		{"Property types", list(p.PropertyTypes)},
		{"Email notifications", notifications},
	}, false)
}

// Comparison writes a side-by-side table; best values are starred.
func Comparison(w io.Writer, t *compare.Table) error {
	header := append([]string{""}, t.Headers...)
	data := pterm.TableData{header}
	for _, row := range t.Rows {
		line := []string{row.Label}
		for _, c := range row.Cells {
			if c.Best {
				line = append(line, pterm.Green("★ "+c.Value))
			} else {
				line = append(line, c.Value)
			}
		}
		data = append(data, line)
	}
	if err := table(w, data, true); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, pterm.Gray("Share code: "+t.Code))
	return err
}
