package api

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/propscout/propscout/auth"
	"github.com/propscout/propscout/enrichment"
)

// Property is a listing as returned by the backend.
type Property struct {
	ID            int64    `json:"id"`
	Address       string   `json:"address"`
	City          string   `json:"city"`
	State         string   `json:"state"`
	ZipCode       string   `json:"zip_code"`
	Price         *float64 `json:"price"`
	Bedrooms      *float64 `json:"bedrooms"`
	Bathrooms     *float64 `json:"bathrooms"`
	SquareFeet    *float64 `json:"square_feet"`
	LotSize       *float64 `json:"lot_size"`
	YearBuilt     *int     `json:"year_built"`
	PropertyType  string   `json:"property_type"`
	ListingStatus string   `json:"listing_status,omitempty"`
	DaysOnMarket  *int     `json:"days_on_market"`
	Description   string   `json:"description,omitempty"`
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
	ImageURL      string   `json:"image_url,omitempty"`
	ListingURL    string   `json:"listing_url,omitempty"`
}

// FullAddress joins the address parts that are present.
func (p Property) FullAddress() string {
	var parts []string
	for _, s := range []string{p.Address, p.City, strings.TrimSpace(p.State + " " + p.ZipCode)} {
		if strings.TrimSpace(s) != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

// PricePerSqft returns price divided by square feet, or nil when either is
// missing or zero.
func (p Property) PricePerSqft() *float64 {
	if p.Price == nil || p.SquareFeet == nil || *p.SquareFeet == 0 {
		return nil
	}
	v := *p.Price / *p.SquareFeet
	return &v
}

// SearchParams filters a property search. Zero values are omitted.
type SearchParams struct {
	Query        string
	City         string
	State        string
	ZipCode      string
	MinPrice     float64
	MaxPrice     float64
	MinBedrooms  float64
	MinBathrooms float64
	PropertyType string
	Sort         string
	Page         int
	PageSize     int
}

// Values encodes the non-zero parameters.
func (p SearchParams) Values() url.Values {
	v := url.Values{}
	setString := func(key, val string) {
		if s := strings.TrimSpace(val); s != "" {
			v.Set(key, s)
		}
	}
	setFloat := func(key string, val float64) {
		if val > 0 {
			v.Set(key, strconv.FormatFloat(val, 'f', -1, 64))
		}
	}
	setInt := func(key string, val int) {
		if val > 0 {
			v.Set(key, strconv.Itoa(val))
		}
	}
	setString("q", p.Query)
	setString("city", p.City)
	setString("state", p.State)
	setString("zip_code", p.ZipCode)
	setFloat("min_price", p.MinPrice)
	setFloat("max_price", p.MaxPrice)
	setFloat("min_bedrooms", p.MinBedrooms)
	setFloat("min_bathrooms", p.MinBathrooms)
	setString("property_type", p.PropertyType)
	setString("sort", p.Sort)
	setInt("page", p.Page)
	setInt("page_size", p.PageSize)
	return v
}

// SearchResult is one page of search results.
type SearchResult struct {
	Properties []Property `json:"properties"`
	Total      int        `json:"total"`
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
}

// Pages returns the number of pages for Total at PageSize.
func (r SearchResult) Pages() int {
	if r.PageSize <= 0 || r.Total <= 0 {
		return 1
	}
	return (r.Total + r.PageSize - 1) / r.PageSize
}

// EnrichRequest asks the backend to run its providers for a property.
type EnrichRequest struct {
	ForceRefresh bool     `json:"force_refresh"`
	Providers    []string `json:"providers,omitempty"`
}

// SavedProperty is a property on the user's saved list.
type SavedProperty struct {
	ID         int64     `json:"id"`
	PropertyID int64     `json:"property_id"`
	Notes      string    `json:"notes"`
	SavedAt    string    `json:"saved_at,omitempty"`
	Property   *Property `json:"property,omitempty"`
}

// Preferences are the user's search defaults.
type Preferences struct {
	MinPrice            *float64 `json:"min_price"`
	MaxPrice            *float64 `json:"max_price"`
	MinBedrooms         *float64 `json:"min_bedrooms"`
	MinBathrooms        *float64 `json:"min_bathrooms"`
	PreferredCities     []string `json:"preferred_cities"`
	PropertyTypes       []string `json:"property_types"`
	EmailNotifications  bool     `json:"email_notifications"`
	EnrichmentProviders []string `json:"enrichment_providers,omitempty"`
}

// CustomLocation is a user-defined place the distance provider measures to.
type CustomLocation struct {
	ID        int64    `json:"id,omitempty"`
	Name      string   `json:"name"`
	Address   string   `json:"address"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// Health is the backend health response.
type Health struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// Credentials log a user in.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration creates an account.
type Registration struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// AuthResponse is returned by login, register and refresh.
type AuthResponse struct {
	auth.Tokens
	User *auth.User `json:"user,omitempty"`
}

// EnrichmentResponse is the enrichment endpoint body.
type EnrichmentResponse = enrichment.Response
