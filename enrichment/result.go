// Package enrichment turns the backend's property-enrichment response into an
// ordered list of typed sections.
//
// The backend runs a set of independent providers (walk score, air quality,
// flood zone, ...) for one property and returns one ProviderResult per
// provider name. A Registry of Descriptors decides which sections are visible
// for a given ResultSet, in which order, and parses each visible provider's
// payload into a typed Section. Presentation lives in enrichment/view.
package enrichment

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/propscout/propscout/errors"
)

// Provider names used as keys in the enrichment_data map.
const (
	ProviderWalkScore    = "walk_score_provider"
	ProviderAirQuality   = "air_quality_provider"
	ProviderClimate      = "annual_average_climate_provider"
	ProviderFloodZone    = "flood_zone_provider"
	ProviderHighway      = "highway_provider"
	ProviderRailroad     = "railroad_provider"
	ProviderPlacesNearby = "places_nearby_provider"
	ProviderDistance     = "distance_provider"
)

// ProviderResult is the outcome of one provider for one property.
// Data is opaque here; it is only read after Success is checked, and its shape
// is validated by the provider-specific parse function.
type ProviderResult struct {
	Success    bool            `json:"success"`
	Cached     bool            `json:"cached"`
	Data       json.RawMessage `json:"data,omitempty"`
	Error      *string         `json:"error,omitempty"`
	EnrichedAt *Timestamp      `json:"enriched_at,omitempty"`
}

// HasData reports whether the result carries a non-null payload.
func (r ProviderResult) HasData() bool {
	trimmed := bytes.TrimSpace(r.Data)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// ResultSet maps provider name to result. A missing name means the provider
// did not run; it is never distinguished from a failed or empty result.
type ResultSet map[string]ProviderResult

// Get returns the result for a provider. Safe on a nil set.
func (rs ResultSet) Get(provider string) (ProviderResult, bool) {
	res, ok := rs[provider]
	return res, ok
}

// Has reports whether the provider appears in the set at all.
func (rs ResultSet) Has(provider string) bool {
	_, ok := rs[provider]
	return ok
}

// Succeeded reports whether the provider ran and succeeded.
func (rs ResultSet) Succeeded(provider string) bool {
	res, ok := rs[provider]
	return ok && res.Success
}

// Metadata summarises one enrichment run as reported by the backend.
type Metadata struct {
	TotalProviders      int `json:"total_providers"`
	SuccessfulProviders int `json:"successful_providers"`
	FailedProviders     int `json:"failed_providers"`
	TotalAPICalls       int `json:"total_api_calls"`
	CachedProviders     int `json:"cached_providers"`
}

// Enrichment is the enrichment block of the backend response.
type Enrichment struct {
	Success  bool      `json:"success"`
	Data     ResultSet `json:"enrichment_data"`
	Metadata Metadata  `json:"metadata"`
}

// Response is the body returned by POST /properties/{id}/enrich.
type Response struct {
	Success    bool       `json:"success"`
	PropertyID int64      `json:"property_id"`
	Enrichment Enrichment `json:"enrichment"`
	Cached     bool       `json:"cached"`
	Message    string     `json:"message"`
}

// Results returns the provider result set, never nil.
func (r *Response) Results() ResultSet {
	if r == nil || r.Enrichment.Data == nil {
		return ResultSet{}
	}
	return r.Enrichment.Data
}

// ParseResponse decodes an enrichment response body.
func ParseResponse(body []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(err, "failed to decode enrichment response")
	}
	return &resp, nil
}

// DecodeResultSet decodes a bare enrichment_data object.
func DecodeResultSet(body []byte) (ResultSet, error) {
	rs := ResultSet{}
	if err := json.Unmarshal(body, &rs); err != nil {
		return nil, errors.Wrap(err, "failed to decode enrichment data")
	}
	if rs == nil {
		rs = ResultSet{}
	}
	return rs, nil
}

// Timestamp accepts both RFC3339 and the naive ISO-8601 form the backend
// emits (no zone, interpreted as UTC).
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return errors.Wrap(err, "timestamp must be a string")
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return errors.Newf("unrecognised timestamp %q", s)
}
