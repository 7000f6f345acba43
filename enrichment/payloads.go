package enrichment

import (
	"bytes"
	"encoding/json"

	"github.com/propscout/propscout/errors"
)

// Numeric payload fields are *float64: the backend serialises scores and
// distances as either integers or floats, and a missing field must stay
// distinguishable from zero so views can print N/A.

// WalkScore is the walk_score_provider payload.
type WalkScore struct {
	WalkScore          *float64 `json:"walk_score"`
	WalkDescription    string   `json:"walk_description"`
	TransitScore       *float64 `json:"transit_score"`
	TransitDescription string   `json:"transit_description"`
	BikeScore          *float64 `json:"bike_score"`
	BikeDescription    string   `json:"bike_description"`
}

// AirQuality is the air_quality_provider payload.
type AirQuality struct {
	AQI               *float64 `json:"aqi"`
	Category          string   `json:"category"`
	DominantPollutant string   `json:"dominant_pollutant"`
	PM25              *float64 `json:"pm25"`
	Ozone             *float64 `json:"ozone"`
}

// Climate is the annual_average_climate_provider payload (metric units).
type Climate struct {
	AvgTemperatureC *float64 `json:"avg_temperature_c"`
	AvgHighC        *float64 `json:"avg_high_c"`
	AvgLowC         *float64 `json:"avg_low_c"`
	PrecipitationMM *float64 `json:"precipitation_mm"`
	SnowfallMM      *float64 `json:"snowfall_mm"`
	SunnyDays       *float64 `json:"sunny_days"`
}

// FloodZone is the flood_zone_provider payload.
type FloodZone struct {
	FloodZone              string `json:"flood_zone"`
	ZoneDescription        string `json:"zone_description"`
	RiskLevel              string `json:"risk_level"`
	SpecialFloodHazardArea *bool  `json:"special_flood_hazard_area"`
	PanelNumber            string `json:"panel_number"`
}

// HighwayProximity is the highway_provider payload.
type HighwayProximity struct {
	NearestHighway string   `json:"nearest_highway"`
	HighwayType    string   `json:"highway_type"`
	DistanceMeters *float64 `json:"distance_meters"`
}

// RailroadProximity is the railroad_provider payload.
type RailroadProximity struct {
	NearestRailroad string   `json:"nearest_railroad"`
	RailroadOwner   string   `json:"railroad_owner"`
	DistanceMeters  *float64 `json:"distance_meters"`
}

// Place is one entry of the places_nearby list.
type Place struct {
	Name           string   `json:"name"`
	Category       string   `json:"category"`
	Address        string   `json:"address"`
	DistanceMeters *float64 `json:"distance_meters"`
	Rating         *float64 `json:"rating"`
}

// NearbyPlaces is the places_nearby_provider payload.
type NearbyPlaces struct {
	Places []Place `json:"places_nearby"`
}

// LocationDistance is one entry of the distance_provider list, measured from
// the property to one of the user's custom locations.
type LocationDistance struct {
	LocationName    string   `json:"location_name"`
	Address         string   `json:"address"`
	DistanceMeters  *float64 `json:"distance_meters"`
	DurationSeconds *float64 `json:"duration_seconds"`
	TravelMode      string   `json:"travel_mode"`
}

// CustomDistances is the distance_provider payload.
type CustomDistances struct {
	Distances []LocationDistance `json:"distances"`
}

// List field names checked by the list-payload visibility rule.
const (
	fieldPlacesNearby = "places_nearby"
	fieldDistances    = "distances"
)

// ParseWalkScore validates a walk_score_provider payload.
func ParseWalkScore(raw json.RawMessage) (WalkScore, error) {
	return decodePayload[WalkScore](ProviderWalkScore, raw)
}

// ParseAirQuality validates an air_quality_provider payload.
func ParseAirQuality(raw json.RawMessage) (AirQuality, error) {
	return decodePayload[AirQuality](ProviderAirQuality, raw)
}

// ParseClimate validates an annual_average_climate_provider payload.
func ParseClimate(raw json.RawMessage) (Climate, error) {
	return decodePayload[Climate](ProviderClimate, raw)
}

// ParseFloodZone validates a flood_zone_provider payload.
func ParseFloodZone(raw json.RawMessage) (FloodZone, error) {
	return decodePayload[FloodZone](ProviderFloodZone, raw)
}

// ParseHighway validates a highway_provider payload.
func ParseHighway(raw json.RawMessage) (HighwayProximity, error) {
	return decodePayload[HighwayProximity](ProviderHighway, raw)
}

// ParseRailroad validates a railroad_provider payload.
func ParseRailroad(raw json.RawMessage) (RailroadProximity, error) {
	return decodePayload[RailroadProximity](ProviderRailroad, raw)
}

// ParseNearbyPlaces validates a places_nearby_provider payload.
func ParseNearbyPlaces(raw json.RawMessage) (NearbyPlaces, error) {
	return decodePayload[NearbyPlaces](ProviderPlacesNearby, raw)
}

// ParseCustomDistances validates a distance_provider payload.
func ParseCustomDistances(raw json.RawMessage) (CustomDistances, error) {
	return decodePayload[CustomDistances](ProviderDistance, raw)
}

// decodePayload requires a JSON object and strict field types; unknown
// fields are ignored so the backend can add fields without breaking views.
func decodePayload[T any](provider string, raw json.RawMessage) (T, error) {
	var out T
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return out, errors.NewInvalidPayloadError("%s: payload must be a JSON object", provider)
	}
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return out, errors.Wrapf(errors.ErrInvalidPayload, "%s: %s", provider, err.Error())
	}
	return out, nil
}
