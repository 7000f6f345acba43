package view

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propscout/propscout/enrichment"
	"github.com/propscout/propscout/internal/util"
)

func field(fields []Field, label string) string {
	for _, f := range fields {
		if f.Label == label {
			return f.Value
		}
	}
	return ""
}

func TestConversions(t *testing.T) {
	assert.InDelta(t, 3.28084, MetersToFeet(1), 1e-9)
	assert.InDelta(t, 1.0, MetersToMiles(1609.344), 1e-9)
	assert.InDelta(t, 212.0, CelsiusToFahrenheit(100), 1e-9)
	assert.InDelta(t, 32.0, CelsiusToFahrenheit(0), 1e-9)
	assert.InDelta(t, 1.0, MillimetersToInches(25.4), 1e-9)
	assert.InDelta(t, 2.5, SecondsToMinutes(150), 1e-9)
}

func TestBuildWalkScore(t *testing.T) {
	views := Build([]enrichment.Section{enrichment.WalkScoreSection{
		Cached: true,
		Data: enrichment.WalkScore{
			WalkScore:       util.Ptr(80.0),
			WalkDescription: "Very Walkable",
			BikeScore:       util.Ptr(61.0),
		},
	}})
	require.Len(t, views, 1)

	v := views[0]
	assert.Equal(t, enrichment.KindWalkScore, v.Kind)
	assert.Equal(t, "Walkability", v.Title)
	assert.NotEmpty(t, v.Icon)
	assert.True(t, v.Cached)
	assert.Equal(t, "80 (Very Walkable)", field(v.Fields, "Walk Score"))
	assert.Equal(t, NA, field(v.Fields, "Transit Score"))
	assert.Equal(t, "61", field(v.Fields, "Bike Score"))
}

func TestBuildMissingFieldsRenderNA(t *testing.T) {
	sections := []enrichment.Section{
		enrichment.AirQualitySection{},
		enrichment.ClimateSection{},
		enrichment.FloodZoneSection{},
	}

	for _, v := range Build(sections) {
		t.Run(string(v.Kind), func(t *testing.T) {
			require.NotEmpty(t, v.Fields)
			for _, f := range v.Fields {
				assert.Equal(t, NA, f.Value, f.Label)
			}
		})
	}
}

func TestBuildClimateUnits(t *testing.T) {
	v := Build([]enrichment.Section{enrichment.ClimateSection{Data: enrichment.Climate{
		AvgTemperatureC: util.Ptr(20.0),
		PrecipitationMM: util.Ptr(254.0),
		SunnyDays:       util.Ptr(201.0),
	}}})[0]

	assert.Equal(t, "68.0 °F", field(v.Fields, "Average Temperature"))
	assert.Equal(t, "10.0 in", field(v.Fields, "Precipitation"))
	assert.Equal(t, "201", field(v.Fields, "Sunny Days"))
	assert.Equal(t, NA, field(v.Fields, "Snowfall"))
}

func TestBuildFloodZone(t *testing.T) {
	v := Build([]enrichment.Section{enrichment.FloodZoneSection{Data: enrichment.FloodZone{
		FloodZone:              "AE",
		SpecialFloodHazardArea: util.Ptr(true),
		ZoneDescription:        "   ",
	}}})[0]

	assert.Equal(t, "AE", field(v.Fields, "Zone"))
	assert.Equal(t, "Yes", field(v.Fields, "Special Flood Hazard Area"))
	assert.Equal(t, NA, field(v.Fields, "Description"))
}

func TestBuildTransportation(t *testing.T) {
	t.Run("one constituent", func(t *testing.T) {
		v := Build([]enrichment.Section{enrichment.TransportationSection{
			Highway:       &enrichment.HighwayProximity{NearestHighway: "I-5", DistanceMeters: util.Ptr(3218.688)},
			HighwayCached: true,
		}})[0]

		require.Len(t, v.Parts, 1)
		assert.Equal(t, "Nearest Highway", v.Parts[0].Title)
		assert.True(t, v.Parts[0].Cached)
		assert.Equal(t, "2.0 mi", field(v.Parts[0].Fields, "Distance"))
		assert.Equal(t, NA, field(v.Parts[0].Fields, "Type"))
		assert.True(t, v.Cached)
	})

	t.Run("mixed cached flags", func(t *testing.T) {
		v := Build([]enrichment.Section{enrichment.TransportationSection{
			Highway:        &enrichment.HighwayProximity{NearestHighway: "I-5"},
			HighwayCached:  true,
			Railroad:       &enrichment.RailroadProximity{NearestRailroad: "BNSF", DistanceMeters: util.Ptr(100.0)},
			RailroadCached: false,
		}})[0]

		require.Len(t, v.Parts, 2)
		assert.True(t, v.Parts[0].Cached)
		assert.False(t, v.Parts[1].Cached)
		assert.Equal(t, "328 ft", field(v.Parts[1].Fields, "Distance"))
		assert.False(t, v.Cached)
	})

	t.Run("no data", func(t *testing.T) {
		v := Build([]enrichment.Section{enrichment.TransportationSection{HighwayCached: true}})[0]
		assert.True(t, v.Empty())
		assert.False(t, v.Cached)
	})
}

func TestBuildLists(t *testing.T) {
	views := Build([]enrichment.Section{
		enrichment.NearbyPlacesSection{Places: []enrichment.Place{
			{Name: "Green Lake Park", Category: "park", DistanceMeters: util.Ptr(804.672), Rating: util.Ptr(4.66)},
			{},
		}},
		enrichment.CustomDistancesSection{Cached: true, Distances: []enrichment.LocationDistance{
			{LocationName: "Office", DistanceMeters: util.Ptr(16093.44), DurationSeconds: util.Ptr(1500.0), TravelMode: "driving"},
		}},
	})
	require.Len(t, views, 2)

	places := views[0]
	require.Len(t, places.Items, 2)
	assert.Equal(t, "Green Lake Park", places.Items[0].Title)
	assert.Equal(t, "0.5 mi", field(places.Items[0].Fields, "Distance"))
	assert.Equal(t, "4.7", field(places.Items[0].Fields, "Rating"))
	assert.Equal(t, NA, places.Items[1].Title)
	assert.Equal(t, NA, field(places.Items[1].Fields, "Distance"))

	distances := views[1]
	assert.True(t, distances.Cached)
	require.Len(t, distances.Items, 1)
	assert.Equal(t, "10.0 mi", field(distances.Items[0].Fields, "Distance"))
	assert.Equal(t, "25 min", field(distances.Items[0].Fields, "Travel Time"))
}

func TestBuildFromSelection(t *testing.T) {
	rs := enrichment.ResultSet{
		enrichment.ProviderFloodZone: {Success: true, Data: json.RawMessage(`{"flood_zone":"X"}`)},
		enrichment.ProviderWalkScore: {Success: true, Data: json.RawMessage(`{"walk_score":80}`)},
	}

	views := Build(enrichment.DefaultRegistry().Select(rs).Sections)
	require.Len(t, views, 2)
	assert.Equal(t, enrichment.KindWalkScore, views[0].Kind)
	assert.False(t, views[0].Cached)
	assert.Equal(t, enrichment.KindFloodZone, views[1].Kind)
}

func TestBuildEmpty(t *testing.T) {
	views := Build(nil)
	assert.NotNil(t, views)
	assert.Empty(t, views)
}

func TestNewReport(t *testing.T) {
	resp := &enrichment.Response{
		Success:    true,
		PropertyID: 42,
		Cached:     true,
		Enrichment: enrichment.Enrichment{
			Success: true,
			Data: enrichment.ResultSet{
				enrichment.ProviderWalkScore:  {Success: true, Cached: true, Data: json.RawMessage(`{"walk_score":91}`)},
				enrichment.ProviderAirQuality: {Success: true, Data: json.RawMessage(`"not an object"`)},
			},
			Metadata: enrichment.Metadata{TotalProviders: 2, SuccessfulProviders: 2, CachedProviders: 1},
		},
	}

	r := NewReport(resp, enrichment.DefaultRegistry())
	assert.Equal(t, int64(42), r.PropertyID)
	assert.True(t, r.Cached)
	assert.Equal(t, 2, r.Metadata.TotalProviders)
	require.Len(t, r.Views, 1)
	assert.Equal(t, enrichment.KindWalkScore, r.Views[0].Kind)
	assert.True(t, r.Views[0].Cached)
	require.Len(t, r.Problems, 1)
	assert.Equal(t, "build", r.Problems[0].Stage)
	assert.NotEmpty(t, r.Problems[0].Error)
	assert.Len(t, r.Selection.Failures, 1)
}

func TestNewReportNilData(t *testing.T) {
	r := NewReport(&enrichment.Response{PropertyID: 7}, enrichment.DefaultRegistry())
	assert.NotNil(t, r.Views)
	assert.Empty(t, r.Views)
	assert.Empty(t, r.Problems)
}
