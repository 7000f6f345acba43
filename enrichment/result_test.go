package enrichment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propscout/propscout/errors"
)

const sampleResponse = `{
  "success": true,
  "property_id": 42,
  "enrichment": {
    "success": true,
    "enrichment_data": {
      "walk_score_provider": {
        "success": true,
        "cached": true,
        "data": {"walk_score": 91, "walk_description": "Walker's Paradise"},
        "error": null,
        "enriched_at": "2024-03-01T12:30:00.123456"
      },
      "flood_zone_provider": {
        "success": false,
        "cached": false,
        "data": null,
        "error": "FEMA service unavailable",
        "enriched_at": null
      }
    },
    "metadata": {
      "total_providers": 2,
      "successful_providers": 1,
      "failed_providers": 1,
      "total_api_calls": 1,
      "cached_providers": 1
    }
  },
  "cached": false,
  "message": "Property enriched"
}`

func TestParseResponse(t *testing.T) {
	resp, err := ParseResponse([]byte(sampleResponse))
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, int64(42), resp.PropertyID)
	assert.Equal(t, "Property enriched", resp.Message)
	assert.Equal(t, Metadata{
		TotalProviders:      2,
		SuccessfulProviders: 1,
		FailedProviders:     1,
		TotalAPICalls:       1,
		CachedProviders:     1,
	}, resp.Enrichment.Metadata)

	rs := resp.Results()
	require.Len(t, rs, 2)

	walk, found := rs.Get(ProviderWalkScore)
	require.True(t, found)
	assert.True(t, walk.Success)
	assert.True(t, walk.Cached)
	assert.True(t, walk.HasData())
	require.NotNil(t, walk.EnrichedAt)
	assert.Equal(t, time.Date(2024, 3, 1, 12, 30, 0, 123456000, time.UTC), walk.EnrichedAt.Time)

	flood, found := rs.Get(ProviderFloodZone)
	require.True(t, found)
	assert.False(t, flood.Success)
	assert.False(t, flood.HasData())
	require.NotNil(t, flood.Error)
	assert.Equal(t, "FEMA service unavailable", *flood.Error)
	assert.Nil(t, flood.EnrichedAt)

	sel := DefaultRegistry().Select(rs)
	assert.Equal(t, []Kind{KindWalkScore}, kinds(sel.Sections))
}

func TestParseResponseErrors(t *testing.T) {
	_, err := ParseResponse([]byte(`{"success": tru`))
	assert.Error(t, err)

	_, err = ParseResponse([]byte(`{"enrichment":{"enrichment_data":{"walk_score_provider":{"enriched_at":"yesterday"}}}}`))
	assert.Error(t, err)
}

func TestResponseResults(t *testing.T) {
	var nilResp *Response
	assert.NotNil(t, nilResp.Results())
	assert.Empty(t, nilResp.Results())

	resp, err := ParseResponse([]byte(`{"success":false,"message":"Property not found"}`))
	require.NoError(t, err)
	assert.NotNil(t, resp.Results())
	assert.Empty(t, resp.Results())
}

func TestDecodeResultSet(t *testing.T) {
	rs, err := DecodeResultSet([]byte(`null`))
	require.NoError(t, err)
	assert.NotNil(t, rs)

	rs, err = DecodeResultSet([]byte(`{"railroad_provider":{"success":true,"data":{"nearest_railroad":"CSX"}}}`))
	require.NoError(t, err)
	assert.True(t, rs.Succeeded(ProviderRailroad))
	assert.True(t, rs.Has(ProviderRailroad))
	assert.False(t, rs.Has(ProviderHighway))
	assert.False(t, rs.Succeeded(ProviderHighway))
}

func TestTimestampLayouts(t *testing.T) {
	want := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	for _, raw := range []string{
		`"2024-01-02T03:04:05Z"`,
		`"2024-01-02T03:04:05"`,
		`"2024-01-02 03:04:05"`,
		`"2024-01-02T04:04:05+01:00"`,
	} {
		t.Run(raw, func(t *testing.T) {
			var ts Timestamp
			require.NoError(t, ts.UnmarshalJSON([]byte(raw)))
			assert.True(t, want.Equal(ts.Time), ts.Time.String())
		})
	}

	var ts Timestamp
	assert.NoError(t, ts.UnmarshalJSON([]byte(`null`)))
	assert.True(t, ts.IsZero())
	assert.Error(t, ts.UnmarshalJSON([]byte(`12345`)))
}

func TestParsePayloads(t *testing.T) {
	t.Run("flood zone", func(t *testing.T) {
		fz, err := ParseFloodZone([]byte(`{"flood_zone":"AE","special_flood_hazard_area":true,"extra":"ignored"}`))
		require.NoError(t, err)
		assert.Equal(t, "AE", fz.FloodZone)
		require.NotNil(t, fz.SpecialFloodHazardArea)
		assert.True(t, *fz.SpecialFloodHazardArea)
	})

	t.Run("integer and float numbers", func(t *testing.T) {
		aq, err := ParseAirQuality([]byte(`{"aqi":42,"pm25":7.5}`))
		require.NoError(t, err)
		assert.Equal(t, 42.0, *aq.AQI)
		assert.Equal(t, 7.5, *aq.PM25)
		assert.Nil(t, aq.Ozone)
	})

	invalid := []struct {
		name  string
		parse func([]byte) error
		raw   string
	}{
		{"empty", func(b []byte) error { _, err := ParseWalkScore(b); return err }, ``},
		{"null", func(b []byte) error { _, err := ParseClimate(b); return err }, `null`},
		{"array", func(b []byte) error { _, err := ParseNearbyPlaces(b); return err }, `[]`},
		{"wrong list type", func(b []byte) error { _, err := ParseCustomDistances(b); return err }, `{"distances":{}}`},
		{"wrong field type", func(b []byte) error { _, err := ParseRailroad(b); return err }, `{"nearest_railroad":7}`},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.parse([]byte(tt.raw))
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrInvalidPayload))
		})
	}
}
