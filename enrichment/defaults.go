package enrichment

import (
	"bytes"
	"encoding/json"

	"github.com/propscout/propscout/errors"
	"github.com/propscout/propscout/internal/util"
)

// Default section priorities, in the order the enrichment types were added.
const (
	PriorityWalkScore       = 1
	PriorityAirQuality      = 2
	PriorityClimate         = 3
	PriorityFloodZone       = 4
	PriorityTransportation  = 5
	PriorityNearbyPlaces    = 6
	PriorityCustomDistances = 7
)

// DefaultRegistry returns a new registry holding every built-in section.
// Each call returns a fresh registry so callers may Register extra
// descriptors without affecting anyone else.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(DefaultDescriptors()...)
	if err != nil {
		// Built-in descriptors always carry both functions.
		panic(err)
	}
	return r
}

// DefaultDescriptors returns the built-in descriptors in registration order.
func DefaultDescriptors() []Descriptor {
	return []Descriptor{
		scalarDescriptor(KindWalkScore, ProviderWalkScore, PriorityWalkScore, func(res ProviderResult) (Section, error) {
			data, err := ParseWalkScore(res.Data)
			if err != nil {
				return nil, err
			}
			return WalkScoreSection{Cached: res.Cached, Data: data}, nil
		}),
		scalarDescriptor(KindAirQuality, ProviderAirQuality, PriorityAirQuality, func(res ProviderResult) (Section, error) {
			data, err := ParseAirQuality(res.Data)
			if err != nil {
				return nil, err
			}
			return AirQualitySection{Cached: res.Cached, Data: data}, nil
		}),
		scalarDescriptor(KindClimate, ProviderClimate, PriorityClimate, func(res ProviderResult) (Section, error) {
			data, err := ParseClimate(res.Data)
			if err != nil {
				return nil, err
			}
			return ClimateSection{Cached: res.Cached, Data: data}, nil
		}),
		scalarDescriptor(KindFloodZone, ProviderFloodZone, PriorityFloodZone, func(res ProviderResult) (Section, error) {
			data, err := ParseFloodZone(res.Data)
			if err != nil {
				return nil, err
			}
			return FloodZoneSection{Cached: res.Cached, Data: data}, nil
		}),
		{
			Name:     string(KindTransportation),
			Priority: util.Ptr(PriorityTransportation),
			Visible:  AnySucceeded(ProviderHighway, ProviderRailroad),
			Build:    buildTransportation,
		},
		listDescriptor(KindNearbyPlaces, ProviderPlacesNearby, fieldPlacesNearby, PriorityNearbyPlaces, func(res ProviderResult) (Section, error) {
			data, err := ParseNearbyPlaces(res.Data)
			if err != nil {
				return nil, err
			}
			return NearbyPlacesSection{Cached: res.Cached, Places: data.Places}, nil
		}),
		listDescriptor(KindCustomDistances, ProviderDistance, fieldDistances, PriorityCustomDistances, func(res ProviderResult) (Section, error) {
			data, err := ParseCustomDistances(res.Data)
			if err != nil {
				return nil, err
			}
			return CustomDistancesSection{Cached: res.Cached, Distances: data.Distances}, nil
		}),
	}
}

// SucceededWithData is the visibility rule for single-provider, scalar
// payloads: the provider succeeded and returned non-null data.
func SucceededWithData(provider string) func(ResultSet) bool {
	return func(rs ResultSet) bool {
		res, ok := rs.Get(provider)
		return ok && res.Success && res.HasData()
	}
}

// SucceededWithList is the visibility rule for single-provider, list
// payloads: the provider succeeded, returned data, and the named field is a
// non-empty JSON array.
func SucceededWithList(provider, field string) func(ResultSet) bool {
	return func(rs ResultSet) bool {
		res, ok := rs.Get(provider)
		if !ok || !res.Success || !res.HasData() {
			return false
		}
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(res.Data, &obj); err != nil {
			return false
		}
		list := bytes.TrimSpace(obj[field])
		if len(list) == 0 || list[0] != '[' {
			return false
		}
		var items []json.RawMessage
		if err := json.Unmarshal(list, &items); err != nil {
			return false
		}
		return len(items) > 0
	}
}

// AnySucceeded is the visibility rule for either/or sections: at least one
// constituent provider succeeded.
func AnySucceeded(providers ...string) func(ResultSet) bool {
	return func(rs ResultSet) bool {
		for _, p := range providers {
			if rs.Succeeded(p) {
				return true
			}
		}
		return false
	}
}

func scalarDescriptor(kind Kind, provider string, prio int, fn func(ProviderResult) (Section, error)) Descriptor {
	return Descriptor{
		Name:     string(kind),
		Priority: util.Ptr(prio),
		Visible:  SucceededWithData(provider),
		Build:    fromProvider(provider, fn),
	}
}

func listDescriptor(kind Kind, provider, field string, prio int, fn func(ProviderResult) (Section, error)) Descriptor {
	return Descriptor{
		Name:     string(kind),
		Priority: util.Ptr(prio),
		Visible:  SucceededWithList(provider, field),
		Build:    fromProvider(provider, fn),
	}
}

func fromProvider(provider string, fn func(ProviderResult) (Section, error)) func(ResultSet) (Section, error) {
	return func(rs ResultSet) (Section, error) {
		res, _ := rs.Get(provider)
		return fn(res)
	}
}

// buildTransportation passes data only for constituents that succeeded and
// forwards each constituent's own cached flag. A constituent whose payload
// does not parse is left nil and its error is returned alongside the section;
// the section itself is dropped only when nothing parsed.
func buildTransportation(rs ResultSet) (Section, error) {
	var (
		section TransportationSection
		errs    error
	)

	if res, ok := rs.Get(ProviderHighway); ok {
		section.HighwayCached = res.Cached
		if res.Success && res.HasData() {
			if data, err := ParseHighway(res.Data); err != nil {
				errs = errors.CombineErrors(errs, err)
			} else {
				section.Highway = &data
			}
		}
	}

	if res, ok := rs.Get(ProviderRailroad); ok {
		section.RailroadCached = res.Cached
		if res.Success && res.HasData() {
			if data, err := ParseRailroad(res.Data); err != nil {
				errs = errors.CombineErrors(errs, err)
			} else {
				section.Railroad = &data
			}
		}
	}

	if errs != nil && section.Highway == nil && section.Railroad == nil {
		return nil, errs
	}
	return section, errs
}
