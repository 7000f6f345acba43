// Package view maps enrichment sections to display-neutral views: a title,
// an icon, a cached badge and already-formatted label/value rows. Both the
// terminal renderer and the HTML templates consume these.
package view

import (
	"github.com/propscout/propscout/enrichment"
)

// Field is one formatted label/value row.
type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Item is one entry of a list section.
type Item struct {
	Title    string  `json:"title"`
	Subtitle string  `json:"subtitle,omitempty"`
	Fields   []Field `json:"fields,omitempty"`
}

// Part is one constituent of a combined section. It carries its own cached
// badge.
type Part struct {
	Title  string  `json:"title"`
	Cached bool    `json:"cached"`
	Fields []Field `json:"fields"`
}

// View is the presentation of one section.
type View struct {
	Kind   enrichment.Kind `json:"kind"`
	Title  string          `json:"title"`
	Icon   string          `json:"icon"`
	Cached bool            `json:"cached"`
	Fields []Field         `json:"fields,omitempty"`
	Items  []Item          `json:"items,omitempty"`
	Parts  []Part          `json:"parts,omitempty"`
}

// Empty reports whether the view has nothing to show beyond its header.
func (v View) Empty() bool {
	return len(v.Fields) == 0 && len(v.Items) == 0 && len(v.Parts) == 0
}

// Build renders sections in order.
func Build(sections []enrichment.Section) []View {
	b := &Builder{views: make([]View, 0, len(sections))}
	for _, s := range sections {
		s.Accept(b)
	}
	return b.Views()
}

// Builder collects one View per visited section.
type Builder struct {
	views []View
}

var _ enrichment.Visitor = (*Builder)(nil)

// Views returns the views built so far.
func (b *Builder) Views() []View {
	return b.views
}

func (b *Builder) VisitWalkScore(s enrichment.WalkScoreSection) {
	d := s.Data
	b.views = append(b.views, View{
		Kind:   s.Kind(),
		Title:  "Walkability",
		Icon:   "🚶",
		Cached: s.Cached,
		Fields: []Field{
			{"Walk Score", scored(d.WalkScore, d.WalkDescription)},
			{"Transit Score", scored(d.TransitScore, d.TransitDescription)},
			{"Bike Score", scored(d.BikeScore, d.BikeDescription)},
		},
	})
}

func (b *Builder) VisitAirQuality(s enrichment.AirQualitySection) {
	d := s.Data
	b.views = append(b.views, View{
		Kind:   s.Kind(),
		Title:  "Air Quality",
		Icon:   "🌬",
		Cached: s.Cached,
		Fields: []Field{
			{"AQI", number(d.AQI, 0)},
			{"Category", text(d.Category)},
			{"Dominant Pollutant", text(d.DominantPollutant)},
			{"PM2.5", converted(d.PM25, identity, 1, "µg/m³")},
			{"Ozone", converted(d.Ozone, identity, 1, "ppb")},
		},
	})
}

func (b *Builder) VisitClimate(s enrichment.ClimateSection) {
	d := s.Data
	b.views = append(b.views, View{
		Kind:   s.Kind(),
		Title:  "Annual Climate",
		Icon:   "🌤",
		Cached: s.Cached,
		Fields: []Field{
			{"Average Temperature", converted(d.AvgTemperatureC, CelsiusToFahrenheit, 1, "°F")},
			{"Average High", converted(d.AvgHighC, CelsiusToFahrenheit, 1, "°F")},
			{"Average Low", converted(d.AvgLowC, CelsiusToFahrenheit, 1, "°F")},
			{"Precipitation", converted(d.PrecipitationMM, MillimetersToInches, 1, "in")},
			{"Snowfall", converted(d.SnowfallMM, MillimetersToInches, 1, "in")},
			{"Sunny Days", number(d.SunnyDays, 0)},
		},
	})
}

func (b *Builder) VisitFloodZone(s enrichment.FloodZoneSection) {
	d := s.Data
	b.views = append(b.views, View{
		Kind:   s.Kind(),
		Title:  "Flood Zone",
		Icon:   "🌊",
		Cached: s.Cached,
		Fields: []Field{
			{"Zone", text(d.FloodZone)},
			{"Description", text(d.ZoneDescription)},
			{"Risk Level", text(d.RiskLevel)},
			{"Special Flood Hazard Area", yesNo(d.SpecialFloodHazardArea)},
			{"FIRM Panel", text(d.PanelNumber)},
		},
	})
}

// VisitTransportation emits one part per constituent that carried data. The
// view-level badge is set only when every shown part came from cache.
func (b *Builder) VisitTransportation(s enrichment.TransportationSection) {
	v := View{
		Kind:  s.Kind(),
		Title: "Transportation",
		Icon:  "🛣",
	}

	if h := s.Highway; h != nil {
		v.Parts = append(v.Parts, Part{
			Title:  "Nearest Highway",
			Cached: s.HighwayCached,
			Fields: []Field{
				{"Name", text(h.NearestHighway)},
				{"Type", text(h.HighwayType)},
				{"Distance", miles(h.DistanceMeters)},
			},
		})
	}
	if r := s.Railroad; r != nil {
		v.Parts = append(v.Parts, Part{
			Title:  "Nearest Railroad",
			Cached: s.RailroadCached,
			Fields: []Field{
				{"Name", text(r.NearestRailroad)},
				{"Owner", text(r.RailroadOwner)},
				{"Distance", feet(r.DistanceMeters)},
			},
		})
	}

	v.Cached = len(v.Parts) > 0
	for _, p := range v.Parts {
		v.Cached = v.Cached && p.Cached
	}
	b.views = append(b.views, v)
}

func (b *Builder) VisitNearbyPlaces(s enrichment.NearbyPlacesSection) {
	v := View{
		Kind:   s.Kind(),
		Title:  "Nearby Places",
		Icon:   "📍",
		Cached: s.Cached,
		Items:  make([]Item, 0, len(s.Places)),
	}
	for _, p := range s.Places {
		v.Items = append(v.Items, Item{
			Title:    text(p.Name),
			Subtitle: text(p.Category),
			Fields: []Field{
				{"Address", text(p.Address)},
				{"Distance", miles(p.DistanceMeters)},
				{"Rating", number(p.Rating, 1)},
			},
		})
	}
	b.views = append(b.views, v)
}

func (b *Builder) VisitCustomDistances(s enrichment.CustomDistancesSection) {
	v := View{
		Kind:   s.Kind(),
		Title:  "Distances to Your Locations",
		Icon:   "🧭",
		Cached: s.Cached,
		Items:  make([]Item, 0, len(s.Distances)),
	}
	for _, d := range s.Distances {
		v.Items = append(v.Items, Item{
			Title:    text(d.LocationName),
			Subtitle: text(d.Address),
			Fields: []Field{
				{"Distance", miles(d.DistanceMeters)},
				{"Travel Time", converted(d.DurationSeconds, SecondsToMinutes, 0, "min")},
				{"Mode", text(d.TravelMode)},
			},
		})
	}
	b.views = append(b.views, v)
}
