package enrichment

// Kind identifies one enrichment section type.
type Kind string

const (
	KindWalkScore       Kind = "walk_score"
	KindAirQuality      Kind = "air_quality"
	KindClimate         Kind = "climate"
	KindFloodZone       Kind = "flood_zone"
	KindTransportation  Kind = "transportation"
	KindNearbyPlaces    Kind = "nearby_places"
	KindCustomDistances Kind = "custom_distances"
)

// Section is one visible, typed enrichment block.
//
// Every section type dispatches to its own Visitor method. A new kind adds a
// method to Visitor, so every renderer stops compiling until it handles it.
type Section interface {
	Kind() Kind
	Accept(v Visitor)
}

// Visitor handles each section kind.
type Visitor interface {
	VisitWalkScore(WalkScoreSection)
	VisitAirQuality(AirQualitySection)
	VisitClimate(ClimateSection)
	VisitFloodZone(FloodZoneSection)
	VisitTransportation(TransportationSection)
	VisitNearbyPlaces(NearbyPlacesSection)
	VisitCustomDistances(CustomDistancesSection)
}

type WalkScoreSection struct {
	Cached bool
	Data   WalkScore
}

func (WalkScoreSection) Kind() Kind         { return KindWalkScore }
func (s WalkScoreSection) Accept(v Visitor) { v.VisitWalkScore(s) }

type AirQualitySection struct {
	Cached bool
	Data   AirQuality
}

func (AirQualitySection) Kind() Kind         { return KindAirQuality }
func (s AirQualitySection) Accept(v Visitor) { v.VisitAirQuality(s) }

type ClimateSection struct {
	Cached bool
	Data   Climate
}

func (ClimateSection) Kind() Kind         { return KindClimate }
func (s ClimateSection) Accept(v Visitor) { v.VisitClimate(s) }

type FloodZoneSection struct {
	Cached bool
	Data   FloodZone
}

func (FloodZoneSection) Kind() Kind         { return KindFloodZone }
func (s FloodZoneSection) Accept(v Visitor) { v.VisitFloodZone(s) }

// TransportationSection combines the highway and railroad providers.
// A nil constituent means that provider did not succeed; each cached flag is
// the constituent's own.
type TransportationSection struct {
	Highway        *HighwayProximity
	HighwayCached  bool
	Railroad       *RailroadProximity
	RailroadCached bool
}

func (TransportationSection) Kind() Kind         { return KindTransportation }
func (s TransportationSection) Accept(v Visitor) { v.VisitTransportation(s) }

type NearbyPlacesSection struct {
	Cached bool
	Places []Place
}

func (NearbyPlacesSection) Kind() Kind         { return KindNearbyPlaces }
func (s NearbyPlacesSection) Accept(v Visitor) { v.VisitNearbyPlaces(s) }

type CustomDistancesSection struct {
	Cached    bool
	Distances []LocationDistance
}

func (CustomDistancesSection) Kind() Kind         { return KindCustomDistances }
func (s CustomDistancesSection) Accept(v Visitor) { v.VisitCustomDistances(s) }
