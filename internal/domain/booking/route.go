package booking

import "context"

// Location is a selected endpoint: a point plus its human-readable label.
type Location struct {
	Coordinate  Coordinate `json:"coordinate"`
	DisplayName string     `json:"display_name"`
}

// Place is a forward-geocoding candidate.
type Place struct {
	Coordinate  Coordinate `json:"coordinate"`
	DisplayName string     `json:"display_name"`
	Category    string     `json:"category"`
}

// Route is a driving path between pickup and dropoff. A straight-line fallback route
// carries a distance but no path and no duration.
type Route struct {
	Coordinates     []Coordinate `json:"coordinates"`
	DistanceKm      float64      `json:"distance_km"`
	DurationMinutes *float64     `json:"duration_minutes"`
}

// IsEmpty returns true if the route has no path geometry.
func (r Route) IsEmpty() bool {
	return len(r.Coordinates) == 0
}

func (r Route) clone() Route {
	out := Route{DistanceKm: r.DistanceKm}
	if r.Coordinates != nil {
		out.Coordinates = append([]Coordinate(nil), r.Coordinates...)
	}
	if r.DurationMinutes != nil {
		d := *r.DurationMinutes
		out.DurationMinutes = &d
	}
	return out
}

// RouteResult is the outcome of resolving a route: the provider's top-ranked route and up
// to a small number of alternatives, or a haversine estimate when Fallback is set.
type RouteResult struct {
	Primary      Route   `json:"primary"`
	Alternatives []Route `json:"alternatives"`
	Fallback     bool    `json:"fallback"`
}

func (r RouteResult) clone() RouteResult {
	out := RouteResult{Primary: r.Primary.clone(), Fallback: r.Fallback, Alternatives: make([]Route, len(r.Alternatives))}
	for i, alt := range r.Alternatives {
		out.Alternatives[i] = alt.clone()
	}
	return out
}

// RouteResolver resolves a route between two points. It never fails; provider errors
// degrade into a fallback result.
type RouteResolver interface {
	Resolve(ctx context.Context, start, end Coordinate) RouteResult
}

// AddressResolver performs forward and reverse geocoding with graceful degradation:
// failures yield an empty slice or an empty label, never an error.
type AddressResolver interface {
	Search(ctx context.Context, query string, bias Coordinate) []Place
	Reverse(ctx context.Context, c Coordinate) string
}

// Locator obtains the device's current position. Any error means the position is
// unavailable (typically because permission was denied).
type Locator interface {
	CurrentPosition(ctx context.Context) (Coordinate, error)
}
