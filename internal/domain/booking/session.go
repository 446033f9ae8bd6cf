package booking

import (
	"context"
	"strings"
	"sync"
	"time"
)

// SessionState is the derived state of a quote session.
type SessionState string

const (
	StateEmpty          SessionState = "empty"
	StatePartialPickup  SessionState = "partial_pickup"
	StatePartialDropoff SessionState = "partial_dropoff"
	StateBothSet        SessionState = "both_set"
	StateFinalized      SessionState = "finalized"
)

// Endpoint identifies the pickup or dropoff side of a quote.
type Endpoint string

const (
	EndpointPickup  Endpoint = "pickup"
	EndpointDropoff Endpoint = "dropoff"
)

// IsValid returns true if the endpoint is recognized.
func (e Endpoint) IsValid() bool {
	return e == EndpointPickup || e == EndpointDropoff
}

// ParseEndpoint converts a string to an Endpoint.
func ParseEndpoint(s string) (Endpoint, error) {
	e := Endpoint(strings.ToLower(strings.TrimSpace(s)))
	if !e.IsValid() {
		return "", NewValidationError("endpoint must be pickup or dropoff")
	}
	return e, nil
}

// SessionDeps are the collaborators a Session needs.
type SessionDeps struct {
	Bounds    Bounds
	Fares     FareStrategy
	Routes    RouteResolver
	Addresses AddressResolver
}

// SessionOption customizes a Session.
type SessionOption func(*Session)

// WithClock overrides the clock used for booking numbers and creation timestamps.
// The returned time's location determines the booking-number date.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// WithNumberGenerator overrides the booking-number generator.
func WithNumberGenerator(gen func(time.Time) (string, error)) SessionOption {
	return func(s *Session) { s.numbers = gen }
}

// Selection is the outcome of selecting a location. Route is set when the counterpart
// endpoint was already known and a route was resolved. Superseded is set when a newer
// selection or a reset overtook this one while it awaited I/O; nothing it produced after
// that point was stored.
type Selection struct {
	Location   Location     `json:"location"`
	Route      *RouteResult `json:"route,omitempty"`
	Superseded bool         `json:"superseded"`
}

// Quote is a point-in-time copy of the session state.
type Quote struct {
	State     SessionState  `json:"state"`
	Pickup    *Location     `json:"pickup"`
	Dropoff   *Location     `json:"dropoff"`
	Route     *RouteResult  `json:"route"`
	Fare      FareEstimate  `json:"fare"`
	Breakdown FareBreakdown `json:"breakdown"`
}

// DistanceKm returns the primary route distance, or nil if no route is resolved.
func (q Quote) DistanceKm() *float64 {
	if q.Route == nil {
		return nil
	}
	d := q.Route.Primary.DistanceKm
	return &d
}

// Session is the in-progress quote for one user interaction. It is safe for concurrent use:
// the lock is released while geocoding and routing are in flight, and each endpoint carries
// a generation token so only the most recently issued selection is applied.
type Session struct {
	deps    SessionDeps
	now     func() time.Time
	numbers func(time.Time) (string, error)

	mu        sync.Mutex
	pickup    *Location
	dropoff   *Location
	route     *RouteResult
	finalized bool

	seq      uint64
	gen      map[Endpoint]uint64
	routeGen uint64
}

// NewSession creates an empty quote session.
func NewSession(deps SessionDeps, opts ...SessionOption) *Session {
	s := &Session{
		deps:    deps,
		now:     time.Now,
		numbers: GenerateBookingNumber,
		gen:     map[Endpoint]uint64{EndpointPickup: 0, EndpointDropoff: 0},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SelectLocation validates c against the service area, labels it (explicit label or reverse
// geocode), stores it for the endpoint and, when both endpoints are set, resolves the route
// from pickup to dropoff.
//
// An out-of-range coordinate returns ErrOutOfRange and leaves the endpoint untouched.
func (s *Session) SelectLocation(ctx context.Context, ep Endpoint, c Coordinate, label *string) (Selection, error) {
	if !ep.IsValid() {
		return Selection{}, NewValidationError("endpoint must be pickup or dropoff")
	}
	if !IsWithinBounds(c, s.deps.Bounds) {
		return Selection{}, ErrOutOfRange
	}

	s.mu.Lock()
	if s.finalized {
		s.mu.Unlock()
		return Selection{}, NewInvalidStateError(string(StateFinalized), "select_location")
	}
	gen := s.nextGen()
	s.gen[ep] = gen
	s.mu.Unlock()

	name := ""
	if label != nil {
		name = strings.TrimSpace(*label)
	}
	if name == "" {
		name = s.deps.Addresses.Reverse(ctx, c)
	}
	loc := Location{Coordinate: c, DisplayName: name}

	s.mu.Lock()
	if s.gen[ep] != gen || s.finalized {
		s.mu.Unlock()
		return Selection{Location: loc, Superseded: true}, nil
	}
	l := loc
	s.setEndpoint(ep, &l)
	s.route = nil
	s.routeGen = s.nextGen()
	routeGen := s.routeGen
	if s.pickup == nil || s.dropoff == nil {
		s.mu.Unlock()
		return Selection{Location: loc}, nil
	}
	start, end := s.pickup.Coordinate, s.dropoff.Coordinate
	s.mu.Unlock()

	result := s.deps.Routes.Resolve(ctx, start, end)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.routeGen != routeGen {
		return Selection{Location: loc, Superseded: true}, nil
	}
	stored := result.clone()
	s.route = &stored
	out := result.clone()
	return Selection{Location: loc, Route: &out}, nil
}

// SelectCurrentLocation selects the device position for the endpoint. A locator failure is
// reported as ErrLocationPermissionDenied.
func (s *Session) SelectCurrentLocation(ctx context.Context, ep Endpoint, locator Locator) (Selection, error) {
	if locator == nil {
		return Selection{}, ErrLocationPermissionDenied
	}
	c, err := locator.CurrentPosition(ctx)
	if err != nil {
		return Selection{}, &DomainError{Code: CodePermissionDenied, Message: ErrLocationPermissionDenied.Message, Err: err}
	}
	if !c.Valid() {
		return Selection{}, ErrLocationPermissionDenied
	}
	return s.SelectLocation(ctx, ep, c, nil)
}

// Swap exchanges pickup and dropoff. The route is kept as is rather than re-resolved, so a
// direction-dependent route becomes an approximation. In-flight selections are superseded.
func (s *Session) Swap() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pickup, s.dropoff = s.dropoff, s.pickup
	s.gen[EndpointPickup] = s.nextGen()
	s.gen[EndpointDropoff] = s.nextGen()
}

// Reset clears the session back to Empty and discards any in-flight results.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clear()
	s.finalized = false
}

// Finalize freezes the quote into a Booking. Consent is checked before completeness.
// On success the quote is cleared and the session is Finalized until Reset.
func (s *Session) Finalize(consentGiven bool) (*Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !consentGiven {
		return nil, ErrTermsNotAccepted
	}
	if s.pickup == nil || s.dropoff == nil || s.route == nil {
		return nil, ErrIncompleteBooking
	}

	distance := s.route.Primary.DistanceKm
	fare := s.deps.Fares.Estimate(&distance).Amount

	now := s.now()
	number, err := s.numbers(now)
	if err != nil {
		return nil, err
	}

	bk := newBooking(number, *s.pickup, *s.dropoff, distance, s.route.Primary.DurationMinutes, fare, now)

	s.clear()
	s.finalized = true
	return bk, nil
}

// State returns the derived session state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state()
}

// Snapshot returns a copy of the current quote.
func (s *Session) Snapshot() Quote {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := Quote{State: s.state()}
	if s.pickup != nil {
		p := *s.pickup
		q.Pickup = &p
	}
	if s.dropoff != nil {
		d := *s.dropoff
		q.Dropoff = &d
	}
	if s.route != nil {
		r := s.route.clone()
		q.Route = &r
	}
	distance := q.DistanceKm()
	q.Fare = s.deps.Fares.Estimate(distance)
	if distance != nil {
		q.Breakdown = s.deps.Fares.Breakdown(*distance)
	}
	return q
}

func (s *Session) state() SessionState {
	switch {
	case s.finalized:
		return StateFinalized
	case s.pickup != nil && s.dropoff != nil:
		return StateBothSet
	case s.pickup != nil:
		return StatePartialPickup
	case s.dropoff != nil:
		return StatePartialDropoff
	default:
		return StateEmpty
	}
}

func (s *Session) setEndpoint(ep Endpoint, loc *Location) {
	if ep == EndpointPickup {
		s.pickup = loc
	} else {
		s.dropoff = loc
	}
}

// clear drops endpoints and route and bumps every generation so pending results are ignored.
func (s *Session) clear() {
	s.pickup = nil
	s.dropoff = nil
	s.route = nil
	s.gen[EndpointPickup] = s.nextGen()
	s.gen[EndpointDropoff] = s.nextGen()
	s.routeGen = s.nextGen()
}

func (s *Session) nextGen() uint64 {
	s.seq++
	return s.seq
}
