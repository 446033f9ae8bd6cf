package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAddresses struct {
	mu       sync.Mutex
	labels   map[Coordinate]string
	reverses int
}

func (f *fakeAddresses) Search(context.Context, string, Coordinate) []Place { return nil }

func (f *fakeAddresses) Reverse(_ context.Context, c Coordinate) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reverses++
	return f.labels[c]
}

type fakeRoutes struct {
	mu     sync.Mutex
	result RouteResult
	calls  [][2]Coordinate
	gate   chan struct{}
}

func (f *fakeRoutes) Resolve(_ context.Context, start, end Coordinate) RouteResult {
	f.mu.Lock()
	f.calls = append(f.calls, [2]Coordinate{start, end})
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return f.result
}

type fixedLocator struct {
	c   Coordinate
	err error
}

func (l fixedLocator) CurrentPosition(context.Context) (Coordinate, error) { return l.c, l.err }

var (
	daetPlaza     = Coordinate{Lat: 14.10, Lng: 122.90}
	basudTerminal = Coordinate{Lat: 14.20, Lng: 123.00}
)

func ptr[T any](v T) *T { return &v }

func newTestSession(routes *fakeRoutes, addrs *fakeAddresses) *Session {
	if addrs == nil {
		addrs = &fakeAddresses{}
	}
	clock := func() time.Time { return time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC) }
	return NewSession(SessionDeps{
		Bounds:    camarinesNorte,
		Fares:     NewStandardFareModel(DefaultFarePolicy()),
		Routes:    routes,
		Addresses: addrs,
	}, WithClock(clock))
}

func routedResult() RouteResult {
	return RouteResult{
		Primary: Route{
			Coordinates:     []Coordinate{daetPlaza, {Lat: 14.15, Lng: 122.95}, basudTerminal},
			DistanceKm:      12.5,
			DurationMinutes: ptr(20.0),
		},
		Alternatives: []Route{{Coordinates: []Coordinate{daetPlaza, basudTerminal}, DistanceKm: 14, DurationMinutes: ptr(24.0)}},
	}
}

func TestSession_EndToEnd(t *testing.T) {
	routes := &fakeRoutes{result: routedResult()}
	s := newTestSession(routes, nil)
	ctx := context.Background()

	assert.Equal(t, StateEmpty, s.State())

	sel, err := s.SelectLocation(ctx, EndpointPickup, daetPlaza, ptr("Daet Plaza"))
	require.NoError(t, err)
	assert.Equal(t, "Daet Plaza", sel.Location.DisplayName)
	assert.Nil(t, sel.Route)
	assert.Equal(t, StatePartialPickup, s.State())

	sel, err = s.SelectLocation(ctx, EndpointDropoff, basudTerminal, ptr("Basud Terminal"))
	require.NoError(t, err)
	require.NotNil(t, sel.Route)
	assert.Equal(t, 12.5, sel.Route.Primary.DistanceKm)
	assert.Len(t, sel.Route.Alternatives, 1)
	assert.Equal(t, StateBothSet, s.State())

	q := s.Snapshot()
	assert.Equal(t, FareEstimate{Amount: 192.5, Known: true}, q.Fare)
	assert.InDelta(t, 9.5, q.Breakdown.ExtraDistanceKm, 1e-9)

	bk, err := s.Finalize(true)
	require.NoError(t, err)
	assert.Regexp(t, bookingNumberPattern, bk.BookingNumber())
	assert.Equal(t, "BK20261019", bk.BookingNumber()[:10])
	assert.Equal(t, 12.5, bk.DistanceKm())
	assert.InDelta(t, 192.5, bk.Fare(), 1e-9)
	assert.Equal(t, 20.0, *bk.DurationMinutes())
	assert.Equal(t, "Daet Plaza", bk.Pickup().DisplayName)
	assert.Equal(t, "Basud Terminal", bk.Dropoff().DisplayName)
	assert.Equal(t, time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC), bk.CreatedAt())

	assert.Equal(t, StateFinalized, s.State())
	assert.Nil(t, s.Snapshot().Pickup)

	_, err = s.SelectLocation(ctx, EndpointPickup, daetPlaza, nil)
	assert.Equal(t, CodeInvalidState, CodeOf(err))

	s.Reset()
	assert.Equal(t, StateEmpty, s.State())
}

func TestSession_RouteAlwaysPickupToDropoff(t *testing.T) {
	routes := &fakeRoutes{result: routedResult()}
	s := newTestSession(routes, nil)
	ctx := context.Background()

	_, err := s.SelectLocation(ctx, EndpointDropoff, basudTerminal, ptr("Basud"))
	require.NoError(t, err)
	assert.Equal(t, StatePartialDropoff, s.State())
	_, err = s.SelectLocation(ctx, EndpointPickup, daetPlaza, ptr("Daet"))
	require.NoError(t, err)

	require.Len(t, routes.calls, 1)
	assert.Equal(t, [2]Coordinate{daetPlaza, basudTerminal}, routes.calls[0])
}

func TestSession_OutOfRange(t *testing.T) {
	routes := &fakeRoutes{result: routedResult()}
	addrs := &fakeAddresses{}
	s := newTestSession(routes, addrs)

	_, err := s.SelectLocation(context.Background(), EndpointPickup, Coordinate{Lat: 10.0, Lng: 122.9}, nil)
	assert.ErrorIs(t, err, ErrOutOfRange)
	assert.Nil(t, s.Snapshot().Pickup)
	assert.Zero(t, addrs.reverses)
	assert.Empty(t, routes.calls)
}

func TestSession_OutOfRangeKeepsPriorEndpoint(t *testing.T) {
	s := newTestSession(&fakeRoutes{}, nil)
	ctx := context.Background()

	_, err := s.SelectLocation(ctx, EndpointPickup, daetPlaza, ptr("Daet Plaza"))
	require.NoError(t, err)

	_, err = s.SelectLocation(ctx, EndpointPickup, Coordinate{Lat: 15.5, Lng: 122.9}, ptr("Far away"))
	assert.ErrorIs(t, err, ErrOutOfRange)

	q := s.Snapshot()
	require.NotNil(t, q.Pickup)
	assert.Equal(t, "Daet Plaza", q.Pickup.DisplayName)
}

func TestSession_ReverseGeocodesWithoutLabel(t *testing.T) {
	addrs := &fakeAddresses{labels: map[Coordinate]string{daetPlaza: "Vinzons Ave, Daet"}}
	s := newTestSession(&fakeRoutes{}, addrs)

	sel, err := s.SelectLocation(context.Background(), EndpointPickup, daetPlaza, nil)
	require.NoError(t, err)
	assert.Equal(t, "Vinzons Ave, Daet", sel.Location.DisplayName)
	assert.Equal(t, 1, addrs.reverses)

	sel, err = s.SelectLocation(context.Background(), EndpointPickup, daetPlaza, ptr("  "))
	require.NoError(t, err)
	assert.Equal(t, "Vinzons Ave, Daet", sel.Location.DisplayName)
	assert.Equal(t, 2, addrs.reverses)
}

func TestSession_FinalizeChecksConsentFirst(t *testing.T) {
	s := newTestSession(&fakeRoutes{result: routedResult()}, nil)
	ctx := context.Background()

	_, err := s.Finalize(false)
	assert.ErrorIs(t, err, ErrTermsNotAccepted)

	_, err = s.SelectLocation(ctx, EndpointPickup, daetPlaza, ptr("Daet Plaza"))
	require.NoError(t, err)

	_, err = s.Finalize(true)
	assert.ErrorIs(t, err, ErrIncompleteBooking)

	_, err = s.SelectLocation(ctx, EndpointDropoff, basudTerminal, ptr("Basud Terminal"))
	require.NoError(t, err)

	_, err = s.Finalize(false)
	assert.ErrorIs(t, err, ErrTermsNotAccepted)
	assert.Equal(t, StateBothSet, s.State())
}

func TestSession_FallbackRouteCanBeBooked(t *testing.T) {
	fallback := RouteResult{Primary: Route{DistanceKm: 15.49}, Fallback: true}
	s := newTestSession(&fakeRoutes{result: fallback}, nil)
	ctx := context.Background()

	_, err := s.SelectLocation(ctx, EndpointPickup, daetPlaza, ptr("A"))
	require.NoError(t, err)
	_, err = s.SelectLocation(ctx, EndpointDropoff, basudTerminal, ptr("B"))
	require.NoError(t, err)

	bk, err := s.Finalize(true)
	require.NoError(t, err)
	assert.Nil(t, bk.DurationMinutes())
	assert.InDelta(t, 50+(15.49-3)*15, bk.Fare(), 1e-9)
}

func TestSession_ZeroDistanceChargesBaseFare(t *testing.T) {
	s := newTestSession(&fakeRoutes{result: RouteResult{Primary: Route{DistanceKm: 0}}}, nil)
	ctx := context.Background()

	_, err := s.SelectLocation(ctx, EndpointPickup, daetPlaza, ptr("A"))
	require.NoError(t, err)
	_, err = s.SelectLocation(ctx, EndpointDropoff, daetPlaza, ptr("A"))
	require.NoError(t, err)

	bk, err := s.Finalize(true)
	require.NoError(t, err)
	assert.Equal(t, 50.0, bk.Fare())
}

func TestSession_SwapTwiceRestores(t *testing.T) {
	routes := &fakeRoutes{result: routedResult()}
	s := newTestSession(routes, nil)
	ctx := context.Background()

	_, err := s.SelectLocation(ctx, EndpointPickup, daetPlaza, ptr("Daet Plaza"))
	require.NoError(t, err)
	_, err = s.SelectLocation(ctx, EndpointDropoff, basudTerminal, ptr("Basud Terminal"))
	require.NoError(t, err)

	before := s.Snapshot()

	s.Swap()
	swapped := s.Snapshot()
	assert.Equal(t, before.Pickup, swapped.Dropoff)
	assert.Equal(t, before.Dropoff, swapped.Pickup)
	assert.Equal(t, before.Route, swapped.Route)
	assert.Len(t, routes.calls, 1, "swap must not re-resolve the route")

	s.Swap()
	assert.Equal(t, before, s.Snapshot())
}

func TestSession_SwapSingleEndpoint(t *testing.T) {
	s := newTestSession(&fakeRoutes{}, nil)

	_, err := s.SelectLocation(context.Background(), EndpointPickup, daetPlaza, ptr("Daet Plaza"))
	require.NoError(t, err)

	s.Swap()
	assert.Equal(t, StatePartialDropoff, s.State())
}

func TestSession_Reset(t *testing.T) {
	s := newTestSession(&fakeRoutes{result: routedResult()}, nil)
	ctx := context.Background()

	_, _ = s.SelectLocation(ctx, EndpointPickup, daetPlaza, ptr("A"))
	_, _ = s.SelectLocation(ctx, EndpointDropoff, basudTerminal, ptr("B"))

	s.Reset()
	q := s.Snapshot()
	assert.Equal(t, StateEmpty, q.State)
	assert.Nil(t, q.Pickup)
	assert.Nil(t, q.Dropoff)
	assert.Nil(t, q.Route)
	assert.Equal(t, FareEstimate{Amount: 50, Known: false}, q.Fare)
}

func TestSession_StaleRouteDiscarded(t *testing.T) {
	gate := make(chan struct{})
	routes := &fakeRoutes{result: routedResult(), gate: gate}
	s := newTestSession(routes, nil)
	ctx := context.Background()

	_, err := s.SelectLocation(ctx, EndpointPickup, daetPlaza, ptr("A"))
	require.NoError(t, err)

	done := make(chan Selection, 1)
	go func() {
		sel, _ := s.SelectLocation(ctx, EndpointDropoff, basudTerminal, ptr("B"))
		done <- sel
	}()

	require.Eventually(t, func() bool {
		routes.mu.Lock()
		defer routes.mu.Unlock()
		return len(routes.calls) == 1
	}, time.Second, 5*time.Millisecond)

	s.Reset()
	close(gate)

	sel := <-done
	assert.True(t, sel.Superseded)
	assert.Nil(t, sel.Route)
	assert.Equal(t, StateEmpty, s.State())
	assert.Nil(t, s.Snapshot().Route)
}

func TestSession_LastSelectionWins(t *testing.T) {
	block := make(chan struct{})
	addrs := &blockingAddresses{first: block, started: make(chan struct{})}
	s := NewSession(SessionDeps{
		Bounds:    camarinesNorte,
		Fares:     NewStandardFareModel(DefaultFarePolicy()),
		Routes:    &fakeRoutes{},
		Addresses: addrs,
	})
	ctx := context.Background()

	done := make(chan Selection, 1)
	go func() {
		sel, _ := s.SelectLocation(ctx, EndpointPickup, daetPlaza, nil)
		done <- sel
	}()
	<-addrs.started

	sel, err := s.SelectLocation(ctx, EndpointPickup, basudTerminal, ptr("Basud Terminal"))
	require.NoError(t, err)
	assert.False(t, sel.Superseded)

	close(block)
	first := <-done
	assert.True(t, first.Superseded)

	q := s.Snapshot()
	require.NotNil(t, q.Pickup)
	assert.Equal(t, "Basud Terminal", q.Pickup.DisplayName)
}

type blockingAddresses struct {
	first   chan struct{}
	started chan struct{}
	once    sync.Once
}

func (b *blockingAddresses) Search(context.Context, string, Coordinate) []Place { return nil }

func (b *blockingAddresses) Reverse(context.Context, Coordinate) string {
	b.once.Do(func() {
		close(b.started)
		<-b.first
	})
	return "slow label"
}

func TestSession_SelectCurrentLocation(t *testing.T) {
	addrs := &fakeAddresses{labels: map[Coordinate]string{daetPlaza: "Daet"}}
	s := newTestSession(&fakeRoutes{}, addrs)
	ctx := context.Background()

	sel, err := s.SelectCurrentLocation(ctx, EndpointPickup, fixedLocator{c: daetPlaza})
	require.NoError(t, err)
	assert.Equal(t, "Daet", sel.Location.DisplayName)

	_, err = s.SelectCurrentLocation(ctx, EndpointDropoff, fixedLocator{err: errors.New("user denied geolocation")})
	assert.ErrorIs(t, err, ErrLocationPermissionDenied)

	_, err = s.SelectCurrentLocation(ctx, EndpointDropoff, nil)
	assert.ErrorIs(t, err, ErrLocationPermissionDenied)

	_, err = s.SelectCurrentLocation(ctx, EndpointDropoff, fixedLocator{c: Coordinate{Lat: 10, Lng: 122.9}})
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestSession_InvalidEndpoint(t *testing.T) {
	s := newTestSession(&fakeRoutes{}, nil)

	_, err := s.SelectLocation(context.Background(), Endpoint("stopover"), daetPlaza, nil)
	assert.Equal(t, CodeValidation, CodeOf(err))

	ep, err := ParseEndpoint(" Dropoff ")
	require.NoError(t, err)
	assert.Equal(t, EndpointDropoff, ep)
}

func TestSession_NumberGeneratorFailure(t *testing.T) {
	s := NewSession(SessionDeps{
		Bounds:    camarinesNorte,
		Fares:     NewStandardFareModel(DefaultFarePolicy()),
		Routes:    &fakeRoutes{result: routedResult()},
		Addresses: &fakeAddresses{},
	}, WithNumberGenerator(func(time.Time) (string, error) { return "", assert.AnError }))
	ctx := context.Background()

	_, _ = s.SelectLocation(ctx, EndpointPickup, daetPlaza, ptr("A"))
	_, _ = s.SelectLocation(ctx, EndpointDropoff, basudTerminal, ptr("B"))

	_, err := s.Finalize(true)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, StateBothSet, s.State(), "a failed finalize keeps the quote")
}
