package application

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	bookingDomain "github.com/sakay-ph/service-booking/internal/domain/booking"
	"go.uber.org/zap"
)

// ErrPositionUnavailable is returned by ReportedPosition when the device gave no fix.
var ErrPositionUnavailable = errors.New("device position unavailable")

// BookingCreator persists finalized bookings.
type BookingCreator interface {
	CreateBooking(ctx context.Context, bk *bookingDomain.Booking, contact bookingDomain.Contact) (*BookingDTO, error)
}

// QuoteDTO is the response representation of a quote session.
type QuoteDTO struct {
	SessionID       uuid.UUID                   `json:"session_id"`
	State           string                      `json:"state"`
	Pickup          *bookingDomain.Location     `json:"pickup"`
	Dropoff         *bookingDomain.Location     `json:"dropoff"`
	Route           *bookingDomain.RouteResult  `json:"route"`
	DistanceKm      *float64                    `json:"distance_km"`
	DurationMinutes *float64                    `json:"duration_minutes"`
	Fare            bookingDomain.FareEstimate  `json:"fare"`
	Breakdown       bookingDomain.FareBreakdown `json:"breakdown"`
}

// SelectionDTO is the outcome of selecting a location plus the resulting quote.
type SelectionDTO struct {
	Location   bookingDomain.Location     `json:"location"`
	Route      *bookingDomain.RouteResult `json:"route,omitempty"`
	Superseded bool                       `json:"superseded"`
	Quote      QuoteDTO                   `json:"quote"`
}

// FareQuoteDTO is a standalone fare estimate.
type FareQuoteDTO struct {
	DistanceKm *float64                    `json:"distance_km"`
	Fare       bookingDomain.FareEstimate  `json:"fare"`
	Breakdown  bookingDomain.FareBreakdown `json:"breakdown"`
	Policy     bookingDomain.FarePolicy    `json:"policy"`
}

// ReportedPosition is a device position relayed by the client. Denied, or a missing
// coordinate, means the device could not or would not share it.
type ReportedPosition struct {
	Coordinate *bookingDomain.Coordinate
	Denied     bool
}

// CurrentPosition implements booking.Locator.
func (p ReportedPosition) CurrentPosition(context.Context) (bookingDomain.Coordinate, error) {
	if p.Denied || p.Coordinate == nil {
		return bookingDomain.Coordinate{}, ErrPositionUnavailable
	}
	return *p.Coordinate, nil
}

// QuoteService orchestrates quote sessions: location selection, routing, fare display
// and finalizing into a persisted booking.
type QuoteService struct {
	deps     bookingDomain.SessionDeps
	fares    *bookingDomain.StandardFareModel
	sessions *SessionStore
	bookings BookingCreator
	logger   *zap.Logger
	now      func() time.Time
}

// QuoteServiceOption customizes a QuoteService.
type QuoteServiceOption func(*QuoteService)

// WithQuoteClock sets the clock handed to new sessions. Its location dates booking numbers.
func WithQuoteClock(now func() time.Time) QuoteServiceOption {
	return func(s *QuoteService) { s.now = now }
}

// NewQuoteService creates a new QuoteService.
func NewQuoteService(
	bounds bookingDomain.Bounds,
	fares *bookingDomain.StandardFareModel,
	routes bookingDomain.RouteResolver,
	addresses bookingDomain.AddressResolver,
	sessions *SessionStore,
	bookings BookingCreator,
	logger *zap.Logger,
	opts ...QuoteServiceOption,
) *QuoteService {
	s := &QuoteService{
		deps: bookingDomain.SessionDeps{
			Bounds:    bounds,
			Fares:     fares,
			Routes:    routes,
			Addresses: addresses,
		},
		fares:    fares,
		sessions: sessions,
		bookings: bookings,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartSession opens an empty quote session.
func (s *QuoteService) StartSession(ctx context.Context) QuoteDTO {
	session := bookingDomain.NewSession(s.deps, bookingDomain.WithClock(s.now))
	id := s.sessions.Add(session)
	return toQuoteDTO(id, session.Snapshot())
}

// GetQuote returns the current quote of a session.
func (s *QuoteService) GetQuote(ctx context.Context, id uuid.UUID) (*QuoteDTO, error) {
	session, err := s.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	q := toQuoteDTO(id, session.Snapshot())
	return &q, nil
}

// SelectLocation sets an endpoint of the session. An empty or nil label is resolved by
// reverse geocoding.
func (s *QuoteService) SelectLocation(ctx context.Context, id uuid.UUID, ep bookingDomain.Endpoint, c bookingDomain.Coordinate, label *string) (*SelectionDTO, error) {
	session, err := s.sessions.Get(id)
	if err != nil {
		return nil, err
	}

	sel, err := session.SelectLocation(ctx, ep, c, label)
	if err != nil {
		s.logRejection("location rejected", id, err)
		return nil, err
	}
	return s.selectionDTO(id, session, sel), nil
}

// SelectCurrentLocation sets an endpoint from the device position.
func (s *QuoteService) SelectCurrentLocation(ctx context.Context, id uuid.UUID, ep bookingDomain.Endpoint, locator bookingDomain.Locator) (*SelectionDTO, error) {
	session, err := s.sessions.Get(id)
	if err != nil {
		return nil, err
	}

	sel, err := session.SelectCurrentLocation(ctx, ep, locator)
	if err != nil {
		s.logRejection("current location rejected", id, err)
		return nil, err
	}
	return s.selectionDTO(id, session, sel), nil
}

// Swap exchanges pickup and dropoff.
func (s *QuoteService) Swap(ctx context.Context, id uuid.UUID) (*QuoteDTO, error) {
	session, err := s.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	session.Swap()
	q := toQuoteDTO(id, session.Snapshot())
	return &q, nil
}

// Reset clears the session back to empty.
func (s *QuoteService) Reset(ctx context.Context, id uuid.UUID) (*QuoteDTO, error) {
	session, err := s.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	session.Reset()
	s.sessions.setFinalized(id, nil)
	q := toQuoteDTO(id, session.Snapshot())
	return &q, nil
}

// Book finalizes the session and persists the booking. On success the session is
// discarded. If persisting fails the finalized booking is kept so Book can be retried.
// Only one Book call per session runs at a time; a concurrent one gets a conflict.
func (s *QuoteService) Book(ctx context.Context, id uuid.UUID, consent bool, contact bookingDomain.Contact) (*BookingDTO, error) {
	session, err := s.sessions.Get(id)
	if err != nil {
		return nil, err
	}

	// Consent is required on every attempt, including a retry of a booking that was
	// already finalized.
	if !consent {
		s.logRejection("finalize rejected", id, bookingDomain.ErrTermsNotAccepted)
		return nil, bookingDomain.ErrTermsNotAccepted
	}

	if !s.sessions.beginBooking(id) {
		return nil, bookingDomain.NewConflictError("a booking for this session is already in progress")
	}
	defer s.sessions.endBooking(id)

	bk := s.sessions.finalizedBooking(id)
	if bk == nil {
		bk, err = session.Finalize(consent)
		if err != nil {
			s.logRejection("finalize rejected", id, err)
			return nil, err
		}
		s.sessions.setFinalized(id, bk)
	}

	result, err := s.bookings.CreateBooking(ctx, bk, contact)
	if err != nil {
		s.logger.Error("failed to persist finalized booking",
			zap.String("session_id", id.String()),
			zap.String("booking_number", bk.BookingNumber()),
			zap.Error(err),
		)
		return nil, err
	}

	s.sessions.Remove(id)
	return result, nil
}

// SearchAddress forward-geocodes query. Without a bias the service area center is used.
func (s *QuoteService) SearchAddress(ctx context.Context, query string, bias *bookingDomain.Coordinate) []bookingDomain.Place {
	center := s.deps.Bounds.Center()
	if bias != nil && bias.Valid() {
		center = *bias
	}
	return s.deps.Addresses.Search(ctx, strings.TrimSpace(query), center)
}

// ReverseGeocode returns a label for c; "" when none is available.
func (s *QuoteService) ReverseGeocode(ctx context.Context, c bookingDomain.Coordinate) (string, error) {
	if !c.Valid() {
		return "", bookingDomain.NewValidationError("invalid coordinate")
	}
	return s.deps.Addresses.Reverse(ctx, c), nil
}

// EstimateFare prices a distance. A nil distance is an unknown distance.
func (s *QuoteService) EstimateFare(distanceKm *float64) (*FareQuoteDTO, error) {
	out := &FareQuoteDTO{
		DistanceKm: distanceKm,
		Policy:     s.fares.Policy(),
	}
	if distanceKm != nil {
		d := *distanceKm
		if math.IsNaN(d) || math.IsInf(d, 0) || d < 0 {
			return nil, bookingDomain.NewValidationError("distance_km must be a non-negative number")
		}
		out.Breakdown = s.fares.Breakdown(*distanceKm)
	}
	out.Fare = s.fares.Estimate(distanceKm)
	return out, nil
}

func (s *QuoteService) selectionDTO(id uuid.UUID, session *bookingDomain.Session, sel bookingDomain.Selection) *SelectionDTO {
	return &SelectionDTO{
		Location:   sel.Location,
		Route:      sel.Route,
		Superseded: sel.Superseded,
		Quote:      toQuoteDTO(id, session.Snapshot()),
	}
}

func (s *QuoteService) logRejection(msg string, id uuid.UUID, err error) {
	s.logger.Info(msg,
		zap.String("session_id", id.String()),
		zap.String("code", string(bookingDomain.CodeOf(err))),
		zap.Error(err),
	)
}

func toQuoteDTO(id uuid.UUID, q bookingDomain.Quote) QuoteDTO {
	dto := QuoteDTO{
		SessionID:  id,
		State:      string(q.State),
		Pickup:     q.Pickup,
		Dropoff:    q.Dropoff,
		Route:      q.Route,
		DistanceKm: q.DistanceKm(),
		Fare:       q.Fare,
		Breakdown:  q.Breakdown,
	}
	if q.Route != nil {
		dto.DurationMinutes = q.Route.Primary.DurationMinutes
	}
	return dto
}
