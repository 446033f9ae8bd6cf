package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	bookingDomain "github.com/sakay-ph/service-booking/internal/domain/booking"
	"github.com/sakay-ph/service-booking/internal/kafka"
	"go.uber.org/zap"
)

const (
	serviceSource = "service-booking"

	// maxNumberAttempts bounds how often a colliding booking number is regenerated.
	maxNumberAttempts = 3
)

// EventPublisher publishes CloudEvents to a topic.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, ce kafka.CloudEvent) error
}

// BookingDTO is the response representation of a persisted booking.
type BookingDTO struct {
	ID              uuid.UUID              `json:"id"`
	BookingNumber   string                 `json:"booking_number"`
	Status          string                 `json:"status"`
	Pickup          bookingDomain.Location `json:"pickup"`
	Dropoff         bookingDomain.Location `json:"dropoff"`
	DistanceKm      float64                `json:"distance_km"`
	DurationMinutes *float64               `json:"duration_minutes,omitempty"`
	Fare            float64                `json:"fare"`
	RiderID         string                 `json:"rider_id,omitempty"`
	ContactName     string                 `json:"contact_name,omitempty"`
	ContactPhone    string                 `json:"contact_phone,omitempty"`
	CancelNote      string                 `json:"cancel_note,omitempty"`
	CompletedAt     *time.Time             `json:"completed_at,omitempty"`
	CancelledAt     *time.Time             `json:"cancelled_at,omitempty"`
	Version         int64                  `json:"version"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// BookingStatsDTO holds booking statistics for the admin dashboard.
type BookingStatsDTO struct {
	TotalBookings int64            `json:"total_bookings"`
	ByStatus      map[string]int64 `json:"by_status"`
}

// BookingService is the application service for persisted bookings and their lifecycle.
type BookingService struct {
	repo      bookingDomain.Repository
	publisher EventPublisher
	logger    *zap.Logger
	location  *time.Location
	numbers   func(time.Time) (string, error)
}

// BookingServiceOption customizes a BookingService.
type BookingServiceOption func(*BookingService)

// WithBookingLocation sets the timezone used to date regenerated booking numbers.
func WithBookingLocation(loc *time.Location) BookingServiceOption {
	return func(s *BookingService) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithBookingNumbers overrides the generator used when a booking number collides.
func WithBookingNumbers(gen func(time.Time) (string, error)) BookingServiceOption {
	return func(s *BookingService) { s.numbers = gen }
}

// NewBookingService creates a new BookingService.
func NewBookingService(
	repo bookingDomain.Repository,
	publisher EventPublisher,
	logger *zap.Logger,
	opts ...BookingServiceOption,
) *BookingService {
	s := &BookingService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		location:  time.UTC,
		numbers:   bookingDomain.GenerateBookingNumber,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateBooking persists a finalized booking as a pending record. When the booking number
// is already taken a fresh one for the same day is drawn, up to a small number of times.
func (s *BookingService) CreateBooking(ctx context.Context, bk *bookingDomain.Booking, contact bookingDomain.Contact) (*BookingDTO, error) {
	var rec *bookingDomain.Record
	for attempt := 1; ; attempt++ {
		rec = bookingDomain.NewRecord(bk, contact)
		err := s.repo.Save(ctx, rec)
		if err == nil {
			break
		}
		if !errors.Is(err, bookingDomain.ErrDuplicateBookingNumber) {
			return nil, fmt.Errorf("failed to save booking: %w", err)
		}
		if attempt == maxNumberAttempts {
			return nil, bookingDomain.NewConflictError("could not allocate a unique booking number")
		}

		number, genErr := s.numbers(bk.CreatedAt().In(s.location))
		if genErr != nil {
			return nil, genErr
		}
		s.logger.Warn("booking number collision, renumbering",
			zap.String("booking_number", bk.BookingNumber()),
			zap.String("new_booking_number", number),
		)
		bk = bk.WithBookingNumber(number)
	}

	s.publishBookingCreated(ctx, rec)

	s.logger.Info("booking created",
		zap.String("booking_number", bk.BookingNumber()),
		zap.Float64("distance_km", bk.DistanceKm()),
		zap.Float64("fare", bk.Fare()),
	)

	result := toBookingDTO(rec)
	return &result, nil
}

// GetBooking retrieves a single booking by its number.
func (s *BookingService) GetBooking(ctx context.Context, number string) (*BookingDTO, error) {
	rec, err := s.repo.FindByNumber(ctx, normalizeNumber(number))
	if err != nil {
		return nil, err
	}
	result := toBookingDTO(rec)
	return &result, nil
}

// ConfirmBooking moves a pending booking to confirmed.
func (s *BookingService) ConfirmBooking(ctx context.Context, number string) (*BookingDTO, error) {
	return s.transition(ctx, number, "", func(rec *bookingDomain.Record) error {
		return rec.Confirm()
	})
}

// AssignRider dispatches riderID to the booking. Re-assigning the same rider is a no-op.
func (s *BookingService) AssignRider(ctx context.Context, number, riderID string) (*BookingDTO, error) {
	riderID = strings.TrimSpace(riderID)
	rec, err := s.repo.FindByNumber(ctx, normalizeNumber(number))
	if err != nil {
		return nil, err
	}
	if rec.Status() == bookingDomain.StatusAssigned && rec.RiderID() == riderID {
		result := toBookingDTO(rec)
		return &result, nil
	}
	return s.apply(ctx, rec, "", func(rec *bookingDomain.Record) error {
		return rec.AssignRider(riderID)
	})
}

// CompleteBooking marks an assigned booking as completed. Completing twice is a no-op.
func (s *BookingService) CompleteBooking(ctx context.Context, number string) (*BookingDTO, error) {
	rec, err := s.repo.FindByNumber(ctx, normalizeNumber(number))
	if err != nil {
		return nil, err
	}
	if rec.Status() == bookingDomain.StatusCompleted {
		result := toBookingDTO(rec)
		return &result, nil
	}
	return s.apply(ctx, rec, "", func(rec *bookingDomain.Record) error {
		return rec.Complete()
	})
}

// CancelBooking cancels a booking that is not yet in a terminal state.
func (s *BookingService) CancelBooking(ctx context.Context, number, reason string) (*BookingDTO, error) {
	reason = strings.TrimSpace(reason)
	return s.transition(ctx, number, reason, func(rec *bookingDomain.Record) error {
		return rec.Cancel(reason)
	})
}

// ListAllBookings returns a paginated list of bookings, optionally filtered by status (admin).
func (s *BookingService) ListAllBookings(ctx context.Context, page, limit int, status *bookingDomain.BookingStatus) ([]BookingDTO, int64, error) {
	records, total, err := s.repo.ListAll(ctx, page, limit, status)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}

	dtos := make([]BookingDTO, len(records))
	for i, rec := range records {
		dtos[i] = toBookingDTO(rec)
	}
	return dtos, total, nil
}

// GetBookingStats returns aggregate booking statistics (admin).
func (s *BookingService) GetBookingStats(ctx context.Context) (*BookingStatsDTO, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking stats: %w", err)
	}

	var total int64
	for _, c := range counts {
		total += c
	}

	return &BookingStatsDTO{
		TotalBookings: total,
		ByStatus:      counts,
	}, nil
}

// --- Helpers ---

func (s *BookingService) transition(ctx context.Context, number, reason string, change func(*bookingDomain.Record) error) (*BookingDTO, error) {
	rec, err := s.repo.FindByNumber(ctx, normalizeNumber(number))
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, rec, reason, change)
}

func (s *BookingService) apply(ctx context.Context, rec *bookingDomain.Record, reason string, change func(*bookingDomain.Record) error) (*BookingDTO, error) {
	from := rec.Status()
	if err := change(rec); err != nil {
		return nil, err
	}

	rec.IncrementVersion()
	if err := s.repo.Update(ctx, rec); err != nil {
		return nil, err
	}

	evt := bookingDomain.BookingStatusChangedEvent{
		BookingNumber: rec.Booking().BookingNumber(),
		From:          string(from),
		To:            string(rec.Status()),
		RiderID:       rec.RiderID(),
		Reason:        reason,
		OccurredAt:    time.Now().UTC(),
	}
	s.publishEvent(ctx, bookingDomain.TopicBookingEvents, bookingDomain.EventBookingStatusChanged, evt.BookingNumber, evt)

	result := toBookingDTO(rec)
	return &result, nil
}

func (s *BookingService) publishBookingCreated(ctx context.Context, rec *bookingDomain.Record) {
	bk := rec.Booking()
	evt := bookingDomain.BookingCreatedEvent{
		BookingID:       bk.ID().String(),
		BookingNumber:   bk.BookingNumber(),
		PickupLat:       bk.Pickup().Coordinate.Lat,
		PickupLng:       bk.Pickup().Coordinate.Lng,
		PickupName:      bk.Pickup().DisplayName,
		DropoffLat:      bk.Dropoff().Coordinate.Lat,
		DropoffLng:      bk.Dropoff().Coordinate.Lng,
		DropoffName:     bk.Dropoff().DisplayName,
		DistanceKm:      bk.DistanceKm(),
		DurationMinutes: bk.DurationMinutes(),
		Fare:            bk.Fare(),
		ContactName:     rec.Contact().Name,
		ContactPhone:    rec.Contact().Phone,
		OccurredAt:      time.Now().UTC(),
	}
	s.publishEvent(ctx, bookingDomain.TopicBookingEvents, bookingDomain.EventBookingCreated, evt.BookingNumber, evt)
}

func (s *BookingService) publishEvent(ctx context.Context, topic, eventType, key string, data interface{}) {
	if s.publisher == nil {
		return
	}

	cloudEvent, err := kafka.NewCloudEvent(serviceSource, eventType, data)
	if err != nil {
		s.logger.Error("failed to create cloud event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}

	if err := s.publisher.PublishEvent(ctx, topic, cloudEvent.WithSubject(key)); err != nil {
		s.logger.Error("failed to publish event",
			zap.String("topic", topic),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}

func toBookingDTO(rec *bookingDomain.Record) BookingDTO {
	bk := rec.Booking()
	return BookingDTO{
		ID:              bk.ID(),
		BookingNumber:   bk.BookingNumber(),
		Status:          string(rec.Status()),
		Pickup:          bk.Pickup(),
		Dropoff:         bk.Dropoff(),
		DistanceKm:      bk.DistanceKm(),
		DurationMinutes: bk.DurationMinutes(),
		Fare:            bk.Fare(),
		RiderID:         rec.RiderID(),
		ContactName:     rec.Contact().Name,
		ContactPhone:    rec.Contact().Phone,
		CancelNote:      rec.CancelNote(),
		CompletedAt:     rec.CompletedAt(),
		CancelledAt:     rec.CancelledAt(),
		Version:         rec.Version(),
		CreatedAt:       bk.CreatedAt(),
		UpdatedAt:       rec.UpdatedAt(),
	}
}

func normalizeNumber(n string) string {
	return strings.ToUpper(strings.TrimSpace(n))
}
