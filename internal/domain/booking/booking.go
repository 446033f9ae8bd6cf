package booking

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
)

const bookingNumberDigits = 4

// Booking is an immutable, finalized quote. Lifecycle status lives on Record.
type Booking struct {
	id              uuid.UUID
	bookingNumber   string
	pickup          Location
	dropoff         Location
	distanceKm      float64
	durationMinutes *float64
	fare            float64
	createdAt       time.Time
}

// GenerateBookingNumber creates a booking number in the format "BK" + YYYYMMDD + 4 digits,
// dated in the location of now.
func GenerateBookingNumber(now time.Time) (string, error) {
	var sb strings.Builder
	sb.WriteString("BK")
	sb.WriteString(now.Format("20060102"))
	for i := 0; i < bookingNumberDigits; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("failed to generate booking number: %w", err)
		}
		sb.WriteByte(byte('0' + n.Int64()))
	}
	return sb.String(), nil
}

func newBooking(
	bookingNumber string,
	pickup Location,
	dropoff Location,
	distanceKm float64,
	durationMinutes *float64,
	fare float64,
	createdAt time.Time,
) *Booking {
	var duration *float64
	if durationMinutes != nil {
		d := *durationMinutes
		duration = &d
	}
	return &Booking{
		id:              uuid.New(),
		bookingNumber:   bookingNumber,
		pickup:          pickup,
		dropoff:         dropoff,
		distanceKm:      distanceKm,
		durationMinutes: duration,
		fare:            fare,
		createdAt:       createdAt.UTC(),
	}
}

// ReconstructBooking rebuilds a Booking from persistence data (no validation).
func ReconstructBooking(
	id uuid.UUID,
	bookingNumber string,
	pickup Location,
	dropoff Location,
	distanceKm float64,
	durationMinutes *float64,
	fare float64,
	createdAt time.Time,
) *Booking {
	return &Booking{
		id:              id,
		bookingNumber:   bookingNumber,
		pickup:          pickup,
		dropoff:         dropoff,
		distanceKm:      distanceKm,
		durationMinutes: durationMinutes,
		fare:            fare,
		createdAt:       createdAt,
	}
}

// WithBookingNumber returns a copy of the booking carrying a different booking number.
// Used when the persisted number collides with an existing one.
func (b *Booking) WithBookingNumber(number string) *Booking {
	cp := *b
	cp.bookingNumber = number
	return &cp
}

// --- Getters ---

// ID returns the booking's unique identifier.
func (b *Booking) ID() uuid.UUID { return b.id }

// BookingNumber returns the human-shareable booking number.
func (b *Booking) BookingNumber() string { return b.bookingNumber }

// Pickup returns the pickup location.
func (b *Booking) Pickup() Location { return b.pickup }

// Dropoff returns the dropoff location.
func (b *Booking) Dropoff() Location { return b.dropoff }

// DistanceKm returns the trip distance in kilometres.
func (b *Booking) DistanceKm() float64 { return b.distanceKm }

// DurationMinutes returns the routed duration, or nil for a straight-line estimate.
func (b *Booking) DurationMinutes() *float64 {
	if b.durationMinutes == nil {
		return nil
	}
	d := *b.durationMinutes
	return &d
}

// Fare returns the computed fare.
func (b *Booking) Fare() float64 { return b.fare }

// CreatedAt returns the creation timestamp.
func (b *Booking) CreatedAt() time.Time { return b.createdAt }

// Contact holds the optional rider-facing contact details submitted with a booking.
type Contact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// Record is the persisted envelope around an immutable Booking. It carries the lifecycle
// status managed after finalize.
type Record struct {
	booking     *Booking
	status      BookingStatus
	riderID     string
	contact     Contact
	cancelNote  string
	completedAt *time.Time
	cancelledAt *time.Time
	version     int64
	updatedAt   time.Time
}

// NewRecord wraps a finalized booking in a pending record.
func NewRecord(bk *Booking, contact Contact) *Record {
	return &Record{
		booking:   bk,
		status:    StatusPending,
		contact:   Contact{Name: strings.TrimSpace(contact.Name), Phone: strings.TrimSpace(contact.Phone)},
		version:   1,
		updatedAt: bk.CreatedAt(),
	}
}

// ReconstructRecord rebuilds a Record from persistence data (no validation).
func ReconstructRecord(
	bk *Booking,
	status BookingStatus,
	riderID string,
	contact Contact,
	cancelNote string,
	completedAt *time.Time,
	cancelledAt *time.Time,
	version int64,
	updatedAt time.Time,
) *Record {
	return &Record{
		booking:     bk,
		status:      status,
		riderID:     riderID,
		contact:     contact,
		cancelNote:  cancelNote,
		completedAt: completedAt,
		cancelledAt: cancelledAt,
		version:     version,
		updatedAt:   updatedAt,
	}
}

// Booking returns the immutable booking.
func (r *Record) Booking() *Booking { return r.booking }

// Status returns the current lifecycle status.
func (r *Record) Status() BookingStatus { return r.status }

// RiderID returns the assigned rider, or "" if unassigned.
func (r *Record) RiderID() string { return r.riderID }

// Contact returns the contact details.
func (r *Record) Contact() Contact { return r.contact }

// CancelNote returns the cancellation reason.
func (r *Record) CancelNote() string { return r.cancelNote }

// CompletedAt returns the completion time.
func (r *Record) CompletedAt() *time.Time { return r.completedAt }

// CancelledAt returns the cancellation time.
func (r *Record) CancelledAt() *time.Time { return r.cancelledAt }

// Version returns the entity version for optimistic locking.
func (r *Record) Version() int64 { return r.version }

// UpdatedAt returns the last-updated timestamp.
func (r *Record) UpdatedAt() time.Time { return r.updatedAt }

// Confirm transitions the record from pending to confirmed.
func (r *Record) Confirm() error {
	return r.transition(StatusConfirmed)
}

// AssignRider dispatches a rider to the booking.
func (r *Record) AssignRider(riderID string) error {
	riderID = strings.TrimSpace(riderID)
	if riderID == "" {
		return NewValidationError("rider ID is required")
	}
	if err := r.transition(StatusAssigned); err != nil {
		return err
	}
	r.riderID = riderID
	return nil
}

// Complete transitions an assigned record to completed.
func (r *Record) Complete() error {
	if err := r.transition(StatusCompleted); err != nil {
		return err
	}
	now := r.updatedAt
	r.completedAt = &now
	return nil
}

// Cancel transitions the record to cancelled if it is not in a terminal state.
func (r *Record) Cancel(reason string) error {
	if !r.status.CanBeCancelled() {
		return NewInvalidStateError(string(r.status), string(StatusCancelled))
	}
	now := time.Now().UTC()
	r.status = StatusCancelled
	r.cancelNote = reason
	r.cancelledAt = &now
	r.updatedAt = now
	return nil
}

// IncrementVersion bumps the version for optimistic locking.
func (r *Record) IncrementVersion() {
	r.version++
	r.updatedAt = time.Now().UTC()
}

func (r *Record) transition(target BookingStatus) error {
	if !r.status.CanTransitionTo(target) {
		return NewInvalidStateError(string(r.status), string(target))
	}
	r.status = target
	r.updatedAt = time.Now().UTC()
	return nil
}
