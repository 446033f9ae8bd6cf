package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	bookingDomain "github.com/sakay-ph/service-booking/internal/domain/booking"
	"gorm.io/gorm"
)

// BookingModel is the GORM model for the bookings table.
type BookingModel struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	BookingNumber   string          `gorm:"uniqueIndex;not null;size:20"`
	Status          string          `gorm:"not null;size:30;index"`
	Pickup          json.RawMessage `gorm:"type:jsonb;not null"`
	Dropoff         json.RawMessage `gorm:"type:jsonb;not null"`
	DistanceKm      float64         `gorm:"not null"`
	DurationMinutes *float64        `gorm:""`
	Fare            float64         `gorm:"not null"`
	RiderID         string          `gorm:"size:64;index"`
	ContactName     string          `gorm:"size:120"`
	ContactPhone    string          `gorm:"size:32"`
	CancelNote      string          `gorm:"size:500"`
	CompletedAt     *time.Time      `gorm:""`
	CancelledAt     *time.Time      `gorm:""`
	Version         int64           `gorm:"not null;default:1"`
	CreatedAt       time.Time       `gorm:"not null"`
	UpdatedAt       time.Time       `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (BookingModel) TableName() string {
	return "bookings"
}

// GormBookingRepository is the GORM-based implementation of booking.Repository.
type GormBookingRepository struct {
	db *gorm.DB
}

// NewGormBookingRepository creates a new GormBookingRepository.
func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

// FindByNumber retrieves a record by its booking number.
func (r *GormBookingRepository) FindByNumber(ctx context.Context, number string) (*bookingDomain.Record, error) {
	var model BookingModel
	if err := r.db.WithContext(ctx).Where("booking_number = ?", number).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, bookingDomain.NewNotFoundError("Booking", number)
		}
		return nil, fmt.Errorf("failed to find booking by number: %w", err)
	}
	return toDomainRecord(&model)
}

// Save persists a new record. A taken booking number yields ErrDuplicateBookingNumber.
func (r *GormBookingRepository) Save(ctx context.Context, rec *bookingDomain.Record) error {
	model, err := toBookingModel(rec)
	if err != nil {
		return fmt.Errorf("failed to convert booking to model: %w", err)
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return bookingDomain.ErrDuplicateBookingNumber
		}
		return fmt.Errorf("failed to save booking: %w", err)
	}
	return nil
}

// Update persists lifecycle changes with optimistic locking. The record's version must
// already have been incremented.
func (r *GormBookingRepository) Update(ctx context.Context, rec *bookingDomain.Record) error {
	model, err := toBookingModel(rec)
	if err != nil {
		return fmt.Errorf("failed to convert booking to model: %w", err)
	}

	expectedVersion := rec.Version() - 1
	result := r.db.WithContext(ctx).
		Model(&BookingModel{}).
		Where("id = ? AND version = ?", model.ID, expectedVersion).
		Updates(map[string]interface{}{
			"status":       model.Status,
			"rider_id":     model.RiderID,
			"cancel_note":  model.CancelNote,
			"completed_at": model.CompletedAt,
			"cancelled_at": model.CancelledAt,
			"version":      model.Version,
			"updated_at":   model.UpdatedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update booking: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return bookingDomain.NewConflictError("booking was modified by another transaction")
	}
	return nil
}

// ListAll retrieves records with pagination, newest first, optionally filtered by status.
func (r *GormBookingRepository) ListAll(ctx context.Context, page, limit int, status *bookingDomain.BookingStatus) ([]*bookingDomain.Record, int64, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		if status != nil {
			return db.Where("status = ?", string(*status))
		}
		return db
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&BookingModel{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	var models []BookingModel
	offset := (page - 1) * limit
	if err := r.db.WithContext(ctx).
		Scopes(scope).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}

	records := make([]*bookingDomain.Record, len(models))
	for i := range models {
		rec, err := toDomainRecord(&models[i])
		if err != nil {
			return nil, 0, err
		}
		records[i] = rec
	}
	return records, total, nil
}

// CountByStatus returns record counts grouped by status (admin).
func (r *GormBookingRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	type statusCount struct {
		Status string
		Count  int64
	}
	var results []statusCount
	if err := r.db.WithContext(ctx).Model(&BookingModel{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}

	counts := make(map[string]int64)
	for _, sc := range results {
		counts[sc.Status] = sc.Count
	}
	return counts, nil
}

// --- Conversion Helpers ---

func toBookingModel(rec *bookingDomain.Record) (*BookingModel, error) {
	bk := rec.Booking()

	pickupJSON, err := json.Marshal(bk.Pickup())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal pickup: %w", err)
	}
	dropoffJSON, err := json.Marshal(bk.Dropoff())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal dropoff: %w", err)
	}

	return &BookingModel{
		ID:              bk.ID(),
		BookingNumber:   bk.BookingNumber(),
		Status:          string(rec.Status()),
		Pickup:          pickupJSON,
		Dropoff:         dropoffJSON,
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
	}, nil
}

func toDomainRecord(m *BookingModel) (*bookingDomain.Record, error) {
	var pickup bookingDomain.Location
	if err := json.Unmarshal(m.Pickup, &pickup); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pickup: %w", err)
	}
	var dropoff bookingDomain.Location
	if err := json.Unmarshal(m.Dropoff, &dropoff); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dropoff: %w", err)
	}

	status, err := bookingDomain.ParseBookingStatus(m.Status)
	if err != nil {
		return nil, err
	}

	bk := bookingDomain.ReconstructBooking(
		m.ID,
		m.BookingNumber,
		pickup,
		dropoff,
		m.DistanceKm,
		m.DurationMinutes,
		m.Fare,
		m.CreatedAt.UTC(),
	)
	return bookingDomain.ReconstructRecord(
		bk,
		status,
		m.RiderID,
		bookingDomain.Contact{Name: m.ContactName, Phone: m.ContactPhone},
		m.CancelNote,
		m.CompletedAt,
		m.CancelledAt,
		m.Version,
		m.UpdatedAt,
	), nil
}
