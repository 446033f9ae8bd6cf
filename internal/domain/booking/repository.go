package booking

import (
	"context"
	"errors"
)

// ErrDuplicateBookingNumber is returned by Save when the booking number is already taken.
var ErrDuplicateBookingNumber = errors.New("booking number already exists")

// Repository defines the persistence contract for booking records.
type Repository interface {
	// FindByNumber retrieves a record by its booking number.
	FindByNumber(ctx context.Context, number string) (*Record, error)

	// ListAll retrieves records with pagination, optionally filtered by status (admin).
	ListAll(ctx context.Context, page, limit int, status *BookingStatus) ([]*Record, int64, error)

	// CountByStatus returns record counts grouped by status (admin).
	CountByStatus(ctx context.Context) (map[string]int64, error)

	// Save persists a new record.
	Save(ctx context.Context, record *Record) error

	// Update persists changes to an existing record with optimistic locking.
	Update(ctx context.Context, record *Record) error
}
