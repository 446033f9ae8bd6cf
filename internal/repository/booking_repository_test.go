package repository

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	bookingDomain "github.com/sakay-ph/service-booking/internal/domain/booking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelConversion(t *testing.T) {
	duration := 20.0
	created := time.Date(2026, 10, 19, 1, 0, 0, 0, time.UTC)
	bk := bookingDomain.ReconstructBooking(
		uuid.New(),
		"BK202610190001",
		bookingDomain.Location{Coordinate: bookingDomain.Coordinate{Lat: 14.1, Lng: 122.9}, DisplayName: "Daet Plaza"},
		bookingDomain.Location{Coordinate: bookingDomain.Coordinate{Lat: 14.2, Lng: 123.0}, DisplayName: "Basud Terminal"},
		12.5,
		&duration,
		192.5,
		created,
	)
	rec := bookingDomain.NewRecord(bk, bookingDomain.Contact{Name: "Ana", Phone: "09171234567"})
	require.NoError(t, rec.AssignRider("rider-7"))
	rec.IncrementVersion()

	model, err := toBookingModel(rec)
	require.NoError(t, err)
	assert.Equal(t, "assigned", model.Status)
	assert.Equal(t, int64(2), model.Version)
	assert.JSONEq(t, `{"coordinate":{"lat":14.1,"lng":122.9},"display_name":"Daet Plaza"}`, string(model.Pickup))

	back, err := toDomainRecord(model)
	require.NoError(t, err)
	assert.Equal(t, rec.Status(), back.Status())
	assert.Equal(t, "rider-7", back.RiderID())
	assert.Equal(t, rec.Contact(), back.Contact())
	assert.Equal(t, bk.BookingNumber(), back.Booking().BookingNumber())
	assert.Equal(t, bk.Pickup(), back.Booking().Pickup())
	assert.Equal(t, bk.Dropoff(), back.Booking().Dropoff())
	assert.Equal(t, 20.0, *back.Booking().DurationMinutes())
	assert.Equal(t, created, back.Booking().CreatedAt())
}

func TestToDomainRecord_BadData(t *testing.T) {
	_, err := toDomainRecord(&BookingModel{Pickup: json.RawMessage(`{`), Dropoff: json.RawMessage(`{}`), Status: "pending"})
	assert.Error(t, err)

	_, err = toDomainRecord(&BookingModel{Pickup: json.RawMessage(`{}`), Dropoff: json.RawMessage(`{}`), Status: "delivered"})
	assert.Error(t, err)
}
