package booking

import "time"

// Kafka topics.
const (
	TopicBookingEvents  = "booking.events"
	TopicDispatchEvents = "dispatch.events"
)

// Event types published on booking.events.
const (
	EventBookingCreated       = "booking.created"
	EventBookingStatusChanged = "booking.status_changed"
)

// Event types consumed from dispatch.events.
const (
	EventRiderAssigned = "dispatch.rider_assigned"
	EventRideCompleted = "dispatch.ride_completed"
)

// BookingCreatedEvent is emitted once a finalized booking has been persisted.
type BookingCreatedEvent struct {
	BookingID       string    `json:"booking_id"`
	BookingNumber   string    `json:"booking_number"`
	PickupLat       float64   `json:"pickup_lat"`
	PickupLng       float64   `json:"pickup_lng"`
	PickupName      string    `json:"pickup_name"`
	DropoffLat      float64   `json:"dropoff_lat"`
	DropoffLng      float64   `json:"dropoff_lng"`
	DropoffName     string    `json:"dropoff_name"`
	DistanceKm      float64   `json:"distance_km"`
	DurationMinutes *float64  `json:"duration_minutes,omitempty"`
	Fare            float64   `json:"fare"`
	ContactName     string    `json:"contact_name,omitempty"`
	ContactPhone    string    `json:"contact_phone,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// BookingStatusChangedEvent is emitted on every lifecycle transition.
type BookingStatusChangedEvent struct {
	BookingNumber string    `json:"booking_number"`
	From          string    `json:"from"`
	To            string    `json:"to"`
	RiderID       string    `json:"rider_id,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// RiderAssignedEvent is published by dispatch when a rider accepts a booking.
type RiderAssignedEvent struct {
	BookingNumber string    `json:"booking_number"`
	RiderID       string    `json:"rider_id"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// RideCompletedEvent is published by dispatch when the rider drops the passenger off.
type RideCompletedEvent struct {
	BookingNumber string    `json:"booking_number"`
	RiderID       string    `json:"rider_id"`
	OccurredAt    time.Time `json:"occurred_at"`
}
