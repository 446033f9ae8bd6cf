package events

import (
	"context"

	"github.com/sakay-ph/service-booking/internal/application"
	bookingDomain "github.com/sakay-ph/service-booking/internal/domain/booking"
	"github.com/sakay-ph/service-booking/internal/kafka"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// BookingLifecycle is the part of the booking service driven by dispatch events.
type BookingLifecycle interface {
	AssignRider(ctx context.Context, number, riderID string) (*application.BookingDTO, error)
	CompleteBooking(ctx context.Context, number string) (*application.BookingDTO, error)
}

// DispatchEventConsumer listens to dispatch events and advances booking status.
type DispatchEventConsumer struct {
	consumer *kafka.Consumer
	service  BookingLifecycle
	logger   *zap.Logger
}

// NewDispatchEventConsumer creates a new DispatchEventConsumer.
func NewDispatchEventConsumer(
	brokers []string,
	groupID string,
	service BookingLifecycle,
	logger *zap.Logger,
) *DispatchEventConsumer {
	consumer := kafka.NewConsumer(brokers, groupID, bookingDomain.TopicDispatchEvents, logger)
	return NewDispatchEventConsumerWithConsumer(consumer, service, logger)
}

// NewDispatchEventConsumerWithConsumer wires an existing consumer.
func NewDispatchEventConsumerWithConsumer(consumer *kafka.Consumer, service BookingLifecycle, logger *zap.Logger) *DispatchEventConsumer {
	return &DispatchEventConsumer{
		consumer: consumer,
		service:  service,
		logger:   logger,
	}
}

// Start begins consuming dispatch events. This blocks until the context is cancelled.
func (c *DispatchEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *DispatchEventConsumer) Close() error {
	return c.consumer.Close()
}

func (c *DispatchEventConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	cloudEvent, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from dispatch topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // Don't retry malformed messages
	}

	switch cloudEvent.Type {
	case bookingDomain.EventRiderAssigned:
		return c.handleRiderAssigned(ctx, cloudEvent)
	case bookingDomain.EventRideCompleted:
		return c.handleRideCompleted(ctx, cloudEvent)
	default:
		c.logger.Debug("ignoring unhandled dispatch event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
}

func (c *DispatchEventConsumer) handleRiderAssigned(ctx context.Context, cloudEvent kafka.CloudEvent) error {
	var evt bookingDomain.RiderAssignedEvent
	if err := cloudEvent.ParseData(&evt); err != nil {
		c.logger.Error("failed to parse RiderAssignedEvent data", zap.Error(err))
		return nil
	}

	c.logger.Info("processing rider assigned event",
		zap.String("booking_number", evt.BookingNumber),
		zap.String("rider_id", evt.RiderID),
	)

	if _, err := c.service.AssignRider(ctx, evt.BookingNumber, evt.RiderID); err != nil {
		return c.handleFailure("failed to assign rider", evt.BookingNumber, err)
	}
	return nil
}

func (c *DispatchEventConsumer) handleRideCompleted(ctx context.Context, cloudEvent kafka.CloudEvent) error {
	var evt bookingDomain.RideCompletedEvent
	if err := cloudEvent.ParseData(&evt); err != nil {
		c.logger.Error("failed to parse RideCompletedEvent data", zap.Error(err))
		return nil
	}

	c.logger.Info("processing ride completed event",
		zap.String("booking_number", evt.BookingNumber),
		zap.String("rider_id", evt.RiderID),
	)

	if _, err := c.service.CompleteBooking(ctx, evt.BookingNumber); err != nil {
		return c.handleFailure("failed to complete booking", evt.BookingNumber, err)
	}
	return nil
}

// handleFailure drops events that can never apply and returns the rest for retry.
func (c *DispatchEventConsumer) handleFailure(msg, number string, err error) error {
	switch bookingDomain.CodeOf(err) {
	case bookingDomain.CodeNotFound, bookingDomain.CodeInvalidState, bookingDomain.CodeValidation:
		c.logger.Warn(msg+", dropping event",
			zap.String("booking_number", number),
			zap.Error(err),
		)
		return nil
	default:
		c.logger.Error(msg,
			zap.String("booking_number", number),
			zap.Error(err),
		)
		return err
	}
}
