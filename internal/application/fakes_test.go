package application

import (
	"context"
	"sort"
	"sync"

	bookingDomain "github.com/sakay-ph/service-booking/internal/domain/booking"
	"github.com/sakay-ph/service-booking/internal/kafka"
)

// memoryRepo is an in-memory booking.Repository keyed by booking number.
type memoryRepo struct {
	mu       sync.Mutex
	records  map[string]*bookingDomain.Record
	versions map[string]int64
	saveErr  error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		records:  map[string]*bookingDomain.Record{},
		versions: map[string]int64{},
	}
}

func (r *memoryRepo) FindByNumber(_ context.Context, number string) (*bookingDomain.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[number]
	if !ok {
		return nil, bookingDomain.NewNotFoundError("Booking", number)
	}
	return copyRecord(rec), nil
}

func (r *memoryRepo) ListAll(_ context.Context, page, limit int, status *bookingDomain.BookingStatus) ([]*bookingDomain.Record, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var all []*bookingDomain.Record
	for _, rec := range r.records {
		if status == nil || rec.Status() == *status {
			all = append(all, copyRecord(rec))
		}
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].Booking().BookingNumber() < all[j].Booking().BookingNumber()
	})

	start := (page - 1) * limit
	if start > len(all) {
		start = len(all)
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], int64(len(all)), nil
}

func (r *memoryRepo) CountByStatus(context.Context) (map[string]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[string]int64{}
	for _, rec := range r.records {
		out[string(rec.Status())]++
	}
	return out, nil
}

func (r *memoryRepo) Save(_ context.Context, rec *bookingDomain.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	n := rec.Booking().BookingNumber()
	if _, ok := r.records[n]; ok {
		return bookingDomain.ErrDuplicateBookingNumber
	}
	r.records[n] = copyRecord(rec)
	r.versions[n] = rec.Version()
	return nil
}

func (r *memoryRepo) Update(_ context.Context, rec *bookingDomain.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := rec.Booking().BookingNumber()
	if r.versions[n] != rec.Version()-1 {
		return bookingDomain.NewConflictError("booking was modified by another transaction")
	}
	r.records[n] = copyRecord(rec)
	r.versions[n] = rec.Version()
	return nil
}

func (r *memoryRepo) seed(rec *bookingDomain.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := rec.Booking().BookingNumber()
	r.records[n] = copyRecord(rec)
	r.versions[n] = rec.Version()
}

func copyRecord(rec *bookingDomain.Record) *bookingDomain.Record {
	return bookingDomain.ReconstructRecord(
		rec.Booking(), rec.Status(), rec.RiderID(), rec.Contact(), rec.CancelNote(),
		rec.CompletedAt(), rec.CancelledAt(), rec.Version(), rec.UpdatedAt(),
	)
}

type publishedEvent struct {
	topic string
	ce    kafka.CloudEvent
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *recordingPublisher) PublishEvent(_ context.Context, topic string, ce kafka.CloudEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, publishedEvent{topic: topic, ce: ce})
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.ce.Type
	}
	return out
}

type stubRoutes struct {
	result bookingDomain.RouteResult
}

func (s stubRoutes) Resolve(context.Context, bookingDomain.Coordinate, bookingDomain.Coordinate) bookingDomain.RouteResult {
	return s.result
}

type stubAddresses struct {
	places []bookingDomain.Place
	label  string
	bias   bookingDomain.Coordinate
}

func (s *stubAddresses) Search(_ context.Context, _ string, bias bookingDomain.Coordinate) []bookingDomain.Place {
	s.bias = bias
	return s.places
}

func (s *stubAddresses) Reverse(context.Context, bookingDomain.Coordinate) string { return s.label }
