package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"cobros/internal/amqp"
	"cobros/internal/core"
	applog "cobros/internal/log"
	"cobros/internal/source"
)

// MaxPageSize caps the collections listing.
const MaxPageSize = 100

// EventPublisher announces recorded collections.
type EventPublisher interface {
	PublishPaymentRecorded(ctx context.Context, msg *amqp.PaymentRecordedMessage) error
}

// Invalidator drops memoized results that a new collection makes stale.
type Invalidator interface {
	Invalidate()
}

// CollectionStore is what the collection service needs from a backend.
type CollectionStore interface {
	source.PaymentWriter
	source.PaymentPager
}

// CollectionService records and lists collections. The store is the
// source of truth; events and cache invalidation are best effort.
type CollectionService struct {
	store       CollectionStore
	publisher   EventPublisher
	invalidator Invalidator
	now         func() time.Time
	logger      *applog.Logger
}

func NewCollectionService(store CollectionStore, publisher EventPublisher, invalidator Invalidator, now func() time.Time, logger *applog.Logger) *CollectionService {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = applog.Discard()
	}
	return &CollectionService{
		store:       store,
		publisher:   publisher,
		invalidator: invalidator,
		now:         now,
		logger:      logger.WithComponent(applog.ComponentCollections),
	}
}

// Record validates p, assigns an ID and a default date, persists it and
// publishes a PaymentRecordedMessage. The stored payment is returned.
func (s *CollectionService) Record(ctx context.Context, p core.Payment) (core.Payment, error) {
	if err := p.Validate(); err != nil {
		return core.Payment{}, err
	}
	now := s.now()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Date.IsZero() {
		p.Date = now
	}
	if p.Status == "" {
		p.Status = core.StatusPartial
	}

	ref, err := s.store.RecordPayment(ctx, p)
	if err != nil {
		return core.Payment{}, fmt.Errorf("save payment: %w", err)
	}
	if ref != "" {
		p.ID = ref
	}

	fields := applog.NewFields().WithOperation(applog.OpCreate).WithPayment(p)
	s.logger.InfoContext(ctx, "Payment recorded", fields.ToSlice()...)

	if s.invalidator != nil {
		s.invalidator.Invalidate()
	}

	if err := s.publish(ctx, p, now); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish payment recorded message",
			applog.FieldPaymentID, p.ID, "error", err)
	}
	return p, nil
}

func (s *CollectionService) publish(ctx context.Context, p core.Payment, now time.Time) error {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "AMQP publisher not available, skipping event")
		return nil
	}
	return s.publisher.PublishPaymentRecorded(ctx, amqp.NewPaymentRecordedMessage(p, now))
}

// List returns one page of collections, newest first.
func (s *CollectionService) List(ctx context.Context, offset, limit int) (source.Page, error) {
	offset, limit = source.Normalize(offset, limit, MaxPageSize)
	page, err := s.store.ListPaymentsPage(ctx, offset, limit)
	if err != nil {
		return source.Page{}, fmt.Errorf("list payments: %w", err)
	}
	page.Records = core.AnchorPaymentDates(page.Records, s.now())
	return page, nil
}
