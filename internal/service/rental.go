package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"motorent-backend/internal/domain"
	"motorent-backend/internal/logger"
	"motorent-backend/internal/repository"
)

const defaultResolutionAttempts = 3

// Dependencies are the collaborators of the engine. Events may be nil.
type Dependencies struct {
	UnitOfWork  repository.UnitOfWork
	Pools       PoolReader
	Pricing     PricingService
	Bookings    BookingReader
	Commissions CommissionService
	Events      EventPublisher
	Clock       Clock
	Codes       CodeGenerator
}

type Config struct {
	// Location is the shop time zone used for calendar-day arithmetic.
	Location *time.Location
	// ResolutionAttempts bounds how often a group reservation is re-resolved after a commit conflict.
	ResolutionAttempts int
	// TermsVersion is recorded on agreements when the request does not name one.
	TermsVersion string
}

type rentalEngine struct {
	uow         repository.UnitOfWork
	pools       *PoolAuthorizer
	resolver    *groupResolver
	pricing     PricingService
	bookings    BookingReader
	commissions CommissionService
	events      EventPublisher
	clock       Clock
	codes       CodeGenerator
	loc         *time.Location
	attempts    int
	terms       string
	tracer      trace.Tracer
}

func NewRentalEngine(deps Dependencies, cfg Config) RentalEngine {
	auth := NewPoolAuthorizer(deps.Pools)
	e := &rentalEngine{
		uow:         deps.UnitOfWork,
		pools:       auth,
		resolver:    &groupResolver{auth: auth},
		pricing:     deps.Pricing,
		bookings:    deps.Bookings,
		commissions: deps.Commissions,
		events:      deps.Events,
		clock:       deps.Clock,
		codes:       deps.Codes,
		loc:         cfg.Location,
		attempts:    cfg.ResolutionAttempts,
		terms:       cfg.TermsVersion,
		tracer:      otel.Tracer("motorent/service"),
	}
	if e.clock == nil {
		e.clock = SystemClock()
	}
	if e.codes == nil {
		e.codes = UUIDCodes()
	}
	if e.loc == nil {
		e.loc = time.UTC
	}
	if e.attempts <= 0 {
		e.attempts = defaultResolutionAttempts
	}
	return e
}

func (e *rentalEngine) now() time.Time {
	return e.clock.Now()
}

// transact runs fn in one write session. When resolves is set the session may pick a
// vehicle from a group, and a commit conflict re-runs it against fresh state until the
// attempts are used up.
func (e *rentalEngine) transact(ctx context.Context, resolves bool, fn func(ctx context.Context, tx repository.Tx) error) error {
	if !resolves {
		return e.uow.WithinTx(ctx, fn)
	}

	var err error
	for attempt := 1; attempt <= e.attempts; attempt++ {
		err = e.uow.WithinTx(ctx, fn)
		if !isRetryableConflict(err) {
			return err
		}
		logger.DebugContext(ctx, "vehicle resolution conflicted, retrying", "attempt", attempt, "error", err)
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return preconditionf("no vehicle available: %d resolution attempts conflicted", e.attempts)
}

func isRetryableConflict(err error) bool {
	var f *Failure
	if errors.As(err, &f) {
		return false
	}
	return errors.Is(err, repository.ErrConflict)
}

func (e *rentalEngine) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return e.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// finish closes an operation: it records the failure on the span and logs the exit.
func finish(span trace.Span, method string, f *Failure, args ...any) {
	defer span.End()
	if f == nil {
		logger.ExitMethod(method, args...)
		return
	}
	span.SetAttributes(attribute.String("failure.kind", string(f.Kind)))
	if f.Kind == FailureInternal {
		span.RecordError(f.Err)
		span.SetStatus(codes.Error, f.Message)
		logger.ExitMethodWithError(method, f.Err, args...)
		return
	}
	logger.ExitMethod(method, append(args, "failure", f.Kind, "reason", f.Message)...)
}

func (e *rentalEngine) loadRental(ctx context.Context, tx repository.Tx, id int32) (*domain.Rental, error) {
	rt, err := tx.Rentals().GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFoundf("rental %d not found", id)
	}
	return rt, err
}

func (e *rentalEngine) recordPayment(ctx context.Context, tx repository.Tx, rt *domain.Rental, typ domain.PaymentType, p domain.Payment) error {
	if !p.Amount.IsPositive() {
		return nil
	}
	p.RentalID = rt.ID
	p.Type = typ
	if p.ShopID == 0 {
		p.ShopID = rt.RentedFromShopID
	}
	return tx.Payments().Create(ctx, &p)
}
