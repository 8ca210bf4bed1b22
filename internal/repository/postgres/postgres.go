package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"motorent-backend/internal/logger"
	"motorent-backend/internal/repository"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so every repository can run inside or outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

var _ repository.UnitOfWork = (*Store)(nil)

// Store owns the connection pool. Reads outside a write session go through the embedded repositories.
type Store struct {
	db     *sql.DB
	tracer trace.Tracer
	repository.PoolRepository
	repository.BookingRepository
	repository.CommissionRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:                   db,
		tracer:               otel.Tracer("motorent/postgres"),
		PoolRepository:       NewPoolRepository(db),
		BookingRepository:    NewBookingRepository(db),
		CommissionRepository: NewCommissionRepository(db),
	}
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// WithinTx runs fn in a single database transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	ctx, span := s.tracer.Start(ctx, "postgres.within_tx")
	defer span.End()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				logger.Warn("rollback failed", "error", rbErr)
			}
		}
	}()

	if err := fn(ctx, newTxRepositories(sqlTx)); err != nil {
		span.SetAttributes(attribute.Bool("tx.rolled_back", true))
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		err = mapError(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit failed")
		if errors.Is(err, repository.ErrConflict) {
			span.SetAttributes(attribute.Bool("conflict.detected", true))
			return err
		}
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	span.SetAttributes(attribute.Bool("tx.committed", true))
	return nil
}

type txRepositories struct {
	rentals       repository.RentalRepository
	vehicles      repository.VehicleRepository
	motorbikes    repository.MotorbikeRepository
	deposits      repository.DepositRepository
	payments      repository.PaymentRepository
	accessories   repository.AccessoryRepository
	agreements    repository.AgreementRepository
	damages       repository.DamageRepository
	ownerPayments repository.OwnerPaymentRepository
}

func newTxRepositories(db DBTX) *txRepositories {
	return &txRepositories{
		rentals:       NewRentalRepository(db),
		vehicles:      NewVehicleRepository(db),
		motorbikes:    NewMotorbikeRepository(db),
		deposits:      NewDepositRepository(db),
		payments:      NewPaymentRepository(db),
		accessories:   NewAccessoryRepository(db),
		agreements:    NewAgreementRepository(db),
		damages:       NewDamageRepository(db),
		ownerPayments: NewOwnerPaymentRepository(db),
	}
}

func (t *txRepositories) Rentals() repository.RentalRepository             { return t.rentals }
func (t *txRepositories) Vehicles() repository.VehicleRepository           { return t.vehicles }
func (t *txRepositories) Motorbikes() repository.MotorbikeRepository       { return t.motorbikes }
func (t *txRepositories) Deposits() repository.DepositRepository           { return t.deposits }
func (t *txRepositories) Payments() repository.PaymentRepository           { return t.payments }
func (t *txRepositories) Accessories() repository.AccessoryRepository      { return t.accessories }
func (t *txRepositories) Agreements() repository.AgreementRepository       { return t.agreements }
func (t *txRepositories) Damages() repository.DamageRepository             { return t.damages }
func (t *txRepositories) OwnerPayments() repository.OwnerPaymentRepository { return t.ownerPayments }

// mapError translates driver errors into repository sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "23505":
			return fmt.Errorf("%w: %s", repository.ErrConflict, pqErr.Message)
		}
	}
	return err
}

func nullableID(id int32) interface{} {
	if id == 0 {
		return nil
	}
	return id
}
