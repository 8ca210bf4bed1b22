package postgres

import (
	"context"
	"time"

	"motorent-backend/internal/domain"
	"motorent-backend/internal/repository"
)

type accessoryRepository struct {
	db DBTX
}

func NewAccessoryRepository(db DBTX) repository.AccessoryRepository {
	return &accessoryRepository{db: db}
}

func (r *accessoryRepository) GetByID(ctx context.Context, id int32) (*domain.Accessory, error) {
	a := &domain.Accessory{}
	query := `SELECT id, shop_id, name, unit_price FROM accessories WHERE id = $1`
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&a.ID, &a.ShopID, &a.Name, &a.UnitPrice); err != nil {
		return nil, mapError(err)
	}
	return a, nil
}

func (r *accessoryRepository) AddToRental(ctx context.Context, item *domain.RentalAccessory) error {
	query := `INSERT INTO rental_accessories (rental_id, accessory_id, quantity, unit_price, created_on)
	          VALUES ($1, $2, $3, $4, $5) RETURNING id`
	item.CreatedOn = time.Now().UTC()
	err := r.db.QueryRowContext(ctx, query, item.RentalID, item.AccessoryID, item.Quantity, item.UnitPrice, item.CreatedOn).
		Scan(&item.ID)
	return mapError(err)
}

func (r *accessoryRepository) ListByRental(ctx context.Context, rentalID int32) ([]domain.RentalAccessory, error) {
	query := `SELECT id, rental_id, accessory_id, quantity, unit_price, created_on
	          FROM rental_accessories WHERE rental_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, rentalID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var items []domain.RentalAccessory
	for rows.Next() {
		var it domain.RentalAccessory
		if err := rows.Scan(&it.ID, &it.RentalID, &it.AccessoryID, &it.Quantity, &it.UnitPrice, &it.CreatedOn); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

type agreementRepository struct {
	db DBTX
}

func NewAgreementRepository(db DBTX) repository.AgreementRepository {
	return &agreementRepository{db: db}
}

func (r *agreementRepository) Create(ctx context.Context, a *domain.RentalAgreement) error {
	query := `INSERT INTO rental_agreements (rental_id, signature_ref, terms_version, signed_on)
	          VALUES ($1, $2, $3, $4) RETURNING id`
	return mapError(r.db.QueryRowContext(ctx, query, a.RentalID, a.SignatureRef, a.TermsVersion, a.SignedOn).Scan(&a.ID))
}

func (r *agreementRepository) GetByRental(ctx context.Context, rentalID int32) (*domain.RentalAgreement, error) {
	a := &domain.RentalAgreement{}
	query := `SELECT id, rental_id, signature_ref, COALESCE(terms_version, ''), signed_on FROM rental_agreements WHERE rental_id = $1`
	if err := r.db.QueryRowContext(ctx, query, rentalID).Scan(&a.ID, &a.RentalID, &a.SignatureRef, &a.TermsVersion, &a.SignedOn); err != nil {
		return nil, mapError(err)
	}
	return a, nil
}
