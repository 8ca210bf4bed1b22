package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"motorent-backend/internal/domain"
	"motorent-backend/internal/repository"
)

type stagedRental struct {
	val     domain.Rental
	base    int32
	created bool
	deleted bool
}

type stagedVehicle struct {
	val  domain.Vehicle
	base int32
}

type stagedMotorbike struct {
	val  domain.LegacyMotorbike
	base int32
}

// tx is one write session. Its own writes are visible to its reads.
type tx struct {
	s  *Store
	mu sync.Mutex

	rentals           map[int32]*stagedRental
	vehicles          map[int32]*stagedVehicle
	motorbikes        map[int32]*stagedMotorbike
	deposits          map[int32]domain.Deposit
	agreements        map[int32]domain.RentalAgreement
	ownerPayments     map[int32]domain.OwnerPayment
	payments          []domain.Payment
	rentalAccessories []domain.RentalAccessory
	damages           []domain.DamageReport
}

func newTx(s *Store) *tx {
	return &tx{
		s:             s,
		rentals:       make(map[int32]*stagedRental),
		vehicles:      make(map[int32]*stagedVehicle),
		motorbikes:    make(map[int32]*stagedMotorbike),
		deposits:      make(map[int32]domain.Deposit),
		agreements:    make(map[int32]domain.RentalAgreement),
		ownerPayments: make(map[int32]domain.OwnerPayment),
	}
}

func (t *tx) Rentals() repository.RentalRepository             { return txRentals{t} }
func (t *tx) Vehicles() repository.VehicleRepository           { return txVehicles{t} }
func (t *tx) Motorbikes() repository.MotorbikeRepository       { return txMotorbikes{t} }
func (t *tx) Deposits() repository.DepositRepository           { return txDeposits{t} }
func (t *tx) Payments() repository.PaymentRepository           { return txPayments{t} }
func (t *tx) Accessories() repository.AccessoryRepository      { return txAccessories{t} }
func (t *tx) Agreements() repository.AgreementRepository       { return txAgreements{t} }
func (t *tx) Damages() repository.DamageRepository             { return txDamages{t} }
func (t *tx) OwnerPayments() repository.OwnerPaymentRepository { return txOwnerPayments{t} }

// Rentals.

type txRentals struct{ t *tx }

func (r txRentals) view(id int32) (domain.Rental, error) {
	if st, ok := r.t.rentals[id]; ok {
		if st.deleted {
			return domain.Rental{}, repository.ErrNotFound
		}
		return st.val, nil
	}
	r.t.s.mu.RLock()
	defer r.t.s.mu.RUnlock()
	rt, ok := r.t.s.rentals[id]
	if !ok {
		return domain.Rental{}, repository.ErrNotFound
	}
	return rt, nil
}

func (r txRentals) all() []domain.Rental {
	r.t.s.mu.RLock()
	merged := make(map[int32]domain.Rental, len(r.t.s.rentals))
	for id, rt := range r.t.s.rentals {
		merged[id] = rt
	}
	r.t.s.mu.RUnlock()

	for id, st := range r.t.rentals {
		if st.deleted {
			delete(merged, id)
			continue
		}
		merged[id] = st.val
	}
	out := make([]domain.Rental, 0, len(merged))
	for _, rt := range merged {
		out = append(out, rt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r txRentals) Create(ctx context.Context, rt *domain.Rental) error {
	if err := r.t.s.checkFault("rentals.create"); err != nil {
		return err
	}
	r.t.mu.Lock()
	defer r.t.mu.Unlock()
	rt.ID = r.t.s.allocID()
	rt.Version = 1
	rt.CreatedOn = now()
	rt.UpdatedOn = rt.CreatedOn
	r.t.rentals[rt.ID] = &stagedRental{val: *rt, created: true}
	return nil
}

func (r txRentals) GetByID(ctx context.Context, id int32) (*domain.Rental, error) {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()
	rt, err := r.view(id)
	if err != nil {
		return nil, err
	}
	return &rt, nil
}

func (r txRentals) Update(ctx context.Context, rt *domain.Rental) error {
	if err := r.t.s.checkFault("rentals.update"); err != nil {
		return err
	}
	r.t.mu.Lock()
	defer r.t.mu.Unlock()
	cur, err := r.view(rt.ID)
	if err != nil {
		return err
	}
	if cur.Version != rt.Version {
		return fmt.Errorf("rental %d at version %d: %w", rt.ID, rt.Version, repository.ErrConflict)
	}
	st, ok := r.t.rentals[rt.ID]
	if !ok {
		st = &stagedRental{base: cur.Version}
		r.t.rentals[rt.ID] = st
	}
	rt.Version++
	rt.UpdatedOn = now()
	st.val = *rt
	return nil
}

func (r txRentals) Delete(ctx context.Context, id, version int32) error {
	if err := r.t.s.checkFault("rentals.delete"); err != nil {
		return err
	}
	r.t.mu.Lock()
	defer r.t.mu.Unlock()
	cur, err := r.view(id)
	if err != nil {
		return err
	}
	if cur.Version != version {
		return fmt.Errorf("rental %d at version %d: %w", id, version, repository.ErrConflict)
	}
	st, ok := r.t.rentals[id]
	if !ok {
		st = &stagedRental{base: cur.Version}
		r.t.rentals[id] = st
	}
	st.deleted = true
	return nil
}

func (r txRentals) ActiveForAsset(ctx context.Context, kind domain.AssetKind, assetID int32) (*domain.Rental, error) {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()
	for _, rt := range r.all() {
		if rt.Status == domain.RentalStatusActive && rt.AssetKind == kind && rt.VehicleID == assetID {
			rt := rt
			return &rt, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r txRentals) ListReservedStartingBefore(ctx context.Context, cutoff time.Time) ([]domain.Rental, error) {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()
	var out []domain.Rental
	for _, rt := range r.all() {
		if rt.Status == domain.RentalStatusReserved && rt.StartDate.Before(cutoff) {
			out = append(out, rt)
		}
	}
	return out, nil
}

func (r txRentals) ListActiveDueBefore(ctx context.Context, cutoff time.Time) ([]domain.Rental, error) {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()
	var out []domain.Rental
	for _, rt := range r.all() {
		if rt.Status == domain.RentalStatusActive && rt.ExpectedEndDate.Before(cutoff) {
			out = append(out, rt)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ExpectedEndDate.Before(out[j].ExpectedEndDate) })
	return out, nil
}

// Vehicles.

type txVehicles struct{ t *tx }

func (r txVehicles) view(id int32) (domain.Vehicle, error) {
	if st, ok := r.t.vehicles[id]; ok {
		return st.val, nil
	}
	r.t.s.mu.RLock()
	defer r.t.s.mu.RUnlock()
	v, ok := r.t.s.vehicles[id]
	if !ok {
		return domain.Vehicle{}, repository.ErrNotFound
	}
	return v, nil
}

func (r txVehicles) GetByID(ctx context.Context, id int32) (*domain.Vehicle, error) {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()
	v, err := r.view(id)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r txVehicles) ListAvailable(ctx context.Context) ([]domain.Vehicle, error) {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()

	r.t.s.mu.RLock()
	merged := make(map[int32]domain.Vehicle, len(r.t.s.vehicles))
	for id, v := range r.t.s.vehicles {
		merged[id] = v
	}
	r.t.s.mu.RUnlock()
	for id, st := range r.t.vehicles {
		merged[id] = st.val
	}

	var out []domain.Vehicle
	for _, v := range merged {
		if v.Status == domain.VehicleStatusAvailable {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r txVehicles) UpdateStatus(ctx context.Context, v *domain.Vehicle, from domain.VehicleStatus) error {
	if err := r.t.s.checkFault("vehicles.update_status"); err != nil {
		return err
	}
	r.t.mu.Lock()
	defer r.t.mu.Unlock()
	cur, err := r.view(v.ID)
	if err != nil {
		return err
	}
	if cur.Status != from || cur.Version != v.Version {
		return fmt.Errorf("vehicle %d no longer %s at version %d: %w", v.ID, from, v.Version, repository.ErrConflict)
	}
	st, ok := r.t.vehicles[v.ID]
	if !ok {
		st = &stagedVehicle{base: cur.Version}
		r.t.vehicles[v.ID] = st
	}
	cur.Status = v.Status
	cur.CurrentShopID = v.CurrentShopID
	cur.Mileage = v.Mileage
	cur.Version++
	cur.UpdatedOn = now()
	st.val = cur
	v.Version = cur.Version
	v.UpdatedOn = cur.UpdatedOn
	return nil
}

// Legacy motorbikes.

type txMotorbikes struct{ t *tx }

func (r txMotorbikes) view(id int32) (domain.LegacyMotorbike, error) {
	if st, ok := r.t.motorbikes[id]; ok {
		return st.val, nil
	}
	r.t.s.mu.RLock()
	defer r.t.s.mu.RUnlock()
	m, ok := r.t.s.motorbikes[id]
	if !ok {
		return domain.LegacyMotorbike{}, repository.ErrNotFound
	}
	return m, nil
}

func (r txMotorbikes) GetByID(ctx context.Context, id int32) (*domain.LegacyMotorbike, error) {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()
	m, err := r.view(id)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r txMotorbikes) UpdateStatus(ctx context.Context, m *domain.LegacyMotorbike, from domain.VehicleStatus) error {
	if err := r.t.s.checkFault("motorbikes.update_status"); err != nil {
		return err
	}
	r.t.mu.Lock()
	defer r.t.mu.Unlock()
	cur, err := r.view(m.ID)
	if err != nil {
		return err
	}
	if cur.Status != from || cur.Version != m.Version {
		return fmt.Errorf("motorbike %d no longer %s at version %d: %w", m.ID, from, m.Version, repository.ErrConflict)
	}
	st, ok := r.t.motorbikes[m.ID]
	if !ok {
		st = &stagedMotorbike{base: cur.Version}
		r.t.motorbikes[m.ID] = st
	}
	cur.Status = m.Status
	cur.Mileage = m.Mileage
	cur.Version++
	cur.UpdatedOn = now()
	st.val = cur
	m.Version = cur.Version
	m.UpdatedOn = cur.UpdatedOn
	return nil
}

// Deposits.

type txDeposits struct{ t *tx }

func (r txDeposits) Create(ctx context.Context, d *domain.Deposit) error {
	if err := r.t.s.checkFault("deposits.create"); err != nil {
		return err
	}
	r.t.mu.Lock()
	defer r.t.mu.Unlock()
	if _, err := r.get(d.RentalID); err == nil {
		return fmt.Errorf("deposit for rental %d: %w", d.RentalID, repository.ErrConflict)
	}
	d.ID = r.t.s.allocID()
	r.t.deposits[d.RentalID] = *d
	return nil
}

func (r txDeposits) get(rentalID int32) (domain.Deposit, error) {
	if d, ok := r.t.deposits[rentalID]; ok {
		return d, nil
	}
	r.t.s.mu.RLock()
	defer r.t.s.mu.RUnlock()
	d, ok := r.t.s.deposits[rentalID]
	if !ok {
		return domain.Deposit{}, repository.ErrNotFound
	}
	return d, nil
}

func (r txDeposits) GetByRental(ctx context.Context, rentalID int32) (*domain.Deposit, error) {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()
	d, err := r.get(rentalID)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r txDeposits) Update(ctx context.Context, d *domain.Deposit) error {
	if err := r.t.s.checkFault("deposits.update"); err != nil {
		return err
	}
	r.t.mu.Lock()
	defer r.t.mu.Unlock()
	cur, err := r.get(d.RentalID)
	if err != nil || cur.ID != d.ID {
		return repository.ErrNotFound
	}
	r.t.deposits[d.RentalID] = *d
	return nil
}

// Payments.

type txPayments struct{ t *tx }

func (r txPayments) Create(ctx context.Context, p *domain.Payment) error {
	if err := r.t.s.checkFault("payments.create"); err != nil {
		return err
	}
	r.t.mu.Lock()
	defer r.t.mu.Unlock()
	p.ID = r.t.s.allocID()
	p.CreatedOn = now()
	r.t.payments = append(r.t.payments, *p)
	return nil
}

func (r txPayments) ListByRental(ctx context.Context, rentalID int32) ([]domain.Payment, error) {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()
	out := r.t.s.Payments(rentalID)
	for _, p := range r.t.payments {
		if p.RentalID == rentalID {
			out = append(out, p)
		}
	}
	return out, nil
}

// Accessories.

type txAccessories struct{ t *tx }

func (r txAccessories) GetByID(ctx context.Context, id int32) (*domain.Accessory, error) {
	r.t.s.mu.RLock()
	defer r.t.s.mu.RUnlock()
	a, ok := r.t.s.accessories[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (r txAccessories) AddToRental(ctx context.Context, item *domain.RentalAccessory) error {
	if err := r.t.s.checkFault("accessories.add"); err != nil {
		return err
	}
	r.t.mu.Lock()
	defer r.t.mu.Unlock()
	item.ID = r.t.s.allocID()
	item.CreatedOn = now()
	r.t.rentalAccessories = append(r.t.rentalAccessories, *item)
	return nil
}

func (r txAccessories) ListByRental(ctx context.Context, rentalID int32) ([]domain.RentalAccessory, error) {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()
	out := r.t.s.RentalAccessories(rentalID)
	for _, a := range r.t.rentalAccessories {
		if a.RentalID == rentalID {
			out = append(out, a)
		}
	}
	return out, nil
}

// Agreements.

type txAgreements struct{ t *tx }

func (r txAgreements) Create(ctx context.Context, a *domain.RentalAgreement) error {
	if err := r.t.s.checkFault("agreements.create"); err != nil {
		return err
	}
	r.t.mu.Lock()
	defer r.t.mu.Unlock()
	a.ID = r.t.s.allocID()
	r.t.agreements[a.RentalID] = *a
	return nil
}

func (r txAgreements) GetByRental(ctx context.Context, rentalID int32) (*domain.RentalAgreement, error) {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()
	if a, ok := r.t.agreements[rentalID]; ok {
		return &a, nil
	}
	a, ok := r.t.s.Agreement(rentalID)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

// Damage reports.

type txDamages struct{ t *tx }

func (r txDamages) Create(ctx context.Context, d *domain.DamageReport) error {
	if err := r.t.s.checkFault("damages.create"); err != nil {
		return err
	}
	r.t.mu.Lock()
	defer r.t.mu.Unlock()
	d.ID = r.t.s.allocID()
	d.CreatedOn = now()
	r.t.damages = append(r.t.damages, *d)
	return nil
}

func (r txDamages) ListByRental(ctx context.Context, rentalID int32) ([]domain.DamageReport, error) {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()
	out := r.t.s.Damages(rentalID)
	for _, d := range r.t.damages {
		if d.RentalID == rentalID {
			out = append(out, d)
		}
	}
	return out, nil
}

// Owner payments.

type txOwnerPayments struct{ t *tx }

func (r txOwnerPayments) Create(ctx context.Context, p *domain.OwnerPayment) error {
	if err := r.t.s.checkFault("owner_payments.create"); err != nil {
		return err
	}
	r.t.mu.Lock()
	defer r.t.mu.Unlock()
	p.ID = r.t.s.allocID()
	p.CreatedOn = now()
	r.t.ownerPayments[p.RentalID] = *p
	return nil
}

func (r txOwnerPayments) GetByRental(ctx context.Context, rentalID int32) (*domain.OwnerPayment, error) {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()
	if p, ok := r.t.ownerPayments[rentalID]; ok {
		return &p, nil
	}
	p, ok := r.t.s.OwnerPayment(rentalID)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}
