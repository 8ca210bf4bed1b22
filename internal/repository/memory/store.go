// Package memory is an in-process implementation of the repository contracts.
//
// Writes made inside WithinTx are staged against the version each row had when it was
// first read and are applied atomically at commit. A row changed by another session in
// the meantime makes the commit fail with repository.ErrConflict, which mirrors the
// version-checked updates of the postgres store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"motorent-backend/internal/domain"
	"motorent-backend/internal/repository"
)

// FaultFunc lets tests fail a named write (for example "payments.create").
type FaultFunc func(op string) error

type Store struct {
	mu     sync.RWMutex
	nextID int32
	fault  atomic.Value

	rentals           map[int32]domain.Rental
	vehicles          map[int32]domain.Vehicle
	motorbikes        map[int32]domain.LegacyMotorbike
	deposits          map[int32]domain.Deposit // by rental
	payments          []domain.Payment
	accessories       map[int32]domain.Accessory
	rentalAccessories []domain.RentalAccessory
	agreements        map[int32]domain.RentalAgreement // by rental
	damages           []domain.DamageReport
	ownerPayments     map[int32]domain.OwnerPayment // by rental
	pools             map[int32]domain.VehiclePool
	bookings          map[int32]domain.Booking
	commissions       map[int32]domain.Commission
}

var (
	_ repository.UnitOfWork           = (*Store)(nil)
	_ repository.PoolRepository       = (*Store)(nil)
	_ repository.BookingRepository    = (*Store)(nil)
	_ repository.CommissionRepository = (*Store)(nil)
)

func NewStore() *Store {
	return &Store{
		rentals:       make(map[int32]domain.Rental),
		vehicles:      make(map[int32]domain.Vehicle),
		motorbikes:    make(map[int32]domain.LegacyMotorbike),
		deposits:      make(map[int32]domain.Deposit),
		accessories:   make(map[int32]domain.Accessory),
		agreements:    make(map[int32]domain.RentalAgreement),
		ownerPayments: make(map[int32]domain.OwnerPayment),
		pools:         make(map[int32]domain.VehiclePool),
		bookings:      make(map[int32]domain.Booking),
		commissions:   make(map[int32]domain.Commission),
	}
}

func (s *Store) allocID() int32 {
	return atomic.AddInt32(&s.nextID, 1)
}

// claimID keeps an explicit id and moves the allocator past it; zero allocates a new one.
func (s *Store) claimID(id int32) int32 {
	if id == 0 {
		return s.allocID()
	}
	for {
		cur := atomic.LoadInt32(&s.nextID)
		if id <= cur || atomic.CompareAndSwapInt32(&s.nextID, cur, id) {
			return id
		}
	}
}

// SetFault installs fn as the write fault hook. Pass nil to clear it.
func (s *Store) SetFault(fn FaultFunc) {
	s.fault.Store(fn)
}

func (s *Store) checkFault(op string) error {
	if fn, ok := s.fault.Load().(FaultFunc); ok && fn != nil {
		return fn(op)
	}
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error { return nil }

// Seeding.

func (s *Store) AddVehicle(v domain.Vehicle) domain.Vehicle {
	s.mu.Lock()
	defer s.mu.Unlock()
	v.ID = s.claimID(v.ID)
	if v.Version == 0 {
		v.Version = 1
	}
	if v.CurrentShopID == 0 {
		v.CurrentShopID = v.HomeShopID
	}
	s.vehicles[v.ID] = v
	return v
}

func (s *Store) AddMotorbike(m domain.LegacyMotorbike) domain.LegacyMotorbike {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.ID = s.claimID(m.ID)
	if m.Version == 0 {
		m.Version = 1
	}
	s.motorbikes[m.ID] = m
	return m
}

func (s *Store) AddPool(p domain.VehiclePool) domain.VehiclePool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.claimID(p.ID)
	s.pools[p.ID] = p
	return p
}

func (s *Store) AddAccessory(a domain.Accessory) domain.Accessory {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.claimID(a.ID)
	s.accessories[a.ID] = a
	return a
}

func (s *Store) AddBooking(b domain.Booking) domain.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	b.ID = s.claimID(b.ID)
	s.bookings[b.ID] = b
	return b
}

func (s *Store) AddCommission(c domain.Commission) domain.Commission {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.claimID(c.ID)
	s.commissions[c.ID] = c
	return c
}

// Committed-state snapshots.

func (s *Store) Rental(id int32) (domain.Rental, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rentals[id]
	return r, ok
}

func (s *Store) Vehicle(id int32) (domain.Vehicle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vehicles[id]
	return v, ok
}

func (s *Store) Motorbike(id int32) (domain.LegacyMotorbike, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.motorbikes[id]
	return m, ok
}

func (s *Store) Deposit(rentalID int32) (domain.Deposit, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.deposits[rentalID]
	return d, ok
}

func (s *Store) Commission(id int32) (domain.Commission, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.commissions[id]
	return c, ok
}

func (s *Store) Rentals() []domain.Rental {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Rental, 0, len(s.rentals))
	for _, r := range s.rentals {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) Vehicles() []domain.Vehicle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Vehicle, 0, len(s.vehicles))
	for _, v := range s.vehicles {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) Payments(rentalID int32) []domain.Payment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Payment
	for _, p := range s.payments {
		if p.RentalID == rentalID {
			out = append(out, p)
		}
	}
	return out
}

func (s *Store) Damages(rentalID int32) []domain.DamageReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.DamageReport
	for _, d := range s.damages {
		if d.RentalID == rentalID {
			out = append(out, d)
		}
	}
	return out
}

func (s *Store) OwnerPayment(rentalID int32) (domain.OwnerPayment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.ownerPayments[rentalID]
	return p, ok
}

func (s *Store) RentalAccessories(rentalID int32) []domain.RentalAccessory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.RentalAccessory
	for _, a := range s.rentalAccessories {
		if a.RentalID == rentalID {
			out = append(out, a)
		}
	}
	return out
}

func (s *Store) Agreement(rentalID int32) (domain.RentalAgreement, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.agreements[rentalID]
	return a, ok
}

// Read-only collaborators.

func (s *Store) GetPoolByID(ctx context.Context, id int32) (*domain.VehiclePool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pools[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	p.ShopIDs = append([]int32(nil), p.ShopIDs...)
	return &p, nil
}

func (s *Store) GetBookingByID(ctx context.Context, id int32) (*domain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &b, nil
}

func (s *Store) GetCommissionByBooking(ctx context.Context, bookingID int32) (*domain.Commission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found *domain.Commission
	for _, c := range s.commissions {
		if c.BookingID == bookingID && (found == nil || c.ID < found.ID) {
			c := c
			found = &c
		}
	}
	if found == nil {
		return nil, repository.ErrNotFound
	}
	return found, nil
}

func (s *Store) MakeEligible(ctx context.Context, commissionID, rentalID int32) (bool, error) {
	if err := s.checkFault("commissions.make_eligible"); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.commissions[commissionID]
	if !ok {
		return false, repository.ErrNotFound
	}
	if !c.CanBecomeEligible() {
		return false, nil
	}
	c.Status = domain.CommissionStatusEligible
	c.RentalID = &rentalID
	s.commissions[commissionID] = c
	return true, nil
}

// WithinTx stages fn's writes and applies them only if fn succeeds and no staged row
// was changed by another session since it was read.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	t := newTx(s)
	if err := fn(ctx, t); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.commit(t)
}

func (s *Store) commit(t *tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, st := range t.rentals {
		if st.created {
			continue
		}
		cur, ok := s.rentals[id]
		if !ok || cur.Version != st.base {
			return fmt.Errorf("rental %d changed since read: %w", id, repository.ErrConflict)
		}
	}
	for id, st := range t.vehicles {
		if cur, ok := s.vehicles[id]; !ok || cur.Version != st.base {
			return fmt.Errorf("vehicle %d changed since read: %w", id, repository.ErrConflict)
		}
	}
	for id, st := range t.motorbikes {
		if cur, ok := s.motorbikes[id]; !ok || cur.Version != st.base {
			return fmt.Errorf("motorbike %d changed since read: %w", id, repository.ErrConflict)
		}
	}

	for id, st := range t.rentals {
		if st.deleted {
			s.deleteRentalLocked(id)
			continue
		}
		s.rentals[id] = st.val
	}
	for id, st := range t.vehicles {
		s.vehicles[id] = st.val
	}
	for id, st := range t.motorbikes {
		s.motorbikes[id] = st.val
	}
	for rentalID, d := range t.deposits {
		s.deposits[rentalID] = d
	}
	for rentalID, a := range t.agreements {
		s.agreements[rentalID] = a
	}
	for rentalID, p := range t.ownerPayments {
		s.ownerPayments[rentalID] = p
	}
	s.payments = append(s.payments, t.payments...)
	s.rentalAccessories = append(s.rentalAccessories, t.rentalAccessories...)
	s.damages = append(s.damages, t.damages...)
	return nil
}

// deleteRentalLocked removes the rental and its dependent rows, like ON DELETE CASCADE.
func (s *Store) deleteRentalLocked(id int32) {
	delete(s.rentals, id)
	delete(s.deposits, id)
	delete(s.agreements, id)
	delete(s.ownerPayments, id)

	payments := s.payments[:0]
	for _, p := range s.payments {
		if p.RentalID != id {
			payments = append(payments, p)
		}
	}
	s.payments = payments

	accessories := s.rentalAccessories[:0]
	for _, a := range s.rentalAccessories {
		if a.RentalID != id {
			accessories = append(accessories, a)
		}
	}
	s.rentalAccessories = accessories

	damages := s.damages[:0]
	for _, d := range s.damages {
		if d.RentalID != id {
			damages = append(damages, d)
		}
	}
	s.damages = damages
}

func now() time.Time {
	return time.Now().UTC()
}
