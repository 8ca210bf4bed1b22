package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"motorent-backend/internal/domain"
	"motorent-backend/internal/repository"
	"motorent-backend/internal/repository/memory"
)

func groupReservation(shopID int32, key, colour string) ReservationRequest {
	return ReservationRequest{
		ShopID:          shopID,
		RenterID:        11,
		StaffID:         3,
		VehicleGroupKey: key,
		PreferredColor:  colour,
		DurationType:    domain.DurationTypeDaily,
		StartDate:       march1,
		ExpectedEndDate: march1.AddDate(0, 0, 2),
		RentalRate:      dec(300),
		TotalAmount:     dec(600),
	}
}

func TestCreateReservation_ConcreteVehicleIsHeld(t *testing.T) {
	store := memory.NewStore()
	e := newEngine(store)
	v := store.AddVehicle(scooter(1, 300))

	res := e.CreateReservation(context.Background(), ReservationRequest{
		ShopID: 1, RenterID: 5, VehicleID: v.ID,
		DurationType: domain.DurationTypeDaily, StartDate: march1, ExpectedEndDate: march1.AddDate(0, 0, 2),
	})
	require.True(t, res.Success, res.Message)
	assert.Equal(t, "RSV-TEST0001", res.ConfirmationCode)

	rt, _ := store.Rental(res.RentalID)
	assert.Equal(t, domain.RentalStatusReserved, rt.Status)
	assert.True(t, dec(600).Equal(rt.TotalAmount), "priced by the calculator")

	walkIn := e.CheckIn(context.Background(), dailyCheckIn(1, v.ID, 1, 300))
	assert.False(t, walkIn.Success)
	assert.Equal(t, FailurePrecondition, walkIn.Kind)

	checkIn := e.CheckIn(context.Background(), CheckInRequest{ShopID: 1, ReservationID: res.RentalID, StaffID: 3})
	require.True(t, checkIn.Success, checkIn.Message)
	assert.Equal(t, res.RentalID, checkIn.RentalID)

	rt, _ = store.Rental(res.RentalID)
	assert.Equal(t, domain.RentalStatusActive, rt.Status)
	assert.Len(t, store.Rentals(), 1)
}

func TestCreateReservation_Validation(t *testing.T) {
	store := memory.NewStore()
	e := newEngine(store)
	v := store.AddVehicle(scooter(1, 300))

	both := groupReservation(1, v.GroupKey(), "")
	both.VehicleID = v.ID
	res := e.CreateReservation(context.Background(), both)
	assert.Equal(t, FailureValidation, res.Kind)

	res = e.CreateReservation(context.Background(), groupReservation(1, "yamaha|nmax|2023|scooter|155", ""))
	assert.Equal(t, FailurePrecondition, res.Kind)
	assert.Empty(t, store.Rentals())
}

func TestGroupReservation_ResolvesPreferredColourAtCheckIn(t *testing.T) {
	store := memory.NewStore()
	e := newEngine(store)
	red := store.AddVehicle(scooter(1, 300))
	blue := scooter(1, 300)
	blue.Color = "Blue"
	blueV := store.AddVehicle(blue)

	res := e.CreateReservation(context.Background(), groupReservation(1, " HONDA | Click |2024|Scooter|125", "blue"))
	require.True(t, res.Success, res.Message)

	rt, _ := store.Rental(res.RentalID)
	assert.Equal(t, int32(0), rt.VehicleID)
	assert.Equal(t, red.GroupKey(), rt.VehicleGroupKey)
	for _, v := range store.Vehicles() {
		assert.Equal(t, domain.VehicleStatusAvailable, v.Status, "group reservations hold nothing")
	}

	checkIn := e.CheckIn(context.Background(), CheckInRequest{ShopID: 1, ReservationID: res.RentalID})
	require.True(t, checkIn.Success, checkIn.Message)
	assert.Equal(t, blueV.ID, checkIn.VehicleID)

	v, _ := store.Vehicle(blueV.ID)
	assert.Equal(t, domain.VehicleStatusRented, v.Status)
}

func TestGroupReservation_SkipsVehiclesTheShopCannotRent(t *testing.T) {
	store := memory.NewStore()
	e := newEngine(store)
	store.AddVehicle(scooter(2, 300))
	local := store.AddVehicle(scooter(1, 300))

	res := e.CreateReservation(context.Background(), groupReservation(1, local.GroupKey(), ""))
	require.True(t, res.Success, res.Message)

	assigned := e.AssignVehicleToReservation(context.Background(), res.RentalID, nil)
	require.True(t, assigned.Success, assigned.Message)
	assert.Equal(t, local.ID, assigned.Vehicle.ID)

	again := e.AssignVehicleToReservation(context.Background(), res.RentalID, nil)
	assert.False(t, again.Success)
	assert.Equal(t, FailurePrecondition, again.Kind)
}

func TestAssignVehicle_Explicit(t *testing.T) {
	store := memory.NewStore()
	e := newEngine(store)
	v := store.AddVehicle(scooter(1, 300))
	other := store.AddVehicle(scooter(1, 300))

	res := e.CreateReservation(context.Background(), groupReservation(1, v.GroupKey(), ""))
	require.True(t, res.Success)

	require.True(t, e.CheckIn(context.Background(), dailyCheckIn(1, other.ID, 1, 300)).Success)
	busy := e.AssignVehicleToReservation(context.Background(), res.RentalID, &other.ID)
	assert.Equal(t, FailurePrecondition, busy.Kind)

	assigned := e.AssignVehicleToReservation(context.Background(), res.RentalID, &v.ID)
	require.True(t, assigned.Success, assigned.Message)
	rt, _ := store.Rental(res.RentalID)
	assert.Equal(t, v.ID, rt.VehicleID)
	veh, _ := store.Vehicle(v.ID)
	assert.Equal(t, domain.VehicleStatusRented, veh.Status)
}

func TestGroupReservation_RejectsVehicleOutsideGroup(t *testing.T) {
	store := memory.NewStore()
	e := newEngine(store)
	click := store.AddVehicle(scooter(1, 300))
	car := store.AddVehicle(domain.Vehicle{
		HomeShopID: 1, Status: domain.VehicleStatusAvailable,
		Brand: "BMW", Model: "X5", Year: 2023, VehicleType: "car", EngineCC: 3000, DailyRate: dec(2500),
	})

	res := e.CreateReservation(context.Background(), groupReservation(1, click.GroupKey(), ""))
	require.True(t, res.Success, res.Message)

	assigned := e.AssignVehicleToReservation(context.Background(), res.RentalID, &car.ID)
	assert.False(t, assigned.Success)
	assert.Equal(t, FailurePrecondition, assigned.Kind)
	assert.Contains(t, assigned.Message, "not in group")

	checkIn := e.CheckIn(context.Background(), CheckInRequest{ShopID: 1, ReservationID: res.RentalID, VehicleID: car.ID})
	assert.False(t, checkIn.Success)
	assert.Equal(t, FailurePrecondition, checkIn.Kind)

	rt, _ := store.Rental(res.RentalID)
	assert.Equal(t, domain.RentalStatusReserved, rt.Status)
	assert.Equal(t, int32(0), rt.VehicleID)
	veh, _ := store.Vehicle(car.ID)
	assert.Equal(t, domain.VehicleStatusAvailable, veh.Status)

	checkIn = e.CheckIn(context.Background(), CheckInRequest{ShopID: 1, ReservationID: res.RentalID, VehicleID: click.ID})
	require.True(t, checkIn.Success, checkIn.Message)
	assert.Equal(t, click.ID, checkIn.VehicleID)
}

func TestGroupResolution_RetriesAfterLosingRace(t *testing.T) {
	store := memory.NewStore()
	plain := newEngine(store)
	first := store.AddVehicle(scooter(1, 300))
	second := store.AddVehicle(scooter(1, 300))

	mine := plain.CreateReservation(context.Background(), groupReservation(1, first.GroupKey(), ""))
	theirs := plain.CreateReservation(context.Background(), groupReservation(1, first.GroupKey(), ""))
	require.True(t, mine.Success)
	require.True(t, theirs.Success)

	uow := &interleavingUoW{inner: store}
	uow.before = func() {
		res := plain.AssignVehicleToReservation(context.Background(), theirs.RentalID, &first.ID)
		require.True(t, res.Success, res.Message)
	}
	racing := newEngineWith(store, uow)

	res := racing.CheckIn(context.Background(), CheckInRequest{ShopID: 1, ReservationID: mine.RentalID})
	require.True(t, res.Success, res.Message)
	assert.Equal(t, second.ID, res.VehicleID)
	assert.Equal(t, 2, uow.calls)
}

type conflictingUoW struct{ calls int }

func (u *conflictingUoW) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	u.calls++
	return fmt.Errorf("commit: %w", repository.ErrConflict)
}

func TestGroupResolution_GivesUpAfterConfiguredAttempts(t *testing.T) {
	store := memory.NewStore()
	uow := &conflictingUoW{}
	e := NewRentalEngine(Dependencies{UnitOfWork: uow, Pools: store, Clock: fixedClock{t: march1}}, Config{ResolutionAttempts: 4})

	res := e.AssignVehicleToReservation(context.Background(), 1, nil)
	assert.False(t, res.Success)
	assert.Equal(t, FailurePrecondition, res.Kind)
	assert.Contains(t, res.Message, "no vehicle available")
	assert.Equal(t, 4, uow.calls)

	uow.calls = 0
	ext := e.Extend(context.Background(), 1, march1.AddDate(0, 0, 3))
	assert.Equal(t, FailureConflict, ext.Kind)
	assert.Equal(t, 1, uow.calls)
}
