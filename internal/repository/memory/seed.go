package memory

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"motorent-backend/internal/domain"
)

// Fixture is a fleet loaded into an empty store. Keys follow the JSON names of the
// domain types, so amounts may be written as numbers or strings.
type Fixture struct {
	Pools       []domain.VehiclePool     `json:"pools"`
	Vehicles    []domain.Vehicle         `json:"vehicles"`
	Motorbikes  []domain.LegacyMotorbike `json:"motorbikes"`
	Accessories []domain.Accessory       `json:"accessories"`
	Bookings    []domain.Booking         `json:"bookings"`
	Commissions []domain.Commission      `json:"commissions"`
}

// LoadFixture reads a YAML fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return ParseFixture(data)
}

func ParseFixture(data []byte) (*Fixture, error) {
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	body, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	var f Fixture
	if err := json.Unmarshal(body, &f); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	return &f, nil
}

// Seed adds every fixture row. Vehicles and motorbikes without a status start AVAILABLE,
// commissions without one start PENDING.
func (s *Store) Seed(f *Fixture) {
	for _, p := range f.Pools {
		s.AddPool(p)
	}
	for _, v := range f.Vehicles {
		if v.Status == "" {
			v.Status = domain.VehicleStatusAvailable
		}
		s.AddVehicle(v)
	}
	for _, m := range f.Motorbikes {
		if m.Status == "" {
			m.Status = domain.VehicleStatusAvailable
		}
		s.AddMotorbike(m)
	}
	for _, a := range f.Accessories {
		s.AddAccessory(a)
	}
	for _, b := range f.Bookings {
		s.AddBooking(b)
	}
	for _, c := range f.Commissions {
		if c.Status == "" {
			c.Status = domain.CommissionStatusPending
		}
		s.AddCommission(c)
	}
}
