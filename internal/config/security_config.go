package config

type SecurityLevel int

const (
	SecurityPublic  SecurityLevel = iota // No authentication
	SecurityStaff                        // Any shop staff token
	SecurityManager                      // Staff token with the manager role
)

// EndpointSecurityConfig maps HTTP route names to their required security level
var EndpointSecurityConfig = map[string]SecurityLevel{
	"Health": SecurityPublic,

	"CheckIn":           SecurityStaff,
	"CheckOut":          SecurityStaff,
	"CancelRental":      SecurityStaff,
	"ExtendRental":      SecurityStaff,
	"GetRental":         SecurityStaff,
	"CreateReservation": SecurityStaff,
	"AssignVehicle":     SecurityStaff,

	"DeleteRental": SecurityManager,
}

// GetSecurityLevel returns the security level for a given route
func GetSecurityLevel(route string) SecurityLevel {
	if level, exists := EndpointSecurityConfig[route]; exists {
		return level
	}
	// Default to highest security for unknown routes
	return SecurityManager
}
