package config

// Specialty describes a clinic specialty and its default appointment length.
type Specialty struct {
	Name            string
	DurationMinutes int
}

// Specialties is the clinic's specialty catalog. Slot imports and waitlist
// signups validate against it; durations are defaults for schedule imports
// that omit one.
var Specialties = []Specialty{
	{Name: "Dermatology", DurationMinutes: 30},
	{Name: "Dentistry", DurationMinutes: 45},
	{Name: "Physical Therapy", DurationMinutes: 60},
	{Name: "Cardiology", DurationMinutes: 30},
	{Name: "Orthopedics", DurationMinutes: 30},
	{Name: "General Practice", DurationMinutes: 20},
}

// IsKnownSpecialty reports whether name is in the specialty catalog.
func IsKnownSpecialty(name string) bool {
	for _, s := range Specialties {
		if s.Name == name {
			return true
		}
	}
	return false
}

// DefaultDuration returns the catalog duration for a specialty, or the
// provided fallback when the specialty is unknown.
func DefaultDuration(name string, fallback int) int {
	for _, s := range Specialties {
		if s.Name == name {
			return s.DurationMinutes
		}
	}
	return fallback
}
