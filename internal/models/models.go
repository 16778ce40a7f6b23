// Package models holds the persisted entities.
package models

// All returns every model in migration order.
func All() []any {
	return []any{
		&User{},
		&Poll{},
		&Submission{},
		&BookingVenue{},
		&Booking{},
		&Settings{},
	}
}
