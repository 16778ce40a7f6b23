package models

import "time"

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

// ActiveStatuses are the statuses that hold a slot.
var ActiveStatuses = []string{StatusPending, StatusConfirmed}

// BookedSlot is the slot copied onto a booking by value.
type BookedSlot struct {
	Name      string `gorm:"size:100" json:"name"`
	StartTime string `gorm:"size:5;not null;uniqueIndex:idx_booking_active_slot" json:"startTime"`
	EndTime   string `gorm:"size:5;not null;uniqueIndex:idx_booking_active_slot" json:"endTime"`
}

// Booking reserves one table of a venue for one day and slot.
// idx_booking_active_slot allows a single pending or confirmed booking per
// (venue, table, day, slot).
type Booking struct {
	ID              uint          `gorm:"primaryKey" json:"id"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
	VenueID         uint          `gorm:"not null;index;uniqueIndex:idx_booking_active_slot,where:status = 'pending' OR status = 'confirmed'" json:"venueId"`
	Venue           *BookingVenue `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Reference       string        `gorm:"size:36;uniqueIndex;not null" json:"reference"`
	TableNumber     string        `gorm:"size:50;not null;uniqueIndex:idx_booking_active_slot" json:"tableNumber"`
	Date            time.Time     `gorm:"not null" json:"date"`
	DateKey         string        `gorm:"size:10;not null;index;uniqueIndex:idx_booking_active_slot" json:"dateKey"`
	TimeSlot        BookedSlot    `gorm:"embedded;embeddedPrefix:slot_" json:"timeSlot"`
	GuestName       string        `gorm:"size:255;not null" json:"guestName"`
	GuestEmail      string        `gorm:"size:255;not null" json:"guestEmail"`
	GuestPhone      string        `gorm:"size:50;not null" json:"guestPhone"`
	NumberOfGuests  int           `gorm:"not null" json:"numberOfGuests"`
	SpecialRequests string        `gorm:"type:text" json:"specialRequests,omitempty"`
	Status          string        `gorm:"size:20;not null;index" json:"status"`
	AdminNotes      string        `gorm:"type:text" json:"adminNotes,omitempty"`
	ConfirmedAt     *time.Time    `json:"confirmedAt,omitempty"`
	CancelledAt     *time.Time    `json:"cancelledAt,omitempty"`
}

// GetUserID returns the owner of the booking's venue; Venue must be loaded.
func (b *Booking) GetUserID() uint {
	if b.Venue == nil {
		return 0
	}
	return b.Venue.UserID
}

// Active reports whether the booking holds its slot.
func (b *Booking) Active() bool {
	return b.Status == StatusPending || b.Status == StatusConfirmed
}
