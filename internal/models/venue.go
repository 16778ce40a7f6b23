package models

import (
	"time"

	"gorm.io/datatypes"
)

// Weekdays are the accepted values of TimeSlot.DaysAvailable.
var Weekdays = []string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Table struct {
	TableNumber string   `json:"tableNumber"`
	Capacity    int      `json:"capacity"`
	Position    Position `json:"position"`
	Shape       string   `json:"shape,omitempty"`
}

// TimeSlot is a bookable slot. An empty DaysAvailable means every day.
type TimeSlot struct {
	Name          string   `json:"name"`
	StartTime     string   `json:"startTime"`
	EndTime       string   `json:"endTime"`
	DaysAvailable []string `json:"daysAvailable,omitempty"`
}

// AvailableOn reports whether the slot can be booked on day.
func (s TimeSlot) AvailableOn(day time.Weekday) bool {
	if len(s.DaysAvailable) == 0 {
		return true
	}
	want := Weekdays[day]
	for _, d := range s.DaysAvailable {
		if d == want {
			return true
		}
	}
	return false
}

// BookingVenue is a bookable space. IsActive gates public visibility.
type BookingVenue struct {
	ID          uint                          `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time                     `json:"createdAt"`
	UpdatedAt   time.Time                     `json:"updatedAt"`
	UserID      uint                          `gorm:"index;not null" json:"userId"`
	Name        string                        `gorm:"size:255;not null" json:"name"`
	Description string                        `gorm:"type:text" json:"description,omitempty"`
	VenueType   string                        `gorm:"size:50;not null" json:"venueType"`
	Address     string                        `gorm:"size:500" json:"address,omitempty"`
	Tables      datatypes.JSONSlice[Table]    `gorm:"not null" json:"tables"`
	TimeSlots   datatypes.JSONSlice[TimeSlot] `gorm:"not null" json:"timeSlots"`
	IsActive    bool                          `gorm:"not null;index" json:"isActive"`
}

func (v *BookingVenue) GetUserID() uint { return v.UserID }

func (v *BookingVenue) Table(number string) (Table, bool) {
	for _, t := range v.Tables {
		if t.TableNumber == number {
			return t, true
		}
	}
	return Table{}, false
}

// Slot finds the slot with the given start and end times.
func (v *BookingVenue) Slot(start, end string) (TimeSlot, bool) {
	for _, s := range v.TimeSlots {
		if s.StartTime == start && s.EndTime == end {
			return s, true
		}
	}
	return TimeSlot{}, false
}
