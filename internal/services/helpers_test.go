package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/diewo77/go-eventdesk/auth"
	"github.com/diewo77/go-eventdesk/internal/db"
	"github.com/diewo77/go-eventdesk/internal/models"
	"github.com/diewo77/go-eventdesk/internal/policy"
)

// now is a Sunday.
var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return now }

type fixture struct {
	db   *gorm.DB
	gate *policy.AuthGate
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn, err := db.OpenMemory(t.Name())
	require.NoError(t, err)
	return &fixture{db: conn, gate: policy.NewAuthGate(conn, time.Minute)}
}

func (f *fixture) user(t *testing.T, email, role, password string) models.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)
	u := models.User{Email: email, PasswordHash: hash, Name: "Test", Role: role}
	require.NoError(t, f.db.Create(&u).Error)
	return u
}

func (f *fixture) polls() *PollService {
	s := NewPollService(f.db, f.gate)
	s.Now = fixedClock
	return s
}

func (f *fixture) venues() *VenueService {
	return NewVenueService(f.db, f.gate, "https://book.example.com/")
}

func (f *fixture) bookings() *BookingService {
	s := NewBookingService(f.db, f.gate, NewSettingsService(f.db, f.gate))
	s.Now = fixedClock
	s.Location = time.UTC
	return s
}

func (f *fixture) count(t *testing.T, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	q := f.db.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}

func pollInput() PollInput {
	return PollInput{
		Title: "Team lunch",
		Questions: []models.Question{
			{ID: "where", Text: "Where?", Type: models.QuestionButton, Options: []string{"Pizza", "Sushi"}, Required: true},
			{ID: "notes", Text: "Anything else?", Type: models.QuestionText},
		},
		ExpireAt: now.Add(48 * time.Hour),
	}
}

func venueInput() VenueInput {
	return VenueInput{
		Name: "Chez Nous",
		Tables: []models.Table{
			{TableNumber: "T1", Capacity: 4},
			{TableNumber: "T2", Capacity: 2, Shape: "round"},
		},
		TimeSlots: []models.TimeSlot{
			{Name: "Lunch", StartTime: "12:00", EndTime: "14:00"},
			{Name: "Dinner", StartTime: "19:00", EndTime: "21:00", DaysAvailable: []string{"friday", "saturday"}},
		},
	}
}

// bookingRequest targets T1 for lunch on Monday 2026-03-02.
func bookingRequest() BookingRequest {
	return BookingRequest{
		TableNumber:    "T1",
		Date:           "2026-03-02",
		TimeSlot:       models.BookedSlot{StartTime: "12:00", EndTime: "14:00"},
		GuestName:      "Ada",
		GuestEmail:     "ada@example.com",
		GuestPhone:     "+33 6 12 34 56 78",
		NumberOfGuests: 3,
	}
}

func requireField(t *testing.T, err error, field, code string) {
	t.Helper()
	ve, ok := IsValidation(err)
	require.True(t, ok, "expected validation error, got %v", err)
	require.Equal(t, code, ve.Fields[field], "fields: %v", ve.Fields)
}
