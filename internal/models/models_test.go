package models

import (
	"testing"
	"time"
)

func TestGetUserID(t *testing.T) {
	tests := []struct {
		name string
		got  uint
		want uint
	}{
		{"user", (&User{ID: 3}).GetUserID(), 3},
		{"poll", (&Poll{UserID: 42}).GetUserID(), 42},
		{"venue", (&BookingVenue{UserID: 7}).GetUserID(), 7},
		{"booking via venue", (&Booking{Venue: &BookingVenue{UserID: 9}}).GetUserID(), 9},
		{"booking without venue", (&Booking{}).GetUserID(), 0},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: GetUserID() = %d, want %d", tt.name, tt.got, tt.want)
		}
	}
}

func TestPoll_Expired(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := &Poll{ExpireAt: at}
	if p.Expired(at.Add(-time.Second)) {
		t.Error("poll should be live before expireAt")
	}
	if !p.Expired(at) {
		t.Error("poll should be expired at expireAt")
	}
	if !p.Expired(at.Add(time.Second)) {
		t.Error("poll should be expired after expireAt")
	}
}

func TestPoll_Question(t *testing.T) {
	p := &Poll{Questions: []Question{{ID: "q1", Type: QuestionButton, Options: []string{"yes", "no"}}}}
	q, ok := p.Question("q1")
	if !ok || !q.HasOption("no") || q.HasOption("maybe") {
		t.Fatalf("unexpected lookup result %+v %v", q, ok)
	}
	if _, ok := p.Question("q2"); ok {
		t.Fatal("q2 should not exist")
	}
}

func TestVenueLookups(t *testing.T) {
	v := &BookingVenue{
		Tables:    []Table{{TableNumber: "T1", Capacity: 4}},
		TimeSlots: []TimeSlot{{Name: "Dinner", StartTime: "18:00", EndTime: "20:00", DaysAvailable: []string{"friday", "saturday"}}},
	}
	if _, ok := v.Table("T1"); !ok {
		t.Error("T1 should exist")
	}
	if _, ok := v.Table("T9"); ok {
		t.Error("T9 should not exist")
	}
	slot, ok := v.Slot("18:00", "20:00")
	if !ok {
		t.Fatal("dinner slot should exist")
	}
	if !slot.AvailableOn(time.Friday) || slot.AvailableOn(time.Monday) {
		t.Error("unexpected day availability")
	}
	if !(TimeSlot{}).AvailableOn(time.Monday) {
		t.Error("empty days means every day")
	}
}

func TestBooking_Active(t *testing.T) {
	for status, want := range map[string]bool{
		StatusPending: true, StatusConfirmed: true, StatusCancelled: false, StatusCompleted: false,
	} {
		if got := (&Booking{Status: status}).Active(); got != want {
			t.Errorf("%s: Active() = %v, want %v", status, got, want)
		}
	}
}

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	if s.ID != SettingsID || s.SiteName == "" || !s.BookingEnabled {
		t.Fatalf("unexpected defaults %+v", s)
	}
}
