package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/diewo77/go-eventdesk/gate"
	"github.com/diewo77/go-eventdesk/internal/db"
	"github.com/diewo77/go-eventdesk/internal/models"
	"github.com/diewo77/go-eventdesk/internal/policy"
	"github.com/diewo77/go-eventdesk/validation"
)

// DateLayout is the wire and bucket format of booking dates.
const DateLayout = "2006-01-02"

// BookingRequest is the public booking form.
type BookingRequest struct {
	TableNumber     string            `json:"tableNumber"`
	Date            string            `json:"date"`
	TimeSlot        models.BookedSlot `json:"timeSlot"`
	GuestName       string            `json:"guestName"`
	GuestEmail      string            `json:"guestEmail"`
	GuestPhone      string            `json:"guestPhone"`
	NumberOfGuests  int               `json:"numberOfGuests"`
	SpecialRequests string            `json:"specialRequests"`
}

// BookingFilter narrows the admin listing. Zero values are ignored.
type BookingFilter struct {
	Status  string
	Date    string
	VenueID uint
}

// PublicVenue is what anonymous visitors see of a venue.
type PublicVenue struct {
	ID          uint              `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	VenueType   string            `json:"venueType"`
	Address     string            `json:"address,omitempty"`
	Tables      []models.Table    `json:"tables"`
	TimeSlots   []models.TimeSlot `json:"timeSlots"`
}

// TakenSlot is an active booking stripped of guest data.
type TakenSlot struct {
	TableNumber string            `json:"tableNumber"`
	TimeSlot    models.BookedSlot `json:"timeSlot"`
	Status      string            `json:"status"`
}

type Availability struct {
	Venue    PublicVenue `json:"venue"`
	Date     string      `json:"date"`
	Bookings []TakenSlot `json:"bookings"`
}

// Receipt is the public view of a booking looked up by reference.
type Receipt struct {
	Reference      string            `json:"reference"`
	Status         string            `json:"status"`
	Date           string            `json:"date"`
	TimeSlot       models.BookedSlot `json:"timeSlot"`
	TableNumber    string            `json:"tableNumber"`
	NumberOfGuests int               `json:"numberOfGuests"`
	VenueName      string            `json:"venueName"`
}

type BookingService struct {
	DB   *gorm.DB
	Gate Authorizer
	Now  Clock
	// Location defines the day buckets bookings are grouped by.
	Location *time.Location
	// Settings, when set, lets the global bookingEnabled flag close public
	// booking.
	Settings *SettingsService
}

func NewBookingService(db *gorm.DB, g Authorizer, settings *SettingsService) *BookingService {
	return &BookingService{DB: db, Gate: g, Now: systemClock, Location: time.Local, Settings: settings}
}

// TryBook creates a pending booking. At most one pending or confirmed
// booking may exist per venue, table, day and slot: the pre-check answers
// the common case and the partial unique index settles concurrent attempts.
func (s *BookingService) TryBook(ctx context.Context, venueID uint, in BookingRequest) (*models.Booking, error) {
	venue, err := s.activeVenue(ctx, venueID)
	if err != nil {
		return nil, err
	}
	if s.Settings != nil {
		settings, err := s.Settings.Get(ctx)
		if err != nil {
			return nil, err
		}
		if !settings.BookingEnabled {
			return nil, invalidField("booking", "bookings_disabled")
		}
	}

	booking, err := s.buildBooking(venue, in)
	if err != nil {
		return nil, err
	}

	taken, err := s.slotTaken(ctx, s.DB, booking)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrSlotTaken
	}

	if err := s.DB.WithContext(ctx).Create(booking).Error; err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("bookings: create: %w", err)
	}
	return booking, nil
}

func (s *BookingService) buildBooking(venue *models.BookingVenue, in BookingRequest) (*models.Booking, error) {
	v := validation.Violations{}
	in.TableNumber = strings.TrimSpace(in.TableNumber)
	in.GuestName = strings.TrimSpace(in.GuestName)
	in.GuestEmail = normalizeEmail(in.GuestEmail)
	in.GuestPhone = strings.TrimSpace(in.GuestPhone)
	in.SpecialRequests = strings.TrimSpace(in.SpecialRequests)

	validation.Required("guestName", in.GuestName, v)
	validation.MaxLength("guestName", in.GuestName, 255, v)
	validation.Required("guestEmail", in.GuestEmail, v)
	validation.Email("guestEmail", in.GuestEmail, v)
	validation.Required("guestPhone", in.GuestPhone, v)
	validation.Phone("guestPhone", in.GuestPhone, v)
	validation.PositiveInt("numberOfGuests", in.NumberOfGuests, v)
	validation.Required("tableNumber", in.TableNumber, v)

	day, ok := s.parseDay(in.Date)
	switch {
	case !ok:
		v.Add("date", "invalid_date")
	case day.Format(DateLayout) < s.today():
		v.Add("date", "must_not_be_past")
	}

	if in.TableNumber != "" {
		table, found := venue.Table(in.TableNumber)
		switch {
		case !found:
			v.Add("tableNumber", "unknown_table")
		case in.NumberOfGuests > table.Capacity:
			v.Add("numberOfGuests", "exceeds_capacity")
		}
	}

	slot, found := venue.Slot(in.TimeSlot.StartTime, in.TimeSlot.EndTime)
	switch {
	case !found:
		v.Add("timeSlot", "unknown_slot")
	case ok && !slot.AvailableOn(day.Weekday()):
		v.Add("timeSlot", "unavailable_on_day")
	}
	if err := invalid(v); err != nil {
		return nil, err
	}

	return &models.Booking{
		VenueID:         venue.ID,
		Reference:       uuid.NewString(),
		TableNumber:     in.TableNumber,
		Date:            day.UTC(),
		DateKey:         day.Format(DateLayout),
		TimeSlot:        models.BookedSlot{Name: slot.Name, StartTime: slot.StartTime, EndTime: slot.EndTime},
		GuestName:       in.GuestName,
		GuestEmail:      in.GuestEmail,
		GuestPhone:      in.GuestPhone,
		NumberOfGuests:  in.NumberOfGuests,
		SpecialRequests: in.SpecialRequests,
		Status:          models.StatusPending,
	}, nil
}

func (s *BookingService) slotTaken(ctx context.Context, conn *gorm.DB, b *models.Booking) (bool, error) {
	taken, err := activeSlotTaken(conn.WithContext(ctx), b)
	if err != nil {
		return false, fmt.Errorf("bookings: %w", err)
	}
	return taken, nil
}

// Availability lists the active bookings of a venue on one day.
func (s *BookingService) Availability(ctx context.Context, venueID uint, date string) (*Availability, error) {
	venue, err := s.activeVenue(ctx, venueID)
	if err != nil {
		return nil, err
	}
	day, ok := s.parseDay(date)
	if !ok {
		return nil, invalidField("date", "invalid_date")
	}
	key := day.Format(DateLayout)

	var bookings []models.Booking
	err = s.DB.WithContext(ctx).
		Where("venue_id = ? AND date_key = ? AND status IN ?", venue.ID, key, models.ActiveStatuses).
		Order("table_number, slot_start_time").
		Find(&bookings).Error
	if err != nil {
		return nil, fmt.Errorf("bookings: availability: %w", err)
	}
	out := &Availability{Venue: publicVenue(venue), Date: key, Bookings: make([]TakenSlot, 0, len(bookings))}
	for _, b := range bookings {
		out.Bookings = append(out.Bookings, TakenSlot{TableNumber: b.TableNumber, TimeSlot: b.TimeSlot, Status: b.Status})
	}
	return out, nil
}

func (s *BookingService) PublicVenues(ctx context.Context) ([]PublicVenue, error) {
	var venues []models.BookingVenue
	if err := s.DB.WithContext(ctx).Where("is_active = ?", true).Order("name, id").Find(&venues).Error; err != nil {
		return nil, fmt.Errorf("bookings: public venues: %w", err)
	}
	out := make([]PublicVenue, 0, len(venues))
	for i := range venues {
		out = append(out, publicVenue(&venues[i]))
	}
	return out, nil
}

func (s *BookingService) PublicVenue(ctx context.Context, id uint) (*PublicVenue, error) {
	venue, err := s.activeVenue(ctx, id)
	if err != nil {
		return nil, err
	}
	pv := publicVenue(venue)
	return &pv, nil
}

// LookupReference returns the public receipt of a booking.
func (s *BookingService) LookupReference(ctx context.Context, ref string) (*Receipt, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, ErrNotFound
	}
	var b models.Booking
	err := s.DB.WithContext(ctx).Preload("Venue").Where("reference = ?", ref).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("bookings: lookup reference: %w", err)
	}
	r := &Receipt{
		Reference:      b.Reference,
		Status:         b.Status,
		Date:           b.DateKey,
		TimeSlot:       b.TimeSlot,
		TableNumber:    b.TableNumber,
		NumberOfGuests: b.NumberOfGuests,
	}
	if b.Venue != nil {
		r.VenueName = b.Venue.Name
	}
	return r, nil
}

// List returns bookings across the caller's venues, most recent day first.
func (s *BookingService) List(ctx context.Context, caller uint, f BookingFilter) ([]models.Booking, error) {
	if err := authorize(ctx, s.Gate, caller, gate.ActionList, policy.ResourceBooking, nil); err != nil {
		return nil, err
	}
	q := s.DB.WithContext(ctx).Model(&models.Booking{})
	if f.VenueID != 0 {
		venue, err := findVenue(ctx, s.DB, f.VenueID)
		if err != nil {
			return nil, err
		}
		if err := authorize(ctx, s.Gate, caller, gate.ActionView, policy.ResourceVenue, venue); err != nil {
			return nil, err
		}
		q = q.Where("venue_id = ?", venue.ID)
	} else {
		q = q.Where("venue_id IN (?)", s.DB.Model(&models.BookingVenue{}).Select("id").Where("user_id = ?", caller))
	}

	v := validation.Violations{}
	if f.Status != "" {
		validation.OneOf("status", f.Status, []string{models.StatusPending, models.StatusConfirmed, models.StatusCancelled, models.StatusCompleted}, v)
		q = q.Where("status = ?", f.Status)
	}
	if f.Date != "" {
		day, ok := s.parseDay(f.Date)
		if !ok {
			v.Add("date", "invalid_date")
		}
		q = q.Where("date_key = ?", day.Format(DateLayout))
	}
	if err := invalid(v); err != nil {
		return nil, err
	}

	var bookings []models.Booking
	if err := q.Order("date_key DESC, slot_start_time, id").Find(&bookings).Error; err != nil {
		return nil, fmt.Errorf("bookings: list: %w", err)
	}
	return bookings, nil
}

func (s *BookingService) Get(ctx context.Context, caller, id uint) (*models.Booking, error) {
	b, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(ctx, s.Gate, caller, gate.ActionView, policy.ResourceBooking, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Confirm moves a pending booking to confirmed.
func (s *BookingService) Confirm(ctx context.Context, caller, id uint, notes *string) (*models.Booking, error) {
	return s.transition(ctx, caller, id, models.StatusConfirmed, []string{models.StatusPending}, notes)
}

// Cancel releases the slot of a pending or confirmed booking.
func (s *BookingService) Cancel(ctx context.Context, caller, id uint, notes *string) (*models.Booking, error) {
	return s.transition(ctx, caller, id, models.StatusCancelled, models.ActiveStatuses, notes)
}

// Complete marks a confirmed booking as honoured.
func (s *BookingService) Complete(ctx context.Context, caller, id uint, notes *string) (*models.Booking, error) {
	return s.transition(ctx, caller, id, models.StatusCompleted, []string{models.StatusConfirmed}, notes)
}

// Delete hard-deletes a booking in any state.
func (s *BookingService) Delete(ctx context.Context, caller, id uint) error {
	b, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := authorize(ctx, s.Gate, caller, gate.ActionDelete, policy.ResourceBooking, b); err != nil {
		return err
	}
	if err := s.DB.WithContext(ctx).Delete(&models.Booking{}, b.ID).Error; err != nil {
		return fmt.Errorf("bookings: delete: %w", err)
	}
	return nil
}

// transition applies the status change only if the row is still in one of
// the from states, so two concurrent transitions cannot both win.
func (s *BookingService) transition(ctx context.Context, caller, id uint, to string, from []string, notes *string) (*models.Booking, error) {
	b, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(ctx, s.Gate, caller, gate.ActionTransition, policy.ResourceBooking, b); err != nil {
		return nil, err
	}

	now := s.Now()
	updates := map[string]any{"status": to}
	switch to {
	case models.StatusConfirmed:
		updates["confirmed_at"] = now
	case models.StatusCancelled:
		updates["cancelled_at"] = now
	}
	if notes != nil {
		updates["admin_notes"] = strings.TrimSpace(*notes)
	}

	res := s.DB.WithContext(ctx).Model(&models.Booking{}).
		Where("id = ? AND status IN ?", b.ID, from).
		Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("bookings: %s: %w", to, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, invalidField("status", "invalid_transition")
	}
	return s.load(ctx, b.ID)
}

func (s *BookingService) load(ctx context.Context, id uint) (*models.Booking, error) {
	var b models.Booking
	err := s.DB.WithContext(ctx).Preload("Venue").First(&b, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("bookings: load %d: %w", id, err)
	}
	return &b, nil
}

func (s *BookingService) activeVenue(ctx context.Context, id uint) (*models.BookingVenue, error) {
	venue, err := findVenue(ctx, s.DB, id)
	if err != nil {
		return nil, err
	}
	if !venue.IsActive {
		return nil, ErrNotFound
	}
	return venue, nil
}

// parseDay accepts YYYY-MM-DD or an RFC 3339 timestamp and returns the
// start of that day in the booking location.
func (s *BookingService) parseDay(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	loc := s.location()
	if t, err := time.ParseInLocation(DateLayout, raw, loc); err == nil {
		return t, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc), true
}

func (s *BookingService) today() string {
	return s.Now().In(s.location()).Format(DateLayout)
}

func (s *BookingService) location() *time.Location {
	if s.Location == nil {
		return time.Local
	}
	return s.Location
}

func findVenue(ctx context.Context, conn *gorm.DB, id uint) (*models.BookingVenue, error) {
	var venue models.BookingVenue
	err := conn.WithContext(ctx).First(&venue, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("venues: load %d: %w", id, err)
	}
	return &venue, nil
}

func publicVenue(v *models.BookingVenue) PublicVenue {
	return PublicVenue{
		ID:          v.ID,
		Name:        v.Name,
		Description: v.Description,
		VenueType:   v.VenueType,
		Address:     v.Address,
		Tables:      v.Tables,
		TimeSlots:   v.TimeSlots,
	}
}
