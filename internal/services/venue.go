package services

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"strings"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
	"gorm.io/gorm"

	"github.com/diewo77/go-eventdesk/gate"
	"github.com/diewo77/go-eventdesk/internal/models"
	"github.com/diewo77/go-eventdesk/internal/policy"
	"github.com/diewo77/go-eventdesk/validation"
)

// Venue types offered by the admin UI.
const (
	VenueRestaurant = "restaurant"
	VenueEvent      = "event"
	VenueOther      = "other"
)

var VenueTypes = []string{VenueRestaurant, VenueEvent, VenueOther}

// QRSize is the edge length in pixels of generated QR codes.
const QRSize = 320

var tableShapes = []string{"round", "square", "rectangle"}

// VenueInput is the body of create and update. IsActive defaults to true.
type VenueInput struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	VenueType   string            `json:"venueType"`
	Address     string            `json:"address"`
	Tables      []models.Table    `json:"tables"`
	TimeSlots   []models.TimeSlot `json:"timeSlots"`
	IsActive    *bool             `json:"isActive"`
}

type VenueService struct {
	DB   *gorm.DB
	Gate Authorizer
	// BaseURL is the public front-end origin encoded in QR codes.
	BaseURL string
}

func NewVenueService(db *gorm.DB, g Authorizer, baseURL string) *VenueService {
	return &VenueService{DB: db, Gate: g, BaseURL: baseURL}
}

func (s *VenueService) Create(ctx context.Context, caller uint, in VenueInput) (*models.BookingVenue, error) {
	if err := authorize(ctx, s.Gate, caller, gate.ActionCreate, policy.ResourceVenue, nil); err != nil {
		return nil, err
	}
	venue := models.BookingVenue{UserID: caller, IsActive: true}
	if err := applyVenue(&venue, in); err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Create(&venue).Error; err != nil {
		return nil, fmt.Errorf("venues: create: %w", err)
	}
	return &venue, nil
}

func (s *VenueService) List(ctx context.Context, caller uint) ([]models.BookingVenue, error) {
	if err := authorize(ctx, s.Gate, caller, gate.ActionList, policy.ResourceVenue, nil); err != nil {
		return nil, err
	}
	var venues []models.BookingVenue
	if err := s.DB.WithContext(ctx).Where("user_id = ?", caller).Order("created_at DESC, id DESC").Find(&venues).Error; err != nil {
		return nil, fmt.Errorf("venues: list: %w", err)
	}
	return venues, nil
}

func (s *VenueService) Get(ctx context.Context, caller, id uint) (*models.BookingVenue, error) {
	return s.owned(ctx, caller, id, gate.ActionView)
}

func (s *VenueService) Update(ctx context.Context, caller, id uint, in VenueInput) (*models.BookingVenue, error) {
	venue, err := s.owned(ctx, caller, id, gate.ActionUpdate)
	if err != nil {
		return nil, err
	}
	if err := applyVenue(venue, in); err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Save(venue).Error; err != nil {
		return nil, fmt.Errorf("venues: update: %w", err)
	}
	return venue, nil
}

// Delete removes the venue together with all of its bookings.
func (s *VenueService) Delete(ctx context.Context, caller, id uint) error {
	venue, err := s.owned(ctx, caller, id, gate.ActionDelete)
	if err != nil {
		return err
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("venue_id = ?", venue.ID).Delete(&models.Booking{}).Error; err != nil {
			return err
		}
		return tx.Delete(venue).Error
	})
	if err != nil {
		return fmt.Errorf("venues: delete: %w", err)
	}
	return nil
}

// ListBookings returns every booking of one venue, newest day first.
func (s *VenueService) ListBookings(ctx context.Context, caller, id uint) ([]models.Booking, error) {
	venue, err := s.owned(ctx, caller, id, gate.ActionView)
	if err != nil {
		return nil, err
	}
	var bookings []models.Booking
	err = s.DB.WithContext(ctx).
		Where("venue_id = ?", venue.ID).
		Order("date_key DESC, slot_start_time, id").
		Find(&bookings).Error
	if err != nil {
		return nil, fmt.Errorf("venues: bookings: %w", err)
	}
	return bookings, nil
}

// BookingURL is the public page a venue's QR code points at.
func (s *VenueService) BookingURL(id uint) string {
	return fmt.Sprintf("%s/book/%d", strings.TrimRight(s.BaseURL, "/"), id)
}

// QRCode renders the venue's booking URL as a PNG.
func (s *VenueService) QRCode(ctx context.Context, caller, id uint) ([]byte, error) {
	venue, err := s.owned(ctx, caller, id, gate.ActionView)
	if err != nil {
		return nil, err
	}
	code, err := qr.Encode(s.BookingURL(venue.ID), qr.M, qr.Auto)
	if err != nil {
		return nil, fmt.Errorf("venues: encode qr: %w", err)
	}
	code, err = barcode.Scale(code, QRSize, QRSize)
	if err != nil {
		return nil, fmt.Errorf("venues: scale qr: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, code); err != nil {
		return nil, fmt.Errorf("venues: png: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *VenueService) owned(ctx context.Context, caller, id uint, action gate.Action) (*models.BookingVenue, error) {
	venue, err := findVenue(ctx, s.DB, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(ctx, s.Gate, caller, action, policy.ResourceVenue, venue); err != nil {
		return nil, err
	}
	return venue, nil
}

func applyVenue(venue *models.BookingVenue, in VenueInput) error {
	v := validation.Violations{}
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Address = strings.TrimSpace(in.Address)
	in.VenueType = strings.ToLower(strings.TrimSpace(in.VenueType))
	if in.VenueType == "" {
		in.VenueType = VenueRestaurant
	}

	validation.Required("name", in.Name, v)
	validation.MaxLength("name", in.Name, 255, v)
	validation.OneOf("venueType", in.VenueType, VenueTypes, v)
	tables := normalizeTables(in.Tables, v)
	slots := normalizeSlots(in.TimeSlots, v)
	if err := invalid(v); err != nil {
		return err
	}

	venue.Name = in.Name
	venue.Description = in.Description
	venue.VenueType = in.VenueType
	venue.Address = in.Address
	venue.Tables = tables
	venue.TimeSlots = slots
	if in.IsActive != nil {
		venue.IsActive = *in.IsActive
	}
	return nil
}

func normalizeTables(in []models.Table, v validation.Violations) []models.Table {
	if len(in) == 0 {
		v.Add("tables", "required")
		return nil
	}
	out := make([]models.Table, 0, len(in))
	seen := make(map[string]bool, len(in))
	for i, t := range in {
		field := fmt.Sprintf("tables[%d]", i)
		t.TableNumber = strings.TrimSpace(t.TableNumber)
		t.Shape = strings.ToLower(strings.TrimSpace(t.Shape))
		validation.Required(field+".tableNumber", t.TableNumber, v)
		if t.TableNumber != "" && seen[t.TableNumber] {
			v.Add(field+".tableNumber", "duplicate")
		}
		seen[t.TableNumber] = true
		validation.PositiveInt(field+".capacity", t.Capacity, v)
		if t.Shape != "" {
			validation.OneOf(field+".shape", t.Shape, tableShapes, v)
		}
		out = append(out, t)
	}
	return out
}

func normalizeSlots(in []models.TimeSlot, v validation.Violations) []models.TimeSlot {
	if len(in) == 0 {
		v.Add("timeSlots", "required")
		return nil
	}
	out := make([]models.TimeSlot, 0, len(in))
	seen := make(map[string]bool, len(in))
	for i, s := range in {
		field := fmt.Sprintf("timeSlots[%d]", i)
		s.Name = strings.TrimSpace(s.Name)
		s.StartTime = strings.TrimSpace(s.StartTime)
		s.EndTime = strings.TrimSpace(s.EndTime)
		validation.Required(field+".name", s.Name, v)
		validation.TimeOfDay(field+".startTime", s.StartTime, v)
		validation.TimeOfDay(field+".endTime", s.EndTime, v)
		// HH:MM strings order lexically.
		if len(s.StartTime) == 5 && len(s.EndTime) == 5 && s.StartTime >= s.EndTime {
			v.Add(field+".endTime", "must_be_after_start")
		}
		key := s.StartTime + "-" + s.EndTime
		if seen[key] {
			v.Add(field, "duplicate")
		}
		seen[key] = true

		days := make([]string, 0, len(s.DaysAvailable))
		for _, d := range s.DaysAvailable {
			d = strings.ToLower(strings.TrimSpace(d))
			validation.OneOf(field+".daysAvailable", d, models.Weekdays, v)
			days = append(days, d)
		}
		s.DaysAvailable = days
		out = append(out, s)
	}
	return out
}
