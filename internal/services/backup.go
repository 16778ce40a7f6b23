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
	"github.com/diewo77/go-eventdesk/internal/models"
	"github.com/diewo77/go-eventdesk/internal/policy"
)

// BackupVersion is the document format written by Export.
const BackupVersion = 1

// Skip reasons reported by Import.
const (
	SkipExpiredPoll     = "expired_polls"
	SkipInvalidPoll     = "invalid_polls"
	SkipOrphanSubmit    = "orphan_submissions"
	SkipInvalidVenue    = "invalid_venues"
	SkipOrphanBooking   = "orphan_bookings"
	SkipInvalidBooking  = "invalid_bookings"
	SkipBookingConflict = "conflicting_bookings"
)

// Backup is a portable copy of one user's data. IDs are the exporter's and
// are only used to link children to parents.
type Backup struct {
	Version     int                   `json:"version"`
	ExportID    string                `json:"exportId"`
	ExportedAt  time.Time             `json:"exportedAt"`
	Polls       []models.Poll         `json:"polls"`
	Submissions []models.Submission   `json:"submissions"`
	Venues      []models.BookingVenue `json:"venues"`
	Bookings    []models.Booking      `json:"bookings"`
}

type ImportResult struct {
	Polls       int            `json:"polls"`
	Submissions int            `json:"submissions"`
	Venues      int            `json:"venues"`
	Bookings    int            `json:"bookings"`
	Skipped     map[string]int `json:"skipped"`
}

type BackupService struct {
	DB   *gorm.DB
	Gate Authorizer
	Now  Clock
	// Location rebuilds the day of bookings exported without a dateKey;
	// it must match the booking service's.
	Location *time.Location
}

func NewBackupService(db *gorm.DB, g Authorizer, loc *time.Location) *BackupService {
	return &BackupService{DB: db, Gate: g, Now: systemClock, Location: loc}
}

// Export collects the caller's live polls and submissions, venues and
// bookings.
func (s *BackupService) Export(ctx context.Context, caller uint) (*Backup, error) {
	if err := s.authorize(ctx, caller, gate.ActionView); err != nil {
		return nil, err
	}
	now := s.Now()
	out := &Backup{Version: BackupVersion, ExportID: uuid.NewString(), ExportedAt: now}
	conn := s.DB.WithContext(ctx)

	if err := conn.Where("user_id = ? AND expire_at > ?", caller, now).Order("id").Find(&out.Polls).Error; err != nil {
		return nil, fmt.Errorf("backup: polls: %w", err)
	}
	if len(out.Polls) > 0 {
		err := conn.Where("poll_id IN ? AND expire_at > ?", pollIDs(out.Polls), now).Order("id").Find(&out.Submissions).Error
		if err != nil {
			return nil, fmt.Errorf("backup: submissions: %w", err)
		}
	}
	if err := conn.Where("user_id = ?", caller).Order("id").Find(&out.Venues).Error; err != nil {
		return nil, fmt.Errorf("backup: venues: %w", err)
	}
	if len(out.Venues) > 0 {
		ids := make([]uint, len(out.Venues))
		for i, v := range out.Venues {
			ids[i] = v.ID
		}
		if err := conn.Where("venue_id IN ?", ids).Order("id").Find(&out.Bookings).Error; err != nil {
			return nil, fmt.Errorf("backup: bookings: %w", err)
		}
	}
	return out, nil
}

// Import recreates a backup under the caller's account in one transaction.
// Parents get fresh IDs and children are relinked through the old-to-new
// table. Records that cannot be placed are skipped and counted; any storage
// failure rolls the whole import back.
func (s *BackupService) Import(ctx context.Context, caller uint, b *Backup) (*ImportResult, error) {
	if err := s.authorize(ctx, caller, gate.ActionUpdate); err != nil {
		return nil, err
	}
	if b == nil || b.Version != BackupVersion {
		return nil, invalidField("version", "unsupported")
	}

	now := s.Now()
	res := &ImportResult{Skipped: map[string]int{}}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		polls := make(map[uint]models.Poll, len(b.Polls))
		for _, p := range b.Polls {
			switch {
			case !p.ExpireAt.After(now):
				res.Skipped[SkipExpiredPoll]++
				continue
			case strings.TrimSpace(p.Title) == "" || len(p.Questions) == 0:
				res.Skipped[SkipInvalidPoll]++
				continue
			}
			oldID := p.ID
			p.ID = 0
			p.UserID = caller
			p.ExpireAt = p.ExpireAt.UTC()
			if err := tx.Create(&p).Error; err != nil {
				return fmt.Errorf("poll %d: %w", oldID, err)
			}
			polls[oldID] = p
			res.Polls++
		}

		for _, sub := range b.Submissions {
			parent, ok := polls[sub.PollID]
			if !ok {
				res.Skipped[SkipOrphanSubmit]++
				continue
			}
			oldID := sub.ID
			sub.ID = 0
			sub.PollID = parent.ID
			sub.ExpireAt = parent.ExpireAt
			if !parent.ConsentEnabled {
				sub.ConsentAgreed = false
			}
			if sub.SubmittedAt.IsZero() {
				sub.SubmittedAt = now
			}
			if err := tx.Create(&sub).Error; err != nil {
				return fmt.Errorf("submission %d: %w", oldID, err)
			}
			res.Submissions++
		}

		venues := make(map[uint]uint, len(b.Venues))
		for _, v := range b.Venues {
			if strings.TrimSpace(v.Name) == "" || len(v.Tables) == 0 || len(v.TimeSlots) == 0 {
				res.Skipped[SkipInvalidVenue]++
				continue
			}
			oldID := v.ID
			v.ID = 0
			v.UserID = caller
			if v.VenueType == "" {
				v.VenueType = VenueRestaurant
			}
			if err := tx.Create(&v).Error; err != nil {
				return fmt.Errorf("venue %d: %w", oldID, err)
			}
			venues[oldID] = v.ID
			res.Venues++
		}

		for _, bk := range b.Bookings {
			venueID, ok := venues[bk.VenueID]
			if !ok {
				res.Skipped[SkipOrphanBooking]++
				continue
			}
			if !validStatus(bk.Status) || bk.TableNumber == "" || bk.TimeSlot.StartTime == "" {
				res.Skipped[SkipInvalidBooking]++
				continue
			}
			oldID := bk.ID
			bk.ID = 0
			bk.VenueID = venueID
			bk.Venue = nil
			if bk.DateKey == "" {
				bk.DateKey = bk.Date.In(s.location()).Format(DateLayout)
			}
			if bk.Active() {
				taken, err := activeSlotTaken(tx, &bk)
				if err != nil {
					return err
				}
				if taken {
					res.Skipped[SkipBookingConflict]++
					continue
				}
			}
			fresh, err := referenceFree(tx, bk.Reference)
			if err != nil {
				return err
			}
			if !fresh {
				bk.Reference = uuid.NewString()
			}
			if err := tx.Create(&bk).Error; err != nil {
				return fmt.Errorf("booking %d: %w", oldID, err)
			}
			res.Bookings++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("backup: import: %w", err)
	}
	return res, nil
}

func (s *BackupService) authorize(ctx context.Context, caller uint, action gate.Action) error {
	var user models.User
	err := s.DB.WithContext(ctx).First(&user, caller).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUnauthorized
	}
	if err != nil {
		return fmt.Errorf("backup: load user: %w", err)
	}
	return authorize(ctx, s.Gate, caller, action, policy.ResourceAccount, &user)
}

func activeSlotTaken(tx *gorm.DB, b *models.Booking) (bool, error) {
	var count int64
	err := tx.Model(&models.Booking{}).
		Where("venue_id = ? AND table_number = ? AND date_key = ? AND slot_start_time = ? AND slot_end_time = ? AND status IN ?",
			b.VenueID, b.TableNumber, b.DateKey, b.TimeSlot.StartTime, b.TimeSlot.EndTime, models.ActiveStatuses).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check slot: %w", err)
	}
	return count > 0, nil
}

func referenceFree(tx *gorm.DB, ref string) (bool, error) {
	if ref == "" {
		return false, nil
	}
	var count int64
	if err := tx.Model(&models.Booking{}).Where("reference = ?", ref).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check reference: %w", err)
	}
	return count == 0, nil
}

func validStatus(status string) bool {
	switch status {
	case models.StatusPending, models.StatusConfirmed, models.StatusCancelled, models.StatusCompleted:
		return true
	}
	return false
}

func (s *BackupService) location() *time.Location {
	if s.Location == nil {
		return time.Local
	}
	return s.Location
}
