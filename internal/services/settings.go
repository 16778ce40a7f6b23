package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/diewo77/go-eventdesk/gate"
	"github.com/diewo77/go-eventdesk/internal/models"
	"github.com/diewo77/go-eventdesk/internal/policy"
	"github.com/diewo77/go-eventdesk/validation"
)

// MaxPollDurationHours caps defaultPollDurationHours at one year.
const MaxPollDurationHours = 24 * 365

// SettingsInput is a partial update; nil fields are left unchanged.
type SettingsInput struct {
	SiteName                 *string        `json:"siteName"`
	SiteDescription          *string        `json:"siteDescription"`
	PrimaryColor             *string        `json:"primaryColor"`
	SecondaryColor           *string        `json:"secondaryColor"`
	LogoURL                  *string        `json:"logoUrl"`
	ContactEmail             *string        `json:"contactEmail"`
	DefaultPollDurationHours *int           `json:"defaultPollDurationHours"`
	BookingEnabled           *bool          `json:"bookingEnabled"`
	Extra                    map[string]any `json:"extra"`
}

type SettingsService struct {
	DB   *gorm.DB
	Gate Authorizer
}

func NewSettingsService(db *gorm.DB, g Authorizer) *SettingsService {
	return &SettingsService{DB: db, Gate: g}
}

// Get returns the stored settings or the defaults. It never writes.
func (s *SettingsService) Get(ctx context.Context) (*models.Settings, error) {
	row, err := s.find(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	if row == nil {
		d := models.DefaultSettings()
		return &d, nil
	}
	return row, nil
}

// Update applies in on top of the current settings and persists row 1.
func (s *SettingsService) Update(ctx context.Context, caller uint, in SettingsInput) (*models.Settings, error) {
	if err := authorize(ctx, s.Gate, caller, gate.ActionUpdate, policy.ResourceSettings, nil); err != nil {
		return nil, err
	}
	var out *models.Settings
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := s.find(ctx, tx)
		if err != nil {
			return err
		}
		if row == nil {
			d := models.DefaultSettings()
			row = &d
		}
		if err := applySettings(row, in); err != nil {
			return err
		}
		if err := tx.Save(row).Error; err != nil {
			return fmt.Errorf("settings: save: %w", err)
		}
		out = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Initialize persists the default row if none exists and reports whether it
// did.
func (s *SettingsService) Initialize(ctx context.Context, caller uint) (*models.Settings, bool, error) {
	if err := authorize(ctx, s.Gate, caller, gate.ActionCreate, policy.ResourceSettings, nil); err != nil {
		return nil, false, err
	}
	row, err := s.find(ctx, s.DB)
	if err != nil {
		return nil, false, err
	}
	if row != nil {
		return row, false, nil
	}
	d := models.DefaultSettings()
	if err := s.DB.WithContext(ctx).Create(&d).Error; err != nil {
		return nil, false, fmt.Errorf("settings: initialize: %w", err)
	}
	return &d, true, nil
}

func (s *SettingsService) find(ctx context.Context, conn *gorm.DB) (*models.Settings, error) {
	var row models.Settings
	err := conn.WithContext(ctx).First(&row, models.SettingsID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("settings: load: %w", err)
	}
	return &row, nil
}

func applySettings(row *models.Settings, in SettingsInput) error {
	v := validation.Violations{}
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&row.SiteName, in.SiteName)
	set(&row.SiteDescription, in.SiteDescription)
	set(&row.PrimaryColor, in.PrimaryColor)
	set(&row.SecondaryColor, in.SecondaryColor)
	set(&row.LogoURL, in.LogoURL)
	if in.ContactEmail != nil {
		row.ContactEmail = normalizeEmail(*in.ContactEmail)
	}
	if in.DefaultPollDurationHours != nil {
		row.DefaultPollDurationHours = *in.DefaultPollDurationHours
	}
	if in.BookingEnabled != nil {
		row.BookingEnabled = *in.BookingEnabled
	}
	if in.Extra != nil {
		row.Extra = in.Extra
	}

	validation.Required("siteName", row.SiteName, v)
	validation.MaxLength("siteName", row.SiteName, 255, v)
	if row.ContactEmail != "" {
		validation.Email("contactEmail", row.ContactEmail, v)
	}
	validation.RangeFloat("defaultPollDurationHours", float64(row.DefaultPollDurationHours), 1, MaxPollDurationHours, v)
	return invalid(v)
}
