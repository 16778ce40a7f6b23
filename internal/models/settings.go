package models

import (
	"time"

	"gorm.io/datatypes"
)

// SettingsID is the primary key of the single settings row.
const SettingsID uint = 1

// Settings is the global singleton document.
type Settings struct {
	ID                       uint              `gorm:"primaryKey;autoIncrement:false" json:"-"`
	CreatedAt                time.Time         `json:"createdAt,omitzero"`
	UpdatedAt                time.Time         `json:"updatedAt,omitzero"`
	SiteName                 string            `gorm:"size:255;not null" json:"siteName"`
	SiteDescription          string            `gorm:"type:text" json:"siteDescription"`
	PrimaryColor             string            `gorm:"size:20" json:"primaryColor"`
	SecondaryColor           string            `gorm:"size:20" json:"secondaryColor"`
	LogoURL                  string            `gorm:"size:500" json:"logoUrl,omitempty"`
	ContactEmail             string            `gorm:"size:255" json:"contactEmail,omitempty"`
	DefaultPollDurationHours int               `gorm:"not null" json:"defaultPollDurationHours"`
	BookingEnabled           bool              `gorm:"not null" json:"bookingEnabled"`
	Extra                    datatypes.JSONMap `json:"extra,omitempty"`
}

// DefaultSettings is what reads return while no row has been persisted.
func DefaultSettings() Settings {
	return Settings{
		ID:                       SettingsID,
		SiteName:                 "Event Desk",
		SiteDescription:          "Polls and table bookings",
		PrimaryColor:             "#1f6feb",
		SecondaryColor:           "#f6f8fa",
		DefaultPollDurationHours: 24 * 7,
		BookingEnabled:           true,
	}
}
