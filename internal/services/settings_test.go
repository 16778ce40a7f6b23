package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diewo77/go-eventdesk/internal/models"
)

func TestSettingsGetDoesNotWrite(t *testing.T) {
	f := newFixture(t)
	svc := NewSettingsService(f.db, f.gate)

	got, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.DefaultSettings(), *got)
	assert.Zero(t, f.count(t, &models.Settings{}, ""))
}

func TestSettingsUpdate(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, "admin@example.com", models.RoleAdmin, "password1")
	manager := f.user(t, "manager@example.com", models.RoleManager, "password1")
	svc := NewSettingsService(f.db, f.gate)
	ctx := context.Background()

	name := "Bistro Polls"
	_, err := svc.Update(ctx, manager.ID, SettingsInput{SiteName: &name})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.Update(ctx, 0, SettingsInput{SiteName: &name})
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Zero(t, f.count(t, &models.Settings{}, ""))

	hours := 48
	updated, err := svc.Update(ctx, admin.ID, SettingsInput{
		SiteName:                 &name,
		DefaultPollDurationHours: &hours,
		Extra:                    map[string]any{"footer": "hello"},
	})
	require.NoError(t, err)
	assert.Equal(t, name, updated.SiteName)
	assert.Equal(t, 48, updated.DefaultPollDurationHours)
	assert.True(t, updated.BookingEnabled)

	got, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, name, got.SiteName)
	assert.Equal(t, "hello", got.Extra["footer"])
	assert.Equal(t, models.DefaultSettings().PrimaryColor, got.PrimaryColor)
	assert.Equal(t, int64(1), f.count(t, &models.Settings{}, ""))

	empty := " "
	bad := 0
	_, err = svc.Update(ctx, admin.ID, SettingsInput{SiteName: &empty, DefaultPollDurationHours: &bad})
	ve, ok := IsValidation(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, "required", ve.Fields["siteName"])
	assert.Equal(t, "out_of_range", ve.Fields["defaultPollDurationHours"])
}

func TestSettingsInitialize(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, "admin@example.com", models.RoleAdmin, "password1")
	staff := f.user(t, "staff@example.com", models.RoleStaff, "password1")
	svc := NewSettingsService(f.db, f.gate)
	ctx := context.Background()

	_, _, err := svc.Initialize(ctx, staff.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	row, created, err := svc.Initialize(ctx, admin.ID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.SettingsID, row.ID)

	_, created, err = svc.Initialize(ctx, admin.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, int64(1), f.count(t, &models.Settings{}, ""))
}
