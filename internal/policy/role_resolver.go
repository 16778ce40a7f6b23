package policy

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/diewo77/go-eventdesk/gate"
	"github.com/diewo77/go-eventdesk/internal/models"
)

// Resource types registered on the gate.
const (
	ResourcePoll     = "poll"
	ResourceVenue    = "venue"
	ResourceBooking  = "booking"
	ResourceSettings = "settings"
	ResourceAccount  = "account"
	// ResourceUser is team management; only the admin profile grants it.
	ResourceUser = "user"
)

var memberPermissions = []gate.Permission{
	"poll:*",
	"venue:*",
	"booking:*",
	"account:*",
	gate.NewPermission(ResourceSettings, gate.ActionView),
}

// RoleProfiles maps each role to its permission profile.
var RoleProfiles = map[string]gate.Profile{
	models.RoleAdmin:   gate.NewStaticProfile(models.RoleAdmin, gate.PermissionSuperAdmin),
	models.RoleManager: gate.NewStaticProfile(models.RoleManager, memberPermissions...),
	models.RoleStaff:   gate.NewStaticProfile(models.RoleStaff, memberPermissions...),
}

// RoleResolver loads a user's role and maps it to a profile.
type RoleResolver struct {
	DB *gorm.DB
}

func NewRoleResolver(db *gorm.DB) *RoleResolver {
	return &RoleResolver{DB: db}
}

// Resolve returns nil when the user does not exist or has an unknown role.
func (r *RoleResolver) Resolve(ctx context.Context, userID uint) (gate.Profile, error) {
	var user models.User
	err := r.DB.WithContext(ctx).Select("id", "role").First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return RoleProfiles[user.Role], nil
}
