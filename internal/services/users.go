package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/diewo77/go-eventdesk/auth"
	"github.com/diewo77/go-eventdesk/gate"
	"github.com/diewo77/go-eventdesk/internal/db"
	"github.com/diewo77/go-eventdesk/internal/models"
	"github.com/diewo77/go-eventdesk/internal/policy"
	"github.com/diewo77/go-eventdesk/validation"
)

// MemberInput creates a team account.
type MemberInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
}

// RoleInvalidator drops the cached role profile of one user.
type RoleInvalidator func(userID uint)

// UserService manages team accounts. Every method is admin-only.
type UserService struct {
	DB             *gorm.DB
	Gate           Authorizer
	InvalidateRole RoleInvalidator
}

func NewUserService(db *gorm.DB, g Authorizer, invalidate RoleInvalidator) *UserService {
	return &UserService{DB: db, Gate: g, InvalidateRole: invalidate}
}

func (s *UserService) List(ctx context.Context, caller uint) ([]models.User, error) {
	if err := authorize(ctx, s.Gate, caller, gate.ActionList, policy.ResourceUser, nil); err != nil {
		return nil, err
	}
	var users []models.User
	if err := s.DB.WithContext(ctx).Order("id").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("users: list: %w", err)
	}
	return users, nil
}

func (s *UserService) Create(ctx context.Context, caller uint, in MemberInput) (*models.User, error) {
	if err := authorize(ctx, s.Gate, caller, gate.ActionCreate, policy.ResourceUser, nil); err != nil {
		return nil, err
	}
	in.Email = normalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Role = strings.ToLower(strings.TrimSpace(in.Role))
	if in.Role == "" {
		in.Role = models.RoleStaff
	}

	v := validation.Violations{}
	validation.Required("email", in.Email, v)
	validation.Email("email", in.Email, v)
	validation.MinLength("password", in.Password, MinPasswordLength, v)
	validation.Required("name", in.Name, v)
	validation.OneOf("role", in.Role, models.Roles, v)
	if in.Phone != "" {
		validation.Phone("phone", in.Phone, v)
	}
	if err := invalid(v); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("users: hash password: %w", err)
	}
	user := models.User{Email: in.Email, PasswordHash: hash, Name: in.Name, Phone: in.Phone, Role: in.Role}
	if err := s.DB.WithContext(ctx).Create(&user).Error; err != nil {
		if db.IsUniqueViolation(err) {
			return nil, invalidField("email", "already_exists")
		}
		return nil, fmt.Errorf("users: create: %w", err)
	}
	return &user, nil
}

// SetRole changes a user's role and drops its cached profile. An admin may
// not demote itself, so the installation always keeps one admin.
func (s *UserService) SetRole(ctx context.Context, caller, id uint, role string) (*models.User, error) {
	if err := authorize(ctx, s.Gate, caller, gate.ActionUpdate, policy.ResourceUser, nil); err != nil {
		return nil, err
	}
	var user models.User
	err := s.DB.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("users: load %d: %w", id, err)
	}

	role = strings.ToLower(strings.TrimSpace(role))
	v := validation.Violations{}
	validation.OneOf("role", role, models.Roles, v)
	if user.ID == caller && user.IsAdmin() && role != models.RoleAdmin {
		v.Add("role", "cannot_demote_self")
	}
	if err := invalid(v); err != nil {
		return nil, err
	}

	if err := s.DB.WithContext(ctx).Model(&user).Update("role", role).Error; err != nil {
		return nil, fmt.Errorf("users: set role: %w", err)
	}
	if s.InvalidateRole != nil {
		s.InvalidateRole(user.ID)
	}
	return &user, nil
}
