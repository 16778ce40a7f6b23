package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/diewo77/go-eventdesk/auth"
	"github.com/diewo77/go-eventdesk/internal/models"
	"github.com/diewo77/go-eventdesk/validation"
)

// MinPasswordLength applies to setup and any future password change.
const MinPasswordLength = 8

// SetupInput creates the first (admin) account.
type SetupInput struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	Name         string `json:"name"`
	BusinessName string `json:"businessName"`
	Phone        string `json:"phone"`
}

// Session is returned by setup and login.
type Session struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type AuthService struct {
	DB     *gorm.DB
	Tokens *auth.Issuer
}

func NewAuthService(db *gorm.DB, tokens *auth.Issuer) *AuthService {
	return &AuthService{DB: db, Tokens: tokens}
}

// IsSetupComplete reports whether at least one user exists.
func (s *AuthService) IsSetupComplete(ctx context.Context) (bool, error) {
	var count int64
	if err := s.DB.WithContext(ctx).Model(&models.User{}).Count(&count).Error; err != nil {
		return false, fmt.Errorf("auth: count users: %w", err)
	}
	return count > 0, nil
}

// Setup creates the initial admin. It only succeeds while no user exists.
func (s *AuthService) Setup(ctx context.Context, in SetupInput) (*Session, error) {
	in.Email = normalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	in.BusinessName = strings.TrimSpace(in.BusinessName)
	in.Phone = strings.TrimSpace(in.Phone)

	v := validation.Violations{}
	validation.Required("email", in.Email, v)
	validation.Email("email", in.Email, v)
	validation.Required("password", in.Password, v)
	validation.MinLength("password", in.Password, MinPasswordLength, v)
	validation.Required("name", in.Name, v)
	if in.Phone != "" {
		validation.Phone("phone", in.Phone, v)
	}
	if err := invalid(v); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}
	user := models.User{
		Email:        in.Email,
		PasswordHash: hash,
		Name:         in.Name,
		BusinessName: in.BusinessName,
		Phone:        in.Phone,
		Role:         models.RoleAdmin,
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrAlreadyConfigured
		}
		return tx.Create(&user).Error
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyConfigured) {
			return nil, err
		}
		return nil, fmt.Errorf("auth: setup: %w", err)
	}
	return s.session(&user)
}

// Login checks credentials. Unknown email and wrong password are
// indistinguishable.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	var user models.User
	err := s.DB.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("auth: load user: %w", err)
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, ErrUnauthorized
	}
	return s.session(&user)
}

// Me returns the caller's account.
func (s *AuthService) Me(ctx context.Context, caller uint) (*models.User, error) {
	var user models.User
	err := s.DB.WithContext(ctx).First(&user, caller).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("auth: load user: %w", err)
	}
	return &user, nil
}

// UserExists backs auth.RequireAuth so that tokens of deleted users stop
// working immediately.
func (s *AuthService) UserExists(ctx context.Context, uid uint) bool {
	var count int64
	if err := s.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", uid).Limit(1).Count(&count).Error; err != nil {
		return false
	}
	return count > 0
}

func (s *AuthService) session(user *models.User) (*Session, error) {
	token, err := s.Tokens.Issue(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("auth: issue token: %w", err)
	}
	return &Session{Token: token, User: user}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
