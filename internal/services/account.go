package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/diewo77/go-eventdesk/auth"
	"github.com/diewo77/go-eventdesk/gate"
	"github.com/diewo77/go-eventdesk/internal/models"
	"github.com/diewo77/go-eventdesk/internal/policy"
	"github.com/diewo77/go-eventdesk/validation"
)

// DeleteConfirmationPhrase must be typed verbatim to delete an account.
const DeleteConfirmationPhrase = "DELETE MY ACCOUNT"

type DeleteAccountInput struct {
	Password     string `json:"password"`
	Confirmation string `json:"confirmation"`
}

// WipeResult counts the rows removed with the account.
type WipeResult struct {
	Polls       int64 `json:"polls"`
	Submissions int64 `json:"submissions"`
	Venues      int64 `json:"venues"`
	Bookings    int64 `json:"bookings"`
}

type AccountService struct {
	DB   *gorm.DB
	Gate Authorizer
}

func NewAccountService(db *gorm.DB, g Authorizer) *AccountService {
	return &AccountService{DB: db, Gate: g}
}

// Delete removes the caller and everything they own in one transaction.
// A wrong password is ErrUnauthorized; a wrong phrase is a validation error.
func (s *AccountService) Delete(ctx context.Context, caller uint, in DeleteAccountInput) (*WipeResult, error) {
	v := validation.Violations{}
	validation.Required("password", in.Password, v)
	validation.Required("confirmation", in.Confirmation, v)
	if err := invalid(v); err != nil {
		return nil, err
	}

	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, caller).Error; err != nil {
		return nil, ErrUnauthorized
	}
	if err := authorize(ctx, s.Gate, caller, gate.ActionDelete, policy.ResourceAccount, &user); err != nil {
		return nil, err
	}
	if !auth.CheckPassword(user.PasswordHash, in.Password) {
		return nil, ErrUnauthorized
	}
	if in.Confirmation != DeleteConfirmationPhrase {
		return nil, invalidField("confirmation", "confirmation_mismatch")
	}

	var res WipeResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var locked []uint
		if err := forUpdate(tx).Model(&models.Poll{}).Where("user_id = ?", caller).Pluck("id", &locked).Error; err != nil {
			return err
		}
		polls := tx.Model(&models.Poll{}).Select("id").Where("user_id = ?", caller)
		venues := tx.Model(&models.BookingVenue{}).Select("id").Where("user_id = ?", caller)

		r := tx.Where("poll_id IN (?)", polls).Delete(&models.Submission{})
		if r.Error != nil {
			return r.Error
		}
		res.Submissions = r.RowsAffected
		if r = tx.Where("venue_id IN (?)", venues).Delete(&models.Booking{}); r.Error != nil {
			return r.Error
		}
		res.Bookings = r.RowsAffected
		if r = tx.Where("user_id = ?", caller).Delete(&models.Poll{}); r.Error != nil {
			return r.Error
		}
		res.Polls = r.RowsAffected
		if r = tx.Where("user_id = ?", caller).Delete(&models.BookingVenue{}); r.Error != nil {
			return r.Error
		}
		res.Venues = r.RowsAffected
		return tx.Delete(&models.User{}, caller).Error
	})
	if err != nil {
		return nil, fmt.Errorf("account: wipe: %w", err)
	}
	return &res, nil
}
