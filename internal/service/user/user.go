// Package user covers profile self-service and admin user management.
package user

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/kofiasare/storefront/internal/hash"
	"github.com/kofiasare/storefront/internal/models"
)

var (
	ErrValidation  = errors.New("validation")          // 400
	ErrNotFound    = errors.New("not found")           // 404
	ErrConflict    = errors.New("conflict")            // 409
	ErrAdminDelete = errors.New("cannot delete admin") // 400
	ErrInternal    = errors.New("internal")            // 500
)

type Service struct {
	DB *gorm.DB
}

func (s *Service) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.DB.WithContext(ctx).Order("id ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return users, nil
}

func (s *Service) Get(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.DB.WithContext(ctx).First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return &u, nil
}

type ProfileUpdate struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Service) UpdateProfile(ctx context.Context, id uint, in ProfileUpdate) (*models.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Username != "" {
		u.Username = in.Username
	}
	if in.Email != "" {
		var dup int64
		if err := s.DB.WithContext(ctx).Model(&models.User{}).
			Where("email = ? AND id <> ?", in.Email, id).
			Count(&dup).Error; err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInternal, err)
		}
		if dup > 0 {
			return nil, fmt.Errorf("%w: email already in use", ErrConflict)
		}
		u.Email = in.Email
	}
	if in.Password != "" {
		hashed, err := hash.HashPassword(in.Password)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInternal, err)
		}
		u.PasswordHash = hashed
	}

	if err := s.DB.WithContext(ctx).Save(u).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return u, nil
}

type AdminUpdate struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	IsAdmin  *bool  `json:"isAdmin"`
}

func (s *Service) AdminUpdate(ctx context.Context, id uint, in AdminUpdate) (*models.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Username != "" {
		u.Username = in.Username
	}
	if in.Email != "" {
		u.Email = in.Email
	}
	if in.IsAdmin != nil {
		u.IsAdmin = *in.IsAdmin
	}

	if err := s.DB.WithContext(ctx).Save(u).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return u, nil
}

// Delete removes a user; admin accounts are never hard-deleted.
func (s *Service) Delete(ctx context.Context, id uint) error {
	u, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if u.IsAdmin {
		return fmt.Errorf("%w: user %d", ErrAdminDelete, id)
	}
	if err := s.DB.WithContext(ctx).Delete(&models.User{}, id).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return nil
}
