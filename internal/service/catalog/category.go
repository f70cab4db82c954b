package catalog

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/kofiasare/storefront/internal/models"
)

func (s *Service) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: category name is required", ErrValidation)
	}

	var existing models.Category
	err := s.DB.WithContext(ctx).Where("name = ?", name).First(&existing).Error
	if err == nil {
		return nil, fmt.Errorf("%w: category already exists", ErrConflict)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	category := models.Category{Name: name}
	if err := s.DB.WithContext(ctx).Create(&category).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return &category, nil
}

func (s *Service) UpdateCategory(ctx context.Context, id uint, name string) (*models.Category, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: category name is required", ErrValidation)
	}

	var category models.Category
	if err := s.DB.WithContext(ctx).First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: category %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	var dup int64
	if err := s.DB.WithContext(ctx).Model(&models.Category{}).
		Where("name = ? AND id <> ?", name, id).
		Count(&dup).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if dup > 0 {
		return nil, fmt.Errorf("%w: category name must be unique", ErrConflict)
	}

	category.Name = name
	if err := s.DB.WithContext(ctx).Save(&category).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return &category, nil
}

// DeleteCategory does not cascade: products keep their now-orphaned
// category reference.
func (s *Service) DeleteCategory(ctx context.Context, id uint) (*models.Category, error) {
	var category models.Category
	if err := s.DB.WithContext(ctx).First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: category %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if err := s.DB.WithContext(ctx).Delete(&models.Category{}, id).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return &category, nil
}

func (s *Service) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := s.DB.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return categories, nil
}

func (s *Service) GetCategory(ctx context.Context, id uint) (*models.Category, error) {
	var category models.Category
	if err := s.DB.WithContext(ctx).First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: category %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return &category, nil
}
