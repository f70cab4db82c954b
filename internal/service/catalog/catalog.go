// Package catalog is the product/category store behind the checkout
// orchestrator and the public browsing endpoints. Stock is never written
// here; count_in_stock only moves through the checkout service.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"gorm.io/gorm"

	"github.com/kofiasare/storefront/internal/models"
)

var (
	ErrValidation      = errors.New("validation")       // 400
	ErrNotFound        = errors.New("not found")        // 404
	ErrConflict        = errors.New("conflict")         // 409
	ErrAlreadyReviewed = errors.New("already reviewed") // 400
	ErrInternal        = errors.New("internal")         // 500
)

type Service struct {
	DB *gorm.DB
}

type ProductInput struct {
	Name         string  `json:"name"`
	Image        string  `json:"image"`
	Brand        string  `json:"brand"`
	Quantity     int     `json:"quantity"`
	Category     uint    `json:"category"`
	Description  string  `json:"description"`
	Price        float64 `json:"price"`
	CountInStock int     `json:"countInStock"`
}

func (in ProductInput) validate() error {
	switch {
	case in.Name == "":
		return fmt.Errorf("%w: name is required", ErrValidation)
	case in.Brand == "":
		return fmt.Errorf("%w: brand is required", ErrValidation)
	case in.Description == "":
		return fmt.Errorf("%w: description is required", ErrValidation)
	case in.Category == 0:
		return fmt.Errorf("%w: category is required", ErrValidation)
	case in.Price < 0:
		return fmt.Errorf("%w: price cannot be negative", ErrValidation)
	case in.CountInStock < 0:
		return fmt.Errorf("%w: countInStock cannot be negative", ErrValidation)
	}
	return nil
}

func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	prod := models.Product{
		Name:         in.Name,
		Image:        in.Image,
		Brand:        in.Brand,
		Quantity:     in.Quantity,
		CategoryID:   in.Category,
		Description:  in.Description,
		Price:        in.Price,
		CountInStock: in.CountInStock,
	}
	if err := s.DB.WithContext(ctx).Create(&prod).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return &prod, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id uint, in ProductInput) (*models.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var prod models.Product
	if err := s.DB.WithContext(ctx).First(&prod, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: product %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	prod.Name = in.Name
	prod.Brand = in.Brand
	prod.Quantity = in.Quantity
	prod.CategoryID = in.Category
	prod.Description = in.Description
	prod.Price = in.Price
	if in.Image != "" {
		prod.Image = in.Image
	}
	if in.CountInStock >= 0 {
		prod.CountInStock = in.CountInStock
	}

	if err := s.DB.WithContext(ctx).Save(&prod).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return &prod, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id uint) (*models.Product, error) {
	var prod models.Product
	if err := s.DB.WithContext(ctx).First(&prod, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: product %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if err := s.DB.WithContext(ctx).Delete(&models.Product{}, id).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return &prod, nil
}

func (s *Service) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	var prod models.Product
	if err := s.DB.WithContext(ctx).Preload("Reviews").First(&prod, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: product %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return &prod, nil
}

type ProductPage struct {
	Products []models.Product `json:"products"`
	Page     int              `json:"page"`
	Pages    int              `json:"pages"`
	HasMore  bool             `json:"hasMore"`
}

// SearchProducts pages through the catalog, optionally filtered by a
// case-insensitive name keyword.
func (s *Service) SearchProducts(ctx context.Context, keyword string, page, pageSize int) (*ProductPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 6
	}

	q := s.DB.WithContext(ctx).Model(&models.Product{})
	if keyword != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(keyword)+"%")
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	var products []models.Product
	if err := q.Limit(pageSize).Offset(pageSize * (page - 1)).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	pages := int(math.Ceil(float64(count) / float64(pageSize)))
	return &ProductPage{
		Products: products,
		Page:     page,
		Pages:    pages,
		HasMore:  page < pages,
	}, nil
}

func (s *Service) AllProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := s.DB.WithContext(ctx).
		Order("created_at DESC").
		Limit(12).
		Find(&products).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return products, nil
}

func (s *Service) NewProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := s.DB.WithContext(ctx).
		Order("id DESC").
		Limit(5).
		Find(&products).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return products, nil
}

func (s *Service) TopProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := s.DB.WithContext(ctx).
		Order("rating DESC").
		Limit(4).
		Find(&products).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return products, nil
}

type Filter struct {
	Categories []uint    `json:"checked"`
	Brands     []string  `json:"brands"`
	PriceRange []float64 `json:"radio"`
}

// FilterProducts combines the optional category, brand and price-range
// filters with logical AND.
func (s *Service) FilterProducts(ctx context.Context, f Filter) ([]models.Product, error) {
	q := s.DB.WithContext(ctx).Model(&models.Product{})
	if len(f.Categories) > 0 {
		q = q.Where("category_id IN ?", f.Categories)
	}
	if len(f.Brands) > 0 {
		q = q.Where("brand IN ?", f.Brands)
	}
	if len(f.PriceRange) >= 2 {
		q = q.Where("price >= ? AND price <= ?", f.PriceRange[0], f.PriceRange[1])
	}

	var products []models.Product
	if err := q.Find(&products).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return products, nil
}

// AddReview appends one review per (product, user) and recomputes the
// product's mean rating and review count.
func (s *Service) AddReview(ctx context.Context, productID, userID uint, username string, rating int, comment string) error {
	if rating < 1 || rating > 5 {
		return fmt.Errorf("%w: rating must be between 1 and 5", ErrValidation)
	}
	if comment == "" {
		return fmt.Errorf("%w: comment is required", ErrValidation)
	}

	txErr := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var prod models.Product
		if err := tx.First(&prod, productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: product %d", ErrNotFound, productID)
			}
			return err
		}

		var existing int64
		if err := tx.Model(&models.Review{}).
			Where("product_id = ? AND user_id = ?", productID, userID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return fmt.Errorf("%w: product already reviewed", ErrAlreadyReviewed)
		}

		review := models.Review{
			ProductID: productID,
			UserID:    userID,
			Name:      username,
			Rating:    rating,
			Comment:   comment,
		}
		if err := tx.Create(&review).Error; err != nil {
			return err
		}

		var reviews []models.Review
		if err := tx.Where("product_id = ?", productID).Find(&reviews).Error; err != nil {
			return err
		}
		sum := 0
		for _, r := range reviews {
			sum += r.Rating
		}
		prod.NumReviews = len(reviews)
		prod.Rating = float64(sum) / float64(len(reviews))

		return tx.Model(&models.Product{}).
			Where("id = ?", productID).
			Updates(map[string]interface{}{
				"rating":      prod.Rating,
				"num_reviews": prod.NumReviews,
			}).Error
	})
	if txErr != nil {
		switch {
		case errors.Is(txErr, ErrNotFound), errors.Is(txErr, ErrAlreadyReviewed), errors.Is(txErr, ErrValidation):
			return txErr
		default:
			return fmt.Errorf("%w: %v", ErrInternal, txErr)
		}
	}
	return nil
}
