package catalog

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/avoronkov/laptopshop-backend/pkg/db/models"
	pkgerrors "github.com/avoronkov/laptopshop-backend/pkg/errors"
)

// ConfigurationOption is one selectable tier for a product, priced as a delta
// on top of the product's base price.
type ConfigurationOption struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	RAMAmount       int    `json:"ram_amount"`
	SSDAmount       int    `json:"ssd_amount"`
	AdditionalPrice int    `json:"additional_price"`
	IsDefault       bool   `json:"is_default"`
}

// Service exposes read operations over the product catalog.
type Service interface {
	GetProduct(ctx context.Context, productID int64) (*models.Product, error)
	ConfigurationsForProduct(ctx context.Context, productID int64) ([]ConfigurationOption, error)
	DefaultConfiguration(ctx context.Context, productID int64) (*models.ConfigurationVariant, error)
	VariantByID(ctx context.Context, variantID int64) (*models.ConfigurationVariant, error)
	VariantForProduct(ctx context.Context, productID, variantID int64) (*models.ConfigurationVariant, error)
}

type service struct {
	repo CatalogRepository
}

// NewService builds a catalog service backed by the provided repository.
func NewService(repo CatalogRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

// GetProduct loads a product or reports NOT_FOUND.
func (s *service) GetProduct(ctx context.Context, productID int64) (*models.Product, error) {
	if productID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	return product, nil
}

// ConfigurationsForProduct lists tiers sellable with the product, sorted by
// ascending additional price. The product must exist; a product with no
// variants yields an empty list.
func (s *service) ConfigurationsForProduct(ctx context.Context, productID int64) ([]ConfigurationOption, error) {
	if _, err := s.GetProduct(ctx, productID); err != nil {
		return nil, err
	}

	variants, err := s.repo.ListVariantsForProduct(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list configurations")
	}

	options := make([]ConfigurationOption, 0, len(variants))
	for _, v := range variants {
		options = append(options, ConfigurationOption{
			ID:              v.ID,
			Name:            v.DisplayName(),
			RAMAmount:       v.RAMAmount,
			SSDAmount:       v.SSDAmount,
			AdditionalPrice: v.AdditionalPrice,
			IsDefault:       v.IsDefault,
		})
	}
	return options, nil
}

// DefaultConfiguration returns the product's default tier, or nil when the
// product has no default. Callers decide whether a missing default is an error.
func (s *service) DefaultConfiguration(ctx context.Context, productID int64) (*models.ConfigurationVariant, error) {
	if productID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	variant, err := s.repo.GetDefaultVariantForProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load default configuration")
	}
	return variant, nil
}

// VariantByID loads a variant or reports NOT_FOUND.
func (s *service) VariantByID(ctx context.Context, variantID int64) (*models.ConfigurationVariant, error) {
	if variantID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "configuration id is required")
	}
	variant, err := s.repo.GetVariant(ctx, variantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "configuration not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load configuration")
	}
	return variant, nil
}

// VariantForProduct loads a variant and confirms it is sellable with the
// product. A variant that exists but is not offered for the product reports
// NOT_FOUND, same as a missing one.
func (s *service) VariantForProduct(ctx context.Context, productID, variantID int64) (*models.ConfigurationVariant, error) {
	if productID <= 0 || variantID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id and configuration id are required")
	}
	variant, err := s.repo.GetVariantForProduct(ctx, productID, variantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "configuration not available for product")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load configuration")
	}
	return variant, nil
}
