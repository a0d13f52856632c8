package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avoronkov/laptopshop-backend/internal/catalog"
	pkgerrors "github.com/avoronkov/laptopshop-backend/pkg/errors"
	"github.com/avoronkov/laptopshop-backend/pkg/metrics"
)

// Line is one priced cart row. LineTotal is (base + additional) * quantity.
type Line struct {
	ProductID         int64  `json:"product_id"`
	ProductName       string `json:"product_name"`
	BasePrice         int    `json:"base_price"`
	ConfigurationID   int64  `json:"configuration_id"`
	ConfigurationName string `json:"configuration_name"`
	AdditionalPrice   int    `json:"additional_price"`
	Quantity          int    `json:"quantity"`
	LineTotal         int    `json:"line_total"`
}

// View is a priced cart snapshot.
type View struct {
	Items []Line `json:"items"`
	Total int    `json:"total"`
}

// Service exposes cart operations for authenticated users plus pricing of
// anonymous cookie carts.
type Service interface {
	Add(ctx context.Context, userID uuid.UUID, productID, configurationID int64) error
	Remove(ctx context.Context, userID uuid.UUID, productID, configurationID int64) error
	List(ctx context.Context, userID uuid.UUID) (*View, error)
	Get(ctx context.Context, userID uuid.UUID, productID int64) (*Line, error)
	Clear(ctx context.Context, userID uuid.UUID) error
	PriceCookieCart(ctx context.Context, cookie CookieCart) (*View, error)
}

type service struct {
	repo    CartRepository
	catalog catalog.Service
	metrics *metrics.StoreMetrics
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo CartRepository, catalogSvc catalog.Service, store *metrics.StoreMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if catalogSvc == nil {
		return nil, fmt.Errorf("catalog service required")
	}
	return &service{repo: repo, catalog: catalogSvc, metrics: store}, nil
}

// Add puts one unit of (product, configuration) into the user's cart. The
// configuration must be sellable with the product.
func (s *service) Add(ctx context.Context, userID uuid.UUID, productID, configurationID int64) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if _, err := s.catalog.VariantForProduct(ctx, productID, configurationID); err != nil {
		return err
	}
	if err := s.repo.IncrementEntry(ctx, userID, productID, configurationID, 1); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add cart entry")
	}
	s.metrics.IncCartMutation("add")
	return nil
}

// Remove takes one unit out of the user's cart. Removing a line that is not
// in the cart reports NOT_FOUND.
func (s *service) Remove(ctx context.Context, userID uuid.UUID, productID, configurationID int64) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if productID <= 0 || configurationID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id and configuration id are required")
	}
	found, err := s.repo.DecrementOrDeleteEntry(ctx, userID, productID, configurationID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove cart entry")
	}
	if !found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart entry not found")
	}
	s.metrics.IncCartMutation("remove")
	return nil
}

// List prices the user's persisted cart.
func (s *service) List(ctx context.Context, userID uuid.UUID) (*View, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	entries, err := s.repo.ListEntries(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list cart entries")
	}

	view := &View{Items: make([]Line, 0, len(entries))}
	for _, entry := range entries {
		if entry.Product == nil || entry.Configuration == nil {
			// catalog row vanished under the entry, skip rather than fail the cart
			continue
		}
		line := Line{
			ProductID:         entry.ProductID,
			ProductName:       entry.Product.Name,
			BasePrice:         entry.Product.Price,
			ConfigurationID:   entry.ConfigurationID,
			ConfigurationName: entry.Configuration.DisplayName(),
			AdditionalPrice:   entry.Configuration.AdditionalPrice,
			Quantity:          entry.Quantity,
		}
		line.LineTotal = (line.BasePrice + line.AdditionalPrice) * line.Quantity
		view.Items = append(view.Items, line)
		view.Total += line.LineTotal
	}
	return view, nil
}

// Get loads the user's cart line for a product, or NOT_FOUND.
func (s *service) Get(ctx context.Context, userID uuid.UUID, productID int64) (*Line, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if productID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	entry, err := s.repo.GetEntryByProduct(ctx, userID, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart entry not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart entry")
	}
	line := Line{
		ProductID:       entry.ProductID,
		ConfigurationID: entry.ConfigurationID,
		Quantity:        entry.Quantity,
	}
	if entry.Product != nil {
		line.ProductName = entry.Product.Name
		line.BasePrice = entry.Product.Price
	}
	if entry.Configuration != nil {
		line.ConfigurationName = entry.Configuration.DisplayName()
		line.AdditionalPrice = entry.Configuration.AdditionalPrice
	}
	line.LineTotal = (line.BasePrice + line.AdditionalPrice) * line.Quantity
	return &line, nil
}

// Clear drops the user's whole cart.
func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if err := s.repo.ClearEntries(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
	}
	s.metrics.IncCartMutation("clear")
	return nil
}

// PriceCookieCart resolves an anonymous cookie cart against the live catalog.
// Lines whose product or configuration no longer exists are skipped.
func (s *service) PriceCookieCart(ctx context.Context, cookie CookieCart) (*View, error) {
	compacted := cookie.compact()
	view := &View{Items: make([]Line, 0, len(compacted.ProductList))}

	for _, item := range compacted.ProductList {
		product, err := s.catalog.GetProduct(ctx, item.ProductID)
		if err != nil {
			if isSkippable(err) {
				continue
			}
			return nil, err
		}
		variant, err := s.catalog.VariantForProduct(ctx, item.ProductID, item.ConfigurationID)
		if err != nil {
			if isSkippable(err) {
				continue
			}
			return nil, err
		}

		line := Line{
			ProductID:         product.ID,
			ProductName:       product.Name,
			BasePrice:         product.Price,
			ConfigurationID:   variant.ID,
			ConfigurationName: variant.DisplayName(),
			AdditionalPrice:   variant.AdditionalPrice,
			Quantity:          item.Count,
		}
		line.LineTotal = (line.BasePrice + line.AdditionalPrice) * line.Quantity
		view.Items = append(view.Items, line)
		view.Total += line.LineTotal
	}
	return view, nil
}

func isSkippable(err error) bool {
	return pkgerrors.IsCode(err, pkgerrors.CodeNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}
