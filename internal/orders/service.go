package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avoronkov/laptopshop-backend/internal/cart"
	"github.com/avoronkov/laptopshop-backend/internal/catalog"
	"github.com/avoronkov/laptopshop-backend/pkg/db/models"
	"github.com/avoronkov/laptopshop-backend/pkg/enums"
	pkgerrors "github.com/avoronkov/laptopshop-backend/pkg/errors"
	"github.com/avoronkov/laptopshop-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// trackingLookup resolves the carrier-assigned tracking number for an order.
// The delivery client satisfies this.
type trackingLookup interface {
	OrderNumber(ctx context.Context, orderID int64) (string, error)
}

// DeliveryDetails carries the buyer-facing metadata attached to an order.
type DeliveryDetails struct {
	Comment    string
	BuyerName  string
	BuyerPhone string
	RegionCode int
	RegionName string
	CityCode   int
	CityName   string
	Address    string
}

// UpdateInput lists the mutable order fields. Nil means "leave unchanged".
type UpdateInput struct {
	Comment        *string
	BuyerName      *string
	BuyerPhone     *string
	RegionCode     *int
	RegionName     *string
	CityCode       *int
	CityName       *string
	Address        *string
	TrackingNumber *string
}

// Service assembles orders from carts and manages their lifecycle.
type Service interface {
	CreateFromCart(ctx context.Context, userID uuid.UUID, details DeliveryDetails) (*models.Order, error)
	CreateFromCookieCart(ctx context.Context, cookie cart.CookieCart, details DeliveryDetails) (*CookieOrder, error)
	PersistCookieOrder(ctx context.Context, userID uuid.UUID, cookieOrder CookieOrder) (*models.Order, error)
	GetByID(ctx context.Context, orderID int64, userID uuid.UUID) (*models.Order, error)
	ListUserOrders(ctx context.Context, userID uuid.UUID, statusFilter *enums.PaymentStatus) ([]models.Order, error)
	Update(ctx context.Context, orderID int64, userID uuid.UUID, input UpdateInput) (*models.Order, error)
	Remove(ctx context.Context, orderID int64, userID uuid.UUID) error
}

type service struct {
	repo     Repository
	cartRepo cart.CartRepository
	catalog  catalog.Service
	tx       txRunner
	tracking trackingLookup
	metrics  *metrics.StoreMetrics
	now      func() time.Time
}

// NewService builds an orders service backed by the provided stack. The
// tracking lookup may be nil; orders are then served with whatever tracking
// number is already stored.
func NewService(repo Repository, cartRepo cart.CartRepository, catalogSvc catalog.Service, tx txRunner, tracking trackingLookup, store *metrics.StoreMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if catalogSvc == nil {
		return nil, fmt.Errorf("catalog service required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:     repo,
		cartRepo: cartRepo,
		catalog:  catalogSvc,
		tx:       tx,
		tracking: tracking,
		metrics:  store,
		now:      time.Now,
	}, nil
}

// CreateFromCart snapshots the user's persisted cart into an order. Order,
// line items and the cart wipe commit in one transaction so a retried
// checkout cannot duplicate the purchase.
func (s *service) CreateFromCart(ctx context.Context, userID uuid.UUID, details DeliveryDetails) (*models.Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}

	var created *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.cartRepo.WithTx(tx)
		entries, err := cartRepo.ListEntries(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
		}

		items := snapshotEntries(entries)
		if len(items) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}

		order := s.newOrder(&userID, s.now().UTC(), details, items)
		if _, err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
		}
		if err := cartRepo.ClearEntries(ctx, userID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
		}
		created = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncOrderCreated("cart")
	return created, nil
}

// CreateFromCookieCart validates an anonymous cart against the live catalog
// and returns the guest order payload. Nothing is persisted; the payload
// lives in the order cookie until the visitor registers.
func (s *service) CreateFromCookieCart(ctx context.Context, cookie cart.CookieCart, details DeliveryDetails) (*CookieOrder, error) {
	var lines []CookieOrderItem
	sum := 0
	for _, item := range cookie.ProductList {
		if item.Count <= 0 {
			continue
		}
		product, err := s.catalog.GetProduct(ctx, item.ProductID)
		if err != nil {
			return nil, err
		}
		variant, err := s.catalog.VariantForProduct(ctx, item.ProductID, item.ConfigurationID)
		if err != nil {
			return nil, err
		}
		lines = append(lines, CookieOrderItem{
			ProductID:         product.ID,
			ProductName:       product.Name,
			ConfigurationID:   variant.ID,
			ConfigurationName: variant.DisplayName(),
			Count:             item.Count,
		})
		sum += (product.Price + variant.AdditionalPrice) * item.Count
	}
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	s.metrics.IncOrderCreated("guest")
	return &CookieOrder{
		Date:       s.now().UTC(),
		Sum:        sum,
		Comment:    details.Comment,
		BuyerName:  details.BuyerName,
		BuyerPhone: details.BuyerPhone,
		DeliveryAddress: CookieAddress{
			RegionCode: details.RegionCode,
			Region:     details.RegionName,
			CityCode:   details.CityCode,
			City:       details.CityName,
			Address:    details.Address,
		},
		Products: lines,
	}, nil
}

// PersistCookieOrder turns a guest cookie order into a persisted order for a
// freshly authenticated user. Prices are re-derived from the live catalog;
// the cookie's display sum and names are never trusted.
func (s *service) PersistCookieOrder(ctx context.Context, userID uuid.UUID, cookieOrder CookieOrder) (*models.Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}

	var items []models.OrderLineItem
	for _, line := range cookieOrder.Products {
		if line.Count <= 0 {
			continue
		}
		product, err := s.catalog.GetProduct(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}
		variant, err := s.catalog.VariantForProduct(ctx, line.ProductID, line.ConfigurationID)
		if err != nil {
			return nil, err
		}
		items = append(items, models.OrderLineItem{
			ProductID:         product.ID,
			ProductName:       product.Name,
			BasePrice:         product.Price,
			ConfigurationID:   variant.ID,
			ConfigurationName: variant.DisplayName(),
			AdditionalPrice:   variant.AdditionalPrice,
			Quantity:          line.Count,
		})
	}
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order cookie holds no purchasable lines")
	}

	date := cookieOrder.Date
	if date.IsZero() {
		date = s.now().UTC()
	}
	order := s.newOrder(&userID, date, DeliveryDetails{
		Comment:    cookieOrder.Comment,
		BuyerName:  cookieOrder.BuyerName,
		BuyerPhone: cookieOrder.BuyerPhone,
		RegionCode: cookieOrder.DeliveryAddress.RegionCode,
		RegionName: cookieOrder.DeliveryAddress.Region,
		CityCode:   cookieOrder.DeliveryAddress.CityCode,
		CityName:   cookieOrder.DeliveryAddress.City,
		Address:    cookieOrder.DeliveryAddress.Address,
	}, items)

	if _, err := s.repo.Create(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist guest order")
	}
	s.metrics.IncOrderCreated("cookie_claim")
	return order, nil
}

// GetByID loads an order owned by the user. Orders owned by someone else, or
// by nobody, report the same NOT_FOUND as a missing order.
func (s *service) GetByID(ctx context.Context, orderID int64, userID uuid.UUID) (*models.Order, error) {
	order, err := s.loadOwned(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}
	s.fillTrackingNumber(ctx, order)
	return order, nil
}

// fillTrackingNumber asks the carrier for the tracking number of an order
// that does not have one yet, and stores it once assigned. The lookup is best
// effort: the carrier assigns numbers asynchronously, so a miss just means
// the order is served without one for now.
func (s *service) fillTrackingNumber(ctx context.Context, order *models.Order) {
	if s.tracking == nil || order.TrackingNumber != "" {
		return
	}
	number, err := s.tracking.OrderNumber(ctx, order.ID)
	if err != nil || number == "" {
		return
	}
	order.TrackingNumber = number
	if _, err := s.repo.Save(ctx, order); err != nil {
		order.TrackingNumber = ""
	}
}

// ListUserOrders returns the user's orders, newest first. A non-nil status
// filter keeps only orders whose payment is in that state; an order with no
// payment row yet counts as pending.
func (s *service) ListUserOrders(ctx context.Context, userID uuid.UUID, statusFilter *enums.PaymentStatus) ([]models.Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if statusFilter != nil && !statusFilter.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment status %q", *statusFilter))
	}
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	if statusFilter == nil {
		return rows, nil
	}
	filtered := make([]models.Order, 0, len(rows))
	for _, row := range rows {
		status := enums.PaymentStatusPending
		if row.Payment != nil {
			status = row.Payment.Status
		}
		if status == *statusFilter {
			filtered = append(filtered, row)
		}
	}
	return filtered, nil
}

// Update edits an order's metadata. An ownerless order is adopted by the
// caller; an order owned by someone else reports NOT_FOUND. Line items are
// immutable and can never change here.
func (s *service) Update(ctx context.Context, orderID int64, userID uuid.UUID, input UpdateInput) (*models.Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if orderID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	if order.UserID != nil && *order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if order.UserID == nil {
		owner := userID
		order.UserID = &owner
	}

	applyUpdate(order, input)
	if _, err := s.repo.Save(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order")
	}
	return order, nil
}

// Remove deletes an order owned by the user, cascading its line items and
// payment. Same NOT_FOUND masking as reads.
func (s *service) Remove(ctx context.Context, orderID int64, userID uuid.UUID) error {
	order, err := s.loadOwned(ctx, orderID, userID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, order.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete order")
	}
	return nil
}

func (s *service) loadOwned(ctx context.Context, orderID int64, userID uuid.UUID) (*models.Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if orderID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	if order.UserID == nil || *order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) newOrder(userID *uuid.UUID, date time.Time, details DeliveryDetails, items []models.OrderLineItem) *models.Order {
	return &models.Order{
		UserID:          userID,
		Date:            date,
		Comment:         details.Comment,
		BuyerName:       details.BuyerName,
		BuyerPhone:      details.BuyerPhone,
		RegionCode:      details.RegionCode,
		RegionName:      details.RegionName,
		CityCode:        details.CityCode,
		CityName:        details.CityName,
		DeliveryAddress: details.Address,
		Items:           items,
	}
}

func snapshotEntries(entries []models.CartEntry) []models.OrderLineItem {
	items := make([]models.OrderLineItem, 0, len(entries))
	for _, entry := range entries {
		if entry.Product == nil || entry.Configuration == nil || entry.Quantity <= 0 {
			continue
		}
		items = append(items, models.OrderLineItem{
			ProductID:         entry.ProductID,
			ProductName:       entry.Product.Name,
			BasePrice:         entry.Product.Price,
			ConfigurationID:   entry.ConfigurationID,
			ConfigurationName: entry.Configuration.DisplayName(),
			AdditionalPrice:   entry.Configuration.AdditionalPrice,
			Quantity:          entry.Quantity,
		})
	}
	return items
}

func applyUpdate(order *models.Order, input UpdateInput) {
	if input.Comment != nil {
		order.Comment = *input.Comment
	}
	if input.BuyerName != nil {
		order.BuyerName = *input.BuyerName
	}
	if input.BuyerPhone != nil {
		order.BuyerPhone = *input.BuyerPhone
	}
	if input.RegionCode != nil {
		order.RegionCode = *input.RegionCode
	}
	if input.RegionName != nil {
		order.RegionName = *input.RegionName
	}
	if input.CityCode != nil {
		order.CityCode = *input.CityCode
	}
	if input.CityName != nil {
		order.CityName = *input.CityName
	}
	if input.Address != nil {
		order.DeliveryAddress = *input.Address
	}
	if input.TrackingNumber != nil {
		order.TrackingNumber = *input.TrackingNumber
	}
}
