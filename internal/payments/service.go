package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avoronkov/laptopshop-backend/internal/delivery"
	"github.com/avoronkov/laptopshop-backend/internal/orders"
	"github.com/avoronkov/laptopshop-backend/pkg/config"
	"github.com/avoronkov/laptopshop-backend/pkg/db"
	"github.com/avoronkov/laptopshop-backend/pkg/db/models"
	"github.com/avoronkov/laptopshop-backend/pkg/enums"
	pkgerrors "github.com/avoronkov/laptopshop-backend/pkg/errors"
	"github.com/avoronkov/laptopshop-backend/pkg/logger"
	"github.com/avoronkov/laptopshop-backend/pkg/metrics"
)

type orderLoader interface {
	FindByID(ctx context.Context, orderID int64) (*models.Order, error)
}

// shipmentRegistrar registers a paid order with the carrier. The delivery
// client satisfies this.
type shipmentRegistrar interface {
	CreateOrder(ctx context.Context, input delivery.OrderInput) (string, error)
}

// PaymentDTO is the payment surface returned to buyers. Amount is recomputed
// from the order's line items on every read, never stored.
type PaymentDTO struct {
	ID      int64               `json:"id"`
	OrderID int64               `json:"order_id"`
	Status  enums.PaymentStatus `json:"status"`
	Amount  int                 `json:"amount"`
}

// Service reconciles gateway notifications against orders and tracks payment
// lifecycle.
type Service interface {
	GetOrCreateByOrderID(ctx context.Context, orderID int64, userID uuid.UUID) (*PaymentDTO, error)
	HandleWebhook(ctx context.Context, notification *Notification) error
}

// ServiceParams collects the payments service dependencies.
type ServiceParams struct {
	Repo      PaymentsRepository
	OrderRepo orderLoader
	Guard     *IdempotencyGuard
	Shipments shipmentRegistrar
	Config    config.TinkoffConfig
	Logger    *logger.Logger
	Metrics   *metrics.StoreMetrics
}

type service struct {
	repo      PaymentsRepository
	orders    orderLoader
	guard     *IdempotencyGuard
	shipments shipmentRegistrar
	cfg       config.TinkoffConfig
	logg      *logger.Logger
	metrics   *metrics.StoreMetrics
}

// NewService builds a payments service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if params.OrderRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Guard == nil {
		return nil, fmt.Errorf("idempotency guard required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Config.TerminalPassword == "" {
		return nil, fmt.Errorf("terminal password required")
	}
	return &service{
		repo:      params.Repo,
		orders:    params.OrderRepo,
		guard:     params.Guard,
		shipments: params.Shipments,
		cfg:       params.Config,
		logg:      params.Logger,
		metrics:   params.Metrics,
	}, nil
}

// GetOrCreateByOrderID returns the order's payment, creating a pending row on
// first use. Orders not owned by the caller report NOT_FOUND.
func (s *service) GetOrCreateByOrderID(ctx context.Context, orderID int64, userID uuid.UUID) (*PaymentDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if orderID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	order, err := s.loadOwnedOrder(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}

	payment, err := s.repo.FindByOrderID(ctx, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		payment, err = s.repo.Create(ctx, &models.Payment{OrderID: orderID})
		if err != nil && db.IsUniqueViolation(err, "") {
			// a concurrent request created the row first, use theirs
			payment, err = s.repo.FindByOrderID(ctx, orderID)
		}
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payment")
	}

	return &PaymentDTO{
		ID:      payment.ID,
		OrderID: payment.OrderID,
		Status:  payment.Status,
		Amount:  orders.Sum(order.Items),
	}, nil
}

// HandleWebhook reconciles one gateway notification. Checks run strictly in
// order: signature, duplicate guard, success flag, order resolution, amount,
// then the conditional pending to success transition. A replay against an
// already successful payment is a clean no-op; a failed payment rejects.
func (s *service) HandleWebhook(ctx context.Context, notification *Notification) error {
	if notification == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "webhook payload required")
	}

	if !notification.VerifyToken(s.cfg.TerminalPassword) {
		s.metrics.IncWebhookResult("bad_token")
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid webhook token")
	}

	paymentKey := notification.PaymentID()
	marked := false
	if paymentKey != "" {
		duplicate, err := s.guard.CheckAndMark(ctx, paymentKey)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "webhook dedup check")
		}
		if duplicate {
			s.metrics.IncWebhookResult("duplicate")
			s.logg.Info(s.logg.WithField(ctx, "gateway_payment_id", paymentKey), "duplicate webhook skipped")
			return nil
		}
		marked = true
	}

	err := s.reconcile(ctx, notification)
	if err != nil && marked {
		if delErr := s.guard.Delete(ctx, paymentKey); delErr != nil {
			s.logg.Error(ctx, "releasing webhook dedup key", delErr)
		}
	}
	return err
}

func (s *service) reconcile(ctx context.Context, notification *Notification) error {
	if !notification.Success() {
		s.metrics.IncWebhookResult("unsuccessful")
		return pkgerrors.New(pkgerrors.CodeUnprocessable, "gateway reported failure")
	}

	orderID, err := notification.OrderID()
	if err != nil {
		s.metrics.IncWebhookResult("bad_order_id")
		return err
	}
	ctx = s.logg.WithOrderID(ctx, orderID)

	payment, err := s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.metrics.IncWebhookResult("unknown_payment")
			return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payment")
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.metrics.IncWebhookResult("unknown_payment")
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}

	amount, ok := notification.Amount()
	// the gateway reports minor units, the order sum is in major units
	if !ok || int64(orders.Sum(order.Items))*100 != amount {
		s.metrics.IncWebhookResult("amount_mismatch")
		return pkgerrors.New(pkgerrors.CodeValidation, "webhook amount does not match order sum")
	}

	transitioned, err := s.repo.TransitionStatus(ctx, payment.ID, enums.PaymentStatusPending, enums.PaymentStatusSuccess)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "transition payment status")
	}
	if !transitioned {
		current, err := s.repo.FindByOrderID(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload payment")
		}
		if current.Status == enums.PaymentStatusSuccess {
			// replayed confirmation of a settled payment
			s.metrics.IncWebhookResult("replayed")
			return nil
		}
		s.metrics.IncWebhookResult("state_conflict")
		return pkgerrors.New(pkgerrors.CodeStateConflict, "payment is not pending")
	}

	s.metrics.IncWebhookResult("success")
	s.logg.Info(ctx, "payment confirmed")

	// the gateway notifies on AUTHORIZED as well, the shipment only goes out
	// once the money is actually captured
	if notification.Status() == enums.GatewayStatusConfirmed {
		s.registerShipment(ctx, order)
	}
	return nil
}

// registerShipment hands a paid order over to the carrier. Failures are
// logged, never returned: the payment is already settled and the webhook must
// still be acknowledged.
func (s *service) registerShipment(ctx context.Context, order *models.Order) {
	if s.shipments == nil {
		return
	}
	if order.CityCode <= 0 {
		s.logg.Info(ctx, "order has no carrier city code, skipping shipment registration")
		return
	}

	items := make([]delivery.OrderItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, delivery.OrderItem{
			Name:    fmt.Sprintf("%s (%s)", item.ProductName, item.ConfigurationName),
			WareKey: item.ProductID,
			Cost:    item.BasePrice + item.AdditionalPrice,
			Amount:  item.Quantity,
		})
	}

	shipmentID, err := s.shipments.CreateOrder(ctx, delivery.OrderInput{
		OrderID:        order.ID,
		CityCode:       order.CityCode,
		Address:        order.DeliveryAddress,
		RecipientName:  order.BuyerName,
		RecipientPhone: order.BuyerPhone,
		Items:          items,
	})
	if err != nil {
		s.logg.Error(ctx, "registering shipment with carrier", err)
		return
	}
	s.logg.Info(s.logg.WithField(ctx, "shipment_id", shipmentID), "shipment registered")
}

func (s *service) loadOwnedOrder(ctx context.Context, orderID int64, userID uuid.UUID) (*models.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
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
