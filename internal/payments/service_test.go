package payments

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/avoronkov/laptopshop-backend/internal/delivery"
	"github.com/avoronkov/laptopshop-backend/pkg/config"
	"github.com/avoronkov/laptopshop-backend/pkg/db/models"
	"github.com/avoronkov/laptopshop-backend/pkg/enums"
	pkgerrors "github.com/avoronkov/laptopshop-backend/pkg/errors"
	"github.com/avoronkov/laptopshop-backend/pkg/logger"
)

type stubPaymentsRepo struct {
	nextID    int64
	byOrder   map[int64]*models.Payment
	creates   int
	createErr error
	// raceWinner is stored when Create fails, simulating the row a
	// concurrent request inserted first
	raceWinner *models.Payment
}

func newStubPaymentsRepo() *stubPaymentsRepo {
	return &stubPaymentsRepo{nextID: 1, byOrder: map[int64]*models.Payment{}}
}

func (s *stubPaymentsRepo) WithTx(tx *gorm.DB) PaymentsRepository { return s }

func (s *stubPaymentsRepo) Create(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	s.creates++
	if s.createErr != nil {
		if s.raceWinner != nil {
			s.byOrder[s.raceWinner.OrderID] = s.raceWinner
		}
		return nil, s.createErr
	}
	if payment.Status == "" {
		payment.Status = enums.PaymentStatusPending
	}
	payment.ID = s.nextID
	s.nextID++
	s.byOrder[payment.OrderID] = payment
	return payment, nil
}

func (s *stubPaymentsRepo) FindByOrderID(ctx context.Context, orderID int64) (*models.Payment, error) {
	payment, ok := s.byOrder[orderID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return payment, nil
}

func (s *stubPaymentsRepo) TransitionStatus(ctx context.Context, paymentID int64, from, to enums.PaymentStatus) (bool, error) {
	for _, payment := range s.byOrder {
		if payment.ID == paymentID && payment.Status == from {
			payment.Status = to
			return true, nil
		}
	}
	return false, nil
}

type stubOrderLoader struct {
	orders map[int64]*models.Order
}

func (s *stubOrderLoader) FindByID(ctx context.Context, orderID int64) (*models.Order, error) {
	order, ok := s.orders[orderID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return order, nil
}

type stubIdemStore struct {
	keys map[string]bool
}

func newStubIdemStore() *stubIdemStore { return &stubIdemStore{keys: map[string]bool{}} }

func (s *stubIdemStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if s.keys[key] {
		return false, nil
	}
	s.keys[key] = true
	return true, nil
}

func (s *stubIdemStore) IdempotencyKey(scope, id string) string { return scope + ":" + id }

func (s *stubIdemStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.keys, key)
	}
	return nil
}

type stubShipper struct {
	inputs []delivery.OrderInput
	err    error
}

func (s *stubShipper) CreateOrder(ctx context.Context, input delivery.OrderInput) (string, error) {
	s.inputs = append(s.inputs, input)
	if s.err != nil {
		return "", s.err
	}
	return "72753031-0001", nil
}

type paymentsFixture struct {
	repo    *stubPaymentsRepo
	orders  *stubOrderLoader
	store   *stubIdemStore
	shipper *stubShipper
	svc     Service
}

func newPaymentsFixture(t *testing.T) *paymentsFixture {
	t.Helper()

	owner := uuid.New()
	repo := newStubPaymentsRepo()
	orderRepo := &stubOrderLoader{orders: map[int64]*models.Order{
		3: {
			ID:              3,
			UserID:          &owner,
			BuyerName:       "Ivan Petrov",
			BuyerPhone:      "+79990001122",
			CityCode:        270,
			DeliveryAddress: "ул. Ленина, 1",
			Items: []models.OrderLineItem{
				{ProductID: 1, ProductName: "ProBook 15", BasePrice: 50000, ConfigurationName: "16 GB RAM / 512 GB SSD", AdditionalPrice: 4000, Quantity: 1},
			},
		},
	}}
	store := newStubIdemStore()
	guard, err := NewIdempotencyGuard(store, time.Hour, "tinkoff")
	require.NoError(t, err)

	shipper := &stubShipper{}
	svc, err := NewService(ServiceParams{
		Repo:      repo,
		OrderRepo: orderRepo,
		Guard:     guard,
		Shipments: shipper,
		Config:    config.TinkoffConfig{TerminalKey: "terminal-key", TerminalPassword: testTerminalPassword},
		Logger:    logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	require.NoError(t, err)

	return &paymentsFixture{repo: repo, orders: orderRepo, store: store, shipper: shipper, svc: svc}
}

func (f *paymentsFixture) ownerID() uuid.UUID { return *f.orders.orders[3].UserID }

// signedNotification builds a notification and signs it with the terminal
// password, after applying field overrides.
func signedNotification(t *testing.T, overrides map[string]any) *Notification {
	t.Helper()

	base := map[string]any{
		"TerminalKey": "terminal-key",
		"OrderId":     "3",
		"Success":     true,
		"Status":      "CONFIRMED",
		"PaymentId":   12345,
		"Amount":      5400000,
	}
	for key, value := range overrides {
		if value == nil {
			delete(base, key)
			continue
		}
		base[key] = value
	}

	body, err := json.Marshal(base)
	require.NoError(t, err)
	notification, err := ParseNotification(body)
	require.NoError(t, err)
	notification.fields["Token"] = computeToken(notification.fields, testTerminalPassword)
	return notification
}

func TestGetOrCreateCreatesPendingOnce(t *testing.T) {
	f := newPaymentsFixture(t)

	dto, err := f.svc.GetOrCreateByOrderID(context.Background(), 3, f.ownerID())
	require.NoError(t, err)
	require.Equal(t, enums.PaymentStatusPending, dto.Status)
	require.Equal(t, 54000, dto.Amount)

	again, err := f.svc.GetOrCreateByOrderID(context.Background(), 3, f.ownerID())
	require.NoError(t, err)
	require.Equal(t, dto.ID, again.ID)
	require.Equal(t, 1, f.repo.creates)
}

func TestGetOrCreateMasksForeignOrder(t *testing.T) {
	f := newPaymentsFixture(t)

	_, err := f.svc.GetOrCreateByOrderID(context.Background(), 3, uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	require.Zero(t, f.repo.creates)
}

func TestHandleWebhookConfirmsPendingPayment(t *testing.T) {
	f := newPaymentsFixture(t)
	_, err := f.svc.GetOrCreateByOrderID(context.Background(), 3, f.ownerID())
	require.NoError(t, err)

	err = f.svc.HandleWebhook(context.Background(), signedNotification(t, nil))
	require.NoError(t, err)
	require.Equal(t, enums.PaymentStatusSuccess, f.repo.byOrder[3].Status)
}

func TestHandleWebhookRejectsBadToken(t *testing.T) {
	f := newPaymentsFixture(t)

	notification := signedNotification(t, nil)
	notification.fields["Token"] = "deadbeef"

	err := f.svc.HandleWebhook(context.Background(), notification)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	// dedup key is never claimed for unauthenticated payloads
	require.Empty(t, f.store.keys)
}

func TestHandleWebhookUnsuccessfulFlag(t *testing.T) {
	f := newPaymentsFixture(t)
	_, err := f.svc.GetOrCreateByOrderID(context.Background(), 3, f.ownerID())
	require.NoError(t, err)

	err = f.svc.HandleWebhook(context.Background(), signedNotification(t, map[string]any{"Success": false}))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnprocessable))
	require.Equal(t, enums.PaymentStatusPending, f.repo.byOrder[3].Status)
	// failed handling releases the dedup key for the gateway's retry
	require.Empty(t, f.store.keys)
}

func TestHandleWebhookUnparsableOrderID(t *testing.T) {
	f := newPaymentsFixture(t)

	err := f.svc.HandleWebhook(context.Background(), signedNotification(t, map[string]any{"OrderId": "laptop"}))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestHandleWebhookUnknownPayment(t *testing.T) {
	f := newPaymentsFixture(t)

	err := f.svc.HandleWebhook(context.Background(), signedNotification(t, nil))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestHandleWebhookAmountMismatch(t *testing.T) {
	f := newPaymentsFixture(t)
	_, err := f.svc.GetOrCreateByOrderID(context.Background(), 3, f.ownerID())
	require.NoError(t, err)

	err = f.svc.HandleWebhook(context.Background(), signedNotification(t, map[string]any{"Amount": 9999}))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	require.Equal(t, enums.PaymentStatusPending, f.repo.byOrder[3].Status)
}

func TestHandleWebhookReplayIsNoOp(t *testing.T) {
	f := newPaymentsFixture(t)
	_, err := f.svc.GetOrCreateByOrderID(context.Background(), 3, f.ownerID())
	require.NoError(t, err)
	f.repo.byOrder[3].Status = enums.PaymentStatusSuccess

	// fresh PaymentId so the dedup guard does not short-circuit the replay
	err = f.svc.HandleWebhook(context.Background(), signedNotification(t, map[string]any{"PaymentId": 99999}))
	require.NoError(t, err)
	require.Equal(t, enums.PaymentStatusSuccess, f.repo.byOrder[3].Status)
}

func TestHandleWebhookFailedPaymentConflicts(t *testing.T) {
	f := newPaymentsFixture(t)
	_, err := f.svc.GetOrCreateByOrderID(context.Background(), 3, f.ownerID())
	require.NoError(t, err)
	f.repo.byOrder[3].Status = enums.PaymentStatusFailed

	err = f.svc.HandleWebhook(context.Background(), signedNotification(t, nil))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestHandleWebhookDeduplicatesByPaymentID(t *testing.T) {
	f := newPaymentsFixture(t)
	_, err := f.svc.GetOrCreateByOrderID(context.Background(), 3, f.ownerID())
	require.NoError(t, err)

	require.NoError(t, f.svc.HandleWebhook(context.Background(), signedNotification(t, nil)))

	// the duplicate never reaches reconciliation, even though a second
	// pending transition would conflict
	require.NoError(t, f.svc.HandleWebhook(context.Background(), signedNotification(t, nil)))
}

func TestWebhookConfirmedRegistersShipment(t *testing.T) {
	f := newPaymentsFixture(t)
	_, err := f.svc.GetOrCreateByOrderID(context.Background(), 3, f.ownerID())
	require.NoError(t, err)

	err = f.svc.HandleWebhook(context.Background(), signedNotification(t, nil))
	require.NoError(t, err)

	require.Len(t, f.shipper.inputs, 1)
	input := f.shipper.inputs[0]
	require.Equal(t, int64(3), input.OrderID)
	require.Equal(t, 270, input.CityCode)
	require.Equal(t, "ул. Ленина, 1", input.Address)
	require.Equal(t, "Ivan Petrov", input.RecipientName)
	require.Len(t, input.Items, 1)
	require.Equal(t, "ProBook 15 (16 GB RAM / 512 GB SSD)", input.Items[0].Name)
	require.Equal(t, int64(1), input.Items[0].WareKey)
	require.Equal(t, 54000, input.Items[0].Cost)
	require.Equal(t, 1, input.Items[0].Amount)
}

func TestWebhookAuthorizedDoesNotShipYet(t *testing.T) {
	f := newPaymentsFixture(t)
	_, err := f.svc.GetOrCreateByOrderID(context.Background(), 3, f.ownerID())
	require.NoError(t, err)

	// money is only held at AUTHORIZED, the package stays in the warehouse
	err = f.svc.HandleWebhook(context.Background(), signedNotification(t, map[string]any{"Status": "AUTHORIZED"}))
	require.NoError(t, err)
	require.Equal(t, enums.PaymentStatusSuccess, f.repo.byOrder[3].Status)
	require.Empty(t, f.shipper.inputs)
}

func TestWebhookCarrierFailureStillAcknowledged(t *testing.T) {
	f := newPaymentsFixture(t)
	_, err := f.svc.GetOrCreateByOrderID(context.Background(), 3, f.ownerID())
	require.NoError(t, err)

	f.shipper.err = pkgerrors.New(pkgerrors.CodeDependency, "carrier down")
	err = f.svc.HandleWebhook(context.Background(), signedNotification(t, nil))
	require.NoError(t, err)
	require.Equal(t, enums.PaymentStatusSuccess, f.repo.byOrder[3].Status)
}

func TestGetOrCreateRecoversFromConcurrentCreate(t *testing.T) {
	f := newPaymentsFixture(t)

	// the insert loses the race, the winner's pending row must be picked up
	f.repo.raceWinner = &models.Payment{ID: 9, OrderID: 3, Status: enums.PaymentStatusPending}
	f.repo.createErr = errors.New(`duplicate key value violates unique constraint "payments_order_id_key"`)

	dto, err := f.svc.GetOrCreateByOrderID(context.Background(), 3, f.ownerID())
	require.NoError(t, err)
	require.Equal(t, int64(9), dto.ID)
	require.Equal(t, enums.PaymentStatusPending, dto.Status)
	require.Equal(t, 1, f.repo.creates)
}
