package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/avoronkov/laptopshop-backend/internal/cart"
	"github.com/avoronkov/laptopshop-backend/internal/catalog"
	"github.com/avoronkov/laptopshop-backend/pkg/db/models"
	"github.com/avoronkov/laptopshop-backend/pkg/enums"
	pkgerrors "github.com/avoronkov/laptopshop-backend/pkg/errors"
)

type stubOrdersRepo struct {
	nextID int64
	orders map[int64]*models.Order
}

func newStubOrdersRepo() *stubOrdersRepo {
	return &stubOrdersRepo{nextID: 1, orders: map[int64]*models.Order{}}
}

func (s *stubOrdersRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubOrdersRepo) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	order.ID = s.nextID
	s.nextID++
	copied := *order
	s.orders[order.ID] = &copied
	return order, nil
}

func (s *stubOrdersRepo) FindByID(ctx context.Context, orderID int64) (*models.Order, error) {
	order, ok := s.orders[orderID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *order
	return &copied, nil
}

func (s *stubOrdersRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	var rows []models.Order
	for _, order := range s.orders {
		if order.UserID != nil && *order.UserID == userID {
			rows = append(rows, *order)
		}
	}
	return rows, nil
}

func (s *stubOrdersRepo) Save(ctx context.Context, order *models.Order) (*models.Order, error) {
	copied := *order
	s.orders[order.ID] = &copied
	return order, nil
}

func (s *stubOrdersRepo) Delete(ctx context.Context, orderID int64) error {
	delete(s.orders, orderID)
	return nil
}

type cartKey struct {
	userID          uuid.UUID
	productID       int64
	configurationID int64
}

type stubCartRepo struct {
	quantities     map[cartKey]int
	products       map[int64]*models.Product
	configurations map[int64]*models.ConfigurationVariant
}

func newStubCartRepo() *stubCartRepo {
	return &stubCartRepo{
		quantities:     map[cartKey]int{},
		products:       map[int64]*models.Product{},
		configurations: map[int64]*models.ConfigurationVariant{},
	}
}

func (s *stubCartRepo) WithTx(tx *gorm.DB) cart.CartRepository { return s }

func (s *stubCartRepo) IncrementEntry(ctx context.Context, userID uuid.UUID, productID, configurationID int64, by int) error {
	s.quantities[cartKey{userID, productID, configurationID}] += by
	return nil
}

func (s *stubCartRepo) DecrementOrDeleteEntry(ctx context.Context, userID uuid.UUID, productID, configurationID int64) (bool, error) {
	return false, nil
}

func (s *stubCartRepo) GetEntry(ctx context.Context, userID uuid.UUID, productID, configurationID int64) (*models.CartEntry, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubCartRepo) GetEntryByProduct(ctx context.Context, userID uuid.UUID, productID int64) (*models.CartEntry, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubCartRepo) ListEntries(ctx context.Context, userID uuid.UUID) ([]models.CartEntry, error) {
	var rows []models.CartEntry
	for key, qty := range s.quantities {
		if key.userID != userID {
			continue
		}
		rows = append(rows, models.CartEntry{
			UserID:          key.userID,
			ProductID:       key.productID,
			ConfigurationID: key.configurationID,
			Quantity:        qty,
			Product:         s.products[key.productID],
			Configuration:   s.configurations[key.configurationID],
		})
	}
	return rows, nil
}

func (s *stubCartRepo) ClearEntries(ctx context.Context, userID uuid.UUID) error {
	for key := range s.quantities {
		if key.userID == userID {
			delete(s.quantities, key)
		}
	}
	return nil
}

type stubCatalog struct {
	products map[int64]*models.Product
	variants map[int64]*models.ConfigurationVariant
	offered  map[int64][]int64
}

func (s *stubCatalog) GetProduct(ctx context.Context, productID int64) (*models.Product, error) {
	product, ok := s.products[productID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return product, nil
}

func (s *stubCatalog) ConfigurationsForProduct(ctx context.Context, productID int64) ([]catalog.ConfigurationOption, error) {
	return nil, nil
}

func (s *stubCatalog) DefaultConfiguration(ctx context.Context, productID int64) (*models.ConfigurationVariant, error) {
	return nil, nil
}

func (s *stubCatalog) VariantByID(ctx context.Context, variantID int64) (*models.ConfigurationVariant, error) {
	variant, ok := s.variants[variantID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "configuration not found")
	}
	return variant, nil
}

func (s *stubCatalog) VariantForProduct(ctx context.Context, productID, variantID int64) (*models.ConfigurationVariant, error) {
	for _, id := range s.offered[productID] {
		if id == variantID {
			return s.variants[id], nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "configuration not available for product")
}

type stubTx struct{}

func (stubTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type ordersFixture struct {
	repo     *stubOrdersRepo
	cartRepo *stubCartRepo
	svc      Service
}

func newOrdersFixture(t *testing.T) *ordersFixture {
	t.Helper()

	repo := newStubOrdersRepo()
	cartRepo := newStubCartRepo()
	cartRepo.products[1] = &models.Product{ID: 1, Name: "ProBook 15", Price: 50000}
	cartRepo.configurations[10] = &models.ConfigurationVariant{ID: 10, RAMAmount: 16, SSDAmount: 512, AdditionalPrice: 4000, IsDefault: true}

	cat := &stubCatalog{
		products: cartRepo.products,
		variants: cartRepo.configurations,
		offered:  map[int64][]int64{1: {10}},
	}

	svc, err := NewService(repo, cartRepo, cat, stubTx{}, nil, nil)
	require.NoError(t, err)
	return &ordersFixture{repo: repo, cartRepo: cartRepo, svc: svc}
}

func TestCreateFromCartSnapshotsAndClears(t *testing.T) {
	f := newOrdersFixture(t)
	userID := uuid.New()
	f.cartRepo.quantities[cartKey{userID, 1, 10}] = 1

	order, err := f.svc.CreateFromCart(context.Background(), userID, DeliveryDetails{BuyerName: "Ivan Petrov"})
	require.NoError(t, err)
	require.NotZero(t, order.ID)
	require.Len(t, order.Items, 1)
	require.Equal(t, "ProBook 15", order.Items[0].ProductName)
	require.Equal(t, 50000, order.Items[0].BasePrice)
	require.Equal(t, "16 GB RAM / 512 GB SSD", order.Items[0].ConfigurationName)
	require.Equal(t, 4000, order.Items[0].AdditionalPrice)
	require.Equal(t, 54000, Sum(order.Items))

	// the cart is consumed in the same transaction
	require.Empty(t, f.cartRepo.quantities)

	// replaying the checkout finds nothing to buy
	_, err = f.svc.CreateFromCart(context.Background(), userID, DeliveryDetails{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestCreateFromCookieCartValidatesAgainstCatalog(t *testing.T) {
	f := newOrdersFixture(t)

	cookie := cart.CookieCart{ProductList: []cart.CookieItem{
		{ProductID: 1, ConfigurationID: 10, Count: 2},
	}}
	cookieOrder, err := f.svc.CreateFromCookieCart(context.Background(), cookie, DeliveryDetails{CityCode: 270})
	require.NoError(t, err)
	require.Len(t, cookieOrder.Products, 1)
	require.Equal(t, "ProBook 15", cookieOrder.Products[0].ProductName)
	require.NotEmpty(t, cookieOrder.Products[0].ConfigurationName)
	require.Equal(t, 2*54000, cookieOrder.Sum)
	require.Equal(t, 270, cookieOrder.DeliveryAddress.CityCode)
	require.Zero(t, cookieOrder.ID)
	require.False(t, cookieOrder.Date.IsZero())

	// nothing persisted
	require.Empty(t, f.repo.orders)

	bad := cart.CookieCart{ProductList: []cart.CookieItem{{ProductID: 1, ConfigurationID: 99, Count: 1}}}
	_, err = f.svc.CreateFromCookieCart(context.Background(), bad, DeliveryDetails{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestPersistCookieOrderRederivesPrices(t *testing.T) {
	f := newOrdersFixture(t)
	userID := uuid.New()

	placed := time.Date(2025, 8, 12, 9, 30, 0, 0, time.UTC)
	cookieOrder := CookieOrder{
		// stale display snapshots; the claim must trust the catalog instead
		Sum:       1,
		Products:  []CookieOrderItem{{ProductID: 1, ProductName: "renamed", ConfigurationID: 10, Count: 1}},
		Date:      placed,
		BuyerName: "Ivan Petrov",
	}

	order, err := f.svc.PersistCookieOrder(context.Background(), userID, cookieOrder)
	require.NoError(t, err)
	require.Equal(t, userID, *order.UserID)
	require.Equal(t, placed, order.Date)
	require.Equal(t, 54000, Sum(order.Items))
	require.Equal(t, "ProBook 15", order.Items[0].ProductName)
	require.Len(t, f.repo.orders, 1)
}

func TestGetByIDMasksOwnership(t *testing.T) {
	f := newOrdersFixture(t)
	owner := uuid.New()
	stranger := uuid.New()
	f.cartRepo.quantities[cartKey{owner, 1, 10}] = 1

	order, err := f.svc.CreateFromCart(context.Background(), owner, DeliveryDetails{})
	require.NoError(t, err)

	got, err := f.svc.GetByID(context.Background(), order.ID, owner)
	require.NoError(t, err)
	require.Equal(t, order.ID, got.ID)

	_, err = f.svc.GetByID(context.Background(), order.ID, stranger)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = f.svc.GetByID(context.Background(), 999, owner)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestUpdateAdoptsOwnerlessOrder(t *testing.T) {
	f := newOrdersFixture(t)
	f.repo.orders[7] = &models.Order{ID: 7, Date: time.Now()}
	f.repo.nextID = 8
	userID := uuid.New()

	comment := "call before delivery"
	order, err := f.svc.Update(context.Background(), 7, userID, UpdateInput{Comment: &comment})
	require.NoError(t, err)
	require.Equal(t, userID, *order.UserID)
	require.Equal(t, comment, order.Comment)

	// once adopted, other users are masked out
	_, err = f.svc.Update(context.Background(), 7, uuid.New(), UpdateInput{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestRemoveMasksAndDeletes(t *testing.T) {
	f := newOrdersFixture(t)
	owner := uuid.New()
	f.cartRepo.quantities[cartKey{owner, 1, 10}] = 1
	order, err := f.svc.CreateFromCart(context.Background(), owner, DeliveryDetails{})
	require.NoError(t, err)

	err = f.svc.Remove(context.Background(), order.ID, uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	require.NoError(t, f.svc.Remove(context.Background(), order.ID, owner))
	require.Empty(t, f.repo.orders)
}

func TestSumIsDeterministic(t *testing.T) {
	items := []models.OrderLineItem{
		{BasePrice: 50000, AdditionalPrice: 4000, Quantity: 1},
		{BasePrice: 30000, AdditionalPrice: 0, Quantity: 2},
	}
	require.Equal(t, 114000, Sum(items))
	require.Equal(t, 0, Sum(nil))
}

type stubTracker struct {
	number string
	err    error
	calls  int
}

func (s *stubTracker) OrderNumber(ctx context.Context, orderID int64) (string, error) {
	s.calls++
	return s.number, s.err
}

func TestGetByIDFillsTrackingNumber(t *testing.T) {
	repo := newStubOrdersRepo()
	cartRepo := newStubCartRepo()
	cat := &stubCatalog{products: cartRepo.products, variants: cartRepo.configurations}
	tracker := &stubTracker{number: "CDEK-1042"}
	svc, err := NewService(repo, cartRepo, cat, stubTx{}, tracker, nil)
	require.NoError(t, err)

	owner := uuid.New()
	repo.orders[7] = &models.Order{ID: 7, UserID: &owner, Date: time.Now()}
	repo.nextID = 8

	got, err := svc.GetByID(context.Background(), 7, owner)
	require.NoError(t, err)
	require.Equal(t, "CDEK-1042", got.TrackingNumber)
	require.Equal(t, 1, tracker.calls)

	// the number is stored, later reads skip the carrier
	require.Equal(t, "CDEK-1042", repo.orders[7].TrackingNumber)
	_, err = svc.GetByID(context.Background(), 7, owner)
	require.NoError(t, err)
	require.Equal(t, 1, tracker.calls)
}

func TestGetByIDSurvivesTrackingLookupFailure(t *testing.T) {
	repo := newStubOrdersRepo()
	cartRepo := newStubCartRepo()
	cat := &stubCatalog{products: cartRepo.products, variants: cartRepo.configurations}
	tracker := &stubTracker{err: pkgerrors.New(pkgerrors.CodeDependency, "carrier down")}
	svc, err := NewService(repo, cartRepo, cat, stubTx{}, tracker, nil)
	require.NoError(t, err)

	owner := uuid.New()
	repo.orders[7] = &models.Order{ID: 7, UserID: &owner, Date: time.Now()}
	repo.nextID = 8

	got, err := svc.GetByID(context.Background(), 7, owner)
	require.NoError(t, err)
	require.Empty(t, got.TrackingNumber)
}

func TestListUserOrdersFiltersByPaymentStatus(t *testing.T) {
	f := newOrdersFixture(t)
	owner := uuid.New()

	f.repo.orders[1] = &models.Order{ID: 1, UserID: &owner, Date: time.Now(),
		Payment: &models.Payment{OrderID: 1, Status: enums.PaymentStatusSuccess}}
	f.repo.orders[2] = &models.Order{ID: 2, UserID: &owner, Date: time.Now()}
	f.repo.nextID = 3

	all, err := f.svc.ListUserOrders(context.Background(), owner, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)

	paid := enums.PaymentStatusSuccess
	rows, err := f.svc.ListUserOrders(context.Background(), owner, &paid)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, int64(1), rows[0].ID)

	// an order without a payment row has not been paid yet
	pending := enums.PaymentStatusPending
	rows, err = f.svc.ListUserOrders(context.Background(), owner, &pending)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, int64(2), rows[0].ID)

	bogus := enums.PaymentStatus("shipped")
	_, err = f.svc.ListUserOrders(context.Background(), owner, &bogus)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
