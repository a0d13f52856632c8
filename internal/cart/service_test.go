package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/avoronkov/laptopshop-backend/internal/catalog"
	"github.com/avoronkov/laptopshop-backend/pkg/db/models"
	pkgerrors "github.com/avoronkov/laptopshop-backend/pkg/errors"
)

type entryKey struct {
	userID          uuid.UUID
	productID       int64
	configurationID int64
}

type stubCartRepo struct {
	quantities     map[entryKey]int
	products       map[int64]*models.Product
	configurations map[int64]*models.ConfigurationVariant
	incrementErr   error
}

func newStubCartRepo() *stubCartRepo {
	return &stubCartRepo{
		quantities:     map[entryKey]int{},
		products:       map[int64]*models.Product{},
		configurations: map[int64]*models.ConfigurationVariant{},
	}
}

func (s *stubCartRepo) WithTx(tx *gorm.DB) CartRepository { return s }

func (s *stubCartRepo) IncrementEntry(ctx context.Context, userID uuid.UUID, productID, configurationID int64, by int) error {
	if s.incrementErr != nil {
		return s.incrementErr
	}
	s.quantities[entryKey{userID, productID, configurationID}] += by
	return nil
}

func (s *stubCartRepo) DecrementOrDeleteEntry(ctx context.Context, userID uuid.UUID, productID, configurationID int64) (bool, error) {
	key := entryKey{userID, productID, configurationID}
	qty, ok := s.quantities[key]
	if !ok {
		return false, nil
	}
	if qty > 1 {
		s.quantities[key] = qty - 1
	} else {
		delete(s.quantities, key)
	}
	return true, nil
}

func (s *stubCartRepo) GetEntry(ctx context.Context, userID uuid.UUID, productID, configurationID int64) (*models.CartEntry, error) {
	key := entryKey{userID, productID, configurationID}
	qty, ok := s.quantities[key]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &models.CartEntry{
		UserID:          userID,
		ProductID:       productID,
		ConfigurationID: configurationID,
		Quantity:        qty,
		Product:         s.products[productID],
		Configuration:   s.configurations[configurationID],
	}, nil
}

func (s *stubCartRepo) GetEntryByProduct(ctx context.Context, userID uuid.UUID, productID int64) (*models.CartEntry, error) {
	for key, qty := range s.quantities {
		if key.userID == userID && key.productID == productID {
			return &models.CartEntry{
				UserID:          key.userID,
				ProductID:       key.productID,
				ConfigurationID: key.configurationID,
				Quantity:        qty,
				Product:         s.products[key.productID],
				Configuration:   s.configurations[key.configurationID],
			}, nil
		}
	}
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

type stubVariantCatalog struct {
	products map[int64]*models.Product
	variants map[int64]*models.ConfigurationVariant
	offered  map[int64][]int64
}

func (s *stubVariantCatalog) GetProduct(ctx context.Context, productID int64) (*models.Product, error) {
	product, ok := s.products[productID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return product, nil
}

func (s *stubVariantCatalog) ConfigurationsForProduct(ctx context.Context, productID int64) ([]catalog.ConfigurationOption, error) {
	return nil, nil
}

func (s *stubVariantCatalog) DefaultConfiguration(ctx context.Context, productID int64) (*models.ConfigurationVariant, error) {
	return nil, nil
}

func (s *stubVariantCatalog) VariantByID(ctx context.Context, variantID int64) (*models.ConfigurationVariant, error) {
	variant, ok := s.variants[variantID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "configuration not found")
	}
	return variant, nil
}

func (s *stubVariantCatalog) VariantForProduct(ctx context.Context, productID, variantID int64) (*models.ConfigurationVariant, error) {
	for _, id := range s.offered[productID] {
		if id == variantID {
			return s.variants[id], nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "configuration not available for product")
}

func newCartFixture() (*stubCartRepo, *stubVariantCatalog, Service) {
	repo := newStubCartRepo()
	repo.products[1] = &models.Product{ID: 1, Name: "ProBook 15", Price: 50000}
	repo.configurations[10] = &models.ConfigurationVariant{ID: 10, RAMAmount: 16, SSDAmount: 512, AdditionalPrice: 4000}

	cat := &stubVariantCatalog{
		products: repo.products,
		variants: repo.configurations,
		offered:  map[int64][]int64{1: {10}},
	}
	svc, err := NewService(repo, cat, nil)
	if err != nil {
		panic(err)
	}
	return repo, cat, svc
}

func TestAddValidatesVariantAssociation(t *testing.T) {
	repo, _, svc := newCartFixture()
	userID := uuid.New()

	require.NoError(t, svc.Add(context.Background(), userID, 1, 10))
	require.Equal(t, 1, repo.quantities[entryKey{userID, 1, 10}])

	err := svc.Add(context.Background(), userID, 1, 99)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestAddAccumulatesQuantity(t *testing.T) {
	repo, _, svc := newCartFixture()
	userID := uuid.New()

	require.NoError(t, svc.Add(context.Background(), userID, 1, 10))
	require.NoError(t, svc.Add(context.Background(), userID, 1, 10))
	require.Equal(t, 2, repo.quantities[entryKey{userID, 1, 10}])
}

func TestRemoveDecrementsThenDeletes(t *testing.T) {
	repo, _, svc := newCartFixture()
	userID := uuid.New()
	repo.quantities[entryKey{userID, 1, 10}] = 2

	require.NoError(t, svc.Remove(context.Background(), userID, 1, 10))
	require.Equal(t, 1, repo.quantities[entryKey{userID, 1, 10}])

	require.NoError(t, svc.Remove(context.Background(), userID, 1, 10))
	_, exists := repo.quantities[entryKey{userID, 1, 10}]
	require.False(t, exists)

	err := svc.Remove(context.Background(), userID, 1, 10)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListPricesConfiguredLines(t *testing.T) {
	repo, _, svc := newCartFixture()
	userID := uuid.New()
	repo.quantities[entryKey{userID, 1, 10}] = 2

	view, err := svc.List(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	require.Equal(t, "16 GB RAM / 512 GB SSD", view.Items[0].ConfigurationName)
	require.Equal(t, 108000, view.Items[0].LineTotal)
	require.Equal(t, 108000, view.Total)
}

func TestPriceCookieCartSkipsVanishedCatalogRows(t *testing.T) {
	_, _, svc := newCartFixture()

	cookie := CookieCart{ProductList: []CookieItem{
		{ProductID: 1, ConfigurationID: 10, Count: 1},
		{ProductID: 77, ConfigurationID: 10, Count: 5},
	}}

	view, err := svc.PriceCookieCart(context.Background(), cookie)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	require.Equal(t, 54000, view.Total)
}

func TestCartOperationsRequireUser(t *testing.T) {
	_, _, svc := newCartFixture()

	require.True(t, pkgerrors.IsCode(svc.Add(context.Background(), uuid.Nil, 1, 10), pkgerrors.CodeUnauthorized))
	require.True(t, pkgerrors.IsCode(svc.Clear(context.Background(), uuid.Nil), pkgerrors.CodeUnauthorized))
	_, err := svc.List(context.Background(), uuid.Nil)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}
