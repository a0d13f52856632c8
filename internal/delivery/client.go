package delivery

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/avoronkov/laptopshop-backend/pkg/config"
	pkgerrors "github.com/avoronkov/laptopshop-backend/pkg/errors"
	"github.com/avoronkov/laptopshop-backend/pkg/logger"
	"github.com/avoronkov/laptopshop-backend/pkg/redis"
	"github.com/avoronkov/laptopshop-backend/pkg/types"
)

// Carrier package dimensions for one boxed laptop, in cm and grams.
const (
	standardHeight = 8
	standardWidth  = 47
	standardLength = 31
	standardWeight = 3000
)

const courierTariffCode = 139

// Regions and cities pinned to the top of their lists regardless of
// alphabetical order.
var (
	mainRegions = map[string]struct{}{
		"Москва":                {},
		"Санкт-Петербург":       {},
		"Московская область":    {},
		"Ленинградская область": {},
	}
	mainCities = map[string]struct{}{
		"Москва":          {},
		"Санкт-Петербург": {},
	}
)

// tokenRefreshSlack is subtracted from the token's exp so a token is never
// used within moments of expiring.
const tokenRefreshSlack = 30 * time.Second

// Client talks to a CDEK-style delivery API. Safe for concurrent use; the
// OAuth token is shared and refreshed lazily.
type Client struct {
	httpClient *http.Client
	cfg        config.CDEKConfig
	cache      redis.Cache
	logg       *logger.Logger
	now        func() time.Time

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

// NewClient builds a delivery client. The cache may be nil, which disables
// response caching but keeps the client functional.
func NewClient(cfg config.CDEKConfig, cache redis.Cache, logg *logger.Logger) (*Client, error) {
	if cfg.BaseAPIURL == "" {
		return nil, fmt.Errorf("delivery base api url required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		cfg:        cfg,
		cache:      cache,
		logg:       logg,
		now:        time.Now,
	}, nil
}

// Regions lists RU regions, pinned regions first, the rest alphabetically.
func (c *Client) Regions(ctx context.Context) ([]types.Region, error) {
	cacheKey := "regions"
	var cached []types.Region
	if c.readCache(ctx, cacheKey, &cached) {
		return cached, nil
	}

	query := url.Values{}
	query.Set("size", "1000")
	query.Set("country_codes", "RU")

	var raw []struct {
		RegionCode int    `json:"region_code"`
		Region     string `json:"region"`
	}
	if err := c.getJSON(ctx, "/location/regions", query, &raw); err != nil {
		return nil, err
	}

	regions := make([]types.Region, 0, len(raw))
	for _, entry := range raw {
		regions = append(regions, types.Region{Code: entry.RegionCode, Name: entry.Region})
	}
	sort.SliceStable(regions, func(i, j int) bool {
		return sortKey(regions[i].Name, mainRegions) < sortKey(regions[j].Name, mainRegions)
	})

	c.writeCache(ctx, cacheKey, regions)
	return regions, nil
}

// Cities lists the cities of a region, pinned cities first.
func (c *Client) Cities(ctx context.Context, regionCode int) ([]types.City, error) {
	if regionCode <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "region code is required")
	}

	cacheKey := fmt.Sprintf("cities:%d", regionCode)
	var cached []types.City
	if c.readCache(ctx, cacheKey, &cached) {
		return cached, nil
	}

	query := url.Values{}
	query.Set("size", "1000")
	query.Set("region_code", strconv.Itoa(regionCode))

	var raw []struct {
		Code int    `json:"code"`
		City string `json:"city"`
	}
	if err := c.getJSON(ctx, "/location/cities", query, &raw); err != nil {
		return nil, err
	}

	cities := make([]types.City, 0, len(raw))
	for _, entry := range raw {
		cities = append(cities, types.City{Code: entry.Code, Name: entry.City})
	}
	sort.SliceStable(cities, func(i, j int) bool {
		return sortKey(cities[i].Name, mainCities) < sortKey(cities[j].Name, mainCities)
	})

	c.writeCache(ctx, cacheKey, cities)
	return cities, nil
}

// ShippingCost quotes courier delivery of itemCount boxed laptops to the
// city. The quote is display-only and never enters an order's sum.
func (c *Client) ShippingCost(ctx context.Context, cityCode, itemCount int) (int, error) {
	if cityCode <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "city code is required")
	}
	if itemCount <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "item count must be positive")
	}

	cacheKey := fmt.Sprintf("cost:%d:%d", cityCode, itemCount)
	var cached int
	if c.readCache(ctx, cacheKey, &cached) {
		return cached, nil
	}

	type pkg struct {
		Weight int `json:"weight"`
		Length int `json:"length"`
		Width  int `json:"width"`
		Height int `json:"height"`
	}
	packages := make([]pkg, itemCount)
	for i := range packages {
		packages[i] = pkg{
			Weight: standardWeight,
			Length: standardLength,
			Width:  standardWidth,
			Height: standardHeight,
		}
	}

	body := map[string]any{
		"from_location": map[string]any{"code": c.cfg.ShopCityCode},
		"to_location":   map[string]any{"code": cityCode},
		"packages":      packages,
		"type":          1,
		"tariff_code":   courierTariffCode,
	}

	var result struct {
		TotalSum float64 `json:"total_sum"`
	}
	if err := c.postJSON(ctx, "/calculator/tariff", body, &result); err != nil {
		return 0, err
	}

	cost := int(result.TotalSum)
	c.writeCache(ctx, cacheKey, cost)
	return cost, nil
}

// CreateOrder registers a delivery order with the carrier and returns the
// carrier's order uuid.
func (c *Client) CreateOrder(ctx context.Context, input OrderInput) (string, error) {
	if input.OrderID <= 0 || input.CityCode <= 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "order id and city code are required")
	}

	items := make([]map[string]any, 0, len(input.Items))
	for _, item := range input.Items {
		items = append(items, map[string]any{
			"name":     item.Name,
			"ware_key": strconv.FormatInt(item.WareKey, 10),
			"payment":  map[string]any{"value": 0},
			"cost":     item.Cost,
			"amount":   item.Amount,
			"weight":   standardWeight,
		})
	}

	body := map[string]any{
		"number":  input.OrderID,
		"type":    1,
		"comment": "site order",
		"delivery_recipient_cost": map[string]any{"value": 0},
		"from_location": map[string]any{
			"code":    c.cfg.ShopCityCode,
			"address": c.cfg.ShopAddress,
		},
		"to_location": map[string]any{
			"code":    input.CityCode,
			"address": input.Address,
		},
		"packages": map[string]any{
			"number": fmt.Sprintf("order-%d", input.OrderID),
			"height": standardHeight,
			"length": standardLength,
			"width":  standardWidth,
			"weight": standardWeight,
			"items":  items,
		},
		"recipient": map[string]any{
			"name":   input.RecipientName,
			"phones": []map[string]any{{"number": input.RecipientPhone}},
			"email":  input.RecipientEmail,
		},
		"tariff_code": courierTariffCode,
	}

	var result struct {
		Entity struct {
			UUID string `json:"uuid"`
		} `json:"entity"`
	}
	if err := c.postJSON(ctx, "/orders", body, &result); err != nil {
		return "", err
	}
	if result.Entity.UUID == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "carrier returned no order uuid")
	}
	return result.Entity.UUID, nil
}

// OrderNumber looks up the carrier-assigned tracking number for an order.
func (c *Client) OrderNumber(ctx context.Context, orderID int64) (string, error) {
	if orderID <= 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	query := url.Values{}
	query.Set("im_number", strconv.FormatInt(orderID, 10))

	var result struct {
		Entity struct {
			CdekNumber string `json:"cdek_number"`
		} `json:"entity"`
	}
	if err := c.getJSON(ctx, "/orders", query, &result); err != nil {
		return "", err
	}
	if result.Entity.CdekNumber == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "carrier returned no tracking number")
	}
	return result.Entity.CdekNumber, nil
}

// OrderInput describes a shipment registration.
type OrderInput struct {
	OrderID        int64
	CityCode       int
	Address        string
	RecipientName  string
	RecipientPhone string
	RecipientEmail string
	Items          []OrderItem
}

// OrderItem is one declared line inside the package.
type OrderItem struct {
	Name    string
	WareKey int64
	Cost    int
	Amount  int
}

func sortKey(name string, pinned map[string]struct{}) string {
	if _, ok := pinned[name]; ok {
		return ""
	}
	return name
}
