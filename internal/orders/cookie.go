package orders

import (
	"encoding/json"
	"net/url"
	"time"

	pkgerrors "github.com/avoronkov/laptopshop-backend/pkg/errors"
)

// CookieOrderItem is one display line of the guest order cookie. Names are
// snapshots for rendering only; prices are re-derived from the live catalog
// when the order is claimed.
type CookieOrderItem struct {
	ProductID         int64  `json:"product_id"`
	ProductName       string `json:"product_name"`
	ConfigurationID   int64  `json:"configuration_id"`
	ConfigurationName string `json:"configuration_name"`
	Count             int    `json:"count"`
}

// CookieAddress is the nested delivery destination of the order cookie.
type CookieAddress struct {
	RegionCode int    `json:"region_code,omitempty"`
	Region     string `json:"region"`
	CityCode   int    `json:"city_code,omitempty"`
	City       string `json:"city"`
	Address    string `json:"address"`
}

// CookieOrder is a guest order held client-side until the visitor registers.
// ID stays zero until the order is claimed and persisted; Sum is a display
// snapshot and never trusted at claim time. Unlike the cart cookie its value
// is percent-encoded JSON; both encodings are load-bearing for existing
// clients and must not be unified.
type CookieOrder struct {
	ID              int64             `json:"id"`
	Date            time.Time         `json:"date"`
	Sum             int               `json:"sum"`
	Comment         string            `json:"comment,omitempty"`
	BuyerName       string            `json:"buyer_name,omitempty"`
	BuyerPhone      string            `json:"buyer_phone,omitempty"`
	DeliveryAddress CookieAddress     `json:"delivery_address"`
	Products        []CookieOrderItem `json:"products"`
}

// DecodeCookieOrder parses a percent-encoded order cookie value. Empty input
// yields nil; malformed input is a validation error.
func DecodeCookieOrder(raw string) (*CookieOrder, error) {
	if raw == "" {
		return nil, nil
	}
	unescaped, err := url.QueryUnescape(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed order cookie encoding")
	}
	var cookie CookieOrder
	if err := json.Unmarshal([]byte(unescaped), &cookie); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed order cookie")
	}
	return &cookie, nil
}

// Encode serializes the order to the percent-encoded cookie value.
func (c CookieOrder) Encode() (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode order cookie")
	}
	return url.QueryEscape(string(data)), nil
}
