package cart

import (
	"encoding/json"

	pkgerrors "github.com/avoronkov/laptopshop-backend/pkg/errors"
)

// CookieItem is one (product, configuration) line of the anonymous cart cookie.
type CookieItem struct {
	ProductID       int64 `json:"product_id"`
	ConfigurationID int64 `json:"configuration_id"`
	Count           int   `json:"count"`
}

// CookieCart is the payload stored verbatim as JSON in the cart cookie.
type CookieCart struct {
	ProductList []CookieItem `json:"product_list"`
}

// DecodeCookieCart parses the raw cookie value. A missing or empty value
// yields an empty cart; malformed JSON is a validation error. Lines with a
// non-positive count are dropped during decode.
func DecodeCookieCart(raw string) (CookieCart, error) {
	if raw == "" {
		return CookieCart{}, nil
	}
	var cookie CookieCart
	if err := json.Unmarshal([]byte(raw), &cookie); err != nil {
		return CookieCart{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed cart cookie")
	}
	return cookie.compact(), nil
}

// Encode serializes the cart back to the raw cookie value, dropping lines
// with a non-positive count first. An empty cart encodes to an empty product
// list, not an empty string, so the cookie stays parseable.
func (c CookieCart) Encode() (string, error) {
	compacted := c.compact()
	if compacted.ProductList == nil {
		compacted.ProductList = []CookieItem{}
	}
	data, err := json.Marshal(compacted)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode cart cookie")
	}
	return string(data), nil
}

// Add increments the count for the given line, appending it when absent.
func (c CookieCart) Add(productID, configurationID int64) CookieCart {
	out := c.compact()
	for i := range out.ProductList {
		if out.ProductList[i].ProductID == productID && out.ProductList[i].ConfigurationID == configurationID {
			out.ProductList[i].Count++
			return out
		}
	}
	out.ProductList = append(out.ProductList, CookieItem{
		ProductID:       productID,
		ConfigurationID: configurationID,
		Count:           1,
	})
	return out
}

// Remove decrements the count for the given line, dropping it at zero.
// Removing an absent line is a no-op.
func (c CookieCart) Remove(productID, configurationID int64) CookieCart {
	out := c.compact()
	for i := range out.ProductList {
		if out.ProductList[i].ProductID == productID && out.ProductList[i].ConfigurationID == configurationID {
			out.ProductList[i].Count--
			break
		}
	}
	return out.compact()
}

// IsEmpty reports whether the cart holds no purchasable lines.
func (c CookieCart) IsEmpty() bool {
	return len(c.compact().ProductList) == 0
}

func (c CookieCart) compact() CookieCart {
	var kept []CookieItem
	for _, item := range c.ProductList {
		if item.Count > 0 && item.ProductID > 0 && item.ConfigurationID > 0 {
			kept = append(kept, item)
		}
	}
	return CookieCart{ProductList: kept}
}
