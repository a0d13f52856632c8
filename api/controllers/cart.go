package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/avoronkov/laptopshop-backend/api/middleware"
	"github.com/avoronkov/laptopshop-backend/api/responses"
	"github.com/avoronkov/laptopshop-backend/api/validators"
	cartsvc "github.com/avoronkov/laptopshop-backend/internal/cart"
	"github.com/avoronkov/laptopshop-backend/internal/catalog"
	"github.com/avoronkov/laptopshop-backend/pkg/config"
	pkgerrors "github.com/avoronkov/laptopshop-backend/pkg/errors"
	"github.com/avoronkov/laptopshop-backend/pkg/logger"
)

type cartItemRequest struct {
	ProductID       int64 `json:"product_id" validate:"required,gt=0"`
	ConfigurationID int64 `json:"configuration_id" validate:"required,gt=0"`
}

// CartFetch returns the priced cart. Authenticated callers see their
// persisted cart; anonymous callers see their cookie cart resolved against
// the live catalog.
func CartFetch(svc cartsvc.Service, cookies config.CookiesConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		if userID := middleware.UserIDFromContext(r.Context()); userID != uuid.Nil {
			view, err := svc.List(r.Context(), userID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, view)
			return
		}

		cookie, err := cartsvc.DecodeCookieCart(rawCookie(r, cookies.CartName))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.PriceCookieCart(r.Context(), cookie)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// CartAddItem puts one unit into the cart. Anonymous requests rewrite the
// cart cookie instead of touching storage.
func CartAddItem(svc cartsvc.Service, catalogSvc catalog.Service, cookies config.CookiesConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || catalogSvc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		var payload cartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if userID := middleware.UserIDFromContext(r.Context()); userID != uuid.Nil {
			if err := svc.Add(r.Context(), userID, payload.ProductID, payload.ConfigurationID); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			view, err := svc.List(r.Context(), userID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, view)
			return
		}

		// Anonymous: validate the line against the catalog before trusting
		// it into the cookie.
		if _, err := catalogSvc.VariantForProduct(r.Context(), payload.ProductID, payload.ConfigurationID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cookie, err := cartsvc.DecodeCookieCart(rawCookie(r, cookies.CartName))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cookie = cookie.Add(payload.ProductID, payload.ConfigurationID)
		writeCartCookie(w, r, svc, cookies, cookie, logg)
	}
}

// CartRemoveItem takes one unit out of the cart, mirroring CartAddItem's
// persisted/cookie split.
func CartRemoveItem(svc cartsvc.Service, cookies config.CookiesConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		var payload cartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if userID := middleware.UserIDFromContext(r.Context()); userID != uuid.Nil {
			if err := svc.Remove(r.Context(), userID, payload.ProductID, payload.ConfigurationID); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			view, err := svc.List(r.Context(), userID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, view)
			return
		}

		cookie, err := cartsvc.DecodeCookieCart(rawCookie(r, cookies.CartName))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !cookieHasLine(cookie, payload.ProductID, payload.ConfigurationID) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "cart entry not found"))
			return
		}
		cookie = cookie.Remove(payload.ProductID, payload.ConfigurationID)
		writeCartCookie(w, r, svc, cookies, cookie, logg)
	}
}

func cookieHasLine(cookie cartsvc.CookieCart, productID, configurationID int64) bool {
	for _, item := range cookie.ProductList {
		if item.ProductID == productID && item.ConfigurationID == configurationID && item.Count > 0 {
			return true
		}
	}
	return false
}

func writeCartCookie(w http.ResponseWriter, r *http.Request, svc cartsvc.Service, cookies config.CookiesConfig, cookie cartsvc.CookieCart, logg *logger.Logger) {
	encoded, err := cookie.Encode()
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	setRawCookie(w, cookies, cookies.CartName, encoded)

	view, err := svc.PriceCookieCart(r.Context(), cookie)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	responses.WriteSuccess(w, view)
}
