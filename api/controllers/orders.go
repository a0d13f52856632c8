package controllers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/avoronkov/laptopshop-backend/api/middleware"
	"github.com/avoronkov/laptopshop-backend/api/responses"
	"github.com/avoronkov/laptopshop-backend/api/validators"
	cartsvc "github.com/avoronkov/laptopshop-backend/internal/cart"
	"github.com/avoronkov/laptopshop-backend/internal/orders"
	"github.com/avoronkov/laptopshop-backend/pkg/config"
	"github.com/avoronkov/laptopshop-backend/pkg/db/models"
	"github.com/avoronkov/laptopshop-backend/pkg/enums"
	pkgerrors "github.com/avoronkov/laptopshop-backend/pkg/errors"
	"github.com/avoronkov/laptopshop-backend/pkg/logger"
)

type orderDetailsRequest struct {
	Comment    string `json:"comment" validate:"omitempty,max=2000"`
	BuyerName  string `json:"buyer_name" validate:"required,max=200"`
	BuyerPhone string `json:"buyer_phone" validate:"required,max=32"`
	RegionCode int    `json:"region_code" validate:"omitempty,gt=0"`
	RegionName string `json:"region_name" validate:"omitempty,max=200"`
	CityCode   int    `json:"city_code" validate:"omitempty,gt=0"`
	CityName   string `json:"city_name" validate:"omitempty,max=200"`
	Address    string `json:"address" validate:"required,max=500"`
}

func (r orderDetailsRequest) toDetails() orders.DeliveryDetails {
	return orders.DeliveryDetails{
		Comment:    r.Comment,
		BuyerName:  r.BuyerName,
		BuyerPhone: r.BuyerPhone,
		RegionCode: r.RegionCode,
		RegionName: r.RegionName,
		CityCode:   r.CityCode,
		CityName:   r.CityName,
		Address:    r.Address,
	}
}

type orderUpdateRequest struct {
	Comment        *string `json:"comment" validate:"omitempty,max=2000"`
	BuyerName      *string `json:"buyer_name" validate:"omitempty,max=200"`
	BuyerPhone     *string `json:"buyer_phone" validate:"omitempty,max=32"`
	RegionCode     *int    `json:"region_code" validate:"omitempty,gt=0"`
	RegionName     *string `json:"region_name" validate:"omitempty,max=200"`
	CityCode       *int    `json:"city_code" validate:"omitempty,gt=0"`
	CityName       *string `json:"city_name" validate:"omitempty,max=200"`
	Address        *string `json:"address" validate:"omitempty,max=500"`
	TrackingNumber *string `json:"tracking_number" validate:"omitempty,max=64"`
}

func (r orderUpdateRequest) toInput() orders.UpdateInput {
	return orders.UpdateInput{
		Comment:        r.Comment,
		BuyerName:      r.BuyerName,
		BuyerPhone:     r.BuyerPhone,
		RegionCode:     r.RegionCode,
		RegionName:     r.RegionName,
		CityCode:       r.CityCode,
		CityName:       r.CityName,
		Address:        r.Address,
		TrackingNumber: r.TrackingNumber,
	}
}

type orderLineResponse struct {
	ProductID         int64  `json:"product_id"`
	ProductName       string `json:"product_name"`
	BasePrice         int    `json:"base_price"`
	ConfigurationID   int64  `json:"configuration_id"`
	ConfigurationName string `json:"configuration_name"`
	AdditionalPrice   int    `json:"additional_price"`
	Quantity          int    `json:"quantity"`
}

type orderResponse struct {
	ID              int64               `json:"id"`
	Date            time.Time           `json:"date"`
	Comment         string              `json:"comment,omitempty"`
	BuyerName       string              `json:"buyer_name,omitempty"`
	BuyerPhone      string              `json:"buyer_phone,omitempty"`
	RegionCode      int                 `json:"region_code,omitempty"`
	RegionName      string              `json:"region_name,omitempty"`
	CityCode        int                 `json:"city_code,omitempty"`
	CityName        string              `json:"city_name,omitempty"`
	DeliveryAddress string              `json:"delivery_address,omitempty"`
	TrackingNumber  string              `json:"tracking_number,omitempty"`
	Items           []orderLineResponse `json:"items"`
	Total           int                 `json:"total"`
}

func newOrderResponse(order *models.Order) orderResponse {
	items := make([]orderLineResponse, len(order.Items))
	for i, item := range order.Items {
		items[i] = orderLineResponse{
			ProductID:         item.ProductID,
			ProductName:       item.ProductName,
			BasePrice:         item.BasePrice,
			ConfigurationID:   item.ConfigurationID,
			ConfigurationName: item.ConfigurationName,
			AdditionalPrice:   item.AdditionalPrice,
			Quantity:          item.Quantity,
		}
	}
	return orderResponse{
		ID:              order.ID,
		Date:            order.Date,
		Comment:         order.Comment,
		BuyerName:       order.BuyerName,
		BuyerPhone:      order.BuyerPhone,
		RegionCode:      order.RegionCode,
		RegionName:      order.RegionName,
		CityCode:        order.CityCode,
		CityName:        order.CityName,
		DeliveryAddress: order.DeliveryAddress,
		TrackingNumber:  order.TrackingNumber,
		Items:           items,
		Total:           orders.Sum(order.Items),
	}
}

// OrderCreate turns the caller's persisted cart into an order.
func OrderCreate(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		var payload orderDetailsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		order, err := svc.CreateFromCart(r.Context(), userID, payload.toDetails())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newOrderResponse(order))
	}
}

// GuestOrderCreate prices the anonymous cart cookie into an order payload
// stored in the order cookie. Nothing is persisted until the guest logs in
// and claims it.
func GuestOrderCreate(svc orders.Service, cookies config.CookiesConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		var payload orderDetailsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cart, err := cartsvc.DecodeCookieCart(rawCookie(r, cookies.CartName))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cookieOrder, err := svc.CreateFromCookieCart(r.Context(), cart, payload.toDetails())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		encoded, err := cookieOrder.Encode()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		setRawCookie(w, cookies, cookies.OrderName, encoded)
		clearCookie(w, cookies, cookies.CartName)

		responses.WriteSuccessStatus(w, http.StatusCreated, cookieOrder)
	}
}

func parsePaymentStatusParam(raw string) (*enums.PaymentStatus, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	status, err := enums.ParsePaymentStatus(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("invalid payment_status %q", raw))
	}
	return &status, nil
}

// OrderList returns the caller's orders, newest first. The optional
// payment_status query parameter narrows the list to orders whose payment is
// in that state.
func OrderList(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		statusFilter, err := parsePaymentStatusParam(r.URL.Query().Get("payment_status"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		records, err := svc.ListUserOrders(r.Context(), userID, statusFilter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list := make([]orderResponse, len(records))
		for i := range records {
			list[i] = newOrderResponse(&records[i])
		}
		responses.WriteSuccess(w, map[string]any{"orders": list})
	}
}

// OrderDetail returns one owned order.
func OrderDetail(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := parseIDParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		order, err := svc.GetByID(r.Context(), orderID, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// OrderUpdate patches an order's delivery metadata. When the request still
// carries a pending guest order cookie, that order is persisted for the
// caller first and the cookie cleared.
func OrderUpdate(svc orders.Service, cookies config.CookiesConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := parseIDParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		if err := claimPendingOrder(w, r, svc, cookies, userID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload orderUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Update(r.Context(), orderID, userID, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// OrderRemove deletes an owned order together with its line items and payment.
func OrderRemove(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := parseIDParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		if err := svc.Remove(r.Context(), orderID, userID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}

func claimPendingOrder(w http.ResponseWriter, r *http.Request, svc orders.Service, cookies config.CookiesConfig, userID uuid.UUID) error {
	cookieOrder, err := orders.DecodeCookieOrder(rawCookie(r, cookies.OrderName))
	if err != nil || cookieOrder == nil {
		return err
	}
	if _, err := svc.PersistCookieOrder(r.Context(), userID, *cookieOrder); err != nil {
		return err
	}
	clearCookie(w, cookies, cookies.OrderName)
	return nil
}
