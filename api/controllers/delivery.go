package controllers

import (
	"net/http"
	"strconv"

	"github.com/avoronkov/laptopshop-backend/api/responses"
	"github.com/avoronkov/laptopshop-backend/internal/delivery"
	pkgerrors "github.com/avoronkov/laptopshop-backend/pkg/errors"
	"github.com/avoronkov/laptopshop-backend/pkg/logger"
)

// DeliveryRegions lists carrier regions, main regions first.
func DeliveryRegions(client *delivery.Client, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if client == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "delivery client unavailable"))
			return
		}

		regions, err := client.Regions(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"regions": regions})
	}
}

// DeliveryCities lists carrier cities for ?region_code, main cities first.
func DeliveryCities(client *delivery.Client, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if client == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "delivery client unavailable"))
			return
		}

		regionCode, err := parseQueryInt(r, "region_code")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cities, err := client.Cities(r.Context(), regionCode)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"cities": cities})
	}
}

// DeliveryCost quotes courier delivery of ?count packages to ?city_code.
func DeliveryCost(client *delivery.Client, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if client == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "delivery client unavailable"))
			return
		}

		cityCode, err := parseQueryInt(r, "city_code")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		count, err := parseQueryInt(r, "count")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cost, err := client.ShippingCost(r.Context(), cityCode, count)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]int{"cost": cost})
	}
}

func parseQueryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid "+name)
	}
	return value, nil
}
