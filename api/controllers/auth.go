package controllers

import (
	"net/http"

	"github.com/avoronkov/laptopshop-backend/api/middleware"
	"github.com/avoronkov/laptopshop-backend/api/responses"
	"github.com/avoronkov/laptopshop-backend/api/validators"
	authsvc "github.com/avoronkov/laptopshop-backend/internal/auth"
	cartsvc "github.com/avoronkov/laptopshop-backend/internal/cart"
	"github.com/avoronkov/laptopshop-backend/pkg/config"
	pkgerrors "github.com/avoronkov/laptopshop-backend/pkg/errors"
	"github.com/avoronkov/laptopshop-backend/pkg/logger"
)

type loginRequest struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"omitempty,max=200"`
	Phone string `json:"phone" validate:"omitempty,max=32"`
}

// AuthLogin exchanges a verified identity for a session token. A cart cookie
// carried on the request is merged into the user's persisted cart; the cookie
// is cleared only when every line merged.
func AuthLogin(svc authsvc.Service, consolidator *cartsvc.Consolidator, cookies config.CookiesConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var payload loginRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.Login(r.Context(), authsvc.LoginInput{
			Email: payload.Email,
			Name:  payload.Name,
			Phone: payload.Phone,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if consolidator != nil {
			cookie, err := cartsvc.DecodeCookieCart(rawCookie(r, cookies.CartName))
			if err == nil && !cookie.IsEmpty() {
				allMerged, mergeErr := consolidator.Consolidate(r.Context(), session.User.ID, cookie)
				if mergeErr == nil && allMerged {
					clearCookie(w, cookies, cookies.CartName)
				}
			}
		}

		setRawCookie(w, cookies, middleware.SessionCookieName, session.Token)
		responses.WriteSuccess(w, session)
	}
}
