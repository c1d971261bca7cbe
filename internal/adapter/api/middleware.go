package api

import (
	"github.com/burenotti/go_coach_backend/internal/app/authapp"
	"github.com/labstack/echo/v4"
	"net/http"
	"strings"
)

const KeyCurrentUser = "current_user"

func LoginRequired(authorizer *authapp.Authorizer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := strings.CutPrefix(c.Request().Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				return JsonError(c, http.StatusUnauthorized, CodeNotAuthenticated, "missing bearer token")
			}
			principal, err := authorizer.ParseAccessToken(token)
			if err != nil {
				return JsonError(c, http.StatusUnauthorized, CodeNotAuthenticated, err.Error())
			}
			c.Set(KeyCurrentUser, principal)
			if err := next(c); err != nil {
				c.Error(err)
			}
			return nil
		}
	}
}

func currentUser(c echo.Context) *authapp.Principal {
	return c.Get(KeyCurrentUser).(*authapp.Principal)
}
