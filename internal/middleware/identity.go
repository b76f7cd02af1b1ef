package middleware

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

const personIDKey = "personID"

// RequirePerson extracts the authenticated person id the upstream gateway
// placed on the request. Authentication itself happens there; this backend
// only trusts the forwarded header.
func RequirePerson(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw := c.Request().Header.Get("X-Person-ID")
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing person id")
		}
		c.Set(personIDKey, id)
		return next(c)
	}
}

// PersonID returns the id set by RequirePerson, 0 when absent.
func PersonID(c echo.Context) uint64 {
	id, _ := c.Get(personIDKey).(uint64)
	return id
}
