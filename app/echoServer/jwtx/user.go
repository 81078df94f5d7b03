package jwtx

import (
	"errors"

	"bookex/model"
	jwtutil "bookex/util/jwt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const (
	keyToken  = "user"
	keyUserID = "user_id"
	keyViewer = "viewer"
)

// UserIDFromContext reads the caller id set by the optional-auth middleware,
// falling back to the token echo-jwt stores under "user".
func UserIDFromContext(c echo.Context) (int64, error) {
	if id, ok := c.Get(keyUserID).(int64); ok {
		return id, nil
	}
	tok, ok := c.Get(keyToken).(*jwt.Token)
	if !ok || tok == nil {
		return 0, errors.New("no jwt token in context")
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return 0, errors.New("invalid jwt claims")
	}
	return jwtutil.Subject(claims)
}

func SetUserID(c echo.Context, id int64) { c.Set(keyUserID, id) }

func SetViewer(c echo.Context, v model.Viewer) { c.Set(keyViewer, v) }

// Viewer returns the resolved caller, anonymous when none was set.
func Viewer(c echo.Context) model.Viewer {
	if v, ok := c.Get(keyViewer).(model.Viewer); ok {
		return v
	}
	return model.Anonymous()
}
