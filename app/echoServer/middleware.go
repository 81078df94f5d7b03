package echoServer

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"bookex/app/echoServer/httperr"
	"bookex/app/echoServer/jwtx"
	"bookex/model"
	"bookex/util/jwt"
	"bookex/util/metrics"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// ViewerResolver loads the profile behind an authenticated user id.
type ViewerResolver interface {
	Resolve(ctx context.Context, userID int64) (model.Viewer, error)
}

func RegisterMiddlewares(e *echo.Echo, log *slog.Logger) {

	e.Use(middleware.Recover())

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return uuid.NewString() },
	}))

	e.Use(Slog(log))
}

func Slog(log *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			lat := time.Since(start).Milliseconds()

			status := c.Response().Status
			rid := c.Response().Header().Get(echo.HeaderXRequestID)
			log.Info("http",
				"method", c.Request().Method,
				"path", c.Path(),
				"status", status,
				"latency_ms", lat,
				"req_id", rid,
				"ip", c.RealIP(),
				"ua", c.Request().UserAgent(),
			)
			metrics.HTTPRequests.WithLabelValues(c.Request().Method, c.Path(), strconv.Itoa(status)).Inc()
			return nil
		}
	}
}

// OptionalAuth accepts anonymous requests. A token that is present must be
// valid; a broken token is rejected rather than silently ignored.
func OptionalAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return next(c)
			}
			claims, err := jwt.ParseAuth(header, secret)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
			}
			id, err := jwt.Subject(claims)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
			}
			jwtx.SetUserID(c, id)
			return next(c)
		}
	}
}

// ResolveViewer turns the authenticated user id, if any, into a Viewer with
// a fresh profile. Requests without one continue as anonymous.
func ResolveViewer(r ViewerResolver, log *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, err := jwtx.UserIDFromContext(c)
			if err != nil {
				jwtx.SetViewer(c, model.Anonymous())
				return next(c)
			}
			v, err := r.Resolve(c.Request().Context(), id)
			if err != nil {
				return httperr.Write(c, log, "resolve viewer", err)
			}
			jwtx.SetViewer(c, v)
			return next(c)
		}
	}
}

// RequireViewer rejects requests that did not resolve to a user.
func RequireViewer() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !jwtx.Viewer(c).Authenticated() {
				return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
			}
			return next(c)
		}
	}
}

// ChatRateLimit limits per caller, keyed by user id with the client IP as a
// fallback.
func ChatRateLimit(perMinute int) echo.MiddlewareFunc {
	if perMinute <= 0 {
		perMinute = 10
	}
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(float64(perMinute) / 60),
		Burst:     perMinute,
		ExpiresIn: 5 * time.Minute,
	})
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			if v := jwtx.Viewer(c); v.Authenticated() {
				return "u:" + strconv.FormatInt(v.UserID, 10), nil
			}
			return "ip:" + c.RealIP(), nil
		},
		DenyHandler: func(c echo.Context, id string, err error) error {
			return c.JSON(http.StatusTooManyRequests, echo.Map{"message": "too many requests"})
		},
	})
}
