package echoServer

import (
	"log/slog"
	"net/http"

	"bookex/app/echoServer/controller/assistant"
	"bookex/app/echoServer/controller/auth"
	"bookex/app/echoServer/controller/book"
	"bookex/app/echoServer/controller/cart"
	"bookex/app/echoServer/controller/engagement"
	"bookex/app/echoServer/controller/profile"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"
)

type C struct {
	Auth       *auth.Controller
	Book       *book.Controller
	Cart       *cart.Controller
	Engagement *engagement.Controller
	Profile    *profile.Controller
	Assistant  *assistant.Controller

	Viewers       ViewerResolver
	Log           *slog.Logger
	JWTSecret     string
	ChatPerMinute int
}

func Register(e *echo.Echo, c C) {
	e.GET("/health", func(ctx echo.Context) error {
		return ctx.JSON(http.StatusOK, echo.Map{
			"status":  "ok",
			"message": "Service is healthy and connected",
		})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// Public
	pub := e.Group("/v1")
	pub.POST("/users/register", c.Auth.Register)
	pub.POST("/users/login", c.Auth.Login)

	// Catalog: anonymous allowed
	open := e.Group("/v1", OptionalAuth(c.JWTSecret), ResolveViewer(c.Viewers, c.Log))
	open.GET("/books", c.Book.Search)
	open.GET("/books/:id", c.Book.Detail)
	open.GET("/books/:id/comments", c.Engagement.Comments)
	open.GET("/exclusive", c.Book.Exclusive)

	// Auth
	authed := e.Group("/v1")
	authed.Use(echojwt.WithConfig(echojwt.Config{
		SigningKey:    []byte(c.JWTSecret),
		NewClaimsFunc: func(echo.Context) jwt.Claims { return jwt.MapClaims{} },
		TokenLookup:   "header:Authorization:Bearer ",
		ErrorHandler: func(ctx echo.Context, err error) error {
			return ctx.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
		},
	}))
	authed.Use(ResolveViewer(c.Viewers, c.Log), RequireViewer())

	// Books
	authed.GET("/books/mine", c.Book.Mine)
	authed.POST("/books", c.Book.Create)
	authed.PUT("/books/:id", c.Book.Update)
	authed.DELETE("/books/:id", c.Book.Delete)
	authed.GET("/favorites", c.Book.Favorites)
	authed.GET("/exclusive/:id/stats", c.Book.Stats)
	authed.PUT("/exclusive/:id/featured", c.Book.SetFeatured)

	// Engagement
	authed.POST("/books/:id/comments", c.Engagement.AddComment)
	authed.PUT("/comments/:id", c.Engagement.EditComment)
	authed.DELETE("/comments/:id", c.Engagement.DeleteComment)
	authed.POST("/books/:id/rating", c.Engagement.Rate)
	authed.POST("/books/:id/favorite", c.Engagement.ToggleFavorite)

	// Cart & returns
	authed.GET("/cart", c.Cart.List)
	authed.POST("/cart/items", c.Cart.Add)
	authed.PUT("/cart/items/:id", c.Cart.UpdateQuantity)
	authed.DELETE("/cart/items/:id", c.Cart.Cancel)
	authed.POST("/cart/checkout", c.Cart.Checkout)
	authed.GET("/books/:id/returnable", c.Cart.Returnable)
	authed.POST("/returns", c.Cart.Return)
	authed.GET("/returns", c.Cart.Returns)

	// Profile
	authed.GET("/profile", c.Profile.Get)
	authed.PUT("/profile/role", c.Profile.ChangeRole)
	authed.PUT("/profile/tier", c.Profile.ChangeTier)
	authed.POST("/profile/deposit", c.Profile.Deposit)
	authed.GET("/profile/ledger", c.Profile.Ledger)

	authed.POST("/assistant/chat", c.Assistant.Chat, ChatRateLimit(c.ChatPerMinute))
}
