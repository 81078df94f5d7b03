// Package main book exchange API.
//
// @title           bookex API
// @version         1.0
// @description     Book marketplace: catalog, cart, subscriptions, exclusive books and a reading assistant.
// @contact.name    Halim Iskandar
// @contact.email   halim.iskandar2323@gmail.com
// @BasePath        /
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description  Use:  Bearer <JWT>
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bookex/app/echoServer"
	assistantctrl "bookex/app/echoServer/controller/assistant"
	authctrl "bookex/app/echoServer/controller/auth"
	bookctrl "bookex/app/echoServer/controller/book"
	cartctrl "bookex/app/echoServer/controller/cart"
	engagementctrl "bookex/app/echoServer/controller/engagement"
	profilectrl "bookex/app/echoServer/controller/profile"
	"bookex/app/echoServer/validation"
	"bookex/app/supervisor"
	"bookex/config"
	assistantrepo "bookex/repository/assistant"
	authrepo "bookex/repository/auth"
	bookrepo "bookex/repository/book"
	cartrepo "bookex/repository/cart"
	engagementrepo "bookex/repository/engagement"
	profilerepo "bookex/repository/profile"
	walletrepo "bookex/repository/wallet"
	assistantsvc "bookex/service/assistant"
	authsvc "bookex/service/auth"
	booksvc "bookex/service/book"
	cartsvc "bookex/service/cart"
	engagementsvc "bookex/service/engagement"
	"bookex/service/subscription"
	"bookex/util/database"
	"bookex/util/httpx"

	"github.com/labstack/echo/v4"
)

func main() {
	// logger
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db.SQL); err != nil {
		log.Error("migrate failed", "err", err)
		os.Exit(1)
	}
	tx := database.NewTransactor(db.SQL)

	// repos
	ar := authrepo.New(db.SQL)
	br := bookrepo.New(db.SQL)
	cr := cartrepo.New(db.SQL)
	er := engagementrepo.New(db.SQL)
	pr := profilerepo.New(db.SQL)
	lr := walletrepo.New(db.SQL)
	air := assistantrepo.NewHTTP(cfg.Assistant.BaseURL, cfg.Assistant.APIKey, cfg.Assistant.Model, httpx.WithTimeout(cfg.Assistant.Timeout+2*time.Second))

	// services
	subs := subscription.New(tx, pr, lr, log)
	ai := assistantsvc.New(air, cfg.Assistant.Timeout, log)
	as := authsvc.New(tx, ar, cfg.JWTSecret, cfg.JWTTTLHours)
	bs := booksvc.New(tx, br, ai, log)
	cs := cartsvc.New(tx, cr)
	es := engagementsvc.New(er, bs)

	if cfg.Assistant.APIKey == "" {
		log.Warn("assistant api key not set, ranking and chat use local fallbacks")
	}

	// controllers
	v := validation.New()
	e := echo.New()
	e.HideBanner = true
	echoServer.RegisterMiddlewares(e, log)
	e.Validator = validation.Echo(v)

	echoServer.Register(e, echoServer.C{
		Auth:       &authctrl.Controller{Svc: as, V: v, Log: log},
		Book:       &bookctrl.Controller{Svc: bs, V: v, Log: log},
		Cart:       &cartctrl.Controller{Svc: cs, V: v, Log: log},
		Engagement: &engagementctrl.Controller{Svc: es, V: v, Log: log},
		Profile:    &profilectrl.Controller{Svc: subs, V: v, Log: log},
		Assistant:  &assistantctrl.Controller{Svc: ai, Catalog: bs, V: v, Log: log},

		Viewers:       subs,
		Log:           log,
		JWTSecret:     cfg.JWTSecret,
		ChatPerMinute: cfg.ChatRateLimit,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Port
	}

	tree := supervisor.NewTree(log, supervisor.DefaultTreeConfig())
	tree.AddAPIService(supervisor.NewHTTPService(&http.Server{
		Addr:              ":" + port,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
	}, 10*time.Second))
	tree.AddJob(supervisor.NewSweepService(subscription.NewSweeper(subs), cfg.Billing.SweepInterval, log))

	log.Info("starting server", "port", port, "env", cfg.Env)
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("supervisor stopped", "err", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
