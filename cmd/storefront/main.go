package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mkrupp/storefront/internal/domain"
	"github.com/mkrupp/storefront/internal/infra/config"
	"github.com/mkrupp/storefront/internal/infra/events"
	"github.com/mkrupp/storefront/internal/infra/logging"
	"github.com/mkrupp/storefront/internal/infra/transport/http"
	"github.com/mkrupp/storefront/internal/repo/kv"
	"github.com/mkrupp/storefront/internal/svc/authsvc/authclient"
	"github.com/mkrupp/storefront/internal/svc/cartsvc"
	"github.com/mkrupp/storefront/internal/svc/ordersvc/orderclient"
	"github.com/mkrupp/storefront/internal/svc/sessionsvc"
	"github.com/mkrupp/storefront/internal/svc/storefront"
)

const (
	appName = "gamezone"
	svcName = "storefront"
)

type Config struct {
	config.EnvConfig

	Log         logging.LoggerConfig           `envPrefix:"LOG_"`
	KV          kv.Config                      `envPrefix:"KV_"`
	AuthClient  authclient.HTTPClientConfig    `envPrefix:"AUTH_"`
	OrderClient orderclient.HTTPClientConfig   `envPrefix:"ORDER_"`
	Cart        cartsvc.CartConfig             `envPrefix:"CART_"`
	Session     sessionsvc.SessionConfig       `envPrefix:"SESSION_"`
	HTTP        storefront.HTTPTransportConfig `envPrefix:"HTTP_"`
}

func main() {
	var (
		cfg Config
		ctx = context.Background()

		configPrefix = strings.ToUpper(strings.Join([]string{appName, svcName}, "_"))
		loggerName   = strings.ToLower(strings.Join([]string{appName, svcName}, "."))
	)

	if err := config.Parse(ctx, &cfg, configPrefix); err != nil {
		panic(err)
	}

	logging.Configure(ctx, cfg.Log, loggerName)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		panic(err)
	}
}

func run(ctx context.Context, cfg Config) (err error) {
	log := logging.GetLogger("cmd.storefront")

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "error", "err", err)
			panic(err)
		}

		log.InfoContext(ctx, "shutdown")
	}()

	repo, err := kv.NewRepository(ctx, cfg.KV)
	if err != nil {
		return fmt.Errorf("new kv repository: %w", err)
	}
	defer repo.Close()

	bus := events.NewBus()

	session := sessionsvc.NewSessionService(
		ctx,
		repo,
		authclient.NewHTTPClient(cfg.AuthClient, nil),
		cfg.Session,
		bus,
	)

	// A 401 from the order API means the credential it carried is no longer accepted.
	bearer := http.NewBearerClient(repo, cfg.Session.TokenKey, func(ctx context.Context, credential string) {
		session.InvalidateCredential(ctx, credential, sessionsvc.MsgSessionExpired)
	})

	cart := cartsvc.NewCartService(ctx, repo, cfg.Cart, bus)

	if err := cart.Subscribe(func(state domain.CartState) {
		log.Debug("cart changed", "items", state.ItemCount, "total", state.Total.String())
	}); err != nil {
		return fmt.Errorf("subscribe cart: %w", err)
	}

	if err := session.Subscribe(func(state domain.SessionState) {
		log.Debug("session changed", "status", state.Status.String())
	}); err != nil {
		return fmt.Errorf("subscribe session: %w", err)
	}

	httpTransport := storefront.NewHTTPTransport(
		cart,
		session,
		orderclient.NewHTTPClient(cfg.OrderClient, bearer),
		cfg.HTTP,
	)

	log.InfoContext(ctx, "storefront ready",
		"addr", cfg.HTTP.ServerAddr,
		"kv_driver", cfg.KV.Driver,
		"session", session.State().Status.String(),
		"cart_items", cart.ItemCount(),
	)

	if err := http.ListenAndServe(ctx, httpTransport, cfg.HTTP.HTTPTransportConfig); err != nil {
		return fmt.Errorf("listen and serve: %w", err)
	}

	return nil
}
