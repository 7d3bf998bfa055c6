package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/storefront-checkout/internal/api"
	"github.com/xenking/storefront-checkout/internal/checkout"
	"github.com/xenking/storefront-checkout/internal/domain/address"
	"github.com/xenking/storefront-checkout/internal/domain/cart"
	"github.com/xenking/storefront-checkout/internal/domain/coupon"
	"github.com/xenking/storefront-checkout/internal/gateway"
	"github.com/xenking/storefront-checkout/internal/gateway/stub"
	"github.com/xenking/storefront-checkout/pkg/health"
	"github.com/xenking/storefront-checkout/pkg/httpmiddleware"
	"github.com/xenking/storefront-checkout/pkg/kv"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// Device-state store: redis when configured, in-memory otherwise.
	var store kv.Store
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return errors.Wrap(err, "parse redis URL")
		}
		client := redis.NewClient(opts)
		defer func() { _ = client.Close() }()

		if err := client.Ping(ctx).Err(); err != nil {
			return errors.Wrap(err, "ping redis")
		}
		store = kv.NewRedis(client, "checkout")
		lg.Info("Using redis store")
	} else {
		store = kv.NewMemory()
		lg.Info("Using in-memory store")
	}

	// Gateway: remote client when configured, seeded stub otherwise.
	var gw checkout.Gateway
	if cfg.GatewayURL != "" {
		gw = gateway.NewClient(cfg.GatewayURL, lg)
		lg.Info("Using remote gateway", zap.String("url", cfg.GatewayURL))
	} else {
		sg := stub.New()
		seedDemo(sg)
		if len(cfg.CodePack.Files) > 0 {
			filter, err := stub.LoadCodePack(ctx, lg, cfg.CodePack.Files)
			if err != nil {
				return errors.Wrap(err, "load code pack")
			}
			sg.UseCodePack(filter, stub.Rule{
				Type:        coupon.DiscountPercentage,
				Value:       decimal.NewFromInt(10),
				Description: "Valid promo code: 10% off",
			})
		}
		gw = sg
		lg.Info("Using in-process stub gateway")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.AddReadinessCheck("kv", 5*time.Second, health.KVStoreCheck(store))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// HTTP handlers.
	h := api.NewHandler(gw, store, lg)

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	h.Register(mux)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("checkout-api", m),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// seedDemo loads a small demo data set into the stub gateway: a cart, a few
// coupon rules, and one address book.
func seedDemo(g *stub.Gateway) {
	g.SeedCart(cart.Cart{
		ID: "demo-cart",
		Lines: []cart.Line{
			{MerchandiseID: "sku-tea", Quantity: 2, UnitPrice: "2500", Total: "5000"},
			{MerchandiseID: "sku-cups", Quantity: 1, UnitPrice: "5000", Total: "5000"},
		},
		Cost: cart.Summary{Subtotal: "10000", Discount: "0", Total: "10000", Currency: "CNY"},
	})
	g.SeedRule("WELCOME", stub.Rule{
		Type:        coupon.DiscountFixed,
		Value:       decimal.NewFromInt(500),
		Description: "Welcome gift: 500 off",
	})
	g.SeedRule("FALL15", stub.Rule{
		Type:        coupon.DiscountFixed,
		Value:       decimal.NewFromInt(1500),
		MinSubtotal: decimal.NewFromInt(8000),
		Description: "Autumn sale: 1500 off orders over 8000",
	})
	g.SeedRule("TENOFF", stub.Rule{
		Type:        coupon.DiscountPercentage,
		Value:       decimal.NewFromInt(10),
		Description: "10% off the whole order",
	})
	g.SeedAddresses("demo", []address.Address{
		{
			ID:       "addr-1",
			Name:     "Demo Customer",
			Phone:    "13800000000",
			Province: "Guangdong",
			City:     "Shenzhen",
			District: "Nanshan",
			Detail:   "1 Keji Road",
			Default:  true,
		},
	})
}
