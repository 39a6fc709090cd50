// Package kernel wires repositories, services and controllers into the HTTP
// handler the server runs.
package kernel

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/foodle-app/foodle/app/controllers"
	"github.com/foodle-app/foodle/app/repositories"
	"github.com/foodle-app/foodle/app/routes"
	"github.com/foodle-app/foodle/app/schema"
	"github.com/foodle-app/foodle/app/services"
	"github.com/foodle-app/foodle/config"
	"github.com/foodle-app/foodle/pkg/auth"
	"github.com/foodle-app/foodle/pkg/cache"
	"github.com/foodle-app/foodle/pkg/cart"
	"github.com/foodle-app/foodle/pkg/logger"
	"github.com/foodle-app/foodle/pkg/mail"
	"github.com/foodle-app/foodle/pkg/metrics"
	"github.com/foodle-app/foodle/pkg/middleware"
	"github.com/foodle-app/foodle/pkg/notification"
	"github.com/foodle-app/foodle/pkg/payment"
	"github.com/foodle-app/foodle/pkg/pickup"
	"github.com/foodle-app/foodle/pkg/realtime"
	"github.com/foodle-app/foodle/pkg/reqid"
	"github.com/foodle-app/foodle/pkg/response"
	"github.com/foodle-app/foodle/pkg/router"
	"github.com/foodle-app/foodle/pkg/schedule"
	"github.com/foodle-app/foodle/pkg/workerpool"
)

// Kernel owns the application graph and its background workers.
type Kernel struct {
	router  *router.Router
	hub     *realtime.Hub
	redis   *realtime.RedisBroker
	pool    *workerpool.Pool
	limiter *middleware.Limiter
	jobs    *schedule.Scheduler
}

// New builds the application on db. Redis is used when cache.Connect has
// succeeded.
func New(db *gorm.DB) (*Kernel, error) {
	k := &Kernel{
		hub:     realtime.NewHub(),
		limiter: middleware.NewLimiter(config.RateLimit(), time.Minute),
		jobs:    schedule.New(),
	}

	var broker realtime.Broker = k.hub
	if cache.Available() {
		k.redis = realtime.NewRedisBroker(cache.RDB, k.hub)
		broker = k.redis
	}

	carts, err := cartStore()
	if err != nil {
		return nil, err
	}
	gateway, webhooks, err := paymentGateway()
	if err != nil {
		return nil, err
	}
	codes, err := pickup.NewGenerator(config.PickupCodeDigits())
	if err != nil {
		return nil, err
	}

	k.pool = workerpool.New(config.NotifyWorkers())
	notifier := readyNotifier(k.pool)

	users := repositories.NewUserRepository(db)
	stalls := repositories.NewStallRepository(db, broker)
	orders := repositories.NewOrderRepository(db, broker)

	denied := auth.NewDenyList()
	if err := k.housekeeping(carts, denied); err != nil {
		return nil, err
	}

	authSvc := services.NewAuthService(users, stalls, denied)
	cartSvc := services.NewCartService(carts, stalls)
	checkoutSvc := services.NewCheckoutService(cartSvc, stalls, orders, gateway, codes)
	stallSvc := services.NewStallService(stalls)
	orderSvc := services.NewOrderService(orders)
	vendorSvc := services.NewVendorService(stalls, orders, notifier)
	liveSvc := services.NewLiveService(broker, orders, stallSvc, vendorSvc)

	gqlSchema, err := schema.New(stallSvc)
	if err != nil {
		return nil, fmt.Errorf("kernel: graphql schema: %w", err)
	}

	k.router = newRouter(k.limiter)
	routes.RegisterAPI(k.router, routes.Handlers{
		Auth:    controllers.NewAuthController(authSvc, auth.SetupProviders()),
		Cart:    controllers.NewCartController(cartSvc),
		Payment: controllers.NewPaymentController(checkoutSvc, webhooks),
		Stalls:  controllers.NewStallController(stallSvc),
		Orders:  controllers.NewOrderController(orderSvc),
		Vendor:  controllers.NewVendorController(vendorSvc),
		Live:    controllers.NewLiveController(liveSvc, orderSvc),
		Schema:  gqlSchema,
		Revoked: authSvc,
	})

	logger.Info("kernel: ready",
		"payment_provider", gateway.Name(),
		"realtime", map[bool]string{true: "redis", false: "local"}[k.redis != nil],
	)
	return k, nil
}

// newRouter installs the global middleware stack, outermost first: metrics,
// panic recovery, request id, request log, CORS, rate limit.
func newRouter(limiter *middleware.Limiter) *router.Router {
	r := router.New()
	r.Use(metrics.Middleware())
	r.Use(middleware.Recovery)
	r.Use(reqid.Middleware())
	r.Use(middleware.Logger)
	r.Use(middleware.CORS(middleware.DefaultCORSOptions(config.CORSOrigins()...)))
	if limiter != nil {
		r.Use(middleware.RateLimit(limiter))
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) { response.NotFound(w) })
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})
	r.Handle("/metrics", "metrics", metrics.Handler())
	return r
}

// Routes lists the API without building the application, for route:list.
func Routes() []router.Route {
	r := newRouter(nil)
	routes.RegisterAPI(r, routes.Handlers{})
	return r.Routes()
}

func (k *Kernel) Handler() http.Handler { return k.router.Handler() }

// Hub is the in-process change hub.
func (k *Kernel) Hub() *realtime.Hub { return k.hub }

// Start runs the background workers until ctx ends.
func (k *Kernel) Start(ctx context.Context) {
	go k.jobs.Start(ctx)
	if k.redis != nil {
		go func() {
			if err := k.redis.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("kernel: redis fan-out stopped", "error", err)
			}
		}()
	}
}

// Close waits for running jobs and drains pending notifications.
func (k *Kernel) Close() {
	k.jobs.Wait()
	k.pool.Shutdown()
}

// Jobs lists the scheduled housekeeping jobs.
func (k *Kernel) Jobs() []string { return k.jobs.List() }

func (k *Kernel) housekeeping(carts cart.Store, denied *auth.DenyList) error {
	if err := k.jobs.EveryMinute().Name("rate-limit-prune").Run(k.limiter.Prune); err != nil {
		return err
	}
	if err := k.jobs.Every(10).Minutes().Name("denylist-prune").Run(denied.Prune); err != nil {
		return err
	}
	files, ok := carts.(*cart.FileStore)
	if !ok {
		return nil
	}
	ttl := config.CartTTL()
	return k.jobs.Cron("30 3 * * *").Name("cart-prune").WithoutOverlapping().Run(func(ctx context.Context) error {
		n, err := files.Prune(ctx, ttl)
		if n > 0 {
			logger.Info("kernel: pruned stale carts", "count", n)
		}
		return err
	})
}

func cartStore() (cart.Store, error) {
	switch kind := config.CartStore(); kind {
	case "redis":
		if !cache.Available() {
			return nil, errors.New("kernel: CART_STORE=redis but redis is not connected")
		}
		return cart.NewRedisStore(cache.RDB, config.CartTTL()), nil
	case "file":
		return cart.NewFileStore(config.CartDir())
	case "memory":
		return cart.NewMemoryStore(), nil
	case "":
		if cache.Available() {
			return cart.NewRedisStore(cache.RDB, config.CartTTL()), nil
		}
		return cart.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("kernel: unknown CART_STORE %q (supported: redis, file, memory)", kind)
	}
}

func paymentGateway() (payment.Gateway, controllers.WebhookParser, error) {
	currency := config.PaymentCurrency()
	switch p := config.PaymentProvider(); p {
	case "razorpay":
		return payment.NewRazorpay(config.RazorpayKeyID(), config.RazorpayKeySecret(), config.RazorpayBaseURL(), currency), nil, nil
	case "stripe":
		s := payment.NewStripe(config.StripeSecretKey(), config.StripeWebhookSecret(), currency)
		return s, s, nil
	default:
		return nil, nil, fmt.Errorf("kernel: unknown PAYMENT_PROVIDER %q (supported: razorpay, stripe)", p)
	}
}

func readyNotifier(pool *workerpool.Pool) *services.DispatchNotifier {
	smtp := mail.FromConfig()
	hook := config.NotifyWebhookURL()

	var opts []notification.Option
	if smtp.Configured() {
		opts = append(opts, notification.WithMailer(notification.SMTPMailer(smtp)))
	}
	if hook != "" {
		opts = append(opts, notification.WithWebhookURL(hook))
	}
	d := notification.NewDispatcher(pool, opts...)
	return services.NewDispatchNotifier(d, smtp.Configured(), hook != "")
}
