// Package routes registers the HTTP API.
package routes

import (
	"net/http"

	gographql "github.com/graphql-go/graphql"

	"github.com/foodle-app/foodle/app/controllers"
	"github.com/foodle-app/foodle/app/models"
	"github.com/foodle-app/foodle/pkg/ctx"
	"github.com/foodle-app/foodle/pkg/graphql"
	"github.com/foodle-app/foodle/pkg/middleware"
	"github.com/foodle-app/foodle/pkg/rbac"
	"github.com/foodle-app/foodle/pkg/router"
)

// Handlers is everything the API routes dispatch to.
type Handlers struct {
	Auth    *controllers.AuthController
	Cart    *controllers.CartController
	Payment *controllers.PaymentController
	Stalls  *controllers.StallController
	Orders  *controllers.OrderController
	Vendor  *controllers.VendorController
	Live    *controllers.LiveController
	Schema  gographql.Schema
	Revoked middleware.RevocationChecker
}

func RegisterAPI(r *router.Router, h Handlers) {
	authed := middleware.Auth(h.Revoked)
	optional := middleware.OptionalAuth(h.Revoked)
	vendorOnly := rbac.HasRole(string(models.RoleVendor))

	r.Get("/health", "health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`)) //nolint:errcheck
	})
	r.Post("/graphql", "graphql", graphql.Handler(h.Schema))
	r.Get("/graphql", "graphql.get", graphql.Handler(h.Schema))

	api := r.Group("/api")

	// Auth
	guest := api.Group("/auth", optional, rbac.Guest)
	guest.Post("/signup", "auth.signup", ctx.Wrap(h.Auth.Signup))
	guest.Post("/login", "auth.login", ctx.Wrap(h.Auth.Login))
	guest.Post("/vendor/login", "auth.vendor.login", ctx.Wrap(h.Auth.VendorLogin))

	session := api.Group("/auth", authed)
	session.Get("/session", "auth.session", ctx.Wrap(h.Auth.Session))
	session.Post("/logout", "auth.logout", ctx.Wrap(h.Auth.Logout))

	api.Get("/auth/{provider}", "auth.provider", ctx.Wrap(h.Auth.Provider))
	api.Get("/auth/{provider}/callback", "auth.provider.callback", ctx.Wrap(h.Auth.Callback))

	// Catalogue
	api.Get("/stalls", "stalls.index", ctx.Wrap(h.Stalls.Index))
	api.Get("/stalls/{id}", "stalls.show", ctx.Wrap(h.Stalls.Show))
	api.Get("/stream/stalls", "stream.stalls", ctx.Wrap(h.Live.StallFeed))

	// Payment provider callbacks authenticate by signature.
	api.Post("/payments/stripe/webhook", "payments.stripe.webhook", ctx.Wrap(h.Payment.StripeWebhook))

	student := api.Group("", authed)

	student.Get("/cart", "cart.show", ctx.Wrap(h.Cart.Show))
	student.Post("/cart/items", "cart.items.add", ctx.Wrap(h.Cart.Add))
	student.Patch("/cart/items/{id}", "cart.items.update", ctx.Wrap(h.Cart.Update))
	student.Delete("/cart/items/{id}", "cart.items.remove", ctx.Wrap(h.Cart.Remove))
	student.Delete("/cart", "cart.clear", ctx.Wrap(h.Cart.Clear))

	student.Post("/payments/orders", "payments.orders.create", ctx.Wrap(h.Payment.CreateOrder))
	student.Post("/checkout", "checkout", ctx.Wrap(h.Payment.Checkout))

	student.Get("/orders", "orders.index", ctx.Wrap(h.Orders.Index))
	student.Get("/orders/{id}", "orders.show", ctx.Wrap(h.Orders.Show))
	student.Get("/orders/{id}/pickup.png", "orders.pickup", ctx.Wrap(h.Orders.PickupQR))

	student.Get("/ws/orders", "ws.orders", ctx.Wrap(h.Live.StudentOrders))
	student.Get("/ws/orders/{id}", "ws.orders.track", ctx.Wrap(h.Live.TrackOrder))

	vendor := api.Group("/vendor", authed, vendorOnly)
	vendor.Get("/stall", "vendor.stall", ctx.Wrap(h.Vendor.Stall))
	vendor.Patch("/stall", "vendor.stall.update", ctx.Wrap(h.Vendor.UpdateStall))
	vendor.Get("/menu", "vendor.menu", ctx.Wrap(h.Vendor.Menu))
	vendor.Patch("/menu/{id}", "vendor.menu.update", ctx.Wrap(h.Vendor.UpdateMenuItem))
	vendor.Get("/orders", "vendor.orders", ctx.Wrap(h.Vendor.Orders))
	vendor.Get("/orders/history", "vendor.orders.history", ctx.Wrap(h.Vendor.History))
	vendor.Post("/orders/{id}/{action}", "vendor.orders.advance", ctx.Wrap(h.Vendor.Advance))

	api.Get("/ws/vendor", "ws.vendor", ctx.Wrap(h.Live.VendorConsole), authed, vendorOnly)
}
