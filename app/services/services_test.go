package services_test

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/foodle-app/foodle/app/models"
	"github.com/foodle-app/foodle/app/repositories"
	"github.com/foodle-app/foodle/app/services"
	_ "github.com/foodle-app/foodle/database/migrations"
	"github.com/foodle-app/foodle/database/seeders"
	"github.com/foodle-app/foodle/pkg/auth"
	"github.com/foodle-app/foodle/pkg/cart"
	"github.com/foodle-app/foodle/pkg/database"
	"github.com/foodle-app/foodle/pkg/migration"
	"github.com/foodle-app/foodle/pkg/payment"
	"github.com/foodle-app/foodle/pkg/pickup"
	"github.com/foodle-app/foodle/pkg/realtime"
)

const (
	studentID  = "00000000-0000-4000-8000-000000000001"
	dosaVendor = "00000000-0000-4000-8000-000000000101"
	chaiVendor = "00000000-0000-4000-8000-000000000102"
	dosaStall  = "10000000-0000-4000-8000-000000000001"
	chaiStall  = "10000000-0000-4000-8000-000000000002"
)

// fakeGateway captures exactly what each hosted order was opened for.
type fakeGateway struct {
	mu        sync.Mutex
	verifyErr error
	verified  int
	opened    map[string]int64
}

func (g *fakeGateway) Name() string { return "fake" }

func (g *fakeGateway) CreateOrder(_ context.Context, amount decimal.Decimal, _ string) (payment.HostedOrder, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.opened == nil {
		g.opened = make(map[string]int64)
	}
	id := fmt.Sprintf("order_test_%d", len(g.opened)+1)
	g.opened[id] = payment.MinorUnits(amount)
	return payment.HostedOrder{ID: id, Amount: g.opened[id], Currency: "INR", Provider: "fake"}, nil
}

func (g *fakeGateway) VerifyPayment(_ context.Context, c payment.Confirmation) (payment.Capture, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.verified++
	if g.verifyErr != nil {
		return payment.Capture{}, g.verifyErr
	}
	amount, ok := g.opened[c.OrderID]
	if !ok {
		return payment.Capture{}, fmt.Errorf("%w: unknown order %s", payment.ErrVerification, c.OrderID)
	}
	return payment.Capture{OrderID: c.OrderID, PaymentID: c.PaymentID, Amount: amount, Currency: "INR"}, nil
}

type fakeNotifier struct {
	mu    sync.Mutex
	ready []models.Order
}

func (n *fakeNotifier) OrderReady(_ context.Context, o models.Order) {
	n.mu.Lock()
	n.ready = append(n.ready, o)
	n.mu.Unlock()
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.ready)
}

type env struct {
	db       *gorm.DB
	hub      *realtime.Hub
	users    *repositories.UserRepository
	stalls   *repositories.StallRepository
	orders   *repositories.OrderRepository
	carts    *services.CartService
	gateway  *fakeGateway
	checkout *services.CheckoutService
	notifier *fakeNotifier
	vendor   *services.VendorService
	auth     *services.AuthService
	stallSvc *services.StallService
	live     *services.LiveService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, "sqlite", "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	_, err = migration.New(db, io.Discard).Run()
	require.NoError(t, err)
	require.NoError(t, seeders.RunAll(db, io.Discard))

	codes, err := pickup.NewGenerator(pickup.DefaultDigits)
	require.NoError(t, err)

	e := &env{db: db, hub: realtime.NewHub(), gateway: &fakeGateway{}, notifier: &fakeNotifier{}}
	e.users = repositories.NewUserRepository(db)
	e.stalls = repositories.NewStallRepository(db, e.hub)
	e.orders = repositories.NewOrderRepository(db, e.hub)
	e.carts = services.NewCartService(cart.NewMemoryStore(), e.stalls)
	e.checkout = services.NewCheckoutService(e.carts, e.stalls, e.orders, e.gateway, codes)
	e.vendor = services.NewVendorService(e.stalls, e.orders, e.notifier)
	e.auth = services.NewAuthService(e.users, e.stalls, auth.NewDenyList())
	e.stallSvc = services.NewStallService(e.stalls)
	e.live = services.NewLiveService(e.hub, e.orders, e.stallSvc, e.vendor)
	return e
}

// item returns the id of a seeded menu item.
func (e *env) item(t *testing.T, name string) string {
	t.Helper()
	var m models.MenuItem
	require.NoError(t, e.db.Where("name = ?", name).First(&m).Error)
	return m.ID
}

func (e *env) add(t *testing.T, userID string, names ...string) {
	t.Helper()
	for _, n := range names {
		_, err := e.carts.AddItem(context.Background(), userID, e.item(t, n))
		require.NoError(t, err)
	}
}

// pay opens a hosted payment for the student's current cart total.
func (e *env) pay(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	c, err := e.carts.Open(ctx, studentID)
	require.NoError(t, err)
	hosted, err := e.checkout.CreatePaymentOrder(ctx, studentID, c.TotalAmount())
	require.NoError(t, err)
	return hosted.ID
}

// placeOrder pays for and checks out a one-stall cart and returns the order.
func (e *env) placeOrder(t *testing.T, paymentID string, names ...string) models.Order {
	t.Helper()
	e.add(t, studentID, names...)
	orders, err := e.checkout.Checkout(context.Background(), studentID, services.CheckoutRequest{
		PaymentOrderID: e.pay(t), PaymentID: paymentID, Signature: "sig",
	})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	return orders[0]
}
