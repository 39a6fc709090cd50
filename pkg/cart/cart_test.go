package cart_test

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodle-app/foodle/pkg/cart"
)

func item(id, stall, name string, price int64) cart.Item {
	return cart.Item{MenuItemID: id, StallID: stall, Name: name, Price: decimal.NewFromInt(price)}
}

func openCart(t *testing.T, store cart.Store) *cart.Cart {
	t.Helper()
	c, err := cart.Open(context.Background(), store, "student-1")
	require.NoError(t, err)
	return c
}

func TestAdd_SameItemIncrements(t *testing.T) {
	ctx := context.Background()
	c := openCart(t, cart.NewMemoryStore())

	dosa := item("dosa", "S1", "Dosa", 50)
	require.NoError(t, c.Add(ctx, dosa))
	require.NoError(t, c.Add(ctx, dosa))

	assert.Equal(t, 1, c.Len())
	got, ok := c.Get("dosa")
	require.True(t, ok)
	assert.Equal(t, 2, got.Quantity)
}

func TestAdd_KeepsFirstPriceSnapshot(t *testing.T) {
	ctx := context.Background()
	c := openCart(t, cart.NewMemoryStore())

	require.NoError(t, c.Add(ctx, item("dosa", "S1", "Dosa", 50)))
	require.NoError(t, c.Add(ctx, item("dosa", "S1", "Dosa", 70)))

	got, _ := c.Get("dosa")
	assert.True(t, got.Price.Equal(decimal.NewFromInt(50)))
}

func TestAdd_RejectsInvalid(t *testing.T) {
	ctx := context.Background()
	c := openCart(t, cart.NewMemoryStore())

	assert.ErrorIs(t, c.Add(ctx, item("", "S1", "x", 1)), cart.ErrInvalidItem)
	assert.ErrorIs(t, c.Add(ctx, item("a", "", "x", 1)), cart.ErrInvalidItem)
	assert.ErrorIs(t, c.Add(ctx, item("a", "S1", "x", -1)), cart.ErrInvalidItem)
}

func TestUpdateQuantity_ZeroRemoves(t *testing.T) {
	ctx := context.Background()
	c := openCart(t, cart.NewMemoryStore())

	require.NoError(t, c.Add(ctx, item("dosa", "S1", "Dosa", 50)))
	require.NoError(t, c.Add(ctx, item("tea", "S1", "Tea", 10)))
	require.NoError(t, c.UpdateQuantity(ctx, "dosa", 0))

	_, ok := c.Get("dosa")
	assert.False(t, ok)
	assert.True(t, c.TotalAmount().Equal(decimal.NewFromInt(10)))
	assert.Equal(t, 1, c.TotalItems())

	require.NoError(t, c.UpdateQuantity(ctx, "tea", -3))
	assert.Zero(t, c.Len())
}

func TestRemove_Idempotent(t *testing.T) {
	ctx := context.Background()
	c := openCart(t, cart.NewMemoryStore())

	require.NoError(t, c.Add(ctx, item("dosa", "S1", "Dosa", 50)))
	require.NoError(t, c.Remove(ctx, "dosa"))
	require.NoError(t, c.Remove(ctx, "dosa"))
	require.NoError(t, c.Remove(ctx, "never-added"))
	assert.Zero(t, c.Len())
}

func TestTotals_ExampleOrder(t *testing.T) {
	ctx := context.Background()
	c := openCart(t, cart.NewMemoryStore())

	require.NoError(t, c.Add(ctx, item("dosa", "S1", "Dosa", 50)))
	require.NoError(t, c.UpdateQuantity(ctx, "dosa", 2))
	require.NoError(t, c.Add(ctx, item("coffee", "S1", "Coffee", 20)))

	assert.Equal(t, 3, c.TotalItems())
	assert.Equal(t, "120", c.TotalAmount().String())
}

func TestTotalAmount_InvariantUnderRandomOps(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))
	c := openCart(t, cart.NewMemoryStore())

	catalog := []cart.Item{
		item("a", "S1", "A", 15), item("b", "S1", "B", 40),
		item("c", "S2", "C", 0), item("d", "S2", "D", 99), item("e", "S3", "E", 7),
	}
	catalog[0].Price = decimal.RequireFromString("12.50")

	for i := 0; i < 300; i++ {
		it := catalog[rng.Intn(len(catalog))]
		switch rng.Intn(3) {
		case 0:
			require.NoError(t, c.Add(ctx, it))
		case 1:
			require.NoError(t, c.UpdateQuantity(ctx, it.MenuItemID, rng.Intn(6)-1))
		case 2:
			require.NoError(t, c.Remove(ctx, it.MenuItemID))
		}

		want := decimal.Zero
		for _, line := range c.Items() {
			require.GreaterOrEqual(t, line.Quantity, 1)
			want = want.Add(line.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
		}
		require.True(t, want.Equal(c.TotalAmount()), "step %d: %s != %s", i, want, c.TotalAmount())
	}
}

func TestPartition_ByStall(t *testing.T) {
	ctx := context.Background()
	c := openCart(t, cart.NewMemoryStore())

	require.NoError(t, c.Add(ctx, item("dosa", "A", "Dosa", 50)))
	require.NoError(t, c.Add(ctx, item("juice", "B", "Juice", 30)))
	require.NoError(t, c.Add(ctx, item("vada", "A", "Vada", 25)))
	require.NoError(t, c.Add(ctx, item("dosa", "A", "Dosa", 50)))

	groups := c.Partition()
	require.Len(t, groups, 2)

	assert.Equal(t, "A", groups[0].StallID)
	assert.Len(t, groups[0].Items, 2)
	assert.Equal(t, "125", groups[0].Total.String())
	for _, it := range groups[0].Items {
		assert.Equal(t, "A", it.StallID)
	}

	assert.Equal(t, "B", groups[1].StallID)
	assert.Equal(t, "30", groups[1].Total.String())
	assert.Equal(t, []string{"A", "B"}, c.StallIDs())
	assert.Len(t, c.ItemsForStall("B"), 1)
}

func TestPersistence_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	store, err := cart.NewFileStore(t.TempDir())
	require.NoError(t, err)

	c := openCart(t, store)
	require.NoError(t, c.Add(ctx, item("dosa", "S1", "Dosa", 50)))
	require.NoError(t, c.Add(ctx, item("dosa", "S1", "Dosa", 50)))

	reopened := openCart(t, store)
	got, ok := reopened.Get("dosa")
	require.True(t, ok)
	assert.Equal(t, 2, got.Quantity)

	require.NoError(t, reopened.Clear(ctx))
	again := openCart(t, store)
	assert.Zero(t, again.Len())
}

func TestFileStore_Prune(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := cart.NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Save(ctx, "stale", []cart.Item{item("dosa", "S1", "Dosa", 50)}))
	require.NoError(t, store.Save(ctx, "fresh", []cart.Item{item("chai", "S2", "Chai", 15)}))
	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "cart-stale.json"), old, old))

	n, err := store.Prune(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	items, err := store.Load(ctx, "stale")
	require.NoError(t, err)
	assert.Empty(t, items)
	items, err = store.Load(ctx, "fresh")
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

type failingStore struct{ cart.MemoryStore }

func (*failingStore) Save(context.Context, string, []cart.Item) error {
	return errors.New("disk full")
}

func TestAdd_SurfacesStoreError(t *testing.T) {
	c, err := cart.Open(context.Background(), &failingStore{}, "s")
	require.NoError(t, err)

	err = c.Add(context.Background(), item("dosa", "S1", "Dosa", 50))
	assert.ErrorContains(t, err, "disk full")
}
