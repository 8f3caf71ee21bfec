package cartsvc_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrupp/storefront/internal/domain"
	"github.com/mkrupp/storefront/internal/repo/kv"
	"github.com/mkrupp/storefront/internal/svc/cartsvc"
)

func product(id int64, price int64) domain.Product {
	return domain.Product{
		ID:    domain.ProductID(id),
		Name:  "Producto " + domain.ProductID(id).String(),
		Price: decimal.NewFromInt(price),
	}
}

func newCart(t *testing.T, repo kv.Repository) *cartsvc.CartService {
	t.Helper()

	if repo == nil {
		repo = kv.NewMemoryKVRepository()
	}

	return cartsvc.NewCartService(context.Background(), repo, cartsvc.DefaultCartConfig(), nil)
}

func assertMoney(t *testing.T, want string, got domain.Money) {
	t.Helper()

	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func persisted(t *testing.T, repo kv.Repository) (string, bool) {
	t.Helper()

	data, ok, err := repo.Get(context.Background(), "cart")
	require.NoError(t, err)

	return string(data), ok
}

func TestCartService_AddDistinctItems(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cart := newCart(t, nil)

	prices := []int64{1000, 2500, 49990, 0, 15}
	sum := int64(0)

	for i, price := range prices {
		res := cart.AddItem(ctx, product(int64(i+1), price))
		assert.Equal(t, domain.OperationResult{Success: true, Message: cartsvc.MsgItemAdded}, res)

		sum += price
	}

	assert.Equal(t, len(prices), cart.ItemCount())
	assertMoney(t, decimal.NewFromInt(sum).String(), cart.Total())
	assert.Len(t, cart.Lines(), len(prices))
}

func TestCartService_AddExistingIncrements(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cart := newCart(t, nil)

	cart.AddItem(ctx, product(1, 1000))
	cart.AddItem(ctx, product(2, 500))
	cart.AddItem(ctx, product(1, 1000))

	lines := cart.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, domain.ProductID(1), lines[0].ID, "insertion order is kept")
	assert.Equal(t, 2, lines[0].Quantity)
	assert.Equal(t, 2, cart.QuantityOf(1))
	assert.Equal(t, 3, cart.ItemCount())
	assertMoney(t, "2500", cart.Total())
}

func TestCartService_UpdateQuantity(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cart := newCart(t, nil)

	cart.AddItem(ctx, product(1, 1000))
	cart.AddItem(ctx, product(2, 300))

	res := cart.UpdateQuantity(ctx, 1, 5)
	assert.Equal(t, cartsvc.MsgQuantityUpdated, res.Message)
	assert.Equal(t, 5, cart.QuantityOf(1))

	cart.UpdateQuantity(ctx, 1, 3)
	assert.Equal(t, 3, cart.QuantityOf(1), "quantity is absolute")
	assertMoney(t, "3300", cart.Total())

	res = cart.UpdateQuantity(ctx, 1, 0)
	assert.Equal(t, cartsvc.MsgItemRemoved, res.Message)
	assert.False(t, cart.IsInCart(1))

	cart.UpdateQuantity(ctx, 2, -4)
	assert.False(t, cart.IsInCart(2))
	assert.Equal(t, 0, cart.ItemCount())
}

func TestCartService_UpdateQuantityUnknownID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := kv.NewMemoryKVRepository()
	cart := newCart(t, repo)

	cart.AddItem(ctx, product(1, 1000))
	before, _ := persisted(t, repo)

	cart.UpdateQuantity(ctx, 99, 4)

	after, _ := persisted(t, repo)
	assert.Equal(t, before, after)
	assert.False(t, cart.IsInCart(99))
	assert.Equal(t, 1, cart.ItemCount())
}

func TestCartService_RemoveItem(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := kv.NewMemoryKVRepository()
	cart := newCart(t, repo)

	cart.AddItem(ctx, product(1, 1000))
	cart.AddItem(ctx, product(2, 700))

	cart.RemoveItem(ctx, 1)
	assert.False(t, cart.IsInCart(1))
	assert.True(t, cart.IsInCart(2))

	cart.RemoveItem(ctx, 42)
	assert.Equal(t, 1, cart.ItemCount())

	cart.RemoveItem(ctx, 2)

	_, ok := persisted(t, repo)
	assert.False(t, ok, "an empty cart removes the key")
}

func TestCartService_Clear(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := kv.NewMemoryKVRepository()
	cart := newCart(t, repo)

	cart.AddItem(ctx, product(1, 1000))
	cart.AddItem(ctx, product(2, 2000))

	_, ok := persisted(t, repo)
	require.True(t, ok)

	res := cart.Clear(ctx)
	assert.Equal(t, cartsvc.MsgCartCleared, res.Message)
	assert.Equal(t, 0, cart.ItemCount())
	assertMoney(t, "0", cart.Total())
	assert.Empty(t, cart.Lines())

	_, ok = persisted(t, repo)
	assert.False(t, ok)
}

func TestCartService_RemoveOrdered(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := kv.NewMemoryKVRepository()
	cart := newCart(t, repo)

	cart.AddItem(ctx, product(1, 1000))
	ordered := domain.OrderLinesFromCart(cart.Lines())

	cart.AddItem(ctx, product(1, 1000))
	cart.AddItem(ctx, product(2, 2000))

	res := cart.RemoveOrdered(ctx, ordered)
	assert.True(t, res.Success)
	assert.Equal(t, 1, cart.QuantityOf(1))
	assert.Equal(t, 1, cart.QuantityOf(2))
	assertMoney(t, "3000", cart.Total())

	data, ok := persisted(t, repo)
	require.True(t, ok)
	assert.JSONEq(t, `[{"id":1,"nombre":"Producto 1","precio":1000,"cantidad":1},`+
		`{"id":2,"nombre":"Producto 2","precio":2000,"cantidad":1}]`, data)

	cart.RemoveOrdered(ctx, domain.OrderLinesFromCart(cart.Lines()))
	assert.Equal(t, 0, cart.ItemCount())

	_, ok = persisted(t, repo)
	assert.False(t, ok)
}

func TestCartService_PersistedScenario(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := kv.NewMemoryKVRepository()
	cart := newCart(t, repo)

	cart.AddItem(ctx, domain.Product{ID: 1, Name: "Zelda", Price: decimal.NewFromInt(1000)})

	assert.Equal(t, 1, cart.ItemCount())
	assertMoney(t, "1000", cart.Total())

	data, ok := persisted(t, repo)
	require.True(t, ok)
	assert.JSONEq(t, `[{"id":1,"nombre":"Zelda","precio":1000,"cantidad":1}]`, data)
}

func TestCartService_RoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := kv.NewMemoryKVRepository()
	cart := newCart(t, repo)

	cart.AddItem(ctx, domain.Product{ID: 3, Name: "Halo", Price: decimal.RequireFromString("19990.50"), ImageRef: "halo.png"})
	cart.AddItem(ctx, product(1, 1000))
	cart.AddItem(ctx, product(2, 250))
	cart.UpdateQuantity(ctx, 1, 4)

	restored := newCart(t, repo)

	want, err := json.Marshal(cart.Lines())
	require.NoError(t, err)

	got, err := json.Marshal(restored.Lines())
	require.NoError(t, err)

	assert.JSONEq(t, string(want), string(got))
	assert.Equal(t, cart.ItemCount(), restored.ItemCount())
	assertMoney(t, cart.Total().String(), restored.Total())
	assert.Empty(t, restored.State().Error)
}

func TestCartService_LoadMalformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
	}{
		{name: "invalid json", data: `[{"id":1,`},
		{name: "not an array", data: `{"id":1}`},
		{name: "duplicate id", data: `[{"id":1,"nombre":"a","precio":1,"cantidad":1},{"id":1,"nombre":"a","precio":1,"cantidad":2}]`},
		{name: "zero quantity", data: `[{"id":1,"nombre":"a","precio":1,"cantidad":0}]`},
		{name: "negative price", data: `[{"id":1,"nombre":"a","precio":-5,"cantidad":1}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			repo := kv.NewMemoryKVRepository()
			require.NoError(t, repo.Set(ctx, "cart", []byte(tt.data)))

			cart := newCart(t, repo)

			state := cart.State()
			assert.Empty(t, state.Lines)
			assert.Equal(t, cartsvc.MsgLoadFailed, state.Error)

			_, ok := persisted(t, repo)
			assert.False(t, ok, "malformed key is removed")

			cart.ClearError(ctx)
			assert.Empty(t, cart.State().Error)
		})
	}
}

type failingRepo struct {
	kv.Repository
	getErr error
	setErr error
}

func (r *failingRepo) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if r.getErr != nil {
		return nil, false, r.getErr
	}

	return r.Repository.Get(ctx, key)
}

func (r *failingRepo) Set(ctx context.Context, key string, value []byte) error {
	if r.setErr != nil {
		return r.setErr
	}

	return r.Repository.Set(ctx, key, value)
}

func TestCartService_StorageFailures(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("load", func(t *testing.T) {
		t.Parallel()

		cart := newCart(t, &failingRepo{Repository: kv.NewMemoryKVRepository(), getErr: errors.New("disk gone")})

		assert.Equal(t, cartsvc.MsgLoadFailed, cart.State().Error)
		assert.Equal(t, 0, cart.ItemCount())
	})

	t.Run("save", func(t *testing.T) {
		t.Parallel()

		cart := newCart(t, &failingRepo{Repository: kv.NewMemoryKVRepository(), setErr: errors.New("disk full")})

		res := cart.AddItem(ctx, product(1, 1000))
		assert.True(t, res.Success, "a failed write keeps the mutation")
		assert.Equal(t, 1, cart.ItemCount())
		assert.Equal(t, cartsvc.MsgSaveFailed, cart.State().Error)
	})
}

func TestCartService_Discount(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cart := newCart(t, nil)

	cart.AddItem(ctx, product(1, 1000))
	cart.AddItem(ctx, product(2, 1500))

	tests := []struct {
		email        string
		wantDiscount string
		wantTotal    string
	}{
		{email: "alumno@duocuc.cl", wantDiscount: "500", wantTotal: "2000"},
		{email: "  Profe@DUOCUC.CL ", wantDiscount: "500", wantTotal: "2000"},
		{email: "a@b.com", wantDiscount: "0", wantTotal: "2500"},
		{email: "duocuc.cl@gmail.com", wantDiscount: "0", wantTotal: "2500"},
		{email: "", wantDiscount: "0", wantTotal: "2500"},
	}

	for _, tt := range tests {
		assertMoney(t, tt.wantDiscount, cart.DiscountFor(tt.email))
		assertMoney(t, tt.wantTotal, cart.TotalWithDiscount(tt.email))
	}
}

func TestCartService_Subscribe(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cart := newCart(t, nil)

	var (
		mu     sync.Mutex
		counts []int
	)

	fn := func(state domain.CartState) {
		mu.Lock()
		defer mu.Unlock()

		counts = append(counts, state.ItemCount)
	}

	require.NoError(t, cart.Subscribe(fn))

	cart.AddItem(ctx, product(1, 10))
	cart.AddItem(ctx, product(1, 10))
	cart.Clear(ctx)

	require.NoError(t, cart.Unsubscribe(fn))

	cart.AddItem(ctx, product(2, 10))

	mu.Lock()
	defer mu.Unlock()

	assert.Equal(t, []int{1, 2, 0}, counts)
}

func TestCartService_SubscriberMutatesCart(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cart := newCart(t, nil)

	const limit = 3

	var counts []int

	require.NoError(t, cart.Subscribe(func(state domain.CartState) {
		counts = append(counts, state.ItemCount)

		if state.ItemCount > limit {
			cart.UpdateQuantity(ctx, 1, limit)
		}
	}))

	done := make(chan struct{})

	go func() {
		defer close(done)

		for range limit + 1 {
			cart.AddItem(ctx, product(1, 10))
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("a subscriber that updates the cart blocked AddItem")
	}

	assert.Equal(t, limit, cart.QuantityOf(1))
	assert.Equal(t, []int{1, 2, 3, 4, 3}, counts)
}

func TestCartService_UnsubscribeKeepsOthers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cart := newCart(t, nil)

	var first, second int

	require.NoError(t, cart.Subscribe(func(domain.CartState) { first++ }))

	onSecond := func(domain.CartState) { second++ }
	require.NoError(t, cart.Subscribe(onSecond))

	cart.AddItem(ctx, product(1, 10))
	require.NoError(t, cart.Unsubscribe(onSecond))
	cart.AddItem(ctx, product(1, 10))

	assert.Equal(t, 2, first)
	assert.Equal(t, 1, second)
}

func TestCartService_Concurrent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cart := newCart(t, nil)

	var wg sync.WaitGroup

	for i := range 50 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			cart.AddItem(ctx, product(int64(i%5), 100))
		}()
	}

	wg.Wait()

	assert.Equal(t, 50, cart.ItemCount())
	assert.Len(t, cart.Lines(), 5)
	assertMoney(t, "5000", cart.Total())
}
