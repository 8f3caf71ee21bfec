package cartsvc

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mkrupp/storefront/internal/domain"
)

func TestReduceDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	line := domain.CartLine{ID: 1, Name: "a", UnitPrice: decimal.NewFromInt(10), Quantity: 1}
	state := withTotals(domain.CartState{Lines: []domain.CartLine{line}})

	tests := []struct {
		name string
		a    action
	}{
		{"add existing", action{kind: actionAdd, product: domain.Product{ID: 1, Price: decimal.NewFromInt(10)}}},
		{"add new", action{kind: actionAdd, product: domain.Product{ID: 2, Price: decimal.NewFromInt(5)}}},
		{"update", action{kind: actionUpdateQuantity, id: 1, quantity: 9}},
		{"remove", action{kind: actionRemove, id: 1}},
		{"clear", action{kind: actionClear}},
		{"subtract", action{kind: actionSubtract, ordered: []domain.OrderLine{{ID: 1, Quantity: 1}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_ = reduce(state, tt.a)

			if len(state.Lines) != 1 || state.Lines[0].Quantity != 1 {
				t.Errorf("reduce(%s) mutated the input: %+v", tt.a.kind, state.Lines)
			}
		})
	}
}

func TestWithTotals(t *testing.T) {
	t.Parallel()

	state := withTotals(domain.CartState{Lines: []domain.CartLine{
		{ID: 1, UnitPrice: decimal.RequireFromString("9.99"), Quantity: 3},
		{ID: 2, UnitPrice: decimal.NewFromInt(100), Quantity: 1},
	}})

	if state.ItemCount != 4 {
		t.Errorf("ItemCount = %d, want 4", state.ItemCount)
	}

	if want := decimal.RequireFromString("129.97"); !state.Total.Equal(want) {
		t.Errorf("Total = %s, want %s", state.Total, want)
	}
}

func TestReduceSetAndClearError(t *testing.T) {
	t.Parallel()

	state := reduce(domain.CartState{}, action{kind: actionSetError, message: "boom"})
	if state.Error != "boom" {
		t.Fatalf("Error = %q", state.Error)
	}

	if state = reduce(state, action{kind: actionClearError}); state.Error != "" {
		t.Errorf("Error = %q after clear", state.Error)
	}
}

func TestReduceSubtract(t *testing.T) {
	t.Parallel()

	state := domain.CartState{Lines: []domain.CartLine{
		{ID: 1, UnitPrice: decimal.NewFromInt(10), Quantity: 3},
		{ID: 2, UnitPrice: decimal.NewFromInt(20), Quantity: 1},
		{ID: 3, UnitPrice: decimal.NewFromInt(30), Quantity: 2},
	}, Error: "stale"}

	got := withTotals(reduce(state, action{kind: actionSubtract, ordered: []domain.OrderLine{
		{ID: 1, Quantity: 2},
		{ID: 2, Quantity: 1},
		{ID: 4, Quantity: 5},
	}}))

	want := []domain.CartLine{
		{ID: 1, UnitPrice: decimal.NewFromInt(10), Quantity: 1},
		{ID: 3, UnitPrice: decimal.NewFromInt(30), Quantity: 2},
	}

	if !linesEqual(got.Lines, want) {
		t.Errorf("subtract lines = %+v, want %+v", got.Lines, want)
	}

	if got.ItemCount != 3 || !got.Total.Equal(decimal.NewFromInt(70)) {
		t.Errorf("subtract totals = %d / %s, want 3 / 70", got.ItemCount, got.Total)
	}

	if got.Error != "" {
		t.Errorf("subtract kept error %q", got.Error)
	}
}
