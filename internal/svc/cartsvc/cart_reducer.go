package cartsvc

import (
	"slices"

	"github.com/mkrupp/storefront/internal/domain"
)

type actionKind int

const (
	actionLoad actionKind = iota
	actionAdd
	actionRemove
	actionUpdateQuantity
	actionClear
	actionSetError
	actionClearError
	actionSubtract
)

func (k actionKind) String() string {
	switch k {
	case actionLoad:
		return "load"
	case actionAdd:
		return "add"
	case actionRemove:
		return "remove"
	case actionUpdateQuantity:
		return "update_quantity"
	case actionClear:
		return "clear"
	case actionSetError:
		return "set_error"
	case actionClearError:
		return "clear_error"
	case actionSubtract:
		return "subtract"
	default:
		return "unknown"
	}
}

type action struct {
	kind     actionKind
	product  domain.Product    // actionAdd
	id       domain.ProductID  // actionRemove, actionUpdateQuantity
	quantity int               // actionUpdateQuantity
	lines    []domain.CartLine // actionLoad
	message  string            // actionSetError
	ordered  []domain.OrderLine // actionSubtract
}

// reduce computes the next state. It never mutates state.Lines in place and
// leaves the derived fields to withTotals.
func reduce(state domain.CartState, a action) domain.CartState {
	switch a.kind {
	case actionLoad:
		state.Lines = slices.Clone(a.lines)
		state.Error = ""
	case actionAdd:
		idx := indexOf(state.Lines, a.product.ID)
		if idx >= 0 {
			lines := slices.Clone(state.Lines)
			lines[idx].Quantity++
			state.Lines = lines
		} else {
			state.Lines = append(slices.Clip(state.Lines), domain.NewCartLine(a.product))
		}

		state.Error = ""
	case actionRemove:
		if idx := indexOf(state.Lines, a.id); idx >= 0 {
			state.Lines = slices.Delete(slices.Clone(state.Lines), idx, idx+1)
		}
	case actionUpdateQuantity:
		if idx := indexOf(state.Lines, a.id); idx >= 0 {
			lines := slices.Clone(state.Lines)
			lines[idx].Quantity = a.quantity
			state.Lines = lines
		}
	case actionClear:
		state.Lines = nil
		state.Error = ""
	case actionSetError:
		state.Error = a.message
	case actionClearError:
		state.Error = ""
	case actionSubtract:
		state.Lines = subtract(state.Lines, a.ordered)
		state.Error = ""
	}

	return state
}

// subtract takes the ordered quantities off the matching lines and drops
// lines left with nothing. Lines that were not ordered are kept as they are.
func subtract(lines []domain.CartLine, ordered []domain.OrderLine) []domain.CartLine {
	taken := make(map[domain.ProductID]int, len(ordered))
	for _, line := range ordered {
		taken[line.ID] += line.Quantity
	}

	next := make([]domain.CartLine, 0, len(lines))

	for _, line := range lines {
		line.Quantity -= taken[line.ID]
		if line.Quantity > 0 {
			next = append(next, line)
		}
	}

	return next
}

// withTotals recomputes ItemCount and Total from Lines.
func withTotals(state domain.CartState) domain.CartState {
	state.ItemCount = 0
	state.Total = domain.Zero

	for _, line := range state.Lines {
		state.ItemCount += line.Quantity
		state.Total = state.Total.Add(line.Subtotal())
	}

	return state
}

func indexOf(lines []domain.CartLine, id domain.ProductID) int {
	return slices.IndexFunc(lines, func(line domain.CartLine) bool {
		return line.ID == id
	})
}

func linesEqual(a, b []domain.CartLine) bool {
	return slices.EqualFunc(a, b, func(x, y domain.CartLine) bool {
		return x.ID == y.ID &&
			x.Name == y.Name &&
			x.Quantity == y.Quantity &&
			x.ImageRef == y.ImageRef &&
			x.UnitPrice.Equal(y.UnitPrice)
	})
}
