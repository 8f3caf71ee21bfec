package cartsvc

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/mkrupp/storefront/internal/domain"
	"github.com/mkrupp/storefront/internal/infra/events"
	"github.com/mkrupp/storefront/internal/infra/logging"
	"github.com/mkrupp/storefront/internal/repo/kv"
)

// TopicCartChanged is published with the new domain.CartState after every dispatch.
const TopicCartChanged = "cart:changed"

// Messages reported to the view layer.
const (
	MsgItemAdded       = "Producto agregado al carrito"
	MsgItemRemoved     = "Producto eliminado del carrito"
	MsgQuantityUpdated = "Cantidad actualizada"
	MsgCartCleared     = "Carrito vaciado"
	MsgLoadFailed      = "Error al cargar el carrito"
	MsgSaveFailed      = "Error al guardar el carrito"
)

// CartService is the single source of truth for the shopping cart. Every
// mutation goes through the reducer, recomputes the derived totals, writes
// the lines to the kv repository and notifies subscribers.
type CartService struct {
	Config CartConfig
	Repo   kv.Repository
	Log    logging.Logger

	bus   *events.Bus
	mu    sync.Mutex
	state domain.CartState
}

// NewCartService creates the cart and restores the persisted lines from repo.
// A missing key yields an empty cart. Malformed data is discarded and
// reported through CartState.Error; it never fails construction.
// If bus is nil a private bus is created.
func NewCartService(ctx context.Context, repo kv.Repository, cfg CartConfig, bus *events.Bus) *CartService {
	if bus == nil {
		bus = events.NewBus()
	}

	svc := &CartService{
		Config: cfg,
		Repo:   repo,
		Log:    logging.GetLogger("svc.cartsvc.cart_service"),
		bus:    bus,
		state:  withTotals(domain.CartState{}),
	}

	svc.load(ctx)

	return svc
}

func (s *CartService) load(ctx context.Context) {
	log := s.Log.With(logging.Group("kv", "key", s.Config.StorageKey))

	data, found, err := s.Repo.Get(ctx, s.Config.StorageKey)
	if err != nil {
		log.ErrorContext(ctx, "load cart failed", "error", err)
		s.dispatch(ctx, action{kind: actionSetError, message: MsgLoadFailed})

		return
	}

	if !found {
		log.DebugContext(ctx, "no persisted cart")

		return
	}

	lines, err := decodeLines(data)
	if err != nil {
		log.WarnContext(ctx, "discarding malformed cart", "error", err)

		if err := s.Repo.Remove(ctx, s.Config.StorageKey); err != nil {
			log.ErrorContext(ctx, "remove malformed cart failed", "error", err)
		}

		s.dispatch(ctx, action{kind: actionSetError, message: MsgLoadFailed})

		return
	}

	s.dispatch(ctx, action{kind: actionLoad, lines: lines})

	log.DebugContext(ctx, "cart restored", "lines", len(lines))
}

func decodeLines(data []byte) ([]domain.CartLine, error) {
	var lines []domain.CartLine

	if err := json.Unmarshal(data, &lines); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMalformedCart, err)
	}

	if err := domain.ValidateCartLines(lines); err != nil {
		return nil, err
	}

	return lines, nil
}

// dispatch applies a to the state, persists the lines if they changed and
// posts the resulting snapshot. Subscribers run once the lock is released.
func (s *CartService) dispatch(ctx context.Context, a action) domain.CartState {
	s.mu.Lock()

	prev := s.state
	next := withTotals(reduce(prev, a))

	persist := a.kind != actionLoad && (a.kind == actionClear || !linesEqual(prev.Lines, next.Lines))
	if persist {
		if err := s.persist(ctx, next.Lines); err != nil {
			s.Log.ErrorContext(ctx, "save cart failed", "action", a.kind.String(), "error", err)
			next.Error = MsgSaveFailed
		}
	}

	s.state = next
	snapshot := s.snapshotLocked()
	s.bus.Post(TopicCartChanged, snapshot)

	s.mu.Unlock()

	s.bus.Deliver()

	return snapshot
}

func (s *CartService) persist(ctx context.Context, lines []domain.CartLine) error {
	if len(lines) == 0 {
		//nolint:wrapcheck
		return s.Repo.Remove(ctx, s.Config.StorageKey)
	}

	data, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}

	//nolint:wrapcheck
	return s.Repo.Set(ctx, s.Config.StorageKey, data)
}

func (s *CartService) snapshotLocked() domain.CartState {
	snapshot := s.state
	snapshot.Lines = slices.Clone(s.state.Lines)

	if snapshot.Lines == nil {
		snapshot.Lines = []domain.CartLine{}
	}

	return snapshot
}

// AddItem adds one unit of product, creating the line if needed.
func (s *CartService) AddItem(ctx context.Context, product domain.Product) domain.OperationResult {
	s.dispatch(ctx, action{kind: actionAdd, product: product})

	s.Log.DebugContext(ctx, "item added", logging.Group("product", "id", product.ID, "name", product.Name))

	return domain.OperationResult{Success: true, Message: MsgItemAdded}
}

// RemoveItem deletes the line for id. Unknown ids are a no-op.
func (s *CartService) RemoveItem(ctx context.Context, id domain.ProductID) domain.OperationResult {
	s.dispatch(ctx, action{kind: actionRemove, id: id})

	s.Log.DebugContext(ctx, "item removed", logging.Group("product", "id", id))

	return domain.OperationResult{Success: true, Message: MsgItemRemoved}
}

// UpdateQuantity sets the quantity of the line for id. A quantity of zero
// or less removes the line. Unknown ids are a no-op.
func (s *CartService) UpdateQuantity(ctx context.Context, id domain.ProductID, quantity int) domain.OperationResult {
	if quantity <= 0 {
		return s.RemoveItem(ctx, id)
	}

	s.dispatch(ctx, action{kind: actionUpdateQuantity, id: id, quantity: quantity})

	s.Log.DebugContext(ctx, "quantity updated", logging.Group("product", "id", id, "quantity", quantity))

	return domain.OperationResult{Success: true, Message: MsgQuantityUpdated}
}

// Clear empties the cart and removes the persisted key.
func (s *CartService) Clear(ctx context.Context) domain.OperationResult {
	s.dispatch(ctx, action{kind: actionClear})

	s.Log.DebugContext(ctx, "cart cleared")

	return domain.OperationResult{Success: true, Message: MsgCartCleared}
}

// RemoveOrdered takes the quantities of a placed order off the cart. Units
// added after the order was assembled stay in the cart.
func (s *CartService) RemoveOrdered(ctx context.Context, ordered []domain.OrderLine) domain.OperationResult {
	state := s.dispatch(ctx, action{kind: actionSubtract, ordered: ordered})

	s.Log.DebugContext(ctx, "ordered items removed", "lines", len(ordered), "remaining", state.ItemCount)

	return domain.OperationResult{Success: true, Message: MsgCartCleared}
}

// ClearError resets the error message without touching the lines.
func (s *CartService) ClearError(ctx context.Context) {
	s.dispatch(ctx, action{kind: actionClearError})
}

// State returns a snapshot of the cart.
func (s *CartService) State() domain.CartState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshotLocked()
}

// Lines returns a copy of the cart lines in insertion order.
func (s *CartService) Lines() []domain.CartLine {
	return s.State().Lines
}

// ItemCount returns the sum of all quantities.
func (s *CartService) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state.ItemCount
}

// Total returns the sum of all line subtotals.
func (s *CartService) Total() domain.Money {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state.Total
}

// IsInCart reports whether a line exists for id.
func (s *CartService) IsInCart(id domain.ProductID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return indexOf(s.state.Lines, id) >= 0
}

// QuantityOf returns the quantity of the line for id, or 0.
func (s *CartService) QuantityOf(id domain.ProductID) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idx := indexOf(s.state.Lines, id); idx >= 0 {
		return s.state.Lines[idx].Quantity
	}

	return 0
}

// DiscountFor returns the discount amount granted to email on the current total.
// Only emails ending in the configured domain (case-insensitive) qualify.
func (s *CartService) DiscountFor(email string) domain.Money {
	if !s.qualifies(email) {
		return domain.Zero
	}

	return s.Total().Mul(decimal.NewFromFloat(s.Config.DiscountRate))
}

// TotalWithDiscount returns the total minus DiscountFor(email).
func (s *CartService) TotalWithDiscount(email string) domain.Money {
	total := s.Total()

	if !s.qualifies(email) {
		return total
	}

	return total.Sub(total.Mul(decimal.NewFromFloat(s.Config.DiscountRate)))
}

func (s *CartService) qualifies(email string) bool {
	suffix := strings.ToLower(strings.TrimSpace(s.Config.DiscountDomain))
	if suffix == "" {
		return false
	}

	return strings.HasSuffix(strings.ToLower(strings.TrimSpace(email)), suffix)
}

// Subscribe registers fn to receive every new state, in order. fn may
// mutate the cart or any other store on the same bus; those changes are
// delivered after fn returns. fn must not call Subscribe or Unsubscribe.
func (s *CartService) Subscribe(fn func(domain.CartState)) error {
	//nolint:wrapcheck
	return s.bus.Subscribe(TopicCartChanged, fn)
}

// Unsubscribe removes a function previously passed to Subscribe. Functions
// are matched by code pointer: closures created by the same function
// literal cannot be told apart, so pass a distinct named func or method
// value to unsubscribe reliably.
func (s *CartService) Unsubscribe(fn func(domain.CartState)) error {
	//nolint:wrapcheck
	return s.bus.Unsubscribe(TopicCartChanged, fn)
}
