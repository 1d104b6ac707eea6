package cart

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/MrEthical07/hostelbites/storage"
)

const (
	// ItemsKey holds the JSON line array.
	ItemsKey = "hostel-snacker-cart-items"
	// SellerKey holds the JSON seller id, or null.
	SellerKey = "hostel-snacker-current-seller"
)

// SellerSwitch describes a cart replaced by a product from another seller.
type SellerSwitch struct {
	From         int64
	To           int64
	DroppedLines int
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. Defaults to zap.NewNop().
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSellerSwitchHook is called, outside the lock, whenever AddItem replaces
// a non-empty cart from another seller.
func WithSellerSwitchHook(fn func(SellerSwitch)) Option {
	return func(s *Store) {
		s.onSwitch = fn
	}
}

// Store is the mutex-guarded cart state machine.
type Store struct {
	blobs    storage.Store
	logger   *zap.Logger
	onSwitch func(SellerSwitch)

	mu   sync.Mutex
	cart Cart
}

// NewStore returns an empty cart persisting into blobs.
func NewStore(blobs storage.Store, opts ...Option) *Store {
	s := &Store{blobs: blobs, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the in-memory cart with the persisted blobs. Unreadable blobs
// are treated as absent and the result is normalized to the cart invariants.
func (s *Store) Load(ctx context.Context) {
	var loaded Cart

	if raw, ok := s.read(ctx, ItemsKey); ok {
		if err := json.Unmarshal(raw, &loaded.Lines); err != nil {
			s.logger.Warn("cart load: discarding unreadable items", zap.Error(err))
			loaded.Lines = nil
		}
	}
	if raw, ok := s.read(ctx, SellerKey); ok {
		var seller *int64
		if err := json.Unmarshal(raw, &seller); err != nil {
			s.logger.Warn("cart load: discarding unreadable seller", zap.Error(err))
		} else if seller != nil {
			loaded.SellerID = *seller
		}
	}

	normalized, changed := normalize(loaded)
	if changed {
		s.logger.Info("cart load: normalized persisted cart",
			zap.Int("lines_before", len(loaded.Lines)),
			zap.Int("lines_after", len(normalized.Lines)),
		)
	}

	s.mu.Lock()
	s.cart = normalized
	if changed {
		s.persistLocked(ctx)
	}
	s.mu.Unlock()
}

func (s *Store) read(ctx context.Context, key string) ([]byte, bool) {
	raw, err := s.blobs.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("cart load: read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return raw, true
}

// AddItem adds one unit of product from sellerID. An empty cart or a different
// seller replaces the cart; a product already present is incremented unless at
// its cap.
func (s *Store) AddItem(ctx context.Context, product Product, sellerID int64) error {
	if sellerID <= 0 {
		return ErrInvalidSeller
	}
	if product.Stock < 1 {
		return ErrOutOfStock
	}

	var switched *SellerSwitch

	s.mu.Lock()
	switch {
	case s.cart.SellerID != sellerID:
		if !s.cart.Empty() {
			switched = &SellerSwitch{From: s.cart.SellerID, To: sellerID, DroppedLines: len(s.cart.Lines)}
		}
		s.cart = Cart{SellerID: sellerID, Lines: []Line{newLine(product)}}
	default:
		idx := s.indexLocked(product.ID)
		if idx < 0 {
			s.cart.Lines = append(s.cart.Lines, newLine(product))
			break
		}
		line := &s.cart.Lines[idx]
		line.MaxQuantity = product.Stock
		if line.Quantity+1 <= line.MaxQuantity {
			line.Quantity++
		} else if line.Quantity > line.MaxQuantity {
			line.Quantity = line.MaxQuantity
		}
	}
	s.persistLocked(ctx)
	s.mu.Unlock()

	if switched != nil {
		s.logger.Info("cart replaced by product from another seller",
			zap.Int64("from_seller_id", switched.From),
			zap.Int64("to_seller_id", switched.To),
			zap.Int("dropped_lines", switched.DroppedLines),
		)
		if s.onSwitch != nil {
			s.onSwitch(*switched)
		}
	}
	return nil
}

func newLine(p Product) Line {
	return Line{
		ProductID:   p.ID,
		Name:        p.Name,
		Description: p.Description,
		UnitPrice:   p.Price,
		ImageRef:    p.ImageURL,
		Quantity:    1,
		MaxQuantity: p.Stock,
	}
}

// UpdateQuantity sets a line's quantity, clamped to its stock. A quantity
// below one removes the line. Unknown products are ignored.
func (s *Store) UpdateQuantity(ctx context.Context, productID int64, qty int) {
	if qty < 1 {
		s.RemoveItem(ctx, productID)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(productID)
	if idx < 0 {
		return
	}
	s.cart.Lines[idx].Quantity = min(qty, s.cart.Lines[idx].MaxQuantity)
	s.persistLocked(ctx)
}

// RemoveItem drops a line. Removing the last line clears the seller.
func (s *Store) RemoveItem(ctx context.Context, productID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(productID)
	if idx < 0 {
		return
	}
	s.cart.Lines = append(s.cart.Lines[:idx], s.cart.Lines[idx+1:]...)
	if len(s.cart.Lines) == 0 {
		s.cart = Cart{}
	}
	s.persistLocked(ctx)
}

// Clear empties the cart.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart = Cart{}
	s.persistLocked(ctx)
}

// RemoveOrdered takes the quantities in ordered out of the cart, dropping
// lines that reach zero. Lines added after ordered was snapshotted survive;
// a cart that has since switched seller is left alone.
func (s *Store) RemoveOrdered(ctx context.Context, ordered Cart) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cart.SellerID != ordered.SellerID {
		return
	}
	for _, o := range ordered.Lines {
		i := s.indexLocked(o.ProductID)
		if i < 0 {
			continue
		}
		if s.cart.Lines[i].Quantity <= o.Quantity {
			s.cart.Lines = append(s.cart.Lines[:i], s.cart.Lines[i+1:]...)
			continue
		}
		s.cart.Lines[i].Quantity -= o.Quantity
	}
	if len(s.cart.Lines) == 0 {
		s.cart = Cart{}
	}
	s.persistLocked(ctx)
}

// TotalAmount recomputes the cart total.
func (s *Store) TotalAmount() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.TotalAmount()
}

// Snapshot returns a deep copy of the cart.
func (s *Store) Snapshot() Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.clone()
}

// SellerID returns the cart's seller, 0 when empty.
func (s *Store) SellerID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.SellerID
}

func (s *Store) indexLocked(productID int64) int {
	for i, l := range s.cart.Lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}

func (s *Store) persistLocked(ctx context.Context) {
	lines := s.cart.Lines
	if lines == nil {
		lines = []Line{}
	}
	items, err := json.Marshal(lines)
	if err != nil {
		s.logger.Error("cart persist: encode items", zap.Error(err))
	} else if err := s.blobs.Set(ctx, ItemsKey, items); err != nil {
		s.logger.Warn("cart persist: write items failed", zap.Error(err))
	}

	var seller *int64
	if s.cart.SellerID != 0 {
		id := s.cart.SellerID
		seller = &id
	}
	sellerBlob, err := json.Marshal(seller)
	if err != nil {
		s.logger.Error("cart persist: encode seller", zap.Error(err))
		return
	}
	if err := s.blobs.Set(ctx, SellerKey, sellerBlob); err != nil {
		s.logger.Warn("cart persist: write seller failed", zap.Error(err))
	}
}
