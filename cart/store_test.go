package cart

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/MrEthical07/hostelbites/storage"
)

func product(id int64, price float64, stock int) Product {
	return Product{ID: id, Name: "item", Description: "desc", Price: price, ImageURL: "img", Stock: stock}
}

func checkInvariants(t *testing.T, c Cart) {
	t.Helper()
	if c.Empty() != (c.SellerID == 0) {
		t.Fatalf("empty=%v but seller=%d", c.Empty(), c.SellerID)
	}
	for _, l := range c.Lines {
		if l.Quantity < 1 || l.Quantity > l.MaxQuantity {
			t.Fatalf("line %d has quantity %d outside 1..%d", l.ProductID, l.Quantity, l.MaxQuantity)
		}
	}
}

func TestAddItemSameSellerClampsAtStock(t *testing.T) {
	ctx := context.Background()
	s := NewStore(storage.NewMemory())

	p := product(1, 10, 3)
	for i := 0; i < 10; i++ {
		if err := s.AddItem(ctx, p, 7); err != nil {
			t.Fatalf("add: %v", err)
		}
		checkInvariants(t, s.Snapshot())
		if s.SellerID() != 7 {
			t.Fatalf("seller changed to %d", s.SellerID())
		}
	}
	c := s.Snapshot()
	if len(c.Lines) != 1 || c.Lines[0].Quantity != 3 {
		t.Fatalf("expected one line at cap 3, got %+v", c.Lines)
	}

	if err := s.AddItem(ctx, product(2, 5, 1), 7); err != nil {
		t.Fatalf("add second product: %v", err)
	}
	if got := len(s.Snapshot().Lines); got != 2 {
		t.Fatalf("expected 2 lines, got %d", got)
	}
}

func TestAddItemFromOtherSellerReplacesCart(t *testing.T) {
	ctx := context.Background()
	var switches []SellerSwitch
	s := NewStore(storage.NewMemory(), WithSellerSwitchHook(func(sw SellerSwitch) { switches = append(switches, sw) }))

	_ = s.AddItem(ctx, product(1, 10, 5), 1)
	_ = s.AddItem(ctx, product(1, 10, 5), 1)
	_ = s.AddItem(ctx, product(2, 20, 5), 1)
	if err := s.AddItem(ctx, product(9, 30, 4), 2); err != nil {
		t.Fatalf("add: %v", err)
	}

	c := s.Snapshot()
	want := Cart{SellerID: 2, Lines: []Line{{ProductID: 9, Name: "item", Description: "desc", UnitPrice: 30, ImageRef: "img", Quantity: 1, MaxQuantity: 4}}}
	if diff := cmp.Diff(want, c); diff != "" {
		t.Fatalf("cart mismatch (-want +got):\n%s", diff)
	}
	if len(switches) != 1 || switches[0].From != 1 || switches[0].To != 2 || switches[0].DroppedLines != 2 {
		t.Fatalf("unexpected switch events: %+v", switches)
	}
}

func TestAddItemRejectsOutOfStockAndBadSeller(t *testing.T) {
	ctx := context.Background()
	s := NewStore(storage.NewMemory())
	_ = s.AddItem(ctx, product(1, 10, 2), 1)
	before := s.Snapshot()

	if err := s.AddItem(ctx, product(2, 10, 0), 3); !errors.Is(err, ErrOutOfStock) {
		t.Fatalf("expected ErrOutOfStock, got %v", err)
	}
	if err := s.AddItem(ctx, product(2, 10, 2), 0); !errors.Is(err, ErrInvalidSeller) {
		t.Fatalf("expected ErrInvalidSeller, got %v", err)
	}
	if diff := cmp.Diff(before, s.Snapshot()); diff != "" {
		t.Fatalf("rejected add changed the cart:\n%s", diff)
	}
}

func TestUpdateQuantity(t *testing.T) {
	ctx := context.Background()
	s := NewStore(storage.NewMemory())
	_ = s.AddItem(ctx, product(1, 10, 5), 4)
	_ = s.AddItem(ctx, product(2, 10, 5), 4)

	s.UpdateQuantity(ctx, 1, 99)
	if got := s.Snapshot().Lines[0].Quantity; got != 5 {
		t.Fatalf("expected clamp to 5, got %d", got)
	}

	s.UpdateQuantity(ctx, 42, 3)
	if got := len(s.Snapshot().Lines); got != 2 {
		t.Fatalf("unknown product must be a no-op, got %d lines", got)
	}

	s.UpdateQuantity(ctx, 1, 0)
	c := s.Snapshot()
	if len(c.Lines) != 1 || c.Lines[0].ProductID != 2 || c.SellerID != 4 {
		t.Fatalf("expected only product 2 from seller 4, got %+v", c)
	}

	s.UpdateQuantity(ctx, 2, -3)
	c = s.Snapshot()
	if !c.Empty() || c.SellerID != 0 {
		t.Fatalf("removing the last line must clear the seller, got %+v", c)
	}
}

func TestRemoveAndClear(t *testing.T) {
	ctx := context.Background()
	s := NewStore(storage.NewMemory())
	_ = s.AddItem(ctx, product(1, 10, 5), 4)
	s.RemoveItem(ctx, 1)
	if c := s.Snapshot(); !c.Empty() || c.SellerID != 0 {
		t.Fatalf("expected empty cart, got %+v", c)
	}

	_ = s.AddItem(ctx, product(1, 10, 5), 4)
	_ = s.AddItem(ctx, product(2, 10, 5), 4)
	s.Clear(ctx)
	if c := s.Snapshot(); !c.Empty() || c.SellerID != 0 {
		t.Fatalf("expected empty cart after Clear, got %+v", c)
	}
}

func TestRemoveOrderedKeepsLaterAdditions(t *testing.T) {
	ctx := context.Background()
	blobs := storage.NewMemory()
	s := NewStore(blobs)
	_ = s.AddItem(ctx, product(1, 10, 5), 4)
	_ = s.AddItem(ctx, product(2, 20, 5), 4)
	ordered := s.Snapshot()

	// added while the order was in flight
	_ = s.AddItem(ctx, product(1, 10, 5), 4)
	_ = s.AddItem(ctx, product(3, 5, 5), 4)

	s.RemoveOrdered(ctx, ordered)
	got := s.Snapshot()
	want := Cart{SellerID: 4, Lines: []Line{
		{ProductID: 1, Name: "item", Description: "desc", UnitPrice: 10, ImageRef: "img", Quantity: 1, MaxQuantity: 5},
		{ProductID: 3, Name: "item", Description: "desc", UnitPrice: 5, ImageRef: "img", Quantity: 1, MaxQuantity: 5},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("cart after RemoveOrdered (-want +got):\n%s", diff)
	}
	checkInvariants(t, got)

	reloaded := NewStore(blobs)
	reloaded.Load(ctx)
	if diff := cmp.Diff(want, reloaded.Snapshot()); diff != "" {
		t.Fatalf("persisted cart (-want +got):\n%s", diff)
	}

	s.RemoveOrdered(ctx, got)
	if c := s.Snapshot(); !c.Empty() || c.SellerID != 0 {
		t.Fatalf("removing every ordered line must empty the cart, got %+v", c)
	}
}

func TestRemoveOrderedIgnoresSwitchedSeller(t *testing.T) {
	ctx := context.Background()
	s := NewStore(storage.NewMemory())
	_ = s.AddItem(ctx, product(1, 10, 5), 4)
	ordered := s.Snapshot()
	_ = s.AddItem(ctx, product(1, 10, 5), 9)

	s.RemoveOrdered(ctx, ordered)
	if c := s.Snapshot(); c.SellerID != 9 || len(c.Lines) != 1 {
		t.Fatalf("cart from another seller must be left alone, got %+v", c)
	}
}

func TestTotalAmountMatchesRecomputationUnderRandomOps(t *testing.T) {
	ctx := context.Background()
	s := NewStore(storage.NewMemory())
	rng := rand.New(rand.NewSource(42))

	catalogue := []Product{
		product(1, 12.5, 3), product(2, 40, 1), product(3, 7.25, 10), product(4, 99.99, 2),
	}

	for i := 0; i < 2000; i++ {
		p := catalogue[rng.Intn(len(catalogue))]
		switch rng.Intn(5) {
		case 0, 1:
			_ = s.AddItem(ctx, p, int64(1+rng.Intn(2)))
		case 2:
			s.UpdateQuantity(ctx, p.ID, rng.Intn(14)-2)
		case 3:
			s.RemoveItem(ctx, p.ID)
		case 4:
			if rng.Intn(10) == 0 {
				s.Clear(ctx)
			}
		}

		c := s.Snapshot()
		checkInvariants(t, c)
		var want float64
		for _, l := range c.Lines {
			want += l.UnitPrice * float64(l.Quantity)
		}
		if got := s.TotalAmount(); math.Abs(got-want) > 1e-9 {
			t.Fatalf("step %d: total %v, recomputed %v", i, got, want)
		}
	}
}

func TestPersistAndReload(t *testing.T) {
	ctx := context.Background()
	blobs := storage.NewMemory()
	s := NewStore(blobs)
	_ = s.AddItem(ctx, product(1, 10, 5), 3)
	_ = s.AddItem(ctx, product(2, 20, 5), 3)
	_ = s.AddItem(ctx, product(3, 30, 5), 3)
	s.UpdateQuantity(ctx, 2, 4)

	reloaded := NewStore(blobs)
	reloaded.Load(ctx)

	if diff := cmp.Diff(s.Snapshot(), reloaded.Snapshot()); diff != "" {
		t.Fatalf("reloaded cart differs (-want +got):\n%s", diff)
	}
}

func TestPersistedBlobFormat(t *testing.T) {
	ctx := context.Background()
	blobs := storage.NewMemory()
	s := NewStore(blobs)
	_ = s.AddItem(ctx, product(1, 10, 5), 3)

	seller, err := blobs.Get(ctx, SellerKey)
	if err != nil || string(seller) != "3" {
		t.Fatalf("expected seller blob 3, got %q %v", seller, err)
	}

	s.Clear(ctx)
	seller, _ = blobs.Get(ctx, SellerKey)
	items, _ := blobs.Get(ctx, ItemsKey)
	if string(seller) != "null" || string(items) != "[]" {
		t.Fatalf("expected null and [], got %q and %q", seller, items)
	}
}

func TestLoadNormalizesPersistedState(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name   string
		items  string
		seller string
		want   Cart
	}{
		{
			name:   "clamps and drops zero lines",
			items:  `[{"productId":1,"price":5,"qtyInCart":9,"maxQuantity":2},{"productId":2,"price":5,"qtyInCart":0,"maxQuantity":2}]`,
			seller: `4`,
			want:   Cart{SellerID: 4, Lines: []Line{{ProductID: 1, UnitPrice: 5, Quantity: 2, MaxQuantity: 2}}},
		},
		{
			name:   "seller without lines is cleared",
			items:  `[]`,
			seller: `4`,
			want:   Cart{},
		},
		{
			name:   "lines without seller are dropped",
			items:  `[{"productId":1,"price":5,"qtyInCart":1,"maxQuantity":2}]`,
			seller: `null`,
			want:   Cart{},
		},
		{
			name:   "unreadable items are treated as absent",
			items:  `{not json`,
			seller: `4`,
			want:   Cart{},
		},
		{
			name:   "unreadable seller is treated as absent",
			items:  `[{"productId":1,"price":5,"qtyInCart":1,"maxQuantity":2}]`,
			seller: `"abc"`,
			want:   Cart{},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			blobs := storage.NewMemory()
			_ = blobs.Set(ctx, ItemsKey, []byte(tc.items))
			_ = blobs.Set(ctx, SellerKey, []byte(tc.seller))

			s := NewStore(blobs)
			s.Load(ctx)
			if diff := cmp.Diff(tc.want, s.Snapshot()); diff != "" {
				t.Fatalf("loaded cart mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

type failingBlobs struct{}

func (failingBlobs) Get(context.Context, string) ([]byte, error) { return nil, storage.ErrUnavailable }
func (failingBlobs) Set(context.Context, string, []byte) error   { return storage.ErrUnavailable }
func (failingBlobs) Delete(context.Context, string) error        { return storage.ErrUnavailable }
func (failingBlobs) Close() error                                { return nil }

func TestPersistenceFailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	s := NewStore(failingBlobs{})
	s.Load(ctx)

	if err := s.AddItem(ctx, product(1, 10, 5), 3); err != nil {
		t.Fatalf("storage failure must not surface: %v", err)
	}
	if got := s.Snapshot(); len(got.Lines) != 1 || got.SellerID != 3 {
		t.Fatalf("in-memory cart must stay authoritative, got %+v", got)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	ctx := context.Background()
	s := NewStore(storage.NewMemory())
	_ = s.AddItem(ctx, product(1, 10, 5), 3)

	snap := s.Snapshot()
	snap.Lines[0].Quantity = 99
	if s.Snapshot().Lines[0].Quantity != 1 {
		t.Fatal("mutating a snapshot must not affect the store")
	}
}
