package devserver

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/MrEthical07/hostelbites/api"
)

var (
	errNotFound          = errors.New("not found")
	errEmailTaken        = errors.New("email already registered")
	errInsufficientStock = errors.New("quantity exceeds stock")
	errNotListed         = errors.New("product not listed by seller")
	errPriceMismatch     = errors.New("price does not match current listing")
	errNotAccepted       = errors.New("order must be accepted before it is completed")
	errEmptyOrder        = errors.New("order has no products")
)

type user struct {
	api.SellerInfo
	PasswordHash string
	Role         string
}

type orderLine struct {
	productID int64
	quantity  int
	price     float64
}

type order struct {
	id        int64
	ref       string
	userID    int64
	sellerID  int64
	price     float64
	accepted  bool
	completed bool
	lines     []orderLine
}

// marketplace is the in-memory state behind every handler.
type marketplace struct {
	mu sync.Mutex

	users    map[int64]*user
	byEmail  map[string]int64
	products map[int64]api.Product
	// listings[seller][product] is the seller's stock.
	listings map[int64]map[int64]int
	orders   []*order

	nextUserID    int64
	nextProductID int64
	nextOrderID   int64
}

func newMarketplace() *marketplace {
	return &marketplace{
		users:         map[int64]*user{},
		byEmail:       map[string]int64{},
		products:      map[int64]api.Product{},
		listings:      map[int64]map[int64]int{},
		nextUserID:    1,
		nextProductID: 1,
		nextOrderID:   1,
	}
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (m *marketplace) addUser(u user) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := emailKey(u.Email)
	if _, ok := m.byEmail[key]; ok {
		return 0, errEmailTaken
	}
	u.UserID = m.nextUserID
	m.nextUserID++
	m.users[u.UserID] = &u
	m.byEmail[key] = u.UserID
	return u.UserID, nil
}

func (m *marketplace) userByEmail(email string) (user, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byEmail[emailKey(email)]
	if !ok {
		return user{}, false
	}
	return *m.users[id], true
}

func (m *marketplace) profile(id int64) (api.SellerInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return api.SellerInfo{}, errNotFound
	}
	return u.SellerInfo, nil
}

func (m *marketplace) updateProfile(id int64, upd api.ProfileUpdate) (api.SellerInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return api.SellerInfo{}, errNotFound
	}
	if upd.Username != "" {
		u.Username = upd.Username
	}
	if upd.PhoneNo != "" {
		u.PhoneNo = upd.PhoneNo
	}
	if upd.HostelName != "" {
		u.HostelName = upd.HostelName
	}
	if upd.RoomNumber != "" {
		u.RoomNumber = upd.RoomNumber
	}
	if upd.Location != nil {
		u.Location = upd.Location
	}
	if upd.ProfileImage != nil {
		u.ProfileImage = upd.ProfileImage
	}
	return u.SellerInfo, nil
}

func (m *marketplace) addProduct(p api.Product) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ProductID = m.nextProductID
	p.Quantity = 0
	m.nextProductID++
	m.products[p.ProductID] = p
	return p.ProductID
}

func (m *marketplace) catalogue() []api.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]api.Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p)
	}
	sortProducts(out)
	return out
}

// sellersOf lists sellers holding stock of productID.
func (m *marketplace) sellersOf(productID int64) []api.SellerInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []api.SellerInfo{}
	for sellerID, stock := range m.listings {
		qty, ok := stock[productID]
		if !ok || qty < 1 {
			continue
		}
		if u, ok := m.users[sellerID]; ok {
			info := u.SellerInfo
			info.Quantity = qty
			out = append(out, info)
		}
	}
	slices.SortFunc(out, func(a, b api.SellerInfo) int { return int(a.UserID - b.UserID) })
	return out
}

// listed returns the seller's products with their stock in Quantity.
func (m *marketplace) listed(sellerID int64) []api.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []api.Product{}
	for productID, qty := range m.listings[sellerID] {
		p, ok := m.products[productID]
		if !ok {
			continue
		}
		p.Quantity = qty
		out = append(out, p)
	}
	sortProducts(out)
	return out
}

func (m *marketplace) unlisted(sellerID int64) []api.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []api.Product{}
	for id, p := range m.products {
		if _, ok := m.listings[sellerID][id]; !ok {
			out = append(out, p)
		}
	}
	sortProducts(out)
	return out
}

func (m *marketplace) list(sellerID int64, productIDs []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range productIDs {
		if _, ok := m.products[id]; !ok {
			return fmt.Errorf("product %d: %w", id, errNotFound)
		}
	}
	stock := m.listings[sellerID]
	if stock == nil {
		stock = map[int64]int{}
		m.listings[sellerID] = stock
	}
	for _, id := range productIDs {
		if _, ok := stock[id]; !ok {
			stock[id] = 0
		}
	}
	return nil
}

func (m *marketplace) unlist(sellerID, productID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.listings[sellerID][productID]; !ok {
		return errNotListed
	}
	delete(m.listings[sellerID], productID)
	return nil
}

func (m *marketplace) setStock(sellerID, productID int64, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.listings[sellerID][productID]; !ok {
		return errNotListed
	}
	m.listings[sellerID][productID] = qty
	return nil
}

// placeOrder checks every line against the seller's stock and the quoted
// price, then decrements stock atomically.
func (m *marketplace) placeOrder(req api.OrderRequest) (*order, error) {
	if len(req.ProductIDs) == 0 || len(req.ProductIDs) != len(req.Quantities) {
		return nil, errEmptyOrder
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[req.SellerID]; !ok {
		return nil, fmt.Errorf("seller %d: %w", req.SellerID, errNotFound)
	}
	stock := m.listings[req.SellerID]
	// a product may appear on several lines; stock covers their sum
	wanted := make(map[int64]int, len(req.ProductIDs))
	lines := make([]orderLine, 0, len(req.ProductIDs))
	var total float64
	for i, id := range req.ProductIDs {
		qty := req.Quantities[i]
		have, ok := stock[id]
		if !ok {
			return nil, fmt.Errorf("product %d: %w", id, errNotListed)
		}
		wanted[id] += qty
		if qty < 1 || wanted[id] > have {
			return nil, fmt.Errorf("product %d: %w", id, errInsufficientStock)
		}
		p := m.products[id]
		lines = append(lines, orderLine{productID: id, quantity: qty, price: p.Price})
		total += p.Price * float64(qty)
	}
	if math.Abs(math.Round(total*100)/100-req.Price) > 0.005 {
		return nil, errPriceMismatch
	}

	for _, l := range lines {
		stock[l.productID] -= l.quantity
	}
	o := &order{
		id:       m.nextOrderID,
		ref:      "HB-" + strings.ToUpper(uuid.NewString()[:8]),
		userID:   req.UserID,
		sellerID: req.SellerID,
		price:    req.Price,
		lines:    lines,
	}
	m.nextOrderID++
	m.orders = append(m.orders, o)
	return o, nil
}

func (m *marketplace) ordersWhere(match func(*order) bool) []api.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []api.Order{}
	for i := len(m.orders) - 1; i >= 0; i-- {
		if o := m.orders[i]; match(o) {
			out = append(out, m.viewLocked(o))
		}
	}
	return out
}

func (m *marketplace) viewLocked(o *order) api.Order {
	v := api.Order{
		OrderID:   o.id,
		Price:     o.price,
		Accepted:  o.accepted,
		Completed: o.completed,
	}
	if u, ok := m.users[o.sellerID]; ok {
		s := u.SellerInfo
		v.Seller = &s
	}
	if u, ok := m.users[o.userID]; ok {
		s := u.SellerInfo
		v.User = &s
	}
	for _, l := range o.lines {
		v.Products = append(v.Products, api.OrderProduct{
			ProductName: m.products[l.productID].Name,
			Quantity:    l.quantity,
			Price:       l.price,
		})
	}
	return v
}

// advanceOrder accepts or completes an order owned by sellerID (any seller
// when sellerID is 0).
func (m *marketplace) advanceOrder(orderID, sellerID int64, complete bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.id != orderID {
			continue
		}
		if sellerID != 0 && o.sellerID != sellerID {
			return errNotFound
		}
		if complete {
			if !o.accepted {
				return errNotAccepted
			}
			o.completed = true
			return nil
		}
		o.accepted = true
		return nil
	}
	return errNotFound
}

func sortProducts(ps []api.Product) {
	slices.SortFunc(ps, func(a, b api.Product) int { return int(a.ProductID - b.ProductID) })
}
