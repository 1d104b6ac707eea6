package hostelbites

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/MrEthical07/hostelbites/api"
	"github.com/MrEthical07/hostelbites/cart"
	"github.com/MrEthical07/hostelbites/routes"
	"github.com/MrEthical07/hostelbites/session"
)

// App is one client instance: a session, a cart, a backend client and the
// route gate in front of them. Build one with New().Build(), call Start, and
// Close when done.
type App struct {
	config  Config
	logger  *zap.Logger
	now     func() time.Time
	metrics *Metrics
	events  *eventDispatcher

	sessions *session.Store
	cart     *cart.Store
	client   *api.Client
	gate     *routes.Gate

	checkout    flight
	profileSave flight

	startOnce sync.Once
	closeOnce sync.Once
	closed    atomic.Bool
}

// CheckoutResult describes a placed order.
type CheckoutResult struct {
	OrderRef string
	Seller   api.SellerInfo
	Cart     cart.Cart
	Quote    cart.Quote
}

// Storefront is a seller's public info with their listed products.
type Storefront struct {
	Seller   api.SellerInfo
	Products []api.Product
}

// Start restores the persisted session and loads the persisted cart. It runs
// once; later calls are no-ops.
func (a *App) Start(ctx context.Context) error {
	if a.closed.Load() {
		return ErrClosed
	}
	a.startOnce.Do(func() {
		a.sessions.Restore(ctx)
		a.cart.Load(ctx)
		a.logger.Debug("app started",
			zap.Bool("authenticated", a.sessions.Authenticated()),
			zap.Int64("cart_seller_id", a.cart.SellerID()),
		)
	})
	return nil
}

// Close detaches the session from backend invalidations and flushes pending
// events. Storage passed to WithStorage is left open.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		a.closed.Store(true)
		a.client.SetInvalidationListener(nil)
		a.sessions.Close()
		a.events.Close()
	})
}

/*
====================================
AUTH
====================================
*/

// Login authenticates against the backend and installs the issued token. It
// returns the landing route for the session's role.
func (a *App) Login(ctx context.Context, creds api.Credentials) (string, error) {
	if a.closed.Load() {
		return "", ErrClosed
	}
	resp, err := a.client.Login(ctx, creds)
	if err != nil {
		a.metrics.Inc(MetricLoginFailure)
		a.emit(ctx, Event{Type: EventLoginFailed, Error: err.Error()})
		return "", err
	}
	if !a.sessions.Login(ctx, resp.Token) {
		a.metrics.Inc(MetricLoginFailure)
		a.emit(ctx, Event{Type: EventLoginFailed, Error: ErrInvalidToken.Error()})
		return "", ErrInvalidToken
	}

	role := a.sessions.Current().Role()
	if reported := session.ParseRole(resp.Role); reported != "" && reported != role {
		a.logger.Warn("login response role differs from token role",
			zap.Stringer("token_role", role),
			zap.String("response_role", resp.Role),
		)
	}
	return role.LandingRoute(), nil
}

// Register creates an account. It does not log in.
func (a *App) Register(ctx context.Context, r api.Registration) error {
	if err := a.client.Register(ctx, r); err != nil {
		a.metrics.Inc(MetricRegisterFailure)
		return err
	}
	a.metrics.Inc(MetricRegisterSuccess)
	return nil
}

// Logout drops the session. The cart is kept.
func (a *App) Logout(ctx context.Context) {
	a.sessions.Logout(ctx)
}

// Session returns a copy of the current session.
func (a *App) Session() session.Session {
	return a.sessions.Current()
}

// SessionExpiresIn renders the remaining token lifetime.
func (a *App) SessionExpiresIn() string {
	return a.sessions.FormattedTimeUntilExpiry()
}

// Authorize runs the route gate for path. An expired session is cleared first
// so the caller is sent to login.
func (a *App) Authorize(ctx context.Context, path string) routes.View {
	a.sessions.ExpireIfNeeded(ctx)
	view := a.gate.Check(path)
	switch view {
	case routes.ViewAllowed:
		a.metrics.Inc(MetricGateAllowed)
	case routes.ViewLogin:
		a.metrics.Inc(MetricGateLogin)
	case routes.ViewAccessDenied:
		a.metrics.Inc(MetricGateDenied)
	}
	return view
}

// requireUser returns the session's user id when it holds one of roles (any
// role when none are given).
func (a *App) requireUser(ctx context.Context, roles ...session.Role) (int64, error) {
	if a.closed.Load() {
		return 0, ErrClosed
	}
	if !a.sessions.Ready() {
		return 0, ErrNotStarted
	}
	a.sessions.ExpireIfNeeded(ctx)
	switch a.sessions.Authorize(roles...) {
	case session.Unauthenticated:
		return 0, ErrNotAuthenticated
	case session.Forbidden:
		return 0, ErrForbidden
	}
	id, ok := a.sessions.Current().UserID()
	if !ok {
		return 0, ErrMissingUserID
	}
	return id, nil
}

/*
====================================
CART & CHECKOUT
====================================
*/

// Cart exposes the cart store for mutations that need no backend call.
func (a *App) Cart() *cart.Store {
	return a.cart
}

// AddToCart adds one unit of a seller's product. Quantity on p is the
// seller's stock.
func (a *App) AddToCart(ctx context.Context, p api.Product, sellerID int64) error {
	return a.cart.AddItem(ctx, cart.Product{
		ID:          p.ProductID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		ImageURL:    p.ImageURL,
		Stock:       p.Quantity,
	}, sellerID)
}

// Quote prices the current cart.
func (a *App) Quote() cart.Quote {
	return cart.QuoteFor(a.cart.TotalAmount())
}

// Checkout places the cart as one order with its seller and, on success,
// removes the ordered lines from the cart. A second Checkout while one is
// running returns ErrInFlight.
func (a *App) Checkout(ctx context.Context) (CheckoutResult, error) {
	if !a.checkout.begin() {
		a.metrics.Inc(MetricCheckoutInFlight)
		return CheckoutResult{}, ErrInFlight
	}
	defer a.checkout.end()

	userID, err := a.requireUser(ctx, session.RoleUser, session.RoleAdmin)
	if err != nil {
		return CheckoutResult{}, err
	}
	snap := a.cart.Snapshot()
	if snap.Empty() {
		return CheckoutResult{}, ErrCartEmpty
	}

	fail := func(err error) (CheckoutResult, error) {
		a.metrics.Inc(MetricOrderFailed)
		a.emit(ctx, Event{
			Type:     EventOrderFailed,
			UserID:   userID,
			SellerID: snap.SellerID,
			Error:    err.Error(),
		})
		return CheckoutResult{}, err
	}

	seller, err := a.client.Seller(ctx, snap.SellerID)
	if err != nil {
		return fail(fmt.Errorf("fetch seller %d: %w", snap.SellerID, err))
	}

	quote := cart.QuoteFor(snap.TotalAmount())
	ref, err := a.client.PlaceOrder(ctx, api.OrderRequest{
		UserID:         userID,
		SellerID:       snap.SellerID,
		SellerResponse: seller,
		ProductIDs:     snap.ProductIDs(),
		Quantities:     snap.Quantities(),
		Price:          cart.Round2(quote.Subtotal),
	})
	if err != nil {
		return fail(err)
	}

	a.cart.RemoveOrdered(ctx, snap)
	a.metrics.Inc(MetricOrderPlaced)
	a.emit(ctx, Event{
		Type:     EventOrderPlaced,
		UserID:   userID,
		SellerID: snap.SellerID,
		OrderRef: ref,
		Success:  true,
		Metadata: map[string]string{
			"items": strconv.Itoa(snap.ItemCount()),
			"price": strconv.FormatFloat(cart.Round2(quote.Subtotal), 'f', 2, 64),
		},
	})
	a.logger.Info("order placed",
		zap.Int64("user_id", userID),
		zap.Int64("seller_id", snap.SellerID),
		zap.String("order_ref", ref),
	)
	return CheckoutResult{OrderRef: ref, Seller: seller, Cart: snap, Quote: quote}, nil
}

/*
====================================
BROWSING
====================================
*/

// Products lists the catalogue.
func (a *App) Products(ctx context.Context) ([]api.Product, error) {
	if _, err := a.requireUser(ctx, session.RoleUser, session.RoleAdmin); err != nil {
		return nil, err
	}
	return a.client.Products(ctx)
}

// SellersOf lists sellers stocking productID.
func (a *App) SellersOf(ctx context.Context, productID int64) ([]api.SellerInfo, error) {
	if _, err := a.requireUser(ctx, session.RoleUser, session.RoleAdmin); err != nil {
		return nil, err
	}
	return a.client.SellersOf(ctx, productID)
}

// Storefront fetches a seller's info and products concurrently.
func (a *App) Storefront(ctx context.Context, sellerID int64) (Storefront, error) {
	if _, err := a.requireUser(ctx, session.RoleUser, session.RoleAdmin); err != nil {
		return Storefront{}, err
	}

	var out Storefront
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := a.client.Seller(gctx, sellerID)
		if err != nil {
			return err
		}
		out.Seller = s
		return nil
	})
	g.Go(func() error {
		p, err := a.client.SellerProducts(gctx, sellerID)
		if err != nil {
			return err
		}
		out.Products = p
		return nil
	})
	if err := g.Wait(); err != nil {
		return Storefront{}, err
	}
	return out, nil
}

// UserOrders lists the session user's orders.
func (a *App) UserOrders(ctx context.Context) ([]api.Order, error) {
	id, err := a.requireUser(ctx, session.RoleUser, session.RoleAdmin)
	if err != nil {
		return nil, err
	}
	return a.client.UserOrders(ctx, id)
}

/*
====================================
PROFILE
====================================
*/

// Profile fetches the session user's profile.
func (a *App) Profile(ctx context.Context) (api.SellerInfo, error) {
	id, err := a.requireUser(ctx)
	if err != nil {
		return api.SellerInfo{}, err
	}
	return a.client.Profile(ctx, id)
}

// SaveProfile stores upd and returns the saved profile. Concurrent saves
// return ErrInFlight.
func (a *App) SaveProfile(ctx context.Context, upd api.ProfileUpdate) (api.SellerInfo, error) {
	if !a.profileSave.begin() {
		return api.SellerInfo{}, ErrInFlight
	}
	defer a.profileSave.end()

	id, err := a.requireUser(ctx)
	if err != nil {
		return api.SellerInfo{}, err
	}
	return a.client.UpdateProfile(ctx, id, upd)
}

/*
====================================
SELLER DASHBOARD
====================================
*/

func (a *App) requireSeller(ctx context.Context) (int64, error) {
	return a.requireUser(ctx, session.RoleSeller, session.RoleAdmin)
}

// ListedProducts lists the products the session seller offers.
func (a *App) ListedProducts(ctx context.Context) ([]api.Product, error) {
	id, err := a.requireSeller(ctx)
	if err != nil {
		return nil, err
	}
	return a.client.ListedProducts(ctx, id)
}

// UnlistedProducts lists catalogue products the session seller does not offer.
func (a *App) UnlistedProducts(ctx context.Context) ([]api.Product, error) {
	id, err := a.requireSeller(ctx)
	if err != nil {
		return nil, err
	}
	return a.client.UnlistedProducts(ctx, id)
}

// ListProducts starts offering productIDs.
func (a *App) ListProducts(ctx context.Context, productIDs []int64) error {
	id, err := a.requireSeller(ctx)
	if err != nil {
		return err
	}
	if len(productIDs) == 0 {
		return nil
	}
	return a.client.AddProducts(ctx, id, productIDs)
}

// UnlistProduct stops offering productID.
func (a *App) UnlistProduct(ctx context.Context, productID int64) error {
	id, err := a.requireSeller(ctx)
	if err != nil {
		return err
	}
	return a.client.DeleteProduct(ctx, id, productID)
}

// SetStock sets the available quantity of a listed product.
func (a *App) SetStock(ctx context.Context, productID int64, qty int) error {
	if qty < 0 {
		return ErrInvalidQuantity
	}
	id, err := a.requireSeller(ctx)
	if err != nil {
		return err
	}
	return a.client.UpdateStock(ctx, id, productID, qty)
}

// SellerOrders lists orders placed with the session seller.
func (a *App) SellerOrders(ctx context.Context) ([]api.Order, error) {
	id, err := a.requireSeller(ctx)
	if err != nil {
		return nil, err
	}
	return a.client.SellerOrders(ctx, id)
}

// AcceptOrder marks an order of the signed-in seller as accepted.
func (a *App) AcceptOrder(ctx context.Context, orderID int64) error {
	if _, err := a.requireSeller(ctx); err != nil {
		return err
	}
	return a.client.AcceptOrder(ctx, orderID)
}

// CompleteOrder marks an accepted order as completed.
func (a *App) CompleteOrder(ctx context.Context, orderID int64) error {
	if _, err := a.requireSeller(ctx); err != nil {
		return err
	}
	return a.client.CompleteOrder(ctx, orderID)
}

/*
====================================
OBSERVABILITY
====================================
*/

// MetricsSnapshot returns a copy of the in-process counters.
func (a *App) MetricsSnapshot() MetricsSnapshot {
	return a.metrics.Snapshot()
}

// EventsDropped counts events discarded because the buffer was full.
func (a *App) EventsDropped() uint64 {
	return a.events.Dropped()
}

func (a *App) emit(ctx context.Context, e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = a.now()
	}
	a.events.Emit(ctx, e)
}

func (a *App) onSessionChange(change session.Change, current session.Session) {
	e := Event{Success: true}
	if id, ok := current.UserID(); ok {
		e.UserID = id
	}
	if role := current.Role(); role != "" {
		e.Role = string(role)
	}

	switch change {
	case session.ChangeRestored:
		a.metrics.Inc(MetricSessionRestored)
		e.Type = EventSessionRestored
	case session.ChangeExpired:
		a.metrics.Inc(MetricSessionExpired)
		e.Type = EventSessionExpired
	case session.ChangeLogin:
		a.metrics.Inc(MetricLoginSuccess)
		e.Type = EventLogin
	case session.ChangeLogout:
		a.metrics.Inc(MetricLogout)
		e.Type = EventLogout
	case session.ChangeInvalidated:
		a.metrics.Inc(MetricSessionInvalidated)
		e.Type = EventSessionInvalidated
		e.Success = false
	default:
		return
	}
	a.emit(context.Background(), e)
}

func (a *App) onSellerSwitch(sw cart.SellerSwitch) {
	a.metrics.Inc(MetricCartSellerSwitch)
	a.emit(context.Background(), Event{
		Type:     EventSellerSwitch,
		SellerID: sw.To,
		Success:  true,
		Metadata: map[string]string{
			"from_seller_id": strconv.FormatInt(sw.From, 10),
			"dropped_lines":  strconv.Itoa(sw.DroppedLines),
		},
	})
}

func (a *App) onRequest(info api.RequestInfo) {
	a.metrics.Inc(MetricAPIRequest)
	a.metrics.Observe(MetricAPILatency, info.Duration)
	if info.Err == nil {
		return
	}
	a.metrics.Inc(MetricAPIFailure)
	if info.Err.Kind == api.KindAuth {
		a.metrics.Inc(MetricAPIAuthFailure)
	}
}

// flight admits one holder at a time and turns others away.
type flight struct {
	busy atomic.Bool
}

func (f *flight) begin() bool {
	return f.busy.CompareAndSwap(false, true)
}

func (f *flight) end() {
	f.busy.Store(false)
}

// IsInFlight reports whether err came from a rejected duplicate submission.
func IsInFlight(err error) bool {
	return errors.Is(err, ErrInFlight)
}
