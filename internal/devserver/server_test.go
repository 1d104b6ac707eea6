package devserver

import (
	"context"
	"crypto/ed25519"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/hostelbites/api"
	"github.com/MrEthical07/hostelbites/internal/rate"
	"github.com/MrEthical07/hostelbites/jwt"
	"github.com/MrEthical07/hostelbites/middleware"
)

type fixture struct {
	srv  *Server
	demo Demo
	url  string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	srv, err := New(Config{Secret: []byte("test-secret"), TokenTTL: time.Hour})
	require.NoError(t, err)
	demo, err := SeedDemo(srv)
	require.NoError(t, err)

	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(hs.Close)
	return fixture{srv: srv, demo: demo, url: hs.URL}
}

// clientAs logs in as username and returns a client carrying the token.
func (f fixture) clientAs(t *testing.T, username string) (*api.Client, *jwt.Claims) {
	t.Helper()
	anon, err := api.NewClient(api.Config{BaseURL: f.url})
	require.NoError(t, err)
	resp, err := anon.Login(context.Background(), api.Credentials{Email: f.demo.Emails[username], Password: DemoPassword})
	require.NoError(t, err)
	claims, err := jwt.Decode(resp.Token)
	require.NoError(t, err)

	c, err := api.NewClient(api.Config{BaseURL: f.url}, api.WithTokenSource(func() string { return resp.Token }))
	require.NoError(t, err)
	return c, claims
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var apiErr *api.Error
	require.True(t, errors.As(err, &apiErr), "expected *api.Error, got %v", err)
	return apiErr.Status
}

func TestLoginIssuesFullClaimSet(t *testing.T) {
	f := newFixture(t)
	_, claims := f.clientAs(t, "meera")

	assert.Equal(t, f.demo.BuyerID, claims.UserID)
	assert.Equal(t, "meera", claims.Username)
	assert.Equal(t, "USER", claims.Role)
	assert.Equal(t, "Block B", claims.HostelName)
	assert.Equal(t, "B-12", claims.RoomNumber)
	assert.False(t, claims.Expired(time.Now()))
}

func TestEd25519SignedTokens(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	srv, err := New(Config{Ed25519Key: priv, TokenTTL: time.Hour})
	require.NoError(t, err)
	demo, err := SeedDemo(srv)
	require.NoError(t, err)
	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(hs.Close)
	f := fixture{srv: srv, demo: demo, url: hs.URL}

	buyer, claims := f.clientAs(t, "meera")
	assert.Equal(t, "USER", claims.Role)
	_, err = buyer.Products(context.Background())
	require.NoError(t, err)

	hsTok, err := newFixture(t).srv.Signer().Issue(jwt.Identity{UserID: demo.BuyerID, Role: "USER"})
	require.NoError(t, err)
	_, err = srv.Signer().Verify(hsTok)
	assert.Error(t, err, "an HS256 token must not verify against the EdDSA signer")

	_, err = New(Config{Ed25519Key: []byte("not a key")})
	assert.Error(t, err)
	_, err = New(Config{})
	assert.Error(t, err)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	f := newFixture(t)
	c, err := api.NewClient(api.Config{BaseURL: f.url})
	require.NoError(t, err)

	_, err = c.Login(context.Background(), api.Credentials{Email: "meera@hostel.test", Password: "not-the-password"})
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
}

func TestRegisterConflictAndLogin(t *testing.T) {
	f := newFixture(t)
	c, err := api.NewClient(api.Config{BaseURL: f.url})
	require.NoError(t, err)
	ctx := context.Background()

	reg := api.Registration{
		Username: "arjun", Email: "arjun@hostel.test", Password: "12345678", PhoneNo: "9111111111",
		Location: "East wing", Role: "USER", RoomNo: "D-4", HostelName: "Block D",
	}
	require.NoError(t, c.Register(ctx, reg))

	err = c.Register(ctx, reg)
	assert.Equal(t, http.StatusConflict, statusOf(t, err))

	resp, err := c.Login(ctx, api.Credentials{Email: "ARJUN@hostel.test", Password: "12345678"})
	require.NoError(t, err)
	assert.Equal(t, "USER", resp.Role)
}

func TestRoleEnforcement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seller, _ := f.clientAs(t, "ravi")
	buyer, _ := f.clientAs(t, "meera")

	_, err := seller.Products(ctx)
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))

	_, err = buyer.ListedProducts(ctx, f.demo.SellerA)
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))

	// storefront reads are open to buyers
	products, err := buyer.SellerProducts(ctx, f.demo.SellerA)
	require.NoError(t, err)
	assert.Len(t, products, 5)
	info, err := buyer.Seller(ctx, f.demo.SellerA)
	require.NoError(t, err)
	assert.Equal(t, "ravi", info.Username)

	anon, err := api.NewClient(api.Config{BaseURL: f.url})
	require.NoError(t, err)
	_, err = anon.Products(ctx)
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
}

func TestOwnershipChecks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buyer, _ := f.clientAs(t, "meera")
	seller, _ := f.clientAs(t, "ravi")
	admin, _ := f.clientAs(t, "warden")

	_, err := buyer.Profile(ctx, f.demo.SellerA)
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))

	_, err = seller.ListedProducts(ctx, f.demo.SellerB)
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))

	listed, err := admin.ListedProducts(ctx, f.demo.SellerB)
	require.NoError(t, err)
	assert.Len(t, listed, 3)
}

func TestPlaceOrderDecrementsStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buyer, _ := f.clientAs(t, "meera")
	maggi := f.demo.Products["Maggi"]
	lays := f.demo.Products["Lays Classic"]

	req := api.OrderRequest{
		UserID:     f.demo.BuyerID,
		SellerID:   f.demo.SellerA,
		ProductIDs: []int64{maggi, lays},
		Quantities: []int{3, 1},
		Price:      62,
	}
	ref, err := buyer.PlaceOrder(ctx, req)
	require.NoError(t, err)
	assert.Regexp(t, `^HB-[0-9A-F]{8}$`, ref)

	sellers, err := buyer.SellersOf(ctx, maggi)
	require.NoError(t, err)
	require.Len(t, sellers, 2)
	assert.Equal(t, f.demo.StockEach-3, sellers[0].Quantity)

	req.Quantities = []int{3, 1}
	_, err = buyer.PlaceOrder(ctx, req)
	assert.Equal(t, http.StatusConflict, statusOf(t, err), "only 2 Maggi left")

	// 4 Lays left; two lines of 3 must not pass as two separate checks
	_, err = buyer.PlaceOrder(ctx, api.OrderRequest{
		UserID:     f.demo.BuyerID,
		SellerID:   f.demo.SellerA,
		ProductIDs: []int64{lays, lays},
		Quantities: []int{3, 3},
		Price:      120,
	})
	assert.Equal(t, http.StatusConflict, statusOf(t, err))
	sellers, err = buyer.SellersOf(ctx, lays)
	require.NoError(t, err)
	for _, s := range sellers {
		if s.UserID == f.demo.SellerA {
			assert.Equal(t, f.demo.StockEach-1, s.Quantity)
		}
	}

	orders, err := buyer.UserOrders(ctx, f.demo.BuyerID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "pending", orders[0].Status())
	assert.Equal(t, "ravi", orders[0].Seller.Username)
	assert.Len(t, orders[0].Products, 2)
}

func TestPlaceOrderRejectsBadPriceAndForeignUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buyer, _ := f.clientAs(t, "meera")
	maggi := f.demo.Products["Maggi"]

	_, err := buyer.PlaceOrder(ctx, api.OrderRequest{
		UserID: f.demo.BuyerID, SellerID: f.demo.SellerA,
		ProductIDs: []int64{maggi}, Quantities: []int{1}, Price: 1,
	})
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))

	_, err = buyer.PlaceOrder(ctx, api.OrderRequest{
		UserID: f.demo.AdminID, SellerID: f.demo.SellerA,
		ProductIDs: []int64{maggi}, Quantities: []int{1}, Price: 14,
	})
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))
}

func TestSellerOrderLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buyer, _ := f.clientAs(t, "meera")
	ravi, _ := f.clientAs(t, "ravi")
	sana, _ := f.clientAs(t, "sana")

	_, err := buyer.PlaceOrder(ctx, api.OrderRequest{
		UserID: f.demo.BuyerID, SellerID: f.demo.SellerA,
		ProductIDs: []int64{f.demo.Products["Cold Coffee"]}, Quantities: []int{2}, Price: 120,
	})
	require.NoError(t, err)

	orders, err := ravi.SellerOrders(ctx, f.demo.SellerA)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	id := orders[0].OrderID

	err = ravi.CompleteOrder(ctx, id)
	assert.Equal(t, http.StatusConflict, statusOf(t, err))

	err = sana.AcceptOrder(ctx, id)
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))

	require.NoError(t, ravi.AcceptOrder(ctx, id))
	require.NoError(t, ravi.CompleteOrder(ctx, id))

	orders, err = buyer.UserOrders(ctx, f.demo.BuyerID)
	require.NoError(t, err)
	assert.Equal(t, "completed", orders[0].Status())
}

func TestSellerDashboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sana, _ := f.clientAs(t, "sana")
	id := f.demo.SellerB

	unlisted, err := sana.UnlistedProducts(ctx, id)
	require.NoError(t, err)
	require.Len(t, unlisted, 2)

	require.NoError(t, sana.AddProducts(ctx, id, []int64{unlisted[0].ProductID}))
	require.NoError(t, sana.UpdateStock(ctx, id, unlisted[0].ProductID, 9))
	require.NoError(t, sana.DeleteProduct(ctx, id, f.demo.Products["Maggi"]))

	listed, err := sana.ListedProducts(ctx, id)
	require.NoError(t, err)
	require.Len(t, listed, 3)
	for _, p := range listed {
		if p.ProductID == unlisted[0].ProductID {
			assert.Equal(t, 9, p.Quantity)
		}
		assert.NotEqual(t, f.demo.Products["Maggi"], p.ProductID)
	}

	err = sana.DeleteProduct(ctx, id, f.demo.Products["Maggi"])
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
}

func TestProfileUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buyer, _ := f.clientAs(t, "meera")

	loc := "Library"
	p, err := buyer.UpdateProfile(ctx, f.demo.BuyerID, api.ProfileUpdate{RoomNumber: "B-14", Location: &loc})
	require.NoError(t, err)
	assert.Equal(t, "B-14", p.RoomNumber)
	require.NotNil(t, p.Location)
	assert.Equal(t, "Library", *p.Location)
	assert.Equal(t, "meera", p.Username)
}

func TestCorrelationIDEchoed(t *testing.T) {
	f := newFixture(t)
	req, err := http.NewRequest(http.MethodGet, f.url+"/health", nil)
	require.NoError(t, err)
	req.Header.Set(middleware.HeaderCorrelationID, "cid-7")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "cid-7", resp.Header.Get(middleware.HeaderCorrelationID))

	resp2, err := http.Get(f.url + "/health")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.NotEmpty(t, resp2.Header.Get(middleware.HeaderCorrelationID))
}

func TestNewRequiresSecret(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestLoginThrottle(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	srv, err := New(Config{
		Secret:       []byte("test-secret"),
		LoginLimiter: rate.New(rdb, rate.Config{MaxAttempts: 2, Window: time.Minute}),
	})
	require.NoError(t, err)
	demo, err := SeedDemo(srv)
	require.NoError(t, err)
	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(hs.Close)

	c, err := api.NewClient(api.Config{BaseURL: hs.URL})
	require.NoError(t, err)
	ctx := context.Background()
	bad := api.Credentials{Email: demo.Emails["meera"], Password: "wrong-password"}
	good := api.Credentials{Email: demo.Emails["meera"], Password: DemoPassword}

	for i := 0; i < 2; i++ {
		_, err = c.Login(ctx, bad)
		assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
	}
	_, err = c.Login(ctx, good)
	assert.Equal(t, http.StatusTooManyRequests, statusOf(t, err), "budget spent, even for the right password")

	mr.FastForward(2 * time.Minute)
	_, err = c.Login(ctx, good)
	require.NoError(t, err)
	assert.False(t, mr.Exists("hostelbites:login:email:"+demo.Emails["meera"]))
}
