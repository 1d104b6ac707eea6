package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{BaseURL: srv.URL, Timeout: 2 * time.Second}, opts...)
	require.NoError(t, err)
	return c
}

func TestBearerAndCorrelationHeaders(t *testing.T) {
	var gotAuth, gotCID string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotCID = r.Header.Get(HeaderCorrelationID)
		_ = json.NewEncoder(w).Encode([]Product{{ProductID: 1, Name: "Maggi", Price: 20}})
	}, WithTokenSource(func() string { return "tok-123" }))

	products, err := c.Products(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Maggi", products[0].Name)
	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.NotEmpty(t, gotCID)

	_, err = c.Products(WithCorrelationID(context.Background(), "cid-fixed"))
	require.NoError(t, err)
	assert.Equal(t, "cid-fixed", gotCID)
}

func TestNoAuthorizationWithoutToken(t *testing.T) {
	var gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`[]`))
	}, WithTokenSource(func() string { return "" }))

	_, err := c.Products(context.Background())
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestAuthFailureInvalidatesExactlyOnce(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
			}, WithTokenSource(func() string { return "stale" }))

			var calls atomic.Int32
			c.SetInvalidationListener(func(ctx context.Context, reason string) {
				calls.Add(1)
				assert.NoError(t, ctx.Err())
				assert.Contains(t, reason, "returned")
			})

			_, err := c.UserOrders(context.Background(), 7)
			require.Error(t, err)

			var apiErr *Error
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, KindAuth, apiErr.Kind)
			assert.Equal(t, status, apiErr.Status)
			assert.Equal(t, AuthFailedMessage, apiErr.Message)
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestDetachedListenerIsNotCalled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	var calls atomic.Int32
	c.SetInvalidationListener(func(context.Context, string) { calls.Add(1) })
	c.SetInvalidationListener(nil)

	_, err := c.Products(context.Background())
	assert.True(t, IsKind(err, KindAuth))
	assert.Zero(t, calls.Load())
}

func TestClassifyStatusCodes(t *testing.T) {
	cases := []struct {
		status int
		body   string
		kind   Kind
		code   string
		msg    string
	}{
		{http.StatusBadRequest, `"Quantity exceeds stock"`, KindRequest, CodeBadRequest, "Quantity exceeds stock"},
		{http.StatusBadRequest, ``, KindRequest, CodeBadRequest, "Invalid request data provided."},
		{http.StatusNotFound, `{"message":"no such seller"}`, KindRequest, CodeNotFound, "no such seller"},
		{http.StatusConflict, `{"error":"out of stock"}`, KindRequest, CodeConflict, "out of stock"},
		{http.StatusUnprocessableEntity, ``, KindRequest, CodeUnprocessableEntity, "Invalid data format."},
		{http.StatusTeapot, ``, KindRequest, "418", "Unexpected error occurred (Status: 418)."},
		{http.StatusInternalServerError, `{"message":"db down"}`, KindServer, CodeInternalServerError, "Server error occurred."},
		{http.StatusServiceUnavailable, ``, KindServer, CodeServiceUnavailable, "Service is temporarily unavailable."},
		{http.StatusBadGateway, ``, KindServer, "502", "Unexpected error occurred (Status: 502)."},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})
			var invalidated bool
			c.SetInvalidationListener(func(context.Context, string) { invalidated = true })

			_, err := c.Products(context.Background())
			var apiErr *Error
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tc.kind, apiErr.Kind)
			assert.Equal(t, tc.code, apiErr.Code)
			assert.Equal(t, tc.msg, apiErr.Message)
			assert.False(t, invalidated)
		})
	}
}

func TestTransportErrors(t *testing.T) {
	c, err := NewClient(Config{BaseURL: "http://127.0.0.1:1", Timeout: time.Second})
	require.NoError(t, err)

	_, err = c.Products(context.Background())
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, KindTransport, apiErr.Kind)
	assert.Equal(t, CodeNetworkError, apiErr.Code)
}

func TestTimeoutIsClassified(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	c, err := NewClient(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	_, err = c.Products(context.Background())
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, KindTransport, apiErr.Kind)
	assert.Equal(t, CodeTimeout, apiErr.Code)
}

func TestDecodeFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not":"a list"`))
	})
	_, err := c.Products(context.Background())
	assert.True(t, IsKind(err, KindDecode))
}

func TestPlaceOrderAcceptsTextAndJSONString(t *testing.T) {
	for body, want := range map[string]string{`"ORD-42"`: "ORD-42", "ORD-43\n": "ORD-43"} {
		var got OrderRequest
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/user/order/placeOrder", r.URL.Path)
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(body))
		})

		ref, err := c.PlaceOrder(context.Background(), OrderRequest{UserID: 1, SellerID: 2, ProductIDs: []int64{3}, Quantities: []int{4}, Price: 80})
		require.NoError(t, err)
		assert.Equal(t, want, ref)
		assert.Equal(t, []int64{3}, got.ProductIDs)
		assert.Equal(t, []int{4}, got.Quantities)
	}
}

func TestUpdateProfileUnwrapsProfile(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/profile/update/5", r.URL.Path)
		_, _ = w.Write([]byte(`{"message":"ok","profile":{"userId":5,"username":"meera"}}`))
	})
	p, err := c.UpdateProfile(context.Background(), 5, ProfileUpdate{Username: "meera"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), p.UserID)
	assert.Equal(t, "meera", p.Username)
}

func TestSellerEndpointsPaths(t *testing.T) {
	var paths []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		if r.Method == http.MethodGet {
			_, _ = w.Write([]byte(`[]`))
		}
	})
	ctx := context.Background()
	_, _ = c.ListedProducts(ctx, 3)
	_, _ = c.UnlistedProducts(ctx, 3)
	_ = c.AddProducts(ctx, 3, []int64{1, 2})
	_ = c.DeleteProduct(ctx, 3, 1)
	_ = c.UpdateStock(ctx, 3, 2, 9)
	_, _ = c.SellerOrders(ctx, 3)
	_ = c.AcceptOrder(ctx, 11)
	_ = c.CompleteOrder(ctx, 11)

	assert.Equal(t, []string{
		"GET /api/seller/products/listedProducts/3",
		"GET /api/seller/products/nonListedProducts/3",
		"POST /api/seller/products/addProducts/3",
		"DELETE /api/seller/products/deleteProduct/3/1",
		"PUT /api/seller/products/updateProduct/3/2/9",
		"GET /api/seller/order/allOrders/3",
		"PUT /api/seller/order/accept/11",
		"PUT /api/seller/order/complete/11",
	}, paths)
}

func TestRequestObserver(t *testing.T) {
	var infos []RequestInfo
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}, WithRequestObserver(func(ri RequestInfo) { infos = append(infos, ri) }))

	_, _ = c.Products(context.Background())
	require.Len(t, infos, 1)
	assert.Equal(t, "user.products", infos[0].Endpoint)
	assert.Equal(t, http.StatusConflict, infos[0].Status)
	require.NotNil(t, infos[0].Err)
	assert.Equal(t, CodeConflict, infos[0].Err.Code)
}

func TestNewClientDefaultsAndValidation(t *testing.T) {
	c, err := NewClient(Config{})
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, c.BaseURL())

	_, err = NewClient(Config{BaseURL: "ftp://example.com"})
	assert.Error(t, err)
}

func TestLoginValidationSkipsRequest(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	})

	_, err := c.Login(context.Background(), Credentials{Email: "bad", Password: "short"})
	var fe FieldErrors
	require.True(t, errors.As(err, &fe))
	assert.Contains(t, fe, "email")
	assert.Contains(t, fe, "password")
	assert.Zero(t, hits.Load())
}
