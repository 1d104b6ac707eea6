package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Login exchanges credentials for a bearer token. It validates c first and
// returns FieldErrors without contacting the backend.
func (c *Client) Login(ctx context.Context, creds Credentials) (LoginResponse, error) {
	if err := ValidateLogin(creds); err != nil {
		return LoginResponse{}, err
	}
	var out LoginResponse
	err := c.do(ctx, call{endpoint: "login", method: http.MethodPost, path: "/auth/login", body: creds, out: &out, anon: true})
	return out, err
}

// Register creates an account. Validation failures never reach the backend.
func (c *Client) Register(ctx context.Context, r Registration) error {
	if err := ValidateRegistration(r); err != nil {
		return err
	}
	return c.do(ctx, call{endpoint: "register", method: http.MethodPost, path: "/auth/register", body: r, anon: true})
}

// Profile fetches a user's profile.
func (c *Client) Profile(ctx context.Context, userID int64) (SellerInfo, error) {
	var out SellerInfo
	err := c.do(ctx, call{endpoint: "profile.fetch", method: http.MethodGet, path: fmt.Sprintf("/api/profile/fetch/%d", userID), out: &out})
	return out, err
}

// UpdateProfile saves the editable profile fields and returns the stored
// profile. The backend answers either with the profile or with {"profile": …}.
func (c *Client) UpdateProfile(ctx context.Context, userID int64, upd ProfileUpdate) (SellerInfo, error) {
	var raw json.RawMessage
	path := fmt.Sprintf("/api/profile/update/%d", userID)
	if err := c.do(ctx, call{endpoint: "profile.update", method: http.MethodPut, path: path, body: upd, out: &raw}); err != nil {
		return SellerInfo{}, err
	}

	var wrapped struct {
		Profile *SellerInfo `json:"profile"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Profile != nil {
		return *wrapped.Profile, nil
	}
	var out SellerInfo
	if err := json.Unmarshal(raw, &out); err != nil {
		return SellerInfo{}, classifyDecode(http.MethodPut, path, http.StatusOK, err)
	}
	return out, nil
}

// Products lists the whole catalogue.
func (c *Client) Products(ctx context.Context) ([]Product, error) {
	var out []Product
	err := c.do(ctx, call{endpoint: "user.products", method: http.MethodGet, path: "/api/user/products/all", out: &out})
	return out, err
}

// SellersOf lists sellers stocking productID, with their stock in Quantity.
func (c *Client) SellersOf(ctx context.Context, productID int64) ([]SellerInfo, error) {
	var out []SellerInfo
	err := c.do(ctx, call{endpoint: "user.sellers", method: http.MethodGet, path: fmt.Sprintf("/api/user/sellers/%d", productID), out: &out})
	return out, err
}

// SellerProducts lists a seller's products with stock.
func (c *Client) SellerProducts(ctx context.Context, sellerID int64) ([]Product, error) {
	var out []Product
	err := c.do(ctx, call{endpoint: "seller.products", method: http.MethodGet, path: fmt.Sprintf("/api/seller/products/all/%d", sellerID), out: &out})
	return out, err
}

// Seller fetches a seller's public info.
func (c *Client) Seller(ctx context.Context, sellerID int64) (SellerInfo, error) {
	var out SellerInfo
	err := c.do(ctx, call{endpoint: "seller.info", method: http.MethodGet, path: fmt.Sprintf("/api/seller/products/seller/%d", sellerID), out: &out})
	return out, err
}

// ListedProducts lists the products a seller currently offers.
func (c *Client) ListedProducts(ctx context.Context, sellerID int64) ([]Product, error) {
	var out []Product
	err := c.do(ctx, call{endpoint: "seller.listed", method: http.MethodGet, path: fmt.Sprintf("/api/seller/products/listedProducts/%d", sellerID), out: &out})
	return out, err
}

// UnlistedProducts lists catalogue products the seller does not offer yet.
func (c *Client) UnlistedProducts(ctx context.Context, sellerID int64) ([]Product, error) {
	var out []Product
	err := c.do(ctx, call{endpoint: "seller.unlisted", method: http.MethodGet, path: fmt.Sprintf("/api/seller/products/nonListedProducts/%d", sellerID), out: &out})
	return out, err
}

// AddProducts lists catalogue products for a seller.
func (c *Client) AddProducts(ctx context.Context, sellerID int64, productIDs []int64) error {
	return c.do(ctx, call{endpoint: "seller.add", method: http.MethodPost, path: fmt.Sprintf("/api/seller/products/addProducts/%d", sellerID), body: productIDs})
}

// DeleteProduct unlists a product.
func (c *Client) DeleteProduct(ctx context.Context, sellerID, productID int64) error {
	return c.do(ctx, call{endpoint: "seller.delete", method: http.MethodDelete, path: fmt.Sprintf("/api/seller/products/deleteProduct/%d/%d", sellerID, productID)})
}

// UpdateStock sets a listed product's available quantity.
func (c *Client) UpdateStock(ctx context.Context, sellerID, productID int64, qty int) error {
	return c.do(ctx, call{endpoint: "seller.update", method: http.MethodPut, path: fmt.Sprintf("/api/seller/products/updateProduct/%d/%d/%d", sellerID, productID, qty)})
}

// SellerOrders lists orders placed with a seller.
func (c *Client) SellerOrders(ctx context.Context, sellerID int64) ([]Order, error) {
	var out []Order
	err := c.do(ctx, call{endpoint: "seller.orders", method: http.MethodGet, path: fmt.Sprintf("/api/seller/order/allOrders/%d", sellerID), out: &out})
	return out, err
}

// AcceptOrder marks an order accepted.
func (c *Client) AcceptOrder(ctx context.Context, orderID int64) error {
	return c.do(ctx, call{endpoint: "seller.accept", method: http.MethodPut, path: fmt.Sprintf("/api/seller/order/accept/%d", orderID)})
}

// CompleteOrder marks an order completed.
func (c *Client) CompleteOrder(ctx context.Context, orderID int64) error {
	return c.do(ctx, call{endpoint: "seller.complete", method: http.MethodPut, path: fmt.Sprintf("/api/seller/order/complete/%d", orderID)})
}

// PlaceOrder submits an order and returns the backend's order reference.
func (c *Client) PlaceOrder(ctx context.Context, req OrderRequest) (string, error) {
	var out string
	err := c.do(ctx, call{endpoint: "user.placeOrder", method: http.MethodPost, path: "/api/user/order/placeOrder", body: req, out: &out, timeout: c.cfg.OrderTimeout})
	return out, err
}

// UserOrders lists a buyer's orders.
func (c *Client) UserOrders(ctx context.Context, userID int64) ([]Order, error) {
	var out []Order
	err := c.do(ctx, call{endpoint: "user.orders", method: http.MethodGet, path: fmt.Sprintf("/api/user/order/allOrders/%d", userID), out: &out, timeout: c.cfg.OrdersListTimeout})
	return out, err
}
