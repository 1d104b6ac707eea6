package devserver

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/MrEthical07/hostelbites/api"
	"github.com/MrEthical07/hostelbites/internal/rate"
	"github.com/MrEthical07/hostelbites/jwt"
	"github.com/MrEthical07/hostelbites/middleware"
	"github.com/MrEthical07/hostelbites/session"
)

const maxRequestBody = 1 << 20

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

/*
====================================
AUTH
====================================
*/

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var creds api.Credentials
	if !decodeBody(w, r, &creds) {
		return
	}
	ip := clientIP(r)
	if s.limit != nil {
		if err := s.limit.Check(r.Context(), creds.Email, ip); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				writeMessage(w, http.StatusTooManyRequests, "Too many login attempts, try again later")
				return
			}
			s.logger.Warn("login throttle unavailable", zap.Error(err))
		}
	}

	u, ok := s.market.userByEmail(creds.Email)
	match := false
	if ok {
		var err error
		match, err = s.hasher.Verify(creds.Password, u.PasswordHash)
		if err != nil {
			s.logger.Error("verify password hash", zap.Int64("user_id", u.UserID), zap.Error(err))
		}
	}
	if !match {
		s.recordLoginFailure(r, creds.Email, ip)
		writeMessage(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if s.limit != nil {
		if err := s.limit.Reset(r.Context(), creds.Email); err != nil {
			s.logger.Warn("reset login throttle", zap.Error(err))
		}
	}

	token, err := s.signer.Issue(jwt.Identity{
		UserID:     u.UserID,
		Username:   u.Username,
		Email:      u.Email,
		Role:       u.Role,
		HostelName: u.HostelName,
		RoomNumber: u.RoomNumber,
	})
	if err != nil {
		s.logger.Error("issue token", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	writeJSON(w, http.StatusOK, api.LoginResponse{Token: token, Role: u.Role})
}

func (s *Server) recordLoginFailure(r *http.Request, email, ip string) {
	if s.limit == nil {
		return
	}
	if err := s.limit.Failure(r.Context(), email, ip); err != nil {
		s.logger.Warn("record login failure", zap.Error(err))
	}
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var reg api.Registration
	if !decodeBody(w, r, &reg) {
		return
	}
	if err := api.ValidateRegistration(reg); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := s.Register(reg); err != nil {
		if errors.Is(err, errEmailTaken) {
			writeMessage(w, http.StatusConflict, "Email already registered")
			return
		}
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write([]byte("User registered successfully"))
}

/*
====================================
PROFILE
====================================
*/

func (s *Server) fetchProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := s.ownerParam(w, r, "userId")
	if !ok {
		return
	}
	p, err := s.market.profile(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := s.ownerParam(w, r, "userId")
	if !ok {
		return
	}
	var upd api.ProfileUpdate
	if !decodeBody(w, r, &upd) {
		return
	}
	p, err := s.market.updateProfile(id, upd)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Profile updated", "profile": p})
}

/*
====================================
BUYER
====================================
*/

func (s *Server) allProducts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.market.catalogue())
}

func (s *Server) sellersOf(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r, "productId")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.market.sellersOf(id))
}

func (s *Server) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req api.OrderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !s.owns(r, req.UserID) {
		writeMessage(w, http.StatusForbidden, "cannot order for another user")
		return
	}
	o, err := s.market.placeOrder(req)
	if err != nil {
		writeError(w, err)
		return
	}
	s.logger.Info("order placed",
		zap.Int64("order_id", o.id),
		zap.String("order_ref", o.ref),
		zap.Int64("user_id", o.userID),
		zap.Int64("seller_id", o.sellerID),
		zap.String("correlation_id", middleware.CorrelationIDFromContext(r.Context())),
	)
	writeJSON(w, http.StatusCreated, o.ref)
}

func (s *Server) userOrders(w http.ResponseWriter, r *http.Request) {
	id, ok := s.ownerParam(w, r, "userId")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.market.ordersWhere(func(o *order) bool { return o.userID == id }))
}

/*
====================================
SELLER
====================================
*/

func (s *Server) sellerProducts(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r, "sellerId")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.market.listed(id))
}

func (s *Server) sellerInfo(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r, "sellerId")
	if !ok {
		return
	}
	p, err := s.market.profile(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) listedProducts(w http.ResponseWriter, r *http.Request) {
	id, ok := s.ownerParam(w, r, "sellerId")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.market.listed(id))
}

func (s *Server) unlistedProducts(w http.ResponseWriter, r *http.Request) {
	id, ok := s.ownerParam(w, r, "sellerId")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.market.unlisted(id))
}

func (s *Server) addProducts(w http.ResponseWriter, r *http.Request) {
	id, ok := s.ownerParam(w, r, "sellerId")
	if !ok {
		return
	}
	var productIDs []int64
	if !decodeBody(w, r, &productIDs) {
		return
	}
	if err := s.market.list(id, productIDs); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "Products added")
}

func (s *Server) deleteProduct(w http.ResponseWriter, r *http.Request) {
	sellerID, ok := s.ownerParam(w, r, "sellerId")
	if !ok {
		return
	}
	productID, ok := intParam(w, r, "productId")
	if !ok {
		return
	}
	if err := s.market.unlist(sellerID, productID); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "Product removed")
}

func (s *Server) updateStock(w http.ResponseWriter, r *http.Request) {
	sellerID, ok := s.ownerParam(w, r, "sellerId")
	if !ok {
		return
	}
	productID, ok := intParam(w, r, "productId")
	if !ok {
		return
	}
	qty, err := strconv.Atoi(chi.URLParam(r, "qty"))
	if err != nil || qty < 0 {
		writeMessage(w, http.StatusBadRequest, "quantity must be a non-negative integer")
		return
	}
	if err := s.market.setStock(sellerID, productID, qty); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "Stock updated")
}

func (s *Server) sellerOrders(w http.ResponseWriter, r *http.Request) {
	id, ok := s.ownerParam(w, r, "sellerId")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.market.ordersWhere(func(o *order) bool { return o.sellerID == id }))
}

func (s *Server) acceptOrder(w http.ResponseWriter, r *http.Request) {
	s.advance(w, r, false)
}

func (s *Server) completeOrder(w http.ResponseWriter, r *http.Request) {
	s.advance(w, r, true)
}

func (s *Server) advance(w http.ResponseWriter, r *http.Request, complete bool) {
	orderID, ok := intParam(w, r, "orderId")
	if !ok {
		return
	}
	c, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	// zero matches any seller
	var sellerID int64
	if session.ParseRole(c.Role) != session.RoleAdmin {
		sellerID = c.UserID
	}
	if err := s.market.advanceOrder(orderID, sellerID, complete); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "Order updated")
}

/*
====================================
HELPERS
====================================
*/

// owns reports whether the caller may act for userID: themselves, or ADMIN.
func (s *Server) owns(r *http.Request, userID int64) bool {
	c, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		return false
	}
	return c.UserID == userID || session.ParseRole(c.Role) == session.RoleAdmin
}

// ownerParam parses an id path parameter the caller must own.
func (s *Server) ownerParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, ok := intParam(w, r, name)
	if !ok {
		return 0, false
	}
	if !s.owns(r, id) {
		writeMessage(w, http.StatusForbidden, "not your account")
		return 0, false
	}
	return id, true
}

// clientIP is the host part of RemoteAddr. chi's RealIP middleware rewrites
// RemoteAddr from proxy headers first.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func intParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	v, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || v <= 0 {
		writeMessage(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return v, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(dst); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errNotFound):
		writeMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, errInsufficientStock), errors.Is(err, errNotAccepted):
		writeMessage(w, http.StatusConflict, err.Error())
	case errors.Is(err, errNotListed), errors.Is(err, errEmptyOrder), errors.Is(err, errPriceMismatch):
		writeMessage(w, http.StatusBadRequest, err.Error())
	default:
		writeMessage(w, http.StatusInternalServerError, "internal error")
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
