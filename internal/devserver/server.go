package devserver

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/MrEthical07/hostelbites/api"
	"github.com/MrEthical07/hostelbites/internal/rate"
	"github.com/MrEthical07/hostelbites/jwt"
	"github.com/MrEthical07/hostelbites/middleware"
	"github.com/MrEthical07/hostelbites/password"
	"github.com/MrEthical07/hostelbites/session"
)

// Config configures a Server.
type Config struct {
	// Secret signs HS256 tokens. Required unless Ed25519Key is set.
	Secret []byte
	// Ed25519Key, a raw or PEM private key, switches signing to EdDSA.
	Ed25519Key []byte
	TokenTTL   time.Duration
	Issuer     string
	Password   password.Params
	Logger     *zap.Logger
	// LoginLimiter throttles failed logins when set.
	LoginLimiter *rate.Limiter
}

// Server is an in-memory marketplace backend speaking the same REST protocol
// as the production one.
type Server struct {
	cfg    Config
	logger *zap.Logger
	signer *jwt.Signer
	hasher *password.Hasher
	limit  *rate.Limiter
	market *marketplace
}

// New validates cfg and returns an empty Server.
func New(cfg Config) (*Server, error) {
	if len(cfg.Secret) == 0 && len(cfg.Ed25519Key) == 0 {
		return nil, errors.New("devserver: secret or ed25519 key required")
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = time.Hour
	}
	if cfg.Password == (password.Params{}) {
		cfg.Password = password.DevParams()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	signerCfg := jwt.SignerConfig{
		AccessTTL:     cfg.TokenTTL,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    cfg.Secret,
		Issuer:        cfg.Issuer,
	}
	if len(cfg.Ed25519Key) > 0 {
		priv, err := jwt.ParseEd25519PrivateKey(cfg.Ed25519Key)
		if err != nil {
			return nil, fmt.Errorf("devserver: %w", err)
		}
		signerCfg.SigningMethod = jwt.MethodEd25519
		signerCfg.PrivateKey = cfg.Ed25519Key
		signerCfg.PublicKey = priv.Public().(ed25519.PublicKey)
	}
	signer, err := jwt.NewSigner(signerCfg)
	if err != nil {
		return nil, err
	}
	hasher, err := password.NewHasher(cfg.Password)
	if err != nil {
		return nil, err
	}

	return &Server{
		cfg:    cfg,
		logger: cfg.Logger,
		signer: signer,
		hasher: hasher,
		limit:  cfg.LoginLimiter,
		market: newMarketplace(),
	}, nil
}

// Signer exposes the token signer so tests can mint tokens directly.
func (s *Server) Signer() *jwt.Signer {
	return s.signer
}

// Handler returns the routed HTTP handler.
//
// /api/user requires USER or ADMIN, /api/seller SELLER or ADMIN, and
// /api/profile any role. The two storefront reads under /api/seller are open
// to every authenticated role because buyers browse them.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(middleware.Correlation)
	r.Use(middleware.RequestLogger(s.logger))

	r.Get("/health", s.health)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", s.login)
		r.Post("/register", s.register)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Authenticate(s.signer, s.logger))

		r.Route("/profile", func(r chi.Router) {
			r.Get("/fetch/{userId}", s.fetchProfile)
			r.Put("/update/{userId}", s.updateProfile)
		})

		r.Route("/user", func(r chi.Router) {
			r.Use(middleware.RequireRole(session.RoleUser, session.RoleAdmin))
			r.Get("/products/all", s.allProducts)
			r.Get("/sellers/{productId}", s.sellersOf)
			r.Post("/order/placeOrder", s.placeOrder)
			r.Get("/order/allOrders/{userId}", s.userOrders)
		})

		r.Route("/seller", func(r chi.Router) {
			r.Get("/products/all/{sellerId}", s.sellerProducts)
			r.Get("/products/seller/{sellerId}", s.sellerInfo)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(session.RoleSeller, session.RoleAdmin))
				r.Get("/products/listedProducts/{sellerId}", s.listedProducts)
				r.Get("/products/nonListedProducts/{sellerId}", s.unlistedProducts)
				r.Post("/products/addProducts/{sellerId}", s.addProducts)
				r.Delete("/products/deleteProduct/{sellerId}/{productId}", s.deleteProduct)
				r.Put("/products/updateProduct/{sellerId}/{productId}/{qty}", s.updateStock)
				r.Get("/order/allOrders/{sellerId}", s.sellerOrders)
				r.Put("/order/accept/{orderId}", s.acceptOrder)
				r.Put("/order/complete/{orderId}", s.completeOrder)
			})
		})
	})

	return r
}

// Register creates an account directly, bypassing the HTTP form rules.
func (s *Server) Register(reg api.Registration) (int64, error) {
	hash, err := s.hasher.Hash(reg.Password)
	if err != nil {
		return 0, err
	}
	return s.market.addUser(user{
		SellerInfo: api.SellerInfo{
			Username:   reg.Username,
			Email:      reg.Email,
			PhoneNo:    reg.PhoneNo,
			HostelName: reg.HostelName,
			RoomNumber: reg.RoomNo,
			Location:   optional(reg.Location),
		},
		PasswordHash: hash,
		Role:         string(session.ParseRole(reg.Role)),
	})
}

// AddProduct adds a catalogue entry and returns its id.
func (s *Server) AddProduct(p api.Product) int64 {
	return s.market.addProduct(p)
}

// Stock lists productIDs for sellerID and sets each one's stock to qty.
func (s *Server) Stock(sellerID int64, qty int, productIDs ...int64) error {
	if err := s.market.list(sellerID, productIDs); err != nil {
		return err
	}
	for _, id := range productIDs {
		if err := s.market.setStock(sellerID, id, qty); err != nil {
			return err
		}
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
