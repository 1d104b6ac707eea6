package api

// Credentials is the login form.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the issued bearer token.
type LoginResponse struct {
	Token string `json:"token"`
	Role  string `json:"role"`
}

// Registration is the sign-up form. Role is USER or SELLER.
type Registration struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	PhoneNo    string `json:"phoneNo"`
	Location   string `json:"location"`
	Role       string `json:"role"`
	RoomNo     string `json:"roomNo"`
	HostelName string `json:"hostelName"`
}

// Product is a catalogue entry. Quantity is the seller's available stock when
// the product comes from a seller listing.
type Product struct {
	ProductID   int64   `json:"productId"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	ImageURL    string  `json:"imageUrl"`
	Quantity    int     `json:"quantity"`
}

// SellerInfo is a user profile. For sellers listed under a product, Quantity
// is their stock of that product.
type SellerInfo struct {
	UserID       int64   `json:"userId"`
	Username     string  `json:"username"`
	Email        string  `json:"email"`
	PhoneNo      string  `json:"phoneNo"`
	HostelName   string  `json:"hostelName"`
	RoomNumber   string  `json:"roomNumber"`
	ProfileImage *string `json:"profileImage"`
	Location     *string `json:"location"`
	Quantity     int     `json:"quantity"`
}

// ProfileUpdate is the editable subset of a profile.
type ProfileUpdate struct {
	Username     string  `json:"username"`
	PhoneNo      string  `json:"phoneNo"`
	HostelName   string  `json:"hostelName"`
	RoomNumber   string  `json:"roomNumber"`
	Location     *string `json:"location"`
	ProfileImage *string `json:"profileImage"`
}

// OrderProduct is one product line of a placed order.
type OrderProduct struct {
	ProductName string  `json:"productName"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
}

// Order is a placed order as either party sees it.
type Order struct {
	OrderID   int64          `json:"orderId"`
	Price     float64        `json:"price"`
	Seller    *SellerInfo    `json:"seller"`
	User      *SellerInfo    `json:"user"`
	Completed bool           `json:"completed"`
	Accepted  bool           `json:"accepted"`
	Products  []OrderProduct `json:"products"`
}

// Status summarizes the accepted/completed flags.
func (o Order) Status() string {
	switch {
	case o.Completed:
		return "completed"
	case o.Accepted:
		return "accepted"
	default:
		return "pending"
	}
}

// OrderRequest places an order. ProductIDs and Quantities are parallel.
type OrderRequest struct {
	UserID         int64      `json:"userId"`
	SellerID       int64      `json:"sellerId"`
	SellerResponse SellerInfo `json:"sellerResponse"`
	ProductIDs     []int64    `json:"productId"`
	Quantities     []int      `json:"quantity"`
	Price          float64    `json:"price"`
}
