package devserver

import (
	"fmt"

	"github.com/MrEthical07/hostelbites/api"
)

// DemoPassword is the password of every seeded account.
const DemoPassword = "hostel-snacks"

// Demo holds the ids of the seeded accounts and products.
type Demo struct {
	AdminID  int64
	BuyerID  int64
	SellerA  int64
	SellerB  int64
	Products map[string]int64
	// Emails maps usernames to login emails.
	Emails    map[string]string
	StockEach int
}

// SeedDemo fills s with a small marketplace: one admin, one buyer, two
// sellers and a catalogue where both sellers stock the snacks.
func SeedDemo(s *Server) (Demo, error) {
	d := Demo{
		Products:  map[string]int64{},
		Emails:    map[string]string{},
		StockEach: 5,
	}

	accounts := []struct {
		name, email, role, hostel, room string
		id                              *int64
	}{
		{"warden", "admin@hostel.test", "ADMIN", "Office", "G-01", &d.AdminID},
		{"meera", "meera@hostel.test", "USER", "Block B", "B-12", &d.BuyerID},
		{"ravi", "ravi@hostel.test", "SELLER", "Block A", "A-07", &d.SellerA},
		{"sana", "sana@hostel.test", "SELLER", "Block C", "C-03", &d.SellerB},
	}
	for _, a := range accounts {
		id, err := s.Register(api.Registration{
			Username:   a.name,
			Email:      a.email,
			Password:   DemoPassword,
			PhoneNo:    "9000000000",
			Location:   a.hostel,
			Role:       a.role,
			RoomNo:     a.room,
			HostelName: a.hostel,
		})
		if err != nil {
			return Demo{}, fmt.Errorf("seed %s: %w", a.email, err)
		}
		*a.id = id
		d.Emails[a.name] = a.email
	}

	catalogue := []api.Product{
		{Name: "Maggi", Description: "2-minute noodles", Price: 14},
		{Name: "Lays Classic", Description: "Salted chips", Price: 20},
		{Name: "Dairy Milk", Description: "Chocolate bar", Price: 45},
		{Name: "Cold Coffee", Description: "Chilled can", Price: 60},
		{Name: "Peanut Butter", Description: "Crunchy, 340g", Price: 199.99},
	}
	ids := make([]int64, 0, len(catalogue))
	for _, p := range catalogue {
		id := s.AddProduct(p)
		d.Products[p.Name] = id
		ids = append(ids, id)
	}

	if err := s.Stock(d.SellerA, d.StockEach, ids...); err != nil {
		return Demo{}, err
	}
	if err := s.Stock(d.SellerB, d.StockEach, ids[:3]...); err != nil {
		return Demo{}, err
	}
	return d, nil
}
