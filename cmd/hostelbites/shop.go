package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MrEthical07/hostelbites"
	"github.com/MrEthical07/hostelbites/api"
	"github.com/MrEthical07/hostelbites/cart"
)

func parseID(s, what string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", what, s)
	}
	return id, nil
}

func (c *cli) productsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "products",
		Short: "Browse the catalogue",
		Args:  cobra.NoArgs,
		RunE: c.gated("/user/home", func(cmd *cobra.Command, _ []string) error {
			products, err := c.app.Products(cmd.Context())
			if err != nil {
				return err
			}
			t := newTable("Products", "ID", "Name", "Price", "Description")
			for _, p := range products {
				t.add(strconv.FormatInt(p.ProductID, 10), p.Name, money(p.Price), p.Description)
			}
			c.print(cmd, t.render(c.styles))
			return nil
		}),
	}
}

func (c *cli) sellersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sellers <productId>",
		Short: "List sellers stocking a product",
		Args:  cobra.ExactArgs(1),
		RunE: c.gated("/user/sellers", func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "product id")
			if err != nil {
				return err
			}
			sellers, err := c.app.SellersOf(cmd.Context(), id)
			if err != nil {
				return err
			}
			t := newTable("Sellers", "ID", "Seller", "Hostel", "Room", "Stock")
			for _, s := range sellers {
				t.add(strconv.FormatInt(s.UserID, 10), s.Username, s.HostelName, s.RoomNumber, strconv.Itoa(s.Quantity))
			}
			c.print(cmd, t.render(c.styles))
			return nil
		}),
	}
}

func (c *cli) storefrontCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "storefront <sellerId>",
		Short: "Show a seller and everything they list",
		Args:  cobra.ExactArgs(1),
		RunE: c.gated("/user/sellers/seller", func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "seller id")
			if err != nil {
				return err
			}
			sf, err := c.app.Storefront(cmd.Context(), id)
			if err != nil {
				return err
			}
			c.print(cmd, c.styles.Box.Render(fmt.Sprintf("%s\n%s, room %s\nphone %s, find me at %s",
				c.styles.Title.Render(sf.Seller.Username), sf.Seller.HostelName, sf.Seller.RoomNumber,
				sf.Seller.PhoneNo, optional(sf.Seller.Location))))
			t := newTable("", "ID", "Name", "Price", "In stock")
			for _, p := range sf.Products {
				t.add(strconv.FormatInt(p.ProductID, 10), p.Name, money(p.Price), strconv.Itoa(p.Quantity))
			}
			c.print(cmd, t.render(c.styles))
			return nil
		}),
	}
}

/*
====================================
CART
====================================
*/

func (c *cli) cartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Inspect or change the cart",
	}
	const path = "/user/cart"

	show := &cobra.Command{
		Use:   "show",
		Short: "Show cart lines and the price breakdown",
		Args:  cobra.NoArgs,
		RunE: c.gated(path, func(cmd *cobra.Command, _ []string) error {
			c.renderCart(cmd, c.app.Cart().Snapshot(), c.app.Quote())
			return nil
		}),
	}

	add := &cobra.Command{
		Use:   "add <productId> <sellerId>",
		Short: "Add one unit of a seller's product",
		Long: `Adds one unit of the product as listed by the seller. A cart holds one
seller at a time: adding from another seller replaces the cart.`,
		Args: cobra.ExactArgs(2),
		RunE: c.gated(path, func(cmd *cobra.Command, args []string) error {
			productID, err := parseID(args[0], "product id")
			if err != nil {
				return err
			}
			sellerID, err := parseID(args[1], "seller id")
			if err != nil {
				return err
			}
			sf, err := c.app.Storefront(cmd.Context(), sellerID)
			if err != nil {
				return err
			}
			for _, p := range sf.Products {
				if p.ProductID != productID {
					continue
				}
				before := c.app.Cart().SellerID()
				if err := c.app.AddToCart(cmd.Context(), p, sellerID); err != nil {
					if errors.Is(err, cart.ErrOutOfStock) {
						return fmt.Errorf("%s is out of stock at %s", p.Name, sf.Seller.Username)
					}
					return err
				}
				if before != 0 && before != sellerID {
					c.print(cmd, c.styles.Muted.Render("Your cart held another seller's items; it now holds "+sf.Seller.Username+"'s."))
				}
				c.print(cmd, c.styles.OK.Render("Added "+p.Name+"."))
				return nil
			}
			return fmt.Errorf("seller %d does not list product %d", sellerID, productID)
		}),
	}

	set := &cobra.Command{
		Use:   "set <productId> <qty>",
		Short: "Set a line's quantity (capped at stock, 0 removes)",
		Args:  cobra.ExactArgs(2),
		RunE: c.gated(path, func(cmd *cobra.Command, args []string) error {
			productID, err := parseID(args[0], "product id")
			if err != nil {
				return err
			}
			qty, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid quantity %q", args[1])
			}
			c.app.Cart().UpdateQuantity(cmd.Context(), productID, qty)
			c.renderCart(cmd, c.app.Cart().Snapshot(), c.app.Quote())
			return nil
		}),
	}

	remove := &cobra.Command{
		Use:   "remove <productId>",
		Short: "Remove a line",
		Args:  cobra.ExactArgs(1),
		RunE: c.gated(path, func(cmd *cobra.Command, args []string) error {
			productID, err := parseID(args[0], "product id")
			if err != nil {
				return err
			}
			c.app.Cart().RemoveItem(cmd.Context(), productID)
			c.renderCart(cmd, c.app.Cart().Snapshot(), c.app.Quote())
			return nil
		}),
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		Args:  cobra.NoArgs,
		RunE: c.gated(path, func(cmd *cobra.Command, _ []string) error {
			c.app.Cart().Clear(cmd.Context())
			c.print(cmd, "Cart cleared.")
			return nil
		}),
	}

	cmd.AddCommand(show, add, set, remove, clearCmd)
	return cmd
}

func (c *cli) renderCart(cmd *cobra.Command, snap cart.Cart, q cart.Quote) {
	if snap.Empty() {
		c.print(cmd, c.styles.Muted.Render("Your cart is empty."))
		return
	}
	t := newTable(fmt.Sprintf("Cart (seller %d)", snap.SellerID), "ID", "Name", "Unit", "Qty", "Max", "Subtotal")
	for _, l := range snap.Lines {
		t.add(strconv.FormatInt(l.ProductID, 10), l.Name, money(l.UnitPrice),
			strconv.Itoa(l.Quantity), strconv.Itoa(l.MaxQuantity), money(l.Subtotal()))
	}
	c.print(cmd, t.render(c.styles))
	c.print(cmd, c.quoteView(q))
}

func (c *cli) quoteView(q cart.Quote) string {
	lines := []string{
		"Subtotal:  " + money(q.Subtotal),
		"Delivery:  " + money(cart.Round2(q.DeliveryFee)),
		c.styles.Title.Render("Total:     " + money(cart.Round2(q.Total))),
	}
	if q.FreeDeliveryShortfall > 0 {
		lines = append(lines, c.styles.Muted.Render("Add "+money(q.FreeDeliveryShortfall)+" more for free delivery."))
	} else {
		lines = append(lines, c.styles.OK.Render("Free delivery!"))
	}
	return strings.Join(lines, "\n")
}

func (c *cli) checkoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "checkout",
		Short: "Place the cart as an order",
		Args:  cobra.NoArgs,
		RunE: c.gated("/user/cart", func(cmd *cobra.Command, _ []string) error {
			res, err := c.app.Checkout(cmd.Context())
			switch {
			case errors.Is(err, hostelbites.ErrCartEmpty):
				return errors.New("your cart is empty")
			case err != nil:
				return fmt.Errorf("order failed: %w", err)
			}
			c.print(cmd, c.styles.OK.Render("Order placed! Reference "+res.OrderRef+"."))
			c.print(cmd, fmt.Sprintf("%d item(s) from %s, pay %s on delivery.",
				res.Cart.ItemCount(), res.Seller.Username, money(cart.Round2(res.Quote.Total))))
			return nil
		}),
	}
}

func (c *cli) ordersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "orders",
		Short: "List your orders",
		Args:  cobra.NoArgs,
		RunE: c.gated("/user/orders", func(cmd *cobra.Command, _ []string) error {
			orders, err := c.app.UserOrders(cmd.Context())
			if err != nil {
				return err
			}
			c.print(cmd, c.ordersTable("Your orders", "Seller", orders, func(o api.Order) *api.SellerInfo { return o.Seller }))
			return nil
		}),
	}
}

func (c *cli) ordersTable(title, party string, orders []api.Order, who func(api.Order) *api.SellerInfo) string {
	t := newTable(title, "ID", party, "Items", "Price", "Status")
	for _, o := range orders {
		name := "-"
		if p := who(o); p != nil {
			name = p.Username
		}
		items := make([]string, 0, len(o.Products))
		for _, p := range o.Products {
			items = append(items, fmt.Sprintf("%s x%d", p.ProductName, p.Quantity))
		}
		t.add(strconv.FormatInt(o.OrderID, 10), name, strings.Join(items, ", "), money(o.Price), o.Status())
	}
	return t.render(c.styles)
}
