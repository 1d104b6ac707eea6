package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/MrEthical07/hostelbites/api"
)

func (c *cli) dashboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Manage your listings and stock",
	}
	const path = "/seller/home"

	listed := &cobra.Command{
		Use:   "listed",
		Short: "Products you list, with stock",
		Args:  cobra.NoArgs,
		RunE: c.gated(path, func(cmd *cobra.Command, _ []string) error {
			products, err := c.app.ListedProducts(cmd.Context())
			if err != nil {
				return err
			}
			c.print(cmd, c.productTable("Listed", products, true))
			return nil
		}),
	}

	unlisted := &cobra.Command{
		Use:   "unlisted",
		Short: "Catalogue products you could list",
		Args:  cobra.NoArgs,
		RunE: c.gated(path, func(cmd *cobra.Command, _ []string) error {
			products, err := c.app.UnlistedProducts(cmd.Context())
			if err != nil {
				return err
			}
			c.print(cmd, c.productTable("Not listed", products, false))
			return nil
		}),
	}

	add := &cobra.Command{
		Use:   "add <productId>...",
		Short: "List catalogue products (stock starts at 0)",
		Args:  cobra.MinimumNArgs(1),
		RunE: c.gated(path, func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, a := range args {
				id, err := parseID(a, "product id")
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			if err := c.app.ListProducts(cmd.Context(), ids); err != nil {
				return err
			}
			c.print(cmd, c.styles.OK.Render(fmt.Sprintf("Listed %d product(s).", len(ids))))
			return nil
		}),
	}

	del := &cobra.Command{
		Use:   "delete <productId>",
		Short: "Stop listing a product",
		Args:  cobra.ExactArgs(1),
		RunE: c.gated(path, func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "product id")
			if err != nil {
				return err
			}
			if err := c.app.UnlistProduct(cmd.Context(), id); err != nil {
				return err
			}
			c.print(cmd, c.styles.OK.Render("Product removed."))
			return nil
		}),
	}

	qty := &cobra.Command{
		Use:   "qty <productId> <qty>",
		Short: "Set stock for a listed product",
		Args:  cobra.ExactArgs(2),
		RunE: c.gated(path, func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "product id")
			if err != nil {
				return err
			}
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid quantity %q", args[1])
			}
			if err := c.app.SetStock(cmd.Context(), id, n); err != nil {
				return err
			}
			c.print(cmd, c.styles.OK.Render(fmt.Sprintf("Stock set to %d.", n)))
			return nil
		}),
	}

	cmd.AddCommand(listed, unlisted, add, del, qty)
	return cmd
}

func (c *cli) productTable(title string, products []api.Product, withStock bool) string {
	headers := []string{"ID", "Name", "Price"}
	if withStock {
		headers = append(headers, "Stock")
	}
	t := newTable(title, headers...)
	for _, p := range products {
		row := []string{strconv.FormatInt(p.ProductID, 10), p.Name, money(p.Price)}
		if withStock {
			row = append(row, strconv.Itoa(p.Quantity))
		}
		t.add(row...)
	}
	return t.render(c.styles)
}

func (c *cli) sellerOrdersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seller-orders",
		Short: "Orders placed with you",
	}
	const path = "/seller/orders"

	list := &cobra.Command{
		Use:   "list",
		Short: "List incoming orders, newest first",
		Args:  cobra.NoArgs,
		RunE: c.gated(path, func(cmd *cobra.Command, _ []string) error {
			orders, err := c.app.SellerOrders(cmd.Context())
			if err != nil {
				return err
			}
			c.print(cmd, c.ordersTable("Incoming orders", "Buyer", orders, func(o api.Order) *api.SellerInfo { return o.User }))
			return nil
		}),
	}

	advance := func(use, short, done string, fn func(*cobra.Command, int64) error) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <orderId>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: c.gated(path, func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0], "order id")
				if err != nil {
					return err
				}
				if err := fn(cmd, id); err != nil {
					return err
				}
				c.print(cmd, c.styles.OK.Render(fmt.Sprintf("Order %d %s.", id, done)))
				return nil
			}),
		}
	}

	cmd.AddCommand(
		list,
		advance("accept", "Accept an order", "accepted", func(cmd *cobra.Command, id int64) error {
			return c.app.AcceptOrder(cmd.Context(), id)
		}),
		advance("complete", "Mark an accepted order delivered", "completed", func(cmd *cobra.Command, id int64) error {
			return c.app.CompleteOrder(cmd.Context(), id)
		}),
	)
	return cmd
}
