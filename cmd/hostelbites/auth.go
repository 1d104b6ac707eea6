package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrEthical07/hostelbites/api"
)

func (c *cli) loginCmd() *cobra.Command {
	var (
		creds         api.Credentials
		passwordStdin bool
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and remember the session",
		Args:  cobra.NoArgs,
		RunE: c.gated("/login", func(cmd *cobra.Command, _ []string) error {
			if passwordStdin {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read password: %w", err)
				}
				creds.Password = strings.TrimRight(line, "\r\n")
			}
			landing, err := c.app.Login(cmd.Context(), creds)
			if err != nil {
				var apiErr *api.Error
				if errors.As(err, &apiErr) && apiErr.Kind == api.KindAuth {
					return errors.New("invalid email or password")
				}
				return err
			}
			s := c.app.Session()
			c.print(cmd, c.styles.OK.Render(fmt.Sprintf("Welcome, %s (%s).", s.Claims.Username, s.Role())))
			c.print(cmd, c.styles.Muted.Render("Home: "+landing+". Session expires in "+c.app.SessionExpiresIn()+"."))
			return nil
		}),
	}
	cmd.Flags().StringVar(&creds.Email, "email", "", "account email")
	cmd.Flags().StringVar(&creds.Password, "password", "", "account password")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (c *cli) registerCmd() *cobra.Command {
	var reg api.Registration
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a buyer or seller account",
		Args:  cobra.NoArgs,
		RunE: c.gated("/register", func(cmd *cobra.Command, _ []string) error {
			reg.Role = strings.ToUpper(reg.Role)
			if err := c.app.Register(cmd.Context(), reg); err != nil {
				return err
			}
			c.print(cmd, c.styles.OK.Render("Registered "+reg.Email+". Log in to continue."))
			return nil
		}),
	}
	f := cmd.Flags()
	f.StringVar(&reg.Username, "username", "", "display name")
	f.StringVar(&reg.Email, "email", "", "email address")
	f.StringVar(&reg.Password, "password", "", "password (min 8 characters)")
	f.StringVar(&reg.PhoneNo, "phone", "", "10-digit phone number")
	f.StringVar(&reg.Location, "location", "", "where in the hostel to find you")
	f.StringVar(&reg.Role, "role", "USER", "USER or SELLER")
	f.StringVar(&reg.RoomNo, "room", "", "room number")
	f.StringVar(&reg.HostelName, "hostel", "", "hostel name")
	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the session (the cart is kept)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c.app.Logout(cmd.Context())
			c.print(cmd, "Logged out.")
			return nil
		},
	}
}

func (c *cli) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in account",
		Args:  cobra.NoArgs,
		RunE: c.gated("/profile", func(cmd *cobra.Command, _ []string) error {
			s := c.app.Session()
			cl := s.Claims
			body := strings.Join([]string{
				c.styles.Title.Render(cl.Username) + " " + c.styles.Muted.Render(s.Role().String()),
				"email:   " + cl.Email,
				"hostel:  " + cl.HostelName + ", room " + cl.RoomNumber,
				"home:    " + s.Role().LandingRoute(),
				"expires: " + cl.ExpiresAt.Local().Format(time.RFC1123) + " (" + c.app.SessionExpiresIn() + ")",
			}, "\n")
			c.print(cmd, c.styles.Box.Render(body))
			return nil
		}),
	}
}
