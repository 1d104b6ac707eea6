package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MrEthical07/hostelbites/api"
)

func (c *cli) profileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or edit your profile",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show your profile",
		Args:  cobra.NoArgs,
		RunE: c.gated("/profile", func(cmd *cobra.Command, _ []string) error {
			p, err := c.app.Profile(cmd.Context())
			if err != nil {
				return err
			}
			c.print(cmd, c.profileView(p))
			return nil
		}),
	}

	var (
		upd      api.ProfileUpdate
		location string
		image    string
	)
	update := &cobra.Command{
		Use:   "update",
		Short: "Change profile fields; unset flags are left alone",
		Args:  cobra.NoArgs,
		RunE: c.gated("/profile", func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("location") {
				upd.Location = &location
			}
			if cmd.Flags().Changed("image") {
				upd.ProfileImage = &image
			}
			p, err := c.app.SaveProfile(cmd.Context(), upd)
			if err != nil {
				return err
			}
			c.print(cmd, c.styles.OK.Render("Profile saved."))
			c.print(cmd, c.profileView(p))
			return nil
		}),
	}
	f := update.Flags()
	f.StringVar(&upd.Username, "username", "", "display name")
	f.StringVar(&upd.PhoneNo, "phone", "", "phone number")
	f.StringVar(&upd.HostelName, "hostel", "", "hostel name")
	f.StringVar(&upd.RoomNumber, "room", "", "room number")
	f.StringVar(&location, "location", "", "where to find you")
	f.StringVar(&image, "image", "", "profile image URL")

	cmd.AddCommand(show, update)
	return cmd
}

func (c *cli) profileView(p api.SellerInfo) string {
	return c.styles.Box.Render(strings.Join([]string{
		c.styles.Title.Render(p.Username) + c.styles.Muted.Render(fmt.Sprintf(" #%d", p.UserID)),
		"email:    " + p.Email,
		"phone:    " + p.PhoneNo,
		"hostel:   " + p.HostelName + ", room " + p.RoomNumber,
		"location: " + optional(p.Location),
		"image:    " + optional(p.ProfileImage),
	}, "\n"))
}
