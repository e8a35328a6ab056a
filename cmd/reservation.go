package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	qrcode "github.com/skip2/go-qrcode"
	"github.com/spf13/cobra"

	"dumpster-booking/internal/availability"
	"dumpster-booking/internal/booking"
)

const qrImageSize = 512

var reservationCmd = &cobra.Command{
	Use:   "reservation",
	Short: "Review and act on reservations",
	Long:  `List reservations held in the tier calendars and approve or decline booking requests.`,
}

var reservationListCmd = &cobra.Command{
	Use:   "list <size>",
	Short: "List active reservations",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		days, _ := cmd.Flags().GetInt("days")

		unit, err := svc.policy.Lookup(args[0])
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		today := svc.engine.Today()
		reservations, skipped, err := svc.engine.Reservations(cmd.Context(), unit.Tier, today, today.AddDays(days))
		if err != nil {
			slog.Error("Failed to list reservations", "error", err)
			os.Exit(1)
		}

		if len(reservations) == 0 {
			fmt.Printf("No %s reservations in the next %d days\n", unit.Tier, days)
		} else {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "EVENT ID\tSTATUS\tSTART\tEND\tNAME\tPHONE\tEMAIL")
			for _, r := range reservations {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					r.EventID,
					r.Record.Status,
					r.Record.Window.Start,
					r.Record.Window.End,
					r.Record.Contact.Name,
					r.Record.Contact.Phone,
					r.Record.Contact.Email,
				)
			}
			w.Flush()
		}

		printSkipped(skipped)
	},
}

func transitionCmd(action booking.Action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(action) + " <token>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			out := svc.transitions.Handle(cmd.Context(), args[0], string(action))

			switch out.Status {
			case booking.OutcomeApproved, booking.OutcomeDeclined:
				fmt.Printf("Reservation %s: %s, %s, %s\n", out.Status, out.Name, out.Size, out.Range)
				if !out.Changed {
					fmt.Println("Nothing changed, the link had already been used")
				}
				if out.Notification.Err != nil {
					fmt.Printf("Warning: customer was not notified: %v\n", out.Notification.Err)
				}
			case booking.OutcomeInvalid:
				fmt.Fprintln(os.Stderr, "Token is invalid or has expired")
				os.Exit(1)
			default:
				fmt.Fprintln(os.Stderr, "Calendar update failed, see the log for details")
				os.Exit(1)
			}
		},
	}
}

var reservationLinksCmd = &cobra.Command{
	Use:   "links <size> <event-id>",
	Short: "Issue new approve and decline links for a request",
	Long: `Signs a fresh pair of approval links for a reservation that is already in the calendar,
for when the operator email went missing. With --qr the approve link is also written as a
PNG QR code.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		qrFile, _ := cmd.Flags().GetString("qr")

		unit, err := svc.policy.Lookup(args[0])
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		links, err := svc.writer.Reissue(cmd.Context(), unit, args[1])
		if err != nil {
			slog.Error("Failed to issue links", "event_id", args[1], "error", err)
			os.Exit(1)
		}

		fmt.Printf("Approve: %s\nDecline: %s\nExpires: %s\n", links.Approve, links.Decline, links.Expires.Format("2006-01-02 15:04 MST"))

		if qrFile != "" {
			if err := qrcode.WriteFile(links.Approve, qrcode.Medium, qrImageSize, qrFile); err != nil {
				slog.Error("Error generating QR code", "error", err)
				os.Exit(1)
			}
			fmt.Printf("QR code written to %s\n", qrFile)
		}
	},
}

func printSkipped(skipped []availability.Skipped) {
	if len(skipped) == 0 {
		return
	}
	fmt.Printf("\n%d event(s) were ignored and do not block the calendar:\n", len(skipped))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "EVENT ID\tREASON\tSUMMARY")
	for _, s := range skipped {
		fmt.Fprintf(w, "%s\t%s\t%s\n", s.EventID, s.Reason, s.Summary)
	}
	w.Flush()
}

func init() {
	reservationListCmd.Flags().IntP("days", "d", 90, "How far ahead to look")
	reservationLinksCmd.Flags().String("qr", "", "Also write the approve link as a QR code PNG to this file")

	reservationCmd.AddCommand(reservationListCmd)
	reservationCmd.AddCommand(transitionCmd(booking.ActionApprove, "Confirm a booking request"))
	reservationCmd.AddCommand(transitionCmd(booking.ActionDecline, "Decline a booking request and remove the hold"))
	reservationCmd.AddCommand(reservationLinksCmd)
	rootCmd.AddCommand(reservationCmd)
}
