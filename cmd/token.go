package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Work with approval tokens",
}

var tokenInspectCmd = &cobra.Command{
	Use:   "inspect <token>",
	Short: "Verify a token and print what it authorizes",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		p, err := svc.signer.Verify(args[0])
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "Calendar\t%s\n", p.CalendarID)
		if tier, ok := svc.policy.TierForCalendar(p.CalendarID); ok {
			fmt.Fprintf(w, "Size\t%s\n", tier)
		}
		fmt.Fprintf(w, "Event\t%s\n", p.EventID)
		fmt.Fprintf(w, "Customer\t%s <%s>\n", p.CustomerName, p.CustomerEmail)
		fmt.Fprintf(w, "Start\t%s\n", p.Start.Format(time.DateOnly))
		fmt.Fprintf(w, "End\t%s\n", p.End.Format(time.DateOnly))
		fmt.Fprintf(w, "Expires\t%s\n", p.ExpiresAt.Format(time.RFC3339))
		w.Flush()
	},
}

func init() {
	tokenCmd.AddCommand(tokenInspectCmd)
	rootCmd.AddCommand(tokenCmd)
}
